/*
store.go - Persistence interface for the transaction ledger

PURPOSE:
  Defines the interface between the ledger and the database. Rows are
  retained forever: there is no Delete, and the only mutation is a guarded
  status transition.

AUDIT CONTRACT:
  - Append(): insert a new row
  - UpdateStatus(): flip status, guarded by the expected current status
  - NO content updates, NO deletes. A superseded or voided row keeps every
    field indefinitely.

STATUS GUARD:
  UpdateStatus(id, from, to) only succeeds when the row's current status
  equals from. Anything else is a ConflictError (or NotFoundError for an
  unknown id). This is what makes concurrent double-corrections lose
  cleanly instead of corrupting a chain.

ATOMICITY:
  TxStore.WithTx runs a function against a transactional view of the store;
  the correction engine uses it so supersede+append commit together or not
  at all.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite
  - store/memory: in-memory for tests/dev

SEE ALSO:
  - ledger.go: Uses Store for all writes
  - correction.go: Uses WithTx
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// STORE
// =============================================================================

// Store persists transactions. No content updates, no deletes.
type Store interface {
	// Append inserts a new row.
	Append(ctx context.Context, tx Transaction) error

	// UpdateStatus transitions id from one status to another. Returns
	// NotFoundError for an unknown id and ConflictError when the current
	// status is not from.
	UpdateStatus(ctx context.Context, id TransactionID, from, to Status) error

	// Get returns a row by ID, or nil if absent.
	Get(ctx context.Context, id TransactionID) (*Transaction, error)

	// List returns rows matching the filter, ordered by ID (creation order).
	List(ctx context.Context, f Filter) ([]Transaction, error)
}

// TxStore wraps Store with transaction support. If fn returns an error the
// transaction is rolled back, otherwise committed.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// FILTER
// =============================================================================

// Filter narrows List results. Zero values mean "no constraint".
// From/To bound the session StartTime (inclusive).
type Filter struct {
	StaffName string
	Status    Status
	From      time.Time
	To        time.Time
}

// Matches reports whether a transaction satisfies the filter.
// Store implementations may use it directly or translate it to SQL.
func (f Filter) Matches(tx Transaction) bool {
	if f.StaffName != "" && tx.StaffName != f.StaffName {
		return false
	}
	if f.Status != "" && tx.Status != f.Status {
		return false
	}
	if !f.From.IsZero() && tx.StartTime.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && tx.StartTime.After(f.To) {
		return false
	}
	return true
}
