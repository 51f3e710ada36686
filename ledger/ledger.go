/*
ledger.go - The transaction ledger

PURPOSE:
  Owns the write path for session records: validate, price, assign an ID,
  persist. Also owns the two legal status transitions. Everything a caller
  reads (balances, reports) is derived from the rows this file writes.

WRITE SERIALIZATION:
  Append, MarkSuperseded and Void run under a single writer lock so that
  generated IDs never collide and status transitions see a consistent row.
  Reads take no ledger-level lock; they operate on store snapshots.

STATUS TRANSITIONS:
  ACTIVE -> SUPERSEDED  replaced by a correction (see correction.go)
  ACTIVE -> VOID        standalone mistake removal, no replacement
  Anything else is a conflict: the row already left ACTIVE, which means a
  concurrent request got there first.

SEE ALSO:
  - correction.go: The only way to "edit" a row
  - store.go: Persistence contract
*/
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/warp/studio-ledger/pricing"
)

// =============================================================================
// PRICE RESOLUTION
// =============================================================================

// PriceResolver is the catalog lookup the ledger performs at booking time.
// *pricing.Catalog satisfies it.
type PriceResolver interface {
	Resolve(ctx context.Context, location, serviceName string, durationMinutes int) (pricing.Quote, error)
}

// =============================================================================
// TRANSACTION LEDGER
// =============================================================================

// TransactionLedger records sessions and owns their status transitions.
type TransactionLedger struct {
	store  TxStore
	prices PriceResolver
	ids    idGenerator
	clock  func() time.Time

	// Serializes writes. Reads go straight to the store.
	mu sync.Mutex
}

type Option func(*TransactionLedger)

// WithClock overrides the time source (tests).
func WithClock(clock func() time.Time) Option {
	return func(l *TransactionLedger) { l.clock = clock }
}

func New(store TxStore, prices PriceResolver, opts ...Option) *TransactionLedger {
	l := &TransactionLedger{
		store:  store,
		prices: prices,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// =============================================================================
// WRITES
// =============================================================================

// Append validates the input, resolves price and staff fee from the catalog,
// and persists a new ACTIVE row. The stored record is returned.
func (l *TransactionLedger) Append(ctx context.Context, in Input) (*Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	quote, err := l.price(ctx, in)
	if err != nil {
		return nil, err
	}
	return l.appendPriced(ctx, l.store, in, quote, "")
}

// price validates the input and resolves its price and staff fee.
// The catalog lookup reads the store, so it must never run inside WithTx:
// the transaction holds the store's write lock and the read would block on
// it forever.
func (l *TransactionLedger) price(ctx context.Context, in Input) (pricing.Quote, error) {
	if err := in.Validate(); err != nil {
		return pricing.Quote{}, err
	}
	return l.prices.Resolve(ctx, in.Location, in.ServiceName, in.DurationMinutes)
}

// appendPriced persists a new ACTIVE row carrying an already-resolved quote.
// The correction engine calls it with a transactional store view and the ID
// being replaced; callers must hold l.mu.
func (l *TransactionLedger) appendPriced(ctx context.Context, s Store, in Input, quote pricing.Quote, correctedFrom TransactionID) (*Transaction, error) {
	now := l.clock().UTC()
	tx := Transaction{
		ID:              l.ids.next(now),
		Input:           in,
		Price:           quote.Price,
		StaffFee:        quote.StaffFee,
		Status:          StatusActive,
		CorrectedFromID: correctedFrom,
		CreatedAt:       now,
	}

	if err := s.Append(ctx, tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// MarkSuperseded transitions ACTIVE -> SUPERSEDED.
// NotFoundError for an unknown ID; ConflictError if the row is not ACTIVE.
func (l *TransactionLedger) MarkSuperseded(ctx context.Context, id TransactionID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.store.UpdateStatus(ctx, id, StatusActive, StatusSuperseded)
}

// Void transitions ACTIVE -> VOID (mistake removal with no replacement).
// Same preconditions as MarkSuperseded.
func (l *TransactionLedger) Void(ctx context.Context, id TransactionID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.store.UpdateStatus(ctx, id, StatusActive, StatusVoid)
}

// =============================================================================
// READS - Snapshots, no mutation
// =============================================================================

// GetByID returns a row or NotFoundError.
func (l *TransactionLedger) GetByID(ctx context.Context, id TransactionID) (*Transaction, error) {
	tx, err := l.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, &NotFoundError{ID: id}
	}
	return tx, nil
}

// GetActive returns all ACTIVE rows.
func (l *TransactionLedger) GetActive(ctx context.Context) ([]Transaction, error) {
	return l.store.List(ctx, Filter{Status: StatusActive})
}

// GetAll returns every row regardless of status.
func (l *TransactionLedger) GetAll(ctx context.Context) ([]Transaction, error) {
	return l.store.List(ctx, Filter{})
}

// List returns rows matching the filter.
func (l *TransactionLedger) List(ctx context.Context, f Filter) ([]Transaction, error) {
	return l.store.List(ctx, f)
}
