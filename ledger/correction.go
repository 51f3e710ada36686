/*
correction.go - Void-and-replace correction of booked sessions

PURPOSE:
  The only way to "edit" a transaction. The original row is never mutated
  beyond its status and never deleted; a correction marks it SUPERSEDED and
  inserts a replacement row linked back via CorrectedFromID, atomically.

WHY NOT EDIT IN PLACE?
  - Audit: every version of a booking stays on record
  - Revenue integrity: balance sums only count the one ACTIVE row per
    chain, so a correction changes totals by (new - old), never both
  - Debugging: "why did this fee change?" is answered by the chain

CHAIN DEPTH:
  Unlimited. A correction is itself an ACTIVE row and may later be
  corrected again. Branching is impossible: superseding requires the row to
  still be ACTIVE, and the store enforces one successor per original.

ATOMICITY:
  The merged input is validated and priced first; only then do supersede and
  append run inside one store transaction. An insert failure rolls the
  supersede back, so the ledger never holds a SUPERSEDED original with no
  replacement, nor two ACTIVE rows in one chain. Pricing stays outside the
  transaction because the catalog reads the store WithTx write-locks.

SEE ALSO:
  - ledger.go: price, appendPriced, status transitions
  - store.go: TxStore.WithTx contract
*/
package ledger

import (
	"context"
)

// =============================================================================
// CORRECTION ENGINE
// =============================================================================

// CorrectionEngine orchestrates the supersede+append pair over the ledger.
type CorrectionEngine struct {
	ledger *TransactionLedger
}

func NewCorrectionEngine(l *TransactionLedger) *CorrectionEngine {
	return &CorrectionEngine{ledger: l}
}

// Correct replaces a booking's content. Fields not present in the update
// carry over from the original. Returns the new ACTIVE row.
//
// Fails with NotFoundError if originalID is unknown and ConflictError if the
// original already left ACTIVE (it was corrected or voided concurrently).
func (e *CorrectionEngine) Correct(ctx context.Context, originalID TransactionID, up Update) (*Transaction, error) {
	l := e.ledger

	l.mu.Lock()
	defer l.mu.Unlock()

	original, err := l.store.Get(ctx, originalID)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, &NotFoundError{ID: originalID}
	}
	if original.Status != StatusActive {
		return nil, &ConflictError{ID: originalID, Status: original.Status}
	}

	merged := up.Apply(original.Input)

	// Price the merged input before opening the store transaction; WithTx
	// holds the store's write lock and the catalog reads the same store.
	quote, err := l.price(ctx, merged)
	if err != nil {
		return nil, err
	}

	var replacement *Transaction
	err = l.store.WithTx(ctx, func(s Store) error {
		if err := s.UpdateStatus(ctx, originalID, StatusActive, StatusSuperseded); err != nil {
			return err
		}
		tx, err := l.appendPriced(ctx, s, merged, quote, originalID)
		if err != nil {
			return err
		}
		replacement = tx
		return nil
	})
	if err != nil {
		return nil, err
	}

	return replacement, nil
}

// Chain returns a correction chain oldest-first, starting from any member.
// Walks CorrectedFromID links backwards, then forward to the newest row.
func (e *CorrectionEngine) Chain(ctx context.Context, id TransactionID) ([]Transaction, error) {
	l := e.ledger

	tx, err := l.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Walk back to the root.
	root := *tx
	for root.CorrectedFromID != "" {
		prev, err := l.GetByID(ctx, root.CorrectedFromID)
		if err != nil {
			return nil, err
		}
		root = *prev
	}

	// Walk forward collecting successors. Successor lookup scans the full
	// set; chains are short and this is an audit view, not a hot path.
	all, err := l.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	successors := make(map[TransactionID]Transaction, len(all))
	for _, t := range all {
		if t.CorrectedFromID != "" {
			successors[t.CorrectedFromID] = t
		}
	}

	chain := []Transaction{root}
	cur := root
	for {
		next, ok := successors[cur.ID]
		if !ok {
			break
		}
		chain = append(chain, next)
		cur = next
	}
	return chain, nil
}
