/*
Package memory provides in-memory implementations of the storage interfaces
(for testing and dev mode).

Implements ledger.TxStore, pricing.RuleStore and balance.PaymentLog with the
same semantics as the SQLite store: guarded status transitions, one
successor per corrected row, snapshot/rollback transactions.
*/
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/studio-ledger/balance"
	"github.com/warp/studio-ledger/ledger"
	"github.com/warp/studio-ledger/pricing"
)

// =============================================================================
// STORE
// =============================================================================

type Store struct {
	mu sync.RWMutex

	txs   map[ledger.TransactionID]ledger.Transaction
	order []ledger.TransactionID // creation order

	// corrected_from -> successor; enforces unbranched chains
	successors map[ledger.TransactionID]ledger.TransactionID

	rules    map[string]pricing.Rule // key: triple
	payments []balance.PaymentRecord
}

func New() *Store {
	return &Store{
		txs:        make(map[ledger.TransactionID]ledger.Transaction),
		successors: make(map[ledger.TransactionID]ledger.TransactionID),
		rules:      make(map[string]pricing.Rule),
	}
}

// =============================================================================
// LEDGER STORE (ledger.Store / ledger.TxStore)
// =============================================================================

func (s *Store) Append(_ context.Context, tx ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(tx)
}

func (s *Store) appendLocked(tx ledger.Transaction) error {
	if _, exists := s.txs[tx.ID]; exists {
		return fmt.Errorf("duplicate transaction id %s", tx.ID)
	}
	if tx.CorrectedFromID != "" {
		if _, taken := s.successors[tx.CorrectedFromID]; taken {
			// A second correction of the same original would branch the chain.
			return &ledger.ConflictError{ID: tx.CorrectedFromID, Status: ledger.StatusSuperseded}
		}
		s.successors[tx.CorrectedFromID] = tx.ID
	}
	s.txs[tx.ID] = tx
	s.order = append(s.order, tx.ID)
	return nil
}

func (s *Store) UpdateStatus(_ context.Context, id ledger.TransactionID, from, to ledger.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateStatusLocked(id, from, to)
}

func (s *Store) updateStatusLocked(id ledger.TransactionID, from, to ledger.Status) error {
	tx, ok := s.txs[id]
	if !ok {
		return &ledger.NotFoundError{ID: id}
	}
	if tx.Status != from {
		return &ledger.ConflictError{ID: id, Status: tx.Status}
	}
	tx.Status = to
	s.txs[id] = tx
	return nil
}

func (s *Store) Get(_ context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLocked(id), nil
}

func (s *Store) getLocked(id ledger.TransactionID) *ledger.Transaction {
	tx, ok := s.txs[id]
	if !ok {
		return nil
	}
	return &tx
}

func (s *Store) List(_ context.Context, f ledger.Filter) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(f), nil
}

func (s *Store) listLocked(f ledger.Filter) []ledger.Transaction {
	var out []ledger.Transaction
	for _, id := range s.order {
		tx := s.txs[id]
		if f.Matches(tx) {
			out = append(out, tx)
		}
	}
	return out
}

// WithTx simulates a transaction with a snapshot + rollback on error.
func (s *Store) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshotLocked()
	if err := fn(&txView{parent: s}); err != nil {
		s.restoreLocked(snap)
		return err
	}
	return nil
}

type storeSnapshot struct {
	txs        map[ledger.TransactionID]ledger.Transaction
	order      []ledger.TransactionID
	successors map[ledger.TransactionID]ledger.TransactionID
}

func (s *Store) snapshotLocked() storeSnapshot {
	txs := make(map[ledger.TransactionID]ledger.Transaction, len(s.txs))
	for k, v := range s.txs {
		txs[k] = v
	}
	succ := make(map[ledger.TransactionID]ledger.TransactionID, len(s.successors))
	for k, v := range s.successors {
		succ[k] = v
	}
	return storeSnapshot{
		txs:        txs,
		order:      append([]ledger.TransactionID{}, s.order...),
		successors: succ,
	}
}

func (s *Store) restoreLocked(snap storeSnapshot) {
	s.txs = snap.txs
	s.order = snap.order
	s.successors = snap.successors
}

// txView runs against the parent's state while the parent holds the write
// lock for the whole transaction.
type txView struct {
	parent *Store
}

func (v *txView) Append(_ context.Context, tx ledger.Transaction) error {
	return v.parent.appendLocked(tx)
}

func (v *txView) UpdateStatus(_ context.Context, id ledger.TransactionID, from, to ledger.Status) error {
	return v.parent.updateStatusLocked(id, from, to)
}

func (v *txView) Get(_ context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	return v.parent.getLocked(id), nil
}

func (v *txView) List(_ context.Context, f ledger.Filter) ([]ledger.Transaction, error) {
	return v.parent.listLocked(f), nil
}

// =============================================================================
// RULE STORE (pricing.RuleStore)
// =============================================================================

func ruleKey(location, serviceName string, durationMinutes int) string {
	return fmt.Sprintf("%s|%s|%d", location, serviceName, durationMinutes)
}

func (s *Store) SaveRule(_ context.Context, rule pricing.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ruleKey(rule.Location, rule.ServiceName, rule.DurationMinutes)
	if existing, ok := s.rules[key]; ok {
		rule.ID = existing.ID // triple is the logical key
	}
	s.rules[key] = rule
	return nil
}

func (s *Store) FindRule(_ context.Context, location, serviceName string, durationMinutes int) (*pricing.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, ok := s.rules[ruleKey(location, serviceName, durationMinutes)]
	if !ok {
		return nil, nil
	}
	return &rule, nil
}

func (s *Store) ListRules(_ context.Context) ([]pricing.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]pricing.Rule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Location != out[j].Location {
			return out[i].Location < out[j].Location
		}
		if out[i].ServiceName != out[j].ServiceName {
			return out[i].ServiceName < out[j].ServiceName
		}
		return out[i].DurationMinutes < out[j].DurationMinutes
	})
	return out, nil
}

func (s *Store) DeleteRule(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, r := range s.rules {
		if r.ID == id {
			delete(s.rules, key)
			return nil
		}
	}
	return nil
}

// =============================================================================
// PAYMENT LOG (balance.PaymentLog)
// =============================================================================

func (s *Store) AppendPayment(_ context.Context, p balance.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.payments = append(s.payments, p)
	return nil
}

func (s *Store) PaymentsByStaff(_ context.Context, staffName string) ([]balance.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []balance.PaymentRecord
	for _, p := range s.payments {
		if p.StaffName == staffName {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaidAt.Before(out[j].PaidAt) })
	return out, nil
}
