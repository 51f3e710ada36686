package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/studio-ledger/ledger"
	"github.com/warp/studio-ledger/store/memory"
)

func row(id string, correctedFrom string) ledger.Transaction {
	start := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	return ledger.Transaction{
		ID: ledger.TransactionID(id),
		Input: ledger.Input{
			StaffName:       "Anna",
			ServiceName:     "Thai Massage",
			Location:        "Downtown",
			DurationMinutes: 60,
			PaymentMethod:   "cash",
			StartTime:       start,
			EndTime:         start.Add(time.Hour),
		},
		Price:           decimal.RequireFromString("250"),
		StaffFee:        decimal.RequireFromString("100"),
		Status:          ledger.StatusActive,
		CorrectedFromID: ledger.TransactionID(correctedFrom),
		CreatedAt:       start,
	}
}

func TestMemoryStore_StatusGuard(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, row("txn-1", "")))
	require.NoError(t, store.UpdateStatus(ctx, "txn-1", ledger.StatusActive, ledger.StatusVoid))

	err := store.UpdateStatus(ctx, "txn-1", ledger.StatusActive, ledger.StatusVoid)
	assert.True(t, ledger.IsConflict(err))

	err = store.UpdateStatus(ctx, "txn-9", ledger.StatusActive, ledger.StatusVoid)
	assert.True(t, ledger.IsNotFound(err))
}

func TestMemoryStore_SecondSuccessor_Conflicts(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, row("txn-1", "")))
	require.NoError(t, store.Append(ctx, row("txn-2", "txn-1")))

	err := store.Append(ctx, row("txn-3", "txn-1"))
	assert.True(t, ledger.IsConflict(err))
}

func TestMemoryStore_WithTx_SnapshotRollback(t *testing.T) {
	// GIVEN: One ACTIVE row
	// WHEN: A transaction supersedes it, appends a successor, then fails
	// THEN: The snapshot restore leaves the store exactly as before

	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, row("txn-1", "")))

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(s ledger.Store) error {
		if err := s.UpdateStatus(ctx, "txn-1", ledger.StatusActive, ledger.StatusSuperseded); err != nil {
			return err
		}
		if err := s.Append(ctx, row("txn-2", "txn-1")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.Get(ctx, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusActive, got.Status)

	all, err := store.List(ctx, ledger.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	// The successor slot is free again after the rollback.
	require.NoError(t, store.Append(ctx, row("txn-4", "txn-1")))
}

func TestMemoryStore_List_PreservesInsertionOrder(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	for _, id := range []string{"txn-3", "txn-1", "txn-2"} {
		require.NoError(t, store.Append(ctx, row(id, "")))
	}

	all, err := store.List(ctx, ledger.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ledger.TransactionID("txn-3"), all[0].ID)
	assert.Equal(t, ledger.TransactionID("txn-2"), all[2].ID)
}
