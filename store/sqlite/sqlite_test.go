package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/studio-ledger/balance"
	"github.com/warp/studio-ledger/ledger"
	"github.com/warp/studio-ledger/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

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

// =============================================================================
// ROUND TRIP
// =============================================================================

func TestStore_AppendAndGet_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	in := row("txn-0000000000000000001", "")
	in.CustomerContact = "555-1234"
	require.NoError(t, store.Append(ctx, in))

	got, err := store.Get(ctx, in.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, in.ID, got.ID)
	assert.Equal(t, in.StaffName, got.StaffName)
	assert.Equal(t, in.CustomerContact, got.CustomerContact)
	assert.True(t, got.Price.Equal(in.Price))
	assert.True(t, got.StaffFee.Equal(in.StaffFee))
	assert.True(t, got.StartTime.Equal(in.StartTime))
	assert.Equal(t, ledger.StatusActive, got.Status)
}

func TestStore_Get_Missing_ReturnsNil(t *testing.T) {
	store := newTestStore(t)

	got, err := store.Get(context.Background(), "txn-0000000000000000099")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_TimeFilter_NormalizesOffsets(t *testing.T) {
	// GIVEN: One row written with a +07:00 wall-clock time (01:00 UTC) and
	//        one written directly in UTC (03:00 UTC)
	// WHEN: Filtering with a UTC lower bound of 02:00
	// THEN: Only the later row matches; stored times compare chronologically
	//       even when callers mix offsets

	store := newTestStore(t)
	ctx := context.Background()

	bangkok := time.FixedZone("ICT", 7*60*60)
	early := row("txn-0000000000000000001", "")
	early.StartTime = time.Date(2025, time.June, 2, 8, 0, 0, 0, bangkok)
	early.EndTime = early.StartTime.Add(time.Hour)
	require.NoError(t, store.Append(ctx, early))

	late := row("txn-0000000000000000002", "")
	late.StartTime = time.Date(2025, time.June, 2, 3, 0, 0, 0, time.UTC)
	late.EndTime = late.StartTime.Add(time.Hour)
	require.NoError(t, store.Append(ctx, late))

	got, err := store.List(ctx, ledger.Filter{
		From: time.Date(2025, time.June, 2, 2, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, late.ID, got[0].ID)

	// The round trip preserves the instant.
	fetched, err := store.Get(ctx, early.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.True(t, fetched.StartTime.Equal(early.StartTime))
}

// =============================================================================
// STATUS GUARD
// =============================================================================

func TestStore_UpdateStatus_GuardsOnCurrentStatus(t *testing.T) {
	// GIVEN: An ACTIVE row
	// WHEN: Two writers race ACTIVE -> VOID
	// THEN: The first wins; the second gets ConflictError with the real status

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, row("txn-0000000000000000001", "")))

	err := store.UpdateStatus(ctx, "txn-0000000000000000001", ledger.StatusActive, ledger.StatusVoid)
	require.NoError(t, err)

	err = store.UpdateStatus(ctx, "txn-0000000000000000001", ledger.StatusActive, ledger.StatusVoid)
	var conflict *ledger.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, ledger.StatusVoid, conflict.Status)
}

func TestStore_UpdateStatus_Missing_NotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateStatus(context.Background(), "txn-0000000000000000099",
		ledger.StatusActive, ledger.StatusVoid)

	var nf *ledger.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

// =============================================================================
// CHAIN BRANCHING
// =============================================================================

func TestStore_Append_SecondSuccessor_Conflicts(t *testing.T) {
	// GIVEN: txn-1 already has a successor
	// WHEN: Appending another row that also claims txn-1 as its original
	// THEN: The unique index rejects it as a ConflictError (no branching)

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, row("txn-0000000000000000001", "")))
	require.NoError(t, store.Append(ctx, row("txn-0000000000000000002", "txn-0000000000000000001")))

	err := store.Append(ctx, row("txn-0000000000000000003", "txn-0000000000000000001"))
	assert.True(t, ledger.IsConflict(err), "got %v", err)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestStore_WithTx_RollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, row("txn-0000000000000000001", "")))

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(s ledger.Store) error {
		if err := s.UpdateStatus(ctx, "txn-0000000000000000001",
			ledger.StatusActive, ledger.StatusSuperseded); err != nil {
			return err
		}
		if err := s.Append(ctx, row("txn-0000000000000000002", "txn-0000000000000000001")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.Get(ctx, "txn-0000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusActive, got.Status, "supersede must roll back")

	got, err = store.Get(ctx, "txn-0000000000000000002")
	require.NoError(t, err)
	assert.Nil(t, got, "appended row must roll back")
}

func TestStore_WithTx_CommitsOnSuccess(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, row("txn-0000000000000000001", "")))

	err := store.WithTx(ctx, func(s ledger.Store) error {
		if err := s.UpdateStatus(ctx, "txn-0000000000000000001",
			ledger.StatusActive, ledger.StatusSuperseded); err != nil {
			return err
		}
		return s.Append(ctx, row("txn-0000000000000000002", "txn-0000000000000000001"))
	})
	require.NoError(t, err)

	all, err := store.List(ctx, ledger.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

// =============================================================================
// PAYMENTS
// =============================================================================

func TestStore_Payments_RoundTripSortedByDate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	later := time.Date(2025, time.June, 10, 18, 0, 0, 0, time.UTC)
	earlier := later.AddDate(0, 0, -7)

	for _, paidAt := range []time.Time{later, earlier} {
		p, err := balance.NewPaymentRecord("Anna", decimal.RequireFromString("40"), paidAt, "cash")
		require.NoError(t, err)
		require.NoError(t, store.AppendPayment(ctx, p))
	}

	payments, err := store.PaymentsByStaff(ctx, "Anna")
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.True(t, payments[0].PaidAt.Before(payments[1].PaidAt))

	other, err := store.PaymentsByStaff(ctx, "Mali")
	require.NoError(t, err)
	assert.Empty(t, other)
}
