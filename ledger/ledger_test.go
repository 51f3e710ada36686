package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/studio-ledger/ledger"
	"github.com/warp/studio-ledger/pricing"
	"github.com/warp/studio-ledger/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLedger(t *testing.T) (*ledger.TransactionLedger, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	catalog := pricing.NewCatalog(store)
	ctx := context.Background()

	rules := []pricing.Rule{
		{Location: "Downtown", ServiceName: "Thai Massage", DurationMinutes: 60, Price: dec("250"), StaffFee: dec("100")},
		{Location: "Downtown", ServiceName: "Thai Massage", DurationMinutes: 90, Price: dec("375"), StaffFee: dec("150")},
		{Location: "Downtown", ServiceName: "Oil Massage", DurationMinutes: 60, Price: dec("280"), StaffFee: dec("110")},
	}
	for _, rule := range rules {
		_, err := catalog.Upsert(ctx, rule)
		require.NoError(t, err)
	}

	return ledger.New(store, catalog), store
}

func booking(staffName string, durationMinutes int, start time.Time) ledger.Input {
	return ledger.Input{
		StaffName:       staffName,
		ServiceName:     "Thai Massage",
		Location:        "Downtown",
		DurationMinutes: durationMinutes,
		PaymentMethod:   "cash",
		StartTime:       start,
		EndTime:         start.Add(time.Duration(durationMinutes) * time.Minute),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// =============================================================================
// APPEND TESTS
// =============================================================================

func TestLedger_Append_ResolvesPriceFromCatalog(t *testing.T) {
	// GIVEN: A catalog rule for Downtown / Thai Massage / 60min
	// WHEN: Booking that exact combination
	// THEN: The stored row carries the catalog's price and fee

	l, _ := newTestLedger(t)
	ctx := context.Background()

	start := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	tx, err := l.Append(ctx, booking("Anna", 60, start))
	require.NoError(t, err)

	assert.True(t, tx.Price.Equal(dec("250")), "price should come from the catalog")
	assert.True(t, tx.StaffFee.Equal(dec("100")), "fee should come from the catalog")
	assert.Equal(t, ledger.StatusActive, tx.Status)
	assert.Empty(t, tx.CorrectedFromID)
	assert.Contains(t, string(tx.ID), "txn-")
}

func TestLedger_Append_NoPricingRule_Rejected(t *testing.T) {
	// GIVEN: No rule for a 45-minute Thai Massage
	// WHEN: Booking it
	// THEN: The booking fails loudly instead of defaulting to zero,
	//       and nothing is appended

	l, _ := newTestLedger(t)
	ctx := context.Background()

	start := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	_, err := l.Append(ctx, booking("Anna", 45, start))

	assert.Error(t, err)
	assert.True(t, errors.Is(err, pricing.ErrPricingNotFound))

	var pnf *pricing.PricingNotFoundError
	require.ErrorAs(t, err, &pnf)
	assert.Equal(t, 45, pnf.DurationMinutes)

	all, err := l.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "failed booking must not reach the ledger")
}

func TestLedger_Append_InvalidInput_Rejected(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	start := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)

	in := booking("", 60, start)
	_, err := l.Append(ctx, in)
	assert.True(t, errors.Is(err, ledger.ErrValidation), "missing staff name")

	in = booking("Anna", 60, start)
	in.EndTime = in.StartTime
	_, err = l.Append(ctx, in)
	assert.True(t, errors.Is(err, ledger.ErrValidation), "end must be after start")

	in = booking("Anna", 60, start)
	in.EndTime = in.StartTime.Add(26 * time.Hour)
	_, err = l.Append(ctx, in)
	assert.True(t, errors.Is(err, ledger.ErrValidation), "session must end the same day")
}

func TestLedger_Append_IDsAreMonotonic(t *testing.T) {
	// GIVEN: A fixed clock that never advances
	// WHEN: Appending several bookings
	// THEN: IDs still come out strictly increasing (sequence bump)

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	catalog := pricing.NewCatalog(store)
	ctx := context.Background()
	_, err = catalog.Upsert(ctx, pricing.Rule{
		Location: "Downtown", ServiceName: "Thai Massage", DurationMinutes: 60,
		Price: dec("250"), StaffFee: dec("100"),
	})
	require.NoError(t, err)

	frozen := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)
	l := ledger.New(store, catalog, ledger.WithClock(func() time.Time { return frozen }))

	start := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	var prev ledger.TransactionID
	for i := 0; i < 5; i++ {
		tx, err := l.Append(ctx, booking("Anna", 60, start))
		require.NoError(t, err)
		if prev != "" {
			assert.Greater(t, string(tx.ID), string(prev), "IDs must increase")
		}
		prev = tx.ID
	}
}

func TestLedger_Append_ConcurrentIDsAreUnique(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	start := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)

	const n = 20
	ids := make(chan ledger.TransactionID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tx, err := l.Append(ctx, booking(fmt.Sprintf("staff-%d", i), 60, start))
			if err == nil {
				ids <- tx.ID
			}
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[ledger.TransactionID]bool)
	count := 0
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
		count++
	}
	assert.Equal(t, n, count, "all appends should succeed")
}

// =============================================================================
// STATUS TRANSITION TESTS
// =============================================================================

func TestLedger_Void_ActiveRow(t *testing.T) {
	// GIVEN: An ACTIVE booking
	// WHEN: Voiding it
	// THEN: The row stays in the ledger as VOID

	l, _ := newTestLedger(t)
	ctx := context.Background()

	tx, err := l.Append(ctx, booking("Anna", 60, time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	require.NoError(t, l.Void(ctx, tx.ID))

	got, err := l.GetByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusVoid, got.Status)

	active, err := l.GetActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestLedger_Void_Twice_Conflicts(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	tx, err := l.Append(ctx, booking("Anna", 60, time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	require.NoError(t, l.Void(ctx, tx.ID))
	err = l.Void(ctx, tx.ID)

	assert.True(t, ledger.IsConflict(err), "second void should conflict")

	var conflict *ledger.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, ledger.StatusVoid, conflict.Status)
}

func TestLedger_Void_UnknownID_NotFound(t *testing.T) {
	l, _ := newTestLedger(t)

	err := l.Void(context.Background(), "txn-0000000000000000000")
	assert.True(t, ledger.IsNotFound(err))
}

// =============================================================================
// READ TESTS
// =============================================================================

func TestLedger_List_Filters(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	monday := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	tuesday := monday.AddDate(0, 0, 1)

	txAnna, err := l.Append(ctx, booking("Anna", 60, monday))
	require.NoError(t, err)
	_, err = l.Append(ctx, booking("Mali", 90, tuesday))
	require.NoError(t, err)

	byStaff, err := l.List(ctx, ledger.Filter{StaffName: "Anna"})
	require.NoError(t, err)
	require.Len(t, byStaff, 1)
	assert.Equal(t, txAnna.ID, byStaff[0].ID)

	byWindow, err := l.List(ctx, ledger.Filter{From: tuesday, To: tuesday.Add(time.Hour)})
	require.NoError(t, err)
	require.Len(t, byWindow, 1)
	assert.Equal(t, "Mali", byWindow[0].StaffName)

	require.NoError(t, l.Void(ctx, txAnna.ID))
	voided, err := l.List(ctx, ledger.Filter{Status: ledger.StatusVoid})
	require.NoError(t, err)
	require.Len(t, voided, 1)
	assert.Equal(t, txAnna.ID, voided[0].ID)
}

func TestLedger_GetByID_Unknown_NotFound(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.GetByID(context.Background(), "txn-9999999999999999999")
	assert.True(t, ledger.IsNotFound(err))
}
