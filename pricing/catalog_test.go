package pricing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/studio-ledger/pricing"
	"github.com/warp/studio-ledger/store/memory"
)

func newTestCatalog(t *testing.T) *pricing.Catalog {
	catalog := pricing.NewCatalog(memory.New())

	_, err := catalog.Upsert(context.Background(), pricing.Rule{
		Location:        "Downtown",
		ServiceName:     "Thai Massage",
		DurationMinutes: 60,
		Price:           decimal.RequireFromString("250"),
		StaffFee:        decimal.RequireFromString("100"),
	})
	require.NoError(t, err)
	return catalog
}

func TestCatalog_Resolve_ExactMatch(t *testing.T) {
	catalog := newTestCatalog(t)

	quote, err := catalog.Resolve(context.Background(), "Downtown", "Thai Massage", 60)
	require.NoError(t, err)
	assert.True(t, quote.Price.Equal(decimal.RequireFromString("250")))
	assert.True(t, quote.StaffFee.Equal(decimal.RequireFromString("100")))
}

func TestCatalog_Resolve_NoMatch_FailsLoudly(t *testing.T) {
	// GIVEN: Only a 60-minute Downtown rule exists
	// WHEN: Resolving combinations that differ in any key component
	// THEN: PricingNotFoundError every time; never a silent zero quote

	catalog := newTestCatalog(t)
	ctx := context.Background()

	cases := []struct {
		name            string
		location        string
		service         string
		durationMinutes int
	}{
		{"wrong duration", "Downtown", "Thai Massage", 90},
		{"wrong location", "Riverside", "Thai Massage", 60},
		{"wrong service", "Downtown", "Oil Massage", 60},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := catalog.Resolve(ctx, tc.location, tc.service, tc.durationMinutes)
			require.Error(t, err)
			assert.True(t, errors.Is(err, pricing.ErrPricingNotFound))

			var pnf *pricing.PricingNotFoundError
			require.ErrorAs(t, err, &pnf)
			assert.Equal(t, tc.location, pnf.Location)
			assert.Equal(t, tc.service, pnf.ServiceName)
			assert.Equal(t, tc.durationMinutes, pnf.DurationMinutes)
		})
	}
}

func TestCatalog_Upsert_Validation(t *testing.T) {
	catalog := pricing.NewCatalog(memory.New())
	ctx := context.Background()

	_, err := catalog.Upsert(ctx, pricing.Rule{
		ServiceName: "Thai Massage", DurationMinutes: 60,
	})
	assert.True(t, errors.Is(err, pricing.ErrInvalidRule), "missing location")

	_, err = catalog.Upsert(ctx, pricing.Rule{
		Location: "Downtown", ServiceName: "Thai Massage", DurationMinutes: 0,
	})
	assert.True(t, errors.Is(err, pricing.ErrInvalidRule), "zero duration")

	_, err = catalog.Upsert(ctx, pricing.Rule{
		Location: "Downtown", ServiceName: "Thai Massage", DurationMinutes: 60,
		Price: decimal.RequireFromString("-1"),
	})
	assert.True(t, errors.Is(err, pricing.ErrInvalidRule), "negative price")
}

func TestCatalog_Upsert_ReplacesOnTriple(t *testing.T) {
	// GIVEN: An existing rule for Downtown / Thai Massage / 60
	// WHEN: Upserting the same triple with a new price
	// THEN: The rule is replaced, not duplicated, and keeps its ID

	catalog := newTestCatalog(t)
	ctx := context.Background()

	rules, err := catalog.Rules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	originalID := rules[0].ID

	_, err = catalog.Upsert(ctx, pricing.Rule{
		Location:        "Downtown",
		ServiceName:     "Thai Massage",
		DurationMinutes: 60,
		Price:           decimal.RequireFromString("260"),
		StaffFee:        decimal.RequireFromString("110"),
	})
	require.NoError(t, err)

	rules, err = catalog.Rules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, originalID, rules[0].ID)
	assert.True(t, rules[0].Price.Equal(decimal.RequireFromString("260")))

	quote, err := catalog.Resolve(ctx, "Downtown", "Thai Massage", 60)
	require.NoError(t, err)
	assert.True(t, quote.Price.Equal(decimal.RequireFromString("260")))
}

func TestCatalog_Delete_RemovesRule(t *testing.T) {
	catalog := newTestCatalog(t)
	ctx := context.Background()

	rules, err := catalog.Rules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)

	require.NoError(t, catalog.Delete(ctx, rules[0].ID))

	_, err = catalog.Resolve(ctx, "Downtown", "Thai Massage", 60)
	assert.True(t, errors.Is(err, pricing.ErrPricingNotFound))
}
