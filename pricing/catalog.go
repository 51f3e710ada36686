/*
Package pricing provides the catalog that prices booked sessions.

PURPOSE:
  Every session is priced at booking time from a catalog of rules keyed by
  (location, service, duration). The resolved price and staff fee are copied
  onto the booking and never recomputed - editing a rule later must not
  retroactively change revenue that was already booked.

KEY CONCEPTS:
  Rule:    One catalog row: (location, service, duration) -> (price, staff fee)
  Quote:   The resolved pair returned to the ledger at booking time
  Catalog: Lookup plus the admin-facing rule management (upsert/delete/list)

LOOKUP CONTRACT:
  Resolve requires an EXACT match on all three keys. A missing rule is an
  error (PricingNotFoundError), never a silent {0, 0} quote. A zero-priced
  session is unnoticed lost revenue; the caller must see the gap and fix
  the catalog.

PRECISION:
  Uses decimal.Decimal for money to avoid floating-point errors.

SEE ALSO:
  - ledger/ledger.go: Calls Resolve during Append
  - store/sqlite/sqlite.go: Persistent RuleStore implementation
*/
package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// RULES AND QUOTES
// =============================================================================

// Rule maps (location, service, duration) to a price and a staff fee.
// The key triple is unique within the catalog.
type Rule struct {
	ID              string
	Location        string
	ServiceName     string
	DurationMinutes int
	Price           decimal.Decimal
	StaffFee        decimal.Decimal
}

// Quote is the resolved price/fee pair for one session.
type Quote struct {
	Price    decimal.Decimal
	StaffFee decimal.Decimal
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrPricingNotFound is returned when no rule matches the lookup triple.
	ErrPricingNotFound = errors.New("no pricing rule matches")

	// ErrInvalidRule is returned when a rule is malformed (empty keys,
	// non-positive duration, negative money).
	ErrInvalidRule = errors.New("invalid pricing rule")
)

// PricingNotFoundError carries the lookup keys that had no matching rule.
type PricingNotFoundError struct {
	Location        string
	ServiceName     string
	DurationMinutes int
}

func (e *PricingNotFoundError) Error() string {
	return fmt.Sprintf("no pricing rule for %s / %s / %d min",
		e.Location, e.ServiceName, e.DurationMinutes)
}

func (e *PricingNotFoundError) Unwrap() error { return ErrPricingNotFound }

// =============================================================================
// RULE STORE - Persistence interface
// =============================================================================

// RuleStore persists catalog rules. Implemented by store/sqlite and
// store/memory.
type RuleStore interface {
	// SaveRule inserts or updates a rule. The (location, service, duration)
	// triple is the logical key; saving an existing triple replaces its
	// price and fee.
	SaveRule(ctx context.Context, rule Rule) error

	// FindRule returns the rule for an exact key triple, or nil if absent.
	FindRule(ctx context.Context, location, serviceName string, durationMinutes int) (*Rule, error)

	// ListRules returns all rules.
	ListRules(ctx context.Context) ([]Rule, error)

	// DeleteRule removes a rule by ID.
	DeleteRule(ctx context.Context, id string) error
}

// =============================================================================
// CATALOG
// =============================================================================

// Catalog resolves session prices and manages the rule set.
// Resolve is a pure lookup with no side effects.
type Catalog struct {
	store RuleStore
}

func NewCatalog(store RuleStore) *Catalog {
	return &Catalog{store: store}
}

// Resolve returns the price and staff fee for an exact (location, service,
// duration) match. Returns PricingNotFoundError when no rule matches.
func (c *Catalog) Resolve(ctx context.Context, location, serviceName string, durationMinutes int) (Quote, error) {
	rule, err := c.store.FindRule(ctx, location, serviceName, durationMinutes)
	if err != nil {
		return Quote{}, fmt.Errorf("pricing lookup failed: %w", err)
	}
	if rule == nil {
		return Quote{}, &PricingNotFoundError{
			Location:        location,
			ServiceName:     serviceName,
			DurationMinutes: durationMinutes,
		}
	}
	return Quote{Price: rule.Price, StaffFee: rule.StaffFee}, nil
}

// Upsert validates and saves a rule, assigning an ID when missing.
func (c *Catalog) Upsert(ctx context.Context, rule Rule) (Rule, error) {
	rule.Location = strings.TrimSpace(rule.Location)
	rule.ServiceName = strings.TrimSpace(rule.ServiceName)

	if rule.Location == "" || rule.ServiceName == "" {
		return Rule{}, fmt.Errorf("%w: location and service are required", ErrInvalidRule)
	}
	if rule.DurationMinutes <= 0 {
		return Rule{}, fmt.Errorf("%w: duration must be positive", ErrInvalidRule)
	}
	if rule.Price.IsNegative() || rule.StaffFee.IsNegative() {
		return Rule{}, fmt.Errorf("%w: price and staff fee cannot be negative", ErrInvalidRule)
	}
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}

	if err := c.store.SaveRule(ctx, rule); err != nil {
		return Rule{}, err
	}
	return rule, nil
}

// Delete removes a rule by ID.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	return c.store.DeleteRule(ctx, id)
}

// Rules returns the full rule set.
func (c *Catalog) Rules(ctx context.Context) ([]Rule, error) {
	return c.store.ListRules(ctx)
}
