/*
Package ledger provides the append/correct transaction ledger at the heart
of the studio's bookkeeping.

PURPOSE:
  Records paid service sessions performed by staff. Rows are effectively
  immutable: once written, only the status of a row ever changes, and only
  along ACTIVE -> SUPERSEDED (replaced by a correction) or ACTIVE -> VOID
  (standalone removal). Content is never edited in place - corrections
  create a successor row linked back via CorrectedFromID, so the full
  history survives for audit.

KEY CONCEPTS IN THIS FILE (types.go):
  Input:       The captured booking fields as submitted by the caller
  Transaction: A stored ledger row with resolved price/fee and a status
  Update:      A sparse patch applied during correction
  Status:      ACTIVE | SUPERSEDED | VOID

CORRECTION CHAINS:
  Repeated corrections form a singly-linked chain via CorrectedFromID.
  Exactly one row per chain is ACTIVE; the rest are SUPERSEDED. Chains do
  not branch: two rows may not claim the same CorrectedFromID.

DESIGN PRINCIPLES:
  1. Price fixed at booking: Price/StaffFee are resolved from the catalog
     when the row is created and never recomputed.
  2. Precision: decimal.Decimal for money.
  3. Status as data: a typed status plus an optional link, never a
     formatted string a caller would have to parse.

SEE ALSO:
  - ledger.go: Append and status transitions
  - correction.go: The atomic supersede+append operation
  - errors.go: Error taxonomy
*/
package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS AND STATUS
// =============================================================================

type TransactionID string

type Status string

const (
	StatusActive     Status = "ACTIVE"
	StatusSuperseded Status = "SUPERSEDED"
	StatusVoid       Status = "VOID"
)

// =============================================================================
// INPUT - Captured booking fields
// =============================================================================

// Input holds the fields captured from the caller when a session is booked.
// All fields except CustomerContact are required.
type Input struct {
	StaffName       string
	ServiceName     string
	Location        string
	DurationMinutes int
	PaymentMethod   string
	StartTime       time.Time
	EndTime         time.Time
	CustomerContact string
}

// Validate checks the required-field and time-ordering rules.
// EndTime must be strictly after StartTime and on the same calendar day.
func (in Input) Validate() error {
	required := []struct {
		field, value string
	}{
		{"staffName", in.StaffName},
		{"serviceName", in.ServiceName},
		{"location", in.Location},
		{"paymentMethod", in.PaymentMethod},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Field: r.field, Reason: "is required"}
		}
	}
	if in.DurationMinutes <= 0 {
		return &ValidationError{Field: "durationMinutes", Reason: "must be positive"}
	}
	if in.StartTime.IsZero() {
		return &ValidationError{Field: "startTime", Reason: "is required"}
	}
	if in.EndTime.IsZero() {
		return &ValidationError{Field: "endTime", Reason: "is required"}
	}
	if !in.EndTime.After(in.StartTime) {
		return &ValidationError{Field: "endTime", Reason: "must be after startTime"}
	}
	if !sameDay(in.StartTime, in.EndTime) {
		return &ValidationError{Field: "endTime", Reason: "must be on the same day as startTime"}
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// =============================================================================
// TRANSACTION - Stored ledger row
// =============================================================================

// Transaction is one stored session. Content is immutable after creation;
// only Status transitions (see ledger.go).
type Transaction struct {
	ID TransactionID

	Input

	// Resolved from the pricing catalog at creation time. Never recomputed:
	// a later catalog edit must not change booked revenue.
	Price    decimal.Decimal
	StaffFee decimal.Decimal

	Status Status

	// CorrectedFromID links a correction to the row it replaces.
	// Empty for originals.
	CorrectedFromID TransactionID

	CreatedAt time.Time
}

// IsCorrection reports whether this row replaced an earlier one.
func (t Transaction) IsCorrection() bool { return t.CorrectedFromID != "" }

// =============================================================================
// UPDATE - Sparse correction patch
// =============================================================================

// Update carries the fields a correction changes. Nil fields keep the
// original's value.
type Update struct {
	StaffName       *string
	ServiceName     *string
	Location        *string
	DurationMinutes *int
	PaymentMethod   *string
	StartTime       *time.Time
	EndTime         *time.Time
	CustomerContact *string
}

// Apply merges the patch over a copy of the original input.
func (u Update) Apply(in Input) Input {
	if u.StaffName != nil {
		in.StaffName = *u.StaffName
	}
	if u.ServiceName != nil {
		in.ServiceName = *u.ServiceName
	}
	if u.Location != nil {
		in.Location = *u.Location
	}
	if u.DurationMinutes != nil {
		in.DurationMinutes = *u.DurationMinutes
	}
	if u.PaymentMethod != nil {
		in.PaymentMethod = *u.PaymentMethod
	}
	if u.StartTime != nil {
		in.StartTime = *u.StartTime
	}
	if u.EndTime != nil {
		in.EndTime = *u.EndTime
	}
	if u.CustomerContact != nil {
		in.CustomerContact = *u.CustomerContact
	}
	return in
}
