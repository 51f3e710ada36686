/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific parsing (RFC3339 times, decimal strings)
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Monetary amounts cross the wire as decimal strings ("45.00"), never as
  floats. Parsing happens in the handlers via shopspring/decimal.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: Domain model these map from
*/
package api

import (
	"time"

	"github.com/warp/studio-ledger/balance"
	"github.com/warp/studio-ledger/ledger"
	"github.com/warp/studio-ledger/pricing"
	"github.com/warp/studio-ledger/roster"
)

// =============================================================================
// TRANSACTIONS
// =============================================================================

// TransactionDTO represents a ledger row in API responses.
type TransactionDTO struct {
	ID              string `json:"id"`
	StaffName       string `json:"staff_name"`
	ServiceName     string `json:"service_name"`
	Location        string `json:"location"`
	DurationMinutes int    `json:"duration_minutes"`
	PaymentMethod   string `json:"payment_method"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	CustomerContact string `json:"customer_contact,omitempty"`
	Price           string `json:"price"`
	StaffFee        string `json:"staff_fee"`
	Status          string `json:"status"`
	CorrectedFromID string `json:"corrected_from_id,omitempty"`
	CreatedAt       string `json:"created_at"`
}

func toTransactionDTO(tx ledger.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:              string(tx.ID),
		StaffName:       tx.StaffName,
		ServiceName:     tx.ServiceName,
		Location:        tx.Location,
		DurationMinutes: tx.DurationMinutes,
		PaymentMethod:   tx.PaymentMethod,
		StartTime:       tx.StartTime.Format(time.RFC3339),
		EndTime:         tx.EndTime.Format(time.RFC3339),
		CustomerContact: tx.CustomerContact,
		Price:           tx.Price.String(),
		StaffFee:        tx.StaffFee.String(),
		Status:          string(tx.Status),
		CorrectedFromID: string(tx.CorrectedFromID),
		CreatedAt:       tx.CreatedAt.Format(time.RFC3339),
	}
}

func toTransactionDTOs(txs []ledger.Transaction) []TransactionDTO {
	out := make([]TransactionDTO, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionDTO(tx))
	}
	return out
}

// CreateTransactionRequest is the request to book a session.
// Price and fee are NOT accepted here; they come from the pricing catalog.
type CreateTransactionRequest struct {
	StaffName       string `json:"staff_name"`
	ServiceName     string `json:"service_name"`
	Location        string `json:"location"`
	DurationMinutes int    `json:"duration_minutes"`
	PaymentMethod   string `json:"payment_method"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	CustomerContact string `json:"customer_contact"`
}

// CorrectTransactionRequest carries the fields to change on a booking.
// Absent fields keep the original's value.
type CorrectTransactionRequest struct {
	StaffName       *string `json:"staff_name"`
	ServiceName     *string `json:"service_name"`
	Location        *string `json:"location"`
	DurationMinutes *int    `json:"duration_minutes"`
	PaymentMethod   *string `json:"payment_method"`
	StartTime       *string `json:"start_time"`
	EndTime         *string `json:"end_time"`
	CustomerContact *string `json:"customer_contact"`
}

// =============================================================================
// BALANCES AND PAYMENTS
// =============================================================================

// StaffBalanceDTO is the computed financial position for one staff member.
type StaffBalanceDTO struct {
	StaffName          string `json:"staff_name"`
	TotalFeesEarned    string `json:"total_fees_earned"`
	TotalFeesPaid      string `json:"total_fees_paid"`
	OutstandingBalance string `json:"outstanding_balance"`
	ThisWeekSessions   int    `json:"this_week_sessions"`
	ThisWeekFees       string `json:"this_week_fees"`
	LastPaymentDate    string `json:"last_payment_date,omitempty"`
	LastPaymentAmount  string `json:"last_payment_amount"`
	PaymentStatus      string `json:"payment_status"`
}

func toStaffBalanceDTO(b balance.StaffBalance) StaffBalanceDTO {
	dto := StaffBalanceDTO{
		StaffName:          b.StaffName,
		TotalFeesEarned:    b.TotalFeesEarned.String(),
		TotalFeesPaid:      b.TotalFeesPaid.String(),
		OutstandingBalance: b.OutstandingBalance.String(),
		ThisWeekSessions:   b.ThisWeekSessions,
		ThisWeekFees:       b.ThisWeekFees.String(),
		LastPaymentAmount:  b.LastPaymentAmount.String(),
		PaymentStatus:      string(b.PaymentStatus),
	}
	if b.LastPaymentDate != nil {
		dto.LastPaymentDate = b.LastPaymentDate.Format(time.RFC3339)
	}
	return dto
}

// RecordPaymentRequest logs a payout to a staff member.
type RecordPaymentRequest struct {
	StaffName string `json:"staff_name"`
	Amount    string `json:"amount"`
	PaidAt    string `json:"paid_at"`
	Method    string `json:"method"`
}

// PaymentDTO represents a payout row in API responses.
type PaymentDTO struct {
	ID        string `json:"id"`
	StaffName string `json:"staff_name"`
	Amount    string `json:"amount"`
	PaidAt    string `json:"paid_at"`
	Method    string `json:"method"`
}

func toPaymentDTO(p balance.PaymentRecord) PaymentDTO {
	return PaymentDTO{
		ID:        p.ID,
		StaffName: p.StaffName,
		Amount:    p.Amount.String(),
		PaidAt:    p.PaidAt.Format(time.RFC3339),
		Method:    p.Method,
	}
}

// =============================================================================
// PRICING
// =============================================================================

// PricingRuleDTO represents a catalog entry in API responses.
type PricingRuleDTO struct {
	ID              string `json:"id"`
	Location        string `json:"location"`
	ServiceName     string `json:"service_name"`
	DurationMinutes int    `json:"duration_minutes"`
	Price           string `json:"price"`
	StaffFee        string `json:"staff_fee"`
}

func toPricingRuleDTO(r pricing.Rule) PricingRuleDTO {
	return PricingRuleDTO{
		ID:              r.ID,
		Location:        r.Location,
		ServiceName:     r.ServiceName,
		DurationMinutes: r.DurationMinutes,
		Price:           r.Price.String(),
		StaffFee:        r.StaffFee.String(),
	}
}

// UpsertPricingRuleRequest creates or replaces a catalog entry.
type UpsertPricingRuleRequest struct {
	Location        string `json:"location"`
	ServiceName     string `json:"service_name"`
	DurationMinutes int    `json:"duration_minutes"`
	Price           string `json:"price"`
	StaffFee        string `json:"staff_fee"`
}

// =============================================================================
// ROSTER
// =============================================================================

// RosterEntryDTO is one staff member on today's roster, with the busy status
// derived at response time.
type RosterEntryDTO struct {
	Position  int    `json:"position"`
	StaffName string `json:"staff_name"`
	Status    string `json:"status"`
	BusyUntil string `json:"busy_until,omitempty"`
}

func toRosterEntryDTO(e roster.Entry, now time.Time) RosterEntryDTO {
	dto := RosterEntryDTO{
		Position:  e.Position,
		StaffName: e.StaffName,
		Status:    string(e.Status(now)),
	}
	if !e.BusyUntil.IsZero() {
		dto.BusyUntil = e.BusyUntil.Format(time.RFC3339)
	}
	return dto
}

// AddRosterEntryRequest puts a staff member on today's roster.
type AddRosterEntryRequest struct {
	StaffName string `json:"staff_name"`
}

// ReorderRosterRequest swaps two positions.
type ReorderRosterRequest struct {
	PositionA int `json:"position_a"`
	PositionB int `json:"position_b"`
}

// SetBusyRequest marks a roster entry busy until a time.
type SetBusyRequest struct {
	Until string `json:"until"`
}

// =============================================================================
// STAFF
// =============================================================================

// StaffDTO represents a staff directory entry.
type StaffDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone,omitempty"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateStaffRequest adds a staff member to the directory.
type CreateStaffRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
