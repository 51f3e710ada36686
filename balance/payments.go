/*
payments.go - Append-only staff fee-payment log

PURPOSE:
  Records money actually paid out to staff against the fees they earned.
  Like the session ledger, the log is append-only: entries are never edited
  or deleted, and the running balance is always derived by summing.

SEE ALSO:
  - balance.go: Consumes this log to compute outstanding balances
*/
package balance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// PAYMENT RECORD
// =============================================================================

// PaymentRecord is one payout to a staff member.
type PaymentRecord struct {
	ID        string
	StaffName string
	Amount    decimal.Decimal
	PaidAt    time.Time
	Method    string // optional
}

// NewPaymentRecord builds a validated record with a fresh ID.
func NewPaymentRecord(staffName string, amount decimal.Decimal, paidAt time.Time, method string) (PaymentRecord, error) {
	if strings.TrimSpace(staffName) == "" {
		return PaymentRecord{}, fmt.Errorf("staffName is required")
	}
	if !amount.IsPositive() {
		return PaymentRecord{}, fmt.Errorf("payment amount must be positive")
	}
	if paidAt.IsZero() {
		return PaymentRecord{}, fmt.Errorf("payment date is required")
	}
	return PaymentRecord{
		ID:        uuid.NewString(),
		StaffName: staffName,
		Amount:    amount,
		PaidAt:    paidAt,
		Method:    method,
	}, nil
}

// =============================================================================
// PAYMENT LOG - Append-only persistence
// =============================================================================

// PaymentLog persists payment records. No update, no delete.
type PaymentLog interface {
	AppendPayment(ctx context.Context, p PaymentRecord) error

	// PaymentsByStaff returns all payments for one staff member,
	// chronologically.
	PaymentsByStaff(ctx context.Context, staffName string) ([]PaymentRecord, error)
}
