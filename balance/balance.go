/*
Package balance derives each staff member's financial position from the
session ledger and the payment log.

PURPOSE:
  Answers "how much does the studio owe this person?" There is no stored
  balance field that can drift out of sync - everything here is computed by
  replaying the two append-only logs.

KEY INSIGHT:
  Only ACTIVE sessions count toward earned fees. A corrected booking
  contributes exactly once (the replacement), never twice, because the
  original is SUPERSEDED and excluded. Voided rows contribute nothing.

BALANCE COMPONENTS:
  TotalFeesEarned:  sum of StaffFee over ACTIVE sessions
  TotalFeesPaid:    sum over the payment log
  Outstanding:      earned - paid (always, by construction)
  ThisWeek*:        ACTIVE sessions with StartTime in [start of week, now]
  PaymentStatus:    never / current / overdue, driven by Config

PAYMENT STATUS:
  "never"   no payment on record and money is owed
  "current" nothing owed, or the last payment is within the grace period
  "overdue" otherwise
  The grace period is configuration injected at construction, not a
  hardcoded constant and not a global.

SEE ALSO:
  - ledger: Source of session rows
  - payments.go: Source of payout rows
*/
package balance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/studio-ledger/ledger"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config tunes payment-status classification.
type Config struct {
	// GracePeriod is how long after the last payment a staff member with an
	// outstanding balance still counts as "current".
	GracePeriod time.Duration
}

// DefaultConfig uses a 7-day grace period.
func DefaultConfig() Config {
	return Config{GracePeriod: 7 * 24 * time.Hour}
}

// =============================================================================
// STAFF BALANCE - Derived, never stored
// =============================================================================

type PaymentStatus string

const (
	PaymentNever   PaymentStatus = "never"
	PaymentCurrent PaymentStatus = "current"
	PaymentOverdue PaymentStatus = "overdue"
)

// StaffBalance is the computed position for one staff member.
type StaffBalance struct {
	StaffName string

	TotalFeesEarned    decimal.Decimal
	TotalFeesPaid      decimal.Decimal
	OutstandingBalance decimal.Decimal

	ThisWeekSessions int
	ThisWeekFees     decimal.Decimal

	LastPaymentDate   *time.Time
	LastPaymentAmount decimal.Decimal

	PaymentStatus PaymentStatus
}

// =============================================================================
// COMPUTATION - Pure function of its inputs
// =============================================================================

// Compute derives a staff balance from transaction and payment snapshots.
// Pure: no I/O, no clock access beyond the supplied now.
func Compute(txs []ledger.Transaction, payments []PaymentRecord, staffName string, now time.Time, cfg Config) StaffBalance {
	b := StaffBalance{
		StaffName:          staffName,
		TotalFeesEarned:    decimal.Zero,
		TotalFeesPaid:      decimal.Zero,
		OutstandingBalance: decimal.Zero,
		ThisWeekFees:       decimal.Zero,
		LastPaymentAmount:  decimal.Zero,
	}

	weekStart := StartOfWeek(now)

	for _, tx := range txs {
		// SUPERSEDED and VOID rows are history, not revenue.
		if tx.StaffName != staffName || tx.Status != ledger.StatusActive {
			continue
		}
		b.TotalFeesEarned = b.TotalFeesEarned.Add(tx.StaffFee)

		if !tx.StartTime.Before(weekStart) && !tx.StartTime.After(now) {
			b.ThisWeekSessions++
			b.ThisWeekFees = b.ThisWeekFees.Add(tx.StaffFee)
		}
	}

	for _, p := range payments {
		if p.StaffName != staffName {
			continue
		}
		b.TotalFeesPaid = b.TotalFeesPaid.Add(p.Amount)
		if b.LastPaymentDate == nil || p.PaidAt.After(*b.LastPaymentDate) {
			paidAt := p.PaidAt
			b.LastPaymentDate = &paidAt
			b.LastPaymentAmount = p.Amount
		}
	}

	b.OutstandingBalance = b.TotalFeesEarned.Sub(b.TotalFeesPaid)
	b.PaymentStatus = classify(b, now, cfg)
	return b
}

func classify(b StaffBalance, now time.Time, cfg Config) PaymentStatus {
	owesNothing := !b.OutstandingBalance.IsPositive()

	if b.LastPaymentDate == nil {
		if owesNothing {
			return PaymentCurrent
		}
		return PaymentNever
	}
	if owesNothing {
		return PaymentCurrent
	}
	if now.Sub(*b.LastPaymentDate) <= cfg.GracePeriod {
		return PaymentCurrent
	}
	return PaymentOverdue
}

// StartOfWeek returns Monday 00:00 of now's week, in now's location.
func StartOfWeek(now time.Time) time.Time {
	daysSinceMonday := (int(now.Weekday()) + 6) % 7
	y, m, d := now.AddDate(0, 0, -daysSinceMonday).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// =============================================================================
// CALCULATOR - Pulls snapshots and delegates to Compute
// =============================================================================

// Calculator reads the two logs and computes balances on demand.
// It never mutates either log.
type Calculator struct {
	Ledger   *ledger.TransactionLedger
	Payments PaymentLog
	Config   Config
	Clock    func() time.Time
}

func NewCalculator(l *ledger.TransactionLedger, payments PaymentLog, cfg Config) *Calculator {
	return &Calculator{
		Ledger:   l,
		Payments: payments,
		Config:   cfg,
		Clock:    time.Now,
	}
}

// StaffBalance computes the current position for one staff member.
func (c *Calculator) StaffBalance(ctx context.Context, staffName string) (StaffBalance, error) {
	txs, err := c.Ledger.List(ctx, ledger.Filter{StaffName: staffName})
	if err != nil {
		return StaffBalance{}, err
	}
	payments, err := c.Payments.PaymentsByStaff(ctx, staffName)
	if err != nil {
		return StaffBalance{}, err
	}
	return Compute(txs, payments, staffName, c.Clock(), c.Config), nil
}
