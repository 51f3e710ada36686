/*
errors.go - Centralized error types for the ledger

PURPOSE:
  All ledger error types in one place. Sentinels support errors.Is;
  structured types carry the context a caller needs to act.

ERROR CATEGORIES:
  1. Validation errors - Malformed input, caller's fault, never retried
  2. Not-found errors  - Unknown transaction ID
  3. Conflict errors   - Status transition attempted on a non-ACTIVE row
                         (lost-update race or duplicate submission; caller
                         should re-fetch and retry with fresh data)

  Pricing lookup failures live in the pricing package
  (pricing.ErrPricingNotFound) and propagate through Append unchanged.

All errors are terminal per call: the ledger does not swallow or retry
internally, and any partial write is rolled back.

SEE ALSO:
  - ledger.go, correction.go: Producers of these errors
  - api/handlers.go: Maps them to HTTP statuses
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/warp/studio-ledger/pricing"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when a booking input is missing or malformed.
	ErrValidation = errors.New("invalid input")

	// ErrTransactionNotFound is returned when the referenced ID is unknown.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrNotActive is returned when a supersede/void targets a row that is
	// already SUPERSEDED or VOID. This rejects double-correction races.
	ErrNotActive = errors.New("transaction is not active")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s %s", e.Field, e.Reason) }
func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError carries the ID that was looked up.
type NotFoundError struct {
	ID TransactionID
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("transaction %s not found", e.ID) }
func (e *NotFoundError) Unwrap() error { return ErrTransactionNotFound }

// ConflictError carries the row's current status so the caller can see what
// it lost the race to.
type ConflictError struct {
	ID     TransactionID
	Status Status
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("transaction %s is %s, not %s", e.ID, e.Status, StatusActive)
}

func (e *ConflictError) Unwrap() error { return ErrNotActive }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is the caller's fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotActive) ||
		errors.Is(err, pricing.ErrPricingNotFound) ||
		errors.Is(err, pricing.ErrInvalidRule)
}

// IsNotFound returns true if the error indicates a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTransactionNotFound)
}

// IsConflict returns true if the error indicates a lost-update race.
func IsConflict(err error) bool {
	return errors.Is(err, ErrNotActive)
}
