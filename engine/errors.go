/*
errors.go - Error taxonomy for the engine boundary

ERROR CATEGORIES:
  1. Invalid configuration - bad rates, unknown enums, end before start
  2. Invalid input - transaction after end date, query before start date
  3. State errors - writes against a closed account

The engine itself never returns these while building a Timeline: it
assumes validated input. They are raised by the Validate* helpers, which
the loan service, factory and API call at the boundary.

USAGE:
    if errors.Is(err, engine.ErrTransactionAfterEndDate) { ... }
    var verr *engine.ValidationError
    if errors.As(err, &verr) { log(verr.Field) }
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrTransactionAfterEndDate is returned when a transaction is dated
	// after the account's end date.
	ErrTransactionAfterEndDate = errors.New("transaction date is after the ICL end date")

	// ErrDateBeforeStart is returned when a query date precedes the start date.
	ErrDateBeforeStart = errors.New("date is before the ICL start date")

	// ErrNegativeAmount is returned when paid or received is negative.
	ErrNegativeAmount = errors.New("amount must not be negative")

	// ErrInvalidRate is returned for negative or out-of-range percentages.
	ErrInvalidRate = errors.New("invalid rate")

	// ErrInvalidPeriod is returned when the end date precedes the start date.
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	ErrMissingStartDate    = errors.New("start date is required")
	ErrUnknownInterestType = errors.New("unknown interest type")
	ErrUnknownFrequency    = errors.New("unknown frequency")
	ErrUnknownConvention   = errors.New("unknown repayment convention")

	// ErrClosureBeforeTransaction is returned when a loan would close before
	// its last recorded transaction.
	ErrClosureBeforeTransaction = errors.New("closure date is before the last transaction")

	// ErrAccountClosed is returned when writing to a closed account.
	ErrAccountClosed = errors.New("account is closed")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v (%s)", e.Field, e.Err, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error, reason string) error {
	return &ValidationError{Field: field, Reason: reason, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrTransactionAfterEndDate) ||
		errors.Is(err, ErrDateBeforeStart) ||
		errors.Is(err, ErrNegativeAmount) ||
		errors.Is(err, ErrInvalidRate) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrMissingStartDate) ||
		errors.Is(err, ErrUnknownInterestType) ||
		errors.Is(err, ErrUnknownFrequency) ||
		errors.Is(err, ErrUnknownConvention) ||
		errors.Is(err, ErrClosureBeforeTransaction)
}
