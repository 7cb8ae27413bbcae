/*
errors.go - Centralized error types for the schedule engine

PURPOSE:
  All engine error types in one place. The API layer maps these onto
  HTTP status codes; the messages are user-facing and returned verbatim.

ERROR CATEGORIES:
  1. Illegal mutations - editing/removing a paid installment, read-only editor
  2. Overflow - adding an installment past 100% with nothing to absorb it
  3. Negative remaining - invoice total dropped below collected money
  4. Input validation - bad percentage, missing due date, unknown status

USAGE:
  Callers branch with errors.Is:

    if errors.Is(err, schedule.ErrNegativeRemaining) { ... }
*/
package schedule

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrScheduleLocked is returned when a mutation targets the amount or
	// percentage of a paid installment.
	ErrScheduleLocked = errors.New("payment schedule is locked by paid status")

	// ErrRemovePaid is returned when removing a paid installment.
	ErrRemovePaid = errors.New("cannot remove a paid payment schedule")

	// ErrScheduleNotFound is returned when the installment ID is unknown.
	ErrScheduleNotFound = errors.New("payment schedule not found")

	// ErrNegativeRemaining is returned when the invoice total drops below
	// the sum of already paid amounts. No automatic resolution happens.
	ErrNegativeRemaining = errors.New("invoice total is less than already paid amounts")

	// ErrOverflowAllPaid is returned when a new installment would push the
	// total over 100% and every existing installment is paid.
	ErrOverflowAllPaid = errors.New("cannot add payment: would exceed 100% and all existing payments are paid")

	// ErrInvalidPercentage is returned when a percentage is outside (0, 100].
	ErrInvalidPercentage = errors.New("percentage must be greater than 0 and at most 100")

	// ErrInvalidAmount is returned for negative amounts.
	ErrInvalidAmount = errors.New("amount must not be negative")

	// ErrMissingDueDate is returned when adding an installment without a due date.
	ErrMissingDueDate = errors.New("due date is required")

	// ErrInvalidDate is returned for dates not in yyyy-MM-dd form.
	ErrInvalidDate = errors.New("invalid date: expected yyyy-MM-dd")

	// ErrInvalidStatus is returned for statuses outside unpaid/paid/write-off.
	ErrInvalidStatus = errors.New("invalid payment status")

	// ErrReadOnly is returned by every mutation on a read-only editor.
	ErrReadOnly = errors.New("schedule is not editable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// LockedError identifies which installment and field rejected an edit.
type LockedError struct {
	ID    string
	Field string
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("cannot edit %s of paid payment schedule %s", e.Field, e.ID)
}

func (e *LockedError) Unwrap() error { return ErrScheduleLocked }

// NegativeRemainingError reports how far the new total undershoots the
// money already collected.
type NegativeRemainingError struct {
	NewTotal  decimal.Decimal
	PaidTotal decimal.Decimal
}

func (e *NegativeRemainingError) Error() string {
	return fmt.Sprintf("invoice total %s is less than already paid amounts %s. Please adjust manually",
		e.NewTotal.StringFixed(2), e.PaidTotal.StringFixed(2))
}

func (e *NegativeRemainingError) Unwrap() error { return ErrNegativeRemaining }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input
// rather than an internal fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPercentage) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrMissingDueDate) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidStatus)
}

// IsConflict returns true if the error means the mutation collided with
// schedule state (locked, overflow, negative remaining).
func IsConflict(err error) bool {
	return errors.Is(err, ErrScheduleLocked) ||
		errors.Is(err, ErrRemovePaid) ||
		errors.Is(err, ErrOverflowAllPaid) ||
		errors.Is(err, ErrNegativeRemaining) ||
		errors.Is(err, ErrReadOnly)
}

// IsNotFound returns true if the error indicates a missing installment.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrScheduleNotFound)
}
