/*
Package schedule provides the payment schedule reconciliation engine.

PURPOSE:
  This package contains the types and algorithms for keeping a set of
  payment installments consistent with an invoice's total amount. It is
  independent of any UI framework or storage backend: the engine operates
  on in-memory installment lists and the caller decides what to persist.

KEY CONCEPTS IN THIS FILE (types.go):
  - Installment: One slice of an invoice's total, with both a percentage
    and a monetary amount kept in sync by the engine
  - Status: unpaid | paid | write-off (paid locks amount/percentage)
  - Command: Tagged union of field mutations applied via Editor.Apply

DESIGN PRINCIPLES:
  1. Single update path: installments are mutated only through an Editor;
     callers never assign fields directly
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Paid preservation: money already collected never silently changes;
     only its displayed percentage is recalculated against a new total
  4. Invalid state is representable: a schedule that does not sum to 100%
     is carried with a warning, never rejected mid-edit

USAGE:
  ed := schedule.NewEditor(total, installments, schedule.EditorConfig{Editable: true})
  res, err := ed.Add(schedule.AddRequest{DueDate: "2026-03-01", Percentage: dec(50)})
  res, err = ed.Apply(id, schedule.SetStatus{Value: schedule.StatusPaid})

SEE ALSO:
  - editor.go: The mutation API
  - reconcile.go: Total-change reconciliation and paid transitions
  - check.go: The 100% sum invariant checker
  - present.go: Display-ready row formatting
*/
package schedule

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used throughout the engine.
// Due dates and payment dates are plain dates, never timestamps.
const DateLayout = "2006-01-02"

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusUnpaid   Status = "unpaid"
	StatusPaid     Status = "paid"
	StatusWriteOff Status = "write-off"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusUnpaid, StatusPaid, StatusWriteOff:
		return true
	}
	return false
}

// =============================================================================
// INSTALLMENT
// =============================================================================

// Installment is one scheduled payment of an invoice's total.
//
// Amount is semantically total * Percentage / 100 but is stored
// independently: once an installment is paid, its amount is fixed even
// when the invoice total moves underneath it.
type Installment struct {
	ID          string
	Description string

	// AutoDescription marks descriptions generated by the engine
	// ("1st payment", "2nd payment", ...). Only these are re-labeled
	// when an installment is removed; user-edited descriptions are
	// left alone.
	AutoDescription bool

	DueDate     string // DateLayout, empty when unset
	Percentage  decimal.Decimal
	Amount      decimal.Decimal
	Status      Status
	PaymentDate string // DateLayout, empty when unset
}

// Paid reports whether the installment's amount and percentage are locked.
func (ins Installment) Paid() bool { return ins.Status == StatusPaid }

func cloneInstallments(installments []Installment) []Installment {
	out := make([]Installment, len(installments))
	copy(out, installments)
	return out
}

// ParseDate validates a DateLayout date string.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// =============================================================================
// COMMANDS - Tagged union of installment field updates
// =============================================================================

// Command is a single field mutation applied via Editor.Apply.
// Using a closed union instead of a (field, value) pair gives the
// editor an exhaustive switch over every mutation kind.
type Command interface{ isCommand() }

// SetAmount updates the amount and recomputes the percentage from the
// current invoice total. Rejected on paid installments.
type SetAmount struct{ Value decimal.Decimal }

// SetPercentage updates the percentage and recomputes the amount from
// the current invoice total. Rejected on paid installments.
type SetPercentage struct{ Value decimal.Decimal }

// SetStatus transitions the installment's status. Transitioning into
// paid materializes the amount and stamps PaymentDate (the explicit
// date when given, otherwise today).
type SetStatus struct {
	Value       Status
	PaymentDate string // optional, DateLayout
}

// SetDueDate replaces the due date.
type SetDueDate struct{ Value string }

// SetDescription replaces the description and clears AutoDescription.
type SetDescription struct{ Value string }

func (SetAmount) isCommand()      {}
func (SetPercentage) isCommand()  {}
func (SetStatus) isCommand()      {}
func (SetDueDate) isCommand()     {}
func (SetDescription) isCommand() {}
