/*
editor.go - The schedule mutation API

PURPOSE:
  The only write path into a payment schedule. The Editor owns the pair
  (invoice total, installment list) for one editing session and applies
  every mutation to a private copy, handing fresh slices back to the
  caller. Whether edits are allowed at all is explicit configuration
  (EditorConfig.Editable), never inferred from ambient state.

OPERATIONS:
  Add             - new installment (derives amount or percentage,
                    absorbs 100% overflow into the latest unpaid one)
  Remove          - delete an installment (paid ones refuse), re-label
                    auto-generated ordinal descriptions
  Apply           - field update via the Command union
  SetPaymentDate  - set the payment date regardless of status
  SetTotal        - total-change reconciliation
  EnsureDefault   - seed a single 100% installment when the list is empty

  Every operation returns a Result carrying the updated list and the
  invariant check; clients surface Check.Warning() as a banner.
*/
package schedule

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Result is the outcome of a successful mutation.
type Result struct {
	Installments []Installment
	Check        CheckResult

	// Notice is a user-facing side-effect message (overflow absorption,
	// reconciliation summary). Empty when there is nothing to report.
	Notice string
}

// EditorConfig configures an editing session.
type EditorConfig struct {
	// Editable gates all mutations. A read-only editor still answers
	// Installments/Check/rows queries.
	Editable bool

	// Clock supplies "today" for default payment dates. Defaults to time.Now.
	Clock func() time.Time

	// NewID mints installment IDs. Defaults to uuid.NewString.
	NewID func() string
}

// Editor holds the mutable schedule state for one invoice-editing session.
// It is not safe for concurrent use; every edit happens within one
// user-interaction callback.
type Editor struct {
	total        decimal.Decimal
	installments []Installment
	editable     bool
	clock        func() time.Time
	newID        func() string
}

// NewEditor starts an editing session over a copy of installments.
func NewEditor(total decimal.Decimal, installments []Installment, cfg EditorConfig) *Editor {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Editor{
		total:        total,
		installments: cloneInstallments(installments),
		editable:     cfg.Editable,
		clock:        clock,
		newID:        newID,
	}
}

// Total returns the invoice total the editor reconciles against.
func (e *Editor) Total() decimal.Decimal { return e.total }

// Installments returns a copy of the current installment list.
func (e *Editor) Installments() []Installment { return cloneInstallments(e.installments) }

// Check runs the sum invariant check on the current list.
func (e *Editor) Check() CheckResult { return Check(e.installments) }

func (e *Editor) result(notice string) (Result, error) {
	return Result{
		Installments: cloneInstallments(e.installments),
		Check:        Check(e.installments),
		Notice:       notice,
	}, nil
}

func (e *Editor) find(id string) (int, error) {
	for i := range e.installments {
		if e.installments[i].ID == id {
			return i, nil
		}
	}
	return -1, ErrScheduleNotFound
}

func (e *Editor) today() string { return e.clock().Format(DateLayout) }

// =============================================================================
// ADD
// =============================================================================

// AddRequest describes a new installment. Exactly one of Percentage or
// Amount may be zero; the missing half is derived from the other.
type AddRequest struct {
	DueDate    string
	Percentage decimal.Decimal
	Amount     decimal.Decimal
	Status     Status // empty means unpaid
}

// Add appends a new installment with an auto-generated ordinal
// description. If the addition would push the total percentage over
// 100%, the excess is deducted from the most recently added unpaid
// installment (floored at 0); with no unpaid installment to absorb it,
// the addition is rejected and the list is unchanged.
func (e *Editor) Add(req AddRequest) (Result, error) {
	if !e.editable {
		return Result{}, ErrReadOnly
	}
	if req.DueDate == "" {
		return Result{}, ErrMissingDueDate
	}
	if _, err := ParseDate(req.DueDate); err != nil {
		return Result{}, ErrInvalidDate
	}
	status := req.Status
	if status == "" {
		status = StatusUnpaid
	}
	if !status.Valid() {
		return Result{}, ErrInvalidStatus
	}

	pct := req.Percentage
	amount := req.Amount
	if pct.Sign() == 0 && amount.Sign() > 0 {
		pct = PercentageFromAmount(e.total, amount)
	}
	if amount.Sign() == 0 && pct.Sign() > 0 {
		amount = AmountFromPercentage(e.total, pct)
	}
	if pct.Sign() <= 0 || pct.GreaterThan(hundred) {
		return Result{}, ErrInvalidPercentage
	}

	notice := ""
	next := cloneInstallments(e.installments)

	currentTotal := decimal.Zero
	for _, ins := range next {
		currentTotal = currentTotal.Add(ins.Percentage)
	}
	excess := currentTotal.Add(pct).Sub(hundred)
	if excess.Sign() > 0 {
		// Walk backward: the most recently added unpaid installment
		// absorbs the excess.
		absorbed := -1
		for i := len(next) - 1; i >= 0; i-- {
			if !next[i].Paid() {
				absorbed = i
				break
			}
		}
		if absorbed == -1 {
			return Result{}, ErrOverflowAllPaid
		}
		reduced := next[absorbed].Percentage.Sub(excess)
		if reduced.Sign() < 0 {
			reduced = decimal.Zero
		}
		next[absorbed].Percentage = reduced
		next[absorbed].Amount = AmountFromPercentage(e.total, reduced)
		notice = "Adjusted \"" + next[absorbed].Description + "\" by -" +
			RoundPercentage(excess).StringFixed(2) + "% to keep the total at 100%."
	}

	ins := Installment{
		ID:              e.newID(),
		Description:     AutoDescriptionFor(len(next) + 1),
		AutoDescription: true,
		DueDate:         req.DueDate,
		Percentage:      pct,
		Amount:          amount,
		Status:          status,
	}
	if status == StatusPaid {
		markPaid(&ins, e.total, "", e.today())
	}
	next = append(next, ins)

	e.installments = next
	return e.result(notice)
}

// =============================================================================
// REMOVE
// =============================================================================

// Remove deletes an installment. Paid installments refuse removal.
// Auto-generated ordinal descriptions on the survivors are re-labeled to
// stay sequential; user-edited descriptions are left alone.
func (e *Editor) Remove(id string) (Result, error) {
	if !e.editable {
		return Result{}, ErrReadOnly
	}
	i, err := e.find(id)
	if err != nil {
		return Result{}, err
	}
	if e.installments[i].Paid() {
		return Result{}, ErrRemovePaid
	}

	next := append(cloneInstallments(e.installments[:i]), e.installments[i+1:]...)
	for j := range next {
		if next[j].AutoDescription {
			next[j].Description = AutoDescriptionFor(j + 1)
		}
	}

	e.installments = next
	return e.result("")
}

// =============================================================================
// APPLY - field updates via the Command union
// =============================================================================

// Apply executes a single field update on the installment with the
// given ID. Amount and percentage edits on paid installments are
// rejected; status transitions into paid route through the paid
// transition (amount materialization + payment date stamping).
func (e *Editor) Apply(id string, cmd Command) (Result, error) {
	if !e.editable {
		return Result{}, ErrReadOnly
	}
	i, err := e.find(id)
	if err != nil {
		return Result{}, err
	}
	ins := e.installments[i]

	switch c := cmd.(type) {
	case SetAmount:
		if ins.Paid() {
			return Result{}, &LockedError{ID: id, Field: "amount"}
		}
		if c.Value.Sign() < 0 {
			return Result{}, ErrInvalidAmount
		}
		ins.Amount = c.Value
		ins.Percentage = PercentageFromAmount(e.total, c.Value)

	case SetPercentage:
		if ins.Paid() {
			return Result{}, &LockedError{ID: id, Field: "percentage"}
		}
		if c.Value.Sign() < 0 || c.Value.GreaterThan(hundred) {
			return Result{}, ErrInvalidPercentage
		}
		ins.Percentage = c.Value
		ins.Amount = AmountFromPercentage(e.total, c.Value)

	case SetStatus:
		if !c.Value.Valid() {
			return Result{}, ErrInvalidStatus
		}
		if c.PaymentDate != "" {
			if _, err := ParseDate(c.PaymentDate); err != nil {
				return Result{}, ErrInvalidDate
			}
		}
		if c.Value == StatusPaid && !ins.Paid() {
			markPaid(&ins, e.total, c.PaymentDate, e.today())
		} else {
			ins.Status = c.Value
		}

	case SetDueDate:
		if c.Value != "" {
			if _, err := ParseDate(c.Value); err != nil {
				return Result{}, ErrInvalidDate
			}
		}
		ins.DueDate = c.Value

	case SetDescription:
		ins.Description = c.Value
		ins.AutoDescription = false
	}

	e.installments[i] = ins
	return e.result("")
}

// SetPaymentDate sets the payment date directly, independent of status.
// The UI flow sets it as part of marking paid, but the API permits it
// any time.
func (e *Editor) SetPaymentDate(id, date string) (Result, error) {
	if !e.editable {
		return Result{}, ErrReadOnly
	}
	i, err := e.find(id)
	if err != nil {
		return Result{}, err
	}
	if date != "" {
		if _, err := ParseDate(date); err != nil {
			return Result{}, ErrInvalidDate
		}
	}
	e.installments[i].PaymentDate = date
	return e.result("")
}

// =============================================================================
// TOTAL CHANGE
// =============================================================================

// SetTotal changes the invoice total and reconciles the schedule against
// it. On a negative remaining amount the error is returned and BOTH the
// total and the installments stay as they were, so the editor's combined
// view cannot go out of sync.
func (e *Editor) SetTotal(newTotal decimal.Decimal) (Result, error) {
	if !e.editable {
		return Result{}, ErrReadOnly
	}
	rec, err := ReconcileTotal(e.installments, newTotal)
	if err != nil {
		return Result{}, err
	}
	e.total = newTotal
	if rec.Changed {
		e.installments = rec.Installments
	}
	return e.result(rec.Message)
}

// =============================================================================
// DEFAULT SCHEDULE
// =============================================================================

// EnsureDefault seeds a single 100% installment due on the given date
// when the schedule is empty. No-op otherwise.
func (e *Editor) EnsureDefault(dueDate string) (Result, error) {
	if !e.editable {
		return Result{}, ErrReadOnly
	}
	if len(e.installments) > 0 {
		return e.result("")
	}
	e.installments = []Installment{{
		ID:              e.newID(),
		Description:     AutoDescriptionFor(1),
		AutoDescription: true,
		DueDate:         dueDate,
		Percentage:      hundred,
		Amount:          e.total,
		Status:          StatusUnpaid,
	}}
	return e.result("")
}
