/*
invoice.go - Invoice totals, save validation, schedule hydration

PURPOSE:
  The invoice side of the schedule engine contract:
  - Total() is the single derivation of an invoice's worth (sum of
    quantity * rate over all line items, discount lines included)
  - save validation is the only hard gate on the 100% invariant
  - hydration reconciles the persisted percentage-only shape with the
    engine's first-class Amount field
*/
package billing

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/atelier/billing-engine/schedule"
)

// =============================================================================
// SAVE VALIDATION
// =============================================================================

var (
	// ErrBlankNumber rejects blank or whitespace-only invoice numbers.
	ErrBlankNumber = errors.New("invoice number is required")

	// ErrNoItems rejects invoices without line items.
	ErrNoItems = errors.New("invoice must have at least one line item")

	// ErrScheduleSum rejects schedules that do not total 100%.
	ErrScheduleSum = errors.New("total payment percentage must be exactly 100%")
)

// Total derives the invoice amount from its line items. This is the
// basis for every percentage/amount conversion on the schedule.
func (inv *Invoice) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range inv.Items {
		total = total.Add(item.Amount())
	}
	return total
}

// ValidateForSave applies the client-side save gate. The schedule sum
// check is a warning everywhere else; here it blocks.
func (inv *Invoice) ValidateForSave() error {
	if strings.TrimSpace(inv.Number) == "" {
		return ErrBlankNumber
	}
	if len(inv.Items) == 0 {
		return ErrNoItems
	}
	if !schedule.Check(inv.Schedules).IsValid {
		return ErrScheduleSum
	}
	return nil
}

// SaveViolations returns every save violation's user-facing message,
// for form display. Empty when the invoice is saveable.
func (inv *Invoice) SaveViolations() []string {
	var out []string
	if strings.TrimSpace(inv.Number) == "" {
		out = append(out, ErrBlankNumber.Error())
	}
	if len(inv.Items) == 0 {
		out = append(out, ErrNoItems.Error())
	}
	if check := schedule.Check(inv.Schedules); !check.IsValid {
		out = append(out, check.Warning())
	}
	return out
}

// =============================================================================
// HYDRATION - persisted shape has no amount column
// =============================================================================

// HydrateSchedules recomputes every installment amount from the invoice
// total and stored percentage. Called once after load; from then on the
// engine keeps both fields consistent (and paid amounts locked).
func (inv *Invoice) HydrateSchedules() {
	total := inv.Total()
	for i := range inv.Schedules {
		inv.Schedules[i].Amount = schedule.AmountFromPercentage(total, inv.Schedules[i].Percentage)
	}
}

// =============================================================================
// EDITOR WIRING
// =============================================================================

// Editor opens a schedule editing session against the invoice's current
// total. Editability is explicit caller configuration.
func (inv *Invoice) Editor(editable bool) *schedule.Editor {
	return schedule.NewEditor(inv.Total(), inv.Schedules, schedule.EditorConfig{Editable: editable})
}

// ApplySchedules writes an editor result back onto the invoice.
func (inv *Invoice) ApplySchedules(res schedule.Result) {
	inv.Schedules = res.Installments
}

// EnsureDefaultSchedule seeds the single 100% installment on invoices
// with no schedule, due on the invoice due date.
func (inv *Invoice) EnsureDefaultSchedule() error {
	if len(inv.Schedules) > 0 {
		return nil
	}
	ed := inv.Editor(true)
	res, err := ed.EnsureDefault(inv.DueDate)
	if err != nil {
		return err
	}
	inv.Schedules = res.Installments
	return nil
}
