/*
check.go - The 100% sum invariant checker

PURPOSE:
  Answers "does this schedule account for the whole invoice?" after every
  mutation. The check never blocks an edit: an invalid schedule is carried
  with a warning until the user (or the engine) corrects it. Invoice save
  validation is the only hard gate, and it lives in the billing layer.
*/
package schedule

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CheckResult is the outcome of the sum invariant check.
type CheckResult struct {
	TotalPercentage decimal.Decimal
	IsValid         bool
	Difference      decimal.Decimal // abs(total - 100)
}

// Check sums the installment percentages and compares against 100 with a
// 0.01 tolerance. Side-effect free.
func Check(installments []Installment) CheckResult {
	total := decimal.Zero
	for _, ins := range installments {
		total = total.Add(ins.Percentage)
	}
	diff := total.Sub(hundred).Abs()
	return CheckResult{
		TotalPercentage: total,
		IsValid:         diff.LessThan(tolerance),
		Difference:      diff,
	}
}

// Warning returns the user-facing warning banner text, or "" when the
// schedule is valid.
func (r CheckResult) Warning() string {
	if r.IsValid {
		return ""
	}
	return fmt.Sprintf("Total payment percentage is %s%%. It should be exactly 100%%.",
		RoundPercentage(r.TotalPercentage).StringFixed(2))
}
