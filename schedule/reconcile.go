/*
reconcile.go - Total-change reconciliation and paid transitions

PURPOSE:
  Keeps installment amounts consistent when the invoice total changes
  (items added, removed, repriced) and when an installment transitions
  into the paid status.

THE CORE RULE:
  Paid money is untouchable. When the total moves:
  - paid installments keep their stored Amount exactly; only their
    displayed percentage is recalculated against the new total
  - whatever remains (new total minus paid money) is redistributed across
    unpaid installments proportionally to their current relative
    percentages, so relative weighting survives the change

FAILURE MODE:
  If the new total is less than the money already collected there is no
  automatic resolution: the reconciliation aborts with
  NegativeRemainingError and the installment list is left unchanged. The
  editor also leaves its total unchanged in that case, so the engine's
  combined (total, installments) view never goes out of sync.

SEE ALSO:
  - editor.go: SetTotal routes through ReconcileTotal
  - check.go: Invariant check surfaced after every commit
*/
package schedule

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ReconcileResult reports what a total-change reconciliation did.
type ReconcileResult struct {
	Installments []Installment

	// Changed is false when no amount or percentage moved beyond the
	// 0.01 tolerance; callers should skip persisting in that case.
	Changed bool

	PaidAdjusted   int
	UnpaidAdjusted int

	// Message is a user-facing summary, set only when the schedule has
	// both paid and unpaid installments and something moved.
	Message string
}

// ReconcileTotal recomputes installment amounts and percentages for a new
// invoice total. The input slice is never mutated.
func ReconcileTotal(installments []Installment, newTotal decimal.Decimal) (ReconcileResult, error) {
	if len(installments) == 0 {
		return ReconcileResult{Installments: nil, Changed: false}, nil
	}

	next := cloneInstallments(installments)

	var paidIdx, unpaidIdx []int
	paidTotal := decimal.Zero
	unpaidPctTotal := decimal.Zero
	for i, ins := range next {
		if ins.Paid() {
			paidIdx = append(paidIdx, i)
			paidTotal = paidTotal.Add(ins.Amount)
		} else {
			unpaidIdx = append(unpaidIdx, i)
			unpaidPctTotal = unpaidPctTotal.Add(ins.Percentage)
		}
	}

	remaining := newTotal.Sub(paidTotal)
	if remaining.Sign() < 0 {
		return ReconcileResult{}, &NegativeRemainingError{NewTotal: newTotal, PaidTotal: paidTotal}
	}

	// Paid installments: amount preserved, percentage recalculated for
	// display consistency (0 when the new total is 0).
	for _, i := range paidIdx {
		next[i].Percentage = PercentageFromAmount(newTotal, next[i].Amount)
	}

	// Unpaid installments: redistribute the remaining money by current
	// relative weight. With no prior weighting, split evenly.
	if len(unpaidIdx) > 0 {
		evenShare := decimal.NewFromInt(1).Div(decimal.NewFromInt(int64(len(unpaidIdx))))
		for _, i := range unpaidIdx {
			proportion := evenShare
			if unpaidPctTotal.Sign() > 0 {
				proportion = installments[i].Percentage.Div(unpaidPctTotal)
			}
			next[i].Amount = remaining.Mul(proportion)
			next[i].Percentage = PercentageFromAmount(newTotal, next[i].Amount)
		}
	}

	paidMoved, unpaidMoved := 0, 0
	for i := range next {
		if withinTolerance(next[i].Amount, installments[i].Amount) &&
			withinTolerance(next[i].Percentage, installments[i].Percentage) {
			continue
		}
		if next[i].Paid() {
			paidMoved++
		} else {
			unpaidMoved++
		}
	}

	if paidMoved+unpaidMoved == 0 {
		return ReconcileResult{Installments: cloneInstallments(installments), Changed: false}, nil
	}

	res := ReconcileResult{
		Installments:   next,
		Changed:        true,
		PaidAdjusted:   paidMoved,
		UnpaidAdjusted: unpaidMoved,
	}
	if len(paidIdx) > 0 && len(unpaidIdx) > 0 {
		res.Message = fmt.Sprintf(
			"Invoice total changed: %d unpaid payment(s) redistributed, %d paid payment(s) kept their amounts.",
			unpaidMoved, paidMoved)
	}
	return res, nil
}

// markPaid transitions an installment into the paid status against the
// given invoice total.
//
// An installment that only ever had a percentage set has its amount
// materialized at the moment of payment; from then on the amount is the
// source of truth and the percentage is display-only.
func markPaid(ins *Installment, total decimal.Decimal, paymentDate, today string) {
	if ins.Amount.IsZero() && ins.Percentage.Sign() > 0 && total.Sign() > 0 {
		ins.Amount = AmountFromPercentage(total, ins.Percentage)
	}
	ins.Percentage = PercentageFromAmount(total, ins.Amount)
	ins.Status = StatusPaid
	switch {
	case paymentDate != "":
		ins.PaymentDate = paymentDate
	case ins.PaymentDate == "":
		ins.PaymentDate = today
	}
}
