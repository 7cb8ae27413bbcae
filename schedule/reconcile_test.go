package schedule_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/atelier/billing-engine/schedule"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func installment(id string, pct, amount float64, status schedule.Status) schedule.Installment {
	return schedule.Installment{
		ID:         id,
		Percentage: dec(pct),
		Amount:     dec(amount),
		Status:     status,
	}
}

func sumPercentages(installments []schedule.Installment) decimal.Decimal {
	total := decimal.Zero
	for _, ins := range installments {
		total = total.Add(ins.Percentage)
	}
	return total
}

// =============================================================================
// TOTAL-CHANGE RECONCILIATION
// =============================================================================

func TestReconcileTotal_SingleUnpaidAbsorbsFullTotal(t *testing.T) {
	// GIVEN: total $1000, one schedule at 100%/$1000, unpaid
	// WHEN: total changes to $1500
	// THEN: schedule becomes 100%/$1500

	before := []schedule.Installment{installment("a", 100, 1000, schedule.StatusUnpaid)}

	res, err := schedule.ReconcileTotal(before, dec(1500))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Changed {
		t.Fatal("expected a change")
	}
	if !approxEqual(res.Installments[0].Amount, dec(1500)) {
		t.Errorf("expected $1500, got %v", res.Installments[0].Amount)
	}
	if !approxEqual(res.Installments[0].Percentage, dec(100)) {
		t.Errorf("expected 100%%, got %v", res.Installments[0].Percentage)
	}
}

func TestReconcileTotal_PaidAmountPreserved(t *testing.T) {
	// GIVEN: total $1000, 50%/$500 paid + 50%/$500 unpaid
	// WHEN: total changes to $1200
	// THEN: paid stays $500 (pct -> 41.67%), unpaid becomes $700 (58.33%)

	before := []schedule.Installment{
		installment("paid", 50, 500, schedule.StatusPaid),
		installment("open", 50, 500, schedule.StatusUnpaid),
	}

	res, err := schedule.ReconcileTotal(before, dec(1200))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	paid, open := res.Installments[0], res.Installments[1]
	if !paid.Amount.Equal(dec(500)) {
		t.Errorf("paid amount must not move: got %v", paid.Amount)
	}
	if !approxEqual(paid.Percentage, dec(41.67)) {
		t.Errorf("expected 41.67%%, got %v", paid.Percentage)
	}
	if !approxEqual(open.Amount, dec(700)) {
		t.Errorf("expected $700, got %v", open.Amount)
	}
	if !approxEqual(open.Percentage, dec(58.33)) {
		t.Errorf("expected 58.33%%, got %v", open.Percentage)
	}
	if res.Message == "" {
		t.Error("expected a mixed paid/unpaid summary message")
	}
}

func TestReconcileTotal_NegativeRemaining_Aborts(t *testing.T) {
	// GIVEN: all paid, summing to $1000
	// WHEN: total drops to $800
	// THEN: error, input list untouched

	before := []schedule.Installment{
		installment("a", 60, 600, schedule.StatusPaid),
		installment("b", 40, 400, schedule.StatusPaid),
	}

	_, err := schedule.ReconcileTotal(before, dec(800))
	if !errors.Is(err, schedule.ErrNegativeRemaining) {
		t.Fatalf("expected ErrNegativeRemaining, got %v", err)
	}

	// Input slice is never mutated.
	if !before[0].Amount.Equal(dec(600)) || !before[1].Amount.Equal(dec(400)) {
		t.Error("input installments were mutated")
	}

	var detail *schedule.NegativeRemainingError
	if !errors.As(err, &detail) {
		t.Fatal("expected NegativeRemainingError detail")
	}
	if !detail.PaidTotal.Equal(dec(1000)) {
		t.Errorf("expected paid total 1000, got %v", detail.PaidTotal)
	}
}

func TestReconcileTotal_PreservesTotalPercentage(t *testing.T) {
	// Redistribution changes the distribution, never the total
	// percentage commitment (within tolerance).

	cases := [][]schedule.Installment{
		{
			installment("a", 100, 1000, schedule.StatusUnpaid),
		},
		{
			installment("a", 25, 250, schedule.StatusPaid),
			installment("b", 25, 250, schedule.StatusUnpaid),
			installment("c", 50, 500, schedule.StatusUnpaid),
		},
		{
			installment("a", 33.34, 333.40, schedule.StatusUnpaid),
			installment("b", 33.33, 333.30, schedule.StatusUnpaid),
			installment("c", 33.33, 333.30, schedule.StatusWriteOff),
		},
	}
	newTotals := []float64{500, 1000, 1234.56, 2000}

	for ci, before := range cases {
		pre := sumPercentages(before)
		for _, total := range newTotals {
			res, err := schedule.ReconcileTotal(before, dec(total))
			if err != nil {
				t.Fatalf("case %d total %v: %v", ci, total, err)
			}
			post := sumPercentages(res.Installments)
			if !approxEqual(pre, post) {
				t.Errorf("case %d total %v: sum moved from %v to %v", ci, total, pre, post)
			}
		}
	}
}

func TestReconcileTotal_ProportionalWeightingSurvives(t *testing.T) {
	// 30/70 split stays 30/70 after the total moves.
	before := []schedule.Installment{
		installment("a", 30, 300, schedule.StatusUnpaid),
		installment("b", 70, 700, schedule.StatusUnpaid),
	}

	res, err := schedule.ReconcileTotal(before, dec(2000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approxEqual(res.Installments[0].Amount, dec(600)) {
		t.Errorf("expected $600, got %v", res.Installments[0].Amount)
	}
	if !approxEqual(res.Installments[1].Amount, dec(1400)) {
		t.Errorf("expected $1400, got %v", res.Installments[1].Amount)
	}
}

func TestReconcileTotal_NoUnpaid_OnlyPercentagesMove(t *testing.T) {
	before := []schedule.Installment{
		installment("a", 50, 500, schedule.StatusPaid),
		installment("b", 50, 500, schedule.StatusPaid),
	}

	res, err := schedule.ReconcileTotal(before, dec(2000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, ins := range res.Installments {
		if !ins.Amount.Equal(dec(500)) {
			t.Errorf("paid amount moved: %v", ins.Amount)
		}
		if !approxEqual(ins.Percentage, dec(25)) {
			t.Errorf("expected 25%%, got %v", ins.Percentage)
		}
	}
}

func TestReconcileTotal_ZeroWeightUnpaid_SplitsEvenly(t *testing.T) {
	// Unpaid installments with zero percentages split remaining evenly.
	before := []schedule.Installment{
		installment("a", 0, 0, schedule.StatusUnpaid),
		installment("b", 0, 0, schedule.StatusUnpaid),
	}

	res, err := schedule.ReconcileTotal(before, dec(1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, ins := range res.Installments {
		if !approxEqual(ins.Amount, dec(500)) {
			t.Errorf("expected even $500 split, got %v", ins.Amount)
		}
	}
}

func TestReconcileTotal_NoChangeWithinTolerance(t *testing.T) {
	before := []schedule.Installment{installment("a", 100, 1000, schedule.StatusUnpaid)}

	res, err := schedule.ReconcileTotal(before, dec(1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Changed {
		t.Error("expected no change when the total is unchanged")
	}
}

func TestReconcileTotal_ZeroTotal_PercentagesGoToZero(t *testing.T) {
	before := []schedule.Installment{
		installment("a", 100, 0, schedule.StatusPaid),
	}

	res, err := schedule.ReconcileTotal(before, decimal.Zero)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Installments[0].Percentage.IsZero() {
		t.Errorf("expected 0%% at zero total, got %v", res.Installments[0].Percentage)
	}
}

func TestReconcileTotal_EmptySchedule_NoOp(t *testing.T) {
	res, err := schedule.ReconcileTotal(nil, dec(1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Changed || len(res.Installments) != 0 {
		t.Error("expected a no-op for an empty schedule")
	}
}

// =============================================================================
// INVARIANT CHECK
// =============================================================================

func TestCheck_ExactHundredIsValid(t *testing.T) {
	res := schedule.Check([]schedule.Installment{
		installment("a", 33.33, 0, schedule.StatusUnpaid),
		installment("b", 33.33, 0, schedule.StatusUnpaid),
		installment("c", 33.34, 0, schedule.StatusUnpaid),
	})
	if !res.IsValid {
		t.Errorf("expected valid, diff %v", res.Difference)
	}
	if res.Warning() != "" {
		t.Errorf("expected empty warning, got %q", res.Warning())
	}
}

func TestCheck_OffByOneIsInvalid(t *testing.T) {
	res := schedule.Check([]schedule.Installment{
		installment("a", 50, 0, schedule.StatusUnpaid),
		installment("b", 49, 0, schedule.StatusUnpaid),
	})
	if res.IsValid {
		t.Error("expected invalid at 99%")
	}
	if res.Warning() == "" {
		t.Error("expected warning text")
	}
	if !res.Difference.Equal(dec(1)) {
		t.Errorf("expected difference 1, got %v", res.Difference)
	}
}

func TestCheck_ToleranceBoundary(t *testing.T) {
	// 100.009 is inside the 0.01 tolerance, 100.01 is not.
	inside := schedule.Check([]schedule.Installment{installment("a", 100.009, 0, schedule.StatusUnpaid)})
	if !inside.IsValid {
		t.Error("100.009 should be valid")
	}
	outside := schedule.Check([]schedule.Installment{installment("a", 100.01, 0, schedule.StatusUnpaid)})
	if outside.IsValid {
		t.Error("100.01 should be invalid")
	}
}
