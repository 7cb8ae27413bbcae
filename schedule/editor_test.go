package schedule_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier/billing-engine/schedule"
)

// newTestEditor builds an editable editor with a fixed clock and
// deterministic IDs ("ins-1", "ins-2", ...).
func newTestEditor(total float64, installments []schedule.Installment) *schedule.Editor {
	n := 0
	return schedule.NewEditor(dec(total), installments, schedule.EditorConfig{
		Editable: true,
		Clock:    func() time.Time { return time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC) },
		NewID: func() string {
			n++
			return fmt.Sprintf("ins-%d", n)
		},
	})
}

// =============================================================================
// ADD
// =============================================================================

func TestAdd_DerivesAmountFromPercentage(t *testing.T) {
	ed := newTestEditor(1000, nil)

	res, err := ed.Add(schedule.AddRequest{DueDate: "2026-04-01", Percentage: dec(40)})
	require.NoError(t, err)
	require.Len(t, res.Installments, 1)

	ins := res.Installments[0]
	assert.True(t, approxEqual(ins.Amount, dec(400)), "amount should derive from percentage")
	assert.Equal(t, "1st payment", ins.Description)
	assert.True(t, ins.AutoDescription)
	assert.Equal(t, schedule.StatusUnpaid, ins.Status)
}

func TestAdd_DerivesPercentageFromAmount(t *testing.T) {
	ed := newTestEditor(2000, nil)

	res, err := ed.Add(schedule.AddRequest{DueDate: "2026-04-01", Amount: dec(500)})
	require.NoError(t, err)
	assert.True(t, approxEqual(res.Installments[0].Percentage, dec(25)))
}

func TestAdd_OrdinalDescriptionsSequence(t *testing.T) {
	ed := newTestEditor(1000, nil)

	for i, pct := range []float64{30, 30, 40} {
		_, err := ed.Add(schedule.AddRequest{DueDate: "2026-04-01", Percentage: dec(pct)})
		require.NoError(t, err, "add %d", i)
	}

	got := ed.Installments()
	assert.Equal(t, "1st payment", got[0].Description)
	assert.Equal(t, "2nd payment", got[1].Description)
	assert.Equal(t, "3rd payment", got[2].Description)
}

func TestAdd_OverflowAbsorbedByLatestUnpaid(t *testing.T) {
	// GIVEN: schedules summing to 90% unpaid
	// WHEN: adding 20%
	// THEN: most recent unpaid loses 10 points, final sum is 100%
	ed := newTestEditor(1000, []schedule.Installment{
		installment("a", 50, 500, schedule.StatusUnpaid),
		installment("b", 40, 400, schedule.StatusUnpaid),
	})

	res, err := ed.Add(schedule.AddRequest{DueDate: "2026-05-01", Percentage: dec(20)})
	require.NoError(t, err)
	require.Len(t, res.Installments, 3)

	assert.True(t, approxEqual(res.Installments[1].Percentage, dec(30)), "b absorbs the excess")
	assert.True(t, approxEqual(res.Installments[1].Amount, dec(300)))
	assert.True(t, approxEqual(res.Installments[2].Percentage, dec(20)))
	assert.True(t, res.Check.IsValid, "final sum must be 100%%")
	assert.NotEmpty(t, res.Notice, "user is told about the adjustment")
}

func TestAdd_OverflowSkipsPaidWalkingBackward(t *testing.T) {
	ed := newTestEditor(1000, []schedule.Installment{
		installment("a", 40, 400, schedule.StatusUnpaid),
		installment("b", 50, 500, schedule.StatusPaid),
	})

	res, err := ed.Add(schedule.AddRequest{DueDate: "2026-05-01", Percentage: dec(20)})
	require.NoError(t, err)

	// The paid installment is skipped; "a" absorbs the 10 point excess.
	assert.True(t, approxEqual(res.Installments[0].Percentage, dec(30)))
	assert.True(t, res.Installments[1].Percentage.Equal(dec(50)))
}

func TestAdd_OverflowAllPaid_RejectedUnchanged(t *testing.T) {
	before := []schedule.Installment{
		installment("a", 50, 500, schedule.StatusPaid),
		installment("b", 50, 500, schedule.StatusPaid),
	}
	ed := newTestEditor(1000, before)

	_, err := ed.Add(schedule.AddRequest{DueDate: "2026-05-01", Percentage: dec(10)})
	require.ErrorIs(t, err, schedule.ErrOverflowAllPaid)

	got := ed.Installments()
	require.Len(t, got, 2, "schedule list must be unchanged")
	assert.True(t, got[0].Percentage.Equal(dec(50)))
	assert.True(t, got[1].Percentage.Equal(dec(50)))
}

func TestAdd_OverflowFloorsAbsorberAtZero(t *testing.T) {
	ed := newTestEditor(1000, []schedule.Installment{
		installment("a", 95, 950, schedule.StatusPaid),
		installment("b", 5, 50, schedule.StatusUnpaid),
	})

	// Excess is 10 but "b" only has 5 points: it floors at 0.
	res, err := ed.Add(schedule.AddRequest{DueDate: "2026-05-01", Percentage: dec(10)})
	require.NoError(t, err)
	assert.True(t, res.Installments[1].Percentage.IsZero())
}

func TestAdd_Validation(t *testing.T) {
	cases := []struct {
		name string
		req  schedule.AddRequest
		want error
	}{
		{"missing due date", schedule.AddRequest{Percentage: dec(50)}, schedule.ErrMissingDueDate},
		{"bad date", schedule.AddRequest{DueDate: "04/01/2026", Percentage: dec(50)}, schedule.ErrInvalidDate},
		{"zero percentage", schedule.AddRequest{DueDate: "2026-04-01"}, schedule.ErrInvalidPercentage},
		{"over 100", schedule.AddRequest{DueDate: "2026-04-01", Percentage: dec(101)}, schedule.ErrInvalidPercentage},
		{"bad status", schedule.AddRequest{DueDate: "2026-04-01", Percentage: dec(50), Status: "overdue"}, schedule.ErrInvalidStatus},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ed := newTestEditor(1000, nil)
			_, err := ed.Add(tc.req)
			assert.ErrorIs(t, err, tc.want)
			assert.Empty(t, ed.Installments(), "rejected add must be a no-op")
		})
	}
}

// =============================================================================
// REMOVE
// =============================================================================

func TestRemove_PaidRejected(t *testing.T) {
	ed := newTestEditor(1000, []schedule.Installment{
		installment("a", 100, 1000, schedule.StatusPaid),
	})

	_, err := ed.Remove("a")
	assert.ErrorIs(t, err, schedule.ErrRemovePaid)
	assert.Len(t, ed.Installments(), 1)
}

func TestRemove_RelabelsOnlyAutoDescriptions(t *testing.T) {
	ed := newTestEditor(1000, []schedule.Installment{
		{ID: "a", Description: "1st payment", AutoDescription: true, Percentage: dec(30), Status: schedule.StatusUnpaid},
		{ID: "b", Description: "2nd payment", AutoDescription: true, Percentage: dec(30), Status: schedule.StatusUnpaid},
		{ID: "c", Description: "Retainer balance", AutoDescription: false, Percentage: dec(40), Status: schedule.StatusUnpaid},
	})

	res, err := ed.Remove("a")
	require.NoError(t, err)
	require.Len(t, res.Installments, 2)

	assert.Equal(t, "1st payment", res.Installments[0].Description, "auto description re-labeled")
	assert.Equal(t, "Retainer balance", res.Installments[1].Description, "custom description untouched")
}

func TestRemove_UnknownID(t *testing.T) {
	ed := newTestEditor(1000, nil)
	_, err := ed.Remove("missing")
	assert.ErrorIs(t, err, schedule.ErrScheduleNotFound)
}

// =============================================================================
// APPLY - field updates
// =============================================================================

func TestApply_SetAmountRecomputesPercentage(t *testing.T) {
	ed := newTestEditor(1000, []schedule.Installment{
		installment("a", 100, 1000, schedule.StatusUnpaid),
	})

	res, err := ed.Apply("a", schedule.SetAmount{Value: dec(250)})
	require.NoError(t, err)
	assert.True(t, approxEqual(res.Installments[0].Percentage, dec(25)))
	assert.False(t, res.Check.IsValid, "25%% schedule carries a warning, not an error")
}

func TestApply_SetPercentageRecomputesAmount(t *testing.T) {
	ed := newTestEditor(2000, []schedule.Installment{
		installment("a", 100, 2000, schedule.StatusUnpaid),
	})

	res, err := ed.Apply("a", schedule.SetPercentage{Value: dec(75)})
	require.NoError(t, err)
	assert.True(t, approxEqual(res.Installments[0].Amount, dec(1500)))
}

func TestApply_PaidInstallmentLocked(t *testing.T) {
	ed := newTestEditor(1000, []schedule.Installment{
		installment("a", 100, 1000, schedule.StatusPaid),
	})

	_, err := ed.Apply("a", schedule.SetAmount{Value: dec(1)})
	assert.ErrorIs(t, err, schedule.ErrScheduleLocked)

	_, err = ed.Apply("a", schedule.SetPercentage{Value: dec(1)})
	assert.ErrorIs(t, err, schedule.ErrScheduleLocked)

	var locked *schedule.LockedError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, "percentage", locked.Field)
}

func TestApply_MarkPaidMaterializesAmount(t *testing.T) {
	// Percentage-only installment gets a concrete amount at the moment
	// of payment, then locks.
	ed := newTestEditor(1000, []schedule.Installment{
		installment("a", 60, 0, schedule.StatusUnpaid),
	})

	res, err := ed.Apply("a", schedule.SetStatus{Value: schedule.StatusPaid})
	require.NoError(t, err)

	ins := res.Installments[0]
	assert.True(t, approxEqual(ins.Amount, dec(600)))
	assert.Equal(t, schedule.StatusPaid, ins.Status)
	assert.Equal(t, "2026-03-15", ins.PaymentDate, "payment date defaults to today")
}

func TestApply_MarkPaidWithExplicitDate(t *testing.T) {
	ed := newTestEditor(1000, []schedule.Installment{
		installment("a", 100, 1000, schedule.StatusUnpaid),
	})

	res, err := ed.Apply("a", schedule.SetStatus{Value: schedule.StatusPaid, PaymentDate: "2026-02-01"})
	require.NoError(t, err)
	assert.Equal(t, "2026-02-01", res.Installments[0].PaymentDate)
}

func TestApply_WriteOffIsPlainTransition(t *testing.T) {
	ed := newTestEditor(1000, []schedule.Installment{
		installment("a", 100, 1000, schedule.StatusUnpaid),
	})

	res, err := ed.Apply("a", schedule.SetStatus{Value: schedule.StatusWriteOff})
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusWriteOff, res.Installments[0].Status)
	assert.Empty(t, res.Installments[0].PaymentDate)
}

func TestApply_SetDescriptionClearsAutoFlag(t *testing.T) {
	ed := newTestEditor(1000, []schedule.Installment{
		{ID: "a", Description: "1st payment", AutoDescription: true, Percentage: dec(100), Status: schedule.StatusUnpaid},
	})

	res, err := ed.Apply("a", schedule.SetDescription{Value: "Deposit"})
	require.NoError(t, err)
	assert.Equal(t, "Deposit", res.Installments[0].Description)
	assert.False(t, res.Installments[0].AutoDescription)
}

func TestSetPaymentDate_IndependentOfStatus(t *testing.T) {
	ed := newTestEditor(1000, []schedule.Installment{
		installment("a", 100, 1000, schedule.StatusUnpaid),
	})

	res, err := ed.SetPaymentDate("a", "2026-06-30")
	require.NoError(t, err)
	assert.Equal(t, "2026-06-30", res.Installments[0].PaymentDate)
	assert.Equal(t, schedule.StatusUnpaid, res.Installments[0].Status)
}

// =============================================================================
// TOTAL CHANGE VIA EDITOR
// =============================================================================

func TestSetTotal_NegativeRemaining_TotalAlsoRolledBack(t *testing.T) {
	ed := newTestEditor(1000, []schedule.Installment{
		installment("a", 100, 1000, schedule.StatusPaid),
	})

	_, err := ed.SetTotal(dec(800))
	require.ErrorIs(t, err, schedule.ErrNegativeRemaining)
	assert.True(t, ed.Total().Equal(dec(1000)), "total must stay in sync with the schedule")
}

func TestSetTotal_Reconciles(t *testing.T) {
	ed := newTestEditor(1000, []schedule.Installment{
		installment("paid", 50, 500, schedule.StatusPaid),
		installment("open", 50, 500, schedule.StatusUnpaid),
	})

	res, err := ed.SetTotal(dec(1200))
	require.NoError(t, err)
	assert.True(t, ed.Total().Equal(dec(1200)))
	assert.True(t, approxEqual(res.Installments[1].Amount, dec(700)))
	assert.NotEmpty(t, res.Notice)
}

// =============================================================================
// READ-ONLY AND DEFAULTS
// =============================================================================

func TestReadOnlyEditor_RejectsAllMutations(t *testing.T) {
	ed := schedule.NewEditor(dec(1000), []schedule.Installment{
		installment("a", 100, 1000, schedule.StatusUnpaid),
	}, schedule.EditorConfig{Editable: false})

	_, err := ed.Add(schedule.AddRequest{DueDate: "2026-04-01", Percentage: dec(10)})
	assert.ErrorIs(t, err, schedule.ErrReadOnly)
	_, err = ed.Remove("a")
	assert.ErrorIs(t, err, schedule.ErrReadOnly)
	_, err = ed.Apply("a", schedule.SetAmount{Value: dec(1)})
	assert.ErrorIs(t, err, schedule.ErrReadOnly)
	_, err = ed.SetTotal(dec(2000))
	assert.ErrorIs(t, err, schedule.ErrReadOnly)

	// Queries still work.
	assert.Len(t, ed.Installments(), 1)
}

func TestEnsureDefault_SeedsSingleFullInstallment(t *testing.T) {
	ed := newTestEditor(1500, nil)

	res, err := ed.EnsureDefault("2026-07-01")
	require.NoError(t, err)
	require.Len(t, res.Installments, 1)

	ins := res.Installments[0]
	assert.True(t, ins.Percentage.Equal(dec(100)))
	assert.True(t, ins.Amount.Equal(dec(1500)))
	assert.Equal(t, "1st payment", ins.Description)
	assert.True(t, res.Check.IsValid)
}

func TestEnsureDefault_NoOpWhenPopulated(t *testing.T) {
	ed := newTestEditor(1000, []schedule.Installment{
		installment("a", 100, 1000, schedule.StatusUnpaid),
	})

	res, err := ed.EnsureDefault("2026-07-01")
	require.NoError(t, err)
	assert.Len(t, res.Installments, 1)
	assert.Equal(t, "a", res.Installments[0].ID)
}
