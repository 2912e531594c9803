package overdue_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/schedule-engine/overdue"
	"github.com/warp/schedule-engine/schedule"
)

func chargeDates(charges []overdue.PenaltyCharge) []string {
	out := make([]string, len(charges))
	for i, c := range charges {
		out[i] = c.ChargeDate.String()
	}
	return out
}

func TestPenaltyDates_OneOffPenalty(t *testing.T) {
	// GIVEN: Due Jan 10, 2-day wait period, no grace on posting
	// THEN: One charge dated back to the due date

	charges, err := overdue.PenaltyDates(overdueOn(1, 3, "2024-01-10"), backdated("2024-01-20"))
	require.NoError(t, err)
	require.Len(t, charges, 1)
	assert.Equal(t, overdue.PenaltyCharge{
		LoanID:            1,
		InstallmentNumber: 3,
		ChargeID:          7,
		FrequencyNumber:   1,
		ChargeDate:        date("2024-01-10"),
	}, charges[0])
}

func TestPenaltyDates_GraceOnPostingShortensBackdating(t *testing.T) {
	opts := backdated("2024-01-20")
	opts.GraceOnPostingDays = 5

	charges, err := overdue.PenaltyDates(overdueOn(1, 1, "2024-01-10"), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-12"}, chargeDates(charges))
}

func TestPenaltyDates_RecurringPenalty(t *testing.T) {
	// GIVEN: A weekly penalty on an installment due Jan 10
	// THEN: Occurrences start Jan 13, 20, 27 and are dated 3 days earlier

	inst := overdueOn(1, 1, "2024-01-10")
	inst.Penalty = &schedule.Recurrence{Frequency: schedule.FrequencyWeeks, Every: 1}

	charges, err := overdue.PenaltyDates(inst, backdated("2024-01-27"))
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-10", "2024-01-17", "2024-01-24"}, chargeDates(charges))
	assert.Equal(t, 3, charges[2].FrequencyNumber)

	inst.AppliedFrequencies = []int{1, 2}
	charges, err = overdue.PenaltyDates(inst, backdated("2024-01-27"))
	require.NoError(t, err)
	require.Len(t, charges, 1)
	assert.Equal(t, 3, charges[0].FrequencyNumber)
}

func TestPenaltyDates_WithoutBackdating(t *testing.T) {
	// GIVEN: Backdating disabled
	// THEN: Only the occurrence starting today is charged, dated today

	inst := overdueOn(1, 1, "2024-01-10")
	inst.Penalty = &schedule.Recurrence{Frequency: schedule.FrequencyWeeks, Every: 1}
	opts := overdue.PenaltyOptions{WaitPeriodDays: 2, BusinessDate: date("2024-01-20")}

	charges, err := overdue.PenaltyDates(inst, opts)
	require.NoError(t, err)
	require.Len(t, charges, 1)
	assert.Equal(t, 2, charges[0].FrequencyNumber)
	assert.Equal(t, date("2024-01-20"), charges[0].ChargeDate)

	opts.BusinessDate = date("2024-01-21")
	charges, err = overdue.PenaltyDates(inst, opts)
	require.NoError(t, err)
	assert.Empty(t, charges)
}

func TestPenaltyDates_WithinWaitPeriod(t *testing.T) {
	charges, err := overdue.PenaltyDates(overdueOn(1, 1, "2024-01-10"), backdated("2024-01-12"))
	require.NoError(t, err)
	assert.Empty(t, charges)

	opts := backdated("2024-01-13")
	assert.True(t, opts.Eligible(overdueOn(1, 1, "2024-01-10")))
}

func TestPenaltyDates_InvalidFeeRecurrence(t *testing.T) {
	inst := overdueOn(1, 1, "2024-01-10")
	inst.Penalty = &schedule.Recurrence{Frequency: schedule.FrequencyWholeTerm, Every: 1}

	_, err := overdue.PenaltyDates(inst, backdated("2024-01-27"))
	assert.ErrorIs(t, err, schedule.ErrInvalidFrequency)
}
