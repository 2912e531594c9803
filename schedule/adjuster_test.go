package schedule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/schedule-engine/schedule"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var monthly = schedule.Recurrence{Frequency: schedule.FrequencyMonths, Every: 1}

func weekdaysRule(t *testing.T, policy schedule.RescheduleType, extend bool) schedule.WorkingDaysRule {
	t.Helper()
	rule, err := schedule.NewWorkingDaysRule(schedule.DefaultWorkingDays, policy, extend)
	require.NoError(t, err)
	return rule
}

func holidays(t *testing.T, hs ...schedule.Holiday) schedule.HolidayCalendar {
	t.Helper()
	cal, err := schedule.NewHolidayCalendar(hs...)
	require.NoError(t, err)
	return cal
}

// =============================================================================
// ADJUSTMENT TESTS
// =============================================================================

func TestAdjustDueDate_NoHolidays_IndependentOfTimeZone(t *testing.T) {
	// GIVEN: A monthly loan disbursed 2023-10-26 with no holidays
	// WHEN: Adjusting the nominal due date 2023-11-26 under different tenant zones
	// THEN: The result is the same calendar dates everywhere

	now := time.Date(2023, time.November, 1, 23, 0, 0, 0, time.UTC)
	zones := []*time.Location{
		time.UTC,
		time.FixedZone("IST", 5*60*60+30*60),
		time.FixedZone("HST", -10*60*60),
	}
	for _, loc := range zones {
		cal := schedule.NewCalendarContext(loc, now, schedule.WorkingDaysRule{}, schedule.HolidayCalendar{})

		got, err := schedule.AdjustDueDate(d("2023-11-26"), monthly, cal)
		require.NoError(t, err)
		assert.Equal(t, schedule.AdjustedDateDetails{
			ScheduleDate:               d("2023-11-26"),
			ActualRepaymentDate:        d("2023-11-26"),
			NextRepaymentPeriodDueDate: d("2023-12-26"),
		}, got, "zone %s", loc)
	}
}

func TestAdjustDueDate_WeekendPolicies(t *testing.T) {
	cases := []struct {
		policy schedule.RescheduleType
		want   string
	}{
		{schedule.RescheduleSameDay, "2023-11-25"},
		{schedule.RescheduleNextWorkingDay, "2023-11-27"},
		{schedule.ReschedulePreviousWorkingDay, "2023-11-24"},
	}
	for _, tc := range cases {
		cal := schedule.CalendarContext{WorkingDays: weekdaysRule(t, tc.policy, false)}

		// 2023-11-25 is a Saturday
		got, err := schedule.AdjustDueDate(d("2023-11-25"), monthly, cal)
		require.NoError(t, err, tc.policy)
		assert.Equal(t, d("2023-11-25"), got.ScheduleDate)
		assert.Equal(t, d(tc.want), got.ActualRepaymentDate, tc.policy)
		assert.Equal(t, d("2023-12-25"), got.NextRepaymentPeriodDueDate, tc.policy)
	}
}

func TestAdjustDueDate_HolidayFallsBackToWorkingDayPolicy(t *testing.T) {
	// GIVEN: Christmas holiday without its own policy
	// THEN: The working-days policy (next working day) applies

	cal := schedule.CalendarContext{
		WorkingDays: weekdaysRule(t, schedule.RescheduleNextWorkingDay, false),
		Holidays: holidays(t, schedule.Holiday{
			ID: "xmas", From: d("2023-12-25"), To: d("2023-12-26"),
		}),
	}

	got, err := schedule.AdjustDueDate(d("2023-12-25"), monthly, cal)
	require.NoError(t, err)
	assert.Equal(t, d("2023-12-27"), got.ActualRepaymentDate)
	assert.Equal(t, d("2024-01-25"), got.NextRepaymentPeriodDueDate)
	assert.True(t, got.Moved())
}

func TestAdjustDueDate_HolidayWalkSkipsClosedDays(t *testing.T) {
	// GIVEN: A Monday to Friday week whose own policy keeps due dates in place,
	//        and holidays that move to the next or previous working day
	// WHEN: The walk off the holiday crosses a weekend, more holidays, or a
	//       holiday that keeps its due dates
	// THEN: It only stops on a working day that no holiday covers
	//
	// November 2023: Thu 23, Fri 24, Sat 25, Sun 26, Mon 27, Tue 28, Wed 29

	next := schedule.RescheduleNextWorkingDay
	previous := schedule.ReschedulePreviousWorkingDay
	sameDay := schedule.RescheduleSameDay
	holiday := func(id, from, to string, policy schedule.RescheduleType) schedule.Holiday {
		return schedule.Holiday{ID: id, From: d(from), To: d(to), RescheduleType: policy}
	}

	tests := []struct {
		name     string
		holidays []schedule.Holiday
		nominal  string
		want     string
	}{
		{
			name:     "next across the weekend",
			holidays: []schedule.Holiday{holiday("fri", "2023-11-24", "2023-11-24", next)},
			nominal:  "2023-11-24",
			want:     "2023-11-27",
		},
		{
			name:     "previous across the weekend",
			holidays: []schedule.Holiday{holiday("mon", "2023-11-27", "2023-11-27", previous)},
			nominal:  "2023-11-27",
			want:     "2023-11-24",
		},
		{
			name: "next across the weekend and a run of holidays",
			holidays: []schedule.Holiday{
				holiday("fri", "2023-11-24", "2023-11-24", next),
				holiday("mon-tue", "2023-11-27", "2023-11-28", ""),
			},
			nominal: "2023-11-24",
			want:    "2023-11-29",
		},
		{
			name: "previous across the weekend and a run of holidays",
			holidays: []schedule.Holiday{
				holiday("mon", "2023-11-27", "2023-11-27", previous),
				holiday("thu-fri", "2023-11-23", "2023-11-24", ""),
			},
			nominal: "2023-11-27",
			want:    "2023-11-22",
		},
		{
			name: "next over a same-day holiday",
			holidays: []schedule.Holiday{
				holiday("thu", "2023-11-23", "2023-11-23", next),
				holiday("fri", "2023-11-24", "2023-11-24", sameDay),
			},
			nominal: "2023-11-23",
			want:    "2023-11-27",
		},
		{
			name: "previous over a same-day holiday",
			holidays: []schedule.Holiday{
				holiday("mon", "2023-11-27", "2023-11-27", previous),
				holiday("fri", "2023-11-24", "2023-11-24", sameDay),
			},
			nominal: "2023-11-27",
			want:    "2023-11-23",
		},
		{
			name:     "same-day holiday as the nominal date stays",
			holidays: []schedule.Holiday{holiday("fri", "2023-11-24", "2023-11-24", sameDay)},
			nominal:  "2023-11-24",
			want:     "2023-11-24",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cal := schedule.CalendarContext{
				WorkingDays: weekdaysRule(t, schedule.RescheduleSameDay, false),
				Holidays:    holidays(t, tt.holidays...),
			}

			got, err := schedule.AdjustDueDate(d(tt.nominal), monthly, cal)
			require.NoError(t, err)
			assert.Equal(t, d(tt.want), got.ActualRepaymentDate)
			assert.Equal(t, d(tt.nominal), got.ScheduleDate)
		})
	}
}

func TestAdjustDueDate_HolidayRescheduledToSpecifiedDate(t *testing.T) {
	cal := schedule.CalendarContext{
		WorkingDays: weekdaysRule(t, schedule.ReschedulePreviousWorkingDay, false),
		Holidays: holidays(t, schedule.Holiday{
			ID:             "xmas",
			From:           d("2023-12-25"),
			To:             d("2023-12-26"),
			RescheduleType: schedule.RescheduleToSpecifiedDate,
			RescheduleTo:   d("2023-12-28"),
		}),
	}

	got, err := schedule.AdjustDueDate(d("2023-12-26"), monthly, cal)
	require.NoError(t, err)
	assert.Equal(t, d("2023-12-28"), got.ActualRepaymentDate)
}

func TestAdjustDueDate_SpecifiedDateOnWeekendIsAdjustedAgain(t *testing.T) {
	// GIVEN: A holiday rescheduled onto a Saturday
	// THEN: The working-days policy moves it on to Monday

	cal := schedule.CalendarContext{
		WorkingDays: weekdaysRule(t, schedule.RescheduleNextWorkingDay, false),
		Holidays: holidays(t, schedule.Holiday{
			ID:             "xmas",
			From:           d("2023-12-25"),
			To:             d("2023-12-26"),
			RescheduleType: schedule.RescheduleToSpecifiedDate,
			RescheduleTo:   d("2023-12-30"),
		}),
	}

	got, err := schedule.AdjustDueDate(d("2023-12-25"), monthly, cal)
	require.NoError(t, err)
	assert.Equal(t, d("2024-01-01"), got.ActualRepaymentDate)
}

func TestAdjustDueDate_ShiftCascadesIntoNextPeriod(t *testing.T) {
	// GIVEN: A weekly schedule and a two-week closure
	// WHEN: The adjusted date passes the next nominal date
	// THEN: The next due date is counted from the adjusted date

	weekly := schedule.Recurrence{Frequency: schedule.FrequencyWeeks, Every: 1}
	cal := schedule.CalendarContext{
		WorkingDays: weekdaysRule(t, schedule.RescheduleNextWorkingDay, false),
		Holidays: holidays(t, schedule.Holiday{
			ID: "closure", From: d("2023-12-18"), To: d("2023-12-29"),
		}),
	}

	got, err := schedule.AdjustDueDate(d("2023-12-18"), weekly, cal)
	require.NoError(t, err)
	assert.Equal(t, d("2024-01-01"), got.ActualRepaymentDate)
	assert.Equal(t, d("2024-01-08"), got.NextRepaymentPeriodDueDate)
}

func TestAdjustDueDate_ExtendTermForDailyRepayments(t *testing.T) {
	// GIVEN: Daily repayments with extend-term and a same-day policy
	// THEN: Weekends still move forward and the shift is carried

	daily := schedule.Recurrence{Frequency: schedule.FrequencyDays, Every: 1}
	cal := schedule.CalendarContext{WorkingDays: weekdaysRule(t, schedule.RescheduleSameDay, true)}

	got, err := schedule.AdjustDueDate(d("2023-11-25"), daily, cal)
	require.NoError(t, err)
	assert.Equal(t, d("2023-11-27"), got.ActualRepaymentDate)
	assert.Equal(t, d("2023-11-28"), got.NextRepaymentPeriodDueDate)

	// Every two days is not a daily schedule: the flag does not apply.
	everyOther := schedule.Recurrence{Frequency: schedule.FrequencyDays, Every: 2}
	got, err = schedule.AdjustDueDate(d("2023-11-25"), everyOther, cal)
	require.NoError(t, err)
	assert.Equal(t, d("2023-11-25"), got.ActualRepaymentDate)
}

func TestAdjustDueDate_NextMeetingDay(t *testing.T) {
	meetings, err := schedule.NewRecurringMeetingCalendar("FREQ=WEEKLY;INTERVAL=1;BYDAY=TH", d("2023-11-02"))
	require.NoError(t, err)

	cal := schedule.CalendarContext{
		WorkingDays: weekdaysRule(t, schedule.RescheduleNextMeetingDay, false),
		Meetings:    meetings,
	}

	got, err := schedule.AdjustDueDate(d("2023-11-25"), monthly, cal)
	require.NoError(t, err)
	assert.Equal(t, d("2023-11-30"), got.ActualRepaymentDate)
}

func TestAdjustDueDate_NoMeetingDateIsDomainError(t *testing.T) {
	// GIVEN: Meeting-day policy but no meeting calendar
	// THEN: A domain rule error carrying the offending date

	cal := schedule.CalendarContext{WorkingDays: weekdaysRule(t, schedule.RescheduleNextMeetingDay, false)}

	_, err := schedule.AdjustDueDate(d("2023-11-25"), monthly, cal)
	require.Error(t, err)
	assert.ErrorIs(t, err, schedule.ErrNoMeetingDate)

	var domainErr *schedule.DomainRuleError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, d("2023-11-25"), domainErr.Date)

	cal.Meetings = schedule.MeetingCalendarFunc(func(schedule.Date) (schedule.Date, bool) {
		return schedule.Date{}, false
	})
	_, err = schedule.AdjustDueDate(d("2023-11-25"), monthly, cal)
	assert.True(t, schedule.IsDomainRuleError(err))
}

func TestAdjustDueDate_NeverSettlingIsConfigurationError(t *testing.T) {
	cal := schedule.CalendarContext{
		WorkingDays: weekdaysRule(t, schedule.RescheduleNextWorkingDay, false),
		Holidays: holidays(t, schedule.Holiday{
			ID: "forever", From: d("2023-01-01"), To: d("2025-12-31"),
		}),
	}

	_, err := schedule.AdjustDueDate(d("2023-06-01"), monthly, cal)
	assert.ErrorIs(t, err, schedule.ErrAdjustmentLoop)
	assert.True(t, schedule.IsConfigurationError(err))
}

func TestAdjustDueDate_SpecifiedDateCycleIsConfigurationError(t *testing.T) {
	cal := schedule.CalendarContext{
		Holidays: holidays(t,
			schedule.Holiday{ID: "a", From: d("2023-12-25"), To: d("2023-12-25"),
				RescheduleType: schedule.RescheduleToSpecifiedDate, RescheduleTo: d("2023-12-27")},
			schedule.Holiday{ID: "b", From: d("2023-12-27"), To: d("2023-12-27"),
				RescheduleType: schedule.RescheduleToSpecifiedDate, RescheduleTo: d("2023-12-25")},
		),
	}

	_, err := schedule.AdjustDueDate(d("2023-12-25"), monthly, cal)
	assert.ErrorIs(t, err, schedule.ErrAdjustmentLoop)
}

func TestAdjustDueDate_Idempotent(t *testing.T) {
	// GIVEN: A date already adjusted off a weekend and a holiday
	// WHEN: Adjusting the result again
	// THEN: It comes back unchanged

	cal := schedule.CalendarContext{
		WorkingDays: weekdaysRule(t, schedule.RescheduleNextWorkingDay, false),
		Holidays: holidays(t, schedule.Holiday{
			ID: "xmas", From: d("2023-12-25"), To: d("2023-12-26"),
		}),
	}

	for _, nominal := range []string{"2023-12-23", "2023-12-25", "2023-11-26", "2023-11-27"} {
		first, err := schedule.AdjustDueDate(d(nominal), monthly, cal)
		require.NoError(t, err)

		again, err := schedule.AdjustDueDate(first.ActualRepaymentDate, monthly, cal)
		require.NoError(t, err)
		assert.Equal(t, first.ActualRepaymentDate, again.ActualRepaymentDate, nominal)
		assert.False(t, again.Moved(), nominal)
	}
}

func TestAdjustDueDate_InvalidRecurrence(t *testing.T) {
	_, err := schedule.AdjustDueDate(d("2023-11-26"), schedule.Recurrence{Frequency: schedule.FrequencyInvalid, Every: 1}, schedule.CalendarContext{})
	assert.ErrorIs(t, err, schedule.ErrInvalidFrequency)

	_, err = schedule.AdjustDueDate(d("2023-11-26"), schedule.Recurrence{Frequency: schedule.FrequencyMonths}, schedule.CalendarContext{})
	assert.ErrorIs(t, err, schedule.ErrInvalidInterval)
}
