package schedule

// =============================================================================
// DUE DATE ADJUSTMENT
// =============================================================================

const (
	// MaxScanDays bounds a walk to the next or previous working day.
	MaxScanDays = 366

	// MaxResolutionPasses bounds jumps to meeting days and specified dates,
	// each of which may land on another holiday.
	MaxResolutionPasses = 32
)

// AdjustedDateDetails is the outcome of adjusting one due date.
//
//   - ScheduleDate is the nominal date from the repayment grid.
//   - ActualRepaymentDate is where the installment is actually due.
//   - NextRepaymentPeriodDueDate seeds the following period.
type AdjustedDateDetails struct {
	ScheduleDate               Date `json:"schedule_date"`
	ActualRepaymentDate        Date `json:"actual_repayment_date"`
	NextRepaymentPeriodDueDate Date `json:"next_repayment_period_due_date"`
}

// Moved reports whether adjustment changed the nominal date.
func (a AdjustedDateDetails) Moved() bool {
	return !a.ScheduleDate.Equal(a.ActualRepaymentDate)
}

// AdjustDueDate moves nominal off holidays and non-working days and works
// out the next nominal due date for rec.
//
// Holidays are resolved before working days. A holiday without its own
// policy uses the working-days policy. Resolution repeats until the date is
// stable. When the actual date reaches or passes the next nominal date, the
// next date is recomputed from the actual date. Daily schedules with the
// extend-term flag always move to the next working day and carry the shift.
func AdjustDueDate(nominal Date, rec Recurrence, cal CalendarContext) (AdjustedDateDetails, error) {
	next, err := rec.Next(nominal)
	if err != nil {
		return AdjustedDateDetails{}, err
	}
	extend := extendsTerm(rec, cal.WorkingDays)

	actual, err := cal.resolve(nominal, extend)
	if err != nil {
		return AdjustedDateDetails{}, err
	}

	details := AdjustedDateDetails{
		ScheduleDate:               nominal,
		ActualRepaymentDate:        actual,
		NextRepaymentPeriodDueDate: next,
	}
	if extend || !actual.Before(next) {
		if details.NextRepaymentPeriodDueDate, err = rec.Next(actual); err != nil {
			return AdjustedDateDetails{}, err
		}
	}
	return details, nil
}

func extendsTerm(rec Recurrence, wd WorkingDaysRule) bool {
	return wd.ExtendTermForDailyRepayments && rec.Frequency == FrequencyDays && rec.Every == 1
}

// policyFor returns the policy that applies to d, or same-day when d needs
// no move. The holiday is returned when it decided the policy.
func (c CalendarContext) policyFor(d Date, extend bool) (RescheduleType, *Holiday) {
	if h, ok := c.Holidays.HolidayOn(d); ok {
		policy := h.RescheduleType
		if policy == "" {
			policy = c.WorkingDays.Policy()
		}
		if policy != RescheduleSameDay {
			return policy, &h
		}
	}
	if !c.WorkingDays.IsWorkingDay(d) {
		if extend {
			return RescheduleNextWorkingDay, nil
		}
		return c.WorkingDays.Policy(), nil
	}
	return RescheduleSameDay, nil
}

func (c CalendarContext) resolve(d Date, extend bool) (Date, error) {
	for pass := 0; pass < MaxResolutionPasses; pass++ {
		policy, holiday := c.policyFor(d, extend)
		switch policy {
		case RescheduleSameDay:
			return d, nil

		case RescheduleNextWorkingDay:
			return c.walk(d, 1)

		case ReschedulePreviousWorkingDay:
			return c.walk(d, -1)

		case RescheduleNextMeetingDay:
			if c.Meetings == nil {
				return Date{}, &DomainRuleError{Rule: "move to next meeting day", Date: d, Err: ErrNoMeetingDate}
			}
			meeting, ok := c.Meetings.NextMeetingDate(d)
			if !ok || !meeting.After(d) {
				return Date{}, &DomainRuleError{Rule: "move to next meeting day", Date: d, Err: ErrNoMeetingDate}
			}
			d = meeting

		case RescheduleToSpecifiedDate:
			if holiday == nil || holiday.RescheduleTo.IsZero() {
				return Date{}, configError("reschedule_to", d, ErrInvalidPeriod)
			}
			if holiday.Contains(holiday.RescheduleTo) {
				return Date{}, configError("holiday."+holiday.ID+".reschedule_to", holiday.RescheduleTo, ErrAdjustmentLoop)
			}
			d = holiday.RescheduleTo

		default:
			return Date{}, configError("reschedule_type", policy, ErrInvalidRecurrence)
		}
	}
	return Date{}, configError("due_date", d, ErrAdjustmentLoop)
}

// walk steps one day at a time in direction dir until it reaches a working
// day that no holiday covers. Same-day holidays and non-working days on the
// way are stepped over whatever their own policy.
func (c CalendarContext) walk(from Date, dir int) (Date, error) {
	d := from
	for i := 0; i < MaxScanDays; i++ {
		d = d.AddDays(dir)
		if c.isOpen(d) {
			return d, nil
		}
	}
	return Date{}, configError("due_date", from, ErrAdjustmentLoop)
}
