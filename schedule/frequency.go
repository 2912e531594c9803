package schedule

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD FREQUENCY
// =============================================================================

// PeriodFrequencyType is the unit of a repayment, rate or fee period.
type PeriodFrequencyType string

const (
	FrequencyDays      PeriodFrequencyType = "days"
	FrequencyWeeks     PeriodFrequencyType = "weeks"
	FrequencyMonths    PeriodFrequencyType = "months"
	FrequencyYears     PeriodFrequencyType = "years"
	FrequencyWholeTerm PeriodFrequencyType = "whole_term" // rate quoted for the whole loan term
	FrequencyInvalid   PeriodFrequencyType = "invalid"
)

// Valid reports whether f is a known, non-invalid frequency.
func (f PeriodFrequencyType) Valid() bool {
	switch f {
	case FrequencyDays, FrequencyWeeks, FrequencyMonths, FrequencyYears, FrequencyWholeTerm:
		return true
	}
	return false
}

// Repeatable reports whether f can generate a sequence of dates.
func (f PeriodFrequencyType) Repeatable() bool {
	switch f {
	case FrequencyDays, FrequencyWeeks, FrequencyMonths, FrequencyYears:
		return true
	}
	return false
}

// ParsePeriodFrequencyType maps a stored name to a frequency. Unknown names
// map to FrequencyInvalid with an error.
func ParsePeriodFrequencyType(s string) (PeriodFrequencyType, error) {
	f := PeriodFrequencyType(s)
	if !f.Valid() {
		return FrequencyInvalid, configError("frequency", s, ErrInvalidFrequency)
	}
	return f, nil
}

// =============================================================================
// DAY-COUNT CONVENTIONS
// =============================================================================

// DaysInMonthType selects how many days a month counts for interest.
type DaysInMonthType string

const (
	DaysInMonthInvalid DaysInMonthType = "invalid"
	DaysInMonthActual  DaysInMonthType = "actual"
	DaysInMonth30      DaysInMonthType = "30"
)

func (t DaysInMonthType) Valid() bool {
	return t == DaysInMonthActual || t == DaysInMonth30
}

// DaysInYearType selects how many days a year counts for interest.
type DaysInYearType string

const (
	DaysInYearInvalid DaysInYearType = "invalid"
	DaysInYearActual  DaysInYearType = "actual"
	DaysInYear360     DaysInYearType = "360"
	DaysInYear364     DaysInYearType = "364"
	DaysInYear365     DaysInYearType = "365"
)

func (t DaysInYearType) Valid() bool {
	switch t {
	case DaysInYearActual, DaysInYear360, DaysInYear364, DaysInYear365:
		return true
	}
	return false
}

// =============================================================================
// POSTING PERIODS
// =============================================================================

// PostingPeriodType is how often savings interest is posted or compounded.
type PostingPeriodType string

const (
	PostingInvalid        PostingPeriodType = "invalid"
	PostingDaily          PostingPeriodType = "daily"
	PostingMonthly        PostingPeriodType = "monthly"
	PostingQuarterly      PostingPeriodType = "quarterly"
	PostingBiannual       PostingPeriodType = "biannual"
	PostingAnnual         PostingPeriodType = "annual"
	PostingActivationDate PostingPeriodType = "activation_date" // anchored on account activation
)

func (t PostingPeriodType) Valid() bool {
	switch t {
	case PostingDaily, PostingMonthly, PostingQuarterly, PostingBiannual, PostingAnnual, PostingActivationDate:
		return true
	}
	return false
}

// Months returns the calendar length of a posting period in months, or 0
// for daily and activation-date posting.
func (t PostingPeriodType) Months() int {
	switch t {
	case PostingMonthly:
		return 1
	case PostingQuarterly:
		return 3
	case PostingBiannual:
		return 6
	case PostingAnnual:
		return 12
	}
	return 0
}

// =============================================================================
// RESCHEDULING POLICIES
// =============================================================================

// RescheduleType is what happens to a due date that lands on a holiday or a
// non-working day.
type RescheduleType string

const (
	RescheduleSameDay            RescheduleType = "same_day"
	RescheduleNextWorkingDay     RescheduleType = "move_to_next_working_day"
	ReschedulePreviousWorkingDay RescheduleType = "move_to_previous_working_day"
	RescheduleNextMeetingDay     RescheduleType = "move_to_next_meeting_day"
	RescheduleToSpecifiedDate    RescheduleType = "reschedule_to_specified_date" // holidays only
)

func (t RescheduleType) Valid() bool {
	switch t {
	case RescheduleSameDay, RescheduleNextWorkingDay, ReschedulePreviousWorkingDay,
		RescheduleNextMeetingDay, RescheduleToSpecifiedDate:
		return true
	}
	return false
}

// =============================================================================
// LOAN PRODUCT ENUMS
// =============================================================================

type AmortizationMethod string

const (
	AmortizationEqualPrincipal    AmortizationMethod = "equal_principal"
	AmortizationEqualInstallments AmortizationMethod = "equal_installments"
)

type InterestMethod string

const (
	InterestDecliningBalance InterestMethod = "declining_balance"
	InterestFlat             InterestMethod = "flat"
)

// RepaymentStartDateType picks the date the first period is counted from.
type RepaymentStartDateType string

const (
	RepaymentStartDisbursementDate RepaymentStartDateType = "disbursement_date"
	RepaymentStartSubmittedOnDate  RepaymentStartDateType = "submitted_on_date"
)

type PreClosureInterestStrategy string

const (
	PreClosureTillPreCloseDate      PreClosureInterestStrategy = "till_pre_close_date"
	PreClosureTillRestFrequencyDate PreClosureInterestStrategy = "till_rest_frequency_date"
)

// =============================================================================
// RECURRENCE - frequency x interval
// =============================================================================

// Recurrence repeats every Every units of Frequency. DayOfMonth, when set,
// anchors month and year steps to that day so short months do not pull
// later dates earlier.
type Recurrence struct {
	Frequency  PeriodFrequencyType
	Every      int
	DayOfMonth int
}

// Validate rejects frequencies that cannot repeat and non-positive intervals.
func (r Recurrence) Validate() error {
	if !r.Frequency.Repeatable() {
		return configError("frequency", r.Frequency, ErrInvalidFrequency)
	}
	if r.Every <= 0 {
		return configError("every", r.Every, ErrInvalidInterval)
	}
	if r.DayOfMonth < 0 || r.DayOfMonth > 31 {
		return configError("day_of_month", r.DayOfMonth, ErrInvalidInterval)
	}
	return nil
}

// Next returns the date one period after d.
func (r Recurrence) Next(d Date) (Date, error) {
	return r.Advance(d, 1)
}

// Advance returns the date n periods after d.
func (r Recurrence) Advance(d Date, n int) (Date, error) {
	if err := r.Validate(); err != nil {
		return Date{}, err
	}
	steps := n * r.Every
	switch r.Frequency {
	case FrequencyDays:
		return d.AddDays(steps), nil
	case FrequencyWeeks:
		return d.AddWeeks(steps), nil
	case FrequencyMonths:
		return d.addMonthsAnchored(steps, r.anchor(d)), nil
	case FrequencyYears:
		return d.addMonthsAnchored(12*steps, r.anchor(d)), nil
	}
	return Date{}, configError("frequency", r.Frequency, ErrInvalidFrequency)
}

// AnchoredAt returns r anchored on d's day of month when d is the seed of a
// month or year schedule.
func (r Recurrence) AnchoredAt(d Date) Recurrence {
	if r.Frequency == FrequencyMonths || r.Frequency == FrequencyYears {
		r.DayOfMonth = d.Day()
	}
	return r
}

func (r Recurrence) anchor(d Date) int {
	if r.DayOfMonth > 0 {
		return r.DayOfMonth
	}
	return d.Day()
}

func (r Recurrence) String() string {
	return fmt.Sprintf("every %d %s", r.Every, r.Frequency)
}

// monthOffset returns the number of months from fyBegin to m, in [0,12).
func monthOffset(m, fyBegin time.Month) int {
	return floorMod(int(m)-int(fyBegin), 12)
}
