/*
calendar.go - Tenant calendar snapshot: working days, holidays, meetings

PURPOSE:
  The engine never reads calendars from a global or a database. Callers
  assemble a CalendarContext per call (usually from the store, see
  config.CalendarContext) and pass it into every operation that adjusts
  dates. The snapshot is immutable for the duration of the call.

WORKING DAYS:
  Expressed as an RFC-5545 weekly rule, e.g.
    FREQ=WEEKLY;INTERVAL=1;BYDAY=MO,TU,WE,TH,FR
  A day is a working day if its weekday is listed in BYDAY. The zero
  WorkingDaysRule treats every day as a working day.

HOLIDAYS:
  Inclusive date ranges with their own reschedule policy and optional
  office scope. A holiday without a policy falls back to the working-days
  policy. RESCHEDULE_TO_SPECIFIED_DATE moves the due date to the holiday's
  RescheduleTo date.

MEETINGS:
  Group and center loans may repay on meeting days. MeetingCalendar supplies
  the next meeting on or after a date; RecurringMeetingCalendar derives it
  from an RRULE such as FREQ=WEEKLY;INTERVAL=2;BYDAY=TH.

SEE ALSO:
  - adjuster.go: Applies these rules to a single due date
  - store/sqlite/sqlite.go: Persists holidays and the working-days rule
*/
package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// =============================================================================
// WORKING DAYS
// =============================================================================

// DefaultWorkingDays is Monday to Friday.
const DefaultWorkingDays = "FREQ=WEEKLY;INTERVAL=1;BYDAY=MO,TU,WE,TH,FR"

// WorkingDaysRule decides which weekdays are working days and what happens
// to a due date that lands on any other day.
type WorkingDaysRule struct {
	Recurrence     string
	RescheduleType RescheduleType

	// ExtendTermForDailyRepayments carries a working-day shift forward for
	// daily schedules instead of snapping back to the nominal grid.
	ExtendTermForDailyRepayments bool

	closed [7]bool // indexed by time.Weekday
}

// NewWorkingDaysRule parses recurrence (a weekly RRULE with BYDAY).
func NewWorkingDaysRule(recurrence string, policy RescheduleType, extendTerm bool) (WorkingDaysRule, error) {
	rule := WorkingDaysRule{
		Recurrence:                   recurrence,
		RescheduleType:               policy,
		ExtendTermForDailyRepayments: extendTerm,
	}
	if policy != "" && !policy.Valid() {
		return WorkingDaysRule{}, configError("working_days.reschedule_type", policy, ErrInvalidRecurrence)
	}
	if policy == RescheduleToSpecifiedDate {
		return WorkingDaysRule{}, configError("working_days.reschedule_type", policy, ErrInvalidRecurrence)
	}
	opt, err := rrule.StrToROption(strings.TrimSpace(recurrence))
	if err != nil {
		return WorkingDaysRule{}, configError("working_days.recurrence", recurrence, fmt.Errorf("%w: %v", ErrInvalidRecurrence, err))
	}
	if opt.Freq != rrule.WEEKLY || len(opt.Byweekday) == 0 {
		return WorkingDaysRule{}, configError("working_days.recurrence", recurrence, ErrInvalidRecurrence)
	}
	for i := range rule.closed {
		rule.closed[i] = true
	}
	for _, wd := range opt.Byweekday {
		day := wd
		// rrule counts Monday as 0.
		rule.closed[(day.Day()+1)%7] = false
	}
	return rule, nil
}

// IsWorkingDay reports whether d's weekday is a working day.
func (r WorkingDaysRule) IsWorkingDay(d Date) bool {
	return !r.closed[d.Weekday()]
}

// Policy returns the reschedule policy, defaulting to same day.
func (r WorkingDaysRule) Policy() RescheduleType {
	if r.RescheduleType == "" {
		return RescheduleSameDay
	}
	return r.RescheduleType
}

// WorkingWeekdays lists the working weekdays in Sunday-first order.
func (r WorkingDaysRule) WorkingWeekdays() []time.Weekday {
	var days []time.Weekday
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if !r.closed[wd] {
			days = append(days, wd)
		}
	}
	return days
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// Holiday is an inclusive range of non-working days.
type Holiday struct {
	ID             string
	Name           string
	From           Date
	To             Date
	RescheduleType RescheduleType // empty = use the working-days policy
	RescheduleTo   Date           // required for RescheduleToSpecifiedDate
	OfficeIDs      []string       // empty = all offices
}

// Validate checks the range and the policy fields.
func (h Holiday) Validate() error {
	if h.From.IsZero() || h.To.IsZero() || h.To.Before(h.From) {
		return configError("holiday."+h.ID+".range", h.From.String()+".."+h.To.String(), ErrInvalidPeriod)
	}
	if h.RescheduleType != "" && !h.RescheduleType.Valid() {
		return configError("holiday."+h.ID+".reschedule_type", h.RescheduleType, ErrInvalidRecurrence)
	}
	if h.RescheduleType == RescheduleToSpecifiedDate && h.RescheduleTo.IsZero() {
		return configError("holiday."+h.ID+".reschedule_to", "", ErrInvalidPeriod)
	}
	return nil
}

// Contains returns true if d falls within the holiday.
func (h Holiday) Contains(d Date) bool {
	return d.AfterOrEqual(h.From) && d.BeforeOrEqual(h.To)
}

// AppliesTo reports whether the holiday covers officeID.
func (h Holiday) AppliesTo(officeID string) bool {
	if len(h.OfficeIDs) == 0 {
		return true
	}
	for _, id := range h.OfficeIDs {
		if id == officeID {
			return true
		}
	}
	return false
}

// HolidayCalendar is an immutable snapshot of holidays ordered by start date.
type HolidayCalendar struct {
	holidays []Holiday
}

// NewHolidayCalendar validates and orders holidays.
func NewHolidayCalendar(holidays ...Holiday) (HolidayCalendar, error) {
	sorted := make([]Holiday, 0, len(holidays))
	for _, h := range holidays {
		if err := h.Validate(); err != nil {
			return HolidayCalendar{}, err
		}
		sorted = append(sorted, h)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].From.Before(sorted[j].From)
	})
	return HolidayCalendar{holidays: sorted}, nil
}

// ForOffice returns the holidays that apply to officeID.
func (c HolidayCalendar) ForOffice(officeID string) HolidayCalendar {
	var scoped []Holiday
	for _, h := range c.holidays {
		if h.AppliesTo(officeID) {
			scoped = append(scoped, h)
		}
	}
	return HolidayCalendar{holidays: scoped}
}

// HolidayOn returns the first holiday covering d.
func (c HolidayCalendar) HolidayOn(d Date) (Holiday, bool) {
	for _, h := range c.holidays {
		if h.From.After(d) {
			break
		}
		if h.Contains(d) {
			return h, true
		}
	}
	return Holiday{}, false
}

// IsHoliday reports whether any holiday covers d.
func (c HolidayCalendar) IsHoliday(d Date) bool {
	_, ok := c.HolidayOn(d)
	return ok
}

// Holidays returns a copy of the ordered holidays.
func (c HolidayCalendar) Holidays() []Holiday {
	return append([]Holiday(nil), c.holidays...)
}

func (c HolidayCalendar) Len() int { return len(c.holidays) }

// =============================================================================
// MEETINGS
// =============================================================================

// MeetingCalendar supplies meeting dates for group and center loans.
type MeetingCalendar interface {
	// NextMeetingDate returns the first meeting strictly after d.
	NextMeetingDate(d Date) (Date, bool)
}

// MeetingCalendarFunc adapts a function to MeetingCalendar.
type MeetingCalendarFunc func(d Date) (Date, bool)

func (f MeetingCalendarFunc) NextMeetingDate(d Date) (Date, bool) { return f(d) }

// RecurringMeetingCalendar generates meetings from an RRULE anchored on a
// start date.
type RecurringMeetingCalendar struct {
	rule *rrule.RRule
}

// NewRecurringMeetingCalendar parses recurrence and anchors it on start.
func NewRecurringMeetingCalendar(recurrence string, start Date) (*RecurringMeetingCalendar, error) {
	opt, err := rrule.StrToROption(strings.TrimSpace(recurrence))
	if err != nil {
		return nil, configError("meeting.recurrence", recurrence, fmt.Errorf("%w: %v", ErrInvalidRecurrence, err))
	}
	opt.Dtstart = start.Time()
	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, configError("meeting.recurrence", recurrence, fmt.Errorf("%w: %v", ErrInvalidRecurrence, err))
	}
	return &RecurringMeetingCalendar{rule: rule}, nil
}

func (m *RecurringMeetingCalendar) NextMeetingDate(d Date) (Date, bool) {
	next := m.rule.After(d.Time(), false)
	if next.IsZero() {
		return Date{}, false
	}
	return DateOf(next, time.UTC), true
}

// =============================================================================
// CALENDAR CONTEXT
// =============================================================================

// CalendarContext is the per-call tenant snapshot. Location is the tenant
// time zone used only to derive BusinessDate from an instant; all engine
// arithmetic is on civil dates.
type CalendarContext struct {
	Location     *time.Location
	BusinessDate Date
	WorkingDays  WorkingDaysRule
	Holidays     HolidayCalendar
	Meetings     MeetingCalendar // optional
}

// NewCalendarContext derives the business date from now in loc.
func NewCalendarContext(loc *time.Location, now time.Time, workingDays WorkingDaysRule, holidays HolidayCalendar) CalendarContext {
	if loc == nil {
		loc = time.UTC
	}
	return CalendarContext{
		Location:     loc,
		BusinessDate: DateOf(now, loc),
		WorkingDays:  workingDays,
		Holidays:     holidays,
	}
}

// isOpen reports whether d is a working day and not a holiday.
func (c CalendarContext) isOpen(d Date) bool {
	return c.WorkingDays.IsWorkingDay(d) && !c.Holidays.IsHoliday(d)
}
