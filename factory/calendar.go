package factory

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/warp/schedule-engine/schedule"
)

// HolidayJSON is the JSON representation of a holiday.
type HolidayJSON struct {
	ID             string   `json:"id,omitempty"`
	Name           string   `json:"name"`
	From           string   `json:"from"`
	To             string   `json:"to,omitempty"` // defaults to from
	RescheduleType string   `json:"reschedule_type,omitempty"`
	RescheduleTo   string   `json:"reschedule_to,omitempty"`
	OfficeIDs      []string `json:"office_ids,omitempty"`
}

// WorkingDaysJSON is the JSON representation of the working-days rule.
type WorkingDaysJSON struct {
	Recurrence                   string `json:"recurrence"`
	RescheduleType               string `json:"reschedule_type,omitempty"`
	ExtendTermForDailyRepayments bool   `json:"extend_term_for_daily_repayments,omitempty"`
}

// CalendarJSON bundles the tenant calendar for seeding a store.
type CalendarJSON struct {
	WorkingDays *WorkingDaysJSON `json:"working_days,omitempty"`
	Holidays    []HolidayJSON    `json:"holidays,omitempty"`
}

// ParseCalendar parses a calendar document. A nil rule means the document
// leaves the working days untouched.
func ParseCalendar(data []byte) (*schedule.WorkingDaysRule, []schedule.Holiday, error) {
	var cj CalendarJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return nil, nil, errors.Wrap(err, "parse calendar JSON")
	}

	var rule *schedule.WorkingDaysRule
	if cj.WorkingDays != nil {
		r, err := WorkingDaysFromJSON(*cj.WorkingDays)
		if err != nil {
			return nil, nil, err
		}
		rule = &r
	}

	holidays := make([]schedule.Holiday, 0, len(cj.Holidays))
	for _, hj := range cj.Holidays {
		h, err := HolidayFromJSON(hj)
		if err != nil {
			return nil, nil, err
		}
		holidays = append(holidays, h)
	}
	return rule, holidays, nil
}

// HolidayFromJSON converts and validates a holiday.
func HolidayFromJSON(hj HolidayJSON) (schedule.Holiday, error) {
	h := schedule.Holiday{
		ID:             hj.ID,
		Name:           hj.Name,
		RescheduleType: schedule.RescheduleType(hj.RescheduleType),
		OfficeIDs:      hj.OfficeIDs,
	}
	var err error
	if h.From, err = parseDate("holiday.from", hj.From); err != nil {
		return h, err
	}
	h.To = h.From
	if hj.To != "" {
		if h.To, err = parseDate("holiday.to", hj.To); err != nil {
			return h, err
		}
	}
	if h.RescheduleTo, err = parseDate("holiday.reschedule_to", hj.RescheduleTo); err != nil {
		return h, err
	}
	if err := h.Validate(); err != nil {
		return h, err
	}
	return h, nil
}

// WorkingDaysFromJSON parses the rule.
func WorkingDaysFromJSON(wj WorkingDaysJSON) (schedule.WorkingDaysRule, error) {
	return schedule.NewWorkingDaysRule(
		or(wj.Recurrence, schedule.DefaultWorkingDays),
		schedule.RescheduleType(wj.RescheduleType),
		wj.ExtendTermForDailyRepayments,
	)
}
