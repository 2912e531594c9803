package schedule

// =============================================================================
// LOCAL DATE INTERVAL - inclusive [Start, End]
// =============================================================================

// LocalDateInterval is an inclusive range of calendar days.
//
// Examples:
//   - a posting period:    2021-11-14 .. 2021-11-30
//   - a repayment period:  previous due date .. this due date
//   - a holiday:           2023-12-25 .. 2023-12-26
type LocalDateInterval struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// NewLocalDateInterval returns [start, end] or ErrInvalidPeriod when end is
// before start.
func NewLocalDateInterval(start, end Date) (LocalDateInterval, error) {
	i := LocalDateInterval{Start: start, End: end}
	if err := i.Validate(); err != nil {
		return LocalDateInterval{}, err
	}
	return i, nil
}

// Validate enforces Start <= End.
func (i LocalDateInterval) Validate() error {
	if i.End.Before(i.Start) {
		return ErrInvalidPeriod
	}
	return nil
}

// Contains returns true if d is within [Start, End].
func (i LocalDateInterval) Contains(d Date) bool {
	return d.AfterOrEqual(i.Start) && d.BeforeOrEqual(i.End)
}

// NumberOfDays counts the days in the interval, both ends included.
func (i LocalDateInterval) NumberOfDays() int {
	return DaysBetween(i.Start, i.End) + 1
}

// Days returns every day of the interval in order.
func (i LocalDateInterval) Days() []Date {
	var days []Date
	for d := i.Start; d.BeforeOrEqual(i.End); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// Abuts reports whether next starts the day after i ends.
func (i LocalDateInterval) Abuts(next LocalDateInterval) bool {
	return i.End.AddDays(1).Equal(next.Start)
}

func (i LocalDateInterval) String() string {
	return "[" + i.Start.String() + ", " + i.End.String() + "]"
}
