/*
date.go - Civil dates for schedule generation

PURPOSE:
  Every date the engine produces or consumes is a calendar day with no time
  of day and no zone. A Date is stored as midnight UTC so that arithmetic and
  comparison never depend on the host or tenant time zone. Conversion from an
  instant happens once, at the edge, via DateOf(t, tenantLocation).

MONTH ARITHMETIC:
  time.AddDate normalizes overflow (Jan 31 + 1 month = Mar 3). Schedules need
  the opposite: clamp to the last day of the target month (Jan 31 -> Feb 29).
  AddMonths and AddYears clamp. Recurrence.Next re-anchors to the original
  day-of-month so that clamping does not drift across later periods.

SEE ALSO:
  - interval.go: LocalDateInterval built from two Dates
  - frequency.go: Recurrence.Next uses AddMonths/AddYears
*/
package schedule

import (
	"time"
)

// =============================================================================
// DATE
// =============================================================================

// DateLayout is the ISO-8601 calendar date layout used for parsing and output.
const DateLayout = "2006-01-02"

// Date is a calendar day. The zero value is "no date".
type Date struct {
	t time.Time
}

// NewDate returns the given calendar day. Out-of-range days normalize the
// way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of instant t as observed in loc.
// A nil loc means UTC.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return NewDate(local.Year(), local.Month(), local.Day())
}

// Today returns the current calendar day in loc.
func Today(loc *time.Location) Date {
	return DateOf(time.Now(), loc)
}

// ParseDate parses a "2006-01-02" date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t: t}, nil
}

// MustParseDate is ParseDate for literals; it panics on malformed input.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.t.After(other.t) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.t.Before(other.t) }
func (d Date) IsZero() bool                  { return d.t.IsZero() }

// Compare returns -1, 0 or +1.
func (d Date) Compare(other Date) int { return d.t.Compare(other.t) }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) YearDay() int          { return d.t.YearDay() }
func (d Date) Time() time.Time       { return d.t }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty input is the zero Date.
func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// LengthOfMonth returns the number of days in d's month.
func (d Date) LengthOfMonth() int {
	return daysIn(d.Year(), d.Month())
}

// LengthOfYear returns 366 in leap years and 365 otherwise.
func (d Date) LengthOfYear() int {
	if isLeap(d.Year()) {
		return 366
	}
	return 365
}

// Arithmetic
func (d Date) AddDays(n int) Date  { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddWeeks(n int) Date { return d.AddDays(7 * n) }

// AddMonths adds n months, clamping the day to the end of the target month.
func (d Date) AddMonths(n int) Date {
	return d.addMonthsAnchored(n, d.Day())
}

// AddYears adds n years, clamping Feb 29 to Feb 28 in non-leap years.
func (d Date) AddYears(n int) Date {
	return d.addMonthsAnchored(12*n, d.Day())
}

// addMonthsAnchored moves n months and lands on anchorDay, or on the last
// day of the month when the month is shorter.
func (d Date) addMonthsAnchored(n, anchorDay int) Date {
	total := int(d.Month()) - 1 + n
	year := d.Year() + floorDiv(total, 12)
	month := time.Month(floorMod(total, 12) + 1)
	day := anchorDay
	if last := daysIn(year, month); day > last {
		day = last
	}
	return NewDate(year, month, day)
}

// WithDayOfMonth moves d to the given day of its month, clamped to the
// month's length.
func (d Date) WithDayOfMonth(day int) Date {
	if last := d.LengthOfMonth(); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return NewDate(d.Year(), d.Month(), day)
}

func (d Date) StartOfMonth() Date { return NewDate(d.Year(), d.Month(), 1) }
func (d Date) EndOfMonth() Date   { return NewDate(d.Year(), d.Month(), d.LengthOfMonth()) }

// =============================================================================
// DATE UTILITIES
// =============================================================================

// DaysBetween returns the signed number of days from from to to.
func DaysBetween(from, to Date) int {
	return int(to.t.Sub(from.t).Hours() / 24)
}

// MinDate returns the earlier of a and b.
func MinDate(a, b Date) Date {
	if b.Before(a) {
		return b
	}
	return a
}

// MaxDate returns the later of a and b.
func MaxDate(a, b Date) Date {
	if b.After(a) {
		return b
	}
	return a
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}
