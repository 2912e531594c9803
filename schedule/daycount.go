package schedule

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// DAY-COUNT RESOLVER
// =============================================================================

// DaysInMonth returns the day count of d's month under convention t.
// INVALID and unknown conventions are errors, never a default.
func DaysInMonth(t DaysInMonthType, d Date) (int, error) {
	switch t {
	case DaysInMonthActual:
		return d.LengthOfMonth(), nil
	case DaysInMonth30:
		return 30, nil
	}
	return 0, configError("days_in_month_type", t, ErrUnsupportedConvention)
}

// DaysInYear returns the day count of d's year under convention t.
func DaysInYear(t DaysInYearType, d Date) (int, error) {
	switch t {
	case DaysInYearActual:
		return d.LengthOfYear(), nil
	case DaysInYear360:
		return 360, nil
	case DaysInYear364:
		return 364, nil
	case DaysInYear365:
		return 365, nil
	}
	return 0, configError("days_in_year_type", t, ErrUnsupportedConvention)
}

// DailyRate converts an annual percentage rate into the rate for one day
// falling on d. The result is a fraction, not a percentage.
func DailyRate(annualPercent decimal.Decimal, t DaysInYearType, d Date) (decimal.Decimal, error) {
	days, err := DaysInYear(t, d)
	if err != nil {
		return decimal.Zero, err
	}
	return annualPercent.Div(decimal.NewFromInt(100)).Div(decimal.NewFromInt(int64(days))), nil
}

// YearFraction returns the share of a year covered by interval. With the
// ACTUAL convention an interval crossing December 31 is split so each day
// is weighted by its own year's length.
func YearFraction(t DaysInYearType, interval LocalDateInterval) (decimal.Decimal, error) {
	if err := interval.Validate(); err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	start := interval.Start
	for !start.After(interval.End) {
		yearEnd := NewDate(start.Year(), 12, 31)
		end := MinDate(yearEnd, interval.End)
		days, err := DaysInYear(t, start)
		if err != nil {
			return decimal.Zero, err
		}
		span := int64(DaysBetween(start, end) + 1)
		total = total.Add(decimal.NewFromInt(span).Div(decimal.NewFromInt(int64(days))))
		start = end.AddDays(1)
	}
	return total, nil
}

// MonthFraction returns days / daysInMonth for the month containing d.
func MonthFraction(t DaysInMonthType, d Date, days int) (decimal.Decimal, error) {
	month, err := DaysInMonth(t, d)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromInt(int64(days)).Div(decimal.NewFromInt(int64(month))), nil
}
