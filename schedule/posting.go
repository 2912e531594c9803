/*
posting.go - Savings interest posting / compounding period splitter

PURPOSE:
  Splits [start, end] into the consecutive periods at whose end interest is
  posted (or compounded). Downstream code computes the interest amount per
  period; this file only decides the boundaries.

BOUNDARIES:
  DAILY            every day is its own period
  MONTHLY          first day of every month
  QUARTERLY        first day of every 3rd month counted from the financial
  BIANNUAL         year's begin month (6th / 12th for biannual / annual)
  ANNUAL
  ACTIVATION_DATE  start + k*N months (N = 1 by default), always computed
                   from start so short months do not drift the anchor

  The first period starts at start. By default the last period runs to the
  end of the calendar period containing end, e.g. monthly
  2021-11-01..2022-01-01 ends with [2022-01-01, 2022-01-31], so the periods
  cover more than [start, end]. Callers that need the periods to cover
  exactly [start, end], with no day past end, must pass WithClipToEnd().

  A date in postedAsOn is an existing boundary (interest already posted as
  on that date): the running period ends the day before it and the next
  one starts on it.

SEE ALSO:
  - frequency.go: PostingPeriodType
  - interval.go: LocalDateInterval
*/
package schedule

import (
	"sort"
	"time"
)

type postingOptions struct {
	activationMonths int
	clipToEnd        bool
}

// PostingOption tunes DeterminePostingPeriods.
type PostingOption func(*postingOptions)

// WithActivationPeriodMonths sets the period length for activation-date
// posting: 1, 3, 6 or 12 months.
func WithActivationPeriodMonths(months int) PostingOption {
	return func(o *postingOptions) { o.activationMonths = months }
}

// WithClipToEnd ends the last period at end instead of the end of its
// calendar period.
func WithClipToEnd() PostingOption {
	return func(o *postingOptions) { o.clipToEnd = true }
}

// DeterminePostingPeriods returns consecutive, gap-free posting periods
// starting at start. The last one ends on the last day of its calendar
// period; with WithClipToEnd() it ends on end and the union is exactly
// [start, end]. fyBeginMonth 0 means January.
func DeterminePostingPeriods(start, end Date, postingType PostingPeriodType, fyBeginMonth time.Month, postedAsOn []Date, opts ...PostingOption) ([]LocalDateInterval, error) {
	if !postingType.Valid() {
		return nil, configError("posting_period_type", postingType, ErrInvalidPostingType)
	}
	if _, err := NewLocalDateInterval(start, end); err != nil {
		return nil, err
	}
	if fyBeginMonth == 0 {
		fyBeginMonth = time.January
	}
	if fyBeginMonth < time.January || fyBeginMonth > time.December {
		return nil, configError("financial_year_begin_month", int(fyBeginMonth), ErrInvalidPostingType)
	}

	o := postingOptions{activationMonths: 1}
	for _, opt := range opts {
		opt(&o)
	}
	switch o.activationMonths {
	case 1, 3, 6, 12:
	default:
		return nil, configError("activation_period_months", o.activationMonths, ErrInvalidPostingType)
	}

	posted := postedBoundaries(start, end, postedAsOn)
	splitter := boundaryFinder{
		postingType: postingType,
		fyBegin:     fyBeginMonth,
		anchor:      start,
		months:      o.activationMonths,
	}

	var periods []LocalDateInterval
	for periodStart := start; !periodStart.After(end); {
		boundary := splitter.next(periodStart)
		for len(posted) > 0 && !posted[0].After(periodStart) {
			posted = posted[1:]
		}
		if len(posted) > 0 && posted[0].Before(boundary) {
			boundary = posted[0]
		}

		periodEnd := boundary.AddDays(-1)
		if o.clipToEnd && periodEnd.After(end) {
			periodEnd = end
		}
		periods = append(periods, LocalDateInterval{Start: periodStart, End: periodEnd})
		periodStart = boundary
	}
	return periods, nil
}

// postedBoundaries keeps the posted dates inside (start, end], sorted and
// de-duplicated.
func postedBoundaries(start, end Date, postedAsOn []Date) []Date {
	var out []Date
	for _, d := range postedAsOn {
		if d.After(start) && !d.After(end) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	uniq := out[:0]
	for i, d := range out {
		if i == 0 || !d.Equal(out[i-1]) {
			uniq = append(uniq, d)
		}
	}
	return uniq
}

type boundaryFinder struct {
	postingType PostingPeriodType
	fyBegin     time.Month
	anchor      Date
	months      int
	k           int // last activation anchor index used
}

// next returns the first day of the period after the one containing d.
func (b *boundaryFinder) next(d Date) Date {
	switch b.postingType {
	case PostingDaily:
		return d.AddDays(1)

	case PostingActivationDate:
		if b.k == 0 {
			b.k = 1
		}
		for {
			boundary := b.anchor.addMonthsAnchored(b.k*b.months, b.anchor.Day())
			if boundary.After(d) {
				return boundary
			}
			b.k++
		}
	}

	n := b.postingType.Months()
	candidate := d.StartOfMonth().AddMonths(1)
	for monthOffset(candidate.Month(), b.fyBegin)%n != 0 {
		candidate = candidate.AddMonths(1)
	}
	return candidate
}
