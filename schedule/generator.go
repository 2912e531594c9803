/*
generator.go - Loan repayment due-date generation

PURPOSE:
  Produces the ordered due dates of a loan: N repayment periods, each
  adjusted for holidays and working days, plus one entry per disbursement
  tranche for multi-disbursement loans.

ALGORITHM:
  Generation is a fold over a ScheduleCursor. Each step:
    1. takes the cursor's nominal date (or its due-date variation)
    2. adjusts it (adjuster.go)
    3. feeds NextRepaymentPeriodDueDate forward as the next nominal date

  The nominal grid is anchored on the day of month of the first period so
  Jan 31 -> Feb 29 -> Mar 31 does not drift. The adjuster decides when an
  adjustment cascades into the next period or is carried forward.

  NextDueDate is exposed so callers can resume a schedule from a persisted
  cursor (e.g. after rescheduling) without regenerating earlier periods.

SEE ALSO:
  - terms.go: LoanApplicationTerms and validation
  - adjuster.go: AdjustDueDate
*/
package schedule

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ScheduledPeriod is one entry of a generated schedule.
type ScheduledPeriod struct {
	Sequence           int  // 1-based position in the schedule
	InstallmentNumber  int  // 1-based repayment number, 0 for tranches
	Tranche            bool // disbursement entry
	PeriodStart        Date
	DisbursementAmount decimal.Decimal
	AdjustedDateDetails
}

// DueDate is the date money moves on: the actual repayment date, or the
// tranche disbursement date.
func (p ScheduledPeriod) DueDate() Date {
	return p.ActualRepaymentDate
}

// ScheduleCursor is the state carried between periods.
type ScheduleCursor struct {
	InstallmentNumber int // last generated installment, 0 before the first
	NextNominal       Date
	PeriodStart       Date
	Recurrence        Recurrence
}

// StartCursor returns the cursor positioned before the first installment.
func StartCursor(terms LoanApplicationTerms) (ScheduleCursor, error) {
	if err := terms.Validate(); err != nil {
		return ScheduleCursor{}, err
	}
	start := terms.LoanStartDate()
	rec := terms.RepaymentRecurrence()

	var first Date
	if !terms.RepaymentsStartingFromDate.IsZero() {
		first = terms.RepaymentsStartingFromDate
		rec = rec.AnchoredAt(first)
	} else {
		rec = rec.AnchoredAt(start)
		next, err := rec.Next(start)
		if err != nil {
			return ScheduleCursor{}, err
		}
		first = next
	}
	return ScheduleCursor{
		NextNominal: first,
		PeriodStart: start,
		Recurrence:  rec,
	}, nil
}

// NextDueDate generates the installment after cur and returns the advanced
// cursor. It does not re-validate terms.
func NextDueDate(cur ScheduleCursor, terms LoanApplicationTerms, cal CalendarContext) (ScheduledPeriod, ScheduleCursor, error) {
	nominal := cur.NextNominal
	rec := cur.Recurrence
	if revised, ok := terms.revisedDate(nominal); ok {
		nominal = revised
		rec = rec.AnchoredAt(revised)
	}

	details, err := AdjustDueDate(nominal, rec, cal)
	if err != nil {
		return ScheduledPeriod{}, cur, err
	}

	period := ScheduledPeriod{
		InstallmentNumber:   cur.InstallmentNumber + 1,
		PeriodStart:         cur.PeriodStart,
		AdjustedDateDetails: details,
	}
	next := ScheduleCursor{
		InstallmentNumber: period.InstallmentNumber,
		NextNominal:       details.NextRepaymentPeriodDueDate,
		PeriodStart:       details.ActualRepaymentDate,
		Recurrence:        rec,
	}
	return period, next, nil
}

// GenerateDueDates returns the full schedule for terms, or an error and no
// schedule.
func GenerateDueDates(terms LoanApplicationTerms, cal CalendarContext) ([]ScheduledPeriod, error) {
	cur, err := StartCursor(terms)
	if err != nil {
		return nil, err
	}

	repayments := make([]ScheduledPeriod, 0, terms.NumberOfRepayments)
	for i := 0; i < terms.NumberOfRepayments; i++ {
		var period ScheduledPeriod
		period, cur, err = NextDueDate(cur, terms, cal)
		if err != nil {
			return nil, err
		}
		repayments = append(repayments, period)
	}

	if terms.VariableInstallmentsAllowed {
		if err := checkGaps(repayments, terms); err != nil {
			return nil, err
		}
	}

	var tranches []ScheduledPeriod
	if terms.MultiDisburseLoan {
		if tranches, err = trancheEntries(terms, repayments); err != nil {
			return nil, err
		}
	}

	schedule := mergeByDate(repayments, tranches)
	for i := range schedule {
		schedule[i].Sequence = i + 1
	}
	return schedule, nil
}

func checkGaps(repayments []ScheduledPeriod, terms LoanApplicationTerms) error {
	for _, p := range repayments {
		gap := DaysBetween(p.PeriodStart, p.ActualRepaymentDate)
		if terms.MinimumGapDays > 0 && gap < terms.MinimumGapDays {
			return &DomainRuleError{Rule: "minimum gap between installments", Date: p.ActualRepaymentDate, Err: ErrInvalidTerms}
		}
		if terms.MaximumGapDays > 0 && gap > terms.MaximumGapDays {
			return &DomainRuleError{Rule: "maximum gap between installments", Date: p.ActualRepaymentDate, Err: ErrInvalidTerms}
		}
	}
	return nil
}

// trancheEntries builds one entry per tranche. A tranche must fall on or
// after the loan start and on or before the last due date.
func trancheEntries(terms LoanApplicationTerms, repayments []ScheduledPeriod) ([]ScheduledPeriod, error) {
	start := terms.LoanStartDate()
	last := repayments[len(repayments)-1].ActualRepaymentDate

	entries := make([]ScheduledPeriod, 0, len(terms.Tranches))
	for _, tr := range terms.Tranches {
		date := tr.ExpectedDate
		if date.Before(start) || date.After(last) {
			return nil, &DomainRuleError{Rule: "disbursement tranche", Date: date, Err: ErrTrancheOutOfRange}
		}
		next := last
		for _, p := range repayments {
			if p.ActualRepaymentDate.After(date) {
				next = p.ActualRepaymentDate
				break
			}
		}
		entries = append(entries, ScheduledPeriod{
			Tranche:            true,
			PeriodStart:        date,
			DisbursementAmount: tr.Principal,
			AdjustedDateDetails: AdjustedDateDetails{
				ScheduleDate:               date,
				ActualRepaymentDate:        date,
				NextRepaymentPeriodDueDate: next,
			},
		})
	}
	sortPeriods(entries)
	return entries, nil
}

// mergeByDate interleaves tranches into repayments by date, keeping the
// repayment order. On equal dates the repayment comes first.
func mergeByDate(repayments, tranches []ScheduledPeriod) []ScheduledPeriod {
	out := make([]ScheduledPeriod, 0, len(repayments)+len(tranches))
	i, j := 0, 0
	for i < len(repayments) || j < len(tranches) {
		switch {
		case j == len(tranches):
			out = append(out, repayments[i])
			i++
		case i == len(repayments):
			out = append(out, tranches[j])
			j++
		case tranches[j].DueDate().Before(repayments[i].DueDate()):
			out = append(out, tranches[j])
			j++
		default:
			out = append(out, repayments[i])
			i++
		}
	}
	return out
}

func sortPeriods(periods []ScheduledPeriod) {
	sort.SliceStable(periods, func(i, j int) bool {
		return periods[i].DueDate().Before(periods[j].DueDate())
	})
}
