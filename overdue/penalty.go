/*
penalty.go - Overdue installments and their penalty charge dates

PURPOSE:
  Decides, for one overdue installment, on which dates a penalty charge is
  due. The charge amount is computed by the charge service (ChargeApplier);
  this file only owns the dates and frequency numbers.

RULES:
  An installment becomes chargeable WaitPeriodDays after its due date:

    start = dueDate + wait + 1
    diff  = max(1, wait + 1 - graceOnPosting)

  A one-off penalty is dated start - diff. A recurring penalty repeats
  every fee period while start <= business date, numbering occurrences
  1, 2, 3... Occurrences already applied (AppliedFrequencies) are skipped.

  Without backdating only the occurrence starting on the business date is
  charged, dated on the business date.

SEE ALSO:
  - aggregator.go: Applies these charges loan by loan
*/
package overdue

import (
	"github.com/warp/schedule-engine/schedule"
)

// LoanID identifies a loan account.
type LoanID int64

// OverdueInstallment is one unpaid installment past its due date.
type OverdueInstallment struct {
	LoanID            LoanID
	InstallmentNumber int
	DueDate           schedule.Date
	ChargeID          int64

	// Penalty is the fee recurrence of the penalty charge; nil for a
	// one-off penalty.
	Penalty *schedule.Recurrence

	// AppliedFrequencies lists occurrence numbers already charged.
	AppliedFrequencies []int
}

// PenaltyOptions is the tenant configuration for overdue penalties.
type PenaltyOptions struct {
	WaitPeriodDays     int
	GraceOnPostingDays int
	BackdatePenalties  bool
	BusinessDate       schedule.Date
}

// PenaltyCharge is one penalty to apply.
type PenaltyCharge struct {
	LoanID            LoanID
	InstallmentNumber int
	ChargeID          int64
	FrequencyNumber   int
	ChargeDate        schedule.Date
}

// ChargeableFrom returns the first business date on which inst can be charged.
func (o PenaltyOptions) ChargeableFrom(inst OverdueInstallment) schedule.Date {
	return inst.DueDate.AddDays(o.WaitPeriodDays + 1)
}

// Eligible reports whether inst is past its wait period on the business date.
func (o PenaltyOptions) Eligible(inst OverdueInstallment) bool {
	return !o.ChargeableFrom(inst).After(o.BusinessDate)
}

// PenaltyDates returns the charges due for inst as of opts.BusinessDate.
func PenaltyDates(inst OverdueInstallment, opts PenaltyOptions) ([]PenaltyCharge, error) {
	if !opts.Eligible(inst) {
		return nil, nil
	}
	if inst.Penalty != nil {
		if err := inst.Penalty.Validate(); err != nil {
			return nil, err
		}
	}

	diff := opts.WaitPeriodDays + 1 - opts.GraceOnPostingDays
	if diff < 1 {
		diff = 1
	}
	applied := make(map[int]bool, len(inst.AppliedFrequencies))
	for _, n := range inst.AppliedFrequencies {
		applied[n] = true
	}

	var charges []PenaltyCharge
	add := func(n int, occurrence schedule.Date) {
		if applied[n] {
			return
		}
		date := occurrence.AddDays(-diff)
		if !opts.BackdatePenalties {
			if !occurrence.Equal(opts.BusinessDate) {
				return
			}
			date = opts.BusinessDate
		}
		charges = append(charges, PenaltyCharge{
			LoanID:            inst.LoanID,
			InstallmentNumber: inst.InstallmentNumber,
			ChargeID:          inst.ChargeID,
			FrequencyNumber:   n,
			ChargeDate:        date,
		})
	}

	start := opts.ChargeableFrom(inst)
	if inst.Penalty == nil {
		add(1, start)
		return charges, nil
	}

	fee := *inst.Penalty
	if fee.DayOfMonth == 0 {
		fee = fee.AnchoredAt(start)
	}
	for n := 1; !start.After(opts.BusinessDate); n++ {
		add(n, start)
		next, err := fee.Next(start)
		if err != nil {
			return nil, err
		}
		start = next
	}
	return charges, nil
}
