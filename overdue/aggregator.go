package overdue

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/warp/schedule-engine/schedule"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Source lists unpaid installments whose due date is before the business date.
type Source interface {
	ListOverdueInstallments(ctx context.Context, businessDate schedule.Date) ([]OverdueInstallment, error)
}

// ChargeApplier computes and books penalty amounts. It owns the charge
// amounts; the aggregator owns which charges to apply and when.
type ChargeApplier interface {
	ApplyOverdueCharges(ctx context.Context, loanID LoanID, charges []PenaltyCharge) error
}

// =============================================================================
// GROUPING
// =============================================================================

// GroupByLoan groups installments by loan. Each loan's installments are
// ordered by due date; the returned IDs are ascending.
func GroupByLoan(installments []OverdueInstallment) (map[LoanID][]OverdueInstallment, []LoanID) {
	byLoan := make(map[LoanID][]OverdueInstallment)
	for _, inst := range installments {
		byLoan[inst.LoanID] = append(byLoan[inst.LoanID], inst)
	}

	ids := make([]LoanID, 0, len(byLoan))
	for id, list := range byLoan {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].DueDate.Equal(list[j].DueDate) {
				return list[i].InstallmentNumber < list[j].InstallmentNumber
			}
			return list[i].DueDate.Before(list[j].DueDate)
		})
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return byLoan, ids
}

// =============================================================================
// BATCH ERROR
// =============================================================================

// LoanFailure is the error of one loan in a batch.
type LoanFailure struct {
	LoanID LoanID
	Err    error
}

// BatchError is returned after every loan was attempted and at least one failed.
type BatchError struct {
	Failures []LoanFailure
}

func (e *BatchError) Error() string {
	ids := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		ids[i] = fmt.Sprint(f.LoanID)
	}
	return fmt.Sprintf("overdue charges failed for %d loan(s) [%s]: %v",
		len(e.Failures), strings.Join(ids, ", "), e.Failures[0].Err)
}

// Unwrap exposes every loan's error to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// LoanIDs returns the failing loans in processing order.
func (e *BatchError) LoanIDs() []LoanID {
	ids := make([]LoanID, len(e.Failures))
	for i, f := range e.Failures {
		ids[i] = f.LoanID
	}
	return ids
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// Summary reports a batch run.
type Summary struct {
	Loans   int
	Charges int
	Failed  int
}

// Aggregator applies overdue penalties loan by loan. One failing loan never
// stops the others.
type Aggregator struct {
	charges ChargeApplier
	log     logrus.FieldLogger
}

func NewAggregator(charges ChargeApplier, log logrus.FieldLogger) *Aggregator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Aggregator{charges: charges, log: log}
}

// ApplyPerLoan works out the penalty charges for one loan's installments and
// hands them to the charge applier. It returns the number of charges applied.
func (a *Aggregator) ApplyPerLoan(ctx context.Context, loanID LoanID, installments []OverdueInstallment, opts PenaltyOptions) (int, error) {
	var charges []PenaltyCharge
	for _, inst := range installments {
		if inst.LoanID != loanID {
			return 0, errors.Errorf("installment %d belongs to loan %d, not %d", inst.InstallmentNumber, inst.LoanID, loanID)
		}
		due, err := PenaltyDates(inst, opts)
		if err != nil {
			return 0, errors.Wrapf(err, "installment %d", inst.InstallmentNumber)
		}
		charges = append(charges, due...)
	}
	if len(charges) == 0 {
		return 0, nil
	}
	if err := a.charges.ApplyOverdueCharges(ctx, loanID, charges); err != nil {
		return 0, errors.Wrap(err, "apply overdue charges")
	}
	return len(charges), nil
}

// Apply processes every loan in overdue sequentially. When any loan fails
// the returned error is a *BatchError naming exactly the failed loans.
func (a *Aggregator) Apply(ctx context.Context, overdue []OverdueInstallment, opts PenaltyOptions) (Summary, error) {
	byLoan, ids := GroupByLoan(overdue)
	summary := Summary{Loans: len(ids)}
	var failures []LoanFailure

	for _, id := range ids {
		log := a.log.WithFields(logrus.Fields{
			"loan_id":       id,
			"installments":  len(byLoan[id]),
			"business_date": opts.BusinessDate.String(),
		})
		if err := ctx.Err(); err != nil {
			failures = append(failures, LoanFailure{LoanID: id, Err: err})
			continue
		}

		n, err := a.applyIsolated(ctx, id, byLoan[id], opts)
		if err != nil {
			log.WithError(err).Error("overdue charges failed")
			failures = append(failures, LoanFailure{LoanID: id, Err: err})
			continue
		}
		summary.Charges += n
		log.WithField("charges", n).Debug("overdue charges applied")
	}

	summary.Failed = len(failures)
	if len(failures) > 0 {
		return summary, &BatchError{Failures: failures}
	}
	return summary, nil
}

// applyIsolated turns a panic in one loan into that loan's error.
func (a *Aggregator) applyIsolated(ctx context.Context, id LoanID, installments []OverdueInstallment, opts PenaltyOptions) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic applying overdue charges: %v", r)
		}
	}()
	return a.ApplyPerLoan(ctx, id, installments, opts)
}
