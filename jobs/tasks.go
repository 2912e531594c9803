package jobs

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/warp/schedule-engine/overdue"
	"github.com/warp/schedule-engine/recurring"
	"github.com/warp/schedule-engine/schedule"
)

const (
	RecurringInstallmentsJobName = "recurring-installments"
	OverduePenaltiesJobName      = "overdue-penalties"
)

// =============================================================================
// RECURRING DEPOSIT INSTALLMENTS
// =============================================================================

// RecurringInstallmentsJob keeps recurring deposits a few installments ahead.
type RecurringInstallmentsJob struct {
	generator *recurring.Generator
}

func NewRecurringInstallmentsJob(generator *recurring.Generator) *RecurringInstallmentsJob {
	return &RecurringInstallmentsJob{generator: generator}
}

func (j *RecurringInstallmentsJob) Name() string { return RecurringInstallmentsJobName }

func (j *RecurringInstallmentsJob) Run(ctx context.Context, businessDate schedule.Date) (string, error) {
	res, err := j.generator.Run(ctx, businessDate)
	summary := fmt.Sprintf("accounts=%d generated=%d batches=%d failed=%d",
		res.Accounts, res.Generated, res.Batches, res.Failed)
	return summary, err
}

// =============================================================================
// OVERDUE PENALTIES
// =============================================================================

// PenaltySettings is the tenant configuration for the penalty job.
type PenaltySettings struct {
	WaitPeriodDays     int
	GraceOnPostingDays int
	BackdatePenalties  bool
}

// OverduePenaltiesJob applies penalty charges to overdue loan installments.
type OverduePenaltiesJob struct {
	source     overdue.Source
	aggregator *overdue.Aggregator
	settings   PenaltySettings
}

func NewOverduePenaltiesJob(source overdue.Source, aggregator *overdue.Aggregator, settings PenaltySettings) *OverduePenaltiesJob {
	return &OverduePenaltiesJob{source: source, aggregator: aggregator, settings: settings}
}

func (j *OverduePenaltiesJob) Name() string { return OverduePenaltiesJobName }

func (j *OverduePenaltiesJob) Run(ctx context.Context, businessDate schedule.Date) (string, error) {
	installments, err := j.source.ListOverdueInstallments(ctx, businessDate)
	if err != nil {
		return "", errors.Wrap(err, "list overdue installments")
	}

	opts := overdue.PenaltyOptions{
		WaitPeriodDays:     j.settings.WaitPeriodDays,
		GraceOnPostingDays: j.settings.GraceOnPostingDays,
		BackdatePenalties:  j.settings.BackdatePenalties,
		BusinessDate:       businessDate,
	}
	res, err := j.aggregator.Apply(ctx, installments, opts)
	summary := fmt.Sprintf("loans=%d charges=%d failed=%d", res.Loans, res.Charges, res.Failed)
	return summary, err
}
