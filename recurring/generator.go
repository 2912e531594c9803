/*
generator.go - Recurring deposit installment top-up job

PURPOSE:
  Keeps every active recurring deposit account a fixed number of
  installments ahead of the business date. For each account it counts the
  future installments already stored, asks schedule.ProjectForward for the
  missing ones, and persists them in batches.

BATCHING:
  Rows from many accounts are buffered and written BatchSize at a time.
  A failed write aborts the run; already written batches stay written and
  the next run tops up from whatever was stored.

SEE ALSO:
  - schedule/projector.go: ProjectForward
  - store/sqlite/sqlite.go: InstallmentStore implementation
  - jobs/tasks.go: Wires the generator to the cron runner
*/
package recurring

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/warp/schedule-engine/schedule"
)

const (
	// DefaultLookAhead is the number of future installments kept per account.
	DefaultLookAhead = 5

	// DefaultBatchSize is the number of rows per write.
	DefaultBatchSize = 200
)

// Account is a recurring deposit account with its latest installment.
type Account struct {
	ID                    string
	Recurrence            schedule.Recurrence
	LastDueDate           schedule.Date
	LastInstallmentNumber int
	MaturityDate          schedule.Date // zero = open ended
}

// Installment is one stored installment row.
type Installment struct {
	AccountID string
	schedule.ProjectedInstallment
}

// InstallmentStore is the caller-owned persistence of recurring installments.
type InstallmentStore interface {
	// ListRecurringAccounts returns active accounts with their latest installment.
	ListRecurringAccounts(ctx context.Context) ([]Account, error)

	// CountFutureInstallments counts installments due after businessDate.
	CountFutureInstallments(ctx context.Context, accountID string, businessDate schedule.Date) (int, error)

	// SaveInstallments persists rows; it must reject duplicate numbers per account.
	SaveInstallments(ctx context.Context, rows []Installment) error
}

// Result reports one run.
type Result struct {
	Accounts  int
	Generated int
	Batches   int
	Failed    int
}

// Generator tops up recurring installments.
type Generator struct {
	store     InstallmentStore
	lookAhead int
	batchSize int
	log       logrus.FieldLogger
}

// NewGenerator uses the defaults for non-positive lookAhead or batchSize.
func NewGenerator(store InstallmentStore, lookAhead, batchSize int, log logrus.FieldLogger) *Generator {
	if lookAhead <= 0 {
		lookAhead = DefaultLookAhead
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Generator{store: store, lookAhead: lookAhead, batchSize: batchSize, log: log}
}

// Run tops up every account as of businessDate. Accounts whose projection
// fails are logged and skipped; the first such error is returned after all
// accounts were processed.
func (g *Generator) Run(ctx context.Context, businessDate schedule.Date) (Result, error) {
	accounts, err := g.store.ListRecurringAccounts(ctx)
	if err != nil {
		return Result{}, errors.Wrap(err, "list recurring accounts")
	}

	result := Result{Accounts: len(accounts)}
	pending := make([]Installment, 0, g.batchSize)
	var firstErr error

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := g.store.SaveInstallments(ctx, pending); err != nil {
			return errors.Wrapf(err, "save batch of %d installments", len(pending))
		}
		result.Generated += len(pending)
		result.Batches++
		pending = pending[:0]
		return nil
	}

	for _, acct := range accounts {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		log := g.log.WithField("account_id", acct.ID)

		rows, err := g.project(ctx, acct, businessDate)
		if err != nil {
			log.WithError(err).Error("recurring installment projection failed")
			result.Failed++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if len(rows) > 0 {
			log.WithField("installments", len(rows)).Debug("projected recurring installments")
		}

		for _, row := range rows {
			pending = append(pending, row)
			if len(pending) >= g.batchSize {
				if err := flush(); err != nil {
					return result, err
				}
			}
		}
	}
	if err := flush(); err != nil {
		return result, err
	}

	if firstErr != nil {
		return result, errors.Wrapf(firstErr, "recurring installments failed for %d account(s)", result.Failed)
	}
	return result, nil
}

func (g *Generator) project(ctx context.Context, acct Account, businessDate schedule.Date) ([]Installment, error) {
	future, err := g.store.CountFutureInstallments(ctx, acct.ID, businessDate)
	if err != nil {
		return nil, errors.Wrap(err, "count future installments")
	}

	projected, err := schedule.ProjectForward(acct.LastDueDate, acct.LastInstallmentNumber, acct.Recurrence, future, g.lookAhead)
	if err != nil {
		return nil, err
	}

	rows := make([]Installment, 0, len(projected))
	for _, p := range projected {
		if !acct.MaturityDate.IsZero() && p.DueDate.After(acct.MaturityDate) {
			break
		}
		rows = append(rows, Installment{AccountID: acct.ID, ProjectedInstallment: p})
	}
	return rows, nil
}
