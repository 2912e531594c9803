/*
store.go - Persistence interface for calendars, installments and job runs

PURPOSE:
  The schedule engine itself is pure: it never reads from a database. The
  store is the caller-owned side. It holds the tenant calendar (holidays and
  the working-days rule), the recurring deposit installments topped up by the
  recurring job, the loan installments scanned by the penalty job, the
  penalty charges it writes, and the audit trail of job runs.

KEY INTERFACES:
  CalendarStore:  Holidays and the working-days rule
  Store:          Everything the batch jobs and the CLI need

IDEMPOTENCY:
  Installment numbers are unique per account and penalty charges are unique
  per (loan, installment, charge, frequency number). A batch that contains a
  duplicate is rejected as a whole, so a retried job never writes twice.

IMPLEMENTATIONS:
  - store/memory.go: In-memory for tests and previews
  - store/sqlite/sqlite.go: SQLite

SEE ALSO:
  - recurring/generator.go: InstallmentStore
  - overdue/aggregator.go: Source and ChargeApplier
  - jobs/runner.go: RunRecorder
*/
package store

import (
	"context"
	"errors"

	"github.com/warp/schedule-engine/jobs"
	"github.com/warp/schedule-engine/overdue"
	"github.com/warp/schedule-engine/recurring"
	"github.com/warp/schedule-engine/schedule"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrDuplicateAccount     = errors.New("recurring account already exists")
	ErrDuplicateInstallment = errors.New("installment already exists")
	ErrDuplicateCharge      = errors.New("penalty charge already applied")
	ErrUnknownAccount       = errors.New("unknown recurring account")
)

// =============================================================================
// RECORDS
// =============================================================================

// RecurringAccount is a recurring deposit account. Creating one stores its
// first installment on StartDate.
type RecurringAccount struct {
	ID           string
	Recurrence   schedule.Recurrence
	StartDate    schedule.Date
	MaturityDate schedule.Date // zero = open ended
}

// LoanInstallment is a loan repayment row watched by the penalty job.
type LoanInstallment struct {
	LoanID            overdue.LoanID
	InstallmentNumber int
	DueDate           schedule.Date
	ChargeID          int64                // 0 = no penalty configured
	Penalty           *schedule.Recurrence // nil = one-off penalty
	Paid              bool
}

// =============================================================================
// INTERFACES
// =============================================================================

// CalendarStore holds the tenant calendar.
type CalendarStore interface {
	SaveHoliday(ctx context.Context, h schedule.Holiday) (schedule.Holiday, error)
	DeleteHoliday(ctx context.Context, id string) error
	ListHolidays(ctx context.Context) ([]schedule.Holiday, error)

	// GetWorkingDays returns ErrNotFound when no rule was saved.
	GetWorkingDays(ctx context.Context) (schedule.WorkingDaysRule, error)
	SaveWorkingDays(ctx context.Context, rule schedule.WorkingDaysRule) error
}

// Store is the full persistence surface.
type Store interface {
	CalendarStore
	recurring.InstallmentStore
	overdue.Source
	overdue.ChargeApplier
	jobs.RunRecorder

	CreateRecurringAccount(ctx context.Context, acct RecurringAccount) error
	ListInstallments(ctx context.Context, accountID string) ([]recurring.Installment, error)

	SaveLoanInstallments(ctx context.Context, rows []LoanInstallment) error
	ListPenaltyCharges(ctx context.Context, loanID overdue.LoanID) ([]overdue.PenaltyCharge, error)

	Close() error
}
