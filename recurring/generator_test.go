package recurring_test

import (
	"context"
	"errors"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/schedule-engine/recurring"
	"github.com/warp/schedule-engine/schedule"
	"github.com/warp/schedule-engine/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var monthly = schedule.Recurrence{Frequency: schedule.FrequencyMonths, Every: 1}

func date(s string) schedule.Date {
	return schedule.MustParseDate(s)
}

func newTestStore(t *testing.T, accounts ...store.RecurringAccount) *store.Memory {
	t.Helper()
	s := store.NewMemory()
	for _, a := range accounts {
		require.NoError(t, s.CreateRecurringAccount(context.Background(), a))
	}
	return s
}

func dueDates(t *testing.T, s *store.Memory, accountID string) []string {
	t.Helper()
	rows, err := s.ListInstallments(context.Background(), accountID)
	require.NoError(t, err)
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.DueDate.String()
	}
	return out
}

// failingStore wraps a memory store and can break individual calls.
type failingStore struct {
	*store.Memory
	accounts []recurring.Account
	saveErr  error
}

func (f *failingStore) ListRecurringAccounts(ctx context.Context) ([]recurring.Account, error) {
	if f.accounts != nil {
		return f.accounts, nil
	}
	return f.Memory.ListRecurringAccounts(ctx)
}

func (f *failingStore) SaveInstallments(ctx context.Context, rows []recurring.Installment) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.Memory.SaveInstallments(ctx, rows)
}

// =============================================================================
// TOP-UP TESTS
// =============================================================================

func TestGenerator_TopsUpToLookAhead(t *testing.T) {
	// GIVEN: A monthly deposit starting Jan 31 with only its first installment
	// WHEN: Running on Jan 15 with a look-ahead of 5
	// THEN: Four installments are added, anchored on the 31st

	s := newTestStore(t, store.RecurringAccount{ID: "rd-1", Recurrence: monthly, StartDate: date("2024-01-31")})
	gen := recurring.NewGenerator(s, 5, 0, nil)

	res, err := gen.Run(context.Background(), date("2024-01-15"))
	require.NoError(t, err)
	assert.Equal(t, recurring.Result{Accounts: 1, Generated: 4, Batches: 1}, res)
	assert.Equal(t, []string{"2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30", "2024-05-31"}, dueDates(t, s, "rd-1"))
}

func TestGenerator_SecondRunIsNoOp(t *testing.T) {
	s := newTestStore(t, store.RecurringAccount{ID: "rd-1", Recurrence: monthly, StartDate: date("2024-01-31")})
	gen := recurring.NewGenerator(s, 5, 0, nil)

	_, err := gen.Run(context.Background(), date("2024-01-15"))
	require.NoError(t, err)
	res, err := gen.Run(context.Background(), date("2024-01-15"))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Generated)
	assert.Len(t, dueDates(t, s, "rd-1"), 5)
}

func TestGenerator_AdvancesWithBusinessDate(t *testing.T) {
	// GIVEN: Five future installments generated on Jan 15
	// WHEN: The business date moves past the first two
	// THEN: Two more are added after the last one

	s := newTestStore(t, store.RecurringAccount{ID: "rd-1", Recurrence: monthly, StartDate: date("2024-01-31")})
	gen := recurring.NewGenerator(s, 5, 0, nil)

	_, err := gen.Run(context.Background(), date("2024-01-15"))
	require.NoError(t, err)
	res, err := gen.Run(context.Background(), date("2024-03-01"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Generated)

	rows, err := s.ListInstallments(context.Background(), "rd-1")
	require.NoError(t, err)
	last := rows[len(rows)-1]
	assert.Equal(t, 7, last.InstallmentNumber)
	assert.Equal(t, date("2024-07-31"), last.DueDate)
}

func TestGenerator_BatchesAcrossAccounts(t *testing.T) {
	s := newTestStore(t,
		store.RecurringAccount{ID: "rd-1", Recurrence: monthly, StartDate: date("2024-01-31")},
		store.RecurringAccount{ID: "rd-2", Recurrence: schedule.Recurrence{Frequency: schedule.FrequencyWeeks, Every: 2}, StartDate: date("2024-01-20")},
	)
	gen := recurring.NewGenerator(s, 5, 3, nil)

	res, err := gen.Run(context.Background(), date("2024-01-15"))
	require.NoError(t, err)
	assert.Equal(t, recurring.Result{Accounts: 2, Generated: 8, Batches: 3}, res)
	assert.Equal(t, []string{"2024-01-20", "2024-02-03", "2024-02-17", "2024-03-02", "2024-03-16"}, dueDates(t, s, "rd-2"))
}

func TestGenerator_StopsAtMaturity(t *testing.T) {
	s := newTestStore(t, store.RecurringAccount{
		ID:           "rd-1",
		Recurrence:   monthly,
		StartDate:    date("2024-01-31"),
		MaturityDate: date("2024-03-31"),
	})
	gen := recurring.NewGenerator(s, 5, 0, nil)

	res, err := gen.Run(context.Background(), date("2024-01-15"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Generated)
	assert.Equal(t, []string{"2024-01-31", "2024-02-29", "2024-03-31"}, dueDates(t, s, "rd-1"))
}

// =============================================================================
// FAILURE TESTS
// =============================================================================

func TestGenerator_BadAccountIsSkipped(t *testing.T) {
	// GIVEN: One listed account the installment table does not know
	// THEN: The other account is still topped up and the error is reported

	mem := newTestStore(t, store.RecurringAccount{ID: "rd-2", Recurrence: monthly, StartDate: date("2024-01-31")})
	good, err := mem.ListRecurringAccounts(context.Background())
	require.NoError(t, err)

	fs := &failingStore{
		Memory: mem,
		accounts: append([]recurring.Account{{
			ID:                    "rd-1",
			Recurrence:            monthly,
			LastDueDate:           date("2024-01-31"),
			LastInstallmentNumber: 1,
		}}, good...),
	}
	logger, hook := logtest.NewNullLogger()
	gen := recurring.NewGenerator(fs, 5, 0, logger)

	res, err := gen.Run(context.Background(), date("2024-01-15"))
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrUnknownAccount)
	assert.Equal(t, 1, res.Failed)
	assert.Len(t, dueDates(t, mem, "rd-2"), 5)
	assert.Equal(t, "rd-1", hook.LastEntry().Data["account_id"])
}

func TestGenerator_InvalidRecurrenceIsConfigurationError(t *testing.T) {
	mem := newTestStore(t, store.RecurringAccount{ID: "rd-1", Recurrence: monthly, StartDate: date("2024-01-31")})
	fs := &failingStore{
		Memory: mem,
		accounts: []recurring.Account{{
			ID:                    "rd-1",
			Recurrence:            schedule.Recurrence{Frequency: schedule.FrequencyWholeTerm, Every: 1},
			LastDueDate:           date("2024-01-31"),
			LastInstallmentNumber: 1,
		}},
	}
	logger, _ := logtest.NewNullLogger()

	_, err := recurring.NewGenerator(fs, 5, 0, logger).Run(context.Background(), date("2024-01-15"))
	assert.ErrorIs(t, err, schedule.ErrInvalidFrequency)
	assert.True(t, schedule.IsConfigurationError(err))
}

func TestGenerator_SaveFailureAbortsRun(t *testing.T) {
	saveErr := errors.New("disk full")
	fs := &failingStore{
		Memory:  newTestStore(t, store.RecurringAccount{ID: "rd-1", Recurrence: monthly, StartDate: date("2024-01-31")}),
		saveErr: saveErr,
	}

	res, err := recurring.NewGenerator(fs, 5, 0, nil).Run(context.Background(), date("2024-01-15"))
	assert.ErrorIs(t, err, saveErr)
	assert.Equal(t, 0, res.Generated)
}
