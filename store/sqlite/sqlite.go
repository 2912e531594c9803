/*
Package sqlite provides a SQLite-backed implementation of store.Store.

PURPOSE:
  Persists the tenant calendar and the rows the batch jobs read and write:
  recurring deposit installments, loan installments, penalty charges and
  job runs.

KEY TABLES:
  holidays:               Inclusive date ranges with their reschedule policy
  working_days:           Single-row working-days rule
  recurring_accounts:     Recurring deposit accounts
  recurring_installments: Installments per account, unique by number
  loan_installments:      Loan repayments watched by the penalty job
  penalty_charges:        Applied penalties, unique by frequency number
  job_runs:               Audit trail of batch executions

IDEMPOTENCY:
  Unique indexes reject a second installment with the same number and a
  second penalty for the same occurrence. Batches run inside a transaction
  so a rejected row rolls the whole batch back.

DATES:
  Calendar dates are stored as YYYY-MM-DD text, timestamps as RFC 3339.

USAGE:
  db, err := sqlite.New("./data/schedule.db")
  if err != nil {
      log.Fatal(err)
  }
  defer db.Close()

SEE ALSO:
  - store/store.go: Interface definitions
  - store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/warp/schedule-engine/jobs"
	"github.com/warp/schedule-engine/overdue"
	"github.com/warp/schedule-engine/recurring"
	"github.com/warp/schedule-engine/schedule"
	"github.com/warp/schedule-engine/store"
)

// Store implements store.Store using SQLite.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// New opens (and migrates) the database at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	// SQLite serialises writers anyway, and ":memory:" is per connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate database")
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		from_date TEXT NOT NULL,
		to_date TEXT NOT NULL,
		reschedule_type TEXT NOT NULL DEFAULT '',
		reschedule_to TEXT,
		office_ids_json TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_from ON holidays(from_date);

	CREATE TABLE IF NOT EXISTS working_days (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		recurrence TEXT NOT NULL,
		reschedule_type TEXT NOT NULL DEFAULT '',
		extend_term_daily INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS recurring_accounts (
		id TEXT PRIMARY KEY,
		frequency TEXT NOT NULL,
		every INTEGER NOT NULL,
		day_of_month INTEGER NOT NULL DEFAULT 0,
		start_date TEXT NOT NULL,
		maturity_date TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS recurring_installments (
		account_id TEXT NOT NULL REFERENCES recurring_accounts(id),
		installment_number INTEGER NOT NULL,
		due_date TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (account_id, installment_number)
	);

	CREATE INDEX IF NOT EXISTS idx_recurring_installments_due
		ON recurring_installments(account_id, due_date);

	CREATE TABLE IF NOT EXISTS loan_installments (
		loan_id INTEGER NOT NULL,
		installment_number INTEGER NOT NULL,
		due_date TEXT NOT NULL,
		charge_id INTEGER NOT NULL DEFAULT 0,
		penalty_frequency TEXT,
		penalty_every INTEGER,
		penalty_day_of_month INTEGER,
		paid INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (loan_id, installment_number)
	);

	CREATE INDEX IF NOT EXISTS idx_loan_installments_overdue
		ON loan_installments(due_date) WHERE paid = 0 AND charge_id <> 0;

	CREATE TABLE IF NOT EXISTS penalty_charges (
		id TEXT PRIMARY KEY,
		loan_id INTEGER NOT NULL,
		installment_number INTEGER NOT NULL,
		charge_id INTEGER NOT NULL,
		frequency_number INTEGER NOT NULL,
		charge_date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_penalty_occurrence
		ON penalty_charges(loan_id, installment_number, charge_id, frequency_number);

	CREATE TABLE IF NOT EXISTS job_runs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		business_date TEXT NOT NULL,
		status TEXT NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_job_runs_name ON job_runs(name, started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// WithTx runs fn inside a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "commit transaction")
}

// =============================================================================
// CALENDAR
// =============================================================================

// SaveHoliday inserts or replaces a holiday. An empty ID gets a new UUID.
func (s *Store) SaveHoliday(ctx context.Context, h schedule.Holiday) (schedule.Holiday, error) {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if err := h.Validate(); err != nil {
		return schedule.Holiday{}, err
	}
	offices, err := json.Marshal(nonNil(h.OfficeIDs))
	if err != nil {
		return schedule.Holiday{}, errors.Wrap(err, "encode office ids")
	}

	query := `
		INSERT INTO holidays (id, name, from_date, to_date, reschedule_type, reschedule_to, office_ids_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			from_date = excluded.from_date,
			to_date = excluded.to_date,
			reschedule_type = excluded.reschedule_type,
			reschedule_to = excluded.reschedule_to,
			office_ids_json = excluded.office_ids_json
	`
	_, err = s.db.ExecContext(ctx, query,
		h.ID, h.Name, h.From.String(), h.To.String(),
		string(h.RescheduleType), nullDate(h.RescheduleTo), string(offices),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return schedule.Holiday{}, errors.Wrapf(err, "save holiday %s", h.ID)
	}
	return h, nil
}

// DeleteHoliday deletes a holiday by ID.
func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
	if err != nil {
		return errors.Wrapf(err, "delete holiday %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListHolidays returns holidays ordered by start date.
func (s *Store) ListHolidays(ctx context.Context) ([]schedule.Holiday, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, from_date, to_date, reschedule_type, reschedule_to, office_ids_json
		FROM holidays
		ORDER BY from_date, id
	`)
	if err != nil {
		return nil, errors.Wrap(err, "list holidays")
	}
	defer rows.Close()

	var out []schedule.Holiday
	for rows.Next() {
		var h schedule.Holiday
		var from, to, offices, rescheduleType string
		var rescheduleTo sql.NullString
		if err := rows.Scan(&h.ID, &h.Name, &from, &to, &rescheduleType, &rescheduleTo, &offices); err != nil {
			return nil, err
		}
		h.RescheduleType = schedule.RescheduleType(rescheduleType)
		if h.From, err = schedule.ParseDate(from); err != nil {
			return nil, err
		}
		if h.To, err = schedule.ParseDate(to); err != nil {
			return nil, err
		}
		if h.RescheduleTo, err = parseNullDate(rescheduleTo); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(offices), &h.OfficeIDs); err != nil {
			return nil, errors.Wrapf(err, "decode office ids of holiday %s", h.ID)
		}
		if len(h.OfficeIDs) == 0 {
			h.OfficeIDs = nil
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// GetWorkingDays returns store.ErrNotFound when no rule was saved.
func (s *Store) GetWorkingDays(ctx context.Context) (schedule.WorkingDaysRule, error) {
	var (
		recurrence, policy string
		extend             bool
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT recurrence, reschedule_type, extend_term_daily FROM working_days WHERE id = 1",
	).Scan(&recurrence, &policy, &extend)
	if err == sql.ErrNoRows {
		return schedule.WorkingDaysRule{}, store.ErrNotFound
	}
	if err != nil {
		return schedule.WorkingDaysRule{}, errors.Wrap(err, "get working days")
	}
	return schedule.NewWorkingDaysRule(recurrence, schedule.RescheduleType(policy), extend)
}

// SaveWorkingDays validates and stores the rule.
func (s *Store) SaveWorkingDays(ctx context.Context, rule schedule.WorkingDaysRule) error {
	if _, err := schedule.NewWorkingDaysRule(rule.Recurrence, rule.RescheduleType, rule.ExtendTermForDailyRepayments); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO working_days (id, recurrence, reschedule_type, extend_term_daily, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			recurrence = excluded.recurrence,
			reschedule_type = excluded.reschedule_type,
			extend_term_daily = excluded.extend_term_daily,
			updated_at = excluded.updated_at
	`, rule.Recurrence, string(rule.RescheduleType), rule.ExtendTermForDailyRepayments,
		time.Now().UTC().Format(time.RFC3339))
	return errors.Wrap(err, "save working days")
}

// =============================================================================
// RECURRING DEPOSITS
// =============================================================================

// CreateRecurringAccount stores the account and its first installment.
func (s *Store) CreateRecurringAccount(ctx context.Context, acct store.RecurringAccount) error {
	if err := acct.Recurrence.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO recurring_accounts (id, frequency, every, day_of_month, start_date, maturity_date, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, acct.ID, string(acct.Recurrence.Frequency), acct.Recurrence.Every, acct.Recurrence.DayOfMonth,
			acct.StartDate.String(), nullDate(acct.MaturityDate), now)
		if isUniqueConstraintError(err) {
			return store.ErrDuplicateAccount
		}
		if err != nil {
			return errors.Wrapf(err, "create recurring account %s", acct.ID)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO recurring_installments (account_id, installment_number, due_date, created_at)
			VALUES (?, 1, ?, ?)
		`, acct.ID, acct.StartDate.String(), now)
		return errors.Wrap(err, "insert first installment")
	})
}

// ListRecurringAccounts returns accounts ordered by ID with their latest installment.
func (s *Store) ListRecurringAccounts(ctx context.Context) ([]recurring.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.frequency, a.every, a.day_of_month, a.maturity_date,
			i.installment_number, i.due_date
		FROM recurring_accounts a
		JOIN recurring_installments i ON i.account_id = a.id
		WHERE i.installment_number = (
			SELECT MAX(installment_number) FROM recurring_installments WHERE account_id = a.id
		)
		ORDER BY a.id
	`)
	if err != nil {
		return nil, errors.Wrap(err, "list recurring accounts")
	}
	defer rows.Close()

	var out []recurring.Account
	for rows.Next() {
		var (
			a         recurring.Account
			frequency string
			maturity  sql.NullString
			due       string
		)
		if err := rows.Scan(&a.ID, &frequency, &a.Recurrence.Every, &a.Recurrence.DayOfMonth, &maturity,
			&a.LastInstallmentNumber, &due); err != nil {
			return nil, err
		}
		a.Recurrence.Frequency = schedule.PeriodFrequencyType(frequency)
		if a.MaturityDate, err = parseNullDate(maturity); err != nil {
			return nil, err
		}
		if a.LastDueDate, err = schedule.ParseDate(due); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) CountFutureInstallments(ctx context.Context, accountID string, businessDate schedule.Date) (int, error) {
	var known int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM recurring_accounts WHERE id = ?", accountID,
	).Scan(&known); err != nil {
		return 0, err
	}
	if known == 0 {
		return 0, store.ErrUnknownAccount
	}

	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM recurring_installments WHERE account_id = ? AND due_date > ?",
		accountID, businessDate.String(),
	).Scan(&n)
	return n, errors.Wrap(err, "count future installments")
}

// SaveInstallments inserts rows in one transaction.
func (s *Store) SaveInstallments(ctx context.Context, rows []recurring.Installment) error {
	now := time.Now().UTC().Format(time.RFC3339)
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO recurring_installments (account_id, installment_number, due_date, created_at)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range rows {
			_, err := stmt.ExecContext(ctx, r.AccountID, r.InstallmentNumber, r.DueDate.String(), now)
			switch {
			case isUniqueConstraintError(err):
				return store.ErrDuplicateInstallment
			case isForeignKeyError(err):
				return store.ErrUnknownAccount
			case err != nil:
				return errors.Wrapf(err, "insert installment %s#%d", r.AccountID, r.InstallmentNumber)
			}
		}
		return nil
	})
}

func (s *Store) ListInstallments(ctx context.Context, accountID string) ([]recurring.Installment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT installment_number, due_date FROM recurring_installments
		WHERE account_id = ?
		ORDER BY installment_number
	`, accountID)
	if err != nil {
		return nil, errors.Wrap(err, "list installments")
	}
	defer rows.Close()

	var out []recurring.Installment
	for rows.Next() {
		inst := recurring.Installment{AccountID: accountID}
		var due string
		if err := rows.Scan(&inst.InstallmentNumber, &due); err != nil {
			return nil, err
		}
		if inst.DueDate, err = schedule.ParseDate(due); err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, store.ErrUnknownAccount
	}
	return out, nil
}

// =============================================================================
// LOAN INSTALLMENTS AND PENALTIES
// =============================================================================

// SaveLoanInstallments inserts or replaces rows by (loan, number).
func (s *Store) SaveLoanInstallments(ctx context.Context, rows []store.LoanInstallment) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		for _, r := range rows {
			var freq sql.NullString
			var every, dom sql.NullInt64
			if r.Penalty != nil {
				freq = nullString(string(r.Penalty.Frequency))
				every = sql.NullInt64{Int64: int64(r.Penalty.Every), Valid: true}
				dom = sql.NullInt64{Int64: int64(r.Penalty.DayOfMonth), Valid: true}
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO loan_installments (loan_id, installment_number, due_date, charge_id,
					penalty_frequency, penalty_every, penalty_day_of_month, paid)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(loan_id, installment_number) DO UPDATE SET
					due_date = excluded.due_date,
					charge_id = excluded.charge_id,
					penalty_frequency = excluded.penalty_frequency,
					penalty_every = excluded.penalty_every,
					penalty_day_of_month = excluded.penalty_day_of_month,
					paid = excluded.paid
			`, int64(r.LoanID), r.InstallmentNumber, r.DueDate.String(), r.ChargeID, freq, every, dom, r.Paid)
			if err != nil {
				return errors.Wrapf(err, "save loan installment %d#%d", r.LoanID, r.InstallmentNumber)
			}
		}
		return nil
	})
}

// ListOverdueInstallments returns unpaid installments with a penalty charge
// that fell due before businessDate, with the frequencies already charged.
func (s *Store) ListOverdueInstallments(ctx context.Context, businessDate schedule.Date) ([]overdue.OverdueInstallment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT li.loan_id, li.installment_number, li.due_date, li.charge_id,
			li.penalty_frequency, li.penalty_every, li.penalty_day_of_month,
			COALESCE(GROUP_CONCAT(pc.frequency_number), '')
		FROM loan_installments li
		LEFT JOIN penalty_charges pc
			ON pc.loan_id = li.loan_id
			AND pc.installment_number = li.installment_number
			AND pc.charge_id = li.charge_id
		WHERE li.paid = 0 AND li.charge_id <> 0 AND li.due_date < ?
		GROUP BY li.loan_id, li.installment_number
		ORDER BY li.loan_id, li.installment_number
	`, businessDate.String())
	if err != nil {
		return nil, errors.Wrap(err, "list overdue installments")
	}
	defer rows.Close()

	var out []overdue.OverdueInstallment
	for rows.Next() {
		var (
			inst    overdue.OverdueInstallment
			loanID  int64
			due     string
			freq    sql.NullString
			every   sql.NullInt64
			dom     sql.NullInt64
			applied string
		)
		if err := rows.Scan(&loanID, &inst.InstallmentNumber, &due, &inst.ChargeID, &freq, &every, &dom, &applied); err != nil {
			return nil, err
		}
		inst.LoanID = overdue.LoanID(loanID)
		if inst.DueDate, err = schedule.ParseDate(due); err != nil {
			return nil, err
		}
		if freq.Valid {
			inst.Penalty = &schedule.Recurrence{
				Frequency:  schedule.PeriodFrequencyType(freq.String),
				Every:      int(every.Int64),
				DayOfMonth: int(dom.Int64),
			}
		}
		if inst.AppliedFrequencies, err = parseIntList(applied); err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

// ApplyOverdueCharges records charges for one loan in one transaction.
func (s *Store) ApplyOverdueCharges(ctx context.Context, loanID overdue.LoanID, charges []overdue.PenaltyCharge) error {
	now := time.Now().UTC().Format(time.RFC3339)
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		for _, c := range charges {
			if c.LoanID != loanID {
				return errors.Errorf("charge for loan %d in batch of loan %d", c.LoanID, loanID)
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO penalty_charges (id, loan_id, installment_number, charge_id, frequency_number, charge_date, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, uuid.NewString(), int64(c.LoanID), c.InstallmentNumber, c.ChargeID, c.FrequencyNumber, c.ChargeDate.String(), now)
			if isUniqueConstraintError(err) {
				return store.ErrDuplicateCharge
			}
			if err != nil {
				return errors.Wrapf(err, "insert penalty for installment %d", c.InstallmentNumber)
			}
		}
		return nil
	})
}

func (s *Store) ListPenaltyCharges(ctx context.Context, loanID overdue.LoanID) ([]overdue.PenaltyCharge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT installment_number, charge_id, frequency_number, charge_date
		FROM penalty_charges
		WHERE loan_id = ?
		ORDER BY installment_number, charge_id, frequency_number
	`, int64(loanID))
	if err != nil {
		return nil, errors.Wrap(err, "list penalty charges")
	}
	defer rows.Close()

	var out []overdue.PenaltyCharge
	for rows.Next() {
		c := overdue.PenaltyCharge{LoanID: loanID}
		var chargeDate string
		if err := rows.Scan(&c.InstallmentNumber, &c.ChargeID, &c.FrequencyNumber, &chargeDate); err != nil {
			return nil, err
		}
		if c.ChargeDate, err = schedule.ParseDate(chargeDate); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// =============================================================================
// JOB RUNS
// =============================================================================

// SaveJobRun inserts a run or updates the one with the same ID.
func (s *Store) SaveJobRun(ctx context.Context, r jobs.JobRun) error {
	var completedAt *string
	if r.CompletedAt != nil {
		c := r.CompletedAt.UTC().Format(time.RFC3339Nano)
		completedAt = &c
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_runs (id, name, business_date, status, summary, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			summary = excluded.summary,
			error = excluded.error,
			completed_at = excluded.completed_at
	`, r.ID, r.Name, r.BusinessDate.String(), string(r.Status), r.Summary, r.Error,
		r.StartedAt.UTC().Format(time.RFC3339Nano), completedAt)
	return errors.Wrapf(err, "save job run %s", r.ID)
}

// ListJobRuns returns the newest runs first. An empty name lists every job.
func (s *Store) ListJobRuns(ctx context.Context, name string, limit int) ([]jobs.JobRun, error) {
	query := `
		SELECT id, name, business_date, status, summary, error, started_at, completed_at
		FROM job_runs
	`
	var args []any
	if name != "" {
		query += " WHERE name = ?"
		args = append(args, name)
	}
	query += " ORDER BY started_at DESC, rowid DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list job runs")
	}
	defer rows.Close()

	var out []jobs.JobRun
	for rows.Next() {
		var r jobs.JobRun
		var businessDate, status, startedAt string
		var completedAt sql.NullString
		if err := rows.Scan(&r.ID, &r.Name, &businessDate, &status, &r.Summary, &r.Error, &startedAt, &completedAt); err != nil {
			return nil, err
		}
		r.Status = jobs.Status(status)
		if r.BusinessDate, err = schedule.ParseDate(businessDate); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		if completedAt.Valid {
			t, _ := time.Parse(time.RFC3339Nano, completedAt.String)
			r.CompletedAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(d schedule.Date) sql.NullString {
	return nullString(d.String())
}

func parseNullDate(s sql.NullString) (schedule.Date, error) {
	if !s.Valid || s.String == "" {
		return schedule.Date{}, nil
	}
	return schedule.ParseDate(s.String)
}

func parseIntList(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, errors.Wrapf(err, "parse frequency number %q", p)
		}
		out = append(out, n)
	}
	return out, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
}

func isForeignKeyError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
