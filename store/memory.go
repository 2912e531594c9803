package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/warp/schedule-engine/jobs"
	"github.com/warp/schedule-engine/overdue"
	"github.com/warp/schedule-engine/recurring"
	"github.com/warp/schedule-engine/schedule"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for tests and previews)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	holidays     map[string]schedule.Holiday
	workingDays  *schedule.WorkingDaysRule
	accounts     map[string]RecurringAccount
	installments map[string][]recurring.Installment // by account, ordered by number
	loans        map[overdue.LoanID][]LoanInstallment
	charges      map[overdue.LoanID][]overdue.PenaltyCharge
	chargeKeys   map[chargeKey]bool
	runs         []jobs.JobRun
}

type chargeKey struct {
	LoanID            overdue.LoanID
	InstallmentNumber int
	ChargeID          int64
	FrequencyNumber   int
}

func keyOf(c overdue.PenaltyCharge) chargeKey {
	return chargeKey{c.LoanID, c.InstallmentNumber, c.ChargeID, c.FrequencyNumber}
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		holidays:     make(map[string]schedule.Holiday),
		accounts:     make(map[string]RecurringAccount),
		installments: make(map[string][]recurring.Installment),
		loans:        make(map[overdue.LoanID][]LoanInstallment),
		charges:      make(map[overdue.LoanID][]overdue.PenaltyCharge),
		chargeKeys:   make(map[chargeKey]bool),
	}
}

func (m *Memory) Close() error { return nil }

// =============================================================================
// CALENDAR
// =============================================================================

func (m *Memory) SaveHoliday(_ context.Context, h schedule.Holiday) (schedule.Holiday, error) {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if err := h.Validate(); err != nil {
		return schedule.Holiday{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays[h.ID] = h
	return h, nil
}

func (m *Memory) DeleteHoliday(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.holidays[id]; !ok {
		return ErrNotFound
	}
	delete(m.holidays, id)
	return nil
}

// ListHolidays returns holidays ordered by start date.
func (m *Memory) ListHolidays(_ context.Context) ([]schedule.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]schedule.Holiday, 0, len(m.holidays))
	for _, h := range m.holidays {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].From.Equal(out[j].From) {
			return out[i].From.Before(out[j].From)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) GetWorkingDays(_ context.Context) (schedule.WorkingDaysRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.workingDays == nil {
		return schedule.WorkingDaysRule{}, ErrNotFound
	}
	return *m.workingDays, nil
}

func (m *Memory) SaveWorkingDays(_ context.Context, rule schedule.WorkingDaysRule) error {
	parsed, err := schedule.NewWorkingDaysRule(rule.Recurrence, rule.RescheduleType, rule.ExtendTermForDailyRepayments)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workingDays = &parsed
	return nil
}

// =============================================================================
// RECURRING DEPOSITS
// =============================================================================

func (m *Memory) CreateRecurringAccount(_ context.Context, acct RecurringAccount) error {
	if err := acct.Recurrence.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[acct.ID]; ok {
		return ErrDuplicateAccount
	}
	m.accounts[acct.ID] = acct
	m.installments[acct.ID] = []recurring.Installment{{
		AccountID:            acct.ID,
		ProjectedInstallment: schedule.ProjectedInstallment{InstallmentNumber: 1, DueDate: acct.StartDate},
	}}
	return nil
}

// ListRecurringAccounts returns accounts ordered by ID with their latest installment.
func (m *Memory) ListRecurringAccounts(_ context.Context) ([]recurring.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]recurring.Account, 0, len(m.accounts))
	for id, acct := range m.accounts {
		rows := m.installments[id]
		last := rows[len(rows)-1]
		out = append(out, recurring.Account{
			ID:                    id,
			Recurrence:            acct.Recurrence,
			LastDueDate:           last.DueDate,
			LastInstallmentNumber: last.InstallmentNumber,
			MaturityDate:          acct.MaturityDate,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) CountFutureInstallments(_ context.Context, accountID string, businessDate schedule.Date) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows, ok := m.installments[accountID]
	if !ok {
		return 0, ErrUnknownAccount
	}
	n := 0
	for _, r := range rows {
		if r.DueDate.After(businessDate) {
			n++
		}
	}
	return n, nil
}

// SaveInstallments appends rows atomically.
func (m *Memory) SaveInstallments(_ context.Context, rows []recurring.Installment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check everything first so a rejected batch writes nothing
	seen := make(map[string]map[int]bool)
	for _, r := range rows {
		if _, ok := m.accounts[r.AccountID]; !ok {
			return ErrUnknownAccount
		}
		if seen[r.AccountID] == nil {
			seen[r.AccountID] = make(map[int]bool)
			for _, existing := range m.installments[r.AccountID] {
				seen[r.AccountID][existing.InstallmentNumber] = true
			}
		}
		if seen[r.AccountID][r.InstallmentNumber] {
			return ErrDuplicateInstallment
		}
		seen[r.AccountID][r.InstallmentNumber] = true
	}

	for _, r := range rows {
		list := m.installments[r.AccountID]
		idx := sort.Search(len(list), func(i int) bool {
			return list[i].InstallmentNumber > r.InstallmentNumber
		})
		list = append(list, recurring.Installment{})
		copy(list[idx+1:], list[idx:])
		list[idx] = r
		m.installments[r.AccountID] = list
	}
	return nil
}

func (m *Memory) ListInstallments(_ context.Context, accountID string) ([]recurring.Installment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows, ok := m.installments[accountID]
	if !ok {
		return nil, ErrUnknownAccount
	}
	return append([]recurring.Installment(nil), rows...), nil
}

// =============================================================================
// LOAN INSTALLMENTS AND PENALTIES
// =============================================================================

// SaveLoanInstallments inserts or replaces rows by (loan, number).
func (m *Memory) SaveLoanInstallments(_ context.Context, rows []LoanInstallment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		list := m.loans[r.LoanID]
		replaced := false
		for i := range list {
			if list[i].InstallmentNumber == r.InstallmentNumber {
				list[i] = r
				replaced = true
				break
			}
		}
		if !replaced {
			list = append(list, r)
			sort.Slice(list, func(i, j int) bool { return list[i].InstallmentNumber < list[j].InstallmentNumber })
		}
		m.loans[r.LoanID] = list
	}
	return nil
}

// ListOverdueInstallments returns unpaid installments with a penalty charge
// that fell due before businessDate, with the frequencies already charged.
func (m *Memory) ListOverdueInstallments(_ context.Context, businessDate schedule.Date) ([]overdue.OverdueInstallment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]overdue.LoanID, 0, len(m.loans))
	for id := range m.loans {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []overdue.OverdueInstallment
	for _, id := range ids {
		for _, r := range m.loans[id] {
			if r.Paid || r.ChargeID == 0 || !r.DueDate.Before(businessDate) {
				continue
			}
			inst := overdue.OverdueInstallment{
				LoanID:            r.LoanID,
				InstallmentNumber: r.InstallmentNumber,
				DueDate:           r.DueDate,
				ChargeID:          r.ChargeID,
				Penalty:           r.Penalty,
			}
			for _, c := range m.charges[id] {
				if c.InstallmentNumber == r.InstallmentNumber && c.ChargeID == r.ChargeID {
					inst.AppliedFrequencies = append(inst.AppliedFrequencies, c.FrequencyNumber)
				}
			}
			out = append(out, inst)
		}
	}
	return out, nil
}

// ApplyOverdueCharges records charges for one loan atomically.
func (m *Memory) ApplyOverdueCharges(_ context.Context, loanID overdue.LoanID, charges []overdue.PenaltyCharge) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	batch := make(map[chargeKey]bool, len(charges))
	for _, c := range charges {
		k := keyOf(c)
		if c.LoanID != loanID || m.chargeKeys[k] || batch[k] {
			return ErrDuplicateCharge
		}
		batch[k] = true
	}
	for _, c := range charges {
		m.chargeKeys[keyOf(c)] = true
		m.charges[loanID] = append(m.charges[loanID], c)
	}
	return nil
}

func (m *Memory) ListPenaltyCharges(_ context.Context, loanID overdue.LoanID) ([]overdue.PenaltyCharge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]overdue.PenaltyCharge(nil), m.charges[loanID]...), nil
}

// =============================================================================
// JOB RUNS
// =============================================================================

// SaveJobRun inserts a run or replaces the one with the same ID.
func (m *Memory) SaveJobRun(_ context.Context, run jobs.JobRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.runs {
		if m.runs[i].ID == run.ID {
			m.runs[i] = run
			return nil
		}
	}
	m.runs = append(m.runs, run)
	return nil
}

// ListJobRuns returns the newest runs first. An empty name lists every job.
func (m *Memory) ListJobRuns(_ context.Context, name string, limit int) ([]jobs.JobRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []jobs.JobRun
	for i := len(m.runs) - 1; i >= 0; i-- {
		if name != "" && m.runs[i].Name != name {
			continue
		}
		out = append(out, m.runs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
