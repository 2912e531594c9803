/*
Package factory provides JSON to Go conversion for loan terms and calendars.

PURPOSE:
  Converts JSON documents (terms files for `preview loan`, holiday and
  working-days definitions for `holidays add`) into the engine's types.
  Amounts are decimal strings so no precision is lost on the way in.

JSON SCHEMA:
  {
    "principal": "10000.00",
    "currency": "USD",
    "annual_interest_rate": "12",
    "repayment_frequency": "months",
    "repayment_every": 1,
    "number_of_repayments": 12,
    "expected_disbursement_date": "2024-01-15",
    "repayments_starting_from_date": "2024-02-01",
    "days_in_month_type": "actual",
    "days_in_year_type": "365",
    "tranches": [
      {"expected_date": "2024-03-01", "principal": "5000"}
    ],
    "variable_installments": {
      "minimum_gap_days": 7,
      "maximum_gap_days": 45,
      "due_date_variations": [
        {"original_date": "2024-04-15", "revised_date": "2024-04-20"}
      ]
    },
    "meeting": {"recurrence": "FREQ=WEEKLY;INTERVAL=2;BYDAY=TH", "start_date": "2024-01-04"}
  }

DEFAULTS:
  repayment_every 1, interest_method declining_balance, amortization
  equal_installments, day counts actual/actual, repayment start from the
  disbursement date. A non-empty tranches list makes the loan multi-disburse.

SEE ALSO:
  - schedule/terms.go: LoanApplicationTerms
  - cmd/schedule-engine/preview.go: Reads terms files
*/
package factory

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/warp/schedule-engine/schedule"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// TermsJSON is the JSON representation of loan application terms.
type TermsJSON struct {
	Principal             string `json:"principal"`
	Currency              string `json:"currency,omitempty"`
	InterestMethod        string `json:"interest_method,omitempty"`
	AnnualInterestRate    string `json:"annual_interest_rate,omitempty"`
	InterestRateFrequency string `json:"interest_rate_frequency,omitempty"`
	AmortizationMethod    string `json:"amortization_method,omitempty"`

	RepaymentFrequency string `json:"repayment_frequency"`
	RepaymentEvery     int    `json:"repayment_every,omitempty"`
	NumberOfRepayments int    `json:"number_of_repayments"`

	ExpectedDisbursementDate   string `json:"expected_disbursement_date"`
	SubmittedOnDate            string `json:"submitted_on_date,omitempty"`
	RepaymentStartDateType     string `json:"repayment_start_date_type,omitempty"`
	RepaymentsStartingFromDate string `json:"repayments_starting_from_date,omitempty"`

	DaysInMonthType string `json:"days_in_month_type,omitempty"`
	DaysInYearType  string `json:"days_in_year_type,omitempty"`

	PreClosureInterestStrategy string `json:"pre_closure_interest_strategy,omitempty"`

	Tranches             []TrancheJSON             `json:"tranches,omitempty"`
	VariableInstallments *VariableInstallmentsJSON `json:"variable_installments,omitempty"`
	Meeting              *MeetingJSON              `json:"meeting,omitempty"`
}

type TrancheJSON struct {
	ExpectedDate string `json:"expected_date"`
	Principal    string `json:"principal"`
}

type VariableInstallmentsJSON struct {
	MinimumGapDays    int                 `json:"minimum_gap_days,omitempty"`
	MaximumGapDays    int                 `json:"maximum_gap_days,omitempty"`
	DueDateVariations []DueDateChangeJSON `json:"due_date_variations,omitempty"`
}

type DueDateChangeJSON struct {
	OriginalDate string `json:"original_date"`
	RevisedDate  string `json:"revised_date"`
}

// MeetingJSON is a group or center meeting schedule.
type MeetingJSON struct {
	Recurrence string `json:"recurrence"`
	StartDate  string `json:"start_date"`
}

// =============================================================================
// TERMS FACTORY
// =============================================================================

// ParseTerms parses a terms document and validates the result.
func ParseTerms(data []byte) (schedule.LoanApplicationTerms, schedule.MeetingCalendar, error) {
	var tj TermsJSON
	if err := json.Unmarshal(data, &tj); err != nil {
		return schedule.LoanApplicationTerms{}, nil, errors.Wrap(err, "parse terms JSON")
	}
	return FromJSON(tj)
}

// FromJSON converts TermsJSON, applying defaults. The meeting calendar is nil
// when the document has none.
func FromJSON(tj TermsJSON) (schedule.LoanApplicationTerms, schedule.MeetingCalendar, error) {
	var (
		t   schedule.LoanApplicationTerms
		err error
	)

	if t.Principal, err = parseAmount("principal", tj.Principal); err != nil {
		return t, nil, err
	}
	if t.AnnualInterestRate, err = parseAmount("annual_interest_rate", tj.AnnualInterestRate); err != nil {
		return t, nil, err
	}
	t.Currency = tj.Currency
	t.InterestMethod = schedule.InterestMethod(or(tj.InterestMethod, string(schedule.InterestDecliningBalance)))
	t.AmortizationMethod = schedule.AmortizationMethod(or(tj.AmortizationMethod, string(schedule.AmortizationEqualInstallments)))
	t.InterestRateFrequency = schedule.PeriodFrequencyType(tj.InterestRateFrequency)

	if t.RepaymentFrequency, err = schedule.ParsePeriodFrequencyType(tj.RepaymentFrequency); err != nil {
		return t, nil, errors.Wrap(err, "repayment_frequency")
	}
	t.RepaymentEvery = tj.RepaymentEvery
	if t.RepaymentEvery == 0 {
		t.RepaymentEvery = 1
	}
	t.NumberOfRepayments = tj.NumberOfRepayments

	if t.ExpectedDisbursementDate, err = parseDate("expected_disbursement_date", tj.ExpectedDisbursementDate); err != nil {
		return t, nil, err
	}
	if t.SubmittedOnDate, err = parseDate("submitted_on_date", tj.SubmittedOnDate); err != nil {
		return t, nil, err
	}
	if t.RepaymentsStartingFromDate, err = parseDate("repayments_starting_from_date", tj.RepaymentsStartingFromDate); err != nil {
		return t, nil, err
	}
	t.RepaymentStartDateType = schedule.RepaymentStartDateType(or(tj.RepaymentStartDateType, string(schedule.RepaymentStartDisbursementDate)))

	t.DaysInMonth = schedule.DaysInMonthType(or(tj.DaysInMonthType, string(schedule.DaysInMonthActual)))
	t.DaysInYear = schedule.DaysInYearType(or(tj.DaysInYearType, string(schedule.DaysInYearActual)))
	t.PreClosureInterestStrategy = schedule.PreClosureInterestStrategy(tj.PreClosureInterestStrategy)

	for i, trj := range tj.Tranches {
		var tr schedule.Tranche
		if tr.ExpectedDate, err = parseDate("tranches.expected_date", trj.ExpectedDate); err != nil {
			return t, nil, errors.Wrapf(err, "tranche %d", i+1)
		}
		if tr.Principal, err = parseAmount("tranches.principal", trj.Principal); err != nil {
			return t, nil, errors.Wrapf(err, "tranche %d", i+1)
		}
		t.Tranches = append(t.Tranches, tr)
	}
	t.MultiDisburseLoan = len(t.Tranches) > 0

	if vi := tj.VariableInstallments; vi != nil {
		t.VariableInstallmentsAllowed = true
		t.MinimumGapDays = vi.MinimumGapDays
		t.MaximumGapDays = vi.MaximumGapDays
		for _, vj := range vi.DueDateVariations {
			var v schedule.DueDateVariation
			if v.OriginalDate, err = parseDate("original_date", vj.OriginalDate); err != nil {
				return t, nil, err
			}
			if v.RevisedDate, err = parseDate("revised_date", vj.RevisedDate); err != nil {
				return t, nil, err
			}
			t.DueDateVariations = append(t.DueDateVariations, v)
		}
	}

	if err := t.Validate(); err != nil {
		return t, nil, err
	}

	var meetings schedule.MeetingCalendar
	if tj.Meeting != nil {
		start, err := parseDate("meeting.start_date", tj.Meeting.StartDate)
		if err != nil {
			return t, nil, err
		}
		if start.IsZero() {
			start = t.LoanStartDate()
		}
		mc, err := schedule.NewRecurringMeetingCalendar(tj.Meeting.Recurrence, start)
		if err != nil {
			return t, nil, err
		}
		meetings = mc
	}
	return t, meetings, nil
}

// ToJSON converts terms back to their JSON representation.
func ToJSON(t schedule.LoanApplicationTerms) TermsJSON {
	tj := TermsJSON{
		Principal:                  t.Principal.String(),
		Currency:                   t.Currency,
		InterestMethod:             string(t.InterestMethod),
		AnnualInterestRate:         t.AnnualInterestRate.String(),
		InterestRateFrequency:      string(t.InterestRateFrequency),
		AmortizationMethod:         string(t.AmortizationMethod),
		RepaymentFrequency:         string(t.RepaymentFrequency),
		RepaymentEvery:             t.RepaymentEvery,
		NumberOfRepayments:         t.NumberOfRepayments,
		ExpectedDisbursementDate:   t.ExpectedDisbursementDate.String(),
		SubmittedOnDate:            t.SubmittedOnDate.String(),
		RepaymentStartDateType:     string(t.RepaymentStartDateType),
		RepaymentsStartingFromDate: t.RepaymentsStartingFromDate.String(),
		DaysInMonthType:            string(t.DaysInMonth),
		DaysInYearType:             string(t.DaysInYear),
		PreClosureInterestStrategy: string(t.PreClosureInterestStrategy),
	}
	for _, tr := range t.Tranches {
		tj.Tranches = append(tj.Tranches, TrancheJSON{ExpectedDate: tr.ExpectedDate.String(), Principal: tr.Principal.String()})
	}
	if t.VariableInstallmentsAllowed {
		vi := &VariableInstallmentsJSON{MinimumGapDays: t.MinimumGapDays, MaximumGapDays: t.MaximumGapDays}
		for _, v := range t.DueDateVariations {
			vi.DueDateVariations = append(vi.DueDateVariations, DueDateChangeJSON{
				OriginalDate: v.OriginalDate.String(),
				RevisedDate:  v.RevisedDate.String(),
			})
		}
		tj.VariableInstallments = vi
	}
	return tj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

// parseAmount treats an empty string as zero.
func parseAmount(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "%s: invalid amount %q", field, s)
	}
	return d, nil
}

// parseDate treats an empty string as the zero date.
func parseDate(field, s string) (schedule.Date, error) {
	if s == "" {
		return schedule.Date{}, nil
	}
	d, err := schedule.ParseDate(s)
	if err != nil {
		return schedule.Date{}, errors.Wrap(err, field)
	}
	return d, nil
}

func or(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
