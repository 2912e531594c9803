package schedule

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// LOAN APPLICATION TERMS
// =============================================================================

// LoanApplicationTerms is the immutable input to due-date generation.
// Amount fields travel with the terms for downstream amount calculation;
// date generation only reads the repayment and date fields.
type LoanApplicationTerms struct {
	Principal decimal.Decimal
	Currency  string

	InterestMethod        InterestMethod
	AnnualInterestRate    decimal.Decimal // percent
	InterestRateFrequency PeriodFrequencyType
	AmortizationMethod    AmortizationMethod

	RepaymentFrequency PeriodFrequencyType
	RepaymentEvery     int
	NumberOfRepayments int

	ExpectedDisbursementDate Date
	SubmittedOnDate          Date
	RepaymentStartDateType   RepaymentStartDateType

	// RepaymentsStartingFromDate overrides the first due date.
	RepaymentsStartingFromDate Date

	DaysInMonth DaysInMonthType
	DaysInYear  DaysInYearType

	PreClosureInterestStrategy PreClosureInterestStrategy

	MultiDisburseLoan bool
	Tranches          []Tranche

	// VariableInstallmentsAllowed enables DueDateVariations and the gap checks.
	VariableInstallmentsAllowed bool
	MinimumGapDays              int // 0 = no minimum
	MaximumGapDays              int // 0 = no maximum
	DueDateVariations           []DueDateVariation
}

// Tranche is one disbursement of a multi-disbursement loan.
type Tranche struct {
	ExpectedDate Date
	Principal    decimal.Decimal
}

// DueDateVariation moves the installment nominally due on OriginalDate to
// RevisedDate. Later installments follow the revised date.
type DueDateVariation struct {
	OriginalDate Date
	RevisedDate  Date
}

// LoanStartDate is the date the first repayment period is counted from.
func (t LoanApplicationTerms) LoanStartDate() Date {
	if t.RepaymentStartDateType == RepaymentStartSubmittedOnDate {
		return t.SubmittedOnDate
	}
	return t.ExpectedDisbursementDate
}

// RepaymentRecurrence is the repayment frequency times its interval.
func (t LoanApplicationTerms) RepaymentRecurrence() Recurrence {
	return Recurrence{Frequency: t.RepaymentFrequency, Every: t.RepaymentEvery}
}

// Validate fails fast on anything that would make the schedule undefined.
func (t LoanApplicationTerms) Validate() error {
	if err := t.RepaymentRecurrence().Validate(); err != nil {
		return err
	}
	if t.NumberOfRepayments <= 0 {
		return configError("number_of_repayments", t.NumberOfRepayments, ErrInvalidTerms)
	}
	if t.Principal.IsNegative() {
		return configError("principal", t.Principal, ErrInvalidTerms)
	}
	if t.ExpectedDisbursementDate.IsZero() {
		return configError("expected_disbursement_date", "", ErrInvalidTerms)
	}
	switch t.RepaymentStartDateType {
	case "", RepaymentStartDisbursementDate:
	case RepaymentStartSubmittedOnDate:
		if t.SubmittedOnDate.IsZero() {
			return configError("submitted_on_date", "", ErrInvalidTerms)
		}
	default:
		return configError("repayment_start_date_type", t.RepaymentStartDateType, ErrInvalidTerms)
	}
	if !t.DaysInMonth.Valid() {
		return configError("days_in_month_type", t.DaysInMonth, ErrUnsupportedConvention)
	}
	if !t.DaysInYear.Valid() {
		return configError("days_in_year_type", t.DaysInYear, ErrUnsupportedConvention)
	}
	if t.InterestRateFrequency != "" && !t.InterestRateFrequency.Valid() {
		return configError("interest_rate_frequency", t.InterestRateFrequency, ErrInvalidFrequency)
	}
	if !t.RepaymentsStartingFromDate.IsZero() && !t.RepaymentsStartingFromDate.After(t.LoanStartDate()) {
		return configError("repayments_starting_from_date", t.RepaymentsStartingFromDate, ErrInvalidTerms)
	}
	if t.MultiDisburseLoan {
		if len(t.Tranches) == 0 {
			return configError("tranches", 0, ErrInvalidTerms)
		}
		for _, tr := range t.Tranches {
			if tr.ExpectedDate.IsZero() || !tr.Principal.IsPositive() {
				return configError("tranche", tr.ExpectedDate, ErrInvalidTerms)
			}
		}
	}
	if len(t.DueDateVariations) > 0 && !t.VariableInstallmentsAllowed {
		return configError("due_date_variations", len(t.DueDateVariations), ErrInvalidTerms)
	}
	for _, v := range t.DueDateVariations {
		if v.OriginalDate.IsZero() || v.RevisedDate.IsZero() {
			return configError("due_date_variation", v.OriginalDate, ErrInvalidTerms)
		}
	}
	if t.MinimumGapDays < 0 || t.MaximumGapDays < 0 ||
		(t.MaximumGapDays > 0 && t.MaximumGapDays < t.MinimumGapDays) {
		return configError("installment_gap", t.MinimumGapDays, ErrInvalidTerms)
	}
	return nil
}

func (t LoanApplicationTerms) revisedDate(nominal Date) (Date, bool) {
	for _, v := range t.DueDateVariations {
		if v.OriginalDate.Equal(nominal) {
			return v.RevisedDate, true
		}
	}
	return Date{}, false
}
