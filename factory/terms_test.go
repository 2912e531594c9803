package factory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/schedule-engine/factory"
	"github.com/warp/schedule-engine/schedule"
)

func d(s string) schedule.Date {
	return schedule.MustParseDate(s)
}

const monthlyTermsJSON = `{
	"principal": "10000.50",
	"currency": "USD",
	"annual_interest_rate": "12.5",
	"repayment_frequency": "months",
	"number_of_repayments": 3,
	"expected_disbursement_date": "2024-01-15"
}`

func TestParseTerms_Defaults(t *testing.T) {
	terms, meetings, err := factory.ParseTerms([]byte(monthlyTermsJSON))
	require.NoError(t, err)
	assert.Nil(t, meetings)

	assert.True(t, terms.Principal.Equal(decimal.RequireFromString("10000.50")))
	assert.True(t, terms.AnnualInterestRate.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, 1, terms.RepaymentEvery)
	assert.Equal(t, schedule.DaysInMonthActual, terms.DaysInMonth)
	assert.Equal(t, schedule.DaysInYearActual, terms.DaysInYear)
	assert.Equal(t, schedule.RepaymentStartDisbursementDate, terms.RepaymentStartDateType)
	assert.False(t, terms.MultiDisburseLoan)

	periods, err := schedule.GenerateDueDates(terms, schedule.CalendarContext{})
	require.NoError(t, err)
	require.Len(t, periods, 3)
	assert.Equal(t, d("2024-04-15"), periods[2].DueDate())
}

func TestParseTerms_TranchesAndVariations(t *testing.T) {
	doc := `{
		"principal": "10000",
		"repayment_frequency": "months",
		"number_of_repayments": 4,
		"expected_disbursement_date": "2024-01-15",
		"tranches": [
			{"expected_date": "2024-01-15", "principal": "5000"},
			{"expected_date": "2024-03-01", "principal": "5000"}
		],
		"variable_installments": {
			"due_date_variations": [{"original_date": "2024-03-15", "revised_date": "2024-03-20"}]
		}
	}`

	terms, _, err := factory.ParseTerms([]byte(doc))
	require.NoError(t, err)
	assert.True(t, terms.MultiDisburseLoan)
	require.Len(t, terms.Tranches, 2)
	assert.True(t, terms.VariableInstallmentsAllowed)
	assert.Equal(t, []schedule.DueDateVariation{{OriginalDate: d("2024-03-15"), RevisedDate: d("2024-03-20")}}, terms.DueDateVariations)

	round, _, err := factory.FromJSON(factory.ToJSON(terms))
	require.NoError(t, err)
	assert.Equal(t, terms.DueDateVariations, round.DueDateVariations)
	assert.Equal(t, len(terms.Tranches), len(round.Tranches))
}

func TestParseTerms_Meeting(t *testing.T) {
	doc := `{
		"principal": "500",
		"repayment_frequency": "weeks",
		"repayment_every": 2,
		"number_of_repayments": 2,
		"expected_disbursement_date": "2024-01-01",
		"meeting": {"recurrence": "FREQ=WEEKLY;INTERVAL=1;BYDAY=TH"}
	}`

	_, meetings, err := factory.ParseTerms([]byte(doc))
	require.NoError(t, err)
	require.NotNil(t, meetings)

	next, ok := meetings.NextMeetingDate(d("2024-01-01"))
	require.True(t, ok)
	assert.Equal(t, d("2024-01-04"), next)
}

func TestParseTerms_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed", `{`},
		{"bad amount", `{"principal": "ten", "repayment_frequency": "months", "number_of_repayments": 1, "expected_disbursement_date": "2024-01-01"}`},
		{"bad frequency", `{"principal": "10", "repayment_frequency": "fortnights", "number_of_repayments": 1, "expected_disbursement_date": "2024-01-01"}`},
		{"bad date", `{"principal": "10", "repayment_frequency": "months", "number_of_repayments": 1, "expected_disbursement_date": "01/01/2024"}`},
		{"no repayments", `{"principal": "10", "repayment_frequency": "months", "number_of_repayments": 0, "expected_disbursement_date": "2024-01-01"}`},
		{"bad day count", `{"principal": "10", "repayment_frequency": "months", "number_of_repayments": 1, "expected_disbursement_date": "2024-01-01", "days_in_year_type": "366"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := factory.ParseTerms([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestParseCalendar(t *testing.T) {
	doc := `{
		"working_days": {"recurrence": "FREQ=WEEKLY;INTERVAL=1;BYDAY=MO,TU,WE,TH,FR,SA", "reschedule_type": "move_to_next_working_day"},
		"holidays": [
			{"name": "New Year", "from": "2024-01-01"},
			{"name": "Carnival", "from": "2024-02-12", "to": "2024-02-13", "reschedule_type": "reschedule_to_specified_date", "reschedule_to": "2024-02-15"}
		]
	}`

	rule, holidays, err := factory.ParseCalendar([]byte(doc))
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.True(t, rule.IsWorkingDay(d("2024-01-06")), "Saturday is open")
	require.Len(t, holidays, 2)
	assert.Equal(t, d("2024-01-01"), holidays[0].To)
	assert.Equal(t, d("2024-02-15"), holidays[1].RescheduleTo)

	_, _, err = factory.ParseCalendar([]byte(`{"holidays": [{"name": "x", "from": "2024-02-12", "reschedule_type": "reschedule_to_specified_date"}]}`))
	assert.True(t, schedule.IsConfigurationError(err))
}
