/*
errors.go - Error taxonomy for the schedule engine

PURPOSE:
  All engine errors in one place. Callers branch on two categories:

  1. Configuration errors - the terms or calendar are malformed
     (invalid frequency, non-positive interval, unsupported day-count
     convention, adjustment that never settles). Fix the input.
  2. Domain rule errors - the input is well formed but a business rule
     cannot be satisfied for a specific date (no meeting date available,
     tranche outside the loan term). Report and continue with other work.

  Sentinel errors are matched with errors.Is; the structured errors carry
  the offending field or date and unwrap to a sentinel.

SEE ALSO:
  - overdue/aggregator.go: collects per-loan errors into a BatchError
*/
package schedule

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidFrequency is returned for INVALID or unsupported period frequencies.
	ErrInvalidFrequency = errors.New("invalid period frequency")

	// ErrInvalidInterval is returned when a repeat interval is not positive.
	ErrInvalidInterval = errors.New("repeat interval must be positive")

	// ErrUnsupportedConvention is returned when a day-count convention cannot be resolved.
	ErrUnsupportedConvention = errors.New("unsupported day-count convention")

	// ErrInvalidPostingType is returned for INVALID posting period types.
	ErrInvalidPostingType = errors.New("invalid posting period type")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrInvalidRecurrence is returned when a working-day or meeting rule cannot be parsed.
	ErrInvalidRecurrence = errors.New("invalid recurrence rule")

	// ErrAdjustmentLoop is returned when holiday or working-day adjustment
	// does not reach a stable date within the scan bound.
	ErrAdjustmentLoop = errors.New("date adjustment did not converge")

	// ErrNoMeetingDate is returned when a due date must move to the next
	// meeting but no meeting calendar or meeting date is available.
	ErrNoMeetingDate = errors.New("no meeting date available")

	// ErrInvalidTerms is returned when loan terms are incomplete.
	ErrInvalidTerms = errors.New("invalid loan terms")

	// ErrTrancheOutOfRange is returned when a disbursement tranche falls
	// outside the loan's repayment schedule.
	ErrTrancheOutOfRange = errors.New("tranche outside repayment schedule")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ConfigurationError reports a malformed input field.
type ConfigurationError struct {
	Field string
	Value any
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s=%v: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func configError(field string, value any, err error) error {
	return &ConfigurationError{Field: field, Value: value, Err: err}
}

// DomainRuleError reports a business rule that could not be satisfied for
// a specific date.
type DomainRuleError struct {
	Rule string
	Date Date
	Err  error
}

func (e *DomainRuleError) Error() string {
	return fmt.Sprintf("%s on %s: %v", e.Rule, e.Date, e.Err)
}

func (e *DomainRuleError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsConfigurationError returns true if err stems from malformed terms or calendars.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsDomainRuleError returns true if err is a per-date business rule violation.
func IsDomainRuleError(err error) bool {
	var de *DomainRuleError
	return errors.As(err, &de)
}
