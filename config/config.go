/*
config.go - Environment configuration and logger setup

PURPOSE:
  Loads tenant and process settings from SCHEDULE_* environment variables,
  builds the logrus logger, and assembles the CalendarContext snapshot the
  engine needs from whatever store holds the tenant calendar.

VARIABLES:
  SCHEDULE_DB_PATH                   SQLite file (default ./data/schedule.db)
  SCHEDULE_LOG_LEVEL                 logrus level (default info)
  SCHEDULE_LOG_FORMAT                json | text (default json)
  SCHEDULE_TENANT_TIMEZONE           IANA zone for the business date (default UTC)
  SCHEDULE_BUSINESS_DATE             YYYY-MM-DD override of "today"
  SCHEDULE_OFFICE_ID                 Scopes office-specific holidays
  SCHEDULE_LOOK_AHEAD_INSTALLMENTS   Recurring deposit look-ahead (default 5)
  SCHEDULE_BATCH_SIZE                Rows per write (default 200)
  SCHEDULE_PENALTY_WAIT_PERIOD       Days before a penalty applies (default 2)
  SCHEDULE_GRACE_ON_PENALTY_POSTING  Days of grace on backdating (default 0)
  SCHEDULE_BACKDATE_PENALTIES        Charge missed occurrences (default true)
  SCHEDULE_RECURRING_CRON            Cron spec of the recurring job
  SCHEDULE_PENALTY_CRON              Cron spec of the penalty job
*/
package config

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/warp/schedule-engine/schedule"
	"github.com/warp/schedule-engine/store"
)

// Prefix of every environment variable.
const Prefix = "schedule"

type Config struct {
	DBPath    string `envconfig:"DB_PATH" default:"./data/schedule.db"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	TenantTimezone       string `envconfig:"TENANT_TIMEZONE" default:"UTC"`
	BusinessDateOverride string `envconfig:"BUSINESS_DATE"`
	OfficeID             string `envconfig:"OFFICE_ID"`

	LookAheadInstallments int `envconfig:"LOOK_AHEAD_INSTALLMENTS" default:"5"`
	BatchSize             int `envconfig:"BATCH_SIZE" default:"200"`

	PenaltyWaitPeriod     int  `envconfig:"PENALTY_WAIT_PERIOD" default:"2"`
	GraceOnPenaltyPosting int  `envconfig:"GRACE_ON_PENALTY_POSTING" default:"0"`
	BackdatePenalties     bool `envconfig:"BACKDATE_PENALTIES" default:"true"`

	RecurringCron string `envconfig:"RECURRING_CRON" default:"0 1 * * *"`
	PenaltyCron   string `envconfig:"PENALTY_CRON" default:"30 1 * * *"`

	location     *time.Location
	businessDate schedule.Date
}

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "read environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field and resolves the time zone and the business
// date override.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("SCHEDULE_DB_PATH must not be empty")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "SCHEDULE_LOG_LEVEL")
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		return errors.Errorf("SCHEDULE_LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}

	loc, err := time.LoadLocation(c.TenantTimezone)
	if err != nil {
		return errors.Wrap(err, "SCHEDULE_TENANT_TIMEZONE")
	}
	c.location = loc

	c.businessDate = schedule.Date{}
	if c.BusinessDateOverride != "" {
		d, err := schedule.ParseDate(c.BusinessDateOverride)
		if err != nil {
			return errors.Wrap(err, "SCHEDULE_BUSINESS_DATE")
		}
		c.businessDate = d
	}

	if c.LookAheadInstallments <= 0 {
		return errors.New("SCHEDULE_LOOK_AHEAD_INSTALLMENTS must be positive")
	}
	if c.BatchSize <= 0 {
		return errors.New("SCHEDULE_BATCH_SIZE must be positive")
	}
	if c.PenaltyWaitPeriod < 0 || c.GraceOnPenaltyPosting < 0 {
		return errors.New("penalty wait period and grace must not be negative")
	}
	return nil
}

// Location is the tenant time zone.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// BusinessDate returns the override if set, otherwise today in the tenant zone.
func (c *Config) BusinessDate() schedule.Date {
	if !c.businessDate.IsZero() {
		return c.businessDate
	}
	return schedule.Today(c.Location())
}

// =============================================================================
// LOGGER
// =============================================================================

// NewLogger builds the process logger writing to out (stderr when nil).
func (c *Config) NewLogger(out io.Writer) *logrus.Logger {
	logger := logrus.New()
	if out == nil {
		out = os.Stderr
	}
	logger.SetOutput(out)

	if strings.ToLower(c.LogFormat) == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// =============================================================================
// CALENDAR SNAPSHOT
// =============================================================================

// CalendarContext assembles the tenant snapshot from the store: working days
// (Monday to Friday, same day, when none is stored) and the holidays that
// apply to the configured office.
func (c *Config) CalendarContext(ctx context.Context, source store.CalendarStore) (schedule.CalendarContext, error) {
	rule, err := source.GetWorkingDays(ctx)
	if errors.Is(err, store.ErrNotFound) {
		rule, err = schedule.NewWorkingDaysRule(schedule.DefaultWorkingDays, schedule.RescheduleSameDay, false)
	}
	if err != nil {
		return schedule.CalendarContext{}, errors.Wrap(err, "load working days")
	}

	list, err := source.ListHolidays(ctx)
	if err != nil {
		return schedule.CalendarContext{}, errors.Wrap(err, "load holidays")
	}
	holidays, err := schedule.NewHolidayCalendar(list...)
	if err != nil {
		return schedule.CalendarContext{}, err
	}

	cal := schedule.NewCalendarContext(c.Location(), time.Now(), rule, holidays.ForOffice(c.OfficeID))
	cal.BusinessDate = c.BusinessDate()
	return cal, nil
}
