package config_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/schedule-engine/config"
	"github.com/warp/schedule-engine/schedule"
	"github.com/warp/schedule-engine/store"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "./data/schedule.db", cfg.DBPath)
	assert.Equal(t, 5, cfg.LookAheadInstallments)
	assert.Equal(t, 200, cfg.BatchSize)
	assert.Equal(t, 2, cfg.PenaltyWaitPeriod)
	assert.True(t, cfg.BackdatePenalties)
	assert.Equal(t, "UTC", cfg.Location().String())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SCHEDULE_TENANT_TIMEZONE", "Asia/Kolkata")
	t.Setenv("SCHEDULE_BUSINESS_DATE", "2024-03-15")
	t.Setenv("SCHEDULE_LOOK_AHEAD_INSTALLMENTS", "8")
	t.Setenv("SCHEDULE_BACKDATE_PENALTIES", "false")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", cfg.Location().String())
	assert.Equal(t, schedule.MustParseDate("2024-03-15"), cfg.BusinessDate())
	assert.Equal(t, 8, cfg.LookAheadInstallments)
	assert.False(t, cfg.BackdatePenalties)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"timezone", "SCHEDULE_TENANT_TIMEZONE", "Mars/Olympus"},
		{"business date", "SCHEDULE_BUSINESS_DATE", "15/03/2024"},
		{"log level", "SCHEDULE_LOG_LEVEL", "chatty"},
		{"log format", "SCHEDULE_LOG_FORMAT", "xml"},
		{"batch size", "SCHEDULE_BATCH_SIZE", "0"},
		{"wait period", "SCHEDULE_PENALTY_WAIT_PERIOD", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Setenv("SCHEDULE_LOG_LEVEL", "debug")
	cfg, err := config.Load()
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := cfg.NewLogger(&buf)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.WithField("job", "x").Info("hello")
	assert.Contains(t, buf.String(), `"job":"x"`)
}

func TestCalendarContext(t *testing.T) {
	// GIVEN: No stored working-days rule and two holidays, one scoped to
	//        another office
	// WHEN: Assembling the snapshot for office "north"
	// THEN: Monday to Friday applies and only the global holiday is kept

	t.Setenv("SCHEDULE_OFFICE_ID", "north")
	t.Setenv("SCHEDULE_BUSINESS_DATE", "2024-01-02")
	cfg, err := config.Load()
	require.NoError(t, err)

	ctx := context.Background()
	mem := store.NewMemory()
	_, err = mem.SaveHoliday(ctx, schedule.Holiday{ID: "ny", From: schedule.MustParseDate("2024-01-01"), To: schedule.MustParseDate("2024-01-01")})
	require.NoError(t, err)
	_, err = mem.SaveHoliday(ctx, schedule.Holiday{ID: "fair", From: schedule.MustParseDate("2024-01-03"), To: schedule.MustParseDate("2024-01-03"), OfficeIDs: []string{"south"}})
	require.NoError(t, err)

	cal, err := cfg.CalendarContext(ctx, mem)
	require.NoError(t, err)
	assert.Equal(t, schedule.MustParseDate("2024-01-02"), cal.BusinessDate)
	assert.Equal(t, 1, cal.Holidays.Len())
	assert.True(t, cal.Holidays.IsHoliday(schedule.MustParseDate("2024-01-01")))
	assert.False(t, cal.WorkingDays.IsWorkingDay(schedule.MustParseDate("2024-01-06")))
}
