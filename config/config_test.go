package config_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infofitsoftwaresolution/ems-system-sub003/attendance"
	"github.com/infofitsoftwaresolution/ems-system-sub003/config"
	"github.com/infofitsoftwaresolution/ems-system-sub003/generic"
	"github.com/infofitsoftwaresolution/ems-system-sub003/payroll"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "Asia/Kolkata", cfg.Attendance.Timezone)
	assert.Equal(t, generic.INR, cfg.Currency())
	assert.Equal(t, payroll.DefaultProrationPolicy(), cfg.ProrationPolicy())
	assert.Equal(t, 8, cfg.Payroll.Concurrency)
	assert.Equal(t, 10*time.Second, cfg.Payroll.EmployeeTimeout)

	offs, err := cfg.WeeklyOffs()
	require.NoError(t, err)
	assert.Equal(t, generic.DefaultWeeklyOffs, offs)

	c, err := cfg.Classifier()
	require.NoError(t, err)
	assert.Equal(t, "11:00", c.Cutoff())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("ATTENDANCE_TIMEZONE", "America/New_York")
	t.Setenv("ATTENDANCE_CUTOFF", "09:30")
	t.Setenv("WEEKLY_OFFS", "Friday, sat")
	t.Setenv("PRORATION_BASIS", "working_days")
	t.Setenv("UNPAID_LEAVE_TYPES", "unpaid,Sick")
	t.Setenv("PAYROLL_SCHEDULER_ENABLED", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.True(t, cfg.Payroll.SchedulerEnabled)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())

	policy := cfg.ProrationPolicy()
	assert.Equal(t, payroll.BasisWorkingDays, policy.Basis)
	assert.Equal(t, []attendance.LeaveType{attendance.LeaveUnpaid, attendance.LeaveSick}, policy.UnpaidLeaveTypes)

	offs, err := cfg.WeeklyOffs()
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Friday, time.Saturday}, offs)

	c, err := cfg.Classifier()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", c.Location().String())
	assert.Equal(t, "09:30", c.Cutoff())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"ATTENDANCE_TIMEZONE", "Mars/Olympus"},
		{"ATTENDANCE_CUTOFF", "25:00"},
		{"WEEKLY_OFFS", "caturday"},
		{"PRORATION_BASIS", "vibes"},
		{"PAYROLL_CONCURRENCY", "0"},
		{"CURRENCY_EXPONENT", "9"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}
