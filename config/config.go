// Package config loads server configuration from the environment, with an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/infofitsoftwaresolution/ems-system-sub003/attendance"
	"github.com/infofitsoftwaresolution/ems-system-sub003/generic"
	"github.com/infofitsoftwaresolution/ems-system-sub003/payroll"
)

type Config struct {
	App        AppConfig
	Attendance AttendanceConfig
	Payroll    PayrollConfig
}

// AppConfig holds server configuration
type AppConfig struct {
	Port               int
	DBPath             string
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string
}

// AttendanceConfig holds the company's attendance calendar and cutoff
type AttendanceConfig struct {
	Timezone   string
	Cutoff     string // HH:MM local time, inclusive
	WeeklyOffs []string
	CompanyID  string
}

// PayrollConfig holds payroll computation and scheduling settings
type PayrollConfig struct {
	Currency          string
	CurrencyExponent  int
	ProrationBasis    string
	UnpaidLeaveTypes  []string
	Concurrency       int
	EmployeeTimeout   time.Duration
	SchedulerEnabled  bool
	SchedulerInterval time.Duration
}

// Load reads .env if present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Port:               getEnvInt("APP_PORT", 8080),
			DBPath:             getEnv("DB_PATH", "./data/payroll.db"),
			Env:                getEnv("APP_ENV", "development"),
			LogLevel:           getEnv("LOG_LEVEL", "info"),
			CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Attendance: AttendanceConfig{
			Timezone:   getEnv("ATTENDANCE_TIMEZONE", "Asia/Kolkata"),
			Cutoff:     getEnv("ATTENDANCE_CUTOFF", "11:00"),
			WeeklyOffs: getEnvList("WEEKLY_OFFS", []string{"sat", "sun"}),
			CompanyID:  getEnv("COMPANY_ID", ""),
		},
		Payroll: PayrollConfig{
			Currency:          strings.ToUpper(getEnv("CURRENCY", "INR")),
			CurrencyExponent:  getEnvInt("CURRENCY_EXPONENT", 2),
			ProrationBasis:    getEnv("PRORATION_BASIS", string(payroll.BasisCalendarDays)),
			UnpaidLeaveTypes:  getEnvList("UNPAID_LEAVE_TYPES", []string{string(attendance.LeaveUnpaid)}),
			Concurrency:       getEnvInt("PAYROLL_CONCURRENCY", 8),
			EmployeeTimeout:   getEnvDuration("PAYROLL_EMPLOYEE_TIMEOUT", 10*time.Second),
			SchedulerEnabled:  getEnvBool("PAYROLL_SCHEDULER_ENABLED", false),
			SchedulerInterval: getEnvDuration("PAYROLL_SCHEDULER_INTERVAL", time.Hour),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("APP_PORT must be between 1 and 65535")
	}
	if strings.TrimSpace(c.App.DBPath) == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if _, err := c.Classifier(); err != nil {
		return err
	}
	if _, err := c.WeeklyOffs(); err != nil {
		return err
	}
	if err := c.Currency().Validate(); err != nil {
		return fmt.Errorf("CURRENCY: %w", err)
	}
	if err := c.ProrationPolicy().Validate(); err != nil {
		return fmt.Errorf("PRORATION_BASIS: %w", err)
	}
	if c.Payroll.Concurrency <= 0 {
		return fmt.Errorf("PAYROLL_CONCURRENCY must be positive")
	}
	if c.Payroll.EmployeeTimeout < 0 {
		return fmt.Errorf("PAYROLL_EMPLOYEE_TIMEOUT must not be negative")
	}
	if c.Payroll.SchedulerEnabled && c.Payroll.SchedulerInterval <= 0 {
		return fmt.Errorf("PAYROLL_SCHEDULER_INTERVAL must be positive when the scheduler is enabled")
	}
	return nil
}

// Classifier builds the company's attendance classifier.
func (c *Config) Classifier() (*attendance.Classifier, error) {
	h, m, err := attendance.ParseCutoff(c.Attendance.Cutoff)
	if err != nil {
		return nil, fmt.Errorf("ATTENDANCE_CUTOFF: %w", err)
	}
	return attendance.NewClassifier(c.Attendance.Timezone, h, m)
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// WeeklyOffs parses day names like "sat" or "Sunday".
func (c *Config) WeeklyOffs() ([]time.Weekday, error) {
	out := make([]time.Weekday, 0, len(c.Attendance.WeeklyOffs))
	for _, name := range c.Attendance.WeeklyOffs {
		key := strings.ToLower(strings.TrimSpace(name))
		if len(key) > 3 {
			key = key[:3]
		}
		wd, ok := weekdays[key]
		if !ok {
			return nil, fmt.Errorf("WEEKLY_OFFS: unknown day %q", name)
		}
		out = append(out, wd)
	}
	return out, nil
}

func (c *Config) Currency() generic.Currency {
	return generic.Currency{Code: c.Payroll.Currency, Exponent: int32(c.Payroll.CurrencyExponent)}
}

func (c *Config) ProrationPolicy() payroll.ProrationPolicy {
	p := payroll.ProrationPolicy{Basis: payroll.Basis(c.Payroll.ProrationBasis)}
	for _, t := range c.Payroll.UnpaidLeaveTypes {
		p.UnpaidLeaveTypes = append(p.UnpaidLeaveTypes, attendance.LeaveType(strings.ToLower(t)))
	}
	return p
}

// LogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.App.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
