/*
errors.go - Centralized error types for the attendance and payroll engines

PURPOSE:
  All error types in one place for consistency and discoverability.
  Engine packages return these; batch runners and HTTP handlers classify
  them with errors.Is / errors.As.

ERROR CATEGORIES:
  1. ConfigurationError - Missing or invalid salary structure, zone, cutoff.
     Fatal for one employee, never for a batch.
  2. RuleError - A deduction rule that cannot be evaluated (undefined base,
     malformed slab). Fatal for one employee.
  3. DataQualityWarning - Unknown timestamps, zero working days, clamped
     net pay. Non-fatal, recorded next to the result.

USAGE:
  if errors.Is(err, generic.ErrConfiguration) {
      report.Skip(employeeID, err)
  }

  var ruleErr *generic.RuleError
  if errors.As(err, &ruleErr) {
      log.Printf("rule %s failed: %s", ruleErr.RuleCode, ruleErr.Reason)
  }

SEE ALSO:
  - payroll/calculator.go: Raises ConfigurationError and RuleError
  - attendance/aggregator.go: Emits DataQualityWarning
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrConfiguration is the category of every ConfigurationError.
	ErrConfiguration = errors.New("configuration error")

	// ErrRule is the category of every RuleError.
	ErrRule = errors.New("deduction rule error")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrPayslipNotFound is returned when no payslip exists for an employee and period.
	ErrPayslipNotFound = errors.New("payslip not found")

	// ErrOverlappingLeave is returned when two approved leaves of one employee
	// cover the same date.
	ErrOverlappingLeave = errors.New("overlapping approved leave")

	// ErrNotEligible is returned when the eligibility gate denies an action.
	ErrNotEligible = errors.New("action not permitted for employee")

	// ErrDuplicateAttendance is returned when a second check-in is recorded
	// for the same date.
	ErrDuplicateAttendance = errors.New("attendance already recorded for date")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ConfigurationError reports a missing or invalid configuration for one employee.
type ConfigurationError struct {
	EmployeeID EmployeeID
	Field      string
	Reason     string
}

func (e *ConfigurationError) Error() string {
	if e.EmployeeID == "" {
		return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("configuration error for %s: %s: %s", e.EmployeeID, e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// RuleError reports a deduction rule that could not be evaluated.
type RuleError struct {
	EmployeeID EmployeeID
	RuleCode   string
	Reason     string
}

func (e *RuleError) Error() string {
	if e.EmployeeID == "" {
		return fmt.Sprintf("rule %s: %s", e.RuleCode, e.Reason)
	}
	return fmt.Sprintf("rule %s for %s: %s", e.RuleCode, e.EmployeeID, e.Reason)
}

func (e *RuleError) Unwrap() error {
	return ErrRule
}

// =============================================================================
// DATA QUALITY WARNINGS - Non-fatal, recorded alongside results
// =============================================================================

type WarningCode string

const (
	WarnUnknownCheckIn      WarningCode = "unknown_check_in"
	WarnDuplicateAttendance WarningCode = "duplicate_attendance"
	WarnOverlappingLeave    WarningCode = "overlapping_leave"
	WarnZeroWorkingDays     WarningCode = "zero_working_days"
	WarnNegativeNetPay      WarningCode = "negative_net_pay_clamped"
)

// DataQualityWarning describes an input problem that did not stop computation.
// It implements error so callers may log or wrap it like one.
type DataQualityWarning struct {
	Code    WarningCode `json:"code"`
	Date    *TimePoint  `json:"date,omitempty"`
	Message string      `json:"message"`
}

func (w DataQualityWarning) Error() string {
	if w.Date != nil {
		return fmt.Sprintf("%s on %s: %s", w.Code, w.Date, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Code, w.Message)
}

// NewWarning builds a warning, optionally pinned to a date.
func NewWarning(code WarningCode, date *TimePoint, format string, args ...any) DataQualityWarning {
	return DataQualityWarning{Code: code, Date: date, Message: fmt.Sprintf(format, args...)}
}

// HasWarning reports whether the list contains a warning with the code.
func HasWarning(ws []DataQualityWarning, code WarningCode) bool {
	for _, w := range ws {
		if w.Code == code {
			return true
		}
	}
	return false
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsFatalForEmployee returns true if the error stops one employee's computation
// (but not a batch).
func IsFatalForEmployee(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, ErrRule)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrOverlappingLeave) ||
		errors.Is(err, ErrDuplicateAttendance)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) || errors.Is(err, ErrPayslipNotFound)
}
