/*
Package attendance turns raw check-ins and leave records into per-period counts.

PURPOSE:
  The classifier decides whether a single check-in was on time against a civil
  cutoff in a named zone. The aggregator folds a period's records into a
  Summary that proration and payroll consume.

KEY CONCEPTS IN THIS FILE (types.go):
  - AttendanceRecord: One row per (employee, date), check-in and check-out
  - LeaveRecord:      An inclusive date range with a type and approval status
  - Summary:          The derived per-period counts

CLOSURE:
  For every Summary:
    WorkingDays == PresentDays + sum(ApprovedLeaveDays) + UnexcusedAbsenceDays

SEE ALSO:
  - classifier.go: On-time / late classification
  - aggregator.go: Summarize
  - leave.go:      Approved leave overlap validation
*/
package attendance

import (
	"sort"
	"strings"
	"time"

	"github.com/infofitsoftwaresolution/ems-system-sub003/generic"
)

// =============================================================================
// ATTENDANCE
// =============================================================================

// AttendanceRecord is the single attendance row of an employee for one date.
// CheckIn is nil when the employee has not checked in. RawCheckIn holds the
// unparsed source value when the upstream record could not be decoded into an
// instant; such a record still counts as present, with unknown punctuality.
type AttendanceRecord struct {
	EmployeeID generic.EmployeeID `json:"employee_id"`
	Date       generic.TimePoint  `json:"date"`
	CheckIn    *time.Time         `json:"check_in,omitempty"`
	CheckOut   *time.Time         `json:"check_out,omitempty"`
	RawCheckIn string             `json:"raw_check_in,omitempty"`
}

// HasCheckIn reports whether the record carries any check-in value.
func (r AttendanceRecord) HasCheckIn() bool {
	return r.CheckIn != nil || strings.TrimSpace(r.RawCheckIn) != ""
}

// =============================================================================
// LEAVE
// =============================================================================

type LeaveType string

const (
	LeavePaid   LeaveType = "paid"
	LeaveUnpaid LeaveType = "unpaid"
	LeaveSick   LeaveType = "sick"
	LeaveCasual LeaveType = "casual"
)

type LeaveStatus string

const (
	LeavePending  LeaveStatus = "pending"
	LeaveApproved LeaveStatus = "approved"
	LeaveRejected LeaveStatus = "rejected"
)

// ParseLeaveStatus validates a status string.
func ParseLeaveStatus(s string) (LeaveStatus, bool) {
	switch st := LeaveStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case LeavePending, LeaveApproved, LeaveRejected:
		return st, true
	}
	return "", false
}

// LeaveRecord covers the inclusive date range [Start, End].
type LeaveRecord struct {
	ID         string             `json:"id"`
	EmployeeID generic.EmployeeID `json:"employee_id"`
	Start      generic.TimePoint  `json:"start"`
	End        generic.TimePoint  `json:"end"`
	Type       LeaveType          `json:"type"`
	Status     LeaveStatus        `json:"status"`
	Reason     string             `json:"reason,omitempty"`
}

// Span returns the leave's date range.
func (l LeaveRecord) Span() generic.Period {
	return generic.Period{Start: l.Start, End: l.End}
}

// Validate checks the range and the type.
func (l LeaveRecord) Validate() error {
	if err := l.Span().Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(string(l.Type)) == "" {
		return &generic.ConfigurationError{EmployeeID: l.EmployeeID, Field: "leave.type", Reason: "is required"}
	}
	return nil
}

func (l LeaveRecord) IsApproved() bool { return l.Status == LeaveApproved }

// sortLeaves orders leaves by (Start, ID) so the first one wins on overlap.
func sortLeaves(leaves []LeaveRecord) {
	sort.SliceStable(leaves, func(i, j int) bool {
		if !leaves[i].Start.Equal(leaves[j].Start) {
			return leaves[i].Start.Before(leaves[j].Start)
		}
		return leaves[i].ID < leaves[j].ID
	})
}

// =============================================================================
// SUMMARY
// =============================================================================

// Summary is the attendance projection of one employee over one period.
// Period is the evaluated range, after clamping to the as-of date.
// PeriodCalendarDays is the length of the unclamped period and is the
// divisor for daily rates.
type Summary struct {
	EmployeeID             generic.EmployeeID           `json:"employee_id"`
	Period                 generic.Period               `json:"period"`
	PeriodCalendarDays     int                          `json:"period_calendar_days"`
	TotalDays              int                          `json:"total_days"`
	WorkingDays            int                          `json:"working_days"`
	PresentDays            int                          `json:"present_days"`
	LateDays               int                          `json:"late_days"`
	UnknownPunctualityDays int                          `json:"unknown_punctuality_days"`
	ApprovedLeaveDays      map[LeaveType]int            `json:"approved_leave_days"`
	UnexcusedAbsenceDays   int                          `json:"unexcused_absence_days"`
	OffDayAttendanceDays   int                          `json:"off_day_attendance_days"`
	Warnings               []generic.DataQualityWarning `json:"warnings,omitempty"`
}

// TotalLeaveDays sums approved leave across all types.
func (s Summary) TotalLeaveDays() int {
	total := 0
	for _, n := range s.ApprovedLeaveDays {
		total += n
	}
	return total
}

// LeaveDaysOf sums approved leave of the given types.
func (s Summary) LeaveDaysOf(types ...LeaveType) int {
	total := 0
	for _, t := range types {
		total += s.ApprovedLeaveDays[t]
	}
	return total
}

// Closes reports whether the closure invariant holds.
func (s Summary) Closes() bool {
	return s.WorkingDays == s.PresentDays+s.TotalLeaveDays()+s.UnexcusedAbsenceDays
}
