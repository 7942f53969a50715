/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Money leaves the API as
  display strings ("31000.00") in the payslip's currency; inside the engine it
  stays in integer minor units.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Employee:   EmployeeDTO, CreateEmployeeRequest
  Attendance: AttendanceDTO
  Leave:      LeaveDTO, ApplyLeaveRequest
  Payslip:    PayslipDTO, LineDTO
  Payroll:    RunPayrollRequest, PayrollRunDTO, OutcomeDTO

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/salary.go: StructureJSON and RuleJSON, used as-is for configuration
*/
package api

import (
	"sort"
	"time"

	"github.com/infofitsoftwaresolution/ems-system-sub003/attendance"
	"github.com/infofitsoftwaresolution/ems-system-sub003/eligibility"
	"github.com/infofitsoftwaresolution/ems-system-sub003/generic"
	"github.com/infofitsoftwaresolution/ems-system-sub003/payroll"
	"github.com/infofitsoftwaresolution/ems-system-sub003/store/sqlite"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Email        string             `json:"email"`
	CompanyID    string             `json:"company_id,omitempty"`
	HireDate     string             `json:"hire_date"`
	Verification eligibility.Status `json:"verification"`
	Active       bool               `json:"active"`
	CreatedAt    string             `json:"created_at,omitempty"`
}

// CreateEmployeeRequest is the request to create an employee.
// Active defaults to true.
type CreateEmployeeRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CompanyID string `json:"company_id"`
	HireDate  string `json:"hire_date"`
	Active    *bool  `json:"active,omitempty"`
}

func toEmployeeDTO(e sqlite.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:           e.ID,
		Name:         e.Name,
		Email:        e.Email,
		CompanyID:    e.CompanyID,
		HireDate:     e.HireDate.Format(time.DateOnly),
		Verification: e.Verification,
		Active:       e.Active,
	}
	if !e.CreatedAt.IsZero() {
		dto.CreatedAt = e.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// AttendanceDTO is one attendance record with its punctuality.
type AttendanceDTO struct {
	EmployeeID  string                 `json:"employee_id"`
	Date        string                 `json:"date"`
	CheckIn     *time.Time             `json:"check_in,omitempty"`
	CheckOut    *time.Time             `json:"check_out,omitempty"`
	Punctuality attendance.Punctuality `json:"punctuality"`
	LocalTime   string                 `json:"local_time,omitempty"`
	Cutoff      string                 `json:"cutoff"`
}

func toAttendanceDTO(r attendance.AttendanceRecord, c *attendance.Classifier) AttendanceDTO {
	cls := c.ClassifyRecord(r)
	dto := AttendanceDTO{
		EmployeeID:  string(r.EmployeeID),
		Date:        r.Date.String(),
		CheckIn:     r.CheckIn,
		CheckOut:    r.CheckOut,
		Punctuality: cls.Status,
		Cutoff:      c.Cutoff(),
	}
	if !cls.Unknown {
		dto.LocalTime = cls.Local.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// LEAVE
// =============================================================================

// ApplyLeaveRequest is the body of a leave application.
type ApplyLeaveRequest struct {
	Start  string               `json:"start"`
	End    string               `json:"end"`
	Type   attendance.LeaveType `json:"type"`
	Reason string               `json:"reason"`
}

// LeaveDTO represents a leave record.
type LeaveDTO struct {
	ID         string                 `json:"id"`
	EmployeeID string                 `json:"employee_id"`
	Start      string                 `json:"start"`
	End        string                 `json:"end"`
	Days       int                    `json:"days"`
	Type       attendance.LeaveType   `json:"type"`
	Status     attendance.LeaveStatus `json:"status"`
	Reason     string                 `json:"reason,omitempty"`
}

func toLeaveDTO(l attendance.LeaveRecord) LeaveDTO {
	return LeaveDTO{
		ID:         l.ID,
		EmployeeID: string(l.EmployeeID),
		Start:      l.Start.String(),
		End:        l.End.String(),
		Days:       l.Span().Len(),
		Type:       l.Type,
		Status:     l.Status,
		Reason:     l.Reason,
	}
}

// =============================================================================
// PAYSLIPS
// =============================================================================

// LineDTO is one earnings or deductions line in display units.
type LineDTO struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Amount string `json:"amount"`
}

// PayslipDTO is a payslip in display units.
type PayslipDTO struct {
	ID               string                       `json:"id"`
	EmployeeID       string                       `json:"employee_id"`
	Period           string                       `json:"period"`
	Currency         string                       `json:"currency"`
	Earnings         []LineDTO                    `json:"earnings"`
	ContractualGross string                       `json:"contractual_gross"`
	LeaveDeduction   string                       `json:"leave_deduction"`
	GrossEarnings    string                       `json:"gross_earnings"`
	Deductions       []LineDTO                    `json:"deductions"`
	TotalDeductions  string                       `json:"total_deductions"`
	NetPay           string                       `json:"net_pay"`
	UnclampedNetPay  string                       `json:"unclamped_net_pay"`
	PayableFraction  string                       `json:"payable_fraction"`
	Attendance       attendance.Summary           `json:"attendance"`
	Warnings         []generic.DataQualityWarning `json:"warnings"`
	InputDigest      string                       `json:"input_digest"`
	Revision         int                          `json:"revision"`
	GeneratedAt      string                       `json:"generated_at"`
}

func toPayslipDTO(p *payroll.Payslip) PayslipDTO {
	cur := p.Currency
	lines := func(ls []payroll.Line) []LineDTO {
		out := make([]LineDTO, len(ls))
		for i, l := range ls {
			out[i] = LineDTO{Code: l.Code, Name: l.Name, Kind: l.Kind, Amount: cur.Format(l.Amount)}
		}
		return out
	}
	warnings := p.Warnings
	if warnings == nil {
		warnings = []generic.DataQualityWarning{}
	}

	return PayslipDTO{
		ID:               p.ID,
		EmployeeID:       string(p.EmployeeID),
		Period:           p.Period.String(),
		Currency:         cur.Code,
		Earnings:         lines(p.Earnings),
		ContractualGross: cur.Format(p.ContractualGross),
		LeaveDeduction:   cur.Format(p.LeaveDeduction),
		GrossEarnings:    cur.Format(p.GrossEarnings),
		Deductions:       lines(p.Deductions),
		TotalDeductions:  cur.Format(p.TotalDeductions),
		NetPay:           cur.Format(p.NetPay),
		UnclampedNetPay:  cur.Format(p.UnclampedNetPay),
		PayableFraction:  p.PayableFraction.StringFixed(6),
		Attendance:       p.Attendance,
		Warnings:         warnings,
		InputDigest:      p.InputDigest,
		Revision:         p.Revision,
		GeneratedAt:      p.GeneratedAt.UTC().Format(time.RFC3339),
	}
}

// =============================================================================
// PAYROLL RUNS
// =============================================================================

// RunPayrollRequest starts a run. An empty EmployeeIDs covers every active employee.
type RunPayrollRequest struct {
	Period      string   `json:"period"` // YYYY-MM
	EmployeeIDs []string `json:"employee_ids,omitempty"`
}

// OutcomeDTO is one employee's result in a run.
type OutcomeDTO struct {
	EmployeeID string `json:"employee_id"`
	Status     string `json:"status"` // generated, unchanged, failed
	PayslipID  string `json:"payslip_id,omitempty"`
	Revision   int    `json:"revision,omitempty"`
	NetPay     string `json:"net_pay,omitempty"`
	Error      string `json:"error,omitempty"`
}

// PayrollRunDTO summarises a run.
type PayrollRunDTO struct {
	ID          string       `json:"id"`
	Period      string       `json:"period"`
	Status      string       `json:"status"`
	Trigger     string       `json:"trigger"`
	Requested   int          `json:"requested"`
	Succeeded   int          `json:"succeeded"`
	Failed      int          `json:"failed"`
	Outcomes    []OutcomeDTO `json:"outcomes,omitempty"`
	StartedAt   string       `json:"started_at,omitempty"`
	CompletedAt string       `json:"completed_at,omitempty"`
}

func toPayrollRunDTO(run sqlite.PayrollRun, report *payroll.RunReport) PayrollRunDTO {
	dto := PayrollRunDTO{
		ID:        run.ID,
		Period:    run.Period.String(),
		Status:    run.Status,
		Trigger:   run.Trigger,
		Requested: run.Requested,
		Succeeded: run.Succeeded,
		Failed:    run.Failed,
	}
	if run.StartedAt != nil {
		dto.StartedAt = run.StartedAt.Format(time.RFC3339)
	}
	if run.CompletedAt != nil {
		dto.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}
	if report == nil {
		return dto
	}

	for id, o := range report.Outcomes {
		od := OutcomeDTO{EmployeeID: string(id)}
		switch {
		case !o.OK():
			od.Status = "failed"
			od.Error = o.Err.Error()
		case o.Save.Unchanged:
			od.Status = "unchanged"
		default:
			od.Status = "generated"
		}
		if o.Payslip != nil {
			od.PayslipID = o.Payslip.ID
			od.Revision = o.Save.Revision
			od.NetPay = o.Payslip.Currency.Format(o.Payslip.NetPay)
		}
		dto.Outcomes = append(dto.Outcomes, od)
	}
	sort.Slice(dto.Outcomes, func(i, j int) bool { return dto.Outcomes[i].EmployeeID < dto.Outcomes[j].EmployeeID })
	return dto
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
