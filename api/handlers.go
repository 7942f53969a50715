/*
handlers.go - HTTP API handlers for attendance and payroll

PURPOSE:
  Exposes the attendance and payroll engines via REST API. Handles HTTP
  request/response, JSON serialization, eligibility gating, and delegates
  to the engine packages.

ENDPOINTS:
  Employees:
    GET    /api/employees                          List all employees
    POST   /api/employees                          Create employee
    GET    /api/employees/{id}                     Get employee details
    PUT    /api/employees/{id}/active              Activate or deactivate
    POST   /api/employees/{id}/verification/{event} submit, approve, reject, resubmit

  Attendance (gated: record_attendance):
    POST   /api/employees/{id}/check-in            Record check-in now
    POST   /api/employees/{id}/check-out           Record check-out now
    GET    /api/employees/{id}/attendance?period=  Attendance summary

  Leave:
    POST   /api/employees/{id}/leaves              Apply (gated: apply_leave)
    GET    /api/employees/{id}/leaves?period=      List
    GET    /api/leaves/pending                     Pending leaves
    POST   /api/leaves/{id}/approve                Approve (overlap-checked)
    POST   /api/leaves/{id}/reject                 Reject

  Salary:
    GET    /api/employees/{id}/salary              Current structure
    PUT    /api/employees/{id}/salary              Replace structure (JSON)

  Payslips:
    GET    /api/employees/{id}/payslips            List (gated: view_payslip)
    GET    /api/employees/{id}/payslips/{period}   Latest revision (gated: view_payslip)
    POST   /api/employees/{id}/payslips/{period}   Generate (gated: generate_payslip)
    GET    /api/employees/{id}/payslips/{period}/revisions  Every revision

  Payroll:
    POST   /api/payroll/runs                       Run for many employees (not gated)
    GET    /api/payroll/runs                       Run history

  Deduction rules, holidays: see server.go.

ERROR HANDLING:
  Errors are returned as JSON with an HTTP status picked by statusFor:
  - 400: Invalid input, invalid period
  - 403: Eligibility gate denied the action
  - 404: Resource not found
  - 409: Conflict (overlapping leave, duplicate check-in, workflow state)
  - 422: Salary configuration or deduction rule error
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: Monthly payroll scheduler
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/infofitsoftwaresolution/ems-system-sub003/attendance"
	"github.com/infofitsoftwaresolution/ems-system-sub003/eligibility"
	"github.com/infofitsoftwaresolution/ems-system-sub003/factory"
	"github.com/infofitsoftwaresolution/ems-system-sub003/generic"
	"github.com/infofitsoftwaresolution/ems-system-sub003/payroll"
	"github.com/infofitsoftwaresolution/ems-system-sub003/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Options configures a Handler. Zero values fall back to defaults.
type Options struct {
	Classifier      *attendance.Classifier
	Currency        generic.Currency
	Proration       payroll.ProrationPolicy
	CompanyID       string
	WeeklyOffs      []time.Weekday
	Concurrency     int
	EmployeeTimeout time.Duration
	Logger          *slog.Logger
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Salaries   *factory.SalaryFactory
	Classifier *attendance.Classifier
	Runner     *payroll.Runner
	CompanyID  string
	WeeklyOffs []time.Weekday
	Logger     *slog.Logger

	// Now is the wall clock; tests replace it.
	Now func() time.Time
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store, opts Options) (*Handler, error) {
	if opts.Classifier == nil {
		c, err := attendance.NewClassifier("Asia/Kolkata", 11, 0)
		if err != nil {
			return nil, err
		}
		opts.Classifier = c
	}
	if opts.Currency.Code == "" {
		opts.Currency = generic.INR
	}
	if opts.Proration.Basis == "" {
		opts.Proration = payroll.DefaultProrationPolicy()
	}
	if err := opts.Proration.Validate(); err != nil {
		return nil, err
	}
	if opts.WeeklyOffs == nil {
		opts.WeeklyOffs = generic.DefaultWeeklyOffs
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	classifier := opts.Classifier.WithLogger(opts.Logger)
	aggregator := attendance.NewAggregator(classifier)
	aggregator.Logger = opts.Logger
	calculator := payroll.NewCalculator(opts.Proration)
	calculator.Logger = opts.Logger

	return &Handler{
		Store:      store,
		Salaries:   factory.NewSalaryFactory(opts.Currency),
		Classifier: classifier,
		Runner: &payroll.Runner{
			Aggregator:      aggregator,
			Calculator:      calculator,
			Concurrency:     opts.Concurrency,
			EmployeeTimeout: opts.EmployeeTimeout,
			Logger:          opts.Logger,
		},
		CompanyID:  opts.CompanyID,
		WeeklyOffs: opts.WeeklyOffs,
		Logger:     opts.Logger,
		Now:        time.Now,
	}, nil
}

func (h *Handler) source() sqlite.PayrollSource {
	return sqlite.PayrollSource{Store: h.Store, Factory: h.Salaries}
}

// today is the current civil date in the attendance zone.
func (h *Handler) today() generic.TimePoint {
	return h.Classifier.LocalDate(h.Now())
}

func (h *Handler) calendar(period generic.Period) generic.WorkCalendar {
	return generic.WeeklyCalendar{
		CompanyID:  h.CompanyID,
		WeeklyOffs: h.WeeklyOffs,
		Holidays:   h.Store.HolidaySnapshot(h.CompanyID, period),
	}
}

// employee loads the employee and, when action is non-empty, checks the gate.
func (h *Handler) employee(ctx context.Context, id string, action eligibility.Action) (*sqlite.Employee, error) {
	emp, err := h.Store.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, fmt.Errorf("%s: %w", id, generic.ErrEmployeeNotFound)
	}
	if action != "" {
		if err := eligibility.CanPerform(action, emp.Eligibility()).Err(); err != nil {
			return nil, err
		}
	}
	return emp, nil
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}

	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.employee(r.Context(), chi.URLParam(r, "id"), "")
	if err != nil {
		h.fail(w, "Failed to get employee", err)
		return
	}

	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// CreateEmployee creates a new employee.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.ID) == "" || strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	hireDate, err := time.Parse(time.DateOnly, req.HireDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hire_date format (use YYYY-MM-DD)", err)
		return
	}

	emp := sqlite.Employee{
		ID:        req.ID,
		Name:      req.Name,
		Email:     req.Email,
		CompanyID: req.CompanyID,
		HireDate:  hireDate,
		Active:    req.Active == nil || *req.Active,
	}

	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create employee", err)
		return
	}

	saved, err := h.employee(r.Context(), emp.ID, "")
	if err != nil {
		h.fail(w, "Failed to load employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(*saved))
}

// SetActive activates or deactivates an employee.
// PUT /api/employees/{id}/active  {"active": false}
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.Store.SetActive(r.Context(), id, req.Active); err != nil {
		h.fail(w, "Failed to update employee", err)
		return
	}

	emp, err := h.employee(r.Context(), id, "")
	if err != nil {
		h.fail(w, "Failed to load employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// TransitionVerification applies a verification review event.
// POST /api/employees/{id}/verification/{event}
//
// Submitting is employee-facing and passes through the gate; approve and
// reject are administrative.
func (h *Handler) TransitionVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	ev := eligibility.Event(strings.ToLower(chi.URLParam(r, "event")))

	var action eligibility.Action
	if ev == eligibility.EventSubmit || ev == eligibility.EventResubmit {
		action = eligibility.SubmitVerification
	}
	if _, err := h.employee(ctx, id, action); err != nil {
		h.fail(w, "Verification not allowed", err)
		return
	}

	status, err := h.Store.UpdateVerification(ctx, id, ev)
	if err != nil {
		h.fail(w, "Verification transition failed", err)
		return
	}

	h.Logger.Info("verification updated",
		slog.String("employee_id", id),
		slog.String("event", string(ev)),
		slog.String("status", string(status)))

	writeJSON(w, http.StatusOK, map[string]any{
		"employee_id":  id,
		"verification": status,
	})
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

// CheckIn records the current instant as today's check-in. The date is the
// civil date in the attendance zone, not the server's.
// POST /api/employees/{id}/check-in
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	emp, err := h.employee(ctx, chi.URLParam(r, "id"), eligibility.RecordAttendance)
	if err != nil {
		h.fail(w, "Check-in not allowed", err)
		return
	}

	now := h.Now().UTC()
	date := h.Classifier.LocalDate(now)
	empID := generic.EmployeeID(emp.ID)

	existing, err := h.Store.GetAttendance(ctx, empID, date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load attendance", err)
		return
	}
	if existing != nil && existing.HasCheckIn() {
		h.fail(w, "Already checked in", fmt.Errorf("%s on %s: %w", emp.ID, date, generic.ErrDuplicateAttendance))
		return
	}

	rec := attendance.AttendanceRecord{EmployeeID: empID, Date: date, CheckIn: &now}
	if err := h.Store.SaveAttendance(ctx, rec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record check-in", err)
		return
	}

	writeJSON(w, http.StatusCreated, toAttendanceDTO(rec, h.Classifier))
}

// CheckOut records the current instant as today's check-out.
// POST /api/employees/{id}/check-out
func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	emp, err := h.employee(ctx, chi.URLParam(r, "id"), eligibility.RecordAttendance)
	if err != nil {
		h.fail(w, "Check-out not allowed", err)
		return
	}

	now := h.Now().UTC()
	date := h.Classifier.LocalDate(now)

	rec, err := h.Store.GetAttendance(ctx, generic.EmployeeID(emp.ID), date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load attendance", err)
		return
	}
	if rec == nil || !rec.HasCheckIn() {
		writeError(w, http.StatusConflict, "No check-in recorded today", nil)
		return
	}
	if rec.CheckOut != nil {
		writeError(w, http.StatusConflict, "Already checked out", nil)
		return
	}

	rec.CheckOut = &now
	if err := h.Store.SaveAttendance(ctx, *rec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record check-out", err)
		return
	}

	writeJSON(w, http.StatusOK, toAttendanceDTO(*rec, h.Classifier))
}

// GetAttendanceSummary returns the attendance summary for a month. The
// current month is evaluated up to today.
// GET /api/employees/{id}/attendance?period=2024-04
func (h *Handler) GetAttendanceSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	emp, err := h.employee(ctx, chi.URLParam(r, "id"), "")
	if err != nil {
		h.fail(w, "Failed to get attendance", err)
		return
	}

	pp, err := h.periodParam(r.URL.Query().Get("period"))
	if err != nil {
		h.fail(w, "Invalid period", err)
		return
	}
	period := pp.Period()
	empID := generic.EmployeeID(emp.ID)

	records, err := h.Store.ListAttendance(ctx, empID, period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load attendance", err)
		return
	}
	leaves, err := h.Store.ListLeaves(ctx, empID, period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load leaves", err)
		return
	}

	summary, err := h.Runner.Aggregator.Summarize(attendance.SummaryInput{
		EmployeeID: empID,
		Period:     period,
		Attendance: records,
		Leaves:     leaves,
		Calendar:   h.calendar(period),
		AsOf:       h.asOf(period),
	})
	if err != nil {
		h.fail(w, "Failed to summarize attendance", err)
		return
	}

	days := make([]AttendanceDTO, len(records))
	for i, rec := range records {
		days[i] = toAttendanceDTO(rec, h.Classifier)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"summary": summary,
		"records": days,
	})
}

// asOf clamps the period containing today; closed periods are not clamped.
func (h *Handler) asOf(period generic.Period) generic.TimePoint {
	today := h.today()
	if period.Contains(today) {
		return today
	}
	return generic.TimePoint{}
}

// periodParam parses YYYY-MM, defaulting to the current month.
func (h *Handler) periodParam(s string) (generic.PayPeriod, error) {
	if s == "" {
		return generic.PayPeriodOf(h.today()), nil
	}
	return generic.ParsePayPeriod(s)
}

// =============================================================================
// LEAVE HANDLERS
// =============================================================================

// ApplyLeave creates a pending leave request.
// POST /api/employees/{id}/leaves
func (h *Handler) ApplyLeave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	emp, err := h.employee(ctx, chi.URLParam(r, "id"), eligibility.ApplyLeave)
	if err != nil {
		h.fail(w, "Leave application not allowed", err)
		return
	}

	var req ApplyLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	start, err := generic.ParseDate(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start date (use YYYY-MM-DD)", err)
		return
	}
	end := start
	if req.End != "" {
		if end, err = generic.ParseDate(req.End); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end date (use YYYY-MM-DD)", err)
			return
		}
	}

	leave := attendance.LeaveRecord{
		ID:         uuid.NewString(),
		EmployeeID: generic.EmployeeID(emp.ID),
		Start:      start,
		End:        end,
		Type:       attendance.LeaveType(strings.ToLower(string(req.Type))),
		Status:     attendance.LeavePending,
		Reason:     req.Reason,
	}
	if err := leave.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid leave", err)
		return
	}

	if err := h.Store.SaveLeave(ctx, leave); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save leave", err)
		return
	}

	writeJSON(w, http.StatusCreated, toLeaveDTO(leave))
}

// ListLeaves returns an employee's leaves overlapping a month.
// GET /api/employees/{id}/leaves?period=2024-04
func (h *Handler) ListLeaves(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	emp, err := h.employee(ctx, chi.URLParam(r, "id"), "")
	if err != nil {
		h.fail(w, "Failed to list leaves", err)
		return
	}
	pp, err := h.periodParam(r.URL.Query().Get("period"))
	if err != nil {
		h.fail(w, "Invalid period", err)
		return
	}

	leaves, err := h.Store.ListLeaves(ctx, generic.EmployeeID(emp.ID), pp.Period())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list leaves", err)
		return
	}
	writeJSON(w, http.StatusOK, leaveDTOs(leaves))
}

// ListPendingLeaves returns all leaves awaiting a decision.
// GET /api/leaves/pending
func (h *Handler) ListPendingLeaves(w http.ResponseWriter, r *http.Request) {
	leaves, err := h.Store.GetPendingLeaves(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get pending leaves", err)
		return
	}
	writeJSON(w, http.StatusOK, leaveDTOs(leaves))
}

// ApproveLeave approves a pending leave unless it overlaps another approved one.
// POST /api/leaves/{id}/approve
func (h *Handler) ApproveLeave(w http.ResponseWriter, r *http.Request) {
	h.decideLeave(w, r, attendance.LeaveApproved)
}

// RejectLeave rejects a pending leave.
// POST /api/leaves/{id}/reject
func (h *Handler) RejectLeave(w http.ResponseWriter, r *http.Request) {
	h.decideLeave(w, r, attendance.LeaveRejected)
}

func (h *Handler) decideLeave(w http.ResponseWriter, r *http.Request, status attendance.LeaveStatus) {
	id := chi.URLParam(r, "id")
	leave, err := h.Store.DecideLeave(r.Context(), id, status)
	if err != nil {
		h.fail(w, "Failed to "+verbFor(status)+" leave", err)
		return
	}

	h.Logger.Info("leave decided",
		slog.String("leave_id", id),
		slog.String("employee_id", string(leave.EmployeeID)),
		slog.String("status", string(status)))

	writeJSON(w, http.StatusOK, toLeaveDTO(*leave))
}

func verbFor(status attendance.LeaveStatus) string {
	if status == attendance.LeaveApproved {
		return "approve"
	}
	return "reject"
}

func leaveDTOs(leaves []attendance.LeaveRecord) []LeaveDTO {
	dtos := make([]LeaveDTO, len(leaves))
	for i, l := range leaves {
		dtos[i] = toLeaveDTO(l)
	}
	return dtos
}

// =============================================================================
// SALARY HANDLERS
// =============================================================================

// PutSalary validates and stores an employee's salary structure. The path
// employee ID wins over any employee_id in the body.
// PUT /api/employees/{id}/salary
func (h *Handler) PutSalary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	emp, err := h.employee(ctx, chi.URLParam(r, "id"), "")
	if err != nil {
		h.fail(w, "Failed to update salary", err)
		return
	}

	var sj factory.StructureJSON
	if err := json.NewDecoder(r.Body).Decode(&sj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	sj.EmployeeID = emp.ID
	if sj.EffectiveFrom == "" {
		sj.EffectiveFrom = emp.HireDate.Format(time.DateOnly)
	}

	structure, err := h.Salaries.FromJSON(sj)
	if err != nil {
		h.fail(w, "Invalid salary structure", err)
		return
	}

	// Store the normalized form so what is read back is what was validated.
	normalized, err := json.Marshal(h.Salaries.ToJSON(structure))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode salary structure", err)
		return
	}
	if err := h.Store.SaveSalaryStructure(ctx, sqlite.SalaryRecord{
		EmployeeID:    emp.ID,
		EffectiveFrom: structure.EffectiveFrom,
		ConfigJSON:    string(normalized),
	}); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save salary structure", err)
		return
	}

	writeJSON(w, http.StatusOK, h.Salaries.ToJSON(structure))
}

// GetSalary returns the structure in force today.
// GET /api/employees/{id}/salary
func (h *Handler) GetSalary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	rec, err := h.Store.GetSalaryStructure(ctx, id, h.today())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load salary structure", err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "No salary structure in force", nil)
		return
	}

	structure, err := h.Salaries.ParseStructure(rec.ConfigJSON)
	if err != nil {
		h.fail(w, "Stored salary structure is invalid", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Salaries.ToJSON(structure))
}

// =============================================================================
// PAYSLIP HANDLERS
// =============================================================================

// ListPayslips returns the latest revision of every period.
// GET /api/employees/{id}/payslips
func (h *Handler) ListPayslips(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	emp, err := h.employee(ctx, chi.URLParam(r, "id"), eligibility.ViewPayslip)
	if err != nil {
		h.fail(w, "Payslips not available", err)
		return
	}

	slips, err := h.Store.ListPayslips(ctx, generic.EmployeeID(emp.ID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payslips", err)
		return
	}
	writeJSON(w, http.StatusOK, payslipDTOs(slips))
}

// GetPayslip returns the latest revision for a period.
// GET /api/employees/{id}/payslips/{period}
func (h *Handler) GetPayslip(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	emp, err := h.employee(ctx, chi.URLParam(r, "id"), eligibility.ViewPayslip)
	if err != nil {
		h.fail(w, "Payslip not available", err)
		return
	}
	pp, err := generic.ParsePayPeriod(chi.URLParam(r, "period"))
	if err != nil {
		h.fail(w, "Invalid period", err)
		return
	}

	slip, err := h.Store.GetPayslip(ctx, generic.EmployeeID(emp.ID), pp)
	if err != nil {
		h.fail(w, "Failed to get payslip", err)
		return
	}
	writeJSON(w, http.StatusOK, toPayslipDTO(slip))
}

// ListPayslipRevisions returns every revision for a period, oldest first.
// GET /api/employees/{id}/payslips/{period}/revisions
func (h *Handler) ListPayslipRevisions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	emp, err := h.employee(ctx, chi.URLParam(r, "id"), eligibility.ViewPayslip)
	if err != nil {
		h.fail(w, "Payslip not available", err)
		return
	}
	pp, err := generic.ParsePayPeriod(chi.URLParam(r, "period"))
	if err != nil {
		h.fail(w, "Invalid period", err)
		return
	}

	slips, err := h.Store.ListRevisions(ctx, generic.EmployeeID(emp.ID), pp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list revisions", err)
		return
	}
	writeJSON(w, http.StatusOK, payslipDTOs(slips))
}

// GeneratePayslip computes and stores one employee's payslip for a period.
// POST /api/employees/{id}/payslips/{period}
func (h *Handler) GeneratePayslip(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	emp, err := h.employee(ctx, chi.URLParam(r, "id"), eligibility.GeneratePayslip)
	if err != nil {
		h.fail(w, "Payslip generation not allowed", err)
		return
	}
	pp, err := generic.ParsePayPeriod(chi.URLParam(r, "period"))
	if err != nil {
		h.fail(w, "Invalid period", err)
		return
	}

	empID := generic.EmployeeID(emp.ID)
	report, _, err := h.RunPayroll(ctx, pp, []generic.EmployeeID{empID}, "employee")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Payroll run failed", err)
		return
	}

	out := report.Outcomes[empID]
	if !out.OK() {
		h.fail(w, "Payslip computation failed", out.Err)
		return
	}

	if !out.Save.Unchanged {
		writeJSON(w, http.StatusCreated, toPayslipDTO(out.Payslip))
		return
	}

	// Unchanged inputs: the stored revision, with its original GeneratedAt.
	stored, err := h.Store.GetPayslip(ctx, empID, pp)
	if err != nil {
		h.fail(w, "Failed to get payslip", err)
		return
	}
	writeJSON(w, http.StatusOK, toPayslipDTO(stored))
}

func payslipDTOs(slips []*payroll.Payslip) []PayslipDTO {
	dtos := make([]PayslipDTO, len(slips))
	for i, s := range slips {
		dtos[i] = toPayslipDTO(s)
	}
	return dtos
}

// =============================================================================
// PAYROLL RUN HANDLERS
// =============================================================================

// TriggerPayrollRun runs payroll for a period. Administrative: not gated.
// POST /api/payroll/runs
func (h *Handler) TriggerPayrollRun(w http.ResponseWriter, r *http.Request) {
	var req RunPayrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	pp, err := h.periodParam(req.Period)
	if err != nil {
		h.fail(w, "Invalid period", err)
		return
	}

	ids := make([]generic.EmployeeID, 0, len(req.EmployeeIDs))
	for _, id := range req.EmployeeIDs {
		ids = append(ids, generic.EmployeeID(id))
	}

	report, run, err := h.RunPayroll(r.Context(), pp, ids, "manual")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Payroll run failed", err)
		return
	}

	writeJSON(w, http.StatusOK, toPayrollRunDTO(run, report))
}

// ListPayrollRuns returns run history.
// GET /api/payroll/runs?status=completed
func (h *Handler) ListPayrollRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.GetPayrollRuns(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get payroll runs", err)
		return
	}

	dtos := make([]PayrollRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toPayrollRunDTO(run, nil)
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": dtos})
}

// RunPayroll computes and stores payslips for the period and records the run.
// An empty ids list covers every active employee. Per-employee failures are
// in the report; the error is only for failures of the run itself.
func (h *Handler) RunPayroll(ctx context.Context, pp generic.PayPeriod, ids []generic.EmployeeID, trigger string) (*payroll.RunReport, sqlite.PayrollRun, error) {
	if len(ids) == 0 {
		var err error
		if ids, err = h.Store.ListActiveEmployeeIDs(ctx); err != nil {
			return nil, sqlite.PayrollRun{}, err
		}
	}

	src := h.source()
	rules, err := src.LoadRules(ctx)
	if err != nil {
		return nil, sqlite.PayrollRun{}, fmt.Errorf("load deduction rules: %w", err)
	}

	period := pp.Period()
	started := h.Now().UTC()
	run := sqlite.PayrollRun{
		ID:        uuid.NewString(),
		Period:    pp,
		Status:    "running",
		Trigger:   trigger,
		Requested: len(ids),
		StartedAt: &started,
		CreatedAt: started,
	}
	if err := h.Store.SavePayrollRun(ctx, run); err != nil {
		return nil, run, err
	}

	report := h.Runner.Run(ctx, payroll.RunRequest{
		Period:      pp,
		EmployeeIDs: ids,
		Rules:       rules,
		Calendar:    h.calendar(period),
		AsOf:        h.asOf(period),
		GeneratedAt: started,
	}, src, h.Store)

	completed := h.Now().UTC()
	run.CompletedAt = &completed
	run.Succeeded = report.Succeeded
	run.Failed = report.Failed
	switch {
	case report.Failed == 0:
		run.Status = "completed"
	case report.Succeeded == 0:
		run.Status = "failed"
	default:
		run.Status = "partial"
	}
	if report.Failed > 0 {
		run.Errors = make(map[generic.EmployeeID]string, report.Failed)
		for _, id := range report.FailedEmployees() {
			run.Errors[id] = report.Outcomes[id].Err.Error()
		}
	}
	if err := h.Store.SavePayrollRun(ctx, run); err != nil {
		return &report, run, err
	}
	return &report, run, nil
}

// =============================================================================
// DEDUCTION RULE HANDLERS
// =============================================================================

// ListDeductionRules returns the company-wide rules in evaluation order.
// GET /api/deduction-rules
func (h *Handler) ListDeductionRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.source().LoadRules(r.Context())
	if err != nil {
		h.fail(w, "Failed to load deduction rules", err)
		return
	}

	dtos := make([]factory.RuleJSON, len(rules))
	for i, rule := range rules {
		dtos[i] = h.Salaries.RuleToJSON(rule, h.Salaries.Currency())
	}
	writeJSON(w, http.StatusOK, dtos)
}

// PutDeductionRule creates or replaces a company-wide rule.
// PUT /api/deduction-rules/{code}?position=10
func (h *Handler) PutDeductionRule(w http.ResponseWriter, r *http.Request) {
	var rj factory.RuleJSON
	if err := json.NewDecoder(r.Body).Decode(&rj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	rj.Code = chi.URLParam(r, "code")

	rule, err := h.Salaries.RuleFromJSON(rj, h.Salaries.Currency())
	if err != nil {
		h.fail(w, "Invalid deduction rule", err)
		return
	}

	var position int
	if p := r.URL.Query().Get("position"); p != "" {
		if position, err = strconv.Atoi(p); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid position", err)
			return
		}
	}

	body, err := h.Salaries.MarshalRule(rule, h.Salaries.Currency())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode rule", err)
		return
	}
	if err := h.Store.SaveDeductionRule(r.Context(), sqlite.RuleRecord{
		Code:       rule.RuleCode(),
		Position:   position,
		ConfigJSON: body,
	}); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save rule", err)
		return
	}

	writeJSON(w, http.StatusOK, h.Salaries.RuleToJSON(rule, h.Salaries.Currency()))
}

// DeleteDeductionRule removes a rule.
// DELETE /api/deduction-rules/{code}
func (h *Handler) DeleteDeductionRule(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteDeductionRule(r.Context(), chi.URLParam(r, "code")); err != nil {
		h.fail(w, "Failed to delete rule", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// =============================================================================
// HOLIDAY ENDPOINTS
// =============================================================================

// HolidayDTO represents a holiday.
type HolidayDTO struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	Date      string `json:"date"`
	Name      string `json:"name"`
	Recurring bool   `json:"recurring"`
}

// ListHolidays returns all holidays.
// GET /api/holidays
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	companyID := r.URL.Query().Get("company_id")
	if companyID == "" {
		companyID = h.CompanyID
	}

	holidays, err := h.Store.GetAllHolidays(r.Context(), companyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get holidays", err)
		return
	}

	dtos := make([]HolidayDTO, 0, len(holidays))
	for _, hol := range holidays {
		dtos = append(dtos, HolidayDTO{
			ID:        hol.ID,
			CompanyID: hol.CompanyID,
			Date:      hol.Date.String(),
			Name:      hol.Name,
			Recurring: hol.Recurring,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"holidays": dtos})
}

// CreateHoliday creates a new holiday.
// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req HolidayDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.Date == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "Date and name are required", nil)
		return
	}

	date, err := generic.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	holiday := generic.Holiday{
		ID:        uuid.NewString(),
		CompanyID: req.CompanyID,
		Date:      date,
		Name:      req.Name,
		Recurring: req.Recurring,
	}

	if err := h.Store.SaveHoliday(r.Context(), holiday); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create holiday", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"status":  "created",
		"holiday": holiday.ID,
	})
}

// DeleteHoliday deletes a holiday.
// DELETE /api/holidays/{id}
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteHoliday(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete holiday", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// AddDefaultHolidays adds the recurring Indian national holidays.
// POST /api/holidays/defaults
func (h *Handler) AddDefaultHolidays(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CompanyID string `json:"company_id"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	defaults := []struct {
		month time.Month
		day   int
		name  string
	}{
		{time.January, 26, "Republic Day"},
		{time.August, 15, "Independence Day"},
		{time.October, 2, "Gandhi Jayanti"},
	}

	year := h.today().Year()
	for _, d := range defaults {
		holiday := generic.Holiday{
			ID:        fmt.Sprintf("holiday-%s-%02d%02d", req.CompanyID, int(d.month), d.day),
			CompanyID: req.CompanyID,
			Date:      generic.NewTimePoint(year, d.month, d.day),
			Name:      d.name,
			Recurring: true,
		}
		if err := h.Store.SaveHoliday(r.Context(), holiday); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to create holiday", err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"status": "created",
		"count":  len(defaults),
	})
}

// =============================================================================
// ADMIN
// =============================================================================

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// fail writes err with the status its category maps to; 5xx are logged.
func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error(message, slog.String("error", err.Error()))
	}
	writeError(w, status, message, err)
}

func statusFor(err error) int {
	var transitionErr *eligibility.InvalidTransitionError
	switch {
	case errors.Is(err, generic.ErrNotEligible):
		return http.StatusForbidden
	case generic.IsNotFound(err), errors.Is(err, sqlite.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, generic.ErrOverlappingLeave),
		errors.Is(err, generic.ErrDuplicateAttendance),
		errors.Is(err, sqlite.ErrConflict),
		errors.Is(err, sqlite.ErrDuplicate),
		errors.As(err, &transitionErr):
		return http.StatusConflict
	case generic.IsFatalForEmployee(err):
		return http.StatusUnprocessableEntity
	case generic.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
