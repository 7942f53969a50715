package payroll

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/infofitsoftwaresolution/ems-system-sub003/attendance"
	"github.com/infofitsoftwaresolution/ems-system-sub003/generic"
)

// =============================================================================
// BATCH RUNS
// =============================================================================

// EmployeeInput is the already-fetched data for one employee and period.
type EmployeeInput struct {
	Structure  *SalaryStructure
	Attendance []attendance.AttendanceRecord
	Leaves     []attendance.LeaveRecord
}

// InputSource loads one employee's records. A nil Structure with a nil error
// means the employee has no salary structure configured.
type InputSource interface {
	LoadEmployeeInput(ctx context.Context, emp generic.EmployeeID, period generic.Period) (EmployeeInput, error)
}

// RunRequest describes one payroll run.
type RunRequest struct {
	Period      generic.PayPeriod
	EmployeeIDs []generic.EmployeeID
	Rules       []DeductionRule      // company-wide rules, applied after structure deductions
	Calendar    generic.WorkCalendar // read-only, shared by every employee
	AsOf        generic.TimePoint    // clamps an in-progress month; zero for a closed one
	GeneratedAt time.Time
}

// Outcome is the result for one employee: a payslip or an error, never both.
type Outcome struct {
	EmployeeID generic.EmployeeID
	Payslip    *Payslip
	Save       SaveResult
	Err        error
}

func (o Outcome) OK() bool { return o.Err == nil }

// RunReport collects one outcome per requested employee.
type RunReport struct {
	Period    generic.PayPeriod
	Outcomes  map[generic.EmployeeID]Outcome
	Started   time.Time
	Finished  time.Time
	Succeeded int
	Failed    int
}

// FailedEmployees lists failed employees in ID order.
func (r RunReport) FailedEmployees() []generic.EmployeeID {
	var out []generic.EmployeeID
	for id, o := range r.Outcomes {
		if !o.OK() {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Runner computes payslips for many employees with bounded concurrency.
// One employee's failure or timeout never affects the others.
type Runner struct {
	Aggregator      *attendance.Aggregator
	Calculator      *Calculator
	Concurrency     int           // <= 0 means 1
	EmployeeTimeout time.Duration // <= 0 means no per-employee deadline
	Logger          *slog.Logger
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r.Logger
}

// Run processes every employee in req and returns once all are done.
// Cancelling ctx fails the employees that have not finished yet.
func (r *Runner) Run(ctx context.Context, req RunRequest, src InputSource, sink PayslipSink) RunReport {
	report := RunReport{
		Period:   req.Period,
		Outcomes: make(map[generic.EmployeeID]Outcome, len(req.EmployeeIDs)),
		Started:  time.Now().UTC(),
	}

	limit := r.Concurrency
	if limit <= 0 {
		limit = 1
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(limit)

	for _, emp := range dedupe(req.EmployeeIDs) {
		emp := emp
		g.Go(func() error {
			out := r.runOne(ctx, req, emp, src, sink)
			mu.Lock()
			report.Outcomes[emp] = out
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range report.Outcomes {
		if o.OK() {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}
	report.Finished = time.Now().UTC()

	r.logger().Info("payroll run finished",
		slog.String("period", req.Period.String()),
		slog.Int("employees", len(report.Outcomes)),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
		slog.Duration("took", report.Finished.Sub(report.Started)))
	return report
}

func (r *Runner) runOne(ctx context.Context, req RunRequest, emp generic.EmployeeID, src InputSource, sink PayslipSink) Outcome {
	out := Outcome{EmployeeID: emp}

	ectx := ctx
	if r.EmployeeTimeout > 0 {
		var cancel context.CancelFunc
		ectx, cancel = context.WithTimeout(ctx, r.EmployeeTimeout)
		defer cancel()
	}

	slip, err := r.compute(ectx, req, emp, src)
	if err == nil {
		// Don't write anything for an employee whose deadline already passed.
		err = ectx.Err()
	}
	if err == nil && sink != nil {
		out.Save, err = sink.SavePayslip(ectx, slip)
		if err != nil {
			err = fmt.Errorf("save payslip: %w", err)
		}
	}
	if err != nil {
		out.Err = err
		r.logger().Warn("payroll failed for employee",
			slog.String("employee_id", string(emp)),
			slog.String("period", req.Period.String()),
			slog.String("error", err.Error()))
		return out
	}
	out.Payslip = slip
	return out
}

func (r *Runner) compute(ctx context.Context, req RunRequest, emp generic.EmployeeID, src InputSource) (*Payslip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.Aggregator == nil || r.Calculator == nil {
		return nil, &generic.ConfigurationError{EmployeeID: emp, Field: "runner", Reason: "aggregator and calculator are required"}
	}
	period := req.Period.Period()

	in, err := src.LoadEmployeeInput(ctx, emp, period)
	if err != nil {
		return nil, fmt.Errorf("load input: %w", err)
	}
	if in.Structure == nil {
		return nil, &generic.ConfigurationError{EmployeeID: emp, Field: "salary_structure", Reason: "missing"}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary, err := r.Aggregator.Summarize(attendance.SummaryInput{
		EmployeeID: emp,
		Period:     period,
		Attendance: in.Attendance,
		Leaves:     in.Leaves,
		Calendar:   req.Calendar,
		AsOf:       req.AsOf,
	})
	if err != nil {
		return nil, withEmployee(err, emp)
	}

	return r.Calculator.ComputePayslip(ComputeInput{
		EmployeeID:  emp,
		Period:      req.Period,
		Structure:   in.Structure,
		Summary:     summary,
		Rules:       req.Rules,
		GeneratedAt: req.GeneratedAt,
	})
}

func dedupe(ids []generic.EmployeeID) []generic.EmployeeID {
	seen := make(map[generic.EmployeeID]bool, len(ids))
	out := make([]generic.EmployeeID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
