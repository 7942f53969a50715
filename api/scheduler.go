/*
scheduler.go - Automated monthly payroll scheduler

PURPOSE:
  Periodically checks whether the previous month's payroll has been run and,
  if not, runs it for every active employee.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Only closed months are run; the current month is never touched
  - A month with a completed run is skipped
  - Partial or failed runs are retried on the next tick. Re-running is safe:
    unchanged inputs leave payslips untouched, changed inputs add a revision.

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewPayrollScheduler(store, handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RunPayroll, shared with POST /api/payroll/runs
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/infofitsoftwaresolution/ems-system-sub003/generic"
	"github.com/infofitsoftwaresolution/ems-system-sub003/store/sqlite"
)

// PayrollScheduler runs the previous month's payroll once it has closed.
type PayrollScheduler struct {
	Store         *sqlite.Store
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool
	Logger        *slog.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewPayrollScheduler creates a new scheduler.
func NewPayrollScheduler(store *sqlite.Store, handler *Handler) *PayrollScheduler {
	return &PayrollScheduler{
		Store:         store,
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		Logger:        handler.Logger,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (ps *PayrollScheduler) Start() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if !ps.Enabled {
		ps.Logger.Info("payroll scheduler disabled")
		return
	}

	ps.ticker = time.NewTicker(ps.CheckInterval)
	ps.wg.Add(1)

	go ps.run()

	ps.Logger.Info("payroll scheduler started", slog.Duration("interval", ps.CheckInterval))
}

// Stop stops the scheduler and waits for an in-flight check to finish.
func (ps *PayrollScheduler) Stop() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.ticker != nil {
		ps.ticker.Stop()
		close(ps.stop)
		ps.wg.Wait()
		ps.ticker = nil
		ps.Logger.Info("payroll scheduler stopped")
	}
}

func (ps *PayrollScheduler) run() {
	defer ps.wg.Done()

	// Run immediately on start
	ps.checkAndProcess()

	for {
		select {
		case <-ps.ticker.C:
			ps.checkAndProcess()
		case <-ps.stop:
			return
		}
	}
}

// RunNow triggers an immediate check and reports the period it looked at and
// whether a run was started.
func (ps *PayrollScheduler) RunNow() (generic.PayPeriod, bool) {
	return ps.checkAndProcess()
}

func (ps *PayrollScheduler) checkAndProcess() (generic.PayPeriod, bool) {
	ctx := context.Background()
	period := generic.PayPeriodOf(ps.Handler.today()).Previous()
	log := ps.Logger.With(slog.String("period", period.String()))

	done, err := ps.Store.IsPayrollComplete(ctx, period)
	if err != nil {
		log.Error("checking payroll status", slog.String("error", err.Error()))
		return period, false
	}
	if done {
		log.Debug("payroll already complete")
		return period, false
	}

	report, run, err := ps.Handler.RunPayroll(ctx, period, nil, "scheduler")
	if err != nil {
		log.Error("scheduled payroll run failed", slog.String("error", err.Error()))
		return period, true
	}

	log.Info("scheduled payroll run finished",
		slog.String("run_id", run.ID),
		slog.String("status", run.Status),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed))
	return period, true
}
