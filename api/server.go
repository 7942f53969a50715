/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. CORS:          Cross-origin requests for frontend
  3. RequestLogger: Structured request logging (httplog, ECS schema)
  4. CleanPath:     Collapses double slashes before routing
  5. Recoverer:     Panic recovery (500 instead of crash)
  6. Heartbeat:     GET /health for load balancers

ROUTE GROUPS:
  /api/employees/*       Employees, attendance, leave, salary, payslips
  /api/leaves/*          Leave approval queue
  /api/payroll/*         Batch payroll runs
  /api/deduction-rules/* Company-wide statutory rules
  /api/holidays/*        Company holidays
  /api/reset             Database reset (dev only)

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"io"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
)

// RouterOptions configures middleware. A nil Logger disables request logging output.
type RouterOptions struct {
	Logger         *slog.Logger
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))
	r.Use(middleware.CleanPath)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/health"))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetEmployee)
				r.Put("/active", h.SetActive)
				r.Post("/verification/{event}", h.TransitionVerification)

				r.Post("/check-in", h.CheckIn)
				r.Post("/check-out", h.CheckOut)
				r.Get("/attendance", h.GetAttendanceSummary)

				r.Get("/leaves", h.ListLeaves)
				r.Post("/leaves", h.ApplyLeave)

				r.Get("/salary", h.GetSalary)
				r.Put("/salary", h.PutSalary)

				r.Get("/payslips", h.ListPayslips)
				r.Get("/payslips/{period}", h.GetPayslip)
				r.Post("/payslips/{period}", h.GeneratePayslip)
				r.Get("/payslips/{period}/revisions", h.ListPayslipRevisions)
			})
		})

		// Leave approval routes
		r.Route("/leaves", func(r chi.Router) {
			r.Get("/pending", h.ListPendingLeaves)
			r.Post("/{id}/approve", h.ApproveLeave)
			r.Post("/{id}/reject", h.RejectLeave)
		})

		// Payroll routes
		r.Route("/payroll", func(r chi.Router) {
			r.Get("/runs", h.ListPayrollRuns)
			r.Post("/runs", h.TriggerPayrollRun)
		})

		// Deduction rule routes
		r.Route("/deduction-rules", func(r chi.Router) {
			r.Get("/", h.ListDeductionRules)
			r.Put("/{code}", h.PutDeductionRule)
			r.Delete("/{code}", h.DeleteDeductionRule)
		})

		// Holiday routes
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
			r.Post("/defaults", h.AddDefaultHolidays)
			r.Delete("/{id}", h.DeleteHoliday)
		})

		r.Post("/reset", h.ResetDatabase)
	})

	return r
}

// RequestLogFormat returns the slog handler options matching the request
// logger's ECS schema, for building the application logger.
func RequestLogFormat(level slog.Leveler) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: httplog.SchemaECS.Concise(false).ReplaceAttr,
	}
}
