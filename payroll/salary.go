/*
Package payroll turns an attendance summary and a salary structure into a payslip.

PURPOSE:
  Proration maps attendance into per-component leave deductions. The
  calculator composes earnings, the leave deduction and the deduction rules
  into a reconciled Payslip. The runner does this for many employees at once.

KEY CONCEPTS IN THIS FILE (salary.go):
  - Treatment:        Prorated or Fixed, declared per earning component
  - EarningComponent: A named monthly amount with its treatment
  - SalaryStructure:  Point-in-time snapshot of one employee's pay

RECONCILIATION:
  ContractualGross = sum(Earnings)
  GrossEarnings    = ContractualGross - LeaveDeduction
  TotalDeductions  = sum(Deductions), including the leave deduction line
  UnclampedNetPay  = ContractualGross - TotalDeductions
  NetPay           = max(0, UnclampedNetPay)

SEE ALSO:
  - rules.go:      DeductionRule variants and EvaluateRule
  - proration.go:  ProrationPolicy
  - calculator.go: ComputePayslip
  - runner.go:     Bounded-concurrency batch runs
*/
package payroll

import (
	"fmt"
	"strings"

	"github.com/infofitsoftwaresolution/ems-system-sub003/generic"
)

// =============================================================================
// EARNING TREATMENT
// =============================================================================

// Treatment says whether attendance affects an earning component.
// The zero value is invalid so that a forgotten treatment is caught.
type Treatment int

const (
	TreatmentProrated Treatment = iota + 1
	TreatmentFixed
)

func (t Treatment) String() string {
	switch t {
	case TreatmentProrated:
		return "prorated"
	case TreatmentFixed:
		return "fixed"
	default:
		return fmt.Sprintf("treatment(%d)", int(t))
	}
}

func ParseTreatment(s string) (Treatment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prorated":
		return TreatmentProrated, nil
	case "fixed":
		return TreatmentFixed, nil
	default:
		return 0, fmt.Errorf("unknown earning treatment %q", s)
	}
}

func (t Treatment) MarshalText() ([]byte, error) {
	switch t {
	case TreatmentProrated, TreatmentFixed:
		return []byte(t.String()), nil
	}
	return nil, fmt.Errorf("cannot marshal %s", t)
}

func (t *Treatment) UnmarshalText(b []byte) error {
	parsed, err := ParseTreatment(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// =============================================================================
// SALARY STRUCTURE
// =============================================================================

// EarningComponent is one line of contractual monthly pay.
type EarningComponent struct {
	Code      string        `json:"code"`
	Name      string        `json:"name"`
	Amount    generic.Money `json:"amount"`
	Treatment Treatment     `json:"treatment"`
}

// SalaryStructure is immutable for the duration of a payroll run.
type SalaryStructure struct {
	EmployeeID    generic.EmployeeID `json:"employee_id"`
	Currency      generic.Currency   `json:"currency"`
	Earnings      []EarningComponent `json:"earnings"`
	Deductions    []DeductionRule    `json:"-"`
	EffectiveFrom generic.TimePoint  `json:"effective_from"`
}

// Bases names reserved for rule evaluation; earning codes may not reuse them.
const (
	BaseGross       Base = "gross"
	BaseContractual Base = "contractual"
)

// LeaveDeductionCode is the code of the deduction line produced by proration.
const LeaveDeductionCode = "leave_deduction"

// Validate reports the first structural problem as a ConfigurationError.
func (s *SalaryStructure) Validate() error {
	cfg := func(field, format string, args ...any) error {
		return &generic.ConfigurationError{EmployeeID: s.EmployeeID, Field: field, Reason: fmt.Sprintf(format, args...)}
	}

	if err := s.Currency.Validate(); err != nil {
		return cfg("currency", "%s", err)
	}
	if len(s.Earnings) == 0 {
		return cfg("earnings", "at least one earning component is required")
	}

	seen := make(map[string]bool, len(s.Earnings))
	for i, e := range s.Earnings {
		field := fmt.Sprintf("earnings[%d]", i)
		code := strings.TrimSpace(e.Code)
		switch {
		case code == "":
			return cfg(field, "code is required")
		case code == string(BaseGross) || code == string(BaseContractual) || code == LeaveDeductionCode:
			return cfg(field, "code %q is reserved", code)
		case seen[code]:
			return cfg(field, "duplicate code %q", code)
		case e.Amount.IsNegative():
			return cfg(field, "amount for %q is negative", code)
		}
		switch e.Treatment {
		case TreatmentProrated, TreatmentFixed:
		default:
			return cfg(field, "unknown treatment %s for %q", e.Treatment, code)
		}
		seen[code] = true
	}
	return nil
}

// Earning looks up a component by code.
func (s *SalaryStructure) Earning(code string) (EarningComponent, bool) {
	for _, e := range s.Earnings {
		if e.Code == code {
			return e, true
		}
	}
	return EarningComponent{}, false
}

// Gross is the contractual monthly total.
func (s *SalaryStructure) Gross() generic.Money {
	var total generic.Money
	for _, e := range s.Earnings {
		total += e.Amount
	}
	return total
}
