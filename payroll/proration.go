package payroll

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/infofitsoftwaresolution/ems-system-sub003/attendance"
	"github.com/infofitsoftwaresolution/ems-system-sub003/generic"
)

// =============================================================================
// PRORATION POLICY
// =============================================================================

// Basis selects how the leave deduction of a prorated component is computed.
type Basis string

const (
	// BasisCalendarDays charges amount / calendar days of the period for each
	// unpaid or unexcused day. Short months do not inflate the daily rate.
	BasisCalendarDays Basis = "calendar_days"

	// BasisWorkingDays pays amount x PayableFraction and deducts the rest.
	BasisWorkingDays Basis = "working_days"
)

func ParseBasis(s string) (Basis, error) {
	switch b := Basis(s); b {
	case BasisCalendarDays, BasisWorkingDays:
		return b, nil
	}
	return "", fmt.Errorf("unknown proration basis %q", s)
}

// ProrationPolicy maps attendance into leave deductions.
type ProrationPolicy struct {
	Basis Basis `json:"basis"`

	// UnpaidLeaveTypes are the leave types that reduce pay. Approved leave of
	// any other type is paid.
	UnpaidLeaveTypes []attendance.LeaveType `json:"unpaid_leave_types"`
}

func DefaultProrationPolicy() ProrationPolicy {
	return ProrationPolicy{
		Basis:            BasisCalendarDays,
		UnpaidLeaveTypes: []attendance.LeaveType{attendance.LeaveUnpaid},
	}
}

// Validate checks the basis.
func (p ProrationPolicy) Validate() error {
	if _, err := ParseBasis(string(p.Basis)); err != nil {
		return &generic.ConfigurationError{Field: "proration.basis", Reason: err.Error()}
	}
	return nil
}

// Adjustment is the effect of proration on one earning component.
type Adjustment struct {
	Code        string        `json:"code"`
	Treatment   Treatment     `json:"treatment"`
	Contractual generic.Money `json:"contractual"`
	Payable     generic.Money `json:"payable"`
	Deduction   generic.Money `json:"deduction"`
}

// Proration is the output of ProrationPolicy.Prorate.
type Proration struct {
	PayableFraction decimal.Decimal              `json:"payable_fraction"`
	UnpaidLeaveDays int                          `json:"unpaid_leave_days"`
	UnexcusedDays   int                          `json:"unexcused_days"`
	DeductibleDays  int                          `json:"deductible_days"`
	LeaveDeduction  generic.Money                `json:"leave_deduction"`
	Adjustments     []Adjustment                 `json:"adjustments"`
	Warnings        []generic.DataQualityWarning `json:"warnings,omitempty"`
}

// Prorate computes the payable fraction and the per-component leave deduction.
func (p ProrationPolicy) Prorate(summary attendance.Summary, structure *SalaryStructure) (Proration, error) {
	if structure == nil {
		return Proration{}, &generic.ConfigurationError{EmployeeID: summary.EmployeeID, Field: "salary_structure", Reason: "missing"}
	}
	if err := p.Validate(); err != nil {
		return Proration{}, err
	}

	out := Proration{
		UnpaidLeaveDays: summary.LeaveDaysOf(p.unpaidTypes()...),
		UnexcusedDays:   summary.UnexcusedAbsenceDays,
	}
	out.DeductibleDays = out.UnpaidLeaveDays + out.UnexcusedDays
	out.PayableFraction = payableFraction(summary.WorkingDays, out.DeductibleDays)

	if summary.WorkingDays == 0 {
		out.Warnings = append(out.Warnings, generic.NewWarning(generic.WarnZeroWorkingDays, nil,
			"period %s has no working days; paying in full", summary.Period))
	}
	if p.Basis == BasisCalendarDays && summary.PeriodCalendarDays <= 0 && out.DeductibleDays > 0 {
		return Proration{}, &generic.ConfigurationError{
			EmployeeID: summary.EmployeeID,
			Field:      "attendance.period_calendar_days",
			Reason:     "must be positive to compute a daily rate",
		}
	}

	for _, e := range structure.Earnings {
		adj := Adjustment{Code: e.Code, Treatment: e.Treatment, Contractual: e.Amount}
		switch e.Treatment {
		case TreatmentFixed:
			adj.Payable = e.Amount
		case TreatmentProrated:
			adj.Deduction = p.componentDeduction(e.Amount, out, summary)
			adj.Payable = e.Amount - adj.Deduction
		default:
			return Proration{}, &generic.ConfigurationError{
				EmployeeID: summary.EmployeeID,
				Field:      "earnings." + e.Code,
				Reason:     fmt.Sprintf("unknown treatment %s", e.Treatment),
			}
		}
		out.LeaveDeduction += adj.Deduction
		out.Adjustments = append(out.Adjustments, adj)
	}
	return out, nil
}

func (p ProrationPolicy) componentDeduction(amount generic.Money, pr Proration, s attendance.Summary) generic.Money {
	var d generic.Money
	switch p.Basis {
	case BasisWorkingDays:
		d = amount - amount.MulDecimal(pr.PayableFraction)
	default:
		if pr.DeductibleDays == 0 {
			return 0
		}
		d = amount.MulRat(int64(pr.DeductibleDays), int64(s.PeriodCalendarDays))
	}
	if d > amount {
		d = amount
	}
	if d < 0 {
		d = 0
	}
	return d
}

func (p ProrationPolicy) unpaidTypes() []attendance.LeaveType {
	types := append([]attendance.LeaveType(nil), p.UnpaidLeaveTypes...)
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	// Dedupe so a type listed twice isn't counted twice.
	out := types[:0]
	for i, t := range types {
		if i == 0 || t != types[i-1] {
			out = append(out, t)
		}
	}
	return out
}

// payableFraction is (working - deductible) / working clamped to [0, 1].
// Zero working days pays in full.
func payableFraction(working, deductible int) decimal.Decimal {
	if working <= 0 {
		return decimal.NewFromInt(1)
	}
	f := decimal.NewFromInt(int64(working - deductible)).Div(decimal.NewFromInt(int64(working)))
	if f.IsNegative() {
		return decimal.Zero
	}
	if f.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return f
}
