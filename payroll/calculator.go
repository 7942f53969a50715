package payroll

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/infofitsoftwaresolution/ems-system-sub003/attendance"
	"github.com/infofitsoftwaresolution/ems-system-sub003/generic"
)

// payslipNamespace seeds deterministic payslip IDs.
var payslipNamespace = uuid.MustParse("8a6f3c1e-52d4-4b7a-9e0f-3d2c1b4a5e6f")

// =============================================================================
// PAYSLIP
// =============================================================================

// Line is one earnings or deductions entry.
type Line struct {
	Code   string        `json:"code"`
	Name   string        `json:"name"`
	Kind   string        `json:"kind"`
	Amount generic.Money `json:"amount"`
}

// Payslip is the reconciled monthly pay record of one employee. All amounts
// are minor currency units.
//
// ContractualGross is the sum of the earnings lines at their contractual
// amounts. GrossEarnings is what was earned for the period's attendance:
// ContractualGross less the leave deduction. Rules on the "gross" base see
// GrossEarnings.
type Payslip struct {
	ID               string                       `json:"id"`
	EmployeeID       generic.EmployeeID           `json:"employee_id"`
	Period           generic.PayPeriod            `json:"period"`
	Currency         generic.Currency             `json:"currency"`
	Earnings         []Line                       `json:"earnings"`
	ContractualGross generic.Money                `json:"contractual_gross"`
	LeaveDeduction   generic.Money                `json:"leave_deduction"`
	GrossEarnings    generic.Money                `json:"gross_earnings"`
	Deductions       []Line                       `json:"deductions"`
	TotalDeductions  generic.Money                `json:"total_deductions"`
	UnclampedNetPay  generic.Money                `json:"unclamped_net_pay"`
	NetPay           generic.Money                `json:"net_pay"`
	PayableFraction  decimal.Decimal              `json:"payable_fraction"`
	Adjustments      []Adjustment                 `json:"adjustments"`
	Attendance       attendance.Summary           `json:"attendance"`
	Warnings         []generic.DataQualityWarning `json:"warnings,omitempty"`
	InputDigest      string                       `json:"input_digest"`
	GeneratedAt      time.Time                    `json:"generated_at"`
	Revision         int                          `json:"revision,omitempty"`
}

// Reconciles checks the payslip's arithmetic invariants.
func (p *Payslip) Reconciles() bool {
	var earnings, deductions generic.Money
	for _, l := range p.Earnings {
		earnings += l.Amount
	}
	for _, l := range p.Deductions {
		deductions += l.Amount
	}
	return earnings == p.ContractualGross &&
		p.GrossEarnings == p.ContractualGross-p.LeaveDeduction &&
		deductions == p.TotalDeductions &&
		p.ContractualGross-p.TotalDeductions == p.UnclampedNetPay &&
		p.NetPay >= 0 &&
		(p.NetPay == p.UnclampedNetPay || (p.UnclampedNetPay < 0 && p.NetPay == 0))
}

// =============================================================================
// CALCULATOR
// =============================================================================

// ComputeInput is a point-in-time snapshot of everything that determines a payslip.
// GeneratedAt is stamped on the result but is not part of the input digest.
type ComputeInput struct {
	EmployeeID  generic.EmployeeID
	Period      generic.PayPeriod
	Structure   *SalaryStructure
	Summary     attendance.Summary
	Rules       []DeductionRule
	GeneratedAt time.Time
}

// Calculator composes proration and deduction rules into payslips. It holds no
// mutable state and can be shared by concurrent runs.
type Calculator struct {
	Proration ProrationPolicy
	Logger    *slog.Logger
}

func NewCalculator(policy ProrationPolicy) *Calculator {
	return &Calculator{Proration: policy}
}

func (c *Calculator) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.Logger
}

// ComputePayslip returns *generic.ConfigurationError for a missing or invalid
// structure and *generic.RuleError for a rule that cannot be evaluated.
func (c *Calculator) ComputePayslip(in ComputeInput) (*Payslip, error) {
	if _, err := generic.NewPayPeriod(in.Period.Year, int(in.Period.Month)); err != nil {
		return nil, err
	}
	if in.Structure == nil {
		return nil, &generic.ConfigurationError{EmployeeID: in.EmployeeID, Field: "salary_structure", Reason: "missing"}
	}
	if in.Structure.EmployeeID != in.EmployeeID {
		return nil, &generic.ConfigurationError{
			EmployeeID: in.EmployeeID,
			Field:      "salary_structure",
			Reason:     fmt.Sprintf("belongs to %q", in.Structure.EmployeeID),
		}
	}
	if err := in.Structure.Validate(); err != nil {
		return nil, err
	}
	if in.Summary.EmployeeID != in.EmployeeID {
		return nil, &generic.ConfigurationError{
			EmployeeID: in.EmployeeID,
			Field:      "attendance",
			Reason:     fmt.Sprintf("summary belongs to %q", in.Summary.EmployeeID),
		}
	}

	pr, err := c.Proration.Prorate(in.Summary, in.Structure)
	if err != nil {
		return nil, withEmployee(err, in.EmployeeID)
	}

	slip := &Payslip{
		EmployeeID:      in.EmployeeID,
		Period:          in.Period,
		Currency:        in.Structure.Currency,
		Attendance:      in.Summary,
		PayableFraction: pr.PayableFraction,
		Adjustments:     pr.Adjustments,
		LeaveDeduction:  pr.LeaveDeduction,
		GeneratedAt:     in.GeneratedAt.UTC(),
	}
	slip.Warnings = append(slip.Warnings, in.Summary.Warnings...)
	slip.Warnings = append(slip.Warnings, pr.Warnings...)

	// Earnings are contractual; attendance shows up as the leave deduction line.
	bases := Bases{}
	for i, e := range in.Structure.Earnings {
		slip.Earnings = append(slip.Earnings, Line{Code: e.Code, Name: nameOr(e.Name, e.Code), Kind: e.Treatment.String(), Amount: e.Amount})
		slip.ContractualGross += e.Amount
		bases[Base(e.Code)] = pr.Adjustments[i].Payable
	}
	slip.GrossEarnings = slip.ContractualGross - slip.LeaveDeduction
	bases[BaseGross] = slip.GrossEarnings
	bases[BaseContractual] = slip.ContractualGross

	slip.Deductions = append(slip.Deductions, Line{
		Code: LeaveDeductionCode, Name: "Leave deduction", Kind: "proration", Amount: slip.LeaveDeduction,
	})

	rules := make([]DeductionRule, 0, len(in.Structure.Deductions)+len(in.Rules))
	rules = append(rules, in.Structure.Deductions...)
	rules = append(rules, in.Rules...)

	seen := make(map[string]bool, len(rules))
	for _, rule := range rules {
		if rule != nil && seen[rule.RuleCode()] {
			return nil, &generic.RuleError{EmployeeID: in.EmployeeID, RuleCode: rule.RuleCode(), Reason: "defined more than once"}
		}
		amount, err := EvaluateRule(rule, bases)
		if err != nil {
			return nil, withEmployee(err, in.EmployeeID)
		}
		seen[rule.RuleCode()] = true
		slip.Deductions = append(slip.Deductions, Line{
			Code: rule.RuleCode(), Name: rule.RuleName(), Kind: string(rule.Kind()), Amount: amount,
		})
	}

	for _, l := range slip.Deductions {
		slip.TotalDeductions += l.Amount
	}
	slip.UnclampedNetPay = slip.ContractualGross - slip.TotalDeductions
	slip.NetPay = slip.UnclampedNetPay
	if slip.NetPay.IsNegative() {
		slip.NetPay = 0
		slip.Warnings = append(slip.Warnings, generic.NewWarning(generic.WarnNegativeNetPay, nil,
			"deductions %s exceed gross %s; net pay clamped to zero",
			in.Structure.Currency.Format(slip.TotalDeductions), in.Structure.Currency.Format(slip.ContractualGross)))
		c.logger().Warn("net pay clamped to zero",
			slog.String("employee_id", string(in.EmployeeID)),
			slog.String("period", in.Period.String()),
			slog.Int64("unclamped_net_pay", int64(slip.UnclampedNetPay)))
	}

	digest, err := c.digest(in)
	if err != nil {
		return nil, fmt.Errorf("digest payslip input for %s: %w", in.EmployeeID, err)
	}
	slip.InputDigest = digest
	slip.ID = PayslipID(in.EmployeeID, in.Period, digest)
	return slip, nil
}

// PayslipID is derived from the employee, the period and the input digest, so
// recomputing unchanged inputs yields the same ID.
func PayslipID(emp generic.EmployeeID, period generic.PayPeriod, digest string) string {
	return uuid.NewSHA1(payslipNamespace, []byte(string(emp)+"|"+period.String()+"|"+digest)).String()
}

// digestInput is the canonical form hashed into Payslip.InputDigest.
type digestInput struct {
	EmployeeID generic.EmployeeID `json:"employee_id"`
	Period     generic.PayPeriod  `json:"period"`
	Policy     ProrationPolicy    `json:"policy"`
	Structure  *SalaryStructure   `json:"structure"`
	Deductions []ruleEnvelope     `json:"structure_deductions"`
	Summary    attendance.Summary `json:"summary"`
	Rules      []ruleEnvelope     `json:"rules"`
}

func (c *Calculator) digest(in ComputeInput) (string, error) {
	b, err := json.Marshal(digestInput{
		EmployeeID: in.EmployeeID,
		Period:     in.Period,
		Policy:     c.Proration,
		Structure:  in.Structure,
		Deductions: envelopes(in.Structure.Deductions),
		Summary:    in.Summary,
		Rules:      envelopes(in.Rules),
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// withEmployee stamps the employee on engine errors raised without one.
func withEmployee(err error, emp generic.EmployeeID) error {
	var ruleErr *generic.RuleError
	if errors.As(err, &ruleErr) && ruleErr.EmployeeID == "" {
		cp := *ruleErr
		cp.EmployeeID = emp
		return &cp
	}
	var cfgErr *generic.ConfigurationError
	if errors.As(err, &cfgErr) && cfgErr.EmployeeID == "" {
		cp := *cfgErr
		cp.EmployeeID = emp
		return &cp
	}
	return err
}
