package payroll

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/infofitsoftwaresolution/ems-system-sub003/generic"
)

// =============================================================================
// DEDUCTION RULES - Closed set of variants
// =============================================================================

// DeductionRule is one of FixedRule, PercentageRule or SlabRule. The set is
// closed: the unexported marker keeps other packages from adding variants,
// and EvaluateRule is the only place that interprets them.
type DeductionRule interface {
	RuleCode() string
	RuleName() string
	Kind() RuleKind
	deductionRule()
}

type RuleKind string

const (
	RuleFixed      RuleKind = "fixed"
	RulePercentage RuleKind = "percentage"
	RuleSlab       RuleKind = "slab"
)

// Base names the amount a rule is computed on: "gross" (earned after the
// leave deduction), "contractual", or the code of an earning component.
type Base string

// Bases maps each defined base to its amount for one payslip.
type Bases map[Base]generic.Money

// FixedRule deducts a constant amount.
type FixedRule struct {
	Code   string        `json:"code"`
	Name   string        `json:"name"`
	Amount generic.Money `json:"amount"`
}

// PercentageRule deducts Rate x Base, optionally capped. Rate is a fraction
// (0.12 for 12%). Cap of zero means uncapped.
type PercentageRule struct {
	Code string          `json:"code"`
	Name string          `json:"name"`
	Base Base            `json:"base"`
	Rate decimal.Decimal `json:"rate"`
	Cap  generic.Money   `json:"cap,omitempty"`
}

// Slab is one bracket. UpTo is the inclusive upper bound; zero means unbounded
// and is only allowed on the last slab.
type Slab struct {
	UpTo generic.Money   `json:"up_to"`
	Rate decimal.Decimal `json:"rate"`
	Flat generic.Money   `json:"flat,omitempty"`
}

// SlabRule is a piecewise function of its base.
//
// In bracket mode the single slab containing the base applies: Flat + Rate x Base.
// In progressive mode each slab's Rate applies to the part of the base that
// falls inside it, the way income tax bands work. Flat is not allowed there.
type SlabRule struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Base        Base   `json:"base"`
	Progressive bool   `json:"progressive"`
	Slabs       []Slab `json:"slabs"`
}

func (r FixedRule) RuleCode() string      { return r.Code }
func (r PercentageRule) RuleCode() string { return r.Code }
func (r SlabRule) RuleCode() string       { return r.Code }

func (r FixedRule) RuleName() string      { return nameOr(r.Name, r.Code) }
func (r PercentageRule) RuleName() string { return nameOr(r.Name, r.Code) }
func (r SlabRule) RuleName() string       { return nameOr(r.Name, r.Code) }

func (FixedRule) Kind() RuleKind      { return RuleFixed }
func (PercentageRule) Kind() RuleKind { return RulePercentage }
func (SlabRule) Kind() RuleKind       { return RuleSlab }

func (FixedRule) deductionRule()      {}
func (PercentageRule) deductionRule() {}
func (SlabRule) deductionRule()       {}

func nameOr(name, code string) string {
	if strings.TrimSpace(name) == "" {
		return code
	}
	return name
}

// =============================================================================
// EVALUATION
// =============================================================================

// EvaluateRule computes the deduction for one rule. Every amount is rounded
// half-even to the minor unit once, at the end. Failures are *generic.RuleError
// without an employee; the calculator fills it in.
func EvaluateRule(rule DeductionRule, bases Bases) (generic.Money, error) {
	if err := ValidateRule(rule); err != nil {
		return 0, err
	}

	switch r := rule.(type) {
	case FixedRule:
		return r.Amount, nil

	case PercentageRule:
		base, err := lookupBase(r.Code, r.Base, bases)
		if err != nil {
			return 0, err
		}
		amount := base.MulDecimal(r.Rate)
		if r.Cap > 0 && amount > r.Cap {
			amount = r.Cap
		}
		return amount, nil

	case SlabRule:
		base, err := lookupBase(r.Code, r.Base, bases)
		if err != nil {
			return 0, err
		}
		if r.Progressive {
			return progressive(r.Slabs, base), nil
		}
		return bracket(r.Slabs, base), nil

	default:
		return 0, &generic.RuleError{RuleCode: rule.RuleCode(), Reason: fmt.Sprintf("unsupported rule type %T", rule)}
	}
}

// ValidateRule checks a rule's shape without evaluating it.
func ValidateRule(rule DeductionRule) error {
	if rule == nil {
		return &generic.RuleError{RuleCode: "?", Reason: "rule is nil"}
	}
	bad := func(format string, args ...any) error {
		return &generic.RuleError{RuleCode: rule.RuleCode(), Reason: fmt.Sprintf(format, args...)}
	}
	if strings.TrimSpace(rule.RuleCode()) == "" {
		return &generic.RuleError{RuleCode: "?", Reason: "code is required"}
	}
	if rule.RuleCode() == LeaveDeductionCode {
		return bad("code %q is reserved", LeaveDeductionCode)
	}

	switch r := rule.(type) {
	case FixedRule:
		if r.Amount.IsNegative() {
			return bad("amount is negative")
		}
	case PercentageRule:
		if r.Base == "" {
			return bad("base is required")
		}
		if err := checkRate(r.Rate); err != "" {
			return bad("%s", err)
		}
		if r.Cap.IsNegative() {
			return bad("cap is negative")
		}
	case SlabRule:
		if r.Base == "" {
			return bad("base is required")
		}
		if len(r.Slabs) == 0 {
			return bad("at least one slab is required")
		}
		var prev generic.Money
		for i, s := range r.Slabs {
			last := i == len(r.Slabs)-1
			switch {
			case s.UpTo == 0 && !last:
				return bad("slab %d: only the last slab may be unbounded", i)
			case s.UpTo != 0 && last:
				return bad("slab %d: last slab must be unbounded (up_to 0)", i)
			case s.UpTo != 0 && s.UpTo <= prev:
				return bad("slab %d: bounds must increase", i)
			case s.Flat.IsNegative():
				return bad("slab %d: flat amount is negative", i)
			case r.Progressive && !s.Flat.IsZero():
				return bad("slab %d: flat amounts apply only to bracket slabs", i)
			}
			if err := checkRate(s.Rate); err != "" {
				return bad("slab %d: %s", i, err)
			}
			prev = s.UpTo
		}
	default:
		return bad("unsupported rule type %T", rule)
	}
	return nil
}

func checkRate(rate decimal.Decimal) string {
	if rate.IsNegative() {
		return "rate is negative"
	}
	if rate.GreaterThan(decimal.NewFromInt(1)) {
		return "rate is above 1 (rates are fractions, 0.12 for 12%)"
	}
	return ""
}

func lookupBase(code string, base Base, bases Bases) (generic.Money, error) {
	amount, ok := bases[base]
	if !ok {
		return 0, &generic.RuleError{RuleCode: code, Reason: fmt.Sprintf("base %q is not defined", base)}
	}
	return amount, nil
}

func bracket(slabs []Slab, base generic.Money) generic.Money {
	for _, s := range slabs {
		if s.UpTo == 0 || base <= s.UpTo {
			return s.Flat + base.MulDecimal(s.Rate)
		}
	}
	return 0
}

func progressive(slabs []Slab, base generic.Money) generic.Money {
	total := decimal.Zero
	var lower generic.Money
	for _, s := range slabs {
		if base <= lower {
			break
		}
		upper := base
		if s.UpTo != 0 && s.UpTo < base {
			upper = s.UpTo
		}
		total = total.Add((upper - lower).Decimal().Mul(s.Rate))
		lower = s.UpTo
		if s.UpTo == 0 {
			break
		}
	}
	return generic.RoundMinor(total)
}

// ruleEnvelope tags a rule with its kind for canonical encoding.
type ruleEnvelope struct {
	Kind RuleKind      `json:"kind"`
	Rule DeductionRule `json:"rule"`
}

func envelopes(rules []DeductionRule) []ruleEnvelope {
	out := make([]ruleEnvelope, 0, len(rules))
	for _, r := range rules {
		if r == nil {
			continue
		}
		out = append(out, ruleEnvelope{Kind: r.Kind(), Rule: r})
	}
	return out
}
