/*
Package factory provides JSON to Go salary configuration conversion.

PURPOSE:
  Converts JSON salary structures and deduction rules into payroll types.
  HR configures pay as data; the factory validates it and builds the closed
  set of rule variants the calculator understands. Amounts are display units
  ("30000.50"); rates are percentages ("12" for 12%).

JSON SCHEMA:
  {
    "employee_id": "emp-1",
    "currency": "INR",
    "effective_from": "2024-04-01",
    "earnings": [
      {"code": "basic", "name": "Basic", "amount": "30000", "treatment": "prorated"},
      {"code": "transport", "name": "Transport", "amount": "2000", "treatment": "fixed"}
    ],
    "deductions": [
      {"type": "percentage", "code": "pf", "base": "basic", "percent": "12", "cap": "1800"},
      {"type": "slab", "code": "pt", "base": "gross", "slabs": [
        {"up_to": "15000"}, {"up_to": "20000", "flat": "150"}, {"flat": "200"}
      ]},
      {"type": "fixed", "code": "canteen", "amount": "500"}
    ]
  }

USAGE:
  f := factory.NewSalaryFactory(generic.INR)
  structure, err := f.ParseStructure(jsonString)

  rules, err := f.ParseRules(factory.StatutoryRulesJSON())

SEE ALSO:
  - payroll/salary.go: SalaryStructure
  - payroll/rules.go:  DeductionRule variants
  - presets.go:        Ready-made statutory rule sets
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/infofitsoftwaresolution/ems-system-sub003/generic"
	"github.com/infofitsoftwaresolution/ems-system-sub003/payroll"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// StructureJSON is the JSON representation of a salary structure.
type StructureJSON struct {
	EmployeeID       string        `json:"employee_id"`
	Currency         string        `json:"currency,omitempty"`
	CurrencyExponent *int32        `json:"currency_exponent,omitempty"`
	EffectiveFrom    string        `json:"effective_from,omitempty"`
	Earnings         []EarningJSON `json:"earnings"`
	Deductions       []RuleJSON    `json:"deductions,omitempty"`
}

// EarningJSON represents one earning component.
type EarningJSON struct {
	Code      string          `json:"code"`
	Name      string          `json:"name,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Treatment string          `json:"treatment"` // prorated, fixed
}

// RuleJSON represents a deduction rule. Which fields apply depends on Type.
type RuleJSON struct {
	Type        string           `json:"type"` // fixed, percentage, slab
	Code        string           `json:"code"`
	Name        string           `json:"name,omitempty"`
	Base        string           `json:"base,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Percent     *decimal.Decimal `json:"percent,omitempty"`
	Cap         *decimal.Decimal `json:"cap,omitempty"`
	Progressive bool             `json:"progressive,omitempty"`
	Slabs       []SlabJSON       `json:"slabs,omitempty"`
}

// SlabJSON represents one bracket. A missing up_to means unbounded.
type SlabJSON struct {
	UpTo    *decimal.Decimal `json:"up_to,omitempty"`
	Percent *decimal.Decimal `json:"percent,omitempty"`
	Flat    *decimal.Decimal `json:"flat,omitempty"`
}

// =============================================================================
// SALARY FACTORY
// =============================================================================

var hundred = decimal.NewFromInt(100)

// SalaryFactory converts JSON salary configuration to payroll types.
type SalaryFactory struct {
	currency generic.Currency
}

// NewSalaryFactory creates a factory whose structures default to the currency.
func NewSalaryFactory(defaultCurrency generic.Currency) *SalaryFactory {
	return &SalaryFactory{currency: defaultCurrency}
}

// Currency is the currency used when a structure does not name one.
func (f *SalaryFactory) Currency() generic.Currency { return f.currency }

// ParseStructure parses a JSON string into a validated SalaryStructure.
func (f *SalaryFactory) ParseStructure(jsonStr string) (*payroll.SalaryStructure, error) {
	var sj StructureJSON
	if err := json.Unmarshal([]byte(jsonStr), &sj); err != nil {
		return nil, &generic.ConfigurationError{Field: "salary_structure", Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return f.FromJSON(sj)
}

// FromJSON converts StructureJSON into a validated SalaryStructure.
func (f *SalaryFactory) FromJSON(sj StructureJSON) (*payroll.SalaryStructure, error) {
	emp := generic.EmployeeID(strings.TrimSpace(sj.EmployeeID))
	if emp == "" {
		return nil, &generic.ConfigurationError{Field: "employee_id", Reason: "is required"}
	}

	cur := f.currency
	if sj.Currency != "" {
		cur.Code = strings.ToUpper(sj.Currency)
	}
	if sj.CurrencyExponent != nil {
		cur.Exponent = *sj.CurrencyExponent
	}

	st := &payroll.SalaryStructure{EmployeeID: emp, Currency: cur}

	if sj.EffectiveFrom != "" {
		d, err := generic.ParseDate(sj.EffectiveFrom)
		if err != nil {
			return nil, &generic.ConfigurationError{EmployeeID: emp, Field: "effective_from", Reason: err.Error()}
		}
		st.EffectiveFrom = d
	}

	for i, ej := range sj.Earnings {
		treatment, err := payroll.ParseTreatment(ej.Treatment)
		if err != nil {
			return nil, &generic.ConfigurationError{EmployeeID: emp, Field: fmt.Sprintf("earnings[%d].treatment", i), Reason: err.Error()}
		}
		st.Earnings = append(st.Earnings, payroll.EarningComponent{
			Code:      strings.TrimSpace(ej.Code),
			Name:      ej.Name,
			Amount:    cur.FromDecimal(ej.Amount),
			Treatment: treatment,
		})
	}

	for _, rj := range sj.Deductions {
		rule, err := f.RuleFromJSON(rj, cur)
		if err != nil {
			return nil, stampEmployee(err, emp)
		}
		st.Deductions = append(st.Deductions, rule)
	}

	if err := st.Validate(); err != nil {
		return nil, err
	}
	return st, nil
}

// ParseRules parses a JSON array of company-wide deduction rules.
func (f *SalaryFactory) ParseRules(jsonStr string) ([]payroll.DeductionRule, error) {
	var rjs []RuleJSON
	if err := json.Unmarshal([]byte(jsonStr), &rjs); err != nil {
		return nil, &generic.RuleError{RuleCode: "?", Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	rules := make([]payroll.DeductionRule, 0, len(rjs))
	for _, rj := range rjs {
		r, err := f.RuleFromJSON(rj, f.currency)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// ParseRule parses one JSON rule.
func (f *SalaryFactory) ParseRule(jsonStr string) (payroll.DeductionRule, error) {
	var rj RuleJSON
	if err := json.Unmarshal([]byte(jsonStr), &rj); err != nil {
		return nil, &generic.RuleError{RuleCode: "?", Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return f.RuleFromJSON(rj, f.currency)
}

// RuleFromJSON builds and validates one rule variant.
func (f *SalaryFactory) RuleFromJSON(rj RuleJSON, cur generic.Currency) (payroll.DeductionRule, error) {
	code := strings.TrimSpace(rj.Code)
	bad := func(format string, args ...any) error {
		return &generic.RuleError{RuleCode: code, Reason: fmt.Sprintf(format, args...)}
	}

	var rule payroll.DeductionRule
	switch strings.ToLower(rj.Type) {
	case string(payroll.RuleFixed):
		if rj.Amount == nil {
			return nil, bad("fixed rule requires amount")
		}
		rule = payroll.FixedRule{Code: code, Name: rj.Name, Amount: cur.FromDecimal(*rj.Amount)}

	case string(payroll.RulePercentage):
		if rj.Percent == nil {
			return nil, bad("percentage rule requires percent")
		}
		r := payroll.PercentageRule{
			Code: code, Name: rj.Name,
			Base: payroll.Base(rj.Base),
			Rate: rj.Percent.Div(hundred),
		}
		if rj.Cap != nil {
			r.Cap = cur.FromDecimal(*rj.Cap)
		}
		rule = r

	case string(payroll.RuleSlab):
		r := payroll.SlabRule{Code: code, Name: rj.Name, Base: payroll.Base(rj.Base), Progressive: rj.Progressive}
		for _, sj := range rj.Slabs {
			var s payroll.Slab
			if sj.UpTo != nil {
				s.UpTo = cur.FromDecimal(*sj.UpTo)
				if s.UpTo == 0 {
					return nil, bad("slab up_to must be positive; omit it for the open-ended slab")
				}
			}
			if sj.Percent != nil {
				s.Rate = sj.Percent.Div(hundred)
			}
			if sj.Flat != nil {
				s.Flat = cur.FromDecimal(*sj.Flat)
			}
			r.Slabs = append(r.Slabs, s)
		}
		rule = r

	default:
		return nil, bad("unknown rule type %q", rj.Type)
	}

	if err := payroll.ValidateRule(rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// =============================================================================
// TO JSON
// =============================================================================

// ToJSON converts a SalaryStructure back to StructureJSON.
func (f *SalaryFactory) ToJSON(st *payroll.SalaryStructure) StructureJSON {
	exp := st.Currency.Exponent
	sj := StructureJSON{
		EmployeeID:       string(st.EmployeeID),
		Currency:         st.Currency.Code,
		CurrencyExponent: &exp,
	}
	if !st.EffectiveFrom.IsZero() {
		sj.EffectiveFrom = st.EffectiveFrom.String()
	}
	for _, e := range st.Earnings {
		sj.Earnings = append(sj.Earnings, EarningJSON{
			Code:      e.Code,
			Name:      e.Name,
			Amount:    st.Currency.ToDecimal(e.Amount),
			Treatment: e.Treatment.String(),
		})
	}
	for _, r := range st.Deductions {
		sj.Deductions = append(sj.Deductions, f.RuleToJSON(r, st.Currency))
	}
	return sj
}

// RuleToJSON converts a rule variant back to RuleJSON.
func (f *SalaryFactory) RuleToJSON(rule payroll.DeductionRule, cur generic.Currency) RuleJSON {
	display := func(m generic.Money) *decimal.Decimal {
		d := cur.ToDecimal(m)
		return &d
	}
	percent := func(rate decimal.Decimal) *decimal.Decimal {
		p := rate.Mul(hundred)
		return &p
	}

	rj := RuleJSON{Type: string(rule.Kind()), Code: rule.RuleCode(), Name: rule.RuleName()}
	switch r := rule.(type) {
	case payroll.FixedRule:
		rj.Amount = display(r.Amount)
	case payroll.PercentageRule:
		rj.Base = string(r.Base)
		rj.Percent = percent(r.Rate)
		if r.Cap > 0 {
			rj.Cap = display(r.Cap)
		}
	case payroll.SlabRule:
		rj.Base = string(r.Base)
		rj.Progressive = r.Progressive
		for _, s := range r.Slabs {
			var sj SlabJSON
			if s.UpTo != 0 {
				sj.UpTo = display(s.UpTo)
			}
			if !s.Rate.IsZero() {
				sj.Percent = percent(s.Rate)
			}
			if s.Flat != 0 {
				sj.Flat = display(s.Flat)
			}
			rj.Slabs = append(rj.Slabs, sj)
		}
	}
	return rj
}

// MarshalRule renders a rule as a JSON string, the form stored by the database.
func (f *SalaryFactory) MarshalRule(rule payroll.DeductionRule, cur generic.Currency) (string, error) {
	b, err := json.Marshal(f.RuleToJSON(rule, cur))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func stampEmployee(err error, emp generic.EmployeeID) error {
	if re, ok := err.(*generic.RuleError); ok && re.EmployeeID == "" {
		cp := *re
		cp.EmployeeID = emp
		return &cp
	}
	return err
}
