package factory

import (
	"encoding/json"
)

// =============================================================================
// PRESET RULES
// =============================================================================

// ProvidentFundRuleJSON returns a percentage rule on the payable basic pay.
func ProvidentFundRuleJSON(percent, capAmount string) string {
	rj := map[string]interface{}{
		"type":    "percentage",
		"code":    "pf",
		"name":    "Provident Fund",
		"base":    "basic",
		"percent": percent,
	}
	if capAmount != "" {
		rj["cap"] = capAmount
	}
	return marshal(rj)
}

// ProfessionalTaxRuleJSON returns a bracket rule on gross earnings.
// Monthly gross up to 15000 pays nothing, up to 20000 pays 150, above that 200.
func ProfessionalTaxRuleJSON() string {
	return marshal(map[string]interface{}{
		"type": "slab",
		"code": "pt",
		"name": "Professional Tax",
		"base": "gross",
		"slabs": []map[string]interface{}{
			{"up_to": "15000"},
			{"up_to": "20000", "flat": "150"},
			{"flat": "200"},
		},
	})
}

// IncomeTaxRuleJSON returns a progressive monthly withholding rule on gross earnings.
func IncomeTaxRuleJSON() string {
	return marshal(map[string]interface{}{
		"type":        "slab",
		"code":        "tds",
		"name":        "Income Tax (TDS)",
		"base":        "gross",
		"progressive": true,
		"slabs": []map[string]interface{}{
			{"up_to": "25000"},
			{"up_to": "50000", "percent": "5"},
			{"up_to": "100000", "percent": "20"},
			{"percent": "30"},
		},
	})
}

// StatutoryRulesJSON returns the company-wide rule set as a JSON array:
// professional tax and income tax.
func StatutoryRulesJSON() string {
	return "[" + ProfessionalTaxRuleJSON() + "," + IncomeTaxRuleJSON() + "]"
}

// =============================================================================
// PRESET STRUCTURES
// =============================================================================

// StandardStructureJSON returns a two-component structure: a prorated basic
// and a fixed allowance, with provident fund capped at 1800.
func StandardStructureJSON(employeeID, basic, allowance string) string {
	var pf map[string]interface{}
	_ = json.Unmarshal([]byte(ProvidentFundRuleJSON("12", "1800")), &pf)

	return marshal(map[string]interface{}{
		"employee_id": employeeID,
		"currency":    "INR",
		"earnings": []map[string]interface{}{
			{"code": "basic", "name": "Basic", "amount": basic, "treatment": "prorated"},
			{"code": "allowance", "name": "Fixed Allowance", "amount": allowance, "treatment": "fixed"},
		},
		"deductions": []interface{}{pf},
	})
}

func marshal(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
