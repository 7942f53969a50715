package payroll_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infofitsoftwaresolution/ems-system-sub003/generic"
	"github.com/infofitsoftwaresolution/ems-system-sub003/payroll"
)

func rate(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestEvaluateRule_Variants(t *testing.T) {
	bases := payroll.Bases{
		payroll.BaseGross:       rupees("31000"),
		payroll.BaseContractual: rupees("32000"),
		"basic":                 rupees("29000"),
	}

	tests := []struct {
		name string
		rule payroll.DeductionRule
		want generic.Money
	}{
		{
			name: "fixed",
			rule: payroll.FixedRule{Code: "canteen", Amount: rupees("500")},
			want: rupees("500"),
		},
		{
			name: "percentage of gross",
			rule: payroll.PercentageRule{Code: "tds", Base: payroll.BaseGross, Rate: rate("0.1")},
			want: rupees("3100"),
		},
		{
			name: "percentage of contractual",
			rule: payroll.PercentageRule{Code: "bonus_recovery", Base: payroll.BaseContractual, Rate: rate("0.1")},
			want: rupees("3200"),
		},
		{
			name: "percentage of basic with cap",
			rule: payroll.PercentageRule{Code: "pf", Base: "basic", Rate: rate("0.12"), Cap: rupees("1800")},
			want: rupees("1800"),
		},
		{
			name: "percentage under cap",
			rule: payroll.PercentageRule{Code: "pf", Base: "basic", Rate: rate("0.05"), Cap: rupees("1800")},
			want: rupees("1450"),
		},
		{
			name: "bracket slab picks the containing slab",
			rule: payroll.SlabRule{Code: "pt", Base: payroll.BaseGross, Slabs: []payroll.Slab{
				{UpTo: rupees("15000"), Rate: decimal.Zero},
				{UpTo: rupees("20000"), Flat: rupees("150")},
				{UpTo: 0, Flat: rupees("200")},
			}},
			want: rupees("200"),
		},
		{
			name: "progressive slab taxes each band",
			rule: payroll.SlabRule{Code: "it", Base: payroll.BaseGross, Progressive: true, Slabs: []payroll.Slab{
				{UpTo: rupees("10000"), Rate: decimal.Zero},
				{UpTo: rupees("25000"), Rate: rate("0.05")},
				{UpTo: 0, Rate: rate("0.2")},
			}},
			// 15000 x 5% + 6000 x 20%
			want: rupees("1950"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := payroll.EvaluateRule(tt.rule, bases)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateRule_RoundsHalfEven(t *testing.T) {
	// GIVEN: 50% of 5 and 7 minor units
	// THEN: 2.5 rounds to 2 and 3.5 rounds to 4

	rule := payroll.PercentageRule{Code: "half", Base: payroll.BaseGross, Rate: rate("0.5")}

	got, err := payroll.EvaluateRule(rule, payroll.Bases{payroll.BaseGross: 5})
	require.NoError(t, err)
	assert.Equal(t, generic.Money(2), got)

	got, err = payroll.EvaluateRule(rule, payroll.Bases{payroll.BaseGross: 7})
	require.NoError(t, err)
	assert.Equal(t, generic.Money(4), got)
}

func TestEvaluateRule_ProgressiveBelowFirstBand(t *testing.T) {
	rule := payroll.SlabRule{Code: "it", Base: payroll.BaseGross, Progressive: true, Slabs: []payroll.Slab{
		{UpTo: rupees("10000"), Rate: decimal.Zero},
		{UpTo: 0, Rate: rate("0.1")},
	}}
	got, err := payroll.EvaluateRule(rule, payroll.Bases{payroll.BaseGross: rupees("9000")})
	require.NoError(t, err)
	assert.Equal(t, generic.Money(0), got)
}

func TestEvaluateRule_Errors(t *testing.T) {
	bases := payroll.Bases{payroll.BaseGross: rupees("32000")}

	tests := []struct {
		name string
		rule payroll.DeductionRule
	}{
		{"nil rule", nil},
		{"undefined base", payroll.PercentageRule{Code: "pf", Base: "basic", Rate: rate("0.12")}},
		{"missing code", payroll.FixedRule{Amount: 1}},
		{"reserved code", payroll.FixedRule{Code: payroll.LeaveDeductionCode, Amount: 1}},
		{"negative fixed", payroll.FixedRule{Code: "x", Amount: -1}},
		{"rate above one", payroll.PercentageRule{Code: "x", Base: payroll.BaseGross, Rate: rate("12")}},
		{"no slabs", payroll.SlabRule{Code: "x", Base: payroll.BaseGross}},
		{"bounded last slab", payroll.SlabRule{Code: "x", Base: payroll.BaseGross, Slabs: []payroll.Slab{
			{UpTo: rupees("1000"), Rate: rate("0.1")},
		}}},
		{"unbounded middle slab", payroll.SlabRule{Code: "x", Base: payroll.BaseGross, Slabs: []payroll.Slab{
			{UpTo: 0, Rate: rate("0.1")}, {UpTo: 0, Rate: rate("0.2")},
		}}},
		{"decreasing bounds", payroll.SlabRule{Code: "x", Base: payroll.BaseGross, Slabs: []payroll.Slab{
			{UpTo: rupees("2000")}, {UpTo: rupees("1000")}, {UpTo: 0},
		}}},
		{"flat in progressive", payroll.SlabRule{Code: "x", Base: payroll.BaseGross, Progressive: true, Slabs: []payroll.Slab{
			{UpTo: 0, Flat: rupees("10")},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := payroll.EvaluateRule(tt.rule, bases)
			require.Error(t, err)
			var ruleErr *generic.RuleError
			assert.ErrorAs(t, err, &ruleErr)
			assert.ErrorIs(t, err, generic.ErrRule)
		})
	}
}
