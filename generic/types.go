/*
Package generic provides the value types shared by the attendance and payroll engines.

PURPOSE:
  Everything in here is domain-agnostic plumbing: identifiers, money in integer
  minor units, civil dates, pay periods, working-day calendars and the error
  taxonomy. The attendance and payroll packages build on these types and never
  on each other's internals.

KEY CONCEPTS IN THIS FILE (types.go):
  - EmployeeID: Type-safe identifier
  - Currency:   ISO code plus minor-unit exponent
  - Money:      Amount in integer minor units (paise, cents)

DESIGN PRINCIPLES:
  1. Precision: Money never touches float64. Rates and fractions use decimal.Decimal
     and are rounded half-even back into minor units exactly once per line.
  2. Determinism: No function in this package reads the wall clock.
  3. Type Safety: Money and EmployeeID are distinct types.

USAGE:
  inr := generic.Currency{Code: "INR", Exponent: 2}
  basic, _ := inr.Parse("30000")        // 3000000 minor units
  fmt.Println(inr.Format(basic))        // "30000.00"

SEE ALSO:
  - time.go:   TimePoint and calendars
  - period.go: Period and PayPeriod
  - errors.go: ConfigurationError, RuleError, DataQualityWarning
*/
package generic

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string

// =============================================================================
// MONEY - Integer minor currency units
// =============================================================================

// Money is an amount in the currency's minor unit.
type Money int64

func (m Money) Add(o Money) Money        { return m + o }
func (m Money) Sub(o Money) Money        { return m - o }
func (m Money) IsNegative() bool         { return m < 0 }
func (m Money) IsZero() bool             { return m == 0 }
func (m Money) Decimal() decimal.Decimal { return decimal.NewFromInt(int64(m)) }

// MulRat returns m * num / den rounded half-even to the minor unit.
// A zero denominator yields zero.
func (m Money) MulRat(num, den int64) Money {
	if den == 0 {
		return 0
	}
	v := m.Decimal().Mul(decimal.NewFromInt(num)).Div(decimal.NewFromInt(den))
	return RoundMinor(v)
}

// MulDecimal returns m * f rounded half-even to the minor unit.
func (m Money) MulDecimal(f decimal.Decimal) Money {
	return RoundMinor(m.Decimal().Mul(f))
}

// RoundMinor rounds a decimal amount of minor units half-even.
func RoundMinor(v decimal.Decimal) Money {
	return Money(v.RoundBank(0).IntPart())
}

// Sum adds up a list of amounts.
func Sum(amounts ...Money) Money {
	var total Money
	for _, a := range amounts {
		total += a
	}
	return total
}

// Currency identifies how Money converts to display units.
type Currency struct {
	Code     string `json:"code"`
	Exponent int32  `json:"exponent"` // number of minor-unit digits, 2 for INR/USD, 0 for JPY
}

var (
	INR = Currency{Code: "INR", Exponent: 2}
	USD = Currency{Code: "USD", Exponent: 2}
)

// Validate checks that the currency can be used for conversion.
func (c Currency) Validate() error {
	if c.Code == "" {
		return fmt.Errorf("currency code is required")
	}
	if c.Exponent < 0 || c.Exponent > 4 {
		return fmt.Errorf("currency %s: exponent %d out of range", c.Code, c.Exponent)
	}
	return nil
}

// FromDecimal converts a display amount (e.g. 30000.50) into minor units,
// rounding half-even when the input carries more digits than the currency.
func (c Currency) FromDecimal(d decimal.Decimal) Money {
	return RoundMinor(d.Shift(c.Exponent))
}

// Parse converts a display string into minor units.
func (c Currency) Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return c.FromDecimal(d), nil
}

// ToDecimal converts minor units into display units.
func (c Currency) ToDecimal(m Money) decimal.Decimal {
	return m.Decimal().Shift(-c.Exponent)
}

// Format renders minor units with exactly Exponent fractional digits.
func (c Currency) Format(m Money) string {
	return c.ToDecimal(m).StringFixed(c.Exponent)
}
