package generic

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// PERIOD - Inclusive range of civil dates
// =============================================================================

// Period is the inclusive date range [Start, End] an attendance summary or
// payslip covers.
type Period struct {
	Start TimePoint `json:"start"`
	End   TimePoint `json:"end"`
}

// Validate rejects periods whose end precedes their start.
func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidPeriod)
	}
	if p.End.Before(p.Start) {
		return fmt.Errorf("%w: %s", ErrInvalidPeriod, p)
	}
	return nil
}

// Contains returns true if the date is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Days returns all days in the period in ascending order.
func (p Period) Days() []TimePoint {
	var days []TimePoint
	for current := DateOf(p.Start.normalize()); current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// Len returns the number of calendar dates in the period.
func (p Period) Len() int {
	if p.End.Before(p.Start) {
		return 0
	}
	return DaysBetween(p.Start, p.End) + 1
}

// ClampTo ends the period at asOf when asOf falls inside it. A zero asOf or
// one outside the period leaves it unchanged.
func (p Period) ClampTo(asOf TimePoint) Period {
	if asOf.IsZero() || !p.Contains(asOf) {
		return p
	}
	return Period{Start: p.Start, End: asOf}
}

// Overlaps reports whether two periods share at least one date.
func (p Period) Overlaps(o Period) bool {
	return !p.End.Before(o.Start) && !o.End.Before(p.Start)
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// PAY PERIOD - A calendar month
// =============================================================================

// PayPeriod identifies a monthly payroll cycle.
type PayPeriod struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// NewPayPeriod validates the year and month.
func NewPayPeriod(year, month int) (PayPeriod, error) {
	if month < 1 || month > 12 {
		return PayPeriod{}, fmt.Errorf("%w: month %d", ErrInvalidPeriod, month)
	}
	if year < 1900 || year > 9999 {
		return PayPeriod{}, fmt.Errorf("%w: year %d", ErrInvalidPeriod, year)
	}
	return PayPeriod{Year: year, Month: time.Month(month)}, nil
}

// ParsePayPeriod parses YYYY-MM.
func ParsePayPeriod(s string) (PayPeriod, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return PayPeriod{}, fmt.Errorf("%w: %q is not YYYY-MM", ErrInvalidPeriod, s)
	}
	return NewPayPeriod(t.Year(), int(t.Month()))
}

// PayPeriodOf returns the pay period containing the date.
func PayPeriodOf(d TimePoint) PayPeriod {
	return PayPeriod{Year: d.Year(), Month: d.Month()}
}

// Period returns the full calendar month.
func (pp PayPeriod) Period() Period {
	return Period{Start: StartOfMonth(pp.Year, pp.Month), End: EndOfMonth(pp.Year, pp.Month)}
}

// Previous returns the month before.
func (pp PayPeriod) Previous() PayPeriod {
	return PayPeriodOf(StartOfMonth(pp.Year, pp.Month).AddMonths(-1))
}

func (pp PayPeriod) String() string {
	return fmt.Sprintf("%04d-%02d", pp.Year, int(pp.Month))
}
