package payroll_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infofitsoftwaresolution/ems-system-sub003/attendance"
	"github.com/infofitsoftwaresolution/ems-system-sub003/generic"
	"github.com/infofitsoftwaresolution/ems-system-sub003/payroll"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var april2024 = generic.PayPeriod{Year: 2024, Month: time.April}

func rupees(s string) generic.Money {
	m, err := generic.INR.Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// standardStructure is basic 30000 (prorated) + transport 2000 (fixed).
func standardStructure(emp string) *payroll.SalaryStructure {
	return &payroll.SalaryStructure{
		EmployeeID: generic.EmployeeID(emp),
		Currency:   generic.INR,
		Earnings: []payroll.EarningComponent{
			{Code: "basic", Name: "Basic", Amount: rupees("30000"), Treatment: payroll.TreatmentProrated},
			{Code: "transport", Name: "Transport", Amount: rupees("2000"), Treatment: payroll.TreatmentFixed},
		},
	}
}

// summary builds an April 2024 summary (30 calendar days).
func summary(emp string, working, present, unexcused int, leave map[attendance.LeaveType]int) attendance.Summary {
	if leave == nil {
		leave = map[attendance.LeaveType]int{}
	}
	return attendance.Summary{
		EmployeeID:           generic.EmployeeID(emp),
		Period:               april2024.Period(),
		PeriodCalendarDays:   30,
		TotalDays:            30,
		WorkingDays:          working,
		PresentDays:          present,
		ApprovedLeaveDays:    leave,
		UnexcusedAbsenceDays: unexcused,
	}
}

func frac(num, den int64) decimal.Decimal {
	return decimal.NewFromInt(num).Div(decimal.NewFromInt(den))
}

// =============================================================================
// PAYABLE FRACTION TESTS
// =============================================================================

func TestProrate_PaidLeaveDoesNotReducePay(t *testing.T) {
	// GIVEN: 22 working days, 20 present, 2 approved paid leave
	// THEN: payableFraction = 1 and no leave deduction

	s := summary("emp-1", 22, 20, 0, map[attendance.LeaveType]int{attendance.LeavePaid: 2})
	pr, err := payroll.DefaultProrationPolicy().Prorate(s, standardStructure("emp-1"))
	require.NoError(t, err)

	assert.True(t, pr.PayableFraction.Equal(decimal.NewFromInt(1)), pr.PayableFraction.String())
	assert.Equal(t, generic.Money(0), pr.LeaveDeduction)
}

func TestProrate_UnexcusedAbsenceReducesFraction(t *testing.T) {
	// GIVEN: One of the 20 present days replaced by an absence
	// THEN: payableFraction = 21/22

	s := summary("emp-1", 22, 19, 1, map[attendance.LeaveType]int{attendance.LeavePaid: 2})
	pr, err := payroll.DefaultProrationPolicy().Prorate(s, standardStructure("emp-1"))
	require.NoError(t, err)

	assert.True(t, pr.PayableFraction.Equal(frac(21, 22)), pr.PayableFraction.String())
	assert.Equal(t, 1, pr.DeductibleDays)
}

func TestProrate_ZeroWorkingDays(t *testing.T) {
	// GIVEN: A period with no working days
	// THEN: payableFraction = 1, a warning, no crash

	s := summary("emp-1", 0, 0, 0, nil)
	pr, err := payroll.DefaultProrationPolicy().Prorate(s, standardStructure("emp-1"))
	require.NoError(t, err)

	assert.True(t, pr.PayableFraction.Equal(decimal.NewFromInt(1)))
	assert.True(t, generic.HasWarning(pr.Warnings, generic.WarnZeroWorkingDays))
	assert.Equal(t, generic.Money(0), pr.LeaveDeduction)
}

func TestProrate_FractionClampedAtZero(t *testing.T) {
	// GIVEN: Inconsistent counts with more deductible days than working days
	s := summary("emp-1", 2, 0, 3, nil)
	pr, err := payroll.DefaultProrationPolicy().Prorate(s, standardStructure("emp-1"))
	require.NoError(t, err)
	assert.True(t, pr.PayableFraction.Equal(decimal.Zero))
	// The calendar-day rate still applies: 3 x 1000.
	assert.Equal(t, rupees("3000"), pr.LeaveDeduction)
}

// =============================================================================
// LEAVE DEDUCTION TESTS
// =============================================================================

func TestProrate_CalendarDayRate(t *testing.T) {
	// GIVEN: basic 30000 prorated, transport 2000 fixed, 1 unpaid leave day, 30-day month
	// THEN: leave deduction = 30000 / 30 = 1000, transport untouched

	s := summary("emp-1", 22, 21, 0, map[attendance.LeaveType]int{attendance.LeaveUnpaid: 1})
	pr, err := payroll.DefaultProrationPolicy().Prorate(s, standardStructure("emp-1"))
	require.NoError(t, err)

	assert.Equal(t, rupees("1000"), pr.LeaveDeduction)
	require.Len(t, pr.Adjustments, 2)
	assert.Equal(t, rupees("1000"), pr.Adjustments[0].Deduction)
	assert.Equal(t, rupees("29000"), pr.Adjustments[0].Payable)
	assert.Equal(t, generic.Money(0), pr.Adjustments[1].Deduction)
	assert.Equal(t, rupees("2000"), pr.Adjustments[1].Payable)
}

func TestProrate_ShortMonthUsesItsOwnCalendarDays(t *testing.T) {
	// GIVEN: February 2023 (28 days), 1 unexcused day
	// THEN: 30000 / 28 = 1071.428... rounds to 1071.43

	s := summary("emp-1", 20, 19, 1, nil)
	s.PeriodCalendarDays = 28
	s.TotalDays = 28
	pr, err := payroll.DefaultProrationPolicy().Prorate(s, standardStructure("emp-1"))
	require.NoError(t, err)
	assert.Equal(t, rupees("1071.43"), pr.LeaveDeduction)
}

func TestProrate_CustomUnpaidLeaveTypes(t *testing.T) {
	// GIVEN: Sick leave configured as unpaid
	policy := payroll.ProrationPolicy{
		Basis:            payroll.BasisCalendarDays,
		UnpaidLeaveTypes: []attendance.LeaveType{attendance.LeaveSick, attendance.LeaveUnpaid, attendance.LeaveSick},
	}
	s := summary("emp-1", 22, 19, 0, map[attendance.LeaveType]int{
		attendance.LeaveSick: 2, attendance.LeaveUnpaid: 1,
	})

	pr, err := policy.Prorate(s, standardStructure("emp-1"))
	require.NoError(t, err)
	assert.Equal(t, 3, pr.UnpaidLeaveDays)
	assert.Equal(t, rupees("3000"), pr.LeaveDeduction)
}

func TestProrate_WorkingDaysBasis(t *testing.T) {
	// GIVEN: Working-days basis, 1 unexcused of 22
	// THEN: basic pays 30000 x 21/22, the rest is deducted

	policy := payroll.ProrationPolicy{Basis: payroll.BasisWorkingDays}
	s := summary("emp-1", 22, 21, 1, nil)

	pr, err := policy.Prorate(s, standardStructure("emp-1"))
	require.NoError(t, err)

	assert.Equal(t, generic.Money(136364), pr.LeaveDeduction)
	assert.Equal(t, generic.Money(3000000-136364), pr.Adjustments[0].Payable)
}

// =============================================================================
// CONFIGURATION TESTS
// =============================================================================

func TestProrate_UnknownTreatmentIsConfigurationError(t *testing.T) {
	st := standardStructure("emp-1")
	st.Earnings[1].Treatment = 0

	_, err := payroll.DefaultProrationPolicy().Prorate(summary("emp-1", 22, 22, 0, nil), st)
	var cfgErr *generic.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "earnings.transport", cfgErr.Field)
}

func TestProrate_InvalidBasis(t *testing.T) {
	policy := payroll.ProrationPolicy{Basis: "hourly"}
	_, err := policy.Prorate(summary("emp-1", 22, 22, 0, nil), standardStructure("emp-1"))
	assert.ErrorIs(t, err, generic.ErrConfiguration)
}

func TestProrate_MissingStructure(t *testing.T) {
	_, err := payroll.DefaultProrationPolicy().Prorate(summary("emp-1", 22, 22, 0, nil), nil)
	assert.ErrorIs(t, err, generic.ErrConfiguration)
}
