package sqlite

import (
	"context"
	"fmt"

	"github.com/infofitsoftwaresolution/ems-system-sub003/factory"
	"github.com/infofitsoftwaresolution/ems-system-sub003/generic"
	"github.com/infofitsoftwaresolution/ems-system-sub003/payroll"
)

// PayrollSource loads payroll inputs from the store, decoding stored JSON
// configuration through the salary factory.
type PayrollSource struct {
	Store   *Store
	Factory *factory.SalaryFactory
}

var _ payroll.InputSource = PayrollSource{}

// LoadEmployeeInput returns the structure in force at the end of the period,
// the attendance inside it and the leaves overlapping it.
func (ps PayrollSource) LoadEmployeeInput(ctx context.Context, emp generic.EmployeeID, period generic.Period) (payroll.EmployeeInput, error) {
	e, err := ps.Store.GetEmployee(ctx, string(emp))
	if err != nil {
		return payroll.EmployeeInput{}, err
	}
	if e == nil {
		return payroll.EmployeeInput{}, fmt.Errorf("%s: %w", emp, generic.ErrEmployeeNotFound)
	}

	var in payroll.EmployeeInput

	rec, err := ps.Store.GetSalaryStructure(ctx, string(emp), period.End)
	if err != nil {
		return in, err
	}
	if rec != nil {
		st, err := ps.Factory.ParseStructure(rec.ConfigJSON)
		if err != nil {
			return in, err
		}
		if st.EffectiveFrom.IsZero() {
			st.EffectiveFrom = rec.EffectiveFrom
		}
		in.Structure = st
	}

	if in.Attendance, err = ps.Store.ListAttendance(ctx, emp, period); err != nil {
		return in, err
	}
	if in.Leaves, err = ps.Store.ListLeaves(ctx, emp, period); err != nil {
		return in, err
	}
	return in, nil
}

// LoadRules decodes the stored company-wide deduction rules in evaluation order.
func (ps PayrollSource) LoadRules(ctx context.Context) ([]payroll.DeductionRule, error) {
	recs, err := ps.Store.ListDeductionRules(ctx)
	if err != nil {
		return nil, err
	}
	rules := make([]payroll.DeductionRule, 0, len(recs))
	for _, r := range recs {
		rule, err := ps.Factory.ParseRule(r.ConfigJSON)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
