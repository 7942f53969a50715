package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infofitsoftwaresolution/ems-system-sub003/generic"
	"github.com/infofitsoftwaresolution/ems-system-sub003/payroll"
	"github.com/infofitsoftwaresolution/ems-system-sub003/payroll/store"
)

func slip(emp string, month time.Month, digest string) *payroll.Payslip {
	period := generic.PayPeriod{Year: 2024, Month: month}
	return &payroll.Payslip{
		ID:          payroll.PayslipID(generic.EmployeeID(emp), period, digest),
		EmployeeID:  generic.EmployeeID(emp),
		Period:      period,
		InputDigest: digest,
		NetPay:      100,
	}
}

func TestMemory_SupersedesOnChangedDigest(t *testing.T) {
	// GIVEN: A payslip saved for April
	// WHEN: Saving the same digest again, then a new digest
	// THEN: The repeat is a no-op, the change becomes revision 2

	ctx := context.Background()
	m := store.NewMemory()

	first := slip("emp-1", time.April, "aaa")
	res, err := m.SavePayslip(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, payroll.SaveResult{Revision: 1}, res)

	res, err = m.SavePayslip(ctx, slip("emp-1", time.April, "aaa"))
	require.NoError(t, err)
	assert.True(t, res.Unchanged)
	assert.Equal(t, 1, res.Revision)

	res, err = m.SavePayslip(ctx, slip("emp-1", time.April, "bbb"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Revision)
	assert.Equal(t, first.ID, res.SupersededID)

	latest, err := m.GetPayslip(ctx, "emp-1", generic.PayPeriod{Year: 2024, Month: time.April})
	require.NoError(t, err)
	assert.Equal(t, "bbb", latest.InputDigest)
	assert.Equal(t, 2, latest.Revision)

	revs, err := m.ListRevisions(ctx, "emp-1", generic.PayPeriod{Year: 2024, Month: time.April})
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, "aaa", revs[0].InputDigest)
}

func TestMemory_ListPayslipsNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	for _, month := range []time.Month{time.February, time.April, time.March} {
		_, err := m.SavePayslip(ctx, slip("emp-1", month, "d"))
		require.NoError(t, err)
	}
	_, err := m.SavePayslip(ctx, slip("emp-2", time.May, "d"))
	require.NoError(t, err)

	list, err := m.ListPayslips(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, time.April, list[0].Period.Month)
	assert.Equal(t, time.February, list[2].Period.Month)
}

func TestMemory_NotFound(t *testing.T) {
	_, err := store.NewMemory().GetPayslip(context.Background(), "emp-x", generic.PayPeriod{Year: 2024, Month: time.January})
	assert.ErrorIs(t, err, generic.ErrPayslipNotFound)
	assert.True(t, generic.IsNotFound(err))
}
