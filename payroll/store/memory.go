// Package store provides PayslipStore implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/infofitsoftwaresolution/ems-system-sub003/generic"
	"github.com/infofitsoftwaresolution/ems-system-sub003/payroll"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	revisions map[key][]payroll.Payslip
}

type key struct {
	EmployeeID generic.EmployeeID
	Period     generic.PayPeriod
}

func NewMemory() *Memory {
	return &Memory{revisions: make(map[key][]payroll.Payslip)}
}

var _ payroll.PayslipStore = (*Memory)(nil)

// SavePayslip appends a revision unless the latest one has the same digest.
func (m *Memory) SavePayslip(_ context.Context, p *payroll.Payslip) (payroll.SaveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{EmployeeID: p.EmployeeID, Period: p.Period}
	revs := m.revisions[k]

	if n := len(revs); n > 0 {
		latest := revs[n-1]
		if latest.InputDigest == p.InputDigest {
			p.Revision = latest.Revision
			return payroll.SaveResult{Revision: latest.Revision, Unchanged: true}, nil
		}
		p.Revision = latest.Revision + 1
		m.revisions[k] = append(revs, *p)
		return payroll.SaveResult{Revision: p.Revision, SupersededID: latest.ID}, nil
	}

	p.Revision = 1
	m.revisions[k] = append(revs, *p)
	return payroll.SaveResult{Revision: 1}, nil
}

func (m *Memory) GetPayslip(_ context.Context, emp generic.EmployeeID, period generic.PayPeriod) (*payroll.Payslip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	revs := m.revisions[key{EmployeeID: emp, Period: period}]
	if len(revs) == 0 {
		return nil, generic.ErrPayslipNotFound
	}
	p := revs[len(revs)-1]
	return &p, nil
}

func (m *Memory) ListRevisions(_ context.Context, emp generic.EmployeeID, period generic.PayPeriod) ([]*payroll.Payslip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	revs := m.revisions[key{EmployeeID: emp, Period: period}]
	out := make([]*payroll.Payslip, len(revs))
	for i := range revs {
		p := revs[i]
		out[i] = &p
	}
	return out, nil
}

func (m *Memory) ListPayslips(_ context.Context, emp generic.EmployeeID) ([]*payroll.Payslip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*payroll.Payslip
	for k, revs := range m.revisions {
		if k.EmployeeID != emp || len(revs) == 0 {
			continue
		}
		p := revs[len(revs)-1]
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Period, out[j].Period
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		return a.Month > b.Month
	})
	return out, nil
}
