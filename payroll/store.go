package payroll

import (
	"context"

	"github.com/infofitsoftwaresolution/ems-system-sub003/generic"
)

// =============================================================================
// PERSISTENCE CONTRACTS
// =============================================================================

// SaveResult describes what a save did.
//
//   - A payslip whose InputDigest matches the latest revision is not written
//     again (Unchanged).
//   - Otherwise a new revision is written and the previous one, if any, is
//     marked superseded. Revisions are never merged.
type SaveResult struct {
	Revision     int    `json:"revision"`
	Unchanged    bool   `json:"unchanged"`
	SupersededID string `json:"superseded_id,omitempty"`
}

// PayslipSink receives computed payslips. SavePayslip must be atomic: the full
// record is written or nothing is.
type PayslipSink interface {
	SavePayslip(ctx context.Context, p *Payslip) (SaveResult, error)
}

// PayslipStore is a PayslipSink that can also be read back.
type PayslipStore interface {
	PayslipSink

	// GetPayslip returns the latest revision, or generic.ErrPayslipNotFound.
	GetPayslip(ctx context.Context, emp generic.EmployeeID, period generic.PayPeriod) (*Payslip, error)

	// ListRevisions returns every revision, oldest first.
	ListRevisions(ctx context.Context, emp generic.EmployeeID, period generic.PayPeriod) ([]*Payslip, error)

	// ListPayslips returns the latest revision of each period, newest period first.
	ListPayslips(ctx context.Context, emp generic.EmployeeID) ([]*Payslip, error)
}
