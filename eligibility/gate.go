/*
Package eligibility decides which employee-facing actions are allowed.

PURPOSE:
  Identity verification moves through a small review workflow; independently,
  an employee is active or inactive. Attendance, leave and payslip actions
  require an approved, active employee. This package is a pure lookup: it
  owns no persistence and is consulted by the HTTP layer before it calls the
  attendance or payroll engines. Administrative recomputation bypasses it.

STATES:
  not_submitted --submit--> pending --approve--> approved
                                    --reject---> rejected --resubmit--> pending
*/
package eligibility

import (
	"fmt"
	"strings"

	"github.com/infofitsoftwaresolution/ems-system-sub003/generic"
)

// =============================================================================
// VERIFICATION STATUS
// =============================================================================

type Status string

const (
	NotSubmitted Status = "not_submitted"
	Pending      Status = "pending"
	Approved     Status = "approved"
	Rejected     Status = "rejected"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case NotSubmitted, Pending, Approved, Rejected:
		return st, nil
	case "":
		return NotSubmitted, nil
	}
	return "", fmt.Errorf("unknown verification status %q", s)
}

type Event string

const (
	EventSubmit   Event = "submit"
	EventApprove  Event = "approve"
	EventReject   Event = "reject"
	EventResubmit Event = "resubmit"
)

// InvalidTransitionError is returned when an event does not apply to a status.
type InvalidTransitionError struct {
	From  Status
	Event Event
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s verification in status %s", e.Event, e.From)
}

// transitions is the whole workflow.
var transitions = map[Status]map[Event]Status{
	NotSubmitted: {EventSubmit: Pending},
	Pending:      {EventApprove: Approved, EventReject: Rejected},
	Rejected:     {EventResubmit: Pending, EventSubmit: Pending},
}

// Transition applies a review event.
func Transition(from Status, ev Event) (Status, error) {
	if to, ok := transitions[from][ev]; ok {
		return to, nil
	}
	return from, &InvalidTransitionError{From: from, Event: ev}
}

// =============================================================================
// GATE
// =============================================================================

// State is what the gate needs to know about an employee.
type State struct {
	Verification Status `json:"verification"`
	Active       bool   `json:"active"`
}

type Action string

const (
	RecordAttendance   Action = "record_attendance"
	ApplyLeave         Action = "apply_leave"
	GeneratePayslip    Action = "generate_payslip"
	ViewPayslip        Action = "view_payslip"
	SubmitVerification Action = "submit_verification"
)

// Decision is the gate's answer. Reason is empty when allowed.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func allow() Decision             { return Decision{Allowed: true} }
func deny(reason string) Decision { return Decision{Reason: reason} }

// Err converts a denial into an error wrapping generic.ErrNotEligible.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return fmt.Errorf("%w: %s", generic.ErrNotEligible, d.Reason)
}

// CanPerform decides whether the action is allowed in the given state.
// Unknown actions are denied.
func CanPerform(action Action, st State) Decision {
	if st.Verification == "" {
		st.Verification = NotSubmitted
	}
	switch action {
	case RecordAttendance, ApplyLeave, GeneratePayslip, ViewPayslip:
		if !st.Active {
			return deny("employee is inactive")
		}
		if st.Verification != Approved {
			return deny(fmt.Sprintf("identity verification is %s, approval required", st.Verification))
		}
		return allow()

	case SubmitVerification:
		if !st.Active {
			return deny("employee is inactive")
		}
		if _, ok := transitions[st.Verification][EventSubmit]; !ok {
			return deny(fmt.Sprintf("verification already %s", st.Verification))
		}
		return allow()

	default:
		return deny(fmt.Sprintf("unknown action %q", action))
	}
}
