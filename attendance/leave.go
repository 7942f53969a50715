package attendance

import (
	"fmt"

	"github.com/infofitsoftwaresolution/ems-system-sub003/generic"
)

// OverlappingLeaveError is returned when two approved leaves of the same
// employee cover a common date.
type OverlappingLeaveError struct {
	EmployeeID    generic.EmployeeID
	LeaveID       string
	ConflictingID string
	Date          generic.TimePoint
}

func (e *OverlappingLeaveError) Error() string {
	return fmt.Sprintf("approved leave %s for %s overlaps approved leave %s on %s",
		e.LeaveID, e.EmployeeID, e.ConflictingID, e.Date)
}

func (e *OverlappingLeaveError) Unwrap() error {
	return generic.ErrOverlappingLeave
}

// ValidateLeaves checks that approved leaves of each employee do not overlap.
// Pending and rejected leaves are ignored. The first conflict in (Start, ID)
// order is reported.
func ValidateLeaves(leaves []LeaveRecord) error {
	byEmployee := make(map[generic.EmployeeID][]LeaveRecord)
	var order []generic.EmployeeID
	for _, l := range leaves {
		if !l.IsApproved() {
			continue
		}
		if err := l.Span().Validate(); err != nil {
			return fmt.Errorf("leave %s: %w", l.ID, err)
		}
		if _, seen := byEmployee[l.EmployeeID]; !seen {
			order = append(order, l.EmployeeID)
		}
		byEmployee[l.EmployeeID] = append(byEmployee[l.EmployeeID], l)
	}

	for _, emp := range order {
		list := byEmployee[emp]
		sortLeaves(list)
		// Sorted by start, so tracking the furthest end seen is enough.
		furthest := list[0]
		for _, l := range list[1:] {
			if !l.Start.After(furthest.End) {
				return &OverlappingLeaveError{
					EmployeeID:    emp,
					LeaveID:       l.ID,
					ConflictingID: furthest.ID,
					Date:          l.Start,
				}
			}
			if l.End.After(furthest.End) {
				furthest = l
			}
		}
	}
	return nil
}

// CheckApproval validates that approving candidate would keep the employee's
// approved leave free of overlaps.
func CheckApproval(candidate LeaveRecord, existing []LeaveRecord) error {
	if err := candidate.Validate(); err != nil {
		return err
	}
	candidate.Status = LeaveApproved
	all := []LeaveRecord{candidate}
	for _, l := range existing {
		if l.ID == candidate.ID || l.EmployeeID != candidate.EmployeeID {
			continue
		}
		all = append(all, l)
	}
	return ValidateLeaves(all)
}
