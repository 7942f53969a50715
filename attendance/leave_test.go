package attendance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infofitsoftwaresolution/ems-system-sub003/attendance"
	"github.com/infofitsoftwaresolution/ems-system-sub003/generic"
)

func TestValidateLeaves_NoOverlap(t *testing.T) {
	leaves := []attendance.LeaveRecord{
		leave("lv-1", "emp-1", 1, 3, attendance.LeavePaid, attendance.LeaveApproved),
		leave("lv-2", "emp-1", 4, 5, attendance.LeaveSick, attendance.LeaveApproved),
		leave("lv-3", "emp-2", 1, 5, attendance.LeavePaid, attendance.LeaveApproved),
	}
	assert.NoError(t, attendance.ValidateLeaves(leaves))
}

func TestValidateLeaves_ApprovedOverlapRejected(t *testing.T) {
	// GIVEN: Two approved leaves sharing April 3
	// THEN: OverlappingLeaveError naming both

	leaves := []attendance.LeaveRecord{
		leave("lv-2", "emp-1", 3, 5, attendance.LeaveSick, attendance.LeaveApproved),
		leave("lv-1", "emp-1", 1, 3, attendance.LeavePaid, attendance.LeaveApproved),
	}

	err := attendance.ValidateLeaves(leaves)
	require.Error(t, err)

	var overlap *attendance.OverlappingLeaveError
	require.ErrorAs(t, err, &overlap)
	assert.Equal(t, "lv-2", overlap.LeaveID)
	assert.Equal(t, "lv-1", overlap.ConflictingID)
	assert.Equal(t, day(3), overlap.Date)
	assert.ErrorIs(t, err, generic.ErrOverlappingLeave)
}

func TestValidateLeaves_NestedLeaveDetected(t *testing.T) {
	// GIVEN: A long leave followed by a short one inside it and a later one
	leaves := []attendance.LeaveRecord{
		leave("lv-1", "emp-1", 1, 20, attendance.LeavePaid, attendance.LeaveApproved),
		leave("lv-2", "emp-1", 2, 3, attendance.LeavePaid, attendance.LeaveRejected),
		leave("lv-3", "emp-1", 15, 16, attendance.LeaveSick, attendance.LeaveApproved),
	}

	var overlap *attendance.OverlappingLeaveError
	require.ErrorAs(t, attendance.ValidateLeaves(leaves), &overlap)
	assert.Equal(t, "lv-3", overlap.LeaveID)
}

func TestCheckApproval(t *testing.T) {
	existing := []attendance.LeaveRecord{
		leave("lv-1", "emp-1", 1, 3, attendance.LeavePaid, attendance.LeaveApproved),
		leave("lv-2", "emp-1", 10, 12, attendance.LeavePaid, attendance.LeavePending),
	}

	// Pending leave overlapping another pending one is fine.
	candidate := leave("lv-3", "emp-1", 11, 11, attendance.LeaveSick, attendance.LeavePending)
	assert.NoError(t, attendance.CheckApproval(candidate, existing))

	clash := leave("lv-4", "emp-1", 3, 4, attendance.LeaveSick, attendance.LeavePending)
	assert.ErrorIs(t, attendance.CheckApproval(clash, existing), generic.ErrOverlappingLeave)

	// Re-approving an already approved leave doesn't conflict with itself.
	assert.NoError(t, attendance.CheckApproval(existing[0], existing))

	backwards := leave("lv-5", "emp-1", 9, 8, attendance.LeavePaid, attendance.LeavePending)
	assert.ErrorIs(t, attendance.CheckApproval(backwards, existing), generic.ErrInvalidPeriod)
}
