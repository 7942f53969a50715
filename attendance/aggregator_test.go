package attendance_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infofitsoftwaresolution/ems-system-sub003/attendance"
	"github.com/infofitsoftwaresolution/ems-system-sub003/generic"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var ist = mustLoad("Asia/Kolkata")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// April 2024: 30 calendar days, 22 weekdays.
var april = generic.PayPeriod{Year: 2024, Month: time.April}.Period()

func weekdays() generic.WorkCalendar {
	return generic.WeeklyCalendar{WeeklyOffs: generic.DefaultWeeklyOffs}
}

func newAggregator(t *testing.T) *attendance.Aggregator {
	t.Helper()
	c, err := attendance.NewClassifier("Asia/Kolkata", 11, 0)
	require.NoError(t, err)
	return attendance.NewAggregator(c)
}

func day(d int) generic.TimePoint { return generic.NewTimePoint(2024, time.April, d) }

// checkIn builds a record for emp on April d at hh:mm Kolkata time.
func checkIn(emp string, d, hh, mm int) attendance.AttendanceRecord {
	t := time.Date(2024, time.April, d, hh, mm, 0, 0, ist)
	return attendance.AttendanceRecord{EmployeeID: generic.EmployeeID(emp), Date: day(d), CheckIn: &t}
}

func leave(id, emp string, from, to int, typ attendance.LeaveType, st attendance.LeaveStatus) attendance.LeaveRecord {
	return attendance.LeaveRecord{
		ID: id, EmployeeID: generic.EmployeeID(emp),
		Start: day(from), End: day(to), Type: typ, Status: st,
	}
}

// workingDaysOfApril lists April 2024 weekdays in order.
func workingDaysOfApril() []int {
	var out []int
	for _, d := range april.Days() {
		if weekdays().IsWorkingDay(d) {
			out = append(out, d.Day())
		}
	}
	return out
}

// =============================================================================
// COUNTING TESTS
// =============================================================================

func TestSummarize_PresentAndPaidLeave(t *testing.T) {
	// GIVEN: 22 working days, present on the first 20, approved paid leave on the last 2
	// WHEN: Summarizing April
	// THEN: 20 present, 2 paid leave, no absences, closure holds

	wd := workingDaysOfApril()
	require.Len(t, wd, 22)

	var records []attendance.AttendanceRecord
	for _, d := range wd[:20] {
		records = append(records, checkIn("emp-1", d, 9, 30))
	}
	leaves := []attendance.LeaveRecord{
		leave("lv-1", "emp-1", wd[20], wd[21], attendance.LeavePaid, attendance.LeaveApproved),
	}

	s, err := newAggregator(t).Summarize(attendance.SummaryInput{
		EmployeeID: "emp-1", Period: april, Attendance: records, Leaves: leaves, Calendar: weekdays(),
	})
	require.NoError(t, err)

	assert.Equal(t, 30, s.TotalDays)
	assert.Equal(t, 30, s.PeriodCalendarDays)
	assert.Equal(t, 22, s.WorkingDays)
	assert.Equal(t, 20, s.PresentDays)
	assert.Equal(t, 0, s.LateDays)
	assert.Equal(t, 2, s.ApprovedLeaveDays[attendance.LeavePaid])
	assert.Equal(t, 0, s.UnexcusedAbsenceDays)
	assert.True(t, s.Closes())
	assert.Empty(t, s.Warnings)
}

func TestSummarize_UnexcusedAbsence(t *testing.T) {
	// GIVEN: Same as above but one of the 20 days has no check-in
	// THEN: 19 present, 1 unexcused absence

	wd := workingDaysOfApril()
	var records []attendance.AttendanceRecord
	for _, d := range wd[1:20] {
		records = append(records, checkIn("emp-1", d, 9, 30))
	}
	leaves := []attendance.LeaveRecord{
		leave("lv-1", "emp-1", wd[20], wd[21], attendance.LeavePaid, attendance.LeaveApproved),
	}

	s, err := newAggregator(t).Summarize(attendance.SummaryInput{
		EmployeeID: "emp-1", Period: april, Attendance: records, Leaves: leaves, Calendar: weekdays(),
	})
	require.NoError(t, err)

	assert.Equal(t, 19, s.PresentDays)
	assert.Equal(t, 1, s.UnexcusedAbsenceDays)
	assert.True(t, s.Closes())
}

func TestSummarize_LateDaysAreSubsetOfPresent(t *testing.T) {
	records := []attendance.AttendanceRecord{
		checkIn("emp-1", 1, 10, 59),
		checkIn("emp-1", 2, 11, 0),
		checkIn("emp-1", 3, 11, 1),
		checkIn("emp-1", 4, 13, 0),
	}

	s, err := newAggregator(t).Summarize(attendance.SummaryInput{
		EmployeeID: "emp-1", Period: april, Attendance: records, Calendar: weekdays(),
	})
	require.NoError(t, err)

	assert.Equal(t, 4, s.PresentDays)
	assert.Equal(t, 2, s.LateDays)
	assert.Equal(t, 18, s.UnexcusedAbsenceDays)
	assert.True(t, s.Closes())
}

// =============================================================================
// PRECEDENCE TESTS
// =============================================================================

func TestSummarize_LeaveTakesPrecedenceOverCheckIn(t *testing.T) {
	// GIVEN: A check-in on April 3 and approved sick leave on April 3
	// WHEN: Summarizing with the default precedence
	// THEN: April 3 counts as sick leave, not as present

	records := []attendance.AttendanceRecord{checkIn("emp-1", 3, 12, 0)}
	leaves := []attendance.LeaveRecord{leave("lv-1", "emp-1", 3, 3, attendance.LeaveSick, attendance.LeaveApproved)}

	s, err := newAggregator(t).Summarize(attendance.SummaryInput{
		EmployeeID: "emp-1", Period: april, Attendance: records, Leaves: leaves, Calendar: weekdays(),
	})
	require.NoError(t, err)

	assert.Equal(t, 0, s.PresentDays)
	assert.Equal(t, 0, s.LateDays)
	assert.Equal(t, 1, s.ApprovedLeaveDays[attendance.LeaveSick])
	assert.Equal(t, 21, s.UnexcusedAbsenceDays)
	assert.True(t, s.Closes())
}

func TestSummarize_AttendanceOverLeave(t *testing.T) {
	records := []attendance.AttendanceRecord{checkIn("emp-1", 3, 12, 0)}
	leaves := []attendance.LeaveRecord{leave("lv-1", "emp-1", 3, 4, attendance.LeaveSick, attendance.LeaveApproved)}

	agg := newAggregator(t)
	agg.Precedence = attendance.AttendanceOverLeave

	s, err := agg.Summarize(attendance.SummaryInput{
		EmployeeID: "emp-1", Period: april, Attendance: records, Leaves: leaves, Calendar: weekdays(),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, s.PresentDays)
	assert.Equal(t, 1, s.LateDays)
	assert.Equal(t, 1, s.ApprovedLeaveDays[attendance.LeaveSick])
	assert.True(t, s.Closes())
}

// =============================================================================
// FILTERING TESTS
// =============================================================================

func TestSummarize_IgnoresUnrelatedRecords(t *testing.T) {
	// GIVEN: Records of another employee, pending and rejected leave,
	//        and attendance outside April
	// THEN: None of them count

	records := []attendance.AttendanceRecord{
		checkIn("emp-2", 1, 9, 0),
		{EmployeeID: "emp-1", Date: generic.NewTimePoint(2024, time.March, 29), CheckIn: utc(2024, 3, 29, 4, 0, 0)},
	}
	leaves := []attendance.LeaveRecord{
		leave("lv-1", "emp-1", 1, 5, attendance.LeavePaid, attendance.LeavePending),
		leave("lv-2", "emp-1", 8, 9, attendance.LeavePaid, attendance.LeaveRejected),
		leave("lv-3", "emp-2", 10, 12, attendance.LeavePaid, attendance.LeaveApproved),
	}

	s, err := newAggregator(t).Summarize(attendance.SummaryInput{
		EmployeeID: "emp-1", Period: april, Attendance: records, Leaves: leaves, Calendar: weekdays(),
	})
	require.NoError(t, err)

	assert.Equal(t, 0, s.PresentDays)
	assert.Equal(t, 0, s.TotalLeaveDays())
	assert.Equal(t, 22, s.UnexcusedAbsenceDays)
}

func TestSummarize_LeaveCrossingPeriodBoundary(t *testing.T) {
	// GIVEN: Approved unpaid leave from March 28 to April 2
	// THEN: Only April 1-2 count

	leaves := []attendance.LeaveRecord{{
		ID: "lv-1", EmployeeID: "emp-1",
		Start: generic.NewTimePoint(2024, time.March, 28), End: day(2),
		Type: attendance.LeaveUnpaid, Status: attendance.LeaveApproved,
	}}

	s, err := newAggregator(t).Summarize(attendance.SummaryInput{
		EmployeeID: "emp-1", Period: april, Leaves: leaves, Calendar: weekdays(),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, s.ApprovedLeaveDays[attendance.LeaveUnpaid])
}

func TestSummarize_WeekendLeaveNotCounted(t *testing.T) {
	// GIVEN: Leave Friday April 5 to Monday April 8
	// THEN: Only the two working days count

	leaves := []attendance.LeaveRecord{leave("lv-1", "emp-1", 5, 8, attendance.LeavePaid, attendance.LeaveApproved)}

	s, err := newAggregator(t).Summarize(attendance.SummaryInput{
		EmployeeID: "emp-1", Period: april, Leaves: leaves, Calendar: weekdays(),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, s.ApprovedLeaveDays[attendance.LeavePaid])
}

// =============================================================================
// CALENDAR TESTS
// =============================================================================

func TestSummarize_HolidaysAndOffDayAttendance(t *testing.T) {
	// GIVEN: April 11 is a declared holiday and the employee works Saturday April 6
	// THEN: 21 working days, the Saturday is informational only

	cal := generic.WeeklyCalendar{
		WeeklyOffs: generic.DefaultWeeklyOffs,
		Holidays:   generic.StaticHolidays{{ID: "h1", Date: day(11), Name: "Eid"}},
	}
	records := []attendance.AttendanceRecord{checkIn("emp-1", 6, 9, 0), checkIn("emp-1", 11, 9, 0)}

	s, err := newAggregator(t).Summarize(attendance.SummaryInput{
		EmployeeID: "emp-1", Period: april, Attendance: records, Calendar: cal,
	})
	require.NoError(t, err)

	assert.Equal(t, 21, s.WorkingDays)
	assert.Equal(t, 0, s.PresentDays)
	assert.Equal(t, 2, s.OffDayAttendanceDays)
	assert.True(t, s.Closes())
}

func TestSummarize_ZeroWorkingDays(t *testing.T) {
	never := generic.CalendarFunc(func(generic.TimePoint) bool { return false })

	s, err := newAggregator(t).Summarize(attendance.SummaryInput{
		EmployeeID: "emp-1", Period: april, Calendar: never,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, s.WorkingDays)
	assert.True(t, s.Closes())
}

// =============================================================================
// CLAMPING TESTS
// =============================================================================

func TestSummarize_ClampsToAsOf(t *testing.T) {
	// GIVEN: April in progress, as of April 10
	// THEN: Only April 1-10 are evaluated; the calendar length is kept for rates

	s, err := newAggregator(t).Summarize(attendance.SummaryInput{
		EmployeeID: "emp-1", Period: april, Calendar: weekdays(), AsOf: day(10),
	})
	require.NoError(t, err)

	assert.Equal(t, 10, s.TotalDays)
	assert.Equal(t, 30, s.PeriodCalendarDays)
	assert.Equal(t, 8, s.WorkingDays)
	assert.Equal(t, day(10), s.Period.End)
}

func TestSummarize_AsOfOutsidePeriodIsIgnored(t *testing.T) {
	s, err := newAggregator(t).Summarize(attendance.SummaryInput{
		EmployeeID: "emp-1", Period: april, Calendar: weekdays(),
		AsOf: generic.NewTimePoint(2024, time.June, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, 30, s.TotalDays)
}

// =============================================================================
// DATA QUALITY TESTS
// =============================================================================

func TestSummarize_UnknownCheckInIsPresentButNotLate(t *testing.T) {
	records := []attendance.AttendanceRecord{
		{EmployeeID: "emp-1", Date: day(1), RawCheckIn: "01/04/2024 9:00"},
	}

	s, err := newAggregator(t).Summarize(attendance.SummaryInput{
		EmployeeID: "emp-1", Period: april, Attendance: records, Calendar: weekdays(),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, s.PresentDays)
	assert.Equal(t, 0, s.LateDays)
	assert.Equal(t, 1, s.UnknownPunctualityDays)
	assert.True(t, generic.HasWarning(s.Warnings, generic.WarnUnknownCheckIn))
}

func TestSummarize_DuplicateAttendanceKeepsEarliest(t *testing.T) {
	// GIVEN: Two rows for April 1, a late one listed first
	// THEN: The earlier on-time row wins and a warning is recorded

	records := []attendance.AttendanceRecord{
		checkIn("emp-1", 1, 12, 0),
		checkIn("emp-1", 1, 9, 0),
	}

	s, err := newAggregator(t).Summarize(attendance.SummaryInput{
		EmployeeID: "emp-1", Period: april, Attendance: records, Calendar: weekdays(),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, s.PresentDays)
	assert.Equal(t, 0, s.LateDays)
	assert.True(t, generic.HasWarning(s.Warnings, generic.WarnDuplicateAttendance))
}

func TestSummarize_OverlappingApprovedLeaveCountedOnce(t *testing.T) {
	leaves := []attendance.LeaveRecord{
		leave("lv-b", "emp-1", 2, 4, attendance.LeaveUnpaid, attendance.LeaveApproved),
		leave("lv-a", "emp-1", 1, 2, attendance.LeavePaid, attendance.LeaveApproved),
	}

	s, err := newAggregator(t).Summarize(attendance.SummaryInput{
		EmployeeID: "emp-1", Period: april, Leaves: leaves, Calendar: weekdays(),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, s.ApprovedLeaveDays[attendance.LeavePaid])
	assert.Equal(t, 2, s.ApprovedLeaveDays[attendance.LeaveUnpaid])
	assert.True(t, generic.HasWarning(s.Warnings, generic.WarnOverlappingLeave))
	assert.True(t, s.Closes())
}

// =============================================================================
// DETERMINISM AND ERRORS
// =============================================================================

func TestSummarize_Deterministic(t *testing.T) {
	// GIVEN: The same inputs in a different order
	// THEN: Identical summaries and identical JSON

	a := []attendance.AttendanceRecord{checkIn("emp-1", 1, 9, 0), checkIn("emp-1", 2, 12, 0), checkIn("emp-1", 2, 10, 0)}
	b := []attendance.AttendanceRecord{a[2], a[1], a[0]}
	leaves := []attendance.LeaveRecord{
		leave("lv-1", "emp-1", 8, 9, attendance.LeavePaid, attendance.LeaveApproved),
		leave("lv-2", "emp-1", 15, 15, attendance.LeaveUnpaid, attendance.LeaveApproved),
	}
	reversed := []attendance.LeaveRecord{leaves[1], leaves[0]}

	agg := newAggregator(t)
	s1, err := agg.Summarize(attendance.SummaryInput{EmployeeID: "emp-1", Period: april, Attendance: a, Leaves: leaves, Calendar: weekdays()})
	require.NoError(t, err)
	s2, err := agg.Summarize(attendance.SummaryInput{EmployeeID: "emp-1", Period: april, Attendance: b, Leaves: reversed, Calendar: weekdays()})
	require.NoError(t, err)

	assert.Equal(t, s1, s2)

	j1, err := json.Marshal(s1)
	require.NoError(t, err)
	j2, err := json.Marshal(s2)
	require.NoError(t, err)
	assert.Equal(t, string(j1), string(j2))
}

func TestSummarize_Errors(t *testing.T) {
	agg := newAggregator(t)

	_, err := agg.Summarize(attendance.SummaryInput{EmployeeID: "emp-1", Period: april})
	assert.ErrorIs(t, err, generic.ErrConfiguration)

	_, err = agg.Summarize(attendance.SummaryInput{
		EmployeeID: "emp-1",
		Period:     generic.Period{Start: day(10), End: day(1)},
		Calendar:   weekdays(),
	})
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)

	_, err = (&attendance.Aggregator{}).Summarize(attendance.SummaryInput{EmployeeID: "emp-1", Period: april, Calendar: weekdays()})
	assert.ErrorIs(t, err, generic.ErrConfiguration)
}
