package attendance

import (
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/infofitsoftwaresolution/ems-system-sub003/generic"
)

// =============================================================================
// PRECEDENCE
// =============================================================================

// Precedence decides how a working day with both approved leave and a
// check-in is counted.
type Precedence int

const (
	// LeaveOverAttendance counts the day as leave. This is the default.
	LeaveOverAttendance Precedence = iota
	// AttendanceOverLeave counts the day as present.
	AttendanceOverLeave
)

func (p Precedence) String() string {
	switch p {
	case LeaveOverAttendance:
		return "leave_over_attendance"
	case AttendanceOverLeave:
		return "attendance_over_leave"
	default:
		return "unknown"
	}
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// SummaryInput is everything Summarize needs. Records of other employees and
// records outside the period are ignored, so callers may pass broader slices.
type SummaryInput struct {
	EmployeeID generic.EmployeeID
	Period     generic.Period
	Attendance []AttendanceRecord
	Leaves     []LeaveRecord
	Calendar   generic.WorkCalendar

	// AsOf clamps an in-progress period. Zero means evaluate the whole period.
	AsOf generic.TimePoint
}

// Aggregator folds attendance and leave into a Summary.
type Aggregator struct {
	Classifier *Classifier
	Precedence Precedence
	Logger     *slog.Logger
}

func NewAggregator(classifier *Classifier) *Aggregator {
	return &Aggregator{Classifier: classifier}
}

func (a *Aggregator) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return a.Logger
}

// Summarize computes the attendance summary. It never reads the wall clock:
// clamping is driven by in.AsOf only.
func (a *Aggregator) Summarize(in SummaryInput) (Summary, error) {
	if a.Classifier == nil {
		return Summary{}, &generic.ConfigurationError{EmployeeID: in.EmployeeID, Field: "classifier", Reason: "is required"}
	}
	if in.Calendar == nil {
		return Summary{}, &generic.ConfigurationError{EmployeeID: in.EmployeeID, Field: "calendar", Reason: "is required"}
	}
	if err := in.Period.Validate(); err != nil {
		return Summary{}, err
	}

	eval := in.Period.ClampTo(in.AsOf)
	s := Summary{
		EmployeeID:         in.EmployeeID,
		Period:             eval,
		PeriodCalendarDays: in.Period.Len(),
		TotalDays:          eval.Len(),
		ApprovedLeaveDays:  map[LeaveType]int{},
	}

	records, warnings := a.indexAttendance(in.EmployeeID, eval, in.Attendance)
	s.Warnings = append(s.Warnings, warnings...)

	leaveOn, warnings := indexLeaves(in.EmployeeID, eval, in.Leaves)
	s.Warnings = append(s.Warnings, warnings...)

	for _, day := range eval.Days() {
		rec, hasRec := records[day]
		checkedIn := hasRec && rec.HasCheckIn()

		if !in.Calendar.IsWorkingDay(day) {
			if checkedIn {
				s.OffDayAttendanceDays++
			}
			continue
		}
		s.WorkingDays++

		leaveType, onLeave := leaveOn[day]
		if onLeave && (a.Precedence == LeaveOverAttendance || !checkedIn) {
			s.ApprovedLeaveDays[leaveType]++
			continue
		}

		if !checkedIn {
			s.UnexcusedAbsenceDays++
			continue
		}

		s.PresentDays++
		cls := a.Classifier.ClassifyRecord(rec)
		switch {
		case cls.Unknown:
			s.UnknownPunctualityDays++
			d := day
			s.Warnings = append(s.Warnings, generic.NewWarning(generic.WarnUnknownCheckIn, &d,
				"check-in for %s could not be read; counted present with unknown punctuality", in.EmployeeID))
		case cls.IsLate():
			s.LateDays++
		}
	}

	if len(s.Warnings) > 0 {
		a.logger().Debug("attendance summary has data quality warnings",
			slog.String("employee_id", string(in.EmployeeID)),
			slog.String("period", eval.String()),
			slog.Int("warnings", len(s.Warnings)))
	}
	return s, nil
}

// indexAttendance keeps one record per date. When several rows exist for a
// date the one with the earliest check-in wins.
func (a *Aggregator) indexAttendance(emp generic.EmployeeID, period generic.Period, in []AttendanceRecord) (map[generic.TimePoint]AttendanceRecord, []generic.DataQualityWarning) {
	var rows []AttendanceRecord
	for _, r := range in {
		if r.EmployeeID != emp || !period.Contains(r.Date) {
			continue
		}
		r.Date = generic.DateOf(r.Date.Time)
		rows = append(rows, r)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		return checkInBefore(rows[i], rows[j])
	})

	out := make(map[generic.TimePoint]AttendanceRecord, len(rows))
	var warnings []generic.DataQualityWarning
	for _, r := range rows {
		if _, dup := out[r.Date]; dup {
			d := r.Date
			warnings = append(warnings, generic.NewWarning(generic.WarnDuplicateAttendance, &d,
				"more than one attendance record for %s; earliest check-in kept", emp))
			continue
		}
		out[r.Date] = r
	}
	return out, warnings
}

// checkInBefore orders parsed instants first (earliest wins), then raw values,
// then rows without a check-in.
func checkInBefore(a, b AttendanceRecord) bool {
	ra, rb := checkInRank(a), checkInRank(b)
	if ra != rb {
		return ra < rb
	}
	if a.CheckIn != nil && b.CheckIn != nil {
		return a.CheckIn.Before(*b.CheckIn)
	}
	return a.RawCheckIn < b.RawCheckIn
}

func checkInRank(r AttendanceRecord) int {
	switch {
	case r.CheckIn != nil:
		return 0
	case r.HasCheckIn():
		return 1
	default:
		return 2
	}
}

// indexLeaves maps each date in the period to the type of the approved leave
// covering it. Overlapping approved leave is resolved in (Start, ID) order.
func indexLeaves(emp generic.EmployeeID, period generic.Period, in []LeaveRecord) (map[generic.TimePoint]LeaveType, []generic.DataQualityWarning) {
	var leaves []LeaveRecord
	for _, l := range in {
		if l.EmployeeID != emp || !l.IsApproved() || l.End.Before(l.Start) || !l.Span().Overlaps(period) {
			continue
		}
		leaves = append(leaves, l)
	}
	sortLeaves(leaves)

	covered := make(map[generic.TimePoint]LeaveType)
	owner := make(map[generic.TimePoint]string)
	var warnings []generic.DataQualityWarning
	for _, l := range leaves {
		reported := false
		for day := generic.DateOf(maxDate(l.Start, period.Start).Time); day.BeforeOrEqual(l.End) && day.BeforeOrEqual(period.End); day = day.AddDays(1) {
			if prev, taken := owner[day]; taken {
				if !reported {
					d := day
					warnings = append(warnings, generic.NewWarning(generic.WarnOverlappingLeave, &d,
						"approved leave %s overlaps %s; %s kept", l.ID, prev, prev))
					reported = true
				}
				continue
			}
			covered[day] = l.Type
			owner[day] = l.ID
		}
	}
	return covered, warnings
}

func maxDate(a, b generic.TimePoint) generic.TimePoint {
	if a.After(b) {
		return a
	}
	return b
}

// DefaultPeriodFor returns the calendar month containing the instant's civil
// date in loc, and that date for use as SummaryInput.AsOf.
func DefaultPeriodFor(asOf time.Time, loc *time.Location) (generic.Period, generic.TimePoint) {
	today := generic.DateIn(asOf, loc)
	return generic.PayPeriodOf(today).Period(), today
}
