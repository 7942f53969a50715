package generic

import (
	"time"
)

// =============================================================================
// TIME POINT - A civil calendar date
// =============================================================================

// TimePoint is a calendar date. The underlying time is always midnight UTC so
// that dates compare and hash the same regardless of the zone they came from.
type TimePoint struct {
	Time time.Time
}

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the civil date of t in t's own location.
func DateOf(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

// DateIn returns the civil date of the instant t as observed in loc.
func DateIn(t time.Time, loc *time.Location) TimePoint {
	return DateOf(t.In(loc))
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (TimePoint, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return TimePoint{}, err
	}
	return DateOf(t), nil
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.normalize().After(other.normalize()) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

func (tp TimePoint) normalize() time.Time {
	return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint   { return DateOf(tp.normalize().AddDate(0, 0, n)) }
func (tp TimePoint) AddMonths(n int) TimePoint { return DateOf(tp.normalize().AddDate(0, n, 0)) }

// Properties
func (tp TimePoint) Year() int             { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month     { return tp.Time.Month() }
func (tp TimePoint) Day() int              { return tp.Time.Day() }
func (tp TimePoint) Weekday() time.Weekday { return tp.normalize().Weekday() }
func (tp TimePoint) IsZero() bool          { return tp.Time.IsZero() }

func (tp TimePoint) String() string {
	return tp.normalize().Format(time.DateOnly)
}

// MarshalText renders the date as YYYY-MM-DD.
func (tp TimePoint) MarshalText() ([]byte, error) {
	return []byte(tp.String()), nil
}

// UnmarshalText parses YYYY-MM-DD.
func (tp *TimePoint) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*tp = parsed
	return nil
}

// =============================================================================
// HOLIDAY CALENDAR - Company-specific holidays
// =============================================================================

// Holiday represents a declared company holiday.
type Holiday struct {
	ID        string
	CompanyID string    // Empty string = global/default holidays
	Date      TimePoint // The holiday date
	Name      string    // e.g., "Republic Day", "Diwali"
	Recurring bool      // true = same month/day every year
}

// HolidayCalendar provides holiday lookup functionality.
type HolidayCalendar interface {
	// IsHoliday checks if a date is a holiday for the given company.
	// Checks company-specific holidays first, then global holidays.
	IsHoliday(companyID string, date TimePoint) bool

	// GetHolidays returns all holidays for a company in a given year.
	GetHolidays(companyID string, year int) []Holiday
}

// StaticHolidays is an in-memory HolidayCalendar, mostly for tests and for
// snapshotting a calendar before a payroll run.
type StaticHolidays []Holiday

func (s StaticHolidays) IsHoliday(companyID string, date TimePoint) bool {
	for _, h := range s {
		if h.CompanyID != "" && h.CompanyID != companyID {
			continue
		}
		if h.Date.Equal(date) {
			return true
		}
		if h.Recurring && h.Date.Month() == date.Month() && h.Date.Day() == date.Day() {
			return true
		}
	}
	return false
}

func (s StaticHolidays) GetHolidays(companyID string, year int) []Holiday {
	var out []Holiday
	for _, h := range s {
		if h.CompanyID != "" && h.CompanyID != companyID {
			continue
		}
		if h.Recurring || h.Date.Year() == year {
			out = append(out, h)
		}
	}
	return out
}

// =============================================================================
// WORK CALENDAR - Which dates are working days
// =============================================================================

// WorkCalendar answers whether a date is a working day. Implementations must be
// safe for concurrent reads; a payroll run shares one calendar across employees.
type WorkCalendar interface {
	IsWorkingDay(date TimePoint) bool
}

// WeeklyCalendar excludes weekly offs and declared holidays.
type WeeklyCalendar struct {
	CompanyID  string
	WeeklyOffs []time.Weekday
	Holidays   HolidayCalendar // nil = no holidays
}

// DefaultWeeklyOffs is a Saturday/Sunday weekend.
var DefaultWeeklyOffs = []time.Weekday{time.Saturday, time.Sunday}

func (c WeeklyCalendar) IsWorkingDay(date TimePoint) bool {
	wd := date.Weekday()
	for _, off := range c.WeeklyOffs {
		if wd == off {
			return false
		}
	}
	if c.Holidays != nil && c.Holidays.IsHoliday(c.CompanyID, date) {
		return false
	}
	return true
}

// CalendarFunc adapts a plain function to WorkCalendar.
type CalendarFunc func(TimePoint) bool

func (f CalendarFunc) IsWorkingDay(date TimePoint) bool { return f(date) }

// =============================================================================
// TIME UTILITIES
// =============================================================================

func DaysBetween(from, to TimePoint) int {
	return int(to.normalize().Sub(from.normalize()).Hours() / 24)
}

func StartOfMonth(year int, month time.Month) TimePoint { return NewTimePoint(year, month, 1) }
func EndOfMonth(year int, month time.Month) TimePoint {
	return DateOf(time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1))
}
