package attendance

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone rules must not depend on the host's zoneinfo

	"github.com/infofitsoftwaresolution/ems-system-sub003/generic"
)

// =============================================================================
// CLASSIFICATION
// =============================================================================

type Punctuality string

const (
	OnTime Punctuality = "on_time"
	Late   Punctuality = "late"
)

// Classification is the result for one check-in. Unknown is set when the
// instant was missing or could not be parsed; Status is then OnTime but the
// aggregator must not count it as a real on-time arrival.
type Classification struct {
	Status  Punctuality
	Unknown bool
	Local   time.Time // the instant in civil time, zero when Unknown
}

func (c Classification) IsLate() bool { return !c.Unknown && c.Status == Late }

// =============================================================================
// CLASSIFIER
// =============================================================================

// Classifier compares instants against a fixed civil cutoff in one zone.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	loc    *time.Location
	hour   int
	minute int
	logger *slog.Logger
}

// NewClassifier resolves the zone and validates the cutoff.
func NewClassifier(zoneID string, cutoffHour, cutoffMinute int) (*Classifier, error) {
	if strings.TrimSpace(zoneID) == "" {
		return nil, &generic.ConfigurationError{Field: "zone", Reason: "is required"}
	}
	loc, err := time.LoadLocation(zoneID)
	if err != nil {
		return nil, &generic.ConfigurationError{Field: "zone", Reason: fmt.Sprintf("unknown zone %q", zoneID)}
	}
	if cutoffHour < 0 || cutoffHour > 23 || cutoffMinute < 0 || cutoffMinute > 59 {
		return nil, &generic.ConfigurationError{
			Field:  "cutoff",
			Reason: fmt.Sprintf("%02d:%02d is not a valid time of day", cutoffHour, cutoffMinute),
		}
	}
	return &Classifier{
		loc:    loc,
		hour:   cutoffHour,
		minute: cutoffMinute,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// WithLogger returns a copy of the classifier that logs unknown instants at debug level.
func (c *Classifier) WithLogger(logger *slog.Logger) *Classifier {
	cp := *c
	if logger != nil {
		cp.logger = logger
	}
	return &cp
}

func (c *Classifier) Location() *time.Location { return c.loc }

// Cutoff returns the cutoff as HH:MM.
func (c *Classifier) Cutoff() string { return fmt.Sprintf("%02d:%02d", c.hour, c.minute) }

// LocalDate returns the civil date of the instant in the classifier's zone.
func (c *Classifier) LocalDate(instant time.Time) generic.TimePoint {
	return generic.DateIn(instant, c.loc)
}

// Classify projects the instant into the zone and compares it to the cutoff of
// the same civil day. The comparison is inclusive: exactly at the cutoff is on time.
func (c *Classifier) Classify(instant *time.Time) Classification {
	if instant == nil || instant.IsZero() {
		c.logger.Debug("check-in instant missing, punctuality unknown")
		return Classification{Status: OnTime, Unknown: true}
	}

	local := instant.In(c.loc)
	y, m, d := local.Date()
	cutoff := time.Date(y, m, d, c.hour, c.minute, 0, 0, c.loc)

	if local.After(cutoff) {
		return Classification{Status: Late, Local: local}
	}
	return Classification{Status: OnTime, Local: local}
}

// ClassifyRaw parses an RFC 3339 timestamp and classifies it. Unparseable input
// yields an unknown classification instead of an error.
func (c *Classifier) ClassifyRaw(raw string) Classification {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return c.Classify(nil)
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		c.logger.Debug("check-in instant unparseable, punctuality unknown",
			slog.String("raw", raw), slog.String("error", err.Error()))
		return Classification{Status: OnTime, Unknown: true}
	}
	return c.Classify(&t)
}

// ClassifyRecord classifies a record's check-in, falling back to its raw value.
func (c *Classifier) ClassifyRecord(r AttendanceRecord) Classification {
	if r.CheckIn != nil {
		return c.Classify(r.CheckIn)
	}
	return c.ClassifyRaw(r.RawCheckIn)
}

// Classify is the one-shot form of Classifier.Classify.
func Classify(instant *time.Time, zoneID string, cutoffHour, cutoffMinute int) (Classification, error) {
	c, err := NewClassifier(zoneID, cutoffHour, cutoffMinute)
	if err != nil {
		return Classification{}, err
	}
	return c.Classify(instant), nil
}

// ParseCutoff parses "HH:MM".
func ParseCutoff(s string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, &generic.ConfigurationError{Field: "cutoff", Reason: fmt.Sprintf("%q is not HH:MM", s)}
	}
	hour, herr := strconv.Atoi(h)
	minute, merr := strconv.Atoi(m)
	if herr != nil || merr != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, &generic.ConfigurationError{Field: "cutoff", Reason: fmt.Sprintf("%q is not HH:MM", s)}
	}
	return hour, minute, nil
}
