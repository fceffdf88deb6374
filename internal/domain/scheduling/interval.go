package scheduling

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	minutesADay = 24 * 60
)

// ClockTime is a wall clock time expressed in minutes since midnight.
type ClockTime int

// ParseClock accepts HH:MM or HH:MM:SS (24-hour). 24:00 is allowed as an end of day.
func ParseClock(value string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, value)
	}

	fields := make([]int, len(parts))
	for i, part := range parts {
		if len(part) != 2 {
			return 0, fmt.Errorf("%w: %q", ErrMalformedTime, value)
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: %q", ErrMalformedTime, value)
		}
		fields[i] = n
	}

	hours, minutes := fields[0], fields[1]
	if minutes > 59 || (len(fields) == 3 && fields[2] > 59) {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, value)
	}
	total := hours*60 + minutes
	if total > minutesADay || (total == minutesADay && len(fields) == 3 && fields[2] != 0) {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, value)
	}
	return ClockTime(total), nil
}

// String formats the time as HH:MM.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// CivilDate drops the clock and location of t, keeping its calendar date in UTC.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an ISO YYYY-MM-DD date.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// Interval is a half-open [Start, End) span anchored to a calendar date.
type Interval struct {
	Date  time.Time
	Start ClockTime
	End   ClockTime
}

// NewInterval parses start/end and normalizes date. start must be before end.
func NewInterval(date time.Time, start, end string) (Interval, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Interval{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Interval{}, err
	}
	if s >= e {
		return Interval{}, fmt.Errorf("%w: start %s is not before end %s", ErrMalformedTime, start, end)
	}
	return Interval{Date: CivilDate(date), Start: s, End: e}, nil
}

// StartAt is the canonical timestamp of the interval start.
func (iv Interval) StartAt() time.Time {
	return iv.Date.Add(time.Duration(iv.Start) * time.Minute)
}

// EndAt is the canonical timestamp of the interval end.
func (iv Interval) EndAt() time.Time {
	return iv.Date.Add(time.Duration(iv.End) * time.Minute)
}

// Overlaps reports whether the two intervals share any instant.
// Intervals touching at an edge do not overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.StartAt().Before(other.EndAt()) && iv.EndAt().After(other.StartAt())
}

// SameDate reports whether both intervals are on the same calendar date.
func (iv Interval) SameDate(other Interval) bool {
	return iv.Date.Equal(other.Date)
}

var dayAliases = map[string]string{
	"sat": "saturday", "saturday": "saturday",
	"sun": "sunday", "sunday": "sunday",
	"mon": "monday", "monday": "monday",
	"tue": "tuesday", "tuesday": "tuesday",
	"wed": "wednesday", "wednesday": "wednesday",
	"thu": "thursday", "thursday": "thursday",
	"fri": "friday", "friday": "friday",
}

// NormalizeDay maps a day name or its three letter abbreviation to a lower case full name.
func NormalizeDay(day string) string {
	key := strings.ToLower(strings.TrimSpace(day))
	if full, ok := dayAliases[key]; ok {
		return full
	}
	return key
}

// WeeklySlot is a recurring weekly span, used where no calendar date is known.
type WeeklySlot struct {
	Day   string
	Start ClockTime
	End   ClockTime
}

// NewWeeklySlot parses a day/start/end triple.
func NewWeeklySlot(day, start, end string) (WeeklySlot, error) {
	s, err := ParseClock(start)
	if err != nil {
		return WeeklySlot{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return WeeklySlot{}, err
	}
	if s >= e {
		return WeeklySlot{}, fmt.Errorf("%w: start %s is not before end %s", ErrMalformedTime, start, end)
	}
	return WeeklySlot{Day: NormalizeDay(day), Start: s, End: e}, nil
}

// Overlaps reports whether both slots fall on the same week day and intersect.
func (w WeeklySlot) Overlaps(other WeeklySlot) bool {
	return w.Day == other.Day && w.Start < other.End && w.End > other.Start
}
