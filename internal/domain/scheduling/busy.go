package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// BusySource names where a student commitment comes from.
type BusySource string

const (
	BusyTimetable    BusySource = "timetable"
	BusyCompensation BusySource = "compensation"
	BusyMakeup       BusySource = "makeup"
	BusyDebt         BusySource = "debt"
)

// BusySlot is one raw commitment row as read from storage.
type BusySlot struct {
	Source       BusySource  `json:"source" db:"source"`
	OccurrenceID uuid.UUID   `json:"occurrence_id" db:"occurrence_id"`
	SessionID    uuid.UUID   `json:"session_id" db:"session_id"`
	ModuleName   string      `json:"module_name" db:"module_name"`
	SessionType  SessionType `json:"session_type" db:"session_type"`
	Date         time.Time   `json:"date" db:"date"`
	Day          string      `json:"day" db:"day"`
	StartTime    string      `json:"start_time" db:"start_time"`
	EndTime      string      `json:"end_time" db:"end_time"`
}

// DateWindow bounds a date range; a nil Until leaves it open ended.
type DateWindow struct {
	From  time.Time
	Until *time.Time
}

// Contains reports whether the calendar date of t lies inside the window (inclusive).
func (w DateWindow) Contains(t time.Time) bool {
	d := CivilDate(t)
	if d.Before(CivilDate(w.From)) {
		return false
	}
	if w.Until != nil && d.After(CivilDate(*w.Until)) {
		return false
	}
	return true
}

// BusySchedule is the flattened set of a student's commitments.
// Dates whose commitments could not be parsed are blocked entirely.
type BusySchedule struct {
	Intervals    []Interval
	BlockedDates map[time.Time]struct{}
}

// BuildBusySchedule parses raw slots. Malformed slots are returned separately and block their date.
func BuildBusySchedule(slots []BusySlot) (BusySchedule, []BusySlot) {
	schedule := BusySchedule{
		Intervals:    make([]Interval, 0, len(slots)),
		BlockedDates: make(map[time.Time]struct{}),
	}
	var malformed []BusySlot

	for _, slot := range slots {
		iv, err := NewInterval(slot.Date, slot.StartTime, slot.EndTime)
		if err != nil {
			malformed = append(malformed, slot)
			schedule.BlockedDates[CivilDate(slot.Date)] = struct{}{}
			continue
		}
		schedule.Intervals = append(schedule.Intervals, iv)
	}
	return schedule, malformed
}

// Conflicts reports whether iv clashes with any commitment.
func (b BusySchedule) Conflicts(iv Interval) bool {
	if _, blocked := b.BlockedDates[iv.Date]; blocked {
		return true
	}
	for _, busy := range b.Intervals {
		if busy.Overlaps(iv) {
			return true
		}
	}
	return false
}
