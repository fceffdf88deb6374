package scheduling

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// RejectReason explains why a candidate occurrence was dropped.
type RejectReason string

const (
	RejectOwnSession    RejectReason = "own_session"
	RejectWrongModule   RejectReason = "wrong_module_or_type"
	RejectOutOfWindow   RejectReason = "out_of_window"
	RejectMalformedTime RejectReason = "malformed_time"
	RejectTimeConflict  RejectReason = "time_conflict"
	RejectNoSeats       RejectReason = "no_seats"
	RejectAheadInCourse RejectReason = "ahead_in_syllabus"
	RejectNotMakeupType RejectReason = "not_makeup_type"
)

// CandidateOccurrence is an occurrence of another group's session that might replace an absence.
// Day, StartTime, EndTime and RoomName already reflect a compensation slot when one applies.
type CandidateOccurrence struct {
	OccurrenceID   uuid.UUID   `db:"occurrence_id"`
	SessionID      uuid.UUID   `db:"session_id"`
	ModuleID       uuid.UUID   `db:"module_id"`
	ModuleName     string      `db:"module_name"`
	SessionType    SessionType `db:"session_type"`
	GroupID        *uuid.UUID  `db:"group_id"`
	GroupName      string      `db:"group_name"`
	SectionID      *uuid.UUID  `db:"section_id"`
	Date           time.Time   `db:"date"`
	Day            string      `db:"day"`
	StartTime      string      `db:"start_time"`
	EndTime        string      `db:"end_time"`
	RoomName       string      `db:"room_name"`
	ProfessorName  string      `db:"professor_name"`
	IsCompensation bool        `db:"is_compensation"`
}

// SessionProgress is a Progress ready to be rendered.
type SessionProgress struct {
	SessionID       uuid.UUID `json:"session_id"`
	CompletedTitles int       `json:"completed_titles"`
	TotalTitles     int       `json:"total_titles"`
	Percentage      int       `json:"percentage"`
}

// NewSessionProgress wraps p for a session.
func NewSessionProgress(sessionID uuid.UUID, p Progress) SessionProgress {
	return SessionProgress{
		SessionID:       sessionID,
		CompletedTitles: p.Completed,
		TotalTitles:     p.Total,
		Percentage:      p.Percentage(),
	}
}

// EligibleSession is a candidate that survived every filter.
type EligibleSession struct {
	OccurrenceID   uuid.UUID       `json:"occurrence_id"`
	SessionID      uuid.UUID       `json:"session_id"`
	ModuleName     string          `json:"module_name"`
	SessionType    SessionType     `json:"session_type"`
	GroupID        *uuid.UUID      `json:"group_id,omitempty"`
	GroupName      string          `json:"group_name,omitempty"`
	Date           string          `json:"date"`
	Day            string          `json:"day"`
	StartTime      string          `json:"start_time"`
	EndTime        string          `json:"end_time"`
	RoomName       string          `json:"room_name"`
	ProfessorName  string          `json:"professor_name"`
	IsCompensation bool            `json:"is_compensation"`
	AvailableSeats *int            `json:"available_seats,omitempty"`
	RequiresReview bool            `json:"requires_review"`
	Progress       SessionProgress `json:"progress"`

	interval Interval
}

// Rejection records a dropped candidate.
type Rejection struct {
	OccurrenceID uuid.UUID    `json:"occurrence_id"`
	SessionID    uuid.UUID    `json:"session_id"`
	Reason       RejectReason `json:"reason"`
}

// StudentScope is the group and section a student regularly attends.
type StudentScope struct {
	GroupID   uuid.UUID
	SectionID uuid.UUID
}

// EligibilityInput gathers everything the filter needs; it performs no I/O.
type EligibilityInput struct {
	Absence          Absence
	Student          StudentScope
	OriginalProgress Progress
	Window           DateWindow
	Candidates       []CandidateOccurrence
	Busy             BusySchedule
	// Capacities and Progress are keyed by session id.
	Capacities map[uuid.UUID]Capacity
	Progress   map[uuid.UUID]Progress
	Policy     Policy
}

// EligibilityResult is the ordered list of eligible sessions plus the rejected candidates.
type EligibilityResult struct {
	Eligible []EligibleSession
	Rejected []Rejection
}

// FilterEligible applies the replacement rules to every candidate and orders the survivors
// by date then start time.
func FilterEligible(in EligibilityInput) EligibilityResult {
	result := EligibilityResult{Eligible: make([]EligibleSession, 0, len(in.Candidates))}
	reject := func(c CandidateOccurrence, reason RejectReason) {
		result.Rejected = append(result.Rejected, Rejection{
			OccurrenceID: c.OccurrenceID,
			SessionID:    c.SessionID,
			Reason:       reason,
		})
	}

	if !in.Absence.SessionType.IsMakeupType() {
		for _, c := range in.Candidates {
			reject(c, RejectNotMakeupType)
		}
		return result
	}

	for _, c := range in.Candidates {
		if c.SessionID == in.Absence.SessionID || ownScope(c, in.Student) {
			reject(c, RejectOwnSession)
			continue
		}
		if c.ModuleID != in.Absence.ModuleID || c.SessionType != in.Absence.SessionType {
			reject(c, RejectWrongModule)
			continue
		}
		if !in.Window.Contains(c.Date) {
			reject(c, RejectOutOfWindow)
			continue
		}

		iv, err := NewInterval(c.Date, c.StartTime, c.EndTime)
		if err != nil {
			reject(c, RejectMalformedTime)
			continue
		}
		if in.Busy.Conflicts(iv) {
			reject(c, RejectTimeConflict)
			continue
		}

		var seats *int
		if !in.Policy.CapacityExempt[c.SessionType] {
			capacity, ok := in.Capacities[c.SessionID]
			if !ok || !in.Policy.HasSeat(c.SessionType, capacity) {
				reject(c, RejectNoSeats)
				continue
			}
			available := capacity.Available()
			seats = &available
		}

		progress := in.Progress[c.SessionID]
		if progress.Completed > in.OriginalProgress.Completed {
			reject(c, RejectAheadInCourse)
			continue
		}

		result.Eligible = append(result.Eligible, EligibleSession{
			OccurrenceID:   c.OccurrenceID,
			SessionID:      c.SessionID,
			ModuleName:     c.ModuleName,
			SessionType:    c.SessionType,
			GroupID:        c.GroupID,
			GroupName:      c.GroupName,
			Date:           iv.Date.Format(DateLayout),
			Day:            c.Day,
			StartTime:      iv.Start.String(),
			EndTime:        iv.End.String(),
			RoomName:       c.RoomName,
			ProfessorName:  c.ProfessorName,
			IsCompensation: c.IsCompensation,
			AvailableSeats: seats,
			RequiresReview: c.SessionType == SessionTypePractice,
			Progress:       NewSessionProgress(c.SessionID, progress),
			interval:       iv,
		})
	}

	sort.SliceStable(result.Eligible, func(i, j int) bool {
		a, b := result.Eligible[i].interval, result.Eligible[j].interval
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return result.Eligible[i].OccurrenceID.String() < result.Eligible[j].OccurrenceID.String()
	})
	return result
}

func ownScope(c CandidateOccurrence, s StudentScope) bool {
	if c.GroupID != nil && *c.GroupID == s.GroupID {
		return true
	}
	return c.GroupID == nil && c.SectionID != nil && *c.SectionID == s.SectionID
}

// NextSessionBound returns the earliest date strictly after the absence date, or nil.
func NextSessionBound(absenceDate time.Time, moduleDates []time.Time) *time.Time {
	day := CivilDate(absenceDate)
	var next *time.Time
	for _, d := range moduleDates {
		c := CivilDate(d)
		if !c.After(day) {
			continue
		}
		if next == nil || c.Before(*next) {
			v := c
			next = &v
		}
	}
	return next
}

// MakeupWindow builds the busy-time and candidate window for an absence.
func MakeupWindow(absenceDate time.Time, next *time.Time, p Policy) DateWindow {
	w := DateWindow{From: CivilDate(absenceDate)}
	if p.BoundToNextSession && next != nil {
		w.Until = next
	}
	return w
}
