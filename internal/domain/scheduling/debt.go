package scheduling

import (
	"sort"

	"github.com/google/uuid"
)

// DebtModuleView is a carried-over module of a student.
type DebtModuleView struct {
	ModuleID     uuid.UUID `json:"module_id" db:"module_id"`
	ModuleName   string    `json:"module_name" db:"module_name"`
	SemesterCode string    `json:"semester_code" db:"semester_code"`
}

// WeeklyCommitment is a recurring slot the student already attends.
type WeeklyCommitment struct {
	SessionID uuid.UUID  `db:"session_id"`
	Source    BusySource `db:"source"`
	Day       string     `db:"day"`
	StartTime string     `db:"start_time"`
	EndTime   string     `db:"end_time"`
}

// DebtCandidate is a session a student could register for to clear a debt module.
type DebtCandidate struct {
	SessionID      uuid.UUID   `json:"session_id" db:"session_id"`
	SessionType    SessionType `json:"session_type" db:"session_type"`
	ModuleName     string      `json:"module_name" db:"module_name"`
	Day            string      `json:"day" db:"day"`
	StartTime      string      `json:"start_time" db:"start_time"`
	EndTime        string      `json:"end_time" db:"end_time"`
	RoomName       string      `json:"room_name" db:"room_name"`
	ProfessorName  string      `json:"professor_name" db:"professor_name"`
	AvailableSeats *int        `json:"available_seats,omitempty" db:"-"`
}

// DebtSessionRequest registers a student into a debt session.
type DebtSessionRequest struct {
	SessionID uuid.UUID `json:"session_id" validate:"required"`
}

// FilterDebtCandidates drops candidates clashing with the weekly commitments or lacking seats,
// ordered by day of week then start time. Malformed candidates are returned separately.
// A malformed commitment blocks every candidate on its day.
func FilterDebtCandidates(candidates []DebtCandidate, commitments []WeeklyCommitment, capacities map[uuid.UUID]Capacity, p Policy) ([]DebtCandidate, []DebtCandidate) {
	busy := make([]WeeklySlot, 0, len(commitments))
	blockedDays := make(map[string]bool)
	for _, c := range commitments {
		slot, err := NewWeeklySlot(c.Day, c.StartTime, c.EndTime)
		if err != nil {
			blockedDays[NormalizeDay(c.Day)] = true
			continue
		}
		busy = append(busy, slot)
	}

	type ranked struct {
		candidate DebtCandidate
		slot      WeeklySlot
	}
	selectable := make([]ranked, 0, len(candidates))
	var malformed []DebtCandidate

next:
	for _, c := range candidates {
		slot, err := NewWeeklySlot(c.Day, c.StartTime, c.EndTime)
		if err != nil {
			malformed = append(malformed, c)
			continue
		}
		if blockedDays[slot.Day] {
			continue
		}
		for _, b := range busy {
			if b.Overlaps(slot) {
				continue next
			}
		}
		if !p.CapacityExempt[c.SessionType] {
			capacity, ok := capacities[c.SessionID]
			if !ok || capacity.Available() <= 0 {
				continue
			}
			seats := capacity.Available()
			c.AvailableSeats = &seats
		}
		c.StartTime, c.EndTime = slot.Start.String(), slot.End.String()
		selectable = append(selectable, ranked{candidate: c, slot: slot})
	}

	sort.SliceStable(selectable, func(i, j int) bool {
		di, dj := weekdayIndex(selectable[i].slot.Day), weekdayIndex(selectable[j].slot.Day)
		if di != dj {
			return di < dj
		}
		return selectable[i].slot.Start < selectable[j].slot.Start
	})

	out := make([]DebtCandidate, 0, len(selectable))
	for _, r := range selectable {
		out = append(out, r.candidate)
	}
	return out, malformed
}

var teachingWeek = []string{"saturday", "sunday", "monday", "tuesday", "wednesday", "thursday", "friday"}

func weekdayIndex(day string) int {
	for i, d := range teachingWeek {
		if d == day {
			return i
		}
	}
	return len(teachingWeek)
}
