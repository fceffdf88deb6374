package scheduling

import "github.com/google/uuid"

// Capacity holds the seat accounting of one session.
type Capacity struct {
	SessionID    uuid.UUID `json:"session_id" db:"session_id"`
	RoomCapacity int       `json:"room_capacity" db:"room_capacity"`
	Roster       int       `json:"roster" db:"roster"`
	Makeups      int       `json:"makeups" db:"makeups"`
	Debts        int       `json:"debts" db:"debts"`
}

// Available is the number of free seats; it can be negative when a room is overbooked.
func (c Capacity) Available() int {
	return c.RoomCapacity - c.Roster - c.Makeups - c.Debts
}

// Policy holds the tunable rules of the makeup workflow.
type Policy struct {
	// CapacityExempt lists session types admitted without a seat check.
	CapacityExempt map[SessionType]bool
	// BoundToNextSession limits the search window to the next occurrence of the module.
	BoundToNextSession bool
}

// DefaultPolicy exempts pw sessions and bounds the window by the next module occurrence.
func DefaultPolicy() Policy {
	return Policy{
		CapacityExempt:     map[SessionType]bool{SessionTypePractice: true},
		BoundToNextSession: true,
	}
}

// NewPolicy builds a Policy from configuration values, ignoring unknown types.
func NewPolicy(exemptTypes []string, boundToNextSession bool) Policy {
	exempt := make(map[SessionType]bool, len(exemptTypes))
	for _, t := range exemptTypes {
		st := SessionType(t)
		if st.Valid() {
			exempt[st] = true
		}
	}
	return Policy{CapacityExempt: exempt, BoundToNextSession: boundToNextSession}
}

// HasSeat reports whether a session of type t with capacity c can take one more student.
func (p Policy) HasSeat(t SessionType, c Capacity) bool {
	if p.CapacityExempt[t] {
		return true
	}
	return c.Available() > 0
}
