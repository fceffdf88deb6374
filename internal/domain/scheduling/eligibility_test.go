package scheduling

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

type eligibilityFixture struct {
	moduleID   uuid.UUID
	ownGroup   uuid.UUID
	ownSection uuid.UUID
	absence    Absence
}

func newEligibilityFixture(t *testing.T, sessionType SessionType) eligibilityFixture {
	t.Helper()
	f := eligibilityFixture{
		moduleID:   uuid.New(),
		ownGroup:   uuid.New(),
		ownSection: uuid.New(),
	}
	f.absence = Absence{
		AttendanceID: uuid.New(),
		OccurrenceID: uuid.New(),
		SessionID:    uuid.New(),
		ModuleID:     f.moduleID,
		ModuleName:   "Algorithms",
		SessionType:  sessionType,
		GroupID:      &f.ownGroup,
		Date:         mustDate(t, "2024-03-10"),
		Day:          "Sunday",
		StartTime:    "08:00",
		EndTime:      "09:30",
	}
	return f
}

func (f eligibilityFixture) candidate(t *testing.T, date, start, end string) CandidateOccurrence {
	t.Helper()
	group := uuid.New()
	return CandidateOccurrence{
		OccurrenceID: uuid.New(),
		SessionID:    uuid.New(),
		ModuleID:     f.moduleID,
		ModuleName:   "Algorithms",
		SessionType:  f.absence.SessionType,
		GroupID:      &group,
		Date:         mustDate(t, date),
		StartTime:    start,
		EndTime:      end,
	}
}

func (f eligibilityFixture) input(candidates ...CandidateOccurrence) EligibilityInput {
	return EligibilityInput{
		Absence:    f.absence,
		Student:    StudentScope{GroupID: f.ownGroup, SectionID: f.ownSection},
		Window:     DateWindow{From: f.absence.Date},
		Candidates: candidates,
		Capacities: make(map[uuid.UUID]Capacity),
		Progress:   make(map[uuid.UUID]Progress),
		Policy:     DefaultPolicy(),
	}
}

func rejectionReason(res EligibilityResult, occurrenceID uuid.UUID) RejectReason {
	for _, r := range res.Rejected {
		if r.OccurrenceID == occurrenceID {
			return r.Reason
		}
	}
	return ""
}

func TestFilterEligible_EndToEndScenario(t *testing.T) {
	f := newEligibilityFixture(t, SessionTypeDirected)

	g2 := f.candidate(t, "2024-03-12", "10:00", "11:30")
	g3 := f.candidate(t, "2024-03-13", "10:00", "11:30")

	in := f.input(g2, g3)
	in.OriginalProgress = Progress{Completed: 2, Total: 5}
	in.Capacities[g2.SessionID] = Capacity{RoomCapacity: 30, Roster: 30}
	in.Capacities[g3.SessionID] = Capacity{RoomCapacity: 30, Roster: 26, Makeups: 1, Debts: 1}
	in.Progress[g2.SessionID] = Progress{Completed: 3, Total: 5}
	in.Progress[g3.SessionID] = Progress{Completed: 1, Total: 5}

	res := FilterEligible(in)

	if len(res.Eligible) != 1 {
		t.Fatalf("Expected 1 eligible session, got %d", len(res.Eligible))
	}
	got := res.Eligible[0]
	if got.OccurrenceID != g3.OccurrenceID {
		t.Errorf("Expected G3 occurrence %s, got %s", g3.OccurrenceID, got.OccurrenceID)
	}
	if got.AvailableSeats == nil || *got.AvailableSeats != 2 {
		t.Errorf("Expected 2 available seats, got %v", got.AvailableSeats)
	}
	if got.Progress.Percentage != 20 {
		t.Errorf("Expected 20%% progress, got %d", got.Progress.Percentage)
	}
	if reason := rejectionReason(res, g2.OccurrenceID); reason != RejectNoSeats {
		t.Errorf("Expected G2 rejected for no_seats, got %q", reason)
	}
}

func TestFilterEligible_ProgressMonotonicity(t *testing.T) {
	f := newEligibilityFixture(t, SessionTypeDirected)

	equal := f.candidate(t, "2024-03-12", "10:00", "11:00")
	ahead := f.candidate(t, "2024-03-12", "14:00", "15:00")

	in := f.input(equal, ahead)
	in.OriginalProgress = Progress{Completed: 3, Total: 6}
	for _, c := range []CandidateOccurrence{equal, ahead} {
		in.Capacities[c.SessionID] = Capacity{RoomCapacity: 20, Roster: 10}
	}
	in.Progress[equal.SessionID] = Progress{Completed: 3, Total: 6}
	in.Progress[ahead.SessionID] = Progress{Completed: 4, Total: 6}

	res := FilterEligible(in)

	if len(res.Eligible) != 1 || res.Eligible[0].OccurrenceID != equal.OccurrenceID {
		t.Fatalf("Expected only the candidate with 3 completed titles, got %+v", res.Eligible)
	}
	if reason := rejectionReason(res, ahead.OccurrenceID); reason != RejectAheadInCourse {
		t.Errorf("Expected ahead_in_syllabus, got %q", reason)
	}
	for _, e := range res.Eligible {
		if e.Progress.CompletedTitles > in.OriginalProgress.Completed {
			t.Errorf("Eligible candidate has %d completed titles", e.Progress.CompletedTitles)
		}
	}
}

func TestFilterEligible_PracticeIsCapacityExempt(t *testing.T) {
	f := newEligibilityFixture(t, SessionTypePractice)

	full := f.candidate(t, "2024-03-12", "10:00", "11:00")
	in := f.input(full)
	in.Capacities[full.SessionID] = Capacity{RoomCapacity: 20, Roster: 20, Makeups: 3}

	res := FilterEligible(in)

	if len(res.Eligible) != 1 {
		t.Fatalf("Expected full pw session to stay eligible, got %d eligible", len(res.Eligible))
	}
	if res.Eligible[0].AvailableSeats != nil {
		t.Error("Expected no seat count for an exempt session")
	}
	if !res.Eligible[0].RequiresReview {
		t.Error("Expected pw session to require review")
	}
}

func TestFilterEligible_ExemptionIsConfigurable(t *testing.T) {
	f := newEligibilityFixture(t, SessionTypePractice)

	full := f.candidate(t, "2024-03-12", "10:00", "11:00")
	in := f.input(full)
	in.Policy = NewPolicy(nil, true)
	in.Capacities[full.SessionID] = Capacity{RoomCapacity: 20, Roster: 20}

	res := FilterEligible(in)
	if len(res.Eligible) != 0 {
		t.Errorf("Expected no eligible sessions without exemption, got %d", len(res.Eligible))
	}
}

func TestFilterEligible_BusyTimeAndOrdering(t *testing.T) {
	f := newEligibilityFixture(t, SessionTypeDirected)

	later := f.candidate(t, "2024-03-14", "08:00", "09:30")
	sameDayLate := f.candidate(t, "2024-03-12", "14:00", "15:30")
	sameDayEarly := f.candidate(t, "2024-03-12", "09:30", "11:00")
	clashing := f.candidate(t, "2024-03-12", "11:00", "12:30")
	malformed := f.candidate(t, "2024-03-12", "9h", "11:00")

	in := f.input(later, sameDayLate, sameDayEarly, clashing, malformed)
	for _, c := range in.Candidates {
		in.Capacities[c.SessionID] = Capacity{RoomCapacity: 10}
	}
	in.Busy, _ = BuildBusySchedule([]BusySlot{
		{Source: BusyTimetable, Date: mustDate(t, "2024-03-12"), StartTime: "08:00", EndTime: "09:30"},
		{Source: BusyDebt, Date: mustDate(t, "2024-03-12"), StartTime: "12:00", EndTime: "13:00"},
	})

	res := FilterEligible(in)

	want := []uuid.UUID{sameDayEarly.OccurrenceID, sameDayLate.OccurrenceID, later.OccurrenceID}
	if len(res.Eligible) != len(want) {
		t.Fatalf("Expected %d eligible sessions, got %d", len(want), len(res.Eligible))
	}
	for i, id := range want {
		if res.Eligible[i].OccurrenceID != id {
			t.Errorf("Position %d: expected %s, got %s", i, id, res.Eligible[i].OccurrenceID)
		}
	}
	if reason := rejectionReason(res, clashing.OccurrenceID); reason != RejectTimeConflict {
		t.Errorf("Expected time_conflict, got %q", reason)
	}
	if reason := rejectionReason(res, malformed.OccurrenceID); reason != RejectMalformedTime {
		t.Errorf("Expected malformed_time, got %q", reason)
	}
}

func TestFilterEligible_ScopeAndWindow(t *testing.T) {
	f := newEligibilityFixture(t, SessionTypeDirected)

	own := f.candidate(t, "2024-03-12", "10:00", "11:00")
	own.GroupID = &f.ownGroup
	original := f.candidate(t, "2024-03-12", "12:00", "13:00")
	original.SessionID = f.absence.SessionID
	before := f.candidate(t, "2024-03-09", "10:00", "11:00")
	after := f.candidate(t, "2024-03-20", "10:00", "11:00")
	otherModule := f.candidate(t, "2024-03-12", "14:00", "15:00")
	otherModule.ModuleID = uuid.New()

	in := f.input(own, original, before, after, otherModule)
	until := mustDate(t, "2024-03-17")
	in.Window.Until = &until
	for _, c := range in.Candidates {
		in.Capacities[c.SessionID] = Capacity{RoomCapacity: 10}
	}

	res := FilterEligible(in)
	if len(res.Eligible) != 0 {
		t.Fatalf("Expected no eligible sessions, got %d", len(res.Eligible))
	}

	expect := map[uuid.UUID]RejectReason{
		own.OccurrenceID:         RejectOwnSession,
		original.OccurrenceID:    RejectOwnSession,
		before.OccurrenceID:      RejectOutOfWindow,
		after.OccurrenceID:       RejectOutOfWindow,
		otherModule.OccurrenceID: RejectWrongModule,
	}
	for id, reason := range expect {
		if got := rejectionReason(res, id); got != reason {
			t.Errorf("Occurrence %s: expected %q, got %q", id, reason, got)
		}
	}
}

func TestFilterEligible_LectureHasNoReplacement(t *testing.T) {
	f := newEligibilityFixture(t, SessionTypeLecture)
	c := f.candidate(t, "2024-03-12", "10:00", "11:00")

	res := FilterEligible(f.input(c))
	if len(res.Eligible) != 0 {
		t.Errorf("Expected no eligible sessions for a lecture, got %d", len(res.Eligible))
	}
	if reason := rejectionReason(res, c.OccurrenceID); reason != RejectNotMakeupType {
		t.Errorf("Expected not_makeup_type, got %q", reason)
	}
}

func TestNextSessionBoundAndWindow(t *testing.T) {
	absence := mustDate(t, "2024-03-10")
	dates := []time.Time{
		mustDate(t, "2024-03-03"),
		mustDate(t, "2024-03-10"),
		mustDate(t, "2024-03-24"),
		mustDate(t, "2024-03-17"),
	}

	next := NextSessionBound(absence, dates)
	if next == nil || next.Format(DateLayout) != "2024-03-17" {
		t.Fatalf("Expected next session 2024-03-17, got %v", next)
	}

	w := MakeupWindow(absence, next, DefaultPolicy())
	if w.Until == nil || !w.Until.Equal(*next) {
		t.Error("Expected window bounded by next session")
	}

	unbounded := MakeupWindow(absence, next, NewPolicy([]string{"pw"}, false))
	if unbounded.Until != nil {
		t.Error("Expected unbounded window when policy disables the bound")
	}

	if NextSessionBound(absence, dates[:2]) != nil {
		t.Error("Expected no bound when no later occurrence exists")
	}
}

func TestCapacity_Available(t *testing.T) {
	c := Capacity{RoomCapacity: 30, Roster: 25, Makeups: 3, Debts: 1}
	if c.Available() != 1 {
		t.Errorf("Expected 1 seat, got %d", c.Available())
	}

	p := DefaultPolicy()
	if !p.HasSeat(SessionTypeDirected, c) {
		t.Error("Expected a seat to be available")
	}
	c.Debts++
	if p.HasSeat(SessionTypeDirected, c) {
		t.Error("Expected no seat once capacity is reached")
	}
	if !p.HasSeat(SessionTypePractice, c) {
		t.Error("Expected pw to bypass capacity")
	}
}
