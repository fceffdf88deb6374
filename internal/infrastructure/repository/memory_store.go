package repository

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	domain "academic-scheduler/internal/domain/scheduling"
	interfaces "academic-scheduler/internal/interfaces/infrastructure"

	"github.com/google/uuid"
)

var (
	_ interfaces.AbsenceRepository   = (*MemoryStore)(nil)
	_ interfaces.TimetableRepository = (*MemoryStore)(nil)
	_ interfaces.DebtRepository      = (*MemoryStore)(nil)
	_ interfaces.TitleRepository     = (*MemoryStore)(nil)
	_ interfaces.SchedulingStore     = (*MemoryStore)(nil)
)

type debtSessionKey struct {
	studentID string
	sessionID uuid.UUID
}

type debtModuleKey struct {
	studentID string
	moduleID  uuid.UUID
}

type progressKey struct {
	titleID   uuid.UUID
	sessionID uuid.UUID
}

type memoryData struct {
	students      map[string]domain.Student
	professors    map[string]domain.Professor
	groups        map[uuid.UUID]domain.Group
	sections      map[uuid.UUID]domain.Section
	semesters     map[uuid.UUID]domain.Semester
	modules       map[uuid.UUID]domain.Module
	rooms         map[uuid.UUID]domain.Room
	dayTimes      map[uuid.UUID]domain.DayTime
	sessions      map[uuid.UUID]domain.Session
	occurrences   map[uuid.UUID]domain.SessionOccurrence
	attendances   map[uuid.UUID]domain.Attendance
	makeups       map[uuid.UUID]domain.MakeupEnrollment
	compensations map[uuid.UUID]domain.CompensationRequest
	debtSessions  map[debtSessionKey]domain.DebtSession
	debtModules   map[debtModuleKey]domain.DebtModule
	titles        map[uuid.UUID]domain.ModuleTitle
	progress      map[progressKey]domain.TitleProgress
	idempotency   map[string]domain.IdempotencyKey
}

func (d *memoryData) clone() *memoryData {
	return &memoryData{
		students:      maps.Clone(d.students),
		professors:    maps.Clone(d.professors),
		groups:        maps.Clone(d.groups),
		sections:      maps.Clone(d.sections),
		semesters:     maps.Clone(d.semesters),
		modules:       maps.Clone(d.modules),
		rooms:         maps.Clone(d.rooms),
		dayTimes:      maps.Clone(d.dayTimes),
		sessions:      maps.Clone(d.sessions),
		occurrences:   maps.Clone(d.occurrences),
		attendances:   maps.Clone(d.attendances),
		makeups:       maps.Clone(d.makeups),
		compensations: maps.Clone(d.compensations),
		debtSessions:  maps.Clone(d.debtSessions),
		debtModules:   maps.Clone(d.debtModules),
		titles:        maps.Clone(d.titles),
		progress:      maps.Clone(d.progress),
		idempotency:   maps.Clone(d.idempotency),
	}
}

// MemoryStore is an in-process implementation of every repository, used by tests and by
// the server when database.driver is "memory". Transactions hold a single lock, so they are
// serial, and roll back by restoring a snapshot.
type MemoryStore struct {
	mu   sync.Mutex
	data *memoryData
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: &memoryData{
		students:      make(map[string]domain.Student),
		professors:    make(map[string]domain.Professor),
		groups:        make(map[uuid.UUID]domain.Group),
		sections:      make(map[uuid.UUID]domain.Section),
		semesters:     make(map[uuid.UUID]domain.Semester),
		modules:       make(map[uuid.UUID]domain.Module),
		rooms:         make(map[uuid.UUID]domain.Room),
		dayTimes:      make(map[uuid.UUID]domain.DayTime),
		sessions:      make(map[uuid.UUID]domain.Session),
		occurrences:   make(map[uuid.UUID]domain.SessionOccurrence),
		attendances:   make(map[uuid.UUID]domain.Attendance),
		makeups:       make(map[uuid.UUID]domain.MakeupEnrollment),
		compensations: make(map[uuid.UUID]domain.CompensationRequest),
		debtSessions:  make(map[debtSessionKey]domain.DebtSession),
		debtModules:   make(map[debtModuleKey]domain.DebtModule),
		titles:        make(map[uuid.UUID]domain.ModuleTitle),
		progress:      make(map[progressKey]domain.TitleProgress),
		idempotency:   make(map[string]domain.IdempotencyKey),
	}}
}

// Seed stores rows as-is. Rows with a nil id get a fresh one.
func (s *MemoryStore) Seed(rows ...interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.data
	for _, row := range rows {
		switch v := row.(type) {
		case domain.Student:
			d.students[v.Matricule] = v
		case domain.Professor:
			d.professors[v.Matricule] = v
		case domain.Group:
			v.ID = ensureID(v.ID)
			d.groups[v.ID] = v
		case domain.Section:
			v.ID = ensureID(v.ID)
			d.sections[v.ID] = v
		case domain.Semester:
			v.ID = ensureID(v.ID)
			d.semesters[v.ID] = v
		case domain.Module:
			v.ID = ensureID(v.ID)
			d.modules[v.ID] = v
		case domain.Room:
			v.ID = ensureID(v.ID)
			d.rooms[v.ID] = v
		case domain.DayTime:
			v.ID = ensureID(v.ID)
			d.dayTimes[v.ID] = v
		case domain.Session:
			v.ID = ensureID(v.ID)
			d.sessions[v.ID] = v
		case domain.SessionOccurrence:
			v.ID = ensureID(v.ID)
			d.occurrences[v.ID] = v
		case domain.Attendance:
			v.ID = ensureID(v.ID)
			d.attendances[v.ID] = v
		case domain.MakeupEnrollment:
			v.ID = ensureID(v.ID)
			d.makeups[v.ID] = v
		case domain.CompensationRequest:
			v.ID = ensureID(v.ID)
			d.compensations[v.ID] = v
		case domain.DebtSession:
			d.debtSessions[debtSessionKey{v.StudentID, v.SessionID}] = v
		case domain.DebtModule:
			d.debtModules[debtModuleKey{v.StudentID, v.ModuleID}] = v
		case domain.ModuleTitle:
			v.ID = ensureID(v.ID)
			d.titles[v.ID] = v
		case domain.TitleProgress:
			v.ID = ensureID(v.ID)
			d.progress[progressKey{v.TitleID, v.SessionID}] = v
		default:
			return fmt.Errorf("cannot seed value of type %T", row)
		}
	}
	return nil
}

func ensureID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

// Students exposes the store as a StudentRepository.
func (s *MemoryStore) Students() interfaces.StudentRepository {
	return memoryStudents{s}
}

// Professors exposes the store as a ProfessorRepository.
func (s *MemoryStore) Professors() interfaces.ProfessorRepository {
	return memoryProfessors{s}
}

// Idempotency exposes the store as an IdempotencyRepository.
func (s *MemoryStore) Idempotency() interfaces.IdempotencyRepository {
	return memoryIdempotency{s}
}

// MakeupEnrollments returns a copy of every makeup link, for inspection.
func (s *MemoryStore) MakeupEnrollments() []domain.MakeupEnrollment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.MakeupEnrollment, 0, len(s.data.makeups))
	for _, m := range s.data.makeups {
		out = append(out, m)
	}
	return out
}

// Attendance returns a copy of one attendance row.
func (s *MemoryStore) Attendance(id uuid.UUID) (domain.Attendance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.data.attendances[id]
	return a, ok
}

// --- shared lookups, callers hold the lock

func (d *memoryData) student(matricule string) (*domain.Student, bool) {
	st, ok := d.students[matricule]
	if !ok {
		return nil, false
	}
	if g, ok := d.groups[st.GroupID]; ok {
		st.SectionID = g.SectionID
	}
	return &st, true
}

func inScope(st *domain.Student, session domain.Session) bool {
	if session.GroupID != nil {
		return *session.GroupID == st.GroupID
	}
	return session.SectionID != nil && *session.SectionID == st.SectionID
}

// slot returns the day-time actually used by an occurrence.
func (d *memoryData) slot(o domain.SessionOccurrence, session domain.Session) domain.DayTime {
	if o.IsCompensation && o.CompensationTimeID != nil {
		if dt, ok := d.dayTimes[*o.CompensationTimeID]; ok {
			return dt
		}
	}
	return d.dayTimes[session.TimeID]
}

func (d *memoryData) roomName(o domain.SessionOccurrence, session domain.Session) string {
	if o.IsCompensation && o.CompensationRoomID != nil {
		if r, ok := d.rooms[*o.CompensationRoomID]; ok {
			return r.Name
		}
	}
	return d.rooms[session.RoomID].Name
}

func (d *memoryData) professorName(matricule string) string {
	p := d.professors[matricule]
	return p.FirstName + " " + p.LastName
}

func (d *memoryData) absence(a domain.Attendance) (domain.Absence, bool) {
	o, ok := d.occurrences[a.OccurrenceID]
	if !ok {
		return domain.Absence{}, false
	}
	session := d.sessions[o.SessionID]
	dt := d.slot(o, session)
	return domain.Absence{
		AttendanceID: a.ID,
		StudentID:    a.StudentID,
		OccurrenceID: o.ID,
		SessionID:    session.ID,
		ModuleID:     session.ModuleID,
		ModuleName:   d.modules[session.ModuleID].Name,
		SessionType:  session.Type,
		GroupID:      session.GroupID,
		SectionID:    session.SectionID,
		Date:         o.Date,
		Day:          dt.Day,
		StartTime:    dt.StartTime,
		EndTime:      dt.EndTime,
	}, true
}

func (d *memoryData) capacity(sessionID uuid.UUID) domain.Capacity {
	session := d.sessions[sessionID]
	c := domain.Capacity{SessionID: sessionID, RoomCapacity: d.rooms[session.RoomID].Capacity}

	for matricule := range d.students {
		st, _ := d.student(matricule)
		if inScope(st, session) {
			c.Roster++
		}
	}

	makeupStudents := make(map[string]bool)
	for _, m := range d.makeups {
		if d.occurrences[m.OccurrenceID].SessionID == sessionID {
			makeupStudents[m.StudentID] = true
		}
	}
	c.Makeups = len(makeupStudents)

	for key := range d.debtSessions {
		if key.sessionID == sessionID {
			c.Debts++
		}
	}
	return c
}

func (d *memoryData) resolution(attendanceID uuid.UUID) *domain.Resolution {
	for _, m := range d.makeups {
		if m.AttendanceID == attendanceID {
			return &domain.Resolution{Kind: domain.ResolutionMakeup, ReferenceID: m.ID, OccurrenceID: m.OccurrenceID}
		}
	}
	for _, cr := range d.compensations {
		if cr.AttendanceID == attendanceID && cr.Status != domain.CompensationRejected {
			return &domain.Resolution{Kind: domain.ResolutionCompensation, ReferenceID: cr.ID, OccurrenceID: cr.OccurrenceID, Status: cr.Status}
		}
	}
	if a, ok := d.attendances[attendanceID]; ok && a.IsMakeup {
		return &domain.Resolution{Kind: domain.ResolutionMarked, ReferenceID: a.ID, OccurrenceID: a.OccurrenceID}
	}
	return nil
}

func (d *memoryData) isAttending(studentID string, occurrenceID uuid.UUID) bool {
	o, ok := d.occurrences[occurrenceID]
	if !ok {
		return false
	}
	if st, ok := d.student(studentID); ok && inScope(st, d.sessions[o.SessionID]) {
		return true
	}
	for _, m := range d.makeups {
		if m.StudentID == studentID && m.OccurrenceID == occurrenceID {
			return true
		}
	}
	_, debt := d.debtSessions[debtSessionKey{studentID, o.SessionID}]
	return debt
}

func (d *memoryData) hasDebtSession(studentID string, moduleID uuid.UUID, sessionType domain.SessionType) bool {
	for key := range d.debtSessions {
		if key.studentID != studentID {
			continue
		}
		session := d.sessions[key.sessionID]
		if session.ModuleID == moduleID && session.Type == sessionType {
			return true
		}
	}
	return false
}

func (d *memoryData) titlesOf(moduleID uuid.UUID, sessionType domain.SessionType) []domain.ModuleTitle {
	titles := make([]domain.ModuleTitle, 0)
	for _, t := range d.titles {
		if t.ModuleID == moduleID && t.Type == sessionType {
			titles = append(titles, t)
		}
	}
	sort.Slice(titles, func(i, j int) bool {
		if titles[i].Order != titles[j].Order {
			return titles[i].Order < titles[j].Order
		}
		return titles[i].Name < titles[j].Name
	})
	return titles
}

// --- AbsenceRepository

func (s *MemoryStore) GetAbsence(ctx context.Context, studentID string, attendanceID uuid.UUID) (*domain.Absence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.data.attendances[attendanceID]
	if !ok || a.StudentID != studentID || a.Present {
		return nil, nil
	}
	absence, ok := s.data.absence(a)
	if !ok {
		return nil, nil
	}
	return &absence, nil
}

func (s *MemoryStore) ListAbsences(ctx context.Context, studentID string) ([]domain.Absence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	absences := []domain.Absence{}
	for _, a := range s.data.attendances {
		if a.StudentID != studentID || a.Present {
			continue
		}
		if absence, ok := s.data.absence(a); ok {
			absences = append(absences, absence)
		}
	}
	sort.Slice(absences, func(i, j int) bool {
		if !absences[i].Date.Equal(absences[j].Date) {
			return absences[i].Date.After(absences[j].Date)
		}
		return absences[i].StartTime < absences[j].StartTime
	})
	return absences, nil
}

func (s *MemoryStore) GetResolution(ctx context.Context, attendanceID uuid.UUID) (*domain.Resolution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.resolution(attendanceID), nil
}

func (s *MemoryStore) CountAttendance(ctx context.Context, studentID string, semesterID *uuid.UUID) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total, absent := 0, 0
	for _, a := range s.data.attendances {
		if a.StudentID != studentID {
			continue
		}
		o := s.data.occurrences[a.OccurrenceID]
		module := s.data.modules[s.data.sessions[o.SessionID].ModuleID]
		if semesterID != nil && module.SemesterID != *semesterID {
			continue
		}
		total++
		if !a.Present {
			absent++
		}
	}
	return total, absent, nil
}

// --- TimetableRepository

func (s *MemoryStore) GetSession(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.data.sessions[id]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

func (s *MemoryStore) ListBusySlots(ctx context.Context, studentID string, window domain.DateWindow) ([]domain.BusySlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.data
	st, known := d.student(studentID)
	madeUp := make(map[uuid.UUID]bool)
	for _, m := range d.makeups {
		if m.StudentID == studentID {
			madeUp[m.OccurrenceID] = true
		}
	}
	requested := make(map[uuid.UUID]bool)
	for _, cr := range d.compensations {
		if cr.Status != domain.CompensationRejected && d.attendances[cr.AttendanceID].StudentID == studentID {
			requested[cr.OccurrenceID] = true
		}
	}

	slots := []domain.BusySlot{}
	for _, o := range d.occurrences {
		if !window.Contains(o.Date) {
			continue
		}
		session := d.sessions[o.SessionID]
		slot := func(source domain.BusySource, dt domain.DayTime) {
			slots = append(slots, domain.BusySlot{
				Source:       source,
				OccurrenceID: o.ID,
				SessionID:    session.ID,
				ModuleName:   d.modules[session.ModuleID].Name,
				SessionType:  session.Type,
				Date:         o.Date,
				Day:          dt.Day,
				StartTime:    dt.StartTime,
				EndTime:      dt.EndTime,
			})
		}

		if known && inScope(st, session) {
			if !o.ProfAbsence {
				slot(domain.BusyTimetable, d.dayTimes[session.TimeID])
			} else if o.IsCompensation {
				slot(domain.BusyCompensation, d.slot(o, session))
			}
		}
		if o.Cancelled() {
			continue
		}
		if madeUp[o.ID] {
			slot(domain.BusyMakeup, d.slot(o, session))
		}
		if requested[o.ID] {
			slot(domain.BusyMakeup, d.slot(o, session))
		}
		if _, ok := d.debtSessions[debtSessionKey{studentID, session.ID}]; ok {
			slot(domain.BusyDebt, d.slot(o, session))
		}
	}
	return slots, nil
}

func (s *MemoryStore) ListCandidates(ctx context.Context, absence *domain.Absence, window domain.DateWindow) ([]domain.CandidateOccurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.data
	candidates := []domain.CandidateOccurrence{}
	for _, o := range d.occurrences {
		session := d.sessions[o.SessionID]
		if session.ModuleID != absence.ModuleID || session.Type != absence.SessionType || !session.Type.IsMakeupType() {
			continue
		}
		if session.ID == absence.SessionID {
			continue
		}
		if session.GroupID != nil && absence.GroupID != nil && *session.GroupID == *absence.GroupID {
			continue
		}
		if o.Cancelled() || !window.Contains(o.Date) {
			continue
		}

		dt := d.slot(o, session)
		var groupName string
		if session.GroupID != nil {
			groupName = d.groups[*session.GroupID].Name
		}
		candidates = append(candidates, domain.CandidateOccurrence{
			OccurrenceID:   o.ID,
			SessionID:      session.ID,
			ModuleID:       session.ModuleID,
			ModuleName:     d.modules[session.ModuleID].Name,
			SessionType:    session.Type,
			GroupID:        session.GroupID,
			GroupName:      groupName,
			SectionID:      session.SectionID,
			Date:           o.Date,
			Day:            dt.Day,
			StartTime:      dt.StartTime,
			EndTime:        dt.EndTime,
			RoomName:       d.roomName(o, session),
			ProfessorName:  d.professorName(session.ProfessorID),
			IsCompensation: o.IsCompensation,
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].Date.Equal(candidates[j].Date) {
			return candidates[i].Date.Before(candidates[j].Date)
		}
		return candidates[i].StartTime < candidates[j].StartTime
	})
	return candidates, nil
}

func (s *MemoryStore) NextModuleOccurrence(ctx context.Context, studentID string, moduleID uuid.UUID, after time.Time) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.data.student(studentID)
	if !ok {
		return nil, nil
	}
	dates := make([]time.Time, 0)
	for _, o := range s.data.occurrences {
		session := s.data.sessions[o.SessionID]
		if session.ModuleID == moduleID && inScope(st, session) {
			dates = append(dates, o.Date)
		}
	}
	return domain.NextSessionBound(after, dates), nil
}

func (s *MemoryStore) GetCapacities(ctx context.Context, sessionIDs []uuid.UUID) (map[uuid.UUID]domain.Capacity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	capacities := make(map[uuid.UUID]domain.Capacity, len(sessionIDs))
	for _, id := range sessionIDs {
		if _, ok := s.data.sessions[id]; ok {
			capacities[id] = s.data.capacity(id)
		}
	}
	return capacities, nil
}

func (s *MemoryStore) ListWeeklyCommitments(ctx context.Context, studentID string) ([]domain.WeeklyCommitment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.data
	commitments := []domain.WeeklyCommitment{}
	add := func(session domain.Session, source domain.BusySource) {
		dt := d.dayTimes[session.TimeID]
		commitments = append(commitments, domain.WeeklyCommitment{
			SessionID: session.ID,
			Source:    source,
			Day:       dt.Day,
			StartTime: dt.StartTime,
			EndTime:   dt.EndTime,
		})
	}

	if st, ok := d.student(studentID); ok {
		for _, session := range d.sessions {
			if inScope(st, session) {
				add(session, domain.BusyTimetable)
			}
		}
	}
	for key := range d.debtSessions {
		if key.studentID == studentID {
			add(d.sessions[key.sessionID], domain.BusyDebt)
		}
	}
	return commitments, nil
}

func (s *MemoryStore) ListProfessorSessions(ctx context.Context, professorID string) ([]domain.ProfessorSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.data
	sessions := []domain.ProfessorSession{}
	for _, session := range d.sessions {
		if session.ProfessorID != professorID {
			continue
		}
		var name string
		if session.GroupID != nil {
			name = d.groups[*session.GroupID].Name
		} else if session.SectionID != nil {
			name = d.sections[*session.SectionID].Name
		}
		dt := d.dayTimes[session.TimeID]
		sessions = append(sessions, domain.ProfessorSession{
			SessionID:   session.ID,
			ModuleID:    session.ModuleID,
			ModuleName:  d.modules[session.ModuleID].Name,
			SessionType: session.Type,
			GroupName:   name,
			Day:         dt.Day,
			StartTime:   dt.StartTime,
			EndTime:     dt.EndTime,
		})
	}
	sort.Slice(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		if a.ModuleName != b.ModuleName {
			return a.ModuleName < b.ModuleName
		}
		if a.SessionType != b.SessionType {
			return a.SessionType < b.SessionType
		}
		return a.GroupName < b.GroupName
	})
	return sessions, nil
}

// --- DebtRepository

func (s *MemoryStore) ListDebtModules(ctx context.Context, studentID string) ([]domain.DebtModuleView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.data
	type row struct {
		view  domain.DebtModuleView
		start time.Time
	}
	rows := make([]row, 0)
	for key := range d.debtModules {
		if key.studentID != studentID {
			continue
		}
		module := d.modules[key.moduleID]
		semester := d.semesters[module.SemesterID]
		rows = append(rows, row{
			view:  domain.DebtModuleView{ModuleID: module.ID, ModuleName: module.Name, SemesterCode: semester.Code},
			start: semester.StartDate,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].start.Equal(rows[j].start) {
			return rows[i].start.Before(rows[j].start)
		}
		return rows[i].view.ModuleName < rows[j].view.ModuleName
	})

	modules := make([]domain.DebtModuleView, 0, len(rows))
	for _, r := range rows {
		modules = append(modules, r.view)
	}
	return modules, nil
}

func (s *MemoryStore) HasDebtSession(ctx context.Context, studentID string, moduleID uuid.UUID, sessionType domain.SessionType) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.hasDebtSession(studentID, moduleID, sessionType), nil
}

func (s *MemoryStore) ListDebtCandidates(ctx context.Context, studentID string, moduleID uuid.UUID, sessionType domain.SessionType) ([]domain.DebtCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.data
	st, ok := d.student(studentID)
	if !ok {
		return []domain.DebtCandidate{}, nil
	}

	candidates := []domain.DebtCandidate{}
	for _, session := range d.sessions {
		if session.ModuleID != moduleID || session.Type != sessionType || inScope(st, session) {
			continue
		}
		dt := d.dayTimes[session.TimeID]
		candidates = append(candidates, domain.DebtCandidate{
			SessionID:     session.ID,
			SessionType:   session.Type,
			ModuleName:    d.modules[session.ModuleID].Name,
			Day:           dt.Day,
			StartTime:     dt.StartTime,
			EndTime:       dt.EndTime,
			RoomName:      d.rooms[session.RoomID].Name,
			ProfessorName: d.professorName(session.ProfessorID),
		})
	}
	return candidates, nil
}

// --- TitleRepository

func (s *MemoryStore) ListTitles(ctx context.Context, moduleID uuid.UUID, sessionType domain.SessionType) ([]domain.ModuleTitle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.titlesOf(moduleID, sessionType), nil
}

func (s *MemoryStore) GetTitle(ctx context.Context, id uuid.UUID) (*domain.ModuleTitle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	title, ok := s.data.titles[id]
	if !ok {
		return nil, nil
	}
	return &title, nil
}

func (s *MemoryStore) checkSiblingOrder(title *domain.ModuleTitle) error {
	for _, t := range s.data.titles {
		if t.ID == title.ID || t.ModuleID != title.ModuleID || t.Type != title.Type {
			continue
		}
		sameParent := (t.ParentID == nil && title.ParentID == nil) ||
			(t.ParentID != nil && title.ParentID != nil && *t.ParentID == *title.ParentID)
		if sameParent && t.Order == title.Order {
			return fmt.Errorf("%w: sibling order %d already taken", domain.ErrConflictingWrite, title.Order)
		}
	}
	return nil
}

func (s *MemoryStore) CreateTitle(ctx context.Context, title *domain.ModuleTitle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	title.ID = ensureID(title.ID)
	if err := s.checkSiblingOrder(title); err != nil {
		return err
	}
	if title.CreatedAt.IsZero() {
		title.CreatedAt = time.Now()
	}
	s.data.titles[title.ID] = *title
	return nil
}

func (s *MemoryStore) UpdateTitle(ctx context.Context, title *domain.ModuleTitle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.titles[title.ID]; !ok {
		return domain.ErrNotFound
	}
	if err := s.checkSiblingOrder(title); err != nil {
		return err
	}
	s.data.titles[title.ID] = *title
	return nil
}

func (s *MemoryStore) DeleteTitles(ctx context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	remove := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		remove[id] = true
		delete(s.data.titles, id)
	}
	for key := range s.data.progress {
		if remove[key.titleID] {
			delete(s.data.progress, key)
		}
	}
	return nil
}

func (s *MemoryStore) CompletedTitles(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	completed := make(map[uuid.UUID]bool)
	for key, p := range s.data.progress {
		if key.sessionID == sessionID && p.IsCompleted {
			completed[key.titleID] = true
		}
	}
	return completed, nil
}

func (s *MemoryStore) SetProgress(ctx context.Context, sessionID uuid.UUID, titleIDs []uuid.UUID, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, id := range titleIDs {
		key := progressKey{id, sessionID}
		p, ok := s.data.progress[key]
		if !ok {
			p = domain.TitleProgress{ID: uuid.New(), TitleID: id, SessionID: sessionID}
		}
		p.IsCompleted = completed
		p.UpdatedAt = now
		s.data.progress[key] = p
	}
	return nil
}

func (s *MemoryStore) GetProgress(ctx context.Context, sessionIDs []uuid.UUID) (map[uuid.UUID]domain.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	progress := make(map[uuid.UUID]domain.Progress, len(sessionIDs))
	for _, id := range sessionIDs {
		session, ok := s.data.sessions[id]
		if !ok {
			continue
		}
		titles := s.data.titlesOf(session.ModuleID, session.Type)
		completed := make(map[uuid.UUID]bool)
		for _, t := range titles {
			if p, ok := s.data.progress[progressKey{t.ID, id}]; ok && p.IsCompleted {
				completed[t.ID] = true
			}
		}
		progress[id] = domain.ComputeProgress(titles, completed)
	}
	return progress, nil
}

func (s *MemoryStore) ListSessionIDs(ctx context.Context, moduleID uuid.UUID, sessionType domain.SessionType) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]uuid.UUID, 0)
	for _, session := range s.data.sessions {
		if session.ModuleID == moduleID && session.Type == sessionType {
			ids = append(ids, session.ID)
		}
	}
	return ids, nil
}

// --- SchedulingStore

func (s *MemoryStore) RunInTx(ctx context.Context, fn func(tx interfaces.SchedulingTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&memoryTx{d: s.data}); err != nil {
		s.data = snapshot
		return err
	}
	if err := ctx.Err(); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

type memoryTx struct {
	d *memoryData
}

func (t *memoryTx) GetOccurrence(ctx context.Context, id uuid.UUID) (*domain.SessionOccurrence, error) {
	o, ok := t.d.occurrences[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (t *memoryTx) GetSession(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	session, ok := t.d.sessions[id]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

func (t *memoryTx) LockSession(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	return t.GetSession(ctx, id)
}

func (t *memoryTx) LockAttendance(ctx context.Context, attendanceID uuid.UUID, studentID string) (*domain.Attendance, error) {
	a, ok := t.d.attendances[attendanceID]
	if !ok || a.StudentID != studentID {
		return nil, nil
	}
	return &a, nil
}

func (t *memoryTx) GetStudent(ctx context.Context, matricule string) (*domain.Student, error) {
	st, ok := t.d.student(matricule)
	if !ok {
		return nil, nil
	}
	return st, nil
}

func (t *memoryTx) Resolution(ctx context.Context, attendanceID uuid.UUID) (*domain.Resolution, error) {
	return t.d.resolution(attendanceID), nil
}

func (t *memoryTx) IsAttending(ctx context.Context, studentID string, occurrenceID uuid.UUID) (bool, error) {
	return t.d.isAttending(studentID, occurrenceID), nil
}

func (t *memoryTx) Capacity(ctx context.Context, sessionID uuid.UUID) (domain.Capacity, error) {
	return t.d.capacity(sessionID), nil
}

func (t *memoryTx) CreateMakeup(ctx context.Context, makeup *domain.MakeupEnrollment) error {
	for _, m := range t.d.makeups {
		if m.AttendanceID == makeup.AttendanceID ||
			(m.StudentID == makeup.StudentID && m.OccurrenceID == makeup.OccurrenceID) {
			return fmt.Errorf("%w: makeup enrollment", domain.ErrConflictingWrite)
		}
	}
	makeup.ID = ensureID(makeup.ID)
	if makeup.CreatedAt.IsZero() {
		makeup.CreatedAt = time.Now()
	}
	t.d.makeups[makeup.ID] = *makeup
	return nil
}

func (t *memoryTx) MarkMadeUp(ctx context.Context, attendanceID uuid.UUID) error {
	a, ok := t.d.attendances[attendanceID]
	if !ok {
		return domain.ErrNotFound
	}
	a.IsMakeup = true
	t.d.attendances[attendanceID] = a
	return nil
}

func (t *memoryTx) CreateCompensationRequest(ctx context.Context, req *domain.CompensationRequest) error {
	for _, cr := range t.d.compensations {
		if cr.AttendanceID == req.AttendanceID && cr.Status != domain.CompensationRejected {
			return fmt.Errorf("%w: compensation request", domain.ErrConflictingWrite)
		}
	}
	req.ID = ensureID(req.ID)
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	t.d.compensations[req.ID] = *req
	return nil
}

func (t *memoryTx) LockCompensationRequest(ctx context.Context, id uuid.UUID) (*domain.CompensationRequest, error) {
	cr, ok := t.d.compensations[id]
	if !ok {
		return nil, nil
	}
	return &cr, nil
}

func (t *memoryTx) UpdateCompensationRequest(ctx context.Context, req *domain.CompensationRequest) error {
	cr, ok := t.d.compensations[req.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cr.Status = req.Status
	cr.DecidedAt = req.DecidedAt
	t.d.compensations[req.ID] = cr
	return nil
}

func (t *memoryTx) HasDebtSession(ctx context.Context, studentID string, moduleID uuid.UUID, sessionType domain.SessionType) (bool, error) {
	return t.d.hasDebtSession(studentID, moduleID, sessionType), nil
}

func (t *memoryTx) CreateDebtSession(ctx context.Context, debt *domain.DebtSession) error {
	key := debtSessionKey{debt.StudentID, debt.SessionID}
	if _, exists := t.d.debtSessions[key]; exists {
		return fmt.Errorf("%w: debt session", domain.ErrConflictingWrite)
	}
	if debt.CreatedAt.IsZero() {
		debt.CreatedAt = time.Now()
	}
	t.d.debtSessions[key] = *debt
	return nil
}

// --- adapters

type memoryStudents struct{ s *MemoryStore }

func (m memoryStudents) GetByMatricule(ctx context.Context, matricule string) (*domain.Student, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	st, ok := m.s.data.student(matricule)
	if !ok {
		return nil, nil
	}
	return st, nil
}

type memoryProfessors struct{ s *MemoryStore }

func (m memoryProfessors) GetByMatricule(ctx context.Context, matricule string) (*domain.Professor, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	p, ok := m.s.data.professors[matricule]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m memoryProfessors) GetByEmail(ctx context.Context, email string) (*domain.Professor, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	for _, p := range m.s.data.professors {
		if strings.EqualFold(p.Email, email) {
			return &p, nil
		}
	}
	return nil, nil
}

type memoryIdempotency struct{ s *MemoryStore }

func (m memoryIdempotency) Create(ctx context.Context, key *domain.IdempotencyKey) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, exists := m.s.data.idempotency[key.Key]; exists {
		return fmt.Errorf("%w: idempotency key %s", domain.ErrConflictingWrite, key.Key)
	}
	m.s.data.idempotency[key.Key] = *key
	return nil
}

func (m memoryIdempotency) GetByKey(ctx context.Context, key string) (*domain.IdempotencyKey, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	k, ok := m.s.data.idempotency[key]
	if !ok {
		return nil, nil
	}
	return &k, nil
}

func (m memoryIdempotency) Delete(ctx context.Context, key string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	delete(m.s.data.idempotency, key)
	return nil
}

func (m memoryIdempotency) DeleteExpired(ctx context.Context) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	for key, k := range m.s.data.idempotency {
		if k.IsExpired() {
			delete(m.s.data.idempotency, key)
		}
	}
	return nil
}
