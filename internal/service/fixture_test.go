package service

import (
	"testing"
	"time"

	domain "academic-scheduler/internal/domain/scheduling"
	"academic-scheduler/internal/infrastructure/cache"
	"academic-scheduler/internal/infrastructure/repository"

	"github.com/google/uuid"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// scenario is one section with three groups. Student S001 (group G1) missed the dw
// session of Networks on Sunday 2 March; G2 teaches it on Monday and G3 on Tuesday.
//
//	G1: 3/5 titles completed, the student's own group
//	G2: 4/5 completed and its room is full
//	G3: 1/5 completed and two seats left
type scenario struct {
	t     *testing.T
	store *repository.MemoryStore
	cache *cache.MemoryCache

	section  domain.Section
	groups   map[string]domain.Group
	module   domain.Module
	rooms    map[string]domain.Room
	sessions map[string]domain.Session
	occ      map[string]domain.SessionOccurrence
	titles   []domain.ModuleTitle

	absence  domain.Attendance
	absence2 domain.Attendance

	policy   domain.Policy
	busy     *BusyTimeAggregator
	progress *ProgressService
	makeup   *MakeupService
}

func newScenario(t *testing.T) *scenario {
	t.Helper()

	s := &scenario{
		t:        t,
		store:    repository.NewMemoryStore(),
		cache:    cache.NewMemoryCache(),
		groups:   make(map[string]domain.Group),
		rooms:    make(map[string]domain.Room),
		sessions: make(map[string]domain.Session),
		occ:      make(map[string]domain.SessionOccurrence),
		policy:   domain.DefaultPolicy(),
	}

	semester := domain.Semester{ID: uuid.New(), Code: "S2-2025", StartDate: day(2025, 2, 1), EndDate: day(2025, 6, 30)}
	s.section = domain.Section{ID: uuid.New(), Name: "A"}
	s.module = domain.Module{ID: uuid.New(), Name: "Networks", SemesterID: semester.ID}
	s.seed(semester, s.section, s.module,
		domain.Professor{Matricule: "P001", FirstName: "Ada", LastName: "Byron", Email: "ada@univ.test"},
		domain.Professor{Matricule: "P002", FirstName: "Alan", LastName: "Turing", Email: "alan@univ.test"},
	)

	for _, name := range []string{"G1", "G2", "G3"} {
		g := domain.Group{ID: uuid.New(), Name: name, SectionID: s.section.ID}
		s.groups[name] = g
		s.seed(g)
	}

	s.seed(
		domain.Student{Matricule: "S001", FirstName: "Sam", LastName: "One", GroupID: s.groups["G1"].ID},
		domain.Student{Matricule: "S002", FirstName: "Sia", LastName: "Two", GroupID: s.groups["G1"].ID},
		domain.Student{Matricule: "S010", FirstName: "Tom", LastName: "Ten", GroupID: s.groups["G2"].ID},
		domain.Student{Matricule: "S020", FirstName: "Tia", LastName: "Twenty", GroupID: s.groups["G3"].ID},
	)

	s.rooms["R1"] = domain.Room{ID: uuid.New(), Name: "R1", Capacity: 30}
	s.rooms["R2"] = domain.Room{ID: uuid.New(), Name: "R2", Capacity: 1}
	s.rooms["R3"] = domain.Room{ID: uuid.New(), Name: "R3", Capacity: 3}
	s.seed(s.rooms["R1"], s.rooms["R2"], s.rooms["R3"])

	s.addSession("G1", domain.SessionTypeDirected, "P001", "R1", "sunday", "08:00", "09:30")
	s.addSession("G2", domain.SessionTypeDirected, "P002", "R2", "monday", "10:00", "11:30")
	s.addSession("G3", domain.SessionTypeDirected, "P002", "R3", "tuesday", "10:00", "11:30")

	s.addOccurrence("G1", "G1", day(2025, 3, 2))
	s.addOccurrence("G1-next", "G1", day(2025, 3, 9))
	s.addOccurrence("G2", "G2", day(2025, 3, 3))
	s.addOccurrence("G3", "G3", day(2025, 3, 4))
	s.addOccurrence("G3-late", "G3", day(2025, 3, 11))

	for i := 0; i < 5; i++ {
		title := domain.ModuleTitle{
			ID:       uuid.New(),
			ModuleID: s.module.ID,
			Type:     domain.SessionTypeDirected,
			Name:     "Chapter " + string(rune('A'+i)),
			Order:    i,
		}
		s.titles = append(s.titles, title)
		s.seed(title)
	}
	s.complete("G1", 3)
	s.complete("G2", 4)
	s.complete("G3", 1)

	s.absence = domain.Attendance{ID: uuid.New(), StudentID: "S001", OccurrenceID: s.occ["G1"].ID}
	s.absence2 = domain.Attendance{ID: uuid.New(), StudentID: "S002", OccurrenceID: s.occ["G1"].ID}
	s.seed(s.absence, s.absence2)

	s.busy = NewBusyTimeAggregator(s.store)
	s.progress = NewProgressService(s.store, s.store, s.cache, time.Minute)
	s.makeup = NewMakeupService(s.store.Students(), s.store, s.store, s.store, s.busy, s.progress, s.policy)
	return s
}

func (s *scenario) seed(rows ...interface{}) {
	s.t.Helper()
	if err := s.store.Seed(rows...); err != nil {
		s.t.Fatalf("Failed to seed: %v", err)
	}
}

func (s *scenario) addSession(group string, sessionType domain.SessionType, professor, room, weekday, start, end string) domain.Session {
	dt := domain.DayTime{ID: uuid.New(), Day: weekday, StartTime: start, EndTime: end}
	groupID := s.groups[group].ID
	session := domain.Session{
		ID:          uuid.New(),
		ModuleID:    s.module.ID,
		Type:        sessionType,
		RoomID:      s.rooms[room].ID,
		ProfessorID: professor,
		TimeID:      dt.ID,
		GroupID:     &groupID,
	}
	s.seed(dt, session)
	s.sessions[group+string(sessionType)] = session
	if sessionType == domain.SessionTypeDirected {
		s.sessions[group] = session
	}
	return session
}

func (s *scenario) addOccurrence(name, session string, date time.Time) domain.SessionOccurrence {
	o := domain.SessionOccurrence{ID: uuid.New(), SessionID: s.sessions[session].ID, Date: date}
	s.seed(o)
	s.occ[name] = o
	return o
}

func (s *scenario) complete(session string, n int) {
	for _, title := range s.titles[:n] {
		s.seed(domain.TitleProgress{TitleID: title.ID, SessionID: s.sessions[session].ID, IsCompleted: true})
	}
}
