package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"academic-scheduler/internal/api/handlers"
	"academic-scheduler/internal/auth"
	"academic-scheduler/internal/config"
	domain "academic-scheduler/internal/domain/scheduling"
	"academic-scheduler/internal/infrastructure/cache"
	"academic-scheduler/internal/infrastructure/repository"
	"academic-scheduler/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type fixture struct {
	router     *gin.Engine
	store      *repository.MemoryStore
	absenceID  uuid.UUID
	targetID   uuid.UUID
	moduleID   uuid.UUID
	g1Session  uuid.UUID
	laterOccID uuid.UUID
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  json.RawMessage `json:"errors"`
}

func newFixture(t *testing.T, authEnabled bool) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := auth.HashPassword("s3cret")
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	store := repository.NewMemoryStore()
	section := domain.Section{ID: uuid.New(), Name: "A"}
	g1 := domain.Group{ID: uuid.New(), Name: "G1", SectionID: section.ID}
	g2 := domain.Group{ID: uuid.New(), Name: "G2", SectionID: section.ID}
	semester := domain.Semester{ID: uuid.New(), Code: "S2-2025", StartDate: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)}
	module := domain.Module{ID: uuid.New(), Name: "Networks", SemesterID: semester.ID}
	room := domain.Room{ID: uuid.New(), Name: "R1", Capacity: 10}
	sunday := domain.DayTime{ID: uuid.New(), Day: "sunday", StartTime: "08:00", EndTime: "09:30"}
	monday := domain.DayTime{ID: uuid.New(), Day: "monday", StartTime: "10:00", EndTime: "11:30"}
	own := domain.Session{ID: uuid.New(), ModuleID: module.ID, Type: domain.SessionTypeDirected, RoomID: room.ID, ProfessorID: "P001", TimeID: sunday.ID, GroupID: &g1.ID}
	other := domain.Session{ID: uuid.New(), ModuleID: module.ID, Type: domain.SessionTypeDirected, RoomID: room.ID, ProfessorID: "P002", TimeID: monday.ID, GroupID: &g2.ID}
	missed := domain.SessionOccurrence{ID: uuid.New(), SessionID: own.ID, Date: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)}
	next := domain.SessionOccurrence{ID: uuid.New(), SessionID: own.ID, Date: time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)}
	target := domain.SessionOccurrence{ID: uuid.New(), SessionID: other.ID, Date: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)}
	later := domain.SessionOccurrence{ID: uuid.New(), SessionID: other.ID, Date: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)}
	absence := domain.Attendance{ID: uuid.New(), StudentID: "S001", OccurrenceID: missed.ID}

	if err := store.Seed(section, g1, g2, semester, module, room, sunday, monday, own, other, missed, next, target, later, absence,
		domain.Student{Matricule: "S001", FirstName: "Sam", LastName: "One", GroupID: g1.ID, PasswordHash: hash},
		domain.Student{Matricule: "S002", FirstName: "Sia", LastName: "Two", GroupID: g1.ID, PasswordHash: hash},
		domain.Professor{Matricule: "P001", FirstName: "Ada", LastName: "Byron", Email: "ada@univ.test", PasswordHash: hash},
		domain.Professor{Matricule: "P002", FirstName: "Alan", LastName: "Turing", Email: "alan@univ.test", PasswordHash: hash},
	); err != nil {
		t.Fatalf("Failed to seed: %v", err)
	}

	cfg := &config.Config{
		App:  config.AppConfig{Name: "academic-scheduler", Version: "test", Environment: "test"},
		Auth: config.AuthConfig{Enabled: authEnabled, JWTSecret: "test-secret", JWTIssuer: "academic-scheduler", TokenTTL: 5},
	}

	policy := domain.DefaultPolicy()
	busy := service.NewBusyTimeAggregator(store)
	progress := service.NewProgressService(store, store, cache.NewMemoryCache(), time.Minute)
	services := Services{
		Makeup:       service.NewMakeupService(store.Students(), store, store, store, busy, progress, policy),
		Attendance:   service.NewAttendanceService(store.Students(), store, progress),
		Schedule:     service.NewScheduleService(store.Students(), busy),
		Debt:         service.NewDebtService(store.Students(), store, store, store, policy),
		Compensation: service.NewCompensationService(store),
		Progress:     progress,
		Auth:         service.NewAuthService(store.Students(), store.Professors(), auth.BcryptVerifier{}, cfg.Auth),
		Idempotency:  service.NewIdempotencyService(store.Idempotency()),
		HealthChecks: map[string]handlers.HealthCheckFunc{
			"database": func(ctx context.Context) error { return nil },
		},
	}

	return &fixture{
		router:     NewRouter(cfg, services),
		store:      store,
		absenceID:  absence.ID,
		targetID:   target.ID,
		moduleID:   module.ID,
		g1Session:  own.ID,
		laterOccID: later.ID,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, env
}

func TestEligibleSessionsEndpoint(t *testing.T) {
	f := newFixture(t, false)

	w, env := f.do(t, http.MethodGet, "/api/v1/students/S001/absences/"+f.absenceID.String()+"/eligible-sessions", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var report domain.EligibilityReport
	if err := json.Unmarshal(env.Data, &report); err != nil {
		t.Fatalf("Failed to decode report: %v", err)
	}
	if len(report.EligibleSessions) != 1 || report.EligibleSessions[0].OccurrenceID != f.targetID {
		t.Errorf("Expected the G2 occurrence to be eligible, got %+v", report.EligibleSessions)
	}
	if report.EligibleSessions[0].Date != "2025-03-03" || report.EligibleSessions[0].StartTime != "10:00" {
		t.Errorf("Expected 2025-03-03 10:00, got %s %s", report.EligibleSessions[0].Date, report.EligibleSessions[0].StartTime)
	}

	w, _ = f.do(t, http.MethodGet, "/api/v1/students/S001/absences/not-a-uuid/eligible-sessions", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for a bad id, got %d", w.Code)
	}

	w, _ = f.do(t, http.MethodGet, "/api/v1/students/S001/absences/"+uuid.New().String()+"/eligible-sessions", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestEnrollEndpoint(t *testing.T) {
	f := newFixture(t, false)
	body := domain.EnrollRequest{StudentID: "S001", AttendanceID: f.absenceID, OccurrenceID: f.targetID}
	key := map[string]string{"Idempotency-Key": "enroll-1"}

	w, env := f.do(t, http.MethodPost, "/api/v1/makeup/enroll", body, key)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var result domain.EnrollmentResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}
	if result.Status != domain.StatusEnrolled || result.MakeupID == nil {
		t.Errorf("Expected Enrolled with a makeup id, got %+v", result)
	}
	first := w.Body.String()

	w, _ = f.do(t, http.MethodPost, "/api/v1/makeup/enroll", body, key)
	if w.Code != http.StatusCreated {
		t.Errorf("Expected the replayed status 201, got %d", w.Code)
	}
	if w.Header().Get("Idempotent-Replayed") != "true" {
		t.Error("Expected the response to be replayed")
	}
	if w.Body.String() != first {
		t.Errorf("Expected the same body, got %s", w.Body.String())
	}
	if len(f.store.MakeupEnrollments()) != 1 {
		t.Errorf("Expected 1 makeup enrollment, got %d", len(f.store.MakeupEnrollments()))
	}

	changed := body
	changed.OccurrenceID = f.laterOccID
	w, _ = f.do(t, http.MethodPost, "/api/v1/makeup/enroll", changed, key)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422 for a reused key, got %d", w.Code)
	}

	w, env = f.do(t, http.MethodPost, "/api/v1/makeup/enroll", changed, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected status 409, got %d: %s", w.Code, w.Body.String())
	}
	var rejection struct {
		Reason     domain.ConflictReason `json:"reason"`
		Resolution *domain.Resolution    `json:"resolution"`
	}
	if err := json.Unmarshal(env.Data, &rejection); err != nil {
		t.Fatalf("Failed to decode rejection: %v", err)
	}
	if rejection.Reason != domain.ReasonAlreadyResolved || rejection.Resolution == nil {
		t.Errorf("Expected already_resolved with its resolution, got %+v", rejection)
	}

	w, env = f.do(t, http.MethodGet, "/api/v1/students/S001/absences/"+f.absenceID.String()+"/eligible-sessions", nil, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 for a resolved absence, got %d", w.Code)
	}
	var report domain.EligibilityReport
	if err := json.Unmarshal(env.Data, &report); err != nil {
		t.Fatalf("Failed to decode report: %v", err)
	}
	if report.Resolution == nil || report.Resolution.Kind != domain.ResolutionMakeup {
		t.Errorf("Expected the makeup resolution, got %+v", report.Resolution)
	}
}

func TestEnrollValidation(t *testing.T) {
	f := newFixture(t, false)

	w, env := f.do(t, http.MethodPost, "/api/v1/makeup/enroll", map[string]string{"student_id": "S001"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}
	if env.Message != "Validation failed" {
		t.Errorf("Expected validation failure, got %q", env.Message)
	}

	w, _ = f.do(t, http.MethodPost, "/api/v1/makeup/enroll", domain.EnrollRequest{
		StudentID:    "S001",
		AttendanceID: f.absenceID,
		OccurrenceID: uuid.New(),
	}, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for an unknown occurrence, got %d", w.Code)
	}
}

func TestStudentEndpoints(t *testing.T) {
	f := newFixture(t, false)

	w, _ := f.do(t, http.MethodGet, "/api/v1/students/S001/absences", nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for absences, got %d", w.Code)
	}

	w, env := f.do(t, http.MethodGet, "/api/v1/students/S001/absence-rate", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for absence rate, got %d", w.Code)
	}
	var rate map[string]int
	if err := json.Unmarshal(env.Data, &rate); err != nil {
		t.Fatalf("Failed to decode rate: %v", err)
	}
	if rate["absence_rate"] != 100 {
		t.Errorf("Expected absence rate 100, got %d", rate["absence_rate"])
	}

	w, _ = f.do(t, http.MethodGet, "/api/v1/students/S001/schedule?week_offset=abc", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for a bad offset, got %d", w.Code)
	}
	w, _ = f.do(t, http.MethodGet, "/api/v1/students/S999/schedule", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for an unknown student, got %d", w.Code)
	}

	w, _ = f.do(t, http.MethodGet, "/api/v1/students/S001/debt-sessions/available/"+f.moduleID.String()+"/dw", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for a module that is not a debt, got %d", w.Code)
	}
}

func TestTitleEndpoints(t *testing.T) {
	f := newFixture(t, false)

	w, env := f.do(t, http.MethodPost, "/api/v1/titles", domain.CreateTitleRequest{
		ModuleID: f.moduleID,
		Type:     domain.SessionTypeDirected,
		Name:     "Chapter A",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var title domain.ModuleTitle
	if err := json.Unmarshal(env.Data, &title); err != nil {
		t.Fatalf("Failed to decode title: %v", err)
	}

	w, _ = f.do(t, http.MethodPost, "/api/v1/titles", map[string]interface{}{
		"module_id":  f.moduleID,
		"type":       "lab",
		"title_name": "Bad",
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for an unknown type, got %d", w.Code)
	}

	w, _ = f.do(t, http.MethodPost, "/api/v1/professors/P002/title-progress", domain.ProgressRequest{
		SessionID:   f.g1Session,
		TitleID:     title.ID,
		IsCompleted: true,
	}, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for another professor's session, got %d", w.Code)
	}

	w, env = f.do(t, http.MethodPost, "/api/v1/professors/P001/title-progress", domain.ProgressRequest{
		SessionID:   f.g1Session,
		TitleID:     title.ID,
		IsCompleted: true,
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var progress domain.SessionProgress
	if err := json.Unmarshal(env.Data, &progress); err != nil {
		t.Fatalf("Failed to decode progress: %v", err)
	}
	if progress.Percentage != 100 {
		t.Errorf("Expected 100%%, got %d", progress.Percentage)
	}

	w, _ = f.do(t, http.MethodGet, "/api/v1/modules/"+f.moduleID.String()+"/titles/dw", nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for the title forest, got %d", w.Code)
	}

	w, _ = f.do(t, http.MethodDelete, "/api/v1/titles/"+title.ID.String(), nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 on delete, got %d", w.Code)
	}
	w, _ = f.do(t, http.MethodDelete, "/api/v1/titles/"+title.ID.String(), nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 on a second delete, got %d", w.Code)
	}
}

func TestAuthEnabled(t *testing.T) {
	f := newFixture(t, true)

	w, _ := f.do(t, http.MethodGet, "/api/v1/students/S001/absences", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without a token, got %d", w.Code)
	}

	w, _ = f.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"identifier": "S001", "password": "nope"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for a wrong password, got %d", w.Code)
	}

	w, env := f.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"identifier": "S001", "password": "s3cret"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var token service.TokenResponse
	if err := json.Unmarshal(env.Data, &token); err != nil {
		t.Fatalf("Failed to decode token: %v", err)
	}
	bearer := map[string]string{"Authorization": "Bearer " + token.AccessToken}

	w, _ = f.do(t, http.MethodGet, "/api/v1/students/S001/absences", nil, bearer)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 with a token, got %d", w.Code)
	}
	w, _ = f.do(t, http.MethodGet, "/api/v1/students/S002/absences", nil, bearer)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for another student, got %d", w.Code)
	}
	w, _ = f.do(t, http.MethodPost, "/api/v1/makeup/enroll", domain.EnrollRequest{
		StudentID:    "S002",
		AttendanceID: f.absenceID,
		OccurrenceID: f.targetID,
	}, bearer)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 when enrolling for another student, got %d", w.Code)
	}
	w, _ = f.do(t, http.MethodPost, "/api/v1/titles", domain.CreateTitleRequest{
		ModuleID: f.moduleID,
		Type:     domain.SessionTypeDirected,
		Name:     "Chapter A",
	}, bearer)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for a student editing titles, got %d", w.Code)
	}

	w, _ = f.do(t, http.MethodGet, "/api/v1/students/S001/absences", nil, map[string]string{"Authorization": "Bearer garbage"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for a bad token, got %d", w.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t, false)

	w, _ := f.do(t, http.MethodGet, "/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	f.router = NewRouter(&config.Config{}, Services{
		HealthChecks: map[string]handlers.HealthCheckFunc{
			"cache": func(ctx context.Context) error { return errors.New("connection refused") },
		},
	})
	w, _ = f.do(t, http.MethodGet, "/ready", nil, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}
