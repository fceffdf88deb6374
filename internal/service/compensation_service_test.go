package service

import (
	"context"
	"errors"
	"testing"

	domain "academic-scheduler/internal/domain/scheduling"

	"github.com/google/uuid"
)

// requestPracticeCompensation books the G2 pw occurrence for the pw absence of S001.
func requestPracticeCompensation(t *testing.T, s *scenario) (domain.Attendance, *domain.EnrollmentResult) {
	t.Helper()

	s.addSession("G1", domain.SessionTypePractice, "P001", "R1", "sunday", "13:00", "14:30")
	s.addSession("G2", domain.SessionTypePractice, "P002", "R2", "wednesday", "13:00", "14:30")
	missed := s.addOccurrence("G1pw", "G1pw", day(2025, 3, 2))
	s.addOccurrence("G2pw", "G2pw", day(2025, 3, 5))

	absence := domain.Attendance{ID: uuid.New(), StudentID: "S001", OccurrenceID: missed.ID}
	s.seed(absence)

	report, err := s.makeup.ResolveEligibleSessions(context.Background(), "S001", absence.ID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(report.EligibleSessions) != 1 {
		t.Fatalf("Expected 1 eligible pw session, got %d", len(report.EligibleSessions))
	}
	eligible := report.EligibleSessions[0]
	if !eligible.RequiresReview {
		t.Error("Expected pw session to require review")
	}
	if eligible.AvailableSeats != nil {
		t.Errorf("Expected no seat count for an exempt pw session, got %d", *eligible.AvailableSeats)
	}

	result, err := s.makeup.Enroll(context.Background(), &domain.EnrollRequest{
		StudentID:    "S001",
		AttendanceID: absence.ID,
		OccurrenceID: s.occ["G2pw"].ID,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return absence, result
}

func TestEnrollPracticeWorkCreatesRequest(t *testing.T) {
	s := newScenario(t)
	absence, result := requestPracticeCompensation(t, s)

	if result.Status != domain.StatusRequested {
		t.Errorf("Expected status Requested, got %s", result.Status)
	}
	if result.CompensationRequestID == nil {
		t.Fatal("Expected a compensation request id")
	}
	if result.CompensationStatus != domain.CompensationAwaiting {
		t.Errorf("Expected status %q, got %q", domain.CompensationAwaiting, result.CompensationStatus)
	}

	attendance, _ := s.store.Attendance(absence.ID)
	if attendance.IsMakeup {
		t.Error("Expected the absence to stay open until the request is approved")
	}
	if len(s.store.MakeupEnrollments()) != 0 {
		t.Error("Expected no makeup link for a pw request")
	}

	_, err := s.makeup.ResolveEligibleSessions(context.Background(), "S001", absence.ID)
	var resolved *domain.AlreadyResolvedError
	if !errors.As(err, &resolved) || resolved.Resolution.Kind != domain.ResolutionCompensation {
		t.Errorf("Expected compensation resolution, got %v", err)
	}
}

func TestDecideCompensationApprove(t *testing.T) {
	s := newScenario(t)
	absence, result := requestPracticeCompensation(t, s)
	compensation := NewCompensationService(s.store)
	approve := true

	_, err := compensation.Decide(context.Background(), *result.CompensationRequestID, &DecisionRequest{ProfessorID: "P001", Approve: &approve})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("Expected ErrForbidden for the professor of another group, got %v", err)
	}

	decided, err := compensation.Decide(context.Background(), *result.CompensationRequestID, &DecisionRequest{ProfessorID: "P002", Approve: &approve})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if decided.Status != domain.CompensationApproved {
		t.Errorf("Expected Approved, got %s", decided.Status)
	}
	if decided.DecidedAt == nil {
		t.Error("Expected decision time to be set")
	}

	attendance, _ := s.store.Attendance(absence.ID)
	if !attendance.IsMakeup {
		t.Error("Expected approval to mark the absence as made up")
	}

	_, err = compensation.Decide(context.Background(), *result.CompensationRequestID, &DecisionRequest{ProfessorID: "P002", Approve: &approve})
	if !errors.Is(err, domain.ErrInvalidStatus) {
		t.Errorf("Expected ErrInvalidStatus on a second decision, got %v", err)
	}
}

func TestDecideCompensationReject(t *testing.T) {
	s := newScenario(t)
	absence, result := requestPracticeCompensation(t, s)
	compensation := NewCompensationService(s.store)
	reject := false

	decided, err := compensation.Decide(context.Background(), *result.CompensationRequestID, &DecisionRequest{ProfessorID: "P002", Approve: &reject})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if decided.Status != domain.CompensationRejected {
		t.Errorf("Expected Rejected, got %s", decided.Status)
	}

	attendance, _ := s.store.Attendance(absence.ID)
	if attendance.IsMakeup {
		t.Error("Expected a rejected request to leave the absence open")
	}

	report, err := s.makeup.ResolveEligibleSessions(context.Background(), "S001", absence.ID)
	if err != nil {
		t.Fatalf("Expected the absence to be open again, got %v", err)
	}
	if len(report.EligibleSessions) != 1 {
		t.Errorf("Expected the pw session to be offered again, got %d", len(report.EligibleSessions))
	}
}

func TestDecideUnknownRequest(t *testing.T) {
	s := newScenario(t)
	compensation := NewCompensationService(s.store)
	approve := true

	_, err := compensation.Decide(context.Background(), s.absence.ID, &DecisionRequest{ProfessorID: "P002", Approve: &approve})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
