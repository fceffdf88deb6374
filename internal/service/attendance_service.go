package service

import (
	domain "academic-scheduler/internal/domain/scheduling"
	interfaces "academic-scheduler/internal/interfaces/infrastructure"
	serviceInterfaces "academic-scheduler/internal/interfaces/service"
	"context"
	"fmt"

	"github.com/google/uuid"
)

var _ serviceInterfaces.AttendanceService = (*AttendanceService)(nil)

type AttendanceService struct {
	studentRepo     interfaces.StudentRepository
	absenceRepo     interfaces.AbsenceRepository
	progressService *ProgressService
}

func NewAttendanceService(
	studentRepo interfaces.StudentRepository,
	absenceRepo interfaces.AbsenceRepository,
	progressService *ProgressService,
) *AttendanceService {
	return &AttendanceService{
		studentRepo:     studentRepo,
		absenceRepo:     absenceRepo,
		progressService: progressService,
	}
}

// ListAbsences returns the student's absences, newest first, each with its resolution
// and the syllabus progress of the missed session.
func (s *AttendanceService) ListAbsences(ctx context.Context, studentID string) ([]domain.Absence, error) {
	if err := s.requireStudent(ctx, studentID); err != nil {
		return nil, err
	}

	absences, err := s.absenceRepo.ListAbsences(ctx, studentID)
	if err != nil {
		return nil, err
	}

	sessionIDs := make([]uuid.UUID, 0, len(absences))
	for _, a := range absences {
		sessionIDs = append(sessionIDs, a.SessionID)
	}
	progress, err := s.progressService.SessionProgress(ctx, sessionIDs)
	if err != nil {
		return nil, err
	}

	for i := range absences {
		resolution, err := s.absenceRepo.GetResolution(ctx, absences[i].AttendanceID)
		if err != nil {
			return nil, err
		}
		absences[i].Resolution = resolution

		p := domain.NewSessionProgress(absences[i].SessionID, progress[absences[i].SessionID])
		absences[i].Progress = &p
	}
	return absences, nil
}

// AbsenceRate is the share of the student's attendance rows marked absent, as an integer
// percentage, optionally limited to one semester.
func (s *AttendanceService) AbsenceRate(ctx context.Context, studentID string, semesterID *uuid.UUID) (int, error) {
	if err := s.requireStudent(ctx, studentID); err != nil {
		return 0, err
	}

	total, absent, err := s.absenceRepo.CountAttendance(ctx, studentID, semesterID)
	if err != nil {
		return 0, err
	}
	return domain.AbsenceRate(total, absent), nil
}

func (s *AttendanceService) requireStudent(ctx context.Context, studentID string) error {
	student, err := s.studentRepo.GetByMatricule(ctx, studentID)
	if err != nil {
		return fmt.Errorf("failed to load student: %w", err)
	}
	if student == nil {
		return fmt.Errorf("student %s: %w", studentID, domain.ErrNotFound)
	}
	return nil
}
