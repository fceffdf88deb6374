package service

import (
	domain "academic-scheduler/internal/domain/scheduling"
	"context"

	"github.com/google/uuid"
)

// Request/Response types for the auth service
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Subject     string `json:"subject"`
	Role        string `json:"role"`
}

type DecisionRequest struct {
	ProfessorID string `json:"professor_id" validate:"required"`
	Approve     *bool  `json:"approve" validate:"required"`
}

type MakeupService interface {
	ResolveEligibleSessions(ctx context.Context, studentID string, attendanceID uuid.UUID) (*domain.EligibilityReport, error)
	Enroll(ctx context.Context, req *domain.EnrollRequest) (*domain.EnrollmentResult, error)
}

type AttendanceService interface {
	ListAbsences(ctx context.Context, studentID string) ([]domain.Absence, error)
	AbsenceRate(ctx context.Context, studentID string, semesterID *uuid.UUID) (int, error)
}

type ScheduleService interface {
	WeeklySchedule(ctx context.Context, studentID string, weekOffset int) (*domain.WeeklySchedule, error)
}

type DebtService interface {
	ListDebtModules(ctx context.Context, studentID string) ([]domain.DebtModuleView, error)
	AvailableSessions(ctx context.Context, studentID string, moduleID uuid.UUID, sessionType domain.SessionType) ([]domain.DebtCandidate, error)
	Register(ctx context.Context, studentID string, req *domain.DebtSessionRequest) (*domain.DebtSession, error)
}

type CompensationService interface {
	Decide(ctx context.Context, requestID uuid.UUID, req *DecisionRequest) (*domain.CompensationRequest, error)
}

type ProgressService interface {
	SessionProgress(ctx context.Context, sessionIDs []uuid.UUID) (map[uuid.UUID]domain.Progress, error)
	ListTitles(ctx context.Context, moduleID uuid.UUID, sessionType domain.SessionType) ([]*domain.TitleNode, error)
	CreateTitle(ctx context.Context, req *domain.CreateTitleRequest) (*domain.ModuleTitle, error)
	UpdateTitle(ctx context.Context, id uuid.UUID, req *domain.UpdateTitleRequest) (*domain.ModuleTitle, error)
	DeleteTitle(ctx context.Context, id uuid.UUID) (int, error)
	SessionTitles(ctx context.Context, sessionID uuid.UUID) (*domain.SessionTitles, error)
	SetProgress(ctx context.Context, professorID string, req *domain.ProgressRequest) (*domain.SessionProgress, error)
	BulkSetProgress(ctx context.Context, professorID string, req *domain.BulkProgressRequest) (*domain.SessionProgress, error)
	ProfessorSessions(ctx context.Context, professorID string) ([]domain.ProfessorSession, error)
}

type AuthService interface {
	LoginStudent(ctx context.Context, req *LoginRequest) (*TokenResponse, error)
	LoginProfessor(ctx context.Context, req *LoginRequest) (*TokenResponse, error)
}
