package interfaces

import (
	domain "academic-scheduler/internal/domain/scheduling"
	"context"
	"time"

	"github.com/google/uuid"
)

type StudentRepository interface {
	GetByMatricule(ctx context.Context, matricule string) (*domain.Student, error)
}

type ProfessorRepository interface {
	GetByMatricule(ctx context.Context, matricule string) (*domain.Professor, error)
	GetByEmail(ctx context.Context, email string) (*domain.Professor, error)
}

type AbsenceRepository interface {
	GetAbsence(ctx context.Context, studentID string, attendanceID uuid.UUID) (*domain.Absence, error)
	ListAbsences(ctx context.Context, studentID string) ([]domain.Absence, error)
	GetResolution(ctx context.Context, attendanceID uuid.UUID) (*domain.Resolution, error)
	CountAttendance(ctx context.Context, studentID string, semesterID *uuid.UUID) (total int, absent int, err error)
}

type TimetableRepository interface {
	GetSession(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	ListBusySlots(ctx context.Context, studentID string, window domain.DateWindow) ([]domain.BusySlot, error)
	ListCandidates(ctx context.Context, absence *domain.Absence, window domain.DateWindow) ([]domain.CandidateOccurrence, error)
	NextModuleOccurrence(ctx context.Context, studentID string, moduleID uuid.UUID, after time.Time) (*time.Time, error)
	GetCapacities(ctx context.Context, sessionIDs []uuid.UUID) (map[uuid.UUID]domain.Capacity, error)
	ListWeeklyCommitments(ctx context.Context, studentID string) ([]domain.WeeklyCommitment, error)
	ListProfessorSessions(ctx context.Context, professorID string) ([]domain.ProfessorSession, error)
}

type DebtRepository interface {
	ListDebtModules(ctx context.Context, studentID string) ([]domain.DebtModuleView, error)
	HasDebtSession(ctx context.Context, studentID string, moduleID uuid.UUID, sessionType domain.SessionType) (bool, error)
	ListDebtCandidates(ctx context.Context, studentID string, moduleID uuid.UUID, sessionType domain.SessionType) ([]domain.DebtCandidate, error)
}

type TitleRepository interface {
	ListTitles(ctx context.Context, moduleID uuid.UUID, sessionType domain.SessionType) ([]domain.ModuleTitle, error)
	GetTitle(ctx context.Context, id uuid.UUID) (*domain.ModuleTitle, error)
	CreateTitle(ctx context.Context, title *domain.ModuleTitle) error
	UpdateTitle(ctx context.Context, title *domain.ModuleTitle) error
	// DeleteTitles removes the titles and their progress rows atomically.
	DeleteTitles(ctx context.Context, ids []uuid.UUID) error
	CompletedTitles(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]bool, error)
	SetProgress(ctx context.Context, sessionID uuid.UUID, titleIDs []uuid.UUID, completed bool) error
	GetProgress(ctx context.Context, sessionIDs []uuid.UUID) (map[uuid.UUID]domain.Progress, error)
	ListSessionIDs(ctx context.Context, moduleID uuid.UUID, sessionType domain.SessionType) ([]uuid.UUID, error)
}

// SchedulingStore runs state changes atomically. Implementations retry serialization
// failures and roll back on any error returned by fn.
type SchedulingStore interface {
	RunInTx(ctx context.Context, fn func(tx SchedulingTx) error) error
}

// SchedulingTx is the set of reads and writes available inside a transaction.
// Lock methods hold the row until the transaction ends and return (nil, nil) when it does not exist.
type SchedulingTx interface {
	GetOccurrence(ctx context.Context, id uuid.UUID) (*domain.SessionOccurrence, error)
	GetSession(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	LockSession(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	LockAttendance(ctx context.Context, attendanceID uuid.UUID, studentID string) (*domain.Attendance, error)
	GetStudent(ctx context.Context, matricule string) (*domain.Student, error)
	Resolution(ctx context.Context, attendanceID uuid.UUID) (*domain.Resolution, error)
	IsAttending(ctx context.Context, studentID string, occurrenceID uuid.UUID) (bool, error)
	Capacity(ctx context.Context, sessionID uuid.UUID) (domain.Capacity, error)
	CreateMakeup(ctx context.Context, makeup *domain.MakeupEnrollment) error
	MarkMadeUp(ctx context.Context, attendanceID uuid.UUID) error
	CreateCompensationRequest(ctx context.Context, req *domain.CompensationRequest) error
	LockCompensationRequest(ctx context.Context, id uuid.UUID) (*domain.CompensationRequest, error)
	UpdateCompensationRequest(ctx context.Context, req *domain.CompensationRequest) error
	HasDebtSession(ctx context.Context, studentID string, moduleID uuid.UUID, sessionType domain.SessionType) (bool, error)
	CreateDebtSession(ctx context.Context, debt *domain.DebtSession) error
}

type IdempotencyRepository interface {
	Create(ctx context.Context, key *domain.IdempotencyKey) error
	GetByKey(ctx context.Context, key string) (*domain.IdempotencyKey, error)
	Delete(ctx context.Context, key string) error
	DeleteExpired(ctx context.Context) error
}
