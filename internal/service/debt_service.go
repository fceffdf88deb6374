package service

import (
	domain "academic-scheduler/internal/domain/scheduling"
	interfaces "academic-scheduler/internal/interfaces/infrastructure"
	serviceInterfaces "academic-scheduler/internal/interfaces/service"
	"academic-scheduler/pkg/logger"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var _ serviceInterfaces.DebtService = (*DebtService)(nil)

// DebtService lets a student attend sessions of a module carried over from a prior term.
type DebtService struct {
	studentRepo   interfaces.StudentRepository
	debtRepo      interfaces.DebtRepository
	timetableRepo interfaces.TimetableRepository
	store         interfaces.SchedulingStore
	policy        domain.Policy
}

func NewDebtService(
	studentRepo interfaces.StudentRepository,
	debtRepo interfaces.DebtRepository,
	timetableRepo interfaces.TimetableRepository,
	store interfaces.SchedulingStore,
	policy domain.Policy,
) *DebtService {
	return &DebtService{
		studentRepo:   studentRepo,
		debtRepo:      debtRepo,
		timetableRepo: timetableRepo,
		store:         store,
		policy:        policy,
	}
}

func (s *DebtService) ListDebtModules(ctx context.Context, studentID string) ([]domain.DebtModuleView, error) {
	if _, err := s.student(ctx, studentID); err != nil {
		return nil, err
	}
	return s.debtRepo.ListDebtModules(ctx, studentID)
}

// AvailableSessions lists the sessions of a debt module the student can still join, ordered
// by weekday then start time. It fails with ErrDebtSessionExists once one is registered.
func (s *DebtService) AvailableSessions(ctx context.Context, studentID string, moduleID uuid.UUID, sessionType domain.SessionType) ([]domain.DebtCandidate, error) {
	if !sessionType.Valid() {
		return nil, domain.ErrInvalidSessionType
	}
	if _, err := s.student(ctx, studentID); err != nil {
		return nil, err
	}
	if err := s.requireDebtModule(ctx, studentID, moduleID); err != nil {
		return nil, err
	}

	exists, err := s.debtRepo.HasDebtSession(ctx, studentID, moduleID, sessionType)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrDebtSessionExists
	}

	return s.selectable(ctx, studentID, moduleID, sessionType)
}

func (s *DebtService) selectable(ctx context.Context, studentID string, moduleID uuid.UUID, sessionType domain.SessionType) ([]domain.DebtCandidate, error) {
	candidates, err := s.debtRepo.ListDebtCandidates(ctx, studentID, moduleID, sessionType)
	if err != nil {
		return nil, err
	}
	commitments, err := s.timetableRepo.ListWeeklyCommitments(ctx, studentID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.SessionID)
	}
	capacities, err := s.timetableRepo.GetCapacities(ctx, ids)
	if err != nil {
		return nil, err
	}

	selectable, malformed := domain.FilterDebtCandidates(candidates, commitments, capacities, s.policy)
	for _, c := range malformed {
		logger.WithFields(logrus.Fields{
			"student_id": studentID,
			"session_id": c.SessionID,
			"day":        c.Day,
			"start_time": c.StartTime,
			"end_time":   c.EndTime,
		}).Warn("Skipping debt session with malformed time")
	}
	return selectable, nil
}

// Register adds the student to a debt session. The session must be one of the currently
// selectable ones; the seat count is checked again under the session lock.
func (s *DebtService) Register(ctx context.Context, studentID string, req *domain.DebtSessionRequest) (*domain.DebtSession, error) {
	if _, err := s.student(ctx, studentID); err != nil {
		return nil, err
	}

	session, err := s.timetableRepo.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("session %s: %w", req.SessionID, domain.ErrNotFound)
	}
	if err := s.requireDebtModule(ctx, studentID, session.ModuleID); err != nil {
		return nil, err
	}

	exists, err := s.debtRepo.HasDebtSession(ctx, studentID, session.ModuleID, session.Type)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrDebtSessionExists
	}

	selectable, err := s.selectable(ctx, studentID, session.ModuleID, session.Type)
	if err != nil {
		return nil, err
	}
	if !containsDebtCandidate(selectable, session.ID) {
		return nil, fmt.Errorf("session %s clashes with the timetable or is full: %w", session.ID, domain.ErrIneligibleTarget)
	}

	debt := &domain.DebtSession{StudentID: studentID, SessionID: session.ID}
	err = s.store.RunInTx(ctx, func(tx interfaces.SchedulingTx) error {
		locked, err := tx.LockSession(ctx, session.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return fmt.Errorf("session %s: %w", session.ID, domain.ErrNotFound)
		}

		exists, err := tx.HasDebtSession(ctx, studentID, locked.ModuleID, locked.Type)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrDebtSessionExists
		}

		if !s.policy.CapacityExempt[locked.Type] {
			capacity, err := tx.Capacity(ctx, locked.ID)
			if err != nil {
				return err
			}
			if !s.policy.HasSeat(locked.Type, capacity) {
				return domain.ErrCapacityConflict
			}
		}
		return tx.CreateDebtSession(ctx, debt)
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflictingWrite) {
			return nil, domain.ErrDebtSessionExists
		}
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"student_id": studentID,
		"session_id": session.ID,
	}).Info("Registered debt session")
	return debt, nil
}

func (s *DebtService) student(ctx context.Context, studentID string) (*domain.Student, error) {
	student, err := s.studentRepo.GetByMatricule(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load student: %w", err)
	}
	if student == nil {
		return nil, fmt.Errorf("student %s: %w", studentID, domain.ErrNotFound)
	}
	return student, nil
}

func (s *DebtService) requireDebtModule(ctx context.Context, studentID string, moduleID uuid.UUID) error {
	modules, err := s.debtRepo.ListDebtModules(ctx, studentID)
	if err != nil {
		return err
	}
	for _, m := range modules {
		if m.ModuleID == moduleID {
			return nil
		}
	}
	return fmt.Errorf("module %s is not a debt module of %s: %w", moduleID, studentID, domain.ErrNotFound)
}

func containsDebtCandidate(candidates []domain.DebtCandidate, sessionID uuid.UUID) bool {
	for _, c := range candidates {
		if c.SessionID == sessionID {
			return true
		}
	}
	return false
}
