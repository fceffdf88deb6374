package service

import (
	domain "academic-scheduler/internal/domain/scheduling"
	interfaces "academic-scheduler/internal/interfaces/infrastructure"
	serviceInterfaces "academic-scheduler/internal/interfaces/service"
	"academic-scheduler/pkg/logger"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var _ serviceInterfaces.CompensationService = (*CompensationService)(nil)

type DecisionRequest = serviceInterfaces.DecisionRequest

type CompensationService struct {
	store interfaces.SchedulingStore
}

func NewCompensationService(store interfaces.SchedulingStore) *CompensationService {
	return &CompensationService{store: store}
}

// Decide approves or rejects a pw compensation request. Only the professor teaching the
// requested occurrence may decide, and only while the request awaits a response.
// Approval resolves the absence; rejection returns it to the pool of open absences.
func (s *CompensationService) Decide(ctx context.Context, requestID uuid.UUID, req *DecisionRequest) (*domain.CompensationRequest, error) {
	var decided *domain.CompensationRequest
	err := s.store.RunInTx(ctx, func(tx interfaces.SchedulingTx) error {
		request, err := tx.LockCompensationRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if request == nil {
			return fmt.Errorf("compensation request %s: %w", requestID, domain.ErrNotFound)
		}

		occurrence, err := tx.GetOccurrence(ctx, request.OccurrenceID)
		if err != nil {
			return err
		}
		if occurrence == nil {
			return fmt.Errorf("occurrence %s: %w", request.OccurrenceID, domain.ErrNotFound)
		}
		session, err := tx.GetSession(ctx, occurrence.SessionID)
		if err != nil {
			return err
		}
		if session == nil || session.ProfessorID != req.ProfessorID {
			return domain.ErrForbidden
		}

		if request.Status != domain.CompensationAwaiting {
			return fmt.Errorf("request is %q: %w", request.Status, domain.ErrInvalidStatus)
		}

		now := time.Now().UTC()
		request.DecidedAt = &now
		request.Status = domain.CompensationRejected
		if *req.Approve {
			request.Status = domain.CompensationApproved
		}
		if err := tx.UpdateCompensationRequest(ctx, request); err != nil {
			return err
		}
		if request.Status == domain.CompensationApproved {
			if err := tx.MarkMadeUp(ctx, request.AttendanceID); err != nil {
				return err
			}
		}

		decided = request
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"request_id":   requestID,
		"professor_id": req.ProfessorID,
		"status":       decided.Status,
	}).Info("Compensation request decided")
	return decided, nil
}
