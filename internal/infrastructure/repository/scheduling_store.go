package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	domain "academic-scheduler/internal/domain/scheduling"
	"academic-scheduler/internal/infrastructure/database"
	interfaces "academic-scheduler/internal/interfaces/infrastructure"
	"academic-scheduler/pkg/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const retryBackoff = 20 * time.Millisecond

// SchedulingStore runs booking transactions at serializable isolation.
type SchedulingStore struct {
	db      *gorm.DB
	retries int
}

func NewSchedulingStore(db *gorm.DB, retries int) interfaces.SchedulingStore {
	if retries < 0 {
		retries = 0
	}
	return &SchedulingStore{db: db, retries: retries}
}

// RunInTx replays fn after serialization failures and deadlocks, up to the configured
// number of retries. A unique violation surfaces as domain.ErrConflictingWrite.
func (s *SchedulingStore) RunInTx(ctx context.Context, fn func(tx interfaces.SchedulingTx) error) error {
	var err error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(&schedulingTx{db: tx})
		}, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err == nil {
			return nil
		}
		if !database.IsRetryable(err) {
			break
		}

		logger.WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"error":   err,
		}).Warn("Retrying serializable transaction")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBackoff * time.Duration(attempt+1)):
		}
	}

	if database.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %v", domain.ErrConflictingWrite, err)
	}
	return err
}

type schedulingTx struct {
	db *gorm.DB
}

func (t *schedulingTx) first(ctx context.Context, dest interface{}, lock bool, query string, args ...interface{}) (bool, error) {
	db := t.db.WithContext(ctx)
	if lock {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := db.Where(query, args...).First(dest).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (t *schedulingTx) GetOccurrence(ctx context.Context, id uuid.UUID) (*domain.SessionOccurrence, error) {
	var occurrence domain.SessionOccurrence
	found, err := t.first(ctx, &occurrence, false, "id = ?", id)
	if err != nil || !found {
		return nil, err
	}
	return &occurrence, nil
}

func (t *schedulingTx) GetSession(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	var session domain.Session
	found, err := t.first(ctx, &session, false, "id = ?", id)
	if err != nil || !found {
		return nil, err
	}
	return &session, nil
}

func (t *schedulingTx) LockSession(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	var session domain.Session
	found, err := t.first(ctx, &session, true, "id = ?", id)
	if err != nil || !found {
		return nil, err
	}
	return &session, nil
}

func (t *schedulingTx) LockAttendance(ctx context.Context, attendanceID uuid.UUID, studentID string) (*domain.Attendance, error) {
	var attendance domain.Attendance
	found, err := t.first(ctx, &attendance, true, "id = ? AND student_id = ?", attendanceID, studentID)
	if err != nil || !found {
		return nil, err
	}
	return &attendance, nil
}

func (t *schedulingTx) GetStudent(ctx context.Context, matricule string) (*domain.Student, error) {
	return findStudent(t.db.WithContext(ctx), matricule)
}

func (t *schedulingTx) Resolution(ctx context.Context, attendanceID uuid.UUID) (*domain.Resolution, error) {
	var rows []resolutionRow
	err := t.db.WithContext(ctx).Raw(resolutionQuery, attendanceID, attendanceID, attendanceID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toDomain(), nil
}

func (t *schedulingTx) IsAttending(ctx context.Context, studentID string, occurrenceID uuid.UUID) (bool, error) {
	var attending bool
	err := t.db.WithContext(ctx).
		Raw(isAttendingQuery, studentID, occurrenceID, studentID, occurrenceID, studentID, occurrenceID).
		Scan(&attending).Error
	return attending, err
}

func (t *schedulingTx) Capacity(ctx context.Context, sessionID uuid.UUID) (domain.Capacity, error) {
	var rows []domain.Capacity
	err := t.db.WithContext(ctx).Raw(capacityQuery, []uuid.UUID{sessionID}).Scan(&rows).Error
	if err != nil {
		return domain.Capacity{}, err
	}
	if len(rows) == 0 {
		return domain.Capacity{SessionID: sessionID}, nil
	}
	return rows[0], nil
}

func (t *schedulingTx) CreateMakeup(ctx context.Context, makeup *domain.MakeupEnrollment) error {
	if makeup.ID == uuid.Nil {
		makeup.ID = uuid.New()
	}
	return t.db.WithContext(ctx).Create(makeup).Error
}

func (t *schedulingTx) MarkMadeUp(ctx context.Context, attendanceID uuid.UUID) error {
	return t.db.WithContext(ctx).
		Model(&domain.Attendance{}).
		Where("id = ?", attendanceID).
		Update("is_makeup", true).Error
}

func (t *schedulingTx) CreateCompensationRequest(ctx context.Context, req *domain.CompensationRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	return t.db.WithContext(ctx).Create(req).Error
}

func (t *schedulingTx) LockCompensationRequest(ctx context.Context, id uuid.UUID) (*domain.CompensationRequest, error) {
	var req domain.CompensationRequest
	found, err := t.first(ctx, &req, true, "id = ?", id)
	if err != nil || !found {
		return nil, err
	}
	return &req, nil
}

func (t *schedulingTx) UpdateCompensationRequest(ctx context.Context, req *domain.CompensationRequest) error {
	return t.db.WithContext(ctx).
		Model(req).
		Select("status", "decided_at").
		Updates(req).Error
}

func (t *schedulingTx) HasDebtSession(ctx context.Context, studentID string, moduleID uuid.UUID, sessionType domain.SessionType) (bool, error) {
	var exists bool
	err := t.db.WithContext(ctx).Raw(hasDebtSessionQuery, studentID, moduleID, string(sessionType)).Scan(&exists).Error
	return exists, err
}

func (t *schedulingTx) CreateDebtSession(ctx context.Context, debt *domain.DebtSession) error {
	return t.db.WithContext(ctx).Create(debt).Error
}
