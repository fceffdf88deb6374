package repository

import (
	"context"
	"errors"
	"time"

	domain "academic-scheduler/internal/domain/scheduling"
	interfaces "academic-scheduler/internal/interfaces/infrastructure"
	"academic-scheduler/pkg/logger"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ interfaces.IdempotencyRepository = (*IdempotencyRepository)(nil)

// IdempotencyRepository keeps recorded responses in Postgres when Redis is not configured.
type IdempotencyRepository struct {
	db *gorm.DB
}

func NewIdempotencyRepository(db *gorm.DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

// Create keeps the first response when two retries of a request race on the same key.
func (r *IdempotencyRepository) Create(ctx context.Context, key *domain.IdempotencyKey) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "key"}}, DoNothing: true}).
		Create(key).Error
}

func (r *IdempotencyRepository) GetByKey(ctx context.Context, key string) (*domain.IdempotencyKey, error) {
	var stored domain.IdempotencyKey
	err := r.db.WithContext(ctx).Where("key = ?", key).Take(&stored).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *IdempotencyRepository) DeleteExpired(ctx context.Context) error {
	result := r.db.WithContext(ctx).Where("expires_at < ?", time.Now()).Delete(&domain.IdempotencyKey{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		logger.Debug("Purged %d expired idempotency keys", result.RowsAffected)
	}
	return nil
}

func (r *IdempotencyRepository) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Where("key = ?", key).Delete(&domain.IdempotencyKey{}).Error
}
