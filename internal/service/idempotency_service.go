package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domain "academic-scheduler/internal/domain/scheduling"
	interfaces "academic-scheduler/internal/interfaces/infrastructure"
	"academic-scheduler/pkg/logger"

	"github.com/sirupsen/logrus"
)

const (
	DefaultIdempotencyTTL = 24 * time.Hour
)

var ErrIdempotencyKeyReused = errors.New("idempotency key already used with different request data")

// Replay is a response recorded under an idempotency key.
type Replay struct {
	StatusCode int
	Body       []byte
}

// IdempotencyService records write responses so a retried request gets the first answer
// instead of being applied twice. Keys are scoped to the student sending them.
type IdempotencyService struct {
	idempotencyRepo interfaces.IdempotencyRepository
	ttl             time.Duration
	now             func() time.Time
}

func NewIdempotencyService(idempotencyRepo interfaces.IdempotencyRepository) *IdempotencyService {
	return &IdempotencyService{
		idempotencyRepo: idempotencyRepo,
		ttl:             DefaultIdempotencyTTL,
		now:             time.Now,
	}
}

func scopedKey(studentID, key string) string {
	return studentID + ":" + key
}

// Lookup returns the recorded response of request, or nil when key is new or expired.
// A key already used by the student for another request yields ErrIdempotencyKeyReused.
func (s *IdempotencyService) Lookup(ctx context.Context, key, studentID string, request any) (*Replay, error) {
	if key == "" {
		return nil, nil
	}
	log := logger.WithFields(logrus.Fields{"idempotency_key": key, "student_id": studentID})

	stored, err := s.idempotencyRepo.GetByKey(ctx, scopedKey(studentID, key))
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency key: %w", err)
	}
	if stored == nil {
		return nil, nil
	}

	if s.now().After(stored.ExpiresAt) {
		if err := s.idempotencyRepo.Delete(ctx, stored.Key); err != nil {
			log.WithError(err).Warn("Failed to delete expired idempotency key")
		}
		return nil, nil
	}

	hash, err := requestHash(request)
	if err != nil {
		return nil, err
	}
	if stored.RequestHash != hash {
		log.Warn("Idempotency key reused with a different request")
		return nil, ErrIdempotencyKeyReused
	}

	log.Info("Replaying recorded response")
	return &Replay{StatusCode: stored.StatusCode, Body: []byte(stored.ResponseData)}, nil
}

// Record stores the response sent for request under key.
func (s *IdempotencyService) Record(ctx context.Context, key, studentID string, request any, statusCode int, response any) error {
	if key == "" {
		return nil
	}

	hash, err := requestHash(request)
	if err != nil {
		return err
	}
	body, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response data: %w", err)
	}

	now := s.now()
	if err := s.idempotencyRepo.Create(ctx, &domain.IdempotencyKey{
		Key:          scopedKey(studentID, key),
		StudentID:    studentID,
		RequestHash:  hash,
		ResponseData: string(body),
		StatusCode:   statusCode,
		ProcessedAt:  now,
		ExpiresAt:    now.Add(s.ttl),
		CreatedAt:    now,
	}); err != nil {
		return fmt.Errorf("failed to store idempotency key: %w", err)
	}

	logger.Debug("Recorded response %d for idempotency key %s", statusCode, key)
	return nil
}

// PurgeExpired removes keys past their expiry from stores that do not expire them on their own.
func (s *IdempotencyService) PurgeExpired(ctx context.Context) error {
	if err := s.idempotencyRepo.DeleteExpired(ctx); err != nil {
		return fmt.Errorf("failed to purge expired idempotency keys: %w", err)
	}
	return nil
}

// RunPurger calls PurgeExpired every interval until ctx is done.
func (s *IdempotencyService) RunPurger(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.PurgeExpired(ctx); err != nil {
				logger.Warn("%v", err)
			}
		}
	}
}

func requestHash(request any) (string, error) {
	data, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to hash request: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
