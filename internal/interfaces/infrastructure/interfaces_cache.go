package interfaces

import (
	domain "academic-scheduler/internal/domain/scheduling"
	"context"
	"time"

	"github.com/google/uuid"
)

type CacheService interface {
	// Progress rollups, keyed by session
	GetProgress(ctx context.Context, sessionID uuid.UUID) (*domain.Progress, error)
	SetProgress(ctx context.Context, sessionID uuid.UUID, progress domain.Progress, ttl time.Duration) error
	InvalidateProgress(ctx context.Context, sessionIDs ...uuid.UUID) error

	// Generic cache operations
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context, pattern string) error

	// Health and connection management
	Health(ctx context.Context) error
	Close() error
}
