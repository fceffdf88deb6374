package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domain "academic-scheduler/internal/domain/scheduling"
	interfaces "academic-scheduler/internal/interfaces/infrastructure"

	"github.com/go-redis/redis/v8"
)

var _ interfaces.IdempotencyRepository = (*RedisIdempotencyRepository)(nil)

// RedisIdempotencyRepository stores processed requests as JSON values that expire with the key.
type RedisIdempotencyRepository struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisIdempotencyRepository(client redis.UniversalClient) *RedisIdempotencyRepository {
	return &RedisIdempotencyRepository{
		client: client,
		prefix: "idempotency_key:",
		ttl:    24 * time.Hour,
	}
}

// Create stores key until its ExpiresAt, falling back to the default TTL.
// An existing key is kept so two racing requests cannot overwrite each other's response.
func (r *RedisIdempotencyRepository) Create(ctx context.Context, key *domain.IdempotencyKey) error {
	data, err := json.Marshal(key)
	if err != nil {
		return fmt.Errorf("failed to marshal idempotency key: %w", err)
	}

	ttl := time.Until(key.ExpiresAt)
	if ttl <= 0 {
		ttl = r.ttl
	}

	if err := r.client.SetNX(ctx, r.getRedisKey(key.Key), string(data), ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotency key in Redis: %w", err)
	}
	return nil
}

func (r *RedisIdempotencyRepository) GetByKey(ctx context.Context, key string) (*domain.IdempotencyKey, error) {
	val, err := r.client.Get(ctx, r.getRedisKey(key)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get idempotency key from Redis: %w", err)
	}

	var idempotencyKey domain.IdempotencyKey
	if err := json.Unmarshal([]byte(val), &idempotencyKey); err != nil {
		return nil, fmt.Errorf("failed to unmarshal idempotency key: %w", err)
	}
	return &idempotencyKey, nil
}

// DeleteExpired is a no-op: Redis evicts keys on their own TTL.
func (r *RedisIdempotencyRepository) DeleteExpired(ctx context.Context) error {
	return nil
}

func (r *RedisIdempotencyRepository) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.getRedisKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete idempotency key from Redis: %w", err)
	}
	return nil
}

func (r *RedisIdempotencyRepository) getRedisKey(key string) string {
	return r.prefix + key
}
