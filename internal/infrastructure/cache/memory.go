package cache

import (
	domain "academic-scheduler/internal/domain/scheduling"
	interfaces "academic-scheduler/internal/interfaces/infrastructure"
	"context"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryCache is a process-local CacheService used in tests and when Redis is disabled.
type MemoryCache struct {
	mu       sync.Mutex
	entries  map[string]memoryEntry
	progress map[uuid.UUID]domain.Progress
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries:  make(map[string]memoryEntry),
		progress: make(map[uuid.UUID]domain.Progress),
	}
}

func (m *MemoryCache) GetProgress(ctx context.Context, sessionID uuid.UUID) (*domain.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.progress[sessionID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MemoryCache) SetProgress(ctx context.Context, sessionID uuid.UUID, progress domain.Progress, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.progress[sessionID] = progress
	return nil
}

func (m *MemoryCache) InvalidateProgress(ctx context.Context, sessionIDs ...uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range sessionIDs {
		delete(m.progress, id)
	}
	return nil
}

func (m *MemoryCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || (!e.expiresAt.IsZero() && time.Now().After(e.expiresAt)) {
		delete(m.entries, key)
		return "", ErrCacheMiss
	}
	return e.value, nil
}

func (m *MemoryCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

func (m *MemoryCache) Clear(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.entries, key)
		}
	}
	return nil
}

func (m *MemoryCache) Health(ctx context.Context) error {
	return nil
}

func (m *MemoryCache) Close() error {
	return nil
}

var _ interfaces.CacheService = (*MemoryCache)(nil)
