package service

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "academic-scheduler/internal/domain/scheduling"
	"academic-scheduler/internal/infrastructure/repository"
)

func TestIdempotencyReplay(t *testing.T) {
	ctx := context.Background()
	svc := NewIdempotencyService(repository.NewMemoryStore().Idempotency())
	request := map[string]string{"occurrence_id": "o-1"}

	replay, err := svc.Lookup(ctx, "key-1", "S001", request)
	if err != nil || replay != nil {
		t.Fatalf("Expected a fresh key, got %v %v", replay, err)
	}

	if err := svc.Record(ctx, "key-1", "S001", request, 201, map[string]string{"status": "Enrolled"}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	replay, err = svc.Lookup(ctx, "key-1", "S001", request)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if replay == nil {
		t.Fatal("Expected the request to be replayed")
	}
	if replay.StatusCode != 201 || string(replay.Body) != `{"status":"Enrolled"}` {
		t.Errorf("Expected the recorded response, got %d %s", replay.StatusCode, replay.Body)
	}

	_, err = svc.Lookup(ctx, "key-1", "S001", map[string]string{"occurrence_id": "o-2"})
	if !errors.Is(err, ErrIdempotencyKeyReused) {
		t.Errorf("Expected ErrIdempotencyKeyReused, got %v", err)
	}
}

func TestIdempotencyKeysAreScopedPerStudent(t *testing.T) {
	ctx := context.Background()
	svc := NewIdempotencyService(repository.NewMemoryStore().Idempotency())

	if err := svc.Record(ctx, "retry-1", "S001", "a", 201, "first"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	replay, err := svc.Lookup(ctx, "retry-1", "S002", "b")
	if err != nil || replay != nil {
		t.Fatalf("Expected another student's key to be independent, got %v %v", replay, err)
	}
	if err := svc.Record(ctx, "retry-1", "S002", "b", 409, "second"); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestIdempotencyExpiredKey(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryStore().Idempotency()
	svc := NewIdempotencyService(repo)

	if err := svc.Record(ctx, "old", "S001", nil, 201, "done"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	svc.now = func() time.Time { return time.Now().Add(DefaultIdempotencyTTL + time.Minute) }

	replay, err := svc.Lookup(ctx, "old", "S001", "another request")
	if err != nil || replay != nil {
		t.Fatalf("Expected an expired key to be ignored, got %v %v", replay, err)
	}
	if k, _ := repo.GetByKey(ctx, "S001:old"); k != nil {
		t.Error("Expected the expired key to be deleted")
	}
}

func TestIdempotencyPurgeExpired(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryStore().Idempotency()
	svc := NewIdempotencyService(repo)

	for key, expires := range map[string]time.Time{
		"S001:stale": time.Now().Add(-time.Minute),
		"S001:fresh": time.Now().Add(time.Hour),
	} {
		if err := repo.Create(ctx, &domain.IdempotencyKey{Key: key, StudentID: "S001", ExpiresAt: expires}); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}

	if err := svc.PurgeExpired(ctx); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if k, _ := repo.GetByKey(ctx, "S001:stale"); k != nil {
		t.Error("Expected the stale key to be purged")
	}
	if k, _ := repo.GetByKey(ctx, "S001:fresh"); k == nil {
		t.Error("Expected the fresh key to be kept")
	}
}

func TestIdempotencyEmptyKey(t *testing.T) {
	svc := NewIdempotencyService(repository.NewMemoryStore().Idempotency())

	replay, err := svc.Lookup(context.Background(), "", "S001", nil)
	if err != nil || replay != nil {
		t.Errorf("Expected an empty key to be ignored, got %v %v", replay, err)
	}
	if err := svc.Record(context.Background(), "", "S001", nil, 200, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}
