package service

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func setupLocker(t *testing.T) *RedisLocker {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisLocker(client)
}

func TestRedisLockerSerializesTurns(t *testing.T) {
	locker := setupLocker(t)
	ctx := context.Background()
	sessionID := uuid.New()

	release, err := locker.Acquire(ctx, sessionID)
	if err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}

	if _, err := locker.Acquire(ctx, sessionID); !errors.Is(err, ErrSessionBusy) {
		t.Fatalf("second Acquire() error = %v, want ErrSessionBusy", err)
	}

	release()

	if _, err := locker.Acquire(ctx, sessionID); err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
}

func TestRedisLockerIsPerSession(t *testing.T) {
	locker := setupLocker(t)
	ctx := context.Background()

	if _, err := locker.Acquire(ctx, uuid.New()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if _, err := locker.Acquire(ctx, uuid.New()); err != nil {
		t.Fatalf("Acquire() on a different session error = %v", err)
	}
}
