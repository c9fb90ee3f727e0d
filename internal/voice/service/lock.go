package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrSessionBusy means another webhook is mid-turn on the same session.
// The provider retries and overlapping gathers can race; the loser gets a
// reprompt instead of a second state transition.
var ErrSessionBusy = errors.New("call session is locked by another request")

// SessionLocker serializes turns within one call session.
type SessionLocker interface {
	Acquire(ctx context.Context, sessionID uuid.UUID) (release func(), err error)
}

const (
	lockPrefix = "voice:session:"
	lockTTL    = 20 * time.Second
)

// unlockScript releases the lock only if this holder still owns it.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker implements SessionLocker on a shared Redis instance so the
// guarantee holds across replicas.
type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) Acquire(ctx context.Context, sessionID uuid.UUID) (func(), error) {
	key := lockPrefix + sessionID.String()
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, lockTTL).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSessionBusy
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = unlockScript.Run(releaseCtx, l.client, []string{key}, token).Result()
	}
	return release, nil
}

var _ SessionLocker = (*RedisLocker)(nil)

// NoopLocker is used when no Redis instance is configured. Single-replica
// deployments only; overlapping webhooks are not serialized.
type NoopLocker struct{}

func (NoopLocker) Acquire(context.Context, uuid.UUID) (func(), error) {
	return func() {}, nil
}
