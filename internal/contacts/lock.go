package contacts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/rentalcrm-backend/pkg/redis"
	"github.com/google/uuid"
)

const (
	lockScope       = "contact_email"
	defaultLockTTL  = 5 * time.Second
	defaultLockPoll = 25 * time.Millisecond
)

// ErrLockBusy is returned when another resolver held the lock for the whole wait.
var ErrLockBusy = errors.New("contact email lock busy")

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	LockKey(scope, id string) string
}

// RedisEmailLock is a SETNX lock keyed by email with an owner token and TTL.
type RedisEmailLock struct {
	client lockStore
	ttl    time.Duration
	wait   time.Duration
	poll   time.Duration
}

func NewRedisEmailLock(client lockStore, ttl, wait time.Duration) (*RedisEmailLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if wait < 0 {
		wait = 0
	}
	return &RedisEmailLock{client: client, ttl: ttl, wait: wait, poll: defaultLockPoll}, nil
}

// Lock polls SETNX until it owns the key or the wait elapses.
func (l *RedisEmailLock) Lock(ctx context.Context, email string) (func(context.Context), error) {
	key := l.client.LockKey(lockScope, email)
	owner := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, key, owner, l.ttl)
		if err != nil {
			return nil, fmt.Errorf("setnx: %w", err)
		}
		if ok {
			return func(releaseCtx context.Context) { l.release(releaseCtx, key, owner) }, nil
		}
		if !time.Now().Before(deadline) {
			return nil, ErrLockBusy
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.poll):
		}
	}
}

// release deletes the key only if this owner still holds it. An expired lock
// taken over by another resolver is left alone.
func (l *RedisEmailLock) release(ctx context.Context, key, owner string) {
	value, err := l.client.Get(ctx, key)
	if err != nil || value != owner {
		return
	}
	_ = l.client.Del(ctx, key)
}

var _ lockStore = (*redis.Client)(nil)
