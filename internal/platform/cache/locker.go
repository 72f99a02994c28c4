package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrLocked indicates another process holds the lock.
var ErrLocked = errors.New("platform/cache: lock held elsewhere")

// Locker hands out short-lived distributed locks.
type Locker struct {
	client *redislock.Client
	prefix string
}

// NewLocker wraps a redis client with redislock.
func NewLocker(client *redis.Client, prefix string) *Locker {
	return &Locker{client: redislock.New(client), prefix: prefix}
}

// WithLock runs fn while holding key. It returns ErrLocked without running
// fn when the lock is taken.
func (l *Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	lock, err := l.client.Obtain(ctx, l.prefix+key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return ErrLocked
	}
	if err != nil {
		return fmt.Errorf("platform/cache: obtain lock: %w", err)
	}
	defer func() {
		_ = lock.Release(context.WithoutCancel(ctx))
	}()
	return fn(ctx)
}
