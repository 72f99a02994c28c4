package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// IdempotencyStore persists processed keys. PostgreSQL is authoritative when
// configured; Redis answers replays without a database round trip.
type IdempotencyStore struct {
	pool      *pgxpool.Pool
	redis     *redis.Client
	retention time.Duration
	now       func() time.Time
}

// NewIdempotencyStore constructs the store. Either backend may be nil.
func NewIdempotencyStore(pool *pgxpool.Pool, client *redis.Client, retention time.Duration) *IdempotencyStore {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &IdempotencyStore{pool: pool, redis: client, retention: retention, now: time.Now}
}

// Retention reports how long processed keys are remembered.
func (s *IdempotencyStore) Retention() time.Duration {
	return s.retention
}

func redisKey(module, key string) string {
	return fmt.Sprintf("idem:%s:%s", module, key)
}

// CheckAndInsert ensures key uniqueness per module.
func (s *IdempotencyStore) CheckAndInsert(ctx context.Context, key, module string) error {
	if s == nil || (s.pool == nil && s.redis == nil) {
		return fmt.Errorf("idempotency: %w", ErrNotInitialised)
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	if module == "" {
		return errors.New("idempotency module required")
	}
	var claimed bool
	if s.redis != nil {
		ok, err := s.redis.SetNX(ctx, redisKey(module, key), s.now().UTC().Format(time.RFC3339), s.retention).Result()
		if err != nil {
			if s.pool == nil {
				return err
			}
		} else if !ok {
			return ErrIdempotencyConflict
		}
		claimed = ok
	}
	if s.pool == nil {
		return nil
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO idempotency_keys (key, module, created_at) VALUES ($1, $2, $3)`, module+":"+key, module, s.now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrIdempotencyConflict
		}
		if claimed {
			if delErr := s.redis.Del(context.WithoutCancel(ctx), redisKey(module, key)).Err(); delErr != nil {
				return errors.Join(err, delErr)
			}
		}
		return err
	}
	return nil
}

// Cleanup removes entries older than retention and reports how many were removed.
// Redis entries expire on their own.
func (s *IdempotencyStore) Cleanup(ctx context.Context) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, nil
	}
	cutoff := s.now().Add(-s.retention)
	cmd, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

// Delete removes a key, typically used to roll back failed processing.
func (s *IdempotencyStore) Delete(ctx context.Context, key, module string) error {
	if s == nil {
		return nil
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	if s.redis != nil {
		if err := s.redis.Del(ctx, redisKey(module, key)).Err(); err != nil {
			return err
		}
	}
	if s.pool == nil {
		return nil
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE key=$1`, module+":"+key)
	return err
}
