package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/dairy-erp/ledger/internal/jobs"
)

// KeyPurger removes expired idempotency keys.
type KeyPurger interface {
	Cleanup(ctx context.Context) (int64, error)
}

// IdempotencyCleanupJob purges idempotency keys past their retention.
type IdempotencyCleanupJob struct {
	Store   KeyPurger
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle executes the cleanup task.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	tracker := j.Metrics.Track(TaskIdempotencyCleanup)
	removed, err := j.Store.Cleanup(ctx)
	if err != nil {
		return tracker.End(err)
	}
	j.Metrics.AddPurged(removed)
	if j.Logger != nil {
		j.Logger.Info("idempotency keys purged", slog.String("job", TaskIdempotencyCleanup), slog.Int64("removed", removed))
	}
	return tracker.End(nil)
}
