package jobs

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/dairy-erp/ledger/internal/accounting/statements"
	jobmetrics "github.com/dairy-erp/ledger/internal/jobs"
	"github.com/dairy-erp/ledger/internal/platform/cache"
	"github.com/dairy-erp/ledger/internal/shared"
)

// Verifier replays ledgers against their stored balances.
type Verifier interface {
	LedgerIDs(ctx context.Context) ([]int64, error)
	Verify(ctx context.Context, ledgerID int64) (statements.Verification, error)
}

// Locker grants single-runner critical sections.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// IntegrityReport summarises one integrity run.
type IntegrityReport struct {
	Checked    int                       `json:"checked"`
	Mismatches []statements.Verification `json:"mismatches"`
}

// IntegrityJob replays every ledger and flags stored balances that drifted.
type IntegrityJob struct {
	Verifier Verifier
	Locker   Locker
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	Workers  int
	LockTTL  time.Duration
}

// NewIntegrityJob initialises the integrity handler.
func NewIntegrityJob(verifier Verifier, locker Locker, logger *slog.Logger, metrics *jobmetrics.Metrics, workers int) *IntegrityJob {
	return &IntegrityJob{Verifier: verifier, Locker: locker, Logger: logger, Metrics: metrics, Workers: workers, LockTTL: 30 * time.Minute}
}

// Handle executes the integrity task. A run already in progress elsewhere is
// skipped rather than retried.
func (j *IntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Verifier == nil {
		return errors.New("ledger integrity: handler not configured")
	}
	var payload IntegrityPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("ledger integrity: payload: %w", asynq.SkipRetry)
		}
	}

	tracker := j.Metrics.Track(TaskLedgerIntegrity)
	run := func(ctx context.Context) error {
		_, err := j.Run(ctx, payload.LedgerIDs)
		return err
	}
	var err error
	if j.Locker != nil {
		err = j.Locker.WithLock(ctx, shared.JobLockKey(TaskLedgerIntegrity), j.lockTTL(), run)
	} else {
		err = run(ctx)
	}
	if errors.Is(err, cache.ErrLocked) {
		j.logger().Info("ledger integrity already running elsewhere")
		tracker.Skip()
		return nil
	}
	return tracker.End(err)
}

// Run verifies the given ledgers, or all ledgers when ids is empty.
func (j *IntegrityJob) Run(ctx context.Context, ids []int64) (IntegrityReport, error) {
	start := time.Now()
	if len(ids) == 0 {
		var err error
		if ids, err = j.Verifier.LedgerIDs(ctx); err != nil {
			return IntegrityReport{}, err
		}
	}
	logger := j.logger().With(slog.Int("ledgers", len(ids)))
	logger.Info("starting ledger integrity check")

	var (
		mu     sync.Mutex
		report = IntegrityReport{Checked: len(ids)}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.workers())
	for _, id := range ids {
		g.Go(func() error {
			v, err := j.Verifier.Verify(gctx, id)
			if err != nil {
				return fmt.Errorf("ledger %d: %w", id, err)
			}
			if !v.Match {
				mu.Lock()
				report.Mismatches = append(report.Mismatches, v)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("ledger integrity check failed", slog.Any("error", err))
		return IntegrityReport{}, err
	}
	slices.SortFunc(report.Mismatches, func(a, b statements.Verification) int {
		return cmp.Compare(a.LedgerID, b.LedgerID)
	})
	j.Metrics.AddMismatches(len(report.Mismatches))
	logger.Info("completed ledger integrity check",
		slog.Int("mismatches", len(report.Mismatches)),
		slog.Duration("duration", time.Since(start)),
	)
	return report, nil
}

func (j *IntegrityJob) workers() int {
	if j.Workers <= 0 {
		return 4
	}
	return j.Workers
}

func (j *IntegrityJob) lockTTL() time.Duration {
	if j.LockTTL <= 0 {
		return 30 * time.Minute
	}
	return j.LockTTL
}

func (j *IntegrityJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger.With(slog.String("job", TaskLedgerIntegrity))
}
