package jobs

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity replays ledgers and compares them with stored balances.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "ledger:idempotency_cleanup"
)

// IntegrityPayload narrows an integrity run to specific ledgers. An empty
// list checks every ledger.
type IntegrityPayload struct {
	LedgerIDs []int64 `json:"ledgerIds,omitempty"`
}

// NewIntegrityTask constructs a ledger integrity task.
func NewIntegrityTask(payload IntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, data), nil
}

// NewIdempotencyCleanupTask constructs the idempotency cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil)
}

// TaskNames lists the tasks that can be triggered by name.
func TaskNames() []string {
	return []string{TaskLedgerIntegrity, TaskIdempotencyCleanup}
}

// NewTaskByName builds a task with its default payload.
func NewTaskByName(name string) (*asynq.Task, error) {
	switch strings.TrimSpace(name) {
	case TaskLedgerIntegrity:
		return NewIntegrityTask(IntegrityPayload{})
	case TaskIdempotencyCleanup:
		return NewIdempotencyCleanupTask(), nil
	default:
		return nil, fmt.Errorf("jobs: unknown task %q (known: %s)", name, strings.Join(slices.Sorted(slices.Values(TaskNames())), ", "))
	}
}

// RedisOpt converts REDIS_ADDR into asynq connection options. Both host:port
// and redis:// URLs are accepted.
func RedisOpt(addr string) (asynq.RedisConnOpt, error) {
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		return asynq.ParseRedisURI(addr)
	}
	return asynq.RedisClientOpt{Addr: addr}, nil
}
