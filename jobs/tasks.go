package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskProducibleWarmup recomputes cached producibility quantities.
	TaskProducibleWarmup = "production:producible_warmup"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// ProducibleWarmupPayload carries scheduling metadata for the warmup job.
type ProducibleWarmupPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
	// Reason distinguishes cron runs from approval-triggered refreshes.
	Reason string `json:"reason,omitempty"`
}

// NewProducibleWarmupTask constructs an Asynq task for the warmup job.
func NewProducibleWarmupTask(at time.Time, reason string) (*asynq.Task, error) {
	body, err := json.Marshal(ProducibleWarmupPayload{ScheduledFor: at, Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskProducibleWarmup, body, asynq.Queue(QueueDefault)), nil
}

// IdempotencyCleanupPayload carries the retention window.
type IdempotencyCleanupPayload struct {
	MaxAge time.Duration `json:"max_age"`
}

// NewIdempotencyCleanupTask constructs an Asynq task for the cleanup job.
func NewIdempotencyCleanupTask(maxAge time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(IdempotencyCleanupPayload{MaxAge: maxAge})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}
