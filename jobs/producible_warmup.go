package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/harvest-erp/harvest-erp/internal/jobs"
	"github.com/harvest-erp/harvest-erp/internal/production"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ProducibleWarmupJob pre-populates the producibility cache for every product
// that owns a recipe, so the order entry screen reads warm numbers.
type ProducibleWarmupJob struct {
	Production *production.Service
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
	clock      func() time.Time
}

// NewProducibleWarmupJob wires dependencies for the warmup handler.
func NewProducibleWarmupJob(productionSvc *production.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *ProducibleWarmupJob {
	return &ProducibleWarmupJob{
		Production: productionSvc,
		Logger:     logger,
		Metrics:    metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes producibility warmup tasks.
func (j *ProducibleWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Production == nil {
		return errors.New("producible warmup: handler not configured")
	}
	var payload ProducibleWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskProducibleWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("reason", payload.Reason))
	start := j.now()

	warmCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	warmed, err := j.Production.RefreshProducible(warmCtx)
	if err != nil {
		resultErr = err
		logger.Error("refresh producibility", slog.Any("error", err))
		return resultErr
	}
	j.metrics().AddWarmedProducts(warmed)
	logger.Info("completed producibility warmup", slog.Int("products", warmed), slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *ProducibleWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskProducibleWarmup))
	}
	return slog.Default().With(slog.String("job", TaskProducibleWarmup))
}

func (j *ProducibleWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ProducibleWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
