package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/pagora/pagora-edp/internal/jobs"
)

// Bumper invalidates cached KPI sets.
type Bumper interface {
	Bump(ctx context.Context) (int64, error)
}

// CacheBumpJob handles kpi:cache_bump tasks, typically enqueued after the
// source spreadsheet changes.
type CacheBumpJob struct {
	Bumper  Bumper
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewCacheBumpJob wires the bump handler.
func NewCacheBumpJob(bumper Bumper, logger *slog.Logger, metrics *jobmetrics.Metrics) *CacheBumpJob {
	return &CacheBumpJob{Bumper: bumper, Logger: logger, Metrics: metrics}
}

// Handle increments the cache version.
func (j *CacheBumpJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Bumper == nil {
		return errors.New("kpi cache bump: handler not configured")
	}
	var payload CacheBumpPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskKPICacheBump)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	version, err := j.Bumper.Bump(ctx)
	if err != nil {
		logger.Error("kpi cache bump failed", slog.String("run_id", payload.RunID), slog.Any("error", err))
		return err
	}
	logger.Info("kpi cache bumped",
		slog.String("job", TaskKPICacheBump),
		slog.String("run_id", payload.RunID),
		slog.String("reason", payload.Reason),
		slog.Int64("version", version),
	)
	return nil
}
