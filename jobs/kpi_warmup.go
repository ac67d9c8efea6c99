package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/bsm/redislock"
	"github.com/hibiken/asynq"

	"github.com/pagora/pagora-edp/internal/analytics"
	jobmetrics "github.com/pagora/pagora-edp/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// WarmupLockKey guards warmup runs across worker processes.
const WarmupLockKey = "pagora:kpi:warmup:lock"

// Warmer computes and snapshots KPI scopes.
type Warmer interface {
	Warmup(ctx context.Context, scopes []analytics.FilterSpec) (analytics.WarmupResult, error)
}

// KPIWarmupJob pre-populates the KPI cache and snapshot table.
type KPIWarmupJob struct {
	Warmer  Warmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Timeout time.Duration
	// Locker, when set, lets only one worker run a warmup at a time.
	Locker *redislock.Client
	clock  func() time.Time
}

// NewKPIWarmupJob wires dependencies for the warmup handler.
func NewKPIWarmupJob(warmer Warmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *KPIWarmupJob {
	return &KPIWarmupJob{
		Warmer:  warmer,
		Logger:  logger,
		Metrics: metrics,
		Timeout: 2 * time.Minute,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes kpi:warmup tasks.
func (j *KPIWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Warmer == nil {
		return errors.New("kpi warmup: handler not configured")
	}
	var payload KPIWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	scopes := payload.Scopes
	if len(scopes) == 0 {
		scopes = analytics.DefaultScopes()
	}

	tracker := j.metrics().Track(TaskKPIWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("run_id", payload.RunID), slog.Int("scopes", len(scopes)))
	if taskID, ok := asynq.GetTaskID(ctx); ok {
		logger = logger.With(slog.String("task_id", taskID))
	}
	if j.Locker != nil {
		lock, err := j.Locker.Obtain(ctx, WarmupLockKey, j.lockTTL(), nil)
		switch {
		case errors.Is(err, redislock.ErrNotObtained):
			logger.Info("kpi warmup already running elsewhere, skipping")
			return nil
		case err != nil:
			logger.Warn("warmup lock unavailable, continuing without it", slog.Any("error", err))
		default:
			defer func() {
				if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
					logger.Warn("release warmup lock", slog.Any("error", err))
				}
			}()
		}
	}
	logger.Info("starting kpi warmup")
	start := j.now()

	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}
	res, err := j.Warmer.Warmup(ctx, scopes)
	j.metrics().AddSnapshots("saved", res.Snapshots)
	j.metrics().AddSnapshots("unavailable", res.Unavailable)
	if err != nil {
		logger.Error("kpi warmup failed", slog.Int("completed", res.Scopes), slog.Any("error", err))
		return err
	}
	if res.Unavailable > 0 {
		logger.Warn("kpi warmup ran without source data", slog.Int("unavailable", res.Unavailable))
	}
	logger.Info("completed kpi warmup",
		slog.Int("snapshots", res.Snapshots),
		slog.Duration("duration", j.now().Sub(start)),
	)
	return nil
}

func (j *KPIWarmupJob) lockTTL() time.Duration {
	if j.Timeout > 0 {
		return j.Timeout + 30*time.Second
	}
	return 5 * time.Minute
}

func (j *KPIWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskKPIWarmup))
	}
	return slog.Default().With(slog.String("job", TaskKPIWarmup))
}

func (j *KPIWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *KPIWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
