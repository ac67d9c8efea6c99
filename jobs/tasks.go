package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/pagora/pagora-edp/internal/analytics"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskKPIWarmup precomputes the default KPI scopes and snapshots them.
	TaskKPIWarmup = "kpi:warmup"
	// TaskKPICacheBump invalidates every cached KPI set.
	TaskKPICacheBump = "kpi:cache_bump"

	// WarmupCron runs the warmup at a quarter past every hour.
	WarmupCron = "15 * * * *"
)

// KPIWarmupPayload lists the scopes to warm. Empty means
// analytics.DefaultScopes.
type KPIWarmupPayload struct {
	RunID  string                 `json:"run_id"`
	Scopes []analytics.FilterSpec `json:"scopes,omitempty"`
}

// CacheBumpPayload records why the cache was invalidated.
type CacheBumpPayload struct {
	RunID  string    `json:"run_id"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// NewKPIWarmupTask constructs a warmup task for scopes.
func NewKPIWarmupTask(scopes ...analytics.FilterSpec) (*asynq.Task, error) {
	data, err := json.Marshal(KPIWarmupPayload{RunID: uuid.NewString(), Scopes: scopes})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskKPIWarmup, data, asynq.Queue(QueueDefault), asynq.Timeout(5*time.Minute)), nil
}

// NewCacheBumpTask constructs a cache invalidation task.
func NewCacheBumpTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(CacheBumpPayload{RunID: uuid.NewString(), Reason: reason, At: time.Now().UTC()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskKPICacheBump, data, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// NewTaskByName builds a task with its default payload.
func NewTaskByName(name string) (*asynq.Task, error) {
	switch name {
	case TaskKPIWarmup:
		return NewKPIWarmupTask()
	case TaskKPICacheBump:
		return NewCacheBumpTask("manual")
	default:
		return nil, fmt.Errorf("jobs: unsupported task %q", name)
	}
}
