package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hibiken/asynq"

	"github.com/pagora/pagora-edp/jobs"
)

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string) (*JobsCLI, error) {
	if redisAddr == "" {
		return nil, errors.New("jobs cli: redis address required")
	}
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	return &JobsCLI{client: asynq.NewClient(opts), inspector: asynq.NewInspector(opts)}, nil
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// Trigger enqueues a supported job by name with default payload.
func (c *JobsCLI) Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	task, err := jobs.NewTaskByName(name)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.MaxRetry(3))
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
	Processed int    `json:"processed_today"`
	Failed    int    `json:"failed_today"`
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	return inspect(c.inspector)
}

type queueInfoGetter interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

func inspect(inspector queueInfoGetter) (QueueStats, error) {
	info, err := inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
		stats.Processed = info.Processed
		stats.Failed = info.Failed
	}
	return stats, nil
}

// WriteStats prints stats as aligned text.
func WriteStats(w io.Writer, stats QueueStats) {
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintf(w, "queue:      %s\n", stats.Queue)
	fmt.Fprintf(w, "pending:    %d\n", stats.Pending)
	fmt.Fprintf(w, "active:     %d\n", stats.Active)
	fmt.Fprintf(w, "scheduled:  %d\n", stats.Scheduled)
	fmt.Fprintf(w, "retry:      %d\n", stats.Retry)
	fmt.Fprintf(w, "archived:   %d\n", stats.Archived)
	fmt.Fprintf(w, "processed:  %d today\n", stats.Processed)
	fmt.Fprintf(w, "failed:     %d today\n", stats.Failed)
}
