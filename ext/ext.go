package ext

import (
	"context"
	"time"

	"github.com/xraph/plaza/id"
	"github.com/xraph/plaza/job"
)

// Extension is the base interface all extensions implement.
type Extension interface {
	Name() string
}

// JobEnqueued is called after a job is persisted.
type JobEnqueued interface {
	OnJobEnqueued(ctx context.Context, j *job.Job) error
}

// JobStarted is called when a worker begins an attempt.
type JobStarted interface {
	OnJobStarted(ctx context.Context, j *job.Job) error
}

// JobProgress is called when a handler reports progress.
type JobProgress interface {
	OnJobProgress(ctx context.Context, j *job.Job, progress int) error
}

// JobCompleted is called after a job finishes successfully.
type JobCompleted interface {
	OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error
}

// JobFailed is called when a job fails with no retries left.
type JobFailed interface {
	OnJobFailed(ctx context.Context, j *job.Job, err error) error
}

// JobRetrying is called when a failed job is rescheduled.
type JobRetrying interface {
	OnJobRetrying(ctx context.Context, j *job.Job, attempt int, nextRunAt time.Time) error
}

// TaskFired is called when a scheduled task enqueues its job.
type TaskFired interface {
	OnTaskFired(ctx context.Context, task string, jobID id.JobID) error
}

// Shutdown is called when the worker process stops.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
