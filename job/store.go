package job

import (
	"context"
	"time"

	"github.com/xraph/plaza/id"
)

// ListOpts controls filtering and pagination for job list queries.
// Results are ordered by creation time ascending.
type ListOpts struct {
	// State filters by state. Empty means all states.
	State State
	// IDs restricts the result to the given jobs.
	IDs []id.JobID
	// Name filters by job name.
	Name string
	// Queue filters by queue name.
	Queue string
	// Limit is the maximum number of jobs to return. Zero means no limit.
	Limit int
	// Offset is the number of jobs to skip.
	Offset int
}

// CountOpts controls filtering for job count queries.
type CountOpts struct {
	Queue string
	State State
	Name  string
}

// Store defines the persistence contract for jobs.
type Store interface {
	// EnqueueJob persists a new job in pending state.
	EnqueueJob(ctx context.Context, j *Job) error

	// DequeueJobs atomically claims up to limit due pending jobs from the
	// given queues for workerID, marks them running and returns them.
	// Jobs are ordered by priority (descending) then RunAt (ascending).
	DequeueJobs(ctx context.Context, queues []string, workerID id.WorkerID, limit int) ([]*Job, error)

	// GetJob retrieves a job by ID. Missing jobs yield plaza.ErrJobNotFound.
	GetJob(ctx context.Context, jobID id.JobID) (*Job, error)

	// UpdateJob persists changes to an existing job.
	UpdateJob(ctx context.Context, j *Job) error

	// ListJobs returns jobs matching opts.
	ListJobs(ctx context.Context, opts ListOpts) ([]*Job, error)

	// CountJobs returns the number of jobs matching opts.
	CountJobs(ctx context.Context, opts CountOpts) (int64, error)

	// HeartbeatJob records that workerID is still executing the job.
	HeartbeatJob(ctx context.Context, jobID id.JobID, workerID id.WorkerID) error

	// ReapStaleJobs returns running jobs whose last heartbeat is older than
	// threshold.
	ReapStaleJobs(ctx context.Context, threshold time.Duration) ([]*Job, error)

	// RemoveSettledJobs deletes completed and failed jobs settled before
	// the given time and returns how many were removed.
	RemoveSettledJobs(ctx context.Context, before time.Time) (int64, error)
}
