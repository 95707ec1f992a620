package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/plaza"
	"github.com/xraph/plaza/id"
	"github.com/xraph/plaza/job"
)

const jobColumns = `
	id, name, queue, payload, state, progress, result, error,
	attempts, max_retries, priority, worker_id,
	run_at, started_at, settled_at, heartbeat_at, timeout,
	created_at, updated_at`

// EnqueueJob persists a new job in pending state.
func (s *Store) EnqueueJob(ctx context.Context, j *job.Job) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO plaza_jobs (`+jobColumns+`
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12,
			$13, $14, $15, $16, $17,
			$18, $19
		)`,
		j.ID.String(), j.Name, j.Queue, j.Payload, string(j.State), j.Progress, nullJSON(j.Result), j.Error,
		j.Attempts, j.MaxRetries, j.Priority, j.WorkerID,
		j.RunAt, j.StartedAt, j.SettledAt, j.HeartbeatAt, j.Timeout.Nanoseconds(),
		j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return plaza.ErrJobAlreadyExists
		}
		return fmt.Errorf("plaza/postgres: enqueue job: %w", err)
	}
	return nil
}

// DequeueJobs atomically claims up to limit due pending jobs from the
// given queues for workerID. Uses SELECT FOR UPDATE SKIP LOCKED so
// concurrent workers never claim the same job.
func (s *Store) DequeueJobs(ctx context.Context, queues []string, workerID id.WorkerID, limit int) ([]*job.Job, error) {
	rows, err := s.pool.Query(ctx, `
		WITH dequeued AS (
			UPDATE plaza_jobs
			SET state = 'RUNNING', worker_id = $3,
				started_at = NOW(), heartbeat_at = NOW(), settled_at = NULL,
				updated_at = NOW()
			WHERE id IN (
				SELECT id FROM plaza_jobs
				WHERE state = 'PENDING'
				  AND (COALESCE(cardinality($1::text[]), 0) = 0 OR queue = ANY($1))
				  AND run_at <= NOW()
				ORDER BY priority DESC, run_at ASC
				FOR UPDATE SKIP LOCKED
				LIMIT $2
			)
			RETURNING `+jobColumns+`
		)
		SELECT * FROM dequeued ORDER BY priority DESC, run_at ASC`,
		queues, limit, workerID,
	)
	if err != nil {
		return nil, fmt.Errorf("plaza/postgres: dequeue jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM plaza_jobs WHERE id = $1`,
		jobID.String(),
	)

	j, err := scanJob(row)
	if err != nil {
		if isNoRows(err) {
			return nil, plaza.ErrJobNotFound
		}
		return nil, fmt.Errorf("plaza/postgres: get job: %w", err)
	}
	return j, nil
}

// UpdateJob persists changes to an existing job.
func (s *Store) UpdateJob(ctx context.Context, j *job.Job) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE plaza_jobs SET
			name = $2, queue = $3, payload = $4, state = $5,
			progress = $6, result = $7, error = $8,
			attempts = $9, max_retries = $10, priority = $11,
			worker_id = $12, run_at = $13, started_at = $14,
			settled_at = $15, heartbeat_at = $16, timeout = $17,
			updated_at = NOW()
		WHERE id = $1`,
		j.ID.String(), j.Name, j.Queue, j.Payload, string(j.State),
		j.Progress, nullJSON(j.Result), j.Error,
		j.Attempts, j.MaxRetries, j.Priority,
		j.WorkerID, j.RunAt, j.StartedAt,
		j.SettledAt, j.HeartbeatAt, j.Timeout.Nanoseconds(),
	)
	if err != nil {
		return fmt.Errorf("plaza/postgres: update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return plaza.ErrJobNotFound
	}
	return nil
}

// ListJobs returns jobs matching opts, oldest first.
func (s *Store) ListJobs(ctx context.Context, opts job.ListOpts) ([]*job.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM plaza_jobs WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if opts.State != "" {
		query += " AND state = " + arg(string(opts.State))
	}
	if opts.Name != "" {
		query += " AND name = " + arg(opts.Name)
	}
	if opts.Queue != "" {
		query += " AND queue = " + arg(opts.Queue)
	}
	if len(opts.IDs) > 0 {
		ids := make([]string, len(opts.IDs))
		for i, jid := range opts.IDs {
			ids[i] = jid.String()
		}
		query += " AND id = ANY(" + arg(ids) + ")"
	}

	query += " ORDER BY created_at ASC, id ASC"

	if opts.Limit > 0 {
		query += " LIMIT " + arg(opts.Limit)
	}
	if opts.Offset > 0 {
		query += " OFFSET " + arg(opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("plaza/postgres: list jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// CountJobs returns the number of jobs matching opts.
func (s *Store) CountJobs(ctx context.Context, opts job.CountOpts) (int64, error) {
	query := `SELECT COUNT(*) FROM plaza_jobs WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if opts.Queue != "" {
		query += " AND queue = " + arg(opts.Queue)
	}
	if opts.State != "" {
		query += " AND state = " + arg(string(opts.State))
	}
	if opts.Name != "" {
		query += " AND name = " + arg(opts.Name)
	}

	var count int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("plaza/postgres: count jobs: %w", err)
	}
	return count, nil
}

// HeartbeatJob updates the heartbeat of a job running on workerID.
func (s *Store) HeartbeatJob(ctx context.Context, jobID id.JobID, workerID id.WorkerID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE plaza_jobs SET heartbeat_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND worker_id = $2 AND state = 'RUNNING'`,
		jobID.String(), workerID.String(),
	)
	if err != nil {
		return fmt.Errorf("plaza/postgres: heartbeat job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return plaza.ErrJobNotFound
	}
	return nil
}

// ReapStaleJobs returns running jobs whose last heartbeat, or start time
// when none was recorded, is older than threshold.
func (s *Store) ReapStaleJobs(ctx context.Context, threshold time.Duration) ([]*job.Job, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM plaza_jobs
		WHERE state = 'RUNNING'
		  AND COALESCE(heartbeat_at, started_at) < NOW() - make_interval(secs => $1)`,
		threshold.Seconds(),
	)
	if err != nil {
		return nil, fmt.Errorf("plaza/postgres: reap stale jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// RemoveSettledJobs deletes completed and failed jobs settled before the
// given time.
func (s *Store) RemoveSettledJobs(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM plaza_jobs
		WHERE state IN ('COMPLETED', 'FAILED') AND settled_at < $1`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("plaza/postgres: remove settled jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanJob(row pgx.Row) (*job.Job, error) {
	var (
		j         job.Job
		idStr     string
		stateStr  string
		workerStr *string
		result    []byte
		timeoutNs int64
	)
	err := row.Scan(
		&idStr, &j.Name, &j.Queue, &j.Payload, &stateStr, &j.Progress, &result, &j.Error,
		&j.Attempts, &j.MaxRetries, &j.Priority, &workerStr,
		&j.RunAt, &j.StartedAt, &j.SettledAt, &j.HeartbeatAt, &timeoutNs,
		&j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	j.State = job.State(stateStr)
	j.Result = result
	j.Timeout = time.Duration(timeoutNs)

	parsedID, err := id.ParseJobID(idStr)
	if err != nil {
		return nil, fmt.Errorf("plaza/postgres: parse job id %q: %w", idStr, err)
	}
	j.ID = parsedID

	if workerStr != nil && *workerStr != "" {
		if wid, werr := id.ParseWorkerID(*workerStr); werr == nil {
			j.WorkerID = wid
		}
	}

	return &j, nil
}

func collectJobs(rows pgx.Rows) ([]*job.Job, error) {
	var jobs []*job.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("plaza/postgres: scan job row: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("plaza/postgres: iterate job rows: %w", err)
	}
	return jobs, nil
}
