package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/xraph/plaza"
	"github.com/xraph/plaza/id"
	"github.com/xraph/plaza/job"
)

// EnqueueJob persists a new job in pending state.
func (s *Store) EnqueueJob(ctx context.Context, j *job.Job) error {
	_, err := s.db.NewInsert().Model(toJobModel(j)).Exec(ctx)
	return jobErr("enqueue job", err)
}

// jobErr maps a missing row to plaza.ErrJobNotFound and a unique_violation
// (23505) to plaza.ErrJobAlreadyExists. Other errors are wrapped with op.
func jobErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return plaza.ErrJobNotFound
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.Field('C') == "23505" {
		return plaza.ErrJobAlreadyExists
	}
	return fmt.Errorf("plaza/bun: %s: %w", op, err)
}

// DequeueJobs atomically claims up to limit due pending jobs for
// workerID. Uses SELECT FOR UPDATE SKIP LOCKED via raw SQL.
func (s *Store) DequeueJobs(ctx context.Context, queues []string, workerID id.WorkerID, limit int) ([]*job.Job, error) {
	var models []jobModel
	err := s.db.NewRaw(`
		WITH dequeued AS (
			UPDATE plaza_jobs
			SET state = 'RUNNING', worker_id = ?2,
				started_at = NOW(), heartbeat_at = NOW(), settled_at = NULL,
				updated_at = NOW()
			WHERE id IN (
				SELECT id FROM plaza_jobs
				WHERE state = 'PENDING'
				  AND (COALESCE(cardinality(?0::text[]), 0) = 0 OR queue = ANY(?0))
				  AND run_at <= NOW()
				ORDER BY priority DESC, run_at ASC
				FOR UPDATE SKIP LOCKED
				LIMIT ?1
			)
			RETURNING *
		)
		SELECT * FROM dequeued ORDER BY priority DESC, run_at ASC`,
		pgdialect.Array(queues), limit, workerID.String(),
	).Scan(ctx, &models)
	if err != nil {
		return nil, fmt.Errorf("plaza/bun: dequeue jobs: %w", err)
	}
	return fromJobModels(models)
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	m := new(jobModel)
	err := s.db.NewSelect().Model(m).
		Where("id = ?", jobID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, jobErr("get job", err)
	}
	return fromJobModel(m)
}

// UpdateJob persists changes to an existing job.
func (s *Store) UpdateJob(ctx context.Context, j *job.Job) error {
	m := toJobModel(j)
	m.UpdatedAt = time.Now().UTC()
	res, err := s.db.NewUpdate().Model(m).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("plaza/bun: update job: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows == 0 {
		return plaza.ErrJobNotFound
	}
	return nil
}

// ListJobs returns jobs matching opts, oldest first.
func (s *Store) ListJobs(ctx context.Context, opts job.ListOpts) ([]*job.Job, error) {
	var models []jobModel
	q := s.db.NewSelect().Model(&models)

	if opts.State != "" {
		q = q.Where("state = ?", string(opts.State))
	}
	if opts.Name != "" {
		q = q.Where("name = ?", opts.Name)
	}
	if opts.Queue != "" {
		q = q.Where("queue = ?", opts.Queue)
	}
	if len(opts.IDs) > 0 {
		ids := make([]string, len(opts.IDs))
		for i, jid := range opts.IDs {
			ids[i] = jid.String()
		}
		q = q.Where("id IN (?)", bun.In(ids))
	}

	q = q.Order("created_at ASC", "id ASC")

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("plaza/bun: list jobs: %w", err)
	}
	return fromJobModels(models)
}

// CountJobs returns the number of jobs matching opts.
func (s *Store) CountJobs(ctx context.Context, opts job.CountOpts) (int64, error) {
	q := s.db.NewSelect().Model((*jobModel)(nil))

	if opts.Queue != "" {
		q = q.Where("queue = ?", opts.Queue)
	}
	if opts.State != "" {
		q = q.Where("state = ?", string(opts.State))
	}
	if opts.Name != "" {
		q = q.Where("name = ?", opts.Name)
	}

	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("plaza/bun: count jobs: %w", err)
	}
	return int64(count), nil
}

// HeartbeatJob updates the heartbeat of a job running on workerID.
func (s *Store) HeartbeatJob(ctx context.Context, jobID id.JobID, workerID id.WorkerID) error {
	res, err := s.db.NewUpdate().
		Model((*jobModel)(nil)).
		Set("heartbeat_at = NOW()").
		Set("updated_at = NOW()").
		Where("id = ?", jobID.String()).
		Where("worker_id = ?", workerID.String()).
		Where("state = ?", string(job.StateRunning)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("plaza/bun: heartbeat job: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows == 0 {
		return plaza.ErrJobNotFound
	}
	return nil
}

// ReapStaleJobs returns running jobs whose last heartbeat, or start time
// when none was recorded, is older than threshold.
func (s *Store) ReapStaleJobs(ctx context.Context, threshold time.Duration) ([]*job.Job, error) {
	var models []jobModel
	err := s.db.NewSelect().Model(&models).
		Where("state = ?", string(job.StateRunning)).
		Where("COALESCE(heartbeat_at, started_at) < ?", time.Now().UTC().Add(-threshold)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("plaza/bun: reap stale jobs: %w", err)
	}
	return fromJobModels(models)
}

// RemoveSettledJobs deletes completed and failed jobs settled before the
// given time.
func (s *Store) RemoveSettledJobs(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.NewDelete().
		Model((*jobModel)(nil)).
		Where("state IN (?)", bun.In([]string{string(job.StateCompleted), string(job.StateFailed)})).
		Where("settled_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("plaza/bun: remove settled jobs: %w", err)
	}
	n, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	return n, nil
}
