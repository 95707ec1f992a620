// Package worker runs jobs in the worker process. An Executor invokes
// registered handlers through middleware, a Pool polls the store with a
// fixed number of goroutines, and a Monitor tracks open tasks so shutdown
// can wait for them.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/plaza"
	"github.com/xraph/plaza/backoff"
	"github.com/xraph/plaza/ext"
	"github.com/xraph/plaza/id"
	"github.com/xraph/plaza/job"
	"github.com/xraph/plaza/middleware"
)

// Executor runs a single job attempt and settles its outcome in the store.
type Executor struct {
	registry   *job.Registry
	extensions *ext.Registry
	store      job.Store
	backoff    backoff.Strategy
	mw         middleware.Middleware
	logger     *slog.Logger
}

// NewExecutor creates an Executor with the given dependencies.
func NewExecutor(
	registry *job.Registry,
	extensions *ext.Registry,
	store job.Store,
	bo backoff.Strategy,
	logger *slog.Logger,
	mws ...middleware.Middleware,
) *Executor {
	if bo == nil {
		bo = backoff.DefaultStrategy()
	}
	return &Executor{
		registry:   registry,
		extensions: extensions,
		store:      store,
		backoff:    bo,
		mw:         middleware.Chain(mws...),
		logger:     logger,
	}
}

// Execute runs one attempt of j.
//
// A successful attempt completes the job with progress 100 and the result
// the handler recorded. A failed attempt returns the job to PENDING with a
// backoff delay while retries remain, and fails it otherwise. A job with
// no registered handler fails immediately.
func (e *Executor) Execute(ctx context.Context, j *job.Job) error {
	handler, ok := e.registry.Get(j.Name)
	if !ok {
		err := fmt.Errorf("%w: %q", plaza.ErrNoHandler, j.Name)
		return e.fail(ctx, j, err, time.Now().UTC())
	}

	tracker := job.NewTracker(j, e.reportProgress)
	ctx = job.WithTracker(ctx, tracker)

	terminal := func(ctx context.Context) error {
		return handler(ctx, j.Payload)
	}

	start := time.Now()
	err := e.mw(ctx, j, terminal)
	elapsed := time.Since(start)

	// Settle even when the attempt was cancelled by shutdown.
	ctx = context.WithoutCancel(ctx)
	now := time.Now().UTC()
	j.Attempts++
	j.Progress = tracker.Progress()

	if err != nil {
		if j.Attempts <= j.MaxRetries {
			return e.retry(ctx, j, err, now)
		}
		return e.fail(ctx, j, err, now)
	}

	j.Result = tracker.Result()
	return e.complete(ctx, j, now, elapsed)
}

func (e *Executor) reportProgress(ctx context.Context, j *job.Job, progress int) error {
	now := time.Now().UTC()
	j.Progress = progress
	j.UpdatedAt = now
	// UpdateJob writes every column; a stale HeartbeatAt would undo the
	// pool's latest heartbeat.
	j.HeartbeatAt = &now
	if err := e.store.UpdateJob(ctx, j); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	e.extensions.EmitJobProgress(ctx, j, progress)
	return nil
}

func (e *Executor) complete(ctx context.Context, j *job.Job, now time.Time, elapsed time.Duration) error {
	j.State = job.StateCompleted
	j.Progress = 100
	j.Error = ""
	j.SettledAt = &now
	j.UpdatedAt = now

	if err := e.store.UpdateJob(ctx, j); err != nil {
		e.logger.Error("failed to update job after success",
			slog.String("job_id", j.ID.String()),
			slog.String("job_name", j.Name),
			slog.String("error", err.Error()),
		)
		return err
	}

	e.extensions.EmitJobCompleted(ctx, j, elapsed)
	return nil
}

func (e *Executor) retry(ctx context.Context, j *job.Job, handlerErr error, now time.Time) error {
	delay := e.backoff.Delay(j.Queue, j.Attempts)
	nextRunAt := now.Add(delay)

	j.State = job.StatePending
	j.Error = handlerErr.Error()
	j.RunAt = nextRunAt
	j.WorkerID = id.Nil
	j.StartedAt = nil
	j.HeartbeatAt = nil
	j.UpdatedAt = now

	if err := e.store.UpdateJob(ctx, j); err != nil {
		e.logger.Error("failed to update job for retry",
			slog.String("job_id", j.ID.String()),
			slog.String("error", err.Error()),
		)
		return err
	}

	e.extensions.EmitJobRetrying(ctx, j, j.Attempts, nextRunAt)

	e.logger.Info("job scheduled for retry",
		slog.String("job_id", j.ID.String()),
		slog.String("job_name", j.Name),
		slog.Int("attempt", j.Attempts),
		slog.Int("max_retries", j.MaxRetries),
		slog.Duration("delay", delay),
	)

	return fmt.Errorf("job %s attempt %d/%d: %w", j.Name, j.Attempts, j.MaxRetries+1, handlerErr)
}

func (e *Executor) fail(ctx context.Context, j *job.Job, jobErr error, now time.Time) error {
	j.State = job.StateFailed
	j.Error = jobErr.Error()
	j.SettledAt = &now
	j.UpdatedAt = now
	if j.StartedAt == nil {
		j.StartedAt = &now
	}

	if err := e.store.UpdateJob(ctx, j); err != nil {
		e.logger.Error("failed to update job as failed",
			slog.String("job_id", j.ID.String()),
			slog.String("error", err.Error()),
		)
		return errors.Join(jobErr, err)
	}

	e.extensions.EmitJobFailed(ctx, j, jobErr)

	e.logger.Warn("job failed",
		slog.String("job_id", j.ID.String()),
		slog.String("job_name", j.Name),
		slog.Int("attempts", j.Attempts),
		slog.String("error", jobErr.Error()),
	)

	return jobErr
}
