package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/plaza/job"
)

// Timeout bounds each attempt by the job's Timeout. Jobs with a zero
// Timeout run unbounded.
func Timeout(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		if j.Timeout <= 0 {
			return next(ctx)
		}
		ctx, cancel := context.WithTimeout(ctx, j.Timeout)
		defer cancel()

		err := next(ctx)
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			logger.Warn("job attempt timed out",
				slog.String("job_id", j.ID.String()),
				slog.String("job_name", j.Name),
				slog.Duration("timeout", j.Timeout),
			)
			return fmt.Errorf("job %s exceeded timeout %s: %w", j.Name, j.Timeout, err)
		}
		return err
	}
}
