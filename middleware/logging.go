package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/plaza/job"
)

// Logging logs the start and outcome of every attempt.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		attrs := []any{
			slog.String("job_id", j.ID.String()),
			slog.String("job_name", j.Name),
			slog.String("queue", j.Queue),
			slog.Int("attempt", j.Attempts+1),
		}
		logger.Debug("job attempt started", attrs...)

		start := time.Now()
		err := next(ctx)
		attrs = append(attrs, slog.Duration("elapsed", time.Since(start)))

		if err != nil {
			logger.Error("job attempt failed", append(attrs, slog.String("error", err.Error()))...)
			return err
		}
		logger.Info("job attempt succeeded", attrs...)
		return nil
	}
}
