package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/plaza/job"
)

// Metrics records attempt metrics with the global MeterProvider.
//
// Instruments:
//   - plaza.job.duration (Float64Histogram, seconds)
//   - plaza.job.executions (Int64Counter)
//
// Both carry job_name, queue and status ("ok" or "error").
func Metrics() Middleware {
	return MetricsWithMeter(otel.Meter(instrumentationName))
}

// MetricsWithMeter records attempt metrics with meter.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// Instrument creation falls back to noop instruments on error.
	duration, _ := meter.Float64Histogram(
		"plaza.job.duration",
		metric.WithDescription("Duration of job attempts in seconds"),
		metric.WithUnit("s"),
	)
	executions, _ := meter.Int64Counter(
		"plaza.job.executions",
		metric.WithDescription("Number of job attempts"),
		metric.WithUnit("{attempt}"),
	)

	return func(ctx context.Context, j *job.Job, next Handler) error {
		start := time.Now()
		err := next(ctx)

		status := "ok"
		if err != nil {
			status = "error"
		}
		attrs := metric.WithAttributes(
			attribute.String("job_name", j.Name),
			attribute.String("queue", j.Queue),
			attribute.String("status", status),
		)
		duration.Record(ctx, time.Since(start).Seconds(), attrs)
		executions.Add(ctx, 1, attrs)
		return err
	}
}
