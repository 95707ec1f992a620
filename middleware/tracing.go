package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/plaza/job"
)

const instrumentationName = "github.com/xraph/plaza"

// Tracing wraps each attempt in a span from the global TracerProvider.
func Tracing() Middleware {
	return TracingWithTracer(otel.Tracer(instrumentationName))
}

// TracingWithTracer wraps each attempt in a span from tracer.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		ctx, span := tracer.Start(ctx, "plaza.job.process",
			trace.WithAttributes(
				attribute.String("plaza.job.id", j.ID.String()),
				attribute.String("plaza.job.name", j.Name),
				attribute.String("plaza.job.queue", j.Queue),
				attribute.Int("plaza.job.attempt", j.Attempts+1),
				attribute.String("plaza.worker.id", j.WorkerID.String()),
			),
			trace.WithSpanKind(trace.SpanKindConsumer),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		span.SetStatus(codes.Ok, "")
		return nil
	}
}
