// Package middleware provides composable middleware around job handler
// execution.
//
// A [Middleware] receives the context, the job being executed and the next
// [Handler]. [Chain] composes them with the first as the outermost layer.
//
// Built-in middleware:
//
//   - [Recover]: converts panics into errors
//   - [Logging]: logs each attempt with slog
//   - [Tracing]: one OpenTelemetry span per attempt, "plaza.job.process"
//   - [Metrics]: plaza.job.duration and plaza.job.executions instruments
//   - [Timeout]: enforces Job.Timeout
//
// The worker always runs Recover first; user middleware passed to the
// engine runs inside it.
package middleware
