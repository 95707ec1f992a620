// Package observability records platform-wide job counters through a
// go-utils MetricFactory. Per-attempt tracing and latency live in the
// middleware package.
package observability
