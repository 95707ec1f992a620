package audithook

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/plaza/ext"
	"github.com/xraph/plaza/id"
	"github.com/xraph/plaza/job"
)

var (
	_ ext.Extension    = (*Extension)(nil)
	_ ext.JobEnqueued  = (*Extension)(nil)
	_ ext.JobStarted   = (*Extension)(nil)
	_ ext.JobProgress  = (*Extension)(nil)
	_ ext.JobCompleted = (*Extension)(nil)
	_ ext.JobFailed    = (*Extension)(nil)
	_ ext.JobRetrying  = (*Extension)(nil)
	_ ext.TaskFired    = (*Extension)(nil)
	_ ext.Shutdown     = (*Extension)(nil)
)

// Event is one audit trail entry.
type Event struct {
	Action     string         `json:"action"`
	Category   string         `json:"category"`
	Resource   string         `json:"resource"`
	ResourceID string         `json:"resource_id,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Time       time.Time      `json:"time"`
}

// Recorder persists audit events.
type Recorder interface {
	Record(ctx context.Context, evt *Event) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, evt *Event) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, evt *Event) error { return f(ctx, evt) }

// SlogRecorder writes events to logger. Critical events are logged at
// error level and warnings at warn level.
func SlogRecorder(logger *slog.Logger) Recorder {
	return RecorderFunc(func(ctx context.Context, evt *Event) error {
		level := slog.LevelInfo
		switch evt.Severity {
		case SeverityWarning:
			level = slog.LevelWarn
		case SeverityCritical:
			level = slog.LevelError
		}
		attrs := []slog.Attr{
			slog.String("action", evt.Action),
			slog.String("category", evt.Category),
			slog.String("resource", evt.Resource),
			slog.String("resource_id", evt.ResourceID),
			slog.String("outcome", evt.Outcome),
		}
		if evt.Reason != "" {
			attrs = append(attrs, slog.String("reason", evt.Reason))
		}
		for k, v := range evt.Metadata {
			attrs = append(attrs, slog.Any(k, v))
		}
		logger.LogAttrs(ctx, level, "audit", attrs...)
		return nil
	})
}

// Extension records lifecycle events through a Recorder.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool
	logger   *slog.Logger
}

// New creates an audit Extension.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{recorder: r, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements ext.Extension.
func (e *Extension) Name() string { return "audit-hook" }

// OnJobEnqueued implements ext.JobEnqueued.
func (e *Extension) OnJobEnqueued(ctx context.Context, j *job.Job) error {
	return e.record(ctx, jobEvent(ActionJobEnqueued, SeverityInfo, OutcomeSuccess, j, map[string]any{
		"priority": j.Priority,
		"run_at":   j.RunAt.Format(time.RFC3339),
	}))
}

// OnJobStarted implements ext.JobStarted.
func (e *Extension) OnJobStarted(ctx context.Context, j *job.Job) error {
	return e.record(ctx, jobEvent(ActionJobStarted, SeverityInfo, OutcomeSuccess, j, map[string]any{
		"worker_id": j.WorkerID.String(),
		"attempt":   j.Attempts + 1,
	}))
}

// OnJobProgress implements ext.JobProgress.
func (e *Extension) OnJobProgress(ctx context.Context, j *job.Job, progress int) error {
	return e.record(ctx, jobEvent(ActionJobProgress, SeverityInfo, OutcomeSuccess, j, map[string]any{
		"progress": progress,
	}))
}

// OnJobCompleted implements ext.JobCompleted.
func (e *Extension) OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error {
	return e.record(ctx, jobEvent(ActionJobCompleted, SeverityInfo, OutcomeSuccess, j, map[string]any{
		"elapsed_ms": elapsed.Milliseconds(),
	}))
}

// OnJobFailed implements ext.JobFailed.
func (e *Extension) OnJobFailed(ctx context.Context, j *job.Job, jobErr error) error {
	evt := jobEvent(ActionJobFailed, SeverityCritical, OutcomeFailure, j, map[string]any{
		"attempts":    j.Attempts,
		"max_retries": j.MaxRetries,
	})
	evt.Reason = jobErr.Error()
	return e.record(ctx, evt)
}

// OnJobRetrying implements ext.JobRetrying.
func (e *Extension) OnJobRetrying(ctx context.Context, j *job.Job, attempt int, nextRunAt time.Time) error {
	evt := jobEvent(ActionJobRetrying, SeverityWarning, OutcomeFailure, j, map[string]any{
		"attempt":     attempt,
		"next_run_at": nextRunAt.Format(time.RFC3339),
	})
	evt.Reason = j.Error
	return e.record(ctx, evt)
}

// OnTaskFired implements ext.TaskFired.
func (e *Extension) OnTaskFired(ctx context.Context, task string, jobID id.JobID) error {
	return e.record(ctx, &Event{
		Action:     ActionTaskFired,
		Category:   CategoryTask,
		Resource:   ResourceTask,
		ResourceID: task,
		Outcome:    OutcomeSuccess,
		Severity:   SeverityInfo,
		Metadata:   map[string]any{"job_id": jobID.String()},
	})
}

// OnShutdown implements ext.Shutdown.
func (e *Extension) OnShutdown(ctx context.Context) error {
	return e.record(ctx, &Event{
		Action:   ActionShutdown,
		Category: CategoryWorker,
		Resource: ResourceWorker,
		Outcome:  OutcomeSuccess,
		Severity: SeverityInfo,
	})
}

func jobEvent(action, severity, outcome string, j *job.Job, meta map[string]any) *Event {
	meta["job_name"] = j.Name
	meta["queue"] = j.Queue
	return &Event{
		Action:     action,
		Category:   CategoryJob,
		Resource:   ResourceJob,
		ResourceID: j.ID.String(),
		Outcome:    outcome,
		Severity:   severity,
		Metadata:   meta,
	}
}

// record hands evt to the recorder. Recorder failures are logged and
// never fail the job.
func (e *Extension) record(ctx context.Context, evt *Event) error {
	if e.enabled != nil && !e.enabled[evt.Action] {
		return nil
	}
	evt.Time = time.Now().UTC()
	if err := e.recorder.Record(ctx, evt); err != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			slog.String("action", evt.Action),
			slog.String("resource_id", evt.ResourceID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}
