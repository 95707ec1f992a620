// Package ext defines job lifecycle extensions.
//
// Extensions are notified of job events and react to them, for example by
// recording metrics. Each hook is a separate interface so an extension
// opts in only to the events it cares about. Plugins that implement any
// of these hooks are registered automatically by the engine.
//
//	type Audit struct{}
//
//	func (a *Audit) Name() string { return "audit" }
//
//	func (a *Audit) OnJobFailed(ctx context.Context, j *job.Job, err error) error {
//	    slog.Warn("job failed", "job", j.Name, "error", err)
//	    return nil
//	}
//
// Hook errors are logged and never propagated: an extension cannot stall
// job processing.
package ext
