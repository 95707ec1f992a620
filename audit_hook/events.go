package audithook

// Actions recorded by the extension, one per lifecycle hook.
const (
	ActionJobEnqueued  = "job.enqueued"
	ActionJobStarted   = "job.started"
	ActionJobProgress  = "job.progress"
	ActionJobCompleted = "job.completed"
	ActionJobFailed    = "job.failed"
	ActionJobRetrying  = "job.retrying"
	ActionTaskFired    = "task.fired"
	ActionShutdown     = "worker.shutdown"
)

// Categories group related actions.
const (
	CategoryJob    = "plaza.job"
	CategoryTask   = "plaza.task"
	CategoryWorker = "plaza.worker"
)

// Resource kinds.
const (
	ResourceJob    = "job"
	ResourceTask   = "scheduled_task"
	ResourceWorker = "worker"
)

// Severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// AllActions returns every action the extension can record.
func AllActions() []string {
	return []string{
		ActionJobEnqueued,
		ActionJobStarted,
		ActionJobProgress,
		ActionJobCompleted,
		ActionJobFailed,
		ActionJobRetrying,
		ActionTaskFired,
		ActionShutdown,
	}
}
