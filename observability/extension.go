package observability

import (
	"context"
	"time"

	gu "github.com/xraph/go-utils/metrics"

	"github.com/xraph/plaza/ext"
	"github.com/xraph/plaza/id"
	"github.com/xraph/plaza/job"
)

var (
	_ ext.Extension    = (*MetricsExtension)(nil)
	_ ext.JobEnqueued  = (*MetricsExtension)(nil)
	_ ext.JobProgress  = (*MetricsExtension)(nil)
	_ ext.JobCompleted = (*MetricsExtension)(nil)
	_ ext.JobFailed    = (*MetricsExtension)(nil)
	_ ext.JobRetrying  = (*MetricsExtension)(nil)
	_ ext.TaskFired    = (*MetricsExtension)(nil)
	_ ext.Shutdown     = (*MetricsExtension)(nil)
)

// MetricsExtension counts job lifecycle events.
type MetricsExtension struct {
	JobEnqueued     gu.Counter
	JobProgressed   gu.Counter
	JobCompleted    gu.Counter
	JobFailed       gu.Counter
	JobRetried      gu.Counter
	TaskFired       gu.Counter
	WorkerShutdowns gu.Counter
}

// NewMetricsExtension creates a MetricsExtension with its own collector.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithFactory(gu.NewMetricsCollector("plaza/observability"))
}

// NewMetricsExtensionWithFactory creates a MetricsExtension on factory,
// typically fapp.Metrics() inside a forge application.
func NewMetricsExtensionWithFactory(factory gu.MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		JobEnqueued:     factory.Counter("plaza.job.enqueued"),
		JobProgressed:   factory.Counter("plaza.job.progress_updates"),
		JobCompleted:    factory.Counter("plaza.job.completed"),
		JobFailed:       factory.Counter("plaza.job.failed"),
		JobRetried:      factory.Counter("plaza.job.retried"),
		TaskFired:       factory.Counter("plaza.task.fired"),
		WorkerShutdowns: factory.Counter("plaza.worker.shutdowns"),
	}
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnJobEnqueued implements ext.JobEnqueued.
func (m *MetricsExtension) OnJobEnqueued(context.Context, *job.Job) error {
	m.JobEnqueued.Inc()
	return nil
}

// OnJobProgress implements ext.JobProgress.
func (m *MetricsExtension) OnJobProgress(context.Context, *job.Job, int) error {
	m.JobProgressed.Inc()
	return nil
}

// OnJobCompleted implements ext.JobCompleted.
func (m *MetricsExtension) OnJobCompleted(context.Context, *job.Job, time.Duration) error {
	m.JobCompleted.Inc()
	return nil
}

// OnJobFailed implements ext.JobFailed.
func (m *MetricsExtension) OnJobFailed(context.Context, *job.Job, error) error {
	m.JobFailed.Inc()
	return nil
}

// OnJobRetrying implements ext.JobRetrying.
func (m *MetricsExtension) OnJobRetrying(context.Context, *job.Job, int, time.Time) error {
	m.JobRetried.Inc()
	return nil
}

// OnTaskFired implements ext.TaskFired.
func (m *MetricsExtension) OnTaskFired(context.Context, string, id.JobID) error {
	m.TaskFired.Inc()
	return nil
}

// OnShutdown implements ext.Shutdown.
func (m *MetricsExtension) OnShutdown(context.Context) error {
	m.WorkerShutdowns.Inc()
	return nil
}
