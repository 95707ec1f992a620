package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/plaza/id"
)

// Monitor tracks the jobs a worker process is currently executing so
// shutdown can wait for them.
type Monitor struct {
	mu     sync.Mutex
	open   map[string]context.CancelFunc
	logger *slog.Logger
}

// NewMonitor creates an empty Monitor.
func NewMonitor(logger *slog.Logger) *Monitor {
	return &Monitor{
		open:   make(map[string]context.CancelFunc),
		logger: logger,
	}
}

// Track marks jobID as open. cancel is invoked if shutdown gives up
// waiting for it.
func (m *Monitor) Track(jobID id.JobID, cancel context.CancelFunc) {
	m.mu.Lock()
	m.open[jobID.String()] = cancel
	m.mu.Unlock()
}

// Done marks jobID as finished.
func (m *Monitor) Done(jobID id.JobID) {
	m.mu.Lock()
	delete(m.open, jobID.String())
	m.mu.Unlock()
}

// OpenTasks returns the number of jobs still executing.
func (m *Monitor) OpenTasks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.open)
}

// OpenJobIDs returns the ids of the jobs still executing.
func (m *Monitor) OpenJobIDs() []id.JobID {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]id.JobID, 0, len(m.open))
	for s := range m.open {
		if jobID, err := id.ParseJobID(s); err == nil {
			out = append(out, jobID)
		}
	}
	return out
}

// WaitForOpenTasksToComplete blocks until no jobs are open, checking every
// pollInterval. When ctx ends first, the remaining jobs are cancelled and
// ctx.Err() is returned.
func (m *Monitor) WaitForOpenTasksToComplete(ctx context.Context, pollInterval time.Duration) error {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		n := m.OpenTasks()
		if n == 0 {
			return nil
		}
		m.logger.Info("waiting for open tasks to complete", slog.Int("open_tasks", n))

		select {
		case <-ctx.Done():
			m.cancelAll()
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (m *Monitor) cancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for jobID, cancel := range m.open {
		m.logger.Warn("cancelling open task", slog.String("job_id", jobID))
		cancel()
	}
}
