package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/xraph/plaza"
	"github.com/xraph/plaza/id"
	"github.com/xraph/plaza/job"
	"github.com/xraph/plaza/plugin"
)

// EnqueueFunc is the callback the scheduler uses to enqueue jobs.
// The engine provides the implementation.
type EnqueueFunc func(ctx context.Context, name string, payload []byte, opts ...job.Option) (id.JobID, error)

// Emitter emits scheduled task events.
// ext.Registry satisfies this interface via EmitTaskFired.
type Emitter interface {
	EmitTaskFired(ctx context.Context, task string, jobID id.JobID)
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithTickInterval sets how often the scheduler checks for due entries.
func WithTickInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.tickInterval = d }
}

// WithClock overrides the scheduler's time source.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

// Scheduler fires scheduled tasks on a tick loop.
type Scheduler struct {
	enqueue EnqueueFunc
	emitter Emitter
	logger  *slog.Logger
	now     func() time.Time

	tickInterval time.Duration

	mu      sync.Mutex
	entries map[string]*Entry
	running bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewScheduler creates a Scheduler. emitter may be nil.
func NewScheduler(enqueue EnqueueFunc, emitter Emitter, logger *slog.Logger, opts ...SchedulerOption) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		enqueue:      enqueue,
		emitter:      emitter,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
		tickInterval: time.Second,
		entries:      make(map[string]*Entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers task. Names must be unique within the scheduler.
func (s *Scheduler) Add(task plugin.ScheduledTask) error {
	entry, err := newEntry(task, s.now())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[task.Name]; ok {
		return fmt.Errorf("%w: %q", plaza.ErrDuplicateTask, task.Name)
	}
	s.entries[task.Name] = entry
	return nil
}

// Entries returns a snapshot of the registered entries ordered by name.
func (s *Scheduler) Entries() []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.clone())
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}

// Start launches the tick goroutine.
func (s *Scheduler) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})

	s.wg.Add(1)
	go s.tickLoop(s.stopCh)

	s.logger.Info("task scheduler started",
		slog.Int("tasks", len(s.entries)),
		slog.Duration("tick_interval", s.tickInterval),
	)
	return nil
}

// Stop signals the scheduler to stop and waits for the tick goroutine.
func (s *Scheduler) Stop(_ context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("task scheduler stopped")
	return nil
}

// Fire enqueues the named task immediately, outside its schedule.
func (s *Scheduler) Fire(ctx context.Context, name string) (id.JobID, error) {
	s.mu.Lock()
	entry, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return id.Nil, fmt.Errorf("cron: unknown task %q", name)
	}
	return s.fire(ctx, entry, s.now())
}

func (s *Scheduler) tickLoop(stop <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	ctx := context.Background()
	now := s.now()

	s.mu.Lock()
	var due []*Entry
	for _, e := range s.entries {
		if !e.NextRunAt.After(now) {
			due = append(due, e)
		}
	}
	s.mu.Unlock()

	for _, e := range due {
		_, _ = s.fire(ctx, e, now)
	}
}

func (s *Scheduler) fire(ctx context.Context, entry *Entry, now time.Time) (id.JobID, error) {
	var opts []job.Option
	if entry.Queue != "" {
		opts = append(opts, job.WithQueue(entry.Queue))
	}

	jobID, err := s.enqueue(ctx, entry.JobName, entry.Payload, opts...)

	s.mu.Lock()
	entry.NextRunAt = entry.schedule.Next(now)
	if err == nil {
		entry.LastRunAt = &now
		entry.LastJobID = jobID
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled task enqueue error",
			slog.String("task", entry.Name),
			slog.String("job_name", entry.JobName),
			slog.String("error", err.Error()),
		)
		return id.Nil, err
	}

	if s.emitter != nil {
		s.emitter.EmitTaskFired(ctx, entry.Name, jobID)
	}

	s.logger.Info("scheduled task fired",
		slog.String("task", entry.Name),
		slog.String("job_name", entry.JobName),
		slog.String("job_id", jobID.String()),
	)
	return jobID, nil
}
