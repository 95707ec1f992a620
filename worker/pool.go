package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/plaza"
	"github.com/xraph/plaza/ext"
	"github.com/xraph/plaza/id"
	"github.com/xraph/plaza/job"
)

// QueueLimiter gates how many jobs of a queue may start. The pool calls
// Acquire before running a dequeued job and Release when it finishes.
type QueueLimiter interface {
	Acquire(queue string) bool
	Release(queue string)
}

// Pool manages a set of concurrent worker goroutines that poll for
// jobs and execute them through the Executor.
type Pool struct {
	store        job.Store
	executor     *Executor
	extensions   *ext.Registry
	monitor      *Monitor
	limiter      QueueLimiter
	concurrency  int
	queues       []string
	pollInterval time.Duration
	workerID     id.WorkerID
	logger       *slog.Logger

	openTaskPollInterval time.Duration
	heartbeatInterval    time.Duration
	staleJobThreshold    time.Duration
	retention            time.Duration
	cleanupInterval      time.Duration

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolConcurrency sets the number of concurrent worker goroutines.
func WithPoolConcurrency(n int) PoolOption {
	return func(p *Pool) { p.concurrency = n }
}

// WithPoolQueues sets the queues the pool will poll.
func WithPoolQueues(queues []string) PoolOption {
	return func(p *Pool) { p.queues = queues }
}

// WithPollInterval sets how often idle workers poll for new jobs.
func WithPollInterval(d time.Duration) PoolOption {
	return func(p *Pool) { p.pollInterval = d }
}

// WithMonitor sets the open-task monitor. By default the pool creates
// its own.
func WithMonitor(m *Monitor) PoolOption {
	return func(p *Pool) { p.monitor = m }
}

// WithQueueLimiter enforces per-queue limits before jobs start.
func WithQueueLimiter(l QueueLimiter) PoolOption {
	return func(p *Pool) { p.limiter = l }
}

// WithOpenTaskPollInterval sets how often Stop re-checks open tasks.
func WithOpenTaskPollInterval(d time.Duration) PoolOption {
	return func(p *Pool) { p.openTaskPollInterval = d }
}

// WithHeartbeatInterval sets how often the pool sends heartbeats for
// open jobs. A zero value disables heartbeats.
func WithHeartbeatInterval(d time.Duration) PoolOption {
	return func(p *Pool) { p.heartbeatInterval = d }
}

// WithStaleJobThreshold sets the threshold after which running jobs
// without a heartbeat are returned to the queue. A zero value disables
// reaping.
func WithStaleJobThreshold(d time.Duration) PoolOption {
	return func(p *Pool) { p.staleJobThreshold = d }
}

// WithRetention removes settled jobs older than d, checking every
// interval. A zero d keeps settled jobs forever.
func WithRetention(d, interval time.Duration) PoolOption {
	return func(p *Pool) {
		p.retention = d
		p.cleanupInterval = interval
	}
}

// NewPool creates a worker pool.
func NewPool(
	store job.Store,
	executor *Executor,
	extensions *ext.Registry,
	logger *slog.Logger,
	opts ...PoolOption,
) *Pool {
	p := &Pool{
		store:                store,
		executor:             executor,
		extensions:           extensions,
		concurrency:          10,
		queues:               []string{"default"},
		pollInterval:         time.Second,
		openTaskPollInterval: 500 * time.Millisecond,
		cleanupInterval:      time.Minute,
		workerID:             id.NewWorkerID(),
		logger:               logger,
		stopCh:               make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.monitor == nil {
		p.monitor = NewMonitor(logger)
	}
	return p
}

// WorkerID returns the pool's unique worker identifier.
func (p *Pool) WorkerID() id.WorkerID { return p.workerID }

// Monitor returns the open-task monitor.
func (p *Pool) Monitor() *Monitor { return p.monitor }

// Start launches the worker goroutines. It returns immediately.
func (p *Pool) Start(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	p.running = true

	p.logger.Info("worker pool starting",
		slog.String("worker_id", p.workerID.String()),
		slog.Int("concurrency", p.concurrency),
		slog.Any("queues", p.queues),
	)

	for range p.concurrency {
		p.wg.Add(1)
		go p.dequeueLoop()
	}
	if p.heartbeatInterval > 0 {
		p.wg.Add(1)
		go p.every(p.heartbeatInterval, p.sendHeartbeats)
	}
	if p.staleJobThreshold > 0 {
		p.wg.Add(1)
		go p.every(p.staleJobThreshold, p.reapStaleJobs)
	}
	if p.retention > 0 && p.cleanupInterval > 0 {
		p.wg.Add(1)
		go p.every(p.cleanupInterval, p.removeSettledJobs)
	}

	return nil
}

// Stop stops dequeuing and waits for open tasks to complete. When ctx
// ends first the remaining tasks are cancelled and the returned error
// wraps plaza.ErrOpenTasksNotCompleted. Stop returns once every worker
// goroutine has exited, so handlers that ignore cancellation delay it.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.mu.Unlock()

	p.logger.Info("worker pool stopping",
		slog.String("worker_id", p.workerID.String()),
		slog.Int("open_tasks", p.monitor.OpenTasks()),
	)

	close(p.stopCh)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	waitErr := p.monitor.WaitForOpenTasksToComplete(ctx, p.openTaskPollInterval)
	if waitErr == nil {
		select {
		case <-done:
		case <-ctx.Done():
			waitErr = ctx.Err()
		}
	}

	if waitErr != nil {
		p.logger.Warn("worker pool shutdown timed out, cancelling open tasks")
		p.monitor.cancelAll()
		<-done
		return fmt.Errorf("%w: %w", plaza.ErrOpenTasksNotCompleted, waitErr)
	}
	p.logger.Info("worker pool stopped gracefully")
	return nil
}

func (p *Pool) dequeueLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		jobs, err := p.store.DequeueJobs(context.Background(), p.queues, p.workerID, 1)
		if err != nil {
			p.logger.Error("dequeue error", slog.String("error", err.Error()))
			p.sleep()
			continue
		}
		if len(jobs) == 0 {
			p.sleep()
			continue
		}

		j := jobs[0]
		ctx, cancel, ok := p.track(j)
		if !ok {
			// Stop began while the claim was in flight.
			p.requeue(j, time.Now().UTC())
			return
		}
		if p.limiter != nil && !p.limiter.Acquire(j.Queue) {
			p.monitor.Done(j.ID)
			cancel()
			p.requeue(j, time.Now().UTC().Add(p.pollInterval))
			p.sleep()
			continue
		}
		p.run(ctx, j)
		cancel()
		p.monitor.Done(j.ID)
		if p.limiter != nil {
			p.limiter.Release(j.Queue)
		}
	}
}

// track registers a claimed job with the monitor unless the pool is
// stopping. The running check and Track share p.mu so Stop never misses
// a job claimed before it began.
func (p *Pool) track(j *job.Job) (context.Context, context.CancelFunc, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return nil, nil, false
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.monitor.Track(j.ID, cancel)
	return ctx, cancel, true
}

// requeue hands a claimed job back to the queue, due at runAt.
func (p *Pool) requeue(j *job.Job, runAt time.Time) {
	j.State = job.StatePending
	j.RunAt = runAt
	j.WorkerID = id.Nil
	j.StartedAt = nil
	j.HeartbeatAt = nil
	if err := p.store.UpdateJob(context.Background(), j); err != nil {
		p.logger.Error("failed to requeue claimed job",
			slog.String("job_id", j.ID.String()),
			slog.String("queue", j.Queue),
			slog.String("error", err.Error()),
		)
	}
}

func (p *Pool) run(ctx context.Context, j *job.Job) {
	p.extensions.EmitJobStarted(ctx, j)

	if err := p.executor.Execute(ctx, j); err != nil {
		p.logger.Debug("job execution failed",
			slog.String("job_id", j.ID.String()),
			slog.String("job_name", j.Name),
			slog.String("error", err.Error()),
		)
	}
}

func (p *Pool) every(interval time.Duration, fn func()) {
	defer p.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			fn()
		}
	}
}

func (p *Pool) sendHeartbeats() {
	for _, jobID := range p.monitor.OpenJobIDs() {
		if err := p.store.HeartbeatJob(context.Background(), jobID, p.workerID); err != nil {
			p.logger.Warn("heartbeat failed",
				slog.String("job_id", jobID.String()),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (p *Pool) reapStaleJobs() {
	stale, err := p.store.ReapStaleJobs(context.Background(), p.staleJobThreshold)
	if err != nil {
		p.logger.Error("reap stale jobs error", slog.String("error", err.Error()))
		return
	}

	open := make(map[string]bool)
	for _, jobID := range p.monitor.OpenJobIDs() {
		open[jobID.String()] = true
	}

	for _, j := range stale {
		// Jobs this pool is executing are alive even if a heartbeat lagged.
		if open[j.ID.String()] {
			continue
		}
		j.State = job.StatePending
		j.RunAt = time.Now().UTC()
		j.WorkerID = id.Nil
		j.HeartbeatAt = nil
		j.StartedAt = nil

		if updateErr := p.store.UpdateJob(context.Background(), j); updateErr != nil {
			p.logger.Error("reap: failed to reset stale job",
				slog.String("job_id", j.ID.String()),
				slog.String("error", updateErr.Error()),
			)
			continue
		}

		p.logger.Info("reaped stale job",
			slog.String("job_id", j.ID.String()),
			slog.String("job_name", j.Name),
		)
	}
}

func (p *Pool) removeSettledJobs() {
	before := time.Now().UTC().Add(-p.retention)
	n, err := p.store.RemoveSettledJobs(context.Background(), before)
	if err != nil {
		p.logger.Error("remove settled jobs error", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		p.logger.Info("removed settled jobs",
			slog.Int64("count", n),
			slog.Time("before", before),
		)
	}
}

func (p *Pool) sleep() {
	timer := time.NewTimer(p.pollInterval)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-p.stopCh:
	}
}
