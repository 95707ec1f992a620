package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	gu "github.com/xraph/go-utils/metrics"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/plaza"
	"github.com/xraph/plaza/backoff"
	"github.com/xraph/plaza/cron"
	"github.com/xraph/plaza/ext"
	"github.com/xraph/plaza/id"
	"github.com/xraph/plaza/job"
	mw "github.com/xraph/plaza/middleware"
	"github.com/xraph/plaza/observability"
	"github.com/xraph/plaza/plugin"
	"github.com/xraph/plaza/queue"
	"github.com/xraph/plaza/schema"
	"github.com/xraph/plaza/store"
	"github.com/xraph/plaza/worker"
)

const instrumentationName = "github.com/xraph/plaza"

// Engine drives the plugin lifecycle and the worker process on top of a
// Platform.
type Engine struct {
	p          *plaza.Platform
	plugins    *plugin.Registry
	extensions *ext.Registry
	registry   *job.Registry
	jobStore   job.Store
	query      *job.Query
	monitor    *worker.Monitor
	metrics    *observability.MetricsExtension
	bo         backoff.Strategy
	limiter    *queue.Limiter
	mws        []mw.Middleware
	logger     *slog.Logger

	pendingPlugins []plugin.Plugin
	pendingExts    []ext.Extension

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	metricFactory  gu.MetricFactory

	mu           sync.Mutex
	configured   bool
	prepared     bool
	bootstrapped bool
	schemas      map[schema.API]*schema.Schema
	pool         *worker.Pool
	scheduler    *cron.Scheduler
}

// Option configures an Engine.
type Option func(*Engine)

// WithPlugin registers plugins in order. Registration order drives hook
// order and schema extension order.
func WithPlugin(plugins ...plugin.Plugin) Option {
	return func(eng *Engine) {
		eng.pendingPlugins = append(eng.pendingPlugins, plugins...)
	}
}

// WithExtension registers a job lifecycle extension.
func WithExtension(e ext.Extension) Option {
	return func(eng *Engine) {
		eng.pendingExts = append(eng.pendingExts, e)
	}
}

// WithMiddleware appends middleware after the default stack.
func WithMiddleware(m mw.Middleware) Option {
	return func(eng *Engine) {
		eng.mws = append(eng.mws, m)
	}
}

// WithBackoff sets the retry backoff strategy.
// If not set, backoff.DefaultStrategy() (exponential with jitter) is used.
func WithBackoff(b backoff.Strategy) Option {
	return func(eng *Engine) {
		eng.bo = b
	}
}

// WithQueueLimits bounds the jobs the worker starts per queue.
func WithQueueLimits(limits ...queue.Limit) Option {
	return func(eng *Engine) {
		if eng.limiter == nil {
			eng.limiter = queue.NewLimiter()
		}
		for _, l := range limits {
			eng.limiter.Set(l)
		}
	}
}

// WithTracerProvider sets the OTel TracerProvider used by the tracing
// middleware. If not set, the global provider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) {
		eng.tracerProvider = tp
	}
}

// WithMeterProvider sets the OTel MeterProvider used by the metrics
// middleware. If not set, the global provider is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) {
		eng.meterProvider = mp
	}
}

// WithMetricFactory sets the factory for the lifecycle counters, typically
// the forge application's metrics.
func WithMetricFactory(f gu.MetricFactory) Option {
	return func(eng *Engine) {
		eng.metricFactory = f
	}
}

// Build creates an Engine on p. The platform store must implement
// job.Store.
func Build(p *plaza.Platform, opts ...Option) (*Engine, error) {
	logger := p.Logger()
	st := p.Store()
	if st == nil {
		return nil, plaza.ErrNoStore
	}
	js, ok := st.(job.Store)
	if !ok {
		return nil, errors.New("plaza: store does not implement job.Store")
	}

	eng := &Engine{
		p:          p,
		plugins:    plugin.NewRegistry(logger),
		extensions: ext.NewRegistry(logger),
		registry:   job.NewRegistry(),
		jobStore:   js,
		query:      job.NewQuery(js),
		monitor:    worker.NewMonitor(logger),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.bo == nil {
		eng.bo = backoff.DefaultStrategy()
	}

	if eng.metricFactory != nil {
		eng.metrics = observability.NewMetricsExtensionWithFactory(eng.metricFactory)
	} else {
		eng.metrics = observability.NewMetricsExtension()
	}
	eng.extensions.Register(eng.metrics)
	for _, e := range eng.pendingExts {
		eng.extensions.Register(e)
	}

	for _, pl := range eng.pendingPlugins {
		if err := eng.plugins.Register(pl); err != nil {
			return nil, err
		}
		// Plugins may observe jobs directly.
		if e, ok := pl.(ext.Extension); ok && ext.HasHooks(pl) {
			eng.extensions.Register(e)
		}
	}
	for _, c := range eng.plugins.Controllers() {
		eng.registry.Register(c.Erased())
	}
	eng.pendingPlugins, eng.pendingExts = nil, nil

	return eng, nil
}

// Register registers a typed job handler with the engine.
func Register[T any](eng *Engine, def *job.Definition[T]) {
	job.RegisterDefinition(eng.registry, def)
}

// Enqueue creates and enqueues a job.
func Enqueue[T any](ctx context.Context, eng *Engine, name string, payload T, opts ...job.Option) (*job.Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload for job %q: %w", name, err)
	}
	return eng.EnqueueRaw(ctx, name, data, opts...)
}

// EnqueueRaw enqueues a job with a pre-serialized payload. Options
// registered with the job's handler apply first.
func (eng *Engine) EnqueueRaw(ctx context.Context, name string, payload []byte, opts ...job.Option) (*job.Job, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("plaza: job name is required")
	}

	jobOpts, ok := eng.registry.Options(name)
	if !ok {
		jobOpts = job.DefaultOptions()
	}
	for _, opt := range opts {
		opt(&jobOpts)
	}

	now := time.Now().UTC()
	j := &job.Job{
		Entity:     plaza.NewEntity(),
		ID:         id.NewJobID(),
		Name:       name,
		Queue:      jobOpts.Queue,
		Payload:    payload,
		State:      job.StatePending,
		MaxRetries: jobOpts.MaxRetries,
		Priority:   jobOpts.Priority,
		Timeout:    jobOpts.Timeout,
		RunAt:      now,
	}
	if !jobOpts.RunAt.IsZero() {
		j.RunAt = jobOpts.RunAt.UTC()
	}

	if err := eng.jobStore.EnqueueJob(ctx, j); err != nil {
		return nil, err
	}

	eng.extensions.EmitJobEnqueued(ctx, j)
	return j, nil
}

// prepare runs the steps shared by both processes: plugin configuration,
// custom field validation and storage migration. Configuration hooks run
// once; the configuration is frozen only after every step succeeded, so a
// failed attempt can be retried. The caller holds eng.mu.
func (eng *Engine) prepare(ctx context.Context) error {
	if eng.prepared {
		return nil
	}

	if !eng.configured {
		if err := eng.p.Configure(func(cfg *plaza.Config) error {
			return eng.plugins.Configure(ctx, cfg)
		}); err != nil {
			return err
		}
		eng.configured = true
	}

	cfg := eng.p.Config()
	if err := cfg.CustomFields.Validate(); err != nil {
		return fmt.Errorf("%w: %w", plaza.ErrInvalidCustomFields, err)
	}

	if err := eng.p.Store().Migrate(ctx); err != nil {
		return fmt.Errorf("%w: %w", plaza.ErrMigrationFailed, err)
	}
	if entities := eng.plugins.Entities(); len(entities) > 0 {
		em, ok := eng.p.Store().(store.EntityMigrator)
		if !ok {
			eng.logger.Warn("store cannot migrate plugin entities",
				slog.Int("entities", len(entities)),
			)
		} else if err := em.MigrateEntities(ctx, entities); err != nil {
			return fmt.Errorf("%w: plugin entities: %w", plaza.ErrMigrationFailed, err)
		}
	}

	eng.p.Freeze()
	eng.prepared = true
	return nil
}

// Bootstrap starts the API process.
func (eng *Engine) Bootstrap(ctx context.Context) error {
	eng.mu.Lock()
	defer eng.mu.Unlock()

	if eng.bootstrapped {
		return plaza.ErrAlreadyBootstrapped
	}
	if err := eng.prepare(ctx); err != nil {
		return err
	}

	cfg := eng.p.Config()
	schemas := make(map[schema.API]*schema.Schema, len(schema.APIs))
	for _, api := range schema.APIs {
		s, err := schema.Build(api, cfg.CustomFields, eng.plugins.APIExtensions(api))
		if err != nil {
			return err
		}
		schemas[api] = s
	}
	eng.schemas = schemas

	if err := eng.plugins.EmitBootstrap(ctx); err != nil {
		return err
	}

	eng.bootstrapped = true
	eng.logger.Info("plaza bootstrapped",
		slog.Int("plugins", eng.plugins.Len()),
		slog.String("shop_api_path", cfg.ShopAPIPath),
		slog.String("admin_api_path", cfg.AdminAPIPath),
	)
	return nil
}

// Close shuts down the API process. A running worker is closed first.
func (eng *Engine) Close(ctx context.Context) error {
	var errs []error
	if eng.WorkerRunning() {
		if err := eng.CloseWorker(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	eng.mu.Lock()
	defer eng.mu.Unlock()

	if !eng.bootstrapped {
		if len(errs) == 0 && !eng.prepared {
			return plaza.ErrNotBootstrapped
		}
	} else {
		if err := eng.plugins.EmitBootstrapClose(ctx); err != nil {
			errs = append(errs, err)
		}
		eng.bootstrapped = false
	}

	if err := eng.p.Store().Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}

// BootstrapWorker starts the worker process.
func (eng *Engine) BootstrapWorker(ctx context.Context) error {
	eng.mu.Lock()
	defer eng.mu.Unlock()

	if eng.pool != nil {
		return plaza.ErrAlreadyBootstrapped
	}
	if err := eng.prepare(ctx); err != nil {
		return err
	}

	cfg := eng.p.Config()
	pool := eng.newPool(cfg)

	var scheduler *cron.Scheduler
	if cfg.Worker.RunScheduledTasks {
		scheduler = cron.NewScheduler(eng.enqueueFunc, eng.extensions, eng.logger)
		for _, t := range eng.plugins.ScheduledTasks() {
			if err := scheduler.Add(t); err != nil {
				return err
			}
		}
	}

	if err := pool.Start(ctx); err != nil {
		return fmt.Errorf("start worker pool: %w", err)
	}
	if scheduler != nil {
		if err := scheduler.Start(ctx); err != nil {
			_ = pool.Stop(ctx)
			return fmt.Errorf("start task scheduler: %w", err)
		}
	}

	if err := eng.plugins.EmitWorkerBootstrap(ctx); err != nil {
		if scheduler != nil {
			_ = scheduler.Stop(ctx)
		}
		_ = pool.Stop(ctx)
		return err
	}

	eng.pool = pool
	eng.scheduler = scheduler
	eng.logger.Info("plaza worker bootstrapped",
		slog.String("worker_id", pool.WorkerID().String()),
		slog.Any("queues", cfg.Worker.Queues),
		slog.Int("controllers", len(eng.registry.Names())),
	)
	return nil
}

// CloseWorker shuts down the worker process. It waits for open tasks up
// to the configured shutdown timeout.
func (eng *Engine) CloseWorker(ctx context.Context) error {
	eng.mu.Lock()
	defer eng.mu.Unlock()

	if eng.pool == nil {
		return plaza.ErrNotBootstrapped
	}

	var errs []error
	if eng.scheduler != nil {
		if err := eng.scheduler.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop task scheduler: %w", err))
		}
	}

	cfg := eng.p.Config()
	stopCtx := ctx
	if cfg.Worker.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		stopCtx, cancel = context.WithTimeout(ctx, cfg.Worker.ShutdownTimeout)
		defer cancel()
	}
	if err := eng.pool.Stop(stopCtx); err != nil {
		errs = append(errs, err)
	}

	if err := eng.plugins.EmitWorkerClose(ctx); err != nil {
		errs = append(errs, err)
	}
	eng.extensions.EmitShutdown(ctx)

	eng.pool = nil
	eng.scheduler = nil
	return errors.Join(errs...)
}

func (eng *Engine) newPool(cfg plaza.Config) *worker.Pool {
	var tracingMw mw.Middleware
	if eng.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(eng.tracerProvider.Tracer(instrumentationName))
	} else {
		tracingMw = mw.Tracing()
	}

	var metricsMw mw.Middleware
	if eng.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(eng.meterProvider.Meter(instrumentationName))
	} else {
		metricsMw = mw.Metrics()
	}

	// recover → tracing → metrics → logging → timeout → user middleware.
	mws := make([]mw.Middleware, 0, 5+len(eng.mws))
	mws = append(mws,
		mw.Recover(eng.logger),
		tracingMw,
		metricsMw,
		mw.Logging(eng.logger),
		mw.Timeout(eng.logger),
	)
	mws = append(mws, eng.mws...)

	executor := worker.NewExecutor(eng.registry, eng.extensions, eng.jobStore, eng.bo, eng.logger, mws...)

	poolOpts := []worker.PoolOption{
		worker.WithMonitor(eng.monitor),
		worker.WithPoolConcurrency(cfg.Worker.Concurrency),
		worker.WithPoolQueues(cfg.Worker.Queues),
		worker.WithPollInterval(cfg.Worker.PollInterval),
		worker.WithOpenTaskPollInterval(cfg.Worker.OpenTaskPollInterval),
		worker.WithHeartbeatInterval(cfg.Worker.HeartbeatInterval),
		worker.WithStaleJobThreshold(cfg.Worker.StaleJobThreshold),
		worker.WithRetention(cfg.JobRetention, retentionSweep(cfg.JobRetention)),
	}
	if eng.limiter != nil {
		poolOpts = append(poolOpts, worker.WithQueueLimiter(eng.limiter))
	}
	return worker.NewPool(eng.jobStore, executor, eng.extensions, eng.logger, poolOpts...)
}

// retentionSweep picks how often settled jobs are swept: a tenth of the
// retention, between one second and one hour.
func retentionSweep(retention time.Duration) time.Duration {
	return min(max(retention/10, time.Second), time.Hour)
}

func (eng *Engine) enqueueFunc(ctx context.Context, name string, payload []byte, opts ...job.Option) (id.JobID, error) {
	j, err := eng.EnqueueRaw(ctx, name, payload, opts...)
	if err != nil {
		return id.Nil, err
	}
	return j.ID, nil
}

// Schema returns the schema built for api during Bootstrap.
func (eng *Engine) Schema(api schema.API) (*schema.Schema, error) {
	eng.mu.Lock()
	defer eng.mu.Unlock()
	if eng.schemas == nil {
		return nil, plaza.ErrNotBootstrapped
	}
	s, ok := eng.schemas[api]
	if !ok {
		return nil, fmt.Errorf("schema: unknown api %q", api)
	}
	return s, nil
}

// Bootstrapped reports whether the API process is running.
func (eng *Engine) Bootstrapped() bool {
	eng.mu.Lock()
	defer eng.mu.Unlock()
	return eng.bootstrapped
}

// WorkerRunning reports whether the worker process is running.
func (eng *Engine) WorkerRunning() bool {
	eng.mu.Lock()
	defer eng.mu.Unlock()
	return eng.pool != nil
}

// Scheduler returns the scheduled task runner, or nil when the worker is
// not running or scheduled tasks are disabled.
func (eng *Engine) Scheduler() *cron.Scheduler {
	eng.mu.Lock()
	defer eng.mu.Unlock()
	return eng.scheduler
}

// QueueLimiter returns the per-queue limiter, or nil when no limits were
// configured.
func (eng *Engine) QueueLimiter() *queue.Limiter { return eng.limiter }

// Plugins returns the plugin registry.
func (eng *Engine) Plugins() *plugin.Registry { return eng.plugins }

// Config returns a copy of the platform configuration.
func (eng *Engine) Config() plaza.Config { return eng.p.Config() }

// Platform returns the underlying Platform.
func (eng *Engine) Platform() *plaza.Platform { return eng.p }

// JobQuery returns the job status query service.
func (eng *Engine) JobQuery() *job.Query { return eng.query }

// Monitor returns the open-task monitor of this process.
func (eng *Engine) Monitor() *worker.Monitor { return eng.monitor }

// Extensions returns the extension registry.
func (eng *Engine) Extensions() *ext.Registry { return eng.extensions }

// Registry returns the job registry.
func (eng *Engine) Registry() *job.Registry { return eng.registry }

// Metrics returns the lifecycle counters.
func (eng *Engine) Metrics() *observability.MetricsExtension { return eng.metrics }
