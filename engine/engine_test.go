package engine_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	gu "github.com/xraph/go-utils/metrics"

	"github.com/xraph/plaza"
	"github.com/xraph/plaza/customfield"
	"github.com/xraph/plaza/engine"
	"github.com/xraph/plaza/job"
	"github.com/xraph/plaza/plugin"
	"github.com/xraph/plaza/queue"
	"github.com/xraph/plaza/schema"
	"github.com/xraph/plaza/store/memory"
)

type orderRef struct {
	OrderCode string `json:"orderCode"`
}

// recorder collects lifecycle hook calls across plugins.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.calls = append(r.calls, s)
	r.mu.Unlock()
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// lifecyclePlugin records its hooks and observes completed jobs.
type lifecyclePlugin struct {
	*plugin.Definition
	rec       *recorder
	failOn    string
	completed atomic.Int32
}

func newLifecyclePlugin(name string, rec *recorder, opts ...plugin.Option) *lifecyclePlugin {
	return &lifecyclePlugin{Definition: plugin.New(name, opts...), rec: rec}
}

func (p *lifecyclePlugin) hook(name string) error {
	p.rec.add(p.Name() + "." + name)
	if p.failOn == name {
		return errors.New(p.Name() + " " + name + " failed")
	}
	return nil
}

func (p *lifecyclePlugin) OnBootstrap(context.Context) error       { return p.hook("bootstrap") }
func (p *lifecyclePlugin) OnBootstrapClose(context.Context) error  { return p.hook("close") }
func (p *lifecyclePlugin) OnWorkerBootstrap(context.Context) error { return p.hook("worker") }
func (p *lifecyclePlugin) OnWorkerClose(context.Context) error     { return p.hook("workerClose") }

func (p *lifecyclePlugin) OnJobCompleted(context.Context, *job.Job, time.Duration) error {
	p.completed.Add(1)
	return nil
}

func newPlatform(t *testing.T, s *memory.Store, opts ...plaza.Option) *plaza.Platform {
	t.Helper()
	cfg := plaza.DefaultConfig()
	cfg.Worker.Concurrency = 2
	cfg.Worker.PollInterval = 5 * time.Millisecond
	cfg.Worker.OpenTaskPollInterval = 5 * time.Millisecond
	cfg.Worker.ShutdownTimeout = 2 * time.Second

	all := append([]plaza.Option{
		plaza.WithStore(s),
		plaza.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		plaza.WithConfig(cfg),
	}, opts...)
	p, err := plaza.New(all...)
	if err != nil {
		t.Fatalf("plaza.New: %v", err)
	}
	return p
}

func build(t *testing.T, p *plaza.Platform, opts ...engine.Option) *engine.Engine {
	t.Helper()
	opts = append([]engine.Option{engine.WithMetricFactory(gu.NewMetricsCollector("test"))}, opts...)
	eng, err := engine.Build(p, opts...)
	if err != nil {
		t.Fatalf("engine.Build: %v", err)
	}
	return eng
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for condition")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func TestBuild_RequiresStore(t *testing.T) {
	p, err := plaza.New()
	if err != nil {
		t.Fatalf("plaza.New: %v", err)
	}
	if _, err := engine.Build(p); !errors.Is(err, plaza.ErrNoStore) {
		t.Fatalf("err = %v, want %v", err, plaza.ErrNoStore)
	}
}

func TestBuild_RejectsDuplicatePlugin(t *testing.T) {
	p := newPlatform(t, memory.New())
	_, err := engine.Build(p, engine.WithPlugin(plugin.New("reviews"), plugin.New("reviews")))
	if !errors.Is(err, plaza.ErrDuplicatePlugin) {
		t.Fatalf("err = %v, want %v", err, plaza.ErrDuplicatePlugin)
	}
}

func TestBuild_QueueLimits(t *testing.T) {
	p := newPlatform(t, memory.New())
	if eng := build(t, p); eng.QueueLimiter() != nil {
		t.Fatal("QueueLimiter should be nil without limits")
	}

	eng := build(t, p, engine.WithQueueLimits(
		queue.Limit{Name: "emails", MaxConcurrency: 1},
		queue.Limit{Name: "search-index", RateLimit: 2},
	))
	l := eng.QueueLimiter()
	if l == nil {
		t.Fatal("QueueLimiter is nil")
	}
	if got := len(l.Limits()); got != 2 {
		t.Fatalf("len(Limits()) = %d, want 2", got)
	}
	if !l.Acquire("emails") || l.Acquire("emails") {
		t.Fatal("emails queue should allow exactly one running job")
	}
}

func TestEngine_EndToEnd_ControllerProcessesJob(t *testing.T) {
	s := memory.New()
	rec := &recorder{}

	var got atomic.Value
	mail := newLifecyclePlugin("mail", rec,
		plugin.WithJob(job.NewDefinition("send-order-confirmation",
			func(ctx context.Context, ref orderRef) error {
				got.Store(ref.OrderCode)
				if err := job.SetProgress(ctx, 50); err != nil {
					return err
				}
				return job.SetResult(ctx, map[string]string{"sentTo": "alice@example.com"})
			},
			job.WithQueue("default"),
		)),
	)

	eng := build(t, newPlatform(t, s), engine.WithPlugin(mail))

	if err := eng.BootstrapWorker(context.Background()); err != nil {
		t.Fatalf("BootstrapWorker: %v", err)
	}
	if !eng.WorkerRunning() {
		t.Fatal("expected worker to be running")
	}

	j, err := engine.Enqueue(context.Background(), eng, "send-order-confirmation", orderRef{OrderCode: "T_1001"})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if j.State != job.StatePending {
		t.Errorf("job.State = %q, want %q", j.State, job.StatePending)
	}

	waitFor(t, func() bool {
		info, err := eng.JobQuery().Job(context.Background(), j.ID.String())
		return err == nil && info != nil && info.State == job.StateCompleted
	})

	if err := eng.CloseWorker(context.Background()); err != nil {
		t.Fatalf("CloseWorker: %v", err)
	}

	if code, _ := got.Load().(string); code != "T_1001" {
		t.Errorf("payload order code = %q, want T_1001", code)
	}

	info, err := eng.JobQuery().Job(context.Background(), j.ID.String())
	if err != nil {
		t.Fatalf("Job: %v", err)
	}
	if info.Progress != 100 {
		t.Errorf("progress = %v, want 100", info.Progress)
	}
	if string(info.Result) != `{"sentTo":"alice@example.com"}` {
		t.Errorf("result = %s", info.Result)
	}
	if info.Ended == nil {
		t.Error("expected ended to be set")
	}

	if n := mail.completed.Load(); n != 1 {
		t.Errorf("plugin OnJobCompleted calls = %d, want 1", n)
	}
	if v := eng.Metrics().JobCompleted.Value(); v != 1 {
		t.Errorf("completed counter = %v, want 1", v)
	}
	if diff := cmp.Diff([]string{"mail.worker", "mail.workerClose"}, rec.Calls()); diff != "" {
		t.Errorf("hook calls mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_Bootstrap(t *testing.T) {
	s := memory.New()
	rec := &recorder{}

	reviews := newLifecyclePlugin("reviews", rec,
		plugin.WithConfiguration(func(cfg *plaza.Config) error {
			cfg.CustomFields.Add(customfield.Product, customfield.Config{
				Name: "reviewRating",
				Type: customfield.TypeFloat,
			})
			return nil
		}),
		plugin.WithShopAPIExtension(plugin.APIExtension{
			Schema: `extend type Query { productReviews(productId: ID!): [String!]! }`,
		}),
		plugin.WithEntity(plugin.Entity{Name: "ProductReview", DDL: "CREATE TABLE product_review (id text)"}),
	)
	loyalty := newLifecyclePlugin("loyalty", rec,
		plugin.WithConfiguration(func(cfg *plaza.Config) error {
			cfg.ShopAPIPath = "/store-api"
			return nil
		}),
	)

	p := newPlatform(t, s)
	eng := build(t, p, engine.WithPlugin(reviews, loyalty))

	ctx := context.Background()
	if _, err := eng.Schema(schema.Shop); !errors.Is(err, plaza.ErrNotBootstrapped) {
		t.Fatalf("Schema before bootstrap: err = %v, want %v", err, plaza.ErrNotBootstrapped)
	}

	if err := eng.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if err := eng.Bootstrap(ctx); !errors.Is(err, plaza.ErrAlreadyBootstrapped) {
		t.Fatalf("second Bootstrap: err = %v, want %v", err, plaza.ErrAlreadyBootstrapped)
	}

	if got := eng.Config().ShopAPIPath; got != "/store-api" {
		t.Errorf("ShopAPIPath = %q, want /store-api", got)
	}
	if err := p.Configure(func(*plaza.Config) error { return nil }); !errors.Is(err, plaza.ErrConfigFrozen) {
		t.Errorf("Configure after bootstrap: err = %v, want %v", err, plaza.ErrConfigFrozen)
	}

	shop, err := eng.Schema(schema.Shop)
	if err != nil {
		t.Fatalf("Schema(shop): %v", err)
	}
	for _, want := range []string{"ProductCustomFields", "reviewRating", "productReviews"} {
		if !strings.Contains(shop.SDL, want) {
			t.Errorf("shop schema missing %q", want)
		}
	}
	if strings.Contains(shop.SDL, "JobInfo") {
		t.Error("shop schema must not expose JobInfo")
	}

	admin, err := eng.Schema(schema.Admin)
	if err != nil {
		t.Fatalf("Schema(admin): %v", err)
	}
	if admin.AST.Types["JobInfo"] == nil {
		t.Error("admin schema missing JobInfo")
	}
	if admin.AST.Query.Fields.ForName("productReviews") != nil {
		t.Error("admin schema must not include shop extensions")
	}

	if diff := cmp.Diff([]string{"ProductReview"}, s.Entities()); diff != "" {
		t.Errorf("migrated entities mismatch (-want +got):\n%s", diff)
	}

	if err := eng.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	want := []string{"reviews.bootstrap", "loyalty.bootstrap", "loyalty.close", "reviews.close"}
	if diff := cmp.Diff(want, rec.Calls()); diff != "" {
		t.Errorf("hook calls mismatch (-want +got):\n%s", diff)
	}
	if err := s.Ping(ctx); !errors.Is(err, plaza.ErrStoreClosed) {
		t.Errorf("Ping after Close: err = %v, want %v", err, plaza.ErrStoreClosed)
	}
}

func TestEngine_ConfigureErrorAbortsBootstrap(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("missing api key")
	pay := newLifecyclePlugin("payments", rec,
		plugin.WithConfiguration(func(*plaza.Config) error { return boom }),
	)

	eng := build(t, newPlatform(t, memory.New()), engine.WithPlugin(pay))

	err := eng.Bootstrap(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if !strings.Contains(err.Error(), `plugin "payments"`) {
		t.Errorf("error %q does not name the plugin", err)
	}
	if n := len(rec.Calls()); n != 0 {
		t.Errorf("hooks ran after configure failure: %v", rec.Calls())
	}
}

func TestEngine_StartHookErrorAbortsBootstrap(t *testing.T) {
	rec := &recorder{}
	first := newLifecyclePlugin("first", rec)
	first.failOn = "bootstrap"
	second := newLifecyclePlugin("second", rec)

	eng := build(t, newPlatform(t, memory.New()), engine.WithPlugin(first, second))

	if err := eng.Bootstrap(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if eng.Bootstrapped() {
		t.Error("engine should not be bootstrapped")
	}
	if diff := cmp.Diff([]string{"first.bootstrap"}, rec.Calls()); diff != "" {
		t.Errorf("hook calls mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_InvalidCustomFields(t *testing.T) {
	p := newPlatform(t, memory.New(),
		plaza.WithCustomFields(customfield.Product, customfield.Config{Name: "id", Type: customfield.TypeString}),
	)
	eng := build(t, p)

	if err := eng.Bootstrap(context.Background()); !errors.Is(err, plaza.ErrInvalidCustomFields) {
		t.Fatalf("err = %v, want %v", err, plaza.ErrInvalidCustomFields)
	}
}

// flakyMigrateStore fails its first Migrate call.
type flakyMigrateStore struct {
	*memory.Store
	calls atomic.Int32
}

func (s *flakyMigrateStore) Migrate(ctx context.Context) error {
	if s.calls.Add(1) == 1 {
		return errors.New("connection reset")
	}
	return s.Store.Migrate(ctx)
}

func TestEngine_BootstrapRetryAfterMigrationFailure(t *testing.T) {
	s := &flakyMigrateStore{Store: memory.New()}

	var configured atomic.Int32
	giftWrap := plugin.New("gift-wrap", plugin.WithConfiguration(func(cfg *plaza.Config) error {
		configured.Add(1)
		cfg.CustomFields.Add(customfield.Order, customfield.Config{
			Name: "giftMessage",
			Type: customfield.TypeString,
		})
		return nil
	}))

	p, err := plaza.New(
		plaza.WithStore(s),
		plaza.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		t.Fatalf("plaza.New: %v", err)
	}
	eng := build(t, p, engine.WithPlugin(giftWrap))
	ctx := context.Background()

	if err := eng.Bootstrap(ctx); !errors.Is(err, plaza.ErrMigrationFailed) {
		t.Fatalf("first Bootstrap: err = %v, want %v", err, plaza.ErrMigrationFailed)
	}
	if p.Frozen() {
		t.Fatal("configuration frozen after a failed bootstrap")
	}

	if err := eng.Bootstrap(ctx); err != nil {
		t.Fatalf("second Bootstrap: %v", err)
	}
	if !p.Frozen() {
		t.Error("configuration not frozen after bootstrap")
	}
	if n := configured.Load(); n != 1 {
		t.Errorf("configure hook ran %d times, want 1", n)
	}
	if got := len(eng.Config().CustomFields[customfield.Order]); got != 1 {
		t.Errorf("order custom fields = %d, want 1", got)
	}
	if err := eng.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestEngine_FailedConfigureLeavesConfigUntouched(t *testing.T) {
	rebrand := plugin.New("rebrand", plugin.WithConfiguration(func(cfg *plaza.Config) error {
		cfg.ShopAPIPath = "/storefront"
		return nil
	}))
	broken := plugin.New("broken", plugin.WithConfiguration(func(*plaza.Config) error {
		return errors.New("missing api key")
	}))

	p := newPlatform(t, memory.New())
	eng := build(t, p, engine.WithPlugin(rebrand, broken))

	err := eng.Bootstrap(context.Background())
	if err == nil || !strings.Contains(err.Error(), "missing api key") {
		t.Fatalf("Bootstrap err = %v, want the broken plugin's error", err)
	}
	if got := p.Config().ShopAPIPath; got != "/shop-api" {
		t.Errorf("ShopAPIPath = %q, want /shop-api", got)
	}
	if p.Frozen() {
		t.Error("configuration frozen after a failed configure hook")
	}
}

func TestEngine_CloseHooksRunDespiteErrors(t *testing.T) {
	rec := &recorder{}
	first := newLifecyclePlugin("first", rec)
	second := newLifecyclePlugin("second", rec)
	second.failOn = "close"

	eng := build(t, newPlatform(t, memory.New()), engine.WithPlugin(first, second))
	if err := eng.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	err := eng.Close(context.Background())
	if err == nil || !strings.Contains(err.Error(), "second close failed") {
		t.Fatalf("Close err = %v, want the second plugin's error", err)
	}
	want := []string{"first.bootstrap", "second.bootstrap", "second.close", "first.close"}
	if diff := cmp.Diff(want, rec.Calls()); diff != "" {
		t.Errorf("hook calls mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_CloseWithoutBootstrap(t *testing.T) {
	eng := build(t, newPlatform(t, memory.New()))
	if err := eng.Close(context.Background()); !errors.Is(err, plaza.ErrNotBootstrapped) {
		t.Fatalf("Close: err = %v, want %v", err, plaza.ErrNotBootstrapped)
	}
	if err := eng.CloseWorker(context.Background()); !errors.Is(err, plaza.ErrNotBootstrapped) {
		t.Fatalf("CloseWorker: err = %v, want %v", err, plaza.ErrNotBootstrapped)
	}
}

func TestEngine_ScheduledTaskEnqueuesJob(t *testing.T) {
	var ran atomic.Bool
	sitemap := plugin.New("sitemap",
		plugin.WithJob(job.NewDefinition("build-sitemap", func(context.Context, struct{}) error {
			ran.Store(true)
			return nil
		})),
		plugin.WithScheduledTask(plugin.ScheduledTask{
			Name:     "nightly-sitemap",
			Schedule: "0 3 * * *",
			JobName:  "build-sitemap",
		}),
	)

	eng := build(t, newPlatform(t, memory.New()), engine.WithPlugin(sitemap))
	ctx := context.Background()
	if err := eng.BootstrapWorker(ctx); err != nil {
		t.Fatalf("BootstrapWorker: %v", err)
	}
	defer func() {
		if err := eng.Close(ctx); err != nil {
			t.Errorf("Close: %v", err)
		}
	}()

	sched := eng.Scheduler()
	if sched == nil {
		t.Fatal("expected a scheduler")
	}
	if entries := sched.Entries(); len(entries) != 1 || entries[0].Name != "nightly-sitemap" {
		t.Fatalf("entries = %+v", entries)
	}

	jobID, err := sched.Fire(ctx, "nightly-sitemap")
	if err != nil {
		t.Fatalf("Fire: %v", err)
	}
	waitFor(t, ran.Load)

	if v := eng.Metrics().TaskFired.Value(); v != 1 {
		t.Errorf("task fired counter = %v, want 1", v)
	}
	if jobID.IsNil() {
		t.Error("expected job id")
	}
}

func TestEngine_EnqueueUsesHandlerOptions(t *testing.T) {
	eng := build(t, newPlatform(t, memory.New()))
	engine.Register(eng, job.NewDefinition("export-catalog", func(context.Context, struct{}) error { return nil },
		job.WithQueue("exports"),
		job.WithMaxRetries(7),
	))

	j, err := engine.Enqueue(context.Background(), eng, "export-catalog", struct{}{}, job.WithPriority(5))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if j.Queue != "exports" || j.MaxRetries != 7 || j.Priority != 5 {
		t.Errorf("job options = queue %q retries %d priority %d", j.Queue, j.MaxRetries, j.Priority)
	}
	if v := eng.Metrics().JobEnqueued.Value(); v != 1 {
		t.Errorf("enqueued counter = %v, want 1", v)
	}

	if _, err := eng.EnqueueRaw(context.Background(), " ", nil); err == nil {
		t.Error("expected error for empty job name")
	}
}
