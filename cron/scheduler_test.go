package cron_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/plaza"
	"github.com/xraph/plaza/cron"
	"github.com/xraph/plaza/id"
	"github.com/xraph/plaza/job"
	"github.com/xraph/plaza/plugin"
)

// stubEmitter records EmitTaskFired calls.
type stubEmitter struct {
	mu    sync.Mutex
	calls []string
}

func (e *stubEmitter) EmitTaskFired(_ context.Context, task string, _ id.JobID) {
	e.mu.Lock()
	e.calls = append(e.calls, task)
	e.mu.Unlock()
}

func (e *stubEmitter) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

type enqueueCall struct {
	Name    string
	Payload string
	Queue   string
}

// enqueueSpy tracks enqueue calls with thread safety.
type enqueueSpy struct {
	mu    sync.Mutex
	calls []enqueueCall
	err   error
}

func (e *enqueueSpy) Fn() cron.EnqueueFunc {
	return func(_ context.Context, name string, payload []byte, opts ...job.Option) (id.JobID, error) {
		o := job.DefaultOptions()
		for _, opt := range opts {
			opt(&o)
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.err != nil {
			return id.Nil, e.err
		}
		e.calls = append(e.calls, enqueueCall{Name: name, Payload: string(payload), Queue: o.Queue})
		return id.NewJobID(), nil
	}
}

func (e *enqueueSpy) Calls() []enqueueCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]enqueueCall(nil), e.calls...)
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestScheduler(t *testing.T) (*cron.Scheduler, *enqueueSpy, *stubEmitter, *fakeClock) {
	t.Helper()
	spy := &enqueueSpy{}
	emitter := &stubEmitter{}
	clock := &fakeClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	sched := cron.NewScheduler(spy.Fn(), emitter, nil,
		cron.WithTickInterval(5*time.Millisecond),
		cron.WithClock(clock.Now),
	)
	return sched, spy, emitter, clock
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

func TestScheduler_AddComputesNextRun(t *testing.T) {
	sched, _, _, _ := newTestScheduler(t)

	err := sched.Add(plugin.ScheduledTask{
		Name:     "nightly-reindex",
		Schedule: "0 2 * * *",
		JobName:  "reindex-products",
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	entries := sched.Entries()
	if len(entries) != 1 {
		t.Fatalf("len(Entries) = %d, want 1", len(entries))
	}
	want := time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC)
	if !entries[0].NextRunAt.Equal(want) {
		t.Errorf("NextRunAt = %v, want %v", entries[0].NextRunAt, want)
	}
	if entries[0].ID.Prefix() != id.PrefixTask {
		t.Errorf("ID prefix = %q, want %q", entries[0].ID.Prefix(), id.PrefixTask)
	}
}

func TestScheduler_AddRejects(t *testing.T) {
	sched, _, _, _ := newTestScheduler(t)

	if err := sched.Add(plugin.ScheduledTask{Name: "a", Schedule: "@hourly", JobName: "j"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	err := sched.Add(plugin.ScheduledTask{Name: "a", Schedule: "@daily", JobName: "j"})
	if !errors.Is(err, plaza.ErrDuplicateTask) {
		t.Errorf("duplicate: err = %v, want %v", err, plaza.ErrDuplicateTask)
	}
	if err := sched.Add(plugin.ScheduledTask{Name: "b", Schedule: "every tuesday", JobName: "j"}); err == nil {
		t.Error("expected invalid schedule error")
	}
	if err := sched.Add(plugin.ScheduledTask{Name: "c", Schedule: "@hourly"}); err == nil {
		t.Error("expected missing job name error")
	}
}

func TestScheduler_FiresDueTasks(t *testing.T) {
	sched, spy, emitter, clock := newTestScheduler(t)

	err := sched.Add(plugin.ScheduledTask{
		Name:     "abandoned-carts",
		Schedule: "*/15 * * * *",
		JobName:  "remind-abandoned-carts",
		Payload:  map[string]int{"olderThanHours": 24},
		Queue:    "mail",
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() {
		if err := sched.Stop(context.Background()); err != nil {
			t.Errorf("Stop: %v", err)
		}
	}()

	// Nothing is due yet.
	time.Sleep(30 * time.Millisecond)
	if n := len(spy.Calls()); n != 0 {
		t.Fatalf("enqueued %d jobs before the task was due", n)
	}

	clock.Advance(15 * time.Minute)
	waitFor(t, func() bool { return len(emitter.Calls()) == 1 })

	calls := spy.Calls()
	if len(calls) != 1 {
		t.Fatalf("enqueued %d jobs, want 1", len(calls))
	}
	want := enqueueCall{Name: "remind-abandoned-carts", Payload: `{"olderThanHours":24}`, Queue: "mail"}
	if calls[0] != want {
		t.Errorf("enqueue call = %+v, want %+v", calls[0], want)
	}

	entry := sched.Entries()[0]
	if entry.LastRunAt == nil {
		t.Fatal("expected LastRunAt to be set")
	}
	if entry.LastJobID.IsNil() {
		t.Error("expected LastJobID to be set")
	}
	if wantNext := clock.Now().Add(15 * time.Minute); !entry.NextRunAt.Equal(wantNext) {
		t.Errorf("NextRunAt = %v, want %v", entry.NextRunAt, wantNext)
	}
}

func TestScheduler_Fire(t *testing.T) {
	sched, spy, emitter, _ := newTestScheduler(t)

	if err := sched.Add(plugin.ScheduledTask{Name: "sitemap", Schedule: "@daily", JobName: "build-sitemap"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	jobID, err := sched.Fire(context.Background(), "sitemap")
	if err != nil {
		t.Fatalf("Fire: %v", err)
	}
	if jobID.IsNil() {
		t.Error("expected a job id")
	}
	if got := spy.Calls(); len(got) != 1 || got[0].Name != "build-sitemap" {
		t.Errorf("enqueue calls = %+v", got)
	}
	if got := emitter.Calls(); len(got) != 1 || got[0] != "sitemap" {
		t.Errorf("emitted = %v, want [sitemap]", got)
	}

	if _, err := sched.Fire(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown task")
	}
}

func TestScheduler_EnqueueErrorDoesNotEmit(t *testing.T) {
	sched, spy, emitter, _ := newTestScheduler(t)
	spy.err = errors.New("store down")

	if err := sched.Add(plugin.ScheduledTask{Name: "sitemap", Schedule: "@daily", JobName: "build-sitemap"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := sched.Fire(context.Background(), "sitemap"); err == nil {
		t.Fatal("expected enqueue error")
	}
	if n := len(emitter.Calls()); n != 0 {
		t.Errorf("emitted %d events, want 0", n)
	}
	if sched.Entries()[0].LastRunAt != nil {
		t.Error("expected LastRunAt to stay nil")
	}
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	sched, _, _, _ := newTestScheduler(t)
	if err := sched.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
