package ext_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/xraph/plaza/ext"
	"github.com/xraph/plaza/id"
	"github.com/xraph/plaza/job"
)

type allHooks struct {
	calls []string
}

func (e *allHooks) Name() string { return "all-hooks" }

func (e *allHooks) OnJobEnqueued(context.Context, *job.Job) error {
	e.calls = append(e.calls, "enqueued")
	return nil
}

func (e *allHooks) OnJobStarted(context.Context, *job.Job) error {
	e.calls = append(e.calls, "started")
	return nil
}

func (e *allHooks) OnJobProgress(_ context.Context, _ *job.Job, p int) error {
	e.calls = append(e.calls, "progress")
	return nil
}

func (e *allHooks) OnJobCompleted(context.Context, *job.Job, time.Duration) error {
	e.calls = append(e.calls, "completed")
	return nil
}

func (e *allHooks) OnJobFailed(context.Context, *job.Job, error) error {
	e.calls = append(e.calls, "failed")
	return nil
}

func (e *allHooks) OnJobRetrying(context.Context, *job.Job, int, time.Time) error {
	e.calls = append(e.calls, "retrying")
	return nil
}

func (e *allHooks) OnTaskFired(context.Context, string, id.JobID) error {
	e.calls = append(e.calls, "task")
	return nil
}

func (e *allHooks) OnShutdown(context.Context) error {
	e.calls = append(e.calls, "shutdown")
	return nil
}

type completedOnly struct{ n int }

func (e *completedOnly) Name() string { return "completed-only" }

func (e *completedOnly) OnJobCompleted(context.Context, *job.Job, time.Duration) error {
	e.n++
	return nil
}

type failing struct{}

func (failing) Name() string { return "failing" }

func (failing) OnJobStarted(context.Context, *job.Job) error { return errors.New("hook exploded") }

type nameOnly struct{}

func (nameOnly) Name() string { return "name-only" }

func TestRegistryEmitsAllHooks(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	all := &allHooks{}
	r.Register(all)

	ctx := context.Background()
	j := &job.Job{ID: id.NewJobID(), Name: "x"}
	r.EmitJobEnqueued(ctx, j)
	r.EmitJobStarted(ctx, j)
	r.EmitJobProgress(ctx, j, 50)
	r.EmitJobCompleted(ctx, j, time.Second)
	r.EmitJobFailed(ctx, j, errors.New("x"))
	r.EmitJobRetrying(ctx, j, 1, time.Now())
	r.EmitTaskFired(ctx, "nightly", j.ID)
	r.EmitShutdown(ctx)

	want := []string{"enqueued", "started", "progress", "completed", "failed", "retrying", "task", "shutdown"}
	if diff := cmp.Diff(want, all.calls); diff != "" {
		t.Errorf("calls (-want +got):\n%s", diff)
	}
}

func TestRegistryOnlyCallsImplementedHooks(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	c := &completedOnly{}
	r.Register(c)

	ctx := context.Background()
	j := &job.Job{ID: id.NewJobID()}
	r.EmitJobStarted(ctx, j)
	r.EmitJobCompleted(ctx, j, 0)
	r.EmitJobCompleted(ctx, j, 0)

	if c.n != 2 {
		t.Errorf("OnJobCompleted calls = %d, want 2", c.n)
	}
	if len(r.Extensions()) != 1 {
		t.Errorf("Extensions = %d, want 1", len(r.Extensions()))
	}
}

func TestRegistryLogsHookErrors(t *testing.T) {
	var buf bytes.Buffer
	r := ext.NewRegistry(slog.New(slog.NewTextHandler(&buf, nil)))
	after := &allHooks{}
	r.Register(failing{})
	r.Register(after)

	r.EmitJobStarted(context.Background(), &job.Job{ID: id.NewJobID()})

	if !strings.Contains(buf.String(), "hook exploded") || !strings.Contains(buf.String(), "failing") {
		t.Errorf("hook error not logged: %s", buf.String())
	}
	if len(after.calls) != 1 {
		t.Error("hook after a failing one was not called")
	}
}

func TestHasHooks(t *testing.T) {
	if !ext.HasHooks(&completedOnly{}) {
		t.Error("completedOnly should have hooks")
	}
	if ext.HasHooks(nameOnly{}) {
		t.Error("nameOnly should have no hooks")
	}
}
