package audithook_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	ah "github.com/xraph/plaza/audit_hook"
	"github.com/xraph/plaza/ext"
	"github.com/xraph/plaza/id"
	"github.com/xraph/plaza/job"
)

type memRecorder struct {
	mu     sync.Mutex
	events []*ah.Event
}

func (m *memRecorder) Record(_ context.Context, evt *ah.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

func (m *memRecorder) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.Action
	}
	return out
}

func (m *memRecorder) find(action string) *ah.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.Action == action {
			return e
		}
	}
	return nil
}

func testJob() *job.Job {
	return &job.Job{
		ID:         id.NewJobID(),
		Name:       "send-order-confirmation",
		Queue:      "emails",
		Attempts:   3,
		MaxRetries: 2,
		Error:      "smtp unavailable",
	}
}

func TestExtension_RecordsEveryHookThroughRegistry(t *testing.T) {
	rec := &memRecorder{}
	reg := ext.NewRegistry(slog.Default())
	reg.Register(ah.New(rec))

	ctx := context.Background()
	j := testJob()
	reg.EmitJobEnqueued(ctx, j)
	reg.EmitJobStarted(ctx, j)
	reg.EmitJobProgress(ctx, j, 50)
	reg.EmitJobRetrying(ctx, j, 1, time.Now().Add(time.Second))
	reg.EmitJobCompleted(ctx, j, 20*time.Millisecond)
	reg.EmitJobFailed(ctx, j, errors.New("smtp unavailable"))
	reg.EmitTaskFired(ctx, "nightly-reindex", j.ID)
	reg.EmitShutdown(ctx)

	want := []string{
		ah.ActionJobEnqueued,
		ah.ActionJobStarted,
		ah.ActionJobProgress,
		ah.ActionJobRetrying,
		ah.ActionJobCompleted,
		ah.ActionJobFailed,
		ah.ActionTaskFired,
		ah.ActionShutdown,
	}
	if diff := cmp.Diff(want, rec.actions()); diff != "" {
		t.Fatalf("recorded actions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(ah.AllActions(), want); diff != "" {
		t.Errorf("AllActions mismatch (-want +got):\n%s", diff)
	}
}

func TestExtension_JobFailedEvent(t *testing.T) {
	rec := &memRecorder{}
	e := ah.New(rec)
	j := testJob()

	if err := e.OnJobFailed(context.Background(), j, errors.New("smtp unavailable")); err != nil {
		t.Fatalf("OnJobFailed: %v", err)
	}

	evt := rec.find(ah.ActionJobFailed)
	if evt == nil {
		t.Fatal("no job.failed event recorded")
	}
	if evt.Severity != ah.SeverityCritical || evt.Outcome != ah.OutcomeFailure {
		t.Errorf("severity/outcome = %s/%s, want critical/failure", evt.Severity, evt.Outcome)
	}
	if evt.ResourceID != j.ID.String() || evt.Category != ah.CategoryJob {
		t.Errorf("resource = %s %s, want %s %s", evt.Category, evt.ResourceID, ah.CategoryJob, j.ID)
	}
	if evt.Reason != "smtp unavailable" {
		t.Errorf("Reason = %q", evt.Reason)
	}
	if evt.Metadata["queue"] != "emails" || evt.Metadata["attempts"] != 3 {
		t.Errorf("Metadata = %v", evt.Metadata)
	}
	if evt.Time.IsZero() {
		t.Error("Time not set")
	}
}

func TestExtension_RetryIsWarning(t *testing.T) {
	rec := &memRecorder{}
	if err := ah.New(rec).OnJobRetrying(context.Background(), testJob(), 2, time.Now()); err != nil {
		t.Fatalf("OnJobRetrying: %v", err)
	}
	evt := rec.find(ah.ActionJobRetrying)
	if evt == nil || evt.Severity != ah.SeverityWarning {
		t.Fatalf("retry event = %+v, want warning", evt)
	}
	if evt.Metadata["attempt"] != 2 {
		t.Errorf("attempt = %v, want 2", evt.Metadata["attempt"])
	}
}

func TestExtension_WithActions(t *testing.T) {
	rec := &memRecorder{}
	e := ah.New(rec, ah.WithActions(ah.ActionJobFailed))
	ctx := context.Background()
	j := testJob()

	_ = e.OnJobEnqueued(ctx, j)
	_ = e.OnJobCompleted(ctx, j, time.Millisecond)
	_ = e.OnJobFailed(ctx, j, errors.New("boom"))

	if diff := cmp.Diff([]string{ah.ActionJobFailed}, rec.actions()); diff != "" {
		t.Fatalf("actions mismatch (-want +got):\n%s", diff)
	}
}

func TestExtension_RecorderErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	failing := ah.RecorderFunc(func(context.Context, *ah.Event) error {
		return errors.New("audit backend down")
	})

	e := ah.New(failing, ah.WithLogger(logger))
	if err := e.OnJobCompleted(context.Background(), testJob(), time.Millisecond); err != nil {
		t.Fatalf("OnJobCompleted returned %v, want nil", err)
	}
	if !strings.Contains(buf.String(), "audit backend down") {
		t.Errorf("log output %q does not mention the recorder error", buf.String())
	}
}

func TestSlogRecorder(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	e := ah.New(ah.SlogRecorder(logger))
	if err := e.OnJobFailed(context.Background(), testJob(), errors.New("boom")); err != nil {
		t.Fatalf("OnJobFailed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"level=ERROR", "msg=audit", "action=job.failed", "reason=boom", "queue=emails"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
}
