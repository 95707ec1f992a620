package job_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/xraph/plaza"
	"github.com/xraph/plaza/id"
	"github.com/xraph/plaza/job"
)

func TestParseState(t *testing.T) {
	for _, in := range []string{"pending", "RUNNING", " Completed ", "failed"} {
		if _, err := job.ParseState(in); err != nil {
			t.Errorf("ParseState(%q): %v", in, err)
		}
	}
	if _, err := job.ParseState("retrying"); !errors.Is(err, plaza.ErrInvalidState) {
		t.Errorf("ParseState(retrying) error = %v, want ErrInvalidState", err)
	}
	if !job.StateFailed.Settled() || job.StatePending.Settled() {
		t.Error("Settled mismatch")
	}
}

func TestDuration(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(1500 * time.Millisecond)
	now := start.Add(10 * time.Second)

	j := &job.Job{}
	if d := j.Duration(now); d != 0 {
		t.Errorf("unstarted Duration = %v, want 0", d)
	}
	j.StartedAt = &start
	if d := j.Duration(now); d != 10*time.Second {
		t.Errorf("running Duration = %v, want 10s", d)
	}
	j.SettledAt = &end
	if d := j.Duration(now); d != 1500*time.Millisecond {
		t.Errorf("settled Duration = %v, want 1.5s", d)
	}
}

func TestToInfo(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Second)
	j := &job.Job{
		ID:        id.NewJobID(),
		Name:      "export-orders",
		State:     job.StateCompleted,
		Progress:  100,
		Result:    json.RawMessage(`{"rows":12}`),
		StartedAt: &start,
		SettledAt: &end,
	}

	info := job.ToInfo(j, end.Add(time.Hour))
	if info.ID != j.ID.String() || info.Name != "export-orders" || info.State != job.StateCompleted {
		t.Errorf("info = %+v", info)
	}
	if info.Duration != 2000 {
		t.Errorf("Duration = %d, want 2000", info.Duration)
	}
	if info.Ended == nil || !info.Ended.Equal(end) {
		t.Errorf("Ended = %v, want %v", info.Ended, end)
	}
	if string(info.Result) != `{"rows":12}` {
		t.Errorf("Result = %s", info.Result)
	}

	running := &job.Job{ID: id.NewJobID(), State: job.StateRunning, StartedAt: &start, SettledAt: &end}
	if job.ToInfo(running, end).Ended != nil {
		t.Error("running job should have no end time")
	}
}

func TestClone(t *testing.T) {
	now := time.Now()
	j := &job.Job{Payload: []byte("abc"), StartedAt: &now}
	c := j.Clone()
	c.Payload[0] = 'x'
	*c.StartedAt = now.Add(time.Hour)
	if string(j.Payload) != "abc" || !j.StartedAt.Equal(now) {
		t.Error("Clone shares memory with original")
	}
}

func TestTracker(t *testing.T) {
	j := &job.Job{ID: id.NewJobID(), Name: "x"}
	var reported []int
	tr := job.NewTracker(j, func(_ context.Context, got *job.Job, pct int) error {
		if got != j {
			t.Errorf("progress callback got a different job")
		}
		reported = append(reported, pct)
		return nil
	})
	ctx := job.WithTracker(context.Background(), tr)

	for _, pct := range []int{-5, 40, 150} {
		if err := job.SetProgress(ctx, pct); err != nil {
			t.Fatalf("SetProgress(%d): %v", pct, err)
		}
	}
	if len(reported) != 3 || reported[0] != 0 || reported[1] != 40 || reported[2] != 100 {
		t.Errorf("reported = %v, want [0 40 100]", reported)
	}
	if tr.Progress() != 100 {
		t.Errorf("Progress = %d", tr.Progress())
	}

	if err := job.SetResult(ctx, map[string]int{"n": 3}); err != nil {
		t.Fatalf("SetResult: %v", err)
	}
	if string(tr.Result()) != `{"n":3}` {
		t.Errorf("Result = %s", tr.Result())
	}

	if got, ok := job.FromContext(ctx); !ok || got != j {
		t.Error("FromContext did not return the tracked job")
	}
}

func TestTrackerMissing(t *testing.T) {
	ctx := context.Background()
	if err := job.SetProgress(ctx, 10); !errors.Is(err, job.ErrNoTracker) {
		t.Errorf("SetProgress error = %v, want ErrNoTracker", err)
	}
	if err := job.SetResult(ctx, 1); !errors.Is(err, job.ErrNoTracker) {
		t.Errorf("SetResult error = %v, want ErrNoTracker", err)
	}
	if _, ok := job.FromContext(ctx); ok {
		t.Error("FromContext returned a job without a tracker")
	}
}
