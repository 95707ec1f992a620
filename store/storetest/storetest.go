// Package storetest provides a contract suite run against every job.Store
// backend.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/plaza"
	"github.com/xraph/plaza/id"
	"github.com/xraph/plaza/job"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) job.Store

// NewJob returns a due pending job.
func NewJob(name, queue string, priority int) *job.Job {
	return &job.Job{
		Entity:     plaza.NewEntity(),
		ID:         id.NewJobID(),
		Name:       name,
		Queue:      queue,
		Payload:    []byte(`{"order":"T_1"}`),
		State:      job.StatePending,
		Priority:   priority,
		MaxRetries: 3,
		RunAt:      time.Now().UTC().Add(-time.Second),
	}
}

// Run runs the job store contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("EnqueueAndGet", func(t *testing.T) { testEnqueueAndGet(t, newStore(t)) })
	t.Run("DequeueOrder", func(t *testing.T) { testDequeueOrder(t, newStore(t)) })
	t.Run("DequeueSkipsFutureAndOtherQueues", func(t *testing.T) { testDequeueFilters(t, newStore(t)) })
	t.Run("Update", func(t *testing.T) { testUpdate(t, newStore(t)) })
	t.Run("ListAndCount", func(t *testing.T) { testListAndCount(t, newStore(t)) })
	t.Run("Heartbeat", func(t *testing.T) { testHeartbeat(t, newStore(t)) })
	t.Run("ReapStale", func(t *testing.T) { testReapStale(t, newStore(t)) })
	t.Run("RemoveSettled", func(t *testing.T) { testRemoveSettled(t, newStore(t)) })
}

func testEnqueueAndGet(t *testing.T, s job.Store) {
	ctx := context.Background()
	j := NewJob("send-email", "default", 0)

	if err := s.EnqueueJob(ctx, j); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}
	if err := s.EnqueueJob(ctx, j); !errors.Is(err, plaza.ErrJobAlreadyExists) {
		t.Fatalf("duplicate EnqueueJob = %v, want ErrJobAlreadyExists", err)
	}

	got, err := s.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.ID.String() != j.ID.String() || got.Name != j.Name || got.Queue != j.Queue {
		t.Errorf("GetJob = %+v, want %+v", got, j)
	}
	if string(got.Payload) != string(j.Payload) {
		t.Errorf("Payload = %s, want %s", got.Payload, j.Payload)
	}
	if got.State != job.StatePending || got.MaxRetries != 3 {
		t.Errorf("State/MaxRetries = %s/%d", got.State, got.MaxRetries)
	}
	if !got.WorkerID.IsNil() {
		t.Errorf("WorkerID = %s, want nil", got.WorkerID)
	}

	if _, err := s.GetJob(ctx, id.NewJobID()); !errors.Is(err, plaza.ErrJobNotFound) {
		t.Errorf("GetJob(missing) = %v, want ErrJobNotFound", err)
	}
}

func testDequeueOrder(t *testing.T, s job.Store) {
	ctx := context.Background()
	low := NewJob("a", "default", 0)
	high := NewJob("b", "default", 10)
	older := NewJob("c", "default", 0)
	older.RunAt = low.RunAt.Add(-time.Minute)

	for _, j := range []*job.Job{low, high, older} {
		if err := s.EnqueueJob(ctx, j); err != nil {
			t.Fatalf("EnqueueJob: %v", err)
		}
	}

	worker := id.NewWorkerID()
	got, err := s.DequeueJobs(ctx, []string{"default"}, worker, 2)
	if err != nil {
		t.Fatalf("DequeueJobs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("dequeued %d jobs, want 2", len(got))
	}
	if got[0].ID.String() != high.ID.String() || got[1].ID.String() != older.ID.String() {
		t.Errorf("dequeue order = [%s %s], want [%s %s]", got[0].Name, got[1].Name, high.Name, older.Name)
	}
	for _, j := range got {
		if j.State != job.StateRunning {
			t.Errorf("%s state = %s, want RUNNING", j.Name, j.State)
		}
		if j.WorkerID.String() != worker.String() {
			t.Errorf("%s worker = %s, want %s", j.Name, j.WorkerID, worker)
		}
		if j.StartedAt == nil {
			t.Errorf("%s StartedAt not set", j.Name)
		}
	}

	stored, err := s.GetJob(ctx, high.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if stored.State != job.StateRunning {
		t.Errorf("stored state = %s, want RUNNING", stored.State)
	}

	rest, err := s.DequeueJobs(ctx, []string{"default"}, worker, 10)
	if err != nil {
		t.Fatalf("DequeueJobs: %v", err)
	}
	if len(rest) != 1 || rest[0].ID.String() != low.ID.String() {
		t.Errorf("second dequeue = %d jobs, want only %s", len(rest), low.Name)
	}
}

func testDequeueFilters(t *testing.T, s job.Store) {
	ctx := context.Background()
	future := NewJob("future", "default", 0)
	future.RunAt = time.Now().UTC().Add(time.Hour)
	other := NewJob("other", "mail", 0)

	for _, j := range []*job.Job{future, other} {
		if err := s.EnqueueJob(ctx, j); err != nil {
			t.Fatalf("EnqueueJob: %v", err)
		}
	}

	got, err := s.DequeueJobs(ctx, []string{"default"}, id.NewWorkerID(), 10)
	if err != nil {
		t.Fatalf("DequeueJobs: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("dequeued %d jobs, want 0", len(got))
	}

	got, err = s.DequeueJobs(ctx, []string{"mail"}, id.NewWorkerID(), 10)
	if err != nil {
		t.Fatalf("DequeueJobs: %v", err)
	}
	if len(got) != 1 || got[0].Name != "other" {
		t.Fatalf("mail dequeue = %d jobs, want [other]", len(got))
	}
}

func testUpdate(t *testing.T, s job.Store) {
	ctx := context.Background()
	j := NewJob("export", "default", 0)
	if err := s.EnqueueJob(ctx, j); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	settled := time.Now().UTC()
	j.State = job.StateCompleted
	j.Progress = 100
	j.Attempts = 1
	j.Result = []byte(`{"exported":12}`)
	j.SettledAt = &settled
	if err := s.UpdateJob(ctx, j); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}

	got, err := s.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.State != job.StateCompleted || got.Progress != 100 || got.Attempts != 1 {
		t.Errorf("updated job = %s/%d/%d", got.State, got.Progress, got.Attempts)
	}
	if len(got.Result) == 0 {
		t.Error("Result not persisted")
	}
	if got.SettledAt == nil {
		t.Error("SettledAt not persisted")
	}

	missing := NewJob("missing", "default", 0)
	if err := s.UpdateJob(ctx, missing); !errors.Is(err, plaza.ErrJobNotFound) {
		t.Errorf("UpdateJob(missing) = %v, want ErrJobNotFound", err)
	}
}

func testListAndCount(t *testing.T, s job.Store) {
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)
	var jobs []*job.Job
	for i, name := range []string{"a", "b", "c", "d"} {
		j := NewJob(name, "default", 0)
		j.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		j.UpdatedAt = j.CreatedAt
		if name == "d" {
			j.Queue = "mail"
			j.State = job.StateFailed
		}
		if err := s.EnqueueJob(ctx, j); err != nil {
			t.Fatalf("EnqueueJob: %v", err)
		}
		jobs = append(jobs, j)
	}

	all, err := s.ListJobs(ctx, job.ListOpts{})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(all) != 4 || all[0].Name != "a" || all[3].Name != "d" {
		t.Fatalf("ListJobs = %d jobs, want a..d in creation order", len(all))
	}

	page, err := s.ListJobs(ctx, job.ListOpts{Offset: 1, Limit: 2})
	if err != nil {
		t.Fatalf("ListJobs page: %v", err)
	}
	if len(page) != 2 || page[0].Name != "b" || page[1].Name != "c" {
		t.Errorf("page = %d jobs, want [b c]", len(page))
	}

	byIDs, err := s.ListJobs(ctx, job.ListOpts{IDs: []id.JobID{jobs[2].ID, jobs[0].ID}})
	if err != nil {
		t.Fatalf("ListJobs ids: %v", err)
	}
	if len(byIDs) != 2 || byIDs[0].Name != "a" || byIDs[1].Name != "c" {
		t.Errorf("ListJobs by ids = %d jobs, want [a c]", len(byIDs))
	}

	failed, err := s.ListJobs(ctx, job.ListOpts{State: job.StateFailed})
	if err != nil {
		t.Fatalf("ListJobs state: %v", err)
	}
	if len(failed) != 1 || failed[0].Name != "d" {
		t.Errorf("failed jobs = %d, want [d]", len(failed))
	}

	n, err := s.CountJobs(ctx, job.CountOpts{State: job.StatePending})
	if err != nil {
		t.Fatalf("CountJobs: %v", err)
	}
	if n != 3 {
		t.Errorf("pending count = %d, want 3", n)
	}
	n, err = s.CountJobs(ctx, job.CountOpts{Queue: "mail"})
	if err != nil {
		t.Fatalf("CountJobs: %v", err)
	}
	if n != 1 {
		t.Errorf("mail count = %d, want 1", n)
	}
}

func testHeartbeat(t *testing.T, s job.Store) {
	ctx := context.Background()
	j := NewJob("import", "default", 0)
	if err := s.EnqueueJob(ctx, j); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	worker := id.NewWorkerID()
	if err := s.HeartbeatJob(ctx, j.ID, worker); !errors.Is(err, plaza.ErrJobNotFound) {
		t.Errorf("HeartbeatJob(pending) = %v, want ErrJobNotFound", err)
	}

	if _, err := s.DequeueJobs(ctx, []string{"default"}, worker, 1); err != nil {
		t.Fatalf("DequeueJobs: %v", err)
	}
	if err := s.HeartbeatJob(ctx, j.ID, worker); err != nil {
		t.Errorf("HeartbeatJob: %v", err)
	}
	if err := s.HeartbeatJob(ctx, j.ID, id.NewWorkerID()); !errors.Is(err, plaza.ErrJobNotFound) {
		t.Errorf("HeartbeatJob(other worker) = %v, want ErrJobNotFound", err)
	}
}

func testReapStale(t *testing.T, s job.Store) {
	ctx := context.Background()
	j := NewJob("slow", "default", 0)
	if err := s.EnqueueJob(ctx, j); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}
	claimed, err := s.DequeueJobs(ctx, []string{"default"}, id.NewWorkerID(), 1)
	if err != nil || len(claimed) != 1 {
		t.Fatalf("DequeueJobs = %d, %v", len(claimed), err)
	}

	stale, err := s.ReapStaleJobs(ctx, time.Hour)
	if err != nil {
		t.Fatalf("ReapStaleJobs: %v", err)
	}
	if len(stale) != 0 {
		t.Fatalf("fresh job reaped: %d", len(stale))
	}

	old := time.Now().UTC().Add(-2 * time.Hour)
	running := claimed[0]
	running.HeartbeatAt = &old
	if err := s.UpdateJob(ctx, running); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}

	stale, err = s.ReapStaleJobs(ctx, time.Hour)
	if err != nil {
		t.Fatalf("ReapStaleJobs: %v", err)
	}
	if len(stale) != 1 || stale[0].ID.String() != j.ID.String() {
		t.Errorf("stale = %d jobs, want [%s]", len(stale), j.ID)
	}
}

func testRemoveSettled(t *testing.T, s job.Store) {
	ctx := context.Background()
	now := time.Now().UTC()
	old := now.Add(-48 * time.Hour)

	done := NewJob("done", "default", 0)
	done.State = job.StateCompleted
	done.SettledAt = &old
	recent := NewJob("recent", "default", 0)
	recent.State = job.StateFailed
	recent.SettledAt = &now
	pending := NewJob("pending", "default", 0)

	for _, j := range []*job.Job{done, recent, pending} {
		if err := s.EnqueueJob(ctx, j); err != nil {
			t.Fatalf("EnqueueJob: %v", err)
		}
	}

	n, err := s.RemoveSettledJobs(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("RemoveSettledJobs: %v", err)
	}
	if n != 1 {
		t.Errorf("removed %d jobs, want 1", n)
	}
	if _, err := s.GetJob(ctx, done.ID); !errors.Is(err, plaza.ErrJobNotFound) {
		t.Errorf("GetJob(done) = %v, want ErrJobNotFound", err)
	}
	if _, err := s.GetJob(ctx, recent.ID); err != nil {
		t.Errorf("GetJob(recent): %v", err)
	}
}
