// Package memory provides an in-memory store for tests and development.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/xraph/plaza"
	"github.com/xraph/plaza/id"
	"github.com/xraph/plaza/job"
	"github.com/xraph/plaza/plugin"
	"github.com/xraph/plaza/store"
)

var (
	_ store.Store          = (*Store)(nil)
	_ store.EntityMigrator = (*Store)(nil)
)

// Store is a fully in-memory implementation of store.Store.
// Safe for concurrent access.
type Store struct {
	mu sync.RWMutex

	jobs     map[string]*job.Job
	entities map[string]plugin.Entity
	closed   bool
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		jobs:     make(map[string]*job.Job),
		entities: make(map[string]plugin.Entity),
	}
}

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping fails once the store is closed.
func (m *Store) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return plaza.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed.
func (m *Store) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// MigrateEntities records the entities so tests can inspect them.
func (m *Store) MigrateEntities(_ context.Context, entities []plugin.Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entities {
		m.entities[e.Name] = e
	}
	return nil
}

// Entities returns the names of migrated plugin entities, sorted.
func (m *Store) Entities() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.entities))
	for n := range m.entities {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// EnqueueJob persists a new job.
func (m *Store) EnqueueJob(_ context.Context, j *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := j.ID.String()
	if _, exists := m.jobs[key]; exists {
		return plaza.ErrJobAlreadyExists
	}
	m.jobs[key] = j.Clone()
	return nil
}

// DequeueJobs claims up to limit due pending jobs for workerID.
func (m *Store) DequeueJobs(_ context.Context, queues []string, workerID id.WorkerID, limit int) ([]*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()

	candidates := make([]*job.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		if j.State != job.StatePending {
			continue
		}
		if !j.RunAt.IsZero() && j.RunAt.After(now) {
			continue
		}
		if len(queues) > 0 && !slices.Contains(queues, j.Queue) {
			continue
		}
		candidates = append(candidates, j)
	}

	sort.Slice(candidates, func(i, k int) bool {
		if candidates[i].Priority != candidates[k].Priority {
			return candidates[i].Priority > candidates[k].Priority
		}
		return candidates[i].RunAt.Before(candidates[k].RunAt)
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	result := make([]*job.Job, len(candidates))
	for i, j := range candidates {
		started := now
		j.State = job.StateRunning
		j.StartedAt = &started
		j.SettledAt = nil
		j.HeartbeatAt = &started
		j.WorkerID = workerID
		j.UpdatedAt = now
		result[i] = j.Clone()
	}
	return result, nil
}

// GetJob retrieves a job by ID.
func (m *Store) GetJob(_ context.Context, jobID id.JobID) (*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[jobID.String()]
	if !ok {
		return nil, plaza.ErrJobNotFound
	}
	return j.Clone(), nil
}

// UpdateJob persists changes to an existing job.
func (m *Store) UpdateJob(_ context.Context, j *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := j.ID.String()
	if _, ok := m.jobs[key]; !ok {
		return plaza.ErrJobNotFound
	}
	cp := j.Clone()
	cp.UpdatedAt = time.Now().UTC()
	m.jobs[key] = cp
	return nil
}

// ListJobs returns jobs matching opts, oldest first.
func (m *Store) ListJobs(_ context.Context, opts job.ListOpts) ([]*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids map[string]bool
	if len(opts.IDs) > 0 {
		ids = make(map[string]bool, len(opts.IDs))
		for _, jid := range opts.IDs {
			ids[jid.String()] = true
		}
	}

	result := make([]*job.Job, 0, len(m.jobs))
	for key, j := range m.jobs {
		if opts.State != "" && j.State != opts.State {
			continue
		}
		if opts.Name != "" && j.Name != opts.Name {
			continue
		}
		if opts.Queue != "" && j.Queue != opts.Queue {
			continue
		}
		if ids != nil && !ids[key] {
			continue
		}
		result = append(result, j.Clone())
	}

	sort.Slice(result, func(i, k int) bool {
		if !result[i].CreatedAt.Equal(result[k].CreatedAt) {
			return result[i].CreatedAt.Before(result[k].CreatedAt)
		}
		return result[i].ID.String() < result[k].ID.String()
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return nil, nil
		}
		result = result[opts.Offset:]
	}
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result, nil
}

// CountJobs returns the number of jobs matching opts.
func (m *Store) CountJobs(_ context.Context, opts job.CountOpts) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, j := range m.jobs {
		if opts.Queue != "" && j.Queue != opts.Queue {
			continue
		}
		if opts.State != "" && j.State != opts.State {
			continue
		}
		if opts.Name != "" && j.Name != opts.Name {
			continue
		}
		count++
	}
	return count, nil
}

// HeartbeatJob updates the heartbeat of a job running on workerID.
func (m *Store) HeartbeatJob(_ context.Context, jobID id.JobID, workerID id.WorkerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID.String()]
	if !ok || j.State != job.StateRunning || j.WorkerID.String() != workerID.String() {
		return plaza.ErrJobNotFound
	}
	now := time.Now().UTC()
	j.HeartbeatAt = &now
	return nil
}

// ReapStaleJobs returns running jobs whose last heartbeat, or start time
// when none was recorded, is older than threshold.
func (m *Store) ReapStaleJobs(_ context.Context, threshold time.Duration) ([]*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := time.Now().UTC().Add(-threshold)
	var stale []*job.Job
	for _, j := range m.jobs {
		if j.State != job.StateRunning {
			continue
		}
		last := j.HeartbeatAt
		if last == nil {
			last = j.StartedAt
		}
		if last != nil && last.Before(cutoff) {
			stale = append(stale, j.Clone())
		}
	}
	return stale, nil
}

// RemoveSettledJobs deletes completed and failed jobs settled before the
// given time.
func (m *Store) RemoveSettledJobs(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for key, j := range m.jobs {
		if !j.State.Settled() || j.SettledAt == nil || !j.SettledAt.Before(before) {
			continue
		}
		delete(m.jobs, key)
		n++
	}
	return n, nil
}
