package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrNoTracker is returned by SetProgress and SetResult outside a job
// handler.
var ErrNoTracker = errors.New("job: no tracker in context")

// ProgressFunc persists a progress update.
type ProgressFunc func(ctx context.Context, j *Job, progress int) error

// Tracker collects progress and result reported by a running handler.
type Tracker struct {
	mu         sync.Mutex
	job        *Job
	progress   int
	result     json.RawMessage
	onProgress ProgressFunc
}

// NewTracker creates a tracker for j. onProgress may be nil.
func NewTracker(j *Job, onProgress ProgressFunc) *Tracker {
	return &Tracker{job: j, progress: j.Progress, onProgress: onProgress}
}

type trackerKey struct{}

// WithTracker attaches t to ctx.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// TrackerFrom returns the tracker attached to ctx.
func TrackerFrom(ctx context.Context) (*Tracker, bool) {
	t, ok := ctx.Value(trackerKey{}).(*Tracker)
	return t, ok
}

// FromContext returns the job being executed, if any.
func FromContext(ctx context.Context) (*Job, bool) {
	t, ok := TrackerFrom(ctx)
	if !ok {
		return nil, false
	}
	return t.job, true
}

// SetProgress reports progress as a percentage, clamped to 0..100.
func SetProgress(ctx context.Context, pct int) error {
	t, ok := TrackerFrom(ctx)
	if !ok {
		return ErrNoTracker
	}
	return t.SetProgress(ctx, pct)
}

// SetResult records the job result. v is stored as JSON.
func SetResult(ctx context.Context, v any) error {
	t, ok := TrackerFrom(ctx)
	if !ok {
		return ErrNoTracker
	}
	return t.SetResult(v)
}

// SetProgress reports progress as a percentage, clamped to 0..100.
func (t *Tracker) SetProgress(ctx context.Context, pct int) error {
	pct = min(max(pct, 0), 100)
	t.mu.Lock()
	t.progress = pct
	t.mu.Unlock()
	if t.onProgress == nil {
		return nil
	}
	return t.onProgress(ctx, t.job, pct)
}

// SetResult records the job result.
func (t *Tracker) SetResult(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("job: marshal result: %w", err)
	}
	t.mu.Lock()
	t.result = raw
	t.mu.Unlock()
	return nil
}

// Progress returns the last reported progress.
func (t *Tracker) Progress() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// Result returns the recorded result, or nil.
func (t *Tracker) Result() json.RawMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}
