package queue

import (
	"slices"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// Limit bounds the jobs of one queue within a single worker process.
type Limit struct {
	// Name is the queue the limit applies to.
	Name string `json:"name" yaml:"name"`

	// MaxConcurrency caps how many jobs of the queue run at once. Zero
	// means no cap.
	MaxConcurrency int `json:"max_concurrency" yaml:"max_concurrency"`

	// RateLimit is the sustained number of jobs per second allowed to
	// start. Zero disables rate limiting.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit"`

	// RateBurst is the token bucket size. Defaults to 1 when RateLimit is
	// set.
	RateBurst int `json:"rate_burst" yaml:"rate_burst"`
}

type slot struct {
	limit   Limit
	limiter *rate.Limiter
	active  int
}

func newSlot(l Limit) *slot {
	s := &slot{limit: l}
	if l.RateLimit > 0 {
		burst := l.RateBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(l.RateLimit), burst)
	}
	return s
}

// Limiter enforces per-queue limits. It is safe for concurrent use.
type Limiter struct {
	mu    sync.Mutex
	slots map[string]*slot
}

// NewLimiter creates a Limiter for the given limits.
func NewLimiter(limits ...Limit) *Limiter {
	l := &Limiter{slots: make(map[string]*slot, len(limits))}
	for _, lim := range limits {
		l.slots[lim.Name] = newSlot(lim)
	}
	return l
}

// Acquire reports whether a job of queue may start now. On true the
// caller must call Release once the job has finished.
func (l *Limiter) Acquire(queue string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.slots[queue]
	if s == nil {
		return true
	}
	if s.limit.MaxConcurrency > 0 && s.active >= s.limit.MaxConcurrency {
		return false
	}
	if s.limiter != nil && !s.limiter.Allow() {
		return false
	}
	s.active++
	return true
}

// Release frees the slot taken by a successful Acquire.
func (l *Limiter) Release(queue string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if s := l.slots[queue]; s != nil && s.active > 0 {
		s.active--
	}
}

// Set adds or replaces the limit for a queue. Running jobs keep counting
// against the new limit.
func (l *Limiter) Set(lim Limit) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := newSlot(lim)
	if old := l.slots[lim.Name]; old != nil {
		s.active = old.active
	}
	l.slots[lim.Name] = s
}

// Active returns the number of running jobs counted for queue.
func (l *Limiter) Active(queue string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s := l.slots[queue]; s != nil {
		return s.active
	}
	return 0
}

// Limits returns the configured limits sorted by queue name.
func (l *Limiter) Limits() []Limit {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Limit, 0, len(l.slots))
	for _, s := range l.slots {
		out = append(out, s.limit)
	}
	slices.SortFunc(out, func(a, b Limit) int { return strings.Compare(a.Name, b.Name) })
	return out
}
