// Package backoff provides retry delay strategies. A strategy sees the
// job's queue as well as the attempt number, so different queues can back
// off differently. All strategies are safe for concurrent use.
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Strategy computes the delay before a retry attempt.
type Strategy interface {
	// Delay returns how long to wait before retry attempt n (1-indexed)
	// of a job on queue.
	Delay(queue string, attempt int) time.Duration
}

// Fixed always returns the same delay.
type Fixed struct {
	Interval time.Duration
}

// NewFixed creates a fixed backoff strategy.
func NewFixed(interval time.Duration) *Fixed {
	return &Fixed{Interval: interval}
}

// Delay returns the fixed interval.
func (f *Fixed) Delay(_ string, _ int) time.Duration { return f.Interval }

// Exponential doubles the delay each attempt up to Max. With Jitter set
// the delay is drawn uniformly from [0, capped delay].
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
	Jitter  bool
}

// NewExponential creates an exponential backoff strategy without jitter.
func NewExponential(initial, maxDelay time.Duration) *Exponential {
	return &Exponential{Initial: initial, Max: maxDelay}
}

// NewExponentialWithJitter creates an exponential backoff with full jitter.
func NewExponentialWithJitter(initial, maxDelay time.Duration) *Exponential {
	return &Exponential{Initial: initial, Max: maxDelay, Jitter: true}
}

// Delay returns Initial * 2^(attempt-1), capped at Max.
func (e *Exponential) Delay(_ string, attempt int) time.Duration {
	attempt = max(attempt, 1)
	base := float64(e.Initial) * math.Pow(2, float64(attempt-1))
	if e.Max > 0 && base > float64(e.Max) {
		base = float64(e.Max)
	}
	if e.Jitter {
		return time.Duration(rand.Float64() * base) //nolint:gosec // jitter does not need crypto rand
	}
	return time.Duration(base)
}

// PerQueue selects a strategy by queue name.
type PerQueue struct {
	Queues   map[string]Strategy
	Fallback Strategy
}

// NewPerQueue creates a per-queue strategy. fallback serves queues
// without an entry and must not be nil.
func NewPerQueue(fallback Strategy, queues map[string]Strategy) *PerQueue {
	if queues == nil {
		queues = make(map[string]Strategy)
	}
	return &PerQueue{Queues: queues, Fallback: fallback}
}

// Delay delegates to the queue's strategy or the fallback.
func (p *PerQueue) Delay(queue string, attempt int) time.Duration {
	if s, ok := p.Queues[queue]; ok {
		return s.Delay(queue, attempt)
	}
	return p.Fallback.Delay(queue, attempt)
}

// DefaultStrategy returns exponential backoff with jitter from 1s to 1m.
func DefaultStrategy() Strategy {
	return NewExponentialWithJitter(time.Second, time.Minute)
}
