package job

import "time"

// Options configures per-job behavior.
type Options struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// Queue is the queue the job is enqueued to.
	Queue string

	// Priority orders dequeueing. Higher values run first.
	Priority int

	// Timeout bounds a single attempt. Zero means no limit.
	Timeout time.Duration

	// RunAt defers the first attempt. Zero means immediately.
	RunAt time.Time
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		MaxRetries: 3,
		Queue:      "default",
		Timeout:    5 * time.Minute,
	}
}

// Option configures job options.
type Option func(*Options)

// WithMaxRetries sets the number of retries.
func WithMaxRetries(n int) Option {
	return func(o *Options) { o.MaxRetries = n }
}

// WithQueue sets the queue.
func WithQueue(q string) Option {
	return func(o *Options) { o.Queue = q }
}

// WithPriority sets the priority.
func WithPriority(p int) Option {
	return func(o *Options) { o.Priority = p }
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

// WithRunAt defers the first attempt until t.
func WithRunAt(t time.Time) Option {
	return func(o *Options) { o.RunAt = t }
}
