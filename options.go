package plaza

import (
	"context"
	"log/slog"
	"sync"

	"github.com/xraph/plaza/customfield"
)

// Option configures a Platform.
type Option func(*Platform) error

// Storer is the minimal store interface held by the Platform.
// It covers lifecycle operations only. Subsystem layers type-assert the
// store to the narrower interfaces they need (job.Store, ...).
type Storer interface {
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Platform holds the configuration, logger and store shared by every
// subsystem. Its configuration stays mutable until Freeze is called,
// which the engine does once plugin configuration hooks have run.
type Platform struct {
	mu     sync.RWMutex
	config Config
	frozen bool

	logger *slog.Logger
	store  Storer
}

// New creates a Platform with the given options.
func New(opts ...Option) (*Platform, error) {
	p := &Platform{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Logger returns the platform logger.
func (p *Platform) Logger() *slog.Logger { return p.logger }

// Store returns the platform store.
func (p *Platform) Store() Storer { return p.store }

// Config returns a copy of the platform configuration.
func (p *Platform) Config() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.config.clone()
}

// Configure applies fn to a copy of the configuration and keeps the copy
// only when fn succeeds. It fails with ErrConfigFrozen once the platform
// has been frozen.
func (p *Platform) Configure(fn func(*Config) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.frozen {
		return ErrConfigFrozen
	}
	cfg := p.config.clone()
	if err := fn(&cfg); err != nil {
		return err
	}
	p.config = cfg
	return nil
}

// Freeze makes the configuration read-only.
func (p *Platform) Freeze() {
	p.mu.Lock()
	p.frozen = true
	p.mu.Unlock()
}

// Frozen reports whether the configuration is read-only.
func (p *Platform) Frozen() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.frozen
}

// WithStore sets the persistence backend.
func WithStore(s Storer) Option {
	return func(p *Platform) error {
		p.store = s
		return nil
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Platform) error {
		p.logger = l
		return nil
	}
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(p *Platform) error {
		if cfg.CustomFields == nil {
			cfg.CustomFields = customfield.Fields{}
		}
		p.config = cfg
		return nil
	}
}

// WithWorkerConcurrency sets the maximum number of concurrent job processors.
func WithWorkerConcurrency(n int) Option {
	return func(p *Platform) error {
		p.config.Worker.Concurrency = n
		return nil
	}
}

// WithQueues sets the queues the worker polls.
func WithQueues(queues []string) Option {
	return func(p *Platform) error {
		p.config.Worker.Queues = queues
		return nil
	}
}

// WithCustomFields adds custom field definitions for an entity.
func WithCustomFields(entity customfield.EntityName, cfgs ...customfield.Config) Option {
	return func(p *Platform) error {
		if p.config.CustomFields == nil {
			p.config.CustomFields = customfield.Fields{}
		}
		p.config.CustomFields.Add(entity, cfgs...)
		return nil
	}
}
