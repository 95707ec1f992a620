package plugin

import (
	"github.com/xraph/plaza"
	"github.com/xraph/plaza/job"
)

// Definition is an embeddable Plugin implementation.
type Definition struct {
	meta Metadata
}

// New creates a plugin definition.
func New(name string, opts ...Option) *Definition {
	d := &Definition{meta: Metadata{Name: name}}
	for _, opt := range opts {
		opt(&d.meta)
	}
	return d
}

// Meta returns the plugin metadata.
func (d *Definition) Meta() *Metadata { return &d.meta }

// Name returns the plugin name.
func (d *Definition) Name() string { return d.meta.Name }

// Option configures plugin metadata.
type Option func(*Metadata)

// WithVersion sets the plugin version.
func WithVersion(v string) Option {
	return func(m *Metadata) { m.Version = v }
}

// WithCompatibility sets the supported host version range.
func WithCompatibility(c string) Option {
	return func(m *Metadata) { m.Compatibility = c }
}

// WithShopAPIExtension extends the shop API.
func WithShopAPIExtension(ext APIExtension) Option {
	return func(m *Metadata) { m.ShopAPIExtensions = append(m.ShopAPIExtensions, ext) }
}

// WithAdminAPIExtension extends the admin API.
func WithAdminAPIExtension(ext APIExtension) Option {
	return func(m *Metadata) { m.AdminAPIExtensions = append(m.AdminAPIExtensions, ext) }
}

// WithController adds a worker controller.
func WithController(c Controller) Option {
	return func(m *Metadata) { m.WorkerControllers = append(m.WorkerControllers, c) }
}

// WithJob adds a typed job definition as a worker controller.
func WithJob[T any](def *job.Definition[T]) Option {
	return WithController(ControllerFor(def))
}

// WithEntity adds a custom entity.
func WithEntity(e Entity) Option {
	return func(m *Metadata) { m.Entities = append(m.Entities, e) }
}

// WithProvider adds a DI constructor.
func WithProvider(ctor any) Option {
	return func(m *Metadata) { m.Providers = append(m.Providers, ctor) }
}

// WithScheduledTask adds a scheduled task.
func WithScheduledTask(t ScheduledTask) Option {
	return func(m *Metadata) { m.ScheduledTasks = append(m.ScheduledTasks, t) }
}

// WithConfiguration sets the pre-bootstrap configuration hook.
func WithConfiguration(fn func(cfg *plaza.Config) error) Option {
	return func(m *Metadata) { m.Configure = fn }
}
