package plugin

import (
	"github.com/xraph/plaza"
	"github.com/xraph/plaza/job"
)

// Plugin is implemented by every plugin.
type Plugin interface {
	Meta() *Metadata
}

// Metadata is the declarative description of a plugin's contributions.
type Metadata struct {
	Name    string
	Version string

	// Compatibility is a version constraint on the host, for display.
	Compatibility string

	ShopAPIExtensions  []APIExtension
	AdminAPIExtensions []APIExtension

	WorkerControllers []Controller
	Entities          []Entity

	// Providers are constructors registered in the DI container.
	Providers []any

	ScheduledTasks []ScheduledTask

	// Configure mutates the platform configuration before bootstrap.
	Configure func(cfg *plaza.Config) error
}

// APIExtension extends one API surface.
type APIExtension struct {
	// Schema is a GraphQL SDL document, typically made of extend
	// statements on Query, Mutation and core types.
	Schema string

	// Resolvers are handed to the host GraphQL executor as-is.
	Resolvers []any

	// Scalars maps custom scalar names to their implementations.
	Scalars map[string]any
}

// Controller is a job handler run by the worker process.
type Controller struct {
	Name    string
	Handler job.HandlerFunc
	Options job.Options
}

// ControllerFor converts a typed job definition to a controller.
func ControllerFor[T any](def *job.Definition[T]) Controller {
	e := def.Erase()
	return Controller{Name: e.Name, Handler: e.Handler, Options: e.Opts}
}

// Erased returns the controller in job registry form.
func (c Controller) Erased() job.Erased {
	return job.Erased{Name: c.Name, Handler: c.Handler, Opts: c.Options}
}

// Entity is a custom persisted type contributed by a plugin.
type Entity struct {
	Name string

	// Table defaults to the store's naming of Name when empty.
	Table string

	// Model is a pointer to a struct understood by ORM-based stores.
	Model any

	// DDL is executed by SQL stores that do not map Model.
	DDL string
}

// ScheduledTask enqueues JobName on Schedule.
type ScheduledTask struct {
	Name string

	// Schedule is a five-field cron expression or a descriptor such as
	// "@hourly" or "@every 10m".
	Schedule string

	JobName string
	Payload any
	Queue   string
}
