package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	cronlib "github.com/robfig/cron/v3"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/xraph/plaza"
	"github.com/xraph/plaza/schema"
)

var scheduleParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

type bootstrapStarterEntry struct {
	name string
	hook BootstrapStarter
}

type bootstrapCloserEntry struct {
	name string
	hook BootstrapCloser
}

type workerStarterEntry struct {
	name string
	hook WorkerStarter
}

type workerCloserEntry struct {
	name string
	hook WorkerCloser
}

// Registry holds registered plugins in registration order and runs their
// lifecycle hooks. Hook implementations are type-cached at registration.
type Registry struct {
	plugins []Plugin
	byName  map[string]Plugin
	logger  *slog.Logger

	controllers map[string]string
	entities    map[string]string
	tasks       map[string]string

	bootstrapStarters []bootstrapStarterEntry
	bootstrapClosers  []bootstrapCloserEntry
	workerStarters    []workerStarterEntry
	workerClosers     []workerCloserEntry
}

// NewRegistry creates an empty plugin registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		byName:      make(map[string]Plugin),
		logger:      logger,
		controllers: make(map[string]string),
		entities:    make(map[string]string),
		tasks:       make(map[string]string),
	}
}

// Register validates p and adds it to the registry.
func (r *Registry) Register(p Plugin) error {
	meta := p.Meta()
	if meta == nil || strings.TrimSpace(meta.Name) == "" {
		return errors.New("plugin: name is required")
	}
	name := meta.Name
	if _, ok := r.byName[name]; ok {
		return fmt.Errorf("%w: %q", plaza.ErrDuplicatePlugin, name)
	}
	if err := r.check(meta); err != nil {
		return fmt.Errorf("plugin %q: %w", name, err)
	}

	r.plugins = append(r.plugins, p)
	r.byName[name] = p
	for _, c := range meta.WorkerControllers {
		r.controllers[c.Name] = name
	}
	for _, e := range meta.Entities {
		r.entities[e.Name] = name
	}
	for _, t := range meta.ScheduledTasks {
		r.tasks[t.Name] = name
	}

	if h, ok := p.(BootstrapStarter); ok {
		r.bootstrapStarters = append(r.bootstrapStarters, bootstrapStarterEntry{name, h})
	}
	if h, ok := p.(BootstrapCloser); ok {
		r.bootstrapClosers = append(r.bootstrapClosers, bootstrapCloserEntry{name, h})
	}
	if h, ok := p.(WorkerStarter); ok {
		r.workerStarters = append(r.workerStarters, workerStarterEntry{name, h})
	}
	if h, ok := p.(WorkerCloser); ok {
		r.workerClosers = append(r.workerClosers, workerCloserEntry{name, h})
	}
	return nil
}

func (r *Registry) check(meta *Metadata) error {
	var errs []error
	checkSDL := func(api schema.API, exts []APIExtension) {
		for i, ext := range exts {
			if strings.TrimSpace(ext.Schema) == "" {
				continue
			}
			src := &ast.Source{Name: fmt.Sprintf("%s/%s[%d]", meta.Name, api, i), Input: ext.Schema}
			if _, err := parser.ParseSchema(src); err != nil {
				errs = append(errs, fmt.Errorf("%w: %v", plaza.ErrInvalidSchema, err))
			}
		}
	}
	checkSDL(schema.Shop, meta.ShopAPIExtensions)
	checkSDL(schema.Admin, meta.AdminAPIExtensions)

	seen := make(map[string]bool)
	for _, c := range meta.WorkerControllers {
		switch {
		case c.Name == "":
			errs = append(errs, errors.New("worker controller name is required"))
		case c.Handler == nil:
			errs = append(errs, fmt.Errorf("worker controller %q has no handler", c.Name))
		case seen[c.Name]:
			errs = append(errs, fmt.Errorf("duplicate worker controller %q", c.Name))
		default:
			if owner, ok := r.controllers[c.Name]; ok {
				errs = append(errs, fmt.Errorf("worker controller %q already registered by plugin %q", c.Name, owner))
			}
		}
		seen[c.Name] = true
	}

	seen = make(map[string]bool)
	for _, e := range meta.Entities {
		switch {
		case e.Name == "":
			errs = append(errs, errors.New("entity name is required"))
		case e.Model == nil && e.DDL == "":
			errs = append(errs, fmt.Errorf("entity %q needs a model or DDL", e.Name))
		case seen[e.Name]:
			errs = append(errs, fmt.Errorf("duplicate entity %q", e.Name))
		default:
			if owner, ok := r.entities[e.Name]; ok {
				errs = append(errs, fmt.Errorf("entity %q already registered by plugin %q", e.Name, owner))
			}
		}
		seen[e.Name] = true
	}

	seen = make(map[string]bool)
	for _, t := range meta.ScheduledTasks {
		if t.Name == "" || t.JobName == "" {
			errs = append(errs, errors.New("scheduled task needs a name and a job name"))
			continue
		}
		if _, err := scheduleParser.Parse(t.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("scheduled task %q: invalid schedule %q: %w", t.Name, t.Schedule, err))
		}
		if owner, ok := r.tasks[t.Name]; ok {
			errs = append(errs, fmt.Errorf("%w: %q already registered by plugin %q", plaza.ErrDuplicateTask, t.Name, owner))
		} else if seen[t.Name] {
			errs = append(errs, fmt.Errorf("%w: %q", plaza.ErrDuplicateTask, t.Name))
		}
		seen[t.Name] = true
	}
	return errors.Join(errs...)
}

// Plugins returns the registered plugins in registration order.
func (r *Registry) Plugins() []Plugin {
	out := make([]Plugin, len(r.plugins))
	copy(out, r.plugins)
	return out
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int { return len(r.plugins) }

// Get returns the plugin with the given name.
func (r *Registry) Get(name string) (Plugin, error) {
	p, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", plaza.ErrPluginNotFound, name)
	}
	return p, nil
}

// Configure runs each plugin's configuration hook against cfg in
// registration order. It stops at the first error.
func (r *Registry) Configure(ctx context.Context, cfg *plaza.Config) error {
	for _, p := range r.plugins {
		meta := p.Meta()
		if meta.Configure == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := meta.Configure(cfg); err != nil {
			return fmt.Errorf("plugin %q: configure: %w", meta.Name, err)
		}
		r.logger.Debug("plugin configured", slog.String("plugin", meta.Name))
	}
	return nil
}

// APIExtensions returns the schema extensions for api, in registration
// order.
func (r *Registry) APIExtensions(api schema.API) []schema.Extension {
	var out []schema.Extension
	for _, p := range r.plugins {
		meta := p.Meta()
		exts := meta.ShopAPIExtensions
		if api == schema.Admin {
			exts = meta.AdminAPIExtensions
		}
		for i, ext := range exts {
			out = append(out, schema.Extension{
				Source: fmt.Sprintf("%s/%s[%d]", meta.Name, api, i),
				SDL:    ext.Schema,
			})
		}
	}
	return out
}

// Resolvers returns every resolver contributed to api.
func (r *Registry) Resolvers(api schema.API) []any {
	var out []any
	for _, p := range r.plugins {
		meta := p.Meta()
		exts := meta.ShopAPIExtensions
		if api == schema.Admin {
			exts = meta.AdminAPIExtensions
		}
		for _, ext := range exts {
			out = append(out, ext.Resolvers...)
		}
	}
	return out
}

// Controllers returns every worker controller.
func (r *Registry) Controllers() []Controller {
	var out []Controller
	for _, p := range r.plugins {
		out = append(out, p.Meta().WorkerControllers...)
	}
	return out
}

// Entities returns every custom entity.
func (r *Registry) Entities() []Entity {
	var out []Entity
	for _, p := range r.plugins {
		out = append(out, p.Meta().Entities...)
	}
	return out
}

// Providers returns every DI constructor.
func (r *Registry) Providers() []any {
	var out []any
	for _, p := range r.plugins {
		out = append(out, p.Meta().Providers...)
	}
	return out
}

// ScheduledTasks returns every scheduled task.
func (r *Registry) ScheduledTasks() []ScheduledTask {
	var out []ScheduledTask
	for _, p := range r.plugins {
		out = append(out, p.Meta().ScheduledTasks...)
	}
	return out
}

// EmitBootstrap runs OnBootstrap hooks in registration order and returns
// the first error.
func (r *Registry) EmitBootstrap(ctx context.Context) error {
	for _, e := range r.bootstrapStarters {
		if err := e.hook.OnBootstrap(ctx); err != nil {
			return fmt.Errorf("plugin %q: on bootstrap: %w", e.name, err)
		}
	}
	return nil
}

// EmitWorkerBootstrap runs OnWorkerBootstrap hooks in registration order
// and returns the first error.
func (r *Registry) EmitWorkerBootstrap(ctx context.Context) error {
	for _, e := range r.workerStarters {
		if err := e.hook.OnWorkerBootstrap(ctx); err != nil {
			return fmt.Errorf("plugin %q: on worker bootstrap: %w", e.name, err)
		}
	}
	return nil
}

// EmitBootstrapClose runs every OnBootstrapClose hook in reverse
// registration order and returns their joined errors.
func (r *Registry) EmitBootstrapClose(ctx context.Context) error {
	var errs []error
	for i := len(r.bootstrapClosers) - 1; i >= 0; i-- {
		e := r.bootstrapClosers[i]
		if err := e.hook.OnBootstrapClose(ctx); err != nil {
			r.logHookError("OnBootstrapClose", e.name, err)
			errs = append(errs, fmt.Errorf("plugin %q: on bootstrap close: %w", e.name, err))
		}
	}
	return errors.Join(errs...)
}

// EmitWorkerClose runs every OnWorkerClose hook in reverse registration
// order and returns their joined errors.
func (r *Registry) EmitWorkerClose(ctx context.Context) error {
	var errs []error
	for i := len(r.workerClosers) - 1; i >= 0; i-- {
		e := r.workerClosers[i]
		if err := e.hook.OnWorkerClose(ctx); err != nil {
			r.logHookError("OnWorkerClose", e.name, err)
			errs = append(errs, fmt.Errorf("plugin %q: on worker close: %w", e.name, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) logHookError(hook, plugin string, err error) {
	r.logger.Warn("plugin hook error",
		slog.String("hook", hook),
		slog.String("plugin", plugin),
		slog.String("error", err.Error()),
	)
}
