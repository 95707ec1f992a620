// Package extension provides the Forge extension adapter for Plaza.
//
// It implements the forge.Extension interface to mount the plugin
// platform into a Forge application: the engine and every plugin
// provider are registered in the DI container, the management routes
// are mounted on the app router, and the API and worker processes follow
// the application lifecycle.
//
// Configuration can be provided programmatically via ExtOption functions
// or via YAML configuration files under "extensions.plaza" or "plaza" keys.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/plaza"
	"github.com/xraph/plaza/api"
	audithook "github.com/xraph/plaza/audit_hook"
	"github.com/xraph/plaza/backoff"
	"github.com/xraph/plaza/customfield"
	"github.com/xraph/plaza/engine"
	"github.com/xraph/plaza/ext"
	mw "github.com/xraph/plaza/middleware"
	"github.com/xraph/plaza/plugin"
	"github.com/xraph/plaza/queue"
	"github.com/xraph/plaza/store"
	bunstore "github.com/xraph/plaza/store/bun"
	pgstore "github.com/xraph/plaza/store/postgres"
	redisstore "github.com/xraph/plaza/store/redis"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "plaza"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Plugin platform with schema extensions, custom fields and background workers"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

var _ forge.Extension = (*Extension)(nil)

// Extension adapts Plaza as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config       Config
	eng          *engine.Engine
	apiHandler   *api.API
	logger       *slog.Logger
	store        store.Store
	platformOpts []plaza.Option
	plugins      []plugin.Plugin
	exts         []ext.Extension
	mws          []mw.Middleware
	bo           backoff.Strategy
	queueLimits  []queue.Limit
}

// New creates a Plaza Forge extension with the given options.
func New(opts ...ExtOption) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying engine. It is nil until Register is called.
func (e *Extension) Engine() *engine.Engine { return e.eng }

// API returns the API handler.
func (e *Extension) API() *api.API { return e.apiHandler }

// Config returns the effective configuration.
func (e *Extension) Config() Config { return e.config }

// Register implements [forge.Extension]. It builds the platform and the
// engine, registers them in the DI container and mounts the routes.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if err := e.init(fapp); err != nil {
		return err
	}

	if err := vessel.Provide(fapp.Container(), func() (*engine.Engine, error) {
		return e.eng, nil
	}); err != nil {
		return fmt.Errorf("plaza: register engine in container: %w", err)
	}

	for _, ctor := range e.eng.Plugins().Providers() {
		if err := vessel.Provide(fapp.Container(), ctor); err != nil {
			return fmt.Errorf("plaza: register plugin provider: %w", err)
		}
	}

	return nil
}

func (e *Extension) init(fapp forge.App) error {
	if e.store == nil && e.config.StoreDriver != "" {
		s, err := e.resolveStore(fapp)
		if err != nil {
			return fmt.Errorf("plaza: %w", err)
		}
		e.store = s
	}
	if e.store == nil {
		return plaza.ErrNoStore
	}

	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}

	fields, err := e.loadCustomFields()
	if err != nil {
		return err
	}

	opts := make([]plaza.Option, 0, len(e.platformOpts)+2)
	opts = append(opts, plaza.WithStore(e.store), plaza.WithLogger(logger))
	opts = append(opts, e.platformOpts...)

	p, err := plaza.New(opts...)
	if err != nil {
		return fmt.Errorf("plaza: create platform: %w", err)
	}
	if err := p.Configure(func(cfg *plaza.Config) error {
		e.config.Plaza.apply(cfg)
		for _, entity := range fields.Entities() {
			cfg.CustomFields.Add(entity, fields.Get(entity)...)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("plaza: apply config: %w", err)
	}

	engOpts := make([]engine.Option, 0, len(e.exts)+len(e.mws)+3)
	engOpts = append(engOpts, engine.WithMetricFactory(fapp.Metrics()))
	engOpts = append(engOpts, engine.WithPlugin(e.plugins...))
	for _, x := range e.exts {
		engOpts = append(engOpts, engine.WithExtension(x))
	}
	if e.config.Audit {
		engOpts = append(engOpts, engine.WithExtension(
			audithook.New(audithook.SlogRecorder(logger), audithook.WithLogger(logger)),
		))
	}
	for _, m := range e.mws {
		engOpts = append(engOpts, engine.WithMiddleware(m))
	}
	if e.bo != nil {
		engOpts = append(engOpts, engine.WithBackoff(e.bo))
	}
	if limits := append(slices.Clone(e.config.Plaza.QueueLimits), e.queueLimits...); len(limits) > 0 {
		engOpts = append(engOpts, engine.WithQueueLimits(limits...))
	}

	e.eng, err = engine.Build(p, engOpts...)
	if err != nil {
		return fmt.Errorf("plaza: build engine: %w", err)
	}

	e.apiHandler = api.New(e.eng, fapp.Router())
	if !e.config.DisableRoutes {
		e.apiHandler.RegisterRoutes(fapp.Router().Group(e.config.BasePath))
	}

	return nil
}

// Start bootstraps the API process and, when RunWorker is set, the
// worker process.
func (e *Extension) Start(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("plaza: extension not initialized")
	}

	if err := e.eng.Bootstrap(ctx); err != nil {
		return err
	}

	if e.config.RunWorker {
		if err := e.eng.BootstrapWorker(ctx); err != nil {
			if closeErr := e.eng.Close(ctx); closeErr != nil {
				e.Logger().Warn("plaza: close after failed worker bootstrap",
					forge.F("error", closeErr.Error()),
				)
			}
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop closes the worker process, if running, then the API process.
func (e *Extension) Stop(ctx context.Context) error {
	if e.eng == nil || !e.eng.Bootstrapped() {
		e.MarkStopped()
		return nil
	}
	err := e.eng.Close(ctx)
	e.MarkStopped()
	return err
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("plaza: extension not initialized")
	}

	s := e.eng.Platform().Store()
	if s == nil {
		return plaza.ErrNoStore
	}

	return s.Ping(ctx)
}

// Handler returns the HTTP handler for all API routes.
// Convenience for standalone use outside Forge.
func (e *Extension) Handler() http.Handler {
	if e.apiHandler == nil {
		return http.NotFoundHandler()
	}
	return e.apiHandler.Handler()
}

// RegisterRoutes registers all plaza API routes into a Forge router.
func (e *Extension) RegisterRoutes(router forge.Router) {
	if e.apiHandler != nil {
		e.apiHandler.RegisterRoutes(router)
	}
}

func (e *Extension) loadCustomFields() (customfield.Fields, error) {
	if e.config.CustomFieldsFile == "" {
		return customfield.Fields{}, nil
	}
	f, err := os.Open(e.config.CustomFieldsFile)
	if err != nil {
		return nil, fmt.Errorf("plaza: open custom fields: %w", err)
	}
	defer f.Close()

	fields, err := customfield.LoadYAML(f)
	if err != nil {
		return nil, fmt.Errorf("plaza: load custom fields %q: %w", e.config.CustomFieldsFile, err)
	}
	return fields, nil
}

// --- Config Loading ---

func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("plaza: configuration is required but not found in config files; " +
				"ensure 'extensions.plaza' or 'plaza' key exists in your config")
		}
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("plaza: configuration loaded",
		forge.F("base_path", e.config.BasePath),
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("run_worker", e.config.RunWorker),
		forge.F("store_driver", e.config.StoreDriver),
	)

	return nil
}

func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.plaza", "plaza"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("plaza: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("plaza: loaded config from file", forge.F("key", key))
		return cfg, true
	}

	return Config{}, false
}

func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.BasePath == "" {
		cfg.BasePath = defaults.BasePath
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options. YAML
// wins for strings; programmatic bool flags override when true.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.RunWorker {
		yamlConfig.RunWorker = true
	}
	if programmaticConfig.Audit {
		yamlConfig.Audit = true
	}
	yamlConfig.RequireConfig = programmaticConfig.RequireConfig

	if yamlConfig.BasePath == "" {
		yamlConfig.BasePath = programmaticConfig.BasePath
	}
	if yamlConfig.StoreDriver == "" {
		yamlConfig.StoreDriver = programmaticConfig.StoreDriver
		yamlConfig.StoreName = programmaticConfig.StoreName
	}
	if yamlConfig.CustomFieldsFile == "" {
		yamlConfig.CustomFieldsFile = programmaticConfig.CustomFieldsFile
	}
	yamlConfig.Plaza = yamlConfig.Plaza.merge(programmaticConfig.Plaza)

	return e.mergeWithDefaults(yamlConfig)
}

// resolveStore builds the configured store backend from a connection
// registered in the DI container.
func (e *Extension) resolveStore(fapp forge.App) (store.Store, error) {
	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}

	switch e.config.StoreDriver {
	case "postgres":
		pool, err := inject[*pgxpool.Pool](fapp, e.config.StoreName)
		if err != nil {
			return nil, err
		}
		return pgstore.NewFromPool(pool, pgstore.WithLogger(logger)), nil
	case "bun":
		db, err := inject[*bun.DB](fapp, e.config.StoreName)
		if err != nil {
			return nil, err
		}
		return bunstore.New(db, bunstore.WithLogger(logger)), nil
	case "redis":
		client, err := inject[*goredis.Client](fapp, e.config.StoreName)
		if err != nil {
			return nil, err
		}
		return redisstore.New(client, redisstore.WithLogger(logger)), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", e.config.StoreDriver)
	}
}

func inject[T any](fapp forge.App, name string) (T, error) {
	if name != "" {
		v, err := vessel.InjectNamed[T](fapp.Container(), name)
		if err != nil {
			var zero T
			return zero, fmt.Errorf("%T %q not found in container: %w", zero, name, err)
		}
		return v, nil
	}
	v, err := vessel.Inject[T](fapp.Container())
	if err != nil {
		var zero T
		return zero, fmt.Errorf("default %T not found in container: %w", zero, err)
	}
	return v, nil
}
