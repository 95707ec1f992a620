package extension

import (
	"log/slog"

	"github.com/xraph/plaza"
	"github.com/xraph/plaza/backoff"
	"github.com/xraph/plaza/customfield"
	"github.com/xraph/plaza/ext"
	mw "github.com/xraph/plaza/middleware"
	"github.com/xraph/plaza/plugin"
	"github.com/xraph/plaza/queue"
	"github.com/xraph/plaza/store"
)

// ExtOption configures the Plaza Forge extension.
type ExtOption func(*Extension)

// WithStore sets the persistence backend.
func WithStore(s store.Store) ExtOption {
	return func(e *Extension) {
		e.store = s
	}
}

// WithPlugin registers plugins with the engine.
func WithPlugin(plugins ...plugin.Plugin) ExtOption {
	return func(e *Extension) {
		e.plugins = append(e.plugins, plugins...)
	}
}

// WithPlatformOption passes a platform option through to plaza.New.
func WithPlatformOption(opt plaza.Option) ExtOption {
	return func(e *Extension) {
		e.platformOpts = append(e.platformOpts, opt)
	}
}

// WithCustomFields declares custom fields for a core entity.
func WithCustomFields(entity customfield.EntityName, cfgs ...customfield.Config) ExtOption {
	return WithPlatformOption(plaza.WithCustomFields(entity, cfgs...))
}

// WithConcurrency sets the maximum number of concurrent job processors.
func WithConcurrency(n int) ExtOption {
	return func(e *Extension) {
		e.config.Plaza.Concurrency = n
	}
}

// WithQueues sets the queues the worker polls.
func WithQueues(queues []string) ExtOption {
	return func(e *Extension) {
		e.config.Plaza.Queues = queues
	}
}

// WithExtension registers a job lifecycle extension.
func WithExtension(x ext.Extension) ExtOption {
	return func(e *Extension) {
		e.exts = append(e.exts, x)
	}
}

// WithMiddleware adds job middleware to the engine.
func WithMiddleware(m mw.Middleware) ExtOption {
	return func(e *Extension) {
		e.mws = append(e.mws, m)
	}
}

// WithQueueLimits bounds the jobs the worker starts per queue. Limits set
// here take precedence over the configured ones for the same queue.
func WithQueueLimits(limits ...queue.Limit) ExtOption {
	return func(e *Extension) {
		e.queueLimits = append(e.queueLimits, limits...)
	}
}

// WithBackoff sets the retry backoff strategy.
func WithBackoff(b backoff.Strategy) ExtOption {
	return func(e *Extension) {
		e.bo = b
	}
}

// WithBasePath sets the URL prefix for all plaza routes.
func WithBasePath(path string) ExtOption {
	return func(e *Extension) {
		e.config.BasePath = path
	}
}

// WithConfig sets the extension configuration directly.
func WithConfig(cfg Config) ExtOption {
	return func(e *Extension) {
		e.config = cfg
	}
}

// WithDisableRoutes disables the registration of HTTP routes.
func WithDisableRoutes() ExtOption {
	return func(e *Extension) {
		e.config.DisableRoutes = true
	}
}

// WithAudit records job lifecycle events as structured log lines.
func WithAudit() ExtOption {
	return func(e *Extension) { e.config.Audit = true }
}

// WithRunWorker starts the worker process with the extension.
func WithRunWorker() ExtOption {
	return func(e *Extension) {
		e.config.RunWorker = true
	}
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) ExtOption {
	return func(e *Extension) {
		e.config.RequireConfig = require
	}
}

// WithStoreDriver resolves the store from the DI container. See
// Config.StoreDriver for the supported drivers.
func WithStoreDriver(driver, name string) ExtOption {
	return func(e *Extension) {
		e.config.StoreDriver = driver
		e.config.StoreName = name
	}
}

// WithCustomFieldsFile loads custom field definitions from a YAML file.
func WithCustomFieldsFile(path string) ExtOption {
	return func(e *Extension) {
		e.config.CustomFieldsFile = path
	}
}

// WithLogger sets the structured logger for the platform.
func WithLogger(l *slog.Logger) ExtOption {
	return func(e *Extension) {
		e.logger = l
	}
}
