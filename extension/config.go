package extension

import (
	"time"

	"github.com/xraph/plaza"
	"github.com/xraph/plaza/queue"
)

// Config holds configuration for the Plaza Forge extension.
type Config struct {
	// BasePath is the URL prefix for all plaza API routes.
	BasePath string `default:"/api/plaza" json:"base_path" yaml:"base_path"`

	// DisableRoutes disables the registration of HTTP routes.
	DisableRoutes bool `default:"false" json:"disable_routes" yaml:"disable_routes"`

	// RunWorker starts the worker process alongside the API process.
	RunWorker bool `default:"false" json:"run_worker" yaml:"run_worker"`

	// Audit records job lifecycle events as structured log lines.
	Audit bool `default:"false" json:"audit" yaml:"audit"`

	// RequireConfig makes Register fail when no configuration is found
	// in the application's config files.
	RequireConfig bool `json:"-" yaml:"-"`

	// StoreDriver selects a store backend resolved from the DI container
	// when no store was passed programmatically: "postgres" resolves a
	// *pgxpool.Pool, "bun" a *bun.DB and "redis" a *redis.Client.
	StoreDriver string `json:"store_driver" yaml:"store_driver"`

	// StoreName is the container name of the store dependency. Empty
	// resolves the default (unnamed) instance.
	StoreName string `json:"store_name" yaml:"store_name"`

	// CustomFieldsFile is a YAML file declaring custom fields per entity.
	CustomFieldsFile string `json:"custom_fields_file" yaml:"custom_fields_file"`

	// Plaza holds the platform settings that may be set from config files.
	Plaza PlatformConfig `json:"plaza" yaml:"plaza"`
}

// PlatformConfig is the file-configurable subset of plaza.Config. Zero
// values keep the platform defaults.
type PlatformConfig struct {
	ShopAPIPath           string        `json:"shop_api_path" yaml:"shop_api_path"`
	AdminAPIPath          string        `json:"admin_api_path" yaml:"admin_api_path"`
	Concurrency           int           `json:"concurrency" yaml:"concurrency"`
	Queues                []string      `json:"queues" yaml:"queues"`
	PollInterval          time.Duration `json:"poll_interval" yaml:"poll_interval"`
	ShutdownTimeout       time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	JobRetention          time.Duration `json:"job_retention" yaml:"job_retention"`
	DisableScheduledTasks bool          `json:"disable_scheduled_tasks" yaml:"disable_scheduled_tasks"`
	QueueLimits           []queue.Limit `json:"queue_limits" yaml:"queue_limits"`
}

// DefaultConfig returns the default extension configuration.
func DefaultConfig() Config {
	return Config{
		BasePath: "/api/plaza",
	}
}

// apply copies the non-zero settings onto cfg.
func (pc PlatformConfig) apply(cfg *plaza.Config) {
	if pc.ShopAPIPath != "" {
		cfg.ShopAPIPath = pc.ShopAPIPath
	}
	if pc.AdminAPIPath != "" {
		cfg.AdminAPIPath = pc.AdminAPIPath
	}
	if pc.Concurrency > 0 {
		cfg.Worker.Concurrency = pc.Concurrency
	}
	if len(pc.Queues) > 0 {
		cfg.Worker.Queues = append([]string(nil), pc.Queues...)
	}
	if pc.PollInterval > 0 {
		cfg.Worker.PollInterval = pc.PollInterval
	}
	if pc.ShutdownTimeout > 0 {
		cfg.Worker.ShutdownTimeout = pc.ShutdownTimeout
	}
	if pc.JobRetention > 0 {
		cfg.JobRetention = pc.JobRetention
	}
	if pc.DisableScheduledTasks {
		cfg.Worker.RunScheduledTasks = false
	}
}

// merge fills the zero fields of pc from other.
func (pc PlatformConfig) merge(other PlatformConfig) PlatformConfig {
	if pc.ShopAPIPath == "" {
		pc.ShopAPIPath = other.ShopAPIPath
	}
	if pc.AdminAPIPath == "" {
		pc.AdminAPIPath = other.AdminAPIPath
	}
	if pc.Concurrency == 0 {
		pc.Concurrency = other.Concurrency
	}
	if len(pc.Queues) == 0 {
		pc.Queues = other.Queues
	}
	if pc.PollInterval == 0 {
		pc.PollInterval = other.PollInterval
	}
	if pc.ShutdownTimeout == 0 {
		pc.ShutdownTimeout = other.ShutdownTimeout
	}
	if pc.JobRetention == 0 {
		pc.JobRetention = other.JobRetention
	}
	pc.DisableScheduledTasks = pc.DisableScheduledTasks || other.DisableScheduledTasks
	if len(pc.QueueLimits) == 0 {
		pc.QueueLimits = other.QueueLimits
	}
	return pc
}
