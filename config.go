package plaza

import (
	"time"

	"github.com/xraph/plaza/customfield"
)

// WorkerConfig controls the background worker process.
type WorkerConfig struct {
	// Concurrency is the maximum number of jobs processed concurrently.
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// Queues is the list of queues the worker polls.
	Queues []string `json:"queues" yaml:"queues"`

	// PollInterval is how often idle workers poll for new jobs.
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`

	// ShutdownTimeout bounds how long the worker waits for open tasks
	// to complete when it is closed.
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`

	// OpenTaskPollInterval is how often the shutdown sequence re-checks
	// the number of open tasks.
	OpenTaskPollInterval time.Duration `json:"open_task_poll_interval" yaml:"open_task_poll_interval"`

	// HeartbeatInterval is how often running jobs send heartbeats.
	HeartbeatInterval time.Duration `json:"heartbeat_interval" yaml:"heartbeat_interval"`

	// StaleJobThreshold is how long a running job may go without a
	// heartbeat before it is returned to the queue.
	StaleJobThreshold time.Duration `json:"stale_job_threshold" yaml:"stale_job_threshold"`

	// RunScheduledTasks enables the scheduled task runner in this worker.
	RunScheduledTasks bool `json:"run_scheduled_tasks" yaml:"run_scheduled_tasks"`
}

// Config is the platform configuration. Plugin configuration hooks receive
// a pointer to it before bootstrap and may modify any field.
type Config struct {
	// ShopAPIPath is the mount path of the storefront GraphQL API.
	ShopAPIPath string `json:"shop_api_path" yaml:"shop_api_path"`

	// AdminAPIPath is the mount path of the admin GraphQL API.
	AdminAPIPath string `json:"admin_api_path" yaml:"admin_api_path"`

	// Worker configures the background worker process.
	Worker WorkerConfig `json:"worker" yaml:"worker"`

	// CustomFields declares the custom fields of each core entity.
	CustomFields customfield.Fields `json:"custom_fields" yaml:"custom_fields"`

	// JobRetention is how long settled jobs are kept. Zero keeps them
	// forever.
	JobRetention time.Duration `json:"job_retention" yaml:"job_retention"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ShopAPIPath:  "/shop-api",
		AdminAPIPath: "/admin-api",
		Worker: WorkerConfig{
			Concurrency:          10,
			Queues:               []string{"default"},
			PollInterval:         1 * time.Second,
			ShutdownTimeout:      30 * time.Second,
			OpenTaskPollInterval: 500 * time.Millisecond,
			HeartbeatInterval:    10 * time.Second,
			StaleJobThreshold:    30 * time.Second,
			RunScheduledTasks:    true,
		},
		CustomFields: customfield.Fields{},
	}
}

func (c Config) clone() Config {
	c.CustomFields = c.CustomFields.Clone()
	c.Worker.Queues = append([]string(nil), c.Worker.Queues...)
	return c
}
