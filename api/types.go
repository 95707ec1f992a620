package api

import (
	"github.com/xraph/plaza/cron"
	"github.com/xraph/plaza/customfield"
	"github.com/xraph/plaza/queue"
)

// ListJobsRequest mirrors the JobListInput GraphQL input.
type ListJobsRequest struct {
	State string   `query:"state" json:"state,omitempty"`
	IDs   []string `query:"ids" json:"ids,omitempty"`
	Name  string   `query:"name" json:"name,omitempty"`
	Skip  int      `query:"skip" json:"skip,omitempty"`
	Take  int      `query:"take" json:"take,omitempty"`
}

// GetJobRequest selects a job by id.
type GetJobRequest struct {
	JobID string `path:"jobId" json:"-"`
}

// JobCountsResponse holds job counts per state.
type JobCountsResponse struct {
	Pending   int64 `json:"pending"`
	Running   int64 `json:"running"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// PluginResponse describes a registered plugin.
type PluginResponse struct {
	Name               string   `json:"name"`
	Version            string   `json:"version,omitempty"`
	Compatibility      string   `json:"compatibility,omitempty"`
	ShopAPIExtensions  int      `json:"shop_api_extensions"`
	AdminAPIExtensions int      `json:"admin_api_extensions"`
	WorkerControllers  []string `json:"worker_controllers"`
	Entities           []string `json:"entities"`
	ScheduledTasks     []string `json:"scheduled_tasks"`
}

// GetSchemaRequest selects an API surface.
type GetSchemaRequest struct {
	API string `path:"api" json:"-"`
}

// SchemaResponse carries the printed SDL of one surface.
type SchemaResponse struct {
	API string `json:"api"`
	SDL string `json:"sdl"`
}

// GetCustomFieldsRequest selects a core entity.
type GetCustomFieldsRequest struct {
	Entity string `path:"entity" json:"-"`
}

// CustomFieldsResponse lists the non-internal custom fields of an entity.
type CustomFieldsResponse struct {
	Entity customfield.EntityName `json:"entity"`
	Fields []customfield.Config   `json:"fields"`
}

// WorkerResponse reports the worker state of this process.
type WorkerResponse struct {
	Running        bool          `json:"running"`
	OpenTasks      int           `json:"open_tasks"`
	Queues         []string      `json:"queues"`
	Concurrency    int           `json:"concurrency"`
	Controllers    []string      `json:"controllers"`
	ScheduledTasks []*cron.Entry `json:"scheduled_tasks,omitempty"`
	QueueLimits    []queue.Limit `json:"queue_limits,omitempty"`
}
