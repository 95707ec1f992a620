// Package api exposes plaza over HTTP as forge routes with OpenAPI
// metadata, and provides the job status resolver for a host GraphQL
// executor.
package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/plaza/engine"
	"github.com/xraph/plaza/job"
)

// API wires all forge HTTP handlers together for plaza.
type API struct {
	eng    *engine.Engine
	router forge.Router
}

// New creates an API from a plaza Engine.
func New(eng *engine.Engine, router forge.Router) *API {
	return &API{eng: eng, router: router}
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	if a.router == nil {
		a.router = forge.NewRouter()
	}
	a.RegisterRoutes(a.router)
	return a.router.Handler()
}

// RegisterRoutes registers all plaza routes into router.
func (a *API) RegisterRoutes(router forge.Router) {
	a.registerJobRoutes(router)
	a.registerPluginRoutes(router)
	a.registerSchemaRoutes(router)
	a.registerWorkerRoutes(router)
}

func (a *API) registerJobRoutes(router forge.Router) {
	g := router.Group("/v1", forge.WithGroupTags("jobs"))

	_ = g.GET("/jobs", a.listJobs,
		forge.WithSummary("List jobs"),
		forge.WithDescription("Returns job status filtered by state, ids and name, oldest first."),
		forge.WithOperationID("listJobs"),
		forge.WithRequestSchema(ListJobsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Job list", []*job.Info{}),
		forge.WithErrorResponses(),
	)

	_ = g.GET("/jobs/counts", a.jobCounts,
		forge.WithSummary("Job counts"),
		forge.WithDescription("Returns job counts grouped by state."),
		forge.WithOperationID("jobCounts"),
		forge.WithResponseSchema(http.StatusOK, "Job counts", JobCountsResponse{}),
		forge.WithErrorResponses(),
	)

	_ = g.GET("/jobs/:jobId", a.getJob,
		forge.WithSummary("Get job"),
		forge.WithDescription("Returns the status of a specific job."),
		forge.WithOperationID("getJob"),
		forge.WithResponseSchema(http.StatusOK, "Job status", &job.Info{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) registerPluginRoutes(router forge.Router) {
	g := router.Group("/v1", forge.WithGroupTags("plugins"))

	_ = g.GET("/plugins", a.listPlugins,
		forge.WithSummary("List plugins"),
		forge.WithDescription("Returns the registered plugins in registration order."),
		forge.WithOperationID("listPlugins"),
		forge.WithResponseSchema(http.StatusOK, "Plugins", []PluginResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) registerSchemaRoutes(router forge.Router) {
	g := router.Group("/v1", forge.WithGroupTags("schema"))

	_ = g.GET("/schema/:api", a.getSchema,
		forge.WithSummary("Get API schema"),
		forge.WithDescription("Returns the GraphQL SDL built for the shop or admin API."),
		forge.WithOperationID("getSchema"),
		forge.WithResponseSchema(http.StatusOK, "Schema", SchemaResponse{}),
		forge.WithErrorResponses(),
	)

	_ = g.GET("/custom-fields/:entity", a.getCustomFields,
		forge.WithSummary("Get custom fields"),
		forge.WithDescription("Returns the custom field definitions of a core entity."),
		forge.WithOperationID("getCustomFields"),
		forge.WithResponseSchema(http.StatusOK, "Custom fields", CustomFieldsResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) registerWorkerRoutes(router forge.Router) {
	g := router.Group("/v1", forge.WithGroupTags("worker"))

	_ = g.GET("/worker", a.workerStatus,
		forge.WithSummary("Worker status"),
		forge.WithDescription("Returns the worker state of this process and its open tasks."),
		forge.WithOperationID("workerStatus"),
		forge.WithResponseSchema(http.StatusOK, "Worker status", WorkerResponse{}),
		forge.WithErrorResponses(),
	)
}
