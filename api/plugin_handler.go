package api

import (
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/plaza/customfield"
	"github.com/xraph/plaza/plugin"
	"github.com/xraph/plaza/schema"
)

func (a *API) listPlugins(ctx forge.Context) error {
	plugins := a.eng.Plugins().Plugins()
	out := make([]PluginResponse, 0, len(plugins))
	for _, p := range plugins {
		out = append(out, pluginResponse(p.Meta()))
	}
	return ctx.JSON(http.StatusOK, out)
}

func pluginResponse(m *plugin.Metadata) PluginResponse {
	resp := PluginResponse{
		Name:               m.Name,
		Version:            m.Version,
		Compatibility:      m.Compatibility,
		ShopAPIExtensions:  len(m.ShopAPIExtensions),
		AdminAPIExtensions: len(m.AdminAPIExtensions),
		WorkerControllers:  make([]string, 0, len(m.WorkerControllers)),
		Entities:           make([]string, 0, len(m.Entities)),
		ScheduledTasks:     make([]string, 0, len(m.ScheduledTasks)),
	}
	for _, c := range m.WorkerControllers {
		resp.WorkerControllers = append(resp.WorkerControllers, c.Name)
	}
	for _, e := range m.Entities {
		resp.Entities = append(resp.Entities, e.Name)
	}
	for _, t := range m.ScheduledTasks {
		resp.ScheduledTasks = append(resp.ScheduledTasks, t.Name)
	}
	return resp
}

func (a *API) getSchema(ctx forge.Context, _ *GetSchemaRequest) (*SchemaResponse, error) {
	api, err := schema.ParseAPI(ctx.Param("api"))
	if err != nil {
		return nil, forge.NotFound(err.Error())
	}

	s, err := a.eng.Schema(api)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &SchemaResponse{API: string(s.API), SDL: s.SDL}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) getCustomFields(ctx forge.Context, _ *GetCustomFieldsRequest) (*CustomFieldsResponse, error) {
	entity := customfield.EntityName(ctx.Param("entity"))
	if !customfield.IsCustomizable(entity) {
		return nil, forge.NotFound(fmt.Sprintf("entity %q does not accept custom fields", entity))
	}

	cfg := a.eng.Config()
	resp := &CustomFieldsResponse{
		Entity: entity,
		Fields: customfield.Visible(cfg.CustomFields.Get(entity), false),
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) workerStatus(ctx forge.Context) error {
	cfg := a.eng.Config()
	resp := WorkerResponse{
		Running:     a.eng.WorkerRunning(),
		OpenTasks:   a.eng.Monitor().OpenTasks(),
		Queues:      cfg.Worker.Queues,
		Concurrency: cfg.Worker.Concurrency,
		Controllers: a.eng.Registry().Names(),
	}
	if s := a.eng.Scheduler(); s != nil {
		resp.ScheduledTasks = s.Entries()
	}
	if l := a.eng.QueueLimiter(); l != nil {
		resp.QueueLimits = l.Limits()
	}
	return ctx.JSON(http.StatusOK, resp)
}
