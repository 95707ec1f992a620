// Package plaza is the plugin and extension core of a headless e-commerce
// platform. It lets independent plugins contribute GraphQL schema
// extensions, background worker controllers, custom database entities and
// custom fields to a host application, and drives their lifecycle hooks in
// both the API-serving process and the worker process.
//
// plaza is a library, not a service. Import it, configure a store, and
// register plugins as ordinary Go values.
//
// # Quick Start
//
//	p, err := plaza.New(
//	    plaza.WithStore(pgStore),
//	    plaza.WithWorkerConcurrency(4),
//	)
//
//	eng, err := engine.Build(p,
//	    engine.WithPlugin(reviews.New()),
//	)
//	if err := eng.Bootstrap(ctx); err != nil { ... }
//
// # Architecture
//
// The root package holds the mutable platform configuration that plugins
// may adjust before bootstrap. Each subsystem (plugin, customfield, schema,
// job, worker, cron) lives in its own package; the engine package wires them
// together and the extension package mounts everything into a Forge app.
//
// All entity IDs use TypeID, type-prefixed, K-sortable, UUIDv7-based
// identifiers.
package plaza
