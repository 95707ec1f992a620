// Package engine wires the plaza subsystems together and drives the two
// process lifecycles.
//
// The engine package exists to break an import cycle: the root plaza
// package defines Config and Entity (imported by job, plugin, schema and
// the stores) and therefore cannot import those packages back. Engine sits
// above every subsystem package and below the application layer.
//
// # Building an Engine
//
//	p, err := plaza.New(
//	    plaza.WithStore(pgStore),
//	    plaza.WithCustomFields(customfield.Product, customfield.Config{
//	        Name: "warrantyMonths", Type: customfield.TypeInt,
//	    }),
//	)
//
//	eng, err := engine.Build(p,
//	    engine.WithPlugin(reviews.New()),
//	    engine.WithExtension(myExtension),
//	)
//
// # API process
//
// Bootstrap runs plugin configuration hooks, freezes the configuration,
// validates custom fields, builds the shop and admin schemas, migrates the
// store and plugin entities, then calls every OnBootstrap hook. Close calls
// OnBootstrapClose hooks in reverse registration order and closes the
// store.
//
// # Worker process
//
// BootstrapWorker performs the same configuration, validation and
// migration steps, starts the worker pool and (when enabled) the scheduled
// task runner, then calls every OnWorkerBootstrap hook. CloseWorker stops
// the scheduler, stops dequeuing, waits for open tasks up to the configured
// shutdown timeout, and calls OnWorkerClose hooks in reverse order.
//
// # Enqueuing Work
//
//	j, err := engine.Enqueue(ctx, eng, "send-order-confirmation", OrderRef{ID: "T_1"})
//
// Jobs are handled by plugin worker controllers, or by handlers registered
// with [Register].
package engine
