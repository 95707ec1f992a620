package plugin

import "context"

// BootstrapStarter is called once the API process has bootstrapped.
type BootstrapStarter interface {
	OnBootstrap(ctx context.Context) error
}

// BootstrapCloser is called when the API process shuts down.
type BootstrapCloser interface {
	OnBootstrapClose(ctx context.Context) error
}

// WorkerStarter is called once the worker process has started.
type WorkerStarter interface {
	OnWorkerBootstrap(ctx context.Context) error
}

// WorkerCloser is called when the worker process shuts down, after open
// tasks have drained.
type WorkerCloser interface {
	OnWorkerClose(ctx context.Context) error
}
