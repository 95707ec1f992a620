package store

import (
	"context"

	"github.com/xraph/plaza/job"
	"github.com/xraph/plaza/plugin"
)

// Store is the aggregate persistence interface implemented by every
// backend.
type Store interface {
	job.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}

// EntityMigrator is implemented by backends that can create storage for
// plugin-contributed entities. Migrations must be idempotent.
type EntityMigrator interface {
	MigrateEntities(ctx context.Context, entities []plugin.Entity) error
}
