package bunstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/uptrace/bun"

	"github.com/xraph/plaza/job"
	"github.com/xraph/plaza/plugin"
	"github.com/xraph/plaza/store"
)

var (
	_ job.Store            = (*Store)(nil)
	_ store.Store          = (*Store)(nil)
	_ store.EntityMigrator = (*Store)(nil)
)

// Store is a Bun ORM implementation of store.Store.
type Store struct {
	db     *bun.DB
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a new Bun store. The caller owns the db lifecycle.
func New(db *bun.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying *bun.DB.
func (s *Store) DB() *bun.DB {
	return s.db
}

// Migrate creates the jobs table and its indexes if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*jobModel)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("plaza/bun: create jobs table: %w", err)
	}

	indexes := []struct {
		name    string
		columns []string
		where   string
	}{
		{"idx_plaza_jobs_dequeue", []string{"queue", "priority DESC", "run_at ASC"}, "state = 'PENDING'"},
		{"idx_plaza_jobs_state", []string{"state"}, ""},
		{"idx_plaza_jobs_settled", []string{"settled_at"}, "state IN ('COMPLETED', 'FAILED')"},
	}
	for _, idx := range indexes {
		q := s.db.NewCreateIndex().
			Model((*jobModel)(nil)).
			Index(idx.name).
			IfNotExists()
		for _, col := range idx.columns {
			q = q.ColumnExpr(col)
		}
		if idx.where != "" {
			q = q.Where(idx.where)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("plaza/bun: create index %s: %w", idx.name, err)
		}
	}

	return nil
}

// MigrateEntities creates a table for every plugin entity. Entities with
// a Model use bun's CREATE TABLE from the struct; the others run their
// DDL. Both forms are idempotent.
func (s *Store) MigrateEntities(ctx context.Context, entities []plugin.Entity) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, e := range entities {
			switch {
			case e.Model != nil:
				q := tx.NewCreateTable().Model(e.Model).IfNotExists()
				if e.Table != "" {
					q = q.ModelTableExpr(e.Table)
				}
				if _, err := q.Exec(ctx); err != nil {
					return fmt.Errorf("plaza/bun: migrate entity %q: %w", e.Name, err)
				}
			case strings.TrimSpace(e.DDL) != "":
				if _, err := tx.ExecContext(ctx, e.DDL); err != nil {
					return fmt.Errorf("plaza/bun: migrate entity %q: %w", e.Name, err)
				}
			default:
				continue
			}
			s.logger.Debug("entity migrated", slog.String("entity", e.Name))
		}
		return nil
	})
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op because the caller owns the *bun.DB lifecycle.
func (s *Store) Close() error {
	return nil
}
