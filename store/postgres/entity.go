package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/plaza/plugin"
)

// MigrateEntities executes the DDL of every plugin entity in a single
// transaction. Entities that only carry a Model are skipped; use the bun
// store to create tables from models. DDL must be idempotent.
func (s *Store) MigrateEntities(ctx context.Context, entities []plugin.Entity) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("plaza/postgres: begin entity migration: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	for _, e := range entities {
		if strings.TrimSpace(e.DDL) == "" {
			s.logger.Warn("entity has no DDL, skipped",
				slog.String("entity", e.Name),
			)
			continue
		}
		if _, err := tx.Exec(ctx, e.DDL); err != nil {
			return fmt.Errorf("plaza/postgres: migrate entity %q: %w", e.Name, err)
		}
		s.logger.Debug("entity migrated", slog.String("entity", e.Name))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("plaza/postgres: commit entity migration: %w", err)
	}
	return nil
}
