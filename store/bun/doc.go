// Package bunstore implements store.Store using the Bun ORM with the
// PostgreSQL dialect.
//
// The caller owns the *bun.DB lifecycle; bunstore never closes it. Tables
// are created from bun models, so plugin entities that carry a Model get
// their table without hand-written DDL:
//
//	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
//	db := bun.NewDB(sqldb, pgdialect.New())
//	s := bunstore.New(db)
//	if err := s.Migrate(ctx); err != nil { ... }
package bunstore
