// Package postgres implements the plaza store using pgx/v5 with raw SQL.
// Jobs are claimed with SELECT ... FOR UPDATE SKIP LOCKED, schema changes
// come from embedded SQL migrations, and plugin entities are created by
// executing their DDL.
package postgres
