// Package migrations manages the journal database schema. Applied
// migrations are tracked in a schema_migrations table, making Run
// idempotent.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

const createSchemaMigrations = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		id INTEGER PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL
	)`

type migration struct {
	id   int
	stmt string
}

var all = []migration{
	{
		id: 1,
		stmt: `
			CREATE TABLE IF NOT EXISTS sessions (
				id TEXT PRIMARY KEY,
				status TEXT NOT NULL,
				exit_code INTEGER NOT NULL DEFAULT 0,
				started_at TIMESTAMP NOT NULL,
				finished_at TIMESTAMP
			)`,
	},
	{
		id: 2,
		stmt: `
			CREATE TABLE IF NOT EXISTS step_results (
				session_id TEXT NOT NULL,
				position INTEGER NOT NULL,
				name TEXT NOT NULL,
				status TEXT NOT NULL,
				exit_code INTEGER NOT NULL,
				duration_ms BIGINT NOT NULL,
				started_at TIMESTAMP NOT NULL,
				PRIMARY KEY (session_id, position)
			)`,
	},
}

// Run applies all pending migrations.
func Run(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createSchemaMigrations); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	for _, m := range all {
		var count int
		err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE id = ?`, m.id).Scan(&count)
		if err != nil {
			return fmt.Errorf("failed to check migration %d: %w", m.id, err)
		}
		if count > 0 {
			continue
		}
		if _, err := db.ExecContext(ctx, m.stmt); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", m.id, err)
		}
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_migrations (id, applied_at) VALUES (?, now())`, m.id); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.id, err)
		}
	}
	return nil
}
