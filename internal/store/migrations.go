package store

import (
	"context"
	"database/sql"
	"fmt"
)

type migration struct {
	version int
	upSQL   string
}

var migrations = []migration{
	{
		version: 1,
		upSQL: `
CREATE TABLE IF NOT EXISTS clients (
	window INTEGER PRIMARY KEY,
	tags INTEGER NOT NULL CHECK(tags > 0),
	monitor INTEGER NOT NULL DEFAULT 0,
	floating INTEGER NOT NULL DEFAULT 0,
	fullscreen INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS monitors (
	idx INTEGER PRIMARY KEY,
	tagset0 INTEGER NOT NULL,
	tagset1 INTEGER NOT NULL,
	sel_tags INTEGER NOT NULL CHECK(sel_tags IN (0,1)),
	show_bar INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS tag_states (
	monitor INTEGER NOT NULL,
	tag INTEGER NOT NULL,
	layout TEXT NOT NULL,
	master_factor REAL NOT NULL,
	num_master INTEGER NOT NULL,
	scroll_offset INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY(monitor, tag)
);
`,
	},
}

func applyMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations(version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	for _, m := range migrations {
		var exists int
		err := db.QueryRowContext(ctx, `SELECT 1 FROM schema_migrations WHERE version = ?`, m.version).Scan(&exists)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check migration %d: %w", m.version, err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, m.upSQL); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, applied_at) VALUES (?, datetime('now'))`, m.version); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}
	return nil
}
