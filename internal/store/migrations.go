package store

import (
	"context"
	"fmt"
)

// schemaStep is one forward-only change to the journal schema.
type schemaStep struct {
	version int
	stmts   []string
}

// schema lists the journal schema steps in version order.
var schema = []schemaStep{
	{
		version: 1,
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`,
			`CREATE TABLE IF NOT EXISTS notifications (
				id          TEXT PRIMARY KEY,
				kind        TEXT NOT NULL,
				source_name TEXT NOT NULL DEFAULT '',
				message     TEXT NOT NULL,
				read        INTEGER NOT NULL DEFAULT 0,
				created_at  DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications(read, created_at)`,
		},
	},
	{
		version: 2,
		stmts: []string{
			`CREATE INDEX IF NOT EXISTS idx_notifications_source ON notifications(source_name, kind)`,
		},
	},
}

// migrate applies every step above the recorded version, each in its
// own transaction together with its version row.
func (s *SQLiteStore) migrate(ctx context.Context) error {
	current, err := s.appliedVersion(ctx)
	if err != nil {
		return err
	}

	for _, step := range schema {
		if step.version <= current {
			continue
		}
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning schema v%d: %w", step.version, err)
		}
		for _, stmt := range step.stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("applying schema v%d: %w", step.version, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, step.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording schema v%d: %w", step.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing schema v%d: %w", step.version, err)
		}
	}
	return nil
}

// appliedVersion is 0 on a fresh database.
func (s *SQLiteStore) appliedVersion(ctx context.Context) (int, error) {
	var tables int
	err := s.db.GetContext(ctx, &tables,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'`)
	if err != nil {
		return 0, fmt.Errorf("checking schema_version table: %w", err)
	}
	if tables == 0 {
		return 0, nil
	}
	return s.SchemaVersion(ctx)
}
