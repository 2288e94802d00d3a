package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 6

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS entries (
					id TEXT PRIMARY KEY,
					number TEXT UNIQUE NOT NULL,
					display TEXT NOT NULL,
					carrier TEXT NOT NULL,
					confidence TEXT NOT NULL DEFAULT 'low',
					label TEXT NOT NULL DEFAULT '',
					source TEXT NOT NULL DEFAULT 'manual',
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_entries_carrier ON entries(carrier)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add events table for status history",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS events (
					id TEXT PRIMARY KEY,
					entry_id TEXT NOT NULL,
					status TEXT NOT NULL,
					message TEXT NOT NULL DEFAULT '',
					location TEXT NOT NULL DEFAULT '',
					occurred_at DATETIME NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (entry_id) REFERENCES entries(id) ON DELETE CASCADE
				)`,
				`CREATE INDEX idx_events_entry_id ON events(entry_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Track delivery status and archival on entries",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`ALTER TABLE entries ADD COLUMN status TEXT NOT NULL DEFAULT ''`,
				`ALTER TABLE entries ADD COLUMN archived INTEGER NOT NULL DEFAULT 0`,
				`ALTER TABLE entries ADD COLUMN last_checked_at DATETIME`,
				`CREATE INDEX idx_entries_archived ON entries(archived)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
	{
		Version:     4,
		Description: "Sync support: updated_at index and event deduplication",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				// Push sets are computed as updated_at > watermark
				`CREATE INDEX IF NOT EXISTS idx_entries_updated_at ON entries(updated_at)`,
				// Re-polling a carrier must not duplicate history
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_events_dedupe
					ON events(entry_id, occurred_at, status)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
	{
		Version:     5,
		Description: "Record where an entry was captured",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`ALTER TABLE entries ADD COLUMN origin TEXT NOT NULL DEFAULT ''`); err != nil {
				return fmt.Errorf("failed to execute query: %w", err)
			}
			return nil
		},
	},
	{
		Version:     6,
		Description: "Per-backend sync state",
		Up: func(tx *sql.Tx) error {
			query := `CREATE TABLE IF NOT EXISTS sync_state (
				backend TEXT PRIMARY KEY,
				cursor DATETIME NOT NULL,
				last_synced_at DATETIME NOT NULL,
				last_error TEXT NOT NULL DEFAULT ''
			)`
			if _, err := tx.Exec(query); err != nil {
				return fmt.Errorf("failed to execute query: %w", err)
			}
			return nil
		},
	},
}

// SchemaVersion returns the database's current schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
