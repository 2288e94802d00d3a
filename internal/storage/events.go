package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/trackhub/trackhub/internal/model"
)

// SaveEvents appends status events. Re-saving an event the carrier already
// reported (same entry, timestamp, and status) is silently skipped, so
// repeated polls never duplicate history.
func (s *SQLiteStorage) SaveEvents(ctx context.Context, events []model.Event) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEvents(events); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.saveEventsTx(ctx, tx, events); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) saveEventsTx(ctx context.Context, tx *sql.Tx, events []model.Event) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO events (
			id, entry_id, status, message, location, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range events {
		ev := &events[i]
		occurredAt := ev.OccurredAt
		if occurredAt.IsZero() {
			occurredAt = time.Now().UTC()
		}

		_, err = stmt.ExecContext(ctx,
			ev.ID,
			ev.EntryID,
			string(ev.Status),
			ev.Message,
			ev.Location,
			occurredAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to save event for entry %s: %w", ev.EntryID, err)
		}
	}

	return nil
}

// GetEvents returns an entry's status history, newest first.
func (s *SQLiteStorage) GetEvents(ctx context.Context, entryID string) ([]model.Event, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(entryID, "entryID"); err != nil {
		return nil, err
	}
	return s.getEventsTx(ctx, s.db, entryID)
}

func (s *SQLiteStorage) getEventsTx(ctx context.Context, q queryable, entryID string) ([]model.Event, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, entry_id, status, message, location, occurred_at, created_at
		FROM events
		WHERE entry_id = ?
		ORDER BY occurred_at DESC, created_at DESC
	`, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []model.Event
	for rows.Next() {
		var (
			ev        model.Event
			statusStr string
		)
		err := rows.Scan(
			&ev.ID,
			&ev.EntryID,
			&statusStr,
			&ev.Message,
			&ev.Location,
			&ev.OccurredAt,
			&ev.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Status = model.Status(statusStr)
		events = append(events, ev)
	}

	return events, rows.Err()
}
