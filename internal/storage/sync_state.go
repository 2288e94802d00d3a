package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/trackhub/trackhub/internal/common"
	"github.com/trackhub/trackhub/internal/model"
)

// GetSyncState returns the saved cursor for a backend, or ErrNotFound if
// that backend has never synced.
func (s *SQLiteStorage) GetSyncState(ctx context.Context, backend string) (*model.SyncState, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(backend, "backend"); err != nil {
		return nil, err
	}
	return s.getSyncStateTx(ctx, s.db, backend)
}

func (s *SQLiteStorage) getSyncStateTx(ctx context.Context, q queryable, backend string) (*model.SyncState, error) {
	var state model.SyncState
	err := q.QueryRowContext(ctx, `
		SELECT backend, cursor, last_synced_at, last_error
		FROM sync_state WHERE backend = ?
	`, backend).Scan(&state.Backend, &state.Cursor, &state.LastSyncedAt, &state.LastError)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: sync state for %s", common.ErrNotFound, backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}
	return &state, nil
}

// SaveSyncState records the cursor and outcome of a sync run.
func (s *SQLiteStorage) SaveSyncState(ctx context.Context, state *model.SyncState) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if state == nil {
		return fmt.Errorf("%w: state", ErrNilParameter)
	}
	if state.Backend == "" {
		return fmt.Errorf("%w: backend", ErrEmptyString)
	}
	return s.saveSyncStateTx(ctx, s.db, state)
}

func (s *SQLiteStorage) saveSyncStateTx(ctx context.Context, q queryable, state *model.SyncState) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO sync_state (backend, cursor, last_synced_at, last_error)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(backend) DO UPDATE SET
			cursor = excluded.cursor,
			last_synced_at = excluded.last_synced_at,
			last_error = excluded.last_error
	`,
		state.Backend,
		state.Cursor.UTC(),
		state.LastSyncedAt.UTC(),
		state.LastError,
	)
	if err != nil {
		return fmt.Errorf("failed to save sync state: %w", err)
	}
	return nil
}
