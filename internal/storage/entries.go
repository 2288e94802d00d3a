package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/trackhub/trackhub/internal/carrier"
	"github.com/trackhub/trackhub/internal/common"
	"github.com/trackhub/trackhub/internal/model"
	"github.com/trackhub/trackhub/internal/service"
)

const entryColumns = `id, number, display, carrier, confidence, label, origin,
	source, status, archived, created_at, updated_at, last_checked_at`

// queryable lets read helpers run against either the pool or a transaction.
type queryable interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*model.Entry, error) {
	var (
		entry       model.Entry
		carrierStr  string
		confStr     string
		sourceStr   string
		statusStr   string
		lastChecked sql.NullTime
	)

	err := row.Scan(
		&entry.ID,
		&entry.Number,
		&entry.Display,
		&carrierStr,
		&confStr,
		&entry.Label,
		&entry.Origin,
		&sourceStr,
		&statusStr,
		&entry.Archived,
		&entry.CreatedAt,
		&entry.UpdatedAt,
		&lastChecked,
	)
	if err != nil {
		return nil, err
	}

	confidence, err := carrier.ParseConfidence(confStr)
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", entry.ID, err)
	}

	entry.Carrier = carrier.Carrier(carrierStr)
	entry.Confidence = confidence
	entry.Source = model.Source(sourceStr)
	entry.Status = model.Status(statusStr)
	if lastChecked.Valid {
		t := lastChecked.Time
		entry.LastCheckedAt = &t
	}
	return &entry, nil
}

// SaveEntry inserts a new entry. A second entry with the same canonical
// number is rejected with ErrDuplicateEntry.
func (s *SQLiteStorage) SaveEntry(ctx context.Context, entry *model.Entry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEntry(entry); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.saveEntryTx(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) saveEntryTx(ctx context.Context, tx *sql.Tx, entry *model.Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = entry.CreatedAt
	}

	var exists bool
	err := tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM entries WHERE number = ?)
	`, entry.Number).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check for existing entry: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: tracking number %s", common.ErrDuplicateEntry, entry.Number)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entries (
			id, number, display, carrier, confidence, label, origin, source,
			status, archived, created_at, updated_at, last_checked_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID,
		entry.Number,
		entry.Display,
		string(entry.Carrier),
		entry.Confidence.String(),
		entry.Label,
		entry.Origin,
		string(entry.Source),
		string(entry.Status),
		entry.Archived,
		entry.CreatedAt.UTC(),
		entry.UpdatedAt.UTC(),
		nullableTime(entry.LastCheckedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save entry: %w", err)
	}

	s.cacheEntry(entry)
	return nil
}

// GetEntryByID retrieves an entry by its ID.
func (s *SQLiteStorage) GetEntryByID(ctx context.Context, id string) (*model.Entry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getEntryByIDTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getEntryByIDTx(ctx context.Context, q queryable, id string) (*model.Entry, error) {
	entry, err := scanEntry(q.QueryRowContext(ctx, `
		SELECT `+entryColumns+` FROM entries WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: entry %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	s.cacheEntry(entry)
	return entry, nil
}

// GetEntryByNumber retrieves an entry by its canonical tracking number.
func (s *SQLiteStorage) GetEntryByNumber(ctx context.Context, number string) (*model.Entry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(number, "number"); err != nil {
		return nil, err
	}

	// Check cache first: scan imports and sync merges probe numbers in bulk.
	if entry := s.getCachedEntry(number); entry != nil {
		return entry, nil
	}

	return s.getEntryByNumberTx(ctx, s.db, number)
}

func (s *SQLiteStorage) getEntryByNumberTx(ctx context.Context, q queryable, number string) (*model.Entry, error) {
	entry, err := scanEntry(q.QueryRowContext(ctx, `
		SELECT `+entryColumns+` FROM entries WHERE number = ?
	`, number))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: tracking number %s", common.ErrNotFound, number)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	s.cacheEntry(entry)
	return entry, nil
}

// ListEntries returns entries matching the filter, newest first. Archived
// entries stay hidden unless the filter asks for them.
func (s *SQLiteStorage) ListEntries(ctx context.Context, filter service.EntryFilter) ([]model.Entry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listEntriesTx(ctx, s.db, filter)
}

// entryFilterWhere builds the WHERE clause shared by list and count queries.
func entryFilterWhere(filter service.EntryFilter) (string, []any) {
	var conds []string
	var args []any
	if !filter.IncludeArchived {
		conds = append(conds, "archived = 0")
	}
	if filter.Carrier != nil {
		conds = append(conds, "carrier = ?")
		args = append(args, string(*filter.Carrier))
	}
	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.Search != "" {
		conds = append(conds, "(number LIKE ? OR label LIKE ?)")
		needle := "%" + filter.Search + "%"
		args = append(args, needle, needle)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *SQLiteStorage) listEntriesTx(ctx context.Context, q queryable, filter service.EntryFilter) ([]model.Entry, error) {
	where, args := entryFilterWhere(filter)
	query := `SELECT ` + entryColumns + ` FROM entries` + where

	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.Entry
	for rows.Next() {
		entry, scanErr := scanEntry(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", scanErr)
		}
		entries = append(entries, *entry)
	}

	return entries, rows.Err()
}

// CountEntries returns the number of entries matching the filter, ignoring
// Limit and Offset.
func (s *SQLiteStorage) CountEntries(ctx context.Context, filter service.EntryFilter) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return s.countEntriesTx(ctx, s.db, filter)
}

func (s *SQLiteStorage) countEntriesTx(ctx context.Context, q queryable, filter service.EntryFilter) (int, error) {
	where, args := entryFilterWhere(filter)

	var count int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

// UpdateEntry rewrites an existing entry's mutable fields by ID.
func (s *SQLiteStorage) UpdateEntry(ctx context.Context, entry *model.Entry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEntry(entry); err != nil {
		return err
	}
	return s.updateEntryTx(ctx, s.db, entry)
}

func (s *SQLiteStorage) updateEntryTx(ctx context.Context, q queryable, entry *model.Entry) error {
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now().UTC()
	}

	result, err := q.ExecContext(ctx, `
		UPDATE entries SET
			display = ?,
			carrier = ?,
			confidence = ?,
			label = ?,
			origin = ?,
			status = ?,
			archived = ?,
			updated_at = ?,
			last_checked_at = ?
		WHERE id = ?
	`,
		entry.Display,
		string(entry.Carrier),
		entry.Confidence.String(),
		entry.Label,
		entry.Origin,
		string(entry.Status),
		entry.Archived,
		entry.UpdatedAt.UTC(),
		nullableTime(entry.LastCheckedAt),
		entry.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: entry %s", common.ErrNotFound, entry.ID)
	}

	s.cacheEntry(entry)
	return nil
}

// SetEntryArchived flips an entry in or out of the archive.
func (s *SQLiteStorage) SetEntryArchived(ctx context.Context, id string, archived bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return s.setEntryArchivedTx(ctx, s.db, id, archived)
}

func (s *SQLiteStorage) setEntryArchivedTx(ctx context.Context, q queryable, id string, archived bool) error {
	result, err := q.ExecContext(ctx, `
		UPDATE entries SET archived = ?, updated_at = ? WHERE id = ?
	`, archived, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update archived flag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: entry %s", common.ErrNotFound, id)
	}

	s.invalidateCachedEntryByID(id)
	return nil
}

// DeleteEntry removes an entry and, via cascade, its events.
func (s *SQLiteStorage) DeleteEntry(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return s.deleteEntryTx(ctx, s.db, id)
}

func (s *SQLiteStorage) deleteEntryTx(ctx context.Context, q queryable, id string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: entry %s", common.ErrNotFound, id)
	}

	s.invalidateCachedEntryByID(id)
	return nil
}

// UpsertEntry writes an entry keyed by its canonical number, preserving the
// given timestamps. Sync uses it to apply remote rows; on conflict the local
// ID and created_at survive so event history stays attached.
func (s *SQLiteStorage) UpsertEntry(ctx context.Context, entry *model.Entry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEntry(entry); err != nil {
		return err
	}
	return s.upsertEntryTx(ctx, s.db, entry)
}

func (s *SQLiteStorage) upsertEntryTx(ctx context.Context, q queryable, entry *model.Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = entry.CreatedAt
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO entries (
			id, number, display, carrier, confidence, label, origin, source,
			status, archived, created_at, updated_at, last_checked_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(number) DO UPDATE SET
			display = excluded.display,
			carrier = excluded.carrier,
			confidence = excluded.confidence,
			label = excluded.label,
			origin = excluded.origin,
			status = excluded.status,
			archived = excluded.archived,
			updated_at = excluded.updated_at,
			last_checked_at = excluded.last_checked_at
	`,
		entry.ID,
		entry.Number,
		entry.Display,
		string(entry.Carrier),
		entry.Confidence.String(),
		entry.Label,
		entry.Origin,
		string(entry.Source),
		string(entry.Status),
		entry.Archived,
		entry.CreatedAt.UTC(),
		entry.UpdatedAt.UTC(),
		nullableTime(entry.LastCheckedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert entry: %w", err)
	}

	s.invalidateCachedEntry(entry.Number)
	return nil
}

// GetEntriesUpdatedSince returns entries touched after the watermark,
// including archived ones: archival must propagate to other devices.
func (s *SQLiteStorage) GetEntriesUpdatedSince(ctx context.Context, since time.Time) ([]model.Entry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getEntriesUpdatedSinceTx(ctx, s.db, since)
}

func (s *SQLiteStorage) getEntriesUpdatedSinceTx(ctx context.Context, q queryable, since time.Time) ([]model.Entry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+entryColumns+` FROM entries
		WHERE updated_at > ?
		ORDER BY updated_at
	`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query updated entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.Entry
	for rows.Next() {
		entry, scanErr := scanEntry(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", scanErr)
		}
		entries = append(entries, *entry)
	}

	return entries, rows.Err()
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// getCachedEntry retrieves an entry from the cache by canonical number.
func (s *SQLiteStorage) getCachedEntry(number string) *model.Entry {
	s.cacheMutex.RLock()

	if time.Now().After(s.cacheExpiry) {
		s.cacheMutex.RUnlock()
		s.cacheMutex.Lock()
		defer s.cacheMutex.Unlock()

		// Double-check after acquiring write lock
		if time.Now().After(s.cacheExpiry) {
			s.entryCache = make(map[string]*model.Entry)
		}
		return nil
	}

	cached := s.entryCache[number]
	s.cacheMutex.RUnlock()
	if cached == nil {
		return nil
	}

	copied := *cached
	return &copied
}

// cacheEntry adds a copy of the entry to the cache.
func (s *SQLiteStorage) cacheEntry(entry *model.Entry) {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()

	if len(s.entryCache) == 0 {
		// Set cache expiry on first entry
		s.cacheExpiry = time.Now().Add(5 * time.Minute)
	}
	copied := *entry
	s.entryCache[entry.Number] = &copied
}

func (s *SQLiteStorage) invalidateCachedEntry(number string) {
	s.cacheMutex.Lock()
	delete(s.entryCache, number)
	s.cacheMutex.Unlock()
}

func (s *SQLiteStorage) invalidateCachedEntryByID(id string) {
	s.cacheMutex.Lock()
	for number, entry := range s.entryCache {
		if entry.ID == id {
			delete(s.entryCache, number)
			break
		}
	}
	s.cacheMutex.Unlock()
}
