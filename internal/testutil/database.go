// Package testutil provides shared helpers for tests that need a real
// database: an in-memory SQLite store at the latest schema, and a builder
// for entry fixtures.
package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trackhub/trackhub/internal/storage"
)

// NewStorage creates an in-memory SQLite database migrated to the latest
// schema. It is closed automatically when the test finishes.
func NewStorage(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}
