package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trackhub/trackhub/internal/carrier"
	"github.com/trackhub/trackhub/internal/common"
	"github.com/trackhub/trackhub/internal/model"
	"github.com/trackhub/trackhub/internal/service"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

// Helper function to create a test entry.
func makeTestEntry(number string, c carrier.Carrier) *model.Entry {
	now := time.Now().UTC().Truncate(time.Second)
	return &model.Entry{
		ID:         uuid.NewString(),
		Number:     number,
		Display:    carrier.FormatForDisplay(c, number),
		Carrier:    c,
		Confidence: carrier.ConfidenceHigh,
		Source:     model.SourceManual,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestSQLiteStorage_SaveAndGetEntry(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	entry := makeTestEntry("1Z12345678901234567890", carrier.UPS)
	entry.Label = "new shoes"

	if err := store.SaveEntry(ctx, entry); err != nil {
		t.Fatalf("Failed to save entry: %v", err)
	}

	byNumber, err := store.GetEntryByNumber(ctx, entry.Number)
	if err != nil {
		t.Fatalf("Failed to get entry by number: %v", err)
	}
	if byNumber.ID != entry.ID {
		t.Errorf("Got ID %q, want %q", byNumber.ID, entry.ID)
	}
	if byNumber.Carrier != carrier.UPS {
		t.Errorf("Got carrier %q, want %q", byNumber.Carrier, carrier.UPS)
	}
	if byNumber.Confidence != carrier.ConfidenceHigh {
		t.Errorf("Got confidence %v, want %v", byNumber.Confidence, carrier.ConfidenceHigh)
	}
	if byNumber.Label != "new shoes" {
		t.Errorf("Got label %q, want %q", byNumber.Label, "new shoes")
	}
	if byNumber.LastCheckedAt != nil {
		t.Errorf("Expected nil LastCheckedAt, got %v", byNumber.LastCheckedAt)
	}

	byID, err := store.GetEntryByID(ctx, entry.ID)
	if err != nil {
		t.Fatalf("Failed to get entry by ID: %v", err)
	}
	if byID.Number != entry.Number {
		t.Errorf("Got number %q, want %q", byID.Number, entry.Number)
	}
}

func TestSQLiteStorage_SaveEntryDuplicate(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	first := makeTestEntry("TBA123456789", carrier.Amazon)
	if err := store.SaveEntry(ctx, first); err != nil {
		t.Fatalf("Failed to save entry: %v", err)
	}

	second := makeTestEntry("TBA123456789", carrier.Amazon)
	err := store.SaveEntry(ctx, second)
	if !errors.Is(err, common.ErrDuplicateEntry) {
		t.Errorf("Expected ErrDuplicateEntry, got %v", err)
	}
}

func TestSQLiteStorage_GetEntryNotFound(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := store.GetEntryByNumber(ctx, "NOPE123"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound by number, got %v", err)
	}
	if _, err := store.GetEntryByID(ctx, uuid.NewString()); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound by ID, got %v", err)
	}
}

func TestSQLiteStorage_ListEntries(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second).Add(-time.Hour)
	seed := []struct {
		number   string
		carrier  carrier.Carrier
		label    string
		status   model.Status
		archived bool
	}{
		{"1Z11111111111111111111", carrier.UPS, "keyboard", model.StatusInTransit, false},
		{"TBA123456789", carrier.Amazon, "coffee beans", model.StatusDelivered, false},
		{"94001112062138512345", carrier.FedEx, "", model.StatusPending, false},
		{"EC123456789US", carrier.USPS, "postcards", "", true},
	}
	for i, sd := range seed {
		entry := makeTestEntry(sd.number, sd.carrier)
		entry.Label = sd.label
		entry.Status = sd.status
		entry.Archived = sd.archived
		entry.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		entry.UpdatedAt = entry.CreatedAt
		if err := store.SaveEntry(ctx, entry); err != nil {
			t.Fatalf("Failed to seed entry %s: %v", sd.number, err)
		}
	}

	t.Run("default excludes archived and orders newest first", func(t *testing.T) {
		entries, err := store.ListEntries(ctx, service.EntryFilter{})
		if err != nil {
			t.Fatalf("Failed to list entries: %v", err)
		}
		if len(entries) != 3 {
			t.Fatalf("Expected 3 entries, got %d", len(entries))
		}
		if entries[0].Number != "94001112062138512345" {
			t.Errorf("Expected newest entry first, got %q", entries[0].Number)
		}
	})

	t.Run("include archived", func(t *testing.T) {
		entries, err := store.ListEntries(ctx, service.EntryFilter{IncludeArchived: true})
		if err != nil {
			t.Fatalf("Failed to list entries: %v", err)
		}
		if len(entries) != 4 {
			t.Errorf("Expected 4 entries, got %d", len(entries))
		}
	})

	t.Run("filter by carrier", func(t *testing.T) {
		ups := carrier.UPS
		entries, err := store.ListEntries(ctx, service.EntryFilter{Carrier: &ups})
		if err != nil {
			t.Fatalf("Failed to list entries: %v", err)
		}
		if len(entries) != 1 || entries[0].Carrier != carrier.UPS {
			t.Errorf("Expected single UPS entry, got %+v", entries)
		}
	})

	t.Run("filter by status", func(t *testing.T) {
		delivered := model.StatusDelivered
		entries, err := store.ListEntries(ctx, service.EntryFilter{Status: &delivered})
		if err != nil {
			t.Fatalf("Failed to list entries: %v", err)
		}
		if len(entries) != 1 || entries[0].Number != "TBA123456789" {
			t.Errorf("Expected the delivered Amazon entry, got %+v", entries)
		}
	})

	t.Run("search matches label", func(t *testing.T) {
		entries, err := store.ListEntries(ctx, service.EntryFilter{Search: "keyboard"})
		if err != nil {
			t.Fatalf("Failed to search entries: %v", err)
		}
		if len(entries) != 1 || entries[0].Label != "keyboard" {
			t.Errorf("Expected keyboard entry, got %+v", entries)
		}
	})

	t.Run("search matches number fragment", func(t *testing.T) {
		entries, err := store.ListEntries(ctx, service.EntryFilter{Search: "TBA"})
		if err != nil {
			t.Fatalf("Failed to search entries: %v", err)
		}
		if len(entries) != 1 || entries[0].Number != "TBA123456789" {
			t.Errorf("Expected TBA entry, got %+v", entries)
		}
	})

	t.Run("limit and offset", func(t *testing.T) {
		entries, err := store.ListEntries(ctx, service.EntryFilter{Limit: 2})
		if err != nil {
			t.Fatalf("Failed to list entries: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("Expected 2 entries, got %d", len(entries))
		}

		next, err := store.ListEntries(ctx, service.EntryFilter{Limit: 2, Offset: 2})
		if err != nil {
			t.Fatalf("Failed to list entries: %v", err)
		}
		if len(next) != 1 {
			t.Errorf("Expected 1 remaining entry, got %d", len(next))
		}
	})
}

func TestSQLiteStorage_CountEntries(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	seed := []struct {
		number   string
		carrier  carrier.Carrier
		archived bool
	}{
		{"1Z11111111111111111111", carrier.UPS, false},
		{"1Z22222222222222222222", carrier.UPS, true},
		{"TBA123456789", carrier.Amazon, false},
	}
	for _, sd := range seed {
		entry := makeTestEntry(sd.number, sd.carrier)
		entry.Archived = sd.archived
		if err := store.SaveEntry(ctx, entry); err != nil {
			t.Fatalf("Failed to seed entry %s: %v", sd.number, err)
		}
	}

	count, err := store.CountEntries(ctx, service.EntryFilter{})
	if err != nil {
		t.Fatalf("Failed to count entries: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 active entries, got %d", count)
	}

	count, err = store.CountEntries(ctx, service.EntryFilter{IncludeArchived: true})
	if err != nil {
		t.Fatalf("Failed to count entries: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 total entries, got %d", count)
	}

	ups := carrier.UPS
	count, err = store.CountEntries(ctx, service.EntryFilter{Carrier: &ups, IncludeArchived: true})
	if err != nil {
		t.Fatalf("Failed to count UPS entries: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 UPS entries, got %d", count)
	}

	// Limit never applies to counts.
	count, err = store.CountEntries(ctx, service.EntryFilter{Limit: 1, IncludeArchived: true})
	if err != nil {
		t.Fatalf("Failed to count entries: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected limit to be ignored, got %d", count)
	}
}

func TestSQLiteStorage_EntryOrigin(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	entry := makeTestEntry("1Z12345678901234567890", carrier.UPS)
	entry.Origin = "https://shop.example.com/orders/8841"
	if err := store.SaveEntry(ctx, entry); err != nil {
		t.Fatalf("Failed to save entry: %v", err)
	}

	got, err := store.GetEntryByID(ctx, entry.ID)
	if err != nil {
		t.Fatalf("Failed to reload entry: %v", err)
	}
	if got.Origin != entry.Origin {
		t.Errorf("Got origin %q, want %q", got.Origin, entry.Origin)
	}

	got.Origin = "pasted from email"
	got.UpdatedAt = got.UpdatedAt.Add(time.Minute)
	if err := store.UpdateEntry(ctx, got); err != nil {
		t.Fatalf("Failed to update entry: %v", err)
	}

	reloaded, err := store.GetEntryByNumber(ctx, entry.Number)
	if err != nil {
		t.Fatalf("Failed to reload entry: %v", err)
	}
	if reloaded.Origin != "pasted from email" {
		t.Errorf("Got origin %q after update", reloaded.Origin)
	}
}

func TestSQLiteStorage_UpdateEntry(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	entry := makeTestEntry("123456789012", carrier.FedEx)
	if err := store.SaveEntry(ctx, entry); err != nil {
		t.Fatalf("Failed to save entry: %v", err)
	}

	// The user corrects a misdetected carrier.
	entry.Carrier = carrier.OnTrac
	entry.Confidence = carrier.ConfidenceHigh
	entry.Label = "garden hose"
	entry.UpdatedAt = entry.UpdatedAt.Add(time.Minute)
	if err := store.UpdateEntry(ctx, entry); err != nil {
		t.Fatalf("Failed to update entry: %v", err)
	}

	got, err := store.GetEntryByNumber(ctx, entry.Number)
	if err != nil {
		t.Fatalf("Failed to reload entry: %v", err)
	}
	if got.Carrier != carrier.OnTrac {
		t.Errorf("Got carrier %q, want %q", got.Carrier, carrier.OnTrac)
	}
	if got.Label != "garden hose" {
		t.Errorf("Got label %q, want %q", got.Label, "garden hose")
	}

	missing := makeTestEntry("1234567890", carrier.UPS)
	if err := store.UpdateEntry(ctx, missing); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound updating missing entry, got %v", err)
	}
}

func TestSQLiteStorage_SetEntryArchived(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	entry := makeTestEntry("94001112062138512345", carrier.USPS)
	entry.CreatedAt = time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	entry.UpdatedAt = entry.CreatedAt
	if err := store.SaveEntry(ctx, entry); err != nil {
		t.Fatalf("Failed to save entry: %v", err)
	}

	if err := store.SetEntryArchived(ctx, entry.ID, true); err != nil {
		t.Fatalf("Failed to archive entry: %v", err)
	}

	got, err := store.GetEntryByID(ctx, entry.ID)
	if err != nil {
		t.Fatalf("Failed to reload entry: %v", err)
	}
	if !got.Archived {
		t.Error("Expected entry to be archived")
	}
	if !got.UpdatedAt.After(entry.UpdatedAt) {
		t.Errorf("Expected updated_at to advance, got %v (was %v)", got.UpdatedAt, entry.UpdatedAt)
	}

	if err := store.SetEntryArchived(ctx, uuid.NewString(), true); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound archiving missing entry, got %v", err)
	}
}

func TestSQLiteStorage_DeleteEntryCascadesEvents(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	entry := makeTestEntry("1Z99999999999999999999", carrier.UPS)
	if err := store.SaveEntry(ctx, entry); err != nil {
		t.Fatalf("Failed to save entry: %v", err)
	}

	events := []model.Event{
		{
			ID:         uuid.NewString(),
			EntryID:    entry.ID,
			Status:     model.StatusInTransit,
			Message:    "Departed facility",
			OccurredAt: time.Now().UTC().Add(-time.Hour).Truncate(time.Second),
		},
	}
	if err := store.SaveEvents(ctx, events); err != nil {
		t.Fatalf("Failed to save events: %v", err)
	}

	if err := store.DeleteEntry(ctx, entry.ID); err != nil {
		t.Fatalf("Failed to delete entry: %v", err)
	}

	var count int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM events WHERE entry_id = ?`, entry.ID).Scan(&count); err != nil {
		t.Fatalf("Failed to count events: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected cascade to remove events, found %d", count)
	}

	if err := store.DeleteEntry(ctx, entry.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestSQLiteStorage_UpsertEntry(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	local := makeTestEntry("TBA987654321", carrier.Amazon)
	local.Label = "local label"
	if err := store.SaveEntry(ctx, local); err != nil {
		t.Fatalf("Failed to save entry: %v", err)
	}

	// A remote row for the same number, updated later on another device.
	remote := makeTestEntry("TBA987654321", carrier.Amazon)
	remote.Label = "remote label"
	remote.Status = model.StatusDelivered
	remote.Archived = true
	remote.Source = model.SourceSync
	remote.CreatedAt = local.CreatedAt.Add(-time.Hour)
	remote.UpdatedAt = local.UpdatedAt.Add(time.Hour)

	if err := store.UpsertEntry(ctx, remote); err != nil {
		t.Fatalf("Failed to upsert entry: %v", err)
	}

	got, err := store.GetEntryByNumber(ctx, "TBA987654321")
	if err != nil {
		t.Fatalf("Failed to reload entry: %v", err)
	}
	if got.ID != local.ID {
		t.Errorf("Upsert must keep the local ID; got %q, want %q", got.ID, local.ID)
	}
	if !got.CreatedAt.Equal(local.CreatedAt) {
		t.Errorf("Upsert must keep local created_at; got %v, want %v", got.CreatedAt, local.CreatedAt)
	}
	if got.Label != "remote label" {
		t.Errorf("Got label %q, want %q", got.Label, "remote label")
	}
	if !got.Archived {
		t.Error("Expected archived flag from remote row")
	}
	if !got.UpdatedAt.Equal(remote.UpdatedAt) {
		t.Errorf("Upsert must preserve remote updated_at; got %v, want %v", got.UpdatedAt, remote.UpdatedAt)
	}

	// Upserting an unseen number inserts it.
	fresh := makeTestEntry("1234567890", carrier.DHL)
	fresh.Source = model.SourceSync
	if err := store.UpsertEntry(ctx, fresh); err != nil {
		t.Fatalf("Failed to upsert fresh entry: %v", err)
	}
	if _, err := store.GetEntryByNumber(ctx, "1234567890"); err != nil {
		t.Errorf("Expected fresh entry to exist: %v", err)
	}
}

func TestSQLiteStorage_GetEntriesUpdatedSince(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second).Add(-2 * time.Hour)
	numbers := []string{"1Z11111111111111111111", "TBA123456789", "EC123456789US"}
	for i, number := range numbers {
		entry := makeTestEntry(number, carrier.UPS)
		entry.Carrier = carrier.Other
		entry.Confidence = carrier.ConfidenceLow
		entry.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		entry.UpdatedAt = entry.CreatedAt
		entry.Archived = i == 2
		if err := store.SaveEntry(ctx, entry); err != nil {
			t.Fatalf("Failed to seed entry: %v", err)
		}
	}

	got, err := store.GetEntriesUpdatedSince(ctx, base.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("Failed to get updated entries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 entries after watermark, got %d", len(got))
	}
	if got[0].Number != "TBA123456789" {
		t.Errorf("Expected oldest-first ordering, got %q first", got[0].Number)
	}
	if !got[1].Archived {
		t.Error("Archived entries must be part of the push set")
	}
}

func TestSQLiteStorage_Transaction(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	t.Run("rollback discards writes", func(t *testing.T) {
		tx, err := store.BeginTx(ctx)
		if err != nil {
			t.Fatalf("Failed to begin transaction: %v", err)
		}
		entry := makeTestEntry("123456789012", carrier.FedEx)
		if err := tx.SaveEntry(ctx, entry); err != nil {
			t.Fatalf("Failed to save in transaction: %v", err)
		}
		if err := tx.Rollback(); err != nil {
			t.Fatalf("Failed to rollback: %v", err)
		}

		// The rolled-back row must not be visible, even via the cache.
		store.invalidateCachedEntry(entry.Number)
		if _, err := store.GetEntryByNumber(ctx, entry.Number); !errors.Is(err, common.ErrNotFound) {
			t.Errorf("Expected ErrNotFound after rollback, got %v", err)
		}
	})

	t.Run("commit persists writes", func(t *testing.T) {
		tx, err := store.BeginTx(ctx)
		if err != nil {
			t.Fatalf("Failed to begin transaction: %v", err)
		}
		entry := makeTestEntry("12345678901", carrier.DHL)
		entry.Confidence = carrier.ConfidenceMedium
		if err := tx.SaveEntry(ctx, entry); err != nil {
			t.Fatalf("Failed to save in transaction: %v", err)
		}
		if err := tx.Commit(); err != nil {
			t.Fatalf("Failed to commit: %v", err)
		}

		if _, err := store.GetEntryByNumber(ctx, entry.Number); err != nil {
			t.Errorf("Expected committed entry to exist: %v", err)
		}
	})

	t.Run("nested transactions rejected", func(t *testing.T) {
		tx, err := store.BeginTx(ctx)
		if err != nil {
			t.Fatalf("Failed to begin transaction: %v", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.BeginTx(ctx); err == nil {
			t.Error("Expected nested BeginTx to fail")
		}
		if err := tx.Migrate(ctx); err == nil {
			t.Error("Expected Migrate inside transaction to fail")
		}
	})
}

func TestSQLiteStorage_EntryCache(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	entry := makeTestEntry("T1234567890", carrier.UPS)
	if err := store.SaveEntry(ctx, entry); err != nil {
		t.Fatalf("Failed to save entry: %v", err)
	}

	first, err := store.GetEntryByNumber(ctx, entry.Number)
	if err != nil {
		t.Fatalf("Failed to get entry: %v", err)
	}

	// Mutating the returned value must not poison later reads.
	first.Label = "mutated"
	second, err := store.GetEntryByNumber(ctx, entry.Number)
	if err != nil {
		t.Fatalf("Failed to get entry again: %v", err)
	}
	if second.Label == "mutated" {
		t.Error("Cache handed out a shared pointer")
	}
}

func TestSQLiteStorage_ValidationErrors(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.SaveEntry(ctx, nil); !errors.Is(err, ErrNilParameter) {
		t.Errorf("Expected ErrNilParameter, got %v", err)
	}

	bad := makeTestEntry("1Z12345678901234567890", carrier.UPS)
	bad.Carrier = carrier.Carrier("pigeon")
	if err := store.SaveEntry(ctx, bad); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Expected ErrInvalidEntry, got %v", err)
	}

	if _, err := store.GetEntryByID(ctx, "  "); !errors.Is(err, ErrEmptyString) {
		t.Errorf("Expected ErrEmptyString, got %v", err)
	}

	if err := store.SaveEvents(ctx, []model.Event{}); !errors.Is(err, ErrEmptySlice) {
		t.Errorf("Expected ErrEmptySlice, got %v", err)
	}
}

func TestSQLiteStorage_ListEntriesEmpty(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	entries, err := store.ListEntries(context.Background(), service.EntryFilter{})
	if err != nil {
		t.Fatalf("Failed to list entries: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty list, got %d entries", len(entries))
	}
}

func BenchmarkGetEntryByNumber(b *testing.B) {
	store, err := NewSQLiteStorage(filepath.Join(b.TempDir(), "bench.db"))
	if err != nil {
		b.Fatalf("Failed to create storage: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		b.Fatalf("Failed to migrate: %v", err)
	}

	for i := 0; i < 100; i++ {
		entry := makeTestEntry(fmt.Sprintf("TBA%09d", i), carrier.Amazon)
		if err := store.SaveEntry(ctx, entry); err != nil {
			b.Fatalf("Failed to seed entry: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := store.GetEntryByNumber(ctx, fmt.Sprintf("TBA%09d", i%100)); err != nil {
			b.Fatalf("Failed to get entry: %v", err)
		}
	}
}
