// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/trackhub/trackhub/internal/carrier"
	"github.com/trackhub/trackhub/internal/model"
)

// EntryFilter defines filtering options for entry queries.
type EntryFilter struct {
	Carrier         *carrier.Carrier
	Status          *model.Status
	Search          string
	Limit           int
	Offset          int
	IncludeArchived bool
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Entry operations
	SaveEntry(ctx context.Context, entry *model.Entry) error
	GetEntryByID(ctx context.Context, id string) (*model.Entry, error)
	GetEntryByNumber(ctx context.Context, number string) (*model.Entry, error)
	ListEntries(ctx context.Context, filter EntryFilter) ([]model.Entry, error)
	CountEntries(ctx context.Context, filter EntryFilter) (int, error)
	UpdateEntry(ctx context.Context, entry *model.Entry) error
	SetEntryArchived(ctx context.Context, id string, archived bool) error
	DeleteEntry(ctx context.Context, id string) error

	// Sync operations. UpsertEntry writes the given timestamps verbatim so
	// remote rows keep their history; GetEntriesUpdatedSince feeds the push
	// set.
	UpsertEntry(ctx context.Context, entry *model.Entry) error
	GetEntriesUpdatedSince(ctx context.Context, since time.Time) ([]model.Entry, error)
	GetSyncState(ctx context.Context, backend string) (*model.SyncState, error)
	SaveSyncState(ctx context.Context, state *model.SyncState) error

	// Event operations
	SaveEvents(ctx context.Context, events []model.Event) error
	GetEvents(ctx context.Context, entryID string) ([]model.Event, error)

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}

// TrackInfo is a carrier's current view of one shipment. Events carry no IDs
// yet; the caller assigns them when persisting.
type TrackInfo struct {
	Status model.Status
	Events []model.Event
}

// StatusProvider polls a carrier network for shipment progress.
type StatusProvider interface {
	Track(ctx context.Context, c carrier.Carrier, number string) (*TrackInfo, error)
}

// RemoteStore is a remote copy of the entry set, reconciled by sync.
type RemoteStore interface {
	Pull(ctx context.Context, since time.Time) ([]model.Entry, error)
	Push(ctx context.Context, entries []model.Entry) error
}

// Notifier delivers out-of-band alerts about shipment progress. A noop
// implementation stands in when the user has not configured a channel, so
// callers never nil-check.
type Notifier interface {
	NotifyStatusChanged(ctx context.Context, entry *model.Entry, from, to model.Status) error
	NotifyDelivered(ctx context.Context, entry *model.Entry) error
	NotifyException(ctx context.Context, entry *model.Entry, detail string) error
	NotifySyncCompleted(ctx context.Context, pulled, pushed, failed int) error
	TestNotification(ctx context.Context) error
	Enabled() bool
}

// RefreshStats shows the results of a status refresh run.
type RefreshStats struct {
	Checked   int
	Updated   int
	Delivered int
	Failed    int
	Duration  time.Duration
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
