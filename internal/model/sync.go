package model

import "time"

// SyncState records where the last sync with a backend left off. Cursor is
// the newest remote UpdatedAt seen; the next pull asks only for rows after
// it. LastError keeps the most recent failure for `trackhub sync --status`.
type SyncState struct {
	Cursor       time.Time `json:"cursor"`
	LastSyncedAt time.Time `json:"lastSyncedAt"`
	Backend      string    `json:"backend"`
	LastError    string    `json:"lastError,omitempty"`
}
