package model

import (
	"errors"
	"time"
)

// Event is one status observation for an entry, either reported by a carrier
// poll or recorded locally when the user changes something worth auditing.
type Event struct {
	OccurredAt time.Time `json:"occurredAt"`
	CreatedAt  time.Time `json:"createdAt"`
	ID         string    `json:"id"`
	EntryID    string    `json:"entryId"`
	Status     Status    `json:"status"`
	Message    string    `json:"message,omitempty"`
	Location   string    `json:"location,omitempty"`
}

// Validate checks the fields storage relies on.
func (ev *Event) Validate() error {
	if ev.ID == "" {
		return errors.New("event ID cannot be empty")
	}
	if ev.EntryID == "" {
		return errors.New("event entry ID cannot be empty")
	}
	if !ev.Status.Valid() {
		return errors.New("event status cannot be empty")
	}
	return nil
}
