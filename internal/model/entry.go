// Package model defines the core data types shared across storage, sync, and
// the CLI: tracked entries, their status events, and scan captures.
package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/trackhub/trackhub/internal/carrier"
)

// Source records how an entry entered the system.
type Source string

const (
	SourceManual Source = "manual"
	SourceScan   Source = "scan"
	SourceSync   Source = "sync"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceManual, SourceScan, SourceSync:
		return true
	}
	return false
}

// Entry is one tracked shipment. Number is the canonical normalized tracking
// number and is the entry's identity: storage enforces uniqueness on it, and
// sync reconciles remote rows against it. Carrier starts as the detector's
// suggestion and may be overridden by the user at any time.
type Entry struct {
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
	LastCheckedAt *time.Time         `json:"lastCheckedAt,omitempty"`
	ID            string             `json:"id"`
	Number        string             `json:"normalizedNumber"`
	Display       string             `json:"display"`
	Label         string             `json:"label,omitempty"`
	Origin        string             `json:"origin,omitempty"`
	Carrier       carrier.Carrier    `json:"carrier"`
	Confidence    carrier.Confidence `json:"confidence"`
	Source        Source             `json:"source"`
	Status        Status             `json:"status"`
	Archived      bool               `json:"archived"`
}

// Validate checks the fields storage relies on.
func (e *Entry) Validate() error {
	if e.ID == "" {
		return errors.New("entry ID cannot be empty")
	}
	if e.Number == "" {
		return errors.New("entry number cannot be empty")
	}
	if !e.Carrier.Valid() {
		return fmt.Errorf("entry %s: invalid carrier %q", e.Number, e.Carrier)
	}
	if !e.Source.Valid() {
		return fmt.Errorf("entry %s: invalid source %q", e.Number, e.Source)
	}
	if e.Status != "" && !e.Status.Valid() {
		return fmt.Errorf("entry %s: invalid status %q", e.Number, e.Status)
	}
	return nil
}

// Delivered reports whether the entry reached a terminal status.
func (e *Entry) Delivered() bool {
	return e.Status.Terminal()
}

// NewerThan reports whether e carries a strictly more recent update than
// other. Sync uses it to decide which side of a conflict wins.
func (e *Entry) NewerThan(other *Entry) bool {
	return e.UpdatedAt.After(other.UpdatedAt)
}
