package testutil

import (
	"time"

	"github.com/trackhub/trackhub/internal/carrier"
	"github.com/trackhub/trackhub/internal/model"
)

// EntryBuilder assembles entry fixtures. The defaults describe a freshly
// added UPS package so tests only state the fields they assert on.
type EntryBuilder struct {
	entry model.Entry
}

// Entry starts a builder for the given tracking number.
func Entry(number string) *EntryBuilder {
	now := time.Now().UTC()
	return &EntryBuilder{entry: model.Entry{
		ID:         "id-" + number,
		Number:     number,
		Display:    number,
		Carrier:    carrier.UPS,
		Confidence: carrier.ConfidenceHigh,
		Source:     model.SourceManual,
		CreatedAt:  now.Add(-time.Hour),
		UpdatedAt:  now,
	}}
}

// Carrier sets the carrier.
func (b *EntryBuilder) Carrier(c carrier.Carrier) *EntryBuilder {
	b.entry.Carrier = c
	return b
}

// Confidence sets the detection confidence.
func (b *EntryBuilder) Confidence(c carrier.Confidence) *EntryBuilder {
	b.entry.Confidence = c
	return b
}

// Status sets the delivery status.
func (b *EntryBuilder) Status(s model.Status) *EntryBuilder {
	b.entry.Status = s
	return b
}

// Label sets the user label.
func (b *EntryBuilder) Label(label string) *EntryBuilder {
	b.entry.Label = label
	return b
}

// Origin sets where the package was ordered.
func (b *EntryBuilder) Origin(origin string) *EntryBuilder {
	b.entry.Origin = origin
	return b
}

// Archived marks the entry archived.
func (b *EntryBuilder) Archived() *EntryBuilder {
	b.entry.Archived = true
	return b
}

// Timestamps pins creation and update times, for tests that depend on sync
// watermarks or ordering.
func (b *EntryBuilder) Timestamps(created, updated time.Time) *EntryBuilder {
	b.entry.CreatedAt = created
	b.entry.UpdatedAt = updated
	return b
}

// LastChecked records when the carrier was last polled.
func (b *EntryBuilder) LastChecked(ts time.Time) *EntryBuilder {
	b.entry.LastCheckedAt = &ts
	return b
}

// Build returns the assembled entry.
func (b *EntryBuilder) Build() model.Entry {
	return b.entry
}
