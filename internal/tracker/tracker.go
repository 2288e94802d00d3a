// Package tracker implements the operations behind the CLI commands: adding
// entries, correcting carriers, archiving, refreshing status, and importing
// scanner output. Commands stay thin by delegating here, so every entry
// point shares one implementation of the business rules.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/trackhub/trackhub/internal/carrier"
	"github.com/trackhub/trackhub/internal/common"
	"github.com/trackhub/trackhub/internal/model"
	"github.com/trackhub/trackhub/internal/scanner"
	"github.com/trackhub/trackhub/internal/service"
)

// Tracker orchestrates entry management over storage, the status provider,
// and the notifier.
type Tracker struct {
	storage  service.Storage
	provider service.StatusProvider
	notifier service.Notifier
	detector *carrier.Detector
	logger   *slog.Logger
}

// New creates a tracker. The provider may be nil when the status API is not
// configured; only Refresh needs it. A nil notifier disables notifications.
func New(storage service.Storage, provider service.StatusProvider, notifier service.Notifier) (*Tracker, error) {
	if storage == nil {
		return nil, fmt.Errorf("storage cannot be nil")
	}

	return &Tracker{
		storage:  storage,
		provider: provider,
		notifier: notifier,
		detector: carrier.NewDetector(nil),
		logger:   slog.Default().With("component", "tracker"),
	}, nil
}

// AddOptions adjusts how an entry is created.
type AddOptions struct {
	// Carrier overrides the detector's suggestion when the user already
	// knows the answer. Accepts the names and aliases carrier.Parse does.
	Carrier string
	Label   string
	Origin  string
	// Source defaults to manual entry.
	Source model.Source
}

// Detect runs the carrier suggestion pipeline without storing anything.
func (t *Tracker) Detect(raw string) carrier.Detection {
	return t.detector.Suggest(raw)
}

// Add detects, dedupes, and stores one tracking number. The entry keeps the
// detector's carrier suggestion unless the options override it; an override
// counts as a human answer and is stored at high confidence.
func (t *Tracker) Add(ctx context.Context, raw string, opts AddOptions) (*model.Entry, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	det := t.detector.Suggest(raw)
	if det.Number == "" {
		return nil, common.NewUserError("no tracking number found in input", nil)
	}

	source := opts.Source
	if source == "" {
		source = model.SourceManual
	}

	entry := &model.Entry{
		ID:         uuid.New().String(),
		Number:     det.Number,
		Display:    det.Display,
		Carrier:    det.Carrier,
		Confidence: det.Confidence,
		Label:      opts.Label,
		Origin:     opts.Origin,
		Source:     source,
	}

	if opts.Carrier != "" {
		cr, err := carrier.Parse(opts.Carrier)
		if err != nil {
			return nil, err
		}
		entry.Carrier = cr
		entry.Confidence = carrier.ConfidenceHigh
		entry.Display = carrier.FormatForDisplay(cr, det.Number)
	}

	if err := t.storage.SaveEntry(ctx, entry); err != nil {
		return nil, err
	}

	t.logger.Info("Added entry",
		"number", entry.Number,
		"carrier", entry.Carrier,
		"confidence", entry.Confidence,
		"source", entry.Source)
	return entry, nil
}

// OverrideCarrier records the user's carrier correction for an entry. A
// human answer outranks any guess, so confidence becomes high and the
// display form is recomputed for the new carrier. The canonical number
// never changes.
func (t *Tracker) OverrideCarrier(ctx context.Context, ref string, cr carrier.Carrier) (*model.Entry, error) {
	if !cr.Valid() {
		return nil, fmt.Errorf("invalid carrier %q", cr)
	}

	entry, err := t.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	entry.Carrier = cr
	entry.Confidence = carrier.ConfidenceHigh
	entry.Display = carrier.FormatForDisplay(cr, entry.Number)
	entry.UpdatedAt = time.Now().UTC()

	if err := t.storage.UpdateEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to update entry: %w", err)
	}

	t.logger.Info("Carrier overridden", "number", entry.Number, "carrier", cr)
	return entry, nil
}

// Accept records the user's confirmation of the suggested carrier. The
// carrier stays as detected; only the confidence is promoted to high, which
// takes the entry out of the review queue.
func (t *Tracker) Accept(ctx context.Context, ref string) (*model.Entry, error) {
	entry, err := t.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	entry.Confidence = carrier.ConfidenceHigh
	entry.UpdatedAt = time.Now().UTC()

	if err := t.storage.UpdateEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to update entry: %w", err)
	}

	t.logger.Info("Carrier confirmed", "number", entry.Number, "carrier", entry.Carrier)
	return entry, nil
}

// Label sets or clears an entry's label.
func (t *Tracker) Label(ctx context.Context, ref, label string) (*model.Entry, error) {
	entry, err := t.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	entry.Label = label
	entry.UpdatedAt = time.Now().UTC()

	if err := t.storage.UpdateEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to update entry: %w", err)
	}
	return entry, nil
}

// Archive moves an entry in or out of the archive.
func (t *Tracker) Archive(ctx context.Context, ref string, archived bool) (*model.Entry, error) {
	entry, err := t.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	if err := t.storage.SetEntryArchived(ctx, entry.ID, archived); err != nil {
		return nil, err
	}

	entry.Archived = archived
	return entry, nil
}

// Remove deletes an entry and its event history. The removed entry is
// returned so callers can name what went away.
func (t *Tracker) Remove(ctx context.Context, ref string) (*model.Entry, error) {
	entry, err := t.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	if err := t.storage.DeleteEntry(ctx, entry.ID); err != nil {
		return nil, err
	}

	t.logger.Info("Removed entry", "number", entry.Number)
	return entry, nil
}

// List returns entries matching the filter.
func (t *Tracker) List(ctx context.Context, filter service.EntryFilter) ([]model.Entry, error) {
	return t.storage.ListEntries(ctx, filter)
}

// Count returns how many entries match the filter.
func (t *Tracker) Count(ctx context.Context, filter service.EntryFilter) (int, error) {
	return t.storage.CountEntries(ctx, filter)
}

// ReviewQueue returns the active entries whose carrier assignment still
// rests on a detector guess below high confidence, oldest first so the
// longest-waiting guesses surface before fresh ones.
func (t *Tracker) ReviewQueue(ctx context.Context) ([]model.Entry, error) {
	entries, err := t.storage.ListEntries(ctx, service.EntryFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	queue := lo.Filter(entries, func(e model.Entry, _ int) bool {
		return e.Confidence != carrier.ConfidenceHigh
	})
	return lo.Reverse(queue), nil
}

// Events returns an entry and its status history, newest first.
func (t *Tracker) Events(ctx context.Context, ref string) (*model.Entry, []model.Event, error) {
	entry, err := t.Resolve(ctx, ref)
	if err != nil {
		return nil, nil, err
	}

	events, err := t.storage.GetEvents(ctx, entry.ID)
	if err != nil {
		return nil, nil, err
	}
	return entry, events, nil
}

// ImportResult reports what a scan import did.
type ImportResult struct {
	Added   []model.Entry
	Skipped int
}

// ImportScan stores scanner matches as scan-sourced entries, skipping
// numbers already tracked. Matches from multiple scans may repeat, so the
// batch is deduplicated by canonical number first.
func (t *Tracker) ImportScan(ctx context.Context, matches []scanner.Match) (*ImportResult, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	unique := lo.UniqBy(matches, func(m scanner.Match) string {
		return m.Detection.Number
	})

	result := &ImportResult{}
	for _, m := range unique {
		entry := &model.Entry{
			ID:         uuid.New().String(),
			Number:     m.Detection.Number,
			Display:    m.Detection.Display,
			Carrier:    m.Detection.Carrier,
			Confidence: m.Detection.Confidence,
			Source:     model.SourceScan,
		}

		err := t.storage.SaveEntry(ctx, entry)
		if errors.Is(err, common.ErrDuplicateEntry) {
			result.Skipped++
			continue
		}
		if err != nil {
			return result, fmt.Errorf("failed to save entry %s: %w", m.Detection.Number, err)
		}
		result.Added = append(result.Added, *entry)
	}

	t.logger.Info("Imported scan results",
		"added", len(result.Added),
		"skipped", result.Skipped)
	return result, nil
}

// Resolve finds an entry by canonical tracking number (raw input is
// normalized first, so display forms work) or, failing that, by ID.
func (t *Tracker) Resolve(ctx context.Context, ref string) (*model.Entry, error) {
	if number := carrier.Normalize(ref); number != "" {
		entry, err := t.storage.GetEntryByNumber(ctx, number)
		if err == nil {
			return entry, nil
		}
		if !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
	}

	entry, err := t.storage.GetEntryByID(ctx, ref)
	if errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("%w: no entry matches %q", common.ErrNotFound, ref)
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}
