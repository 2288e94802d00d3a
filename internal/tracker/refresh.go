package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/trackhub/trackhub/internal/carrier"
	"github.com/trackhub/trackhub/internal/common"
	"github.com/trackhub/trackhub/internal/model"
	"github.com/trackhub/trackhub/internal/service"
)

// ProgressFunc reports refresh progress after each entry.
type ProgressFunc func(done, total int)

// Refresh polls the status provider for every active entry that can still
// move: archived entries, delivered or returned shipments, and carriers we
// cannot query are skipped. New events append idempotently; a status
// transition updates the entry and sends a notification. Per-entry failures
// are counted and logged so one carrier hiccup does not abort the run.
func (t *Tracker) Refresh(ctx context.Context, progress ProgressFunc) (*service.RefreshStats, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}
	if t.provider == nil {
		return nil, common.NewUserError("status checks need the hosted API; set api.base_url in your config", common.ErrMissingConfig)
	}

	start := time.Now().UTC()

	entries, err := t.storage.ListEntries(ctx, service.EntryFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	candidates := lo.Filter(entries, func(e model.Entry, _ int) bool {
		return refreshable(&e)
	})

	t.logger.Info("Starting refresh", "entries", len(candidates))

	stats := &service.RefreshStats{}
	total := len(candidates)
	for i := range candidates {
		select {
		case <-ctx.Done():
			stats.Duration = time.Since(start)
			return stats, ctx.Err()
		default:
		}

		entry := candidates[i]
		stats.Checked++
		if err := t.refreshEntry(ctx, &entry, stats); err != nil {
			stats.Failed++
			t.logger.Warn("Failed to refresh entry", "number", entry.Number, "error", err)
		}
		if progress != nil {
			progress(i+1, total)
		}
	}

	stats.Duration = time.Since(start)
	t.logger.Info("Refresh finished",
		"checked", stats.Checked,
		"updated", stats.Updated,
		"delivered", stats.Delivered,
		"failed", stats.Failed,
		"duration", stats.Duration)
	return stats, nil
}

// refreshable reports whether a status poll can tell us anything new.
func refreshable(e *model.Entry) bool {
	if e.Status.Terminal() {
		return false
	}
	return e.Carrier != carrier.Other && e.Carrier != carrier.None
}

func (t *Tracker) refreshEntry(ctx context.Context, entry *model.Entry, stats *service.RefreshStats) error {
	info, err := t.provider.Track(ctx, entry.Carrier, entry.Number)
	if err != nil {
		return err
	}

	if err := t.appendEvents(ctx, entry.ID, info.Events); err != nil {
		return err
	}

	from := entry.Status
	now := time.Now().UTC()
	entry.LastCheckedAt = &now

	changed := info.Status != "" && info.Status != from
	if changed {
		entry.Status = info.Status
		// Only a real transition bumps UpdatedAt; a quiet poll should not
		// ripple through sync.
		entry.UpdatedAt = now
		stats.Updated++
		if info.Status == model.StatusDelivered {
			stats.Delivered++
		}
	}

	if err := t.storage.UpdateEntry(ctx, entry); err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}

	if changed {
		t.notifyTransition(ctx, entry, from, info.Status, info.Events)
	}
	return nil
}

// appendEvents stamps identities onto carrier events and stores them.
// Carriers resend full history on every poll; the storage layer drops
// events it has already seen.
func (t *Tracker) appendEvents(ctx context.Context, entryID string, incoming []model.Event) error {
	if len(incoming) == 0 {
		return nil
	}

	now := time.Now().UTC()
	events := make([]model.Event, 0, len(incoming))
	for _, ev := range incoming {
		ev.ID = uuid.New().String()
		ev.EntryID = entryID
		ev.CreatedAt = now
		events = append(events, ev)
	}

	if err := t.storage.SaveEvents(ctx, events); err != nil {
		return fmt.Errorf("failed to save events: %w", err)
	}
	return nil
}

func (t *Tracker) notifyTransition(ctx context.Context, entry *model.Entry, from, to model.Status, events []model.Event) {
	if t.notifier == nil || !t.notifier.Enabled() {
		return
	}

	var err error
	switch to {
	case model.StatusDelivered:
		err = t.notifier.NotifyDelivered(ctx, entry)
	case model.StatusException:
		err = t.notifier.NotifyException(ctx, entry, latestMessage(events))
	default:
		err = t.notifier.NotifyStatusChanged(ctx, entry, from, to)
	}
	if err != nil {
		t.logger.Warn("Failed to send notification", "number", entry.Number, "error", err)
	}
}

// latestMessage returns the message of the newest event that has one.
func latestMessage(events []model.Event) string {
	message := ""
	var latest time.Time
	for _, ev := range events {
		if ev.Message == "" {
			continue
		}
		if message == "" || ev.OccurredAt.After(latest) {
			latest = ev.OccurredAt
			message = ev.Message
		}
	}
	return message
}
