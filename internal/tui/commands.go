package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/trackhub/trackhub/internal/carrier"
)

const commandTimeout = 10 * time.Second

// loadQueue fetches the entries still waiting on a carrier decision.
func (m Model) loadQueue() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		entries, err := m.tracker.ReviewQueue(ctx)
		return queueLoadedMsg{entries: entries, err: err}
	}
}

// acceptCurrent persists the user's confirmation of the suggested carrier.
func (m Model) acceptCurrent() tea.Cmd {
	entry := m.current()
	if entry == nil {
		return nil
	}
	id := entry.ID

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		updated, err := m.tracker.Accept(ctx, id)
		return reviewSavedMsg{entry: updated, err: err}
	}
}

// overrideCurrent persists the user's carrier correction.
func (m Model) overrideCurrent(cr carrier.Carrier) tea.Cmd {
	entry := m.current()
	if entry == nil {
		return nil
	}
	id := entry.ID

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		updated, err := m.tracker.OverrideCarrier(ctx, id, cr)
		return reviewSavedMsg{entry: updated, err: err, overrode: true}
	}
}
