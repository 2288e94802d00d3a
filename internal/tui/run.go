package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/trackhub/trackhub/internal/tracker"
)

// Options configures a review session.
type Options struct {
	Tracker *tracker.Tracker
}

// Summary reports what a review session accomplished.
type Summary struct {
	Accepted   int
	Overridden int
	Remaining  int
}

// Run walks the review queue in a full-screen terminal session and returns
// what the user decided. It blocks until the user finishes or the context is
// cancelled.
func Run(ctx context.Context, opts Options) (Summary, error) {
	if opts.Tracker == nil {
		return Summary{}, errors.New("tracker is required")
	}

	p := tea.NewProgram(
		newModel(opts),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
	)

	final, err := p.Run()
	if err != nil {
		return Summary{}, fmt.Errorf("review session failed: %w", err)
	}

	m, ok := final.(Model)
	if !ok {
		return Summary{}, errors.New("unexpected final model type")
	}
	return m.summary(), m.lastErr
}
