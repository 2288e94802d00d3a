// Package tui implements the interactive review session behind the review
// command: a full-screen walk over every entry whose carrier is still a
// detector guess, where the user confirms the suggestion or picks the right
// carrier by hand.
package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"

	"github.com/trackhub/trackhub/internal/carrier"
	"github.com/trackhub/trackhub/internal/model"
	"github.com/trackhub/trackhub/internal/tracker"
)

// State represents the current state of the session.
type State int

const (
	StateLoading State = iota
	StateReview
	StatePick
	StateHelp
	StateDone
)

// Model holds the review session state.
type Model struct {
	tracker    *tracker.Tracker
	lastErr    error
	queue      []model.Entry
	carriers   []carrier.Carrier
	keymap     KeyMap
	prevState  State
	state      State
	cursor     int
	pick       int
	accepted   int
	overridden int
	width      int
	height     int
	saving     bool
	quitting   bool
}

// newModel creates a session over the given tracker.
func newModel(opts Options) Model {
	return Model{
		tracker:  opts.Tracker,
		carriers: append(carrier.Known(), carrier.Other),
		keymap:   DefaultKeyMap(),
		state:    StateLoading,
		width:    80,
		height:   24,
	}
}

// Init kicks off the queue load.
func (m Model) Init() tea.Cmd {
	return m.loadQueue()
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		next, cmd := m.handleKey(msg)
		return next, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case queueLoadedMsg:
		if msg.err != nil {
			m.lastErr = msg.err
			m.quitting = true
			return m, tea.Quit
		}
		m.queue = msg.entries
		if len(m.queue) == 0 {
			m.state = StateDone
		} else {
			m.state = StateReview
		}

	case reviewSavedMsg:
		m.saving = false
		if msg.err != nil {
			m.lastErr = msg.err
			m.quitting = true
			return m, tea.Quit
		}
		if msg.entry != nil && m.cursor < len(m.queue) {
			m.queue[m.cursor] = *msg.entry
		}
		if msg.overrode {
			m.overridden++
		} else {
			m.accepted++
		}
		m.state = StateReview
		m.advance()
	}

	return m, nil
}

// handleKey dispatches a key press by session state.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.ForceQuit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Help):
		if m.state == StateHelp {
			m.state = m.prevState
		} else {
			m.prevState = m.state
			m.state = StateHelp
		}
		return m, nil
	}

	switch m.state {
	case StateReview:
		return m.handleReviewKey(msg)
	case StatePick:
		return m.handlePickKey(msg)
	case StateHelp:
		if key.Matches(msg, m.keymap.Back) || key.Matches(msg, m.keymap.Quit) {
			m.state = m.prevState
		}
	case StateDone:
		if key.Matches(msg, m.keymap.Quit) || key.Matches(msg, m.keymap.Select) {
			m.quitting = true
			return m, tea.Quit
		}
	case StateLoading:
		if key.Matches(msg, m.keymap.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// handleReviewKey handles keys while an entry card is showing.
func (m Model) handleReviewKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.saving {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keymap.Down), key.Matches(msg, m.keymap.Skip):
		m.advance()

	case key.Matches(msg, m.keymap.Accept), key.Matches(msg, m.keymap.Select):
		m.saving = true
		return m, m.acceptCurrent()

	case key.Matches(msg, m.keymap.Override):
		m.state = StatePick
		m.pick = m.pickIndex(m.current().Carrier)
	}

	return m, nil
}

// handlePickKey handles keys while the carrier picker is showing.
func (m Model) handlePickKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.saving {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Back):
		m.state = StateReview

	case key.Matches(msg, m.keymap.Up):
		if m.pick > 0 {
			m.pick--
		}

	case key.Matches(msg, m.keymap.Down):
		if m.pick < len(m.carriers)-1 {
			m.pick++
		}

	case key.Matches(msg, m.keymap.Select):
		m.saving = true
		return m, m.overrideCurrent(m.carriers[m.pick])

	default:
		if i := quickIndex(msg); i >= 0 && i < len(m.carriers) {
			m.pick = i
			m.saving = true
			return m, m.overrideCurrent(m.carriers[i])
		}
	}

	return m, nil
}

// advance moves to the next entry, or finishes when the queue is exhausted.
func (m *Model) advance() {
	if m.cursor < len(m.queue)-1 {
		m.cursor++
		return
	}
	m.state = StateDone
}

// current returns the entry under the cursor, or nil past the end.
func (m Model) current() *model.Entry {
	if m.cursor < 0 || m.cursor >= len(m.queue) {
		return nil
	}
	return &m.queue[m.cursor]
}

// pickIndex returns the picker position of a carrier, defaulting to the top.
func (m Model) pickIndex(c carrier.Carrier) int {
	if i := lo.IndexOf(m.carriers, c); i >= 0 {
		return i
	}
	return 0
}

// summary reports what the session accomplished so far.
func (m Model) summary() Summary {
	remaining := lo.CountBy(m.queue, func(e model.Entry) bool {
		return e.Confidence != carrier.ConfidenceHigh
	})

	return Summary{
		Accepted:   m.accepted,
		Overridden: m.overridden,
		Remaining:  remaining,
	}
}

// quickIndex maps a digit key to a picker position.
func quickIndex(msg tea.KeyMsg) int {
	s := msg.String()
	if len(s) != 1 || s[0] < '1' || s[0] > '9' {
		return -1
	}
	return int(s[0] - '1')
}
