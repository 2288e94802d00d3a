package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackhub/trackhub/internal/carrier"
	"github.com/trackhub/trackhub/internal/storage"
	"github.com/trackhub/trackhub/internal/tracker"
)

// newTestModel builds a session over a real in-memory store seeded with the
// given tracking numbers, with the queue already loaded.
func newTestModel(t *testing.T, numbers ...string) (Model, *storage.SQLiteStorage) {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })

	tr, err := tracker.New(store, nil, nil)
	require.NoError(t, err)

	for _, n := range numbers {
		_, err = tr.Add(context.Background(), n, tracker.AddOptions{})
		require.NoError(t, err)
	}

	m := newModel(Options{Tracker: tr})
	return applyMsg(t, m, m.loadQueue()()), store
}

func applyMsg(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()

	updated, _ := m.Update(msg)
	rm, ok := updated.(Model)
	require.True(t, ok)
	return rm
}

func press(t *testing.T, m Model, k string) (Model, tea.Cmd) {
	t.Helper()

	var msg tea.Msg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+c":
		msg = tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}

	updated, cmd := m.Update(msg)
	rm, ok := updated.(Model)
	require.True(t, ok)
	return rm, cmd
}

func TestSessionLoadsQueue(t *testing.T) {
	// Both numbers detect below high confidence, so both need review.
	m, _ := newTestModel(t, "1234567890", "12345678901")

	assert.Equal(t, StateReview, m.state)
	assert.Len(t, m.queue, 2)
	assert.Equal(t, 0, m.cursor)
}

func TestSessionSkipsConfirmedEntries(t *testing.T) {
	// The 1Z number detects at high confidence and stays out of the queue.
	m, _ := newTestModel(t, "1Z12345678901234567890", "1234567890")

	require.Len(t, m.queue, 1)
	assert.Equal(t, "1234567890", m.queue[0].Number)
}

func TestEmptyQueueFinishesImmediately(t *testing.T) {
	m, _ := newTestModel(t)

	assert.Equal(t, StateDone, m.state)
	assert.Contains(t, m.View(), "Nothing needs review")
}

func TestNavigationStaysInBounds(t *testing.T) {
	m, _ := newTestModel(t, "1234567890", "12345678901")

	m, _ = press(t, m, "k")
	assert.Equal(t, 0, m.cursor)

	m, _ = press(t, m, "j")
	assert.Equal(t, 1, m.cursor)

	// Moving past the last entry ends the session.
	m, _ = press(t, m, "j")
	assert.Equal(t, StateDone, m.state)
}

func TestAcceptPersistsDecision(t *testing.T) {
	m, store := newTestModel(t, "1234567890")

	m, cmd := press(t, m, "a")
	require.NotNil(t, cmd)
	assert.True(t, m.saving)

	m = applyMsg(t, m, cmd())

	assert.Equal(t, 1, m.accepted)
	assert.Equal(t, StateDone, m.state)

	stored, err := store.GetEntryByNumber(context.Background(), "1234567890")
	require.NoError(t, err)
	assert.Equal(t, carrier.UPS, stored.Carrier)
	assert.Equal(t, carrier.ConfidenceHigh, stored.Confidence)
}

func TestAcceptAdvancesToNextEntry(t *testing.T) {
	m, _ := newTestModel(t, "1234567890", "12345678901")

	m, cmd := press(t, m, "a")
	require.NotNil(t, cmd)
	m = applyMsg(t, m, cmd())

	assert.Equal(t, StateReview, m.state)
	assert.Equal(t, 1, m.cursor)
}

func TestOverrideFlow(t *testing.T) {
	m, store := newTestModel(t, "1234567890")

	m, _ = press(t, m, "o")
	require.Equal(t, StatePick, m.state)
	assert.Equal(t, 0, m.pick, "picker starts on the current suggestion")

	m, _ = press(t, m, "j")
	m, _ = press(t, m, "j")
	assert.Equal(t, 2, m.pick)

	m, cmd := press(t, m, "enter")
	require.NotNil(t, cmd)
	m = applyMsg(t, m, cmd())

	assert.Equal(t, 1, m.overridden)
	assert.Equal(t, StateDone, m.state)

	stored, err := store.GetEntryByNumber(context.Background(), "1234567890")
	require.NoError(t, err)
	assert.Equal(t, carrier.USPS, stored.Carrier)
	assert.Equal(t, carrier.ConfidenceHigh, stored.Confidence)
}

func TestPickerQuickSelect(t *testing.T) {
	m, store := newTestModel(t, "1234567890")

	m, _ = press(t, m, "o")
	m, cmd := press(t, m, "4")
	require.NotNil(t, cmd)
	m = applyMsg(t, m, cmd())

	require.Equal(t, 1, m.overridden)

	stored, err := store.GetEntryByNumber(context.Background(), "1234567890")
	require.NoError(t, err)
	assert.Equal(t, carrier.DHL, stored.Carrier)
}

func TestPickerBacksOut(t *testing.T) {
	m, _ := newTestModel(t, "1234567890")

	m, _ = press(t, m, "o")
	require.Equal(t, StatePick, m.state)

	m, _ = press(t, m, "esc")
	assert.Equal(t, StateReview, m.state)
	assert.Equal(t, 0, m.overridden)
}

func TestSkipLeavesEntryUndecided(t *testing.T) {
	m, _ := newTestModel(t, "1234567890")

	m, _ = press(t, m, "s")

	assert.Equal(t, StateDone, m.state)
	assert.Equal(t, 0, m.accepted)

	s := m.summary()
	assert.Equal(t, 1, s.Remaining)
}

func TestHelpToggle(t *testing.T) {
	m, _ := newTestModel(t, "1234567890")

	m, _ = press(t, m, "?")
	require.Equal(t, StateHelp, m.state)
	assert.Contains(t, m.View(), "accept carrier")

	m, _ = press(t, m, "?")
	assert.Equal(t, StateReview, m.state)
}

func TestQuitKeys(t *testing.T) {
	m, _ := newTestModel(t, "1234567890")

	quit, cmd := press(t, m, "q")
	assert.True(t, quit.quitting)
	assert.NotNil(t, cmd)

	forced, cmd := press(t, m, "ctrl+c")
	assert.True(t, forced.quitting)
	assert.NotNil(t, cmd)
}

func TestReviewViewShowsEntry(t *testing.T) {
	m, _ := newTestModel(t, "1234567890", "12345678901")

	view := m.View()
	assert.Contains(t, view, "1234567890")
	assert.Contains(t, view, "UPS")
	assert.Contains(t, view, "medium")
	assert.Contains(t, view, "1 of 2")
}

func TestSaveErrorEndsSession(t *testing.T) {
	m, _ := newTestModel(t, "1234567890")

	m = applyMsg(t, m, reviewSavedMsg{err: errors.New("disk gone")})

	assert.True(t, m.quitting)
	assert.Error(t, m.lastErr)
}

func TestWindowResize(t *testing.T) {
	m, _ := newTestModel(t, "1234567890")

	m = applyMsg(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	assert.Equal(t, 120, m.width)
	assert.Equal(t, 40, m.height)
}

func TestSummaryCounts(t *testing.T) {
	m, _ := newTestModel(t, "1234567890", "12345678901")

	m, cmd := press(t, m, "a")
	require.NotNil(t, cmd)
	m = applyMsg(t, m, cmd())

	s := m.summary()
	assert.Equal(t, 1, s.Accepted)
	assert.Equal(t, 0, s.Overridden)
	assert.Equal(t, 1, s.Remaining)
}

func TestRunRequiresTracker(t *testing.T) {
	_, err := Run(context.Background(), Options{})
	require.Error(t, err)
}
