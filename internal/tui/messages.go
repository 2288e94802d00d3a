package tui

import "github.com/trackhub/trackhub/internal/model"

// queueLoadedMsg delivers the review queue snapshot.
type queueLoadedMsg struct {
	err     error
	entries []model.Entry
}

// reviewSavedMsg reports a persisted accept or override decision.
type reviewSavedMsg struct {
	err      error
	entry    *model.Entry
	overrode bool
}
