// Demo harness for the review UI: seeds an in-memory database with guessed
// carriers and runs the full-screen session against it. Nothing touches the
// real database, so it is safe to mash keys.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/trackhub/trackhub/internal/storage"
	"github.com/trackhub/trackhub/internal/tracker"
	"github.com/trackhub/trackhub/internal/tui"
)

// Ambiguous numbers detect at medium or low confidence, which is what puts
// them in the review queue. The 1Z number is high confidence and shows that
// confident guesses stay out of the session.
var demoPackages = []struct {
	raw   string
	label string
}{
	{"1234567890", "mechanical keyboard"},
	{"12345678901", "espresso beans"},
	{"9400111206213851234567", "birthday present"},
	{"8005551234", "desk lamp"},
	{"1Z12345678901234567890", "running shoes"},
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(ctx); err != nil {
		return err
	}

	trk, err := tracker.New(store, nil, nil)
	if err != nil {
		return err
	}

	for _, p := range demoPackages {
		if _, err := trk.Add(ctx, p.raw, tracker.AddOptions{Label: p.label}); err != nil {
			return fmt.Errorf("failed to seed %s: %w", p.raw, err)
		}
	}

	summary, err := tui.Run(ctx, tui.Options{Tracker: trk})
	if err != nil {
		return err
	}

	fmt.Printf("accepted %d, corrected %d, remaining %d\n",
		summary.Accepted, summary.Overridden, summary.Remaining)
	return nil
}
