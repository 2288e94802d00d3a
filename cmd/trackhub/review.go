package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trackhub/trackhub/internal/cli"
	"github.com/trackhub/trackhub/internal/tui"
)

func reviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "Review carrier guesses interactively",
		Long: `Walk through every package whose carrier is still a detector guess and
confirm or correct it. Confirmed answers stop appearing in the queue.`,
		RunE: runReview,
	}
}

func runReview(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	trk, err := initTracker(store)
	if err != nil {
		return err
	}

	summary, err := tui.Run(ctx, tui.Options{Tracker: trk})
	if err != nil {
		return err
	}

	if summary.Accepted == 0 && summary.Overridden == 0 {
		if summary.Remaining > 0 {
			fmt.Println(cli.FormatInfo(fmt.Sprintf("%d guesses still waiting for review", summary.Remaining)))
		}
		return nil
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Confirmed %d and corrected %d carriers",
		summary.Accepted, summary.Overridden)))
	if summary.Remaining > 0 {
		fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("%d left for later", summary.Remaining)))
	}
	return nil
}
