package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/trackhub/trackhub/internal/cli"
)

func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Check carriers for status updates",
		Long: `Poll the status API for every active package. New events are recorded,
status changes are notified, and delivered packages stop being polled.`,
		RunE: runRefresh,
	}
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	handler := cli.NewInterruptHandler(os.Stderr)
	ctx := handler.HandleInterrupts(cmd.Context(), "Packages checked so far kept their updates")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	trk, err := initTracker(store)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	stats, err := trk.Refresh(ctx, func(done, total int) {
		if bar == nil {
			bar = refreshBar(total)
		}
		_ = bar.Set(done)
	})
	// Cancellation is not a failure: every entry checked before the
	// interrupt already committed its update.
	if handler.WasInterrupted() || errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return err
	}

	if stats.Checked == 0 {
		fmt.Println(cli.FormatInfo("Nothing to refresh; every package is delivered, archived, or untrackable"))
		return nil
	}

	summary := fmt.Sprintf("Checked %d packages in %s: %d updated, %d delivered",
		stats.Checked, stats.Duration.Round(time.Second), stats.Updated, stats.Delivered)
	if stats.Failed > 0 {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("%s, %d failed", summary, stats.Failed)))
		return nil
	}
	fmt.Println(cli.FormatSuccess(summary))
	return nil
}

func refreshBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan]Checking packages...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}
