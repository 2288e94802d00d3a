package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trackhub/trackhub/internal/cli"
)

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events <number>",
		Short: "Show the status history for a package",
		Args:  cobra.ExactArgs(1),
		RunE:  runEvents,
	}

	cmd.Flags().Bool("json", false, "Print events as JSON")

	return cmd
}

func runEvents(cmd *cobra.Command, args []string) error {
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

	entry, events, err := trk.Events(ctx, args[0])
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(events)
	}

	title := entry.Display
	if entry.Label != "" {
		title = fmt.Sprintf("%s (%s)", entry.Label, entry.Display)
	}
	fmt.Println(cli.FormatTitle(title))
	fmt.Printf("  %s · %s %s\n", entry.Carrier.DisplayName(), cli.StatusIcon(entry.Status), cli.FormatStatus(entry.Status))
	if url := entry.Carrier.TrackingURL(entry.Number); url != "" {
		fmt.Printf("  %s\n", cli.SubtleStyle.Render(url))
	}
	fmt.Println()

	if len(events) == 0 {
		fmt.Println(cli.FormatInfo("No events recorded yet. Run `trackhub refresh` to poll the carrier."))
		return nil
	}

	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		rows = append(rows, []string{
			ev.OccurredAt.Local().Format("2006-01-02 15:04"),
			cli.FormatStatus(ev.Status),
			ev.Location,
			strings.TrimSpace(ev.Message),
		})
	}
	fmt.Println(renderTable([]string{"Time", "Status", "Location", "Detail"}, rows))
	return nil
}
