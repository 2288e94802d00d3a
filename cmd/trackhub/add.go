package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trackhub/trackhub/internal/carrier"
	"github.com/trackhub/trackhub/internal/cli"
	"github.com/trackhub/trackhub/internal/common"
	"github.com/trackhub/trackhub/internal/model"
	"github.com/trackhub/trackhub/internal/tracker"
)

func addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <number>",
		Short: "Track a new package",
		Long: `Store a tracking number. The carrier is detected automatically; pass
--carrier when you already know it. Low-confidence guesses prompt for
confirmation so a mis-detected carrier never slips in silently.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAdd,
	}

	cmd.Flags().String("carrier", "", "Carrier name (ups, fedex, usps, dhl, amazon, ontrac, lasership, other)")
	cmd.Flags().String("label", "", "Label for the package (e.g. \"birthday gift\")")
	cmd.Flags().String("origin", "", "Where the package came from (e.g. \"amazon.com\")")
	cmd.Flags().BoolP("yes", "y", false, "Skip the low-confidence confirmation prompt")

	return cmd
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	raw := strings.Join(args, " ")

	override, _ := cmd.Flags().GetString("carrier")
	label, _ := cmd.Flags().GetString("label")
	origin, _ := cmd.Flags().GetString("origin")
	assumeYes, _ := cmd.Flags().GetBool("yes")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	trk, err := initTracker(store)
	if err != nil {
		return err
	}

	det := trk.Detect(raw)
	if det.Number == "" {
		return common.NewUserError("no tracking number found in input", nil)
	}

	// An explicit carrier is a human answer; only the detector's own guesses
	// need a second look.
	if override == "" && !assumeYes {
		proceed, promptErr := confirmGuess(cmd, det)
		if promptErr != nil {
			return promptErr
		}
		if !proceed {
			fmt.Println(cli.FormatInfo("Nothing stored. Re-run with --carrier to name the carrier yourself."))
			return nil
		}
	}

	entry, err := trk.Add(ctx, raw, tracker.AddOptions{
		Carrier: override,
		Label:   label,
		Origin:  origin,
	})
	if errors.Is(err, common.ErrDuplicateEntry) {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("Already tracking %s", det.Display)))
		return nil
	}
	if err != nil {
		return err
	}

	printEntryStored(entry, det, raw)
	return nil
}

// confirmGuess asks before storing a shaky detection. High confidence stores
// silently, medium stores with a warning, low asks first.
func confirmGuess(cmd *cobra.Command, det carrier.Detection) (bool, error) {
	switch det.Confidence {
	case carrier.ConfidenceHigh:
		return true, nil
	case carrier.ConfidenceMedium:
		fmt.Println(cli.FormatWarning(fmt.Sprintf("Guessed %s with medium confidence; fix later with `trackhub review`",
			det.Carrier.DisplayName())))
		return true, nil
	default:
		prompter := cli.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
		return prompter.Confirm(cmd.Context(),
			fmt.Sprintf("Carrier guess is %s (low confidence). Store anyway?", det.Carrier.DisplayName()),
			true)
	}
}

func printEntryStored(entry *model.Entry, det carrier.Detection, raw string) {
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Tracking %s", entry.Display)))
	if det.Changed {
		fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("  cleaned up from %q", raw)))
	}
	fmt.Printf("  Carrier: %s (%s)\n", entry.Carrier.DisplayName(), cli.FormatConfidence(entry.Confidence))
	if entry.Label != "" {
		fmt.Printf("  Label:   %s\n", entry.Label)
	}
	if entry.Origin != "" {
		fmt.Printf("  Origin:  %s\n", entry.Origin)
	}
	if url := entry.Carrier.TrackingURL(entry.Number); url != "" {
		fmt.Printf("  Track:   %s\n", cli.SubtleStyle.Render(url))
	}
}
