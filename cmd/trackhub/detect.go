package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trackhub/trackhub/internal/carrier"
	"github.com/trackhub/trackhub/internal/cli"
)

func detectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect <number>",
		Short: "Detect the carrier for a tracking number",
		Long: `Run a tracking number through the carrier detector without storing
anything. Prints the canonical number, the display form, and the suggested
carrier with its confidence. Ambiguous shapes list every matching carrier.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runDetect,
	}

	cmd.Flags().Bool("json", false, "Print the detection as JSON")

	return cmd
}

func runDetect(cmd *cobra.Command, args []string) error {
	raw := strings.Join(args, " ")
	det := carrier.Suggest(raw)

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(det)
	}

	if det.Number == "" {
		fmt.Println(cli.FormatWarning("No tracking number found in input"))
		return nil
	}

	fmt.Println(cli.FormatTitle("Detection"))
	fmt.Printf("  Number:     %s\n", det.Display)
	if det.Changed {
		fmt.Printf("  Cleaned:    %s\n", cli.SubtleStyle.Render(fmt.Sprintf("from %q", raw)))
	}
	fmt.Printf("  Canonical:  %s\n", det.Number)
	fmt.Printf("  Carrier:    %s (%s)\n", det.Carrier.DisplayName(), cli.FormatConfidence(det.Confidence))
	if url := det.Carrier.TrackingURL(det.Number); url != "" {
		fmt.Printf("  Track at:   %s\n", cli.SubtleStyle.Render(url))
	}

	// A 12-digit number matches several carrier rules at once; show the
	// runners-up so the user knows the guess was contested.
	if others := contenders(det); len(others) > 0 {
		fmt.Printf("  Also fits:  %s\n", strings.Join(others, ", "))
		fmt.Println(cli.SubtleStyle.Render("  Correct a wrong guess with `trackhub set-carrier` or `trackhub review`."))
	}

	return nil
}

// contenders lists carriers other than the winner whose rules also matched.
func contenders(det carrier.Detection) []string {
	var others []string
	for _, m := range carrier.Default().MatchAll(det.Number) {
		if m.Carrier == det.Carrier {
			continue
		}
		others = append(others, fmt.Sprintf("%s (%s)", m.Carrier.DisplayName(), m.Confidence))
	}
	return others
}
