package main

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/trackhub/trackhub/internal/cli"
	"github.com/trackhub/trackhub/internal/scanner"
)

func scanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [file...]",
		Short: "Find tracking numbers in text",
		Long: `Scan files (or stdin when no files are given) for tracking numbers.
Shipment confirmations, order pages saved as text, and forwarded emails all
work. Matches print as a table; --add stores every find in one pass.`,
		RunE: runScan,
	}

	cmd.Flags().Bool("add", false, "Store every detected number")

	return cmd
}

// fileMatch remembers which input a match came from for the results table.
type fileMatch struct {
	match  scanner.Match
	source string
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	addAll, _ := cmd.Flags().GetBool("add")

	found, err := scanInputs(args)
	if err != nil {
		return err
	}

	if len(found) == 0 {
		fmt.Println(cli.FormatInfo("No tracking numbers found"))
		return nil
	}

	printScanResults(found)

	if !addAll {
		fmt.Println(cli.SubtleStyle.Render("Re-run with --add to track these packages."))
		return nil
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	trk, err := initTracker(store)
	if err != nil {
		return err
	}

	matches := make([]scanner.Match, 0, len(found))
	for _, fm := range found {
		matches = append(matches, fm.match)
	}

	result, err := trk.ImportScan(ctx, matches)
	if err != nil {
		return err
	}

	summary := fmt.Sprintf("Added %d new packages", len(result.Added))
	if result.Skipped > 0 {
		summary = fmt.Sprintf("%s (%d already tracked)", summary, result.Skipped)
	}
	fmt.Println(cli.FormatSuccess(summary))
	return nil
}

// scanInputs runs the scanner over every input, deduplicating by canonical
// number across files so the same confirmation forwarded twice counts once.
func scanInputs(paths []string) ([]fileMatch, error) {
	scn := scanner.New(nil)

	if len(paths) == 0 {
		text, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		var found []fileMatch
		for _, m := range scn.Scan(string(text)) {
			found = append(found, fileMatch{match: m, source: "stdin"})
		}
		return found, nil
	}

	var bar *progressbar.ProgressBar
	if len(paths) > 1 {
		bar = progressbar.NewOptions(len(paths),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("Scanning files..."),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(os.Stderr)
			}),
		)
	}

	var found []fileMatch
	seen := make(map[string]bool)
	for _, path := range paths {
		text, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		for _, m := range scn.Scan(string(text)) {
			if seen[m.Detection.Number] {
				continue
			}
			seen[m.Detection.Number] = true
			found = append(found, fileMatch{match: m, source: fmt.Sprintf("%s:%d", path, m.Line)})
		}

		if bar != nil {
			_ = bar.Add(1)
		}
	}
	return found, nil
}

func printScanResults(found []fileMatch) {
	fmt.Println(cli.FormatTitle(fmt.Sprintf("Found %d tracking numbers", len(found))))

	rows := make([][]string, 0, len(found))
	for _, fm := range found {
		det := fm.match.Detection
		rows = append(rows, []string{
			det.Display,
			det.Carrier.DisplayName(),
			cli.FormatConfidence(det.Confidence),
			fm.source,
		})
	}
	fmt.Println(renderTable([]string{"Number", "Carrier", "Confidence", "Source"}, rows))
}
