package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trackhub/trackhub/internal/cli"
)

func labelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "label <number> [text...]",
		Short: "Label a package",
		Long:  `Set a human-friendly label on a package. Omit the text to clear it.`,
		Args:  cobra.MinimumNArgs(1),
		RunE:  runLabel,
	}
}

func runLabel(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	label := strings.Join(args[1:], " ")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	trk, err := initTracker(store)
	if err != nil {
		return err
	}

	entry, err := trk.Label(ctx, args[0], label)
	if err != nil {
		return err
	}

	if label == "" {
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Cleared the label on %s", entry.Display)))
		return nil
	}
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("%s is now %q", entry.Display, label)))
	return nil
}
