package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trackhub/trackhub/internal/cli"
)

func removeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <number>",
		Short: "Delete a package and its history",
		Long: `Delete a package permanently, including its event history. Prefer
archive when you just want it out of the list; remove cannot be undone.`,
		Args: cobra.ExactArgs(1),
		RunE: runRemove,
	}

	cmd.Flags().BoolP("force", "f", false, "Skip the confirmation prompt")

	return cmd
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	force, _ := cmd.Flags().GetBool("force")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	trk, err := initTracker(store)
	if err != nil {
		return err
	}

	entry, err := trk.Resolve(ctx, args[0])
	if err != nil {
		return err
	}

	if !force {
		prompter := cli.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
		confirmed, promptErr := prompter.Confirm(ctx,
			fmt.Sprintf("Remove %s and its event history?", entry.Display), false)
		if promptErr != nil {
			return promptErr
		}
		if !confirmed {
			fmt.Println(cli.FormatInfo("Nothing removed"))
			return nil
		}
	}

	removed, err := trk.Remove(ctx, entry.ID)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Removed %s", removed.Display)))
	return nil
}
