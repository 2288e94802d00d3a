package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trackhub/trackhub/internal/cli"
)

func archiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <number>",
		Short: "Archive a package",
		Long: `Move a package out of the default list. Archived packages keep their
history, stop being refreshed, and still sync to other machines.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchive(cmd, args[0], true)
		},
	}
}

func unarchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unarchive <number>",
		Short: "Restore an archived package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchive(cmd, args[0], false)
		},
	}
}

func runArchive(cmd *cobra.Command, ref string, archived bool) error {
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

	entry, err := trk.Archive(ctx, ref, archived)
	if err != nil {
		return err
	}

	if archived {
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Archived %s", entry.Display)))
	} else {
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Restored %s", entry.Display)))
	}
	return nil
}
