package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trackhub/trackhub/internal/carrier"
	"github.com/trackhub/trackhub/internal/cli"
)

func setCarrierCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-carrier <number> <carrier>",
		Short: "Correct the carrier for a package",
		Long: `Record the real carrier for a package the detector guessed wrong.
Your answer is kept at high confidence and the number's display form is
reformatted for the new carrier.`,
		Args: cobra.ExactArgs(2),
		RunE: runSetCarrier,
	}
}

func runSetCarrier(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cr, err := carrier.Parse(args[1])
	if err != nil {
		return err
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

	entry, err := trk.OverrideCarrier(ctx, args[0], cr)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("%s is now tracked as %s", entry.Display, cr.DisplayName())))
	return nil
}
