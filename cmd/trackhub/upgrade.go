package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/trackhub/trackhub/internal/cli"
	"github.com/trackhub/trackhub/internal/update"
)

func upgradeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade",
		Short: "Check for a newer release",
		RunE:  runUpgrade,
	}
}

func runUpgrade(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	checker := update.NewChecker(viper.GetString("update.releases_url"))
	info, err := checker.Check(ctx, version)
	if err != nil {
		return fmt.Errorf("update check failed: %w", err)
	}

	if !info.UpdateAvailable {
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("trackhub %s is the latest version", info.CurrentVersion)))
		if info.CurrentVersion != info.LatestVersion {
			fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("  latest release is %s", info.LatestVersion)))
		}
		return nil
	}

	fmt.Println(cli.FormatInfo(fmt.Sprintf("trackhub %s is available (you have %s)", info.LatestVersion, info.CurrentVersion)))
	fmt.Printf("  Upgrade with: %s\n", update.SuggestUpgradeCommand(update.DetectInstallMethod(), info.ReleaseURL))
	return nil
}
