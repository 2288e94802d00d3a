package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/trackhub/trackhub/internal/auth"
	"github.com/trackhub/trackhub/internal/cli"
	"github.com/trackhub/trackhub/internal/common"
	"github.com/trackhub/trackhub/internal/config"
	"github.com/trackhub/trackhub/internal/model"
	"github.com/trackhub/trackhub/internal/service"
	"github.com/trackhub/trackhub/internal/sheets"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the tracking list",
	}

	cmd.AddCommand(exportSheetsCmd())
	cmd.AddCommand(exportCSVCmd())

	return cmd
}

func exportSheetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sheets",
		Short: "Export to Google Sheets",
		Long: `Replace the configured spreadsheet's contents with the current list.
Needs either a service account key or a prior
` + "`trackhub auth login --provider google`.",
		RunE: runExportSheets,
	}
}

func runExportSheets(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.LoadSheetsConfig()
	if err != nil {
		return err
	}

	var tokens oauth2.TokenSource
	if cfg.ServiceAccountPath == "" {
		provider, providerErr := googleProvider()
		if providerErr != nil {
			return providerErr
		}

		token, tokenErr := auth.TokenForProvider(ctx, credentialStore(), provider)
		if errors.Is(tokenErr, common.ErrNotFound) {
			return common.NewUserError("not signed in to Google; run `trackhub auth login --provider google`", tokenErr)
		}
		if tokenErr != nil {
			return tokenErr
		}
		tokens = oauth2.StaticTokenSource(token)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.ListEntries(ctx, service.EntryFilter{IncludeArchived: true})
	if err != nil {
		return err
	}

	writer, err := sheets.NewWriter(ctx, *cfg, tokens, nil)
	if err != nil {
		return err
	}

	if err := writer.Write(ctx, entries); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Exported %d packages to Google Sheets", len(entries))))
	return nil
}

func exportCSVCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "csv",
		Short: "Export as CSV",
		Long:  `Write the tracking list as CSV to stdout or --output.`,
		RunE:  runExportCSV,
	}

	cmd.Flags().StringP("output", "o", "", "File to write (default stdout)")

	return cmd
}

func runExportCSV(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.ListEntries(ctx, service.EntryFilter{IncludeArchived: true})
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, createErr := os.Create(path)
		if createErr != nil {
			return fmt.Errorf("failed to create %s: %w", path, createErr)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	if err := writeCSV(out, entries); err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("output"); path != "" {
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Exported %d packages to %s", len(entries), path)))
	}
	return nil
}

func writeCSV(out io.Writer, entries []model.Entry) error {
	w := csv.NewWriter(out)

	header := []string{
		"number", "display", "carrier", "status", "confidence",
		"label", "origin", "source", "archived", "added", "last_checked",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, e := range entries {
		lastChecked := ""
		if e.LastCheckedAt != nil {
			lastChecked = e.LastCheckedAt.UTC().Format("2006-01-02 15:04:05")
		}

		row := []string{
			e.Number,
			e.Display,
			e.Carrier.String(),
			string(e.Status),
			e.Confidence.String(),
			e.Label,
			e.Origin,
			string(e.Source),
			strconv.FormatBool(e.Archived),
			e.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			lastChecked,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}
