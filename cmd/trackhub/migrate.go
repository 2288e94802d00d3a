package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trackhub/trackhub/internal/cli"
	"github.com/trackhub/trackhub/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Bring the local database schema up to the latest version.

Every command migrates on startup, so this is mostly useful for
upgrading the database without touching it otherwise.`,
		RunE: runMigrate,
	}

	cmd.AddCommand(migrateStatusCmd())

	return cmd
}

func migrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current schema version without applying changes",
		RunE:  runMigrateStatus,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := storage.NewSQLiteStorage(databasePath())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	before, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if before == storage.ExpectedSchemaVersion {
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Schema already up to date (version %d)", before)))
		return nil
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Migrated schema from version %d to %d", before, storage.ExpectedSchemaVersion)))
	return nil
}

func runMigrateStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := storage.NewSQLiteStorage(databasePath())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	version, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Database:       %s\n", databasePath())
	fmt.Printf("Schema version: %d\n", version)
	fmt.Printf("Latest version: %d\n", storage.ExpectedSchemaVersion)

	if version < storage.ExpectedSchemaVersion {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("%d migrations pending; run `trackhub migrate`", storage.ExpectedSchemaVersion-version)))
	} else {
		fmt.Println(cli.FormatSuccess("Schema is up to date"))
	}
	return nil
}
