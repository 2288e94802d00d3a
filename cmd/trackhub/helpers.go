package main

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/trackhub/trackhub/internal/api"
	"github.com/trackhub/trackhub/internal/auth"
	"github.com/trackhub/trackhub/internal/config"
	"github.com/trackhub/trackhub/internal/notify"
	"github.com/trackhub/trackhub/internal/service"
	"github.com/trackhub/trackhub/internal/storage"
	"github.com/trackhub/trackhub/internal/tracker"
)

// databasePath resolves the SQLite path from config, falling back to the
// platform default.
func databasePath() string {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = config.DefaultDatabasePath()
	}
	return config.ExpandPath(dbPath)
}

// initStorage opens the local database and brings its schema up to date.
// Callers own the returned storage and must Close it.
func initStorage(ctx context.Context) (service.Storage, error) {
	store, err := storage.NewSQLiteStorage(databasePath())
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initTracker assembles the tracker over storage, the status API, and the
// configured notifier. Local-only commands work even when neither backend
// section is configured; only refresh insists on a provider.
func initTracker(store service.Storage) (*tracker.Tracker, error) {
	var provider service.StatusProvider
	if apiCfg, err := config.LoadAPIConfig(); err == nil {
		if client, clientErr := api.NewClient(*apiCfg); clientErr == nil {
			provider = client
		}
	}

	notifyCfg, err := config.LoadNotifyConfig()
	if err != nil {
		return nil, err
	}

	return tracker.New(store, provider, notify.New(*notifyCfg))
}

// credentialStore returns the token store shared by auth, sync, and export.
// The file fallback lives next to the config so keyring-less machines keep
// working.
func credentialStore() *auth.TokenStore {
	return auth.NewTokenStore(filepath.Join(config.DefaultConfigDir(), "credentials"))
}

// printJSON writes v as indented JSON to stdout for script consumers.
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
