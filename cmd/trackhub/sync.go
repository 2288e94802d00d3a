package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/trackhub/trackhub/internal/api"
	"github.com/trackhub/trackhub/internal/cli"
	"github.com/trackhub/trackhub/internal/common"
	"github.com/trackhub/trackhub/internal/config"
	"github.com/trackhub/trackhub/internal/notify"
	"github.com/trackhub/trackhub/internal/service"
	"github.com/trackhub/trackhub/internal/supabase"
	"github.com/trackhub/trackhub/internal/syncer"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync packages with remote backends",
		Long: `Reconcile the local list with the configured backends: pull remote
changes from the first reachable backend, merge by tracking number with the
newest edit winning, then push the merged list back out. Concurrent syncs
are serialized by a lock file.`,
		RunE: runSync,
	}

	cmd.Flags().String("backend", "", "Sync only this backend (supabase, api)")
	cmd.Flags().Bool("status", false, "Show per-backend sync state without syncing")

	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	names := cfg.Sync.Backends
	only, _ := cmd.Flags().GetString("backend")
	if only != "" {
		if !lo.Contains(names, only) {
			return fmt.Errorf("unknown sync backend %q (configured: %v)", only, names)
		}
		names = []string{only}
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if statusOnly, _ := cmd.Flags().GetBool("status"); statusOnly {
		return printSyncStatus(ctx, store, cfg.Sync.Backends)
	}

	backends, err := buildBackends(names, only != "")
	if err != nil {
		return err
	}

	s, err := syncer.New(store, backends, cfg.Sync.LockPath)
	if err != nil {
		return err
	}

	stats, err := s.Sync(ctx)
	if errors.Is(err, common.ErrSyncLocked) {
		return common.NewUserError("another sync is already running; try again in a moment", err)
	}
	if err != nil {
		return err
	}

	notifySync(ctx, stats)

	summary := fmt.Sprintf("Synced via %s: pulled %d (%d applied), pushed %d",
		stats.PullBackend, stats.Pulled, stats.Applied, stats.Pushed)
	if stats.Failed > 0 {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("%s, %d backends failed", summary, stats.Failed)))
		fmt.Println(cli.SubtleStyle.Render("Run `trackhub sync --status` to see which backend is stale."))
		return nil
	}
	fmt.Println(cli.FormatSuccess(summary))
	return nil
}

// buildBackends constructs the remote store clients in the configured order.
// A backend without configuration is skipped so the rest can still sync,
// unless strict says the user asked for it by name.
func buildBackends(names []string, strict bool) ([]syncer.Backend, error) {
	backends := make([]syncer.Backend, 0, len(names))
	for _, name := range names {
		store, err := buildBackend(name)
		if err != nil {
			if strict {
				return nil, err
			}
			slog.Warn("Skipping unconfigured sync backend", "backend", name, "error", err)
			continue
		}
		backends = append(backends, syncer.Backend{Name: name, Store: store})
	}

	if len(backends) == 0 {
		return nil, common.NewUserError(
			"no sync backend is configured; set supabase.url and supabase.anon_key (or api.base_url) in your config",
			common.ErrMissingConfig)
	}
	return backends, nil
}

func buildBackend(name string) (service.RemoteStore, error) {
	switch name {
	case "supabase":
		cfg, err := config.LoadSupabaseConfig()
		if err != nil {
			return nil, fmt.Errorf("supabase backend is not configured: %w", err)
		}
		return supabase.NewClient(*cfg, supabase.NewSessionStore(credentialStore()))
	case "api":
		cfg, err := config.LoadAPIConfig()
		if err != nil {
			return nil, fmt.Errorf("status API backend is not configured: %w", err)
		}
		return api.NewClient(*cfg)
	default:
		return nil, fmt.Errorf("unknown sync backend %q", name)
	}
}

// notifySync sends the sync summary through the configured notifier.
// Notification failures never fail the sync that already happened.
func notifySync(ctx context.Context, stats *syncer.Stats) {
	cfg, err := config.LoadNotifyConfig()
	if err != nil {
		return
	}
	notifier := notify.New(*cfg)
	if !notifier.Enabled() {
		return
	}
	_ = notifier.NotifySyncCompleted(ctx, stats.Pulled, stats.Pushed, stats.Failed)
}

func printSyncStatus(ctx context.Context, store service.Storage, names []string) error {
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		state, err := store.GetSyncState(ctx, name)
		if errors.Is(err, common.ErrNotFound) {
			rows = append(rows, []string{name, cli.SubtleStyle.Render("never"), ""})
			continue
		}
		if err != nil {
			return err
		}

		synced := cli.SubtleStyle.Render("never")
		if !state.LastSyncedAt.IsZero() {
			synced = state.LastSyncedAt.Local().Format("2006-01-02 15:04")
		}
		lastErr := ""
		if state.LastError != "" {
			lastErr = cli.ErrorStyle.Render(state.LastError)
		}
		rows = append(rows, []string{name, synced, lastErr})
	}

	fmt.Println(renderTable([]string{"Backend", "Last synced", "Last error"}, rows))
	return nil
}
