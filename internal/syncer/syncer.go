// Package syncer reconciles the local entry set with remote backends in a
// single pull-merge-push pass.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/samber/lo"

	"github.com/trackhub/trackhub/internal/common"
	"github.com/trackhub/trackhub/internal/model"
	"github.com/trackhub/trackhub/internal/service"
)

// Backend pairs a remote store with the name its sync cursor is kept under.
type Backend struct {
	Store service.RemoteStore
	Name  string
}

// Stats summarizes one sync run.
type Stats struct {
	PullBackend string
	Pulled      int
	Applied     int
	Pushed      int
	Synced      int
	Failed      int
	Duration    time.Duration
}

// Syncer reconciles local and remote entries. Remote and local rows merge by
// canonical number: the newer UpdatedAt wins, and on equal timestamps an
// archived row beats an active one, so archiving a delivered package on one
// machine sticks everywhere.
type Syncer struct {
	storage  service.Storage
	logger   *slog.Logger
	lock     *flock.Flock
	backends []Backend
}

// New creates a syncer over backends, tried in declaration order. lockPath
// names the lock file that serializes concurrent runs.
func New(storage service.Storage, backends []Backend, lockPath string) (*Syncer, error) {
	if storage == nil {
		return nil, fmt.Errorf("storage cannot be nil")
	}
	if len(backends) == 0 {
		return nil, fmt.Errorf("at least one sync backend is required")
	}
	for _, b := range backends {
		if b.Name == "" || b.Store == nil {
			return nil, fmt.Errorf("sync backends need a name and a store")
		}
	}
	if lockPath == "" {
		return nil, fmt.Errorf("lock path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	return &Syncer{
		storage:  storage,
		backends: backends,
		lock:     flock.New(lockPath),
		logger:   slog.Default().With("component", "syncer"),
	}, nil
}

// Sync runs one pull-merge-push cycle and reports what moved. A second sync
// started while one is running fails fast with ErrSyncLocked.
func (s *Syncer) Sync(ctx context.Context) (*Stats, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	locked, err := s.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !locked {
		return nil, common.ErrSyncLocked
	}
	defer func() {
		if unlockErr := s.lock.Unlock(); unlockErr != nil {
			s.logger.Warn("Failed to release sync lock", "error", unlockErr)
		}
	}()

	start := time.Now().UTC()
	stats := &Stats{}

	s.logger.Info("Starting sync",
		"backends", lo.Map(s.backends, func(b Backend, _ int) string { return b.Name }))

	remote, pullBackend, err := s.pull(ctx)
	if err != nil {
		return nil, err
	}
	stats.PullBackend = pullBackend
	stats.Pulled = len(remote)

	applied, err := s.merge(ctx, remote)
	if err != nil {
		return nil, err
	}
	stats.Applied = applied

	s.push(ctx, start, stats)

	stats.Duration = time.Since(start)
	s.logger.Info("Sync finished",
		"backend", stats.PullBackend,
		"pulled", stats.Pulled,
		"applied", stats.Applied,
		"pushed", stats.Pushed,
		"failed", stats.Failed,
		"duration", stats.Duration)
	return stats, nil
}

// pull fetches remote changes from the first backend that answers, falling
// down the order on failure.
func (s *Syncer) pull(ctx context.Context) ([]model.Entry, string, error) {
	var lastErr error
	for _, b := range s.backends {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}

		cursor := s.state(ctx, b.Name).Cursor
		entries, err := b.Store.Pull(ctx, cursor)
		if err != nil {
			s.logger.Warn("Backend pull failed, trying next", "backend", b.Name, "error", err)
			s.recordFailure(ctx, b.Name, err)
			lastErr = err
			continue
		}

		s.logger.Debug("Pulled remote changes", "backend", b.Name, "count", len(entries))
		return entries, b.Name, nil
	}
	return nil, "", fmt.Errorf("failed to pull from any backend: %w", lastErr)
}

// merge applies remote winners to local storage inside one transaction: a
// failed row rolls back the whole pull. UpsertEntry keeps the local id and
// created_at when the number already exists, so event history survives a
// remote win.
func (s *Syncer) merge(ctx context.Context, remote []model.Entry) (int, error) {
	if len(remote) == 0 {
		return 0, nil
	}

	tx, err := s.storage.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin merge transaction: %w", err)
	}

	applied := 0
	for i := range remote {
		r := &remote[i]

		local, err := tx.GetEntryByNumber(ctx, r.Number)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			_ = tx.Rollback()
			return 0, fmt.Errorf("failed to look up %s: %w", r.Number, err)
		}

		if local != nil && !remoteWins(local, r) {
			continue
		}

		if err := tx.UpsertEntry(ctx, r); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("failed to apply remote entry %s: %w", r.Number, err)
		}
		applied++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit merged entries: %w", err)
	}
	return applied, nil
}

// push sends each backend everything it has not seen since its own cursor.
// The post-merge query naturally covers both local edits and rows just
// applied from the pull, so every reachable backend converges on the merged
// view.
func (s *Syncer) push(ctx context.Context, start time.Time, stats *Stats) {
	for _, b := range s.backends {
		if ctx.Err() != nil {
			return
		}

		state := s.state(ctx, b.Name)
		outbound, err := s.storage.GetEntriesUpdatedSince(ctx, state.Cursor)
		if err != nil {
			s.logger.Error("Failed to load outbound entries", "backend", b.Name, "error", err)
			stats.Failed++
			continue
		}

		if err := b.Store.Push(ctx, outbound); err != nil {
			s.logger.Warn("Backend push failed", "backend", b.Name, "error", err)
			s.recordFailure(ctx, b.Name, err)
			stats.Failed++
			continue
		}

		stats.Pushed += len(outbound)
		stats.Synced++

		state.Cursor = start
		state.LastSyncedAt = time.Now().UTC()
		state.LastError = ""
		if err := s.storage.SaveSyncState(ctx, state); err != nil {
			s.logger.Warn("Failed to save sync state", "backend", b.Name, "error", err)
		}

		s.logger.Debug("Pushed local changes", "backend", b.Name, "count", len(outbound))
	}
}

// remoteWins resolves a conflict between a local and a remote copy of the
// same number. Newer UpdatedAt wins; on equal timestamps the archived copy
// wins so an archive never silently reverts.
func remoteWins(local, remote *model.Entry) bool {
	if remote.UpdatedAt.After(local.UpdatedAt) {
		return true
	}
	if local.UpdatedAt.After(remote.UpdatedAt) {
		return false
	}
	return remote.Archived && !local.Archived
}

// state loads a backend's sync state, starting fresh when none is saved.
func (s *Syncer) state(ctx context.Context, backend string) *model.SyncState {
	state, err := s.storage.GetSyncState(ctx, backend)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.logger.Warn("Failed to load sync state", "backend", backend, "error", err)
		}
		return &model.SyncState{Backend: backend}
	}
	return state
}

// recordFailure stores the error on the backend's sync state without moving
// its cursor, so `trackhub sync` can report stale backends.
func (s *Syncer) recordFailure(ctx context.Context, backend string, cause error) {
	state := s.state(ctx, backend)
	state.LastError = cause.Error()
	if err := s.storage.SaveSyncState(ctx, state); err != nil {
		s.logger.Warn("Failed to save sync state", "backend", backend, "error", err)
	}
}
