package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the root of config.yaml. Backend sections (api, supabase,
// notifications, sheets) are loaded and validated on demand by their
// section loaders, so an unconfigured backend only fails the commands
// that need it.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Update   UpdateConfig   `mapstructure:"update"`
}

// DatabaseConfig locates the local SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// SyncConfig orders the remote backends and locates the sync lock file.
// Backends are tried in order; the first reachable one serves the pull.
type SyncConfig struct {
	Backends []string `mapstructure:"backends" validate:"min=1,dive,oneof=supabase api"`
	LockPath string   `mapstructure:"lock_path" validate:"required"`
}

// UpdateConfig points the upgrade check at a release feed. An empty URL
// selects the project's GitHub releases.
type UpdateConfig struct {
	ReleasesURL string `mapstructure:"releases_url" validate:"omitempty,url"`
}

// Default returns the configuration used when config.yaml sets nothing.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Path: DefaultDatabasePath()},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Sync: SyncConfig{
			Backends: []string{"supabase", "api"},
			LockPath: DefaultLockPath(),
		},
	}
}

// Load unmarshals the root configuration from Viper over the defaults.
func Load() (*Config, error) {
	cfg := Default()
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg.Database.Path = ExpandPath(cfg.Database.Path)
	cfg.Sync.LockPath = ExpandPath(cfg.Sync.LockPath)

	if err := validateStruct(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
