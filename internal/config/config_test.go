package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackhub/trackhub/internal/common"
)

// resetConfig isolates a test from the global viper instance and from any
// fallback environment variables set on the host.
func resetConfig(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	for _, key := range []string{
		"TRACKHUB_API_URL", "TRACKHUB_API_KEY",
		"SUPABASE_URL", "SUPABASE_ANON_KEY",
		"NTFY_SERVER", "NTFY_TOPIC", "NTFY_TOKEN",
		"GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", "GOOGLE_SHEETS_CLIENT_ID",
		"GOOGLE_SHEETS_CLIENT_SECRET", "GOOGLE_SHEETS_SPREADSHEET_ID",
		"GOOGLE_SHEETS_SPREADSHEET_NAME",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	resetConfig(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Contains(t, cfg.Database.Path, "trackhub.db")
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, []string{"supabase", "api"}, cfg.Sync.Backends)
	assert.Contains(t, cfg.Sync.LockPath, "sync.lock")
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{name: "unknown log level", key: "logging.level", value: "verbose"},
		{name: "unknown log format", key: "logging.format", value: "xml"},
		{name: "unknown sync backend", key: "sync.backends", value: []string{"dropbox"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetConfig(t)
			viper.Set(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrInvalidConfig)
		})
	}
}

func TestLoadAPIConfigDefaults(t *testing.T) {
	resetConfig(t)

	cfg, err := LoadAPIConfig()
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIBaseURL, cfg.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Empty(t, cfg.APIKey)
}

func TestLoadAPIConfigFromViper(t *testing.T) {
	resetConfig(t)
	viper.Set("api.base_url", "https://api.example.com")
	viper.Set("api.api_key", "key-1")
	viper.Set("api.timeout", "5s")

	cfg, err := LoadAPIConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.BaseURL)
	assert.Equal(t, "key-1", cfg.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestLoadAPIConfigEnvFallback(t *testing.T) {
	resetConfig(t)
	t.Setenv("TRACKHUB_API_URL", "https://staging.example.com")
	t.Setenv("TRACKHUB_API_KEY", "env-key")

	cfg, err := LoadAPIConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://staging.example.com", cfg.BaseURL)
	assert.Equal(t, "env-key", cfg.APIKey)
}

func TestLoadSupabaseConfigRequiresProject(t *testing.T) {
	resetConfig(t)

	_, err := LoadSupabaseConfig()
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestLoadSupabaseConfigFromEnv(t *testing.T) {
	resetConfig(t)
	t.Setenv("SUPABASE_URL", "https://abc.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon-key")

	cfg, err := LoadSupabaseConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://abc.supabase.co", cfg.URL)
	assert.Equal(t, "anon-key", cfg.AnonKey)
}

func TestLoadNotifyConfig(t *testing.T) {
	resetConfig(t)
	viper.Set("notifications.topic", "shipments")
	t.Setenv("NTFY_TOKEN", "tk_secret")

	cfg, err := LoadNotifyConfig()
	require.NoError(t, err)

	assert.Equal(t, "shipments", cfg.Topic)
	assert.Equal(t, "tk_secret", cfg.Token)
	assert.Empty(t, cfg.Server)
}

func TestLoadSheetsConfigDefaults(t *testing.T) {
	resetConfig(t)
	viper.Set("sheets.client_id", "id")
	viper.Set("sheets.client_secret", "secret")

	cfg, err := LoadSheetsConfig()
	require.NoError(t, err)

	assert.Equal(t, "TrackHub Packages", cfg.SpreadsheetName)
	assert.Equal(t, 1000, cfg.BatchSize)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, time.Second, cfg.RetryDelay)
	assert.True(t, cfg.EnableFormatting)
}

func TestLoadSheetsConfigRejectsAmbiguousAuth(t *testing.T) {
	resetConfig(t)
	viper.Set("sheets.client_id", "id")
	viper.Set("sheets.client_secret", "secret")
	viper.Set("sheets.service_account_path", "/etc/trackhub/sa.json")

	_, err := LoadSheetsConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple authentication methods")
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/dev")

	assert.Equal(t, "/home/dev/data/trackhub.db", ExpandPath("~/data/trackhub.db"))
	assert.Equal(t, "/home/dev", ExpandPath("~"))
	assert.Equal(t, "/home/dev/y", ExpandPath("$HOME/y"))
	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, "/var/lib/trackhub.db", ExpandPath("/var/lib/trackhub.db"))
}
