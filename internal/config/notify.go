package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/trackhub/trackhub/internal/notify"
)

// LoadNotifyConfig loads notification settings from Viper and environment
// variables (NTFY_SERVER, NTFY_TOPIC, NTFY_TOKEN). An empty topic is
// valid: notify.New returns a noop notifier for it.
func LoadNotifyConfig() (*notify.Config, error) {
	var cfg notify.Config
	if err := viper.UnmarshalKey("notifications", &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse notifications configuration: %w", err)
	}

	if cfg.Server == "" {
		cfg.Server = os.Getenv("NTFY_SERVER")
	}
	if cfg.Topic == "" {
		cfg.Topic = os.Getenv("NTFY_TOPIC")
	}
	if cfg.Token == "" {
		cfg.Token = os.Getenv("NTFY_TOKEN")
	}

	return &cfg, nil
}
