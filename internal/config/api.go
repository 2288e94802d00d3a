package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/trackhub/trackhub/internal/api"
)

// DefaultAPIBaseURL is the hosted TrackHub API.
const DefaultAPIBaseURL = "https://api.trackhub.dev"

// LoadAPIConfig loads the status API configuration from Viper and
// environment variables. It follows this precedence:
//  1. Viper configuration (from config file or TRACKHUB_ env vars)
//  2. Direct environment variables (TRACKHUB_API_URL, TRACKHUB_API_KEY)
//  3. Default values
func LoadAPIConfig() (*api.Config, error) {
	var cfg api.Config
	if err := viper.UnmarshalKey("api", &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse api configuration: %w", err)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("TRACKHUB_API_URL")
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("TRACKHUB_API_KEY")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultAPIBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	if err := validateStruct(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
