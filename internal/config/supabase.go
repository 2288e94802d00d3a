package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/trackhub/trackhub/internal/supabase"
)

// LoadSupabaseConfig loads the Supabase backend configuration from Viper
// and environment variables. It follows this precedence:
//  1. Viper configuration (from config file or TRACKHUB_ env vars)
//  2. Direct environment variables (SUPABASE_URL, SUPABASE_ANON_KEY)
//
// There are no defaults: the URL and anon key identify the user's own
// Supabase project, so commands that need this backend fail until it is
// configured.
func LoadSupabaseConfig() (*supabase.Config, error) {
	var cfg supabase.Config
	if err := viper.UnmarshalKey("supabase", &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse supabase configuration: %w", err)
	}

	if cfg.URL == "" {
		cfg.URL = os.Getenv("SUPABASE_URL")
	}
	if cfg.AnonKey == "" {
		cfg.AnonKey = os.Getenv("SUPABASE_ANON_KEY")
	}

	if err := validateStruct(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
