package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/trackhub/trackhub/internal/sheets"
)

// LoadSheetsConfig loads Google Sheets configuration from Viper and
// environment variables. It follows this precedence:
//  1. Viper configuration (from config file or TRACKHUB_ env vars)
//  2. Direct environment variables (GOOGLE_SHEETS_*)
//  3. Default values
//
// OAuth tokens are not part of this configuration; they live in the token
// store and reach the writer through an oauth2.TokenSource.
func LoadSheetsConfig() (*sheets.Config, error) {
	var cfg sheets.Config
	if err := viper.UnmarshalKey("sheets", &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse sheets configuration: %w", err)
	}

	if cfg.ServiceAccountPath == "" {
		cfg.ServiceAccountPath = os.Getenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = os.Getenv("GOOGLE_SHEETS_CLIENT_ID")
	}
	if cfg.ClientSecret == "" {
		cfg.ClientSecret = os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET")
	}
	if cfg.SpreadsheetID == "" {
		cfg.SpreadsheetID = os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID")
	}
	if cfg.SpreadsheetName == "" {
		cfg.SpreadsheetName = os.Getenv("GOOGLE_SHEETS_SPREADSHEET_NAME")
	}
	cfg.ServiceAccountPath = ExpandPath(cfg.ServiceAccountPath)

	defaults := sheets.DefaultConfig()
	if cfg.SpreadsheetName == "" {
		cfg.SpreadsheetName = defaults.SpreadsheetName
	}
	if cfg.TimeZone == "" {
		cfg.TimeZone = defaults.TimeZone
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = defaults.RetryAttempts
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = defaults.RetryDelay
	}
	if !viper.IsSet("sheets.enable_formatting") {
		cfg.EnableFormatting = defaults.EnableFormatting
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
