package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/trackhub/trackhub/internal/auth"
	"github.com/trackhub/trackhub/internal/cli"
	"github.com/trackhub/trackhub/internal/common"
	"github.com/trackhub/trackhub/internal/config"
	"github.com/trackhub/trackhub/internal/supabase"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in to sync and export backends",
		Long: `Manage the credentials behind sync and export: the Supabase backend
uses email and password, Google Sheets uses a browser OAuth flow. Tokens
land in the OS keyring, with a file fallback for headless machines.`,
	}

	cmd.AddCommand(authLoginCmd())
	cmd.AddCommand(authLogoutCmd())
	cmd.AddCommand(authStatusCmd())

	return cmd
}

func authLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to a backend",
		RunE:  runAuthLogin,
	}

	cmd.Flags().String("backend", "supabase", "Sync backend to sign in to")
	cmd.Flags().String("provider", "", "OAuth provider to sign in to (google)")
	cmd.Flags().String("email", "", "Account email (prompted when omitted)")

	return cmd
}

func runAuthLogin(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if provider, _ := cmd.Flags().GetString("provider"); provider != "" {
		if provider != "google" {
			return fmt.Errorf("unknown OAuth provider %q", provider)
		}
		return loginGoogle(cmd)
	}

	backend, _ := cmd.Flags().GetString("backend")
	if backend != "supabase" {
		return fmt.Errorf("backend %q has no interactive login; the status API uses api.api_key from your config", backend)
	}

	cfg, err := config.LoadSupabaseConfig()
	if err != nil {
		return fmt.Errorf("supabase backend is not configured: %w", err)
	}

	client, err := supabase.NewClient(*cfg, supabase.NewSessionStore(credentialStore()))
	if err != nil {
		return err
	}

	email, _ := cmd.Flags().GetString("email")
	if email == "" {
		prompter := cli.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
		if email, err = prompter.Input(ctx, "Email"); err != nil {
			return err
		}
	}

	password, err := readPassword(cmd)
	if err != nil {
		return err
	}

	session, err := client.SignIn(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Signed in as %s", session.Email)))
	return nil
}

func loginGoogle(cmd *cobra.Command) error {
	provider, err := googleProvider()
	if err != nil {
		return err
	}

	token, err := auth.Login(cmd.Context(), credentialStore(), provider)
	if err != nil {
		return err
	}

	msg := "Signed in to Google"
	if !token.Expiry.IsZero() {
		msg = fmt.Sprintf("%s (token refreshes automatically, next expiry %s)",
			msg, token.Expiry.Local().Format(time.Kitchen))
	}
	fmt.Println(cli.FormatSuccess(msg))
	return nil
}

func authLogoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Discard saved credentials",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if provider, _ := cmd.Flags().GetString("provider"); provider == "google" {
				if err := auth.Logout(credentialStore(), auth.ProviderConfig{Name: "google"}); err != nil {
					return err
				}
				fmt.Println(cli.FormatSuccess("Signed out of Google"))
				return nil
			}

			if err := supabase.NewSessionStore(credentialStore()).Clear(); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess("Signed out of Supabase"))
			return nil
		},
	}

	cmd.Flags().String("backend", "supabase", "Sync backend to sign out of")
	cmd.Flags().String("provider", "", "OAuth provider to sign out of (google)")

	return cmd
}

func authStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show who is signed in",
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Printf("Supabase: %s\n", supabaseStatus())
			fmt.Printf("Google:   %s\n", googleStatus())
			return nil
		},
	}
}

func supabaseStatus() string {
	session, err := supabase.NewSessionStore(credentialStore()).Load()
	if err != nil {
		return cli.SubtleStyle.Render("not signed in")
	}
	if session.Expired() && session.RefreshToken == "" {
		return cli.FormatWarning(fmt.Sprintf("%s (session expired, sign in again)", session.Email))
	}
	return cli.StyleSuccess(session.Email)
}

func googleStatus() string {
	token, err := auth.LoadOAuthToken(credentialStore(), auth.ProviderConfig{Name: "google"})
	if errors.Is(err, common.ErrNotFound) {
		return cli.SubtleStyle.Render("not signed in")
	}
	if err != nil {
		return cli.StyleError(err.Error())
	}
	if token.Valid() || token.RefreshToken != "" {
		return cli.StyleSuccess("signed in")
	}
	return cli.FormatWarning("token expired, sign in again")
}

// googleProvider builds the OAuth provider from the sheets configuration,
// which carries the application's client credentials.
func googleProvider() (auth.ProviderConfig, error) {
	cfg, err := config.LoadSheetsConfig()
	if err != nil {
		return auth.ProviderConfig{}, fmt.Errorf("google export is not configured: %w", err)
	}
	if cfg.ServiceAccountPath != "" {
		return auth.ProviderConfig{}, errors.New("a service account is configured; no interactive login is needed")
	}

	return auth.ProviderConfig{
		Name:         "google",
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{gsheets.SpreadsheetsScope},
	}, nil
}

// readPassword reads the password without echo on a real terminal, falling
// back to SUPABASE_PASSWORD or a plain prompt for scripts and pipes.
func readPassword(cmd *cobra.Command) (string, error) {
	if password := os.Getenv("SUPABASE_PASSWORD"); password != "" {
		return password, nil
	}

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Print(cli.FormatPrompt("Password"))
		secret, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(secret), nil
	}

	prompter := cli.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	return prompter.Input(cmd.Context(), "Password")
}
