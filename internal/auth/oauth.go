package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/pkg/browser"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// loginTimeout bounds how long the loopback listener waits for the user to
// finish in the browser.
const loginTimeout = 5 * time.Minute

// ProviderConfig describes one OAuth2 identity provider. Leaving AuthURL and
// TokenURL empty selects Google's endpoints.
type ProviderConfig struct {
	Name         string
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	Scopes       []string
}

func (p ProviderConfig) endpoint() oauth2.Endpoint {
	if p.AuthURL == "" && p.TokenURL == "" {
		return google.Endpoint
	}
	return oauth2.Endpoint{AuthURL: p.AuthURL, TokenURL: p.TokenURL}
}

func (p ProviderConfig) tokenName() string {
	return "oauth-" + p.Name
}

// Login performs the interactive authorization-code flow: start a loopback
// callback listener on a random port, open the browser, wait for the
// redirect, exchange the code, and persist the token.
func Login(ctx context.Context, store *TokenStore, provider ProviderConfig) (*oauth2.Token, error) {
	if provider.ClientID == "" {
		return nil, fmt.Errorf("OAuth client ID for %s is not configured", provider.Name)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to start callback listener: %w", err)
	}

	oauthConfig := &oauth2.Config{
		ClientID:     provider.ClientID,
		ClientSecret: provider.ClientSecret,
		Endpoint:     provider.endpoint(),
		RedirectURL:  fmt.Sprintf("http://%s/callback", listener.Addr().String()),
		Scopes:       provider.Scopes,
	}

	state, err := randomState()
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	codeChan := make(chan string, 1)
	errorChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", callbackHandler(state, codeChan, errorChan))

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if serveErr := server.Serve(listener); !errors.Is(serveErr, http.ErrServerClosed) {
			errorChan <- fmt.Errorf("callback server failed: %w", serveErr)
		}
	}()
	defer func() { _ = server.Shutdown(context.Background()) }()

	authURL := oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	slog.Info("Opening browser for sign-in", "provider", provider.Name)
	if openErr := browser.OpenURL(authURL); openErr != nil {
		slog.Warn("Could not open browser automatically", "error", openErr)
		slog.Info("Visit this URL to sign in", "url", authURL)
	}

	var authCode string
	select {
	case authCode = <-codeChan:
		slog.Info("Received authorization code")
	case callbackErr := <-errorChan:
		return nil, callbackErr
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(loginTimeout):
		return nil, fmt.Errorf("authentication timeout - no response received within %s", loginTimeout)
	}

	token, err := oauthConfig.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if saveErr := SaveOAuthToken(store, provider, token); saveErr != nil {
		slog.Warn("Failed to persist token", "provider", provider.Name, "error", saveErr)
	}

	return token, nil
}

// callbackHandler validates the state parameter and forwards the code.
func callbackHandler(state string, codeChan chan<- string, errorChan chan<- error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			errorChan <- fmt.Errorf("state mismatch in OAuth callback")
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}

		code := r.URL.Query().Get("code")
		if code == "" {
			errorChan <- fmt.Errorf("no authorization code received")
			_, _ = fmt.Fprint(w, `<html><body>
				<h1>Authentication Failed</h1>
				<p>No authorization code received. Please try again.</p>
				<script>window.setTimeout(function(){window.close();}, 3000);</script>
			</body></html>`)
			return
		}

		codeChan <- code
		_, _ = fmt.Fprint(w, `<html><body>
			<h1>Authentication Successful!</h1>
			<p>You can close this window and return to the terminal.</p>
			<script>window.setTimeout(function(){window.close();}, 3000);</script>
		</body></html>`)
	}
}

// SaveOAuthToken persists a provider's token in the store.
func SaveOAuthToken(store *TokenStore, provider ProviderConfig, token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	return store.Save(provider.tokenName(), data)
}

// LoadOAuthToken returns the saved token for a provider, or
// common.ErrNotFound when the user never logged in.
func LoadOAuthToken(store *TokenStore, provider ProviderConfig) (*oauth2.Token, error) {
	data, err := store.Load(provider.tokenName())
	if err != nil {
		return nil, err
	}

	token := &oauth2.Token{}
	if err := json.Unmarshal(data, token); err != nil {
		return nil, fmt.Errorf("failed to decode saved token: %w", err)
	}
	return token, nil
}

// Logout discards the saved token for a provider.
func Logout(store *TokenStore, provider ProviderConfig) error {
	return store.Delete(provider.tokenName())
}

// TokenForProvider loads the saved token, refreshing and re-saving it when
// expired. Callers get a token that is valid right now.
func TokenForProvider(ctx context.Context, store *TokenStore, provider ProviderConfig) (*oauth2.Token, error) {
	token, err := LoadOAuthToken(store, provider)
	if err != nil {
		return nil, err
	}

	if token.Valid() {
		return token, nil
	}

	slog.Info("Token expired, refreshing...", "provider", provider.Name)

	oauthConfig := &oauth2.Config{
		ClientID:     provider.ClientID,
		ClientSecret: provider.ClientSecret,
		Endpoint:     provider.endpoint(),
		Scopes:       provider.Scopes,
	}

	newToken, err := oauthConfig.TokenSource(ctx, token).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	if saveErr := SaveOAuthToken(store, provider, newToken); saveErr != nil {
		slog.Warn("Failed to save refreshed token", "provider", provider.Name, "error", saveErr)
	}

	return newToken, nil
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
