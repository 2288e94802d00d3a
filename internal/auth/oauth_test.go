package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

func TestProviderEndpoint(t *testing.T) {
	assert.Equal(t, google.Endpoint, ProviderConfig{Name: "google"}.endpoint())

	custom := ProviderConfig{
		Name:     "trackhub",
		AuthURL:  "https://id.trackhub.dev/authorize",
		TokenURL: "https://id.trackhub.dev/token",
	}
	assert.Equal(t, custom.AuthURL, custom.endpoint().AuthURL)
	assert.Equal(t, custom.TokenURL, custom.endpoint().TokenURL)
}

func TestCallbackHandler(t *testing.T) {
	t.Run("valid code", func(t *testing.T) {
		codeChan := make(chan string, 1)
		errorChan := make(chan error, 1)
		handler := callbackHandler("state123", codeChan, errorChan)

		req := httptest.NewRequest(http.MethodGet, "/callback?state=state123&code=authcode", nil)
		rec := httptest.NewRecorder()
		handler(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		select {
		case code := <-codeChan:
			assert.Equal(t, "authcode", code)
		default:
			t.Fatal("Expected code on channel")
		}
	})

	t.Run("state mismatch", func(t *testing.T) {
		codeChan := make(chan string, 1)
		errorChan := make(chan error, 1)
		handler := callbackHandler("state123", codeChan, errorChan)

		req := httptest.NewRequest(http.MethodGet, "/callback?state=forged&code=authcode", nil)
		rec := httptest.NewRecorder()
		handler(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		select {
		case err := <-errorChan:
			assert.Contains(t, err.Error(), "state mismatch")
		default:
			t.Fatal("Expected error on channel")
		}
	})

	t.Run("missing code", func(t *testing.T) {
		codeChan := make(chan string, 1)
		errorChan := make(chan error, 1)
		handler := callbackHandler("state123", codeChan, errorChan)

		req := httptest.NewRequest(http.MethodGet, "/callback?state=state123", nil)
		rec := httptest.NewRecorder()
		handler(rec, req)

		select {
		case err := <-errorChan:
			assert.Contains(t, err.Error(), "no authorization code")
		default:
			t.Fatal("Expected error on channel")
		}
	})
}

func TestOAuthTokenRoundTrip(t *testing.T) {
	keyring.MockInit()
	store := NewTokenStore(t.TempDir())
	provider := ProviderConfig{Name: "google", ClientID: "client"}

	token := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(time.Hour).Round(time.Second),
	}
	require.NoError(t, SaveOAuthToken(store, provider, token))

	loaded, err := LoadOAuthToken(store, provider)
	require.NoError(t, err)
	assert.Equal(t, token.AccessToken, loaded.AccessToken)
	assert.Equal(t, token.RefreshToken, loaded.RefreshToken)
	assert.True(t, loaded.Valid())

	require.NoError(t, Logout(store, provider))
	_, err = LoadOAuthToken(store, provider)
	require.Error(t, err)
}

func TestTokenForProviderRefreshes(t *testing.T) {
	keyring.MockInit()
	store := NewTokenStore(t.TempDir())

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.Form.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "fresh-access",
			"token_type":    "Bearer",
			"refresh_token": "fresh-refresh",
			"expires_in":    3600,
		})
	}))
	defer tokenServer.Close()

	provider := ProviderConfig{
		Name:     "trackhub",
		ClientID: "client",
		AuthURL:  tokenServer.URL + "/authorize",
		TokenURL: tokenServer.URL + "/token",
	}

	expired := &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "old-refresh",
		Expiry:       time.Now().Add(-time.Hour),
	}
	require.NoError(t, SaveOAuthToken(store, provider, expired))

	token, err := TokenForProvider(context.Background(), store, provider)
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", token.AccessToken)

	// The refreshed token replaced the saved one.
	saved, err := LoadOAuthToken(store, provider)
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", saved.AccessToken)
}

func TestLoginRequiresClientID(t *testing.T) {
	store := NewTokenStore(t.TempDir())
	_, err := Login(context.Background(), store, ProviderConfig{Name: "google"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client ID")
}

func TestAuthCodeURLCarriesState(t *testing.T) {
	cfg := &oauth2.Config{
		ClientID: "client",
		Endpoint: oauth2.Endpoint{AuthURL: "https://id.example.com/authorize"},
	}
	raw := cfg.AuthCodeURL("state-abc", oauth2.AccessTypeOffline)

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "state-abc", parsed.Query().Get("state"))
	assert.Equal(t, "offline", parsed.Query().Get("access_type"))
}
