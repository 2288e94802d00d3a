package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/trackhub/trackhub/internal/carrier"
	"github.com/trackhub/trackhub/internal/common"
	"github.com/trackhub/trackhub/internal/model"
	"github.com/trackhub/trackhub/internal/service"
)

// Config holds connection settings for a Supabase project.
type Config struct {
	URL     string `mapstructure:"url" validate:"required,url"`
	AnonKey string `mapstructure:"anon_key" validate:"required"`
	Table   string `mapstructure:"table"`
}

// Client implements the service.RemoteStore interface against a Supabase
// project's PostgREST endpoint. Rows are scoped to the signed-in user by
// row-level security; the client's job is to carry the right tokens.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	retryOpts  *service.RetryOptions
	sessions   SessionStore
	session    *Session
	baseURL    string
	anonKey    string
	table      string
}

// entryRow is the PostgREST shape of one tracked entry.
type entryRow struct {
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	ID            string     `json:"id"`
	UserID        string     `json:"user_id,omitempty"`
	Number        string     `json:"number"`
	Display       string     `json:"display"`
	Carrier       string     `json:"carrier"`
	Confidence    string     `json:"confidence"`
	Label         string     `json:"label"`
	Origin        string     `json:"origin"`
	Source        string     `json:"source"`
	Status        string     `json:"status"`
	Archived      bool       `json:"archived"`
}

// tokenResponse is the auth endpoint's reply for both grant types.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// NewClient creates a Supabase client, resuming any saved session.
func NewClient(cfg Config, sessions SessionStore) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("supabase URL is required")
	}
	if cfg.AnonKey == "" {
		return nil, fmt.Errorf("supabase anon key is required")
	}

	table := cfg.Table
	if table == "" {
		table = "entries"
	}

	c := &Client{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		anonKey:  cfg.AnonKey,
		table:    table,
		sessions: sessions,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default().With("component", "supabase"),
		retryOpts: &service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}

	if sessions != nil {
		if session, err := sessions.Load(); err == nil {
			c.session = session
		}
	}

	return c, nil
}

// SignIn exchanges email and password for a session and persists it.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password are required")
	}

	session, err := c.tokenRequest(ctx, "password", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	c.session = session
	c.persistSession()

	c.logger.Info("Signed in to Supabase", "email", session.Email)
	return session, nil
}

// SignOut discards the session locally. Supabase revocation is best-effort;
// the refresh token simply stops being used.
func (c *Client) SignOut() error {
	c.session = nil
	if c.sessions != nil {
		return c.sessions.Clear()
	}
	return nil
}

// CurrentSession returns a copy of the active session, or ErrUnauthorized
// when nobody is signed in.
func (c *Client) CurrentSession() (*Session, error) {
	if c.session == nil {
		return nil, common.ErrUnauthorized
	}
	session := *c.session
	return &session, nil
}

// Pull returns the caller's rows updated after since, oldest first.
func (c *Client) Pull(ctx context.Context, since time.Time) ([]model.Entry, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}

	u, err := url.Parse(fmt.Sprintf("%s/rest/v1/%s", c.baseURL, c.table))
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Set("select", "*")
	q.Set("order", "updated_at.asc")
	if !since.IsZero() {
		q.Set("updated_at", "gt."+since.UTC().Format(time.RFC3339Nano))
	}
	u.RawQuery = q.Encode()

	var rows []entryRow
	retryErr := common.WithRetry(ctx, func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if reqErr != nil {
			return fmt.Errorf("failed to create request: %w", reqErr)
		}
		c.authorize(req)

		resp, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return &common.RetryableError{Err: fmt.Errorf("failed to reach Supabase: %w", doErr), Retryable: true}
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		if resp.StatusCode != http.StatusOK {
			return c.restError(resp)
		}

		rows = rows[:0]
		if decodeErr := json.NewDecoder(resp.Body).Decode(&rows); decodeErr != nil {
			return fmt.Errorf("failed to decode rows: %w", decodeErr)
		}
		return nil
	}, *c.retryOpts)
	if retryErr != nil {
		return nil, retryErr
	}

	entries := make([]model.Entry, 0, len(rows))
	for _, row := range rows {
		entry, convErr := row.toEntry()
		if convErr != nil {
			c.logger.Warn("Skipping malformed remote row", "number", row.Number, "error", convErr)
			continue
		}
		entries = append(entries, *entry)
	}

	c.logger.Debug("Pulled entries from Supabase", "count", len(entries))
	return entries, nil
}

// Push upserts entries keyed by tracking number.
func (c *Client) Push(ctx context.Context, entries []model.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := c.ensureSession(ctx); err != nil {
		return err
	}

	rows := make([]entryRow, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, rowFromEntry(entry, c.session.UserID))
	}

	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to encode rows: %w", err)
	}

	pushURL := fmt.Sprintf("%s/rest/v1/%s?on_conflict=number", c.baseURL, c.table)

	retryErr := common.WithRetry(ctx, func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, pushURL, bytes.NewReader(payload))
		if reqErr != nil {
			return fmt.Errorf("failed to create request: %w", reqErr)
		}
		c.authorize(req)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")

		resp, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return &common.RetryableError{Err: fmt.Errorf("failed to reach Supabase: %w", doErr), Retryable: true}
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK &&
			resp.StatusCode != http.StatusNoContent {
			return c.restError(resp)
		}
		return nil
	}, *c.retryOpts)
	if retryErr != nil {
		return retryErr
	}

	c.logger.Debug("Pushed entries to Supabase", "count", len(entries))
	return nil
}

// ensureSession refreshes an expired session before a REST call.
func (c *Client) ensureSession(ctx context.Context) error {
	if c.session == nil {
		return fmt.Errorf("%w: run `trackhub auth login --backend supabase`", common.ErrUnauthorized)
	}
	if !c.session.Expired() {
		return nil
	}

	if c.session.RefreshToken == "" {
		return fmt.Errorf("%w: session expired", common.ErrUnauthorized)
	}

	session, err := c.tokenRequest(ctx, "refresh_token", map[string]string{
		"refresh_token": c.session.RefreshToken,
	})
	if err != nil {
		return fmt.Errorf("failed to refresh session: %w", err)
	}

	c.session = session
	c.persistSession()
	return nil
}

func (c *Client) tokenRequest(ctx context.Context, grant string, body map[string]string) (*Session, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode token request: %w", err)
	}

	tokenURL := fmt.Sprintf("%s/auth/v1/token?grant_type=%s", c.baseURL, grant)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach Supabase auth: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %s", common.ErrUnauthorized, strings.TrimSpace(string(respBody)))
		}
		return nil, fmt.Errorf("supabase auth error: %d - %s", resp.StatusCode, string(respBody))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("supabase auth returned no access token")
	}

	session := &Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		UserID:       tr.User.ID,
		Email:        tr.User.Email,
	}
	if claimsErr := session.fillFromClaims(); claimsErr != nil {
		// Not every deployment issues JWT access tokens; fall back to the
		// response metadata.
		if tr.User.ID == "" {
			return nil, fmt.Errorf("failed to read session identity: %w", claimsErr)
		}
		session.UserID = tr.User.ID
		session.ExpiresAt = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}

	return session, nil
}

func (c *Client) persistSession() {
	if c.sessions == nil || c.session == nil {
		return
	}
	if err := c.sessions.Save(c.session); err != nil {
		c.logger.Warn("Failed to persist session", "error", err)
	}
}

// authorize attaches the project key and the user's bearer token.
func (c *Client) authorize(req *http.Request) {
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.session.AccessToken)
}

// restError converts a non-2xx PostgREST response into an error. Rate limits
// and server errors stay retryable; everything else aborts.
func (c *Client) restError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &common.RetryableError{
			Err:       fmt.Errorf("%w: %s", common.ErrUnauthorized, strings.TrimSpace(string(body))),
			Retryable: false,
		}
	case http.StatusTooManyRequests:
		c.logger.Warn("Rate limit hit, will retry")
		return fmt.Errorf("%w: %s", common.ErrRateLimit, strings.TrimSpace(string(body)))
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: supabase returned %d", common.ErrRemoteUnavailable, resp.StatusCode)
	}

	return &common.RetryableError{
		Err:       fmt.Errorf("supabase error: %d - %s", resp.StatusCode, string(body)),
		Retryable: false,
	}
}

func rowFromEntry(entry model.Entry, userID string) entryRow {
	return entryRow{
		ID:            entry.ID,
		UserID:        userID,
		Number:        entry.Number,
		Display:       entry.Display,
		Carrier:       string(entry.Carrier),
		Confidence:    entry.Confidence.String(),
		Label:         entry.Label,
		Origin:        entry.Origin,
		Source:        string(entry.Source),
		Status:        string(entry.Status),
		Archived:      entry.Archived,
		CreatedAt:     entry.CreatedAt.UTC(),
		UpdatedAt:     entry.UpdatedAt.UTC(),
		LastCheckedAt: entry.LastCheckedAt,
	}
}

func (r entryRow) toEntry() (*model.Entry, error) {
	confidence, err := carrier.ParseConfidence(r.Confidence)
	if err != nil {
		return nil, err
	}

	cr := carrier.Carrier(r.Carrier)
	if !cr.Valid() {
		return nil, fmt.Errorf("unknown carrier %q", r.Carrier)
	}

	source := model.Source(r.Source)
	if !source.Valid() {
		source = model.SourceSync
	}

	entry := &model.Entry{
		ID:            r.ID,
		Number:        r.Number,
		Display:       r.Display,
		Carrier:       cr,
		Confidence:    confidence,
		Label:         r.Label,
		Origin:        r.Origin,
		Source:        source,
		Status:        model.Status(r.Status),
		Archived:      r.Archived,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		LastCheckedAt: r.LastCheckedAt,
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	return entry, nil
}
