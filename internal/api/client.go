// Package api implements the client for the hosted TrackHub service: the
// tracking status provider plus a remote entry store for sync.
package api

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

// Config holds connection settings for the status API.
type Config struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Client implements the service.StatusProvider and service.RemoteStore
// interfaces against the hosted API's REST endpoints.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	retryOpts  *service.RetryOptions
	baseURL    string
	apiKey     string
}

// API wire types. Events arrive without identifiers; callers assign them
// when persisting.
type trackResponse struct {
	Number  string       `json:"number"`
	Carrier string       `json:"carrier"`
	Status  string       `json:"status"`
	Events  []trackEvent `json:"events"`
}

type trackEvent struct {
	OccurredAt time.Time `json:"occurredAt"`
	Status     string    `json:"status"`
	Message    string    `json:"message"`
	Location   string    `json:"location"`
}

type entryPayload struct {
	LastCheckedAt *time.Time `json:"lastCheckedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	ID            string     `json:"id"`
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

// NewClient creates a status API client with the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("status API base URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: slog.Default().With("component", "api"),
		retryOpts: &service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

// Track fetches the current status and event history for a shipment.
func (c *Client) Track(ctx context.Context, cr carrier.Carrier, number string) (*service.TrackInfo, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}
	if number == "" {
		return nil, fmt.Errorf("tracking number cannot be empty")
	}
	if !cr.Valid() || cr == carrier.Other {
		return nil, fmt.Errorf("carrier %q is not trackable", cr)
	}

	u, err := url.Parse(c.baseURL + "/v1/track")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Set("carrier", cr.String())
	q.Set("number", number)
	u.RawQuery = q.Encode()

	c.logger.Debug("Requesting tracking status",
		"carrier", cr,
		"number", number)

	var payload trackResponse
	retryErr := common.WithRetry(ctx, func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if reqErr != nil {
			return fmt.Errorf("failed to create request: %w", reqErr)
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return &common.RetryableError{Err: fmt.Errorf("failed to reach status API: %w", doErr), Retryable: true}
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		if resp.StatusCode != http.StatusOK {
			return c.statusError(resp, cr, number)
		}

		if decodeErr := json.NewDecoder(resp.Body).Decode(&payload); decodeErr != nil {
			return fmt.Errorf("failed to decode response: %w", decodeErr)
		}
		return nil
	}, *c.retryOpts)
	if retryErr != nil {
		return nil, retryErr
	}

	return c.mapTrackResponse(payload)
}

// statusError converts a non-200 response into an error. Rate limits and
// server errors stay retryable; everything else aborts the retry loop.
func (c *Client) statusError(resp *http.Response, cr carrier.Carrier, number string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch resp.StatusCode {
	case http.StatusNotFound:
		return &common.RetryableError{
			Err:       fmt.Errorf("%w: %s has no record of %s", common.ErrNotFound, cr.DisplayName(), number),
			Retryable: false,
		}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &common.RetryableError{
			Err:       fmt.Errorf("status API rejected credentials: %d - %s", resp.StatusCode, string(body)),
			Retryable: false,
		}
	case http.StatusTooManyRequests:
		c.logger.Warn("Rate limit hit, will retry", "carrier", cr)
		return fmt.Errorf("%w: %s", common.ErrRateLimit, strings.TrimSpace(string(body)))
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status API returned %d", common.ErrRemoteUnavailable, resp.StatusCode)
	}

	return &common.RetryableError{
		Err:       fmt.Errorf("status API error: %d - %s", resp.StatusCode, string(body)),
		Retryable: false,
	}
}

// mapTrackResponse converts wire events to the internal model. Events with
// statuses this version does not understand are dropped rather than failing
// the whole refresh.
func (c *Client) mapTrackResponse(payload trackResponse) (*service.TrackInfo, error) {
	status, err := model.ParseStatus(payload.Status)
	if err != nil {
		return nil, fmt.Errorf("status API returned unknown status %q: %w", payload.Status, err)
	}

	events := make([]model.Event, 0, len(payload.Events))
	for _, ev := range payload.Events {
		st, parseErr := model.ParseStatus(ev.Status)
		if parseErr != nil {
			c.logger.Debug("Skipping event with unknown status", "status", ev.Status)
			continue
		}
		events = append(events, model.Event{
			Status:     st,
			Message:    ev.Message,
			Location:   ev.Location,
			OccurredAt: ev.OccurredAt.UTC(),
		})
	}

	return &service.TrackInfo{
		Status: status,
		Events: events,
	}, nil
}

// Pull returns entries updated after since, oldest first.
func (c *Client) Pull(ctx context.Context, since time.Time) ([]model.Entry, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	u, err := url.Parse(c.baseURL + "/v1/entries")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if !since.IsZero() {
		q := u.Query()
		q.Set("updated_since", since.UTC().Format(time.RFC3339Nano))
		u.RawQuery = q.Encode()
	}

	var rows []entryPayload
	retryErr := common.WithRetry(ctx, func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if reqErr != nil {
			return fmt.Errorf("failed to create request: %w", reqErr)
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return &common.RetryableError{Err: fmt.Errorf("failed to reach status API: %w", doErr), Retryable: true}
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		if resp.StatusCode != http.StatusOK {
			return c.entriesError(resp)
		}

		rows = rows[:0]
		if decodeErr := json.NewDecoder(resp.Body).Decode(&rows); decodeErr != nil {
			return fmt.Errorf("failed to decode entries: %w", decodeErr)
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
			c.logger.Warn("Skipping malformed remote entry", "number", row.Number, "error", convErr)
			continue
		}
		entries = append(entries, *entry)
	}

	c.logger.Debug("Pulled entries from status API", "count", len(entries))
	return entries, nil
}

// Push upserts entries keyed by tracking number.
func (c *Client) Push(ctx context.Context, entries []model.Entry) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	if len(entries) == 0 {
		return nil
	}

	rows := make([]entryPayload, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, payloadFromEntry(entry))
	}

	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to encode entries: %w", err)
	}

	retryErr := common.WithRetry(ctx, func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/entries", bytes.NewReader(payload))
		if reqErr != nil {
			return fmt.Errorf("failed to create request: %w", reqErr)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return &common.RetryableError{Err: fmt.Errorf("failed to reach status API: %w", doErr), Retryable: true}
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated &&
			resp.StatusCode != http.StatusNoContent {
			return c.entriesError(resp)
		}
		return nil
	}, *c.retryOpts)
	if retryErr != nil {
		return retryErr
	}

	c.logger.Debug("Pushed entries to status API", "count", len(entries))
	return nil
}

// entriesError converts a non-2xx entries response into an error, with the
// same retry split as statusError.
func (c *Client) entriesError(resp *http.Response) error {
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
		return fmt.Errorf("%w: status API returned %d", common.ErrRemoteUnavailable, resp.StatusCode)
	}

	return &common.RetryableError{
		Err:       fmt.Errorf("status API error: %d - %s", resp.StatusCode, string(body)),
		Retryable: false,
	}
}

func payloadFromEntry(entry model.Entry) entryPayload {
	return entryPayload{
		ID:            entry.ID,
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

func (p entryPayload) toEntry() (*model.Entry, error) {
	confidence, err := carrier.ParseConfidence(p.Confidence)
	if err != nil {
		return nil, err
	}

	cr := carrier.Carrier(p.Carrier)
	if !cr.Valid() {
		return nil, fmt.Errorf("unknown carrier %q", p.Carrier)
	}

	source := model.Source(p.Source)
	if !source.Valid() {
		source = model.SourceSync
	}

	entry := &model.Entry{
		ID:            p.ID,
		Number:        p.Number,
		Display:       p.Display,
		Carrier:       cr,
		Confidence:    confidence,
		Label:         p.Label,
		Origin:        p.Origin,
		Source:        source,
		Status:        model.Status(p.Status),
		Archived:      p.Archived,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		LastCheckedAt: p.LastCheckedAt,
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	return entry, nil
}
