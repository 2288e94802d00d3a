// Package notify pushes shipment alerts through ntfy.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/trackhub/trackhub/internal/model"
	"github.com/trackhub/trackhub/internal/service"
)

const userAgent = "TrackHub-Go/1.0"

const defaultServer = "https://ntfy.sh"

// Config holds notification settings. An empty topic disables notifications.
type Config struct {
	Server string `mapstructure:"server"`
	Topic  string `mapstructure:"topic"`
	Token  string `mapstructure:"token"`
}

// New builds a notifier backed by ntfy when a topic is configured, and a
// noop implementation otherwise.
func New(cfg Config) service.Notifier {
	topic := strings.TrimSpace(cfg.Topic)
	if topic == "" {
		return noopNotifier{}
	}

	server := strings.TrimSpace(cfg.Server)
	if server == "" {
		server = defaultServer
	}

	return &ntfyNotifier{
		endpoint: strings.TrimRight(server, "/") + "/" + topic,
		token:    cfg.Token,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type payload struct {
	title    string
	message  string
	priority string
	tags     []string
}

type ntfyNotifier struct {
	client   *http.Client
	endpoint string
	token    string
}

// describe names an entry the way a person would: the label when one is
// set, the display form of the number otherwise.
func describe(entry *model.Entry) string {
	if entry.Label != "" {
		return entry.Label
	}
	return entry.Display
}

func (n *ntfyNotifier) NotifyStatusChanged(ctx context.Context, entry *model.Entry, from, to model.Status) error {
	message := fmt.Sprintf("%s is now %s", describe(entry), strings.ToLower(to.Title()))
	if from != "" {
		message = fmt.Sprintf("%s (was %s)", message, strings.ToLower(from.Title()))
	}

	return n.send(ctx, payload{
		title:   "TrackHub - Status Update",
		message: message,
		tags:    []string{"package", entry.Carrier.String()},
	})
}

func (n *ntfyNotifier) NotifyDelivered(ctx context.Context, entry *model.Entry) error {
	return n.send(ctx, payload{
		title:    "TrackHub - Delivered",
		message:  fmt.Sprintf("📦 Delivered: %s", describe(entry)),
		tags:     []string{"package", "delivered"},
		priority: "high",
	})
}

func (n *ntfyNotifier) NotifyException(ctx context.Context, entry *model.Entry, detail string) error {
	detail = strings.TrimSpace(detail)
	message := fmt.Sprintf("⚠️ Problem with %s", describe(entry))
	if detail != "" {
		message = fmt.Sprintf("%s: %s", message, detail)
	}

	return n.send(ctx, payload{
		title:    "TrackHub - Delivery Problem",
		message:  message,
		tags:     []string{"package", "problem"},
		priority: "high",
	})
}

func (n *ntfyNotifier) NotifySyncCompleted(ctx context.Context, pulled, pushed, failed int) error {
	title := "TrackHub - Sync Complete"
	message := fmt.Sprintf("Sync complete: %d pulled, %d pushed", pulled, pushed)
	if failed > 0 {
		title = "TrackHub - Sync Complete (with errors)"
		message = fmt.Sprintf("%s, %d backends failed", message, failed)
	}

	return n.send(ctx, payload{
		title:   title,
		message: message,
		tags:    []string{"sync"},
	})
}

func (n *ntfyNotifier) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "TrackHub - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"test"},
		priority: "low",
	})
}

func (n *ntfyNotifier) Enabled() bool { return true }

func (n *ntfyNotifier) send(ctx context.Context, data payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("failed to build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" {
		req.Header.Set("Priority", data.priority)
	}
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopNotifier struct{}

func (noopNotifier) NotifyStatusChanged(context.Context, *model.Entry, model.Status, model.Status) error {
	return nil
}

func (noopNotifier) NotifyDelivered(context.Context, *model.Entry) error { return nil }

func (noopNotifier) NotifyException(context.Context, *model.Entry, string) error { return nil }

func (noopNotifier) NotifySyncCompleted(context.Context, int, int, int) error { return nil }

func (noopNotifier) TestNotification(context.Context) error { return nil }

func (noopNotifier) Enabled() bool { return false }
