package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vibetube/internal/config"
)

const userAgent = "VibeTube/0.1.0"

// Event identifies a notification kind.
type Event string

const (
	EventItemAcquired      Event = "item_acquired"
	EventAcquisitionFailed Event = "acquisition_failed"
	EventItemsDiscovered   Event = "items_discovered"
	EventFilesMissing      Event = "files_missing"
	EventTest              Event = "test"
)

// Payload carries event fields. Values are rendered with fmt.
type Payload map[string]any

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventItemAcquired:      cfg.Notifications.Acquired,
			EventAcquisitionFailed: cfg.Notifications.Failures,
			EventItemsDiscovered:   cfg.Notifications.Discoveries,
			EventFilesMissing:      cfg.Notifications.Missing,
			EventTest:              true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return fmt.Errorf("unknown notification event %q", event)
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventItemAcquired:
		title := payload.text("title")
		body := fmt.Sprintf("✅ Downloaded: %s", title)
		if channel := payload.text("channel"); channel != "" {
			body = fmt.Sprintf("%s\nChannel: %s", body, channel)
		}
		return message{
			title: "VibeTube - Downloaded",
			body:  body,
			tags:  []string{"vibetube", "download", "completed"},
		}, true
	case EventAcquisitionFailed:
		body := fmt.Sprintf("❌ Download failed: %s", payload.text("title"))
		if detail := payload.text("error"); detail != "" {
			body = fmt.Sprintf("%s\n%s", body, detail)
		}
		return message{
			title:    "VibeTube - Download Failed",
			body:     body,
			tags:     []string{"vibetube", "download", "failed"},
			priority: "high",
		}, true
	case EventItemsDiscovered:
		return message{
			title: "VibeTube - New Videos",
			body:  fmt.Sprintf("📺 %s new videos across %s sources", payload.text("count"), payload.text("sources")),
			tags:  []string{"vibetube", "refresh", "discovered"},
		}, true
	case EventFilesMissing:
		return message{
			title: "VibeTube - Missing Files",
			body:  fmt.Sprintf("⚠️ %s downloaded videos are missing from disk", payload.text("count")),
			tags:  []string{"vibetube", "scan", "missing"},
		}, true
	case EventTest:
		return message{
			title:    "VibeTube - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"vibetube", "test"},
			priority: "low",
		}, true
	}
	return message{}, false
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
