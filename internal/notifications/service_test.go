package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"vibetube/internal/config"
	"vibetube/internal/notifications"
)

type captured struct {
	title    string
	body     string
	tags     string
	priority string
}

func newCaptureServer(t *testing.T) (*httptest.Server, func() []captured) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []captured
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		seen = append(seen, captured{
			title:    r.Header.Get("Title"),
			body:     string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, func() []captured {
		mu.Lock()
		defer mu.Unlock()
		return append([]captured(nil), seen...)
	}
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventItemAcquired, notifications.Payload{"title": "Example"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectBody     string
		expectTags     string
		expectPriority string
	}{
		{
			name:        "acquired",
			event:       notifications.EventItemAcquired,
			payload:     notifications.Payload{"title": "Clip", "channel": "Chan"},
			expectTitle: "VibeTube - Downloaded",
			expectBody:  "✅ Downloaded: Clip\nChannel: Chan",
			expectTags:  "vibetube,download,completed",
		},
		{
			name:           "failed",
			event:          notifications.EventAcquisitionFailed,
			payload:        notifications.Payload{"title": "Clip", "error": "boom"},
			expectTitle:    "VibeTube - Download Failed",
			expectBody:     "❌ Download failed: Clip\nboom",
			expectTags:     "vibetube,download,failed",
			expectPriority: "high",
		},
		{
			name:        "discovered",
			event:       notifications.EventItemsDiscovered,
			payload:     notifications.Payload{"count": 4, "sources": 2},
			expectTitle: "VibeTube - New Videos",
			expectBody:  "📺 4 new videos across 2 sources",
			expectTags:  "vibetube,refresh,discovered",
		},
		{
			name:        "missing",
			event:       notifications.EventFilesMissing,
			payload:     notifications.Payload{"count": 3},
			expectTitle: "VibeTube - Missing Files",
			expectBody:  "⚠️ 3 downloaded videos are missing from disk",
			expectTags:  "vibetube,scan,missing",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "VibeTube - Test",
			expectBody:     "🧪 Notification system test",
			expectTags:     "vibetube,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server, seen := newCaptureServer(t)
			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("Publish: %v", err)
			}
			got := seen()
			if len(got) != 1 {
				t.Fatalf("expected 1 request, got %d", len(got))
			}
			if got[0].title != tc.expectTitle || got[0].body != tc.expectBody || got[0].tags != tc.expectTags || got[0].priority != tc.expectPriority {
				t.Fatalf("unexpected notification %+v", got[0])
			}
		})
	}
}

func TestNtfyServiceHonorsToggles(t *testing.T) {
	server, seen := newCaptureServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Discoveries = false
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventItemsDiscovered, notifications.Payload{"count": 1}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if n := len(seen()); n != 0 {
		t.Fatalf("expected disabled event to be dropped, got %d requests", n)
	}
}

func TestNtfyServiceReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err == nil {
		t.Fatal("expected error for 502 response")
	}
}
