package jellyfin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vibetube/internal/config"
)

const requestTimeout = 15 * time.Second

// HTTPDoer describes the HTTP client used by the Jellyfin service.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type httpService struct {
	baseURL string
	apiKey  string
	client  HTTPDoer
}

// NewConfiguredService returns a refresh service for the configured server,
// or a no-op when the integration is disabled or incomplete.
func NewConfiguredService(cfg *config.Config) Service {
	if cfg == nil || !cfg.Jellyfin.Enabled {
		return Noop()
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.Jellyfin.URL), "/")
	apiKey := strings.TrimSpace(cfg.Jellyfin.APIKey)
	if baseURL == "" || apiKey == "" {
		return Noop()
	}
	return NewHTTPService(baseURL, apiKey, &http.Client{Timeout: requestTimeout})
}

// NewHTTPService constructs an HTTP-backed Jellyfin service.
func NewHTTPService(baseURL, apiKey string, client HTTPDoer) Service {
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	return &httpService{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client:  client,
	}
}

func (s *httpService) Refresh(ctx context.Context) error {
	if s == nil || s.client == nil || s.baseURL == "" || s.apiKey == "" {
		return nil
	}
	refreshURL := fmt.Sprintf("%s/Library/Refresh", s.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, refreshURL, nil)
	if err != nil {
		return fmt.Errorf("build jellyfin refresh request: %w", err)
	}
	req.Header.Set("X-Emby-Token", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("refresh jellyfin library: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("jellyfin refresh returned %d", resp.StatusCode)
	}
	return nil
}
