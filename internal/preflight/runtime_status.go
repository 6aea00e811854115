package preflight

import (
	"context"
	"strings"
	"time"

	"vibetube/internal/config"
	"vibetube/internal/services/ytdlp"
)

// CheckJellyfinFromConfig evaluates Jellyfin status from config and connectivity.
func CheckJellyfinFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "Jellyfin"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.Jellyfin.Enabled {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	if strings.TrimSpace(cfg.Jellyfin.URL) == "" {
		return Result{Name: name, Detail: "Missing URL"}
	}
	if strings.TrimSpace(cfg.Jellyfin.APIKey) == "" {
		return Result{Name: name, Detail: "Missing API key"}
	}
	return CheckJellyfin(ctx, cfg.Jellyfin.URL, cfg.Jellyfin.APIKey)
}

// VersionReporter reports the downloader version.
type VersionReporter interface {
	Version(ctx context.Context) (string, error)
}

// CheckDownloader runs the downloader's version probe.
func CheckDownloader(ctx context.Context, client VersionReporter) Result {
	const name = "yt-dlp"

	probeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	version, err := client.Version(probeCtx)
	if err != nil {
		return Result{Name: name, Detail: ytdlp.Detail(err)}
	}
	return Result{Name: name, Passed: true, Detail: "version " + version}
}
