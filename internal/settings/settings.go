// Package settings reads runtime settings with the fallbacks the loops apply
// when a stored value is missing or malformed.
package settings

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"vibetube/internal/catalog"
	"vibetube/internal/logging"
)

// Fallbacks applied when a stored value is missing or unparsable.
const (
	DefaultDownloadDelay = 60 * time.Second
	DefaultCheckInterval = 3600 * time.Second
	DefaultScanInterval  = 86400 * time.Second
)

// Store is the subset of the catalog the reader needs.
type Store interface {
	GetSetting(ctx context.Context, key string) (catalog.Setting, bool, error)
}

// Reader resolves typed runtime settings on every call so edits take effect
// on the next loop iteration.
type Reader struct {
	store  Store
	logger *slog.Logger
}

// NewReader constructs a Reader.
func NewReader(store Store, logger *slog.Logger) *Reader {
	return &Reader{store: store, logger: logging.NewComponentLogger(logger, "settings")}
}

func (r *Reader) value(ctx context.Context, key string) (string, bool, error) {
	setting, ok, err := r.store.GetSetting(ctx, key)
	if err != nil || !ok {
		return "", false, err
	}
	return strings.TrimSpace(setting.Value), true, nil
}

// AutoDownload reports whether the queue processor should run acquisitions.
func (r *Reader) AutoDownload(ctx context.Context) (bool, error) {
	value, _, err := r.value(ctx, catalog.SettingAutoDownload)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(value, "true"), nil
}

// DownloadDelay returns the pause between acquisitions. Missing or invalid
// values fall back to DefaultDownloadDelay; values below floor are raised.
func (r *Reader) DownloadDelay(ctx context.Context, floor time.Duration) (time.Duration, error) {
	delay, err := r.seconds(ctx, catalog.SettingDownloadDelay, DefaultDownloadDelay)
	if err != nil {
		return 0, err
	}
	if delay < floor {
		delay = floor
	}
	return delay, nil
}

// CheckInterval returns the pause between poller passes.
func (r *Reader) CheckInterval(ctx context.Context) (time.Duration, error) {
	return r.seconds(ctx, catalog.SettingCheckInterval, DefaultCheckInterval)
}

// ScanInterval returns the pause between scanner passes.
func (r *Reader) ScanInterval(ctx context.Context) (time.Duration, error) {
	return r.seconds(ctx, catalog.SettingScanInterval, DefaultScanInterval)
}

// DownloadPath returns the storage root recorded in settings.
func (r *Reader) DownloadPath(ctx context.Context) (string, error) {
	value, _, err := r.value(ctx, catalog.SettingDownloadPath)
	return value, err
}

func (r *Reader) seconds(ctx context.Context, key string, fallback time.Duration) (time.Duration, error) {
	value, ok, err := r.value(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok || value == "" {
		return fallback, nil
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		logging.WarnWithContext(r.logger, "invalid numeric setting; using default", "setting_invalid",
			logging.String("key", key),
			logging.String("value", value),
			logging.Duration("fallback", fallback),
			logging.String(logging.FieldErrorHint, "run vibetube setting set "+key+" <seconds>"),
			logging.String(logging.FieldImpact, "default interval applied"),
		)
		return fallback, nil
	}
	return time.Duration(seconds) * time.Second, nil
}
