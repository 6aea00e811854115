// Package credentials materializes the cookie text stored in runtime settings
// into the file yt-dlp reads via --cookies.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"vibetube/internal/catalog"
	"vibetube/internal/fileutil"
	"vibetube/internal/logging"
)

// Store is the subset of the catalog the cache needs.
type Store interface {
	GetSetting(ctx context.Context, key string) (catalog.Setting, bool, error)
}

// Cache owns the credential file. The file is rewritten only when the stored
// setting version advances, the file has disappeared, or nothing was cached
// yet.
type Cache struct {
	store  Store
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	cached  bool
	version int64
}

// New constructs a Cache that writes to path.
func New(store Store, path string, logger *slog.Logger) *Cache {
	return &Cache{
		store:  store,
		path:   path,
		logger: logging.NewComponentLogger(logger, "credentials"),
	}
}

// Path returns the credential file path, or "" when no credentials are
// configured. The whole check-and-write runs in one critical section.
func (c *Cache) Path(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	setting, ok, err := c.store.GetSetting(ctx, catalog.SettingCookies)
	if err != nil {
		return "", fmt.Errorf("read credential setting: %w", err)
	}
	if !ok || strings.TrimSpace(setting.Value) == "" {
		if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("remove credential file: %w", err)
		}
		c.cached = false
		c.version = 0
		return "", nil
	}

	_, statErr := os.Stat(c.path)
	missing := errors.Is(statErr, os.ErrNotExist)
	if !c.cached || missing || setting.Version > c.version {
		if err := writePrivate(c.path, setting.Value); err != nil {
			return "", err
		}
		c.cached = true
		c.version = setting.Version
		c.logger.Debug("credential file refreshed",
			logging.Int64("version", setting.Version),
			logging.String(logging.FieldEventType, "credentials_refreshed"),
		)
	}
	return c.path, nil
}

// PathOrEmpty is Path for callers that treat read failures as "no credentials".
func (c *Cache) PathOrEmpty(ctx context.Context) string {
	path, err := c.Path(ctx)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "credential lookup failed; continuing without cookies", "credentials_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the catalog database and state_dir permissions"),
			logging.String(logging.FieldImpact, "requests run unauthenticated"),
		)
		return ""
	}
	return path
}

func writePrivate(path, contents string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, []byte(contents), 0o600); err != nil {
		return fmt.Errorf("write credential file: %w", err)
	}
	return nil
}
