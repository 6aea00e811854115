// Package library keeps the catalog honest about files on disk: the scanner
// demotes acquired items whose media disappeared, and DeleteItemFiles removes
// an item's folder on request.
package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"vibetube/internal/catalog"
	"vibetube/internal/logging"
	"vibetube/internal/notifications"
	"vibetube/internal/services"
)

// Scanner checks acquired items against the filesystem.
type Scanner struct {
	store    *catalog.Store
	notifier notifications.Service
	logger   *slog.Logger
}

// NewScanner constructs a Scanner. notifier may be nil.
func NewScanner(store *catalog.Store, notifier notifications.Service, logger *slog.Logger) *Scanner {
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	return &Scanner{store: store, notifier: notifier, logger: logging.NewComponentLogger(logger, "library")}
}

// Scan marks every acquired item whose output file is gone as missing and
// returns how many changed. A second scan with no filesystem changes
// returns zero.
func (s *Scanner) Scan(ctx context.Context) (int, error) {
	items, err := s.store.AcquiredItems(ctx)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "scan", "list acquired", "catalog unavailable", err)
	}
	var missing []int64
	for _, item := range items {
		if !fileExists(item.OutputPath) {
			missing = append(missing, item.ID)
		}
	}
	changed, err := s.store.MarkMissing(ctx, missing)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "scan", "mark missing", "catalog unavailable", err)
	}

	logger := logging.WithContext(ctx, s.logger)
	logger.Info("library scan completed",
		logging.String(logging.FieldEventType, "library_scan_completed"),
		logging.Int("checked", len(items)),
		logging.Int("missing", changed),
	)
	if changed > 0 {
		if err := s.notifier.Publish(ctx, notifications.EventFilesMissing, notifications.Payload{"count": changed}); err != nil {
			logger.Debug("missing-files notification not sent", logging.Error(err))
		}
	}
	return changed, nil
}

// DeleteResult describes a DeleteItemFiles call.
type DeleteResult struct {
	Folder string
	// AlreadyGone is true when the folder did not exist.
	AlreadyGone bool
}

// DeleteItemFiles removes an acquired item's folder and marks the item
// missing. Items that are unknown or not acquired are rejected.
func (s *Scanner) DeleteItemFiles(ctx context.Context, itemID int64) (DeleteResult, error) {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return DeleteResult{}, err
	}
	if item == nil {
		return DeleteResult{}, fmt.Errorf("item %d: %w", itemID, services.ErrNotFound)
	}
	if !item.Acquired {
		return DeleteResult{}, fmt.Errorf("item %d is not downloaded: %w", itemID, services.ErrValidation)
	}

	result := DeleteResult{}
	if strings.TrimSpace(item.OutputPath) != "" {
		result.Folder = filepath.Dir(item.OutputPath)
	}
	if result.Folder == "" || !fileExists(result.Folder) {
		result.AlreadyGone = true
	} else if err := s.checkItemFolder(ctx, result.Folder); err != nil {
		return result, err
	} else if err := os.RemoveAll(result.Folder); err != nil {
		return result, fmt.Errorf("remove item folder: %w", err)
	}

	if _, err := s.store.MarkMissing(ctx, []int64{item.ID}); err != nil {
		return result, err
	}
	logging.WithContext(services.WithItem(ctx, item.ExternalID), s.logger).Info("item files deleted",
		logging.String(logging.FieldEventType, "item_files_deleted"),
		logging.String("folder", result.Folder),
		logging.Bool("already_gone", result.AlreadyGone),
	)
	return result, nil
}

// checkItemFolder rejects folders that are not strictly inside a bucket or
// the download_path root. A bucket or root directory itself is never an item
// folder.
func (s *Scanner) checkItemFolder(ctx context.Context, folder string) error {
	buckets, err := s.store.ListBuckets(ctx)
	if err != nil {
		return err
	}
	roots := make([]string, 0, len(buckets)+1)
	for _, bucket := range buckets {
		roots = append(roots, bucket.Path)
	}
	setting, ok, err := s.store.GetSetting(ctx, catalog.SettingDownloadPath)
	if err != nil {
		return err
	}
	if ok {
		roots = append(roots, setting.Value)
	}

	folder = filepath.Clean(folder)
	inside := false
	for _, root := range roots {
		if strings.TrimSpace(root) == "" {
			continue
		}
		rel, err := filepath.Rel(filepath.Clean(root), folder)
		if err != nil {
			continue
		}
		if rel == "." {
			return fmt.Errorf("refusing to delete storage folder %s: %w", folder, services.ErrValidation)
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			inside = true
		}
	}
	if !inside {
		return fmt.Errorf("refusing to delete %s outside the storage folders: %w", folder, services.ErrValidation)
	}
	return nil
}

func fileExists(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}
