package daemon

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"vibetube/internal/catalog"
	"vibetube/internal/config"
	"vibetube/internal/logging"
	"vibetube/internal/services"
)

// AddBucket creates a bucket directory under the storage root and records it.
func (d *Daemon) AddBucket(ctx context.Context, name, description string, makeDefault bool) (*catalog.Bucket, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("bucket name is required: %w", services.ErrValidation)
	}
	root, err := d.StorageRoot(ctx)
	if err != nil {
		return nil, err
	}
	path := catalog.BucketPath(root, name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create bucket directory: %w", err)
	}
	bucket, err := d.store.CreateBucket(ctx, name, path, strings.TrimSpace(description), makeDefault)
	if err != nil {
		return nil, err
	}
	d.logger.Info("bucket created",
		logging.String(logging.FieldEventType, "bucket_created"),
		logging.String("bucket", bucket.Name),
		logging.String("path", bucket.Path),
		logging.Bool("default", bucket.IsDefault),
	)
	return bucket, nil
}

// ListBuckets returns every bucket.
func (d *Daemon) ListBuckets(ctx context.Context) ([]*catalog.Bucket, error) {
	return d.store.ListBuckets(ctx)
}

// SetDefaultBucket marks the named bucket as default.
func (d *Daemon) SetDefaultBucket(ctx context.Context, name string) (*catalog.Bucket, error) {
	bucket, err := d.bucketByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := d.store.SetDefaultBucket(ctx, bucket.ID); err != nil {
		return nil, err
	}
	bucket.IsDefault = true
	return bucket, nil
}

// RemoveBucket deletes the named bucket. Its sources move to the default
// bucket; the directory is left on disk.
func (d *Daemon) RemoveBucket(ctx context.Context, name string) error {
	bucket, err := d.bucketByName(ctx, name)
	if err != nil {
		return err
	}
	return d.store.DeleteBucket(ctx, bucket.ID)
}

func (d *Daemon) bucketByName(ctx context.Context, name string) (*catalog.Bucket, error) {
	bucket, err := d.store.BucketByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if bucket == nil {
		return nil, fmt.Errorf("bucket %q: %w", name, services.ErrNotFound)
	}
	return bucket, nil
}

// ListSettings returns every stored runtime setting.
func (d *Daemon) ListSettings(ctx context.Context) ([]catalog.Setting, error) {
	return d.store.ListSettings(ctx)
}

// GetSetting returns one runtime setting.
func (d *Daemon) GetSetting(ctx context.Context, key string) (catalog.Setting, error) {
	setting, ok, err := d.store.GetSetting(ctx, strings.TrimSpace(key))
	if err != nil {
		return catalog.Setting{}, err
	}
	if !ok {
		return catalog.Setting{}, fmt.Errorf("setting %q: %w", key, services.ErrNotFound)
	}
	return setting, nil
}

// SetSetting validates and stores a runtime setting. The loops pick it up on
// their next iteration.
func (d *Daemon) SetSetting(ctx context.Context, key, value string) (catalog.Setting, error) {
	key = strings.TrimSpace(key)
	normalized, err := normalizeSetting(key, value)
	if err != nil {
		return catalog.Setting{}, err
	}
	setting, err := d.store.SetSetting(ctx, key, normalized)
	if err != nil {
		return catalog.Setting{}, err
	}
	d.logger.Info("setting updated",
		logging.String(logging.FieldEventType, "setting_updated"),
		logging.String("key", key),
		logging.Int64("version", setting.Version),
	)
	return setting, nil
}

// ClearCookies removes the stored credential text. The credential file is
// deleted the next time a tool invocation asks for it.
func (d *Daemon) ClearCookies(ctx context.Context) error {
	_, err := d.SetSetting(ctx, catalog.SettingCookies, "")
	return err
}

func normalizeSetting(key, value string) (string, error) {
	if !slices.Contains(catalog.KnownSettings, key) {
		return "", fmt.Errorf("unknown setting %q (known: %s): %w", key, strings.Join(catalog.KnownSettings, ", "), services.ErrValidation)
	}
	trimmed := strings.TrimSpace(value)
	switch key {
	case catalog.SettingCheckInterval, catalog.SettingScanInterval, catalog.SettingDownloadDelay:
		seconds, err := strconv.Atoi(trimmed)
		if err != nil || seconds <= 0 {
			return "", fmt.Errorf("%s must be a positive number of seconds: %w", key, services.ErrValidation)
		}
		return strconv.Itoa(seconds), nil
	case catalog.SettingAutoDownload:
		enabled, err := strconv.ParseBool(trimmed)
		if err != nil {
			return "", fmt.Errorf("%s must be true or false: %w", key, services.ErrValidation)
		}
		return strconv.FormatBool(enabled), nil
	case catalog.SettingDownloadPath:
		if trimmed == "" {
			return "", fmt.Errorf("%s must not be empty: %w", key, services.ErrValidation)
		}
		expanded, err := config.ExpandPath(trimmed)
		if err != nil {
			return "", err
		}
		return expanded, nil
	case catalog.SettingCookies:
		return value, nil
	default:
		return trimmed, nil
	}
}
