package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDownloader()
	if err := c.normalizeMetadataCache(); err != nil {
		return err
	}
	c.normalizeSettings()
	c.normalizeJellyfin()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("VIBETUBE_STORAGE_ROOT"); ok && strings.TrimSpace(value) != "" {
		c.Paths.StorageRoot = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	var err error
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.StorageRoot, err = expandPath(c.Paths.StorageRoot); err != nil {
		return fmt.Errorf("paths.storage_root: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	return nil
}

func (c *Config) normalizeDownloader() {
	c.Downloader.Binary = strings.TrimSpace(c.Downloader.Binary)
	if c.Downloader.Binary == "" {
		c.Downloader.Binary = defaultDownloaderBinary
	}
	if c.Downloader.InfoTimeout < 0 {
		c.Downloader.InfoTimeout = 0
	}
	if c.Downloader.DownloadTimeout < 0 {
		c.Downloader.DownloadTimeout = 0
	}
	if c.Downloader.MinFileBytes <= 0 {
		c.Downloader.MinFileBytes = defaultMinFileBytes
	}
	if c.Downloader.ThumbnailTimeout <= 0 {
		c.Downloader.ThumbnailTimeout = defaultThumbnailTimeout
	}
}

func (c *Config) normalizeMetadataCache() error {
	if strings.TrimSpace(c.MetadataCache.Path) == "" {
		c.MetadataCache.Path = defaultMetadataCachePath()
	}
	var err error
	if c.MetadataCache.Path, err = expandPath(c.MetadataCache.Path); err != nil {
		return fmt.Errorf("metadata_cache.path: %w", err)
	}
	if c.MetadataCache.TTLHours <= 0 {
		c.MetadataCache.TTLHours = defaultMetadataCacheTTL
	}
	return nil
}

func (c *Config) normalizeSettings() {
	c.Settings.FilenameFormat = strings.TrimSpace(c.Settings.FilenameFormat)
	if c.Settings.FilenameFormat == "" {
		c.Settings.FilenameFormat = defaultFilenameFormat
	}
	c.Settings.DefaultBucket = strings.TrimSpace(c.Settings.DefaultBucket)
	if c.Settings.DefaultBucket == "" {
		c.Settings.DefaultBucket = defaultBucketName
	}
}

func (c *Config) normalizeJellyfin() {
	if c.Jellyfin.APIKey == "" {
		if value, ok := os.LookupEnv("JELLYFIN_API_KEY"); ok {
			c.Jellyfin.APIKey = strings.TrimSpace(value)
		}
	}
	c.Jellyfin.URL = strings.TrimRight(strings.TrimSpace(c.Jellyfin.URL), "/")
	c.Jellyfin.APIKey = strings.TrimSpace(c.Jellyfin.APIKey)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
