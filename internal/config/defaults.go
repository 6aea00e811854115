package config

const (
	defaultStateDir             = "~/.local/share/vibetube"
	defaultLogDir               = "~/.local/share/vibetube/logs"
	defaultStorageRoot          = "~/vibetube/downloads"
	defaultAPIBind              = "127.0.0.1:7488"
	defaultDownloaderBinary     = "yt-dlp"
	defaultInfoTimeout          = 120
	defaultDownloadTimeout      = 4 * 60 * 60
	defaultMinFileBytes         = 10000
	defaultThumbnailTimeout     = 10
	defaultMetadataCacheTTL     = 24
	defaultCheckInterval        = 3600
	defaultScanInterval         = 86400
	defaultDownloadDelay        = 60
	defaultFilenameFormat       = "{video_id} - {title}.{ext}"
	defaultBucketName           = "Default"
	defaultIdleInterval         = 10
	defaultErrorCooldown        = 10
	defaultPollBackoff          = 60
	defaultScanBackoff          = 60
	defaultMinDownloadDelay     = 5
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:    defaultStateDir,
			LogDir:      defaultLogDir,
			StorageRoot: defaultStorageRoot,
			APIBind:     defaultAPIBind,
		},
		Downloader: Downloader{
			Binary:           defaultDownloaderBinary,
			InfoTimeout:      defaultInfoTimeout,
			DownloadTimeout:  defaultDownloadTimeout,
			MinFileBytes:     defaultMinFileBytes,
			ThumbnailTimeout: defaultThumbnailTimeout,
		},
		MetadataCache: MetadataCache{
			Enabled:  true,
			Path:     defaultMetadataCachePath(),
			TTLHours: defaultMetadataCacheTTL,
		},
		Settings: Settings{
			CheckInterval:  defaultCheckInterval,
			ScanInterval:   defaultScanInterval,
			DownloadDelay:  defaultDownloadDelay,
			AutoDownload:   true,
			FilenameFormat: defaultFilenameFormat,
			DefaultBucket:  defaultBucketName,
		},
		Workflow: Workflow{
			IdleInterval:     defaultIdleInterval,
			ErrorCooldown:    defaultErrorCooldown,
			PollBackoff:      defaultPollBackoff,
			ScanBackoff:      defaultScanBackoff,
			MinDownloadDelay: defaultMinDownloadDelay,
			StartLoops:       true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Acquired:       true,
			Failures:       true,
			Discoveries:    true,
			Missing:        true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
