package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StateDir    string `toml:"state_dir"`
	LogDir      string `toml:"log_dir"`
	StorageRoot string `toml:"storage_root"`
	APIBind     string `toml:"api_bind"`
}

// Downloader contains configuration for the external yt-dlp tool.
type Downloader struct {
	Binary           string `toml:"binary"`
	InfoTimeout      int    `toml:"info_timeout"`
	DownloadTimeout  int    `toml:"download_timeout"`
	MinFileBytes     int64  `toml:"min_file_bytes"`
	ThumbnailTimeout int    `toml:"thumbnail_timeout"`
}

// MetadataCache contains configuration for the detailed-lookup cache.
type MetadataCache struct {
	Enabled  bool   `toml:"enabled"`
	Path     string `toml:"path"`
	TTLHours int    `toml:"ttl_hours"`
}

// Settings seeds the runtime settings table the first time the catalog is
// opened. Later edits go through `vibetube setting set`.
type Settings struct {
	CheckInterval  int    `toml:"check_interval"`
	ScanInterval   int    `toml:"scan_interval"`
	DownloadDelay  int    `toml:"download_delay"`
	AutoDownload   bool   `toml:"auto_download"`
	FilenameFormat string `toml:"filename_format"`
	DefaultBucket  string `toml:"default_bucket"`
}

// Workflow contains configuration for loop pacing.
type Workflow struct {
	IdleInterval     int  `toml:"idle_interval"`
	ErrorCooldown    int  `toml:"error_cooldown"`
	PollBackoff      int  `toml:"poll_backoff"`
	ScanBackoff      int  `toml:"scan_backoff"`
	MinDownloadDelay int  `toml:"min_download_delay"`
	StartLoops       bool `toml:"start_loops"`
}

// Jellyfin contains configuration for Jellyfin library refresh integration.
type Jellyfin struct {
	Enabled bool   `toml:"enabled"`
	URL     string `toml:"url"`
	APIKey  string `toml:"api_key"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Acquired       bool   `toml:"acquired"`
	Failures       bool   `toml:"failures"`
	Discoveries    bool   `toml:"discoveries"`
	Missing        bool   `toml:"missing"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for VibeTube.
//
// Configuration sections by subsystem:
//   - Paths: state, log and storage directories plus the HTTP bind address
//   - Downloader: yt-dlp binary, timeouts and output size floor
//   - MetadataCache: bbolt cache of detailed lookups
//   - Settings: seed values for the runtime settings table
//   - Workflow: loop idle, cooldown and backoff intervals
//   - Jellyfin: media server library refresh integration
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Downloader    Downloader    `toml:"downloader"`
	MetadataCache MetadataCache `toml:"metadata_cache"`
	Settings      Settings      `toml:"settings"`
	Workflow      Workflow      `toml:"workflow"`
	Jellyfin      Jellyfin      `toml:"jellyfin"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/vibetube/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vibetube.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// StorageRoot is created on a best-effort basis so the daemon can run when
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.StorageRoot) != "" {
		_ = os.MkdirAll(c.Paths.StorageRoot, 0o755)
	}
	return nil
}

// DatabasePath returns the catalog database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "catalog.db")
}

// SocketPath returns the daemon IPC socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "vibetube.sock")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "vibetube.lock")
}

// PIDPath returns the daemon PID file location.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "vibetube.pid")
}

// CredentialPath returns the fixed location of the materialized cookie file.
// It lives under the state directory so it is never served with the storage root.
func (c *Config) CredentialPath() string {
	return filepath.Join(c.Paths.StateDir, ".temp", "youtube_cookies.txt")
}

// DownloaderBinary returns the yt-dlp executable name.
func (c *Config) DownloaderBinary() string {
	if bin := strings.TrimSpace(c.Downloader.Binary); bin != "" {
		return bin
	}
	return defaultDownloaderBinary
}

// InfoTimeout bounds discovery lookups. Zero disables the bound.
func (c *Config) InfoTimeout() time.Duration {
	return time.Duration(c.Downloader.InfoTimeout) * time.Second
}

// DownloadTimeout bounds a single acquisition attempt. Zero disables the bound.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Downloader.DownloadTimeout) * time.Second
}

// MetadataCacheTTL returns how long a cached detailed lookup stays fresh.
func (c *Config) MetadataCacheTTL() time.Duration {
	return time.Duration(c.MetadataCache.TTLHours) * time.Hour
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultMetadataCachePath() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "vibetube", "metadata.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/vibetube/metadata.db"
	}
	return filepath.Join(home, ".cache", "vibetube", "metadata.db")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() (string, error) {
	var b strings.Builder
	enc := toml.NewEncoder(&b)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return b.String(), nil
}
