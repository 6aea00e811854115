package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"vibetube/internal/config"
)

// Runtime setting keys.
const (
	SettingDownloadPath   = "download_path"
	SettingFilenameFormat = "filename_format"
	SettingCheckInterval  = "check_interval"
	SettingAutoDownload   = "auto_download"
	SettingScanInterval   = "scan_interval"
	SettingDownloadDelay  = "download_delay"
	SettingCookies        = "youtube_cookies"
)

// KnownSettings lists the keys `setting set` accepts.
var KnownSettings = []string{
	SettingDownloadPath,
	SettingFilenameFormat,
	SettingCheckInterval,
	SettingAutoDownload,
	SettingScanInterval,
	SettingDownloadDelay,
	SettingCookies,
}

// SeedValues derives the initial runtime settings from static configuration.
// Credentials are never seeded.
func SeedValues(cfg *config.Config) map[string]string {
	return map[string]string{
		SettingDownloadPath:   cfg.Paths.StorageRoot,
		SettingFilenameFormat: cfg.Settings.FilenameFormat,
		SettingCheckInterval:  strconv.Itoa(cfg.Settings.CheckInterval),
		SettingAutoDownload:   strconv.FormatBool(cfg.Settings.AutoDownload),
		SettingScanInterval:   strconv.Itoa(cfg.Settings.ScanInterval),
		SettingDownloadDelay:  strconv.Itoa(cfg.Settings.DownloadDelay),
	}
}

// SeedSettings inserts the provided values for keys that are not yet present.
func (s *Store) SeedSettings(ctx context.Context, values map[string]string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, key := range KnownSettings {
			value, ok := values[key]
			if !ok {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO settings (key, value, version)
                 VALUES (?, ?, (SELECT COALESCE(MAX(version), 0) + 1 FROM settings))`,
				key, value,
			); err != nil {
				return fmt.Errorf("seed setting %s: %w", key, err)
			}
		}
		return nil
	})
}

// GetSetting returns a setting and whether it exists.
func (s *Store) GetSetting(ctx context.Context, key string) (Setting, bool, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT key, value, version FROM settings WHERE key = ?`, key)
	var setting Setting
	if err := row.Scan(&setting.Key, &setting.Value, &setting.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Setting{}, false, nil
		}
		return Setting{}, false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return setting, true, nil
}

// SetSetting writes a value and advances its version past every version
// previously issued, so a change token never repeats.
func (s *Store) SetSetting(ctx context.Context, key, value string) (Setting, error) {
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO settings (key, value, version)
         VALUES (?, ?, (SELECT COALESCE(MAX(version), 0) + 1 FROM settings))
         ON CONFLICT(key) DO UPDATE SET value = excluded.value, version = excluded.version`,
		key, value,
	); err != nil {
		return Setting{}, fmt.Errorf("set setting %s: %w", key, err)
	}
	setting, _, err := s.GetSetting(ctx, key)
	return setting, err
}

// ListSettings returns every stored setting ordered by key.
func (s *Store) ListSettings(ctx context.Context) ([]Setting, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT key, value, version FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var setting Setting
		if err := rows.Scan(&setting.Key, &setting.Value, &setting.Version); err != nil {
			return nil, err
		}
		settings = append(settings, setting)
	}
	return settings, rows.Err()
}
