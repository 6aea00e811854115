package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateSettings(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateJellyfin(); err != nil {
		return err
	}
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StorageRoot) == "" {
		return errors.New("paths.storage_root must be set (or set VIBETUBE_STORAGE_ROOT)")
	}
	return nil
}

func (c *Config) validateSettings() error {
	return ensurePositive(map[string]int{
		"settings.check_interval": c.Settings.CheckInterval,
		"settings.scan_interval":  c.Settings.ScanInterval,
		"settings.download_delay": c.Settings.DownloadDelay,
	})
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositive(map[string]int{
		"workflow.idle_interval":      c.Workflow.IdleInterval,
		"workflow.error_cooldown":     c.Workflow.ErrorCooldown,
		"workflow.poll_backoff":       c.Workflow.PollBackoff,
		"workflow.scan_backoff":       c.Workflow.ScanBackoff,
		"workflow.min_download_delay": c.Workflow.MinDownloadDelay,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateJellyfin() error {
	if !c.Jellyfin.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Jellyfin.URL) == "" {
		return errors.New("jellyfin.url must be set when jellyfin.enabled is true")
	}
	if strings.TrimSpace(c.Jellyfin.APIKey) == "" {
		return errors.New("jellyfin.api_key must be set when jellyfin.enabled is true")
	}
	return nil
}

func ensurePositive(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
