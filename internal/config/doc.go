// Package config loads, normalizes, and validates VibeTube configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// VIBETUBE_STORAGE_ROOT and JELLYFIN_API_KEY. Static process settings live here;
// values operators tune at runtime (intervals, delays, cookies) live in the
// catalog settings table and are only seeded from the [settings] section.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
