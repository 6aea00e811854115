// Package api defines wire-format types and converters shared by the IPC and
// HTTP layers. It translates catalog and workflow models into
// transport-friendly DTOs so the CLI and HTTP consumers never depend on
// internal types.
//
// # Key Types
//
// Item, Source, Bucket, Setting: catalog rows with derived status labels.
//
// LoopStatus: one loop's running state and last pass result.
//
// DaemonStatus: aggregated runtime information including loop states,
// catalog counts, dependency availability and preflight results.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds and
// are omitted when zero. The stored credential text is never exposed; the
// Setting converter replaces it with a size marker.
//
// FilterItems ranks items against a free-text query with fuzzysearch so the
// CLI and HTTP listing share one search behavior.
package api
