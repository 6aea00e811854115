// Package preflight provides readiness checks for the filesystem paths and
// external services VibeTube depends on.
//
// The daemon runs RunAll at startup and logs failures; the status command
// shows the same results. Checks for disabled integrations are skipped.
package preflight
