// Package main hosts the VibeTube CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into IPC calls against
// the daemon: source and item management, manual downloads, refresh and scan
// triggers, buckets, runtime settings and loop control. Configuration
// scaffolding and status rendering work without a running daemon.
//
// Keep this package thin. New behavior belongs in the internal packages and
// is surfaced here through a command or flag.
package main
