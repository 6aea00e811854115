// Package services defines shared utilities consumed by the acquisition
// components and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp item identifiers, stage and loop names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so tool failures, timeouts
//     and missing records are classified the same way everywhere.
//
// Use these helpers when wiring new integrations so operational behaviour
// (error handling, observability, retries) stays uniform across the daemon.
package services
