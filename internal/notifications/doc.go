// Package notifications publishes acquisition events to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, and
// per-event toggles in the [notifications] config section silence individual
// event kinds. Callers treat delivery as best effort.
package notifications
