// Package jellyfin triggers media server library refreshes after new items
// land in the storage root. Without an enabled URL and API key the service is
// a no-op.
package jellyfin
