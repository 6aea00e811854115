// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response types. Item,
// source, bucket and setting payloads reuse the api DTOs so the CLI renders
// the same shapes the HTTP API returns. Errors returned by daemon operations
// travel back to the client as RPC error strings.
//
// Reuse these types when adding new RPC endpoints to keep the protocol stable
// and compatible with existing command implementations.
package ipc
