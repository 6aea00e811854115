// Package daemon coordinates the long-running VibeTube process.
//
// It wires the catalog store, the workflow manager, the download worker, the
// source service and the library scanner into a single lifecycle with
// flock-based locking to prevent multiple instances. The daemon exposes the
// operations the IPC layer and the HTTP read API call: source registration,
// item maintenance, bucket and runtime-setting administration, per-loop
// control, and one-shot triggers for downloads, refreshes and scans.
//
// One-shot triggers run on goroutines tracked by the daemon so Stop waits for
// them. Acquisitions are never cancelled mid-download; refreshes and scans
// observe the daemon context.
//
// Keep orchestration logic here: the acquisition, discovery and integrity
// behavior lives in their own packages while the daemon focuses on startup,
// shutdown, and high level coordination.
package daemon
