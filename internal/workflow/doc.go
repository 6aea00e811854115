// Package workflow runs the daemon's three background loops: the queue
// processor that acquires eligible items, the source poller that discovers
// new items, and the library scanner that detects missing files.
//
// Each loop wraps a Task and owns its goroutine, cancel function and wait
// group, so loops start and stop independently. Waits between iterations
// observe cancellation on a one-second tick. Stopping the queue loop does
// not cancel an acquisition already in flight; Stop waits for it instead.
package workflow
