// Package logs reads the daemon log for `vibetube logs`.
//
// Last returns the final lines of a file with bounded memory. Follow polls
// from an offset and restarts from the top when the file shrinks or the
// vibetube.log pointer is moved to a new run's file.
package logs
