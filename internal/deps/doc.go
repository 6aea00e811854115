// Package deps checks for the external binaries the daemon shells out to.
package deps
