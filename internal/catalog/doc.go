// Package catalog persists sources, items, buckets and runtime settings in
// SQLite and exposes the status transitions the acquisition loops rely on.
//
// Every exported mutation is a single commit. Multi-row operations (a poller
// pass, a scanner pass, registering a source with its initial items) run in one
// transaction so a crash never leaves a half-applied pass behind.
//
// Item status is four flags rather than one enum. The store never writes a row
// that is both acquired and missing, or both acquired and failed; the schema
// carries CHECK constraints for the same pair of rules.
//
// Schema changes ship as numbered golang-migrate files under migrations/.
package catalog
