// Package acquire implements the download worker: it takes one catalog item
// from pending to acquired (or failed), placing the media file, thumbnail and
// library side-cars in the item's folder under its bucket.
//
// The worker is safe for concurrent use. Two acquisitions of the same item
// never overlap; the second caller gets an "already in progress" outcome
// without touching the catalog row.
package acquire
