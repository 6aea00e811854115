package catalog

import "errors"

var (
	// ErrSourceExists is returned when registering an external id that is already tracked.
	ErrSourceExists = errors.New("source already exists")
	// ErrBucketExists is returned when a bucket name is already taken.
	ErrBucketExists = errors.New("bucket already exists")
	// ErrDefaultBucket is returned when deleting the default bucket.
	ErrDefaultBucket = errors.New("cannot delete the default bucket")
	// ErrNotFound is returned by mutations addressing a row that does not exist.
	ErrNotFound = errors.New("not found")
)
