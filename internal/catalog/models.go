package catalog

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies what a source points at.
type Kind string

const (
	KindVideo    Kind = "video"
	KindChannel  Kind = "channel"
	KindPlaylist Kind = "playlist"
)

// ParseKind validates a user-supplied source kind.
func ParseKind(value string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindVideo:
		return KindVideo, nil
	case KindChannel:
		return KindChannel, nil
	case KindPlaylist:
		return KindPlaylist, nil
	default:
		return "", fmt.Errorf("unknown source kind %q (want video, channel or playlist)", value)
	}
}

// Source is a tracked origin: one item, a channel or a playlist.
type Source struct {
	ID          int64
	Kind        Kind
	ExternalID  string
	Name        string
	AddedAt     time.Time
	LastChecked time.Time
	BucketID    *int64
	AutoAcquire bool
}

// Item is one media unit belonging to a source.
type Item struct {
	ID           int64
	ExternalID   string
	Title        string
	Channel      string
	UploadDate   string
	SourceID     int64
	Duration     int
	ThumbnailURL string
	Description  string
	Acquired     bool
	OutputPath   string
	AcquiredAt   time.Time
	FileMissing  bool
	Skip         bool
	Failed       bool
	ErrorDetail  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Item status labels used by filters and views.
const (
	StatusAcquired = "acquired"
	StatusMissing  = "missing"
	StatusFailed   = "failed"
	StatusSkipped  = "skipped"
	StatusPending  = "pending"
)

// Status collapses the item flags into a single display label.
func (i *Item) Status() string {
	switch {
	case i.Acquired:
		return StatusAcquired
	case i.FileMissing:
		return StatusMissing
	case i.Failed:
		return StatusFailed
	case i.Skip:
		return StatusSkipped
	default:
		return StatusPending
	}
}

// Eligible reports whether the queue processor may pick the item.
func (i *Item) Eligible() bool {
	return !i.Acquired && !i.FileMissing && !i.Skip && !i.Failed
}

// Bucket is a named destination directory under the storage root.
type Bucket struct {
	ID          int64
	Name        string
	Path        string
	Description string
	IsDefault   bool
	CreatedAt   time.Time
}

// Setting is one runtime key/value pair. Version increases on every write.
type Setting struct {
	Key     string
	Value   string
	Version int64
}

// NewSource describes a source to register.
type NewSource struct {
	Kind        Kind
	ExternalID  string
	Name        string
	BucketID    *int64
	AutoAcquire bool
}

// NewItem describes a discovered item to insert.
type NewItem struct {
	ExternalID   string
	Title        string
	Channel      string
	UploadDate   string
	Duration     int
	ThumbnailURL string
	Description  string
}

// SourceRefresh is the result of resolving one source during a poller pass.
type SourceRefresh struct {
	SourceID int64
	Items    []NewItem
	Skip     bool
}

// Acquisition holds the values recorded when an item is acquired.
type Acquisition struct {
	OutputPath   string
	ThumbnailURL string
	Description  string
	Duration     int
	AcquiredAt   time.Time
}

// ItemFilter narrows ListItems.
type ItemFilter struct {
	SourceID int64
	Status   string
	Limit    int
}

// Stats summarizes item counts by status.
type Stats struct {
	Total    int
	Pending  int
	Acquired int
	Failed   int
	Missing  int
	Skipped  int
}
