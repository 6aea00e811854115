// Package resolver turns a source (kind + external id) into item descriptors
// by querying yt-dlp, enriching sparse flat-listing entries with detailed
// lookups.
//
// Resolution never fails loudly: tool errors, timeouts and unparsable output
// are logged and produce an empty result so a single bad source cannot stall
// a poller pass.
package resolver

import (
	"context"
	"log/slog"
	"strings"

	"vibetube/internal/catalog"
	"vibetube/internal/infocache"
	"vibetube/internal/logging"
	"vibetube/internal/services"
	"vibetube/internal/services/ytdlp"
)

// Descriptor is the normalized view of one discovered item.
type Descriptor struct {
	ExternalID   string
	Title        string
	Channel      string
	UploadDate   string
	Duration     int
	ThumbnailURL string
	Description  string
}

// NewItem converts the descriptor into a catalog insert.
func (d Descriptor) NewItem() catalog.NewItem {
	return catalog.NewItem{
		ExternalID:   d.ExternalID,
		Title:        d.Title,
		Channel:      d.Channel,
		UploadDate:   d.UploadDate,
		Duration:     d.Duration,
		ThumbnailURL: d.ThumbnailURL,
		Description:  d.Description,
	}
}

func (d Descriptor) sparse() bool {
	return d.UploadDate == "" || d.Duration == 0 || d.Channel == ""
}

// Lookup is the yt-dlp surface the resolver uses.
type Lookup interface {
	Info(ctx context.Context, id, cookies string) (*ytdlp.Info, error)
	List(ctx context.Context, url, cookies string) ([]ytdlp.Info, error)
}

// Credentials supplies the cookie file path, "" for none.
type Credentials interface {
	PathOrEmpty(ctx context.Context) string
}

// Resolver queries yt-dlp for source contents.
type Resolver struct {
	client Lookup
	creds  Credentials
	cache  *infocache.Cache
	logger *slog.Logger
}

// New constructs a Resolver. creds and cache may be nil.
func New(client Lookup, creds Credentials, cache *infocache.Cache, logger *slog.Logger) *Resolver {
	return &Resolver{
		client: client,
		creds:  creds,
		cache:  cache,
		logger: logging.NewComponentLogger(logger, "resolver"),
	}
}

func (r *Resolver) cookies(ctx context.Context) string {
	if r.creds == nil {
		return ""
	}
	return r.creds.PathOrEmpty(ctx)
}

// Resolve returns the descriptors of a source. It returns nil on any failure.
func (r *Resolver) Resolve(ctx context.Context, kind catalog.Kind, externalID string) []Descriptor {
	logger := logging.WithContext(ctx, r.logger).With(
		logging.String(logging.FieldSource, externalID),
		logging.String("kind", string(kind)),
	)
	switch kind {
	case catalog.KindVideo:
		info, ok := r.Detail(ctx, externalID)
		if !ok {
			return nil
		}
		d := fromInfo(info)
		if d.ExternalID == "" {
			d.ExternalID = externalID
		}
		return []Descriptor{d}
	case catalog.KindChannel:
		return r.listing(ctx, logger, ytdlp.ChannelURL(externalID))
	case catalog.KindPlaylist:
		return r.listing(ctx, logger, ytdlp.PlaylistURL(externalID))
	default:
		logger.Warn("unknown source kind; nothing resolved",
			logging.String(logging.FieldEventType, "resolve_unknown_kind"),
			logging.String(logging.FieldErrorHint, "source kinds are video, channel or playlist"),
			logging.String(logging.FieldImpact, "source is not refreshed"),
		)
		return nil
	}
}

func (r *Resolver) listing(ctx context.Context, logger *slog.Logger, url string) []Descriptor {
	entries, err := r.client.List(ctx, url, r.cookies(ctx))
	if err != nil {
		logging.WarnWithContext(logger, "source listing failed", "resolve_list_failed",
			logging.Error(err),
			logging.String("failure_kind", services.FailureKind(err)),
			logging.String("url", url),
			logging.String(logging.FieldErrorHint, "run yt-dlp --flat-playlist manually against the URL"),
			logging.String(logging.FieldImpact, "no items discovered for this source"),
		)
		return nil
	}

	descriptors := make([]Descriptor, 0, len(entries))
	enriched := 0
	for i := range entries {
		d := fromInfo(&entries[i])
		if d.ExternalID == "" {
			continue
		}
		if d.sparse() {
			if detail, ok := r.cachedDetail(ctx, d.ExternalID); ok {
				d = merge(d, fromInfo(detail))
				enriched++
			}
		}
		descriptors = append(descriptors, d)
	}
	logger.Debug("source listing resolved",
		logging.Int("entries", len(descriptors)),
		logging.Int("enriched", enriched),
		logging.String(logging.FieldEventType, "resolve_list_complete"),
	)
	return descriptors
}

// Detail performs a fresh detailed lookup and writes it through to the cache.
func (r *Resolver) Detail(ctx context.Context, externalID string) (*ytdlp.Info, bool) {
	info, err := r.client.Info(ctx, externalID, r.cookies(ctx))
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "detailed lookup failed", "resolve_info_failed",
			logging.String(logging.FieldItem, externalID),
			logging.Error(err),
			logging.String("failure_kind", services.FailureKind(err)),
			logging.String(logging.FieldErrorHint, "check network access and the configured cookies"),
			logging.String(logging.FieldImpact, "metadata unavailable for this item"),
		)
		return nil, false
	}
	if err := r.cache.Put(externalID, info); err != nil {
		r.logger.Debug("metadata cache write failed", logging.String(logging.FieldItem, externalID), logging.Error(err))
	}
	return info, true
}

func (r *Resolver) cachedDetail(ctx context.Context, externalID string) (*ytdlp.Info, bool) {
	if info, ok := r.cache.Get(externalID); ok {
		return info, true
	}
	return r.Detail(ctx, externalID)
}

func fromInfo(info *ytdlp.Info) Descriptor {
	return Descriptor{
		ExternalID:   strings.TrimSpace(info.ID),
		Title:        strings.TrimSpace(info.Title),
		Channel:      strings.TrimSpace(info.ChannelName()),
		UploadDate:   ytdlp.NormalizeUploadDate(info.UploadDate),
		Duration:     info.DurationSeconds(),
		ThumbnailURL: info.ThumbnailURL(),
		Description:  info.Description,
	}
}

// merge fills empty listing fields from the detailed lookup; listing values win.
func merge(listing, detail Descriptor) Descriptor {
	if listing.Title == "" {
		listing.Title = detail.Title
	}
	if listing.Channel == "" {
		listing.Channel = detail.Channel
	}
	if listing.UploadDate == "" {
		listing.UploadDate = detail.UploadDate
	}
	if listing.Duration == 0 {
		listing.Duration = detail.Duration
	}
	if listing.ThumbnailURL == "" {
		listing.ThumbnailURL = detail.ThumbnailURL
	}
	if listing.Description == "" {
		listing.Description = detail.Description
	}
	return listing
}
