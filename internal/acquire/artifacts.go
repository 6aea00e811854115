package acquire

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"vibetube/internal/catalog"
	"vibetube/internal/logging"
	"vibetube/internal/services/ytdlp"
	"vibetube/internal/sidecar"
	"vibetube/internal/thumbnail"
)

// thumbnail finds or fetches the preview image next to base and returns its
// /downloads/ reference, or "" when none is available.
func (w *Worker) thumbnail(ctx context.Context, logger *slog.Logger, root, base string, detail *ytdlp.Info) string {
	path, ok := thumbnail.Locate(base)
	if !ok && detail != nil && w.thumbs != nil {
		if remote := detail.ThumbnailURL(); remote != "" {
			dest := base + ".jpg"
			if err := w.thumbs.Fetch(ctx, remote, dest); err != nil {
				logger.Debug("thumbnail fetch failed", logging.Error(err), logging.String("url", remote))
			} else {
				path, ok = dest, true
			}
		}
	}
	if !ok {
		return ""
	}

	if strings.EqualFold(filepath.Ext(path), ".webp") {
		jpg := base + ".jpg"
		if err := thumbnail.ConvertToJPEG(path, jpg); err != nil {
			logger.Debug("webp thumbnail conversion failed", logging.Error(err))
		}
	}

	ref, err := thumbnail.Reference(root, path)
	if err != nil {
		logger.Debug("thumbnail not under storage root", logging.Error(err))
		return ""
	}
	return ref
}

func (w *Worker) writeSidecars(logger *slog.Logger, dir string, item *catalog.Item, detail *ytdlp.Info) {
	meta := sidecar.Metadata{
		ExternalID: item.ExternalID,
		Title:      item.Title,
		Channel:    item.Channel,
		UploadDate: item.UploadDate,
		Detail:     detail,
	}
	if _, err := sidecar.WriteJellyfin(dir, meta); err != nil {
		logging.WarnWithContext(logger, "jellyfin side-car not written", "sidecar_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "library shows file name instead of metadata"),
		)
	}
	if _, err := sidecar.WritePlex(dir, meta); err != nil {
		logging.WarnWithContext(logger, "plex side-car not written", "sidecar_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "library shows file name instead of metadata"),
		)
	}
}
