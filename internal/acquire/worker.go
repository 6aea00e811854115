package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vibetube/internal/catalog"
	"vibetube/internal/logging"
	"vibetube/internal/notifications"
	"vibetube/internal/services"
	"vibetube/internal/services/jellyfin"
	"vibetube/internal/services/ytdlp"
	"vibetube/internal/textutil"
)

// Outcome details returned to callers.
const (
	DetailInProgress = "acquisition already in progress"
	DetailNotFound   = "item not found"
	DetailTooSmall   = "download failed or file too small"
)

// Outcome reports the result of one acquisition.
type Outcome struct {
	Success    bool
	Detail     string
	OutputPath string
}

// Downloader runs the external tool.
type Downloader interface {
	Download(ctx context.Context, url, output string, format ytdlp.Format, cookies string) error
}

// DetailSource supplies the detailed metadata lookup.
type DetailSource interface {
	Detail(ctx context.Context, externalID string) (*ytdlp.Info, bool)
}

// Credentials supplies the cookie file path, "" for none.
type Credentials interface {
	PathOrEmpty(ctx context.Context) string
}

// ThumbnailFetcher downloads a remote thumbnail to a local path.
type ThumbnailFetcher interface {
	Fetch(ctx context.Context, url, dest string) error
}

// StorageRoot resolves the download_path runtime setting.
type StorageRoot interface {
	DownloadPath(ctx context.Context) (string, error)
}

// Dependencies wires a Worker. Store, Downloader and Root are required.
type Dependencies struct {
	Store        *catalog.Store
	Downloader   Downloader
	Details      DetailSource
	Credentials  Credentials
	Thumbnails   ThumbnailFetcher
	Root         StorageRoot
	Notifier     notifications.Service
	Library      jellyfin.Service
	FallbackRoot string
	MinFileBytes int64
	Logger       *slog.Logger
}

// Worker acquires catalog items.
type Worker struct {
	store        *catalog.Store
	downloader   Downloader
	details      DetailSource
	creds        Credentials
	thumbs       ThumbnailFetcher
	root         StorageRoot
	notifier     notifications.Service
	library      jellyfin.Service
	fallbackRoot string
	minFileBytes int64
	logger       *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New constructs a Worker.
func New(deps Dependencies) *Worker {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	library := deps.Library
	if library == nil {
		library = jellyfin.Noop()
	}
	return &Worker{
		store:        deps.Store,
		downloader:   deps.Downloader,
		details:      deps.Details,
		creds:        deps.Credentials,
		thumbs:       deps.Thumbnails,
		root:         deps.Root,
		notifier:     notifier,
		library:      library,
		fallbackRoot: deps.FallbackRoot,
		minFileBytes: deps.MinFileBytes,
		logger:       logging.NewComponentLogger(deps.Logger, "acquire"),
		inFlight:     make(map[string]struct{}),
	}
}

func (w *Worker) lock(externalID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, busy := w.inFlight[externalID]; busy {
		return false
	}
	w.inFlight[externalID] = struct{}{}
	return true
}

func (w *Worker) unlock(externalID string) {
	w.mu.Lock()
	delete(w.inFlight, externalID)
	w.mu.Unlock()
}

// InFlight reports how many acquisitions are running.
func (w *Worker) InFlight() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.inFlight)
}

// Acquire downloads one item. The error return is reserved for catalog
// failures; every acquisition result, good or bad, is in the Outcome.
func (w *Worker) Acquire(ctx context.Context, externalID string) (Outcome, error) {
	if !w.lock(externalID) {
		return Outcome{Detail: DetailInProgress}, nil
	}
	defer w.unlock(externalID)

	ctx = services.WithItem(ctx, externalID)
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, uuid.NewString())
	}
	logger := logging.WithContext(ctx, w.logger)

	item, err := w.store.ItemByExternalID(ctx, externalID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load item: %w", err)
	}
	if item == nil {
		return Outcome{Detail: DetailNotFound}, nil
	}
	if item.Acquired {
		logger.Debug("item already acquired", logging.String("output_path", item.OutputPath))
		return Outcome{Success: true, Detail: "already acquired", OutputPath: item.OutputPath}, nil
	}

	if err := w.store.ClearFailure(ctx, item.ID); err != nil {
		return Outcome{}, err
	}

	dir, err := w.destination(ctx, item)
	if err != nil {
		return Outcome{}, err
	}
	folder := textutil.FolderName(item.Title, item.ExternalID)
	if folder == "" {
		return w.fail(ctx, logger, item, "no usable folder name for item")
	}
	itemDir := filepath.Join(dir, folder)
	output := filepath.Join(itemDir, folder+".mp4")
	if err := os.MkdirAll(itemDir, 0o755); err != nil {
		return w.fail(ctx, logger, item, fmt.Sprintf("create item folder: %v", err))
	}
	if err := os.Remove(output); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.WarnWithContext(logger, "could not remove previous file", "acquire_cleanup_failed",
			logging.Error(err),
			logging.String("path", output),
			logging.String(logging.FieldImpact, "download may resume into a stale file"),
		)
	}

	var detail *ytdlp.Info
	if w.details != nil {
		if info, ok := w.details.Detail(ctx, item.ExternalID); ok {
			detail = info
		}
	}

	started := time.Now()
	logger.Info("acquisition started",
		logging.String(logging.FieldEventType, "acquire_started"),
		logging.String("title", item.Title),
		logging.String("output_path", output),
	)
	if err := w.download(ctx, logger, item.ExternalID, output); err != nil {
		return w.fail(ctx, logger, item, ytdlp.Detail(err))
	}

	info, err := os.Stat(output)
	if err != nil || info.Size() < w.minFileBytes {
		return w.fail(ctx, logger, item, DetailTooSmall)
	}

	root := w.storageRoot(ctx)
	thumbRef := w.thumbnail(ctx, logger, root, filepath.Join(itemDir, folder), detail)
	w.writeSidecars(logger, itemDir, item, detail)

	acq := catalog.Acquisition{
		OutputPath:   output,
		ThumbnailURL: thumbRef,
		AcquiredAt:   time.Now(),
	}
	if detail != nil {
		acq.Description = detail.Description
		acq.Duration = detail.DurationSeconds()
	}
	if err := w.store.MarkAcquired(ctx, item.ID, acq); err != nil {
		return Outcome{}, err
	}

	logger.Info("acquisition completed",
		logging.String(logging.FieldEventType, "acquire_completed"),
		logging.String("output_path", output),
		logging.Int64("bytes", info.Size()),
		logging.Duration("elapsed", time.Since(started)),
	)
	w.afterSuccess(ctx, logger, item)
	return Outcome{Success: true, Detail: "downloaded", OutputPath: output}, nil
}

// download runs the primary format and, unless it timed out, one fallback.
func (w *Worker) download(ctx context.Context, logger *slog.Logger, externalID, output string) error {
	cookies := ""
	if w.creds != nil {
		cookies = w.creds.PathOrEmpty(ctx)
	}
	url := ytdlp.VideoURL(externalID)
	err := w.downloader.Download(ctx, url, output, ytdlp.FormatPrimary, cookies)
	if err == nil {
		return nil
	}
	if errors.Is(err, services.ErrTimeout) || ctx.Err() != nil {
		return err
	}
	logging.WarnWithContext(logger, "primary format failed; retrying with fallback", "acquire_fallback",
		logging.String("reason", ytdlp.Detail(err)),
		logging.String(logging.FieldImpact, "item may be stored at lower quality"),
	)
	return w.downloader.Download(ctx, url, output, ytdlp.FormatFallback, cookies)
}

func (w *Worker) fail(ctx context.Context, logger *slog.Logger, item *catalog.Item, detail string) (Outcome, error) {
	if err := w.store.MarkFailed(ctx, item.ID, detail); err != nil {
		return Outcome{}, err
	}
	logging.ErrorWithContext(logger, "acquisition failed", "acquire_failed",
		logging.String("error_detail", detail),
		logging.String(logging.FieldErrorHint, "reset the item once the cause is fixed"),
	)
	notifyCtx := context.WithoutCancel(ctx)
	if err := w.notifier.Publish(notifyCtx, notifications.EventAcquisitionFailed, notifications.Payload{
		"title": item.Title,
		"error": textutil.Ellipsize(detail, 200),
	}); err != nil {
		logger.Debug("failure notification not sent", logging.Error(err))
	}
	return Outcome{Detail: detail}, nil
}

func (w *Worker) afterSuccess(ctx context.Context, logger *slog.Logger, item *catalog.Item) {
	ctx = context.WithoutCancel(ctx)
	if err := w.notifier.Publish(ctx, notifications.EventItemAcquired, notifications.Payload{
		"title":   item.Title,
		"channel": item.Channel,
	}); err != nil {
		logger.Debug("acquired notification not sent", logging.Error(err))
	}
	if err := w.library.Refresh(ctx); err != nil {
		logging.WarnWithContext(logger, "library refresh failed", "jellyfin_refresh_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check jellyfin url and api key"),
			logging.String(logging.FieldImpact, "new item appears after the next scheduled library scan"),
		)
	}
}

// destination resolves the bucket directory: the source's bucket, else the
// default bucket, else the storage root.
func (w *Worker) destination(ctx context.Context, item *catalog.Item) (string, error) {
	source, err := w.store.GetSource(ctx, item.SourceID)
	if err != nil {
		return "", fmt.Errorf("load source: %w", err)
	}
	if source != nil && source.BucketID != nil {
		bucket, err := w.store.GetBucket(ctx, *source.BucketID)
		if err != nil {
			return "", fmt.Errorf("load bucket: %w", err)
		}
		if bucket != nil {
			return bucket.Path, nil
		}
	}
	bucket, err := w.store.DefaultBucket(ctx)
	if err != nil {
		return "", fmt.Errorf("load default bucket: %w", err)
	}
	if bucket != nil {
		return bucket.Path, nil
	}
	return w.storageRoot(ctx), nil
}

func (w *Worker) storageRoot(ctx context.Context) string {
	if w.root != nil {
		root, err := w.root.DownloadPath(ctx)
		if err == nil && strings.TrimSpace(root) != "" {
			return root
		}
	}
	return w.fallbackRoot
}
