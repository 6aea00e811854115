// Package sources registers tracked sources and runs the poller pass that
// discovers their new items.
package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"vibetube/internal/catalog"
	"vibetube/internal/library"
	"vibetube/internal/logging"
	"vibetube/internal/notifications"
	"vibetube/internal/resolver"
	"vibetube/internal/services"
)

// Resolver lists the items of a source.
type Resolver interface {
	Resolve(ctx context.Context, kind catalog.Kind, externalID string) []resolver.Descriptor
}

// FileRemover deletes an acquired item's files.
type FileRemover interface {
	DeleteItemFiles(ctx context.Context, itemID int64) (library.DeleteResult, error)
}

// Service manages sources.
type Service struct {
	store    *catalog.Store
	resolver Resolver
	files    FileRemover
	notifier notifications.Service
	logger   *slog.Logger
}

// NewService constructs a Service. files and notifier may be nil.
func NewService(store *catalog.Store, res Resolver, files FileRemover, notifier notifications.Service, logger *slog.Logger) *Service {
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	return &Service{
		store:    store,
		resolver: res,
		files:    files,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "sources"),
	}
}

// AddRequest describes a source to register. An empty Bucket selects the
// default bucket.
type AddRequest struct {
	Kind        catalog.Kind
	ExternalID  string
	Bucket      string
	AutoAcquire bool
}

// AddResult reports a registered source.
type AddResult struct {
	Source *catalog.Source
	Items  int
}

// Add resolves and registers a source with its current items in one commit.
func (s *Service) Add(ctx context.Context, req AddRequest) (AddResult, error) {
	externalID := strings.TrimSpace(req.ExternalID)
	if externalID == "" {
		return AddResult{}, fmt.Errorf("source id is required: %w", services.ErrValidation)
	}
	if _, err := catalog.ParseKind(string(req.Kind)); err != nil {
		return AddResult{}, fmt.Errorf("%w: %w", services.ErrValidation, err)
	}
	existing, err := s.store.SourceByExternalID(ctx, externalID)
	if err != nil {
		return AddResult{}, err
	}
	if existing != nil {
		return AddResult{}, fmt.Errorf("%w: %s", catalog.ErrSourceExists, externalID)
	}

	bucketID, err := s.bucketID(ctx, req.Bucket)
	if err != nil {
		return AddResult{}, err
	}

	descriptors := s.resolver.Resolve(ctx, req.Kind, externalID)
	if len(descriptors) == 0 {
		return AddResult{}, fmt.Errorf("no videos found for %s %s: %w", req.Kind, externalID, services.ErrNotFound)
	}

	items := make([]catalog.NewItem, 0, len(descriptors))
	for _, d := range descriptors {
		items = append(items, d.NewItem())
	}
	source, inserted, err := s.store.AddSource(ctx, catalog.NewSource{
		Kind:        req.Kind,
		ExternalID:  externalID,
		Name:        sourceName(req.Kind, externalID, descriptors),
		BucketID:    bucketID,
		AutoAcquire: req.AutoAcquire,
	}, items)
	if err != nil {
		return AddResult{}, err
	}

	logging.WithContext(ctx, s.logger).Info("source added",
		logging.String(logging.FieldEventType, "source_added"),
		logging.String(logging.FieldSource, externalID),
		logging.String("kind", string(req.Kind)),
		logging.String("name", source.Name),
		logging.Int("items", inserted),
	)
	return AddResult{Source: source, Items: inserted}, nil
}

func (s *Service) bucketID(ctx context.Context, name string) (*int64, error) {
	var (
		bucket *catalog.Bucket
		err    error
	)
	if name = strings.TrimSpace(name); name != "" {
		bucket, err = s.store.BucketByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if bucket == nil {
			return nil, fmt.Errorf("bucket %q: %w", name, services.ErrNotFound)
		}
	} else {
		bucket, err = s.store.DefaultBucket(ctx)
		if err != nil {
			return nil, err
		}
		if bucket == nil {
			return nil, nil
		}
	}
	id := bucket.ID
	return &id, nil
}

func sourceName(kind catalog.Kind, externalID string, descriptors []resolver.Descriptor) string {
	switch kind {
	case catalog.KindVideo:
		if title := strings.TrimSpace(descriptors[0].Title); title != "" {
			return title
		}
	case catalog.KindChannel:
		if channel := strings.TrimSpace(descriptors[0].Channel); channel != "" {
			return channel
		}
	case catalog.KindPlaylist:
		return "Playlist " + externalID
	}
	return externalID
}

// RefreshResult summarizes a poller pass.
type RefreshResult struct {
	Sources  int
	NewItems int
}

// Refresh resolves every channel and playlist source and records unseen
// items in one commit. Items of sources without auto-acquire are inserted
// skipped.
func (s *Service) Refresh(ctx context.Context) (RefreshResult, error) {
	list, err := s.store.ListRefreshableSources(ctx)
	if err != nil {
		return RefreshResult{}, services.Wrap(services.ErrTransient, "poll", "list sources", "catalog unavailable", err)
	}
	logger := logging.WithContext(ctx, s.logger)

	refreshes := make([]catalog.SourceRefresh, 0, len(list))
	for _, src := range list {
		if err := ctx.Err(); err != nil {
			return RefreshResult{}, err
		}
		descriptors := s.resolver.Resolve(ctx, src.Kind, src.ExternalID)
		items := make([]catalog.NewItem, 0, len(descriptors))
		for _, d := range descriptors {
			items = append(items, d.NewItem())
		}
		refreshes = append(refreshes, catalog.SourceRefresh{
			SourceID: src.ID,
			Items:    items,
			Skip:     !src.AutoAcquire,
		})
		logger.Debug("source resolved",
			logging.String(logging.FieldSource, src.ExternalID),
			logging.Int("entries", len(items)),
		)
	}

	inserted, err := s.store.RecordRefresh(ctx, refreshes)
	if err != nil {
		return RefreshResult{}, services.Wrap(services.ErrTransient, "poll", "record refresh", "catalog unavailable", err)
	}
	result := RefreshResult{Sources: len(list), NewItems: inserted}
	logger.Info("source refresh completed",
		logging.String(logging.FieldEventType, "refresh_completed"),
		logging.Int("sources", result.Sources),
		logging.Int("new_items", result.NewItems),
	)
	if inserted > 0 {
		if err := s.notifier.Publish(ctx, notifications.EventItemsDiscovered, notifications.Payload{
			"count":   inserted,
			"sources": result.Sources,
		}); err != nil {
			logger.Debug("discovery notification not sent", logging.Error(err))
		}
	}
	return result, nil
}

// Summary is a source with its item count.
type Summary struct {
	Source *catalog.Source
	Items  int
}

// List returns every source with its item count.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	list, err := s.store.ListSources(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.SourceItemCounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(list))
	for _, src := range list {
		out = append(out, Summary{Source: src, Items: counts[src.ID]})
	}
	return out, nil
}

// ToggleAuto flips a source's auto-acquire flag and returns the new value.
func (s *Service) ToggleAuto(ctx context.Context, id int64) (bool, error) {
	src, err := s.store.GetSource(ctx, id)
	if err != nil {
		return false, err
	}
	if src == nil {
		return false, fmt.Errorf("source %d: %w", id, services.ErrNotFound)
	}
	auto := !src.AutoAcquire
	if err := s.store.SetAutoAcquire(ctx, id, auto); err != nil {
		return false, err
	}
	return auto, nil
}

// RemoveResult reports a source removal.
type RemoveResult struct {
	Name         string
	FilesDeleted int
	FilesTotal   int
}

// Remove deletes a source and its items. With deleteFiles, the folders of
// its acquired items are removed first; per-item failures are logged and
// counted against FilesDeleted.
func (s *Service) Remove(ctx context.Context, id int64, deleteFiles bool) (RemoveResult, error) {
	src, err := s.store.GetSource(ctx, id)
	if err != nil {
		return RemoveResult{}, err
	}
	if src == nil {
		return RemoveResult{}, fmt.Errorf("source %d: %w", id, services.ErrNotFound)
	}
	result := RemoveResult{Name: src.Name}

	if deleteFiles {
		if s.files == nil {
			return result, errors.New("file removal is not configured")
		}
		items, err := s.store.ItemsBySource(ctx, id)
		if err != nil {
			return result, err
		}
		for _, item := range items {
			if !item.Acquired {
				continue
			}
			result.FilesTotal++
			if _, err := s.files.DeleteItemFiles(ctx, item.ID); err != nil {
				logging.WarnWithContext(logging.WithContext(services.WithItem(ctx, item.ExternalID), s.logger),
					"item files not deleted", "source_remove_files_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "folder stays on disk after the source is removed"),
				)
				continue
			}
			result.FilesDeleted++
		}
	}

	if err := s.store.DeleteSource(ctx, id); err != nil {
		return result, err
	}
	logging.WithContext(ctx, s.logger).Info("source removed",
		logging.String(logging.FieldEventType, "source_removed"),
		logging.String(logging.FieldSource, src.ExternalID),
		logging.Int("files_deleted", result.FilesDeleted),
	)
	return result, nil
}
