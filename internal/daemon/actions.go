package daemon

import (
	"context"
	"fmt"

	"vibetube/internal/acquire"
	"vibetube/internal/catalog"
	"vibetube/internal/library"
	"vibetube/internal/logging"
	"vibetube/internal/services"
	"vibetube/internal/sources"
)

// AddSource registers a source with its current items.
func (d *Daemon) AddSource(ctx context.Context, req sources.AddRequest) (sources.AddResult, error) {
	return d.sources.Add(ctx, req)
}

// ListSources returns every source with its item count.
func (d *Daemon) ListSources(ctx context.Context) ([]sources.Summary, error) {
	return d.sources.List(ctx)
}

// RemoveSource deletes a source, optionally removing its acquired files.
func (d *Daemon) RemoveSource(ctx context.Context, id int64, deleteFiles bool) (sources.RemoveResult, error) {
	return d.sources.Remove(ctx, id, deleteFiles)
}

// ToggleAuto flips a source's auto-acquire flag.
func (d *Daemon) ToggleAuto(ctx context.Context, id int64) (bool, error) {
	return d.sources.ToggleAuto(ctx, id)
}

// ListItems returns items matching filter.
func (d *Daemon) ListItems(ctx context.Context, filter catalog.ItemFilter) ([]*catalog.Item, error) {
	return d.store.ListItems(ctx, filter)
}

// GetItem returns one item or a wrapped services.ErrNotFound.
func (d *Daemon) GetItem(ctx context.Context, id int64) (*catalog.Item, error) {
	item, err := d.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("item %d: %w", id, services.ErrNotFound)
	}
	return item, nil
}

// ResetFailed clears the failed flag. It reports false when the item was not failed.
func (d *Daemon) ResetFailed(ctx context.Context, id int64) (bool, error) {
	if _, err := d.GetItem(ctx, id); err != nil {
		return false, err
	}
	return d.store.ResetFailed(ctx, id)
}

// ResetMissing clears file_missing and skip. It reports false when the item
// was not missing.
func (d *Daemon) ResetMissing(ctx context.Context, id int64) (bool, error) {
	if _, err := d.GetItem(ctx, id); err != nil {
		return false, err
	}
	return d.store.ResetMissing(ctx, id)
}

// ToggleSkip flips the skip flag and returns the new value.
func (d *Daemon) ToggleSkip(ctx context.Context, id int64) (bool, error) {
	if _, err := d.GetItem(ctx, id); err != nil {
		return false, err
	}
	return d.store.ToggleSkip(ctx, id)
}

// DeleteItemFiles removes an acquired item's folder and marks it missing.
func (d *Daemon) DeleteItemFiles(ctx context.Context, id int64) (library.DeleteResult, error) {
	return d.library.DeleteItemFiles(ctx, id)
}

// DownloadResult describes a trigger-download request.
type DownloadResult struct {
	Item    *catalog.Item
	Started bool
	// Outcome is only populated when the caller waited.
	Outcome acquire.Outcome
	Waited  bool
}

// TriggerDownload acquires one item outside the queue loop. Without wait it
// returns as soon as the acquisition goroutine is running. The acquisition
// itself is never cancelled by the caller or by shutdown.
func (d *Daemon) TriggerDownload(ctx context.Context, id int64, wait bool) (DownloadResult, error) {
	item, err := d.GetItem(ctx, id)
	if err != nil {
		return DownloadResult{}, err
	}
	result := DownloadResult{Item: item}
	if item.Acquired {
		result.Outcome = acquire.Outcome{Success: true, OutputPath: item.OutputPath}
		result.Waited = true
		return result, nil
	}

	var outcome acquire.Outcome
	var acqErr error
	runCtx := services.WithItem(context.WithoutCancel(d.baseContext()), item.ExternalID)
	done := d.spawn(runCtx, "download", func(ctx context.Context) {
		outcome, acqErr = d.worker.Acquire(ctx, item.ExternalID)
		if acqErr != nil {
			logging.ErrorWithContext(logging.WithContext(ctx, d.logger), "manual download failed", "manual_download_failed",
				logging.Error(acqErr),
				logging.String(logging.FieldImpact, "item stays in its previous state"),
			)
		}
	})
	result.Started = true
	if !wait {
		return result, nil
	}

	select {
	case <-done:
	case <-ctx.Done():
		return result, ctx.Err()
	}
	result.Waited = true
	result.Outcome = outcome
	if refreshed, err := d.store.GetItem(ctx, id); err == nil && refreshed != nil {
		result.Item = refreshed
	}
	return result, acqErr
}

// TriggerRefresh runs a poller pass outside the poller loop. Without wait the
// zero result is returned immediately.
func (d *Daemon) TriggerRefresh(ctx context.Context, wait bool) (sources.RefreshResult, error) {
	var result sources.RefreshResult
	var runErr error
	done := d.spawn(d.baseContext(), "refresh", func(ctx context.Context) {
		result, runErr = d.sources.Refresh(ctx)
		if runErr != nil {
			logging.ErrorWithContext(logging.WithContext(ctx, d.logger), "manual refresh failed", "manual_refresh_failed",
				logging.Error(runErr),
			)
		}
	})
	if !wait {
		return sources.RefreshResult{}, nil
	}
	select {
	case <-done:
		return result, runErr
	case <-ctx.Done():
		return sources.RefreshResult{}, ctx.Err()
	}
}

// TriggerScan runs a library scan outside the scanner loop and returns the
// number of items marked missing when waited on.
func (d *Daemon) TriggerScan(ctx context.Context, wait bool) (int, error) {
	var changed int
	var runErr error
	done := d.spawn(d.baseContext(), "scan", func(ctx context.Context) {
		changed, runErr = d.library.Scan(ctx)
		if runErr != nil {
			logging.ErrorWithContext(logging.WithContext(ctx, d.logger), "manual scan failed", "manual_scan_failed",
				logging.Error(runErr),
			)
		}
	})
	if !wait {
		return 0, nil
	}
	select {
	case <-done:
		return changed, runErr
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
