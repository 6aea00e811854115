package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vibetube/internal/acquire"
	"vibetube/internal/catalog"
	"vibetube/internal/logging"
	"vibetube/internal/services"
	"vibetube/internal/sources"
)

// Settings is the runtime settings surface the tasks consult every pass.
type Settings interface {
	AutoDownload(ctx context.Context) (bool, error)
	DownloadDelay(ctx context.Context, floor time.Duration) (time.Duration, error)
	CheckInterval(ctx context.Context) (time.Duration, error)
	ScanInterval(ctx context.Context) (time.Duration, error)
}

// Selector picks the next eligible item.
type Selector interface {
	NextEligible(ctx context.Context) (*catalog.Item, error)
}

// Acquirer acquires one item.
type Acquirer interface {
	Acquire(ctx context.Context, externalID string) (acquire.Outcome, error)
}

// Refresher runs a poller pass.
type Refresher interface {
	Refresh(ctx context.Context) (sources.RefreshResult, error)
}

// Scanner runs a library scan pass.
type Scanner interface {
	Scan(ctx context.Context) (int, error)
}

// QueuePacing holds the queue processor's fixed waits.
type QueuePacing struct {
	Idle     time.Duration
	Cooldown time.Duration
	MinDelay time.Duration
}

type lastResult struct {
	mu    sync.Mutex
	value string
}

func (r *lastResult) set(format string, args ...any) {
	r.mu.Lock()
	r.value = fmt.Sprintf(format, args...)
	r.mu.Unlock()
}

func (r *lastResult) LastResult() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value
}

// QueueTask acquires the next eligible item each pass.
type QueueTask struct {
	lastResult
	settings Settings
	selector Selector
	worker   Acquirer
	pacing   QueuePacing
	logger   *slog.Logger
}

// NewQueueTask constructs the queue processor task.
func NewQueueTask(settings Settings, selector Selector, worker Acquirer, pacing QueuePacing, logger *slog.Logger) *QueueTask {
	return &QueueTask{
		settings: settings,
		selector: selector,
		worker:   worker,
		pacing:   pacing,
		logger:   logging.NewComponentLogger(logger, "queue"),
	}
}

func (t *QueueTask) Name() string { return LoopQueue }

func (t *QueueTask) RunOnce(ctx context.Context) (time.Duration, error) {
	auto, err := t.settings.AutoDownload(ctx)
	if err != nil {
		return t.pacing.Cooldown, services.Wrap(services.ErrTransient, "queue", "read auto_download", "settings unavailable", err)
	}
	if !auto {
		t.set("auto download disabled")
		return t.pacing.Idle, nil
	}
	delay, err := t.settings.DownloadDelay(ctx, t.pacing.MinDelay)
	if err != nil {
		return t.pacing.Cooldown, services.Wrap(services.ErrTransient, "queue", "read download_delay", "settings unavailable", err)
	}
	item, err := t.selector.NextEligible(ctx)
	if err != nil {
		return t.pacing.Cooldown, services.Wrap(services.ErrTransient, "queue", "select item", "catalog unavailable", err)
	}
	if item == nil {
		t.set("queue empty")
		return t.pacing.Idle, nil
	}

	// Stopping the loop must not abort a download midway.
	outcome, err := t.worker.Acquire(context.WithoutCancel(ctx), item.ExternalID)
	if err != nil {
		return t.pacing.Cooldown, err
	}
	logger := logging.WithContext(services.WithItem(ctx, item.ExternalID), t.logger)
	if outcome.Success {
		logger.Info("queue item acquired",
			logging.String(logging.FieldEventType, "queue_item_acquired"),
			logging.String("output_path", outcome.OutputPath),
			logging.Duration("next_in", delay),
		)
		t.set("acquired %s", item.ExternalID)
	} else {
		logger.Warn("queue item not acquired",
			logging.String(logging.FieldEventType, "queue_item_failed"),
			logging.String("detail", outcome.Detail),
			logging.Duration("next_in", delay),
		)
		t.set("failed %s: %s", item.ExternalID, outcome.Detail)
	}
	return delay, nil
}

// PollTask runs the source poller.
type PollTask struct {
	lastResult
	settings  Settings
	refresher Refresher
	backoff   time.Duration
}

// NewPollTask constructs the source poller task.
func NewPollTask(settings Settings, refresher Refresher, backoff time.Duration) *PollTask {
	return &PollTask{settings: settings, refresher: refresher, backoff: backoff}
}

func (t *PollTask) Name() string { return LoopPoller }

func (t *PollTask) RunOnce(ctx context.Context) (time.Duration, error) {
	result, err := t.refresher.Refresh(ctx)
	if err != nil {
		return t.backoff, err
	}
	t.set("%d sources, %d new items", result.Sources, result.NewItems)
	interval, err := t.settings.CheckInterval(ctx)
	if err != nil {
		return t.backoff, err
	}
	return interval, nil
}

// ScanTask runs the library scanner.
type ScanTask struct {
	lastResult
	settings Settings
	scanner  Scanner
	backoff  time.Duration
}

// NewScanTask constructs the library scanner task.
func NewScanTask(settings Settings, scanner Scanner, backoff time.Duration) *ScanTask {
	return &ScanTask{settings: settings, scanner: scanner, backoff: backoff}
}

func (t *ScanTask) Name() string { return LoopScanner }

func (t *ScanTask) RunOnce(ctx context.Context) (time.Duration, error) {
	changed, err := t.scanner.Scan(ctx)
	if err != nil {
		return t.backoff, err
	}
	t.set("%d items marked missing", changed)
	interval, err := t.settings.ScanInterval(ctx)
	if err != nil {
		return t.backoff, err
	}
	return interval, nil
}
