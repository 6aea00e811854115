package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"vibetube/internal/acquire"
	"vibetube/internal/api"
	"vibetube/internal/catalog"
	"vibetube/internal/config"
	"vibetube/internal/deps"
	"vibetube/internal/infocache"
	"vibetube/internal/library"
	"vibetube/internal/logging"
	"vibetube/internal/notifications"
	"vibetube/internal/preflight"
	"vibetube/internal/services"
	"vibetube/internal/settings"
	"vibetube/internal/sources"
	"vibetube/internal/workflow"
)

// Dependencies wires a Daemon. Downloader is optional and only feeds the
// status version probe.
type Dependencies struct {
	Config        *config.Config
	Store         *catalog.Store
	Workflow      *workflow.Manager
	Worker        *acquire.Worker
	Sources       *sources.Service
	Library       *library.Scanner
	Settings      *settings.Reader
	Notifier      notifications.Service
	Downloader    preflight.VersionReporter
	MetadataCache *infocache.Cache
	Logger        *slog.Logger
	LogPath       string
}

// Daemon coordinates the background loops and enforces single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *catalog.Store
	workflow   *workflow.Manager
	worker     *acquire.Worker
	sources    *sources.Service
	library    *library.Scanner
	settings   *settings.Reader
	notifier   notifications.Service
	downloader preflight.VersionReporter
	cache      *infocache.Cache
	logPath    string

	lockPath string
	lock     *flock.Flock

	running  atomic.Bool
	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	triggers sync.WaitGroup
	shutdown func()
}

// New constructs a daemon with initialized dependencies.
func New(deps Dependencies) (*Daemon, error) {
	if deps.Config == nil || deps.Store == nil || deps.Workflow == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	if deps.Worker == nil || deps.Sources == nil || deps.Library == nil || deps.Settings == nil {
		return nil, errors.New("daemon requires worker, sources, library, and settings")
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	lockPath := deps.Config.LockPath()
	return &Daemon{
		cfg:        deps.Config,
		logger:     logging.NewComponentLogger(deps.Logger, "daemon"),
		store:      deps.Store,
		workflow:   deps.Workflow,
		worker:     deps.Worker,
		sources:    deps.Sources,
		library:    deps.Library,
		settings:   deps.Settings,
		notifier:   notifier,
		downloader: deps.Downloader,
		cache:      deps.MetadataCache,
		logPath:    deps.LogPath,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and, when configured, starts every loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another vibetube daemon instance is already running")
	}

	d.mu.Lock()
	d.ctx, d.cancel = context.WithCancel(ctx)
	runCtx := d.ctx
	d.mu.Unlock()

	d.workflow.Bind(runCtx)
	if d.cfg.Workflow.StartLoops {
		d.workflow.Start(runCtx)
	}

	d.running.Store(true)
	d.logger.Info("vibetube daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.Bool("loops_started", d.cfg.Workflow.StartLoops),
	)
	return nil
}

// Stop stops the loops, waits for one-shot triggers and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.mu.Unlock()

	d.workflow.Stop()
	d.triggers.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_unlock_failed"),
			logging.String(logging.FieldImpact, "the next start may report another instance"),
		)
	}
	d.mu.Lock()
	d.ctx = nil
	d.mu.Unlock()
	d.running.Store(false)
	d.logger.Info("vibetube daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon. The store is owned by the caller.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Running reports whether Start succeeded and Stop has not been called.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// OnShutdown registers the function RequestShutdown invokes.
func (d *Daemon) OnShutdown(fn func()) {
	d.mu.Lock()
	d.shutdown = fn
	d.mu.Unlock()
}

// RequestShutdown asks the hosting process to exit. It reports false when no
// shutdown hook is registered.
func (d *Daemon) RequestShutdown() bool {
	d.mu.Lock()
	fn := d.shutdown
	d.mu.Unlock()
	if fn == nil {
		return false
	}
	d.logger.Info("shutdown requested", logging.String(logging.FieldEventType, "daemon_shutdown_requested"))
	fn()
	return true
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// StorageRoot returns the current download root.
func (d *Daemon) StorageRoot(ctx context.Context) (string, error) {
	root, err := d.settings.DownloadPath(ctx)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(root) == "" {
		root = d.cfg.Paths.StorageRoot
	}
	return root, nil
}

// baseContext returns the daemon context, or a background context when the
// daemon was never started.
func (d *Daemon) baseContext() context.Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctx != nil {
		return d.ctx
	}
	return context.Background()
}

// spawn runs fn on a tracked goroutine and returns a channel closed when it
// finishes.
func (d *Daemon) spawn(ctx context.Context, name string, fn func(ctx context.Context)) <-chan struct{} {
	done := make(chan struct{})
	runCtx := services.WithRequestID(ctx, uuid.NewString())
	d.triggers.Add(1)
	go func() {
		defer d.triggers.Done()
		defer close(done)
		d.logger.Debug("trigger started",
			logging.String(logging.FieldEventType, "trigger_started"),
			logging.String("trigger", name),
		)
		fn(runCtx)
	}()
	return done
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	status := api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		LogPath:      d.logPath,
		InFlight:     d.worker.InFlight(),
		Loops:        api.FromLoopStatuses(d.workflow.Status()),
		Dependencies: api.FromDependencies(deps.CheckBinaries(deps.Requirements(d.cfg))),
	}
	if root, err := d.StorageRoot(ctx); err == nil {
		status.StorageRoot = root
	}
	if d.cache != nil {
		entries := d.cache.Len()
		status.MetadataCacheEntries = &entries
	}
	if stats, err := d.store.Stats(ctx); err == nil {
		status.Stats = api.FromStats(stats)
	} else {
		d.logger.Warn("item stats unavailable",
			logging.Error(err),
			logging.String(logging.FieldEventType, "status_stats_failed"),
		)
	}
	checks := preflight.RunAll(ctx, d.cfg)
	if d.downloader != nil {
		checks = append(checks, preflight.CheckDownloader(ctx, d.downloader))
	}
	status.Checks = api.FromChecks(checks)
	return status
}

// StartLoop starts one loop, or every loop when name is empty. It returns
// the names that changed state.
func (d *Daemon) StartLoop(name string) ([]string, error) {
	return d.toggleLoops(name, d.workflow.StartLoop)
}

// StopLoop stops one loop, or every loop when name is empty.
func (d *Daemon) StopLoop(name string) ([]string, error) {
	return d.toggleLoops(name, d.workflow.StopLoop)
}

func (d *Daemon) toggleLoops(name string, fn func(string) (bool, error)) ([]string, error) {
	names := []string{strings.TrimSpace(name)}
	if names[0] == "" {
		names = d.workflow.Names()
	}
	var changed []string
	for _, loop := range names {
		ok, err := fn(loop)
		if err != nil {
			return changed, err
		}
		if ok {
			changed = append(changed, loop)
		}
	}
	return changed, nil
}

// TestNotification sends a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.Publish(ctx, notifications.EventTest, notifications.Payload{}); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
