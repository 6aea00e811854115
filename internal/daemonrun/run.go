package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"vibetube/internal/catalog"
	"vibetube/internal/config"
	"vibetube/internal/daemon"
	"vibetube/internal/deps"
	"vibetube/internal/ipc"
	"vibetube/internal/logging"
	"vibetube/internal/preflight"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the vibetube daemon and blocks until a signal or a stop request.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("vibetube-%s.log", runID))
	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update vibetube.log link: %v\n", err)
	}
	logging.PruneRunLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, logPath)
	logPreflight(signalCtx, logger, cfg)

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := catalog.Open(cfg)
	if err != nil {
		logger.Error("open catalog store", logging.Error(err))
		return err
	}
	defer store.Close()

	components, err := Wire(cfg, store, logger, WireOptions{LogPath: logPath})
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer components.Close()
	d := components.Daemon
	defer d.Close()
	d.OnShutdown(cancel)

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}

	group, groupCtx := errgroup.WithContext(signalCtx)
	group.Go(func() error {
		ipcServer.Serve()
		<-groupCtx.Done()
		ipcServer.Close()
		return nil
	})
	if apiServer := daemon.NewAPIServer(d, cfg.Paths.APIBind, logger); apiServer != nil {
		group.Go(func() error {
			if err := apiServer.Serve(groupCtx); err != nil {
				logging.ErrorWithContext(logger, "api server stopped", "api_server_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "HTTP status and /downloads/ are unavailable"),
					logging.String(logging.FieldErrorHint, "check paths.api_bind for a port conflict"),
				)
				return err
			}
			return nil
		})
	}

	err = group.Wait()
	logger.Info("vibetube daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return err
}

func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	for _, status := range statuses {
		logger.Info("dependency snapshot",
			logging.String(logging.FieldEventType, "dependency_snapshot"),
			logging.String("dependency", status.Name),
			logging.String("command", status.Command),
			logging.Bool("available", status.Available),
			logging.Bool("optional", status.Optional),
		)
	}
	for _, missing := range deps.MissingRequired(statuses) {
		logging.WarnWithContext(logger, "required dependency missing", "dependency_missing",
			logging.String("dependency", missing.Name),
			logging.String("detail", missing.Detail),
			logging.String(logging.FieldImpact, "discovery and downloads will fail"),
			logging.String(logging.FieldErrorHint, "install "+missing.Name+" or set downloader.binary"),
		)
	}
	for _, result := range preflight.Failed(preflight.RunAll(ctx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
		)
	}
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "vibetube.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
