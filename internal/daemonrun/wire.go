package daemonrun

import (
	"errors"
	"log/slog"
	"time"

	"vibetube/internal/acquire"
	"vibetube/internal/catalog"
	"vibetube/internal/config"
	"vibetube/internal/credentials"
	"vibetube/internal/daemon"
	"vibetube/internal/infocache"
	"vibetube/internal/library"
	"vibetube/internal/logging"
	"vibetube/internal/notifications"
	"vibetube/internal/resolver"
	"vibetube/internal/services/jellyfin"
	"vibetube/internal/services/ytdlp"
	"vibetube/internal/settings"
	"vibetube/internal/sources"
	"vibetube/internal/thumbnail"
	"vibetube/internal/workflow"
)

// Components holds the wired runtime and the resources it owns besides the store.
type Components struct {
	Daemon *daemon.Daemon
	Client *ytdlp.Client
	Cache  *infocache.Cache
}

// Close releases the metadata cache.
func (c *Components) Close() error {
	if c == nil {
		return nil
	}
	return c.Cache.Close()
}

// WireOptions customizes wiring, mostly for tests.
type WireOptions struct {
	LogPath    string
	ClientOpts []ytdlp.Option
	Notifier   notifications.Service
	Library    jellyfin.Service
	LoopTick   time.Duration
}

// Wire builds every daemon collaborator from cfg around an open store.
func Wire(cfg *config.Config, store *catalog.Store, logger *slog.Logger, opts WireOptions) (*Components, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("wire requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	var cache *infocache.Cache
	if cfg.MetadataCache.Enabled {
		opened, err := infocache.Open(cfg.MetadataCache.Path, cfg.MetadataCacheTTL())
		if err != nil {
			logging.WarnWithContext(logger, "metadata cache unavailable", "metadata_cache_unavailable",
				logging.Error(err),
				logging.String(logging.FieldImpact, "every enrichment performs a detailed lookup"),
				logging.String(logging.FieldErrorHint, "check metadata_cache.path or disable the cache"),
			)
		} else {
			cache = opened
			if pruned, err := cache.Prune(); err == nil && pruned > 0 {
				logger.Info("metadata cache pruned", logging.Int("entries", pruned))
			}
		}
	}

	clientOpts := []ytdlp.Option{
		ytdlp.WithInfoTimeout(cfg.InfoTimeout()),
		ytdlp.WithDownloadTimeout(cfg.DownloadTimeout()),
	}
	client := ytdlp.New(cfg.DownloaderBinary(), append(clientOpts, opts.ClientOpts...)...)

	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	media := opts.Library
	if media == nil {
		media = jellyfin.NewConfiguredService(cfg)
	}

	reader := settings.NewReader(store, logger)
	creds := credentials.New(store, cfg.CredentialPath(), logger)
	res := resolver.New(client, creds, cache, logger)
	worker := acquire.New(acquire.Dependencies{
		Store:        store,
		Downloader:   client,
		Details:      res,
		Credentials:  creds,
		Thumbnails:   thumbnail.NewFetcher(time.Duration(cfg.Downloader.ThumbnailTimeout) * time.Second),
		Root:         reader,
		Notifier:     notifier,
		Library:      media,
		FallbackRoot: cfg.Paths.StorageRoot,
		MinFileBytes: cfg.Downloader.MinFileBytes,
		Logger:       logger,
	})
	scanner := library.NewScanner(store, notifier, logger)
	sourceSvc := sources.NewService(store, res, scanner, notifier, logger)

	seconds := func(v int) time.Duration { return time.Duration(v) * time.Second }
	manager := workflow.NewManager(logger, opts.LoopTick,
		workflow.NewQueueTask(reader, store, worker, workflow.QueuePacing{
			Idle:     seconds(cfg.Workflow.IdleInterval),
			Cooldown: seconds(cfg.Workflow.ErrorCooldown),
			MinDelay: seconds(cfg.Workflow.MinDownloadDelay),
		}, logger),
		workflow.NewPollTask(reader, sourceSvc, seconds(cfg.Workflow.PollBackoff)),
		workflow.NewScanTask(reader, scanner, seconds(cfg.Workflow.ScanBackoff)),
	)

	d, err := daemon.New(daemon.Dependencies{
		Config:        cfg,
		Store:         store,
		Workflow:      manager,
		Worker:        worker,
		Sources:       sourceSvc,
		Library:       scanner,
		Settings:      reader,
		Notifier:      notifier,
		Downloader:    client,
		MetadataCache: cache,
		Logger:        logger,
		LogPath:       opts.LogPath,
	})
	if err != nil {
		_ = cache.Close()
		return nil, err
	}
	return &Components{Daemon: d, Client: client, Cache: cache}, nil
}
