// Package app wires configuration, storage, the feed ingestor, the
// hashtag selector and the publish loop into one supervised daemon.
package app

import (
	"context"
	"fmt"

	"babbler/internal/config"
	"babbler/internal/feed"
	"babbler/internal/hashtag"
	"babbler/internal/publish"
	"babbler/internal/runtime/supervisor"
	"babbler/internal/social"
	"babbler/internal/store"
	logx "babbler/pkg/logx"
)

type App struct {
	cfgm   *config.Manager
	sup    *supervisor.Supervisor
	log    logx.Logger
	logs   *logx.Service
	store  store.Store
	client social.Client
	loop   *publish.Loop

	// dryRun forces dry-run regardless of the config file. It also
	// swaps the store for the in-memory driver so a dry run never
	// touches persisted state.
	dryRun bool
}

func NewApp(cfgPath string, dryRun bool) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if dryRun {
		cfg.Social.DryRun = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	busyTimeout, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	storeCfg := store.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}
	if dryRun || cfg.Social.DryRun {
		storeCfg.Driver = "memory"
	}
	st, err := store.Open(storeCfg, log.With(logx.String("comp", "store")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	lex, err := lexiconFromConfig(cfg)
	if err != nil {
		_ = st.Close()
		_ = logSvc.Close()
		return nil, err
	}

	client := social.NewHTTPClient(cfg.Social.BaseURL, cfg.Social.AccessToken,
		log.With(logx.String("comp", "social")))

	searchesPerSec := cfg.Hashtags.SearchesPerSec
	if searchesPerSec == 0 {
		searchesPerSec = config.DefaultSearchesPerSec
	}
	cacheSize := cfg.Hashtags.CacheSize
	if cacheSize == 0 {
		cacheSize = config.DefaultCacheSize
	}
	selector := hashtag.NewSelector(lex, searchOracle{client: client}, hashtag.Options{
		MinLen:         cfg.HashtagMinLen(),
		MaxLen:         cfg.MaxPostLen(),
		SearchesPerSec: searchesPerSec,
		CacheSize:      cacheSize,
	}, log.With(logx.String("comp", "hashtag")))

	a := &App{
		cfgm:   cfgm,
		log:    log,
		logs:   logSvc,
		store:  st,
		client: client,
		dryRun: dryRun,
	}
	a.loop = publish.New(st, feed.New(log.With(logx.String("comp", "feed"))),
		selector, client, a.settings, log.With(logx.String("comp", "publish")))
	return a, nil
}

// settings reads the live config each cycle so delay, ignore patterns
// and the length budget follow hot reloads.
func (a *App) settings() publish.Settings {
	cfg := a.cfgm.Get()
	delay, err := cfg.Delay()
	if err != nil {
		delay = config.DefaultDelay
	}
	return publish.Settings{
		FeedURL:    cfg.Feed.URL,
		Delay:      delay,
		Ignore:     cfg.Feed.Ignore,
		MaxPostLen: cfg.MaxPostLen(),
		DryRun:     a.dryRun || cfg.Social.DryRun,
	}
}

// Done is closed when the app supervisor context is canceled (fatal
// error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor, if any.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	// Persist the options bag alongside the queue before the first cycle.
	if err := a.store.SaveOptions(a.sup.Context(), a.cfgm.Get().Options()); err != nil {
		return fmt.Errorf("save options: %w", err)
	}

	// Transactional config reload: validate before commit/publish.
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return cfg.Validate()
	})
	a.sup.Go("config.watch", a.cfgm.Watch)

	sub := a.cfgm.Subscribe(8)
	a.sup.Go("config.reload", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return nil
			case newCfg, ok := <-sub:
				if !ok {
					return nil
				}
				a.logs.Apply(logx.Config{
					Level:   newCfg.Logging.Level,
					Console: newCfg.Logging.Console,
					File: logx.FileConfig{
						Enabled: newCfg.Logging.File.Enabled,
						Path:    newCfg.Logging.File.Path,
					},
				})
				if err := a.store.SaveOptions(c, newCfg.Options()); err != nil {
					return fmt.Errorf("save options: %w", err)
				}
				a.log.Info("config reloaded", logx.String("config", newCfg.String()))
			}
		}
	})

	a.sup.Go("publish.loop", a.loop.Run)
	a.log.Info("started", logx.String("config", a.cfgm.Get().String()),
		logx.Bool("dry_run", a.settings().DryRun))
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	var firstErr error
	if a.sup != nil {
		if err := a.sup.Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.logs.Close(); err != nil {
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
