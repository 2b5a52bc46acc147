package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/huh"
	"go.uber.org/zap"

	"github.com/nhle/work-schedule/internal/cache"
	"github.com/nhle/work-schedule/internal/credential"
	"github.com/nhle/work-schedule/internal/directory"
	"github.com/nhle/work-schedule/internal/export"
	"github.com/nhle/work-schedule/internal/httpapi"
	"github.com/nhle/work-schedule/internal/logging"
	"github.com/nhle/work-schedule/internal/model"
	"github.com/nhle/work-schedule/internal/qbtime"
	"github.com/nhle/work-schedule/internal/schedule"
	"github.com/nhle/work-schedule/internal/store"
	"github.com/nhle/work-schedule/internal/sync"
)

// app is the wired set of components shared by the commands.
type app struct {
	cfg       *model.AppConfig
	logger    *zap.Logger
	remote    sync.RemoteStore
	schedules *cache.ScheduleCache
	creds     credential.Source
	client    *qbtime.Client
	directory *directory.Syncer
	refs      *directory.Cache
	exporter  *export.Exporter
	closers   []func() error
}

// serverCredentials is the server-side token: the configured value, else
// the system keyring when enabled.
func serverCredentials(cfg *model.AppConfig) credential.Source {
	if cfg.QBTime.Token != "" {
		return credential.Static(cfg.QBTime.Token)
	}
	if cfg.QBTime.UseKeyring {
		return credential.NewKeyring(credential.TokenKey)
	}
	return credential.Static("")
}

// newApp opens the store and cache and builds the service clients. With
// useDB false and a remote URL configured, schedules go through a
// running server instead of the database.
func newApp(ctx context.Context, cfg *model.AppConfig, service string, useDB bool) (*app, error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, service)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	a := &app{cfg: cfg, logger: logger}

	if !useDB && cfg.Sync.RemoteURL != "" {
		a.remote = httpapi.NewClient(cfg.Sync.RemoteURL, time.Duration(cfg.QBTime.TimeoutSec)*time.Second, logger)
	} else {
		db, err := store.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		sqlStore := store.NewSQLStore(db, logger)
		a.remote = sqlStore
		a.closers = append(a.closers, sqlStore.Close)
	}

	kv, err := cache.Open(ctx, cache.Options{
		Driver:    cfg.Cache.Driver,
		Dir:       cfg.Cache.Dir,
		RedisAddr: cfg.Cache.RedisAddr,
		RedisDB:   cfg.Cache.RedisDB,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.schedules = cache.NewScheduleCache(kv, logger)

	server := serverCredentials(cfg)
	a.creds = credential.Chain{credential.Request{}, server}
	a.client = qbtime.New(qbtime.Options{
		BaseURL:    cfg.QBTime.BaseURL,
		Timeout:    time.Duration(cfg.QBTime.TimeoutSec) * time.Second,
		RatePerSec: cfg.QBTime.RatePerSec,
	}, a.creds, logger)
	a.directory = directory.NewSyncer(a.client, cfg.QBTime.PMGroup, cfg.QBTime.TechGroup, logger)
	a.refs = directory.NewCache(a.directory, logger)
	a.exporter = export.NewExporter(a.client, logger)

	return a, nil
}

// syncer builds a workspace over the store and cache and loads it.
func (a *app) syncer(ctx context.Context) *sync.Syncer {
	s := sync.New(a.remote, a.schedules, a.exporter,
		time.Duration(a.cfg.Sync.DebounceMs)*time.Millisecond, a.logger)
	s.Load(ctx)
	return s
}

// Close releases the store and flushes the logger.
func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn("closing", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// confirmer asks on the terminal unless assumeYes is set.
func confirmer(assumeYes bool) schedule.ConfirmFunc {
	return func(msg string) bool {
		if assumeYes {
			return true
		}
		ok := false
		err := huh.NewConfirm().
			Title(msg).
			Affirmative("Yes").
			Negative("No").
			Value(&ok).
			Run()
		return err == nil && ok
	}
}
