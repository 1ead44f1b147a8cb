// Package app wires every component together from a Config, both binaries
// start from it.
package app

import (
	"coursewatch-backend/internal/cachestore"
	"coursewatch-backend/internal/components/assert"
	"coursewatch-backend/internal/components/chrono"
	"coursewatch-backend/internal/components/telemetry"
	"coursewatch-backend/internal/config"
	"coursewatch-backend/internal/db"
	"coursewatch-backend/internal/httpapi"
	"coursewatch-backend/internal/refresh"
	"coursewatch-backend/internal/registrar"
	"coursewatch-backend/internal/scrapers/banner"
	"coursewatch-backend/internal/watchlist"
	"coursewatch-backend/lib/restyutil"
	"coursewatch-backend/lib/sqliteutil"
	"database/sql"
	"fmt"
	"log/slog"
)

type App struct {
	DB        *sql.DB
	Clock     chrono.TimeAPI
	Client    *banner.Client
	Cache     *cachestore.Store
	Registrar *registrar.Service
	Watchlist *watchlist.Poller
	Refresh   *refresh.Job
}

// Open opens the database and builds every component on top of it, a nil
// clock means the wall clock.
func Open(cfg config.Config, clock chrono.TimeAPI, tel telemetry.API) (*App, error) {
	assert.NotNil(tel)
	if clock == nil {
		clock = chrono.StandardTime{}
	}

	database, err := sqliteutil.OpenDB(db.Schema, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.Database, err)
	}

	clientOpts := cfg.Banner.ClientOptions()
	if cfg.Banner.DumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(cfg.Banner.DumpDir)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("prepare dump dir: %w", err)
		}
		clientOpts.Output = output
	}
	client, err := banner.NewClient(clientOpts, tel)
	if err != nil {
		database.Close()
		return nil, err
	}

	store := cachestore.NewStore(database, clock, tel, cfg.Cache.StoreOptions())
	return &App{
		DB:        database,
		Clock:     clock,
		Client:    client,
		Cache:     store,
		Registrar: registrar.NewService(client, store, tel, cfg.Banner.RegistrarOptions()),
		Watchlist: watchlist.NewPoller(database, client, Notifier(cfg), tel, cfg.Watch.PollerOptions()),
		Refresh:   refresh.NewJob(client, store, tel),
	}, nil
}

// Notifier always logs and also mails when smtp is configured.
func Notifier(cfg config.Config) watchlist.Notifier {
	logNotifier := watchlist.LogNotifier{Logger: slog.Default()}
	if !cfg.Smtp.Enabled() {
		return logNotifier
	}
	return watchlist.MultiNotifier{logNotifier, watchlist.NewEmailNotifier(cfg.Smtp)}
}

func (a *App) HttpServer(cfg config.Config, tel telemetry.API) *httpapi.Server {
	return httpapi.NewServer(a.Registrar, a.Watchlist, a.Clock, tel, httpapi.Options{
		StaticDir:      cfg.Http.StaticDir,
		AllowedOrigins: cfg.Http.AllowedOrigins,
	})
}

func (a *App) Close() error {
	return a.DB.Close()
}
