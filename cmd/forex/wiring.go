package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"

	"github.com/mtlprog/forex/internal/config"
	"github.com/mtlprog/forex/internal/database"
	"github.com/mtlprog/forex/internal/rates"
	"github.com/mtlprog/forex/internal/remote"
	"github.com/mtlprog/forex/internal/store"
)

// deps holds the collaborators shared by all commands.
type deps struct {
	cfg    config.Config
	client *remote.Client
	pool   *pgxpool.Pool
}

// newDeps connects to the database when one is configured and applies migrations.
func newDeps(ctx context.Context, cfg config.Config) (*deps, error) {
	d := &deps{
		cfg:    cfg,
		client: remote.NewClient(cfg.HTTPTimeout, cfg.HTTPRetryMax, cfg.HTTPRetryBaseDelay),
	}

	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL not set, local snapshot and rate history are kept in memory")
		return d, nil
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	migrationsSub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating migrations sub-fs: %w", err)
	}
	if err := database.RunMigrations(ctx, pool, migrationsSub); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	d.pool = pool
	return d, nil
}

func (d *deps) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
}

// rateService builds the source chain: each proxy template, then the
// last persisted live rates, then the static table.
func (d *deps) rateService(offline bool) *rates.Service {
	var sources []rates.Source
	if !offline {
		sources = lo.Map(d.cfg.RateSources, func(tpl string, _ int) rates.Source {
			return rates.NewFeedSource(d.client, tpl, d.cfg.RateFeedURL, d.cfg.Currencies)
		})
	}

	var repo rates.QuoteRepository
	if d.pool != nil {
		pgRepo := rates.NewPgQuoteRepository(d.pool)
		repo = pgRepo
		sources = append(sources, rates.NewStoredSource(pgRepo, d.cfg.RateStaleThreshold))
	}
	sources = append(sources, rates.StaticSource{})

	return rates.NewService(rates.NewChain(sources...), repo, d.cfg.RateCacheTTL)
}

// store builds the remote backend selected by config in front of the local one.
func (d *deps) store(ctx context.Context) (store.Store, error) {
	var local store.Store = store.NewMemoryStore()
	if d.pool != nil {
		local = store.NewPgStore(d.pool)
	}

	var remoteStore store.Store
	switch d.cfg.StoreBackend {
	case config.BackendWebApp:
		if d.cfg.PersistenceEndpoint != "" {
			remoteStore = store.NewWebAppStore(d.client, d.cfg.PersistenceEndpoint)
		}
	case config.BackendSheets:
		if d.cfg.SheetsSpreadsheetID == "" || d.cfg.SheetsCredentialsJSON == "" {
			return nil, fmt.Errorf("sheets backend requires SHEETS_SPREADSHEET_ID and SHEETS_CREDENTIALS_JSON")
		}
		sheetsStore, err := store.NewSheetsStore(ctx, d.cfg.SheetsSpreadsheetID, d.cfg.SheetsCredentialsJSON)
		if err != nil {
			return nil, err
		}
		remoteStore = sheetsStore
	}

	if remoteStore == nil {
		slog.Warn("no remote persistence configured", "backend", d.cfg.StoreBackend)
		return &store.FallbackStore{Local: local}, nil
	}
	return &store.FallbackStore{Remote: remoteStore, Local: local}, nil
}
