// Package server wires the portfolio server together. NewApp opens storage,
// applies the schema steps and the ownership backfill before anything is
// served; Run serves HTTP until a signal arrives.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/divkeeper/internal/filex"
	"github.com/dmitrijs2005/divkeeper/internal/logging"
	"github.com/dmitrijs2005/divkeeper/internal/server/backfill"
	"github.com/dmitrijs2005/divkeeper/internal/server/config"
	"github.com/dmitrijs2005/divkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/divkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/divkeeper/internal/server/migrations"
	"github.com/dmitrijs2005/divkeeper/internal/server/prices"
	"github.com/dmitrijs2005/divkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/divkeeper/internal/server/services"
	"github.com/dmitrijs2005/divkeeper/internal/server/storage"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	store   *storage.Store
	metrics *metrics.Metrics
	server  *httpapi.HTTPServer
}

// NewApp prepares storage and builds the HTTP server. A schema failure is
// returned as common.ErrSchema and the store is closed.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	m := metrics.New()

	workDir, err := filex.EnsureDir(c.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("work dir init error: %w", err)
	}

	store, err := storage.Open(ctx, c.DatabaseURL, c.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	logger.Info(ctx, "Storage opened", "backend", string(store.Dialect().Kind()))

	if err := prepare(ctx, store, c, m, logger); err != nil {
		_ = store.Close()
		return nil, err
	}

	rm := repomanager.NewSQLRepositoryManager()
	svc := httpapi.Services{
		Users:     services.NewUserService(store, rm, c, m, logger),
		Portfolio: services.NewPortfolioService(store, rm, workDir, m, logger),
		Prices:    services.NewPriceService(store, rm, prices.NewClient(c.PriceBaseURL, c.PriceTimeout), m, logger),
	}
	srv := httpapi.NewHTTPServer(c.HTTPAddr, logger, svc, store, m)

	return &App{config: c, logger: logger, store: store, metrics: m, server: srv}, nil
}

// prepare migrates the schema, backfills ownership and then marks the
// store ready.
func prepare(ctx context.Context, store *storage.Store, c *config.Config, m *metrics.Metrics, logger logging.Logger) error {
	applied, err := migrations.Run(ctx, store, logger)
	if err != nil {
		return err
	}
	m.MigrationsApplied.Add(float64(applied))

	rep, err := backfill.Run(ctx, store, backfill.Accounts{
		LegacyOwner: backfill.Account{Email: c.LegacyOwnerEmail, Password: c.LegacyOwnerPassword},
		Admin:       backfill.Account{Email: c.AdminEmail, Password: c.AdminPassword},
	}, logger)
	if err != nil {
		return err
	}
	m.BackfillRows.WithLabelValues("stocks").Add(float64(rep.StocksAssigned))
	m.BackfillRows.WithLabelValues("dividends").Add(float64(rep.DividendsAssigned))
	m.BackfillRows.WithLabelValues("reconciled").Add(float64(rep.DividendsReconciled))

	store.MarkReady()
	return nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// closes storage.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.logger.Info(ctx, "Closing storage")
	return app.store.Close()
}
