package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/divkeeper/internal/logging"
	"github.com/dmitrijs2005/divkeeper/internal/server/backfill"
	"github.com/dmitrijs2005/divkeeper/internal/server/config"
	"github.com/dmitrijs2005/divkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/divkeeper/internal/server/models"
	"github.com/dmitrijs2005/divkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/divkeeper/internal/server/storage"
	"github.com/dmitrijs2005/divkeeper/internal/server/storage/storagetest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

type env struct {
	store   *storage.Store
	rm      repomanager.RepositoryManager
	cfg     *config.Config
	metrics *metrics.Metrics
	adminID int64
	ownerID int64
}

func newEnv(t *testing.T) *env {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "k"
	cfg.SessionTTL = time.Hour

	store := storagetest.New(t)
	rep, err := backfill.Run(context.Background(), store, backfill.Accounts{
		LegacyOwner: backfill.Account{Email: cfg.LegacyOwnerEmail, Password: cfg.LegacyOwnerPassword},
		Admin:       backfill.Account{Email: cfg.AdminEmail, Password: cfg.AdminPassword},
	}, logging.Nop())
	require.NoError(t, err)

	return &env{
		store:   store,
		rm:      repomanager.NewSQLRepositoryManager(),
		cfg:     cfg,
		metrics: metrics.New(),
		adminID: rep.AdminID,
		ownerID: rep.LegacyOwnerID,
	}
}

func (e *env) users() *UserService {
	return NewUserService(e.store, e.rm, e.cfg, e.metrics, logging.Nop())
}

func (e *env) portfolio(t *testing.T) *PortfolioService {
	return NewPortfolioService(e.store, e.rm, t.TempDir(), e.metrics, logging.Nop())
}

func sampleStock(name, code string) *models.Stock {
	return &models.Stock{
		AccountName:   "ISA",
		StockName:     name,
		StockCode:     code,
		PurchasePrice: decimal.NewFromInt(100),
		Shares:        10,
		TotalAmount:   decimal.NewFromInt(1000),
		DividendCycle: "quarterly",
	}
}
