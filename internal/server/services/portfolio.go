package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/divkeeper/internal/common"
	"github.com/dmitrijs2005/divkeeper/internal/logging"
	"github.com/dmitrijs2005/divkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/divkeeper/internal/server/models"
	"github.com/dmitrijs2005/divkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/divkeeper/internal/server/snapshot"
	"github.com/dmitrijs2005/divkeeper/internal/server/storage"
	"github.com/shopspring/decimal"
)

// PortfolioService owns stock and dividend CRUD plus snapshot export and
// import. Every method takes the acting user explicitly.
type PortfolioService struct {
	store       *storage.Store
	repomanager repomanager.RepositoryManager
	workDir     string
	imports     *userLocks
	metrics     *metrics.Metrics
	log         logging.Logger
}

// NewPortfolioService builds the service. workDir must exist; scratch
// containers are created below it.
func NewPortfolioService(store *storage.Store, m repomanager.RepositoryManager, workDir string, met *metrics.Metrics, log logging.Logger) *PortfolioService {
	return &PortfolioService{
		store:       store,
		repomanager: m,
		workDir:     workDir,
		imports:     newUserLocks(),
		metrics:     met,
		log:         log,
	}
}

// ListStocks returns the user's stocks newest first, each with its
// dividends ordered by id.
func (s *PortfolioService) ListStocks(ctx context.Context, userID int64) ([]models.Stock, error) {
	c := s.store.Conn()

	stocks, err := s.repomanager.Stocks(c).List(ctx, userID)
	if err != nil {
		return nil, err
	}
	dividends, err := s.repomanager.Dividends(c).ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	byStock := make(map[int64][]models.Dividend, len(stocks))
	for _, d := range dividends {
		byStock[d.StockID] = append(byStock[d.StockID], d)
	}
	for i := range stocks {
		stocks[i].Dividends = byStock[stocks[i].ID]
		if stocks[i].Dividends == nil {
			stocks[i].Dividends = []models.Dividend{}
		}
	}
	return stocks, nil
}

func (s *PortfolioService) CreateStock(ctx context.Context, userID int64, stock *models.Stock) (*models.Stock, error) {
	stock.AccountName = strings.TrimSpace(stock.AccountName)
	stock.StockName = strings.TrimSpace(stock.StockName)
	stock.StockCode = strings.TrimSpace(stock.StockCode)
	if stock.AccountName == "" || stock.StockName == "" {
		return nil, fmt.Errorf("%w: account and stock name are required", common.ErrValidation)
	}
	if stock.Shares < 0 {
		return nil, fmt.Errorf("%w: negative shares", common.ErrValidation)
	}
	return s.repomanager.Stocks(s.store.Conn()).Create(ctx, userID, stock)
}

func (s *PortfolioService) UpdateStock(ctx context.Context, userID, id int64, upd models.StockUpdate) error {
	if upd.Shares < 0 {
		return fmt.Errorf("%w: negative shares", common.ErrValidation)
	}
	return s.repomanager.Stocks(s.store.Conn()).Update(ctx, userID, id, upd)
}

// DeleteStock removes the stock and its dividends.
func (s *PortfolioService) DeleteStock(ctx context.Context, userID, id int64) error {
	return s.store.WithTx(ctx, func(ctx context.Context, c *storage.Conn) error {
		return s.repomanager.Stocks(c).Delete(ctx, userID, id)
	})
}

func (s *PortfolioService) UpdateCurrentPrice(ctx context.Context, userID, id int64, price decimal.Decimal) error {
	if price.IsNegative() {
		return fmt.Errorf("%w: negative price", common.ErrValidation)
	}
	return s.repomanager.Stocks(s.store.Conn()).UpdateCurrentPrice(ctx, userID, id, price)
}

// CreateDividend attaches d to one of the user's stocks.
func (s *PortfolioService) CreateDividend(ctx context.Context, userID int64, d *models.Dividend) (*models.Dividend, error) {
	d.DividendDate = strings.TrimSpace(d.DividendDate)
	if d.DividendDate == "" {
		return nil, fmt.Errorf("%w: dividend date is required", common.ErrValidation)
	}
	return s.repomanager.Dividends(s.store.Conn()).Create(ctx, userID, d)
}

func (s *PortfolioService) DeleteDividend(ctx context.Context, userID, id int64) error {
	return s.repomanager.Dividends(s.store.Conn()).Delete(ctx, userID, id)
}

// Export writes the rows selected by scope to a container and returns its
// bytes.
func (s *PortfolioService) Export(ctx context.Context, scope snapshot.Scope) (data []byte, res snapshot.Result, err error) {
	defer s.metrics.TrackSnapshot("export")(&err)

	data, res, err = snapshot.Export(ctx, s.store.Conn(), scope, s.workDir)
	if err != nil {
		s.log.Error(ctx, "export failed", "scope", scope.String(), "error", err)
		return nil, snapshot.Result{}, err
	}

	s.metrics.RecordSnapshotRows("export", res.Stocks, res.Dividends, res.Skipped)
	s.log.Info(ctx, "export done", "scope", scope.String(),
		"stocks", res.Stocks, "dividends", res.Dividends, "skipped", res.Skipped)
	return data, res, nil
}

// Import replaces the user's stocks and dividends with the container's
// rows in one transaction. Imports for the same user are serialized.
func (s *PortfolioService) Import(ctx context.Context, userID int64, data []byte) (res snapshot.Result, err error) {
	defer s.metrics.TrackSnapshot("import")(&err)

	unlock := s.imports.Lock(userID)
	defer unlock()

	err = s.store.WithTx(ctx, func(ctx context.Context, c *storage.Conn) error {
		var ierr error
		res, ierr = snapshot.Import(ctx, c, userID, data, s.workDir)
		return ierr
	})
	if err != nil {
		s.log.Warn(ctx, "import failed", "user_id", userID, "error", err)
		return snapshot.Result{}, err
	}

	s.metrics.RecordSnapshotRows("import", res.Stocks, res.Dividends, res.Skipped)
	s.log.Info(ctx, "import done", "user_id", userID,
		"stocks", res.Stocks, "dividends", res.Dividends, "skipped", res.Skipped)
	return res, nil
}
