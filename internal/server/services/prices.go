package services

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/divkeeper/internal/logging"
	"github.com/dmitrijs2005/divkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/divkeeper/internal/server/prices"
	"github.com/dmitrijs2005/divkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/divkeeper/internal/server/storage"
	"github.com/shopspring/decimal"
)

// PriceService looks up quotes and refreshes current prices.
type PriceService struct {
	store       *storage.Store
	repomanager repomanager.RepositoryManager
	looker      prices.Looker
	metrics     *metrics.Metrics
	log         logging.Logger
}

func NewPriceService(store *storage.Store, m repomanager.RepositoryManager, looker prices.Looker, met *metrics.Metrics, log logging.Logger) *PriceService {
	return &PriceService{store: store, repomanager: m, looker: looker, metrics: met, log: log}
}

// Lookup returns the last close price for code.
func (s *PriceService) Lookup(ctx context.Context, code string) (int64, bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return 0, false, nil
	}
	price, found, err := s.looker.ClosePrice(ctx, code)
	s.metrics.RecordPriceLookup(found, err)
	return price, found, err
}

// Refresh updates the current price of every stock of the user that has a
// ticker and returns how many were updated. Failed lookups are skipped.
func (s *PriceService) Refresh(ctx context.Context, userID int64) (int, error) {
	repo := s.repomanager.Stocks(s.store.Conn())

	stocks, err := repo.ListWithCode(ctx, userID)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, st := range stocks {
		price, found, err := s.Lookup(ctx, st.StockCode)
		if err != nil {
			s.log.Warn(ctx, "price lookup failed", "code", st.StockCode, "error", err)
			continue
		}
		if !found {
			continue
		}
		if err := repo.UpdateCurrentPrice(ctx, userID, st.ID, decimal.NewFromInt(price)); err != nil {
			return updated, err
		}
		updated++
	}

	s.log.Info(ctx, "prices refreshed", "user_id", userID, "candidates", len(stocks), "updated", updated)
	return updated, nil
}
