// Package stocks persists holdings. Every method is scoped to the owning
// user; a row owned by someone else is reported as common.ErrorNotFound.
package stocks

import (
	"context"

	"github.com/dmitrijs2005/divkeeper/internal/server/models"
	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, userID int64, stock *models.Stock) (*models.Stock, error)
	Get(ctx context.Context, userID, id int64) (*models.Stock, error)
	// List returns the user's stocks newest first, without dividends.
	List(ctx context.Context, userID int64) ([]models.Stock, error)
	// ListWithCode returns the user's stocks that carry a ticker.
	ListWithCode(ctx context.Context, userID int64) ([]models.Stock, error)
	Update(ctx context.Context, userID, id int64, upd models.StockUpdate) error
	UpdateCurrentPrice(ctx context.Context, userID, id int64, price decimal.Decimal) error
	Delete(ctx context.Context, userID, id int64) error
}
