// Package dividends persists dividend payments. A dividend always carries
// the user id of the stock it belongs to.
package dividends

import (
	"context"

	"github.com/dmitrijs2005/divkeeper/internal/server/models"
)

type Repository interface {
	// Create inserts d for the stock d.StockID, which must be owned by userID.
	Create(ctx context.Context, userID int64, d *models.Dividend) (*models.Dividend, error)
	// ListByUser returns every dividend of the user ordered by id.
	ListByUser(ctx context.Context, userID int64) ([]models.Dividend, error)
	Delete(ctx context.Context, userID, id int64) error
}
