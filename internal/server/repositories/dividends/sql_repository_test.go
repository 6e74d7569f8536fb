package dividends

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/divkeeper/internal/common"
	"github.com/dmitrijs2005/divkeeper/internal/server/models"
	"github.com/dmitrijs2005/divkeeper/internal/server/storage"
	"github.com/dmitrijs2005/divkeeper/internal/server/storage/storagetest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertStock(t *testing.T, c *storage.Conn, userID int64) int64 {
	t.Helper()
	id, err := c.InsertReturningID(context.Background(),
		`INSERT INTO stocks (user_id, account_name, stock_name, purchase_price, shares, total_amount, dividend_cycle) VALUES (?, 'ISA', 'A', 100, 10, 1000, 'yearly')`,
		userID)
	require.NoError(t, err)
	return id
}

func TestCreate_CopiesOwnerFromStock(t *testing.T) {
	c := storagetest.New(t).Conn()
	u1 := storagetest.CreateUser(t, c, "u1@example.com")
	stockID := insertStock(t, c, u1)
	repo := NewSQLRepository(c)
	ctx := context.Background()

	d, err := repo.Create(ctx, u1, &models.Dividend{StockID: stockID, DividendDate: "2024-01-15", Amount: decimal.NewFromInt(50)})
	require.NoError(t, err)
	assert.NotZero(t, d.ID)
	assert.Equal(t, u1, d.UserID)

	list, err := repo.ListByUser(ctx, u1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "2024-01-15", list[0].DividendDate)
	assert.True(t, decimal.NewFromInt(50).Equal(list[0].Amount))
	assert.Equal(t, stockID, list[0].StockID)
}

func TestCreate_ForeignStockIsNotFound(t *testing.T) {
	c := storagetest.New(t).Conn()
	u1 := storagetest.CreateUser(t, c, "u1@example.com")
	u2 := storagetest.CreateUser(t, c, "u2@example.com")
	stockID := insertStock(t, c, u1)
	repo := NewSQLRepository(c)

	_, err := repo.Create(context.Background(), u2, &models.Dividend{StockID: stockID, DividendDate: "2024-01-15", Amount: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDelete(t *testing.T) {
	c := storagetest.New(t).Conn()
	u1 := storagetest.CreateUser(t, c, "u1@example.com")
	u2 := storagetest.CreateUser(t, c, "u2@example.com")
	repo := NewSQLRepository(c)
	ctx := context.Background()

	d, err := repo.Create(ctx, u1, &models.Dividend{StockID: insertStock(t, c, u1), DividendDate: "2024-01-15", Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)

	require.ErrorIs(t, repo.Delete(ctx, u2, d.ID), common.ErrorNotFound)
	require.NoError(t, repo.Delete(ctx, u1, d.ID))
	require.ErrorIs(t, repo.Delete(ctx, u1, d.ID), common.ErrorNotFound)
}

func TestPostgres_CreateReturnsID(t *testing.T) {
	c, mock, _ := storagetest.Postgres(t)
	repo := NewSQLRepository(c)

	mock.ExpectQuery(`^SELECT user_id FROM stocks WHERE id = \$1 AND user_id = \$2$`).
		WithArgs(int64(5), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(int64(9)))
	mock.ExpectQuery(`^INSERT INTO dividends \(stock_id, user_id, dividend_date, amount\) VALUES \(\$1, \$2, \$3, \$4\) RETURNING id$`).
		WithArgs(int64(5), int64(9), "2024-01-15", float64(50)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	d, err := repo.Create(context.Background(), 9, &models.Dividend{StockID: 5, DividendDate: "2024-01-15", Amount: decimal.NewFromInt(50)})
	require.NoError(t, err)
	assert.Equal(t, int64(11), d.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
