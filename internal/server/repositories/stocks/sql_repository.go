package stocks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/divkeeper/internal/common"
	"github.com/dmitrijs2005/divkeeper/internal/dbx"
	"github.com/dmitrijs2005/divkeeper/internal/server/models"
	"github.com/dmitrijs2005/divkeeper/internal/server/storage"
	"github.com/dmitrijs2005/divkeeper/internal/timex"
	"github.com/shopspring/decimal"
)

type SQLRepository struct {
	db *storage.Conn
}

func NewSQLRepository(db *storage.Conn) *SQLRepository {
	return &SQLRepository{db: db}
}

// Columns added after the first release were added with defaults, but a row
// written by an older client may still carry an explicit NULL.
const selectStock = `SELECT id, user_id, account_name, stock_name, COALESCE(stock_code, ''),
	purchase_price, shares, total_amount, dividend_cycle,
	COALESCE(current_price, 0), COALESCE(sell_amount, 0), is_sold, created_at
	FROM stocks`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStock(row rowScanner) (*models.Stock, error) {
	var (
		s  models.Stock
		ts timex.Timestamp
	)
	err := row.Scan(&s.ID, &s.UserID, &s.AccountName, &s.StockName, &s.StockCode,
		&s.PurchasePrice, &s.Shares, &s.TotalAmount, &s.DividendCycle,
		&s.CurrentPrice, &s.SellAmount, &s.IsSold, &ts)
	if err != nil {
		return nil, err
	}
	s.CreatedAt = ts.Time
	return &s, nil
}

func (r *SQLRepository) Create(ctx context.Context, userID int64, s *models.Stock) (*models.Stock, error) {
	query := `INSERT INTO stocks (user_id, account_name, stock_name, stock_code, purchase_price, shares,
		total_amount, dividend_cycle, current_price, sell_amount, is_sold)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := r.db.InsertReturningID(ctx, query, userID, s.AccountName, s.StockName, s.StockCode,
		s.PurchasePrice, s.Shares, s.TotalAmount, s.DividendCycle, s.CurrentPrice, s.SellAmount, s.IsSold)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return r.Get(ctx, userID, id)
}

func (r *SQLRepository) Get(ctx context.Context, userID, id int64) (*models.Stock, error) {
	s, err := scanStock(r.db.QueryRowContext(ctx, selectStock+` WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *SQLRepository) List(ctx context.Context, userID int64) ([]models.Stock, error) {
	return r.list(ctx, selectStock+` WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
}

func (r *SQLRepository) ListWithCode(ctx context.Context, userID int64) ([]models.Stock, error) {
	return r.list(ctx, selectStock+` WHERE user_id = ? AND stock_code IS NOT NULL AND stock_code <> '' ORDER BY id`, userID)
}

func (r *SQLRepository) list(ctx context.Context, query string, args ...any) ([]models.Stock, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []models.Stock{}
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) Update(ctx context.Context, userID, id int64, upd models.StockUpdate) error {
	var (
		res sql.Result
		err error
	)
	if upd.Sale != nil {
		res, err = r.db.ExecContext(ctx,
			`UPDATE stocks SET shares = ?, total_amount = ?, sell_amount = ?, is_sold = ? WHERE id = ? AND user_id = ?`,
			upd.Shares, upd.TotalAmount, upd.Sale.SellAmount, upd.Sale.IsSold, id, userID)
	} else {
		res, err = r.db.ExecContext(ctx,
			`UPDATE stocks SET shares = ?, total_amount = ?, purchase_price = ? WHERE id = ? AND user_id = ?`,
			upd.Shares, upd.TotalAmount, upd.PurchasePrice, id, userID)
	}
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

func (r *SQLRepository) UpdateCurrentPrice(ctx context.Context, userID, id int64, price decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx, `UPDATE stocks SET current_price = ? WHERE id = ? AND user_id = ?`, price, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

// Delete removes the stock's dividends first, then the stock itself.
func (r *SQLRepository) Delete(ctx context.Context, userID, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM dividends WHERE stock_id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM stocks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExpectOneRow(res)
}
