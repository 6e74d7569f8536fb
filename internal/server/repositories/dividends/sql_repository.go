package dividends

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
)

type SQLRepository struct {
	db *storage.Conn
}

func NewSQLRepository(db *storage.Conn) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Create(ctx context.Context, userID int64, d *models.Dividend) (*models.Dividend, error) {
	var owner int64
	err := r.db.QueryRowContext(ctx, `SELECT user_id FROM stocks WHERE id = ? AND user_id = ?`, d.StockID, userID).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	id, err := r.db.InsertReturningID(ctx,
		`INSERT INTO dividends (stock_id, user_id, dividend_date, amount) VALUES (?, ?, ?, ?)`,
		d.StockID, owner, d.DividendDate, d.Amount)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	d.ID = id
	d.UserID = owner
	return d, nil
}

func (r *SQLRepository) ListByUser(ctx context.Context, userID int64) ([]models.Dividend, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, stock_id, user_id, dividend_date, amount, created_at FROM dividends WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []models.Dividend{}
	for rows.Next() {
		var (
			d  models.Dividend
			ts timex.Timestamp
		)
		if err := rows.Scan(&d.ID, &d.StockID, &d.UserID, &d.DividendDate, &d.Amount, &ts); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		d.CreatedAt = ts.Time
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) Delete(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM dividends WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExpectOneRow(res)
}
