package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/divkeeper/internal/common"
	"github.com/dmitrijs2005/divkeeper/internal/dbx"
	"github.com/dmitrijs2005/divkeeper/internal/filex"
	"github.com/dmitrijs2005/divkeeper/internal/server/models"
	"github.com/dmitrijs2005/divkeeper/internal/server/storage"
	"github.com/dmitrijs2005/divkeeper/internal/timex"
)

// Export writes the rows selected by scope into a new container and returns
// its bytes. Scratch files live under workDir and are removed before Export
// returns.
func Export(ctx context.Context, c *storage.Conn, scope Scope, workDir string) ([]byte, Result, error) {
	stocks, dividends, err := readLive(ctx, c, scope)
	if err != nil {
		return nil, Result{}, err
	}

	dir, cleanup, err := filex.ScratchDir(workDir, "export-*")
	if err != nil {
		return nil, Result{}, fmt.Errorf("%w: %w", common.ErrTransientIO, err)
	}
	defer cleanup()

	path := filepath.Join(dir, common.SnapshotFileName)
	res, err := writeContainer(ctx, path, stocks, dividends)
	if err != nil {
		return nil, Result{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Result{}, fmt.Errorf("%w: read container: %w", common.ErrTransientIO, err)
	}
	return data, res, nil
}

func readLive(ctx context.Context, c *storage.Conn, scope Scope) ([]models.Stock, []models.Dividend, error) {
	where, args := scope.where()

	rows, err := c.QueryContext(ctx, `SELECT id, account_name, stock_name, COALESCE(stock_code, ''),
		purchase_price, shares, total_amount, dividend_cycle,
		COALESCE(current_price, 0), COALESCE(sell_amount, 0), is_sold, created_at
		FROM stocks`+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("read stocks: %w", err)
	}
	defer rows.Close()

	var stocks []models.Stock
	for rows.Next() {
		var (
			s  models.Stock
			ts timex.Timestamp
		)
		if err := rows.Scan(&s.ID, &s.AccountName, &s.StockName, &s.StockCode,
			&s.PurchasePrice, &s.Shares, &s.TotalAmount, &s.DividendCycle,
			&s.CurrentPrice, &s.SellAmount, &s.IsSold, &ts); err != nil {
			return nil, nil, fmt.Errorf("read stocks: %w", err)
		}
		s.CreatedAt = ts.Time
		stocks = append(stocks, s)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("read stocks: %w", err)
	}

	drows, err := c.QueryContext(ctx, `SELECT id, stock_id, dividend_date, amount, created_at
		FROM dividends`+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("read dividends: %w", err)
	}
	defer drows.Close()

	var dividends []models.Dividend
	for drows.Next() {
		var (
			d  models.Dividend
			ts timex.Timestamp
		)
		if err := drows.Scan(&d.ID, &d.StockID, &d.DividendDate, &d.Amount, &ts); err != nil {
			return nil, nil, fmt.Errorf("read dividends: %w", err)
		}
		d.CreatedAt = ts.Time
		dividends = append(dividends, d)
	}
	if err := drows.Err(); err != nil {
		return nil, nil, fmt.Errorf("read dividends: %w", err)
	}
	return stocks, dividends, nil
}

func writeContainer(ctx context.Context, path string, stocks []models.Stock, dividends []models.Dividend) (Result, error) {
	db, err := openContainer(ctx, path, false)
	if err != nil {
		return Result{}, fmt.Errorf("%w: create container: %w", common.ErrTransientIO, err)
	}
	defer db.Close()

	var res Result
	err = dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx *sql.Tx) error {
		res = Result{}
		cc := storage.NewConn(tx, storage.SQLite())

		for _, ddl := range []string{containerStocksDDL, containerDividendsDDL} {
			if _, err := cc.ExecContext(ctx, ddl); err != nil {
				return err
			}
		}

		idMap := make(map[int64]int64, len(stocks))
		for i, s := range stocks {
			id := int64(i + 1)
			idMap[s.ID] = id
			if _, err := cc.ExecContext(ctx, `INSERT INTO stocks (id, account_name, stock_name, stock_code,
				purchase_price, shares, total_amount, dividend_cycle, current_price, sell_amount, is_sold, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				id, s.AccountName, s.StockName, s.StockCode, s.PurchasePrice, s.Shares, s.TotalAmount,
				s.DividendCycle, s.CurrentPrice, s.SellAmount, s.IsSold, containerTime(s.CreatedAt)); err != nil {
				return err
			}
			res.Stocks++
		}

		for _, d := range dividends {
			stockID, ok := idMap[d.StockID]
			if !ok {
				res.Skipped++
				continue
			}
			id := int64(res.Dividends + 1)
			if _, err := cc.ExecContext(ctx, `INSERT INTO dividends (id, stock_id, dividend_date, amount, created_at)
				VALUES (?, ?, ?, ?, ?)`,
				id, stockID, d.DividendDate, d.Amount, containerTime(d.CreatedAt)); err != nil {
				return err
			}
			res.Dividends++
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: write container: %w", common.ErrTransientIO, err)
	}

	if err := db.Close(); err != nil {
		return Result{}, fmt.Errorf("%w: close container: %w", common.ErrTransientIO, err)
	}
	return res, nil
}

// containerTime stores timestamps as RFC 3339 text so any SQLite reader
// sees the same value.
func containerTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
