package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/divkeeper/internal/common"
	"github.com/dmitrijs2005/divkeeper/internal/filex"
	"github.com/dmitrijs2005/divkeeper/internal/server/models"
	"github.com/dmitrijs2005/divkeeper/internal/server/storage"
	"github.com/dmitrijs2005/divkeeper/internal/timex"
	"github.com/shopspring/decimal"
)

// Import replaces userID's stocks and dividends in c with the content of
// the container in data. The container is fully read before anything in c
// is deleted.
func Import(ctx context.Context, c *storage.Conn, userID int64, data []byte, workDir string) (Result, error) {
	if err := checkContainer(data); err != nil {
		return Result{}, err
	}

	dir, cleanup, err := filex.ScratchDir(workDir, "import-*")
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", common.ErrTransientIO, err)
	}
	defer cleanup()

	path := filepath.Join(dir, common.SnapshotFileName)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return Result{}, fmt.Errorf("%w: write container: %w", common.ErrTransientIO, err)
	}

	stocks, dividends, unlinked, err := readContainer(ctx, path)
	if err != nil {
		return Result{}, err
	}

	res, err := replace(ctx, c, userID, stocks, dividends)
	if err != nil {
		return Result{}, err
	}
	res.Skipped += unlinked
	return res, nil
}

// readContainer returns the container rows and the number of dividends
// that reference no stock at all.
func readContainer(ctx context.Context, path string) ([]models.Stock, []models.Dividend, int, error) {
	db, err := openContainer(ctx, path, true)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%w: open container: %w", common.ErrContainerFormat, err)
	}
	defer db.Close()

	cc := storage.NewConn(db, storage.SQLite())
	for _, table := range []string{"stocks", "dividends"} {
		ok, err := cc.TableExists(ctx, table)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("%w: %w", common.ErrContainerFormat, err)
		}
		if !ok {
			return nil, nil, 0, fmt.Errorf("%w: table %s missing", common.ErrContainerFormat, table)
		}
	}

	stockCols, err := selectList(ctx, cc, "stocks", stockColumns)
	if err != nil {
		return nil, nil, 0, err
	}
	rows, err := cc.QueryContext(ctx, `SELECT `+stockCols+` FROM stocks ORDER BY id`)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%w: read stocks: %w", common.ErrContainerFormat, err)
	}
	defer rows.Close()

	var stocks []models.Stock
	for rows.Next() {
		var (
			s      models.Stock
			shares decimal.Decimal
			ts     timex.Timestamp
		)
		if err := rows.Scan(&s.ID, &s.AccountName, &s.StockName, &s.StockCode,
			&s.PurchasePrice, &shares, &s.TotalAmount, &s.DividendCycle,
			&s.CurrentPrice, &s.SellAmount, &s.IsSold, &ts); err != nil {
			return nil, nil, 0, fmt.Errorf("%w: read stocks: %w", common.ErrContainerFormat, err)
		}
		// SQLite keeps whatever number was written into an INTEGER column.
		s.Shares = shares.Round(0).IntPart()
		s.CreatedAt = ts.Time
		stocks = append(stocks, s)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, 0, fmt.Errorf("%w: read stocks: %w", common.ErrContainerFormat, err)
	}

	divCols, err := selectList(ctx, cc, "dividends", dividendColumns)
	if err != nil {
		return nil, nil, 0, err
	}
	drows, err := cc.QueryContext(ctx, `SELECT `+divCols+` FROM dividends ORDER BY id`)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%w: read dividends: %w", common.ErrContainerFormat, err)
	}
	defer drows.Close()

	var (
		dividends []models.Dividend
		unlinked  int
	)
	for drows.Next() {
		var (
			d       models.Dividend
			stockID sql.NullInt64
			ts      timex.Timestamp
		)
		if err := drows.Scan(&d.ID, &stockID, &d.DividendDate, &d.Amount, &ts); err != nil {
			return nil, nil, 0, fmt.Errorf("%w: read dividends: %w", common.ErrContainerFormat, err)
		}
		if !stockID.Valid {
			unlinked++
			continue
		}
		d.StockID = stockID.Int64
		d.CreatedAt = ts.Time
		dividends = append(dividends, d)
	}
	if err := drows.Err(); err != nil {
		return nil, nil, 0, fmt.Errorf("%w: read dividends: %w", common.ErrContainerFormat, err)
	}
	return stocks, dividends, unlinked, nil
}

func replace(ctx context.Context, c *storage.Conn, userID int64, stocks []models.Stock, dividends []models.Dividend) (Result, error) {
	for _, q := range []string{
		`DELETE FROM dividends WHERE user_id = ?`,
		`DELETE FROM stocks WHERE user_id = ?`,
	} {
		if _, err := c.ExecContext(ctx, q, userID); err != nil {
			return Result{}, fmt.Errorf("clear user rows: %w", err)
		}
	}

	now := time.Now().UTC()
	var res Result

	idMap := make(map[int64]int64, len(stocks))
	for _, s := range stocks {
		id, err := c.InsertReturningID(ctx, `INSERT INTO stocks (user_id, account_name, stock_name, stock_code,
			purchase_price, shares, total_amount, dividend_cycle, current_price, sell_amount, is_sold, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			userID, s.AccountName, s.StockName, s.StockCode, s.PurchasePrice, s.Shares, s.TotalAmount,
			s.DividendCycle, s.CurrentPrice, s.SellAmount, s.IsSold, orNow(s.CreatedAt, now))
		if err != nil {
			return Result{}, fmt.Errorf("insert stock %d: %w", s.ID, err)
		}
		idMap[s.ID] = id
		res.Stocks++
	}

	for _, d := range dividends {
		stockID, ok := idMap[d.StockID]
		if !ok {
			res.Skipped++
			continue
		}
		if _, err := c.ExecContext(ctx, `INSERT INTO dividends (stock_id, user_id, dividend_date, amount, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			stockID, userID, d.DividendDate, d.Amount, orNow(d.CreatedAt, now)); err != nil {
			return Result{}, fmt.Errorf("insert dividend %d: %w", d.ID, err)
		}
		res.Dividends++
	}
	return res, nil
}

func orNow(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t
}
