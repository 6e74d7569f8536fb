package migrations

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/divkeeper/internal/server/storage"
)

// Step is one forward-only schema change. Up must be safe to run against a
// database that already has the change, because databases created before
// the version table existed start at version zero.
type Step struct {
	Version int64
	Name    string
	Up      func(ctx context.Context, c *storage.Conn) error
}

// Steps returns the schema history in order.
func Steps() []Step {
	return []Step{
		{Version: 1, Name: "create_users", Up: createUsers},
		{Version: 2, Name: "create_stocks", Up: createStocks},
		{Version: 3, Name: "create_dividends", Up: createDividends},
		{Version: 4, Name: "stocks_market_columns", Up: addStockMarketColumns},
		{Version: 5, Name: "stocks_user_id", Up: addOwnerColumn("stocks")},
		{Version: 6, Name: "dividends_user_id", Up: addOwnerColumn("dividends")},
		{Version: 7, Name: "owner_indexes", Up: createIndexes},
	}
}

func createUsers(ctx context.Context, c *storage.Conn) error {
	d := c.Dialect()
	t := d.Types()
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS users (
		id %s,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		is_admin %s NOT NULL DEFAULT %s,
		is_active %s NOT NULL DEFAULT %s,
		created_at %s DEFAULT CURRENT_TIMESTAMP
	)`, t.PrimaryKey, t.Bool, d.BoolLiteral(false), t.Bool, d.BoolLiteral(true), t.Timestamp)
	_, err := c.ExecContext(ctx, stmt)
	return err
}

// createStocks uses the column set of the first release; later columns are
// added by addStockMarketColumns so old and new databases converge.
func createStocks(ctx context.Context, c *storage.Conn) error {
	t := c.Dialect().Types()
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS stocks (
		id %s,
		account_name TEXT NOT NULL,
		stock_name TEXT NOT NULL,
		purchase_price %s NOT NULL,
		shares INTEGER NOT NULL,
		total_amount %s NOT NULL,
		dividend_cycle TEXT NOT NULL,
		created_at %s DEFAULT CURRENT_TIMESTAMP
	)`, t.PrimaryKey, t.Real, t.Real, t.Timestamp)
	_, err := c.ExecContext(ctx, stmt)
	return err
}

func createDividends(ctx context.Context, c *storage.Conn) error {
	t := c.Dialect().Types()
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS dividends (
		id %s,
		stock_id INTEGER NOT NULL REFERENCES stocks(id) ON DELETE CASCADE,
		dividend_date TEXT NOT NULL,
		amount %s NOT NULL,
		created_at %s DEFAULT CURRENT_TIMESTAMP
	)`, t.PrimaryKey, t.Real, t.Timestamp)
	_, err := c.ExecContext(ctx, stmt)
	return err
}

func addStockMarketColumns(ctx context.Context, c *storage.Conn) error {
	d := c.Dialect()
	t := d.Types()
	cols := []struct{ name, def string }{
		{"stock_code", "TEXT DEFAULT ''"},
		{"current_price", t.Real + " DEFAULT 0"},
		{"sell_amount", t.Real + " DEFAULT 0"},
		{"is_sold", t.Bool + " DEFAULT " + d.BoolLiteral(false)},
	}
	for _, col := range cols {
		if _, err := c.AddColumnIfMissing(ctx, "stocks", col.name, col.def); err != nil {
			return err
		}
	}
	return nil
}

// addOwnerColumn adds a nullable user_id. Rows that predate multi-tenancy
// keep NULL until the ownership backfill assigns them.
func addOwnerColumn(table string) func(ctx context.Context, c *storage.Conn) error {
	return func(ctx context.Context, c *storage.Conn) error {
		_, err := c.AddColumnIfMissing(ctx, table, "user_id", "INTEGER REFERENCES users(id) ON DELETE CASCADE")
		return err
	}
}

func createIndexes(ctx context.Context, c *storage.Conn) error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_stocks_user_id ON stocks (user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_dividends_user_id ON dividends (user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_dividends_stock_id ON dividends (stock_id)`,
	}
	for _, s := range stmts {
		if _, err := c.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
