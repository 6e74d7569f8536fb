// Package snapshot reads and writes the portable container: a standalone
// SQLite file holding a stocks table and a dividends table with densely
// numbered ids and no ownership columns.
//
// Export renumbers rows 1..N and rewrites each dividend's stock_id to the
// new numbering. Import replaces the importing user's rows with the
// container's content, assigning fresh live ids and relinking dividends;
// dividends whose stock is absent from the container are skipped. Import
// does not open a transaction itself; callers wanting an all-or-nothing
// replace pass a transactional Conn.
package snapshot

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/divkeeper/internal/common"
	"github.com/dmitrijs2005/divkeeper/internal/server/storage"
)

// MaxContainerSize bounds uploaded containers.
const MaxContainerSize = 32 << 20

var sqliteHeader = []byte("SQLite format 3\x00")

const containerStocksDDL = `CREATE TABLE IF NOT EXISTS stocks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	account_name TEXT NOT NULL,
	stock_name TEXT NOT NULL,
	stock_code TEXT,
	purchase_price REAL NOT NULL,
	shares INTEGER NOT NULL,
	total_amount REAL NOT NULL,
	dividend_cycle TEXT NOT NULL,
	current_price REAL DEFAULT 0,
	sell_amount REAL DEFAULT 0,
	is_sold INTEGER DEFAULT 0,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

const containerDividendsDDL = `CREATE TABLE IF NOT EXISTS dividends (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	stock_id INTEGER NOT NULL,
	dividend_date TEXT NOT NULL,
	amount REAL NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (stock_id) REFERENCES stocks(id) ON DELETE CASCADE
)`

// column is a container column and the expression used when an older
// container lacks it.
type column struct {
	name     string
	fallback string
}

// Required columns carry no fallback.
var (
	stockColumns = []column{
		{name: "id"},
		{name: "account_name"},
		{name: "stock_name"},
		{name: "stock_code", fallback: "''"},
		{name: "purchase_price"},
		{name: "shares"},
		{name: "total_amount"},
		{name: "dividend_cycle"},
		{name: "current_price", fallback: "0"},
		{name: "sell_amount", fallback: "0"},
		{name: "is_sold", fallback: "0"},
		{name: "created_at", fallback: "NULL"},
	}
	dividendColumns = []column{
		{name: "id"},
		{name: "stock_id"},
		{name: "dividend_date"},
		{name: "amount"},
		{name: "created_at", fallback: "NULL"},
	}
)

// Result counts the rows a call moved.
type Result struct {
	Stocks    int
	Dividends int
	// Skipped counts dividends left out because their stock was missing
	// or not referenced at all.
	Skipped int
}

// Scope selects whose rows an export reads.
type Scope struct {
	userID int64
	all    bool
}

// ForUser limits an export to one user's rows.
func ForUser(userID int64) Scope { return Scope{userID: userID} }

// Everything exports every row regardless of owner.
func Everything() Scope { return Scope{all: true} }

func (s Scope) where() (string, []any) {
	if s.all {
		return "", nil
	}
	return " WHERE user_id = ?", []any{s.userID}
}

func (s Scope) String() string {
	if s.all {
		return "all"
	}
	return fmt.Sprintf("user:%d", s.userID)
}

// checkContainer rejects payloads that cannot be a SQLite file.
func checkContainer(data []byte) error {
	if len(data) > MaxContainerSize {
		return fmt.Errorf("%w: container exceeds %d bytes", common.ErrContainerFormat, MaxContainerSize)
	}
	if !bytes.HasPrefix(data, sqliteHeader) {
		return fmt.Errorf("%w: not a SQLite file", common.ErrContainerFormat)
	}
	return nil
}

func openContainer(ctx context.Context, path string, readOnly bool) (*sql.DB, error) {
	dsn := storage.SQLiteDSN(path)
	if readOnly {
		dsn = "file:" + path + "?mode=ro"
	}

	db, err := sql.Open(storage.SQLite().DriverName(), dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// selectList builds the column list for table, substituting fallbacks for
// optional columns the container does not have. A missing required column
// is a format error.
func selectList(ctx context.Context, c *storage.Conn, table string, cols []column) (string, error) {
	present, err := c.Columns(ctx, table)
	if err != nil {
		return "", fmt.Errorf("%w: read %s columns: %w", common.ErrContainerFormat, table, err)
	}
	has := make(map[string]bool, len(present))
	for _, p := range present {
		has[p] = true
	}

	var buf bytes.Buffer
	for i, col := range cols {
		if i > 0 {
			buf.WriteString(", ")
		}
		switch {
		case has[col.name] && col.fallback != "" && col.fallback != "NULL":
			fmt.Fprintf(&buf, "COALESCE(%s, %s)", col.name, col.fallback)
		case has[col.name]:
			buf.WriteString(col.name)
		case col.fallback != "":
			buf.WriteString(col.fallback)
		default:
			return "", fmt.Errorf("%w: %s.%s missing", common.ErrContainerFormat, table, col.name)
		}
	}
	return buf.String(), nil
}
