package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/divkeeper/internal/dbx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type sqliteDialect struct{}

// SQLite returns the SQLite dialect.
func SQLite() Dialect { return sqliteDialect{} }

func (sqliteDialect) Kind() Kind         { return KindSQLite }
func (sqliteDialect) DriverName() string { return "sqlite" }

func (sqliteDialect) Rebind(query string) string { return query }

func (sqliteDialect) BoolArg(v bool) any {
	if v {
		return 1
	}
	return 0
}

func (sqliteDialect) BoolLiteral(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func (sqliteDialect) Types() ColumnTypes {
	return ColumnTypes{
		PrimaryKey: "INTEGER PRIMARY KEY AUTOINCREMENT",
		Integer:    "INTEGER",
		Real:       "REAL",
		Bool:       "INTEGER",
		Text:       "TEXT",
		Timestamp:  "TIMESTAMP",
	}
}

// InsertReturningID runs the insert and asks the driver for the last rowid.
func (sqliteDialect) InsertReturningID(ctx context.Context, db dbx.DBTX, query string, args ...any) (int64, error) {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Columns reads PRAGMA table_info, which has to be enumerated since SQLite
// has no conditional ADD COLUMN.
func (sqliteDialect) Columns(ctx context.Context, db dbx.DBTX, table string) ([]string, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to list columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cols, nil
}

func (sqliteDialect) TableExists(ctx context.Context, db dbx.DBTX, table string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", table, err)
	}
	return n > 0, nil
}

// Extended result codes keep the primary code in the low byte.
func (sqliteDialect) IsConstraintViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}
