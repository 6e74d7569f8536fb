package storage

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/divkeeper/internal/common"
	"github.com/dmitrijs2005/divkeeper/internal/dbx"
	"github.com/shopspring/decimal"
)

// Conn runs portable statements against a *sql.DB or *sql.Tx. It satisfies
// dbx.DBTX, so anything written against that interface works on it too.
type Conn struct {
	db      dbx.DBTX
	dialect Dialect
}

// NewConn binds db to dialect.
func NewConn(db dbx.DBTX, dialect Dialect) *Conn {
	return &Conn{db: db, dialect: dialect}
}

func (c *Conn) Dialect() Dialect { return c.dialect }

func (c *Conn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := c.db.ExecContext(ctx, c.dialect.Rebind(query), c.normalize(args)...)
	if err != nil {
		return nil, c.translate(err)
	}
	return res, nil
}

func (c *Conn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := c.db.QueryContext(ctx, c.dialect.Rebind(query), c.normalize(args)...)
	if err != nil {
		return nil, c.translate(err)
	}
	return rows, nil
}

func (c *Conn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return c.db.QueryRowContext(ctx, c.dialect.Rebind(query), c.normalize(args)...)
}

// InsertReturningID executes an INSERT (without any RETURNING clause) and
// returns the generated primary key.
func (c *Conn) InsertReturningID(ctx context.Context, query string, args ...any) (int64, error) {
	id, err := c.dialect.InsertReturningID(ctx, c.db, c.dialect.Rebind(query), c.normalize(args)...)
	if err != nil {
		return 0, c.translate(err)
	}
	return id, nil
}

func (c *Conn) Columns(ctx context.Context, table string) ([]string, error) {
	return c.dialect.Columns(ctx, c.db, table)
}

func (c *Conn) TableExists(ctx context.Context, table string) (bool, error) {
	return c.dialect.TableExists(ctx, c.db, table)
}

func (c *Conn) ColumnExists(ctx context.Context, table, column string) (bool, error) {
	cols, err := c.Columns(ctx, table)
	if err != nil {
		return false, err
	}
	return slices.Contains(cols, column), nil
}

// AddColumnIfMissing checks for the column first and only then issues
// ALTER TABLE ... ADD COLUMN. It reports whether the column was added.
func (c *Conn) AddColumnIfMissing(ctx context.Context, table, column, definition string) (bool, error) {
	if err := checkIdent(table); err != nil {
		return false, err
	}
	if err := checkIdent(column); err != nil {
		return false, err
	}

	exists, err := c.ColumnExists(ctx, table, column)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition)
	if _, err := c.db.ExecContext(ctx, stmt); err != nil {
		return false, fmt.Errorf("failed to add column %s.%s: %w", table, column, err)
	}
	return true, nil
}

func (c *Conn) normalize(args []any) []any {
	if len(args) == 0 {
		return args
	}
	out := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case bool:
			out[i] = c.dialect.BoolArg(v)
		case decimal.Decimal:
			out[i] = v.InexactFloat64()
		case time.Time:
			out[i] = v.UTC()
		default:
			out[i] = a
		}
	}
	return out
}

func (c *Conn) translate(err error) error {
	if c.dialect.IsConstraintViolation(err) {
		return fmt.Errorf("%w: %w", common.ErrConstraintViolation, err)
	}
	return err
}
