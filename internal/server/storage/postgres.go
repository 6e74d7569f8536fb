package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/divkeeper/internal/dbx"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type postgresDialect struct{}

// Postgres returns the PostgreSQL dialect.
func Postgres() Dialect { return postgresDialect{} }

func (postgresDialect) Kind() Kind         { return KindPostgres }
func (postgresDialect) DriverName() string { return "pgx" }

func (postgresDialect) Rebind(query string) string { return rebindDollar(query) }

func (postgresDialect) BoolArg(v bool) any { return v }

func (postgresDialect) BoolLiteral(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

func (postgresDialect) Types() ColumnTypes {
	return ColumnTypes{
		PrimaryKey: "SERIAL PRIMARY KEY",
		Integer:    "INTEGER",
		Real:       "DOUBLE PRECISION",
		Bool:       "BOOLEAN",
		Text:       "TEXT",
		Timestamp:  "TIMESTAMP",
	}
}

// InsertReturningID appends a RETURNING clause so the key comes back with
// the insert itself.
func (postgresDialect) InsertReturningID(ctx context.Context, db dbx.DBTX, query string, args ...any) (int64, error) {
	query = strings.TrimRight(strings.TrimSpace(query), ";") + " RETURNING id"

	var id int64
	if err := db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (postgresDialect) Columns(ctx context.Context, db dbx.DBTX, table string) ([]string, error) {
	query := `SELECT column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`

	rows, err := db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cols, nil
}

func (postgresDialect) TableExists(ctx context.Context, db dbx.DBTX, table string) (bool, error) {
	query := `SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = $1`

	var n int
	if err := db.QueryRowContext(ctx, query, table).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", table, err)
	}
	return n > 0, nil
}

// SQLSTATE class 23 is "integrity constraint violation".
func (postgresDialect) IsConstraintViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23")
}
