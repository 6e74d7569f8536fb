// Package storage is the backend adapter: one execution contract over the
// two supported relational backends (PostgreSQL via pgx, SQLite via
// modernc.org/sqlite).
//
// Statements are written once with '?' placeholders. A Conn rebinds them
// for the active Dialect, normalizes argument values (booleans, decimals,
// timestamps), retrieves generated primary keys the way the backend
// supports, and translates backend constraint failures into
// common.ErrConstraintViolation. Callers above this package never branch on
// the backend kind.
package storage

import (
	"context"
	"fmt"
	"regexp"

	"github.com/dmitrijs2005/divkeeper/internal/dbx"
)

// Kind identifies a backend.
type Kind string

const (
	KindPostgres Kind = "postgres"
	KindSQLite   Kind = "sqlite"
)

// ColumnTypes are the DDL fragments a dialect uses for the portable schema.
type ColumnTypes struct {
	PrimaryKey string
	Integer    string
	Real       string
	Bool       string
	Text       string
	Timestamp  string
}

// Dialect captures everything that differs between the backends.
type Dialect interface {
	Kind() Kind

	// DriverName is the database/sql driver registered for the backend.
	DriverName() string

	// Rebind converts '?' placeholders into the backend's native style.
	Rebind(query string) string

	// BoolArg converts a Go bool into the value the backend stores.
	BoolArg(v bool) any

	// BoolLiteral renders a boolean for use in DDL defaults.
	BoolLiteral(v bool) string

	Types() ColumnTypes

	// InsertReturningID runs an already rebound INSERT and returns the
	// generated id column.
	InsertReturningID(ctx context.Context, db dbx.DBTX, query string, args ...any) (int64, error)

	// Columns enumerates the column names of table; an absent table yields
	// an empty list.
	Columns(ctx context.Context, db dbx.DBTX, table string) ([]string, error)

	TableExists(ctx context.Context, db dbx.DBTX, table string) (bool, error)

	// IsConstraintViolation reports whether err is a unique, foreign key,
	// not-null or check failure raised by the backend.
	IsConstraintViolation(err error) bool
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// checkIdent guards identifiers that have to be spliced into statements
// (PRAGMA and ALTER TABLE do not accept bind parameters).
func checkIdent(name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("invalid identifier %q", name)
	}
	return nil
}
