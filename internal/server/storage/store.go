package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/dmitrijs2005/divkeeper/internal/dbx"
)

// Store owns the connection pool of the selected backend.
type Store struct {
	db      *sql.DB
	dialect Dialect
	ready   atomic.Bool
}

// Descriptor resolves a connection descriptor. A postgres:// or
// postgresql:// URL selects PostgreSQL; anything else, including an empty
// descriptor, selects the SQLite file at sqlitePath.
func Descriptor(databaseURL, sqlitePath string) (Dialect, string) {
	u := strings.TrimSpace(databaseURL)
	switch {
	case strings.HasPrefix(u, "postgres://"):
		return Postgres(), "postgresql://" + strings.TrimPrefix(u, "postgres://")
	case strings.HasPrefix(u, "postgresql://"):
		return Postgres(), u
	default:
		return SQLite(), SQLiteDSN(sqlitePath)
	}
}

// SQLiteDSN builds a modernc DSN with foreign keys enforced, so ON DELETE
// CASCADE behaves as on PostgreSQL.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Open connects to the backend selected by the descriptor and pings it.
func Open(ctx context.Context, databaseURL, sqlitePath string) (*Store, error) {
	dialect, dsn := Descriptor(databaseURL, sqlitePath)

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Kind(), err)
	}
	if dialect.Kind() == KindSQLite {
		// one writer at a time; transactions never share the pool
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect.Kind(), err)
	}
	return New(db, dialect), nil
}

// New wraps an existing pool.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

func (s *Store) DB() *sql.DB      { return s.db }
func (s *Store) Dialect() Dialect { return s.dialect }
func (s *Store) Conn() *Conn      { return NewConn(s.db, s.dialect) }
func (s *Store) Close() error     { return s.db.Close() }

// Ready is the schema-ready signal: true once migrations and the ownership
// backfill have completed.
func (s *Store) Ready() bool { return s.ready.Load() }
func (s *Store) MarkReady()  { s.ready.Store(true) }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTx runs fn inside one transaction. fn must only use the Conn it is
// given; the SQLite pool has a single connection.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, c *Conn) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, NewConn(tx, s.dialect))
	})
}
