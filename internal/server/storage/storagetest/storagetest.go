// Package storagetest opens migrated SQLite stores for tests.
package storagetest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/divkeeper/internal/logging"
	"github.com/dmitrijs2005/divkeeper/internal/server/migrations"
	"github.com/dmitrijs2005/divkeeper/internal/server/storage"
	"github.com/stretchr/testify/require"
)

// New returns a store backed by a fresh SQLite file in t.TempDir() with
// every schema step applied. It is closed on cleanup.
func New(t *testing.T) *storage.Store {
	t.Helper()

	s, err := storage.Open(context.Background(), "", filepath.Join(t.TempDir(), "stocks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = migrations.Run(context.Background(), s, logging.Nop())
	require.NoError(t, err)
	return s
}

// Postgres returns a Conn with the PostgreSQL dialect over sqlmock, using
// regexp query matching.
func Postgres(t *testing.T) (*storage.Conn, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return storage.NewConn(db, storage.Postgres()), mock, db
}

// CreateUser inserts a plain active user and returns its id.
func CreateUser(t *testing.T, c *storage.Conn, email string) int64 {
	t.Helper()

	id, err := c.InsertReturningID(context.Background(),
		`INSERT INTO users (email, password_hash, is_admin, is_active) VALUES (?, ?, ?, ?)`,
		email, "x", false, true)
	require.NoError(t, err)
	return id
}
