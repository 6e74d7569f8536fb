// Package repomanager vends repositories bound to a storage.Conn, which may
// be the pool or a transaction. Services depend on RepositoryManager so that
// a whole operation can use one transactional handle.
package repomanager

import (
	"github.com/dmitrijs2005/divkeeper/internal/server/repositories/dividends"
	"github.com/dmitrijs2005/divkeeper/internal/server/repositories/stocks"
	"github.com/dmitrijs2005/divkeeper/internal/server/repositories/users"
	"github.com/dmitrijs2005/divkeeper/internal/server/storage"
)

type RepositoryManager interface {
	Users(db *storage.Conn) users.Repository
	Stocks(db *storage.Conn) stocks.Repository
	Dividends(db *storage.Conn) dividends.Repository
}

// SQLRepositoryManager returns the SQL implementations, which work on both
// backends.
type SQLRepositoryManager struct{}

func (m *SQLRepositoryManager) Users(db *storage.Conn) users.Repository {
	return users.NewSQLRepository(db)
}

func (m *SQLRepositoryManager) Stocks(db *storage.Conn) stocks.Repository {
	return stocks.NewSQLRepository(db)
}

func (m *SQLRepositoryManager) Dividends(db *storage.Conn) dividends.Repository {
	return dividends.NewSQLRepository(db)
}

func NewSQLRepositoryManager() RepositoryManager {
	return &SQLRepositoryManager{}
}
