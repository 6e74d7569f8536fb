// Package migrations brings the live schema forward. Steps are Go functions
// registered with a goose Provider, which records applied versions in
// goose_db_version; each step is additionally idempotent so that databases
// created before the version table existed are upgraded without data loss.
package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/divkeeper/internal/common"
	"github.com/dmitrijs2005/divkeeper/internal/logging"
	"github.com/dmitrijs2005/divkeeper/internal/server/storage"
	"github.com/pressly/goose/v3"
)

// providerUp is a seam for testing goose.Provider.Up.
var providerUp = func(ctx context.Context, p *goose.Provider) ([]*goose.MigrationResult, error) {
	return p.Up(ctx)
}

func gooseDialect(k storage.Kind) goose.Dialect {
	if k == storage.KindPostgres {
		return goose.DialectPostgres
	}
	return goose.DialectSQLite3
}

func gooseMigrations(d storage.Dialect, steps []Step) []*goose.Migration {
	out := make([]*goose.Migration, 0, len(steps))
	for _, s := range steps {
		up := s.Up
		out = append(out, goose.NewGoMigration(s.Version, &goose.GoFunc{
			RunTx: func(ctx context.Context, tx *sql.Tx) error {
				return up(ctx, storage.NewConn(tx, d))
			},
			Mode: goose.TransactionEnabled,
		}, nil))
	}
	return out
}

// Run applies every pending step and returns how many ran. Any failure is
// wrapped in common.ErrSchema; callers must not serve traffic after it.
func Run(ctx context.Context, store *storage.Store, log logging.Logger) (int, error) {
	d := store.Dialect()

	p, err := goose.NewProvider(gooseDialect(d.Kind()), store.DB(), nil,
		goose.WithGoMigrations(gooseMigrations(d, Steps())...),
		goose.WithDisableGlobalRegistry(true),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: build provider: %w", common.ErrSchema, err)
	}

	results, err := providerUp(ctx, p)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", common.ErrSchema, err)
	}

	for _, r := range results {
		log.Info(ctx, "migration applied", "version", r.Source.Version, "duration", r.Duration.String())
	}
	log.Info(ctx, "schema up to date", "applied", len(results))
	return len(results), nil
}
