// Package backfill retrofits ownership onto data written before accounts
// existed. Run is executed on every start after the schema steps; a second
// run against the same data writes nothing.
package backfill

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/divkeeper/internal/common"
	"github.com/dmitrijs2005/divkeeper/internal/logging"
	"github.com/dmitrijs2005/divkeeper/internal/server/auth"
	"github.com/dmitrijs2005/divkeeper/internal/server/models"
	"github.com/dmitrijs2005/divkeeper/internal/server/repositories/users"
	"github.com/dmitrijs2005/divkeeper/internal/server/storage"
)

// Account is a reserved login whose credentials come from configuration.
type Account struct {
	Email    string
	Password string
}

// Accounts names the two reserved logins.
type Accounts struct {
	LegacyOwner Account
	Admin       Account
}

// Report counts what a run changed.
type Report struct {
	LegacyOwnerID       int64
	AdminID             int64
	AccountsCreated     int
	AccountsUpdated     int
	StocksAssigned      int64
	DividendsAssigned   int64
	DividendsReconciled int64
}

// Changed reports whether the run wrote anything.
func (r Report) Changed() bool {
	return r.AccountsCreated+r.AccountsUpdated > 0 ||
		r.StocksAssigned+r.DividendsAssigned+r.DividendsReconciled > 0
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Run performs the backfill in one transaction. The two reserved accounts
// must not share an email.
func Run(ctx context.Context, store *storage.Store, accounts Accounts, log logging.Logger) (Report, error) {
	if NormalizeEmail(accounts.LegacyOwner.Email) == NormalizeEmail(accounts.Admin.Email) {
		return Report{}, fmt.Errorf("ownership backfill: %w: legacy owner and admin share an email", common.ErrValidation)
	}

	var rep Report

	err := store.WithTx(ctx, func(ctx context.Context, c *storage.Conn) error {
		rep = Report{}
		repo := users.NewSQLRepository(c)

		var err error
		if rep.LegacyOwnerID, err = ensureAccount(ctx, repo, accounts.LegacyOwner, false, &rep); err != nil {
			return fmt.Errorf("legacy owner: %w", err)
		}
		if rep.AdminID, err = ensureAccount(ctx, repo, accounts.Admin, true, &rep); err != nil {
			return fmt.Errorf("admin: %w", err)
		}

		if rep.StocksAssigned, err = exec(ctx, c,
			`UPDATE stocks SET user_id = ? WHERE user_id IS NULL`, rep.LegacyOwnerID); err != nil {
			return fmt.Errorf("assign stocks: %w", err)
		}
		if rep.DividendsAssigned, err = exec(ctx, c,
			`UPDATE dividends SET user_id = ? WHERE user_id IS NULL`, rep.LegacyOwnerID); err != nil {
			return fmt.Errorf("assign dividends: %w", err)
		}

		// Dividends follow the owner of their stock. Rows that already match
		// are excluded so they are never rewritten.
		if rep.DividendsReconciled, err = exec(ctx, c, `UPDATE dividends
			SET user_id = (SELECT s.user_id FROM stocks s WHERE s.id = dividends.stock_id)
			WHERE EXISTS (
				SELECT 1 FROM stocks s
				WHERE s.id = dividends.stock_id
				AND s.user_id IS NOT NULL
				AND (dividends.user_id IS NULL OR dividends.user_id <> s.user_id)
			)`); err != nil {
			return fmt.Errorf("reconcile dividends: %w", err)
		}
		return nil
	})
	if err != nil {
		return Report{}, fmt.Errorf("ownership backfill: %w", err)
	}

	log.Info(ctx, "ownership backfill done",
		"legacy_owner_id", rep.LegacyOwnerID,
		"admin_id", rep.AdminID,
		"accounts_created", rep.AccountsCreated,
		"accounts_updated", rep.AccountsUpdated,
		"stocks_assigned", rep.StocksAssigned,
		"dividends_assigned", rep.DividendsAssigned,
		"dividends_reconciled", rep.DividendsReconciled,
	)
	return rep, nil
}

// ensureAccount creates the account or converges an existing one to the
// configured password and flags. It writes only when something differs.
func ensureAccount(ctx context.Context, repo users.Repository, acc Account, admin bool, rep *Report) (int64, error) {
	email := NormalizeEmail(acc.Email)
	if email == "" || acc.Password == "" {
		return 0, fmt.Errorf("%w: reserved account needs email and password", common.ErrValidation)
	}

	u, err := repo.GetByEmail(ctx, email)
	if errors.Is(err, common.ErrorNotFound) {
		hash, err := auth.HashPassword(acc.Password)
		if err != nil {
			return 0, err
		}
		u, err = repo.Create(ctx, &models.User{Email: email, PasswordHash: hash, IsAdmin: admin, IsActive: true})
		if err != nil {
			return 0, err
		}
		rep.AccountsCreated++
		return u.ID, nil
	}
	if err != nil {
		return 0, err
	}

	changed := false
	if !auth.CheckPassword(u.PasswordHash, acc.Password) {
		if u.PasswordHash, err = auth.HashPassword(acc.Password); err != nil {
			return 0, err
		}
		changed = true
	}
	if u.IsAdmin != admin || !u.IsActive {
		u.IsAdmin, u.IsActive = admin, true
		changed = true
	}
	if changed {
		if err := repo.Update(ctx, u); err != nil {
			return 0, err
		}
		rep.AccountsUpdated++
	}
	return u.ID, nil
}

func exec(ctx context.Context, c *storage.Conn, query string, args ...any) (int64, error) {
	res, err := c.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
