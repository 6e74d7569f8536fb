package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/divkeeper/internal/common"
	"github.com/dmitrijs2005/divkeeper/internal/dbx"
	"github.com/dmitrijs2005/divkeeper/internal/server/models"
	"github.com/dmitrijs2005/divkeeper/internal/server/storage"
	"github.com/dmitrijs2005/divkeeper/internal/timex"
)

// SQLRepository works on either backend through storage.Conn.
type SQLRepository struct {
	db *storage.Conn
}

func NewSQLRepository(db *storage.Conn) *SQLRepository {
	return &SQLRepository{db: db}
}

const selectUser = `SELECT id, email, password_hash, is_admin, is_active, created_at FROM users`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u  models.User
		ts timex.Timestamp
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.IsActive, &ts); err != nil {
		return nil, err
	}
	u.CreatedAt = ts.Time
	return &u, nil
}

func (r *SQLRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `INSERT INTO users (email, password_hash, is_admin, is_active) VALUES (?, ?, ?, ?)`

	id, err := r.db.InsertReturningID(ctx, query, user.Email, user.PasswordHash, user.IsAdmin, user.IsActive)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.ID = id
	return user, nil
}

func (r *SQLRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, selectUser+` WHERE email = ?`, email)
}

func (r *SQLRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, selectUser+` WHERE id = ?`, id)
}

func (r *SQLRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *SQLRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, selectUser+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) Update(ctx context.Context, user *models.User) error {
	query := `UPDATE users SET password_hash = ?, is_admin = ?, is_active = ? WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query, user.PasswordHash, user.IsAdmin, user.IsActive, user.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

// Delete removes the user; stocks and dividends go with it via ON DELETE
// CASCADE. They are deleted explicitly as well for databases whose owner
// columns were added without enforced foreign keys.
func (r *SQLRepository) Delete(ctx context.Context, id int64) error {
	for _, q := range []string{
		`DELETE FROM dividends WHERE user_id = ?`,
		`DELETE FROM stocks WHERE user_id = ?`,
	} {
		if _, err := r.db.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExpectOneRow(res)
}
