// Package services contains server-side business logic. This file implements
// UserService, which handles login, session tokens and account
// administration.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/divkeeper/internal/common"
	"github.com/dmitrijs2005/divkeeper/internal/logging"
	"github.com/dmitrijs2005/divkeeper/internal/server/auth"
	"github.com/dmitrijs2005/divkeeper/internal/server/backfill"
	"github.com/dmitrijs2005/divkeeper/internal/server/config"
	"github.com/dmitrijs2005/divkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/divkeeper/internal/server/models"
	"github.com/dmitrijs2005/divkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/divkeeper/internal/server/storage"
)

// NewUser is the input of CreateUser.
type NewUser struct {
	Email    string
	Password string
	IsAdmin  bool
}

// UserUpdate is a partial edit; nil fields are left unchanged.
type UserUpdate struct {
	Password *string
	IsAdmin  *bool
	IsActive *bool
}

// UserService provides authentication and administration:
// - Login: verify credentials and mint a session token
// - Authenticate: resolve a session token to an active user
// - ListUsers/CreateUser/UpdateUser/DeleteUser: admin-only account management
type UserService struct {
	store        *storage.Store
	repomanager  repomanager.RepositoryManager
	jwtSecret    []byte
	sessionTTL   time.Duration
	reservedUser string
	legacyOwner  string
	metrics      *metrics.Metrics
	log          logging.Logger
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(store *storage.Store, m repomanager.RepositoryManager, cfg *config.Config, met *metrics.Metrics, log logging.Logger) *UserService {
	return &UserService{
		store:        store,
		repomanager:  m,
		jwtSecret:    []byte(cfg.SecretKey),
		sessionTTL:   cfg.SessionTTL,
		reservedUser: backfill.NormalizeEmail(cfg.AdminEmail),
		legacyOwner:  backfill.NormalizeEmail(cfg.LegacyOwnerEmail),
		metrics:      met,
		log:          log,
	}
}

// Login verifies email and password and returns a session token together
// with the user. Unknown emails, wrong passwords and inactive accounts all
// yield ErrorUnauthorized.
func (s *UserService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	repo := s.repomanager.Users(s.store.Conn())

	user, err := repo.GetByEmail(ctx, backfill.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.loginOutcome("unknown")
			return "", nil, common.ErrorUnauthorized
		}
		return "", nil, fmt.Errorf("error searching user: %w", err)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		s.loginOutcome("bad_password")
		return "", nil, common.ErrorUnauthorized
	}
	if !user.IsActive {
		s.loginOutcome("inactive")
		return "", nil, common.ErrorUnauthorized
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.sessionTTL)
	if err != nil {
		return "", nil, common.ErrorInternal
	}
	s.loginOutcome("ok")
	s.log.Info(ctx, "user logged in", "user_id", user.ID)
	return token, user, nil
}

// Authenticate resolves a session token. Tokens of deleted or deactivated
// users are rejected.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	id, err := auth.GetUserIDFromToken(token, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	user, err := s.repomanager.Users(s.store.Conn()).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, common.ErrorUnauthorized
	}
	return user, nil
}

// SessionTTL is the lifetime of tokens issued by Login.
func (s *UserService) SessionTTL() time.Duration { return s.sessionTTL }

func (s *UserService) Me(ctx context.Context, userID int64) (*models.User, error) {
	return s.repomanager.Users(s.store.Conn()).GetByID(ctx, userID)
}

func (s *UserService) ListUsers(ctx context.Context, actorID int64) ([]models.User, error) {
	if _, err := s.requireAdmin(ctx, s.store.Conn(), actorID); err != nil {
		return nil, err
	}
	return s.repomanager.Users(s.store.Conn()).List(ctx)
}

// CreateUser adds an active account. A taken email is reported as
// common.ErrConstraintViolation.
func (s *UserService) CreateUser(ctx context.Context, actorID int64, in NewUser) (*models.User, error) {
	email := backfill.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", common.ErrValidation)
	}

	var created *models.User
	err := s.store.WithTx(ctx, func(ctx context.Context, c *storage.Conn) error {
		if _, err := s.requireAdmin(ctx, c, actorID); err != nil {
			return err
		}
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return err
		}
		created, err = s.repomanager.Users(c).Create(ctx, &models.User{
			Email:        email,
			PasswordHash: hash,
			IsAdmin:      in.IsAdmin,
			IsActive:     true,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "user created", "actor_id", actorID, "user_id", created.ID)
	return created, nil
}

// UpdateUser applies upd to the user id. The reserved accounts can change
// their password only: the administrator stays an active admin and the
// legacy owner stays an active non-admin.
func (s *UserService) UpdateUser(ctx context.Context, actorID, id int64, upd UserUpdate) (*models.User, error) {
	if upd.Password != nil && *upd.Password == "" {
		return nil, fmt.Errorf("%w: empty password", common.ErrValidation)
	}

	var updated *models.User
	err := s.store.WithTx(ctx, func(ctx context.Context, c *storage.Conn) error {
		if _, err := s.requireAdmin(ctx, c, actorID); err != nil {
			return err
		}
		repo := s.repomanager.Users(c)
		user, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if user.Email == s.reservedUser &&
			((upd.IsAdmin != nil && !*upd.IsAdmin) || (upd.IsActive != nil && !*upd.IsActive)) {
			return fmt.Errorf("%w: reserved administrator", common.ErrForbidden)
		}
		if user.Email == s.legacyOwner &&
			((upd.IsAdmin != nil && *upd.IsAdmin) || (upd.IsActive != nil && !*upd.IsActive)) {
			return fmt.Errorf("%w: legacy owner", common.ErrForbidden)
		}
		if id == actorID && upd.IsAdmin != nil && !*upd.IsAdmin {
			return fmt.Errorf("%w: cannot demote yourself", common.ErrForbidden)
		}

		if upd.Password != nil {
			if user.PasswordHash, err = auth.HashPassword(*upd.Password); err != nil {
				return err
			}
		}
		if upd.IsAdmin != nil {
			user.IsAdmin = *upd.IsAdmin
		}
		if upd.IsActive != nil {
			user.IsActive = *upd.IsActive
		}
		if err := repo.Update(ctx, user); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "user updated", "actor_id", actorID, "user_id", id)
	return updated, nil
}

// DeleteUser removes the user id together with its stocks and dividends.
// The reserved administrator and the legacy owner are never removed.
func (s *UserService) DeleteUser(ctx context.Context, actorID, id int64) error {
	if id == actorID {
		return fmt.Errorf("%w: cannot delete yourself", common.ErrForbidden)
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, c *storage.Conn) error {
		if _, err := s.requireAdmin(ctx, c, actorID); err != nil {
			return err
		}
		repo := s.repomanager.Users(c)
		user, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if user.Email == s.reservedUser || user.Email == s.legacyOwner {
			return fmt.Errorf("%w: reserved account", common.ErrForbidden)
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.Info(ctx, "user deleted", "actor_id", actorID, "user_id", id)
	return nil
}

// RequireAdmin returns ErrForbidden unless actorID is an active admin.
func (s *UserService) RequireAdmin(ctx context.Context, actorID int64) error {
	_, err := s.requireAdmin(ctx, s.store.Conn(), actorID)
	return err
}

// --- helpers below ---

func (s *UserService) requireAdmin(ctx context.Context, c *storage.Conn, actorID int64) (*models.User, error) {
	actor, err := s.repomanager.Users(c).GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}
	if !actor.IsAdmin || !actor.IsActive {
		return nil, common.ErrForbidden
	}
	return actor, nil
}

func (s *UserService) loginOutcome(outcome string) {
	s.metrics.LoginAttempts.WithLabelValues(outcome).Inc()
}
