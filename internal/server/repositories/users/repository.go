package users

import (
	"context"

	"github.com/dmitrijs2005/divkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	// Update writes the credential hash and the admin/active flags.
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id int64) error
}
