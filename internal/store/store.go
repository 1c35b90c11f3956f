// Package store persists identity records. Two backends are provided, MongoDB
// and PostgreSQL; both enforce username and email uniqueness with a storage
// level constraint and report violations as ErrDuplicate.
package store

import (
	"context"
	"errors"

	"github.com/AnshRaj112/clipstream-backend/internal/models"
)

var (
	ErrNotFound  = errors.New("user not found")
	ErrDuplicate = errors.New("username or email already exists")
)

// UserStore is the credential store used by the auth and registration services.
// Methods without "WithSecrets" return the public projection.
type UserStore interface {
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	Create(ctx context.Context, u *models.User) (string, error)

	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByIDWithSecrets(ctx context.Context, id string) (*models.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error)

	SetRefreshToken(ctx context.Context, id, token string) error
	ClearRefreshToken(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	UpdateDetails(ctx context.Context, id, fullName, email string) (*models.User, error)
	UpdateAvatar(ctx context.Context, id string, avatar models.MediaAsset) (*models.User, error)
	// UpdateCoverImage sets the cover image, or clears it when cover is nil.
	UpdateCoverImage(ctx context.Context, id string, cover *models.MediaAsset) (*models.User, error)
}

var (
	_ UserStore = (*MongoStore)(nil)
	_ UserStore = (*PostgresStore)(nil)
)
