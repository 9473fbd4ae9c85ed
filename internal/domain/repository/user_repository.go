package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
)

// ErrNotFound is returned by repositories when no row matches.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when an insert or update would violate the
// unique email constraint.
var ErrDuplicateEmail = errors.New("email already registered")

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Update(ctx context.Context, u *entity.User) error
}
