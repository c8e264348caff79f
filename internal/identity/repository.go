package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrUserNotFound is returned when a user record is not found.
var ErrUserNotFound = errors.New("user not found")

// ErrDuplicateUsername is returned when a create collides on username.
var ErrDuplicateUsername = errors.New("username already taken")

// ErrDuplicateEmail is returned when a create collides on email. This is
// the one creation failure that is surfaced to the launching user.
var ErrDuplicateEmail = errors.New("email already used by another account")

// Repository provides operations on the users table.
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Update(ctx context.Context, user *User) error
}
