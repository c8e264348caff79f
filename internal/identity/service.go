package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// Service resolves launch identities to durable user accounts.
type Service struct {
	repo       Repository
	bcryptCost int
}

// NewService creates a new identity Service.
func NewService(repo Repository, bcryptCost int) *Service {
	return &Service{repo: repo, bcryptCost: bcryptCost}
}

// ResolveOrCreate finds the account for the launch username, creating it on
// first contact. Resolution is idempotent: an existing account is returned
// untouched, names and email are written only at creation time.
//
// A concurrent launch racing the create loses the unique constraint on
// username and falls back to reading the winner's row. A collision on email
// means the address belongs to a different username and is surfaced as
// ErrDuplicateEmail.
func (s *Service) ResolveOrCreate(ctx context.Context, attrs Attributes) (*User, error) {
	user, err := s.repo.GetByUsername(ctx, attrs.Username)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("looking up user %q: %w", attrs.Username, err)
	}

	password, err := GeneratePassword()
	if err != nil {
		return nil, fmt.Errorf("generating password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user = &User{
		Username:     attrs.Username,
		Email:        attrs.Email,
		PasswordHash: string(hash),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			// Someone else created it first; use their row.
			return s.repo.GetByUsername(ctx, attrs.Username)
		}
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("creating user %q: %w", attrs.Username, err)
	}

	user.FirstName = attrs.FirstName
	user.LastName = attrs.LastName
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("setting names on new user %q: %w", attrs.Username, err)
	}

	slog.Info("provisioned user account", "username", user.Username, "id", user.ID)

	return user, nil
}
