package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// Create inserts a new user record. Unique violations are mapped to
// ErrDuplicateUsername or ErrDuplicateEmail depending on the constraint hit.
func (r *PostgresRepository) Create(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (username, email, first_name, last_name, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, u.Username, u.Email, u.FirstName, u.LastName, u.PasswordHash).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "users_email_key" {
				return ErrDuplicateEmail
			}
			return ErrDuplicateUsername
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

// GetByID retrieves a single user by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `
		SELECT id, username, email, first_name, last_name, password_hash, created_at, updated_at
		FROM users
		WHERE id = $1`

	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// GetByUsername retrieves a single user by its unique username.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	query := `
		SELECT id, username, email, first_name, last_name, password_hash, created_at, updated_at
		FROM users
		WHERE username = $1`

	return r.scanOne(r.pool.QueryRow(ctx, query, username))
}

// Update persists mutable profile fields of an existing user.
func (r *PostgresRepository) Update(ctx context.Context, u *User) error {
	query := `
		UPDATE users
		SET email = $2, first_name = $3, last_name = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query, u.ID, u.Email, u.FirstName, u.LastName).Scan(&u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("updating user: %w", err)
	}

	return nil
}

func (r *PostgresRepository) scanOne(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
		&u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &u, nil
}
