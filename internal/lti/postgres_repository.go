package lti

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConsumerRepository implements ConsumerRepository using pgxpool.
type PostgresConsumerRepository struct {
	pool *pgxpool.Pool
}

// NewConsumerRepository creates a ConsumerRepository backed by the given pool.
func NewConsumerRepository(pool *pgxpool.Pool) ConsumerRepository {
	return &PostgresConsumerRepository{pool: pool}
}

// GetByKey retrieves an enabled consumer by its OAuth consumer key.
func (r *PostgresConsumerRepository) GetByKey(ctx context.Context, key string) (*Consumer, error) {
	query := `
		SELECT consumer_key, secret, name, enabled, created_at
		FROM lti_consumers
		WHERE consumer_key = $1 AND enabled`

	var c Consumer
	err := r.pool.QueryRow(ctx, query, key).Scan(&c.Key, &c.Secret, &c.Name, &c.Enabled, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnknownConsumer
		}
		return nil, fmt.Errorf("querying consumer: %w", err)
	}

	return &c, nil
}

// PostgresNonceRepository implements NonceRepository using pgxpool.
type PostgresNonceRepository struct {
	pool *pgxpool.Pool
}

// NewNonceRepository creates a NonceRepository backed by the given pool.
func NewNonceRepository(pool *pgxpool.Pool) NonceRepository {
	return &PostgresNonceRepository{pool: pool}
}

// Consume inserts the nonce record. The primary key on
// (consumer_key, nonce) makes replay detection race-free.
func (r *PostgresNonceRepository) Consume(ctx context.Context, consumerKey, nonce string, seenAt time.Time) error {
	query := `
		INSERT INTO lti_nonces (consumer_key, nonce, seen_at)
		VALUES ($1, $2, $3)`

	_, err := r.pool.Exec(ctx, query, consumerKey, nonce, seenAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrNonceReplayed
		}
		return fmt.Errorf("inserting nonce: %w", err)
	}

	return nil
}

// DeleteOlderThan removes nonce records seen before the cutoff.
func (r *PostgresNonceRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM lti_nonces WHERE seen_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting stale nonces: %w", err)
	}
	return result.RowsAffected(), nil
}
