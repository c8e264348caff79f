package lti

import (
	"context"
	"errors"
	"time"
)

// ErrUnknownConsumer is returned when no enabled consumer matches the key.
var ErrUnknownConsumer = errors.New("unknown or disabled consumer key")

// ErrNonceReplayed is returned when a launch nonce has been seen before.
var ErrNonceReplayed = errors.New("oauth nonce already used")

// Consumer is a registered LMS allowed to launch into this service.
type Consumer struct {
	Key       string
	Secret    string
	Name      string
	Enabled   bool
	CreatedAt time.Time
}

// ConsumerRepository provides lookup of registered LMS consumers.
type ConsumerRepository interface {
	GetByKey(ctx context.Context, key string) (*Consumer, error)
}

// NonceRepository records launch nonces so each one is accepted once.
type NonceRepository interface {
	// Consume records the nonce for the consumer. A second call with the
	// same pair returns ErrNonceReplayed.
	Consume(ctx context.Context, consumerKey, nonce string, seenAt time.Time) error
	// DeleteOlderThan removes nonces outside the timestamp window.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
