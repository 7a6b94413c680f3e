package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const prefixRevoked = "revoked:"

// RevocationRepository stores revoked token ids until the token would have expired anyway.
type RevocationRepository interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type revocationRepository struct {
	client  redis.UniversalClient
	timeout time.Duration
}

// NewRevocationRepository constructs repository.
func NewRevocationRepository(client redis.UniversalClient, timeout time.Duration) RevocationRepository {
	return &revocationRepository{client: client, timeout: timeout}
}

func (r *revocationRepository) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.client.Set(ctx, prefixRevoked+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis revoke: %w", err)
	}
	return nil
}

func (r *revocationRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	n, err := r.client.Exists(ctx, prefixRevoked+jti).Result()
	if err != nil {
		return false, fmt.Errorf("redis is revoked: %w", err)
	}
	return n > 0, nil
}
