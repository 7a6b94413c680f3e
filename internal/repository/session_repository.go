package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// SessionRepository is the key-value capability used for session tokens.
// Any error other than ErrCacheMiss means the cache could not answer.
type SessionRepository interface {
	Exists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// SetIfAbsent writes only when key does not exist and reports whether it did.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}

type sessionRepository struct {
	client  redis.UniversalClient
	timeout time.Duration
}

// NewSessionRepository returns a Redis-backed implementation.
func NewSessionRepository(client redis.UniversalClient, timeout time.Duration) SessionRepository {
	return &sessionRepository{client: client, timeout: timeout}
}

func (r *sessionRepository) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

func (r *sessionRepository) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

func (r *sessionRepository) Set(ctx context.Context, key, value string) error {
	return r.SetWithExpiry(ctx, key, value, 0)
}

func (r *sessionRepository) SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *sessionRepository) Delete(ctx context.Context, key string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *sessionRepository) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	ok, err := r.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}
