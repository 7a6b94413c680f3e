package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func TestSessionRepository_SetGetDelete(t *testing.T) {
	_, client := newTestRedis(t)
	repo := NewSessionRepository(client, time.Second)
	ctx := context.Background()

	_, err := repo.Get(ctx, "alice@x.com")
	require.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "alice@x.com", "tok"))
	exists, err := repo.Exists(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.True(t, exists)

	val, err := repo.Get(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, "tok", val)

	require.NoError(t, repo.Delete(ctx, "alice@x.com"))
	exists, err = repo.Exists(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSessionRepository_SetWithExpiry(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewSessionRepository(client, time.Second)
	ctx := context.Background()

	require.NoError(t, repo.SetWithExpiry(ctx, "alice@x.com", "tok", time.Hour))
	assert.Equal(t, time.Hour, mr.TTL("alice@x.com"))

	mr.FastForward(time.Hour + time.Second)
	_, err := repo.Get(ctx, "alice@x.com")
	require.ErrorIs(t, err, ErrCacheMiss)
}

func TestSessionRepository_SetIfAbsent(t *testing.T) {
	_, client := newTestRedis(t)
	repo := NewSessionRepository(client, time.Second)
	ctx := context.Background()

	ok, err := repo.SetIfAbsent(ctx, "alice@x.com", "first", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.SetIfAbsent(ctx, "alice@x.com", "second", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	val, err := repo.Get(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, "first", val)
}

func TestSessionRepository_ConnectivityErrorIsNotMiss(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewSessionRepository(client, time.Second)
	mr.Close()

	_, err := repo.Get(context.Background(), "alice@x.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)

	_, err = repo.Exists(context.Background(), "alice@x.com")
	require.Error(t, err)
}

func TestRevocationRepository(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewRevocationRepository(client, time.Second)
	ctx := context.Background()

	revoked, err := repo.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, repo.Revoke(ctx, "jti-1", time.Minute))
	revoked, err = repo.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	require.NoError(t, repo.Revoke(ctx, "jti-2", 0))
	assert.False(t, mr.Exists(prefixRevoked+"jti-2"))

	mr.FastForward(2 * time.Minute)
	revoked, err = repo.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}
