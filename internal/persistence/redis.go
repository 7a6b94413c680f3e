package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/config"
)

// Redis holds the client shared by the session cache and the revocation denylist.
type Redis struct {
	Client *redis.Client
}

// NewRedis builds the client and probes it once. The service starts even when the
// probe fails: cache operations then report CACHE_UNAVAILABLE per request.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	opts := &redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	timeout := cfg.OperationTimeout()
	if timeout > 0 {
		opts.DialTimeout = timeout
		opts.ReadTimeout = timeout
		opts.WriteTimeout = timeout
	}
	client := redis.NewClient(opts)

	probeCtx, cancel := withOptionalTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(probeCtx).Err(); err != nil {
		logger.Warn("redis unreachable at startup", zap.String("addr", opts.Addr), zap.Error(err))
	} else {
		logger.Info("redis ready", zap.String("addr", opts.Addr), zap.Int("db", cfg.DB))
	}

	return &Redis{Client: client}
}

// Ping reports whether the cache answers.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

// Close releases the client's connections.
func (r *Redis) Close() {
	if r == nil || r.Client == nil {
		return
	}
	_ = r.Client.Close()
}
