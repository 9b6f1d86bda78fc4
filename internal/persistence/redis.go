package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/session-service/internal/config"
	"github.com/spec-kit/session-service/internal/repository"
)

// Redis wraps the go-redis client backing the revocation cache.
type Redis struct {
	Client *redis.Client
	prefix string
}

// NewRedis connects to Redis using the provided configuration. An unreachable
// server is logged, not fatal: refresh falls back to Postgres on cache errors.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr))
	}

	return &Redis{Client: client, prefix: cfg.Prefix}
}

// SessionCache returns the revocation denylist stored in this Redis.
func (r *Redis) SessionCache() repository.SessionCache {
	return repository.NewRedisSessionCache(r.Client, r.prefix)
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
