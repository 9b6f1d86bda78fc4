package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionCache is a revocation denylist keyed by refresh credential hash.
// Entries expire together with the credential they shadow.
type SessionCache interface {
	MarkRevoked(ctx context.Context, hash string, ttl time.Duration) error
	IsRevoked(ctx context.Context, hash string) (bool, error)
}

type redisSessionCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisSessionCache wraps a go-redis client. An empty prefix defaults to "session:revoked:".
func NewRedisSessionCache(rdb *redis.Client, prefix string) SessionCache {
	if prefix == "" {
		prefix = "session:revoked:"
	}
	return &redisSessionCache{rdb: rdb, prefix: prefix}
}

func (c *redisSessionCache) key(hash string) string { return c.prefix + hash }

func (c *redisSessionCache) MarkRevoked(ctx context.Context, hash string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, c.key(hash), "1", ttl).Err()
}

func (c *redisSessionCache) IsRevoked(ctx context.Context, hash string) (bool, error) {
	err := c.rdb.Get(ctx, c.key(hash)).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, err
	}
}
