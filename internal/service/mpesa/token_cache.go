// internal/service/mpesa/token_cache.go
package mpesa

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const tokenCacheKey = "mpesa:access_token"

// TokenCache holds the gateway OAuth token between pushes.
type TokenCache interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string, ttl time.Duration) error
}

type redisTokenCache struct {
	client *redis.Client
}

// NewRedisTokenCache backs the token cache with Redis so every instance
// shares one token.
func NewRedisTokenCache(client *redis.Client) TokenCache {
	return &redisTokenCache{client: client}
}

func (c *redisTokenCache) Get(ctx context.Context) (string, error) {
	token, err := c.client.Get(ctx, tokenCacheKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return token, err
}

func (c *redisTokenCache) Set(ctx context.Context, token string, ttl time.Duration) error {
	return c.client.Set(ctx, tokenCacheKey, token, ttl).Err()
}
