package jwks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix namespaces key sets stored by RedisCache.
const DefaultRedisKeyPrefix = "authz:jwks:"

// RedisCache implements Cache with Redis as the backing store, so that
// several processes share fetched key sets. Redis failures never fail a
// lookup: the key set is fetched from the network instead.
type RedisCache struct {
	client    redis.Cmdable
	ttl       time.Duration
	keyPrefix string
	logger    Logger
}

// RedisCacheOption configures a RedisCache.
type RedisCacheOption func(*RedisCache)

// WithRedisKeyPrefix overrides DefaultRedisKeyPrefix.
func WithRedisKeyPrefix(prefix string) RedisCacheOption {
	return func(c *RedisCache) {
		c.keyPrefix = prefix
	}
}

// WithRedisLogger sets a logger for Redis errors.
func WithRedisLogger(logger Logger) RedisCacheOption {
	return func(c *RedisCache) {
		c.logger = logger
	}
}

// NewRedisCache creates a Redis-backed Cache. A ttl of zero uses DefaultCacheTTL.
func NewRedisCache(client redis.Cmdable, ttl time.Duration, opts ...RedisCacheOption) (*RedisCache, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if ttl < 0 {
		return nil, errors.New("cache TTL cannot be negative")
	}
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}

	c := &RedisCache{
		client:    client,
		ttl:       ttl,
		keyPrefix: DefaultRedisKeyPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns the key set stored in Redis, fetching and storing it on a miss.
func (c *RedisCache) Get(ctx context.Context, jwksURI string, fetch FetchFunc) (jwk.Set, error) {
	cached, err := c.client.Get(ctx, c.keyPrefix+jwksURI).Bytes()
	switch {
	case err == nil:
		set, parseErr := jwk.Parse(cached)
		if parseErr == nil {
			return set, nil
		}
		c.warn("failed to parse cached JWKS from Redis", parseErr, jwksURI)
	case !errors.Is(err, redis.Nil):
		c.warn("redis get failed", err, jwksURI)
	}

	return c.Refresh(ctx, jwksURI, fetch)
}

// Refresh fetches the key set and overwrites the Redis entry.
func (c *RedisCache) Refresh(ctx context.Context, jwksURI string, fetch FetchFunc) (jwk.Set, error) {
	set, cacheTTL, err := fetch(ctx, jwksURI)
	if err != nil {
		return nil, fmt.Errorf("could not fetch JWKS: %w", err)
	}

	ttl := c.ttl
	if cacheTTL > ttl {
		ttl = cacheTTL
	}

	data, err := json.Marshal(set)
	if err != nil {
		c.warn("failed to marshal JWKS for caching", err, jwksURI)
		return set, nil
	}

	if err := c.client.Set(ctx, c.keyPrefix+jwksURI, data, ttl).Err(); err != nil {
		c.warn("redis set failed", err, jwksURI)
	}

	return set, nil
}

func (c *RedisCache) warn(msg string, err error, jwksURI string) {
	if c.logger != nil {
		c.logger.Warn(msg, "error", err, "uri", jwksURI)
	}
}
