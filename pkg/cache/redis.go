package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	bperrors "github.com/matzehuels/bpdoc/pkg/errors"
)

// RedisCache stores entries in Redis. Thumbnails rendered on one machine are
// then reused by every machine pointing at the same instance.
type RedisCache struct {
	client  *redis.Client
	backoff Backoff
}

// NewRedisCache connects to the Redis server at url
// (redis://[user:pass@]host:port/db) and pings it.
func NewRedisCache(ctx context.Context, url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, bperrors.Wrap(bperrors.ErrCodeInvalidConfig, err, "parse redis url")
	}
	c := &RedisCache{client: redis.NewClient(opts), backoff: DefaultBackoff}

	err = c.backoff.Do(ctx, func() error {
		return transientNet(c.client.Ping(ctx).Err())
	})
	if err != nil {
		_ = c.client.Close()
		return nil, bperrors.Wrap(bperrors.ErrCodeStoreUnavailable, err, "connect to redis at %s", opts.Addr)
	}
	return c, nil
}

// Get returns the value for key; redis.Nil is a miss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := c.backoff.Do(ctx, func() error {
		var err error
		data, err = c.client.Get(ctx, key).Bytes()
		return transientNet(err)
	})
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores data under key. A ttl of zero never expires.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.backoff.Do(ctx, func() error {
		return transientNet(c.client.Set(ctx, key, data, ttl).Err())
	})
}

// Delete removes key.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.backoff.Do(ctx, func() error {
		return transientNet(c.client.Del(ctx, key).Err())
	})
}

// Close closes the client connection pool.
func (c *RedisCache) Close() error { return c.client.Close() }
