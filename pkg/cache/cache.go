// Package cache stores rendered thumbnails between runs.
//
// Entries are keyed by the content hash of a thumbnail descriptor, so an
// unchanged node or graph is rendered once no matter how many runs or
// assets produce it. Three backends are provided: [NullCache] (caching
// disabled), [FileCache] (a directory on any afero file system) and
// [RedisCache] (shared between machines).
package cache

import (
	"context"
	"time"
)

// TTLThumbnail is how long a rendered thumbnail stays cached.
const TTLThumbnail = 30 * 24 * time.Hour

// Cache is a byte-oriented key/value store with optional expiry.
//
// Get reports a miss with ok == false and a nil error; errors are reserved
// for backend failures.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// ThumbnailKeyOpts are the render settings that change a thumbnail's bytes.
type ThumbnailKeyOpts struct {
	Format   string `json:"format"`
	Renderer string `json:"renderer"`
}

// NullCache never stores anything. It is used when caching is disabled.
type NullCache struct{}

// NewNullCache returns a NullCache.
func NewNullCache() *NullCache { return &NullCache{} }

func (NullCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NullCache) Delete(context.Context, string) error                 { return nil }
func (NullCache) Close() error                                         { return nil }

var (
	_ Cache = (*NullCache)(nil)
	_ Cache = (*FileCache)(nil)
	_ Cache = (*RedisCache)(nil)
)
