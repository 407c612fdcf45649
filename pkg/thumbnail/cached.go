package thumbnail

import (
	"context"
	"encoding/json"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/bpdoc/pkg/cache"
	"github.com/matzehuels/bpdoc/pkg/entity"
	"github.com/matzehuels/bpdoc/pkg/observability"
)

const cacheKeyType = "thumbnail"

// CachedRenderer serves thumbnails from a cache and renders only misses.
// Entries are keyed by descriptor hash, so identical-looking entities share
// one render.
type CachedRenderer struct {
	inner  RenderService
	cache  cache.Cache
	keyer  cache.Keyer
	opts   cache.ThumbnailKeyOpts
	logger *log.Logger
}

// NewCachedRenderer wraps inner with c. A nil keyer uses the default keyer.
func NewCachedRenderer(inner RenderService, c cache.Cache, keyer cache.Keyer, opts cache.ThumbnailKeyOpts, logger *log.Logger) *CachedRenderer {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &CachedRenderer{inner: inner, cache: c, keyer: keyer, opts: opts, logger: logger}
}

type cachedImage struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   []byte `json:"data"`
}

// Submit completes synchronously on a cache hit and delegates otherwise.
func (r *CachedRenderer) Submit(ctx context.Context, id entity.ID, d Descriptor, done func(Completion)) (JobToken, error) {
	key := r.keyer.ThumbnailKey(d.Hash(), r.opts)

	if img, ok := r.lookup(ctx, key); ok {
		observability.Cache().OnCacheHit(ctx, cacheKeyType)
		token := JobToken("cache:" + key)
		done(Completion{Token: token, Entity: id, Image: img})
		return token, nil
	}
	observability.Cache().OnCacheMiss(ctx, cacheKeyType)

	return r.inner.Submit(ctx, id, d, func(c Completion) {
		if c.Err == nil && c.Image != nil {
			r.store(ctx, key, c.Image)
		}
		done(c)
	})
}

func (r *CachedRenderer) lookup(ctx context.Context, key string) (*entity.Image, bool) {
	data, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		r.logger.Warn("thumbnail cache read failed", "err", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var ci cachedImage
	if err := json.Unmarshal(data, &ci); err != nil || len(ci.Data) == 0 {
		return nil, false
	}
	return &entity.Image{Format: ci.Format, Width: ci.Width, Height: ci.Height, Data: ci.Data}, true
}

func (r *CachedRenderer) store(ctx context.Context, key string, img *entity.Image) {
	data, err := json.Marshal(cachedImage{Format: img.Format, Width: img.Width, Height: img.Height, Data: img.Data})
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, data, cache.TTLThumbnail); err != nil {
		r.logger.Warn("thumbnail cache write failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, cacheKeyType, len(data))
}

var _ RenderService = (*CachedRenderer)(nil)
