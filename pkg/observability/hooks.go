// Package observability provides hooks for metrics, tracing, and logging.
//
// Libraries call the registered hooks at interesting points of a generation
// run; applications register implementations once at startup. The defaults
// are no-ops, so instrumentation costs nothing when unused and the core
// packages carry no dependency on a metrics backend.
//
//	func main() {
//	    observability.SetPipelineHooks(observability.NewLogHooks(logger))
//	    // ... run application
//	}
//
// Libraries emit events:
//
//	observability.Pipeline().OnWalkStart(ctx, asset)
//	// ... walk ...
//	observability.Pipeline().OnWalkComplete(ctx, asset, nodes, time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the generation pipeline.
type PipelineHooks interface {
	// Walk events, once per asset
	OnWalkStart(ctx context.Context, asset string)
	OnWalkComplete(ctx context.Context, asset string, nodeCount int, duration time.Duration, err error)

	// OnResolveComplete fires once per run after reference resolution.
	OnResolveComplete(ctx context.Context, resolved, unresolved int, duration time.Duration)

	// OnEmit fires for every document handed to the sink.
	OnEmit(ctx context.Context, entity, kind string, err error)
}

// =============================================================================
// Thumbnail Hooks
// =============================================================================

// ThumbnailHooks receives events from thumbnail rendering.
type ThumbnailHooks interface {
	// OnRenderSubmit records a render job handed to the render service.
	OnRenderSubmit(ctx context.Context, entity string)

	// OnRenderComplete records the terminal state of a thumbnail.
	OnRenderComplete(ctx context.Context, entity, state string, duration time.Duration)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnWalkStart(context.Context, string) {}
func (NoopPipelineHooks) OnWalkComplete(context.Context, string, int, time.Duration, error) {
}
func (NoopPipelineHooks) OnResolveComplete(context.Context, int, int, time.Duration) {}
func (NoopPipelineHooks) OnEmit(context.Context, string, string, error)              {}

// NoopThumbnailHooks is a no-op implementation of ThumbnailHooks.
type NoopThumbnailHooks struct{}

func (NoopThumbnailHooks) OnRenderSubmit(context.Context, string)                         {}
func (NoopThumbnailHooks) OnRenderComplete(context.Context, string, string, time.Duration) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks  PipelineHooks  = NoopPipelineHooks{}
	thumbnailHooks ThumbnailHooks = NoopThumbnailHooks{}
	cacheHooks     CacheHooks     = NoopCacheHooks{}
	hooksMu        sync.RWMutex
)

// SetPipelineHooks registers pipeline hooks. Nil is ignored.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetThumbnailHooks registers thumbnail hooks. Nil is ignored.
func SetThumbnailHooks(h ThumbnailHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		thumbnailHooks = h
	}
}

// SetCacheHooks registers cache hooks. Nil is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Thumbnail returns the registered thumbnail hooks.
func Thumbnail() ThumbnailHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return thumbnailHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	thumbnailHooks = NoopThumbnailHooks{}
	cacheHooks = NoopCacheHooks{}
}
