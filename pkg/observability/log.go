package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks implements every hook interface by writing debug log lines.
// The CLI installs it in verbose mode.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks returns hooks that log to logger.
func NewLogHooks(logger *log.Logger) *LogHooks {
	return &LogHooks{logger: logger}
}

func (h *LogHooks) OnWalkStart(_ context.Context, asset string) {
	h.logger.Debug("walk start", "asset", asset)
}

func (h *LogHooks) OnWalkComplete(_ context.Context, asset string, nodeCount int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("walk failed", "asset", asset, "duration", d, "err", err)
		return
	}
	h.logger.Debug("walk done", "asset", asset, "nodes", nodeCount, "duration", d)
}

func (h *LogHooks) OnResolveComplete(_ context.Context, resolved, unresolved int, d time.Duration) {
	h.logger.Debug("references resolved", "resolved", resolved, "unresolved", unresolved, "duration", d)
}

func (h *LogHooks) OnEmit(_ context.Context, entity, kind string, err error) {
	if err != nil {
		h.logger.Debug("emit failed", "entity", entity, "kind", kind, "err", err)
		return
	}
	h.logger.Debug("emitted", "entity", entity, "kind", kind)
}

func (h *LogHooks) OnRenderSubmit(_ context.Context, entity string) {
	h.logger.Debug("render submitted", "entity", entity)
}

func (h *LogHooks) OnRenderComplete(_ context.Context, entity, state string, d time.Duration) {
	h.logger.Debug("render finished", "entity", entity, "state", state, "duration", d)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

var (
	_ PipelineHooks  = (*LogHooks)(nil)
	_ ThumbnailHooks = (*LogHooks)(nil)
	_ CacheHooks     = (*LogHooks)(nil)
)
