// Package thumbnail coordinates asynchronous thumbnail rendering.
//
// A [Coordinator] submits at most one render job per entity to a
// [RenderService] and tracks each job through Requested to one terminal
// state: Ready, Failed or TimedOut. Render services call back from their own
// goroutines; callbacks only append to a completion queue, and the
// coordinator applies queued completions from the caller's goroutine in
// [Coordinator.PollReady] and [Coordinator.AwaitAllOrTimeout]. Completions
// arriving after an entry became terminal are dropped.
package thumbnail

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/bpdoc/pkg/entity"
	"github.com/matzehuels/bpdoc/pkg/observability"
)

// JobToken identifies a render job within a render service.
type JobToken string

// Completion is the outcome of one render job.
type Completion struct {
	Token  JobToken
	Entity entity.ID
	Image  *entity.Image
	Err    error
}

// RenderService rasterizes descriptors.
//
// Submit must not block on the render itself. done is called exactly once,
// from any goroutine, unless Submit returns an error.
type RenderService interface {
	Submit(ctx context.Context, id entity.ID, d Descriptor, done func(Completion)) (JobToken, error)
}

// Update reports a thumbnail that reached a terminal state.
type Update struct {
	Entity entity.ID
	Ref    entity.ThumbnailRef
}

type entry struct {
	ref       entity.ThumbnailRef
	token     JobToken
	submitted time.Time
}

// Coordinator tracks the render jobs of one generation run.
type Coordinator struct {
	svc    RenderService
	logger *log.Logger

	mu      sync.Mutex
	entries map[entity.ID]*entry
	order   []entity.ID
	ready   []Update

	qmu    sync.Mutex
	inbox  []Completion
	notify chan struct{}
}

// NewCoordinator creates a Coordinator submitting to svc.
func NewCoordinator(svc RenderService, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Coordinator{
		svc:     svc,
		logger:  logger,
		entries: make(map[entity.ID]*entry),
		notify:  make(chan struct{}, 1),
	}
}

// RequestThumbnail submits a render job for id unless one was already
// requested, and returns the current reference.
func (c *Coordinator) RequestThumbnail(ctx context.Context, id entity.ID, d Descriptor) entity.ThumbnailRef {
	c.mu.Lock()
	if e, ok := c.entries[id]; ok {
		ref := e.ref
		c.mu.Unlock()
		return ref
	}
	c.entries[id] = &entry{
		ref:       entity.ThumbnailRef{Entity: id, State: entity.ThumbRequested},
		submitted: time.Now(),
	}
	c.order = append(c.order, id)
	c.mu.Unlock()

	observability.Thumbnail().OnRenderSubmit(ctx, string(id))
	token, err := c.svc.Submit(ctx, id, d, c.complete)
	if err != nil {
		c.complete(Completion{Entity: id, Err: fmt.Errorf("submit: %w", err)})
	} else {
		c.mu.Lock()
		c.entries[id].token = token
		c.mu.Unlock()
	}

	c.drain(ctx)
	ref, _ := c.Ref(id)
	return ref
}

// Ref returns the current reference for id.
func (c *Coordinator) Ref(id entity.ID) (entity.ThumbnailRef, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return entity.ThumbnailRef{}, false
	}
	return e.ref, true
}

// Outstanding returns the number of jobs not yet terminal.
func (c *Coordinator) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.entries {
		if !e.ref.Terminal() {
			n++
		}
	}
	return n
}

// PollReady applies queued completions and returns every entry that became
// terminal since the previous poll, in completion order.
func (c *Coordinator) PollReady() []Update {
	c.drain(context.Background())
	return c.takeReady()
}

// AwaitAllOrTimeout waits until every job is terminal or deadline elapses.
// Entries still outstanding at the deadline become TimedOut. When ctx is
// cancelled it returns what is ready without marking anything.
func (c *Coordinator) AwaitAllOrTimeout(ctx context.Context, deadline time.Duration) []Update {
	timer := time.NewTimer(deadline)
	defer timer.Stop()

	for {
		c.drain(ctx)
		if c.Outstanding() == 0 {
			return c.takeReady()
		}
		select {
		case <-c.notify:
		case <-timer.C:
			c.drain(ctx)
			c.expire(ctx, deadline)
			return c.takeReady()
		case <-ctx.Done():
			return c.takeReady()
		}
	}
}

// complete is the render service callback. It never touches entry state.
func (c *Coordinator) complete(done Completion) {
	c.qmu.Lock()
	c.inbox = append(c.inbox, done)
	c.qmu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// drain applies queued completions. It is the only place entries move out of
// the Requested state on success or failure.
func (c *Coordinator) drain(ctx context.Context) {
	c.qmu.Lock()
	batch := c.inbox
	c.inbox = nil
	c.qmu.Unlock()
	if len(batch) == 0 {
		return
	}

	var settled []settledJob
	c.mu.Lock()
	for _, done := range batch {
		e, ok := c.entries[done.Entity]
		if !ok || e.ref.Terminal() {
			c.logger.Debug("dropping late render completion", "entity", done.Entity)
			continue
		}
		if done.Err != nil || done.Image == nil {
			reason := "render produced no image"
			if done.Err != nil {
				reason = done.Err.Error()
			}
			e.ref.State = entity.ThumbFailed
			e.ref.Reason = reason
			c.logger.Warn("thumbnail failed", "entity", done.Entity, "err", reason)
		} else {
			e.ref.State = entity.ThumbReady
			e.ref.Image = done.Image
		}
		c.ready = append(c.ready, Update{Entity: done.Entity, Ref: e.ref})
		settled = append(settled, settledJob{done.Entity, e.ref.State, time.Since(e.submitted)})
	}
	c.mu.Unlock()
	reportSettled(ctx, settled)
}

func (c *Coordinator) expire(ctx context.Context, deadline time.Duration) {
	var settled []settledJob
	c.mu.Lock()
	for _, id := range c.order {
		e := c.entries[id]
		if e.ref.Terminal() {
			continue
		}
		e.ref.State = entity.ThumbTimedOut
		e.ref.Reason = fmt.Sprintf("no thumbnail after %s", deadline)
		c.ready = append(c.ready, Update{Entity: id, Ref: e.ref})
		settled = append(settled, settledJob{id, e.ref.State, time.Since(e.submitted)})
	}
	c.mu.Unlock()
	reportSettled(ctx, settled)
}

// settledJob is a terminal transition waiting to be reported to hooks.
type settledJob struct {
	id    entity.ID
	state entity.ThumbState
	took  time.Duration
}

// reportSettled runs hooks outside c.mu so that they may call back into the
// coordinator.
func reportSettled(ctx context.Context, jobs []settledJob) {
	hooks := observability.Thumbnail()
	for _, j := range jobs {
		hooks.OnRenderComplete(ctx, string(j.id), string(j.state), j.took)
	}
}

func (c *Coordinator) takeReady() []Update {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.ready
	c.ready = nil
	return out
}
