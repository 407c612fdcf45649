package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/bpdoc/pkg/blueprint"
	"github.com/matzehuels/bpdoc/pkg/entity"
	"github.com/matzehuels/bpdoc/pkg/errors"
	"github.com/matzehuels/bpdoc/pkg/manifest"
	"github.com/matzehuels/bpdoc/pkg/observability"
	"github.com/matzehuels/bpdoc/pkg/resolver"
	"github.com/matzehuels/bpdoc/pkg/sink"
	"github.com/matzehuels/bpdoc/pkg/thumbnail"
	"github.com/matzehuels/bpdoc/pkg/walker"
)

// Enumerator yields the assets of a run. It is only used from the goroutine
// that calls Run.
type Enumerator interface {
	HasNext() bool
	Next() (blueprint.Handle, error)
}

// Runner executes generation runs. It holds no per-run state, so one Runner
// may serve several runs in sequence or in parallel.
type Runner struct {
	// Renderer renders thumbnails. Nil disables thumbnails.
	Renderer thumbnail.RenderService

	// Manifest records runs and emitted documents. Optional.
	Manifest *manifest.Store

	Logger *log.Logger
}

// NewRunner creates a runner. svc and store may be nil.
func NewRunner(svc thumbnail.RenderService, store *manifest.Store, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Runner{Renderer: svc, Manifest: store, Logger: logger}
}

// Run documents every asset of en into out.
//
// The returned report is never nil. A cancelled context ends the run in
// StateCancelled with a nil error; run-fatal problems end it in StateFailed
// and are returned. No document is written after a failure.
func (r *Runner) Run(ctx context.Context, en Enumerator, out sink.Sink, opts Options) (*Report, error) {
	rep := &Report{
		RunID:     newRunID(),
		StartedAt: time.Now(),
		State:     StateEnumerating,
	}
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		rep.State = StateFailed
		rep.Error = err.Error()
		return rep, err
	}
	rep.Title = opts.Title
	if en == nil || out == nil {
		err := errors.New(errors.ErrCodeInvalidInput, "enumerator and sink are required")
		rep.State = StateFailed
		rep.Error = err.Error()
		return rep, err
	}

	g := &run{
		runner: r,
		opts:   opts,
		logger: opts.Logger.With("run", rep.RunID),
		report: rep,
		en:     en,
		out:    out,
		dest:   sink.DestinationOf(out),
		walker: walker.New(walker.Options{MaxDepth: opts.MaxWalkDepth, Logger: opts.Logger}),
		resolver: resolver.New(resolver.Options{
			ExternalClasses: opts.ExternalClasses,
			ExcludedClasses: opts.ExcludedClasses,
			Logger:          opts.Logger,
		}),
		emitted: make(map[entity.ID]bool),
	}
	if iw, ok := out.(sink.ImageWriter); ok {
		g.images = iw
	}
	if c, ok := out.(sink.Checker); ok {
		g.present = c
	}
	if r.Renderer != nil && !opts.SkipThumbnails {
		g.thumbs = thumbnail.NewCoordinator(r.Renderer, opts.Logger)
	}

	err := g.begin(ctx)
	if err == nil {
		err = g.execute(ctx)
	}
	err = g.finish(ctx, err)
	return rep, err
}

// run is the state of one Run call.
type run struct {
	runner *Runner
	opts   Options
	logger *log.Logger
	report *Report

	en      Enumerator
	out     sink.Sink
	dest    string
	images  sink.ImageWriter
	present sink.Checker

	walker   *walker.Walker
	resolver *resolver.Resolver
	thumbs   *thumbnail.Coordinator

	records   []entity.Record
	final     map[entity.ID]resolver.ResolvedSet
	ancestors map[entity.ID][]entity.TypeReference
	owners    map[entity.ID]entity.ID
	emitted   map[entity.ID]bool
}

func (g *run) setState(s State) {
	if g.report.State == s {
		return
	}
	g.logger.Debug("run state", "from", g.report.State, "to", s)
	g.report.State = s
}

func (g *run) begin(ctx context.Context) error {
	if g.runner.Manifest == nil {
		return nil
	}
	return g.runner.Manifest.BeginRun(ctx, g.report.RunID, g.report.Title, g.report.StartedAt)
}

func (g *run) execute(ctx context.Context) error {
	if err := g.walkAll(ctx); err != nil {
		return err
	}
	if err := g.resolve(ctx); err != nil {
		return err
	}
	return g.emitAll(ctx)
}

// finish settles the final state and records the run in the manifest.
func (g *run) finish(ctx context.Context, err error) error {
	rep := g.report
	rep.Timings.Total = time.Since(rep.StartedAt)

	switch {
	case err != nil && ctx.Err() != nil:
		g.setState(StateCancelled)
		rep.Cancelled = true
		err = nil
		g.logger.Warn("run cancelled", "documents", rep.Documents)
	case err != nil:
		if !errors.IsRunFatal(err) {
			err = errors.Wrap(errors.ErrCodeInternal, err, "%s", rep.State)
		}
		g.setState(StateFailed)
		rep.Error = err.Error()
		g.logger.Error("run failed", "state", rep.State, "err", err)
	default:
		g.setState(StateDone)
		g.logger.Info("run complete",
			"assets", rep.Counts.Assets,
			"skipped", rep.Counts.Skipped,
			"documents", rep.Documents,
			"unresolved", rep.Counts.Unresolved,
			"duration", rep.Timings.Total)
	}

	if g.runner.Manifest != nil {
		merr := g.runner.Manifest.FinishRun(context.WithoutCancel(ctx), manifest.Run{
			ID:         rep.RunID,
			FinishedAt: time.Now(),
			State:      string(rep.State),
			Error:      rep.Error,
			Documents:  rep.Documents,
			Skipped:    rep.Counts.Skipped,
			Unresolved: rep.Counts.Unresolved,
		})
		if merr != nil {
			g.logger.Warn("failed to record run", "err", merr)
		}
	}
	return err
}

// =============================================================================
// Walking
// =============================================================================

func (g *run) walkAll(ctx context.Context) error {
	start := time.Now()
	defer func() { g.report.Timings.Walk = time.Since(start) }()

	for g.en.HasNext() {
		if err := ctx.Err(); err != nil {
			return err
		}
		g.setState(StateEnumerating)
		h, err := g.en.Next()
		if err != nil {
			return errors.Wrap(errors.ErrCodeEnumeratorFailed, err, "enumerate assets")
		}
		g.setState(StateWalking)
		if err := g.walkOne(ctx, h); err != nil {
			return err
		}
	}
	return nil
}

// walkOne documents one asset. Only cancellation is returned; every other
// problem skips the asset.
func (g *run) walkOne(ctx context.Context, h blueprint.Handle) error {
	path := "<nil>"
	if h != nil {
		path = h.AssetPath()
	}
	g.report.Counts.Assets++

	hooks := observability.Pipeline()
	hooks.OnWalkStart(ctx, path)
	start := time.Now()

	res, err := g.walker.Walk(ctx, h)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		err = g.register(res)
	}

	nodes := 0
	if res != nil {
		nodes = res.NodeCount()
	}
	hooks.OnWalkComplete(ctx, path, nodes, time.Since(start), err)

	if err != nil {
		g.logger.Warn("skipping asset", "asset", path, "err", err)
		g.report.Counts.Skipped++
		g.report.Assets = append(g.report.Assets, AssetResult{
			Path:   path,
			Status: entity.AssetSkipped,
			Error:  err.Error(),
		})
		return nil
	}

	g.report.Counts.Successful++
	g.report.Counts.Graphs += 1 + len(res.SubGraphs)
	g.report.Counts.Nodes += nodes
	g.report.Warnings = append(g.report.Warnings, res.Warnings...)
	g.report.Assets = append(g.report.Assets, AssetResult{
		Path:     path,
		Status:   entity.AssetOK,
		Graphs:   1 + len(res.SubGraphs),
		Nodes:    nodes,
		Warnings: res.Warnings,
	})
	for _, w := range res.Warnings {
		g.logger.Warn("walk warning", "asset", path, "code", w.Code, "entity", w.Entity, "msg", w.Message)
	}

	for _, rec := range res.Records() {
		g.records = append(g.records, rec)
		g.requestThumbnail(ctx, rec)
	}
	return nil
}

// register adds every record of res to the resolver. An asset whose records
// collide with already documented entities is rejected as a whole.
func (g *run) register(res *walker.Result) error {
	recs := res.Records()
	for _, rec := range recs {
		if g.resolver.Registered(rec.EntityID()) {
			return errors.New(errors.ErrCodeDuplicateEntity, "%s is already documented by an earlier asset", rec.EntityID())
		}
	}
	for _, rec := range recs {
		if err := g.resolver.Register(rec.EntityID(), rec); err != nil {
			return err
		}
	}
	return nil
}

func (g *run) requestThumbnail(ctx context.Context, rec entity.Record) {
	if g.thumbs == nil {
		return
	}
	var d thumbnail.Descriptor
	switch v := rec.(type) {
	case entity.GraphRecord:
		d = thumbnail.DescribeGraph(v)
	case entity.NodeRecord:
		d = thumbnail.DescribeNode(v)
	default:
		return
	}
	g.thumbs.RequestThumbnail(ctx, rec.EntityID(), d)
}

// =============================================================================
// Resolving
// =============================================================================

func (g *run) resolve(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.setState(StateResolving)
	start := time.Now()

	g.final = g.resolver.FinalizeAll()
	g.buildLineage()
	unresolved := g.resolver.Unresolved()
	g.report.Unresolved = unresolved

	counts := &g.report.Counts
	for _, rec := range g.records {
		id := rec.EntityID()
		for _, fr := range g.final[id] {
			if !resolver.OwnField(id, fr.Field) {
				continue
			}
			switch {
			case fr.Ref.State == entity.RefResolved:
				counts.Resolved++
			case fr.Ref.Reason == entity.ReasonOutOfCorpus:
				counts.OutOfCorpus++
			default:
				counts.Unresolved++
			}
		}
	}

	g.report.Timings.Resolve = time.Since(start)
	observability.Pipeline().OnResolveComplete(ctx, counts.Resolved, counts.Unresolved, g.report.Timings.Resolve)
	g.logger.Debug("references resolved",
		"resolved", counts.Resolved,
		"unresolved", counts.Unresolved,
		"out_of_corpus", counts.OutOfCorpus)

	if g.opts.Strict() && len(unresolved) > 0 {
		first := unresolved[0]
		return errors.New(errors.ErrCodeUnresolvedReference,
			"%d unresolved references (first: %s %s -> %s)",
			len(unresolved), first.From, first.Field, first.Target)
	}
	return nil
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
