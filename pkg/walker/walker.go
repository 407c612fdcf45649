// Package walker turns source graph handles into entity records.
//
// A walk visits every node of a graph exactly once using a FIFO worklist and
// a visited set keyed by node ID, so cyclic pin links terminate. Collapsed
// sub-graphs are walked breadth-first into their own [entity.GraphRecord]s and
// linked by ID from the composite node; a sub-graph is walked at most once per
// walk and never deeper than [Options.MaxDepth].
//
// Problems that affect only part of a graph (unknown pin types, bad default
// literals, depth overflow) become [Warning]s. Structural problems make the
// whole asset unusable and are returned as MALFORMED_GRAPH errors.
package walker

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/bpdoc/pkg/blueprint"
	"github.com/matzehuels/bpdoc/pkg/entity"
	"github.com/matzehuels/bpdoc/pkg/errors"
)

// DefaultMaxDepth bounds sub-graph nesting when Options.MaxDepth is zero.
const DefaultMaxDepth = 8

// Warning codes.
const (
	WarnUnsupportedPinType = "unsupported-pin-type"
	WarnBadDefault         = "bad-default"
	WarnDepthExceeded      = "depth-exceeded"
	WarnRecursiveSubGraph  = "recursive-subgraph"
)

// Warning is a non-fatal problem found during a walk.
type Warning struct {
	Code    string    `json:"code"`
	Entity  entity.ID `json:"entity"`
	Message string    `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s: %s", w.Code, w.Entity, w.Message)
}

// Options configures a Walker.
type Options struct {
	// MaxDepth is the deepest sub-graph nesting level that is followed.
	// The top-level graph has depth 0.
	MaxDepth int

	// Formatters override or extend the default-value formatters by pin category.
	Formatters map[string]Formatter

	Logger *log.Logger
}

// Result is the outcome of walking one asset.
type Result struct {
	Graph     entity.GraphRecord
	SubGraphs []entity.GraphRecord
	Warnings  []Warning
}

// Records returns every record of the result in a stable order: each graph
// followed by its nodes, top-level graph first.
func (r *Result) Records() []entity.Record {
	var out []entity.Record
	for _, g := range append([]entity.GraphRecord{r.Graph}, r.SubGraphs...) {
		out = append(out, g)
		for _, n := range g.Nodes {
			out = append(out, n)
		}
	}
	return out
}

// NodeCount returns the number of node records across all graphs.
func (r *Result) NodeCount() int {
	n := len(r.Graph.Nodes)
	for _, g := range r.SubGraphs {
		n += len(g.Nodes)
	}
	return n
}

// Walker walks graph handles. It holds no per-walk state and may be reused.
type Walker struct {
	maxDepth   int
	formatters map[string]Formatter
	logger     *log.Logger
}

// New creates a Walker.
func New(opts Options) *Walker {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	formatters := make(map[string]Formatter, len(defaultFormatters)+len(opts.Formatters))
	for k, f := range defaultFormatters {
		formatters[k] = f
	}
	for k, f := range opts.Formatters {
		formatters[k] = f
	}
	return &Walker{maxDepth: opts.MaxDepth, formatters: formatters, logger: opts.Logger}
}

// Walk documents the graph behind h and every sub-graph reachable from it.
func (w *Walker) Walk(ctx context.Context, h blueprint.Handle) (*Result, error) {
	if h == nil {
		return nil, errors.New(errors.ErrCodeMalformedGraph, "nil graph handle")
	}
	root := entity.GraphID(h.AssetPath())
	s := &walk{
		w:     w,
		seen:  map[entity.ID]bool{root: true},
		queue: []graphJob{{handle: h, id: root}},
	}

	res := &Result{}
	for i := 0; len(s.queue) > 0; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		job := s.queue[0]
		s.queue = s.queue[1:]

		g, err := s.graph(job)
		if err != nil {
			if i == 0 {
				return nil, err
			}
			// A broken sub-graph breaks the asset that contains it.
			return nil, errors.Wrap(errors.ErrCodeMalformedGraph, err, "sub-graph of %s", root)
		}
		if i == 0 {
			res.Graph = g
		} else {
			res.SubGraphs = append(res.SubGraphs, g)
		}
	}
	res.Warnings = s.warnings

	w.logger.Debug("walked graph",
		"asset", h.AssetPath(),
		"nodes", res.NodeCount(),
		"subgraphs", len(res.SubGraphs),
		"warnings", len(res.Warnings))
	return res, nil
}

type graphJob struct {
	handle    blueprint.Handle
	id        entity.ID
	owner     entity.ID
	depth     int
	ancestors []entity.ID
}

// walk is the state of a single Walk call.
type walk struct {
	w        *Walker
	seen     map[entity.ID]bool
	queue    []graphJob
	warnings []Warning
}

func (s *walk) warn(code string, id entity.ID, format string, args ...any) {
	wn := Warning{Code: code, Entity: id, Message: fmt.Sprintf(format, args...)}
	s.warnings = append(s.warnings, wn)
	s.w.logger.Debug("walk warning", "code", code, "entity", id, "msg", wn.Message)
}

func (s *walk) graph(job graphJob) (entity.GraphRecord, error) {
	h := job.handle
	if err := errors.ValidateAssetPath(h.AssetPath()); err != nil {
		return entity.GraphRecord{}, errors.Wrap(errors.ErrCodeMalformedGraph, err, "graph %q", h.AssetPath())
	}

	nodes, err := h.Nodes()
	if err != nil {
		return entity.GraphRecord{}, errors.Wrap(errors.ErrCodeMalformedGraph, err, "read nodes of %s", h.AssetPath())
	}

	arena, err := buildArena(nodes)
	if err != nil {
		return entity.GraphRecord{}, errors.Wrap(errors.ErrCodeMalformedGraph, err, "graph %s", h.AssetPath())
	}

	rec := entity.GraphRecord{
		ID:        job.id,
		Name:      h.Name(),
		AssetPath: h.AssetPath(),
		Class:     entity.DisplayClassName(h.GeneratedClass()),
		Owner:     job.owner,
		Depth:     job.depth,
		Nodes:     make([]entity.NodeRecord, 0, len(nodes)),
	}
	if p := h.ParentClass(); p != "" {
		ref := entity.Pending(entity.ClassID(p))
		rec.ParentClass = &ref
	}

	for _, i := range arena.order() {
		n := arena.nodes[i]
		nr := s.node(rec.ID, n)
		if n.Kind == blueprint.KindComposite {
			if sub := s.subGraph(job, nr.ID, n.Composite); !slices.Contains(rec.SubGraphs, sub) {
				rec.SubGraphs = append(rec.SubGraphs, sub)
			}
		}
		rec.Nodes = append(rec.Nodes, nr)
	}
	return rec, nil
}

// subGraph links a composite node to its sub-graph and schedules the
// sub-graph for walking when it is loaded, new, and within the depth bound.
func (s *walk) subGraph(parent graphJob, node entity.ID, c *blueprint.CompositePayload) entity.ID {
	id := entity.GraphID(c.SubGraphPath())

	if id == parent.id || slices.Contains(parent.ancestors, id) {
		s.warn(WarnRecursiveSubGraph, node, "sub-graph %s contains itself", id)
		return id
	}
	if s.seen[id] {
		return id
	}
	if c.Graph == nil {
		// documented elsewhere or nowhere; the resolver decides
		return id
	}
	depth := parent.depth + 1
	if depth > s.w.maxDepth {
		s.warn(WarnDepthExceeded, node, "sub-graph %s at depth %d exceeds max depth %d", id, depth, s.w.maxDepth)
		return id
	}

	s.seen[id] = true
	s.queue = append(s.queue, graphJob{
		handle:    c.Graph,
		id:        id,
		owner:     parent.id,
		depth:     depth,
		ancestors: append(slices.Clone(parent.ancestors), parent.id),
	})
	return id
}

// arena addresses nodes by ID for cycle-safe traversal.
type arena struct {
	nodes []blueprint.Node
	index map[string]int
}

func buildArena(nodes []blueprint.Node) (*arena, error) {
	a := &arena{nodes: nodes, index: make(map[string]int, len(nodes))}
	for i, n := range nodes {
		if err := errors.ValidateNodeName(n.ID); err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		if _, dup := a.index[n.ID]; dup {
			return nil, fmt.Errorf("duplicate node %q", n.ID)
		}
		if err := n.Validate(); err != nil {
			return nil, err
		}
		a.index[n.ID] = i
	}

	for _, n := range nodes {
		for _, p := range n.Pins {
			for _, l := range p.Links {
				j, ok := a.index[l.Node]
				if !ok {
					return nil, fmt.Errorf("node %q pin %q links to unknown node %q", n.ID, p.Name, l.Node)
				}
				target := a.nodes[j]
				if _, ok := target.Pin(l.Pin); !ok {
					return nil, fmt.Errorf("node %q pin %q links to unknown pin %q on %q", n.ID, p.Name, l.Pin, l.Node)
				}
			}
		}
	}
	return a, nil
}

// order returns node indices in first-visit order. Listing order seeds the
// worklist; links are followed in pin order. Each node is returned once.
func (a *arena) order() []int {
	visited := make([]bool, len(a.nodes))
	out := make([]int, 0, len(a.nodes))

	for start := range a.nodes {
		if visited[start] {
			continue
		}
		visited[start] = true
		queue := []int{start}
		for len(queue) > 0 {
			i := queue[0]
			queue = queue[1:]
			out = append(out, i)
			for _, p := range a.nodes[i].Pins {
				for _, l := range p.Links {
					j := a.index[l.Node]
					if !visited[j] {
						visited[j] = true
						queue = append(queue, j)
					}
				}
			}
		}
	}
	return out
}
