package blueprint

import (
	"fmt"
)

// Graph is an in-memory [Handle]. Nodes live in an arena and are addressed
// by ID, so cyclic pin links never form pointer cycles.
type Graph struct {
	Path   string
	Label  string
	Class  string
	Parent string

	nodes []Node
	index map[string]int
	err   error
}

// NewGraph creates an empty graph for the given asset path.
func NewGraph(path, label string) *Graph {
	return &Graph{Path: path, Label: label, index: make(map[string]int)}
}

// Broken returns a handle whose Nodes call fails with err. Loaders use it to
// surface unreadable assets as per-asset failures.
func Broken(path string, err error) *Graph {
	g := NewGraph(path, path)
	g.err = err
	return g
}

// AssetPath implements Handle.
func (g *Graph) AssetPath() string { return g.Path }

// Name implements Handle.
func (g *Graph) Name() string {
	if g.Label == "" {
		return g.Path
	}
	return g.Label
}

// GeneratedClass implements Handle.
func (g *Graph) GeneratedClass() string { return g.Class }

// ParentClass implements Handle.
func (g *Graph) ParentClass() string { return g.Parent }

// Nodes implements Handle. The returned slice is a copy of the arena.
func (g *Graph) Nodes() ([]Node, error) {
	if g.err != nil {
		return nil, g.err
	}
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out, nil
}

// AddNode appends n to the graph. Duplicate IDs are kept so that malformed
// input reaches the walker unchanged; Node looks up the first occurrence.
func (g *Graph) AddNode(n Node) *Graph {
	if g.index == nil {
		g.index = make(map[string]int)
	}
	if _, ok := g.index[n.ID]; !ok {
		g.index[n.ID] = len(g.nodes)
	}
	g.nodes = append(g.nodes, n)
	return g
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (*Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return &g.nodes[i], true
}

// Link connects fromNode.fromPin to toNode.toPin in both directions.
func (g *Graph) Link(fromNode, fromPin, toNode, toPin string) error {
	a, ok := g.Node(fromNode)
	if !ok {
		return fmt.Errorf("link: unknown node %q", fromNode)
	}
	b, ok := g.Node(toNode)
	if !ok {
		return fmt.Errorf("link: unknown node %q", toNode)
	}
	pa, ok := a.Pin(fromPin)
	if !ok {
		return fmt.Errorf("link: node %q has no pin %q", fromNode, fromPin)
	}
	pb, ok := b.Pin(toPin)
	if !ok {
		return fmt.Errorf("link: node %q has no pin %q", toNode, toPin)
	}
	pa.Links = append(pa.Links, PinRef{Node: toNode, Pin: toPin})
	pb.Links = append(pb.Links, PinRef{Node: fromNode, Pin: fromPin})
	return nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

var _ Handle = (*Graph)(nil)
