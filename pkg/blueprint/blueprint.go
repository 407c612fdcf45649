// Package blueprint models the source graphs handed to the documentation
// generator.
//
// Graph loading is outside the generator: anything that can list its nodes
// through [Handle] can be documented. [Graph] is the in-memory implementation
// used by the asset loader and by tests.
//
// Nodes are a tagged union. [Node.Kind] selects which payload is populated:
//
//	KindEvent     -> Node.Event
//	KindFunction  -> Node.Function
//	KindVariable  -> Node.Variable
//	KindComposite -> Node.Composite
package blueprint

import (
	"fmt"

	"github.com/matzehuels/bpdoc/pkg/errors"
)

// Handle is an opaque reference to one source graph.
type Handle interface {
	// AssetPath is the fully-qualified source path, unique per graph.
	AssetPath() string
	// Name is the display name of the graph.
	Name() string
	// GeneratedClass is the class the graph defines, if any.
	GeneratedClass() string
	// ParentClass is the class the generated class derives from, if any.
	ParentClass() string
	// Nodes lists the graph's nodes. An error means the asset is broken.
	Nodes() ([]Node, error)
}

// NodeKind discriminates the node payload.
type NodeKind string

// Node kinds.
const (
	KindEvent     NodeKind = "event"
	KindFunction  NodeKind = "function"
	KindVariable  NodeKind = "variable"
	KindComposite NodeKind = "composite"
)

// Direction is the direction of a pin.
type Direction string

// Pin directions.
const (
	Input  Direction = "input"
	Output Direction = "output"
)

// PinType is the declared type of a pin.
type PinType struct {
	// Category is the engine pin category: exec, bool, int, float, object, ...
	Category string
	// SubCategoryObject names the class, struct, or enum for object-like pins.
	SubCategoryObject string
	// Container is "", "array", "set" or "map".
	Container string
}

// PinRef addresses a pin on another node of the same graph.
type PinRef struct {
	Node string
	Pin  string
}

// Pin is a single input or output pin.
type Pin struct {
	Name      string
	Direction Direction
	Type      PinType
	Default   *string
	Hidden    bool
	Tooltip   string
	Links     []PinRef
}

// EventPayload describes an event entry point.
type EventPayload struct {
	Name   string
	Custom bool
}

// FunctionPayload describes a function call.
type FunctionPayload struct {
	Name    string
	Owner   string
	Static  bool
	Pure    bool
	Access  string
	Comment string
}

// VariablePayload describes a variable get or set.
type VariablePayload struct {
	Name   string
	Owner  string
	Access string
}

// CompositePayload describes a collapsed sub-graph. Graph is nil when the
// sub-graph is known only by path.
type CompositePayload struct {
	Path  string
	Graph Handle
}

// SubGraphPath returns the asset path of the sub-graph.
func (c *CompositePayload) SubGraphPath() string {
	if c.Path == "" && c.Graph != nil {
		return c.Graph.AssetPath()
	}
	return c.Path
}

// Node is one node of a graph.
type Node struct {
	ID       string
	Kind     NodeKind
	Title    string
	Category string
	Tooltip  string
	Pins     []Pin

	Event     *EventPayload
	Function  *FunctionPayload
	Variable  *VariablePayload
	Composite *CompositePayload
}

// Validate checks that exactly the payload selected by Kind is populated.
func (n Node) Validate() error {
	set := 0
	for _, p := range []bool{n.Event != nil, n.Function != nil, n.Variable != nil, n.Composite != nil} {
		if p {
			set++
		}
	}

	var ok bool
	switch n.Kind {
	case KindEvent:
		ok = n.Event != nil
	case KindFunction:
		ok = n.Function != nil
	case KindVariable:
		ok = n.Variable != nil
	case KindComposite:
		ok = n.Composite != nil && n.Composite.SubGraphPath() != ""
	default:
		return errors.New(errors.ErrCodeMalformedGraph, "node %q: unknown kind %q", n.ID, n.Kind)
	}
	if !ok || set != 1 {
		return errors.New(errors.ErrCodeMalformedGraph, "node %q: payload does not match kind %q", n.ID, n.Kind)
	}
	return nil
}

// Pin returns the named pin.
func (n *Node) Pin(name string) (*Pin, bool) {
	for i := range n.Pins {
		if n.Pins[i].Name == name {
			return &n.Pins[i], true
		}
	}
	return nil, false
}

func (n Node) String() string {
	return fmt.Sprintf("%s(%s)", n.Kind, n.ID)
}
