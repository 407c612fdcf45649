package entity

// NodeKind is the tagged-union discriminator for documented nodes.
type NodeKind string

// Node kinds.
const (
	NodeEvent     NodeKind = "event"
	NodeFunction  NodeKind = "function"
	NodeVariable  NodeKind = "variable"
	NodeComposite NodeKind = "composite"
)

// Direction is the data-flow direction of a pin.
type Direction string

// Pin directions.
const (
	Input  Direction = "input"
	Output Direction = "output"
)

// TypeDescriptor describes the declared type of a pin.
type TypeDescriptor struct {
	Category    string         `json:"category"`
	SubCategory string         `json:"sub_category,omitempty"`
	Container   string         `json:"container,omitempty"`
	Display     string         `json:"display"`
	Ref         *TypeReference `json:"ref,omitempty"`
}

// PinLink identifies the far end of a pin connection.
type PinLink struct {
	Node ID     `json:"node"`
	Pin  string `json:"pin"`
}

// PinRecord is one input or output pin of a node.
type PinRecord struct {
	Name      string         `json:"name"`
	Direction Direction      `json:"direction"`
	Type      TypeDescriptor `json:"type"`
	Default   *string        `json:"default,omitempty"`
	Links     []PinLink      `json:"links,omitempty"`
	Tooltip   string         `json:"tooltip,omitempty"`
}

// EventDetail is the payload of event nodes.
type EventDetail struct {
	Name   string `json:"name"`
	Custom bool   `json:"custom,omitempty"`
}

// FunctionDetail is the payload of function-call nodes. Inherited is set
// when Owner is an ancestor class of the graph the node lives in.
type FunctionDetail struct {
	Name      string         `json:"name"`
	Owner     *TypeReference `json:"owner,omitempty"`
	Static    bool           `json:"static,omitempty"`
	Pure      bool           `json:"pure,omitempty"`
	Access    string         `json:"access,omitempty"`
	Comment   string         `json:"comment,omitempty"`
	Inherited bool           `json:"inherited,omitempty"`
}

// VariableDetail is the payload of variable get/set nodes.
type VariableDetail struct {
	Name   string         `json:"name"`
	Owner  *TypeReference `json:"owner,omitempty"`
	Access string         `json:"access"`
}

// CompositeDetail is the payload of collapsed sub-graph nodes. The sub-graph
// is documented separately and only linked here.
type CompositeDetail struct {
	SubGraph TypeReference `json:"subgraph"`
}

// NodeRecord is one documented graph node. Records are values and are not
// modified after the walker returns them.
type NodeRecord struct {
	ID        ID               `json:"id"`
	Graph     ID               `json:"graph"`
	Name      string           `json:"name"`
	Kind      NodeKind         `json:"kind"`
	Title     string           `json:"title"`
	FullTitle string           `json:"full_title,omitempty"`
	Category  string           `json:"category,omitempty"`
	Tooltip   string           `json:"tooltip,omitempty"`
	Pins      []PinRecord      `json:"pins"`
	Event     *EventDetail     `json:"event,omitempty"`
	Function  *FunctionDetail  `json:"function,omitempty"`
	Variable  *VariableDetail  `json:"variable,omitempty"`
	Composite *CompositeDetail `json:"composite,omitempty"`
}

// EntityID implements Record.
func (n NodeRecord) EntityID() ID { return n.ID }

// References implements Record. The order follows the record layout: pins
// first, then the kind-specific payload.
func (n NodeRecord) References() []FieldRef {
	var refs []FieldRef
	for _, p := range n.Pins {
		if p.Type.Ref != nil {
			refs = append(refs, FieldRef{Field: "pins." + p.Name + ".type", Ref: *p.Type.Ref})
		}
	}
	switch {
	case n.Function != nil && n.Function.Owner != nil:
		refs = append(refs, FieldRef{Field: "function.owner", Ref: *n.Function.Owner})
	case n.Variable != nil && n.Variable.Owner != nil:
		refs = append(refs, FieldRef{Field: "variable.owner", Ref: *n.Variable.Owner})
	case n.Composite != nil:
		refs = append(refs, FieldRef{Field: "composite.subgraph", Ref: n.Composite.SubGraph})
	}
	return refs
}

// RefLookup maps the reference found at a field path to the form it takes in
// a finished document. Returning false drops the reference.
type RefLookup func(field string, ref TypeReference) (TypeReference, bool)

// WithReferences returns a copy of n with every embedded reference replaced
// through lookup. Field paths are the ones References reports.
func (n NodeRecord) WithReferences(lookup RefLookup) NodeRecord {
	return n.withReferences("", lookup)
}

func (n NodeRecord) withReferences(prefix string, lookup RefLookup) NodeRecord {
	replace := func(field string, ref *TypeReference) *TypeReference {
		if ref == nil {
			return nil
		}
		r, ok := lookup(prefix+field, *ref)
		if !ok {
			return nil
		}
		return &r
	}

	out := n
	if n.Pins != nil {
		out.Pins = make([]PinRecord, len(n.Pins))
		for i, p := range n.Pins {
			p.Type.Ref = replace("pins."+p.Name+".type", p.Type.Ref)
			out.Pins[i] = p
		}
	}
	switch {
	case n.Function != nil:
		f := *n.Function
		f.Owner = replace("function.owner", f.Owner)
		out.Function = &f
	case n.Variable != nil:
		v := *n.Variable
		v.Owner = replace("variable.owner", v.Owner)
		out.Variable = &v
	case n.Composite != nil:
		c := *n.Composite
		if r, ok := lookup(prefix+"composite.subgraph", c.SubGraph); ok {
			c.SubGraph = r
		}
		out.Composite = &c
	}
	return out
}

// GraphRecord is one documented graph: a top-level blueprint or a collapsed
// sub-graph nested inside one.
//
// Ancestors is filled in after resolution: the superclass chain starting at
// ParentClass, nearest first.
type GraphRecord struct {
	ID          ID              `json:"id"`
	Name        string          `json:"name"`
	AssetPath   string          `json:"asset_path"`
	Class       string          `json:"class,omitempty"`
	ParentClass *TypeReference  `json:"parent_class,omitempty"`
	Ancestors   []TypeReference `json:"ancestors,omitempty"`
	Owner       ID              `json:"owner,omitempty"`
	Depth       int             `json:"depth,omitempty"`
	Nodes       []NodeRecord    `json:"nodes"`
	SubGraphs   []ID            `json:"subgraphs,omitempty"`
}

// EntityID implements Record.
func (g GraphRecord) EntityID() ID { return g.ID }

// References implements Record. Node references are included so that the
// graph document can show every cross-reference it contains.
func (g GraphRecord) References() []FieldRef {
	var refs []FieldRef
	if g.ParentClass != nil {
		refs = append(refs, FieldRef{Field: "parent_class", Ref: *g.ParentClass})
	}
	for _, n := range g.Nodes {
		for _, r := range n.References() {
			r.Field = "nodes." + n.Name + "." + r.Field
			refs = append(refs, r)
		}
	}
	return refs
}

// WithReferences returns a copy of g with every embedded reference, its
// nodes' included, replaced through lookup.
func (g GraphRecord) WithReferences(lookup RefLookup) GraphRecord {
	out := g
	if g.ParentClass != nil {
		out.ParentClass = nil
		if r, ok := lookup("parent_class", *g.ParentClass); ok {
			out.ParentClass = &r
		}
	}
	if g.Nodes != nil {
		out.Nodes = make([]NodeRecord, len(g.Nodes))
		for i, n := range g.Nodes {
			out.Nodes[i] = n.withReferences("nodes."+n.Name+".", lookup)
		}
	}
	return out
}

// ClassAlias returns the class ID this graph defines, if any.
func (g GraphRecord) ClassAlias() (ID, bool) {
	if g.Class == "" {
		return "", false
	}
	return ClassID(g.Class), true
}
