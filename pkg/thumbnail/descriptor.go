package thumbnail

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/matzehuels/bpdoc/pkg/cache"
	"github.com/matzehuels/bpdoc/pkg/entity"
)

// Descriptor kinds.
const (
	DescribeKindNode  = "node"
	DescribeKindGraph = "graph"
)

// Descriptor is the visual description of a node or graph handed to a
// render service. It carries only what the picture shows, so two entities
// that look the same have equal descriptors.
type Descriptor struct {
	Kind     string          `json:"kind"`
	Title    string          `json:"title"`
	NodeKind entity.NodeKind `json:"node_kind,omitempty"`
	Inputs   []PinRow        `json:"inputs,omitempty"`
	Outputs  []PinRow        `json:"outputs,omitempty"`
	Boxes    []Box           `json:"boxes,omitempty"`
	Edges    []Edge          `json:"edges,omitempty"`
}

// PinRow is one pin drawn on a node.
type PinRow struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Exec bool   `json:"exec,omitempty"`
}

// Box is one node drawn in a graph overview.
type Box struct {
	ID    string          `json:"id"`
	Title string          `json:"title"`
	Kind  entity.NodeKind `json:"kind"`
}

// Edge connects two boxes.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// DescribeNode describes the widget of a single node.
func DescribeNode(n entity.NodeRecord) Descriptor {
	d := Descriptor{Kind: DescribeKindNode, Title: n.Title, NodeKind: n.Kind}
	for _, p := range n.Pins {
		row := PinRow{Name: p.Name, Type: p.Type.Display, Exec: p.Type.Category == "exec"}
		if p.Direction == entity.Output {
			d.Outputs = append(d.Outputs, row)
		} else {
			d.Inputs = append(d.Inputs, row)
		}
	}
	return d
}

// DescribeGraph describes an overview of a graph: one box per node and one
// edge per linked node pair, following output pins.
func DescribeGraph(g entity.GraphRecord) Descriptor {
	d := Descriptor{Kind: DescribeKindGraph, Title: g.Name}
	seen := make(map[Edge]bool)
	for _, n := range g.Nodes {
		d.Boxes = append(d.Boxes, Box{ID: n.Name, Title: n.Title, Kind: n.Kind})
		for _, p := range n.Pins {
			if p.Direction != entity.Output {
				continue
			}
			for _, l := range p.Links {
				e := Edge{From: n.Name, To: nodeName(l.Node)}
				if !seen[e] {
					seen[e] = true
					d.Edges = append(d.Edges, e)
				}
			}
		}
	}
	sort.Slice(d.Edges, func(i, j int) bool {
		if d.Edges[i].From != d.Edges[j].From {
			return d.Edges[i].From < d.Edges[j].From
		}
		return d.Edges[i].To < d.Edges[j].To
	})
	return d
}

// Hash returns the content hash of d, used as the render cache key.
func (d Descriptor) Hash() string {
	data, _ := json.Marshal(d)
	return cache.Hash(data)
}

func nodeName(id entity.ID) string {
	p := id.Path()
	return p[strings.LastIndex(p, "#")+1:]
}
