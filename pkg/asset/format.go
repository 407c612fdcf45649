package asset

import (
	"fmt"
	"strings"

	"github.com/matzehuels/bpdoc/pkg/blueprint"
)

// File is the on-disk form of one blueprint asset:
//
//	path: /Game/Characters/BP_Hero
//	class: BP_Hero_C
//	parent: Character
//	nodes:
//	  - id: K2Node_Event_0
//	    kind: event
//	    event: {name: BeginPlay}
//	    pins:
//	      - {name: then, dir: output, type: {category: exec}, links: [{node: K2Node_CallFunction_0, pin: execute}]}
//	subgraphs:
//	  - name: Collapsed
//	    nodes: [...]
//
// Composite nodes name an inline sub-graph (composite.subgraph) or the asset
// path of a graph documented elsewhere (composite.path).
type File struct {
	Path      string     `yaml:"path" json:"path"`
	Name      string     `yaml:"name" json:"name"`
	Class     string     `yaml:"class" json:"class"`
	Parent    string     `yaml:"parent" json:"parent"`
	Nodes     []NodeDTO  `yaml:"nodes" json:"nodes"`
	SubGraphs []GraphDTO `yaml:"subgraphs" json:"subgraphs"`
}

// GraphDTO is an inline sub-graph.
type GraphDTO struct {
	Name      string     `yaml:"name" json:"name"`
	Nodes     []NodeDTO  `yaml:"nodes" json:"nodes"`
	SubGraphs []GraphDTO `yaml:"subgraphs" json:"subgraphs"`
}

// NodeDTO is one serialized node.
type NodeDTO struct {
	ID        string        `yaml:"id" json:"id"`
	Kind      string        `yaml:"kind" json:"kind"`
	Title     string        `yaml:"title" json:"title"`
	Category  string        `yaml:"category" json:"category"`
	Tooltip   string        `yaml:"tooltip" json:"tooltip"`
	Pins      []PinDTO      `yaml:"pins" json:"pins"`
	Event     *EventDTO     `yaml:"event" json:"event"`
	Function  *FunctionDTO  `yaml:"function" json:"function"`
	Variable  *VariableDTO  `yaml:"variable" json:"variable"`
	Composite *CompositeDTO `yaml:"composite" json:"composite"`
}

type EventDTO struct {
	Name   string `yaml:"name" json:"name"`
	Custom bool   `yaml:"custom" json:"custom"`
}

type FunctionDTO struct {
	Name    string `yaml:"name" json:"name"`
	Owner   string `yaml:"owner" json:"owner"`
	Static  bool   `yaml:"static" json:"static"`
	Pure    bool   `yaml:"pure" json:"pure"`
	Access  string `yaml:"access" json:"access"`
	Comment string `yaml:"comment" json:"comment"`
}

type VariableDTO struct {
	Name   string `yaml:"name" json:"name"`
	Owner  string `yaml:"owner" json:"owner"`
	Access string `yaml:"access" json:"access"`
}

type CompositeDTO struct {
	SubGraph string `yaml:"subgraph" json:"subgraph"`
	Path     string `yaml:"path" json:"path"`
}

// PinDTO is one serialized pin.
type PinDTO struct {
	Name    string    `yaml:"name" json:"name"`
	Dir     string    `yaml:"dir" json:"dir"`
	Type    TypeDTO   `yaml:"type" json:"type"`
	Default *string   `yaml:"default" json:"default"`
	Hidden  bool      `yaml:"hidden" json:"hidden"`
	Tooltip string    `yaml:"tooltip" json:"tooltip"`
	Links   []LinkDTO `yaml:"links" json:"links"`
}

type TypeDTO struct {
	Category  string `yaml:"category" json:"category"`
	Sub       string `yaml:"sub" json:"sub"`
	Container string `yaml:"container" json:"container"`
}

type LinkDTO struct {
	Node string `yaml:"node" json:"node"`
	Pin  string `yaml:"pin" json:"pin"`
}

// Graph converts f to an in-memory handle. fallbackPath is used when the
// file does not declare its asset path.
func (f *File) Graph(fallbackPath string) (*blueprint.Graph, error) {
	p := f.Path
	if p == "" {
		p = fallbackPath
	}
	g := blueprint.NewGraph(p, f.Name)
	g.Class = f.Class
	g.Parent = f.Parent
	if err := build(g, f.Nodes, f.SubGraphs); err != nil {
		return nil, err
	}
	return g, nil
}

func build(g *blueprint.Graph, nodes []NodeDTO, subs []GraphDTO) error {
	inline := make(map[string]*blueprint.Graph, len(subs))
	for _, s := range subs {
		if s.Name == "" {
			return fmt.Errorf("%s: sub-graph without name", g.Path)
		}
		if _, dup := inline[s.Name]; dup {
			return fmt.Errorf("%s: duplicate sub-graph %q", g.Path, s.Name)
		}
		sg := blueprint.NewGraph(g.Path+":"+s.Name, s.Name)
		inline[s.Name] = sg
	}
	for _, s := range subs {
		if err := build(inline[s.Name], s.Nodes, s.SubGraphs); err != nil {
			return err
		}
	}

	for _, nd := range nodes {
		n, err := nd.node(g.Path, inline)
		if err != nil {
			return err
		}
		g.AddNode(n)
	}
	return nil
}

func (nd NodeDTO) node(graphPath string, inline map[string]*blueprint.Graph) (blueprint.Node, error) {
	n := blueprint.Node{
		ID:       nd.ID,
		Kind:     blueprint.NodeKind(strings.ToLower(nd.Kind)),
		Title:    nd.Title,
		Category: nd.Category,
		Tooltip:  nd.Tooltip,
	}
	if e := nd.Event; e != nil {
		n.Event = &blueprint.EventPayload{Name: e.Name, Custom: e.Custom}
	}
	if f := nd.Function; f != nil {
		n.Function = &blueprint.FunctionPayload{
			Name: f.Name, Owner: f.Owner, Static: f.Static, Pure: f.Pure, Access: f.Access, Comment: f.Comment,
		}
	}
	if v := nd.Variable; v != nil {
		n.Variable = &blueprint.VariablePayload{Name: v.Name, Owner: v.Owner, Access: v.Access}
	}
	if c := nd.Composite; c != nil {
		n.Composite = &blueprint.CompositePayload{Path: c.Path}
		if c.SubGraph != "" {
			sg, ok := inline[c.SubGraph]
			if !ok {
				return n, fmt.Errorf("%s: node %q references unknown sub-graph %q", graphPath, nd.ID, c.SubGraph)
			}
			n.Composite.Graph = sg
		}
	}

	for _, pd := range nd.Pins {
		dir, err := direction(pd.Dir)
		if err != nil {
			return n, fmt.Errorf("%s: node %q pin %q: %w", graphPath, nd.ID, pd.Name, err)
		}
		p := blueprint.Pin{
			Name:      pd.Name,
			Direction: dir,
			Type:      blueprint.PinType{Category: pd.Type.Category, SubCategoryObject: pd.Type.Sub, Container: pd.Type.Container},
			Default:   pd.Default,
			Hidden:    pd.Hidden,
			Tooltip:   pd.Tooltip,
		}
		for _, l := range pd.Links {
			p.Links = append(p.Links, blueprint.PinRef{Node: l.Node, Pin: l.Pin})
		}
		n.Pins = append(n.Pins, p)
	}
	return n, nil
}

func direction(s string) (blueprint.Direction, error) {
	switch strings.ToLower(s) {
	case "input", "in":
		return blueprint.Input, nil
	case "output", "out":
		return blueprint.Output, nil
	}
	return "", fmt.Errorf("unknown pin direction %q", s)
}
