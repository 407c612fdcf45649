package walker

import (
	"sort"
	"strings"

	"github.com/matzehuels/bpdoc/pkg/blueprint"
	"github.com/matzehuels/bpdoc/pkg/entity"
)

// targetMarker starts the auto-generated "Target is <Class>" suffix the
// editor appends to function titles and tooltips.
const targetMarker = "Target is "

// node converts one source node into a record, dispatching on its kind.
func (s *walk) node(graph entity.ID, n blueprint.Node) entity.NodeRecord {
	id := entity.NodeID(graph, n.ID)
	full := stripTarget(n.Title)
	rec := entity.NodeRecord{
		ID:        id,
		Graph:     graph,
		Name:      n.ID,
		Kind:      entity.NodeKind(n.Kind),
		Title:     firstLine(full),
		FullTitle: full,
		Category:  n.Category,
		Tooltip:   stripTarget(n.Tooltip),
		Pins:      make([]entity.PinRecord, 0, len(n.Pins)),
	}

	for _, p := range n.Pins {
		if p.Hidden {
			continue
		}
		rec.Pins = append(rec.Pins, s.pin(graph, id, p))
	}

	switch n.Kind {
	case blueprint.KindEvent:
		rec.Event = &entity.EventDetail{Name: n.Event.Name, Custom: n.Event.Custom}
		if rec.Title == "" {
			rec.Title = n.Event.Name
		}
	case blueprint.KindFunction:
		f := n.Function
		rec.Function = &entity.FunctionDetail{
			Name:    f.Name,
			Owner:   classRef(f.Owner),
			Static:  f.Static,
			Pure:    f.Pure,
			Access:  f.Access,
			Comment: f.Comment,
		}
		if rec.Title == "" {
			rec.Title = f.Name
		}
	case blueprint.KindVariable:
		v := n.Variable
		rec.Variable = &entity.VariableDetail{Name: v.Name, Owner: classRef(v.Owner), Access: v.Access}
		if rec.Title == "" {
			rec.Title = strings.TrimSpace(accessVerb(v.Access) + " " + v.Name)
		}
	case blueprint.KindComposite:
		rec.Composite = &entity.CompositeDetail{
			SubGraph: entity.Pending(entity.GraphID(n.Composite.SubGraphPath())),
		}
	}

	if rec.Title == "" {
		rec.Title = n.ID
	}
	return rec
}

func (s *walk) pin(graph, node entity.ID, p blueprint.Pin) entity.PinRecord {
	name := p.Name
	if name == "" && p.Type.Category == "exec" {
		if p.Direction == blueprint.Input {
			name = "In"
		} else {
			name = "Out"
		}
	}

	rec := entity.PinRecord{
		Name:      name,
		Direction: entity.Direction(p.Direction),
		Type:      describeType(p.Type),
		Tooltip:   stripTarget(p.Tooltip),
	}

	category := strings.ToLower(p.Type.Category)
	format, known := s.w.formatters[category]
	switch {
	case !known:
		placeholder := "<unsupported:" + p.Type.Category + ">"
		rec.Default = &placeholder
		s.warn(WarnUnsupportedPinType, node, "pin %q has unsupported type %q", name, p.Type.Category)
	case p.Default != nil:
		v, err := format(*p.Default, p.Type)
		if err != nil {
			v = *p.Default
			s.warn(WarnBadDefault, node, "pin %q default %q: %v", name, *p.Default, err)
		}
		if v != "" {
			rec.Default = &v
		}
	}

	for _, l := range p.Links {
		rec.Links = append(rec.Links, entity.PinLink{Node: entity.NodeID(graph, l.Node), Pin: l.Pin})
	}
	sort.Slice(rec.Links, func(i, j int) bool {
		if rec.Links[i].Node != rec.Links[j].Node {
			return rec.Links[i].Node < rec.Links[j].Node
		}
		return rec.Links[i].Pin < rec.Links[j].Pin
	})
	return rec
}

func classRef(name string) *entity.TypeReference {
	if name == "" {
		return nil
	}
	ref := entity.Pending(entity.ClassID(name))
	return &ref
}

func accessVerb(access string) string {
	switch access {
	case "get":
		return "Get"
	case "set":
		return "Set"
	}
	return ""
}

// stripTarget removes the editor's "Target is ..." suffix.
func stripTarget(s string) string {
	if i := strings.Index(s, targetMarker); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
