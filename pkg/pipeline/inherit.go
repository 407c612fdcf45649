package pipeline

import (
	"github.com/matzehuels/bpdoc/pkg/entity"
)

// parentField is the reference path of a graph's parent class.
const parentField = "parent_class"

// buildLineage records, for every graph that declares a parent class, its
// superclass chain and the root graph of every sub-graph. Must run after
// resolution.
func (g *run) buildLineage() {
	parents := make(map[entity.ID]entity.TypeReference)
	g.owners = make(map[entity.ID]entity.ID)
	for _, rec := range g.records {
		gr, ok := rec.(entity.GraphRecord)
		if !ok {
			continue
		}
		if gr.Owner != "" {
			g.owners[gr.ID] = gr.Owner
		}
		for _, fr := range g.final[gr.ID] {
			if fr.Field == parentField {
				parents[gr.ID] = fr.Ref
			}
		}
	}

	g.ancestors = make(map[entity.ID][]entity.TypeReference, len(parents))
	for id := range parents {
		g.ancestors[id] = ancestorChain(id, parents)
	}
}

// ancestorChain follows resolved parents from id, nearest first. It ends
// after the first parent that did not resolve to a documented graph, or
// before a graph already in the chain.
func ancestorChain(id entity.ID, parents map[entity.ID]entity.TypeReference) []entity.TypeReference {
	seen := map[entity.ID]bool{id: true}
	var chain []entity.TypeReference
	ref, ok := parents[id]
	for ok {
		if ref.State == entity.RefResolved && seen[ref.Entity] {
			break
		}
		chain = append(chain, ref)
		if ref.State != entity.RefResolved {
			break
		}
		seen[ref.Entity] = true
		ref, ok = parents[ref.Entity]
	}
	return chain
}

// rootGraph returns the top-level graph a graph is nested in.
func (g *run) rootGraph(id entity.ID) entity.ID {
	for depth := 0; depth <= len(g.owners); depth++ {
		owner, ok := g.owners[id]
		if !ok {
			break
		}
		id = owner
	}
	return id
}

// inherited reports whether the function owner of n is an ancestor class of
// the blueprint n belongs to.
func (g *run) inherited(n entity.NodeRecord) bool {
	if n.Function == nil || n.Function.Owner == nil || n.Function.Owner.State != entity.RefResolved {
		return false
	}
	for _, a := range g.ancestors[g.rootGraph(n.Graph)] {
		if a.State == entity.RefResolved && a.Entity == n.Function.Owner.Entity {
			return true
		}
	}
	return false
}

// visibleAncestors drops out-of-corpus classes unless documents keep them.
func (g *run) visibleAncestors(id entity.ID) []entity.TypeReference {
	var out []entity.TypeReference
	for _, a := range g.ancestors[id] {
		if g.hidden(a) {
			continue
		}
		out = append(out, a)
	}
	return out
}
