package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ID identifies a documented entity. IDs are derived only from source paths,
// so the same asset produces the same ID on every run.
//
// The textual form is "<kind>:<path>", for example:
//
//	graph:/Game/Characters/BP_Hero
//	node:/Game/Characters/BP_Hero#K2Node_Event_0
//	class:Character
type ID string

// Kind is the category of a documented entity.
type Kind string

// Entity kinds.
const (
	KindGraph Kind = "graph"
	KindNode  Kind = "node"
	KindClass Kind = "class"
	KindIndex Kind = "index"
)

// IndexID is the ID of the aggregate index document.
const IndexID ID = "index"

const nodeSep = "#"

// GraphID returns the ID of the graph stored at assetPath.
func GraphID(assetPath string) ID {
	return ID(string(KindGraph) + ":" + clean(assetPath))
}

// NodeID returns the ID of the named node inside graph.
func NodeID(graph ID, nodeName string) ID {
	return ID(string(KindNode) + ":" + graph.Path() + nodeSep + clean(nodeName))
}

// ClassID returns the ID of a class, struct, or enum type. Generated class
// names are reduced to their display form first, so "SKEL_BP_Hero_C",
// "BP_Hero_C" and "BP_Hero" all map to "class:BP_Hero".
func ClassID(name string) ID {
	return ID(string(KindClass) + ":" + DisplayClassName(clean(name)))
}

// DisplayClassName strips the generated-class decorations the engine adds to
// blueprint class names.
func DisplayClassName(name string) string {
	name = strings.TrimPrefix(name, "SKEL_")
	name = strings.TrimSuffix(name, "_C")
	return name
}

func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Kind returns the kind prefix of the ID.
func (id ID) Kind() Kind {
	if id == IndexID {
		return KindIndex
	}
	k, _, ok := strings.Cut(string(id), ":")
	if !ok {
		return ""
	}
	return Kind(k)
}

// Path returns the ID without its kind prefix.
func (id ID) Path() string {
	_, p, ok := strings.Cut(string(id), ":")
	if !ok {
		return string(id)
	}
	return p
}

// Graph returns the owning graph ID of a node ID, or the ID itself for graphs.
func (id ID) Graph() ID {
	switch id.Kind() {
	case KindGraph:
		return id
	case KindNode:
		p, _, _ := strings.Cut(id.Path(), nodeSep)
		return ID(string(KindGraph) + ":" + p)
	}
	return ""
}

// String implements fmt.Stringer.
func (id ID) String() string { return string(id) }

// Slug returns a file-system safe name for the entity. The readable part is
// truncated and suffixed with a short content hash, so distinct IDs never
// share a slug even when sanitization collapses them.
func (id ID) Slug() string {
	if id == IndexID {
		return "index"
	}

	var b strings.Builder
	for _, r := range id.Path() {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	readable := strings.Trim(b.String(), "_")
	if len(readable) > 80 {
		readable = readable[len(readable)-80:]
	}

	sum := sha256.Sum256([]byte(id))
	return readable + "-" + hex.EncodeToString(sum[:4])
}
