// Package entity defines the language-agnostic document model produced by the
// graph walker and consumed by the resolver, the thumbnail coordinator, and
// output sinks.
//
// # Identity
//
// Every documentable unit has an [ID] derived from its source path. Graphs are
// keyed by asset path, nodes by graph path plus node name, and classes by their
// display name:
//
//	g := entity.GraphID("/Game/BP_Hero")        // graph:/Game/BP_Hero
//	n := entity.NodeID(g, "K2Node_Event_0")     // node:/Game/BP_Hero#K2Node_Event_0
//	c := entity.ClassID("BP_Hero_C")            // class:BP_Hero
//
// Path components are NFC-normalized so that visually identical paths coming
// from different file systems produce identical IDs.
//
// # Records and Documents
//
// [GraphRecord] and [NodeRecord] are immutable values created by the walker.
// Anything that changes during a run (reference resolution, thumbnail state)
// lives on the [Document] assembled at emission time instead.
package entity
