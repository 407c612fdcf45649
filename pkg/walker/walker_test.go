package walker

import (
	"context"
	"fmt"
	"testing"

	"github.com/matzehuels/bpdoc/pkg/blueprint"
	"github.com/matzehuels/bpdoc/pkg/entity"
	"github.com/matzehuels/bpdoc/pkg/errors"
)

func event(id, name string, pins ...blueprint.Pin) blueprint.Node {
	return blueprint.Node{ID: id, Kind: blueprint.KindEvent, Event: &blueprint.EventPayload{Name: name}, Pins: pins}
}

func call(id, fn, owner string, pins ...blueprint.Pin) blueprint.Node {
	return blueprint.Node{ID: id, Kind: blueprint.KindFunction, Function: &blueprint.FunctionPayload{Name: fn, Owner: owner}, Pins: pins}
}

func composite(id string, sub blueprint.Handle, path string) blueprint.Node {
	return blueprint.Node{ID: id, Kind: blueprint.KindComposite, Composite: &blueprint.CompositePayload{Path: path, Graph: sub}}
}

func mustLink(t *testing.T, g *blueprint.Graph, from, fromPin, to, toPin string) {
	t.Helper()
	if err := g.Link(from, fromPin, to, toPin); err != nil {
		t.Fatal(err)
	}
}

func nodeNames(g entity.GraphRecord) []string {
	out := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		out[i] = n.Name
	}
	return out
}

func hasWarning(ws []Warning, code string) bool {
	for _, w := range ws {
		if w.Code == code {
			return true
		}
	}
	return false
}

func TestWalkCycleVisitsEachNodeOnce(t *testing.T) {
	g := blueprint.NewGraph("/Game/BP_Loop", "BP_Loop")
	g.AddNode(call("A", "Step", "", blueprint.ExecPin("execute", blueprint.Input), blueprint.ExecPin("then", blueprint.Output)))
	g.AddNode(call("B", "Step", "", blueprint.ExecPin("execute", blueprint.Input), blueprint.ExecPin("then", blueprint.Output)))
	g.AddNode(call("C", "Step", "", blueprint.ExecPin("execute", blueprint.Input), blueprint.ExecPin("then", blueprint.Output)))
	mustLink(t, g, "A", "then", "B", "execute")
	mustLink(t, g, "B", "then", "C", "execute")
	mustLink(t, g, "C", "then", "A", "execute")

	res, err := New(Options{}).Walk(context.Background(), g)
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}

	got := nodeNames(res.Graph)
	if len(got) != 3 || got[0] != "A" {
		t.Errorf("nodes = %v, want three nodes starting at A", got)
	}

	seen := map[entity.ID]int{}
	for _, n := range res.Graph.Nodes {
		seen[n.ID]++
	}
	for id, c := range seen {
		if c != 1 {
			t.Errorf("node %s visited %d times", id, c)
		}
	}
}

func TestWalkOrderFollowsLinks(t *testing.T) {
	g := blueprint.NewGraph("/Game/BP_Order", "BP_Order")
	g.AddNode(event("Begin", "BeginPlay", blueprint.ExecPin("then", blueprint.Output)))
	g.AddNode(call("Lonely", "Noop", ""))
	g.AddNode(call("Print", "PrintString", "KismetSystemLibrary", blueprint.ExecPin("execute", blueprint.Input)))
	mustLink(t, g, "Begin", "then", "Print", "execute")

	res, err := New(Options{}).Walk(context.Background(), g)
	if err != nil {
		t.Fatal(err)
	}
	got := fmt.Sprint(nodeNames(res.Graph))
	if got != "[Begin Print Lonely]" {
		t.Errorf("nodes = %s, want [Begin Print Lonely]", got)
	}
}

func TestWalkNodeRecords(t *testing.T) {
	g := blueprint.NewGraph("/Game/BP_Hero", "BP_Hero")
	g.Class = "BP_Hero_C"
	g.Parent = "Character"

	hidden := blueprint.DataPin("self", blueprint.Input, "object", "Actor")
	hidden.Hidden = true
	g.AddNode(blueprint.Node{
		ID:      "Print",
		Kind:    blueprint.KindFunction,
		Title:   "Print String\nTarget is Kismet System Library",
		Tooltip: "Prints a string to the log.\n\nTarget is Kismet System Library",
		Function: &blueprint.FunctionPayload{
			Name: "PrintString", Owner: "KismetSystemLibrary", Static: true,
		},
		Pins: []blueprint.Pin{
			blueprint.ExecPin("", blueprint.Input),
			blueprint.ExecPin("", blueprint.Output),
			hidden,
			blueprint.DataPin("InString", blueprint.Input, "string", "").WithDefault("Hello"),
			blueprint.DataPin("Door", blueprint.Input, "object", "BP_Door_C"),
		},
	})

	res, err := New(Options{}).Walk(context.Background(), g)
	if err != nil {
		t.Fatal(err)
	}

	gr := res.Graph
	if gr.ID != "graph:/Game/BP_Hero" || gr.Class != "BP_Hero" {
		t.Errorf("graph id/class = %s/%s", gr.ID, gr.Class)
	}
	if gr.ParentClass == nil || gr.ParentClass.Target != "class:Character" || !gr.ParentClass.IsPending() {
		t.Errorf("parent class = %+v", gr.ParentClass)
	}

	n := gr.Nodes[0]
	if n.ID != "node:/Game/BP_Hero#Print" || n.Graph != gr.ID {
		t.Errorf("node id = %s graph = %s", n.ID, n.Graph)
	}
	if n.Title != "Print String" {
		t.Errorf("Title = %q", n.Title)
	}
	if n.Tooltip != "Prints a string to the log." {
		t.Errorf("Tooltip = %q", n.Tooltip)
	}
	if len(n.Pins) != 4 {
		t.Fatalf("pins = %d, want 4 (hidden pin skipped)", len(n.Pins))
	}
	if n.Pins[0].Name != "In" || n.Pins[1].Name != "Out" {
		t.Errorf("exec pin names = %q, %q", n.Pins[0].Name, n.Pins[1].Name)
	}
	if n.Pins[2].Default == nil || *n.Pins[2].Default != "Hello" {
		t.Errorf("InString default = %v", n.Pins[2].Default)
	}
	door := n.Pins[3]
	if door.Type.Display != "BP_Door" || door.Type.Ref == nil || door.Type.Ref.Target != "class:BP_Door" {
		t.Errorf("Door type = %+v", door.Type)
	}
	if n.Function == nil || n.Function.Owner == nil || n.Function.Owner.Target != "class:KismetSystemLibrary" || !n.Function.Static {
		t.Errorf("function detail = %+v", n.Function)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}
}

func TestWalkDefaultFormatting(t *testing.T) {
	tests := []struct {
		category string
		sub      string
		raw      string
		want     string // "" means no default
		warning  string
	}{
		{"bool", "", "True", "true", ""},
		{"int", "", " 42", "42", ""},
		{"int", "", "abc", "abc", WarnBadDefault},
		{"int64", "", "9000000000", "9000000000", ""},
		{"float", "", "1.50", "1.5", ""},
		{"real", "", "x", "x", WarnBadDefault},
		{"byte", "", "255", "255", ""},
		{"byte", "ECollisionChannel", "ECC_Visibility", "ECC_Visibility", ""},
		{"text", "", `NSLOCTEXT("ns", "key", "Hello")`, "Hello", ""},
		{"object", "Actor", "None", "", ""},
		{"object", "StaticMesh", "/Game/Meshes/SM_Door.SM_Door", "SM_Door", ""},
		{"struct", "Vector", "(X=0,Y=0,Z=1)", "(X=0,Y=0,Z=1)", ""},
		{"exec", "", "ignored", "", ""},
		{"quaternion4d", "", "1", "<unsupported:quaternion4d>", WarnUnsupportedPinType},
	}

	for _, tt := range tests {
		t.Run(tt.category+"/"+tt.raw, func(t *testing.T) {
			g := blueprint.NewGraph("/Game/BP_Defaults", "")
			g.AddNode(call("N", "F", "", blueprint.DataPin("P", blueprint.Input, tt.category, tt.sub).WithDefault(tt.raw)))

			res, err := New(Options{}).Walk(context.Background(), g)
			if err != nil {
				t.Fatal(err)
			}
			pin := res.Graph.Nodes[0].Pins[0]
			got := ""
			if pin.Default != nil {
				got = *pin.Default
			}
			if got != tt.want {
				t.Errorf("default = %q, want %q", got, tt.want)
			}
			if tt.warning != "" && !hasWarning(res.Warnings, tt.warning) {
				t.Errorf("missing warning %s, got %v", tt.warning, res.Warnings)
			}
			if tt.warning == "" && len(res.Warnings) > 0 {
				t.Errorf("unexpected warnings %v", res.Warnings)
			}
		})
	}
}

func TestWalkCustomFormatter(t *testing.T) {
	g := blueprint.NewGraph("/Game/BP_Custom", "")
	g.AddNode(call("N", "F", "", blueprint.DataPin("P", blueprint.Input, "gameplaytag", "").WithDefault("Ability.Fire")))

	w := New(Options{Formatters: map[string]Formatter{
		"gameplaytag": func(raw string, _ blueprint.PinType) (string, error) { return "#" + raw, nil },
	}})
	res, err := w.Walk(context.Background(), g)
	if err != nil {
		t.Fatal(err)
	}
	if got := *res.Graph.Nodes[0].Pins[0].Default; got != "#Ability.Fire" {
		t.Errorf("default = %q", got)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings %v", res.Warnings)
	}
}

func TestWalkTypeContainers(t *testing.T) {
	tests := []struct {
		pin  blueprint.PinType
		want string
	}{
		{blueprint.PinType{Category: "int"}, "int"},
		{blueprint.PinType{Category: "object", SubCategoryObject: "BP_Enemy_C", Container: "array"}, "Array<BP_Enemy>"},
		{blueprint.PinType{Category: "name", Container: "set"}, "Set<name>"},
		{blueprint.PinType{Category: "struct", SubCategoryObject: "Vector", Container: "map"}, "Map<Vector>"},
	}
	for _, tt := range tests {
		if got := describeType(tt.pin).Display; got != tt.want {
			t.Errorf("describeType(%+v).Display = %q, want %q", tt.pin, got, tt.want)
		}
	}
	if describeType(blueprint.PinType{Category: "int"}).Ref != nil {
		t.Error("primitive pins should not carry references")
	}
}

func TestWalkSubGraphLinkedByReference(t *testing.T) {
	sub := blueprint.NewGraph("/Game/BP_Hero:Collapsed", "Collapsed")
	sub.AddNode(call("Inner", "Jump", "Character"))

	g := blueprint.NewGraph("/Game/BP_Hero", "BP_Hero")
	g.AddNode(composite("Collapsed", sub, ""))

	res, err := New(Options{}).Walk(context.Background(), g)
	if err != nil {
		t.Fatal(err)
	}

	if len(res.SubGraphs) != 1 {
		t.Fatalf("subgraphs = %d, want 1", len(res.SubGraphs))
	}
	sg := res.SubGraphs[0]
	if sg.ID != "graph:/Game/BP_Hero:Collapsed" || sg.Owner != res.Graph.ID || sg.Depth != 1 {
		t.Errorf("subgraph = id %s owner %s depth %d", sg.ID, sg.Owner, sg.Depth)
	}
	if len(res.Graph.SubGraphs) != 1 || res.Graph.SubGraphs[0] != sg.ID {
		t.Errorf("graph SubGraphs = %v", res.Graph.SubGraphs)
	}

	cn := res.Graph.Nodes[0]
	if cn.Composite == nil || cn.Composite.SubGraph.Target != sg.ID {
		t.Errorf("composite detail = %+v", cn.Composite)
	}
	// linked, not inlined
	if len(res.Graph.Nodes) != 1 {
		t.Errorf("parent graph should not inline sub-graph nodes: %v", nodeNames(res.Graph))
	}

	records := res.Records()
	if len(records) != 4 {
		t.Fatalf("Records() = %d, want 4", len(records))
	}
	if records[0].EntityID() != res.Graph.ID || records[2].EntityID() != sg.ID {
		t.Errorf("Records() order = %s, %s", records[0].EntityID(), records[2].EntityID())
	}
}

func TestWalkSelfReferentialSubGraph(t *testing.T) {
	a := blueprint.NewGraph("/Game/BP_A", "BP_A")
	s := blueprint.NewGraph("/Game/BP_A:Inner", "Inner")
	a.AddNode(composite("Inner", s, ""))
	s.AddNode(composite("BackToA", a, ""))

	res, err := New(Options{MaxDepth: 4}).Walk(context.Background(), a)
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if len(res.SubGraphs) != 1 {
		t.Errorf("subgraphs = %d, want 1", len(res.SubGraphs))
	}
	if !hasWarning(res.Warnings, WarnRecursiveSubGraph) {
		t.Errorf("expected %s warning, got %v", WarnRecursiveSubGraph, res.Warnings)
	}
	back := res.SubGraphs[0].Nodes[0]
	if back.Composite.SubGraph.Target != entity.GraphID(a.Path) {
		t.Errorf("back reference = %s", back.Composite.SubGraph.Target)
	}
}

// chain generates an endless sequence of distinct nested sub-graphs.
type chain struct{ n int }

func (c chain) AssetPath() string      { return fmt.Sprintf("/Game/Chain/L%d", c.n) }
func (c chain) Name() string           { return fmt.Sprintf("L%d", c.n) }
func (c chain) GeneratedClass() string { return "" }
func (c chain) ParentClass() string    { return "" }
func (c chain) Nodes() ([]blueprint.Node, error) {
	return []blueprint.Node{composite("Next", chain{c.n + 1}, "")}, nil
}

func TestWalkDepthBound(t *testing.T) {
	res, err := New(Options{MaxDepth: 3}).Walk(context.Background(), chain{})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if len(res.SubGraphs) != 3 {
		t.Errorf("subgraphs = %d, want 3", len(res.SubGraphs))
	}
	for _, sg := range res.SubGraphs {
		if sg.Depth > 3 {
			t.Errorf("subgraph %s depth %d exceeds bound", sg.ID, sg.Depth)
		}
	}
	if !hasWarning(res.Warnings, WarnDepthExceeded) {
		t.Errorf("expected %s warning, got %v", WarnDepthExceeded, res.Warnings)
	}
}

func TestWalkSharedSubGraphWalkedOnce(t *testing.T) {
	shared := blueprint.NewGraph("/Game/BP_A:Shared", "Shared")
	shared.AddNode(call("X", "F", ""))

	a := blueprint.NewGraph("/Game/BP_A", "BP_A")
	a.AddNode(composite("One", shared, ""))
	a.AddNode(composite("Two", shared, ""))

	res, err := New(Options{}).Walk(context.Background(), a)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.SubGraphs) != 1 || len(res.Graph.SubGraphs) != 1 {
		t.Errorf("shared sub-graph walked %d times, linked %d times", len(res.SubGraphs), len(res.Graph.SubGraphs))
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings %v", res.Warnings)
	}
}

func TestWalkUnloadedSubGraphIsLinkOnly(t *testing.T) {
	a := blueprint.NewGraph("/Game/BP_A", "BP_A")
	a.AddNode(composite("Elsewhere", nil, "/Game/BP_Other"))

	res, err := New(Options{}).Walk(context.Background(), a)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.SubGraphs) != 0 {
		t.Errorf("subgraphs = %d, want 0", len(res.SubGraphs))
	}
	if got := res.Graph.Nodes[0].Composite.SubGraph.Target; got != "graph:/Game/BP_Other" {
		t.Errorf("link target = %s", got)
	}
}

func TestWalkMalformed(t *testing.T) {
	dup := blueprint.NewGraph("/Game/BP_Dup", "")
	dup.AddNode(call("A", "F", "")).AddNode(call("A", "G", ""))

	danglingNode := blueprint.NewGraph("/Game/BP_Dangling", "")
	p := blueprint.ExecPin("then", blueprint.Output)
	p.Links = []blueprint.PinRef{{Node: "Ghost", Pin: "execute"}}
	danglingNode.AddNode(call("A", "F", "", p))

	danglingPin := blueprint.NewGraph("/Game/BP_DanglingPin", "")
	q := blueprint.ExecPin("then", blueprint.Output)
	q.Links = []blueprint.PinRef{{Node: "B", Pin: "nope"}}
	danglingPin.AddNode(call("A", "F", "", q)).AddNode(call("B", "G", ""))

	mismatch := blueprint.NewGraph("/Game/BP_Mismatch", "")
	mismatch.AddNode(blueprint.Node{ID: "A", Kind: blueprint.KindEvent, Function: &blueprint.FunctionPayload{}})

	brokenSub := blueprint.NewGraph("/Game/BP_Outer", "")
	brokenSub.AddNode(composite("Inner", blueprint.Broken("/Game/BP_Outer:Inner", fmt.Errorf("corrupt")), ""))

	tests := []struct {
		name string
		h    blueprint.Handle
	}{
		{"nil handle", nil},
		{"empty path", blueprint.NewGraph("", "x")},
		{"unreadable", blueprint.Broken("/Game/BP_Bad", fmt.Errorf("truncated package"))},
		{"duplicate node", dup},
		{"link to unknown node", danglingNode},
		{"link to unknown pin", danglingPin},
		{"payload mismatch", mismatch},
		{"broken sub-graph", brokenSub},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Options{}).Walk(context.Background(), tt.h)
			if err == nil {
				t.Fatal("Walk() error = nil, want MALFORMED_GRAPH")
			}
			if !errors.Is(err, errors.ErrCodeMalformedGraph) {
				t.Errorf("Walk() code = %v, want %v", errors.GetCode(err), errors.ErrCodeMalformedGraph)
			}
		})
	}
}

func TestWalkCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := blueprint.NewGraph("/Game/BP", "")
	g.AddNode(call("A", "F", ""))
	if _, err := New(Options{}).Walk(ctx, g); err != context.Canceled {
		t.Errorf("Walk() error = %v, want context.Canceled", err)
	}
}
