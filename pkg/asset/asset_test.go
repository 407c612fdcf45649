package asset

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/bpdoc/pkg/blueprint"
	"github.com/matzehuels/bpdoc/pkg/errors"
)

const heroYAML = `
path: /Game/BP_Hero
name: BP_Hero
class: BP_Hero_C
parent: Character
nodes:
  - id: Begin
    kind: event
    event: {name: BeginPlay}
    pins:
      - name: then
        dir: output
        type: {category: exec}
        links: [{node: Print, pin: execute}]
  - id: Print
    kind: function
    function: {name: PrintString, owner: KismetSystemLibrary, static: true}
    pins:
      - {name: execute, dir: in, type: {category: exec}, links: [{node: Begin, pin: then}]}
      - {name: InString, dir: in, type: {category: string}, default: "Hello"}
  - id: Collapsed
    kind: composite
    composite: {subgraph: Inner}
subgraphs:
  - name: Inner
    nodes:
      - id: Get
        kind: variable
        variable: {name: Health, owner: BP_Hero_C, access: get}
        pins:
          - {name: Health, dir: out, type: {category: float}}
`

const enemyJSON = `{
  "name": "BP_Enemy",
  "class": "BP_Enemy_C",
  "nodes": [
    {"id": "Tick", "kind": "event", "event": {"name": "Tick"}}
  ]
}`

func TestDecodeYAML(t *testing.T) {
	h := Decode("BP_Hero.bp.yaml", []byte(heroYAML))
	require.Equal(t, "/Game/BP_Hero", h.AssetPath())
	require.Equal(t, "BP_Hero", h.Name())
	require.Equal(t, "BP_Hero_C", h.GeneratedClass())
	require.Equal(t, "Character", h.ParentClass())

	nodes, err := h.Nodes()
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	begin := nodes[0]
	require.Equal(t, blueprint.KindEvent, begin.Kind)
	require.Equal(t, "BeginPlay", begin.Event.Name)
	require.Equal(t, []blueprint.PinRef{{Node: "Print", Pin: "execute"}}, begin.Pins[0].Links)

	call := nodes[1]
	require.NoError(t, call.Validate())
	require.True(t, call.Function.Static)
	require.Equal(t, blueprint.Input, call.Pins[1].Direction)
	require.NotNil(t, call.Pins[1].Default)
	require.Equal(t, "Hello", *call.Pins[1].Default)

	comp := nodes[2]
	require.NoError(t, comp.Validate())
	require.Equal(t, "/Game/BP_Hero:Inner", comp.Composite.SubGraphPath())

	inner, err := comp.Composite.Graph.Nodes()
	require.NoError(t, err)
	require.Len(t, inner, 1)
	require.Equal(t, "Health", inner[0].Variable.Name)
	require.Equal(t, blueprint.Output, inner[0].Pins[0].Direction)
}

func TestDecodeJSONFallbackPath(t *testing.T) {
	h := Decode("Enemies/BP_Enemy.bp.json", []byte(enemyJSON))
	require.Equal(t, "/Enemies/BP_Enemy", h.AssetPath())

	nodes, err := h.Nodes()
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	require.Equal(t, "Tick", nodes[0].Event.Name)
}

func TestDecodeBroken(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
	}{
		{"syntax", "a.bp.yaml", "nodes: [unclosed"},
		{"empty", "a.bp.yaml", ""},
		{"unknown field", "a.bp.yaml", "bogus: 1"},
		{"bad json", "a.bp.json", "{"},
		{"bad direction", "a.bp.yaml", "nodes:\n  - id: X\n    kind: event\n    event: {name: X}\n    pins: [{name: p, dir: sideways}]"},
		{"unknown subgraph", "a.bp.yaml", "nodes:\n  - id: C\n    kind: composite\n    composite: {subgraph: Missing}"},
		{"duplicate subgraph", "a.bp.yaml", "subgraphs: [{name: S}, {name: S}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Decode(tt.file, []byte(tt.data))
			require.Equal(t, "/a", h.AssetPath())
			_, err := h.Nodes()
			require.Error(t, err)
			require.True(t, errors.Is(err, errors.ErrCodeMalformedGraph))
		})
	}
}

func TestAssetPath(t *testing.T) {
	tests := map[string]string{
		"BP_Hero.bp.yaml":          "/BP_Hero",
		"Game/Chars/BP_Hero.BP.YML": "/Game/Chars/BP_Hero",
		"./x.bp.json":              "/x",
		"/abs/y.bp.yaml":           "/abs/y",
	}
	for in, want := range tests {
		require.Equal(t, want, AssetPath(in), in)
	}
}

func TestLoaderEnumerate(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/assets/Game/BP_Hero.bp.yaml", []byte(heroYAML), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/assets/Enemies/BP_Enemy.bp.json", []byte(enemyJSON), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/assets/Broken.bp.yml", []byte("::"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/assets/README.md", []byte("ignored"), 0o644))

	en, err := NewLoader(fs, nil).Enumerate("/assets")
	require.NoError(t, err)
	require.Equal(t, []string{
		"/assets/Broken.bp.yml",
		"/assets/Enemies/BP_Enemy.bp.json",
		"/assets/Game/BP_Hero.bp.yaml",
	}, en.Files())

	var paths []string
	var broken int
	for en.HasNext() {
		h, err := en.Next()
		require.NoError(t, err)
		paths = append(paths, h.AssetPath())
		if _, err := h.Nodes(); err != nil {
			broken++
		}
	}
	require.Equal(t, []string{"/Broken", "/Enemies/BP_Enemy", "/Game/BP_Hero"}, paths)
	require.Equal(t, 1, broken)

	_, err = en.Next()
	require.True(t, errors.Is(err, errors.ErrCodeEnumeratorFailed))
}

func TestLoaderSingleFileAndDedup(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a/Enemy.bp.json", []byte(enemyJSON), 0o644))

	en, err := NewLoader(fs, nil).Enumerate("/a/Enemy.bp.json", "/a")
	require.NoError(t, err)
	require.Len(t, en.Files(), 1)

	h, err := en.Next()
	require.NoError(t, err)
	require.Equal(t, "/Enemy", h.AssetPath())
}

func TestLoaderErrors(t *testing.T) {
	_, err := NewLoader(afero.NewMemMapFs(), nil).Enumerate()
	require.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	_, err = NewLoader(afero.NewMemMapFs(), nil).Enumerate("/missing")
	require.True(t, errors.Is(err, errors.ErrCodeEnumeratorFailed))
}

func TestSliceEnumerator(t *testing.T) {
	a := blueprint.NewGraph("/A", "A")
	b := blueprint.NewGraph("/B", "B")
	en := NewSliceEnumerator(a, b)

	var got []string
	for en.HasNext() {
		h, err := en.Next()
		require.NoError(t, err)
		got = append(got, h.AssetPath())
	}
	require.Equal(t, []string{"/A", "/B"}, got)
	_, err := en.Next()
	require.Error(t, err)
}
