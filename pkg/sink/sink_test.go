package sink

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/bpdoc/pkg/entity"
	"github.com/matzehuels/bpdoc/pkg/errors"
)

const nodeID = entity.ID("node:/Game/BP_Hero#Print")

func nodeDocument() *entity.Document {
	def := "Hello"
	owner := entity.Pending(entity.ClassID("KismetSystemLibrary")).External(entity.ReasonOutOfCorpus)
	return &entity.Document{
		ID:    nodeID,
		Kind:  entity.KindNode,
		Title: "Hero Docs",
		RunID: "run-1",
		Node: &entity.NodeRecord{
			ID:    nodeID,
			Graph: entity.GraphID("/Game/BP_Hero"),
			Name:  "Print",
			Kind:  entity.NodeFunction,
			Title: "Print String",
			Pins: []entity.PinRecord{{
				Name:      "InString",
				Direction: entity.Input,
				Type:      entity.TypeDescriptor{Category: "string", Display: "string"},
				Default:   &def,
			}},
			Function: &entity.FunctionDetail{Name: "PrintString", Owner: &owner},
		},
		References: []entity.FieldRef{{Field: "function.owner", Ref: owner}},
		Thumbnail: &entity.ThumbnailRef{
			Entity: nodeID,
			State:  entity.ThumbReady,
			Image:  &entity.Image{Format: "png", Width: 120, Height: 48, Path: "img/x.png", Data: []byte("x")},
		},
	}
}

func TestJSONEncoderGolden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSONEncoder{}.Encode(&buf, nodeDocument()))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "node_document", buf.Bytes())
}

func TestHTMLEncoder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewHTMLEncoder().Encode(&buf, nodeDocument()))
	out := buf.String()

	for _, want := range []string{
		"<h1>Print String</h1>",
		`href="../index.html"`,
		`src="../img/x.png"`,
		"<code>Hello</code>",
		"out-of-corpus",
		`href="../graph/` + entity.GraphID("/Game/BP_Hero").Slug() + `.html"`,
	} {
		require.Contains(t, out, want)
	}
}

func TestHTMLEncoderIndex(t *testing.T) {
	doc := &entity.Document{
		ID: entity.IndexID, Kind: entity.KindIndex, Title: "Hero Docs",
		Index: &entity.Index{
			Entities: []entity.IndexEntry{{ID: entity.GraphID("/Game/BP_Hero"), Kind: entity.KindGraph, Name: "BP_Hero"}},
			Assets:   []entity.AssetSummary{{Path: "/Game/BP_Bad", Status: entity.AssetSkipped, Error: "MALFORMED_GRAPH"}},
			Counts:   entity.Counts{Assets: 2, Successful: 1, Skipped: 1},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, NewHTMLEncoder().Encode(&buf, doc))
	out := buf.String()
	require.Contains(t, out, `href="graph/`+entity.GraphID("/Game/BP_Hero").Slug()+`.html"`)
	require.Contains(t, out, "1 of 2 assets documented")
	require.Contains(t, out, "/Game/BP_Bad")
}

func TestHTMLEncoderMissingThumbnail(t *testing.T) {
	doc := nodeDocument()
	doc.Thumbnail = &entity.ThumbnailRef{Entity: nodeID, State: entity.ThumbTimedOut, Reason: "no thumbnail after 5s"}
	doc.MissingThumbnail = true

	var buf bytes.Buffer
	require.NoError(t, NewHTMLEncoder().Encode(&buf, doc))
	require.Contains(t, buf.String(), "No thumbnail: no thumbnail after 5s")
	require.NotContains(t, buf.String(), "<img")
}

func TestHTMLEncoderInheritance(t *testing.T) {
	base := entity.GraphID("/Game/BP_Base")
	parent := entity.Pending(entity.ClassID("BP_Base_C")).Resolved(base)
	graph := &entity.Document{
		ID: entity.GraphID("/Game/BP_Hero"), Kind: entity.KindGraph, Title: "Hero Docs",
		Graph: &entity.GraphRecord{
			ID:          entity.GraphID("/Game/BP_Hero"),
			Name:        "BP_Hero",
			ParentClass: &parent,
			Ancestors:   []entity.TypeReference{parent, entity.Pending(entity.ClassID("Actor")).External(entity.ReasonOutOfCorpus)},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, NewHTMLEncoder().Encode(&buf, graph))
	require.Contains(t, buf.String(), `extends <a href="../graph/`+base.Slug()+`.html">class:BP_Base</a> &rarr; class:Actor`)

	node := nodeDocument()
	node.Node.Function.Inherited = true
	buf.Reset()
	require.NoError(t, NewHTMLEncoder().Encode(&buf, node))
	require.Contains(t, buf.String(), "inherited from class:KismetSystemLibrary")
}

func TestFileSinkPresence(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	both, err := EncodersFor(FormatBoth)
	require.NoError(t, err)
	s, err := NewFileSink(fs, "/out", both)
	require.NoError(t, err)
	jsonOnly, err := NewFileSink(fs, "/out", nil)
	require.NoError(t, err)
	require.NotEqual(t, s.Destination(), jsonOnly.Destination())

	ok, err := s.HasDocument(ctx, nodeID)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, jsonOnly.WriteDocument(ctx, nodeID, nodeDocument()))
	ok, _ = s.HasDocument(ctx, nodeID)
	require.False(t, ok, "html file is missing")
	ok, _ = jsonOnly.HasDocument(ctx, nodeID)
	require.True(t, ok)

	require.NoError(t, jsonOnly.Clean())
	ok, _ = jsonOnly.HasDocument(ctx, nodeID)
	require.False(t, ok)
}

func TestDestinationOf(t *testing.T) {
	require.Equal(t, "memory", DestinationOf(NewMemory()))
	require.Equal(t, "memory:a", DestinationOf(&Memory{Key: "a"}))
}

func TestEncodersFor(t *testing.T) {
	tests := []struct {
		format string
		exts   []string
	}{
		{FormatJSON, []string{"json"}},
		{FormatHTML, []string{"html"}},
		{FormatBoth, []string{"json", "html"}},
	}
	for _, tt := range tests {
		encs, err := EncodersFor(tt.format)
		require.NoError(t, err)
		var exts []string
		for _, e := range encs {
			exts = append(exts, e.Ext())
		}
		require.Equal(t, tt.exts, exts)
	}

	_, err := EncodersFor("pdf")
	require.True(t, errors.Is(err, errors.ErrCodeInvalidFormat))
}

func TestDocumentPath(t *testing.T) {
	require.Equal(t, "index.json", DocumentPath(entity.IndexID, "json"))

	g := entity.GraphID("/Game/BP_Hero")
	require.Equal(t, "graph/"+g.Slug()+".html", DocumentPath(g, "html"))
	require.Equal(t, "img/"+g.Slug()+".png", ImagePath(g, "png"))
}

func TestFileSink(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	encs, _ := EncodersFor(FormatBoth)
	s, err := NewFileSink(fs, "/out", encs)
	require.NoError(t, err)

	doc := nodeDocument()
	p, err := s.WriteImage(ctx, nodeID, doc.Thumbnail.Image)
	require.NoError(t, err)
	require.Equal(t, ImagePath(nodeID, "png"), p)

	require.NoError(t, s.WriteDocument(ctx, nodeID, doc))
	for _, ext := range []string{"json", "html"} {
		ok, _ := afero.Exists(fs, "/out/"+DocumentPath(nodeID, ext))
		require.True(t, ok, "missing %s output", ext)
	}
	img, err := afero.ReadFile(fs, "/out/"+p)
	require.NoError(t, err)
	require.Equal(t, []byte("x"), img)

	require.ErrorIs(t, s.WriteDocument(ctx, nodeID, doc), ErrAlreadyWritten)
}

func TestFileSinkUnwritable(t *testing.T) {
	s, err := NewFileSink(afero.NewMemMapFs(), "/out", nil)
	require.NoError(t, err)
	s.fs = afero.NewReadOnlyFs(s.fs)

	err = s.WriteDocument(context.Background(), nodeID, nodeDocument())
	require.True(t, errors.Is(err, errors.ErrCodeSinkUnavailable), "got %v", err)
	require.True(t, errors.IsRunFatal(err))
}

func TestFileSinkRejectsOutputDir(t *testing.T) {
	_, err := NewFileSink(afero.NewMemMapFs(), "/", nil)
	require.Error(t, err)
}

func TestFileSinkClean(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, _ := NewFileSink(fs, "/out", nil)
	require.NoError(t, afero.WriteFile(fs, "/out/graph/stale.json", []byte("{}"), 0o644))

	require.NoError(t, s.Clean())
	entries, _ := afero.ReadDir(fs, "/out")
	require.Empty(t, entries)
	ok, _ := afero.DirExists(fs, "/out")
	require.True(t, ok)
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.FailAfter = 2

	for _, id := range []entity.ID{"graph:/a", "graph:/b"} {
		require.NoError(t, m.WriteDocument(ctx, id, &entity.Document{ID: id}))
	}
	require.ErrorIs(t, m.WriteDocument(ctx, "graph:/a", &entity.Document{}), ErrAlreadyWritten)
	err := m.WriteDocument(ctx, "graph:/c", &entity.Document{})
	require.True(t, errors.Is(err, errors.ErrCodeSinkUnavailable))
	require.Equal(t, []entity.ID{"graph:/a", "graph:/b"}, m.IDs())
}

func TestMongoSink(t *testing.T) {
	uri := os.Getenv("BPDOC_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("BPDOC_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	db := "bpdoc_test_" + strings.ToLower(strings.ReplaceAll(t.Name(), "/", "_"))
	s, err := NewMongoSink(ctx, uri, db)
	require.NoError(t, err)
	defer func() {
		_ = s.client.Database(db).Drop(ctx)
		_ = s.Close(ctx)
	}()

	doc := nodeDocument()
	p, err := s.WriteImage(ctx, nodeID, doc.Thumbnail.Image)
	require.NoError(t, err)
	require.Equal(t, ImagePath(nodeID, "png"), p)

	require.NoError(t, s.WriteDocument(ctx, nodeID, doc))
	require.ErrorIs(t, s.WriteDocument(ctx, nodeID, doc), ErrAlreadyWritten)

	var stored mongoDocument
	require.NoError(t, s.docs.FindOne(ctx, map[string]any{"_id": string(nodeID)}).Decode(&stored))
	require.Equal(t, "node", stored.Kind)
	require.Equal(t, "Hero Docs", stored.Body["title"])
}
