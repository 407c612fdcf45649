// Package sink writes generated documents.
//
// A [Sink] receives each entity [entity.Document] exactly once per run.
// Sinks that can store binary thumbnails also implement [ImageWriter]; the
// pipeline writes a document's image first and records the returned path in
// the document.
//
// Three sinks are provided: [FileSink] writes a static site tree to any
// afero file system, [MongoSink] stores documents in MongoDB, and [Memory]
// keeps everything in memory for tests.
package sink

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/matzehuels/bpdoc/pkg/entity"
)

// ErrAlreadyWritten is returned when a document ID is written twice in one run.
var ErrAlreadyWritten = errors.New("document already written")

// Sink receives documents.
type Sink interface {
	WriteDocument(ctx context.Context, id entity.ID, doc *entity.Document) error
}

// ImageWriter stores thumbnail images and returns their location relative to
// the documentation root.
type ImageWriter interface {
	WriteImage(ctx context.Context, id entity.ID, img *entity.Image) (string, error)
}

// Destination is implemented by sinks that can name where they write. The
// name is stable across runs and changes with the output location and
// format.
type Destination interface {
	Destination() string
}

// Checker is implemented by sinks that can tell whether a document written
// by an earlier run is still present.
type Checker interface {
	HasDocument(ctx context.Context, id entity.ID) (bool, error)
}

// DestinationOf returns the destination name of s, or its type name when s
// does not implement [Destination].
func DestinationOf(s Sink) string {
	if d, ok := s.(Destination); ok {
		return d.Destination()
	}
	return fmt.Sprintf("%T", s)
}

// DocumentPath returns the slash-separated location of a document relative
// to the documentation root: "<kind>/<slug>.<ext>", or "index.<ext>".
func DocumentPath(id entity.ID, ext string) string {
	if id == entity.IndexID {
		return "index." + ext
	}
	return path.Join(string(id.Kind()), id.Slug()+"."+ext)
}

// ImagePath returns the location of an entity's thumbnail.
func ImagePath(id entity.ID, format string) string {
	return path.Join("img", id.Slug()+"."+format)
}
