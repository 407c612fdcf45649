package sink

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"path"
	"strings"

	"github.com/matzehuels/bpdoc/pkg/entity"
	"github.com/matzehuels/bpdoc/pkg/errors"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatHTML = "html"
	FormatBoth = "both"
)

// Encoder serializes documents.
type Encoder interface {
	// Ext is the file extension without the dot.
	Ext() string
	Encode(w io.Writer, doc *entity.Document) error
}

// EncodersFor returns the encoders for an output format.
func EncodersFor(format string) ([]Encoder, error) {
	switch format {
	case FormatJSON:
		return []Encoder{JSONEncoder{}}, nil
	case FormatHTML:
		return []Encoder{NewHTMLEncoder()}, nil
	case FormatBoth:
		return []Encoder{JSONEncoder{}, NewHTMLEncoder()}, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown output format %q", format)
}

// JSONEncoder writes indented JSON with a trailing newline.
type JSONEncoder struct{}

func (JSONEncoder) Ext() string { return FormatJSON }

func (JSONEncoder) Encode(w io.Writer, doc *entity.Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

//go:embed templates/*.html
var templateFS embed.FS

// HTMLEncoder renders documents as standalone pages that link to each other
// using the [DocumentPath] layout.
type HTMLEncoder struct {
	tmpl *template.Template
}

// NewHTMLEncoder parses the embedded page templates.
func NewHTMLEncoder() *HTMLEncoder {
	funcs := template.FuncMap{
		"href":  href,
		"asset": asset,
		"slug":  func(id entity.ID) string { return id.Slug() },
	}
	return &HTMLEncoder{
		tmpl: template.Must(template.New("pages").Funcs(funcs).ParseFS(templateFS, "templates/*.html")),
	}
}

func (e *HTMLEncoder) Ext() string { return FormatHTML }

func (e *HTMLEncoder) Encode(w io.Writer, doc *entity.Document) error {
	name := string(doc.Kind)
	if err := e.tmpl.ExecuteTemplate(w, name, doc); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	return nil
}

// rootPrefix is the relative path from the document of id back to the root.
func rootPrefix(from entity.ID) string {
	if from == entity.IndexID {
		return ""
	}
	return strings.Repeat("../", strings.Count(DocumentPath(from, FormatHTML), "/"))
}

// href links from one document to another.
func href(from, to entity.ID) string {
	return rootPrefix(from) + DocumentPath(to, FormatHTML)
}

// asset links from a document to a root-relative file such as a thumbnail.
func asset(from entity.ID, p string) string {
	return rootPrefix(from) + path.Clean(p)
}
