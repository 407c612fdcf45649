package asset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/bpdoc/pkg/blueprint"
	"github.com/matzehuels/bpdoc/pkg/errors"
)

// Extensions recognized by the loader.
var Extensions = []string{".bp.yaml", ".bp.yml", ".bp.json"}

// Match reports whether name is a blueprint asset file.
func Match(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range Extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// ReadYAML decodes one asset file in YAML form. JSON input is accepted too.
func ReadYAML(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("decode: empty document")
		}
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &f, nil
}

// ReadJSON decodes one asset file in JSON form.
func ReadJSON(r io.Reader) (*File, error) {
	var f File
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &f, nil
}

// Decode parses data read from name into a handle. Files that cannot be
// parsed become broken handles, so one bad asset never stops a run.
func Decode(name string, data []byte) blueprint.Handle {
	fallback := AssetPath(name)

	var (
		f   *File
		err error
	)
	if strings.HasSuffix(strings.ToLower(name), ".json") {
		f, err = ReadJSON(bytes.NewReader(data))
	} else {
		f, err = ReadYAML(bytes.NewReader(data))
	}
	if err != nil {
		return blueprint.Broken(fallback, errors.Wrap(errors.ErrCodeMalformedGraph, err, "%s", name))
	}

	g, err := f.Graph(fallback)
	if err != nil {
		return blueprint.Broken(fallback, errors.Wrap(errors.ErrCodeMalformedGraph, err, "%s", name))
	}
	return g
}

// AssetPath derives an asset path from a file name: the asset extension is
// dropped and the path is made absolute with forward slashes.
func AssetPath(name string) string {
	p := filepath.ToSlash(name)
	lower := strings.ToLower(p)
	for _, ext := range Extensions {
		if strings.HasSuffix(lower, ext) {
			p = p[:len(p)-len(ext)]
			break
		}
	}
	return "/" + strings.TrimLeft(p, "/.")
}

// Loader finds asset files on a file system.
type Loader struct {
	fs     afero.Fs
	logger *log.Logger
}

// NewLoader returns a loader reading from fs. A nil fs means the OS file
// system.
func NewLoader(fs afero.Fs, logger *log.Logger) *Loader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Loader{fs: fs, logger: logger}
}

// Enumerate lists the asset files under roots, which may be files or
// directories. Files are visited in lexical path order. Decoding is deferred
// to [FileEnumerator.Next].
func (l *Loader) Enumerate(roots ...string) (*FileEnumerator, error) {
	if len(roots) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no asset roots given")
	}

	seen := make(map[string]bool)
	var files []string
	for _, root := range roots {
		info, err := l.fs.Stat(root)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeEnumeratorFailed, err, "stat %s", root)
		}
		if !info.IsDir() {
			if !seen[root] {
				seen[root] = true
				files = append(files, root)
			}
			continue
		}
		err = afero.Walk(l.fs, root, func(p string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if fi.IsDir() || !Match(fi.Name()) || seen[p] {
				return nil
			}
			seen[p] = true
			files = append(files, p)
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeEnumeratorFailed, err, "walk %s", root)
		}
	}
	sort.Strings(files)
	l.logger.Debug("assets enumerated", "roots", len(roots), "files", len(files))

	return &FileEnumerator{loader: l, files: files, roots: roots}, nil
}

// FileEnumerator yields one handle per asset file.
type FileEnumerator struct {
	loader *Loader
	roots  []string
	files  []string
	next   int
}

// HasNext reports whether Next has another handle.
func (e *FileEnumerator) HasNext() bool { return e.next < len(e.files) }

// Next reads and decodes the next file. Read failures are returned as
// ENUMERATOR_FAILED; parse failures produce a broken handle instead.
func (e *FileEnumerator) Next() (blueprint.Handle, error) {
	if !e.HasNext() {
		return nil, errors.New(errors.ErrCodeEnumeratorFailed, "enumerator exhausted")
	}
	name := e.files[e.next]
	e.next++

	data, err := afero.ReadFile(e.loader.fs, name)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeEnumeratorFailed, err, "read %s", name)
	}
	return Decode(e.relative(name), data), nil
}

// Files returns the files the enumerator visits.
func (e *FileEnumerator) Files() []string {
	out := make([]string, len(e.files))
	copy(out, e.files)
	return out
}

func (e *FileEnumerator) relative(name string) string {
	for _, root := range e.roots {
		if rel, err := filepath.Rel(root, name); err == nil && !strings.HasPrefix(rel, "..") && rel != "." {
			return rel
		}
	}
	return filepath.Base(name)
}

// SliceEnumerator yields a fixed list of handles.
type SliceEnumerator struct {
	handles []blueprint.Handle
	next    int
}

// NewSliceEnumerator returns an enumerator over hs in the given order.
func NewSliceEnumerator(hs ...blueprint.Handle) *SliceEnumerator {
	return &SliceEnumerator{handles: hs}
}

// HasNext reports whether Next has another handle.
func (e *SliceEnumerator) HasNext() bool { return e.next < len(e.handles) }

// Next returns the next handle.
func (e *SliceEnumerator) Next() (blueprint.Handle, error) {
	if !e.HasNext() {
		return nil, errors.New(errors.ErrCodeEnumeratorFailed, "enumerator exhausted")
	}
	h := e.handles[e.next]
	e.next++
	return h, nil
}
