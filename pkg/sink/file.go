package sink

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/matzehuels/bpdoc/pkg/entity"
	"github.com/matzehuels/bpdoc/pkg/errors"
)

// FileSink writes a documentation tree below a directory:
//
//	index.json
//	graph/<slug>.json
//	node/<slug>.json
//	img/<slug>.png
//
// with one file per encoder for each document.
type FileSink struct {
	fs       afero.Fs
	dir      string
	encoders []Encoder
	logger   *log.Logger

	mu      sync.Mutex
	written map[entity.ID]bool
}

// FileOption configures a FileSink.
type FileOption func(*FileSink)

// WithLogger sets the sink logger.
func WithLogger(l *log.Logger) FileOption {
	return func(s *FileSink) { s.logger = l }
}

// NewFileSink creates dir on fs and returns a sink writing into it. Without
// encoders, documents are written as JSON.
func NewFileSink(fs afero.Fs, dir string, encoders []Encoder, opts ...FileOption) (*FileSink, error) {
	if err := errors.ValidateOutputDir(dir); err != nil {
		return nil, err
	}
	if len(encoders) == 0 {
		encoders = []Encoder{JSONEncoder{}}
	}
	s := &FileSink{
		fs:       fs,
		dir:      dir,
		encoders: encoders,
		logger:   log.NewWithOptions(io.Discard, log.Options{}),
		written:  make(map[entity.ID]bool),
	}
	for _, o := range opts {
		o(s)
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeSinkUnavailable, err, "create output directory")
	}
	return s, nil
}

// Dir returns the output directory.
func (s *FileSink) Dir() string { return s.dir }

// Destination names the output directory and the formats written into it.
func (s *FileSink) Destination() string {
	dir, err := filepath.Abs(s.dir)
	if err != nil {
		dir = filepath.Clean(s.dir)
	}
	exts := make([]string, len(s.encoders))
	for i, enc := range s.encoders {
		exts[i] = enc.Ext()
	}
	return "file:" + filepath.ToSlash(dir) + ":" + strings.Join(exts, "+")
}

// HasDocument reports whether every encoded file of id exists.
func (s *FileSink) HasDocument(ctx context.Context, id entity.ID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	for _, enc := range s.encoders {
		p := filepath.Join(s.dir, filepath.FromSlash(DocumentPath(id, enc.Ext())))
		ok, err := afero.Exists(s.fs, p)
		if err != nil {
			return false, errors.Wrap(errors.ErrCodeSinkUnavailable, err, "stat %s", p)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// WriteDocument encodes doc with every encoder.
func (s *FileSink) WriteDocument(ctx context.Context, id entity.ID, doc *entity.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.claim(id) {
		return ErrAlreadyWritten
	}

	for _, enc := range s.encoders {
		var buf bytes.Buffer
		if err := enc.Encode(&buf, doc); err != nil {
			return errors.Wrap(errors.ErrCodeSinkUnavailable, err, "encode %s", id)
		}
		if err := s.write(DocumentPath(id, enc.Ext()), buf.Bytes()); err != nil {
			return err
		}
	}
	s.logger.Debug("wrote document", "id", id)
	return nil
}

// WriteImage stores img below img/ and returns its root-relative path.
func (s *FileSink) WriteImage(ctx context.Context, id entity.ID, img *entity.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if img == nil || len(img.Data) == 0 {
		return "", errors.New(errors.ErrCodeInvalidInput, "empty image for %s", id)
	}
	rel := ImagePath(id, img.Format)
	if err := s.write(rel, img.Data); err != nil {
		return "", err
	}
	return rel, nil
}

// Clean removes everything below the output directory.
func (s *FileSink) Clean() error {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSinkUnavailable, err, "read output directory")
	}
	for _, e := range entries {
		if err := s.fs.RemoveAll(filepath.Join(s.dir, e.Name())); err != nil {
			return errors.Wrap(errors.ErrCodeSinkUnavailable, err, "clean %s", e.Name())
		}
	}
	return nil
}

func (s *FileSink) claim(id entity.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.written[id] {
		return false
	}
	s.written[id] = true
	return true
}

func (s *FileSink) write(rel string, data []byte) error {
	p := filepath.Join(s.dir, filepath.FromSlash(rel))
	if err := s.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeSinkUnavailable, err, "create %s", filepath.Dir(p))
	}
	if err := afero.WriteFile(s.fs, p, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeSinkUnavailable, err, "write %s", rel)
	}
	return nil
}

var (
	_ Sink        = (*FileSink)(nil)
	_ ImageWriter = (*FileSink)(nil)
	_ Destination = (*FileSink)(nil)
	_ Checker     = (*FileSink)(nil)
)
