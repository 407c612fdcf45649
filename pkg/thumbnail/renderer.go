package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"regexp"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-graphviz"
	"github.com/google/uuid"

	"github.com/matzehuels/bpdoc/pkg/entity"
)

// Image formats produced by GraphvizRenderer.
const (
	FormatPNG = "png"
	FormatSVG = "svg"
)

// DefaultWorkers is the render pool size when RendererOptions.Workers is zero.
const DefaultWorkers = 4

// ErrClosed is reported for jobs submitted to, or pending in, a closed renderer.
var ErrClosed = errors.New("renderer closed")

// RendererOptions configures a GraphvizRenderer.
type RendererOptions struct {
	Workers int
	Format  string // png or svg
	Logger  *log.Logger
}

// GraphvizRenderer is a RenderService that lays out descriptors with
// Graphviz. Each worker owns one Graphviz instance.
type GraphvizRenderer struct {
	format graphviz.Format
	ext    string
	logger *log.Logger

	jobs chan renderJob
	quit chan struct{}
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

type renderJob struct {
	ctx   context.Context
	token JobToken
	id    entity.ID
	desc  Descriptor
	done  func(Completion)
}

// NewGraphvizRenderer starts the worker pool.
func NewGraphvizRenderer(ctx context.Context, opts RendererOptions) (*GraphvizRenderer, error) {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	r := &GraphvizRenderer{
		logger: opts.Logger,
		jobs:   make(chan renderJob),
		quit:   make(chan struct{}),
	}
	switch opts.Format {
	case "", FormatPNG:
		r.format, r.ext = graphviz.PNG, FormatPNG
	case FormatSVG:
		r.format, r.ext = graphviz.SVG, FormatSVG
	default:
		return nil, fmt.Errorf("unsupported thumbnail format %q", opts.Format)
	}

	instances := make([]*graphviz.Graphviz, 0, opts.Workers)
	for range opts.Workers {
		gv, err := graphviz.New(ctx)
		if err != nil {
			for _, g := range instances {
				g.Close()
			}
			return nil, fmt.Errorf("init graphviz: %w", err)
		}
		instances = append(instances, gv)
	}
	for _, gv := range instances {
		r.wg.Add(1)
		go r.worker(gv)
	}
	return r, nil
}

// Submit queues a render job. It never blocks on rendering.
func (r *GraphvizRenderer) Submit(ctx context.Context, id entity.ID, d Descriptor, done func(Completion)) (JobToken, error) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return "", ErrClosed
	}

	j := renderJob{ctx: ctx, token: JobToken(uuid.NewString()), id: id, desc: d, done: done}
	go func() {
		select {
		case r.jobs <- j:
		case <-r.quit:
			done(Completion{Token: j.token, Entity: id, Err: ErrClosed})
		}
	}()
	return j.token, nil
}

// Close stops the workers after their current job. Queued jobs complete
// with ErrClosed.
func (r *GraphvizRenderer) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	close(r.quit)
	r.wg.Wait()
	return nil
}

func (r *GraphvizRenderer) worker(gv *graphviz.Graphviz) {
	defer r.wg.Done()
	defer gv.Close()
	for {
		select {
		case <-r.quit:
			return
		case j := <-r.jobs:
			c := Completion{Token: j.token, Entity: j.id}
			if err := j.ctx.Err(); err != nil {
				c.Err = err
			} else {
				c.Image, c.Err = r.render(j.ctx, gv, j.desc)
			}
			if c.Err != nil {
				r.logger.Debug("render failed", "entity", j.id, "err", c.Err)
			}
			j.done(c)
		}
	}
}

func (r *GraphvizRenderer) render(ctx context.Context, gv *graphviz.Graphviz, d Descriptor) (*entity.Image, error) {
	g, err := graphviz.ParseBytes([]byte(ToDOT(d)))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, r.format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	img := &entity.Image{Format: r.ext, Data: buf.Bytes()}
	img.Width, img.Height = dimensions(r.ext, img.Data)
	return img, nil
}

var svgSizeRe = regexp.MustCompile(`<svg[^>]*\swidth="([0-9.]+)pt"\s+height="([0-9.]+)pt"`)

// dimensions reads the pixel size of a rendered image; zero when unknown.
func dimensions(format string, data []byte) (int, int) {
	switch format {
	case FormatPNG:
		cfg, err := png.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return 0, 0
		}
		return cfg.Width, cfg.Height
	case FormatSVG:
		m := svgSizeRe.FindSubmatch(data)
		if m == nil {
			return 0, 0
		}
		w, _ := strconv.ParseFloat(string(m[1]), 64)
		h, _ := strconv.ParseFloat(string(m[2]), 64)
		return int(w + 0.5), int(h + 0.5)
	}
	return 0, 0
}

var _ RenderService = (*GraphvizRenderer)(nil)
