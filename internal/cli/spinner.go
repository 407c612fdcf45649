package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/bpdoc/pkg/observability"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner shows a one-line status on a terminal until stopped. Its message
// can change while it runs; on a non-terminal writer it prints nothing.
type Spinner struct {
	w       io.Writer
	animate bool
	parent  context.Context
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	once    sync.Once

	mu      sync.Mutex
	message string
	width   int // widest line drawn so far
}

// newSpinnerWithContext creates a spinner on stderr that stops when ctx is
// cancelled.
func newSpinnerWithContext(ctx context.Context, message string) *Spinner {
	return newSpinnerTo(ctx, os.Stderr, message)
}

func newSpinnerTo(ctx context.Context, w io.Writer, message string) *Spinner {
	spinnerCtx, cancel := context.WithCancel(ctx)
	f, ok := w.(*os.File)
	return &Spinner{
		w:       w,
		animate: ok && isTerminal(f),
		parent:  ctx,
		ctx:     spinnerCtx,
		cancel:  cancel,
		stopped: make(chan struct{}),
		message: message,
	}
}

// SetMessage replaces the status text.
func (s *Spinner) SetMessage(format string, args ...any) {
	s.mu.Lock()
	s.message = fmt.Sprintf(format, args...)
	s.mu.Unlock()
}

// Message returns the current status text.
func (s *Spinner) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

// Start begins the animation.
func (s *Spinner) Start() {
	go func() {
		defer close(s.stopped)
		if !s.animate {
			<-s.ctx.Done()
			return
		}

		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-ticker.C:
				s.draw(spinnerFrames[i%len(spinnerFrames)])
			}
		}
	}()
}

func (s *Spinner) draw(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line := styleIconSpinner.Render(frame) + " " + StyleDim.Render(s.message)
	pad := max(s.width-lipgloss.Width(line), 0)
	s.width = max(s.width, lipgloss.Width(line))
	fmt.Fprintf(s.w, "\r%s%*s", line, pad, "")
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width > 0 {
		fmt.Fprintf(s.w, "\r%*s\r", s.width, "")
		s.width = 0
	}
}

// Stop stops the spinner and clears its line. It may be called repeatedly.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		s.cancel()
		<-s.stopped
	})
}

// StopWithSuccess stops the spinner and shows a success message.
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	printSuccess("%s", message)
}

// StopWithError stops the spinner and shows an error message.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}

// Cancelled reports whether the parent context ended before Stop.
func (s *Spinner) Cancelled() bool {
	return s.parent.Err() != nil
}

// =============================================================================
// Run progress
// =============================================================================

// spinnerHooks reports pipeline progress through a spinner. Other hooks are
// forwarded to next.
type spinnerHooks struct {
	next    observability.PipelineHooks
	spinner *Spinner
	total   int
	walked  atomic.Int64
	emitted atomic.Int64
}

func newSpinnerHooks(s *Spinner, total int, next observability.PipelineHooks) *spinnerHooks {
	return &spinnerHooks{next: next, spinner: s, total: total}
}

func (h *spinnerHooks) OnWalkStart(ctx context.Context, asset string) {
	n := h.walked.Add(1)
	h.spinner.SetMessage("Walking %s (%d/%d)", asset, n, h.total)
	h.next.OnWalkStart(ctx, asset)
}

func (h *spinnerHooks) OnWalkComplete(ctx context.Context, asset string, nodes int, d time.Duration, err error) {
	h.next.OnWalkComplete(ctx, asset, nodes, d, err)
}

func (h *spinnerHooks) OnResolveComplete(ctx context.Context, resolved, unresolved int, d time.Duration) {
	h.spinner.SetMessage("Rendering thumbnails...")
	h.next.OnResolveComplete(ctx, resolved, unresolved, d)
}

func (h *spinnerHooks) OnEmit(ctx context.Context, entity, kind string, err error) {
	if kind != "image" {
		h.spinner.SetMessage("Writing documents (%d)", h.emitted.Add(1))
	}
	h.next.OnEmit(ctx, entity, kind, err)
}
