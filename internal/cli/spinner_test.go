package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matzehuels/bpdoc/pkg/observability"
)

func TestSpinnerStop(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinnerTo(context.Background(), &buf, "Testing...")
	s.Start()
	time.Sleep(20 * time.Millisecond)

	// Repeated stops must not block or panic.
	s.Stop()
	s.Stop()

	if s.Cancelled() {
		t.Error("Cancelled() = true after plain Stop")
	}
	if buf.Len() != 0 {
		t.Errorf("spinner wrote to a non-terminal writer: %q", buf.String())
	}
}

func TestSpinnerCancelled(t *testing.T) {
	tests := []struct {
		name string
		ctx  func() (context.Context, context.CancelFunc)
	}{
		{"cancel", func() (context.Context, context.CancelFunc) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			return ctx, cancel
		}},
		{"timeout", func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), 10*time.Millisecond)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := tt.ctx()
			defer cancel()

			s := newSpinnerTo(ctx, &bytes.Buffer{}, "Testing...")
			s.Start()
			<-ctx.Done()
			s.Stop()

			if !s.Cancelled() {
				t.Error("Cancelled() = false after parent context ended")
			}
		})
	}
}

func TestSpinnerHooks(t *testing.T) {
	s := newSpinnerTo(context.Background(), &bytes.Buffer{}, "start")
	rec := &recordingHooks{}
	h := newSpinnerHooks(s, 2, rec)
	ctx := context.Background()

	h.OnWalkStart(ctx, "/Game/BP_Door")
	if got, want := s.Message(), "Walking /Game/BP_Door (1/2)"; got != want {
		t.Errorf("Message() = %q, want %q", got, want)
	}
	h.OnWalkStart(ctx, "/Game/BP_Key")
	if got, want := s.Message(), "Walking /Game/BP_Key (2/2)"; got != want {
		t.Errorf("Message() = %q, want %q", got, want)
	}

	h.OnEmit(ctx, "graph:/Game/BP_Door", "image", nil)
	h.OnEmit(ctx, "graph:/Game/BP_Door", "graph", nil)
	h.OnEmit(ctx, "index", "index", errors.New("boom"))
	if got, want := s.Message(), "Writing documents (2)"; got != want {
		t.Errorf("Message() = %q, want %q", got, want)
	}

	if rec.walks != 2 || rec.emits != 3 {
		t.Errorf("forwarded walks=%d emits=%d, want 2 and 3", rec.walks, rec.emits)
	}
}

type recordingHooks struct {
	observability.NoopPipelineHooks
	walks, emits int
}

func (r *recordingHooks) OnWalkStart(context.Context, string) { r.walks++ }

func (r *recordingHooks) OnEmit(context.Context, string, string, error) { r.emits++ }
