package pipeline

import (
	"time"

	"github.com/matzehuels/bpdoc/pkg/entity"
	"github.com/matzehuels/bpdoc/pkg/walker"
)

// State is the lifecycle state of a run.
type State string

// Run states.
const (
	StateEnumerating State = "enumerating"
	StateWalking     State = "walking"
	StateResolving   State = "resolving"
	StateRendering   State = "rendering"
	StateEmitting    State = "emitting"
	StateDone        State = "done"
	StateFailed      State = "failed"
	StateCancelled   State = "cancelled"
)

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateCancelled
}

// AssetResult is the outcome of one enumerated asset.
type AssetResult struct {
	Path     string           `json:"path"`
	Status   string           `json:"status"`
	Error    string           `json:"error,omitempty"`
	Graphs   int              `json:"graphs,omitempty"`
	Nodes    int              `json:"nodes,omitempty"`
	Warnings []walker.Warning `json:"warnings,omitempty"`
}

// Skipped reports whether the asset produced no documents.
func (a AssetResult) Skipped() bool { return a.Status == entity.AssetSkipped }

// Timings records how long each phase took.
type Timings struct {
	Walk    time.Duration `json:"walk"`
	Resolve time.Duration `json:"resolve"`
	Render  time.Duration `json:"render"`
	Emit    time.Duration `json:"emit"`
	Total   time.Duration `json:"total"`
}

// Report describes a finished run. It is returned even when the run failed
// or was cancelled, with whatever was completed up to that point.
type Report struct {
	RunID      string                  `json:"run_id"`
	Title      string                  `json:"title"`
	State      State                   `json:"state"`
	Cancelled  bool                    `json:"cancelled,omitempty"`
	Error      string                  `json:"error,omitempty"`
	StartedAt  time.Time               `json:"started_at"`
	Timings    Timings                 `json:"timings"`
	Assets     []AssetResult           `json:"assets"`
	Warnings   []walker.Warning        `json:"warnings,omitempty"`
	Unresolved []entity.CrossReference `json:"unresolved,omitempty"`
	Counts     entity.Counts           `json:"counts"`

	// Documents is the number of documents written, index included.
	Documents int `json:"documents"`
	// Unchanged is the number of documents skipped on resume.
	Unchanged int `json:"unchanged,omitempty"`
}

// Successful returns the paths of assets that were documented.
func (r *Report) Successful() []string {
	var out []string
	for _, a := range r.Assets {
		if !a.Skipped() {
			out = append(out, a.Path)
		}
	}
	return out
}

// Skipped returns the assets that produced no documents.
func (r *Report) Skipped() []AssetResult {
	var out []AssetResult
	for _, a := range r.Assets {
		if a.Skipped() {
			out = append(out, a)
		}
	}
	return out
}
