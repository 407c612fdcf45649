package entity

// ThumbState is the lifecycle state of a thumbnail render.
type ThumbState string

// Thumbnail states. Everything but ThumbRequested is terminal.
const (
	ThumbRequested ThumbState = "requested"
	ThumbReady     ThumbState = "ready"
	ThumbFailed    ThumbState = "failed"
	ThumbTimedOut  ThumbState = "timed_out"
)

// Image is a rendered thumbnail. Data is not serialized into documents; sinks
// store it separately and fill in Path.
type Image struct {
	Format string `json:"format"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Path   string `json:"path,omitempty"`
	Data   []byte `json:"-"`
}

// ThumbnailRef correlates an entity with its render job.
type ThumbnailRef struct {
	Entity ID         `json:"entity"`
	State  ThumbState `json:"state"`
	Image  *Image     `json:"image,omitempty"`
	Reason string     `json:"reason,omitempty"`
}

// Terminal reports whether the render has finished one way or another.
func (t ThumbnailRef) Terminal() bool {
	return t.State != ThumbRequested && t.State != ""
}

// Ready reports whether an image is available.
func (t ThumbnailRef) Ready() bool {
	return t.State == ThumbReady && t.Image != nil
}

// Document is the unit handed to an output sink. Exactly one of Graph, Node,
// or Index is set, matching Kind.
type Document struct {
	ID               ID            `json:"id"`
	Kind             Kind          `json:"kind"`
	Title            string        `json:"title"`
	RunID            string        `json:"run_id,omitempty"`
	Graph            *GraphRecord  `json:"graph,omitempty"`
	Node             *NodeRecord   `json:"node,omitempty"`
	Index            *Index        `json:"index,omitempty"`
	References       []FieldRef    `json:"references,omitempty"`
	Thumbnail        *ThumbnailRef `json:"thumbnail,omitempty"`
	MissingThumbnail bool          `json:"missing_thumbnail,omitempty"`
}

// Name returns a human readable name for the document.
func (d *Document) Name() string {
	switch {
	case d.Graph != nil:
		return d.Graph.Name
	case d.Node != nil:
		return d.Node.Title
	}
	return d.Title
}

// Index is the payload of the aggregate index document.
type Index struct {
	Entities        []IndexEntry     `json:"entities"`
	CrossReferences []CrossReference `json:"cross_references"`
	Assets          []AssetSummary   `json:"assets"`
	Counts          Counts           `json:"counts"`
}

// IndexEntry lists one emitted entity document.
type IndexEntry struct {
	ID    ID     `json:"id"`
	Kind  Kind   `json:"kind"`
	Name  string `json:"name"`
	Graph ID     `json:"graph,omitempty"`
}

// CrossReference is one row of the index cross-reference table.
type CrossReference struct {
	From   ID       `json:"from"`
	Field  string   `json:"field"`
	Target ID       `json:"target"`
	State  RefState `json:"state"`
	Entity ID       `json:"entity,omitempty"`
	Reason string   `json:"reason,omitempty"`
}

// Asset statuses reported in the index.
const (
	AssetOK      = "ok"
	AssetSkipped = "skipped"
)

// AssetSummary reports the outcome of one source asset.
type AssetSummary struct {
	Path   string `json:"path"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Counts aggregates a run.
type Counts struct {
	Assets            int `json:"assets"`
	Successful        int `json:"successful"`
	Skipped           int `json:"skipped"`
	Graphs            int `json:"graphs"`
	Nodes             int `json:"nodes"`
	Resolved          int `json:"resolved"`
	Unresolved        int `json:"unresolved"`
	OutOfCorpus       int `json:"out_of_corpus"`
	Rendered          int `json:"rendered"`
	MissingThumbnails int `json:"missing_thumbnails"`
}
