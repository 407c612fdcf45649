// Package pipeline runs a documentation generation pass over a set of
// blueprint assets.
//
// # Architecture
//
// A run moves through a fixed sequence of states:
//
//	Enumerating -> Walking -> Resolving -> Rendering -> Emitting -> Done
//
// Any run-fatal error moves the run to Failed and a cancelled context moves
// it to Cancelled. Per-asset problems (a malformed graph, an ID collision) are
// recorded in the [Report] and never stop the run.
//
//  1. Walking: each asset from the enumerator is walked into records, which
//     are registered with the resolver. Thumbnail jobs are submitted as each
//     record is produced.
//  2. Resolving: every type reference is resolved against the full corpus.
//  3. Rendering: documents whose thumbnails already finished are emitted.
//  4. Emitting: the runner waits up to RenderTimeout for the remaining
//     thumbnails, emits the rest and finally the index document.
//
// # Usage
//
//	runner := pipeline.NewRunner(renderer, store, logger)
//	report, err := runner.Run(ctx, enumerator, sink, pipeline.Options{
//	    Title:        "My Game",
//	    OutputFormat: pipeline.FormatHTML,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(report.Counts.Successful, "assets documented")
package pipeline

import (
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/bpdoc/pkg/errors"
	"github.com/matzehuels/bpdoc/pkg/sink"
	"github.com/matzehuels/bpdoc/pkg/walker"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Library Users
// =============================================================================

const (
	// DefaultMaxWalkDepth bounds sub-graph nesting.
	DefaultMaxWalkDepth = walker.DefaultMaxDepth

	// DefaultRenderTimeout is how long the runner waits for outstanding
	// thumbnails once every asset has been walked.
	DefaultRenderTimeout = 30 * time.Second

	// DefaultTitle is used when no title is configured.
	DefaultTitle = "Blueprint Documentation"
)

// Output formats.
const (
	FormatJSON = sink.FormatJSON
	FormatHTML = sink.FormatHTML
	FormatBoth = sink.FormatBoth
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatHTML: true,
	FormatBoth: true,
}

// Unresolved reference policies.
const (
	// PolicyWarn logs unresolved references and keeps going.
	PolicyWarn = "warn"
	// PolicyError fails the run after resolution if any reference is unresolved.
	PolicyError = "error"
)

// ValidPolicies is the set of supported unresolved reference policies.
var ValidPolicies = map[string]bool{
	PolicyWarn:  true,
	PolicyError: true,
}

// =============================================================================
// Options - Generation Configuration
// =============================================================================

// Options configures one generation run. It is loaded from bpdoc.toml by the
// CLI, so every field has a TOML name.
type Options struct {
	// Title is shown on every generated page.
	Title string `toml:"title" json:"title,omitempty"`

	// MaxWalkDepth is the deepest sub-graph nesting level that is documented.
	MaxWalkDepth int `toml:"max_walk_depth" json:"max_walk_depth,omitempty"`

	// RenderTimeout bounds the wait for outstanding thumbnails.
	RenderTimeout time.Duration `toml:"-" json:"-"`

	// RenderTimeoutMs sets RenderTimeout in milliseconds when RenderTimeout
	// is zero.
	RenderTimeoutMs int `toml:"render_timeout_ms" json:"render_timeout_ms,omitempty"`

	// IncludeExternalTypes keeps references to engine and excluded classes
	// in generated documents.
	IncludeExternalTypes bool `toml:"include_external_types" json:"include_external_types,omitempty"`

	// OutputFormat is json, html or both.
	OutputFormat string `toml:"output_format" json:"output_format,omitempty"`

	// UnresolvedPolicy is warn (default) or error.
	UnresolvedPolicy string `toml:"unresolved_policy" json:"unresolved_policy,omitempty"`

	// ExternalClasses replaces the built-in list of engine classes when set.
	ExternalClasses []string `toml:"external_classes" json:"external_classes,omitempty"`

	// ExcludedClasses are project classes that are treated as external.
	ExcludedClasses []string `toml:"excluded_classes" json:"excluded_classes,omitempty"`

	// SkipThumbnails disables rendering; documents carry no thumbnail.
	SkipThumbnails bool `toml:"skip_thumbnails" json:"skip_thumbnails,omitempty"`

	// Resume skips documents whose content is unchanged since the last run
	// recorded in the manifest.
	Resume bool `toml:"resume" json:"resume,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `toml:"-" json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that an output format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid output format: %q (must be one of: json, html, both)", format)
	}
	return nil
}

// ValidatePolicy checks that an unresolved reference policy is valid.
func ValidatePolicy(policy string) error {
	if !ValidPolicies[policy] {
		return errors.New(errors.ErrCodeInvalidConfig, "invalid unresolved policy: %q (must be one of: warn, error)", policy)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks the options and fills in defaults. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.MaxWalkDepth < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "max_walk_depth must not be negative, got %d", o.MaxWalkDepth)
	}
	if o.RenderTimeout < 0 || o.RenderTimeoutMs < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "render timeout must not be negative")
	}

	if o.Title == "" {
		o.Title = DefaultTitle
	}
	if o.MaxWalkDepth == 0 {
		o.MaxWalkDepth = DefaultMaxWalkDepth
	}
	if o.RenderTimeout == 0 {
		o.RenderTimeout = time.Duration(o.RenderTimeoutMs) * time.Millisecond
	}
	if o.RenderTimeout == 0 {
		o.RenderTimeout = DefaultRenderTimeout
	}
	if o.OutputFormat == "" {
		o.OutputFormat = FormatJSON
	}
	if o.UnresolvedPolicy == "" {
		o.UnresolvedPolicy = PolicyWarn
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	if err := ValidateFormat(o.OutputFormat); err != nil {
		return err
	}
	if err := ValidatePolicy(o.UnresolvedPolicy); err != nil {
		return err
	}
	for _, name := range append(slices.Clone(o.ExternalClasses), o.ExcludedClasses...) {
		if err := errors.ValidateClassName(name); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "class list")
		}
	}
	o.validated = true
	return nil
}

// Strict reports whether unresolved references fail the run.
func (o *Options) Strict() bool {
	return o.UnresolvedPolicy == PolicyError
}
