// Package cli implements the bpdoc command-line interface.
//
// # Commands
//
//   - generate: document the Blueprint assets under one or more paths
//   - serve: browse a generated HTML documentation directory
//   - runs: list the runs recorded in the resume manifest
//   - cache: manage the thumbnail cache
//   - completion: shell completion scripts
//
// # Configuration
//
// generate reads bpdoc.toml from the working directory (or the file given
// with --config). Command-line flags override the file.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging, which also
// reports walk, render and cache events through the observability hooks.
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs the elapsed time of an operation when it finishes.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time, e.g. "Documented 12 assets (1.234s)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}
