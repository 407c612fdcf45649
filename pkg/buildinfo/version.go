// Package buildinfo holds version information injected at build time:
//
//	go build -ldflags "-X github.com/matzehuels/bpdoc/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/bpdoc/pkg/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	    -X github.com/matzehuels/bpdoc/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String returns the multi-line build description.
func String() string {
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s", Version, Commit, Date)
}

// Short returns "bpdoc <version> (<commit>)", used as the generator name in
// HTTP headers and run summaries.
func Short() string {
	return fmt.Sprintf("bpdoc %s (%s)", Version, Commit)
}

// Template returns the cobra version template.
func Template() string {
	return fmt.Sprintf("{{.Name}} %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
}
