package buildinfo

import (
	"strings"
	"testing"
)

func TestShort(t *testing.T) {
	old, oldCommit := Version, Commit
	defer func() { Version, Commit = old, oldCommit }()

	Version, Commit = "v1.2.3", "abc123"
	if got := Short(); got != "bpdoc v1.2.3 (abc123)" {
		t.Errorf("Short() = %q", got)
	}
	if got := String(); !strings.Contains(got, "version: v1.2.3") || !strings.Contains(got, "commit: abc123") {
		t.Errorf("String() = %q", got)
	}
	if got := Template(); !strings.HasPrefix(got, "{{.Name}} v1.2.3\n") {
		t.Errorf("Template() = %q", got)
	}
}
