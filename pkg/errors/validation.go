package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateAssetPath validates a source asset path such as
// "/Game/Characters/BP_Hero" or "Content/Maps/Lobby.bp.yaml".
//
// Asset paths become part of entity IDs and output file names, so the rules
// reject anything that could escape the output directory:
//   - No empty paths
//   - No control characters or null bytes
//   - No parent-directory segments
//   - No backslashes
//   - Maximum length of 500 characters
func ValidateAssetPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "asset path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "asset path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "asset path contains invalid characters")
		}
	}

	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			return New(ErrCodeInvalidPath, "asset path cannot contain parent segments (..)")
		}
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "asset path cannot contain backslashes")
	}

	return nil
}

// ValidateNodeName validates the name of a node within one graph.
// Node names are combined with the graph path into node entity IDs.
func ValidateNodeName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeMalformedGraph, "node name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeMalformedGraph, "node name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeMalformedGraph, "node name contains invalid control characters")
		}
	}

	// '#' separates the graph path from the node name inside an ID
	if strings.Contains(name, "#") {
		return New(ErrCodeMalformedGraph, "node name cannot contain '#': %q", name)
	}

	return nil
}

// classNameRegex matches engine class names, including generated
// class suffixes (BP_Hero_C) and skeleton prefixes (SKEL_BP_Hero_C).
var classNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateClassName validates a class name used as a type reference target.
func ValidateClassName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "class name cannot be empty")
	}

	if !classNameRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid class name: %q", name)
	}

	return nil
}

// ValidateOutputDir validates a documentation output directory.
// The generator may clean this directory, so filesystem roots are refused.
func ValidateOutputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return New(ErrCodeInvalidConfig, "output directory cannot be empty")
	}

	clean := strings.TrimRight(dir, "/")
	if clean == "" || clean == "." || clean == "~" {
		return New(ErrCodeInvalidConfig, "refusing to use %q as output directory", dir)
	}

	for _, r := range dir {
		if r == '\x00' {
			return New(ErrCodeInvalidConfig, "output directory contains invalid characters")
		}
	}

	return nil
}
