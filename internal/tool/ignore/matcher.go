// Package ignore matches paths against a root's .gitignore. The walker
// applies ignore rules to files on its own; this matcher exists for
// directories the pipeline synthesizes locally, which never pass
// through the walker's ignore handling.
package ignore

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// Matcher answers whether a path under a root is gitignored.
type Matcher struct {
	matcher gitignore.Matcher
}

// NewMatcher loads <root>/.gitignore and builds a matcher. A missing
// .gitignore yields a matcher that never ignores, not an error.
func NewMatcher(root string) (*Matcher, error) {
	data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		if os.IsNotExist(err) {
			return &Matcher{}, nil
		}
		return nil, err
	}

	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}

	return &Matcher{matcher: gitignore.NewMatcher(patterns)}, nil
}

// ShouldIgnore reports whether the root-relative path matches any
// loaded pattern. isDir selects directory-pattern semantics.
func (m *Matcher) ShouldIgnore(relativePath string, isDir bool) bool {
	if m.matcher == nil {
		return false
	}
	return m.matcher.Match(splitPath(relativePath), isDir)
}

func splitPath(path string) []string {
	normalized := filepath.ToSlash(path)
	parts := strings.Split(normalized, "/")
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" && part != "." {
			segments = append(segments, part)
		}
	}
	return segments
}
