package discover

import (
	"path/filepath"
	"strconv"
	"strings"
)

// Kind classifies a discovered candidate.
type Kind int

const (
	// KindDirectory is a plain directory candidate.
	KindDirectory Kind = iota
	// KindWorkspaceFile is a workspace definition file candidate.
	KindWorkspaceFile
)

// WorkspaceFileExt is the extension collected when workspace-file
// inclusion is enabled.
const WorkspaceFileExt = ".code-workspace"

// Candidate is one discoverable unit: a directory, or a workspace
// definition file. Identity is Path; a result set never contains two
// candidates with the same Path.
type Candidate struct {
	// Path is absolute, with OS-native separators.
	Path        string `json:"path"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Kind        Kind   `json:"kind"`
}

// NewDirectoryCandidate builds a directory candidate with the display
// fields derived from the path.
func NewDirectoryCandidate(path string) Candidate {
	return Candidate{
		Path:        path,
		Label:       filepath.Base(path),
		Description: filepath.Dir(path),
		Kind:        KindDirectory,
	}
}

// NewWorkspaceFileCandidate builds a workspace-file candidate. The label
// drops the workspace extension so the entry reads like a project name.
func NewWorkspaceFileCandidate(path string) Candidate {
	return Candidate{
		Path:        path,
		Label:       strings.TrimSuffix(filepath.Base(path), WorkspaceFileExt),
		Description: filepath.Dir(path),
		Kind:        KindWorkspaceFile,
	}
}

// SearchParameters describes one search invocation. It is constructed
// fresh per user command from settings and never mutated afterwards,
// with one exception: AdoptRankerPath applies the in-flight ranker
// correction from pipeline self-discovery.
type SearchParameters struct {
	// Roots is the ordered list of search roots. Empty means "search
	// from the default root".
	Roots []string `mapstructure:"roots"`
	// ExcludePatterns are walker exclude globs. Order is significant
	// for the cache key; callers must not reorder or dedup.
	ExcludePatterns []string `mapstructure:"exclude_patterns"`
	// ExtraWalkerFlags are passed to the walker verbatim.
	ExtraWalkerFlags []string `mapstructure:"extra_walker_flags"`

	RankerPath string `mapstructure:"ranker_path"`
	MaxDepth   int    `mapstructure:"max_depth"`

	EnableFuzzy           bool `mapstructure:"enable_fuzzy"`
	IncludeHidden         bool `mapstructure:"include_hidden"`
	RespectIgnoreFiles    bool `mapstructure:"respect_ignore_files"`
	IncludeWorkspaceFiles bool `mapstructure:"include_workspace_files"`
}

// AdoptRankerPath is the single documented in-flight correction: when
// the walk discovers a usable ranker binary, the pipeline adopts it for
// the remainder of the call.
func (p *SearchParameters) AdoptRankerPath(path string) {
	p.RankerPath = path
}

// KeyFields returns the ordered field serialization used for cache
// keying. List order is preserved on purpose so keys stay stable and
// debuggable; two parameter sets with identical normalized field values
// serialize identically.
func (p SearchParameters) KeyFields() []string {
	fields := []string{
		"roots=" + strings.Join(p.Roots, "\x1f"),
		"exclude=" + strings.Join(p.ExcludePatterns, "\x1f"),
		"flags=" + strings.Join(p.ExtraWalkerFlags, "\x1f"),
		"ranker=" + p.RankerPath,
		"depth=" + strconv.Itoa(p.MaxDepth),
		"fuzzy=" + boolField(p.EnableFuzzy),
		"hidden=" + boolField(p.IncludeHidden),
		"ignores=" + boolField(p.RespectIgnoreFiles),
		"wsfiles=" + boolField(p.IncludeWorkspaceFiles),
	}
	return fields
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
