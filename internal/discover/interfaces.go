package discover

import (
	"context"
	"os"

	"dirscout/internal/tool/runner"
)

// availabilityProbe resolves tool availability with a persistent
// verdict cache. Consumer-defined; satisfied by *probe.Probe.
type availabilityProbe interface {
	Check(ctx context.Context, identity, toolPath, expectSubstring string) (string, error)
	Invalidate(identity string)
}

// commandRunner executes external commands. Satisfied by
// *runner.OSRunner.
type commandRunner interface {
	Run(ctx context.Context, command []string, opts runner.Options) (*runner.Result, error)
}

// fileStater is the minimal filesystem surface the pipeline needs for
// ranker adoption checks.
type fileStater interface {
	Stat(path string) (os.FileInfo, error)
}

// IgnoreMatcher re-checks locally synthesized directories against a
// root's ignore rules. Satisfied by *ignore.Matcher. Exported because
// callers supply the constructor function.
type IgnoreMatcher interface {
	ShouldIgnore(relativePath string, isDir bool) bool
}
