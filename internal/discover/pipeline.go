// Package discover runs the directory-discovery pipeline: it drives
// the external file walker across the requested roots, derives the
// directory candidates from the walker's file listing, and orders them
// with the external fuzzy matcher when one is usable.
package discover

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"dirscout/internal/tool/probe"
	"dirscout/internal/tool/runner"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

const (
	// WalkerIdentityPrefix and RankerIdentityPrefix namespace the
	// availability records for the two tool families.
	WalkerIdentityPrefix = "walker:"
	RankerIdentityPrefix = "ranker:"

	walkerProbeSubstring = "fd"

	// Past either bound the matcher is skipped and alphabetical order
	// is used directly, so external-tool latency stays bounded.
	defaultRankerBypassCount = 30000
	defaultRankerBypassBytes = 8 << 20
)

// Options fixes the pipeline's environment-dependent knobs.
type Options struct {
	// WalkerPath is the configured walker executable, or "auto" to
	// probe well-known install locations and PATH.
	WalkerPath string
	// DefaultRoot is searched when a parameter set names no roots.
	DefaultRoot string
	// DefaultRankerName is the bare command name the ranker defaults
	// to; a configured path equal to it is eligible for adoption.
	DefaultRankerName string

	RankerBypassCount int
	RankerBypassBytes int
}

// Result is a completed pipeline run. AdoptedRankerPath is non-empty
// when the walk discovered a usable ranker binary and adopted it;
// callers should persist it so the tool self-configures.
type Result struct {
	Candidates        []Candidate
	AdoptedRankerPath string
}

// Pipeline implements Find. All dependencies are injected.
type Pipeline struct {
	probe  availabilityProbe
	runner commandRunner
	fs     fileStater

	newIgnoreMatcher func(root string) (IgnoreMatcher, error)

	opts   Options
	logger *log.Logger
}

// New creates a Pipeline.
func New(p availabilityProbe, cmdRunner commandRunner, fs fileStater, newIgnoreMatcher func(root string) (IgnoreMatcher, error), opts Options, logger *log.Logger) *Pipeline {
	if p == nil || cmdRunner == nil || fs == nil {
		panic("probe, cmdRunner and fs are required")
	}
	if opts.RankerBypassCount <= 0 {
		opts.RankerBypassCount = defaultRankerBypassCount
	}
	if opts.RankerBypassBytes <= 0 {
		opts.RankerBypassBytes = defaultRankerBypassBytes
	}
	if opts.DefaultRankerName == "" {
		opts.DefaultRankerName = "fzf"
	}
	return &Pipeline{
		probe:            p,
		runner:           cmdRunner,
		fs:               fs,
		newIgnoreMatcher: newIgnoreMatcher,
		opts:             opts,
		logger:           logger,
	}
}

// Find runs the full pipeline for params. Failures of the mandatory
// walker leg surface as ToolUnavailable / SearchFailed / Cancelled;
// ranker problems only ever degrade the ordering.
func (p *Pipeline) Find(ctx context.Context, params SearchParameters) (*Result, error) {
	walkerPath, err := p.resolveWalker(ctx)
	if err != nil {
		return nil, err
	}

	roots := params.Roots
	if len(roots) == 0 {
		roots = []string{p.opts.DefaultRoot}
	}

	outputs, err := p.walkRoots(ctx, walkerPath, roots, params)
	if err != nil {
		return nil, err
	}

	files := splitNullSeparated(outputs)
	dirs, discoveredRankers := deriveDirectories(files, roots, p.fs)

	dirs = p.filterDirectories(dirs, roots, params)

	candidates := make([]Candidate, 0, len(dirs))
	for _, d := range dirs {
		candidates = append(candidates, NewDirectoryCandidate(d))
	}
	if params.IncludeWorkspaceFiles {
		candidates = append(candidates, collectWorkspaceFiles(files)...)
	}

	adopted := p.maybeAdoptRanker(&params, discoveredRankers)

	candidates, err = p.orderCandidates(ctx, candidates, params)
	if err != nil {
		return nil, err
	}

	return &Result{Candidates: candidates, AdoptedRankerPath: adopted}, nil
}

// walkRoots invokes the walker once per root. Invocations run
// concurrently but outputs land in root-list order, so the merge is
// deterministic regardless of completion order. Any root failing
// aborts the whole call; partial result sets are never returned.
func (p *Pipeline) walkRoots(ctx context.Context, walkerPath string, roots []string, params SearchParameters) ([]string, error) {
	outputs := make([]string, len(roots))

	g, gctx := errgroup.WithContext(ctx)
	for i, root := range roots {
		g.Go(func() error {
			out, err := p.walkRoot(gctx, walkerPath, root, params)
			if err != nil {
				return err
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if wasCancelled(ctx, err) {
			return nil, &CancelledError{Cause: err}
		}
		return nil, err
	}
	return outputs, nil
}

func (p *Pipeline) walkRoot(ctx context.Context, walkerPath, root string, params SearchParameters) (string, error) {
	command := []string{walkerPath, "--print0", "--type", "f", "--color", "never"}
	if params.IncludeHidden {
		command = append(command, "--hidden")
	}
	if !params.RespectIgnoreFiles {
		command = append(command, "--no-ignore")
	}
	if params.MaxDepth > 0 {
		command = append(command, "--max-depth", strconv.Itoa(params.MaxDepth))
	}
	for _, pattern := range params.ExcludePatterns {
		command = append(command, "--exclude", pattern)
	}
	command = append(command, params.ExtraWalkerFlags...)
	command = append(command, "--", ".", root)

	res, err := p.runner.Run(ctx, command, runner.Options{Dir: root})
	if err != nil {
		var spawnErr *runner.SpawnError
		if errors.As(err, &spawnErr) {
			// The cached "available" verdict is contradicted by a real
			// execution failure; evict it so the next search re-probes.
			p.probe.Invalidate(WalkerIdentityPrefix + walkerPath)
			return "", &probe.ToolUnavailableError{Tool: "walker", Path: walkerPath, Cause: err}
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var exitErr *runner.ExitError
		if errors.As(err, &exitErr) {
			// Exit code 1 is "nothing matched", a valid empty listing.
			if exitErr.Code == 1 {
				return res.Stdout, nil
			}
			return "", &SearchFailedError{Tool: "walker", Stderr: strings.TrimSpace(exitErr.Stderr), Cause: err}
		}
		return "", &SearchFailedError{Tool: "walker", Cause: err}
	}
	return res.Stdout, nil
}

// filterDirectories drops dot-prefixed directory names (always) and,
// when ignore-respect is on, directories the root's .gitignore would
// exclude. Synthesized ancestors never passed through the walker's own
// ignore handling, so this re-check is the only one they get.
func (p *Pipeline) filterDirectories(dirs []string, roots []string, params SearchParameters) []string {
	matchers := make(map[string]IgnoreMatcher)
	if params.RespectIgnoreFiles && p.newIgnoreMatcher != nil {
		for _, root := range roots {
			m, err := p.newIgnoreMatcher(root)
			if err != nil {
				if p.logger != nil {
					p.logger.Debug("ignore rules unavailable", "root", root, "err", err)
				}
				continue
			}
			matchers[root] = m
		}
	}

	out := dirs[:0]
	for _, dir := range dirs {
		root, rel, ok := relativeToRoot(dir, roots)
		if !ok {
			continue
		}
		if hasDotSegment(rel) {
			continue
		}
		if m := matchers[root]; m != nil && m.ShouldIgnore(rel, true) {
			continue
		}
		out = append(out, dir)
	}
	return out
}

// orderCandidates applies the fuzzy ranking step, or alphabetical
// order when ranking is off, bypassed, or degraded. Caller
// cancellation is never degradation; it surfaces as CancelledError.
func (p *Pipeline) orderCandidates(ctx context.Context, candidates []Candidate, params SearchParameters) ([]Candidate, error) {
	if !params.EnableFuzzy || p.shouldBypassRanker(candidates) {
		sortAlphabetical(candidates)
		return candidates, nil
	}

	identity := RankerIdentityPrefix + params.RankerPath
	rankerPath, err := p.probe.Check(ctx, identity, params.RankerPath, "")
	if err != nil {
		if wasCancelled(ctx, err) {
			return nil, &CancelledError{Cause: err}
		}
		if p.logger != nil {
			p.logger.Debug("ranker unavailable, using alphabetical order", "err", err)
		}
		sortAlphabetical(candidates)
		return candidates, nil
	}

	ordered, err := p.rankAll(ctx, rankerPath, candidates)
	if err != nil {
		if wasCancelled(ctx, err) {
			// The tool never failed; keep its availability verdict.
			return nil, &CancelledError{Cause: err}
		}
		p.probe.Invalidate(identity)
		if p.logger != nil {
			p.logger.Debug("ranker failed, using alphabetical order", "err", err)
		}
		sortAlphabetical(candidates)
		return candidates, nil
	}
	return ordered, nil
}

func wasCancelled(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// rankAll pipes every candidate path through the matcher in
// rank-everything-filter-nothing mode and adopts its output order.
func (p *Pipeline) rankAll(ctx context.Context, rankerPath string, candidates []Candidate) ([]Candidate, error) {
	byPath := make(map[string]Candidate, len(candidates))
	var input strings.Builder
	for _, c := range candidates {
		byPath[c.Path] = c
		input.WriteString(c.Path)
		input.WriteByte('\n')
	}

	command := []string{rankerPath, "--filter", "", "-i", "--tiebreak=length,begin"}
	res, err := p.runner.Run(ctx, command, runner.Options{Stdin: strings.NewReader(input.String())})
	if err != nil {
		return nil, err
	}

	ordered := make([]Candidate, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, line := range strings.Split(res.Stdout, "\n") {
		if c, ok := byPath[line]; ok && !seen[line] {
			ordered = append(ordered, c)
			seen[line] = true
		}
	}
	// Anything the matcher dropped still belongs in the result; append
	// in input order.
	for _, c := range candidates {
		if !seen[c.Path] {
			ordered = append(ordered, c)
		}
	}
	return ordered, nil
}

func (p *Pipeline) shouldBypassRanker(candidates []Candidate) bool {
	if len(candidates) > p.opts.RankerBypassCount {
		return true
	}
	total := 0
	for _, c := range candidates {
		total += len(c.Path) + 1
		if total > p.opts.RankerBypassBytes {
			return true
		}
	}
	return false
}

func sortAlphabetical(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := strings.ToLower(candidates[i].Label), strings.ToLower(candidates[j].Label)
		if a != b {
			return a < b
		}
		return candidates[i].Path < candidates[j].Path
	})
}

func splitNullSeparated(outputs []string) []string {
	var files []string
	for _, out := range outputs {
		for _, f := range strings.Split(out, "\x00") {
			if f != "" {
				files = append(files, f)
			}
		}
	}
	return files
}

func collectWorkspaceFiles(files []string) []Candidate {
	var out []Candidate
	seen := make(map[string]bool)
	for _, f := range files {
		if strings.HasSuffix(f, WorkspaceFileExt) && !seen[f] {
			out = append(out, NewWorkspaceFileCandidate(f))
			seen[f] = true
		}
	}
	return out
}

func hasDotSegment(rel string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

func relativeToRoot(path string, roots []string) (root, rel string, ok bool) {
	for _, r := range roots {
		trimmed := strings.TrimRight(r, string(filepath.Separator))
		if strings.HasPrefix(path, trimmed+string(filepath.Separator)) {
			return r, strings.TrimPrefix(path, trimmed+string(filepath.Separator)), true
		}
	}
	return "", "", false
}
