package discover

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"dirscout/internal/tool/probe"
	"dirscout/internal/tool/runner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockProbe struct {
	mu          sync.Mutex
	checkFunc   func(identity, toolPath string) (string, error)
	checked     []string
	invalidated []string
}

func (m *mockProbe) Check(ctx context.Context, identity, toolPath, expectSubstring string) (string, error) {
	m.mu.Lock()
	m.checked = append(m.checked, identity)
	m.mu.Unlock()
	if m.checkFunc != nil {
		return m.checkFunc(identity, toolPath)
	}
	return toolPath, nil
}

func (m *mockProbe) Invalidate(identity string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated = append(m.invalidated, identity)
}

func (m *mockProbe) checkedIdentities() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.checked...)
}

type mockRunner struct {
	mu      sync.Mutex
	runFunc func(ctx context.Context, command []string, opts runner.Options) (*runner.Result, error)
	calls   [][]string
}

func (m *mockRunner) Run(ctx context.Context, command []string, opts runner.Options) (*runner.Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, append([]string(nil), command...))
	m.mu.Unlock()
	if m.runFunc != nil {
		return m.runFunc(ctx, command, opts)
	}
	return &runner.Result{}, nil
}

func (m *mockRunner) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func walkerOutput(files ...string) *runner.Result {
	return &runner.Result{Stdout: strings.Join(files, "\x00") + "\x00"}
}

func newTestPipeline(p *mockProbe, r *mockRunner, fs fileStater, opts Options) *Pipeline {
	if fs == nil {
		fs = &mockStater{}
	}
	if opts.WalkerPath == "" {
		opts.WalkerPath = "/usr/bin/fd"
	}
	if opts.DefaultRoot == "" {
		opts.DefaultRoot = "/home/user"
	}
	return New(p, r, fs, nil, opts, nil)
}

func TestFind_DerivesAndSortsDirectories(t *testing.T) {
	r := &mockRunner{runFunc: func(ctx context.Context, command []string, opts runner.Options) (*runner.Result, error) {
		return walkerOutput("/root/proj/src/main.go", "/root/proj/README.md"), nil
	}}
	p := newTestPipeline(&mockProbe{}, r, nil, Options{})

	result, err := p.Find(context.Background(), SearchParameters{Roots: []string{"/root"}})
	require.NoError(t, err)

	var paths []string
	for _, c := range result.Candidates {
		paths = append(paths, c.Path)
		assert.Equal(t, KindDirectory, c.Kind)
	}
	assert.Equal(t, []string{"/root/proj", "/root/proj/src"}, paths)
}

func TestFind_WalkerFlagsFollowParameters(t *testing.T) {
	r := &mockRunner{runFunc: func(ctx context.Context, command []string, opts runner.Options) (*runner.Result, error) {
		return walkerOutput(), nil
	}}
	p := newTestPipeline(&mockProbe{}, r, nil, Options{})

	_, err := p.Find(context.Background(), SearchParameters{
		Roots:            []string{"/root"},
		IncludeHidden:    true,
		MaxDepth:         3,
		ExcludePatterns:  []string{"node_modules"},
		ExtraWalkerFlags: []string{"--follow"},
	})
	require.NoError(t, err)

	require.Equal(t, 1, r.callCount())
	cmd := r.calls[0]
	assert.Contains(t, cmd, "--hidden")
	assert.Contains(t, cmd, "--no-ignore")
	assert.Contains(t, cmd, "--max-depth")
	assert.Contains(t, cmd, "node_modules")
	assert.Contains(t, cmd, "--follow")
	assert.Contains(t, cmd, "--print0")
}

func TestFind_EmptyRootsUseDefault(t *testing.T) {
	r := &mockRunner{runFunc: func(ctx context.Context, command []string, opts runner.Options) (*runner.Result, error) {
		assert.Equal(t, "/home/user", command[len(command)-1])
		return walkerOutput(), nil
	}}
	p := newTestPipeline(&mockProbe{}, r, nil, Options{})

	result, err := p.Find(context.Background(), SearchParameters{})
	require.NoError(t, err)
	assert.Empty(t, result.Candidates)
}

func TestFind_WalkerNoMatchesIsEmptyNotError(t *testing.T) {
	r := &mockRunner{runFunc: func(ctx context.Context, command []string, opts runner.Options) (*runner.Result, error) {
		res := &runner.Result{ExitCode: 1}
		return res, &runner.ExitError{Cmd: command[0], Code: 1}
	}}
	p := newTestPipeline(&mockProbe{}, r, nil, Options{})

	result, err := p.Find(context.Background(), SearchParameters{Roots: []string{"/root"}})
	require.NoError(t, err)
	assert.Empty(t, result.Candidates)
}

func TestFind_WalkerFailureCarriesStderr(t *testing.T) {
	r := &mockRunner{runFunc: func(ctx context.Context, command []string, opts runner.Options) (*runner.Result, error) {
		res := &runner.Result{ExitCode: 2, Stderr: "invalid flag\n"}
		return res, &runner.ExitError{Cmd: command[0], Code: 2, Stderr: "invalid flag\n"}
	}}
	p := newTestPipeline(&mockProbe{}, r, nil, Options{})

	_, err := p.Find(context.Background(), SearchParameters{Roots: []string{"/root"}})
	var searchErr *SearchFailedError
	require.ErrorAs(t, err, &searchErr)
	assert.Equal(t, "invalid flag", searchErr.Stderr)
}

func TestFind_SpawnFailureInvalidatesVerdict(t *testing.T) {
	pr := &mockProbe{}
	r := &mockRunner{runFunc: func(ctx context.Context, command []string, opts runner.Options) (*runner.Result, error) {
		return nil, &runner.SpawnError{Cmd: command[0], Cause: errors.New("no such file")}
	}}
	p := newTestPipeline(pr, r, nil, Options{})

	_, err := p.Find(context.Background(), SearchParameters{Roots: []string{"/root"}})
	assert.ErrorIs(t, err, probe.ErrToolUnavailable)
	assert.Contains(t, pr.invalidated, WalkerIdentityPrefix+"/usr/bin/fd")
}

func TestFind_CancellationSettlesAsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &mockRunner{runFunc: func(ctx context.Context, command []string, opts runner.Options) (*runner.Result, error) {
		cancel()
		return nil, ctx.Err()
	}}
	p := newTestPipeline(&mockProbe{}, r, nil, Options{})

	_, err := p.Find(ctx, SearchParameters{Roots: []string{"/root"}})
	assert.True(t, IsCancelled(err))
}

func TestFind_WalksEveryRoot(t *testing.T) {
	r := &mockRunner{runFunc: func(ctx context.Context, command []string, opts runner.Options) (*runner.Result, error) {
		root := command[len(command)-1]
		switch root {
		case "/b":
			return walkerOutput("/b/beta/file.txt"), nil
		case "/a":
			return walkerOutput("/a/alpha/file.txt"), nil
		}
		return walkerOutput(), nil
	}}
	p := newTestPipeline(&mockProbe{}, r, nil, Options{})

	result, err := p.Find(context.Background(), SearchParameters{Roots: []string{"/b", "/a"}})
	require.NoError(t, err)
	require.Len(t, result.Candidates, 2)
	assert.Equal(t, 2, r.callCount())
}

func TestFind_RankerUnavailableFallsBackToAlphabetical(t *testing.T) {
	pr := &mockProbe{checkFunc: func(identity, toolPath string) (string, error) {
		if strings.HasPrefix(identity, RankerIdentityPrefix) {
			return "", &probe.ToolUnavailableError{Tool: identity, Path: toolPath}
		}
		return toolPath, nil
	}}
	r := &mockRunner{runFunc: func(ctx context.Context, command []string, opts runner.Options) (*runner.Result, error) {
		return walkerOutput("/root/zeta/file.txt", "/root/alpha/file.txt"), nil
	}}
	p := newTestPipeline(pr, r, nil, Options{})

	result, err := p.Find(context.Background(), SearchParameters{
		Roots:       []string{"/root"},
		RankerPath:  "fzf",
		EnableFuzzy: true,
	})
	require.NoError(t, err)

	var labels []string
	for _, c := range result.Candidates {
		labels = append(labels, c.Label)
	}
	assert.Equal(t, []string{"alpha", "zeta"}, labels)
	// Only the walker ran.
	assert.Equal(t, 1, r.callCount())
}

func TestFind_RankerOrderAdopted(t *testing.T) {
	r := &mockRunner{}
	r.runFunc = func(ctx context.Context, command []string, opts runner.Options) (*runner.Result, error) {
		if command[0] == "/usr/bin/fd" {
			return walkerOutput("/root/alpha/file.txt", "/root/zeta/file.txt"), nil
		}
		// The ranker reorders and drops one path.
		return &runner.Result{Stdout: "/root/zeta\n"}, nil
	}
	p := newTestPipeline(&mockProbe{}, r, nil, Options{})

	result, err := p.Find(context.Background(), SearchParameters{
		Roots:       []string{"/root"},
		RankerPath:  "fzf",
		EnableFuzzy: true,
	})
	require.NoError(t, err)

	var paths []string
	for _, c := range result.Candidates {
		paths = append(paths, c.Path)
	}
	// Ranked output first, dropped candidates appended after.
	assert.Equal(t, []string{"/root/zeta", "/root/alpha"}, paths)
}

func TestFind_CancellationDuringRankingIsCancelled(t *testing.T) {
	pr := &mockProbe{}
	ctx, cancel := context.WithCancel(context.Background())
	r := &mockRunner{}
	r.runFunc = func(ctx context.Context, command []string, opts runner.Options) (*runner.Result, error) {
		if command[0] == "/usr/bin/fd" {
			return walkerOutput("/root/alpha/file.txt", "/root/zeta/file.txt"), nil
		}
		cancel()
		return nil, ctx.Err()
	}
	p := newTestPipeline(pr, r, nil, Options{})

	result, err := p.Find(ctx, SearchParameters{
		Roots:       []string{"/root"},
		RankerPath:  "fzf",
		EnableFuzzy: true,
	})
	assert.Nil(t, result)
	assert.True(t, IsCancelled(err))
	// The ranker never failed on its own; its verdict stays.
	assert.Empty(t, pr.invalidated)
}

func TestFind_LargeResultSetBypassesRanker(t *testing.T) {
	pr := &mockProbe{}
	r := &mockRunner{runFunc: func(ctx context.Context, command []string, opts runner.Options) (*runner.Result, error) {
		return walkerOutput(
			"/root/a/file.txt",
			"/root/b/file.txt",
			"/root/c/file.txt",
		), nil
	}}
	p := newTestPipeline(pr, r, nil, Options{RankerBypassCount: 2})

	result, err := p.Find(context.Background(), SearchParameters{
		Roots:       []string{"/root"},
		RankerPath:  "fzf",
		EnableFuzzy: true,
	})
	require.NoError(t, err)
	assert.Len(t, result.Candidates, 3)

	// The ranker was neither probed nor executed.
	assert.Equal(t, 1, r.callCount())
	for _, identity := range pr.checkedIdentities() {
		assert.False(t, strings.HasPrefix(identity, RankerIdentityPrefix))
	}
}

func TestFind_WorkspaceFilesCollected(t *testing.T) {
	r := &mockRunner{runFunc: func(ctx context.Context, command []string, opts runner.Options) (*runner.Result, error) {
		return walkerOutput("/root/proj/app.code-workspace", "/root/proj/src/main.go"), nil
	}}
	p := newTestPipeline(&mockProbe{}, r, nil, Options{})

	result, err := p.Find(context.Background(), SearchParameters{
		Roots:                 []string{"/root"},
		IncludeWorkspaceFiles: true,
	})
	require.NoError(t, err)

	var wsLabels []string
	for _, c := range result.Candidates {
		if c.Kind == KindWorkspaceFile {
			wsLabels = append(wsLabels, c.Label)
		}
	}
	assert.Equal(t, []string{"app"}, wsLabels)
}

func TestFind_DotDirectoriesFiltered(t *testing.T) {
	r := &mockRunner{runFunc: func(ctx context.Context, command []string, opts runner.Options) (*runner.Result, error) {
		return walkerOutput("/root/.config/app/file.txt", "/root/proj/file.txt"), nil
	}}
	p := newTestPipeline(&mockProbe{}, r, nil, Options{})

	result, err := p.Find(context.Background(), SearchParameters{
		Roots:         []string{"/root"},
		IncludeHidden: true,
	})
	require.NoError(t, err)

	var paths []string
	for _, c := range result.Candidates {
		paths = append(paths, c.Path)
	}
	assert.Equal(t, []string{"/root/proj"}, paths)
}

type mockIgnoreMatcher struct {
	ignored map[string]bool
}

func (m *mockIgnoreMatcher) ShouldIgnore(rel string, isDir bool) bool {
	return m.ignored[rel]
}

func TestFind_IgnoreRulesRecheckSynthesizedDirectories(t *testing.T) {
	r := &mockRunner{runFunc: func(ctx context.Context, command []string, opts runner.Options) (*runner.Result, error) {
		return walkerOutput("/root/vendor/pkg/file.go", "/root/src/file.go"), nil
	}}
	matcher := &mockIgnoreMatcher{ignored: map[string]bool{"vendor": true, "vendor/pkg": true}}
	p := New(&mockProbe{}, r, &mockStater{}, func(root string) (IgnoreMatcher, error) {
		return matcher, nil
	}, Options{WalkerPath: "/usr/bin/fd", DefaultRoot: "/home/user"}, nil)

	result, err := p.Find(context.Background(), SearchParameters{
		Roots:              []string{"/root"},
		RespectIgnoreFiles: true,
	})
	require.NoError(t, err)

	var paths []string
	for _, c := range result.Candidates {
		paths = append(paths, c.Path)
	}
	assert.Equal(t, []string{"/root/src"}, paths)
}

func TestFind_AdoptsDiscoveredRanker(t *testing.T) {
	if RankerExecutableName() != "fzf" {
		t.Skip("unix ranker name")
	}
	discoveredPath := "/root/.local/bin/fzf"
	stater := &mockStater{files: map[string]mockFileInfo{
		discoveredPath: {name: "fzf", mode: 0o755},
	}}
	r := &mockRunner{runFunc: func(ctx context.Context, command []string, opts runner.Options) (*runner.Result, error) {
		return walkerOutput(discoveredPath, "/root/proj/file.txt"), nil
	}}
	p := newTestPipeline(&mockProbe{}, r, stater, Options{})

	result, err := p.Find(context.Background(), SearchParameters{
		Roots:         []string{"/root"},
		RankerPath:    "fzf",
		IncludeHidden: true,
	})
	require.NoError(t, err)
	assert.Equal(t, discoveredPath, result.AdoptedRankerPath)
}

func TestFind_NoAdoptionWhenConfiguredRankerExists(t *testing.T) {
	configured := "/opt/tools/fzf"
	discoveredPath := "/root/.local/bin/" + RankerExecutableName()
	stater := &mockStater{files: map[string]mockFileInfo{
		configured:     {name: "fzf", mode: 0o755},
		discoveredPath: {name: RankerExecutableName(), mode: 0o755},
	}}
	r := &mockRunner{runFunc: func(ctx context.Context, command []string, opts runner.Options) (*runner.Result, error) {
		return walkerOutput(discoveredPath, "/root/proj/file.txt"), nil
	}}
	p := newTestPipeline(&mockProbe{}, r, stater, Options{})

	result, err := p.Find(context.Background(), SearchParameters{
		Roots:         []string{"/root"},
		RankerPath:    configured,
		IncludeHidden: true,
	})
	require.NoError(t, err)
	assert.Empty(t, result.AdoptedRankerPath)
}
