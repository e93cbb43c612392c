package orchestrator

import (
	"context"
	"errors"
	"testing"

	"dirscout/internal/config"
	"dirscout/internal/discover"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockFinder struct {
	result *discover.Result
	err    error
	calls  int
	params []discover.SearchParameters
}

func (m *mockFinder) Find(ctx context.Context, params discover.SearchParameters) (*discover.Result, error) {
	m.calls++
	m.params = append(m.params, params)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockCache struct {
	hit        []discover.Candidate
	hasHit     bool
	stored     []discover.Candidate
	storeCalls int
	preloads   int
	cleanups   int
	cleared    int
}

func (m *mockCache) LookupWithRefresh(params discover.SearchParameters, allowRefresh bool) ([]discover.Candidate, bool) {
	return m.hit, m.hasHit
}

func (m *mockCache) Store(params discover.SearchParameters, candidates []discover.Candidate) {
	m.storeCalls++
	m.stored = candidates
}

func (m *mockCache) Preload()        { m.preloads++ }
func (m *mockCache) CleanupExpired() { m.cleanups++ }

func (m *mockCache) Clear() error {
	m.cleared++
	return nil
}

type mockPersister struct {
	persisted []string
	err       error
}

func (m *mockPersister) PersistRankerPath(path string) error {
	m.persisted = append(m.persisted, path)
	return m.err
}

func testSettings() config.Settings {
	s := config.Default()
	s.Search.Roots = []string{"/home/user"}
	return s
}

func TestCandidates_CacheHitSkipsPipeline(t *testing.T) {
	hit := []discover.Candidate{discover.NewDirectoryCandidate("/home/user/proj")}
	cache := &mockCache{hit: hit, hasHit: true}
	finder := &mockFinder{}
	o := New(testSettings(), finder, cache, nil, nil)

	got, err := o.Candidates(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, hit, got)
	assert.Zero(t, finder.calls)
}

func TestCandidates_MissRunsPipelineAndStores(t *testing.T) {
	found := []discover.Candidate{discover.NewDirectoryCandidate("/home/user/proj")}
	cache := &mockCache{}
	finder := &mockFinder{result: &discover.Result{Candidates: found}}
	o := New(testSettings(), finder, cache, nil, nil)

	got, err := o.Candidates(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, found, got)
	assert.Equal(t, 1, finder.calls)
	assert.Equal(t, 1, cache.storeCalls)
	assert.Equal(t, found, cache.stored)
}

func TestCandidates_PipelineErrorPropagatesWithoutStore(t *testing.T) {
	cache := &mockCache{}
	finder := &mockFinder{err: errors.New("walker exploded")}
	o := New(testSettings(), finder, cache, nil, nil)

	_, err := o.Candidates(context.Background(), nil, nil)
	assert.Error(t, err)
	assert.Zero(t, cache.storeCalls)
}

func TestCandidates_PositionalRootsOverrideSettings(t *testing.T) {
	finder := &mockFinder{result: &discover.Result{}}
	o := New(testSettings(), finder, &mockCache{}, nil, nil)

	_, err := o.Candidates(context.Background(), []string{"/elsewhere"}, nil)
	require.NoError(t, err)
	require.Len(t, finder.params, 1)
	assert.Equal(t, []string{"/elsewhere"}, finder.params[0].Roots)
}

func TestCandidates_OverridesDecodeIntoParameters(t *testing.T) {
	finder := &mockFinder{result: &discover.Result{}}
	o := New(testSettings(), finder, &mockCache{}, nil, nil)

	_, err := o.Candidates(context.Background(), nil, map[string]any{
		"include_hidden": true,
		"max_depth":      2,
	})
	require.NoError(t, err)
	require.Len(t, finder.params, 1)
	assert.True(t, finder.params[0].IncludeHidden)
	assert.Equal(t, 2, finder.params[0].MaxDepth)
}

func TestCandidates_UnknownOverrideKeyRejected(t *testing.T) {
	o := New(testSettings(), &mockFinder{result: &discover.Result{}}, &mockCache{}, nil, nil)

	_, err := o.Candidates(context.Background(), nil, map[string]any{"bogus_knob": true})
	assert.Error(t, err)
}

func TestCandidates_AdoptedRankerPersisted(t *testing.T) {
	persister := &mockPersister{}
	finder := &mockFinder{result: &discover.Result{AdoptedRankerPath: "/usr/local/bin/fzf"}}
	o := New(testSettings(), finder, &mockCache{}, persister, nil)

	_, err := o.Candidates(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"/usr/local/bin/fzf"}, persister.persisted)
	assert.Equal(t, "/usr/local/bin/fzf", o.AdoptedRankerPath())
}

func TestAdoptedRankerPath_EmptyUntilAdoption(t *testing.T) {
	o := New(testSettings(), &mockFinder{result: &discover.Result{}}, &mockCache{}, nil, nil)

	_, err := o.Candidates(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, o.AdoptedRankerPath())
}

func TestCandidates_PersistFailureIsNotFatal(t *testing.T) {
	persister := &mockPersister{err: errors.New("read-only config")}
	finder := &mockFinder{result: &discover.Result{AdoptedRankerPath: "/usr/local/bin/fzf"}}
	o := New(testSettings(), finder, &mockCache{}, persister, nil)

	_, err := o.Candidates(context.Background(), nil, nil)
	assert.NoError(t, err)
}

func TestPreload_WarmsCacheAndCleansDisk(t *testing.T) {
	cache := &mockCache{}
	o := New(testSettings(), &mockFinder{}, cache, nil, nil)

	o.Preload()
	assert.Equal(t, 1, cache.preloads)
	assert.Equal(t, 1, cache.cleanups)
}

func TestClearCache(t *testing.T) {
	cache := &mockCache{}
	o := New(testSettings(), &mockFinder{}, cache, nil, nil)

	require.NoError(t, o.ClearCache())
	assert.Equal(t, 1, cache.cleared)
}

func TestPipelineRefresher_PassesThroughCandidates(t *testing.T) {
	found := []discover.Candidate{discover.NewDirectoryCandidate("/p/a")}
	r := PipelineRefresher{Pipeline: &mockFinder{result: &discover.Result{Candidates: found}}}

	got, err := r.Refresh(context.Background(), discover.SearchParameters{})
	require.NoError(t, err)
	assert.Equal(t, found, got)
}
