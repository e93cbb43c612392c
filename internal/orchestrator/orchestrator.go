// Package orchestrator glues the cache, the discovery pipeline, and
// the ranking engine behind the entry points the commands call.
package orchestrator

import (
	"context"
	"fmt"

	"dirscout/internal/config"
	"dirscout/internal/discover"

	"github.com/charmbracelet/log"
	"github.com/mitchellh/mapstructure"
)

// finder is the pipeline surface the orchestrator consumes.
type finder interface {
	Find(ctx context.Context, params discover.SearchParameters) (*discover.Result, error)
}

// resultCache is the cache surface the orchestrator consumes.
type resultCache interface {
	LookupWithRefresh(params discover.SearchParameters, allowRefresh bool) ([]discover.Candidate, bool)
	Store(params discover.SearchParameters, candidates []discover.Candidate)
	Preload()
	Clear() error
	CleanupExpired()
}

// rankerPersister writes an adopted ranker path back to settings so
// the tool stays self-configured across restarts.
type rankerPersister interface {
	PersistRankerPath(path string) error
}

// Orchestrator answers "give me a ranked, possibly-cached directory
// list for these parameters".
type Orchestrator struct {
	settings  config.Settings
	pipeline  finder
	cache     resultCache
	persister rankerPersister
	logger    *log.Logger

	adoptedRanker string
}

// New creates an Orchestrator. persister may be nil; adopted ranker
// paths then apply only to the current call.
func New(settings config.Settings, pipeline finder, cache resultCache, persister rankerPersister, logger *log.Logger) *Orchestrator {
	if pipeline == nil || cache == nil {
		panic("pipeline and cache are required")
	}
	return &Orchestrator{
		settings:  settings,
		pipeline:  pipeline,
		cache:     cache,
		persister: persister,
		logger:    logger,
	}
}

// Candidates returns the candidate list for the given roots and
// overrides: a cache hit (possibly stale, with a background refresh
// scheduled), or a fresh pipeline run stored on the way out.
func (o *Orchestrator) Candidates(ctx context.Context, roots []string, overrides map[string]any) ([]discover.Candidate, error) {
	params, err := o.buildParams(roots, overrides)
	if err != nil {
		return nil, err
	}

	if candidates, ok := o.cache.LookupWithRefresh(params, true); ok {
		return candidates, nil
	}

	result, err := o.pipeline.Find(ctx, params)
	if err != nil {
		return nil, err
	}
	if result.AdoptedRankerPath != "" {
		o.adoptedRanker = result.AdoptedRankerPath
		if o.persister != nil {
			if err := o.persister.PersistRankerPath(result.AdoptedRankerPath); err != nil && o.logger != nil {
				o.logger.Warn("could not persist adopted ranker path", "path", result.AdoptedRankerPath, "err", err)
			}
		}
	}

	o.cache.Store(params, result.Candidates)
	return result.Candidates, nil
}

// AdoptedRankerPath reports the ranker binary the most recent search
// adopted, or "" when none was. Callers ranking interactively should
// switch to it without waiting for a restart.
func (o *Orchestrator) AdoptedRankerPath() string {
	return o.adoptedRanker
}

// Preload warms the cache's memory tier; called once at startup.
func (o *Orchestrator) Preload() {
	o.cache.Preload()
	o.cache.CleanupExpired()
}

// ClearCache empties every cache tier.
func (o *Orchestrator) ClearCache() error {
	return o.cache.Clear()
}

// buildParams derives a parameter set from the settings snapshot, the
// command's positional roots, and a loosely-typed override map decoded
// into the typed struct.
func (o *Orchestrator) buildParams(roots []string, overrides map[string]any) (discover.SearchParameters, error) {
	s := o.settings.Search
	params := discover.SearchParameters{
		Roots:                 s.Roots,
		ExcludePatterns:       s.ExcludePatterns,
		ExtraWalkerFlags:      s.ExtraWalkerFlags,
		RankerPath:            s.RankerPath,
		MaxDepth:              s.MaxDepth,
		EnableFuzzy:           s.EnableFuzzy,
		IncludeHidden:         s.IncludeHidden,
		RespectIgnoreFiles:    s.RespectIgnoreFiles,
		IncludeWorkspaceFiles: s.IncludeWorkspaceFiles,
	}
	if len(roots) > 0 {
		params.Roots = roots
	}
	if len(overrides) > 0 {
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:      &params,
			ErrorUnused: true,
		})
		if err != nil {
			return discover.SearchParameters{}, err
		}
		if err := decoder.Decode(overrides); err != nil {
			return discover.SearchParameters{}, fmt.Errorf("invalid search overrides: %w", err)
		}
	}
	return params, nil
}

// PipelineRefresher adapts the pipeline to the cache's Refresher
// interface, keeping the cache→pipeline dependency one-directional.
type PipelineRefresher struct {
	Pipeline finder
}

// Refresh implements cache.Refresher.
func (r PipelineRefresher) Refresh(ctx context.Context, params discover.SearchParameters) ([]discover.Candidate, error) {
	result, err := r.Pipeline.Find(ctx, params)
	if err != nil {
		return nil, err
	}
	return result.Candidates, nil
}
