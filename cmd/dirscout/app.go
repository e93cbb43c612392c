package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dirscout/internal/cache"
	"dirscout/internal/config"
	"dirscout/internal/discover"
	"dirscout/internal/orchestrator"
	"dirscout/internal/rank"
	"dirscout/internal/tool/ignore"
	"dirscout/internal/tool/probe"
	"dirscout/internal/tool/runner"

	"github.com/charmbracelet/log"
)

// app is the explicit context object: every component is constructed
// once here and injected; nothing reaches for ambient globals.
type app struct {
	settings config.Settings
	logger   *log.Logger

	kv       *cache.KV
	store    *cache.Store
	pipeline *discover.Pipeline
	probe    *probe.Probe
	ranker   *rank.Engine
	orch     *orchestrator.Orchestrator
}

func newApp(verbose bool) (*app, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.WarnLevel)
	}

	cacheDir, err := settings.CacheDir()
	if err != nil {
		return nil, err
	}

	kv, err := cache.OpenKV(cache.KVConfig{
		Path:   filepath.Join(cacheDir, "kv"),
		Logger: logger,
	})
	if err != nil {
		// The KV tier is an enhancement; run memory+file only.
		logger.Warn("kv tier unavailable", "err", err)
		kv = nil
	}

	osRunner := runner.NewOSRunner(settings.Search.MaxCommandOutputBytes)

	var recordStore probe.RecordStore
	if kv != nil {
		recordStore = kv
	} else {
		recordStore = newEphemeralRecordStore()
	}
	toolProbe := probe.New(osRunner, recordStore, logger)

	defaultRoot, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	pipeline := discover.New(
		toolProbe,
		osRunner,
		osStater{},
		func(root string) (discover.IgnoreMatcher, error) { return ignore.NewMatcher(root) },
		discover.Options{
			WalkerPath:  settings.Search.WalkerPath,
			DefaultRoot: defaultRoot,
		},
		logger,
	)

	store := cache.New(kv, orchestrator.PipelineRefresher{Pipeline: pipeline}, cache.Config{
		Dir:             filepath.Join(cacheDir, "results"),
		StaleAfter:      time.Duration(settings.Cache.StalenessMinutes) * time.Minute,
		DebounceDelay:   time.Duration(settings.Cache.DebounceMillis) * time.Millisecond,
		RefreshCooldown: time.Duration(settings.Cache.CooldownSeconds) * time.Second,
		RefreshTimeout:  time.Duration(settings.Cache.RefreshTimeoutSecs) * time.Second,
		KVCeiling:       settings.Cache.KVCeiling,
		FileFailureLimit: settings.Cache.FileFailureLimit,
	}, logger)

	rankEngine := rank.New(osRunner, settings.Search.RankerPath, 0, 0, logger)

	orch := orchestrator.New(settings, pipeline, store, config.FilePersister{}, logger)

	return &app{
		settings: settings,
		logger:   logger,
		kv:       kv,
		store:    store,
		pipeline: pipeline,
		probe:    toolProbe,
		ranker:   rankEngine,
		orch:     orch,
	}, nil
}

// syncAdoptedRanker points the interactive rank engine at a ranker the
// search just discovered, so --query ranking uses it immediately.
func (a *app) syncAdoptedRanker() {
	if adopted := a.orch.AdoptedRankerPath(); adopted != "" {
		a.ranker.SetRankerPath(adopted)
	}
}

// probeFresh drops any persisted verdict for identity and re-runs the
// version probe, so doctor reports the machine as it is right now.
func (a *app) probeFresh(ctx context.Context, identity, toolPath, expectSubstring string) (string, error) {
	a.probe.Invalidate(identity)
	return a.probe.Check(ctx, identity, toolPath, expectSubstring)
}

func (a *app) close() {
	if a.kv != nil {
		_ = a.kv.Close()
	}
}

// osStater satisfies the pipeline's filesystem surface.
type osStater struct{}

func (osStater) Stat(path string) (os.FileInfo, error) { return os.Stat(path) }

// ephemeralRecordStore holds availability verdicts in memory when the
// persistent KV tier could not be opened.
type ephemeralRecordStore struct {
	records map[string]probe.Record
}

func newEphemeralRecordStore() *ephemeralRecordStore {
	return &ephemeralRecordStore{records: make(map[string]probe.Record)}
}

func (s *ephemeralRecordStore) GetRecord(identity string) (probe.Record, bool, error) {
	rec, ok := s.records[identity]
	return rec, ok, nil
}

func (s *ephemeralRecordStore) PutRecord(rec probe.Record) error {
	s.records[rec.Identity] = rec
	return nil
}

func (s *ephemeralRecordStore) DeleteRecord(identity string) error {
	delete(s.records, identity)
	return nil
}
