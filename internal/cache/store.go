// Package cache stores query result sets across three tiers: an
// in-memory map, an embedded key-value database for size-bounded
// entries, and one JSON file per key on disk. Stale entries are still
// served while a debounced background refresh replaces them.
package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"dirscout/internal/discover"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
)

// Refresher re-runs the full search pipeline for a parameter set. The
// orchestrator supplies it at construction time, keeping the
// dependency between cache and pipeline one-directional.
type Refresher interface {
	Refresh(ctx context.Context, params discover.SearchParameters) ([]discover.Candidate, error)
}

// Config fixes the store's policy knobs.
type Config struct {
	// Dir is the file-tier directory. Empty disables the file tier.
	Dir string
	// StaleAfter is the freshness duration; entries older than this
	// are served stale and refreshed in the background.
	StaleAfter time.Duration
	// DebounceDelay coalesces rapid repeated refresh requests for the
	// same key into one pipeline run.
	DebounceDelay time.Duration
	// RefreshCooldown is the minimum gap between the end of one
	// background refresh and the start of the next for the same key.
	RefreshCooldown time.Duration
	// RefreshTimeout bounds a background refresh's lifetime.
	RefreshTimeout time.Duration
	// KVCeiling is the candidate-count limit above which the KV tier
	// is skipped.
	KVCeiling int
	// FileFailureLimit is the number of consecutive file-tier write
	// failures after which file writes are skipped for the session.
	FileFailureLimit int
	// Clock is injectable for staleness tests. Defaults to time.Now.
	Clock func() time.Time
}

// Store is the three-tier cache.
type Store struct {
	mu  sync.Mutex
	mem map[string]Entry

	kv  *KV
	cfg Config

	fileFailures  int
	filesDisabled bool

	refresher Refresher
	inFlight  map[string]bool
	timers    map[string]*time.Timer
	lastEnd   map[string]time.Time

	preloadGroup singleflight.Group
	logger       *log.Logger
}

// New creates a Store. kv may be nil (tier disabled, used in some
// tests); refresher may be nil, in which case stale entries are served
// without ever refreshing.
func New(kv *KV, refresher Refresher, cfg Config, logger *log.Logger) *Store {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 10 * time.Minute
	}
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 500 * time.Millisecond
	}
	if cfg.RefreshCooldown <= 0 {
		cfg.RefreshCooldown = 30 * time.Second
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = time.Minute
	}
	if cfg.KVCeiling <= 0 {
		cfg.KVCeiling = 1000
	}
	if cfg.FileFailureLimit <= 0 {
		cfg.FileFailureLimit = 3
	}
	return &Store{
		mem:       make(map[string]Entry),
		kv:        kv,
		cfg:       cfg,
		refresher: refresher,
		inFlight:  make(map[string]bool),
		timers:    make(map[string]*time.Timer),
		lastEnd:   make(map[string]time.Time),
		logger:    logger,
	}
}

// Lookup returns the cached candidates for params, hydrating from the
// file tier on a memory miss before declaring a true miss.
func (s *Store) Lookup(params discover.SearchParameters) ([]discover.Candidate, bool) {
	entry, ok := s.lookupEntry(KeyFor(params))
	if !ok {
		return nil, false
	}
	return entry.Candidates, true
}

func (s *Store) lookupEntry(key string) (Entry, bool) {
	s.mu.Lock()
	if entry, ok := s.mem[key]; ok {
		s.mu.Unlock()
		return entry, true
	}
	s.mu.Unlock()

	entry, ok := s.readFile(key)
	if !ok {
		return Entry{}, false
	}

	s.mu.Lock()
	s.mem[key] = entry
	s.mu.Unlock()
	return entry, true
}

// Store replaces the cached result set for params in every tier the
// entry qualifies for.
func (s *Store) Store(params discover.SearchParameters, candidates []discover.Candidate) {
	key := KeyFor(params)
	entry := Entry{
		Candidates:    candidates,
		CreatedAt:     s.cfg.Clock(),
		CacheKey:      key,
		SchemaVersion: SchemaVersion,
	}

	s.mu.Lock()
	s.mem[key] = entry
	filesDisabled := s.filesDisabled
	s.mu.Unlock()

	s.storeKV(key, entry)
	if !filesDisabled {
		s.writeFile(key, entry)
	}
}

// LookupWithRefresh behaves like Lookup, but a stale hit additionally
// schedules a debounced background refresh when allowed. Refresh
// failures never surface here.
func (s *Store) LookupWithRefresh(params discover.SearchParameters, allowRefresh bool) ([]discover.Candidate, bool) {
	key := KeyFor(params)
	entry, ok := s.lookupEntry(key)
	if !ok {
		return nil, false
	}
	if allowRefresh && s.isStale(entry) && s.refresher != nil {
		s.scheduleRefresh(key, params)
	}
	return entry.Candidates, true
}

func (s *Store) isStale(entry Entry) bool {
	return !s.cfg.Clock().Before(entry.CreatedAt.Add(s.cfg.StaleAfter))
}

// scheduleRefresh arranges at most one debounced refresh per key. The
// debounce timer is reused, not stacked: rapid repeated calls coalesce
// into the one pending run.
func (s *Store) scheduleRefresh(key string, params discover.SearchParameters) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight[key] {
		return
	}
	if _, pending := s.timers[key]; pending {
		return
	}
	if last, ok := s.lastEnd[key]; ok && s.cfg.Clock().Sub(last) < s.cfg.RefreshCooldown {
		return
	}

	s.timers[key] = time.AfterFunc(s.cfg.DebounceDelay, func() {
		s.runRefresh(key, params)
	})
}

func (s *Store) runRefresh(key string, params discover.SearchParameters) {
	s.mu.Lock()
	delete(s.timers, key)
	if s.inFlight[key] {
		s.mu.Unlock()
		return
	}
	if last, ok := s.lastEnd[key]; ok && s.cfg.Clock().Sub(last) < s.cfg.RefreshCooldown {
		s.mu.Unlock()
		return
	}
	s.inFlight[key] = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RefreshTimeout)
	defer cancel()

	candidates, err := s.refresher.Refresh(ctx, params)

	s.mu.Lock()
	delete(s.inFlight, key)
	s.lastEnd[key] = s.cfg.Clock()
	s.mu.Unlock()

	if err != nil {
		// Background refreshes fail silently; the stale entry keeps
		// being served.
		if s.logger != nil {
			s.logger.Debug("background refresh failed", "key", key, "err", err)
		}
		return
	}
	s.Store(params, candidates)
}

// Clear empties all tiers for all keys, including tool availability
// records sharing the KV store.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.mem = make(map[string]Entry)
	for key, timer := range s.timers {
		timer.Stop()
		delete(s.timers, key)
	}
	s.mu.Unlock()

	var firstErr error
	if s.kv != nil {
		if err := s.kv.DropAll(); err != nil {
			firstErr = err
		}
	}
	if s.cfg.Dir != "" {
		entries, err := os.ReadDir(s.cfg.Dir)
		if err == nil {
			for _, e := range entries {
				if filepath.Ext(e.Name()) == ".json" {
					_ = os.Remove(filepath.Join(s.cfg.Dir, e.Name()))
				}
			}
		} else if firstErr == nil && !os.IsNotExist(err) {
			firstErr = err
		}
	}
	return firstErr
}

// CleanupExpired deletes on-disk entries whose age exceeds a coarse
// multiple of the staleness duration, or whose schema version is
// outdated. The coarser threshold keeps disk cleanup from fighting the
// background-refresh cadence.
func (s *Store) CleanupExpired() {
	if s.cfg.Dir == "" {
		return
	}
	cutoff := 6 * s.cfg.StaleAfter
	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(s.cfg.Dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil || entry.SchemaVersion != SchemaVersion {
			_ = os.Remove(path)
			continue
		}
		if s.cfg.Clock().Sub(entry.CreatedAt) > cutoff {
			_ = os.Remove(path)
		}
	}
}

// Preload eagerly hydrates the memory tier from the KV and file tiers
// so the first lookup after a restart is not a guaranteed miss.
// Concurrent calls coalesce into a single effort and it is idempotent.
func (s *Store) Preload() {
	_, _, _ = s.preloadGroup.Do("preload", func() (interface{}, error) {
		s.preloadKV()
		s.preloadFiles()
		return nil, nil
	})
}

func (s *Store) preloadKV() {
	if s.kv == nil {
		return
	}
	err := s.kv.scan(kvCachePrefix, func(key string, value []byte) error {
		var entry Entry
		if err := json.Unmarshal(value, &entry); err != nil || entry.SchemaVersion != SchemaVersion {
			_ = s.kv.delete(key)
			return nil
		}
		s.mu.Lock()
		if _, ok := s.mem[entry.CacheKey]; !ok {
			s.mem[entry.CacheKey] = entry
		}
		s.mu.Unlock()
		return nil
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("kv preload failed", "err", err)
	}
}

func (s *Store) preloadFiles() {
	if s.cfg.Dir == "" {
		return
	}
	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(s.cfg.Dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil || entry.SchemaVersion != SchemaVersion || entry.CacheKey == "" {
			_ = os.Remove(path)
			continue
		}
		s.mu.Lock()
		if _, ok := s.mem[entry.CacheKey]; !ok {
			s.mem[entry.CacheKey] = entry
		}
		s.mu.Unlock()
	}
}

func (s *Store) storeKV(key string, entry Entry) {
	if s.kv == nil {
		return
	}
	if len(entry.Candidates) > s.cfg.KVCeiling {
		// Large result sets skip this tier; drop any smaller entry a
		// previous run may have left behind.
		_ = s.kv.delete(kvCachePrefix + key)
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := s.kv.set(kvCachePrefix+key, data); err != nil && s.logger != nil {
		s.logger.Warn("kv tier write failed", "err", err)
	}
}

func (s *Store) readFile(key string) (Entry, bool) {
	if s.cfg.Dir == "" {
		return Entry{}, false
	}
	path := filepath.Join(s.cfg.Dir, fileNameFor(key))
	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, false
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil || entry.SchemaVersion != SchemaVersion || entry.CacheKey != key {
		// Corrupt or outdated entries are absent; remove them so the
		// miss is cheaper next time.
		_ = os.Remove(path)
		return Entry{}, false
	}
	return entry, true
}

func (s *Store) writeFile(key string, entry Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if s.cfg.Dir == "" {
		return
	}
	if err := os.MkdirAll(s.cfg.Dir, 0o750); err != nil {
		s.recordFileFailure(err)
		return
	}
	path := filepath.Join(s.cfg.Dir, fileNameFor(key))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		s.recordFileFailure(err)
		return
	}
	s.mu.Lock()
	s.fileFailures = 0
	s.mu.Unlock()
}

// recordFileFailure degrades gracefully: after repeated write failures
// the file tier is skipped for the remainder of the session instead of
// being retried on every call.
func (s *Store) recordFileFailure(err error) {
	s.mu.Lock()
	s.fileFailures++
	disabled := s.fileFailures >= s.cfg.FileFailureLimit
	if disabled {
		s.filesDisabled = true
	}
	s.mu.Unlock()

	if s.logger != nil {
		if disabled {
			s.logger.Warn("file tier disabled for this session", "err", err)
		} else {
			s.logger.Warn("file tier write failed", "err", err)
		}
	}
}
