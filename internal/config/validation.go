package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidSettings is wrapped by every validation failure.
	ErrInvalidSettings = errors.New("invalid settings")
)

// Validate checks the loaded snapshot. It runs once at load time; a
// valid snapshot never becomes invalid afterwards.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.Search.WalkerPath) == "" {
		return fmt.Errorf("%w: search.walker_path must not be empty (use \"auto\" for discovery)", ErrInvalidSettings)
	}
	if strings.TrimSpace(s.Search.RankerPath) == "" && s.Search.EnableFuzzy {
		return fmt.Errorf("%w: search.ranker_path must not be empty while fuzzy ranking is enabled", ErrInvalidSettings)
	}
	if s.Search.MaxDepth < 0 {
		return fmt.Errorf("%w: search.max_depth must not be negative", ErrInvalidSettings)
	}
	if s.Search.MaxCommandOutputBytes <= 0 {
		return fmt.Errorf("%w: search.max_command_output_bytes must be positive", ErrInvalidSettings)
	}
	for _, field := range []struct {
		name  string
		value int
	}{
		{"cache.staleness_minutes", s.Cache.StalenessMinutes},
		{"cache.debounce_millis", s.Cache.DebounceMillis},
		{"cache.cooldown_seconds", s.Cache.CooldownSeconds},
		{"cache.refresh_timeout_seconds", s.Cache.RefreshTimeoutSecs},
		{"cache.kv_ceiling", s.Cache.KVCeiling},
		{"cache.file_failure_limit", s.Cache.FileFailureLimit},
	} {
		if field.value <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidSettings, field.name)
		}
	}
	if len(s.Editor.Command) == 0 {
		return fmt.Errorf("%w: editor.command must name an executable", ErrInvalidSettings)
	}
	return nil
}
