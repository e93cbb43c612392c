// Package config loads the typed settings snapshot. Settings come from
// defaults, an optional config file, and DIRSCOUT_* environment
// variables; the loaded snapshot is validated once and then treated as
// immutable for the life of the process.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name, also the config directory name.
	AppName = "dirscout"
	// ConfigFileName is the config file name without extension.
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "toml"
)

// Settings is the typed settings snapshot handed to every component.
type Settings struct {
	Search SearchSettings `mapstructure:"search"`
	Cache  CacheSettings  `mapstructure:"cache"`
	Editor EditorSettings `mapstructure:"editor"`
}

// SearchSettings configures the discovery pipeline.
type SearchSettings struct {
	// WalkerPath is the walker executable, or "auto" for discovery.
	WalkerPath string `mapstructure:"walker_path"`
	// RankerPath is the fuzzy matcher executable; the pipeline may
	// adopt a discovered path over a bare or missing one.
	RankerPath string `mapstructure:"ranker_path"`

	Roots            []string `mapstructure:"roots"`
	ExcludePatterns  []string `mapstructure:"exclude_patterns"`
	ExtraWalkerFlags []string `mapstructure:"extra_walker_flags"`
	MaxDepth         int      `mapstructure:"max_depth"`

	EnableFuzzy           bool `mapstructure:"enable_fuzzy"`
	IncludeHidden         bool `mapstructure:"include_hidden"`
	RespectIgnoreFiles    bool `mapstructure:"respect_ignore_files"`
	IncludeWorkspaceFiles bool `mapstructure:"include_workspace_files"`

	MaxCommandOutputBytes int `mapstructure:"max_command_output_bytes"`
}

// CacheSettings configures the three-tier result cache.
type CacheSettings struct {
	// Dir overrides the platform cache directory. Empty means default.
	Dir                string `mapstructure:"dir"`
	StalenessMinutes   int    `mapstructure:"staleness_minutes"`
	DebounceMillis     int    `mapstructure:"debounce_millis"`
	CooldownSeconds    int    `mapstructure:"cooldown_seconds"`
	RefreshTimeoutSecs int    `mapstructure:"refresh_timeout_seconds"`
	KVCeiling          int    `mapstructure:"kv_ceiling"`
	FileFailureLimit   int    `mapstructure:"file_failure_limit"`
}

// EditorSettings configures the open-in-new-window command and the
// workspace definition file location.
type EditorSettings struct {
	// Command is the editor launched by `open --new-window`; the
	// chosen directory is appended as the last argument.
	Command []string `mapstructure:"command"`
	// WorkspaceFile is the workspace definition file mutated by `add`.
	WorkspaceFile string `mapstructure:"workspace_file"`
}

// Default returns the default settings.
func Default() Settings {
	return Settings{
		Search: SearchSettings{
			WalkerPath:            "auto",
			RankerPath:            "fzf",
			ExcludePatterns:       []string{"node_modules", ".git"},
			EnableFuzzy:           true,
			RespectIgnoreFiles:    true,
			IncludeWorkspaceFiles: true,
			MaxCommandOutputBytes: 32 << 20,
		},
		Cache: CacheSettings{
			StalenessMinutes:   10,
			DebounceMillis:     500,
			CooldownSeconds:    30,
			RefreshTimeoutSecs: 60,
			KVCeiling:          1000,
			FileFailureLimit:   3,
		},
		Editor: EditorSettings{
			Command:       []string{"code"},
			WorkspaceFile: "",
		},
	}
}

// Dir returns the configuration directory, honoring XDG_CONFIG_HOME.
func Dir() (string, error) {
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(base, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", AppName), nil
}

// CacheDir returns the cache directory for the file and KV tiers,
// honoring a settings override.
func (s Settings) CacheDir() (string, error) {
	if s.Cache.Dir != "" {
		return s.Cache.Dir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to get cache directory: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

// Load reads the settings snapshot. A missing config file yields the
// defaults; a malformed or invalid one is an error.
func Load() (Settings, error) {
	v := viper.New()
	applyDefaults(v)

	dir, err := Dir()
	if err != nil {
		return Settings{}, err
	}
	v.SetConfigName(ConfigFileName)
	v.SetConfigType(ConfigFileExt)
	v.AddConfigPath(dir)

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return Settings{}, fmt.Errorf("decode config: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// Reset rewrites the config file with defaults, creating the directory
// if needed.
func Reset() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}

	v := viper.New()
	applyDefaults(v)
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return path, nil
}

func applyDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("search.walker_path", d.Search.WalkerPath)
	v.SetDefault("search.ranker_path", d.Search.RankerPath)
	v.SetDefault("search.roots", d.Search.Roots)
	v.SetDefault("search.exclude_patterns", d.Search.ExcludePatterns)
	v.SetDefault("search.extra_walker_flags", d.Search.ExtraWalkerFlags)
	v.SetDefault("search.max_depth", d.Search.MaxDepth)
	v.SetDefault("search.enable_fuzzy", d.Search.EnableFuzzy)
	v.SetDefault("search.include_hidden", d.Search.IncludeHidden)
	v.SetDefault("search.respect_ignore_files", d.Search.RespectIgnoreFiles)
	v.SetDefault("search.include_workspace_files", d.Search.IncludeWorkspaceFiles)
	v.SetDefault("search.max_command_output_bytes", d.Search.MaxCommandOutputBytes)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.staleness_minutes", d.Cache.StalenessMinutes)
	v.SetDefault("cache.debounce_millis", d.Cache.DebounceMillis)
	v.SetDefault("cache.cooldown_seconds", d.Cache.CooldownSeconds)
	v.SetDefault("cache.refresh_timeout_seconds", d.Cache.RefreshTimeoutSecs)
	v.SetDefault("cache.kv_ceiling", d.Cache.KVCeiling)
	v.SetDefault("cache.file_failure_limit", d.Cache.FileFailureLimit)
	v.SetDefault("editor.command", d.Editor.Command)
	v.SetDefault("editor.workspace_file", d.Editor.WorkspaceFile)
}
