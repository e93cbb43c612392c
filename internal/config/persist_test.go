package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistRankerPath_CreatesConfigFromDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	require.NoError(t, FilePersister{}.PersistRankerPath("/usr/local/bin/fzf"))

	settings, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/fzf", settings.Search.RankerPath)
	// Everything else keeps its default.
	assert.Equal(t, "auto", settings.Search.WalkerPath)
}

func TestPersistRankerPath_KeepsExistingSettings(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)

	dir := filepath.Join(base, AppName)
	require.NoError(t, os.MkdirAll(dir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[search]\nmax_depth = 7\n"), 0o600))

	require.NoError(t, FilePersister{}.PersistRankerPath("/opt/fzf"))

	settings, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/opt/fzf", settings.Search.RankerPath)
	assert.Equal(t, 7, settings.Search.MaxDepth)
}
