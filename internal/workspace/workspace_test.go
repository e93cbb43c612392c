package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileIsEmptyDefinition(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "missing.code-workspace"))

	def, err := f.Load()
	require.NoError(t, err)
	assert.Empty(t, def.Folders)
}

func TestLoad_MalformedFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.code-workspace")
	require.NoError(t, os.WriteFile(path, []byte("{oops"), 0o600))

	_, err := NewFile(path).Load()
	assert.Error(t, err)
}

func TestAttach_CreatesFileAndRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "proj.code-workspace")
	f := NewFile(path)

	added, err := f.Attach([]string{"/work/api", "/work/web"})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	def, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, []Folder{{Path: "/work/api"}, {Path: "/work/web"}}, def.Folders)
}

func TestAttach_SkipsFoldersAlreadyPresent(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "proj.code-workspace"))

	_, err := f.Attach([]string{"/work/api"})
	require.NoError(t, err)

	added, err := f.Attach([]string{"/work/api", "/work/new"})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	def, err := f.Load()
	require.NoError(t, err)
	assert.Len(t, def.Folders, 2)
}

func TestAttach_NothingToAddLeavesFileUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proj.code-workspace")
	f := NewFile(path)
	_, err := f.Attach([]string{"/work/api"})
	require.NoError(t, err)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	added, err := f.Attach([]string{"/work/api"})
	require.NoError(t, err)
	assert.Zero(t, added)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestReplace_SwapsFolderSet(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "proj.code-workspace"))
	_, err := f.Attach([]string{"/old/one", "/old/two"})
	require.NoError(t, err)

	require.NoError(t, f.Replace([]string{"/new/only"}))

	def, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, []Folder{{Path: "/new/only"}}, def.Folders)
}
