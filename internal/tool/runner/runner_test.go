package runner

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests use a posix shell")
	}
}

func TestRun_CapturesStdout(t *testing.T) {
	requireShell(t)
	r := NewOSRunner(1 << 20)

	res, err := r.Run(context.Background(), []string{"sh", "-c", "echo hello"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", res.Stdout)
	assert.Equal(t, 0, res.ExitCode)
	assert.False(t, res.Truncated)
}

func TestRun_RepeatedRunsCaptureAllOutput(t *testing.T) {
	requireShell(t)
	r := NewOSRunner(1 << 20)

	// Output must be complete on every iteration, not just most of
	// them; a wait/read race shows up here as an empty Stdout.
	for i := 0; i < 30; i++ {
		res, err := r.Run(context.Background(), []string{"sh", "-c", "echo hello; echo world >&2"}, Options{})
		require.NoError(t, err)
		require.Equal(t, "hello\n", res.Stdout)
		require.Equal(t, "world\n", res.Stderr)
	}
}

func TestRun_NonZeroExitReturnsResultAndExitError(t *testing.T) {
	requireShell(t)
	r := NewOSRunner(1 << 20)

	res, err := r.Run(context.Background(), []string{"sh", "-c", "echo oops >&2; exit 3"}, Options{})
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
	assert.Contains(t, exitErr.Stderr, "oops")

	require.NotNil(t, res)
	assert.Equal(t, 3, res.ExitCode)
}

func TestRun_MissingBinaryIsSpawnError(t *testing.T) {
	r := NewOSRunner(1 << 20)

	_, err := r.Run(context.Background(), []string{"definitely-not-a-real-binary-12345"}, Options{})
	var spawnErr *SpawnError
	require.ErrorAs(t, err, &spawnErr)
	assert.True(t, spawnErr.SpawnFailed())
}

func TestRun_StdinForwarded(t *testing.T) {
	requireShell(t)
	r := NewOSRunner(1 << 20)

	res, err := r.Run(context.Background(), []string{"cat"}, Options{Stdin: strings.NewReader("piped input")})
	require.NoError(t, err)
	assert.Equal(t, "piped input", res.Stdout)
}

func TestRun_OutputTruncatedAtCeiling(t *testing.T) {
	requireShell(t)
	r := NewOSRunner(16)

	res, err := r.Run(context.Background(), []string{"sh", "-c", "printf 'aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa'"}, Options{})
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Len(t, res.Stdout, 16)
}

func TestRun_CancellationKillsProcess(t *testing.T) {
	requireShell(t)
	r := NewOSRunner(1 << 20)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Run(ctx, []string{"sh", "-c", "sleep 30"}, Options{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRun_WorkingDirectoryApplied(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	r := NewOSRunner(1 << 20)

	res, err := r.Run(context.Background(), []string{"pwd"}, Options{Dir: dir})
	require.NoError(t, err)
	assert.Contains(t, strings.TrimSpace(res.Stdout), strings.TrimPrefix(dir, "/private"))
}
