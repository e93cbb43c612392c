package discover

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"

	"dirscout/internal/tool/probe"
)

// resolveWalker finds a usable walker executable. A configured
// explicit path is tried alone; in auto mode, well-known bundled
// editor install locations are probed first, then the bare command
// name on PATH. Failure here is fatal for the search.
func (p *Pipeline) resolveWalker(ctx context.Context) (string, error) {
	if p.opts.WalkerPath != "" && p.opts.WalkerPath != "auto" {
		path, err := p.probe.Check(ctx, WalkerIdentityPrefix+p.opts.WalkerPath, p.opts.WalkerPath, walkerProbeSubstring)
		if err != nil {
			if ctx.Err() != nil {
				return "", &CancelledError{Cause: ctx.Err()}
			}
			if errors.Is(err, probe.ErrToolUnavailable) {
				return "", err
			}
			return "", &probe.ToolUnavailableError{Tool: "walker", Path: p.opts.WalkerPath, Cause: err}
		}
		return path, nil
	}

	for _, candidate := range walkerSearchPaths() {
		path, err := p.probe.Check(ctx, WalkerIdentityPrefix+candidate, candidate, walkerProbeSubstring)
		if err == nil {
			return path, nil
		}
		if ctx.Err() != nil {
			return "", &CancelledError{Cause: ctx.Err()}
		}
	}
	return "", &probe.ToolUnavailableError{Tool: "walker", Path: "auto"}
}

// walkerSearchPaths lists the bundled-editor install locations probed
// in auto mode, ending with the bare command name on PATH.
func walkerSearchPaths() []string {
	var paths []string
	home, _ := os.UserHomeDir()

	switch runtime.GOOS {
	case "darwin":
		paths = append(paths,
			"/Applications/Visual Studio Code.app/Contents/Resources/app/node_modules/@vscode/ripgrep/bin/fd",
			"/usr/local/bin/fd",
			"/opt/homebrew/bin/fd",
		)
	case "windows":
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			paths = append(paths, filepath.Join(local, "Programs", "fd", "fd.exe"))
		}
		paths = append(paths, `C:\Program Files\fd\fd.exe`)
	default:
		paths = append(paths,
			"/usr/local/bin/fd",
			"/usr/bin/fd",
			"/usr/bin/fdfind",
		)
		if home != "" {
			paths = append(paths, filepath.Join(home, ".local", "bin", "fd"))
		}
	}

	name := "fd"
	if runtime.GOOS == "windows" {
		name = "fd.exe"
	}
	return append(paths, name)
}
