package discover

import (
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// deriveDirectories computes the full set of ancestor directories for
// every listed file, up to but not including the containing search
// root. Deriving every ancestor, not just the immediate parent, is
// what surfaces directories that hold only subdirectories.
//
// While scanning, it also spots files that look like the fuzzy-ranker
// executable and returns them as discovered-tool candidates.
func deriveDirectories(files []string, roots []string, fs fileStater) (dirs []string, rankers []string) {
	trimmedRoots := make([]string, len(roots))
	for i, r := range roots {
		trimmedRoots[i] = strings.TrimRight(r, string(filepath.Separator))
	}

	set := make(map[string]struct{})
	rankerName := RankerExecutableName()

	for _, file := range files {
		if filepath.Base(file) == rankerName && isExecutable(file, fs) {
			rankers = append(rankers, file)
		}

		root, ok := containingRoot(file, trimmedRoots)
		if !ok {
			continue
		}
		for dir := filepath.Dir(file); len(dir) > len(root); dir = filepath.Dir(dir) {
			if !strings.HasPrefix(dir, root+string(filepath.Separator)) {
				break
			}
			if _, done := set[dir]; done {
				// All remaining ancestors are already recorded.
				break
			}
			set[dir] = struct{}{}
		}
	}

	dirs = make([]string, 0, len(set))
	for d := range set {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	sort.Strings(rankers)
	return dirs, rankers
}

// RankerExecutableName is the expected file name of the fuzzy ranker
// on the current OS.
func RankerExecutableName() string {
	if runtime.GOOS == "windows" {
		return "fzf.exe"
	}
	return "fzf"
}

func containingRoot(path string, trimmedRoots []string) (string, bool) {
	for _, root := range trimmedRoots {
		if strings.HasPrefix(path, root+string(filepath.Separator)) {
			return root, true
		}
	}
	return "", false
}

func isExecutable(path string, fs fileStater) bool {
	info, err := fs.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

// maybeAdoptRanker applies the self-configuration step: when the walk
// discovered ranker binaries and the configured path is either the
// bare default name or missing from disk, the best discovered path is
// adopted for the remainder of the call and reported to the caller.
func (p *Pipeline) maybeAdoptRanker(params *SearchParameters, discovered []string) string {
	if len(discovered) == 0 {
		return ""
	}
	if params.RankerPath != p.opts.DefaultRankerName && p.pathExists(params.RankerPath) {
		return ""
	}

	best := discovered[0]
	for _, candidate := range discovered {
		if preferredInstallDir(candidate) && !preferredInstallDir(best) {
			best = candidate
		}
	}

	params.AdoptRankerPath(best)
	if p.logger != nil {
		p.logger.Info("adopted discovered ranker", "path", best)
	}
	return best
}

// preferredInstallDir favors binaries under bin-like or system install
// directories over stray copies in source trees.
func preferredInstallDir(path string) bool {
	slashed := filepath.ToSlash(path)
	for _, marker := range []string{"/bin/", "/usr/local/", "/opt/", "/.local/"} {
		if strings.Contains(slashed, marker) {
			return true
		}
	}
	return false
}

func (p *Pipeline) pathExists(path string) bool {
	if path == "" || !filepath.IsAbs(path) && !strings.ContainsRune(path, filepath.Separator) {
		// A bare command name is resolved on PATH, not on disk.
		return false
	}
	_, err := p.fs.Stat(path)
	return err == nil
}
