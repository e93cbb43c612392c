package rank

import (
	"path/filepath"
	"sort"
	"strings"

	"dirscout/internal/discover"
)

const (
	scoreExactName    = 1000
	scoreNameContains = 800
	scoreAllTerms     = 500
	// anchorThreshold marks a candidate as a well-matched anchor whose
	// descendants get pulled up next to it.
	anchorThreshold = 450
	// descendantBoost stays below anchorThreshold so children rank
	// just under their matched parent, never above unrelated strong
	// matches.
	descendantBoost = 300

	depthPenalty = 2
	maxDepthBite = 100
)

// separatorStripper removes the characters users skip over when typing
// a path-ish query.
var separatorStripper = strings.NewReplacer("-", "", "_", "", ".", "", " ", "", "/", "", "\\", "")

func normalize(s string) string {
	return strings.ToLower(s)
}

func stripSeparators(s string) string {
	return separatorStripper.Replace(normalize(s))
}

// prefilter cuts a large candidate set down with a cheap character
// check before the external matcher sees it. Single contiguous tokens
// use a strict substring test on separator-stripped text; multi-term
// queries use the looser per-character subsequence test.
func prefilter(candidates []discover.Candidate, query string) []discover.Candidate {
	out := make([]discover.Candidate, 0, len(candidates))
	if isSingleToken(query) {
		needle := stripSeparators(query)
		for _, c := range candidates {
			if strings.Contains(stripSeparators(c.Path), needle) {
				out = append(out, c)
			}
		}
		return out
	}
	needle := normalize(strings.Join(strings.Fields(query), ""))
	for _, c := range candidates {
		if isSubsequence(needle, normalize(c.Path)) {
			out = append(out, c)
		}
	}
	return out
}

// LocalFilter is the ranker-free scored filter: every whitespace
// separated query term must appear as an in-order character
// subsequence in at least one normalized representation of the item.
// Survivors sort exact-ish matches first, then by ascending name
// length. Exported for the interactive picker, which must never spawn
// a process per keystroke.
func LocalFilter(candidates []discover.Candidate, query string) []discover.Candidate {
	terms := strings.Fields(normalize(query))
	if len(terms) == 0 {
		return candidates
	}
	wholeQuery := stripSeparators(query)

	type scored struct {
		c     discover.Candidate
		exact bool
	}
	var kept []scored
	for _, c := range candidates {
		reps := []string{
			normalize(c.Label),
			stripSeparators(c.Label),
			stripSeparators(c.Path),
		}
		if !allTermsMatch(terms, reps) {
			continue
		}
		kept = append(kept, scored{
			c:     c,
			exact: strings.Contains(stripSeparators(c.Label), wholeQuery),
		})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].exact != kept[j].exact {
			return kept[i].exact
		}
		return len(kept[i].c.Label) < len(kept[j].c.Label)
	})

	out := make([]discover.Candidate, len(kept))
	for i, s := range kept {
		out[i] = s.c
	}
	return out
}

func allTermsMatch(terms []string, reps []string) bool {
	for _, term := range terms {
		matched := false
		for _, rep := range reps {
			if isSubsequence(term, rep) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// isSubsequence reports whether every character of needle appears, in
// order, somewhere in haystack. Both sides compare rune by rune so
// multi-byte characters match as whole characters.
func isSubsequence(needle, haystack string) bool {
	want := []rune(needle)
	if len(want) == 0 {
		return true
	}
	i := 0
	for _, r := range haystack {
		if want[i] == r {
			i++
			if i == len(want) {
				return true
			}
		}
	}
	return false
}

// FilterTargets ranks path strings for an interactive query and
// returns the surviving indexes into targets, best first. It is the
// per-keystroke entry point for the picker, so it only ever uses the
// local scorer and the hierarchy boost, never a subprocess.
func FilterTargets(query string, targets []string) []int {
	candidates := make([]discover.Candidate, len(targets))
	index := make(map[string]int, len(targets))
	for i, t := range targets {
		candidates[i] = discover.Candidate{Path: t, Label: filepath.Base(t)}
		if _, dup := index[t]; !dup {
			index[t] = i
		}
	}

	ranked := boostHierarchy(LocalFilter(candidates, query), query)

	out := make([]int, 0, len(ranked))
	for _, c := range ranked {
		out = append(out, index[c.Path])
	}
	return out
}

// matchScore is the heuristic used by the boost pass: highest for an
// exact name match, descending through substring containment and
// all-terms presence. Shallower paths score slightly higher.
func matchScore(c discover.Candidate, query string) int {
	q := normalize(query)
	name := normalize(c.Label)

	base := 0
	switch {
	case name == q:
		base = scoreExactName
	case strings.Contains(name, q):
		base = scoreNameContains
	default:
		terms := strings.Fields(q)
		pathText := normalize(c.Path)
		all := len(terms) > 0
		for _, t := range terms {
			if !strings.Contains(pathText, t) {
				all = false
				break
			}
		}
		if all {
			base = scoreAllTerms
		}
	}
	if base == 0 {
		return 0
	}

	depth := strings.Count(c.Path, string(filepath.Separator))
	bite := depth * depthPenalty
	if bite > maxDepthBite {
		bite = maxDepthBite
	}
	return base - bite
}

// boostHierarchy applies the anchor/descendant pass: any candidate
// scoring above the well-matched threshold anchors its strict path
// descendants with a fixed boost. Final order is descending boosted
// score with the incoming order as the tie-break.
func boostHierarchy(candidates []discover.Candidate, query string) []discover.Candidate {
	if len(candidates) < 2 {
		return candidates
	}

	scores := make([]int, len(candidates))
	var anchors []string
	for i, c := range candidates {
		scores[i] = matchScore(c, query)
		if scores[i] >= anchorThreshold {
			anchors = append(anchors, c.Path)
		}
	}

	for i, c := range candidates {
		if scores[i] >= anchorThreshold {
			continue
		}
		for _, anchor := range anchors {
			if isStrictDescendant(c.Path, anchor) {
				scores[i] += descendantBoost
				break
			}
		}
	}

	idx := make([]int, len(candidates))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})

	out := make([]discover.Candidate, len(candidates))
	for i, j := range idx {
		out[i] = candidates[j]
	}
	return out
}

func isStrictDescendant(path, ancestor string) bool {
	sep := string(filepath.Separator)
	trimmed := strings.TrimSuffix(ancestor, sep)
	return path != trimmed && strings.HasPrefix(path, trimmed+sep)
}
