// Package rank orders candidate lists by relevance to a query. The
// external fuzzy matcher drives the primary ordering; a deterministic
// local scorer covers every failure mode, and a hierarchical boost pass
// pulls a matched project's subdirectories up next to it.
package rank

import (
	"context"
	"strconv"
	"strings"
	"time"

	"dirscout/internal/discover"
	"dirscout/internal/tool/runner"

	"github.com/charmbracelet/log"
)

// commandRunner is the consumer-defined subset of the process runner
// needed to drive the external matcher in filter mode.
type commandRunner interface {
	Run(ctx context.Context, command []string, opts runner.Options) (*runner.Result, error)
}

// Engine ranks candidates for interactive queries.
type Engine struct {
	runner        commandRunner
	rankerPath    string
	rankerTimeout time.Duration
	// prefilterAbove bounds the external matcher's input: candidate
	// sets larger than this are cut down with a cheap local
	// subsequence pass first.
	prefilterAbove int
	logger         *log.Logger
}

// New creates an Engine. rankerPath may name a missing binary; every
// ranker failure falls back to local scoring.
func New(cmdRunner commandRunner, rankerPath string, rankerTimeout time.Duration, prefilterAbove int, logger *log.Logger) *Engine {
	if cmdRunner == nil {
		panic("cmdRunner is required")
	}
	if prefilterAbove <= 0 {
		prefilterAbove = 5000
	}
	if rankerTimeout <= 0 {
		rankerTimeout = 2 * time.Second
	}
	return &Engine{
		runner:         cmdRunner,
		rankerPath:     rankerPath,
		rankerTimeout:  rankerTimeout,
		prefilterAbove: prefilterAbove,
		logger:         logger,
	}
}

// SetRankerPath points subsequent queries at a different matcher
// binary, typically one a search just discovered and adopted.
func (e *Engine) SetRankerPath(path string) {
	e.rankerPath = path
}

// ForQuery returns candidates ordered by relevance to query. An empty
// or whitespace-only query returns the input unchanged. The output is
// always a permutation of a subset of the input; ties keep the order
// produced by the ranking leg.
func (e *Engine) ForQuery(ctx context.Context, candidates []discover.Candidate, query string) []discover.Candidate {
	query = strings.TrimSpace(query)
	if query == "" || len(candidates) == 0 {
		return candidates
	}

	working := candidates
	if len(working) > e.prefilterAbove {
		working = prefilter(working, query)
	}

	ranked, err := e.rankExternal(ctx, working, query)
	if err != nil {
		if e.logger != nil {
			e.logger.Debug("ranker degraded to local scoring", "err", err)
		}
		ranked = LocalFilter(working, query)
	}

	return boostHierarchy(ranked, query)
}

// rankExternal pipes the candidate set through the matcher in
// non-interactive filter mode and maps its output order back onto the
// candidates. The input lines carry an index field so only the
// searchable text is matched, never the index itself.
func (e *Engine) rankExternal(ctx context.Context, candidates []discover.Candidate, query string) ([]discover.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, e.rankerTimeout)
	defer cancel()

	var input strings.Builder
	for i, c := range candidates {
		input.WriteString(strconv.Itoa(i))
		input.WriteByte('\t')
		input.WriteString(searchText(c))
		input.WriteByte('\n')
	}

	command := []string{
		e.rankerPath,
		"--filter", query,
		"-i",
		"--delimiter", "\t",
		"--nth", "2..",
		"--tiebreak=length,begin",
	}
	if isSingleToken(query) {
		command = append(command, "--exact")
	}

	res, err := e.runner.Run(ctx, command, runner.Options{Stdin: strings.NewReader(input.String())})
	if err != nil {
		// Exit code 1 means "nothing matched", which is a valid
		// empty result, not a degradation.
		if exitErr, ok := err.(*runner.ExitError); ok && exitErr.Code == 1 {
			return nil, nil
		}
		return nil, err
	}

	var ordered []discover.Candidate
	for _, line := range strings.Split(res.Stdout, "\n") {
		idxField, _, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		idx, err := strconv.Atoi(idxField)
		if err != nil || idx < 0 || idx >= len(candidates) {
			continue
		}
		ordered = append(ordered, candidates[idx])
	}
	return ordered, nil
}

func searchText(c discover.Candidate) string {
	return c.Label + " " + c.Path
}

func isSingleToken(query string) bool {
	return !strings.ContainsAny(query, " \t")
}
