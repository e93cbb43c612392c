package probe

import (
	"context"
	"strings"

	"dirscout/internal/tool/runner"

	"github.com/charmbracelet/log"
)

// Record is a persisted availability verdict for one tool identity.
// Verdicts persist indefinitely until explicitly invalidated: tool
// presence on a machine is stable, while execution failures (stale
// path, removed binary) must actively evict the record.
type Record struct {
	Identity  string `json:"identity"`
	ToolPath  string `json:"toolPath"`
	Available bool   `json:"available"`
}

// RecordStore persists availability records across restarts.
type RecordStore interface {
	GetRecord(identity string) (Record, bool, error)
	PutRecord(rec Record) error
	DeleteRecord(identity string) error
}

// commandRunner is the consumer-defined subset of the process runner
// needed for version probes.
type commandRunner interface {
	Run(ctx context.Context, command []string, opts runner.Options) (*runner.Result, error)
}

// Probe answers "does this external tool respond correctly to a
// version probe", with a persistent positive/negative cache so the
// check is free on every search after the first.
type Probe struct {
	runner commandRunner
	store  RecordStore
	logger *log.Logger
}

// New creates a Probe with injected dependencies.
func New(cmdRunner commandRunner, store RecordStore, logger *log.Logger) *Probe {
	if cmdRunner == nil {
		panic("cmdRunner is required")
	}
	if store == nil {
		panic("store is required")
	}
	return &Probe{runner: cmdRunner, store: store, logger: logger}
}

// Check returns the usable tool path for identity, probing the tool
// with its version flag on the first call and serving the persisted
// verdict afterwards. expectSubstring, when non-empty, must appear in
// the probe's stdout for the tool to count as available.
func (p *Probe) Check(ctx context.Context, identity, toolPath, expectSubstring string) (string, error) {
	if rec, ok, err := p.store.GetRecord(identity); err == nil && ok {
		if rec.Available {
			return rec.ToolPath, nil
		}
		return "", &ToolUnavailableError{Tool: identity, Path: rec.ToolPath}
	} else if err != nil && p.logger != nil {
		p.logger.Warn("availability record read failed", "tool", identity, "err", err)
	}

	available := p.runProbe(ctx, toolPath, expectSubstring)
	if ctx.Err() != nil {
		// Cancellation is not a verdict; persist nothing.
		return "", ctx.Err()
	}

	rec := Record{Identity: identity, ToolPath: toolPath, Available: available}
	if err := p.store.PutRecord(rec); err != nil && p.logger != nil {
		p.logger.Warn("availability record write failed", "tool", identity, "err", err)
	}

	if !available {
		return "", &ToolUnavailableError{Tool: identity, Path: toolPath}
	}
	return toolPath, nil
}

// Invalidate removes the persisted verdict for identity. Callers must
// invoke this whenever a cached-available tool fails to execute during
// real use, so a removed or moved binary self-heals on the next search.
func (p *Probe) Invalidate(identity string) {
	if err := p.store.DeleteRecord(identity); err != nil && p.logger != nil {
		p.logger.Warn("availability record delete failed", "tool", identity, "err", err)
	}
}

func (p *Probe) runProbe(ctx context.Context, toolPath, expectSubstring string) bool {
	res, err := p.runner.Run(ctx, []string{toolPath, "--version"}, runner.Options{})
	if err != nil || res.ExitCode != 0 {
		return false
	}
	if expectSubstring != "" && !strings.Contains(res.Stdout, expectSubstring) {
		return false
	}
	return true
}
