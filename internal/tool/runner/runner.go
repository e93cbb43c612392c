package runner

import (
	"context"
	"io"
	"os"
	"os/exec"
	"time"
)

// Result represents the outcome of a command execution. Stdout is
// captured byte-exact up to the configured ceiling.
type Result struct {
	Stdout    string
	Stderr    string
	ExitCode  int
	Truncated bool
}

// Options controls a single invocation.
type Options struct {
	Dir   string
	Env   []string
	Stdin io.Reader
}

// OSRunner executes real system commands via os/exec.
type OSRunner struct {
	maxOutputBytes int
}

// NewOSRunner creates an OSRunner with the given per-stream output
// ceiling in bytes.
func NewOSRunner(maxOutputBytes int) *OSRunner {
	if maxOutputBytes <= 0 {
		panic("maxOutputBytes must be positive")
	}
	return &OSRunner{maxOutputBytes: maxOutputBytes}
}

// Run spawns the command, collects stdout and stderr, and waits for
// exit. On a zero exit it returns the result with a nil error. On a
// non-zero exit it returns the result together with an *ExitError
// carrying the captured stderr. If the process cannot be started it
// returns a *SpawnError. When ctx is cancelled the process is killed
// and the call settles with the context error.
func (r *OSRunner) Run(ctx context.Context, command []string, opts Options) (*Result, error) {
	if len(command) == 0 {
		return nil, os.ErrInvalid
	}

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Dir = opts.Dir
	cmd.Env = opts.Env
	cmd.Stdin = opts.Stdin
	// Bound Wait when a killed process leaves descendants holding the
	// output pipes open.
	cmd.WaitDelay = 2 * time.Second

	// The collectors are attached directly so Wait only returns once
	// both streams are fully drained into them. Reading the pipes in a
	// separate goroutine races Wait, which closes them on exit.
	outCollector := newCollector(r.maxOutputBytes)
	errCollector := newCollector(r.maxOutputBytes)
	cmd.Stdout = outCollector
	cmd.Stderr = errCollector

	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &SpawnError{Cmd: command[0], Cause: err}
	}

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	res := &Result{
		Stdout:    outCollector.String(),
		Stderr:    errCollector.String(),
		ExitCode:  exitCode(waitErr),
		Truncated: outCollector.Truncated() || errCollector.Truncated(),
	}
	if waitErr != nil {
		return res, &ExitError{Cmd: command[0], Code: res.ExitCode, Stderr: res.Stderr, Cause: waitErr}
	}
	return res, nil
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	type exitCoder interface {
		ExitCode() int
	}
	if ec, ok := err.(exitCoder); ok {
		return ec.ExitCode()
	}
	return -1
}
