package runner

import "fmt"

// SpawnError is returned when the executable cannot be started at all.
type SpawnError struct {
	Cmd   string
	Cause error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Cmd, e.Cause)
}

func (e *SpawnError) Unwrap() error { return e.Cause }

func (e *SpawnError) SpawnFailed() bool { return true }

// ExitError is returned when the process ran but exited non-zero. It
// carries the captured stderr for diagnostics.
type ExitError struct {
	Cmd    string
	Code   int
	Stderr string
	Cause  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Cmd, e.Code)
}

func (e *ExitError) Unwrap() error { return e.Cause }

func (e *ExitError) NonZeroExit() bool { return true }
