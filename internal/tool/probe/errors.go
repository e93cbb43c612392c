package probe

import (
	"errors"
	"fmt"
)

// ErrToolUnavailable is wrapped by ToolUnavailableError for errors.Is
// checks at the command level.
var ErrToolUnavailable = errors.New("tool unavailable")

// ToolUnavailableError is returned when a tool does not respond
// correctly to its version probe, a negative verdict is cached, or a
// supposedly available tool failed to start during real use.
type ToolUnavailableError struct {
	Tool  string
	Path  string
	Cause error
}

func (e *ToolUnavailableError) Error() string {
	return fmt.Sprintf("tool %s is not available at %q", e.Tool, e.Path)
}

func (e *ToolUnavailableError) Unwrap() error { return e.Cause }

func (e *ToolUnavailableError) Is(target error) bool { return target == ErrToolUnavailable }
