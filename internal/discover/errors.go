package discover

import (
	"errors"
	"fmt"
)

// -- Sentinels --

var (
	// ErrCancelled is wrapped by CancelledError so callers can use
	// errors.Is without knowing the concrete type.
	ErrCancelled = errors.New("search cancelled")
)

// SearchFailedError is returned when the walker executed but reported
// an error. It carries the captured stderr for the user-visible
// notification.
type SearchFailedError struct {
	Tool   string
	Stderr string
	Cause  error
}

func (e *SearchFailedError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s failed: %s", e.Tool, e.Stderr)
	}
	return fmt.Sprintf("%s failed: %v", e.Tool, e.Cause)
}

func (e *SearchFailedError) Unwrap() error { return e.Cause }

func (e *SearchFailedError) SearchFailed() bool { return true }

// CancelledError is returned when the caller's cancellation signal
// fired mid-search. It is silent at the command level.
type CancelledError struct {
	Cause error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("search cancelled: %v", e.Cause)
}

func (e *CancelledError) Unwrap() error { return e.Cause }

func (e *CancelledError) Is(target error) bool { return target == ErrCancelled }

// IsCancelled reports whether err represents user-initiated
// cancellation, whether it surfaced as a CancelledError or a raw
// context error from a subprocess.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
