package termutil

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionClosed is returned when writing to a session that has shut
	// down
	ErrSessionClosed = errors.New("session closed")
	// ErrCompletionInFlight is returned when a completion is requested while
	// another one is still waiting for its echo
	ErrCompletionInFlight = errors.New("completion already in flight")
	// ErrNoCompletion is returned when the shell did not answer a completion
	// probe in time
	ErrNoCompletion = errors.New("no completion available")
	// ErrEmptyPrefix is returned when completing an empty command line
	ErrEmptyPrefix = errors.New("empty completion prefix")
)

// StartupError is returned by Spawn when the pty or the child process could
// not be provisioned
type StartupError struct {
	Path string
	Err  error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("start %s: %v", e.Path, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}
