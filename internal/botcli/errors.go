package botcli

import (
	"errors"
	"fmt"
)

var (
	// ErrNotStarted is returned by Execute before Start.
	ErrNotStarted = errors.New("bot cli session not started")
	// ErrClosed is returned by Execute after Cleanup.
	ErrClosed = errors.New("bot cli session closed")
	// ErrProcessTerminated is returned for the pending command when the
	// process exits, and for every command after that.
	ErrProcessTerminated = errors.New("bot cli process terminated")
)

// SpawnError reports that the bot CLI process could not be started.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("starting bot cli %q: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// MalformedResponseError reports a complete output line that is not valid JSON.
// The session stays usable.
type MalformedResponseError struct {
	Line string
	Err  error
}

func (e *MalformedResponseError) Error() string {
	line := e.Line
	if len(line) > 120 {
		line = line[:120] + "..."
	}
	if e.Err != nil {
		return fmt.Sprintf("malformed response %q: %v", line, e.Err)
	}
	return fmt.Sprintf("malformed response %q", line)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// CommandError reports a command the bot CLI rejected (an "error" field in
// its JSON response).
type CommandError struct {
	Command string
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Command, e.Message)
}
