// Package exitcode defines structured exit codes for botpanel commands.
// Scripts can tell a missing bot from a crashed bot process or a rejected
// command without parsing error messages.
//
// # Exit Code Ranges
//
//   - 0: Success
//   - 1-9: General errors (usage, internal)
//   - 10-19: Resource not found (bot, file)
//   - 30-39: Bot process errors (spawn, exit, protocol, rejection)
//   - 40-49: Timeout errors
//   - 50-59: Conflict/state errors
//
// # Usage
//
//	return exitcode.BotNotFound("story_bot")      // Exit code 10
//	return exitcode.Newf(exitcode.ErrUsage, "invalid flag: %s", flag)
//
// Code also classifies botcli errors that carry no explicit code:
//
//	os.Exit(exitcode.Code(err))
package exitcode

import (
	"context"
	"errors"
	"fmt"

	"github.com/steveyegge/botpanel/internal/botcli"
)

const (
	// Success indicates the command completed successfully.
	Success = 0

	// General errors (1-9)
	ErrGeneral  = 1 // General/unknown error
	ErrUsage    = 2 // Invalid arguments or usage
	ErrInternal = 3 // Internal error (bug)

	// Resource not found (10-19)
	ErrBotNotFound  = 10 // Bot directory not found
	ErrFileNotFound = 11 // File or path not found

	// Bot process errors (30-39)
	ErrSpawn      = 30 // Bot CLI could not be started
	ErrTerminated = 31 // Bot CLI exited or was closed
	ErrMalformed  = 32 // Bot CLI wrote something that is not JSON
	ErrRejected   = 33 // Bot CLI answered with an error

	// Timeout errors (40-49)
	ErrTimeout = 40 // Operation timed out

	// Conflict/state errors (50-59)
	ErrBusy = 52 // Bot is driven by another panel
)

// Error wraps an error with a specific exit code.
type Error struct {
	Code    int
	Message string
	Cause   error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new coded error.
func New(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a new coded error with printf-style formatting.
func Newf(code int, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with a code and message.
func Wrap(code int, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Code extracts the exit code from an error. Explicit codes win; otherwise
// bot CLI errors are classified, and anything else is ErrGeneral.
func Code(err error) int {
	if err == nil {
		return Success
	}
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}

	var (
		spawn     *botcli.SpawnError
		malformed *botcli.MalformedResponseError
		rejected  *botcli.CommandError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	case errors.As(err, &spawn):
		return ErrSpawn
	case errors.As(err, &malformed):
		return ErrMalformed
	case errors.As(err, &rejected):
		return ErrRejected
	case errors.Is(err, botcli.ErrProcessTerminated), errors.Is(err, botcli.ErrClosed):
		return ErrTerminated
	}
	return ErrGeneral
}

// Is checks if an error has a specific exit code.
func Is(err error, code int) bool {
	return Code(err) == code
}

// BotNotFound returns an error for a missing bot directory.
func BotNotFound(name string) *Error {
	return Newf(ErrBotNotFound, "bot not found: %s", name)
}

// FileNotFound returns an error for a missing file.
func FileNotFound(path string) *Error {
	return Newf(ErrFileNotFound, "file not found: %s", path)
}

// Timeout returns a timeout error.
func Timeout(operation string) *Error {
	return Newf(ErrTimeout, "operation timed out: %s", operation)
}

// Busy returns an error for a bot another panel is driving.
func Busy(cause error) *Error {
	return Wrap(ErrBusy, "bot is busy", cause)
}
