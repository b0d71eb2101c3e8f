package exitcode

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/steveyegge/botpanel/internal/botcli"
)

func TestNew(t *testing.T) {
	err := New(ErrBotNotFound, "bot not found")
	if err.Code != ErrBotNotFound {
		t.Errorf("Code = %d, want %d", err.Code, ErrBotNotFound)
	}
	if err.Message != "bot not found" {
		t.Errorf("Message = %q, want %q", err.Message, "bot not found")
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(ErrBusy, "bot is busy", cause)

	if err.Code != ErrBusy {
		t.Errorf("Code = %d, want %d", err.Code, ErrBusy)
	}
	if !errors.Is(err, cause) {
		t.Error("Wrap should preserve cause for errors.Is")
	}
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "without cause",
			err:  New(ErrBotNotFound, "bot story_bot not found"),
			want: "bot story_bot not found",
		},
		{
			name: "with cause",
			err:  Wrap(ErrBusy, "bot is busy", errors.New("locked")),
			want: "bot is busy: locked",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, Success},
		{"coded error", New(ErrBotNotFound, "not found"), ErrBotNotFound},
		{"wrapped coded", fmt.Errorf("serve: %w", Busy(errors.New("locked"))), ErrBusy},
		{"plain error", errors.New("plain"), ErrGeneral},
		{"deadline", fmt.Errorf("status: %w", context.DeadlineExceeded), ErrTimeout},
		{"spawn", &botcli.SpawnError{Command: "python", Err: errors.New("not found")}, ErrSpawn},
		{"malformed", &botcli.MalformedResponseError{Line: "garbage"}, ErrMalformed},
		{"rejected", &botcli.CommandError{Command: "nope", Message: "unknown behavior"}, ErrRejected},
		{"terminated", botcli.ErrProcessTerminated, ErrTerminated},
		{"closed", fmt.Errorf("exec: %w", botcli.ErrClosed), ErrTerminated},
		{"explicit code wins", Wrap(ErrUsage, "bad command", &botcli.CommandError{Message: "x"}), ErrUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Code(tt.err); got != tt.want {
				t.Errorf("Code() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("cannot run: %w", Timeout("status"))

	if !Is(err, ErrTimeout) {
		t.Error("Is should return true for matching code")
	}
	if Is(err, ErrBotNotFound) {
		t.Error("Is should return false for non-matching code")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		wantCode int
		wantMsg  string
	}{
		{"BotNotFound", BotNotFound("story_bot"), ErrBotNotFound, "bot not found: story_bot"},
		{"FileNotFound", FileNotFound("/tmp/status.json"), ErrFileNotFound, "file not found: /tmp/status.json"},
		{"Timeout", Timeout("status"), ErrTimeout, "operation timed out: status"},
		{"Busy", Busy(nil), ErrBusy, "bot is busy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %d, want %d", tt.err.Code, tt.wantCode)
			}
			if tt.err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", tt.err.Message, tt.wantMsg)
			}
		})
	}
}
