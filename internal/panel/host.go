package panel

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Webview is the surface the panel renders into.
type Webview interface {
	// SetHTML replaces the whole panel body.
	SetHTML(html string) error
	// PostMessage pushes a message such as displayError.
	PostMessage(msg OutMessage) error
}

// Opener opens a file for the user.
type Opener interface {
	Open(ctx context.Context, path string) error
}

// Chat receives instructions the user sends to chat.
type Chat interface {
	Send(ctx context.Context, text string) error
}

// SystemOpener opens files with the platform's default application.
type SystemOpener struct{}

// Open starts the opener command and does not wait for it.
func (SystemOpener) Open(ctx context.Context, path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", path)
	case "linux":
		cmd = exec.CommandContext(ctx, "xdg-open", path)
	case "windows":
		cmd = exec.CommandContext(ctx, "cmd", "/c", "start", "", path)
	default:
		return fmt.Errorf("opening files is not supported on %s", runtime.GOOS)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// CommandChat pipes chat text to a shell command's stdin.
type CommandChat struct {
	Command string
}

// Send runs the command and waits for it.
func (c CommandChat) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(c.Command) == "" {
		return nil
	}
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/c", c.Command)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", c.Command)
	}
	cmd.Stdin = strings.NewReader(text)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("chat command: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
