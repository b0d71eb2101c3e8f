package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/steveyegge/botpanel/internal/botcli"
	"github.com/steveyegge/botpanel/internal/exitcode"
	"github.com/steveyegge/botpanel/internal/snapshot"
)

// oneShotTimeout bounds the commands of exec and status, start included.
const oneShotTimeout = 2 * time.Minute

// resolveBotDir returns the configured bot directory, which must exist.
func resolveBotDir() (string, error) {
	dir, err := cfg.BotDir()
	if err != nil {
		return "", err
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", exitcode.BotNotFound(dir)
	}
	return dir, nil
}

// newSession creates an unstarted session for a bot directory.
func newSession(dir string) *botcli.Session {
	return botcli.New(cfg.SessionConfig(dir, logger.Named("session")))
}

// withSession runs fn against a fresh session for the configured bot.
func withSession(ctx context.Context, fn func(ctx context.Context, s *botcli.Session) error) error {
	dir, err := resolveBotDir()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, oneShotTimeout)
	defer cancel()

	s := newSession(dir)
	defer func() { _ = s.Cleanup() }()
	if err := s.Start(ctx); err != nil {
		return err
	}
	return fn(ctx, s)
}

// fetchStatus runs status and decodes the snapshot.
func fetchStatus(ctx context.Context, s *botcli.Session) (*snapshot.Status, *botcli.Response, error) {
	resp, err := s.Execute(ctx, botcli.NewCommand("status"))
	if err != nil {
		return nil, resp, err
	}
	snap, err := snapshot.Decode(resp.Raw)
	if err != nil {
		return nil, resp, fmt.Errorf("reading status: %w", err)
	}
	return snap, resp, nil
}
