package testutil

import (
	"strings"
	"testing"
	"time"

	"github.com/steveyegge/botpanel/internal/botcli"
)

// WaitFor polls cond until it returns true or timeout elapses.
func WaitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

// LogDiagnostic logs the state of a session, for use before failing.
func LogDiagnostic(t *testing.T, s *botcli.Session) {
	t.Helper()
	if s == nil {
		t.Logf("Session is nil")
		return
	}
	t.Logf("Session: %s, Dir: %s, PID: %d, Alive: %v", s.ID(), s.Dir(), s.PID(), s.Alive())
}

func Truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	if len(s) > n {
		return s[:n]
	}
	return s
}
