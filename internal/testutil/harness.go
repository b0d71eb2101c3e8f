package testutil

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/steveyegge/botpanel/internal/botcli"
	"github.com/steveyegge/botpanel/internal/render"
	"github.com/steveyegge/botpanel/internal/snapshot"
	"github.com/steveyegge/botpanel/internal/testutil/fakebot"
)

// commandTimeout bounds each command a Harness sends.
const commandTimeout = 10 * time.Second

var (
	currentBehaviorRe = regexp.MustCompile(`class="behavior current[^"]*" data-behavior="([^"]+)"`)
	currentClassRe    = regexp.MustCompile(`class="(?:behavior|action) current`)
)

// Harness pairs a fake bot session with a renderer.
//
// The test binary must call fakebot.RunIfRequested from TestMain.
type Harness struct {
	Fixture  *BotFixture
	Session  *botcli.Session
	Renderer *render.Renderer
}

// NewHarness starts a fake bot session in a copy of the named fixture bot.
// The session is cleaned up with the test.
func NewHarness(t *testing.T, bot string) *Harness {
	t.Helper()

	f := NewBotFixture(t, bot)
	s := botcli.New(fakebot.SessionConfig(f.Dir()))
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Cleanup() })

	r, err := render.New()
	require.NoError(t, err)

	return &Harness{Fixture: f, Session: s, Renderer: r}
}

// Exec runs c and fails the test on any error.
func (h *Harness) Exec(t *testing.T, c botcli.Command) *botcli.Response {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	resp, err := h.Session.Execute(ctx, c)
	if err != nil {
		LogDiagnostic(t, h.Session)
	}
	require.NoError(t, err, "executing %s", c)
	return resp
}

// Status runs "status" and decodes the snapshot.
func (h *Harness) Status(t *testing.T) *snapshot.Status {
	t.Helper()
	resp := h.Exec(t, botcli.NewCommand("status"))
	s, err := snapshot.Decode(resp.Raw)
	require.NoError(t, err)
	return s
}

// Render fetches the current status and renders it.
func (h *Harness) Render(t *testing.T) string {
	t.Helper()
	html, err := h.Renderer.Fragment(h.Status(t))
	require.NoError(t, err)
	return html
}

// AssertCurrentBehavior fails unless exactly one behavior in html is
// marked current and it is name.
func AssertCurrentBehavior(t *testing.T, html, name string) {
	t.Helper()
	matches := currentBehaviorRe.FindAllStringSubmatch(html, -1)
	require.Len(t, matches, 1, "current behaviors in %s", Truncate(html, 200))
	require.Equal(t, name, matches[0][1])
}

// AssertContains fails unless html contains every substring.
func AssertContains(t *testing.T, html string, substrs ...string) {
	t.Helper()
	for _, s := range substrs {
		if !strings.Contains(html, s) {
			t.Errorf("html does not contain %q", s)
		}
	}
}

// CountCurrent returns how many behaviors and actions html marks current.
func CountCurrent(html string) int {
	return len(currentClassRe.FindAllString(html, -1))
}
