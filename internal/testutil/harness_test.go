package testutil_test

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/botpanel/internal/botcli"
	"github.com/steveyegge/botpanel/internal/render"
	"github.com/steveyegge/botpanel/internal/snapshot"
	"github.com/steveyegge/botpanel/internal/testutil"
	"github.com/steveyegge/botpanel/internal/testutil/fakebot"
)

func TestMain(m *testing.M) {
	fakebot.RunIfRequested()
	os.Exit(m.Run())
}

func TestHarness_NavigateAndRender(t *testing.T) {
	h := testutil.NewHarness(t, "story_bot")

	h.Exec(t, botcli.ParsePath("shape"))
	html := h.Render(t)

	testutil.AssertCurrentBehavior(t, html, "shape")
	assert.Equal(t, 2, testutil.CountCurrent(html))
	testutil.AssertContains(t, html, `data-action="clarify"`, "Shape the story map")
}

func TestHarness_RenderIsCanonicalAndStable(t *testing.T) {
	h := testutil.NewHarness(t, "story_bot")

	first := h.Render(t)
	second := h.Render(t)
	assert.Equal(t, first, second)

	var positions []int
	for _, name := range snapshot.CanonicalOrder {
		if i := strings.Index(first, `data-behavior="`+name+`"`); i >= 0 {
			positions = append(positions, i)
		}
	}
	require.Len(t, positions, 7)
	for i := 1; i < len(positions); i++ {
		assert.Less(t, positions[i-1], positions[i], "behaviors out of canonical order")
	}
}

func TestHarness_EmptyInstructions(t *testing.T) {
	h := testutil.NewHarness(t, "tiny_bot")

	st := h.Status(t)
	assert.Equal(t, "tiny_bot", st.BotName)
	assert.Empty(t, st.Instructions)

	html := h.Render(t)
	testutil.AssertCurrentBehavior(t, html, "shape")
	testutil.AssertContains(t, html, render.EmptyInstructions)
}

func TestBotFixture_CopiesBots(t *testing.T) {
	f := testutil.NewBotFixture(t, "story_bot", "tiny_bot")

	assert.FileExists(t, f.Path(fakebot.ConfigFile))
	assert.FileExists(t, f.Root+"/tiny_bot/"+fakebot.ConfigFile)

	f.WriteFile("docs/notes.md", "hello")
	data, err := os.ReadFile(f.Path("docs/notes.md"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestWaitFor(t *testing.T) {
	start := time.Now()
	ok := testutil.WaitFor(t, time.Second, func() bool {
		return time.Since(start) > 30*time.Millisecond
	})
	assert.True(t, ok)
	assert.False(t, testutil.WaitFor(t, 20*time.Millisecond, func() bool { return false }))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, `ab\n`, testutil.Truncate("ab\ncd", 4))
	assert.Equal(t, "short", testutil.Truncate("short", 10))
}
