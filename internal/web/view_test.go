package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/botpanel/internal/panel"
	"github.com/steveyegge/botpanel/internal/testutil"
)

// viewServer attaches every WebSocket it accepts to v.
func viewServer(t *testing.T, v *WSView) string {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := (&websocket.Upgrader{}).Upgrade(w, r, nil)
		if err != nil {
			return
		}
		v.add(newWSClient(conn), true)
	}))
	t.Cleanup(ts.Close)
	t.Cleanup(v.CloseAll)
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func TestWSView_StalledClientDoesNotBlockBroadcast(t *testing.T) {
	v := NewWSView(nil)
	url := viewServer(t, v)

	// Never read from this one.
	stalled, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = stalled.Close() })
	require.True(t, testutil.WaitFor(t, 5*time.Second, func() bool { return v.Clients() == 1 }))

	html := strings.Repeat("x", 256<<10)
	start := time.Now()
	for i := 0; i < 4*clientSendBuffer; i++ {
		require.NoError(t, v.SetHTML(html))
	}
	assert.Less(t, time.Since(start), writeWait/2)

	assert.True(t, testutil.WaitFor(t, 5*time.Second, func() bool { return v.Clients() == 0 }),
		"a client that falls behind is dropped")
	assert.Equal(t, html, v.LastHTML())
}

func TestWSView_ClientGetsMessagesInOrder(t *testing.T) {
	v := NewWSView(nil)
	require.NoError(t, v.SetHTML("<p>first</p>"))
	url := viewServer(t, v)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.True(t, testutil.WaitFor(t, 5*time.Second, func() bool { return v.Clients() == 1 }))

	require.NoError(t, v.PostMessage(panel.OutMessage{Command: panel.OutDisplayError, Error: "boom"}))
	require.NoError(t, v.SetHTML("<p>second</p>"))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var got []panel.OutMessage
	for range 3 {
		var msg panel.OutMessage
		require.NoError(t, conn.ReadJSON(&msg))
		got = append(got, msg)
	}
	assert.Equal(t, "<p>first</p>", got[0].HTML, "replayed on connect")
	assert.Equal(t, "boom", got[1].Error)
	assert.Equal(t, "<p>second</p>", got[2].HTML)
}

func TestWSView_CloseAllSendsCloseFrame(t *testing.T) {
	v := NewWSView(nil)
	url := viewServer(t, v)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.True(t, testutil.WaitFor(t, 5*time.Second, func() bool { return v.Clients() == 1 }))

	v.CloseAll()
	assert.Zero(t, v.Clients())

	// The pump sends a close frame on the way out.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}
