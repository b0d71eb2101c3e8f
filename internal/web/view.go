package web

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/steveyegge/botpanel/internal/panel"
)

const (
	writeWait = 10 * time.Second

	// clientSendBuffer is how many messages may wait for one slow client
	// before it is dropped.
	clientSendBuffer = 64
)

var errClientBehind = errors.New("client send queue is full")

// sink receives every message the panel pushes.
type sink interface {
	send(msg panel.OutMessage) error
	close()
}

// WSView is the panel's webview: it fans every message out to the connected
// WebSocket clients and to in-flight /api/message requests.
type WSView struct {
	log *zap.Logger

	mu       sync.Mutex
	sinks    map[sink]struct{}
	lastHTML string
}

// NewWSView creates a view with no clients.
func NewWSView(log *zap.Logger) *WSView {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSView{log: log, sinks: make(map[sink]struct{})}
}

// SetHTML implements panel.Webview.
func (v *WSView) SetHTML(html string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lastHTML = html
	v.broadcastLocked(panel.OutMessage{Command: panel.OutHTML, HTML: html})
	return nil
}

// PostMessage implements panel.Webview.
func (v *WSView) PostMessage(msg panel.OutMessage) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.broadcastLocked(msg)
	return nil
}

// LastHTML is the most recent fragment passed to SetHTML.
func (v *WSView) LastHTML() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastHTML
}

// Clients returns the number of attached sinks.
func (v *WSView) Clients() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.sinks)
}

// CloseAll disconnects every client.
func (v *WSView) CloseAll() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for s := range v.sinks {
		s.close()
		delete(v.sinks, s)
	}
}

// add attaches s. With replay set, s first gets the last HTML so a new
// client starts from the current panel.
func (v *WSView) add(s sink, replay bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sinks[s] = struct{}{}
	if replay && v.lastHTML != "" {
		if err := s.send(panel.OutMessage{Command: panel.OutHTML, HTML: v.lastHTML}); err != nil {
			v.dropLocked(s, err)
		}
	}
}

func (v *WSView) remove(s sink) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.sinks, s)
}

// broadcastLocked queues under v.mu so every client sees messages in the
// order the panel produced them. Sinks must not block.
func (v *WSView) broadcastLocked(msg panel.OutMessage) {
	for s := range v.sinks {
		if err := s.send(msg); err != nil {
			v.dropLocked(s, err)
		}
	}
}

func (v *WSView) dropLocked(s sink, err error) {
	v.log.Debug("dropping webview client", zap.Error(err))
	s.close()
	delete(v.sinks, s)
}

// wsClient owns the writes to one connection. Messages are queued and
// written by writePump, so a stalled browser only ever fills its own queue.
type wsClient struct {
	conn   *websocket.Conn
	sendCh chan panel.OutMessage
	done   chan struct{}
	once   sync.Once
}

func newWSClient(conn *websocket.Conn) *wsClient {
	c := &wsClient{
		conn:   conn,
		sendCh: make(chan panel.OutMessage, clientSendBuffer),
		done:   make(chan struct{}),
	}
	go c.writePump()
	return c
}

func (c *wsClient) send(msg panel.OutMessage) error {
	select {
	case <-c.done:
		return net.ErrClosed
	default:
	}
	select {
	case c.sendCh <- msg:
		return nil
	default:
		return errClientBehind
	}
}

func (c *wsClient) writePump() {
	defer func() { _ = c.conn.Close() }()
	for {
		select {
		case msg := <-c.sendCh:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.close()
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(time.Second))
			return
		}
	}
}

// close stops the pump, which closes the connection.
func (c *wsClient) close() {
	c.once.Do(func() { close(c.done) })
}

// recorder collects the messages produced while one HTTP request is handled.
type recorder struct {
	mu   sync.Mutex
	msgs []panel.OutMessage
}

func (r *recorder) send(msg panel.OutMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder) close() {}

func (r *recorder) messages() []panel.OutMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]panel.OutMessage{}, r.msgs...)
}
