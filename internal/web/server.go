// Package web serves the panel to a browser: the page, a WebSocket that
// carries panel messages both ways, and a plain HTTP fallback.
package web

import (
	"context"
	"errors"
	"html"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/botpanel/internal/config"
	"github.com/steveyegge/botpanel/internal/panel"
	"github.com/steveyegge/botpanel/internal/render"
)

// Options configures a Server.
type Options struct {
	Panel    *panel.Panel
	View     *WSView
	Renderer *render.Renderer
	// Lock is the lock on the initial bot directory; the server moves it
	// when the panel switches bots and releases it on Close.
	Lock *Lock
	// Watch refreshes the panel when files in the bot directory change.
	Watch    bool
	Debounce time.Duration
	// CommandTimeout bounds each panel message. Zero means no limit.
	CommandTimeout time.Duration
	Logger         *zap.Logger
}

// Server is the panel's web host.
type Server struct {
	panel    *panel.Panel
	view     *WSView
	renderer *render.Renderer
	watcher  *Watcher
	timeout  time.Duration
	log      *zap.Logger
	upgrader websocket.Upgrader

	// mu serializes dispatch so lock and watch bookkeeping follow the
	// panel's bot.
	mu   sync.Mutex
	lock *Lock
}

// NewServer creates a server around a panel whose webview is opts.View.
func NewServer(opts Options) (*Server, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		panel:    opts.Panel,
		view:     opts.View,
		renderer: opts.Renderer,
		timeout:  opts.CommandTimeout,
		log:      log,
		lock:     opts.Lock,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	if opts.Watch {
		w, err := NewWatcher(s.refreshOnChange, opts.Debounce, log.Named("watch"))
		if err != nil {
			return nil, err
		}
		_, dir := s.panel.Bot()
		if err := w.SetDir(dir); err != nil {
			log.Warn("bot directory will not be watched", zap.Error(err))
		}
		s.watcher = w
	}
	return s, nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(sameOriginMiddleware)

	r.Get("/", s.handleIndex)
	r.Get("/ws", s.handleWS)
	r.Post("/api/message", s.handleMessage)
	r.Get("/healthz", s.handleHealth)
	return r
}

// Run serves on ln until ctx is done or the server fails.
func (s *Server) Run(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if s.watcher != nil {
		g.Go(func() error { return s.watcher.Run(ctx) })
	}
	g.Go(func() error {
		<-ctx.Done()
		s.view.CloseAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	s.log.Info("panel host listening", zap.String("addr", ln.Addr().String()))
	return g.Wait()
}

// Close releases the bot lock.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.lock.Release()
	s.lock = nil
	return err
}

// dispatch hands one message to the panel.
func (s *Server) dispatch(ctx context.Context, m panel.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A command canceled mid-flight kills the bot process, so a closed
	// browser tab must not cancel it.
	ctx = context.WithoutCancel(ctx)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var err error
	if m.Command == panel.MsgSwitchBot {
		err = s.switchBot(ctx, m)
	} else {
		err = s.panel.Handle(ctx, m)
	}
	s.syncWatch()
	return err
}

// syncWatch points the watcher at the panel's current bot.
func (s *Server) syncWatch() {
	if s.watcher == nil {
		return
	}
	if _, dir := s.panel.Bot(); dir != s.watcher.Dir() {
		if err := s.watcher.SetDir(dir); err != nil {
			s.log.Warn("bot directory will not be watched", zap.Error(err))
		}
	}
}

// switchBot moves the lock to the new bot before the panel switches, so
// two hosts never drive the same bot.
func (s *Server) switchBot(ctx context.Context, m panel.Message) error {
	_, current := s.panel.Bot()
	dir := filepath.Join(s.panel.BotsRoot(), m.BotName)
	bots, _ := config.ListBots(s.panel.BotsRoot())
	if s.lock == nil || dir == current || !slices.Contains(bots, m.BotName) {
		// The panel reports unknown bots itself.
		return s.panel.Handle(ctx, m)
	}

	next, err := AcquireLock(dir)
	if err != nil {
		_ = s.view.PostMessage(panel.OutMessage{Command: panel.OutDisplayError, Error: err.Error()})
		return err
	}
	handleErr := s.panel.Handle(ctx, m)

	if _, now := s.panel.Bot(); now == dir {
		_ = s.lock.Release()
		s.lock = next
	} else {
		_ = next.Release()
	}
	return handleErr
}

func (s *Server) refreshOnChange(ctx context.Context) error {
	if s.panel.State() != panel.StateReady {
		return nil
	}
	return s.dispatch(ctx, panel.Message{Command: panel.MsgRefresh})
}

// handleIndex serves the full page, starting the panel on first load.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var startErr error
	if s.panel.State() != panel.StateReady {
		startErr = s.dispatch(r.Context(), panel.Message{Command: panel.MsgRefresh})
	}

	fragment := s.panel.HTML()
	if fragment == "" && startErr != nil {
		fragment = `<p class="error">` + html.EscapeString(startErr.Error()) + `</p>`
	}

	name, _ := s.panel.Bot()
	bots, err := config.ListBots(s.panel.BotsRoot())
	if err != nil {
		s.log.Debug("bot switcher disabled", zap.Error(err))
	}
	page, err := s.renderer.Page(fragment, render.PageData{Bots: bots, CurrentBot: name})
	if err != nil {
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, page)
}

// handleWS attaches a WebSocket client to the view and feeds its messages
// to the panel.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(maxMessageBytes)

	c := newWSClient(conn)
	s.view.add(c, true)
	defer func() {
		s.view.remove(c)
		c.close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("websocket closed", zap.Error(err))
			}
			return
		}
		m, err := panel.DecodeMessage(data)
		if err != nil {
			_ = c.send(panel.OutMessage{Command: panel.OutDisplayError, Error: err.Error()})
			continue
		}
		// The panel posts its own errors to every client.
		_ = s.dispatch(r.Context(), m)
	}
}

// messageResponse is the reply to POST /api/message.
type messageResponse struct {
	Messages []panel.OutMessage `json:"messages"`
}

// handleMessage handles one message for clients without a WebSocket. The
// reply carries the messages the panel pushed meanwhile.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBytes))
	if err != nil {
		writeError(w, "reading request body", http.StatusBadRequest)
		return
	}
	m, err := panel.DecodeMessage(data)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec := &recorder{}
	s.view.add(rec, false)
	_ = s.dispatch(r.Context(), m)
	s.view.remove(rec)

	writeJSON(w, messageResponse{Messages: rec.messages()})
}

// handleHealth reports the panel state.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	name, dir := s.panel.Bot()
	writeJSON(w, map[string]string{
		"status": "ok",
		"state":  s.panel.State().String(),
		"bot":    name,
		"dir":    dir,
	})
}
