// Package panel is the controller between a webview and a bot CLI session:
// it turns webview messages into CLI commands and re-renders the status
// after each one.
package panel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/steveyegge/botpanel/internal/botcli"
	"github.com/steveyegge/botpanel/internal/snapshot"
)

// ErrDisposed is returned by every operation after Dispose.
var ErrDisposed = errors.New("panel disposed")

// State is the panel lifecycle state.
type State int

const (
	// StateUninitialized means nothing has been rendered yet.
	StateUninitialized State = iota
	// StateReady means the webview shows the last rendered status.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session is the part of *botcli.Session the panel drives.
type Session interface {
	Start(ctx context.Context) error
	Execute(ctx context.Context, c botcli.Command) (*botcli.Response, error)
	Cleanup() error
}

// SessionFactory creates an unstarted session for a bot directory.
type SessionFactory func(botDir string) Session

// Renderer produces the panel body for a snapshot.
type Renderer interface {
	Fragment(s *snapshot.Status) (string, error)
}

// Options configures a Panel.
type Options struct {
	NewSession SessionFactory
	Renderer   Renderer
	Webview    Webview
	Opener     Opener
	Chat       Chat

	// BotsRoot holds one directory per bot; switchBot picks among them.
	BotsRoot string
	// BotName is the initial bot, a directory under BotsRoot.
	BotName string
	// BotDir overrides BotsRoot/BotName for the initial bot.
	BotDir string

	Logger *zap.Logger
}

// Panel owns one session and the webview it renders into. Messages are
// handled one at a time, each fully (command, then re-render) before the
// next starts.
type Panel struct {
	opts Options
	log  *zap.Logger

	mu       sync.Mutex
	state    State
	session  Session
	renderer Renderer
	view     Webview
	botName  string
	botDir   string
	last     *snapshot.Status
	lastHTML string
	disposed bool
}

// New creates a panel. Nothing is started until Start.
func New(opts Options) *Panel {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	botDir := opts.BotDir
	if botDir == "" {
		botDir = filepath.Join(opts.BotsRoot, opts.BotName)
	}
	botName := opts.BotName
	if botName == "" {
		botName = filepath.Base(botDir)
	}
	return &Panel{
		opts:     opts,
		log:      log,
		renderer: opts.Renderer,
		view:     opts.Webview,
		botName:  botName,
		botDir:   botDir,
	}
}

// Attach sets the webview and replays the last render into it.
func (p *Panel) Attach(w Webview) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.view = w
	if w != nil && p.lastHTML != "" {
		if err := w.SetHTML(p.lastHTML); err != nil {
			p.log.Warn("replaying html", zap.Error(err))
		}
	}
}

// Start starts the session and renders the first status.
func (p *Panel) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.disposed {
		return ErrDisposed
	}
	err := p.start(ctx)
	if err != nil {
		p.showError(err)
	}
	return err
}

func (p *Panel) start(ctx context.Context) error {
	if p.session == nil {
		s := p.opts.NewSession(p.botDir)
		if err := s.Start(ctx); err != nil {
			_ = s.Cleanup()
			return err
		}
		p.session = s
		p.log.Info("panel session started", zap.String("bot", p.botName), zap.String("dir", p.botDir))
	}
	return p.render(ctx)
}

// Refresh re-renders the current status.
func (p *Panel) Refresh(ctx context.Context) error {
	return p.Handle(ctx, Message{Command: MsgRefresh})
}

// Handle processes one webview message. Errors are also posted to the
// webview as displayError.
func (p *Panel) Handle(ctx context.Context, m Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.disposed {
		return ErrDisposed
	}
	err := p.handle(ctx, m)
	if err != nil {
		p.log.Warn("panel message failed", zap.String("message", m.Command), zap.Error(err))
		p.showError(err)
	}
	return err
}

func (p *Panel) handle(ctx context.Context, m Message) error {
	switch m.Command {
	case MsgRefresh:
		return p.ensureStartedAndRender(ctx)
	case MsgToggleSection:
		return nil
	case MsgOpenFile:
		return p.openFile(ctx, m.FilePath)
	case MsgSendToChat:
		return p.sendToChat(ctx)
	case MsgSwitchBot:
		return p.switchBot(ctx, m.BotName)
	}

	cmd, ok, err := Translate(m)
	if err != nil {
		return err
	}
	if !ok {
		p.log.Debug("ignoring panel message", zap.String("message", m.Command))
		return nil
	}
	if p.session == nil {
		if err := p.start(ctx); err != nil {
			return err
		}
	}
	if _, err := p.session.Execute(ctx, cmd); err != nil {
		return err
	}
	return p.render(ctx)
}

func (p *Panel) ensureStartedAndRender(ctx context.Context) error {
	if p.session == nil {
		return p.start(ctx)
	}
	return p.render(ctx)
}

// render fetches the status and replaces the webview HTML.
func (p *Panel) render(ctx context.Context) error {
	resp, err := p.session.Execute(ctx, botcli.NewCommand("status"))
	if err != nil {
		return err
	}
	snap, err := snapshot.Decode(resp.Raw)
	if err != nil {
		return err
	}
	html, err := p.renderer.Fragment(snap)
	if err != nil {
		return err
	}
	if p.view != nil {
		if err := p.view.SetHTML(html); err != nil {
			return fmt.Errorf("updating webview: %w", err)
		}
	}

	p.last = snap
	p.lastHTML = html
	if p.state == StateUninitialized {
		p.log.Debug("panel ready")
	}
	p.state = StateReady
	return nil
}

func (p *Panel) openFile(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	if p.opts.Opener == nil {
		return fmt.Errorf("opening files is not available")
	}
	if !filepath.IsAbs(path) {
		base := p.botDir
		if p.last != nil && p.last.Workspace != "" {
			base = p.last.Workspace
		}
		path = filepath.Join(base, path)
	}
	return p.opts.Opener.Open(ctx, path)
}

func (p *Panel) sendToChat(ctx context.Context) error {
	if p.last == nil || p.last.Instructions == "" {
		return fmt.Errorf("no instructions to send")
	}
	text := p.last.Instructions
	if p.opts.Chat != nil {
		if err := p.opts.Chat.Send(ctx, text); err != nil {
			return err
		}
	}
	if p.view != nil {
		return p.view.PostMessage(OutMessage{Command: OutChat, Text: text})
	}
	return nil
}

// switchBot replaces the session with one in BotsRoot/name. The old session
// is kept if the new one cannot start.
func (p *Panel) switchBot(ctx context.Context, name string) error {
	if name == "" {
		return nil
	}
	if !identPattern.MatchString(name) {
		return fmt.Errorf("invalid bot name %q", name)
	}
	dir := filepath.Join(p.opts.BotsRoot, name)
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return fmt.Errorf("bot %s not found in %s", name, p.opts.BotsRoot)
	}

	next := p.opts.NewSession(dir)
	if err := next.Start(ctx); err != nil {
		_ = next.Cleanup()
		return err
	}

	old := p.session
	p.session = next
	p.botName, p.botDir = name, dir
	if old != nil {
		if err := old.Cleanup(); err != nil {
			p.log.Warn("cleaning up previous session", zap.Error(err))
		}
	}
	p.log.Info("switched bot", zap.String("bot", name), zap.String("dir", dir))
	return p.render(ctx)
}

func (p *Panel) showError(err error) {
	if p.view == nil {
		return
	}
	if perr := p.view.PostMessage(OutMessage{Command: OutDisplayError, Error: err.Error()}); perr != nil {
		p.log.Warn("posting error to webview", zap.Error(perr))
	}
}

// Dispose stops the session and drops the renderer. It is idempotent.
func (p *Panel) Dispose() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.disposed {
		return nil
	}
	p.disposed = true
	p.renderer = nil
	p.state = StateUninitialized

	var err error
	if p.session != nil {
		err = p.session.Cleanup()
		p.session = nil
	}
	p.log.Info("panel disposed")
	return err
}

// State returns the lifecycle state.
func (p *Panel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Snapshot returns the last rendered status, or nil.
func (p *Panel) Snapshot() *snapshot.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// HTML returns the last rendered fragment.
func (p *Panel) HTML() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastHTML
}

// Bot returns the active bot's name and directory.
func (p *Panel) Bot() (name, dir string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.botName, p.botDir
}

// BotsRoot returns the directory switchBot picks bots from.
func (p *Panel) BotsRoot() string {
	return p.opts.BotsRoot
}
