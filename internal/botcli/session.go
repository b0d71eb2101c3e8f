// Package botcli runs the bot CLI as a long-lived child process and speaks
// its line protocol: one command line in, one JSON value out.
//
// There are no request ids on the wire. Responses are correlated purely by
// order, so a Session never has more than one command in flight.
package botcli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// cleanupTimeout bounds how long Cleanup waits for the process and its
// reader goroutines after killing it.
const cleanupTimeout = 5 * time.Second

// Config describes how to launch the bot CLI.
type Config struct {
	// Command is the executable, e.g. "python".
	Command string
	// Args are passed to Command.
	Args []string
	// Dir is the bot configuration directory and the process working directory.
	Dir string
	// Env entries (KEY=VALUE) are appended to the inherited environment.
	Env []string
	// Logger receives session diagnostics. Nil means no logging.
	Logger *zap.Logger
}

type result struct {
	resp *Response
	err  error
}

// Session owns one bot CLI process.
type Session struct {
	cfg Config
	id  string
	log *zap.Logger

	// cmdMu is held for a whole write-then-wait rendezvous, which is what
	// keeps at most one command in flight.
	cmdMu sync.Mutex

	mu          sync.Mutex
	cmd         *exec.Cmd
	stdin       io.WriteCloser
	pending     chan result
	pendingLine string
	started     bool
	exited      bool
	closed      bool

	readers sync.WaitGroup
	done    chan struct{}
	once    sync.Once
}

// New creates a session. The process is not started until Start.
func New(cfg Config) *Session {
	id := uuid.NewString()
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		cfg:  cfg,
		id:   id,
		log:  log.With(zap.String("session", id[:8])),
		done: make(chan struct{}),
	}
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// Dir returns the bot directory the session runs in.
func (s *Session) Dir() string { return s.cfg.Dir }

// Start spawns the bot CLI. Calling Start on a running session is a no-op.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.started {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.cfg.Command == "" {
		return &SpawnError{Err: errors.New("no command configured")}
	}

	cmd := exec.Command(s.cfg.Command, s.cfg.Args...)
	cmd.Dir = s.cfg.Dir
	cmd.Env = append(os.Environ(), s.cfg.Env...)
	setProcAttrs(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &SpawnError{Command: s.cfg.Command, Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &SpawnError{Command: s.cfg.Command, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &SpawnError{Command: s.cfg.Command, Err: err}
	}

	if err := cmd.Start(); err != nil {
		return &SpawnError{Command: s.cfg.Command, Err: err}
	}

	s.cmd = cmd
	s.stdin = stdin
	s.started = true

	s.log.Info("bot cli started",
		zap.String("command", s.cfg.Command),
		zap.Strings("args", s.cfg.Args),
		zap.String("dir", s.cfg.Dir),
		zap.Int("pid", cmd.Process.Pid))

	s.readers.Add(2)
	go s.readStdout(stdout)
	go s.readStderr(stderr)

	go func() {
		s.readers.Wait()
		err := cmd.Wait()
		s.log.Debug("bot cli exited", zap.Error(err))
		close(s.done)
	}()

	return nil
}

// Alive reports whether the process is running and accepting commands.
func (s *Session) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.exited && !s.closed
}

// PID returns the process id, or 0 if the process was never started.
func (s *Session) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Execute encodes c, sends it and waits for the matching response.
func (s *Session) Execute(ctx context.Context, c Command) (*Response, error) {
	line, err := c.Encode()
	if err != nil {
		return nil, err
	}
	return s.ExecuteLine(ctx, line)
}

// ExecuteLine sends one raw command line and waits for the next complete
// JSON value. If the value carries an "error" field the response is returned
// together with a *CommandError.
//
// If ctx ends while the command is in flight the process is killed: without
// request ids a late answer would otherwise be taken as the reply to the
// next command.
func (s *Session) ExecuteLine(ctx context.Context, line string) (*Response, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, errors.New("empty command")
	}
	if strings.ContainsAny(line, "\r\n") {
		return nil, errors.New("command contains a line break")
	}

	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return nil, ErrClosed
	case !s.started:
		s.mu.Unlock()
		return nil, ErrNotStarted
	case s.exited:
		s.mu.Unlock()
		return nil, ErrProcessTerminated
	}
	ch := make(chan result, 1)
	s.pending = ch
	s.pendingLine = line
	stdin := s.stdin
	s.mu.Unlock()

	start := time.Now()
	s.log.Debug("sending command", zap.String("command", line))

	if _, err := io.WriteString(stdin, line+"\n"); err != nil {
		s.clearPending(ch)
		if !s.Alive() {
			return nil, ErrProcessTerminated
		}
		return nil, fmt.Errorf("writing command %q: %w", line, err)
	}

	select {
	case r := <-ch:
		if r.err != nil {
			s.log.Warn("command failed", zap.String("command", line), zap.Error(r.err))
			return nil, r.err
		}
		s.log.Debug("command completed",
			zap.String("command", line),
			zap.Duration("elapsed", time.Since(start)))
		if err := r.resp.Err(); err != nil {
			return r.resp, err
		}
		return r.resp, nil
	case <-ctx.Done():
		s.clearPending(ch)
		s.log.Warn("abandoning command, terminating process",
			zap.String("command", line), zap.Error(ctx.Err()))
		s.terminate()
		return nil, fmt.Errorf("waiting for response to %q: %w", line, ctx.Err())
	}
}

// Cleanup kills the process and releases its pipes. It is safe to call more
// than once; later calls return nil.
func (s *Session) Cleanup() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		started := s.started
		ch := s.takePendingLocked()
		s.mu.Unlock()

		if ch != nil {
			ch <- result{err: ErrClosed}
		}
		if !started {
			close(s.done)
			return
		}

		_ = s.stdin.Close()
		if kerr := killProcess(s.cmd); kerr != nil {
			s.log.Debug("kill bot cli", zap.Error(kerr))
		}

		select {
		case <-s.done:
		case <-time.After(cleanupTimeout):
			err = fmt.Errorf("bot cli did not exit within %v", cleanupTimeout)
			s.log.Warn("timeout waiting for bot cli to exit")
		}
		s.log.Info("bot cli session closed")
	})
	return err
}

// Done is closed once the process has exited and its output is drained.
func (s *Session) Done() <-chan struct{} { return s.done }

// terminate kills the process without closing the session; the exit is
// observed by the stdout reader like any other exit.
func (s *Session) terminate() {
	s.mu.Lock()
	s.exited = true
	cmd := s.cmd
	s.mu.Unlock()
	if cmd != nil {
		_ = killProcess(cmd)
	}
}

func (s *Session) readStdout(r io.Reader) {
	defer s.readers.Done()

	var framer lineFramer
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			for _, fr := range framer.Write(buf[:n]) {
				s.deliver(fr)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				s.log.Debug("stdout read", zap.Error(err))
			}
			break
		}
	}
	if framer.Pending() {
		s.log.Debug("discarding incomplete output at exit")
	}
	s.markExited()
}

func (s *Session) readStderr(r io.Reader) {
	defer s.readers.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		s.log.Info("bot cli stderr", zap.String("line", scanner.Text()))
	}
}

func (s *Session) deliver(fr frame) {
	if fr.kind == frameNoise {
		s.log.Debug("bot cli output", zap.String("line", fr.text))
		return
	}

	s.mu.Lock()
	line := s.pendingLine
	ch := s.takePendingLocked()
	s.mu.Unlock()

	if ch == nil {
		s.log.Debug("discarding unsolicited output", zap.String("line", fr.text), zap.Int("bytes", len(fr.raw)))
		return
	}

	switch fr.kind {
	case frameValue:
		ch <- result{resp: &Response{Command: line, Raw: fr.raw}}
	case frameMalformed:
		ch <- result{err: &MalformedResponseError{Line: fr.text, Err: fr.err}}
	}
}

func (s *Session) markExited() {
	s.mu.Lock()
	s.exited = true
	ch := s.takePendingLocked()
	s.mu.Unlock()

	if ch != nil {
		ch <- result{err: ErrProcessTerminated}
	}
}

func (s *Session) clearPending(ch chan result) {
	s.mu.Lock()
	if s.pending == ch {
		s.pending = nil
		s.pendingLine = ""
	}
	s.mu.Unlock()
}

func (s *Session) takePendingLocked() chan result {
	ch := s.pending
	s.pending = nil
	s.pendingLine = ""
	return ch
}
