package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/steveyegge/botpanel/internal/botcli"
	"github.com/steveyegge/botpanel/internal/exitcode"
	"github.com/steveyegge/botpanel/internal/panel"
	"github.com/steveyegge/botpanel/internal/render"
	"github.com/steveyegge/botpanel/internal/style"
	"github.com/steveyegge/botpanel/internal/web"
)

var (
	servePort    int
	serveOpen    bool
	serveBot     string
	serveWatch   bool
	serveTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: GroupPanel,
	Short:   "Serve the bot panel in a browser",
	Long: `Start the bot CLI and serve its panel over HTTP.

The page talks to the server over a WebSocket: clicks become bot commands,
and every connected browser gets the re-rendered panel after each one.
Only one panel can drive a bot directory at a time.

Endpoints:
  /             Panel page
  /ws           WebSocket carrying panel messages
  /api/message  POST one panel message (for clients without WebSocket)
  /healthz      Panel state as JSON

Examples:
  botpanel serve                  # Serve on 127.0.0.1:8765
  botpanel serve --port 9000      # Serve on port 9000
  botpanel serve --bot tiny_bot   # Drive another bot under the bots root
  botpanel serve --open           # Open the panel in a browser`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default: [server] port, 8765)")
	serveCmd.Flags().BoolVar(&serveOpen, "open", false, "Open the panel in a browser")
	serveCmd.Flags().StringVar(&serveBot, "bot", "", "Bot to drive, a directory under the bots root")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", true, "Refresh the panel when files in the bot directory change")
	serveCmd.Flags().DurationVar(&serveTimeout, "timeout", 0, "Limit for each bot command (0: no limit)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
		if err := cfg.Validate(); err != nil {
			return exitcode.Wrap(exitcode.ErrUsage, "invalid --port", err)
		}
	}
	if serveBot != "" {
		root, err := cfg.BotsRoot()
		if err != nil {
			return err
		}
		cfg.Bot.Directory = filepath.Join(root, serveBot)
	}

	dir, err := resolveBotDir()
	if err != nil {
		return err
	}
	root, err := cfg.BotsRoot()
	if err != nil {
		return err
	}

	lock, err := web.AcquireLock(dir)
	if err != nil {
		if errors.Is(err, web.ErrLocked) {
			return exitcode.Busy(err)
		}
		return err
	}

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		_ = lock.Release()
		return fmt.Errorf("listening on %s: %w", cfg.Addr(), err)
	}

	srv, p, err := newPanelServer(dir, root, lock)
	if err != nil {
		_ = ln.Close()
		_ = lock.Release()
		return err
	}
	defer func() { _ = srv.Close() }()
	defer func() {
		if err := p.Dispose(); err != nil {
			logger.Warn("disposing panel", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	url := "http://" + ln.Addr().String()
	fmt.Fprintf(cmd.OutOrStdout(), "%s Bot panel for %s at %s\n",
		style.Success.Render(style.Mark("●", "*")), style.Bold.Render(render.DisplayName(filepath.Base(dir))), url)
	fmt.Fprintf(cmd.OutOrStdout(), "   Press Ctrl+C to stop\n")

	if serveOpen || cfg.Server.Open {
		if err := (panel.SystemOpener{}).Open(context.Background(), url); err != nil {
			logger.Warn("opening browser", zap.Error(err))
		}
	}
	return srv.Run(ctx, ln)
}

// newPanelServer wires a panel for the bot in dir to a web server.
func newPanelServer(dir, root string, lock *web.Lock) (*web.Server, *panel.Panel, error) {
	r, err := render.New()
	if err != nil {
		return nil, nil, fmt.Errorf("creating renderer: %w", err)
	}
	view := web.NewWSView(logger.Named("web"))

	p := panel.New(panel.Options{
		NewSession: func(botDir string) panel.Session {
			return botcli.New(cfg.SessionConfig(botDir, logger.Named("session")))
		},
		Renderer: r,
		Webview:  view,
		Opener:   panel.SystemOpener{},
		Chat:     panel.CommandChat{Command: cfg.Chat.Command},
		BotsRoot: root,
		BotDir:   dir,
		Logger:   logger.Named("panel"),
	})

	srv, err := web.NewServer(web.Options{
		Panel:          p,
		View:           view,
		Renderer:       r,
		Lock:           lock,
		Watch:          serveWatch,
		CommandTimeout: serveTimeout,
		Logger:         logger.Named("web"),
	})
	if err != nil {
		_ = p.Dispose()
		return nil, nil, err
	}
	return srv, p, nil
}
