package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/steveyegge/botpanel/internal/style"
	"github.com/steveyegge/botpanel/internal/tui"
)

var tuiStyle string

var tuiCmd = &cobra.Command{
	Use:     "tui",
	GroupID: GroupPanel,
	Short:   "Drive the bot from a terminal panel",
	Long: `Show the bot panel in the terminal.

Keys:
  ↑/k ↓/j   Move through behaviors and actions
  enter     Go to the selected behavior or action
  n / b     Next / back
  r         Refresh
  pgup/pgdn Scroll instructions
  ?         Toggle full help
  q         Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().StringVar(&tuiStyle, "style", "", "glamour style for instructions: dark, light, notty (default: detect)")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	if !style.Interactive() {
		return fmt.Errorf("tui needs a terminal; use 'botpanel status' instead")
	}
	dir, err := resolveBotDir()
	if err != nil {
		return err
	}

	s := newSession(dir)
	defer func() {
		if err := s.Cleanup(); err != nil {
			logger.Warn("stopping bot", zap.Error(err))
		}
	}()
	if err := s.Start(cmd.Context()); err != nil {
		return err
	}

	// Console logging would draw over the panel.
	level := logger.Level.Level()
	logger.Level.SetLevel(zapcore.ErrorLevel)
	defer logger.Level.SetLevel(level)

	m := tui.New(s, tuiStyle)
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run(); err != nil {
		return fmt.Errorf("running tui: %w", err)
	}
	return nil
}
