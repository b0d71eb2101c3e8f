// Package cmd provides the botpanel command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/botpanel/internal/config"
	"github.com/steveyegge/botpanel/internal/exitcode"
	"github.com/steveyegge/botpanel/internal/logging"
	"github.com/steveyegge/botpanel/internal/style"
	"github.com/steveyegge/botpanel/internal/version"
)

var (
	configPath string
	logLevel   string

	// Set by setup before any command runs.
	cfg    *config.Config
	logger = logging.Nop()
)

var rootCmd = &cobra.Command{
	Use:     "botpanel",
	Short:   "Drive an agile bot from a browser or terminal panel",
	Version: version.String(),
	Long: `botpanel runs an agile bot's CLI as a long-lived child process and shows
its workflow state as a panel: behaviors in canonical order, the current
action, and the instructions for the current step.

The bot is chosen by [bot] directory in botpanel.toml or BOT_DIRECTORY,
and defaults to agile_bot/bots/story_bot.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Commands that run without loading the configuration.
var configExemptCommands = map[string]bool{
	"version":    true,
	"help":       true,
	"completion": true,
}

// setup loads the configuration and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	style.Init()
	if configExemptCommands[cmd.Name()] {
		return nil
	}

	c, err := config.Load(configPath)
	if err != nil {
		return exitcode.Wrap(exitcode.ErrUsage, "loading config", err)
	}
	if logLevel != "" {
		c.Log.Level = logLevel
		if err := c.Validate(); err != nil {
			return exitcode.Wrap(exitcode.ErrUsage, "invalid --log-level", err)
		}
	}

	l, err := logging.New(c.Log)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	cfg, logger = c, l
	return nil
}

// Execute runs the root command and returns an exit code.
// The caller (main) should call os.Exit with this code.
func Execute() int {
	err := rootCmd.Execute()
	_ = logger.Close()
	if err == nil {
		return exitcode.Success
	}
	printError(err)
	return exitcode.Code(err)
}

func printError(err error) {
	fmt.Fprintf(os.Stderr, "%s %v\n", style.Error.Render(style.Mark("✗", "Error:")), err)
	if exitcode.Is(err, exitcode.ErrUsage) {
		fmt.Fprintln(os.Stderr, "\nRun 'botpanel --help' for usage.")
	}
}

// Command group IDs - used by subcommands to organize help output
const (
	GroupPanel = "panel"
	GroupBot   = "bot"
	GroupDiag  = "diag"
)

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupPanel, Title: "Panels:"},
		&cobra.Group{ID: GroupBot, Title: "Bot Commands:"},
		&cobra.Group{ID: GroupDiag, Title: "Diagnostics:"},
	)
	rootCmd.SetHelpCommandGroupID(GroupDiag)
	rootCmd.SetCompletionCommandGroupID(GroupDiag)

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return exitcode.Wrap(exitcode.ErrUsage, "invalid flags", err)
	})

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ./"+config.FileName+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}
