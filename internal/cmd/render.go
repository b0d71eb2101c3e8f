package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/botpanel/internal/exitcode"
	"github.com/steveyegge/botpanel/internal/render"
	"github.com/steveyegge/botpanel/internal/snapshot"
)

var renderFragment bool

var renderCmd = &cobra.Command{
	Use:     "render [file|-]",
	GroupID: GroupDiag,
	Short:   "Render a saved status snapshot to HTML",
	Long: `Render the JSON written by the bot's status command to the panel's HTML.

Reads the named file, or stdin when the argument is "-" or missing. Useful
for checking how a snapshot will look without running the bot.

Examples:
  botpanel exec status > status.json
  botpanel render status.json > panel.html
  botpanel exec status | botpanel render --fragment`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().BoolVar(&renderFragment, "fragment", false, "Print only the panel body, not the full page")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	snap, err := snapshot.Decode(data)
	if err != nil {
		return exitcode.Wrap(exitcode.ErrUsage, "reading snapshot", err)
	}

	r, err := render.New()
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}
	html, err := r.Fragment(snap)
	if err != nil {
		return err
	}
	if !renderFragment {
		html, err = r.Page(html, render.PageData{CurrentBot: snap.BotName})
		if err != nil {
			return err
		}
	}
	_, err = io.WriteString(cmd.OutOrStdout(), html)
	return err
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(args[0])
	if errors.Is(err, fs.ErrNotExist) {
		return nil, exitcode.FileNotFound(args[0])
	}
	return data, err
}
