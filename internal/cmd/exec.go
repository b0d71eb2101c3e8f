package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steveyegge/botpanel/internal/botcli"
	"github.com/steveyegge/botpanel/internal/output"
)

var execFormat string

var execCmd = &cobra.Command{
	Use:     "exec <command> [args...]",
	GroupID: GroupBot,
	Short:   "Run one bot command and print its JSON response",
	Long: `Start the bot CLI, send one command line, print the response and stop.

The first argument is the command, usually a dotted path. Remaining
arguments are quoted so the bot sees each one as a single value.

Examples:
  botpanel exec status
  botpanel exec shape.strategy
  botpanel exec scope "epic:Manage Orders"
  botpanel exec --format compact next`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

func init() {
	execCmd.Flags().StringVar(&execFormat, "format", "", "output format: json or compact (default: $BOTPANEL_OUTPUT_FORMAT, then json)")
	rootCmd.AddCommand(execCmd)
}

// commandLine builds the line sent to the bot from exec's arguments.
func commandLine(args []string) string {
	parts := []string{strings.TrimSpace(args[0])}
	for _, a := range args[1:] {
		parts = append(parts, botcli.Quote(a))
	}
	return strings.Join(parts, " ")
}

func runExec(cmd *cobra.Command, args []string) error {
	line := commandLine(args)
	return withSession(cmd.Context(), func(ctx context.Context, s *botcli.Session) error {
		resp, err := s.ExecuteLine(ctx, line)
		if resp != nil {
			// Error responses are printed too; the exit code reports the error.
			if werr := output.WriteRaw(cmd.OutOrStdout(), resp.Raw, output.ResolveFormat(execFormat)); werr != nil {
				return werr
			}
		}
		return err
	})
}
