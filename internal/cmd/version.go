package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/botpanel/internal/version"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	GroupID: GroupDiag,
	Short:   "Print version information",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "botpanel %s\n", version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
