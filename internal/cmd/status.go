package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/steveyegge/botpanel/internal/botcli"
	"github.com/steveyegge/botpanel/internal/output"
	"github.com/steveyegge/botpanel/internal/render"
	"github.com/steveyegge/botpanel/internal/snapshot"
	"github.com/steveyegge/botpanel/internal/style"
)

var (
	statusJSON  bool
	statusStyle string
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: GroupBot,
	Short:   "Show the bot's workflow state",
	Long: `Show the behaviors of the configured bot in canonical order, the current
behavior and action, and the instructions for the current step.

With --json the status response is printed as the bot wrote it.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the raw status JSON")
	statusCmd.Flags().StringVar(&statusStyle, "style", "", "glamour style for instructions: dark, light, notty (default: detect)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withSession(cmd.Context(), func(ctx context.Context, s *botcli.Session) error {
		snap, resp, err := fetchStatus(ctx, s)
		if statusJSON && resp != nil {
			if werr := output.WriteRaw(cmd.OutOrStdout(), resp.Raw, output.FormatJSON); werr != nil {
				return werr
			}
			return err
		}
		if err != nil {
			return err
		}
		return printStatus(cmd.OutOrStdout(), snap, statusStyle)
	})
}

// printStatus writes the human-readable status.
func printStatus(w io.Writer, s *snapshot.Status, glamourStyle string) error {
	title := "Bot Panel"
	if s.BotName != "" {
		title = render.DisplayName(s.BotName)
	}
	fmt.Fprintln(w, style.Bold.Render(title))
	if s.Workspace != "" {
		fmt.Fprintf(w, "%s %s\n", style.Dim.Render("Workspace:"), s.Workspace)
	}
	if s.Scope.Filter != "" {
		fmt.Fprintf(w, "%s %s\n", style.Dim.Render("Scope:"), s.Scope.Filter)
	}
	fmt.Fprintln(w)

	behaviors := s.Ordered()
	if len(behaviors) == 0 {
		fmt.Fprintln(w, style.Dim.Render("  This bot has no behaviors."))
	} else {
		fmt.Fprint(w, behaviorTable(s, behaviors).Render())
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, style.Bold.Render("Instructions"))
	if s.Instructions == "" {
		fmt.Fprintln(w, style.Dim.Render("  "+render.EmptyInstructions))
		return nil
	}
	text, err := renderInstructions(s.Instructions, glamourStyle)
	if err != nil {
		// Plain text beats no text.
		text = s.Instructions + "\n"
	}
	_, err = io.WriteString(w, text)
	return err
}

func behaviorTable(s *snapshot.Status, behaviors []snapshot.Behavior) *style.Table {
	t := style.NewTable(
		style.Column{Name: "", Width: 1},
		style.Column{Name: "Behavior", Width: 18},
		style.Column{Name: "Action", Width: 18},
		style.Column{Name: "Done", Width: 5, Align: style.AlignRight},
	)
	for _, b := range behaviors {
		current := b.Name == s.CurrentBehavior
		done := 0
		for _, a := range b.Actions {
			if a.Completed {
				done++
			}
		}

		name := render.DisplayName(b.Name)
		action := ""
		switch {
		case current:
			name = style.Current.Render(name)
			if s.CurrentAction != "" {
				action = style.Current.Render(render.DisplayName(s.CurrentAction))
			}
		case b.Completed:
			name = style.Success.Render(name)
		}
		t.AddRow(statusMarker(current, b.Completed), name, action, fmt.Sprintf("%d/%d", done, len(b.Actions)))
	}
	return t
}

func statusMarker(current, completed bool) string {
	switch {
	case current:
		return style.Current.Render(style.Mark("▶", ">"))
	case completed:
		return style.Success.Render(style.Mark("✓", "x"))
	}
	return style.Dim.Render(style.Mark("·", "-"))
}

// renderInstructions renders markdown for the terminal. An empty style
// detects the terminal background, or uses notty without color.
func renderInstructions(md, glamourStyle string) (string, error) {
	opt := glamour.WithStandardStyle(glamourStyle)
	switch {
	case glamourStyle != "":
	case style.ColorEnabled():
		opt = glamour.WithAutoStyle()
	default:
		opt = glamour.WithStandardStyle("notty")
	}
	r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(80))
	if err != nil {
		return "", err
	}
	out, err := r.Render(md)
	if err != nil {
		return "", err
	}
	return strings.TrimLeft(out, "\n"), nil
}
