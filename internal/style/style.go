// Package style holds the lipgloss styles for command output.
package style

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// EnvNoSymbols replaces status symbols with ASCII markers when set.
const EnvNoSymbols = "BOTPANEL_NO_EMOJI"

var (
	// Bold emphasizes headings and markers.
	Bold = lipgloss.NewStyle().Bold(true)

	// Dim is for secondary text.
	Dim = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "245", Dark: "242"})

	// Success marks completed steps.
	Success = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "28", Dark: "76"})

	// Warning marks things that need attention.
	Warning = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "172", Dark: "214"})

	// Error marks failures.
	Error = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	// Current marks the active behavior and action.
	Current = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "25", Dark: "39"}).Bold(true)
)

// Init picks the color profile: ASCII unless ColorEnabled.
func Init() {
	if ColorEnabled() {
		lipgloss.SetColorProfile(termenv.EnvColorProfile())
		return
	}
	lipgloss.SetColorProfile(termenv.Ascii)
}

// Interactive reports whether stdout is a terminal.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ColorEnabled follows NO_COLOR, CLICOLOR and CLICOLOR_FORCE, in that
// order, then falls back to Interactive.
func ColorEnabled() bool {
	return colorEnabled(os.LookupEnv, Interactive())
}

func colorEnabled(lookup func(string) (string, bool), tty bool) bool {
	if _, ok := lookup("NO_COLOR"); ok {
		return false
	}
	if v, _ := lookup("CLICOLOR"); v == "0" {
		return false
	}
	if _, ok := lookup("CLICOLOR_FORCE"); ok {
		return true
	}
	return tty
}

// Mark returns symbol on a terminal and plain when piped or when
// EnvNoSymbols is set, so scripted output stays ASCII.
func Mark(symbol, plain string) string {
	return mark(symbol, plain, os.LookupEnv, Interactive())
}

func mark(symbol, plain string, lookup func(string) (string, bool), tty bool) string {
	if _, off := lookup(EnvNoSymbols); off || !tty {
		return plain
	}
	return symbol
}
