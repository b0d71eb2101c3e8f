// Package tui is the terminal front end of the panel: the same behavior
// list and instructions as the web panel, driven from the keyboard.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/steveyegge/botpanel/internal/botcli"
	"github.com/steveyegge/botpanel/internal/render"
	"github.com/steveyegge/botpanel/internal/snapshot"
)

// commandTimeout bounds one command plus the status that follows it.
const commandTimeout = 2 * time.Minute

// Executor is the part of *botcli.Session the model drives.
type Executor interface {
	Execute(ctx context.Context, c botcli.Command) (*botcli.Response, error)
}

// row is one line of the behavior list: a behavior, or one of its actions.
type row struct {
	behavior  string
	action    string // empty for a behavior row
	current   bool
	completed bool
}

// Model is the bubbletea model for the terminal panel.
type Model struct {
	// Dimensions
	width  int
	height int

	session Executor
	style   string // glamour style name; "auto" detects the terminal

	// Data
	snap   *snapshot.Status
	rows   []row
	cursor int

	// UI state
	keys         KeyMap
	help         help.Model
	showHelp     bool
	spinner      spinner.Model
	instructions viewport.Model
	markdown     *glamour.TermRenderer
	busy         bool
	err          error
	status       string
}

// New creates a model over a started session. style is a glamour style
// name such as "dark", "light" or "notty"; empty means "auto".
func New(session Executor, style string) *Model {
	if style == "" {
		style = "auto"
	}
	s := spinner.New()
	s.Spinner = spinner.Dot

	h := help.New()
	h.ShowAll = false

	m := &Model{
		session:      session,
		style:        style,
		keys:         DefaultKeyMap(),
		help:         h,
		spinner:      s,
		instructions: viewport.New(0, 0),
		busy:         true,
	}
	m.markdown = newMarkdown(style, 80)
	return m
}

func newMarkdown(style string, width int) *glamour.TermRenderer {
	styleOpt := glamour.WithStandardStyle(style)
	if style == "auto" {
		styleOpt = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return nil
	}
	return r
}

// statusMsg carries the snapshot fetched after a command.
type statusMsg struct {
	command string
	snap    *snapshot.Status
	err     error
}

// Init fetches the first status.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.run(nil),
		m.spinner.Tick,
		tea.SetWindowTitle("Bot Panel"),
	)
}

// run executes c (if any) followed by status.
func (m *Model) run(c *botcli.Command) tea.Cmd {
	session := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		msg := statusMsg{}
		if c != nil {
			msg.command = c.String()
			if _, err := session.Execute(ctx, *c); err != nil {
				msg.err = err
				return msg
			}
		}
		resp, err := session.Execute(ctx, botcli.NewCommand("status"))
		if err != nil {
			msg.err = err
			return msg
		}
		msg.snap, msg.err = snapshot.Decode(resp.Raw)
		return msg
	}
}

// execute starts c unless a command is already in flight.
func (m *Model) execute(c botcli.Command) tea.Cmd {
	if m.busy {
		return nil
	}
	m.busy = true
	m.err = nil
	m.status = ""
	return m.run(&c)
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.instructions.Width = msg.Width - 4
		m.instructions.Height = msg.Height/2 - 4
		m.help.Width = msg.Width
		m.markdown = newMarkdown(m.style, max(20, msg.Width-6))
		m.setInstructions()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case statusMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		if msg.command != "" {
			m.status = "✓ " + msg.command
		}
		m.setSnapshot(msg.snap)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.PageUp):
		m.instructions.HalfViewUp()

	case key.Matches(msg, m.keys.PageDown):
		m.instructions.HalfViewDown()

	case key.Matches(msg, m.keys.Select):
		if m.cursor < len(m.rows) {
			r := m.rows[m.cursor]
			if r.action == "" {
				return m, m.execute(botcli.NewCommand(r.behavior))
			}
			return m, m.execute(botcli.NewCommand(r.behavior, r.action))
		}

	case key.Matches(msg, m.keys.Next):
		return m, m.execute(botcli.NewCommand("next"))

	case key.Matches(msg, m.keys.Back):
		return m, m.execute(botcli.NewCommand("back"))

	case key.Matches(msg, m.keys.Refresh):
		if !m.busy {
			m.busy = true
			m.err = nil
			return m, m.run(nil)
		}
	}
	return m, nil
}

// setSnapshot rebuilds the list, keeping the cursor on the same entry when
// it still exists and otherwise moving it to the current behavior.
func (m *Model) setSnapshot(s *snapshot.Status) {
	var prev *row
	if m.snap != nil && m.cursor < len(m.rows) {
		r := m.rows[m.cursor]
		prev = &r
	}

	m.snap = s
	m.rows = buildRows(s)
	m.cursor = 0
	found := false
	if prev != nil {
		for i, r := range m.rows {
			if r.behavior == prev.behavior && r.action == prev.action {
				m.cursor, found = i, true
				break
			}
		}
	}
	if !found {
		for i, r := range m.rows {
			if r.current && r.action == "" {
				m.cursor = i
				break
			}
		}
	}
	m.setInstructions()
}

// buildRows lists behaviors in canonical order; only the current behavior
// is expanded to show its actions.
func buildRows(s *snapshot.Status) []row {
	var rows []row
	for _, b := range s.Ordered() {
		current := b.Name == s.CurrentBehavior
		rows = append(rows, row{behavior: b.Name, current: current, completed: b.Completed})
		if !current {
			continue
		}
		for _, a := range b.Actions {
			rows = append(rows, row{
				behavior:  b.Name,
				action:    a.Name,
				current:   a.Name == s.CurrentAction,
				completed: a.Completed,
			})
		}
	}
	return rows
}

func (m *Model) setInstructions() {
	if m.snap == nil {
		return
	}
	text := m.snap.Instructions
	if text == "" {
		m.instructions.SetContent(mutedStyle.Render(render.EmptyInstructions))
		return
	}
	if m.markdown != nil {
		if out, err := m.markdown.Render(text); err == nil {
			text = out
		}
	}
	m.instructions.SetContent(text)
	m.instructions.GotoTop()
}

// Snapshot returns the last status shown.
func (m *Model) Snapshot() *snapshot.Status {
	return m.snap
}

// Err returns the error shown in the status line, if any.
func (m *Model) Err() error {
	return m.err
}

// View renders the model.
func (m *Model) View() string {
	return m.renderView()
}
