package tui

import (
	"fmt"
	"strings"

	"github.com/steveyegge/botpanel/internal/render"
)

// renderView renders the entire view
func (m *Model) renderView() string {
	var b strings.Builder

	if m.width > 0 && (m.width < 40 || m.height < 10) {
		return "Terminal too small. Please resize."
	}

	title := "Bot Panel"
	if m.snap != nil && m.snap.BotName != "" {
		title = render.DisplayName(m.snap.BotName) + " - " + title
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	if m.snap != nil {
		b.WriteString(m.renderScope())
	}
	b.WriteString("\n")

	if m.snap == nil {
		b.WriteString(m.renderStatusLine())
		return b.String()
	}

	b.WriteString(listBorderStyle.Render(m.renderList()))
	b.WriteString("\n")
	b.WriteString(instructionsBorderStyle.Render(m.instructions.View()))
	b.WriteString("\n")
	b.WriteString(m.renderStatusLine())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderScope() string {
	var parts []string
	if m.snap.Workspace != "" {
		parts = append(parts, "workspace "+m.snap.Workspace)
	}
	if m.snap.Scope.Filter != "" {
		parts = append(parts, "scope "+m.snap.Scope.Filter)
	}
	if len(parts) == 0 {
		return ""
	}
	return mutedStyle.Render(strings.Join(parts, "  ·  ")) + "\n"
}

func (m *Model) renderList() string {
	if len(m.rows) == 0 {
		return mutedStyle.Render("This bot has no behaviors.")
	}

	lines := make([]string, 0, len(m.rows))
	for i, r := range m.rows {
		label := render.DisplayName(r.behavior)
		indent := ""
		if r.action != "" {
			label = render.DisplayName(r.action)
			indent = "    "
		}
		text := fmt.Sprintf("%s%s %s", indent, marker(r.current, r.completed), label)

		switch {
		case i == m.cursor:
			lines = append(lines, cursorStyle.Render(text))
		case r.current:
			lines = append(lines, currentStyle.Render(text))
		default:
			lines = append(lines, normalStyle.Render(text))
		}
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderStatusLine() string {
	switch {
	case m.busy:
		return m.spinner.View() + " " + statusStyle.Render("working...")
	case m.err != nil:
		return errorStyle.Render("Error: " + m.err.Error())
	case m.status != "":
		return statusStyle.Render(m.status)
	}
	return ""
}
