// Package render turns status snapshots into the panel's HTML.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"

	"github.com/steveyegge/botpanel/internal/snapshot"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/panel.css
var panelCSS string

//go:embed static/panel.js
var panelJS string

// PageData is the data for the full panel page around a fragment.
type PageData struct {
	Title      string
	Bots       []string // bots offered by the switcher; empty hides it
	CurrentBot string
}

type pageView struct {
	PageData
	Fragment     template.HTML
	CSS          template.CSS
	HighlightCSS template.CSS
	Script       template.JS
}

// Renderer renders snapshots. It holds no per-snapshot state and is safe
// for concurrent use.
type Renderer struct {
	tmpl         *template.Template
	markup       *markup
	highlightCSS string
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	funcMap := template.FuncMap{
		"displayName":   DisplayName,
		"behaviorClass": behaviorClass,
		"actionClass":   actionClass,
	}

	subFS, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(subFS, "*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	m := newMarkup()
	css, err := m.CSS()
	if err != nil {
		return nil, fmt.Errorf("generating highlight css: %w", err)
	}
	return &Renderer{tmpl: tmpl, markup: m, highlightCSS: css}, nil
}

// Fragment renders the panel body for s. A nil snapshot renders like an
// empty one.
func (r *Renderer) Fragment(s *snapshot.Status) (string, error) {
	if s == nil {
		s = &snapshot.Status{}
	}
	instructions, err := r.markup.Render(s.Instructions)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "fragment.html", buildFragment(s, instructions)); err != nil {
		return "", fmt.Errorf("rendering fragment: %w", err)
	}
	return buf.String(), nil
}

// Page wraps a fragment produced by Fragment in the full panel document.
func (r *Renderer) Page(fragment string, data PageData) (string, error) {
	if data.Title == "" {
		data.Title = "Bot Panel"
		if data.CurrentBot != "" {
			data.Title = DisplayName(data.CurrentBot) + " - Bot Panel"
		}
	}
	view := pageView{
		PageData: data,
		// Fragment output is produced by our own templates and sanitized
		// markup, so it is trusted here.
		Fragment:     template.HTML(fragment),
		CSS:          template.CSS(panelCSS),
		HighlightCSS: template.CSS(r.highlightCSS),
		Script:       template.JS(panelJS),
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "page.html", view); err != nil {
		return "", fmt.Errorf("rendering page: %w", err)
	}
	return buf.String(), nil
}

// Markup renders instruction text the same way Fragment does.
func (r *Renderer) Markup(src string) (template.HTML, error) {
	return r.markup.Render(src)
}
