package render

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// highlightStyle is the chroma style used for the generated CSS.
const highlightStyle = "github"

var classPattern = regexp.MustCompile(`^[a-zA-Z0-9 _-]+$`)

// markup converts instruction text to sanitized HTML.
type markup struct {
	md        goldmark.Markdown
	policy    *bluemonday.Policy
	formatter *chromahtml.Formatter
	style     *chroma.Style
}

func newMarkup() *markup {
	m := &markup{
		formatter: chromahtml.New(chromahtml.WithClasses(true)),
		style:     styles.Get(highlightStyle),
	}
	m.md = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			renderer.WithNodeRenderers(util.Prioritized(&codeRenderer{m: m}, 200)),
		),
	)

	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(classPattern).OnElements("pre", "code", "span", "div")
	m.policy = p
	return m
}

// Render returns the HTML for src. Blank input yields "".
func (m *markup) Render(src string) (template.HTML, error) {
	if strings.TrimSpace(src) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("converting instructions: %w", err)
	}
	return template.HTML(m.policy.SanitizeBytes(buf.Bytes())), nil
}

// CSS returns the stylesheet for highlighted code blocks.
func (m *markup) CSS() (string, error) {
	var buf bytes.Buffer
	if err := m.formatter.WriteCSS(&buf, m.style); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// codeRenderer highlights fenced code blocks with chroma.
type codeRenderer struct {
	m *markup
}

func (r *codeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCode)
}

func (r *codeRenderer) renderFencedCode(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)

	var code bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		code.Write(seg.Value(source))
	}

	var lexer chroma.Lexer
	if lang := n.Language(source); lang != nil {
		lexer = lexers.Get(string(lang))
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	it, err := lexer.Tokenise(nil, code.String())
	if err != nil {
		return ast.WalkStop, err
	}
	if err := r.m.formatter.Format(w, r.m.style, it); err != nil {
		return ast.WalkStop, err
	}
	return ast.WalkSkipChildren, nil
}
