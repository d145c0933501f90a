package render

import (
	"bytes"
	"strings"

	"github.com/alecthomas/chroma"
	chromahtml "github.com/alecthomas/chroma/formatters/html"
	"github.com/alecthomas/chroma/lexers"
	chromastyles "github.com/alecthomas/chroma/styles"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// HighlightFunc turns code written in lang into highlighted markup.
// An empty result means the code should be rendered as plain text.
type HighlightFunc func(code, lang string) string

// Highlighter produces class-based markup for code; colors come from the
// theme stylesheet loaded by the panel.
type Highlighter struct {
	formatter *chromahtml.Formatter
}

func NewHighlighter() *Highlighter {
	return &Highlighter{
		formatter: chromahtml.New(
			chromahtml.WithClasses(true),
			chromahtml.PreventSurroundingPre(true),
		),
	}
}

// Highlight returns highlighted markup for code, or "" when lang is not a
// known language or highlighting fails for any reason.
func (h *Highlighter) Highlight(code, lang string) (out string) {
	defer func() {
		if recover() != nil {
			out = ""
		}
	}()

	lang = strings.TrimSpace(lang)
	if lang == "" {
		return ""
	}
	lexer := lexers.Get(lang)
	if lexer == nil {
		return ""
	}

	iterator, err := chroma.Coalesce(lexer).Tokenise(nil, code)
	if err != nil {
		return ""
	}

	var buf bytes.Buffer
	if err := h.formatter.Format(&buf, chromastyles.Fallback, iterator); err != nil {
		return ""
	}
	return buf.String()
}

// codeBlocks is a goldmark extension that routes fenced code blocks
// through a HighlightFunc.
type codeBlocks struct {
	highlight HighlightFunc
}

func (e *codeBlocks) Extend(m goldmark.Markdown) {
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&codeBlockRenderer{highlight: e.highlight}, 200),
	))
}

var _ goldmark.Extender = (*codeBlocks)(nil)

type codeBlockRenderer struct {
	highlight HighlightFunc
}

func (r *codeBlockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCodeBlock)
}

// renderFencedCodeBlock writes highlighted markup when the callback
// produces some and an escaped plain block otherwise.
func (r *codeBlockRenderer) renderFencedCodeBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)

	var code bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		code.Write(line.Value(source))
	}

	var lang []byte
	if n.Info != nil {
		lang = n.Language(source)
	}

	highlighted := ""
	if len(lang) > 0 {
		highlighted = r.safeHighlight(code.String(), string(lang))
	}

	if highlighted != "" {
		_, _ = w.WriteString(`<pre class="chroma">`)
	} else {
		_, _ = w.WriteString("<pre>")
	}
	_, _ = w.WriteString("<code")
	if len(lang) > 0 {
		_, _ = w.WriteString(` class="language-`)
		_, _ = w.Write(util.EscapeHTML(lang))
		_, _ = w.WriteString(`"`)
	}
	_ = w.WriteByte('>')

	if highlighted != "" {
		_, _ = w.WriteString(highlighted)
	} else {
		_, _ = w.Write(util.EscapeHTML(code.Bytes()))
	}
	_, _ = w.WriteString("</code></pre>\n")

	return ast.WalkSkipChildren, nil
}

func (r *codeBlockRenderer) safeHighlight(code, lang string) (out string) {
	if r.highlight == nil {
		return ""
	}
	defer func() {
		if recover() != nil {
			out = ""
		}
	}()
	return r.highlight(code, lang)
}
