package render

import (
	"bytes"
	"encoding/base64"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	alertcallouts "github.com/zmtcreative/gm-alert-callouts"

	"go-markdown-snippets/internal/config"
)

// AssetPrefix is the URL prefix under which local images are served.
const AssetPrefix = "/@mdfs/"

// Renderer is a wrapper around the Goldmark markdown parser configured from
// the plugin's markdown settings.
type Renderer struct {
	md      goldmark.Markdown
	options config.MarkdownOptions
}

// NewRenderer builds a renderer for opts using h for fenced code blocks.
// A nil h renders every code block as plain text.
func NewRenderer(opts config.MarkdownOptions, h HighlightFunc) *Renderer {
	extensions := []goldmark.Extender{
		extension.Table,
		extension.Strikethrough,
		extension.TaskList,
		&codeBlocks{highlight: h},
	}
	if opts.Linkify {
		extensions = append(extensions, extension.Linkify)
	}
	if opts.Typographer {
		extensions = append(extensions, extension.NewTypographer(
			extension.WithTypographicSubstitutions(quoteSubstitutions(opts.Quotes)),
		))
	}
	if opts.Alerts {
		extensions = append(extensions, alertcallouts.NewAlertCallouts(
			alertcallouts.UseGFMStrictIcons(),
		))
	}

	var rendererOptions []renderer.Option
	if opts.HTML {
		rendererOptions = append(rendererOptions, html.WithUnsafe())
	} else {
		extensions = append(extensions, &escapedHTML{})
	}
	if opts.Breaks {
		rendererOptions = append(rendererOptions, html.WithHardWraps())
	}

	md := goldmark.New(
		goldmark.WithExtensions(extensions...),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(rendererOptions...),
	)
	return &Renderer{md: md, options: opts}
}

// quoteSubstitutions maps configured glyphs onto typographer punctuation.
// Empty glyphs keep the typographer defaults.
func quoteSubstitutions(quotes [4]string) map[extension.TypographicPunctuation][]byte {
	kinds := [4]extension.TypographicPunctuation{
		config.OpenDouble:  extension.LeftDoubleQuote,
		config.CloseDouble: extension.RightDoubleQuote,
		config.OpenSingle:  extension.LeftSingleQuote,
		config.CloseSingle: extension.RightSingleQuote,
	}

	subs := make(map[extension.TypographicPunctuation][]byte, len(quotes))
	for i, q := range quotes {
		if q != "" {
			subs[kinds[i]] = []byte(q)
		}
	}
	return subs
}

// Options returns the settings the renderer was built with.
func (r *Renderer) Options() config.MarkdownOptions {
	return r.options
}

// Render converts a markdown snippet to an HTML fragment.
func (r *Renderer) Render(snippet string) (string, error) {
	return r.RenderWithSourcePath(snippet, "")
}

// RenderWithSourcePath converts a markdown snippet to an HTML fragment.
//
// If sourcePath is set, local image destinations are rewritten to the
// asset path format served by the panel transport.
func (r *Renderer) RenderWithSourcePath(snippet string, sourcePath string) (string, error) {
	source := []byte(snippet)
	doc := r.md.Parser().Parse(text.NewReader(source))
	rewriteImages(doc, sourcePath)

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, source, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// rewriteImages points local image destinations at AssetPrefix so the
// panel can load files next to the edited document.
func rewriteImages(doc ast.Node, sourcePath string) {
	baseDir := ""
	if sourcePath != "" {
		baseDir = filepath.Dir(sourcePath)
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		img, ok := n.(*ast.Image)
		if !ok {
			return ast.WalkContinue, nil
		}

		rawDest := strings.TrimSpace(string(img.Destination))
		if rawDest == "" || isRemote(rawDest) {
			return ast.WalkContinue, nil
		}

		var resolved string
		switch {
		case filepath.IsAbs(rawDest):
			resolved = filepath.Clean(rawDest)
		case baseDir != "":
			resolved = filepath.Clean(filepath.Join(baseDir, rawDest))
		default:
			return ast.WalkContinue, nil
		}

		img.Destination = []byte(AssetPrefix + base64.RawURLEncoding.EncodeToString([]byte(resolved)))
		img.SetAttributeString("loading", "lazy")
		img.SetAttributeString("decoding", "async")
		return ast.WalkContinue, nil
	})
}

func isRemote(dest string) bool {
	lower := strings.ToLower(dest)
	for _, prefix := range []string{"http://", "https://", "data:", "blob:", "file://", "//", "#", AssetPrefix} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}
