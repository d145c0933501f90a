// Package styles resolves highlight themes and produces the flat set of
// theme stylesheets the panel can switch between at runtime.
package styles

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/alecthomas/chroma"
	chromahtml "github.com/alecthomas/chroma/formatters/html"
	chromastyles "github.com/alecthomas/chroma/styles"

	"go-markdown-snippets/internal/config"
)

const (
	// LightTheme is used for "default" when the editor colors are light.
	LightTheme = "github"
	// DarkTheme is used for "default" in every other case.
	DarkTheme = "monokai"

	// Suffix is the extension of every flattened stylesheet.
	Suffix = ".min.css"
)

// ThemeKind classifies the active editor color scheme.
type ThemeKind int

const (
	Dark ThemeKind = iota
	Light
	HighContrast
)

func (k ThemeKind) String() string {
	switch k {
	case Light:
		return "light"
	case HighContrast:
		return "high-contrast"
	default:
		return "dark"
	}
}

// KindOf guesses the kind of a color scheme from its name, e.g. "Light+".
func KindOf(colorScheme string) ThemeKind {
	name := strings.ToLower(colorScheme)
	switch {
	case strings.Contains(name, "light"):
		return Light
	case strings.Contains(name, "high contrast"), strings.Contains(name, "high-contrast"):
		return HighContrast
	default:
		return Dark
	}
}

// Resolve maps the highlight theme setting to a concrete theme name.
func Resolve(setting string, kind ThemeKind) string {
	if setting != "" && setting != config.DefaultTheme {
		return setting
	}
	if kind == Light {
		return LightTheme
	}
	return DarkTheme
}

// FlatName turns a path relative to a stylesheet collection into a single
// file name: base16/foo.min.css becomes base16-foo.min.css.
func FlatName(rel string) string {
	rel = strings.TrimLeft(rel, `/\`)
	return strings.NewReplacer("/", "-", `\`, "-").Replace(rel)
}

// Names lists every theme the highlighter knows, sorted.
func Names() []string {
	names := chromastyles.Names()
	sort.Strings(names)
	return names
}

// Has reports whether theme is a registered highlight style.
func Has(theme string) bool {
	_, ok := chromastyles.Registry[theme]
	return ok
}

var (
	cssMu    sync.Mutex
	cssCache = map[string]string{}
)

// CSS returns the class-based stylesheet for theme.
func CSS(theme string) (string, error) {
	cssMu.Lock()
	defer cssMu.Unlock()

	if css, ok := cssCache[theme]; ok {
		return css, nil
	}

	style, ok := chromastyles.Registry[theme]
	if !ok {
		return "", fmt.Errorf("unknown highlight theme %q", theme)
	}
	css, err := writeCSS(style)
	if err != nil {
		return "", err
	}
	cssCache[theme] = css
	return css, nil
}

func writeCSS(style *chroma.Style) (string, error) {
	var buf bytes.Buffer
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(&buf, style); err != nil {
		return "", fmt.Errorf("writing css for %s: %w", style.Name, err)
	}
	return buf.String(), nil
}

// Export writes one stylesheet per registered theme into out and returns
// the file names written.
func Export(out string) ([]string, error) {
	if err := os.MkdirAll(out, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", out, err)
	}

	var written []string
	for _, name := range Names() {
		css, err := CSS(name)
		if err != nil {
			return written, err
		}
		file := FlatName(name) + Suffix
		if err := os.WriteFile(filepath.Join(out, file), []byte(css), 0o644); err != nil {
			return written, fmt.Errorf("writing %s: %w", file, err)
		}
		written = append(written, file)
	}
	return written, nil
}

// CopyTree copies every minified stylesheet below src into out, renamed
// with FlatName, and returns the file names written.
func CopyTree(src, out string) ([]string, error) {
	if err := os.MkdirAll(out, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", out, err)
	}

	var written []string
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), Suffix) {
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		name := FlatName(filepath.ToSlash(rel))

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		if err := os.WriteFile(filepath.Join(out, name), data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		written = append(written, name)
		return nil
	})
	if err != nil {
		return written, err
	}
	sort.Strings(written)
	return written, nil
}
