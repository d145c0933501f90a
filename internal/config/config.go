// Package config holds the plugin settings and the viper-backed store
// that persists them.
package config

import (
	"regexp"
	"strconv"
)

// Setting keys as they appear in the settings file.
const (
	KeyStartDelimiter = "startDelimiter"
	KeyEndDelimiter   = "endDelimiter"
	KeyEndSameAsStart = "endSameAsStart"

	KeyHTML           = "markdown.HTML"
	KeyBreaks         = "markdown.breaks"
	KeyLinkify        = "markdown.linkify"
	KeyTypographer    = "markdown.typographer"
	KeyAlerts         = "markdown.alerts"
	KeyHighlightTheme = "markdown.syntaxHighlightingTheme"

	KeyOpenDouble  = "markdown.quotes.openDouble"
	KeyCloseDouble = "markdown.quotes.closeDouble"
	KeyOpenSingle  = "markdown.quotes.openSingle"
	KeyCloseSingle = "markdown.quotes.closeSingle"

	KeyPanelAddress = "panel.address"
)

// DefaultTheme asks for a highlight theme derived from the editor colors.
const DefaultTheme = "default"

// Quote glyph positions inside MarkdownOptions.Quotes.
const (
	OpenDouble = iota
	CloseDouble
	OpenSingle
	CloseSingle
)

// MarkdownOptions configures the Markdown renderer.
type MarkdownOptions struct {
	HTML        bool
	Breaks      bool
	Linkify     bool
	Typographer bool
	Alerts      bool

	// Quotes holds the typographer glyphs in OpenDouble, CloseDouble,
	// OpenSingle, CloseSingle order, already unescaped.
	Quotes [4]string

	HighlightTheme string
}

// Config is a snapshot of every plugin setting.
type Config struct {
	StartDelimiter string
	EndDelimiter   string
	DelimitersSame bool

	Markdown MarkdownOptions

	PanelAddress string
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		StartDelimiter: `"""`,
		EndDelimiter:   `"""`,
		DelimitersSame: true,
		Markdown: MarkdownOptions{
			Linkify:        true,
			Alerts:         true,
			Quotes:         [4]string{"“", "”", "‘", "’"},
			HighlightTheme: DefaultTheme,
		},
		PanelAddress: "127.0.0.1:7778",
	}
}

// Normalize enforces the invariants between settings.
func (c Config) Normalize() Config {
	if c.DelimitersSame {
		c.EndDelimiter = c.StartDelimiter
	}
	return c
}

var codepointEscape = regexp.MustCompile(`\\u([0-9a-fA-F]{4})`)

// DecodeEscapes replaces \uXXXX sequences with the characters they name.
// Anything else is returned untouched.
func DecodeEscapes(s string) string {
	return codepointEscape.ReplaceAllStringFunc(s, func(m string) string {
		n, err := strconv.ParseUint(m[2:], 16, 32)
		if err != nil {
			return m
		}
		return string(rune(n))
	})
}
