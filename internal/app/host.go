package app

import (
	"go-markdown-snippets/internal/dispose"
	"go-markdown-snippets/internal/styles"
)

// Document is what the controller reads from an editor for one render.
type Document struct {
	Text string
	// Cursor is a byte offset into Text.
	Cursor int
	// Path is the file behind the editor, empty for scratch buffers.
	Path string
}

// Editor is a text editor whose contents and cursor can be read on demand.
type Editor interface {
	Read() (Document, error)
}

// Host is the editor the preview runs in. Subscriptions return handles
// that the controller releases on deactivation.
type Host interface {
	ActiveEditor() Editor
	ColorScheme() styles.ThemeKind

	OnSelectionChange(fn func(Editor)) dispose.Disposable
	OnActiveEditorChange(fn func(Editor)) dispose.Disposable
	OnColorSchemeChange(fn func(styles.ThemeKind)) dispose.Disposable

	// OpenSettings shows the settings file to the user.
	OpenSettings(path string) error
	// Reveal brings the panel at url to the user's attention.
	Reveal(url string) error
}
