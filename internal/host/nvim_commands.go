// Package host connects the snippet preview to Neovim.
package host

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/neovim/go-client/nvim"
	"github.com/neovim/go-client/nvim/plugin"

	"go-markdown-snippets/internal/app"
	"go-markdown-snippets/internal/config"
	"go-markdown-snippets/internal/dispose"
	"go-markdown-snippets/internal/styles"
)

const (
	logPrefix = "[markdown-snippets] "

	// windowEval identifies the buffer and window an autocmd fired in.
	windowEval = "[bufnr(), win_getid()]"
	// schemeEval describes the color scheme after a ColorScheme autocmd.
	schemeEval = "[&background, get(g:, 'colors_name', '')]"
)

// Commands is a state container for Neovim command handlers and the
// Neovim side of app.Host.
type Commands struct {
	preview *app.SnippetPreview
	log     *log.Logger

	mu     sync.Mutex
	nv     *nvim.Nvim
	active app.Editor
	kind   styles.ThemeKind

	selection listeners[app.Editor]
	editors   listeners[app.Editor]
	schemes   listeners[styles.ThemeKind]
}

var _ app.Host = (*Commands)(nil)

func NewCommands(v *nvim.Nvim, logger *log.Logger) *Commands {
	return &Commands{nv: v, log: logger}
}

// Register registers Neovim command/function handlers and starts the preview.
func Register(p *plugin.Plugin) error {
	logger := log.New(os.Stderr, logPrefix, log.LstdFlags)

	store, err := config.NewStore(config.DefaultPath(), logger)
	if err != nil {
		return err
	}

	commands := NewCommands(p.Nvim, logger)
	commands.preview = app.NewSnippetPreview(store, app.WithLogger(logger))
	if err := commands.preview.Activate(commands); err != nil {
		return err
	}
	go commands.preview.Run(context.Background())

	p.Handle("poll", func() (string, error) {
		return "ok", nil
	})

	p.HandleCommand(&plugin.CommandOptions{
		Name: "MarkdownSnippetsOpenToSide",
	}, commands.OpenToSide)

	p.HandleCommand(&plugin.CommandOptions{
		Name: "MarkdownSnippetsClose",
	}, commands.Close)

	for _, event := range []string{"CursorMoved", "CursorMovedI"} {
		p.HandleAutocmd(&plugin.AutocmdOptions{
			Event:   event,
			Pattern: "*",
			Eval:    windowEval,
		}, commands.CursorMoved)
	}

	p.HandleAutocmd(&plugin.AutocmdOptions{
		Event:   "BufEnter",
		Pattern: "*",
		Eval:    windowEval,
	}, commands.BufEnter)

	p.HandleAutocmd(&plugin.AutocmdOptions{
		Event:   "ColorScheme",
		Pattern: "*",
		Eval:    schemeEval,
	}, commands.ColorSchemeChanged)

	p.HandleAutocmd(&plugin.AutocmdOptions{
		Event:   "VimLeavePre",
		Pattern: "*",
	}, commands.VimLeavePre)

	return nil
}

// OpenToSide opens the preview panel for the current window.
func (c *Commands) OpenToSide(v *nvim.Nvim) error {
	buf, err := v.CurrentBuffer()
	if err != nil {
		return err
	}
	win, err := v.CurrentWindow()
	if err != nil {
		return err
	}

	var scheme []string
	if err := v.Eval(schemeEval, &scheme); err == nil && len(scheme) == 2 {
		c.setScheme(themeKind(scheme[0], scheme[1]))
	}

	c.mu.Lock()
	c.nv = v
	c.active = bufferEditor{v: v, buf: buf, win: win}
	c.mu.Unlock()

	c.preview.OpenToSide()
	return nil
}

// Close closes the preview panel.
func (c *Commands) Close(v *nvim.Nvim) error {
	c.preview.ClosePanel()
	return nil
}

// CursorMoved reports a selection change in the window that fired it.
func (c *Commands) CursorMoved(v *nvim.Nvim, args []int) {
	ed, ok := c.editorFor(v, args)
	if !ok {
		return
	}
	c.selection.emit(ed)
}

// BufEnter reports that another editor became active.
func (c *Commands) BufEnter(v *nvim.Nvim, args []int) {
	ed, ok := c.editorFor(v, args)
	if !ok {
		return
	}
	c.mu.Lock()
	c.active = ed
	c.mu.Unlock()
	c.editors.emit(ed)
}

// ColorSchemeChanged reports the new theme kind.
func (c *Commands) ColorSchemeChanged(v *nvim.Nvim, args []string) {
	if len(args) != 2 {
		return
	}
	c.setScheme(themeKind(args[0], args[1]))
}

// VimLeavePre tears the preview down before Neovim exits.
func (c *Commands) VimLeavePre(v *nvim.Nvim) {
	// The preview may be waiting on an RPC reply that this handler would block.
	go c.preview.Deactivate()
}

func (c *Commands) editorFor(v *nvim.Nvim, args []int) (app.Editor, bool) {
	if len(args) != 2 {
		return nil, false
	}
	return bufferEditor{v: v, buf: nvim.Buffer(args[0]), win: nvim.Window(args[1])}, true
}

func (c *Commands) setScheme(kind styles.ThemeKind) {
	c.mu.Lock()
	changed := c.kind != kind
	c.kind = kind
	c.mu.Unlock()

	if changed {
		c.schemes.emit(kind)
	}
}

// themeKind classifies a color scheme from 'background' and its name.
func themeKind(background, name string) styles.ThemeKind {
	if background == "light" {
		return styles.Light
	}
	return styles.KindOf(name)
}

func (c *Commands) ActiveEditor() app.Editor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *Commands) ColorScheme() styles.ThemeKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kind
}

func (c *Commands) OnSelectionChange(fn func(app.Editor)) dispose.Disposable {
	return c.selection.add(fn)
}

func (c *Commands) OnActiveEditorChange(fn func(app.Editor)) dispose.Disposable {
	return c.editors.add(fn)
}

func (c *Commands) OnColorSchemeChange(fn func(styles.ThemeKind)) dispose.Disposable {
	return c.schemes.add(fn)
}

// OpenSettings edits the settings file in a new tab.
func (c *Commands) OpenSettings(path string) error {
	v := c.client()
	var escaped string
	if err := v.Call("fnameescape", &escaped, path); err != nil {
		return err
	}
	return v.Command("tabedit " + escaped)
}

// Reveal tells the user where the panel is.
func (c *Commands) Reveal(url string) error {
	return c.client().Command(fmt.Sprintf(`echom "[markdown-snippets] preview: %s"`, url))
}

func (c *Commands) client() *nvim.Nvim {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nv
}
