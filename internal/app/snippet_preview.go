// Package app coordinates snippet extraction, markdown rendering and
// delivery to the preview panel.
package app

import (
	"context"
	"io"
	"log"

	"go-markdown-snippets/internal/config"
	"go-markdown-snippets/internal/contracts"
	"go-markdown-snippets/internal/dispose"
	"go-markdown-snippets/internal/panel"
	"go-markdown-snippets/internal/render"
	"go-markdown-snippets/internal/snippet"
	"go-markdown-snippets/internal/styles"
	httptransport "go-markdown-snippets/internal/transport/http"
)

// ConfigStore is where settings are read from and delimiter changes are saved.
type ConfigStore interface {
	Load() config.Config
	SetDelimiters(start, end string, same bool) error
	Subscribe(fn func(config.Config)) dispose.Func
	Watch() (dispose.Func, error)
	Path() string
}

// Option customizes a SnippetPreview.
type Option func(*SnippetPreview)

// WithViewFactory replaces the HTTP preview server used for the panel.
func WithViewFactory(f panel.Factory) Option {
	return func(s *SnippetPreview) {
		s.factory = f
	}
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *log.Logger) Option {
	return func(s *SnippetPreview) {
		s.log = l
	}
}

// SnippetPreview renders the snippet under the cursor into the panel.
//
// All state is owned by the goroutine running Run; every entry point
// queues work for it, so events are handled one at a time in arrival order.
type SnippetPreview struct {
	store   ConfigStore
	factory panel.Factory
	log     *log.Logger

	events       chan func()
	configDirty  chan struct{}
	stopped      chan struct{}
	highlighter  *render.Highlighter
	panels       *panel.Manager
	host         Host
	cfg          config.Config
	renderer     *render.Renderer
	editor       Editor
	themeKind    styles.ThemeKind
	subs         dispose.List
	deactivating bool
}

func NewSnippetPreview(store ConfigStore, opts ...Option) *SnippetPreview {
	s := &SnippetPreview{
		store:       store,
		log:         log.New(io.Discard, "", 0),
		events:      make(chan func(), 64),
		configDirty: make(chan struct{}, 1),
		stopped:     make(chan struct{}),
		highlighter: render.NewHighlighter(),
	}
	s.factory = s.previewServer
	for _, opt := range opts {
		opt(s)
	}

	s.panels = panel.NewManager(s.factory, panel.Hooks{
		OnMessage: func(msg contracts.Inbound) {
			// Runs on the transport loop, which Dispose may be waiting on.
			if !s.offer(func() { s.handleMessage(msg) }) {
				s.log.Printf("dropping panel %s: event queue full", msg.Command())
			}
		},
		OnClosed: func(v panel.View) {
			s.enqueue(func() { s.panels.Forget(v) })
		},
	})
	return s
}

func (s *SnippetPreview) previewServer() (panel.View, error) {
	server := httptransport.NewPreviewServer(s.cfg.PanelAddress, s.log)
	if err := server.Start(); err != nil {
		return nil, err
	}
	return server, nil
}

// Activate loads settings and subscribes to host and settings events.
// It must be called once, before Run. The other entry points need Run to
// be running.
func (s *SnippetPreview) Activate(h Host) error {
	s.host = h
	s.applyConfig(s.store.Load())
	s.themeKind = h.ColorScheme()

	s.subs.Add(
		h.OnActiveEditorChange(func(ed Editor) {
			s.enqueue(func() { s.activeEditorChanged(ed) })
		}),
		h.OnSelectionChange(func(ed Editor) {
			s.enqueue(func() { s.selectionChanged(ed) })
		}),
		h.OnColorSchemeChange(func(kind styles.ThemeKind) {
			s.enqueue(func() { s.themeChanged(kind) })
		}),
		s.store.Subscribe(func(config.Config) {
			// Coalesced: the loop reloads the latest settings once.
			select {
			case s.configDirty <- struct{}{}:
			default:
			}
		}),
	)

	stopWatch, err := s.store.Watch()
	if err != nil {
		s.log.Printf("settings changes will not be picked up: %v", err)
	} else {
		s.subs.Add(stopWatch)
	}

	s.activeEditorChanged(h.ActiveEditor())
	return nil
}

// Run processes queued events until ctx is done or Deactivate completes.
func (s *SnippetPreview) Run(ctx context.Context) {
	defer close(s.stopped)
	for {
		select {
		case fn := <-s.events:
			fn()
			if s.deactivating {
				return
			}
		case <-s.configDirty:
			s.configChanged(s.store.Load())
		case <-ctx.Done():
			s.teardown()
			return
		}
	}
}

func (s *SnippetPreview) enqueue(fn func()) {
	select {
	case s.events <- fn:
	case <-s.stopped:
	}
}

// offer queues fn unless the queue is full.
func (s *SnippetPreview) offer(fn func()) bool {
	select {
	case s.events <- fn:
		return true
	case <-s.stopped:
		return true
	default:
		return false
	}
}

// call runs fn on the loop and waits for it.
func (s *SnippetPreview) call(fn func()) {
	done := make(chan struct{})
	s.enqueue(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
	case <-s.stopped:
	}
}

// OpenToSide opens the panel, or reveals it if it is already open, and
// renders the active editor into it.
func (s *SnippetPreview) OpenToSide() {
	s.enqueue(s.openToSide)
}

// ClosePanel disposes the panel if one is open.
func (s *SnippetPreview) ClosePanel() {
	s.enqueue(func() {
		if err := s.panels.Dispose(); err != nil {
			s.log.Printf("closing panel: %v", err)
		}
	})
}

// Deactivate releases every subscription, closes the panel and stops Run.
func (s *SnippetPreview) Deactivate() {
	s.call(func() {
		s.teardown()
		s.deactivating = true
	})
}

func (s *SnippetPreview) teardown() {
	s.subs.Dispose()
	if err := s.panels.Dispose(); err != nil {
		s.log.Printf("closing panel: %v", err)
	}
}

func (s *SnippetPreview) openToSide() {
	if s.host == nil {
		return
	}
	ed := s.host.ActiveEditor()
	if ed == nil {
		return
	}

	view, created, err := s.panels.Open()
	if err != nil {
		s.log.Printf("opening panel: %v", err)
		return
	}
	if created {
		s.postConfig()
		s.postTheme()
	}
	if err := s.host.Reveal(view.URL()); err != nil {
		s.log.Printf("revealing panel: %v", err)
	}

	s.editor = ed
	s.render()
}

func (s *SnippetPreview) activeEditorChanged(ed Editor) {
	if ed == nil {
		return
	}
	s.editor = ed
	s.render()
}

func (s *SnippetPreview) selectionChanged(ed Editor) {
	if ed == nil {
		return
	}
	s.editor = ed
	s.render()
}

func (s *SnippetPreview) themeChanged(kind styles.ThemeKind) {
	s.themeKind = kind
	s.postTheme()
}

func (s *SnippetPreview) configChanged(cfg config.Config) {
	s.applyConfig(cfg)
	s.postConfig()
	s.postTheme()
	s.render()
}

// applyConfig stores cfg and rebuilds the renderer when markdown options changed.
func (s *SnippetPreview) applyConfig(cfg config.Config) {
	s.cfg = cfg
	if s.renderer == nil || s.renderer.Options() != cfg.Markdown {
		s.renderer = render.NewRenderer(cfg.Markdown, s.highlighter.Highlight)
	}
}

func (s *SnippetPreview) handleMessage(msg contracts.Inbound) {
	switch m := msg.(type) {
	case contracts.UpdateDelimiters:
		if err := s.store.SetDelimiters(m.StartDelimiter, m.EndDelimiter, m.Same); err != nil {
			s.log.Printf("saving delimiters: %v", err)
			return
		}
		s.configChanged(s.store.Load())
	case contracts.SettingsClicked:
		if s.host == nil {
			return
		}
		if err := s.host.OpenSettings(s.store.Path()); err != nil {
			s.log.Printf("opening settings: %v", err)
		}
	default:
		s.log.Printf("ignoring unknown panel command %q", msg.Command())
	}
}

// render extracts the snippet around the last editor's cursor and shows
// it. Nothing is posted when there is no panel, no editor or no snippet.
func (s *SnippetPreview) render() {
	if s.editor == nil || !s.panels.IsOpen() {
		return
	}

	doc, err := s.editor.Read()
	if err != nil {
		s.log.Printf("reading editor: %v", err)
		return
	}

	text, ok := snippet.Locate(doc.Text, doc.Cursor, s.cfg.StartDelimiter, s.cfg.EndDelimiter)
	if !ok {
		return
	}

	html, err := s.renderer.RenderWithSourcePath(text, doc.Path)
	if err != nil {
		s.log.Printf("rendering snippet: %v", err)
		return
	}
	s.post(contracts.ShowHTML{HTML: html})
}

func (s *SnippetPreview) postConfig() {
	s.post(contracts.UpdateConfig{
		StartDelimiter: s.cfg.StartDelimiter,
		EndDelimiter:   s.cfg.EndDelimiter,
		Same:           s.cfg.DelimitersSame,
	})
}

func (s *SnippetPreview) postTheme() {
	theme := styles.Resolve(s.cfg.Markdown.HighlightTheme, s.themeKind)
	if !styles.Has(theme) {
		s.log.Printf("unknown highlight theme %q", theme)
	}
	s.post(contracts.UpdateTheme{
		Theme:      theme,
		Stylesheet: httptransport.StylesheetURL(theme),
	})
}

func (s *SnippetPreview) post(msg contracts.Outbound) {
	if err := s.panels.Post(msg); err != nil {
		s.log.Printf("posting %s: %v", msg.Command(), err)
	}
}
