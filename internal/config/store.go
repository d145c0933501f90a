package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"go-markdown-snippets/internal/dispose"
)

const (
	dirName  = "markdown-snippets"
	fileName = "config.yaml"
	fileType = "yaml"

	// EnvPrefix prefixes environment overrides, e.g. MARKDOWN_SNIPPETS_STARTDELIMITER.
	EnvPrefix = "MARKDOWN_SNIPPETS"
)

// DefaultPath returns the settings file location under the user config dir.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", dirName, fileName)
	}
	return filepath.Join(dir, dirName, fileName)
}

// Store reads and writes the settings file and tells subscribers when it changes.
type Store struct {
	path string
	log  *log.Logger

	mu sync.Mutex
	v  *viper.Viper

	subMu     sync.Mutex
	nextID    uint64
	observers map[uint64]func(Config)
}

// NewStore loads settings from path. A missing file is not an error;
// defaults apply until something is written.
func NewStore(path string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType(fileType)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !isMissing(err) {
		return nil, fmt.Errorf("reading settings %s: %w", path, err)
	}

	return &Store{
		path:      path,
		log:       logger,
		v:         v,
		observers: make(map[uint64]func(Config)),
	}, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault(KeyStartDelimiter, d.StartDelimiter)
	v.SetDefault(KeyEndDelimiter, d.EndDelimiter)
	v.SetDefault(KeyEndSameAsStart, d.DelimitersSame)
	v.SetDefault(KeyHTML, d.Markdown.HTML)
	v.SetDefault(KeyBreaks, d.Markdown.Breaks)
	v.SetDefault(KeyLinkify, d.Markdown.Linkify)
	v.SetDefault(KeyTypographer, d.Markdown.Typographer)
	v.SetDefault(KeyAlerts, d.Markdown.Alerts)
	v.SetDefault(KeyHighlightTheme, d.Markdown.HighlightTheme)
	v.SetDefault(KeyOpenDouble, d.Markdown.Quotes[OpenDouble])
	v.SetDefault(KeyCloseDouble, d.Markdown.Quotes[CloseDouble])
	v.SetDefault(KeyOpenSingle, d.Markdown.Quotes[OpenSingle])
	v.SetDefault(KeyCloseSingle, d.Markdown.Quotes[CloseSingle])
	v.SetDefault(KeyPanelAddress, d.PanelAddress)
}

func isMissing(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound)
}

// Path returns the settings file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the current settings with invariants applied.
func (s *Store) Load() Config {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := Config{
		StartDelimiter: s.v.GetString(KeyStartDelimiter),
		EndDelimiter:   s.v.GetString(KeyEndDelimiter),
		DelimitersSame: s.v.GetBool(KeyEndSameAsStart),
		Markdown: MarkdownOptions{
			HTML:        s.v.GetBool(KeyHTML),
			Breaks:      s.v.GetBool(KeyBreaks),
			Linkify:     s.v.GetBool(KeyLinkify),
			Typographer: s.v.GetBool(KeyTypographer),
			Alerts:      s.v.GetBool(KeyAlerts),
			Quotes: [4]string{
				DecodeEscapes(s.v.GetString(KeyOpenDouble)),
				DecodeEscapes(s.v.GetString(KeyCloseDouble)),
				DecodeEscapes(s.v.GetString(KeyOpenSingle)),
				DecodeEscapes(s.v.GetString(KeyCloseSingle)),
			},
			HighlightTheme: s.v.GetString(KeyHighlightTheme),
		},
		PanelAddress: s.v.GetString(KeyPanelAddress),
	}
	return c.Normalize()
}

// SetDelimiters persists new delimiters and notifies subscribers.
// When same is true the end delimiter is stored as a copy of start.
func (s *Store) SetDelimiters(start, end string, same bool) error {
	if same {
		end = start
	}

	s.mu.Lock()
	err := s.update(map[string]any{
		KeyStartDelimiter: start,
		KeyEndDelimiter:   end,
		KeyEndSameAsStart: same,
	})
	if err == nil {
		if rerr := s.v.ReadInConfig(); rerr != nil {
			err = fmt.Errorf("rereading settings %s: %w", s.path, rerr)
		}
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.notify()
	return nil
}

// update merges values into the settings file, keeping every other key
// the user wrote.
func (s *Store) update(values map[string]any) error {
	doc := map[string]any{}

	data, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing settings %s: %w", s.path, err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return fmt.Errorf("reading settings %s: %w", s.path, err)
	}

	for key, value := range values {
		setPath(doc, strings.Split(key, "."), value)
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}
	if err := os.WriteFile(s.path, out, 0o644); err != nil {
		return fmt.Errorf("writing settings %s: %w", s.path, err)
	}
	return nil
}

// setPath stores value under a dotted key, matching existing keys without
// regard to case the way viper reads them.
func setPath(doc map[string]any, path []string, value any) {
	key := path[0]
	for existing := range doc {
		if strings.EqualFold(existing, key) {
			key = existing
			break
		}
	}

	if len(path) == 1 {
		doc[key] = value
		return
	}

	child, ok := doc[key].(map[string]any)
	if !ok {
		child = map[string]any{}
		doc[key] = child
	}
	setPath(child, path[1:], value)
}

// Reload rereads the settings file and notifies subscribers.
func (s *Store) Reload() error {
	s.mu.Lock()
	err := s.v.ReadInConfig()
	s.mu.Unlock()
	if err != nil && !isMissing(err) {
		return fmt.Errorf("reloading settings %s: %w", s.path, err)
	}

	s.notify()
	return nil
}

// Subscribe registers fn to receive the settings after every change.
func (s *Store) Subscribe(fn func(Config)) dispose.Func {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextID
	s.nextID++
	s.observers[id] = fn

	return func() {
		s.subMu.Lock()
		delete(s.observers, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify() {
	c := s.Load()

	s.subMu.Lock()
	fns := make([]func(Config), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

// Watch reloads the store whenever the settings file is written, created
// or replaced. The returned func stops watching.
func (s *Store) Watch() (dispose.Func, error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating settings directory: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating settings watcher: %w", err)
	}
	// Editors often replace files on save, so watch the directory.
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	target := filepath.Clean(s.path)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if err := s.Reload(); err != nil {
					s.log.Printf("settings reload failed: %v", err)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.Printf("settings watcher: %v", err)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = w.Close()
			<-done
		})
	}, nil
}
