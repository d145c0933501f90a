// Package httpserver serves the preview panel and carries all message
// traffic between the controller and the browser.
package httpserver

import (
	"context"
	_ "embed"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"go-markdown-snippets/internal/contracts"
	"go-markdown-snippets/internal/render"
	"go-markdown-snippets/internal/styles"
)

// StylesPrefix is the URL prefix of the highlight theme stylesheets.
const StylesPrefix = "/styles/"

//go:embed page.html
var pageTemplate string

// StylesheetURL returns the panel-relative URL of a theme stylesheet.
func StylesheetURL(theme string) string {
	return StylesPrefix + styles.FlatName(theme) + styles.Suffix
}

// PreviewServer coordinates HTTP serving and WebSocket updates.
type PreviewServer struct {
	addr string
	log  *log.Logger

	mu        sync.Mutex
	started   bool
	server    *http.Server
	listener  net.Listener
	onMessage func(contracts.Inbound)

	outbound   chan contracts.Outbound
	inbound    chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	stopLoop   chan struct{}
	done       chan struct{}

	upgrader websocket.Upgrader
}

// NewPreviewServer creates an HTTP/WebSocket preview server bound to addr.
func NewPreviewServer(addr string, logger *log.Logger) *PreviewServer {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &PreviewServer{
		addr: addr,
		log:  logger,

		outbound:   make(chan contracts.Outbound, 32),
		inbound:    make(chan []byte, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		stopLoop:   make(chan struct{}),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Start binds the listener and begins serving. Calling Start again is a no-op.
func (m *PreviewServer) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return nil
	}
	select {
	case <-m.done:
		return errors.New("preview server closed")
	default:
	}

	ln, err := net.Listen("tcp", m.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", m.addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", m.handleIndex)
	mux.HandleFunc("/ws", m.handleWS)
	mux.HandleFunc(StylesPrefix, m.handleStyles)
	mux.HandleFunc(render.AssetPrefix, m.handleAsset)

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	m.listener = ln
	m.server = server
	m.started = true

	go m.runLoop()
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.log.Printf("preview server stopped: %v", err)
		}
	}()
	return nil
}

// URL returns the browser URL for the preview server.
func (m *PreviewServer) URL() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listener != nil {
		return "http://" + m.listener.Addr().String()
	}
	return "http://" + m.addr
}

// Post queues msg for the connected browser. Messages posted before Start
// are dropped.
func (m *PreviewServer) Post(msg contracts.Outbound) error {
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()
	if !started {
		return nil
	}

	select {
	case m.outbound <- msg:
		return nil
	case <-m.done:
		return errors.New("preview server closed")
	}
}

// SetMessageHandler registers the callback for messages sent by the browser.
// It runs on the server's loop goroutine and must not block.
func (m *PreviewServer) SetMessageHandler(fn func(contracts.Inbound)) {
	m.mu.Lock()
	m.onMessage = fn
	m.mu.Unlock()
}

// Done is closed once the server has stopped.
func (m *PreviewServer) Done() <-chan struct{} {
	return m.done
}

// Stop gracefully shuts down the HTTP server and run loop.
func (m *PreviewServer) Stop() error {
	m.mu.Lock()
	if !m.started || m.server == nil {
		m.mu.Unlock()
		return nil
	}
	server := m.server
	m.started = false
	m.server = nil
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := server.Shutdown(ctx)
	close(m.stopLoop)
	<-m.done
	return err
}

// handleIndex serves the panel page with a fresh script nonce.
func (m *PreviewServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")
	csp := contentSecurityPolicy(nonce, r.Host)

	page := strings.NewReplacer(
		"{{CSP}}", csp,
		"{{NONCE}}", nonce,
		"{{THEME_URL}}", StylesheetURL(styles.DarkTheme),
	).Replace(pageTemplate)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", csp)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(page))
}

func contentSecurityPolicy(nonce, host string) string {
	return strings.Join([]string{
		"default-src 'none'",
		"style-src 'self' 'nonce-" + nonce + "'",
		"font-src 'self'",
		"img-src 'self' https: data:",
		"connect-src 'self' ws://" + host,
		"script-src 'nonce-" + nonce + "'",
	}, "; ")
}

// handleWS upgrades the connection and forwards browser messages to the loop.
func (m *PreviewServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	select {
	case m.register <- conn:
	case <-m.done:
		_ = conn.Close()
		return
	}
	defer func() {
		select {
		case m.unregister <- conn:
		case <-m.done:
		}
	}()

	// Block here until the connection closes / errors out
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		select {
		case m.inbound <- msg:
		case <-m.done:
			return
		}
	}
}

// handleStyles serves the stylesheet of one highlight theme.
func (m *PreviewServer) handleStyles(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, StylesPrefix)
	theme := strings.TrimSuffix(name, styles.Suffix)
	if theme == "" || theme == name {
		http.NotFound(w, r)
		return
	}

	css, err := styles.CSS(theme)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	_, _ = w.Write([]byte(css))
}

// handleAsset serves local markdown assets via encoded absolute paths.
func (m *PreviewServer) handleAsset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, render.AssetPrefix)
	if id == "" {
		http.NotFound(w, r)
		return
	}

	decoded, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	assetPath := filepath.Clean(string(decoded))
	if assetPath == "." || !filepath.IsAbs(assetPath) {
		http.NotFound(w, r)
		return
	}

	info, err := os.Stat(assetPath)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, assetPath)
}

// snapshot is the last message of each kind, replayed to a page that
// reconnects after a reload.
type snapshot struct {
	config contracts.Outbound
	theme  contracts.Outbound
	html   contracts.Outbound
}

func (s *snapshot) remember(msg contracts.Outbound) {
	switch msg.(type) {
	case contracts.UpdateConfig:
		s.config = msg
	case contracts.UpdateTheme:
		s.theme = msg
	case contracts.ShowHTML:
		s.html = msg
	}
}

func (s *snapshot) messages() []contracts.Outbound {
	var out []contracts.Outbound
	for _, msg := range []contracts.Outbound{s.config, s.theme, s.html} {
		if msg != nil {
			out = append(out, msg)
		}
	}
	return out
}

// runLoop serializes state updates and websocket writes on a single goroutine.
func (m *PreviewServer) runLoop() {
	defer close(m.done)

	var conn *websocket.Conn
	var last snapshot

	for {
		select {
		case msg := <-m.outbound:
			last.remember(msg)
			if conn == nil {
				continue
			}
			if !m.write(conn, msg) {
				conn = nil
			}

		case c := <-m.register:
			if conn != nil {
				_ = conn.Close()
			}
			conn = c
			for _, msg := range last.messages() {
				if !m.write(conn, msg) {
					conn = nil
					break
				}
			}

		case c := <-m.unregister:
			if conn == c {
				_ = conn.Close()
				conn = nil
			}

		case raw := <-m.inbound:
			msg, err := contracts.Decode(raw)
			if err != nil {
				m.log.Printf("ignoring panel message: %v", err)
				continue
			}
			m.mu.Lock()
			handler := m.onMessage
			m.mu.Unlock()
			if handler != nil {
				handler(msg)
			}

		case <-m.stopLoop:
			if conn != nil {
				_ = conn.Close()
			}
			return
		}
	}
}

// write sends one message and reports whether the connection is usable.
func (m *PreviewServer) write(conn *websocket.Conn, msg contracts.Outbound) bool {
	data, err := contracts.Encode(msg)
	if err != nil {
		m.log.Printf("dropping %s: %v", msg.Command(), err)
		return true
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		_ = conn.Close()
		return false
	}
	return true
}
