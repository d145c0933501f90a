package httpserver

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"go-markdown-snippets/internal/contracts"
)

func startServer(t *testing.T) *PreviewServer {
	t.Helper()
	s := NewPreviewServer("127.0.0.1:0", log.New(io.Discard, "", 0))
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func dial(t *testing.T, s *PreviewServer) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.URL(), "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readCommand(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	var msg map[string]any
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("message %s is not JSON: %v", data, err)
	}
	return msg
}

func TestIndexServesPageWithNonce(t *testing.T) {
	s := startServer(t)

	resp, err := http.Get(s.URL() + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	csp := resp.Header.Get("Content-Security-Policy")
	if !strings.Contains(csp, "script-src 'nonce-") || !strings.Contains(csp, "default-src 'none'") {
		t.Fatalf("Content-Security-Policy = %q", csp)
	}

	start := strings.Index(csp, "script-src 'nonce-") + len("script-src 'nonce-")
	nonce := csp[start : start+32]
	if !strings.Contains(string(body), `<script nonce="`+nonce+`">`) {
		t.Errorf("page script tag does not carry nonce %q", nonce)
	}
	if strings.Contains(string(body), "{{") {
		t.Errorf("page has unreplaced placeholders")
	}

	resp2, err := http.Get(s.URL() + "/")
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.Header.Get("Content-Security-Policy") == csp {
		t.Error("nonce reused across responses")
	}
}

func TestStylesheets(t *testing.T) {
	s := startServer(t)

	resp, err := http.Get(s.URL() + StylesheetURL("github"))
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), ".chroma") {
		t.Errorf("GET github stylesheet = %d %q", resp.StatusCode, body)
	}

	for _, path := range []string{StylesPrefix + "nope.min.css", StylesPrefix + "github.css", "/missing"} {
		resp, err := http.Get(s.URL() + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestMessagesAreDeliveredAndReplayed(t *testing.T) {
	s := startServer(t)

	posts := []contracts.Outbound{
		contracts.UpdateConfig{StartDelimiter: `"""`, EndDelimiter: `"""`, Same: true},
		contracts.UpdateTheme{Theme: "monokai", Stylesheet: StylesheetURL("monokai")},
		contracts.ShowHTML{HTML: "<p>one</p>"},
	}
	for _, msg := range posts {
		if err := s.Post(msg); err != nil {
			t.Fatal(err)
		}
	}

	first := dial(t, s)
	for _, want := range []string{"updateConfig", "updateTheme", "showHtml"} {
		if got := readCommand(t, first)["command"]; got != want {
			t.Fatalf("command = %v, want %s", got, want)
		}
	}

	if err := s.Post(contracts.ShowHTML{HTML: "<p>two</p>"}); err != nil {
		t.Fatal(err)
	}
	if got := readCommand(t, first)["html"]; got != "<p>two</p>" {
		t.Fatalf("html = %v, want <p>two</p>", got)
	}

	// A reloaded page gets the latest state.
	second := dial(t, s)
	var last map[string]any
	for i := 0; i < 3; i++ {
		last = readCommand(t, second)
	}
	if last["command"] != "showHtml" || last["html"] != "<p>two</p>" {
		t.Errorf("replayed %v, want latest showHtml", last)
	}
}

func TestInboundMessages(t *testing.T) {
	s := startServer(t)

	got := make(chan contracts.Inbound, 4)
	s.SetMessageHandler(func(msg contracts.Inbound) { got <- msg })

	conn := dial(t, s)
	for _, raw := range []string{
		`{"command":"hello","text":"ignored"}`,
		`not json`,
		`{"command":"updateDelimiters","startDelimiter":"<<","endDelimiter":">>","same":false}`,
		`{"command":"settingsClicked"}`,
	} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
			t.Fatal(err)
		}
	}

	want := []contracts.Inbound{
		contracts.UpdateDelimiters{StartDelimiter: "<<", EndDelimiter: ">>"},
		contracts.SettingsClicked{},
	}
	for _, w := range want {
		select {
		case msg := <-got:
			if msg != w {
				t.Errorf("handler got %#v, want %#v", msg, w)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("handler not called for %#v", w)
		}
	}
}

func TestStop(t *testing.T) {
	s := NewPreviewServer("127.0.0.1:0", log.New(io.Discard, "", 0))
	if err := s.Post(contracts.ShowHTML{}); err != nil {
		t.Errorf("Post() before Start error = %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("Done() not closed after Stop")
	}
	if err := s.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
	if err := s.Start(); err == nil {
		t.Error("Start() after Stop succeeded")
	}
}

func TestStopRightAfterStart(t *testing.T) {
	for i := 0; i < 200; i++ {
		s := NewPreviewServer("127.0.0.1:0", log.New(io.Discard, "", 0))
		if err := s.Start(); err != nil {
			t.Fatalf("run %d: Start() error = %v", i, err)
		}
		if err := s.Stop(); err != nil {
			t.Fatalf("run %d: Stop() error = %v", i, err)
		}
	}
}
