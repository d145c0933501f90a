package styles

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		setting string
		scheme  string
		want    string
	}{
		{setting: "default", scheme: "Light+", want: "github"},
		{setting: "default", scheme: "Dark+", want: "monokai"},
		{setting: "default", scheme: "Default High Contrast", want: "monokai"},
		{setting: "", scheme: "solarized-light", want: "github"},
		{setting: "dracula", scheme: "Light+", want: "dracula"},
	}
	for _, tt := range tests {
		got := Resolve(tt.setting, KindOf(tt.scheme))
		if got != tt.want {
			t.Errorf("Resolve(%q, KindOf(%q)) = %q, want %q", tt.setting, tt.scheme, got, tt.want)
		}
	}
}

func TestFlatName(t *testing.T) {
	tests := map[string]string{
		"github.min.css":                "github.min.css",
		"base16/foo.min.css":            "base16-foo.min.css",
		`base16\foo.min.css`:            "base16-foo.min.css",
		"a/b/c.min.css":                 "a-b-c.min.css",
		"/leading/slash.min.css":        "leading-slash.min.css",
		"base16/solarized-dark.min.css": "base16-solarized-dark.min.css",
	}
	for in, want := range tests {
		if got := FlatName(in); got != want {
			t.Errorf("FlatName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCSS(t *testing.T) {
	for _, theme := range []string{LightTheme, DarkTheme} {
		css, err := CSS(theme)
		if err != nil {
			t.Fatalf("CSS(%q) error = %v", theme, err)
		}
		if !strings.Contains(css, ".chroma") {
			t.Errorf("CSS(%q) has no .chroma rules", theme)
		}
	}

	if _, err := CSS("no-such-theme"); err == nil {
		t.Error("CSS(unknown) error = nil")
	}
}

func TestExport(t *testing.T) {
	out := t.TempDir()
	written, err := Export(out)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(written) != len(Names()) {
		t.Errorf("Export() wrote %d files, want %d", len(written), len(Names()))
	}
	if _, err := os.Stat(filepath.Join(out, "monokai.min.css")); err != nil {
		t.Errorf("monokai stylesheet missing: %v", err)
	}
}

func TestCopyTree(t *testing.T) {
	src := t.TempDir()
	files := map[string]string{
		"github.min.css":       "a{}",
		"github.css":           "ignored",
		"base16/foo.min.css":   "b{}",
		"base16/x/bar.min.css": "c{}",
	}
	for name, body := range files {
		path := filepath.Join(src, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	out := t.TempDir()
	written, err := CopyTree(src, out)
	if err != nil {
		t.Fatalf("CopyTree() error = %v", err)
	}

	want := []string{"base16-foo.min.css", "base16-x-bar.min.css", "github.min.css"}
	if !reflect.DeepEqual(written, want) {
		t.Errorf("CopyTree() = %v, want %v", written, want)
	}

	data, err := os.ReadFile(filepath.Join(out, "base16-x-bar.min.css"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "c{}" {
		t.Errorf("copied contents = %q, want c{}", data)
	}
}
