package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go-markdown-snippets/internal/styles"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	exportOut, exportFrom = "", ""
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestExportWritesEveryTheme(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "export", "--out", dir)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	for _, theme := range []string{styles.LightTheme, styles.DarkTheme} {
		if _, err := os.Stat(filepath.Join(dir, theme+styles.Suffix)); err != nil {
			t.Errorf("missing %s: %v", theme, err)
		}
	}
	if !strings.HasPrefix(out, "Wrote ") {
		t.Errorf("output = %q", out)
	}
}

func TestExportFromFlattensTree(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	if err := os.MkdirAll(filepath.Join(src, "base16"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "base16", "foo.min.css"), []byte(".a{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, "export", "--out", dst, "--from", src); err != nil {
		t.Fatalf("export: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dst, "base16-foo.min.css"))
	if err != nil {
		t.Fatalf("reading flattened sheet: %v", err)
	}
	if string(data) != ".a{}" {
		t.Errorf("content = %q", data)
	}
}

func TestExportRequiresOut(t *testing.T) {
	if _, err := execute(t, "export"); err == nil {
		t.Fatal("expected an error without --out")
	}
}

func TestListIncludesFallbackThemes(t *testing.T) {
	out, err := execute(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, theme := range []string{styles.LightTheme, styles.DarkTheme} {
		if !strings.Contains(out, theme+"\n") {
			t.Errorf("list output missing %s", theme)
		}
	}
}
