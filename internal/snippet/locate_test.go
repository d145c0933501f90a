package snippet

import (
	"strings"
	"testing"
)

func TestLocate(t *testing.T) {
	const doc = `a """hello **world**""" b`

	tests := []struct {
		name   string
		text   string
		cursor int
		start  string
		end    string
		want   string
		wantOK bool
	}{
		{
			name:   "cursor inside body",
			text:   doc,
			cursor: strings.Index(doc, "world"),
			start:  `"""`,
			end:    `"""`,
			want:   "hello **world**",
			wantOK: true,
		},
		{
			name:   "cursor right after opening delimiter",
			text:   doc,
			cursor: strings.Index(doc, "hello"),
			start:  `"""`,
			end:    `"""`,
			want:   "hello **world**",
			wantOK: true,
		},
		{
			name:   "cursor inside opening delimiter",
			text:   doc,
			cursor: 3,
			start:  `"""`,
			end:    `"""`,
			want:   "hello **world**",
			wantOK: true,
		},
		{
			name:   "cursor on first byte of opening delimiter",
			text:   doc,
			cursor: 2,
			start:  `"""`,
			end:    `"""`,
			wantOK: false,
		},
		{
			name:   "cursor on closing delimiter",
			text:   doc,
			cursor: strings.LastIndex(doc, `"""`),
			start:  `"""`,
			end:    `"""`,
			wantOK: false,
		},
		{
			name:   "no start before cursor",
			text:   doc,
			cursor: 0,
			start:  `"""`,
			end:    `"""`,
			wantOK: false,
		},
		{
			name:   "no end after cursor",
			text:   `intro """unterminated`,
			cursor: 12,
			start:  `"""`,
			end:    `"""`,
			wantOK: false,
		},
		{
			name:   "single shared delimiter",
			text:   `only """ one`,
			cursor: 9,
			start:  `"""`,
			end:    `"""`,
			wantOK: false,
		},
		{
			name:   "distinct delimiters",
			text:   "x <<# body #>> y",
			cursor: 6,
			start:  "<<#",
			end:    "#>>",
			want:   " body ",
			wantOK: true,
		},
		{
			name:   "cursor between two snippets spans them",
			text:   "pre <<one>> mid <<two>> post",
			cursor: 13,
			start:  "<<",
			end:    ">>",
			want:   "one>> mid <<two",
			wantOK: true,
		},
		{
			name:   "empty body",
			text:   "<<>>",
			cursor: 2,
			start:  "<<",
			end:    ">>",
			wantOK: false,
		},
		{
			name:   "multibyte delimiters",
			text:   "«ü **ä**» rest",
			cursor: len("«ü"),
			start:  "«",
			end:    "»",
			want:   "ü **ä**",
			wantOK: true,
		},
		{
			name:   "cursor at end of text",
			text:   doc,
			cursor: len(doc),
			start:  `"""`,
			end:    `"""`,
			wantOK: false,
		},
		{
			name:   "cursor out of range",
			text:   doc,
			cursor: len(doc) + 1,
			start:  `"""`,
			end:    `"""`,
			wantOK: false,
		},
		{
			name:   "empty delimiter",
			text:   doc,
			cursor: 10,
			start:  "",
			end:    `"""`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Locate(tt.text, tt.cursor, tt.start, tt.end)
			if ok != tt.wantOK {
				t.Fatalf("Locate() ok = %v, want %v (got %q)", ok, tt.wantOK, got)
			}
			if got != tt.want {
				t.Errorf("Locate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLocateMatchesIndexFormula(t *testing.T) {
	text := `lead """first *one*""" middle """second _two_""" tail`
	start, end := `"""`, `"""`

	for cursor := 0; cursor <= len(text); cursor++ {
		got, ok := Locate(text, cursor, start, end)

		openAt := strings.LastIndex(text[:min(cursor+len(start), len(text))], start)
		closeAt := strings.Index(text[cursor:], end)
		if openAt < 0 || closeAt < 0 || openAt+len(start) >= closeAt+cursor {
			if ok {
				t.Fatalf("cursor %d: Locate() = %q, want no snippet", cursor, got)
			}
			continue
		}

		want := text[openAt+len(start) : closeAt+cursor]
		if !ok || got != want {
			t.Fatalf("cursor %d: Locate() = %q, %v, want %q", cursor, got, ok, want)
		}
		if strings.Contains(got, start) && start == end {
			t.Fatalf("cursor %d: snippet %q contains a delimiter", cursor, got)
		}
	}
}

func TestLocateIsStable(t *testing.T) {
	text := `"""# Title"""`
	first, ok1 := Locate(text, 5, `"""`, `"""`)
	second, ok2 := Locate(text, 5, `"""`, `"""`)
	if first != second || ok1 != ok2 {
		t.Fatalf("Locate() not stable: %q/%v then %q/%v", first, ok1, second, ok2)
	}
}

func TestFindBounds(t *testing.T) {
	b, ok := Find(`ab"""cd"""`, 6, `"""`, `"""`)
	if !ok {
		t.Fatal("Find() ok = false")
	}
	if b.Start != 5 || b.End != 7 {
		t.Errorf("Find() = %+v, want {Start:5 End:7}", b)
	}
}
