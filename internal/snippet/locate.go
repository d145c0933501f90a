// Package snippet finds the delimited region of a document that encloses the cursor.
package snippet

import "strings"

// Bounds is the byte range of a snippet's body inside a document,
// excluding both delimiters.
type Bounds struct {
	Start int
	End   int
}

// Find returns the bounds of the snippet enclosing cursor.
//
// The body begins after the last start delimiter that opens at or before
// the cursor and ends at the first end delimiter that opens at or after it.
// Offsets are byte offsets into text. An empty or inverted range is not a
// snippet, which also means identical delimiters need two occurrences
// around the cursor.
func Find(text string, cursor int, start, end string) (Bounds, bool) {
	if start == "" || end == "" {
		return Bounds{}, false
	}
	if cursor < 0 || cursor > len(text) {
		return Bounds{}, false
	}

	openAt := strings.LastIndex(text[:min(cursor+len(start), len(text))], start)
	if openAt < 0 {
		return Bounds{}, false
	}

	closeAt := strings.Index(text[cursor:], end)
	if closeAt < 0 {
		return Bounds{}, false
	}
	closeAt += cursor

	begin := openAt + len(start)
	if begin >= closeAt {
		return Bounds{}, false
	}
	return Bounds{Start: begin, End: closeAt}, true
}

// Locate returns the text strictly between the delimiter pair enclosing
// cursor. ok is false when no such pair exists and nothing should render.
func Locate(text string, cursor int, start, end string) (string, bool) {
	b, ok := Find(text, cursor, start, end)
	if !ok {
		return "", false
	}
	return text[b.Start:b.End], true
}
