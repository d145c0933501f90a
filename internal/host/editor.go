package host

import (
	"bytes"
	"errors"

	"github.com/neovim/go-client/nvim"

	"go-markdown-snippets/internal/app"
)

// errWindowMoved is returned when the window no longer shows the buffer.
var errWindowMoved = errors.New("window no longer shows the buffer")

// bufferEditor reads a buffer and the cursor of a window showing it.
type bufferEditor struct {
	v   *nvim.Nvim
	buf nvim.Buffer
	win nvim.Window
}

func (e bufferEditor) Read() (app.Document, error) {
	shown, err := e.v.WindowBuffer(e.win)
	if err != nil {
		return app.Document{}, err
	}
	if shown != e.buf {
		return app.Document{}, errWindowMoved
	}

	lines, err := e.v.BufferLines(e.buf, 0, -1, true)
	if err != nil {
		return app.Document{}, err
	}
	pos, err := e.v.WindowCursor(e.win)
	if err != nil {
		return app.Document{}, err
	}
	path, err := e.v.BufferName(e.buf)
	if err != nil {
		return app.Document{}, err
	}

	return app.Document{
		Text:   string(bytes.Join(lines, []byte("\n"))),
		Cursor: cursorOffset(lines, pos[0], pos[1]),
		Path:   path,
	}, nil
}

// cursorOffset converts a 1-based row and 0-based byte column to a byte
// offset into the lines joined with newlines.
func cursorOffset(lines [][]byte, row, col int) int {
	if row < 1 || len(lines) == 0 {
		return 0
	}
	if row > len(lines) {
		row = len(lines)
	}

	offset := 0
	for _, line := range lines[:row-1] {
		offset += len(line) + 1
	}
	return offset + max(0, min(col, len(lines[row-1])))
}
