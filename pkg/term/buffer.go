// Package term renders frames to a terminal and decodes keyboard input.
package term

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Cell is what occupies one position of a line: a single character, or the
// caret notation of a control character. It may be wider than one column.
type Cell struct {
	Text  string
	Style string
}

// Pos is a line/column position.
type Pos struct {
	Line, Col int
}

// Buffer is the content of the area of the terminal owned by a frame, and the
// position of the cursor in it (the dot).
//
// The terminal is never queried. A Writer assumes the screen holds exactly the
// last Buffer it wrote, so widths must agree with the terminal's own idea of
// them.
type Buffer struct {
	Width int
	Lines [][]Cell
	Dot   Pos
}

// EndPos returns where the cursor is left after the whole buffer is written.
func (b *Buffer) EndPos() Pos {
	n := len(b.Lines)
	if n == 0 {
		return Pos{}
	}
	return Pos{n - 1, width(b.Lines[n-1])}
}

// Text returns the lines of the buffer without styles.
func (b *Buffer) Text() []string {
	texts := make([]string, len(b.Lines))
	for i, line := range b.Lines {
		var sb strings.Builder
		for _, c := range line {
			sb.WriteString(c.Text)
		}
		texts[i] = sb.String()
	}
	return texts
}

func width(cs []Cell) int {
	w := 0
	for _, c := range cs {
		w += runewidth.StringWidth(c.Text)
	}
	return w
}

// Returns the index of the first cell at which a and b differ, and whether
// they are equal.
func firstDiff(a, b []Cell) (int, bool) {
	for i := range a {
		if i >= len(b) || a[i] != b[i] {
			return i, false
		}
	}
	return len(a), len(a) == len(b)
}
