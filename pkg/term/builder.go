package term

import "github.com/mattn/go-runewidth"

// Style added to control characters, which are written in caret notation.
const styleForControlChar = "7"

// BufferBuilder supports building of Buffer.
type BufferBuilder struct {
	Width, Col int
	// Lines the content of the buffer.
	Lines [][]Cell
	// Dot is what the user perceives as the cursor.
	Dot Pos
}

// NewBufferBuilder makes a new BufferBuilder, initially with one empty line.
func NewBufferBuilder(width int) *BufferBuilder {
	return &BufferBuilder{Width: width, Lines: [][]Cell{make([]Cell, 0, width)}}
}

// Cursor returns the position where the next cell will be written.
func (bb *BufferBuilder) Cursor() Pos {
	return Pos{len(bb.Lines) - 1, bb.Col}
}

// Buffer returns a Buffer built by the BufferBuilder.
func (bb *BufferBuilder) Buffer() *Buffer {
	return &Buffer{bb.Width, bb.Lines, bb.Dot}
}

// SetDotHere sets the dot to the current cursor position.
func (bb *BufferBuilder) SetDotHere() *BufferBuilder {
	bb.Dot = bb.Cursor()
	return bb
}

// Newline starts a new line.
func (bb *BufferBuilder) Newline() *BufferBuilder {
	bb.Lines = append(bb.Lines, make([]Cell, 0, bb.Width))
	bb.Col = 0
	return bb
}

// Write writes text with one style, wrapping lines when needed. Newlines in
// the text start new lines. Control characters are written in caret notation
// (like ^X) with an additional inverse style.
func (bb *BufferBuilder) Write(text, style string) *BufferBuilder {
	for _, r := range text {
		bb.writeRune(r, style)
	}
	return bb
}

func (bb *BufferBuilder) writeRune(r rune, style string) {
	if r == '\n' {
		bb.Newline()
		return
	}
	c := Cell{string(r), style}
	if r < 0x20 || r == 0x7f {
		if style != "" {
			style += ";" + styleForControlChar
		} else {
			style = styleForControlChar
		}
		c = Cell{"^" + string(r^0x40), style}
	}
	wd := runewidth.StringWidth(c.Text)
	if bb.Width > 0 && bb.Col+wd > bb.Width {
		bb.Newline()
	}
	n := len(bb.Lines)
	bb.Lines[n-1] = append(bb.Lines[n-1], c)
	bb.Col += wd
}
