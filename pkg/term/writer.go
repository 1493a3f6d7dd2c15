package term

import (
	"bytes"
	"fmt"
	"io"
)

// Writer shows buffers on a terminal.
type Writer interface {
	// Buffer returns the buffer last written.
	Buffer() *Buffer
	// UpdateBuffer changes the display to show buf. The cursor must be where
	// the previous update left it. A full refresh redraws every line instead
	// of only the changed ones.
	UpdateBuffer(buf *Buffer, fullRefresh bool) error
}

const (
	hideCursor = "\033[?25l"
	showCursor = "\033[?25h"
)

// NewWriter returns a Writer that writes VT100 sequences to out.
func NewWriter(out io.Writer) Writer {
	return &frameWriter{out: out, last: &Buffer{}}
}

// Redraws only the lines, and the tails of lines, that differ from the last
// buffer.
type frameWriter struct {
	out  io.Writer
	last *Buffer
}

func (w *frameWriter) Buffer() *Buffer { return w.last }

func (w *frameWriter) UpdateBuffer(buf *Buffer, fullRefresh bool) error {
	// Lines wrapped at another width cannot be compared.
	if w.last.Lines != nil && buf.Width != w.last.Width {
		fullRefresh = true
	}

	o := &output{}
	o.WriteString(hideCursor)
	o.up(w.last.Dot.Line)
	o.WriteString("\r")

	old := w.last.Lines
	if fullRefresh {
		// Erasing right away from the top left corner makes tmux save the
		// screen in its scrollback. Writing a space first avoids that.
		o.WriteString(" \033[J\r")
		old = nil
	}

	for i, line := range buf.Lines {
		if i > 0 {
			o.WriteString("\r\n")
		}
		if i >= len(old) {
			o.cells(line)
			continue
		}
		j, same := firstDiff(line, old[i])
		if same {
			continue
		}
		o.right(width(line[:j]))
		if j < len(old[i]) {
			o.style("")
			o.WriteString("\033[K")
		}
		o.cells(line[j:])
	}
	if len(old) > len(buf.Lines) {
		// Below the new content; the newline cannot scroll.
		o.style("")
		o.WriteString("\r\n\033[J\033[A")
	}
	o.style("")
	o.move(buf.EndPos(), buf.Dot)
	o.WriteString(showCursor)

	logger.Debugf("writing %d lines, %d bytes", len(buf.Lines), o.Len())
	if _, err := w.out.Write(o.Bytes()); err != nil {
		return err
	}
	w.last = buf
	return nil
}

// Accumulates the output of one update, tracking the current SGR style.
type output struct {
	bytes.Buffer
	current string
}

func (o *output) style(s string) {
	if s != o.current {
		fmt.Fprintf(o, "\033[0;%sm", s)
		o.current = s
	}
}

func (o *output) cells(cs []Cell) {
	for _, c := range cs {
		o.style(c.Style)
		o.WriteString(c.Text)
	}
}

func (o *output) up(n int) {
	if n > 0 {
		fmt.Fprintf(o, "\033[%dA", n)
	}
}

func (o *output) right(n int) {
	if n > 0 {
		fmt.Fprintf(o, "\033[%dC", n)
	}
}

// Moves the cursor with relative line movement and an absolute column.
func (o *output) move(from, to Pos) {
	if to.Line > from.Line {
		fmt.Fprintf(o, "\033[%dB", to.Line-from.Line)
	} else {
		o.up(from.Line - to.Line)
	}
	o.WriteString("\r")
	o.right(to.Col)
}
