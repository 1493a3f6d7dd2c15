// Package tty implements a terminal backend.
//
// Widgets are shown one per line. Tab, Shift-Tab and the arrow keys move the
// focus between buttons and input fields; Enter or Space activates the
// focused button; typing edits the focused input field, with Backspace
// deleting a character and Ctrl-U clearing the field. Ctrl-C or Ctrl-Q
// closes the backend.
package tty

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"src.vapo.dev/pkg/backend"
	"src.vapo.dev/pkg/logutil"
	"src.vapo.dev/pkg/sys"
	"src.vapo.dev/pkg/sys/eunix"
	"src.vapo.dev/pkg/term"
	"src.vapo.dev/pkg/ui"
)

var logger = logutil.GetLogger("[tty] ")

const defaultWidth = 80

// Backend draws on a terminal.
type Backend struct {
	In  *os.File
	Out *os.File
	// If positive, frames are also drawn at this interval when there is no
	// input.
	Interval time.Duration
}

var _ backend.Backend = (*Backend)(nil)

// Focus and pending input, carried from one frame to the next.
type state struct {
	input
	kinds []widgetKind
}

func (b *Backend) Run(ctx context.Context, h backend.Handler) error {
	if sys.IsATTY(b.In.Fd()) {
		restore, err := eunix.MakeRaw(int(b.In.Fd()))
		if err != nil {
			return fmt.Errorf("cannot put terminal into raw mode: %w", err)
		}
		defer restore()
	}

	w := term.NewWriter(b.Out)
	keys := term.NewReader(b.In)
	resize := sys.NotifyResize()
	defer sys.StopResize(resize)
	var tick <-chan time.Time
	if b.Interval > 0 {
		ticker := time.NewTicker(b.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	var st state
	var buf *term.Buffer
	fullRefresh := false
	defer func() {
		// Leave the cursor below the last frame.
		if buf != nil {
			buf.Dot = buf.EndPos()
			w.UpdateBuffer(buf, false)
			fmt.Fprint(b.Out, "\r\n")
		}
	}()

	for {
		s := newSurface(b.width(), st.input)
		h.OnFrame(s)
		st.activate, st.edit = false, nil
		st.kinds = s.kinds
		if st.focus >= len(st.kinds) {
			st.focus = 0
		}
		buf = s.buffer()
		if err := w.UpdateBuffer(buf, fullRefresh); err != nil {
			return err
		}
		fullRefresh = false
		if h.ShouldClose() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-resize:
			fullRefresh = true
		case <-tick:
		case ev := <-keys:
			if ev.Err != nil {
				h.RequestClose()
				if ev.Err == io.EOF {
					return nil
				}
				return ev.Err
			}
			st.handleKey(ev.Key, h)
		}
	}
}

func (b *Backend) width() int {
	if _, col := sys.WinSize(b.Out); col > 0 {
		return col
	}
	return defaultWidth
}

func (st *state) focused() (widgetKind, bool) {
	if st.focus < len(st.kinds) {
		return st.kinds[st.focus], true
	}
	return 0, false
}

func (st *state) moveFocus(delta int) {
	if n := len(st.kinds); n > 0 {
		st.focus = ((st.focus+delta)%n + n) % n
	}
}

func (st *state) addEdit(f func(string) string) {
	if prev := st.edit; prev != nil {
		st.edit = func(s string) string { return f(prev(s)) }
	} else {
		st.edit = f
	}
}

func (st *state) handleKey(k ui.Key, h backend.Handler) {
	kind, hasFocus := st.focused()
	onInput := hasFocus && kind == inputWidget
	switch k {
	case ui.K('C', ui.Ctrl), ui.K('Q', ui.Ctrl):
		h.RequestClose()
	case ui.K(ui.Tab), ui.K(ui.Down):
		st.moveFocus(1)
	case ui.K(ui.Tab, ui.Shift), ui.K(ui.Up):
		st.moveFocus(-1)
	case ui.K(ui.Enter):
		if onInput {
			st.moveFocus(1)
		} else if hasFocus {
			st.activate = true
		}
	case ui.K(ui.Backspace):
		if onInput {
			st.addEdit(func(s string) string {
				r := []rune(s)
				if len(r) == 0 {
					return s
				}
				return string(r[:len(r)-1])
			})
		}
	case ui.K('U', ui.Ctrl):
		if onInput {
			st.addEdit(func(string) string { return "" })
		}
	default:
		if k.Mod != 0 || k.Rune < 0x20 {
			logger.Debugf("ignoring key %v", k)
			return
		}
		if onInput {
			st.addEdit(func(s string) string { return s + string(k.Rune) })
		} else if hasFocus && k.Rune == ' ' {
			st.activate = true
		}
	}
}
