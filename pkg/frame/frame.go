// Package frame implements the drawing context lent to scripts for the
// duration of one frame.
package frame

import (
	"fmt"

	"src.vapo.dev/pkg/cell"
	"src.vapo.dev/pkg/ui"
)

// Change describes an edit the user made to an input field.
type Change struct {
	// ID of the edited cell.
	Cell uint64
	// Frame in which the edit was applied.
	Frame  uint64
	Before string
	After  string
}

// Notifier receives change notifications.
type Notifier interface {
	Changed(Change)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Change)

// Changed calls f(c).
func (f NotifierFunc) Changed(c Change) { f(c) }

// Notifiers combines multiple notifiers into one that notifies them in order.
func Notifiers(ns ...Notifier) Notifier {
	return NotifierFunc(func(c Change) {
		for _, n := range ns {
			if n != nil {
				n.Changed(c)
			}
		}
	})
}

// ScopeViolation is the panic value used when a Context is used after its
// frame has ended.
type ScopeViolation struct {
	Op    string
	Frame uint64
}

func (e *ScopeViolation) Error() string {
	return fmt.Sprintf("%s called on the context of frame %d outside of its frame", e.Op, e.Frame)
}

// Context gives access to the surface of the frame being drawn. It does not
// own the surface; the surface reference is cleared by Invalidate at the end
// of the frame, after which every drawing method panics with a
// *ScopeViolation.
type Context struct {
	surface ui.Surface
	frame   uint64
	notify  Notifier
}

// New creates a Context drawing on s. The notifier may be nil.
func New(s ui.Surface, frame uint64, notify Notifier) *Context {
	return &Context{s, frame, notify}
}

// Frame returns the number of the frame this context belongs to.
func (c *Context) Frame() uint64 { return c.frame }

// Valid returns whether the context may still be used.
func (c *Context) Valid() bool { return c.surface != nil }

// Invalidate ends the context's scope. Invalidating an already invalid
// context does nothing.
func (c *Context) Invalidate() { c.surface = nil }

func (c *Context) ui(op string) ui.Surface {
	if c.surface == nil {
		panic(&ScopeViolation{op, c.frame})
	}
	return c.surface
}

// Label draws text.
func (c *Context) Label(text string) {
	c.ui("label").Label(text)
}

// Button draws a button and returns whether it was activated since the
// previous frame.
func (c *Context) Button(text string) bool {
	return c.ui("button").Button(text)
}

// Input draws a text field editing the content of a string cell. After the
// surface has applied pending edits, the result is written back into the cell
// and, if it differs from the content before the edit, a single Change is
// sent to the notifier.
//
// No borrow is held while the surface or the notifier runs. Borrow errors
// are returned unchanged.
func (c *Context) Input(sc *cell.Cell[string]) error {
	s := c.ui("input")
	before, err := sc.Load()
	if err != nil {
		return err
	}
	after := before
	s.TextEdit(&after)
	if after == before {
		return nil
	}
	if err := sc.Store(after); err != nil {
		return err
	}
	if c.notify != nil {
		c.notify.Changed(Change{Cell: sc.ID(), Frame: c.frame, Before: before, After: after})
	}
	return nil
}
