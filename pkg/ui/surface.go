// Package ui defines the drawing surface that rendering backends hand to the
// frame dispatcher, and the styles and colors used on it.
package ui

// Surface is an immediate-mode drawing surface, valid for one frame.
//
// Widgets are drawn in call order. Interactive widgets report the result of
// the input that the backend collected since the previous frame.
type Surface interface {
	// Label draws static text.
	Label(text string)
	// StyledLabel draws static text with a style.
	StyledLabel(style Style, text string)
	// Button draws a clickable button and reports whether it was activated
	// since the previous frame.
	Button(text string) bool
	// TextEdit draws a single-line text field showing *buf, and applies
	// pending user edits to *buf.
	TextEdit(buf *string)
}
