package tty

import (
	"src.vapo.dev/pkg/term"
	"src.vapo.dev/pkg/ui"
)

type widgetKind int

const (
	buttonWidget widgetKind = iota
	inputWidget
)

const (
	focusedButtonStyle = "7"
	focusedInputStyle  = "4"
)

// Input for one frame.
type input struct {
	focus    int
	activate bool
	// Applied to the content of the focused input field. May be nil.
	edit func(string) string
}

// A ui.Surface laying out widgets one per line. Buttons and input fields can
// be focused; they are identified by their position among focusable widgets.
type surface struct {
	in      input
	bb      *term.BufferBuilder
	kinds   []widgetKind
	started bool
	dotSet  bool
}

var _ ui.Surface = (*surface)(nil)

func newSurface(width int, in input) *surface {
	return &surface{in: in, bb: term.NewBufferBuilder(width)}
}

func (s *surface) line() {
	if s.started {
		s.bb.Newline()
	}
	s.started = true
}

func (s *surface) Label(text string) {
	s.StyledLabel(ui.Style{}, text)
}

func (s *surface) StyledLabel(style ui.Style, text string) {
	s.line()
	s.bb.Write(text, style.SGR())
}

// Returns whether the widget being added has focus.
func (s *surface) focusable(kind widgetKind) bool {
	s.kinds = append(s.kinds, kind)
	return len(s.kinds)-1 == s.in.focus
}

func (s *surface) Button(text string) bool {
	s.line()
	focused := s.focusable(buttonWidget)
	style := ""
	if focused {
		style = focusedButtonStyle
	}
	s.bb.Write("[ "+text+" ]", style)
	return focused && s.in.activate
}

func (s *surface) TextEdit(buf *string) {
	s.line()
	focused := s.focusable(inputWidget)
	if focused && s.in.edit != nil {
		*buf = s.in.edit(*buf)
	}
	s.bb.Write("> ", "")
	if focused {
		s.bb.Write(*buf, focusedInputStyle)
		s.bb.SetDotHere()
		s.dotSet = true
	} else {
		s.bb.Write(*buf, "")
	}
}

func (s *surface) buffer() *term.Buffer {
	if !s.dotSet {
		s.bb.SetDotHere()
	}
	return s.bb.Buffer()
}
