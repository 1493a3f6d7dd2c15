// Package headless implements a rendering backend without a display. Frames
// are recorded as lists of drawing operations, and input is given as
// explicit clicks and edits.
package headless

import (
	"strings"

	"src.vapo.dev/pkg/ui"
)

// Op kinds.
const (
	OpLabel  = "label"
	OpButton = "button"
	OpInput  = "input"
)

// Op is one recorded drawing operation.
type Op struct {
	Kind  string `json:"kind"`
	Text  string `json:"text"`
	Style string `json:"style,omitempty"`
	// Index of the widget among widgets of the same kind in the frame.
	Index int `json:"index"`
	// For buttons, whether the button reported activation.
	Clicked bool `json:"clicked,omitempty"`
}

// Input is the user input delivered to one frame.
type Input struct {
	// Labels of buttons to activate. Each entry activates the first button
	// with that label that has not been activated yet.
	Clicks []string `json:"clicks,omitempty"`
	// New contents of text fields, keyed by the index of the field.
	Edits map[int]string `json:"edits,omitempty"`
}

// Surface is a ui.Surface that records operations.
type Surface struct {
	in      Input
	used    []bool
	buttons int
	inputs  int
	Ops     []Op
}

var _ ui.Surface = (*Surface)(nil)

// NewSurface creates a Surface that delivers the given input.
func NewSurface(in Input) *Surface {
	return &Surface{in: in, used: make([]bool, len(in.Clicks))}
}

func (s *Surface) Label(text string) {
	s.Ops = append(s.Ops, Op{Kind: OpLabel, Text: text})
}

func (s *Surface) StyledLabel(style ui.Style, text string) {
	s.Ops = append(s.Ops, Op{Kind: OpLabel, Text: text, Style: style.SGR()})
}

func (s *Surface) Button(text string) bool {
	clicked := false
	for i, label := range s.in.Clicks {
		if label == text && !s.used[i] {
			s.used[i] = true
			clicked = true
			break
		}
	}
	s.Ops = append(s.Ops, Op{Kind: OpButton, Text: text, Index: s.buttons, Clicked: clicked})
	s.buttons++
	return clicked
}

func (s *Surface) TextEdit(buf *string) {
	if text, ok := s.in.Edits[s.inputs]; ok {
		*buf = text
	}
	s.Ops = append(s.Ops, Op{Kind: OpInput, Text: *buf, Index: s.inputs})
	s.inputs++
}

// Texts returns the text of all recorded operations.
func (s *Surface) Texts() []string {
	texts := make([]string, len(s.Ops))
	for i, op := range s.Ops {
		texts[i] = op.Text
	}
	return texts
}

// String renders the recorded operations as lines of text.
func (s *Surface) String() string {
	var sb strings.Builder
	for _, op := range s.Ops {
		switch op.Kind {
		case OpButton:
			sb.WriteString("[ " + op.Text + " ]")
		case OpInput:
			sb.WriteString("> " + op.Text)
		default:
			sb.WriteString(op.Text)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
