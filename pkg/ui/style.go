package ui

import "strings"

// Style is how text is displayed.
type Style struct {
	Foreground Color
	Background Color
	Bold       bool
	Dim        bool
	Underlined bool
	Inverse    bool
}

// SGR returns the parameters of the SGR sequence selecting the style, such as
// "1;31". The zero Style has no parameters.
func (s Style) SGR() string {
	var params []string
	for _, attr := range [...]struct {
		on   bool
		code string
	}{{s.Bold, "1"}, {s.Dim, "2"}, {s.Underlined, "4"}, {s.Inverse, "7"}} {
		if attr.on {
			params = append(params, attr.code)
		}
	}
	if s.Foreground != nil {
		params = append(params, s.Foreground.fgSGR())
	}
	if s.Background != nil {
		params = append(params, s.Background.bgSGR())
	}
	return strings.Join(params, ";")
}
