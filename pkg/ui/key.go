package ui

import (
	"fmt"
	"strings"
)

// Key represents a single keyboard input, typically assembled from an escape
// sequence.
type Key struct {
	Rune rune
	Mod  Mod
}

// K constructs a new Key.
func K(r rune, mods ...Mod) Key {
	var mod Mod
	for _, m := range mods {
		mod |= m
	}
	return Key{r, mod}
}

// Mod represents a modifier key.
type Mod byte

// Values for Mod.
const (
	// Shift is the shift modifier. It is only applied to special keys (e.g.
	// Shift-Tab), since the shifted form of printable keys is a different
	// rune.
	Shift Mod = 1 << iota
	Alt
	Ctrl
)

// Special negative runes to represent function keys.
const (
	Up rune = -iota - 1
	Down
	Right
	Left
	Home
	End
	Delete
)

// Special keys that are also ASCII control characters.
const (
	Tab       = '\t'
	Enter     = '\r'
	Backspace = 0x7f
)

var functionKeyNames = map[rune]string{
	Up: "Up", Down: "Down", Right: "Right", Left: "Left",
	Home: "Home", End: "End", Delete: "Delete",
	Tab: "Tab", Enter: "Enter", Backspace: "Backspace", ' ': "Space",
}

func (k Key) String() string {
	var sb strings.Builder
	if k.Mod&Ctrl != 0 {
		sb.WriteString("Ctrl-")
	}
	if k.Mod&Alt != 0 {
		sb.WriteString("Alt-")
	}
	if k.Mod&Shift != 0 {
		sb.WriteString("Shift-")
	}
	if name, ok := functionKeyNames[k.Rune]; ok {
		sb.WriteString(name)
	} else if k.Rune >= 0x20 {
		sb.WriteRune(k.Rune)
	} else {
		fmt.Fprintf(&sb, "(bad function key %d)", k.Rune)
	}
	return sb.String()
}
