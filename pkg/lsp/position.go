package lsp

import (
	"iter"
	"unicode/utf16"

	lsp "github.com/sourcegraph/go-lsp"
)

// Yields the byte index and position of every rune in s, then of the end of
// s. Characters are counted in UTF-16 code units, and "\r\n" is a single line
// break.
func positions(s string) iter.Seq2[int, lsp.Position] {
	return func(yield func(int, lsp.Position) bool) {
		var p lsp.Position
		afterCR := false
		for i, r := range s {
			if !yield(i, p) {
				return
			}
			switch {
			case r == '\n' && afterCR:
			case r == '\r' || r == '\n':
				p.Line++
				p.Character = 0
			default:
				p.Character += utf16.RuneLen(r)
			}
			afterCR = r == '\r'
		}
		yield(len(s), p)
	}
}

func lspPositionToIdx(s string, pos lsp.Position) int {
	for i, p := range positions(s) {
		if p.Line > pos.Line || p.Line == pos.Line && p.Character >= pos.Character {
			return i
		}
	}
	return len(s)
}

func lspPositionFromIdx(s string, idx int) lsp.Position {
	var last lsp.Position
	for i, p := range positions(s) {
		if i >= idx {
			return p
		}
		last = p
	}
	return last
}
