package ui

import (
	"testing"

	"src.vapo.dev/pkg/tt"
)

func TestKeyString(t *testing.T) {
	tt.Test(t, tt.Fn("Key.String", Key.String), tt.Table{
		tt.Args(K('a')).Rets("a"),
		tt.Args(K('C', Ctrl)).Rets("Ctrl-C"),
		tt.Args(K(Tab, Shift)).Rets("Shift-Tab"),
		tt.Args(K(Up)).Rets("Up"),
		tt.Args(K('x', Ctrl, Alt)).Rets("Ctrl-Alt-x"),
		tt.Args(K(' ')).Rets("Space"),
		tt.Args(K(-100)).Rets("(bad function key -100)"),
	})
}
