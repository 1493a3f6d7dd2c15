// Vapo runs a Lua script that draws an immediate-mode user interface, on a
// terminal, headlessly, or for a remote renderer.
package main

import (
	"os"

	"src.vapo.dev/pkg/app"
	"src.vapo.dev/pkg/buildinfo"
	"src.vapo.dev/pkg/lsp"
	"src.vapo.dev/pkg/prog"
	"src.vapo.dev/pkg/store"
)

func main() {
	os.Exit(prog.Run(
		[3]*os.File{os.Stdin, os.Stdout, os.Stderr}, os.Args,
		prog.Composite(
			&buildinfo.Program{}, &lsp.Program{}, &store.Program{}, &app.Program{})))
}
