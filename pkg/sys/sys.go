// Package sys provide system utilities with the same API across OSes.
//
// The subpackage eunix provides Unix-specific utilities.
package sys

import (
	"os"

	"github.com/mattn/go-isatty"
)

// NotifyResize returns a channel on which window size changes are delivered.
// On systems without such notifications it returns a channel that never
// receives. Call StopResize with the channel when done.
func NotifyResize() chan os.Signal { return notifyResize() }

// StopResize stops deliveries to a channel returned by NotifyResize.
func StopResize(ch chan os.Signal) { stopResize(ch) }

// WinSize queries the size of the terminal referenced by the given file. It
// returns -1, -1 if the size cannot be determined.
func WinSize(file *os.File) (row, col int) { return winSize(file) }

// IsATTY determines whether the given file is a terminal.
func IsATTY(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
