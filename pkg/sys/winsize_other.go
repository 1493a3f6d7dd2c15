//go:build !unix

package sys

import "os"

func notifyResize() chan os.Signal { return make(chan os.Signal) }

func stopResize(chan os.Signal) {}

func winSize(*os.File) (row, col int) { return -1, -1 }
