// Package must contains simple functions that panic on errors.
//
// It should only be used in tests and rare places where errors are provably
// impossible.
package must

import (
	"io"
	"os"
	"path/filepath"
)

// OK panics if err is not nil.
func OK(err error) {
	if err != nil {
		panic(err)
	}
}

// OK1 panics if err is not nil, and returns v otherwise.
func OK1[T any](v T, err error) T {
	OK(err)
	return v
}

// Pipe wraps os.Pipe.
func Pipe() (r, w *os.File) {
	r, w, err := os.Pipe()
	OK(err)
	return r, w
}

// ReadAllAndClose reads all of r and closes it.
func ReadAllAndClose(r io.ReadCloser) string {
	v := OK1(io.ReadAll(r))
	OK(r.Close())
	return string(v)
}

// WriteFile writes a file, creating its parent directories first.
func WriteFile(name, data string) {
	OK(os.MkdirAll(filepath.Dir(name), 0700))
	OK(os.WriteFile(name, []byte(data), 0600))
}
