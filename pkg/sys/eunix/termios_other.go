//go:build !(linux || solaris || darwin || dragonfly || freebsd || netbsd || openbsd)

// Package eunix provides terminal utilities for Unix systems.
package eunix

import "errors"

// ErrNotSupported is returned by MakeRaw on systems without termios support.
var ErrNotSupported = errors.New("raw terminal mode is not supported on this system")

// MakeRaw always fails with ErrNotSupported.
func MakeRaw(fd int) (restore func() error, err error) {
	return nil, ErrNotSupported
}
