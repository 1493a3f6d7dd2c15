//go:build linux || solaris || darwin || dragonfly || freebsd || netbsd || openbsd

// Package eunix provides terminal utilities for Unix systems.
package eunix

import "golang.org/x/sys/unix"

// MakeRaw puts the terminal referenced by fd into raw mode: input is
// delivered byte by byte without echo, and control characters such as Ctrl-C
// are delivered as input instead of generating signals. Output processing is
// left enabled. It returns a function that restores the previous mode.
func MakeRaw(fd int) (restore func() error, err error) {
	old, err := unix.IoctlGetTermios(fd, getAttrIOCTL)
	if err != nil {
		return nil, err
	}
	raw := *old
	raw.Iflag &^= unix.ICRNL | unix.INLCR | unix.IGNCR | unix.IXON | unix.ISTRIP
	raw.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, setAttrNowIOCTL, &raw); err != nil {
		return nil, err
	}
	return func() error { return unix.IoctlSetTermios(fd, setAttrNowIOCTL, old) }, nil
}
