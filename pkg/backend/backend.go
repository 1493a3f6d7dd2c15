// Package backend defines the interface between rendering backends and the
// frame dispatcher. Implementations live in subpackages.
package backend

import (
	"context"

	"src.vapo.dev/pkg/ui"
)

// Handler receives frames from a backend. It is implemented by
// *dispatch.Dispatcher.
type Handler interface {
	// OnFrame draws one frame on the surface.
	OnFrame(s ui.Surface)
	// ShouldClose is polled once after every frame; the backend stops when
	// it returns true.
	ShouldClose() bool
	// RequestClose is called when the user closes the backend's window or
	// equivalent.
	RequestClose()
}

// Backend runs a frame loop.
type Backend interface {
	// Run draws frames until the handler asks to close, the user closes
	// the backend, or ctx is done. Frames are delivered on the calling
	// goroutine.
	Run(ctx context.Context, h Handler) error
}
