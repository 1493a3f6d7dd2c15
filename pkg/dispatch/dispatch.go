// Package dispatch drives the per-frame interaction between a rendering
// backend and the script.
//
// A Dispatcher starts in the normal state, where each frame is drawn by the
// script. The first time the script fails, the dispatcher records the error
// message and switches to the errored state for the rest of its life. In the
// errored state every frame shows an error screen with a Quit button, and
// the script is never called again.
package dispatch

import (
	"time"

	"src.vapo.dev/pkg/frame"
	"src.vapo.dev/pkg/logutil"
	"src.vapo.dev/pkg/ui"
)

var logger = logutil.GetLogger("[dispatch] ")

// Text of the error screen.
const (
	ErrorBanner = "An Error has Occurred!"
	QuitLabel   = "Quit"
)

// DefaultErrorColor is the color of the error banner.
var DefaultErrorColor = ui.TrueColor(0xaa, 0x66, 0x66)

// Drawer draws one frame using the given context.
type Drawer interface {
	Draw(ctx *frame.Context) error
}

// DrawerFunc adapts a function to the Drawer interface.
type DrawerFunc func(ctx *frame.Context) error

// Draw calls f(ctx).
func (f DrawerFunc) Draw(ctx *frame.Context) error { return f(ctx) }

// State is the state of a Dispatcher.
type State struct {
	// Whether the script has failed.
	Errored bool
	// Error message of the failure, if Errored.
	Message string
}

// Options configures a Dispatcher.
type Options struct {
	// Receives edits applied to input fields. May be nil.
	Notifier frame.Notifier
	// Color of the error banner. Defaults to DefaultErrorColor.
	ErrorColor ui.Color
	// Defaults to unregistered metrics.
	Metrics *Metrics
}

// Dispatcher implements the frame loop protocol expected by backends.
type Dispatcher struct {
	drawer Drawer
	opts   Options
	notify frame.Notifier

	frame       uint64
	active      bool
	state       State
	shouldClose bool
}

// New creates a Dispatcher that draws frames with the given Drawer.
func New(drawer Drawer, opts Options) *Dispatcher {
	if opts.ErrorColor == nil {
		opts.ErrorColor = DefaultErrorColor
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	d := &Dispatcher{drawer: drawer, opts: opts}
	d.notify = frame.Notifiers(frame.NotifierFunc(d.changed), opts.Notifier)
	return d
}

// State returns the current state.
func (d *Dispatcher) State() State { return d.state }

// Frames returns the number of frames started so far.
func (d *Dispatcher) Frames() uint64 { return d.frame }

// OnFrame draws one frame on s. It must not be called while another frame is
// being drawn.
//
// Invariant violations detected while drawing are propagated as panics after
// the frame has been ended.
func (d *Dispatcher) OnFrame(s ui.Surface) {
	if d.active {
		panic("dispatch: OnFrame called while a frame is active")
	}
	d.active = true
	defer func() { d.active = false }()
	d.frame++

	if d.state.Errored {
		d.drawFallback(s)
		return
	}

	start := time.Now()
	err := d.draw(s)
	d.opts.Metrics.FrameDuration.Observe(time.Since(start).Seconds())
	d.opts.Metrics.Frames.Inc()
	if err != nil {
		d.opts.Metrics.Failures.Inc()
		logger.Errorw("script failed, showing error screen", "frame", d.frame, "error", err)
		d.state = State{Errored: true, Message: err.Error()}
	}
}

func (d *Dispatcher) draw(s ui.Surface) error {
	ctx := frame.New(s, d.frame, d.notify)
	defer ctx.Invalidate()
	return d.drawer.Draw(ctx)
}

func (d *Dispatcher) drawFallback(s ui.Surface) {
	d.opts.Metrics.FallbackFrames.Inc()
	s.StyledLabel(ui.Style{Foreground: d.opts.ErrorColor}, ErrorBanner)
	s.Label(d.state.Message)
	if s.Button(QuitLabel) {
		d.RequestClose()
	}
}

func (d *Dispatcher) changed(c frame.Change) {
	d.opts.Metrics.Changes.Inc()
	logger.Debugw("input changed", "cell", c.Cell, "frame", c.Frame, "before", c.Before, "after", c.After)
}

// RequestClose asks the backend to stop after the current frame.
func (d *Dispatcher) RequestClose() {
	if !d.shouldClose {
		logger.Info("close requested")
	}
	d.shouldClose = true
}

// ShouldClose returns whether RequestClose has been called.
func (d *Dispatcher) ShouldClose() bool { return d.shouldClose }
