// Package script hosts the Lua interpreter that drives the UI.
//
// A Runtime owns one Lua state. It installs the host namespace, loads the
// user's script once, and then calls the script's draw entry point once per
// frame with a handle to the frame's drawing context.
//
// Errors raised by the script are returned as ordinary errors. Broken host
// invariants (an overlapping borrow of a cell, the use of a released cell
// handle, or the use of a drawing context after its frame) are not: the
// runtime records them while the Lua stack unwinds, and panics with an
// *InvariantViolation once the protected call has returned. This holds even
// if the script caught the Lua error with pcall.
package script

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"src.vapo.dev/pkg/frame"
	"src.vapo.dev/pkg/logutil"
)

var logger = logutil.GetLogger("[script] ")

// Stages of loading a script.
const (
	StageRead     = "read"
	StageParse    = "parse"
	StageExec     = "exec"
	StageContract = "contract"
)

// LoadError is returned when a script cannot be loaded.
type LoadError struct {
	Path  string
	Stage string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("cannot load %s (%s): %v", e.Path, e.Stage, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ErrNoDraw is wrapped in a LoadError when the loaded script did not set
// vapo.draw to a function.
var ErrNoDraw = errors.New("vapo.draw is not a function")

// InvariantViolation is the panic value used when a script breaks a host
// invariant.
type InvariantViolation struct {
	Cause error
}

func (e *InvariantViolation) Error() string {
	return "invariant violation: " + e.Cause.Error()
}

func (e *InvariantViolation) Unwrap() error { return e.Cause }

// Options configures a Runtime.
type Options struct {
	// Called when the script calls vapo.quit(). May be nil.
	Quit func()
}

// Runtime is a Lua state with the host namespace installed.
type Runtime struct {
	L    *lua.LState
	opts Options
	ns   *lua.LTable

	// Cell handles held by script values that are still reachable. The
	// handles of collected values are released on the next call into the
	// script, and the others when the runtime is closed.
	live    map[handle]struct{}
	dropped *dropQueue
	// First invariant violation since the last protected call.
	violation error
	closed    bool
}

// New creates a Runtime with the standard libraries and the host namespace.
func New(opts Options) *Runtime {
	r := &Runtime{L: lua.NewState(), opts: opts,
		live: make(map[handle]struct{}), dropped: &dropQueue{}}
	r.ns = r.register()
	return r
}

// Namespace returns the host namespace table, also available to scripts as
// the global vapo and as require "vapo".
func (r *Runtime) Namespace() *lua.LTable { return r.ns }

// Load reads and runs the script at path.
func (r *Runtime) Load(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return &LoadError{path, StageRead, err}
	}
	return r.LoadSource(path, src)
}

// LoadSource runs the given source as the script. The name is used in error
// messages.
func (r *Runtime) LoadSource(name string, src []byte) error {
	fn, err := r.L.Load(bytes.NewReader(src), name)
	if err != nil {
		return &LoadError{name, StageParse, errors.New(luaMessage(err))}
	}
	logger.Debugf("parsed %s", name)
	if err := r.call(fn); err != nil {
		return &LoadError{name, StageExec, err}
	}
	if r.L.GetField(r.ns, "draw").Type() != lua.LTFunction {
		return &LoadError{name, StageContract, ErrNoDraw}
	}
	logger.Infof("loaded %s", name)
	return nil
}

// Draw calls vapo.draw with a handle to ctx. It returns the error raised by
// the script, if any. The caller remains responsible for invalidating ctx.
func (r *Runtime) Draw(ctx *frame.Context) error {
	return r.call(r.L.GetField(r.ns, "draw"), r.frameValue(ctx))
}

// Close releases every cell handle held by script values and closes the Lua
// state. Closing a closed Runtime does nothing.
func (r *Runtime) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.releaseDropped()
	for h := range r.live {
		h.Release()
	}
	logger.Debugf("released %d cell handles", len(r.live))
	r.live = nil
	r.L.Close()
}

// LiveHandles returns the number of cell handles held by script values that
// have not been released.
func (r *Runtime) LiveHandles() int {
	r.releaseDropped()
	return len(r.live)
}

func (r *Runtime) call(fn lua.LValue, args ...lua.LValue) error {
	r.releaseDropped()
	err := r.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...)
	if v := r.violation; v != nil {
		r.violation = nil
		panic(&InvariantViolation{v})
	}
	if err != nil {
		return errors.New(luaMessage(err))
	}
	return nil
}

// Records an invariant violation and raises it as a Lua error to unwind the
// script.
func (r *Runtime) violate(L *lua.LState, err error) {
	if r.violation == nil {
		r.violation = err
	}
	L.RaiseError("%s", err.Error())
}

type handle interface{ Release() }

// Handles whose script values have been collected. Finalizers run on their
// own goroutine, so they only queue the handle; the queue is drained on the
// goroutine that owns the runtime.
type dropQueue struct {
	mu      sync.Mutex
	handles []handle
}

func (q *dropQueue) push(h handle) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handles = append(q.handles, h)
}

func (q *dropQueue) take() []handle {
	q.mu.Lock()
	defer q.mu.Unlock()
	hs := q.handles
	q.handles = nil
	return hs
}

// Ties the lifetime of h to ud. The finalizer must not refer to r: ud is
// reachable from r through the Lua state, and a finalizer reaching its own
// object never runs.
func (r *Runtime) track(ud *lua.LUserData, h handle) {
	r.live[h] = struct{}{}
	q := r.dropped
	runtime.SetFinalizer(ud, func(*lua.LUserData) { q.push(h) })
}

func (r *Runtime) releaseDropped() {
	hs := r.dropped.take()
	for _, h := range hs {
		if _, ok := r.live[h]; ok {
			delete(r.live, h)
			h.Release()
		}
	}
	if len(hs) > 0 {
		logger.Debugf("released %d collected cell handles", len(hs))
	}
}

func luaMessage(err error) string {
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) && apiErr.Object != nil {
		return apiErr.Object.String()
	}
	return err.Error()
}
