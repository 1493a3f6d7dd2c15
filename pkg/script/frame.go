package script

import (
	lua "github.com/yuin/gopher-lua"
	"src.vapo.dev/pkg/bridge"
	"src.vapo.dev/pkg/frame"
)

const frameTypeName = "vapo.frame"

func (r *Runtime) registerFrame() {
	L := r.L
	mt := L.NewTypeMetatable(frameTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"label":  r.frameLabel,
		"button": r.frameButton,
		"input":  r.frameInput,
	}))
	L.SetField(mt, "__metatable", lua.LString("frame context"))
}

func (r *Runtime) frameValue(ctx *frame.Context) lua.LValue {
	ud := r.L.NewUserData()
	ud.Value = ctx
	r.L.SetMetatable(ud, r.L.GetTypeMetatable(frameTypeName))
	return ud
}

// Returns the context that is the receiver of a method call. Using a context
// after its frame is an invariant violation.
func (r *Runtime) checkFrame(L *lua.LState, op string) *frame.Context {
	ud, ok := L.Get(1).(*lua.LUserData)
	if !ok {
		L.ArgError(1, "frame context expected")
	}
	ctx, ok := ud.Value.(*frame.Context)
	if !ok {
		L.ArgError(1, "frame context expected")
	}
	if !ctx.Valid() {
		r.violate(L, &frame.ScopeViolation{Op: op, Frame: ctx.Frame()})
	}
	return ctx
}

func (r *Runtime) frameLabel(L *lua.LState) int {
	ctx := r.checkFrame(L, "label")
	ctx.Label(bridge.TextOr(L.Get(2)))
	return 0
}

func (r *Runtime) frameButton(L *lua.LState) int {
	ctx := r.checkFrame(L, "button")
	L.Push(lua.LBool(ctx.Button(bridge.TextOr(L.Get(2)))))
	return 1
}

func (r *Runtime) frameInput(L *lua.LState) int {
	ctx := r.checkFrame(L, "input")
	c, ok := CellOf(StringKind, L.Get(2))
	if !ok {
		L.ArgError(2, StringKind.TypeName+" expected")
	}
	if err := ctx.Input(c); err != nil {
		r.violate(L, err)
	}
	return 0
}
