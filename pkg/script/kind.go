package script

import (
	lua "github.com/yuin/gopher-lua"
	"src.vapo.dev/pkg/bridge"
	"src.vapo.dev/pkg/cell"
)

// Kind describes a type of cell that scripts can create.
type Kind[T any] struct {
	// Name of the factory function in the namespace.
	Factory string
	// Name used in error messages.
	TypeName  string
	Converter bridge.Converter[T]
	// Adds methods beyond get and set. May be nil.
	Extender Extender[T]
}

func (k *Kind[T]) metatableName() string { return "vapo." + k.Factory }

// Extender adds methods to the cells of one kind.
type Extender[T any] interface {
	Extend(m *Methods[T])
}

// ExtenderFunc adapts a function to the Extender interface.
type ExtenderFunc[T any] func(m *Methods[T])

// Extend calls f(m).
func (f ExtenderFunc[T]) Extend(m *Methods[T]) { f(m) }

// CellFunc implements a method of a cell. The cell is the receiver; other
// arguments start at index 2.
type CellFunc[T any] func(L *lua.LState, c *cell.Cell[T]) int

// Methods collects the methods and metamethods of a Kind while it is being
// registered.
type Methods[T any] struct {
	r       *Runtime
	kind    *Kind[T]
	methods map[string]lua.LGFunction
	meta    map[string]lua.LGFunction
}

// Method adds a method.
func (m *Methods[T]) Method(name string, f CellFunc[T]) {
	m.methods[name] = func(L *lua.LState) int { return f(L, m.Check(L, 1)) }
}

// Meta adds a metamethod, such as "__tostring". Metamethods receive their
// operands as they are, since the cell is not always the first one.
func (m *Methods[T]) Meta(name string, f lua.LGFunction) {
	m.meta[name] = f
}

// Cell returns the cell held by lv if it is a cell of this kind.
func (m *Methods[T]) Cell(lv lua.LValue) (*cell.Cell[T], bool) {
	return cellOf[T](lv)
}

// Check returns the cell at argument n, raising an argument error if it is
// not a cell of this kind.
func (m *Methods[T]) Check(L *lua.LState, n int) *cell.Cell[T] {
	c, ok := cellOf[T](L.Get(n))
	if !ok {
		L.ArgError(n, m.kind.TypeName+" expected")
	}
	return c
}

// Get reads the value of c. A failed borrow is an invariant violation.
func (m *Methods[T]) Get(L *lua.LState, c *cell.Cell[T]) T {
	v, err := c.Load()
	if err != nil {
		m.r.violate(L, err)
	}
	return v
}

// Set overwrites the value of c. A failed borrow is an invariant violation.
func (m *Methods[T]) Set(L *lua.LState, c *cell.Cell[T], v T) {
	if err := c.Store(v); err != nil {
		m.r.violate(L, err)
	}
}

// Pull converts argument n to the value type of the kind, raising an
// argument error if it cannot be converted.
func (m *Methods[T]) Pull(L *lua.LState, n int) T {
	v, err := m.kind.Converter.Pull(L.Get(n))
	if err != nil {
		L.ArgError(n, err.Error())
	}
	return v
}

func cellOf[T any](lv lua.LValue) (*cell.Cell[T], bool) {
	ud, ok := lv.(*lua.LUserData)
	if !ok {
		return nil, false
	}
	c, ok := ud.Value.(*cell.Cell[T])
	return c, ok
}

// Registers the metatable of k and its factory in ns.
func registerKind[T any](r *Runtime, ns *lua.LTable, k *Kind[T]) {
	L := r.L
	m := &Methods[T]{r, k, map[string]lua.LGFunction{}, map[string]lua.LGFunction{}}
	m.Method("get", func(L *lua.LState, c *cell.Cell[T]) int {
		L.Push(k.Converter.Push(m.Get(L, c)))
		return 1
	})
	m.Method("set", func(L *lua.LState, c *cell.Cell[T]) int {
		// Convert before borrowing, so that a failed conversion leaves the
		// value untouched.
		v := m.Pull(L, 2)
		m.Set(L, c, v)
		return 0
	})
	if k.Extender != nil {
		k.Extender.Extend(m)
	}

	mt := L.NewTypeMetatable(k.metatableName())
	L.SetFuncs(mt, m.meta)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), m.methods))
	L.SetField(mt, "__metatable", lua.LString(k.TypeName))

	L.SetField(ns, k.Factory, L.NewFunction(func(L *lua.LState) int {
		var v T
		if L.GetTop() >= 1 && L.Get(1) != lua.LNil {
			v = m.Pull(L, 1)
		}
		L.Push(NewCellValue(r, k, cell.New(v)))
		return 1
	}))
}

// NewCellValue wraps c in a Lua value of kind k. The runtime takes ownership
// of the handle c and releases it once the value has been garbage collected,
// or when the runtime is closed; callers that want to keep using the cell
// should pass a clone.
func NewCellValue[T any](r *Runtime, k *Kind[T], c *cell.Cell[T]) lua.LValue {
	ud := r.L.NewUserData()
	ud.Value = c
	r.track(ud, c)
	r.L.SetMetatable(ud, r.L.GetTypeMetatable(k.metatableName()))
	return ud
}

// CellOf returns the cell held by a Lua value created by a factory of kind k
// or by NewCellValue.
func CellOf[T any](k *Kind[T], lv lua.LValue) (*cell.Cell[T], bool) {
	return cellOf[T](lv)
}
