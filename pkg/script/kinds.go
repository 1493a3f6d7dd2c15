package script

import (
	"strconv"

	lua "github.com/yuin/gopher-lua"
	"src.vapo.dev/pkg/bridge"
	"src.vapo.dev/pkg/cell"
)

// Builtin cell kinds.
var (
	StringKind = &Kind[string]{"dstr", "string cell", bridge.String, ExtenderFunc[string](extendString)}
	NumberKind = &Kind[float64]{"dnum", "number cell", bridge.Number, ExtenderFunc[float64](extendNumber)}
	IntKind    = &Kind[int]{"dint", "integer cell", bridge.Int, ExtenderFunc[int](extendInt)}
	BoolKind   = &Kind[bool]{"dbool", "boolean cell", bridge.Bool, ExtenderFunc[bool](extendBool)}
)

func extendString(m *Methods[string]) {
	m.Method("len", func(L *lua.LState, c *cell.Cell[string]) int {
		L.Push(lua.LNumber(len(m.Get(L, c))))
		return 1
	})
	m.Meta("__len", func(L *lua.LState) int {
		L.Push(lua.LNumber(len(m.Get(L, m.Check(L, 1)))))
		return 1
	})
	m.Meta("__tostring", func(L *lua.LState) int {
		L.Push(lua.LString(m.Get(L, m.Check(L, 1))))
		return 1
	})
	m.Meta("__concat", func(L *lua.LState) int {
		operand := func(n int) string {
			lv := L.Get(n)
			if c, ok := m.Cell(lv); ok {
				return m.Get(L, c)
			}
			s, err := bridge.String.Pull(lv)
			if err != nil {
				L.RaiseError("attempt to concatenate a %s value", lv.Type())
			}
			return s
		}
		L.Push(lua.LString(operand(1) + operand(2)))
		return 1
	})
}

func extendNumber(m *Methods[float64]) {
	m.Method("add", func(L *lua.LState, c *cell.Cell[float64]) int {
		v := m.Get(L, c) + m.Pull(L, 2)
		m.Set(L, c, v)
		L.Push(lua.LNumber(v))
		return 1
	})
	m.Meta("__tostring", func(L *lua.LState) int {
		L.Push(lua.LString(bridge.TextOr(lua.LNumber(m.Get(L, m.Check(L, 1))))))
		return 1
	})
}

func extendInt(m *Methods[int]) {
	m.Method("add", func(L *lua.LState, c *cell.Cell[int]) int {
		v := m.Get(L, c) + m.Pull(L, 2)
		m.Set(L, c, v)
		L.Push(lua.LNumber(v))
		return 1
	})
	m.Meta("__tostring", func(L *lua.LState) int {
		L.Push(lua.LString(strconv.Itoa(m.Get(L, m.Check(L, 1)))))
		return 1
	})
}

func extendBool(m *Methods[bool]) {
	m.Method("toggle", func(L *lua.LState, c *cell.Cell[bool]) int {
		v := !m.Get(L, c)
		m.Set(L, c, v)
		L.Push(lua.LBool(v))
		return 1
	})
	m.Meta("__tostring", func(L *lua.LState) int {
		L.Push(lua.LString(strconv.FormatBool(m.Get(L, m.Check(L, 1)))))
		return 1
	})
}
