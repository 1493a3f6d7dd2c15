package script

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// Name of the namespace, as a global and as a module.
const namespaceName = "vapo"

func (r *Runtime) register() *lua.LTable {
	L := r.L
	ns := L.NewTable()
	registerKind(r, ns, StringKind)
	registerKind(r, ns, NumberKind)
	registerKind(r, ns, IntKind)
	registerKind(r, ns, BoolKind)
	L.SetFuncs(ns, map[string]lua.LGFunction{
		"quit": r.quit,
		"log":  luaLog,
	})
	r.registerFrame()

	L.SetGlobal(namespaceName, ns)
	L.PreloadModule(namespaceName, func(L *lua.LState) int {
		L.Push(ns)
		return 1
	})
	return ns
}

func (r *Runtime) quit(L *lua.LState) int {
	logger.Info("script requested quit")
	if r.opts.Quit != nil {
		r.opts.Quit()
	}
	return 0
}

func luaLog(L *lua.LState) int {
	parts := make([]string, L.GetTop())
	for i := range parts {
		parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
	}
	logger.Info(strings.Join(parts, "\t"))
	return 0
}
