package lua

import glua "github.com/yuin/gopher-lua"

// registerCoreFuncs registers tail.log, tail.set, tail.on, tail.quit and tail.load.
func (e *Engine) registerCoreFuncs() {
	// tail.log(text): Outputs text to the work area
	e.L.SetField(e.tailTable, "log", e.L.NewFunction(func(L *glua.LState) int {
		e.ui.Print(L.CheckString(1))
		return 0
	}))

	// tail.set(option, value): Change an option; returns an error string on failure
	e.L.SetField(e.tailTable, "set", e.L.NewFunction(func(L *glua.LState) int {
		name := L.CheckString(1)
		value := toGo(L.CheckAny(2))
		if err := e.cfg.SetOption(name, value); err != nil {
			L.Push(glua.LString(err.Error()))
			return 1
		}
		return 0
	}))

	// tail.on(event, fn): Register a hook ("pane", "dismiss", "exit")
	e.L.SetField(e.tailTable, "on", e.L.NewFunction(func(L *glua.LState) int {
		event := L.CheckString(1)
		fn := L.CheckFunction(2)
		e.hooks[event] = append(e.hooks[event], fn)
		return 0
	}))

	// tail.quit(): Exit
	e.L.SetField(e.tailTable, "quit", e.L.NewFunction(func(L *glua.LState) int {
		e.sys.Quit()
		return 0
	}))

	// tail.load(path): Load a Lua script (runs immediately, no round-trip)
	e.L.SetField(e.tailTable, "load", e.L.NewFunction(func(L *glua.LState) int {
		path := L.CheckString(1)
		if err := e.DoFile(path); err != nil {
			L.Push(glua.LString(err.Error()))
			return 1
		}
		e.CallHook("loaded", path)
		return 0
	}))
}

// toGo converts a Lua option value. Tables become string lists.
func toGo(v glua.LValue) any {
	switch val := v.(type) {
	case glua.LBool:
		return bool(val)
	case glua.LNumber:
		return float64(val)
	case glua.LString:
		return string(val)
	case *glua.LTable:
		var out []string
		val.ForEach(func(_, item glua.LValue) {
			out = append(out, item.String())
		})
		return out
	}
	return v.String()
}
