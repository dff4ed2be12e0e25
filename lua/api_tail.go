package lua

import glua "github.com/yuin/gopher-lua"

// registerTailFuncs registers the stream entry points.
func (e *Engine) registerTailFuncs() {
	// tail.file(path): Follow a file; returns an error string on failure
	e.L.SetField(e.tailTable, "file", e.L.NewFunction(func(L *glua.LState) int {
		if err := e.tails.TailFile(L.CheckString(1)); err != nil {
			L.Push(glua.LString(err.Error()))
			return 1
		}
		return 0
	}))

	// tail.command(name, args...): Follow a command's output
	e.L.SetField(e.tailTable, "command", e.L.NewFunction(func(L *glua.LState) int {
		name := L.CheckString(1)
		var args []string
		for i := 2; i <= L.GetTop(); i++ {
			args = append(args, L.CheckString(i))
		}
		if err := e.tails.TailCommand(name, args); err != nil {
			L.Push(glua.LString(err.Error()))
			return 1
		}
		return 0
	}))

	// tail.stop(key): Stop following a stream; returns whether it was active
	e.L.SetField(e.tailTable, "stop", e.L.NewFunction(func(L *glua.LState) int {
		L.Push(glua.LBool(e.tails.Stop(L.CheckString(1))))
		return 1
	}))

	// tail.panes(): List of {key, height, placement, updates}
	e.L.SetField(e.tailTable, "panes", e.L.NewFunction(func(L *glua.LState) int {
		list := L.NewTable()
		for _, p := range e.state.Panes() {
			row := L.NewTable()
			L.SetField(row, "key", glua.LString(p.Key))
			L.SetField(row, "height", glua.LNumber(p.Height))
			L.SetField(row, "placement", glua.LString(p.Placement))
			L.SetField(row, "updates", glua.LNumber(p.Updates))
			list.Append(row)
		}
		L.Push(list)
		return 1
	}))
}
