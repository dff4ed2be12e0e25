package lua

import (
	"time"

	glua "github.com/yuin/gopher-lua"
)

// registerTimerFuncs registers tail.after and tail.cancel.
func (e *Engine) registerTimerFuncs() {
	// tail.after(seconds, callback): One-shot timer, returns ID
	e.L.SetField(e.tailTable, "after", e.L.NewFunction(func(L *glua.LState) int {
		seconds := L.CheckNumber(1)
		fn := L.CheckFunction(2)

		id := e.timer.TimerAfter(toDuration(seconds))
		e.callbacks[id] = fn

		L.Push(glua.LNumber(id))
		return 1
	}))

	// tail.cancel(id): Stop a timer
	e.L.SetField(e.tailTable, "cancel", e.L.NewFunction(func(L *glua.LState) int {
		id := int(L.CheckNumber(1))
		if _, ok := e.callbacks[id]; ok {
			delete(e.callbacks, id)
			e.timer.TimerCancel(id)
		}
		return 0
	}))
}

// toDuration converts Lua number seconds to Go duration
func toDuration(seconds glua.LNumber) time.Duration {
	return time.Duration(float64(seconds) * float64(time.Second))
}
