package lua

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	glua "github.com/yuin/gopher-lua"
)

const regexCacheSize = 100

// Engine wraps gopher-lua and manages the VM lifecycle.
// It is a pure mechanism: it knows how to run Lua code and expose the tail
// API. It does NOT know about config dirs or boot order.
type Engine struct {
	L          *glua.LState
	regexCache *lru.Cache[string, *regexp.Regexp]

	// Cached table reference
	tailTable *glua.LTable

	// Services
	tails TailService
	ui    UIService
	cfg   ConfigService
	timer TimerService
	sys   SystemService
	state StateService

	// Timer callbacks - Engine owns callbacks, Timer service owns IDs and scheduling
	callbacks map[int]*glua.LFunction
	hooks     map[string][]*glua.LFunction
}

// NewEngine creates an Engine with the given services.
func NewEngine(tails TailService, ui UIService, cfg ConfigService, timer TimerService, sys SystemService, state StateService) *Engine {
	cache, _ := lru.New[string, *regexp.Regexp](regexCacheSize)
	return &Engine{
		regexCache: cache,
		tails:      tails,
		ui:         ui,
		cfg:        cfg,
		timer:      timer,
		sys:        sys,
		state:      state,
		callbacks:  make(map[int]*glua.LFunction),
		hooks:      make(map[string][]*glua.LFunction),
	}
}

// --- Lifecycle ---

// Init initializes (or re-initializes) the Lua VM with fresh state.
// It registers the API but does NOT load any scripts - that's the caller's job.
func (e *Engine) Init() error {
	if e.L != nil {
		e.L.Close()
	}
	e.L = glua.NewState()

	cache, _ := lru.New[string, *regexp.Regexp](regexCacheSize)
	e.regexCache = cache

	// Only script timers are ours to cancel; pane timers share the service.
	e.cancelCallbacks()
	e.hooks = make(map[string][]*glua.LFunction)

	e.registerAPIs()
	return nil
}

// Close cleans up the Lua state.
func (e *Engine) Close() {
	e.cancelCallbacks()
	e.hooks = nil
	if e.L != nil {
		e.L.Close()
		e.L = nil
	}
}

func (e *Engine) cancelCallbacks() {
	for id := range e.callbacks {
		e.timer.TimerCancel(id)
	}
	e.callbacks = make(map[int]*glua.LFunction)
}

// OnTimer runs the callback for a fired script timer.
// It reports whether id belonged to a script.
func (e *Engine) OnTimer(id int) bool {
	if e.L == nil {
		return false
	}
	fn, ok := e.callbacks[id]
	if !ok {
		return false // Cancelled, or belonged to previous Engine instance
	}
	delete(e.callbacks, id)

	e.L.Push(fn)
	if err := e.L.PCall(0, 0, nil); err != nil {
		e.ui.Print("timer: " + err.Error())
	}
	return true
}

// --- Execution Primitives (Mechanism) ---

// DoString executes a raw string of Lua code.
// The name parameter is used for stack traces.
func (e *Engine) DoString(name, code string) error {
	fn, err := e.L.Load(strings.NewReader(code), name)
	if err != nil {
		return err
	}
	e.L.Push(fn)
	return e.L.PCall(0, 0, nil)
}

// DoFile executes a Lua file from the filesystem.
// It temporarily adjusts package.path to allow local requires.
func (e *Engine) DoFile(path string) error {
	path = expandTilde(path)

	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(absPath)

	// Temporarily prepend script's directory to package.path
	pkg := e.L.GetGlobal("package").(*glua.LTable)
	oldPath := e.L.GetField(pkg, "path").String()
	newPath := dir + "/?.lua;" + oldPath
	e.L.SetField(pkg, "path", glua.LString(newPath))

	err = e.L.DoFile(absPath)

	// Restore original path
	e.L.SetField(pkg, "path", glua.LString(oldPath))

	return err
}

// --- Hooks ---

// CallHook calls every function registered with tail.on(event, fn).
// A failing hook is reported and does not stop the others.
func (e *Engine) CallHook(event string, args ...string) {
	if e.L == nil {
		return
	}
	luaArgs := make([]glua.LValue, len(args))
	for i, arg := range args {
		luaArgs[i] = glua.LString(arg)
	}
	for _, fn := range e.hooks[event] {
		if err := e.L.CallByParam(glua.P{
			Fn:      fn,
			NRet:    0,
			Protect: true,
		}, luaArgs...); err != nil {
			e.ui.Print("hook " + event + ": " + err.Error())
		}
	}
}

// HasHook reports whether any function is registered for event.
func (e *Engine) HasHook(event string) bool {
	return len(e.hooks[event]) > 0
}

// --- API Registration ---

func (e *Engine) registerAPIs() {
	e.tailTable = e.L.NewTable()
	e.L.SetGlobal("tail", e.tailTable)

	e.registerCoreFuncs()
	e.registerTailFuncs()
	e.registerTimerFuncs()
	e.registerRegexFuncs()
}

// --- Private Helpers ---

// expandTilde expands ~ to home directory.
func expandTilde(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
