package lua

import (
	"regexp"

	glua "github.com/yuin/gopher-lua"
)

// compile returns a cached compiled pattern.
func (e *Engine) compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := e.regexCache.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	e.regexCache.Add(pattern, re)
	return re, nil
}

// registerRegexFuncs registers tail.match.
func (e *Engine) registerRegexFuncs() {
	// tail.match(pattern, text): Submatches table, or nil; nil plus error on a bad pattern
	e.L.SetField(e.tailTable, "match", e.L.NewFunction(func(L *glua.LState) int {
		pattern := L.CheckString(1)
		text := L.CheckString(2)

		re, err := e.compile(pattern)
		if err != nil {
			L.Push(glua.LNil)
			L.Push(glua.LString(err.Error()))
			return 2
		}
		matches := re.FindStringSubmatch(text)
		if matches == nil {
			L.Push(glua.LNil)
			return 1
		}
		tbl := L.NewTable()
		for i, m := range matches {
			tbl.RawSetInt(i+1, glua.LString(m))
		}
		L.Push(tbl)
		return 1
	}))
}
