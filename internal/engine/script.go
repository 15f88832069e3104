package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/tracedbg/internal/trace"
)

// DefaultScriptTimeout bounds a single evaluation of a scripted condition.
const DefaultScriptTimeout = 100 * time.Millisecond

// Script is a compiled Lua predicate over the instruction that was just
// applied and the recorded state. The expression sees these globals:
//
//	kind       "load", "store", "call", "return", "assert", "revert", "newline"
//	direction  "forward" or "backward"
//	location   location id of a load or store
//	value      new value of a store
//	old        old value of a store (nil if the location was undefined)
//	call       call id of a call, return or newline, else the executing call
//	file, line current source line of the executing call
//	storage(id) current value of a location, or nil
//
// A Script reads recorded values only. It is not safe for concurrent use.
type Script struct {
	source  string
	state   *State
	L       *lua.LState
	fn      *lua.LFunction
	timeout time.Duration
	logger  *slog.Logger
}

// ScriptOption configures a Script.
type ScriptOption func(*Script)

// WithScriptLogger sends the output of Lua print to logger at debug level.
// Without it print output is dropped.
func WithScriptLogger(logger *slog.Logger) ScriptOption {
	return func(s *Script) {
		s.logger = logger
	}
}

// NewScript compiles expr, a Lua expression, against st.
func NewScript(st *State, expr string, timeout time.Duration, opts ...ScriptOption) (*Script, error) {
	if timeout <= 0 {
		timeout = DefaultScriptTimeout
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)

	fn, err := L.LoadString("return (" + expr + ")")
	if err != nil {
		L.Close()
		return nil, fmt.Errorf("%w: %v", ErrBadCondition, err)
	}

	s := &Script{source: expr, state: st, L: L, fn: fn, timeout: timeout}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	L.SetGlobal("storage", L.NewFunction(s.luaStorage))
	L.SetGlobal("print", L.NewFunction(s.luaPrint))
	return s, nil
}

// openSafeLibraries opens the base, table, string and math libraries and
// removes the base functions that reach outside the sandbox.
func openSafeLibraries(L *lua.LState) {
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module", "collectgarbage"} {
		L.SetGlobal(name, lua.LNil)
	}
}

// Source returns the expression the script was compiled from.
func (s *Script) Source() string { return s.source }

// Close releases the Lua state.
func (s *Script) Close() { s.L.Close() }

// luaPrint replaces the base library print, which writes to os.Stdout.
func (s *Script) luaPrint(L *lua.LState) int {
	parts := make([]string, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	s.logger.Debug("condition output", "condition", s.source, "output", strings.Join(parts, "\t"))
	return 0
}

func (s *Script) luaStorage(L *lua.LState) int {
	loc := L.CheckString(1)
	if v, ok := s.state.Value(trace.LocationID(loc)); ok {
		L.Push(lua.LString(v))
	} else {
		L.Push(lua.LNil)
	}
	return 1
}

// Eval evaluates the script for instruction i moved over in direction dir.
// The result follows Lua truthiness.
func (s *Script) Eval(i trace.Instruction, dir Direction) (result bool, err error) {
	L := s.L
	set := func(name string, v lua.LValue) { L.SetGlobal(name, v) }
	str := func(v string) lua.LValue { return lua.LString(v) }

	set("kind", str(i.Kind().String()))
	set("direction", str(dir.String()))
	set("location", lua.LNil)
	set("value", lua.LNil)
	set("old", lua.LNil)
	set("call", lua.LNil)
	set("file", lua.LNil)
	set("line", lua.LNil)

	if top, ok := s.state.Top(); ok {
		set("call", str(string(top.Call)))
		set("file", str(top.Line.File))
		set("line", lua.LNumber(top.Line.Line))
	}

	switch i := i.(type) {
	case trace.Load:
		set("location", str(string(i.Location)))
	case trace.Store:
		set("location", str(string(i.Location)))
		set("value", str(string(i.New)))
		if i.Old != nil {
			set("old", str(string(*i.Old)))
		}
	case trace.Call:
		set("call", str(string(i.Call)))
	case trace.Return:
		set("call", str(string(i.Call)))
	case trace.Newline:
		set("call", str(string(i.Context)))
	case trace.Assert, trace.Revert:
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	L.SetContext(ctx)
	defer L.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()

	top := L.GetTop()
	L.Push(s.fn)
	if err := L.PCall(0, 1, nil); err != nil {
		L.SetTop(top)
		return false, err
	}
	ret := L.Get(-1)
	L.SetTop(top)
	return lua.LVAsBool(ret), nil
}

// Conditional guards another condition with a script. An evaluation error
// stops the run and is reported in the reason.
type Conditional struct {
	Inner  Condition
	Script *Script

	lastErr error
}

// NewConditional wraps inner with script.
func NewConditional(inner Condition, script *Script) *Conditional {
	return &Conditional{Inner: inner, Script: script}
}

// TriggeredBy implements Condition.
func (c *Conditional) TriggeredBy(i trace.Instruction, dir Direction) bool {
	if !c.Inner.TriggeredBy(i, dir) {
		return false
	}
	ok, err := c.Script.Eval(i, dir)
	c.lastErr = err
	if err != nil {
		return true
	}
	return ok
}

// Reason implements Condition.
func (c *Conditional) Reason() Reason {
	r := c.Inner.Reason()
	if c.lastErr != nil {
		r.Description = fmt.Sprintf("%s (condition %q failed: %v)", r.Description, c.Script.Source(), c.lastErr)
	}
	return r
}
