package debug

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/tracedbg/internal/debug/dap"
	"github.com/dshills/tracedbg/internal/trace"
	"github.com/dshills/tracedbg/internal/trace/tracetest"
)

// scenarioTrace is [Call(c1), Store(L1, nil, "5"), Newline(c1, line1, line2),
// Store(L1, "5", "9"), Return(c1)] with empty initial storage.
func scenarioTrace() *trace.Trace {
	five := trace.Value("5")
	line1 := trace.SourceLocation{File: "rule.spec", Line: 1}
	line2 := trace.SourceLocation{File: "rule.spec", Line: 2}
	return &trace.Trace{
		Storage: &trace.Structure{Children: []trace.Child{
			{Name: "x", Tree: &trace.Leaf{Location: "L1", Type: "uint"}},
		}},
		Locations:      map[trace.LocationID]trace.LocationMetadata{"L1": {Type: "uint", Name: "x"}},
		InitialStorage: map[trace.LocationID]trace.Value{},
		Calls: map[trace.CallID]trace.CallMetadata{
			"c1": {FunctionName: "rule", Locals: &trace.Structure{}, StartLocation: line1, EndLocation: line2},
		},
		Instructions: []trace.Instruction{
			trace.Call{Call: "c1"},
			trace.Store{Location: "L1", New: "5"},
			trace.Newline{Context: "c1", Old: line1, New: line2},
			trace.Store{Location: "L1", Old: &five, New: "9"},
			trace.Return{Call: "c1"},
		},
		Sources: []string{"rule.spec"},
	}
}

// tokenTrace is a nested trace: a rule calling balanceOf and transfer.
func tokenTrace() *trace.Trace {
	b := tracetest.New()
	var balance trace.LocationID
	b.Storage(func(s *tracetest.Tree) {
		s.Struct("Token", func(s *tracetest.Tree) {
			s.Struct("balances", func(s *tracetest.Tree) {
				balance = s.Var("uint256", "0xffff", "16")
			})
			s.Var("uint256", "totalSupply", "16")
		})
	})

	b.Call("transferSpec", "Token.spec", 17, func(f *tracetest.Frame) {
		f.Newline("Token.spec", 18)
		amount := f.Var("uint", "amount", "15")
		f.Struct("env", func(t *tracetest.Tree) {
			t.Var("address", "sender", "0xffff")
		})

		f.Newline("Token.spec", 20)
		f.Call("balanceOf", "Token.sol", 102, func(f *tracetest.Frame) {
			f.Newline("Token.sol", 103)
			f.Load(balance)
		})

		f.Newline("Token.spec", 22)
		f.Call("transfer", "Token.sol", 120, func(f *tracetest.Frame) {
			f.Var("uint256", "value", "15")
			f.Newline("Token.sol", 126)
			f.Store(balance, "1")
			f.Newline("Token.sol", 127)
		})

		f.Newline("Token.spec", 24)
		f.Load(amount)
		f.Assert()
		f.Newline("Token.spec", 25)
		f.Revert()
	})
	return b.Trace()
}

// client drives a session the way a protocol client would.
type client struct {
	t   *testing.T
	s   *Session
	seq int
}

func newClient(t *testing.T, tr *trace.Trace, opts Options) *client {
	t.Helper()
	s, err := NewSession(tr, opts, nil)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return &client{t: t, s: s}
}

// call sends a request and returns the response body and queued events.
func (c *client) call(command string, args any) (any, []dap.Event, error) {
	c.t.Helper()
	c.seq++
	req := &dap.Request{ProtocolMessage: dap.ProtocolMessage{Seq: c.seq, Type: dap.TypeRequest}, Command: command}
	if args != nil {
		raw, err := json.Marshal(args)
		require.NoError(c.t, err)
		req.Arguments = raw
	}
	var out dap.Outbox
	body, err := c.s.Handle(context.Background(), req, &out)
	return body, out.Events(), err
}

func (c *client) ok(command string, args any) (any, []dap.Event) {
	c.t.Helper()
	body, events, err := c.call(command, args)
	require.NoError(c.t, err, command)
	return body, events
}

// run sends a run command and returns its stopped event.
func (c *client) run(command string) dap.StoppedEventBody {
	c.t.Helper()
	_, events := c.ok(command, dap.ThreadArguments{ThreadID: ThreadID})
	require.Len(c.t, events, 1)
	require.Equal(c.t, "stopped", events[0].Event)
	body, ok := events[0].Body.(dap.StoppedEventBody)
	require.True(c.t, ok)
	return body
}

func (c *client) frames() []dap.StackFrame {
	c.t.Helper()
	body, _ := c.ok("stackTrace", dap.StackTraceArguments{ThreadID: ThreadID})
	return body.(dap.StackTraceResponseBody).StackFrames
}

func (c *client) variables(ref int) []dap.Variable {
	c.t.Helper()
	body, _ := c.ok("variables", dap.VariablesArguments{VariablesReference: ref})
	return body.(dap.VariablesResponseBody).Variables
}

func (c *client) lines() []int {
	var lines []int
	for _, f := range c.frames() {
		lines = append(lines, f.Line)
	}
	return lines
}

func TestInitialize(t *testing.T) {
	c := newClient(t, scenarioTrace(), DefaultOptions())

	body, events := c.ok("initialize", dap.InitializeRequestArguments{AdapterID: "tracedbg"})
	caps := body.(dap.Capabilities)
	assert.True(t, caps.SupportsStepBack)
	assert.True(t, caps.SupportsDataBreakpoints)
	assert.True(t, caps.SupportsRestartFrame)
	require.Len(t, caps.ExceptionBreakpointFilters, 2)
	assert.Equal(t, FilterAssert, caps.ExceptionBreakpointFilters[0].Filter)
	assert.True(t, caps.ExceptionBreakpointFilters[0].Default)
	assert.False(t, caps.ExceptionBreakpointFilters[1].Default)

	require.Len(t, events, 1)
	assert.Equal(t, "initialized", events[0].Event)
	assert.Equal(t, StateLoaded, c.s.State())
}

func TestStopOnEntry(t *testing.T) {
	c := newClient(t, scenarioTrace(), DefaultOptions())

	c.ok("launch", dap.LaunchRequestArguments{StopOnEntry: true})
	_, events := c.ok("configurationDone", nil)
	require.Len(t, events, 1)
	body := events[0].Body.(dap.StoppedEventBody)
	assert.Equal(t, ReasonEntry, body.Reason)
	assert.Equal(t, ThreadID, body.ThreadID)
	assert.Equal(t, StateStopped, c.s.State())
}

func TestContinueAndReverseContinue(t *testing.T) {
	c := newClient(t, scenarioTrace(), DefaultOptions())

	stop := c.run("continue")
	assert.Equal(t, ReasonEndOfTrace, stop.Reason)
	assert.Equal(t, map[trace.LocationID]trace.Value{"L1": "9"}, c.s.Engine().Storage())
	assert.Empty(t, c.frames())

	stop = c.run("reverseContinue")
	assert.Equal(t, ReasonStartOfTrace, stop.Reason)
	assert.Empty(t, c.s.Engine().Storage())
	frames := c.frames()
	require.Len(t, frames, 1)
	assert.Equal(t, "rule", frames[0].Name)
	assert.Equal(t, 1, frames[0].Line)
}

func TestDataBreakpoint(t *testing.T) {
	c := newClient(t, scenarioTrace(), DefaultOptions())

	body, _ := c.ok("dataBreakpointInfo", dap.DataBreakpointInfoArguments{VariablesReference: GlobalsReference, Name: "x"})
	info := body.(dap.DataBreakpointInfoResponseBody)
	require.NotNil(t, info.DataID)
	assert.Equal(t, "L1", *info.DataID)
	assert.Equal(t, "x", info.Description)

	body, _ = c.ok("setDataBreakpoints", dap.SetDataBreakpointsArguments{
		Breakpoints: []dap.DataBreakpoint{{DataID: *info.DataID, AccessType: "write"}},
	})
	bps := body.(dap.SetBreakpointsResponseBody).Breakpoints
	require.Len(t, bps, 1)
	assert.True(t, bps[0].Verified)

	stop := c.run("continue")
	assert.Equal(t, "data breakpoint", stop.Reason)
	assert.Equal(t, []int{bps[0].ID}, stop.HitBreakpointIDs)
	assert.Equal(t, map[trace.LocationID]trace.Value{"L1": "5"}, c.s.Engine().Storage())

	vars := c.variables(GlobalsReference)
	require.Len(t, vars, 1)
	assert.Equal(t, dap.Variable{Name: "x", Value: "5", Type: "uint", EvaluateName: "x"}, vars[0])
}

func TestSetDataBreakpointsReplaces(t *testing.T) {
	c := newClient(t, scenarioTrace(), DefaultOptions())

	c.ok("setDataBreakpoints", dap.SetDataBreakpointsArguments{
		Breakpoints: []dap.DataBreakpoint{{DataID: "L1", AccessType: "write"}},
	})
	body, _ := c.ok("setDataBreakpoints", dap.SetDataBreakpointsArguments{
		Breakpoints: []dap.DataBreakpoint{{DataID: "L9"}},
	})
	bps := body.(dap.SetBreakpointsResponseBody).Breakpoints
	require.Len(t, bps, 1)
	assert.False(t, bps[0].Verified)
	assert.NotEmpty(t, bps[0].Message)

	stop := c.run("continue")
	assert.Equal(t, ReasonEndOfTrace, stop.Reason)
}

func TestStepBack(t *testing.T) {
	c := newClient(t, scenarioTrace(), DefaultOptions())

	stop := c.run("next")
	assert.Equal(t, "step", stop.Reason)
	assert.Equal(t, []int{2}, c.lines())

	stop = c.run("stepBack")
	assert.Equal(t, "step", stop.Reason)
	assert.Equal(t, map[trace.LocationID]trace.Value{"L1": "5"}, c.s.Engine().Storage())
	assert.Equal(t, []int{1}, c.lines())

	stop = c.run("stepBack")
	assert.Equal(t, ReasonStartOfTrace, stop.Reason)
	assert.Empty(t, c.s.Engine().Storage())
}

func TestStepping(t *testing.T) {
	c := newClient(t, tokenTrace(), DefaultOptions())
	names := func() []string {
		var out []string
		for _, f := range c.frames() {
			out = append(out, f.Name)
		}
		return out
	}

	c.run("next") // 18
	c.run("next") // 20
	assert.Equal(t, []int{20}, c.lines())

	c.run("stepIn")
	assert.Equal(t, []string{"balanceOf", "transferSpec"}, names())
	assert.Equal(t, []int{102, 20}, c.lines())

	c.run("stepOut")
	assert.Equal(t, []string{"transferSpec"}, names())

	c.run("next") // 22
	c.run("next") // over transfer, to 24
	assert.Equal(t, []int{24}, c.lines())

	c.run("stepBack") // back to 22
	assert.Equal(t, []int{22}, c.lines())
	assert.Equal(t, []string{"transferSpec"}, names())
}

func TestExceptionFilters(t *testing.T) {
	c := newClient(t, tokenTrace(), DefaultOptions())

	stop := c.run("continue")
	assert.Equal(t, "exception", stop.Reason)
	assert.Equal(t, "assertion failed", stop.Description)

	c.ok("setExceptionBreakpoints", dap.SetExceptionBreakpointsArguments{Filters: []string{FilterRevert}})
	stop = c.run("continue")
	assert.Equal(t, "exception", stop.Reason)
	assert.Equal(t, "call reverted", stop.Description)

	stop = c.run("continue")
	assert.Equal(t, ReasonEndOfTrace, stop.Reason)
}

func TestLineBreakpoints(t *testing.T) {
	c := newClient(t, tokenTrace(), DefaultOptions())
	c.ok("setExceptionBreakpoints", dap.SetExceptionBreakpointsArguments{})

	body, _ := c.ok("setBreakpoints", dap.SetBreakpointsArguments{
		Source:      dap.Source{Path: "/work/Token.sol"},
		Breakpoints: []dap.SourceBreakpoint{{Line: 126}, {Line: 200}},
	})
	bps := body.(dap.SetBreakpointsResponseBody).Breakpoints
	require.Len(t, bps, 2)
	assert.True(t, bps[0].Verified)
	assert.False(t, bps[1].Verified)

	stop := c.run("continue")
	assert.Equal(t, "breakpoint", stop.Reason)
	assert.Equal(t, []int{bps[0].ID}, stop.HitBreakpointIDs)
	assert.Equal(t, []int{126, 22}, c.lines())

	c.run("continue")
	stop = c.run("reverseContinue")
	assert.Equal(t, "breakpoint", stop.Reason)
	assert.Equal(t, []int{126, 22}, c.lines())

	// Clearing the file removes its breakpoints.
	c.ok("setBreakpoints", dap.SetBreakpointsArguments{Source: dap.Source{Path: "/work/Token.sol"}})
	stop = c.run("continue")
	assert.Equal(t, ReasonEndOfTrace, stop.Reason)
}

func TestConditionalBreakpoint(t *testing.T) {
	c := newClient(t, scenarioTrace(), DefaultOptions())

	c.ok("setDataBreakpoints", dap.SetDataBreakpointsArguments{
		Breakpoints: []dap.DataBreakpoint{{DataID: "L1", AccessType: "write", Condition: `value == "9"`}},
	})
	stop := c.run("continue")
	assert.Equal(t, "data breakpoint", stop.Reason)
	assert.Equal(t, map[trace.LocationID]trace.Value{"L1": "9"}, c.s.Engine().Storage())

	body, _ := c.ok("setDataBreakpoints", dap.SetDataBreakpointsArguments{
		Breakpoints: []dap.DataBreakpoint{{DataID: "L1", Condition: `value ==`}},
	})
	bps := body.(dap.SetBreakpointsResponseBody).Breakpoints
	assert.False(t, bps[0].Verified)
	assert.Contains(t, bps[0].Message, "condition")
}

func TestFunctionBreakpoints(t *testing.T) {
	c := newClient(t, tokenTrace(), DefaultOptions())

	body, _ := c.ok("setFunctionBreakpoints", dap.SetFunctionBreakpointsArguments{
		Breakpoints: []dap.FunctionBreakpoint{{Name: "transfer"}, {Name: "mint"}},
	})
	bps := body.(dap.SetBreakpointsResponseBody).Breakpoints
	require.Len(t, bps, 2)
	assert.True(t, bps[0].Verified)
	assert.False(t, bps[1].Verified)

	stop := c.run("continue")
	assert.Equal(t, "function breakpoint", stop.Reason)
	assert.Equal(t, "transfer", c.frames()[0].Name)
}

func TestScopesCountOnlyDefinedVariables(t *testing.T) {
	c := newClient(t, tokenTrace(), DefaultOptions())

	frames := c.frames()
	require.Len(t, frames, 1)
	body, _ := c.ok("scopes", dap.ScopesArguments{FrameID: frames[0].ID})
	scopes := body.(dap.ScopesResponseBody).Scopes
	require.Len(t, scopes, 2)

	// amount is declared but not yet stored.
	locals := c.variables(frames[0].ID)
	require.Len(t, locals, 1)
	assert.Equal(t, "env", locals[0].Name)
	assert.Equal(t, 1, scopes[1].NamedVariables)
	assert.Equal(t, 0, locals[0].NamedVariables)
	assert.Empty(t, c.variables(locals[0].VariablesReference))

	globals := c.variables(GlobalsReference)
	assert.Equal(t, len(globals), scopes[0].NamedVariables)
}

func TestScopesAndVariables(t *testing.T) {
	c := newClient(t, tokenTrace(), DefaultOptions())
	c.run("next")
	c.run("next")

	frames := c.frames()
	require.Len(t, frames, 1)

	body, _ := c.ok("scopes", dap.ScopesArguments{FrameID: frames[0].ID})
	scopes := body.(dap.ScopesResponseBody).Scopes
	require.Len(t, scopes, 2)
	assert.Equal(t, "Globals", scopes[0].Name)
	assert.Equal(t, GlobalsReference, scopes[0].VariablesReference)
	assert.Equal(t, "Locals", scopes[1].Name)
	assert.Equal(t, frames[0].ID, scopes[1].VariablesReference)

	locals := c.variables(frames[0].ID)
	require.Len(t, locals, 2)
	assert.Equal(t, len(locals), scopes[1].NamedVariables)
	assert.Equal(t, "amount", locals[0].Name)
	assert.Equal(t, "15", locals[0].Value)
	assert.Equal(t, "env", locals[1].Name)
	require.NotZero(t, locals[1].VariablesReference)

	env := c.variables(locals[1].VariablesReference)
	require.Len(t, env, 1)
	assert.Equal(t, "0xffff", env[0].Value)
	assert.Equal(t, "env.sender", env[0].EvaluateName)

	globals := c.variables(GlobalsReference)
	require.Len(t, globals, 1)
	token := c.variables(globals[0].VariablesReference)
	require.Len(t, token, 2)
	assert.Equal(t, "balances", token[0].Name)
	assert.Equal(t, "totalSupply", token[1].Name)
}

func TestVariablesOmitUndefined(t *testing.T) {
	c := newClient(t, scenarioTrace(), DefaultOptions())
	assert.Empty(t, c.variables(GlobalsReference))
}

func TestReferencesStayValid(t *testing.T) {
	c := newClient(t, tokenTrace(), DefaultOptions())
	c.run("next")

	globals := c.variables(GlobalsReference)
	token := globals[0].VariablesReference
	before := c.s.References().Len()

	c.run("next")
	c.frames()
	c.variables(GlobalsReference)
	assert.Greater(t, c.s.References().Len(), before)

	// The earlier reference still resolves to the same structure.
	assert.Len(t, c.variables(token), 2)
}

func TestUnknownReference(t *testing.T) {
	c := newClient(t, scenarioTrace(), DefaultOptions())

	_, _, err := c.call("variables", dap.VariablesArguments{VariablesReference: 99})
	assert.ErrorIs(t, err, ErrUnknownReference)

	_, _, err = c.call("scopes", dap.ScopesArguments{FrameID: GlobalsReference})
	assert.ErrorIs(t, err, ErrNoFrame)

	// The session keeps serving.
	c.ok("threads", nil)
}

func TestEvaluate(t *testing.T) {
	c := newClient(t, tokenTrace(), DefaultOptions())
	c.run("next")
	c.run("next")

	body, _ := c.ok("evaluate", dap.EvaluateArguments{Expression: "amount"})
	assert.Equal(t, "15", body.(dap.EvaluateResponseBody).Result)

	body, _ = c.ok("evaluate", dap.EvaluateArguments{Expression: "Token.balances.0xffff"})
	assert.Equal(t, "16", body.(dap.EvaluateResponseBody).Result)

	body, _ = c.ok("evaluate", dap.EvaluateArguments{Expression: "Token.balances"})
	res := body.(dap.EvaluateResponseBody)
	assert.NotZero(t, res.VariablesReference)
	assert.Len(t, c.variables(res.VariablesReference), 1)

	_, _, err := c.call("evaluate", dap.EvaluateArguments{Expression: "Token.missing"})
	assert.ErrorIs(t, err, trace.ErrPathNotFound)
}

func TestRestart(t *testing.T) {
	c := newClient(t, scenarioTrace(), DefaultOptions())
	c.run("continue")
	c.variables(GlobalsReference)
	c.frames()

	_, events := c.ok("restart", nil)
	require.Len(t, events, 1)
	assert.Equal(t, ReasonEntry, events[0].Body.(dap.StoppedEventBody).Reason)
	assert.Equal(t, 2, c.s.References().Len())
	assert.Equal(t, 1, c.s.Engine().Cursor())
}

func TestRestartFrame(t *testing.T) {
	c := newClient(t, tokenTrace(), DefaultOptions())
	c.ok("setBreakpoints", dap.SetBreakpointsArguments{
		Source:      dap.Source{Path: "Token.sol"},
		Breakpoints: []dap.SourceBreakpoint{{Line: 127}},
	})
	c.run("continue")
	frames := c.frames()
	require.Equal(t, "transfer", frames[0].Name)
	require.Equal(t, 127, frames[0].Line)

	_, events := c.ok("restartFrame", dap.RestartFrameArguments{FrameID: frames[0].ID})
	require.Len(t, events, 1)
	assert.Equal(t, ReasonRestart, events[0].Body.(dap.StoppedEventBody).Reason)
	assert.Equal(t, []int{120, 22}, c.lines())
	// The store undone by the rewind is gone.
	v, _ := c.s.Engine().Value(mustLocation(t, c.s.trace, "Token", "balances", "0xffff"))
	assert.Equal(t, trace.Value("16"), v)

	// Restarting the outermost frame lands on its first line.
	frames = c.frames()
	_, _ = c.ok("restartFrame", dap.RestartFrameArguments{FrameID: frames[1].ID})
	assert.Equal(t, []int{17}, c.lines())
	assert.Equal(t, 1, c.s.Engine().Cursor())
}

func mustLocation(t *testing.T, tr *trace.Trace, path ...string) trace.LocationID {
	t.Helper()
	loc, err := tr.Storage.Get(path...)
	require.NoError(t, err)
	return loc
}

func TestThreadsAndSources(t *testing.T) {
	c := newClient(t, tokenTrace(), DefaultOptions())

	body, _ := c.ok("threads", nil)
	assert.Equal(t, []dap.Thread{{ID: ThreadID, Name: "transferSpec"}}, body.(dap.ThreadsResponseBody).Threads)

	body, _ = c.ok("loadedSources", nil)
	sources := body.(dap.LoadedSourcesResponseBody).Sources
	require.Len(t, sources, 2)
	assert.Equal(t, "Token.sol", sources[0].Name)

	body, _ = c.ok("source", dap.SourceArguments{SourceReference: 1})
	assert.Equal(t, dap.SourceResponseBody{}, body)

	body, _ = c.ok("breakpointLocations", dap.BreakpointLocationsArguments{Source: dap.Source{Path: "Token.sol"}, Line: 100, EndLine: 130})
	assert.Equal(t, []dap.BreakpointLocation{{Line: 102}, {Line: 103}, {Line: 120}, {Line: 126}, {Line: 127}}, body.(dap.BreakpointLocationsResponseBody).Breakpoints)

	_, _ = c.ok("pause", dap.ThreadArguments{ThreadID: ThreadID})
}

func TestTerminateEndsSession(t *testing.T) {
	c := newClient(t, scenarioTrace(), DefaultOptions())

	var out dap.Outbox
	_, err := c.s.Handle(context.Background(), &dap.Request{Command: "terminate"}, &out)
	require.NoError(t, err)
	assert.True(t, out.Ended())
	require.Len(t, out.Events(), 1)
	assert.Equal(t, "terminated", out.Events()[0].Event)
	assert.Equal(t, StateTerminated, c.s.State())

	_, _, err = c.call("threads", nil)
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestTerminateRestart(t *testing.T) {
	c := newClient(t, scenarioTrace(), DefaultOptions())

	_, events := c.ok("terminate", dap.TerminateArguments{Restart: true})
	require.Len(t, events, 1)
	assert.Equal(t, dap.TerminatedEventBody{Restart: true}, events[0].Body)
}

func TestDisconnectEndsSession(t *testing.T) {
	c := newClient(t, scenarioTrace(), DefaultOptions())

	var out dap.Outbox
	raw, err := json.Marshal(dap.DisconnectArguments{TerminateDebuggee: true})
	require.NoError(t, err)
	_, err = c.s.Handle(context.Background(), &dap.Request{Command: "disconnect", Arguments: raw}, &out)
	require.NoError(t, err)
	assert.True(t, out.Ended())
	assert.Empty(t, out.Events())
	assert.Equal(t, StateTerminated, c.s.State())

	c = newClient(t, scenarioTrace(), DefaultOptions())
	_, _, err = c.call("disconnect", "restart")
	assert.ErrorContains(t, err, "invalid disconnect arguments")
	assert.NotEqual(t, StateTerminated, c.s.State())
}

func TestLaunchWritesConsoleOutput(t *testing.T) {
	c := newClient(t, scenarioTrace(), DefaultOptions())

	_, events := c.ok("launch", dap.LaunchRequestArguments{})
	require.Len(t, events, 1)
	assert.Equal(t, "output", events[0].Event)
	assert.Equal(t, dap.OutputEventBody{Category: "console", Output: "Replaying rule: 5 instructions\n"}, events[0].Body)
}

func TestUnknownCommand(t *testing.T) {
	c := newClient(t, scenarioTrace(), DefaultOptions())
	_, _, err := c.call("readMemory", nil)
	assert.ErrorIs(t, err, dap.ErrUnknownCommand)
}

func TestZeroBasedLines(t *testing.T) {
	c := newClient(t, scenarioTrace(), DefaultOptions())
	zero := false
	c.ok("initialize", dap.InitializeRequestArguments{LinesStartAt1: &zero})

	body, _ := c.ok("setBreakpoints", dap.SetBreakpointsArguments{
		Source:      dap.Source{Path: "rule.spec"},
		Breakpoints: []dap.SourceBreakpoint{{Line: 1}},
	})
	assert.True(t, body.(dap.SetBreakpointsResponseBody).Breakpoints[0].Verified)

	c.run("continue")
	assert.Equal(t, []int{1}, c.lines())
}
