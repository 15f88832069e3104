package debug

import (
	"path/filepath"

	"github.com/dshills/tracedbg/internal/debug/dap"
	"github.com/dshills/tracedbg/internal/engine"
	"github.com/dshills/tracedbg/internal/trace"
)

// Lines converts between trace line numbers, which start at 1, and the
// client's numbering.
type Lines struct {
	// ZeroBased is set when the client numbers lines from 0.
	ZeroBased bool
}

// ToClient converts a trace line to a client line.
func (l Lines) ToClient(line int) int {
	if l.ZeroBased {
		return line - 1
	}
	return line
}

// FromClient converts a client line to a trace line.
func (l Lines) FromClient(line int) int {
	if l.ZeroBased {
		return line + 1
	}
	return line
}

// StackTrace renders the call stack, most recent frame first. Every frame gets
// a fresh reference to its call's locals, which is also its frame id. Levels
// <= 0 returns all frames from start.
func StackTrace(refs *References, st *engine.State, lines Lines, start, levels int) dap.StackTraceResponseBody {
	stack := st.Stack()
	total := len(stack)

	body := dap.StackTraceResponseBody{StackFrames: []dap.StackFrame{}, TotalFrames: total}
	if start < 0 {
		start = 0
	}
	end := total
	if levels > 0 && start+levels < end {
		end = start + levels
	}

	for i := start; i < end; i++ {
		f := stack[total-1-i]
		id := refs.Allocate(Reference{Tree: f.Locals(), Frame: f.Call})
		body.StackFrames = append(body.StackFrames, dap.StackFrame{
			ID:         id,
			Name:       frameName(f),
			Source:     sourceOf(f.Line.File),
			Line:       lines.ToClient(f.Line.Line),
			Column:     lines.ToClient(1),
			CanRestart: true,
		})
	}
	return body
}

func frameName(f *engine.Frame) string {
	if name := f.FunctionName(); name != "" {
		return name
	}
	return string(f.Call)
}

func sourceOf(file string) *dap.Source {
	if file == "" {
		return nil
	}
	return &dap.Source{Name: filepath.Base(file), Path: file}
}

// Scopes returns the Globals and Locals scopes of a frame. Their variable counts
// are the number of variables Materialize returns for them in st.
func Scopes(refs *References, st *engine.State, frameID int) ([]dap.Scope, error) {
	if _, err := refs.Frame(frameID); err != nil {
		return nil, err
	}
	globals, err := refs.Get(GlobalsReference)
	if err != nil {
		return nil, err
	}
	locals, err := refs.Get(frameID)
	if err != nil {
		return nil, err
	}

	return []dap.Scope{
		{
			Name:               "Globals",
			PresentationHint:   "globals",
			VariablesReference: GlobalsReference,
			NamedVariables:     visibleChildren(st, globals.Tree),
		},
		{
			Name:               "Locals",
			PresentationHint:   "locals",
			VariablesReference: frameID,
			NamedVariables:     visibleChildren(st, locals.Tree),
		},
	}, nil
}

// threadName names the single thread after the rule the trace starts in.
func threadName(t *trace.Trace) string {
	if len(t.Instructions) > 0 {
		if c, ok := t.Instructions[0].(trace.Call); ok {
			if md, ok := t.Call(c.Call); ok && md.FunctionName != "" {
				return md.FunctionName
			}
		}
	}
	return "main"
}
