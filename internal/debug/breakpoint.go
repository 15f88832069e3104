package debug

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dshills/tracedbg/internal/debug/dap"
	"github.com/dshills/tracedbg/internal/engine"
	"github.com/dshills/tracedbg/internal/trace"
)

// Exception filter ids.
const (
	FilterAssert = "assert"
	FilterRevert = "revert"
)

// ExceptionFilters returns the exception filters offered to clients. The
// defaults are the initial filter state of a session.
func ExceptionFilters(assertOn, revertOn bool) []dap.ExceptionBreakpointsFilter {
	return []dap.ExceptionBreakpointsFilter{
		{Filter: FilterAssert, Label: "Failed assertions", Description: "Stop when an assertion fails", Default: assertOn},
		{Filter: FilterRevert, Label: "Reverts", Description: "Stop when a call reverts", Default: revertOn},
	}
}

// breakpoint is one active user breakpoint.
type breakpoint struct {
	id     int
	conds  []engine.Condition
	script *engine.Script
}

// Breakpoints holds the user breakpoints of a session and turns them into
// stop conditions. Source breakpoints are replaced per file, function and
// data breakpoints as a whole.
type Breakpoints struct {
	trace   *trace.Trace
	state   *engine.State
	timeout time.Duration
	lines   Lines
	logger  *slog.Logger

	nextID     int
	byPath     map[string][]*breakpoint
	functions  []*breakpoint
	data       []*breakpoint
	exceptions map[string]bool

	// reachable maps a file to the lines a Newline can make current.
	reachable map[string][]int
}

// NewBreakpoints creates an empty set for the session replaying st.
func NewBreakpoints(st *engine.State, timeout time.Duration, logger *slog.Logger) *Breakpoints {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	b := &Breakpoints{
		trace:      st.Trace(),
		state:      st,
		timeout:    timeout,
		logger:     logger,
		byPath:     make(map[string][]*breakpoint),
		exceptions: make(map[string]bool),
	}
	b.reachable = reachableLines(b.trace)
	return b
}

// SetLines sets the client's line numbering.
func (b *Breakpoints) SetLines(lines Lines) { b.lines = lines }

func (b *Breakpoints) allocateID() int {
	b.nextID++
	return b.nextID
}

// compile wraps conds with condition when it is not empty. A condition that
// fails to compile is reported through the returned message and the
// breakpoint stays unverified.
func (b *Breakpoints) compile(id int, conds []engine.Condition, condition string) (*breakpoint, string) {
	bp := &breakpoint{id: id, conds: conds}
	if condition == "" {
		return bp, ""
	}

	script, err := engine.NewScript(b.state, condition, b.timeout, engine.WithScriptLogger(b.logger))
	if err != nil {
		return nil, err.Error()
	}
	bp.script = script
	for i, c := range conds {
		bp.conds[i] = engine.NewConditional(c, script)
	}
	return bp, ""
}

func closeAll(bps []*breakpoint) {
	for _, bp := range bps {
		if bp.script != nil {
			bp.script.Close()
		}
	}
}

// SetSourceBreakpoints replaces the breakpoints of one source file.
func (b *Breakpoints) SetSourceBreakpoints(source dap.Source, requested []dap.SourceBreakpoint) []dap.Breakpoint {
	path := source.Path
	if path == "" {
		path = source.Name
	}
	closeAll(b.byPath[path])
	delete(b.byPath, path)

	result := make([]dap.Breakpoint, 0, len(requested))
	var active []*breakpoint
	for _, req := range requested {
		line := b.lines.FromClient(req.Line)
		id := b.allocateID()
		out := dap.Breakpoint{ID: id, Source: &source, Line: req.Line}

		if !slices.Contains(b.linesIn(path), line) {
			out.Message = fmt.Sprintf("no recorded execution reaches line %d", req.Line)
			result = append(result, out)
			continue
		}

		cond := engine.LineBreakpoint{Location: trace.SourceLocation{File: path, Line: line}, ID: id}
		bp, msg := b.compile(id, []engine.Condition{cond}, req.Condition)
		if bp == nil {
			out.Message = msg
			result = append(result, out)
			continue
		}
		active = append(active, bp)
		out.Verified = true
		result = append(result, out)
	}

	if len(active) > 0 {
		b.byPath[path] = active
	}
	b.logger.Debug("source breakpoints set", "path", path, "requested", len(requested), "active", len(active))
	return result
}

// SetFunctionBreakpoints replaces all function breakpoints.
func (b *Breakpoints) SetFunctionBreakpoints(requested []dap.FunctionBreakpoint) []dap.Breakpoint {
	closeAll(b.functions)
	b.functions = nil

	result := make([]dap.Breakpoint, 0, len(requested))
	for _, req := range requested {
		id := b.allocateID()
		out := dap.Breakpoint{ID: id}

		if !b.hasFunction(req.Name) {
			out.Message = fmt.Sprintf("function %q is never called", req.Name)
			result = append(result, out)
			continue
		}

		cond := engine.FunctionBreakpoint{Name: req.Name, ID: id, Trace: b.trace}
		bp, msg := b.compile(id, []engine.Condition{cond}, req.Condition)
		if bp == nil {
			out.Message = msg
			result = append(result, out)
			continue
		}
		b.functions = append(b.functions, bp)
		out.Verified = true
		result = append(result, out)
	}
	return result
}

func (b *Breakpoints) hasFunction(name string) bool {
	for _, md := range b.trace.Calls {
		if md.FunctionName == name {
			return true
		}
	}
	return false
}

// SetDataBreakpoints replaces all data breakpoints. The data id of a data
// breakpoint is a location id.
func (b *Breakpoints) SetDataBreakpoints(requested []dap.DataBreakpoint) []dap.Breakpoint {
	closeAll(b.data)
	b.data = nil

	result := make([]dap.Breakpoint, 0, len(requested))
	for _, req := range requested {
		id := b.allocateID()
		out := dap.Breakpoint{ID: id}

		loc := trace.LocationID(req.DataID)
		if _, ok := b.trace.Location(loc); !ok {
			out.Message = fmt.Sprintf("unknown location %q", req.DataID)
			result = append(result, out)
			continue
		}
		accesses, err := engine.ParseAccess(req.AccessType)
		if err != nil {
			out.Message = err.Error()
			result = append(result, out)
			continue
		}

		conds := engine.DataBreakpoints(loc, b.trace.LocationName(loc), id, accesses)
		bp, msg := b.compile(id, conds, req.Condition)
		if bp == nil {
			out.Message = msg
			result = append(result, out)
			continue
		}
		b.data = append(b.data, bp)
		out.Verified = true
		result = append(result, out)
	}
	return result
}

// SetExceptionFilters replaces the enabled exception filters. Unknown filters
// are ignored.
func (b *Breakpoints) SetExceptionFilters(filters []string) {
	clear(b.exceptions)
	for _, f := range filters {
		switch f {
		case FilterAssert, FilterRevert:
			b.exceptions[f] = true
		default:
			b.logger.Warn("ignoring unknown exception filter", "filter", f)
		}
	}
}

// Conditions returns the stop conditions of every active breakpoint.
func (b *Breakpoints) Conditions() []engine.Condition {
	var conds []engine.Condition
	for _, bps := range b.byPath {
		for _, bp := range bps {
			conds = append(conds, bp.conds...)
		}
	}
	for _, bp := range b.functions {
		conds = append(conds, bp.conds...)
	}
	for _, bp := range b.data {
		conds = append(conds, bp.conds...)
	}
	if b.exceptions[FilterAssert] {
		conds = append(conds, engine.Exception{Kind: trace.KindAssert})
	}
	if b.exceptions[FilterRevert] {
		conds = append(conds, engine.Exception{Kind: trace.KindRevert})
	}
	return conds
}

// Locations returns the lines of source between line and endLine (inclusive)
// where a line breakpoint can stop. An endLine of 0 means line alone.
func (b *Breakpoints) Locations(source dap.Source, line, endLine int) []dap.BreakpointLocation {
	path := source.Path
	if path == "" {
		path = source.Name
	}
	from := b.lines.FromClient(line)
	to := from
	if endLine > 0 {
		to = b.lines.FromClient(endLine)
	}

	locs := []dap.BreakpointLocation{}
	for _, l := range b.linesIn(path) {
		if l >= from && l <= to {
			locs = append(locs, dap.BreakpointLocation{Line: b.lines.ToClient(l)})
		}
	}
	return locs
}

// linesIn returns the sorted reachable lines of every trace file matching path.
func (b *Breakpoints) linesIn(path string) []int {
	var lines []int
	for file, ls := range b.reachable {
		if engine.SameFile(file, path) {
			lines = append(lines, ls...)
		}
	}
	slices.Sort(lines)
	return slices.Compact(lines)
}

// Close releases the scripts of all breakpoints.
func (b *Breakpoints) Close() {
	for _, bps := range b.byPath {
		closeAll(bps)
	}
	closeAll(b.functions)
	closeAll(b.data)
}

// reachableLines collects, per file, the lines a Newline makes current in
// either direction.
func reachableLines(t *trace.Trace) map[string][]int {
	seen := make(map[trace.SourceLocation]bool)
	for _, i := range t.Instructions {
		if n, ok := i.(trace.Newline); ok {
			seen[n.New] = true
			seen[n.Old] = true
		}
	}

	out := make(map[string][]int)
	for loc := range seen {
		if loc.File != "" {
			out[loc.File] = append(out[loc.File], loc.Line)
		}
	}
	for file := range out {
		slices.Sort(out[file])
	}
	return out
}
