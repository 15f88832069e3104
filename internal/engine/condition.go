package engine

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dshills/tracedbg/internal/trace"
)

// Condition decides whether a run stops after an instruction.
type Condition interface {
	// TriggeredBy reports whether the run should stop after i was applied
	// (Forward) or unapplied (Backward).
	TriggeredBy(i trace.Instruction, dir Direction) bool

	// Reason describes why the run stopped when the condition triggers.
	Reason() Reason
}

// ReasonKind classifies a stop.
type ReasonKind int

const (
	// ReasonStep is the completion of a step command.
	ReasonStep ReasonKind = iota
	// ReasonFunctionBreakpoint is a function breakpoint.
	ReasonFunctionBreakpoint
	// ReasonBreakpoint is a source line breakpoint.
	ReasonBreakpoint
	// ReasonException is an assert or revert.
	ReasonException
	// ReasonDataBreakpoint is a data breakpoint.
	ReasonDataBreakpoint
)

// String returns the protocol name of the reason.
func (k ReasonKind) String() string {
	switch k {
	case ReasonStep:
		return "step"
	case ReasonFunctionBreakpoint:
		return "function breakpoint"
	case ReasonBreakpoint:
		return "breakpoint"
	case ReasonException:
		return "exception"
	case ReasonDataBreakpoint:
		return "data breakpoint"
	default:
		return "unknown"
	}
}

// Priority orders reasons for reporting; higher wins.
func (k ReasonKind) Priority() int { return int(k) }

// Reason explains a stop.
type Reason struct {
	Kind        ReasonKind
	Description string

	// BreakpointID is the protocol id of the user breakpoint, or 0.
	BreakpointID int
}

// Primary returns the highest priority reason among conds. It returns false
// if conds is empty.
func Primary(conds []Condition) (Reason, bool) {
	var best Reason
	found := false
	for _, c := range conds {
		r := c.Reason()
		if !found || r.Kind.Priority() > best.Kind.Priority() {
			best = r
			found = true
		}
	}
	return best, found
}

// Predicate is a condition defined by a function over the instruction.
// Step commands are built from predicates.
type Predicate struct {
	Match func(trace.Instruction) bool
	Why   Reason
}

// TriggeredBy implements Condition.
func (p Predicate) TriggeredBy(i trace.Instruction, _ Direction) bool { return p.Match(i) }

// Reason implements Condition.
func (p Predicate) Reason() Reason { return p.Why }

func step(description string, match func(trace.Instruction) bool) Predicate {
	return Predicate{Match: match, Why: Reason{Kind: ReasonStep, Description: description}}
}

// NewlineIn triggers on a Newline in the given call.
func NewlineIn(call trace.CallID) Condition {
	return step("step", func(i trace.Instruction) bool {
		n, ok := i.(trace.Newline)
		return ok && n.Context == call
	})
}

// AnyNewline triggers on every Newline.
func AnyNewline() Condition {
	return step("step", func(i trace.Instruction) bool {
		_, ok := i.(trace.Newline)
		return ok
	})
}

// AnyCall triggers on every Call.
func AnyCall() Condition {
	return step("step in", func(i trace.Instruction) bool {
		_, ok := i.(trace.Call)
		return ok
	})
}

// ReturnFrom triggers on the Return from the given call.
func ReturnFrom(call trace.CallID) Condition {
	return step("step out", func(i trace.Instruction) bool {
		r, ok := i.(trace.Return)
		return ok && r.Call == call
	})
}

// CallInto triggers on the Call into the given call.
func CallInto(call trace.CallID) Condition {
	return step("call entry", func(i trace.Instruction) bool {
		c, ok := i.(trace.Call)
		return ok && c.Call == call
	})
}

// Access is the kind of access watched by a data breakpoint.
type Access int

const (
	// Read watches Load instructions.
	Read Access = iota
	// Write watches Store instructions.
	Write
)

// String returns "read" or "write".
func (a Access) String() string {
	if a == Write {
		return "write"
	}
	return "read"
}

// ParseAccess expands a protocol access type into the accesses it watches.
// "readWrite", "any" and the empty string watch both.
func ParseAccess(s string) ([]Access, error) {
	switch s {
	case "read":
		return []Access{Read}, nil
	case "write":
		return []Access{Write}, nil
	case "readWrite", "any", "":
		return []Access{Read, Write}, nil
	default:
		return nil, fmt.Errorf("unknown access type %q", s)
	}
}

// DataBreakpoint triggers on a Load (Read) or Store (Write) of Location.
type DataBreakpoint struct {
	Location trace.LocationID
	Access   Access
	Name     string
	ID       int
}

// TriggeredBy implements Condition.
func (d DataBreakpoint) TriggeredBy(i trace.Instruction, _ Direction) bool {
	switch i := i.(type) {
	case trace.Load:
		return d.Access == Read && i.Location == d.Location
	case trace.Store:
		return d.Access == Write && i.Location == d.Location
	default:
		return false
	}
}

// Reason implements Condition.
func (d DataBreakpoint) Reason() Reason {
	name := d.Name
	if name == "" {
		name = string(d.Location)
	}
	return Reason{
		Kind:         ReasonDataBreakpoint,
		Description:  fmt.Sprintf("%s of %s", d.Access, name),
		BreakpointID: d.ID,
	}
}

// DataBreakpoints returns one DataBreakpoint per access in accesses.
func DataBreakpoints(loc trace.LocationID, name string, id int, accesses []Access) []Condition {
	conds := make([]Condition, len(accesses))
	for i, a := range accesses {
		conds[i] = DataBreakpoint{Location: loc, Access: a, Name: name, ID: id}
	}
	return conds
}

// LineBreakpoint triggers when a Newline makes Location the current line:
// the new line when running forward, the old line when running backward.
type LineBreakpoint struct {
	Location trace.SourceLocation
	ID       int
}

// TriggeredBy implements Condition.
func (b LineBreakpoint) TriggeredBy(i trace.Instruction, dir Direction) bool {
	n, ok := i.(trace.Newline)
	if !ok {
		return false
	}
	dest := n.New
	if dir == Backward {
		dest = n.Old
	}
	return dest.Line == b.Location.Line && SameFile(dest.File, b.Location.File)
}

// Reason implements Condition.
func (b LineBreakpoint) Reason() Reason {
	return Reason{
		Kind:         ReasonBreakpoint,
		Description:  fmt.Sprintf("breakpoint at %s", b.Location),
		BreakpointID: b.ID,
	}
}

// FunctionBreakpoint triggers on entering a function by name: a Call when
// running forward, a Return (re-entering at its end) when running backward.
type FunctionBreakpoint struct {
	Name  string
	ID    int
	Trace *trace.Trace
}

// TriggeredBy implements Condition.
func (b FunctionBreakpoint) TriggeredBy(i trace.Instruction, dir Direction) bool {
	var call trace.CallID
	switch i := i.(type) {
	case trace.Call:
		if dir != Forward {
			return false
		}
		call = i.Call
	case trace.Return:
		if dir != Backward {
			return false
		}
		call = i.Call
	default:
		return false
	}
	md, ok := b.Trace.Call(call)
	return ok && md.FunctionName == b.Name
}

// Reason implements Condition.
func (b FunctionBreakpoint) Reason() Reason {
	return Reason{
		Kind:         ReasonFunctionBreakpoint,
		Description:  fmt.Sprintf("function breakpoint on %s", b.Name),
		BreakpointID: b.ID,
	}
}

// Exception triggers on every Assert (Kind == trace.KindAssert) or Revert
// (Kind == trace.KindRevert).
type Exception struct {
	Kind trace.Kind
}

// TriggeredBy implements Condition.
func (e Exception) TriggeredBy(i trace.Instruction, _ Direction) bool {
	switch i.(type) {
	case trace.Assert:
		return e.Kind == trace.KindAssert
	case trace.Revert:
		return e.Kind == trace.KindRevert
	default:
		return false
	}
}

// Reason implements Condition.
func (e Exception) Reason() Reason {
	desc := "assertion failed"
	if e.Kind == trace.KindRevert {
		desc = "call reverted"
	}
	return Reason{Kind: ReasonException, Description: desc}
}

// SameFile reports whether two source paths name the same file. A relative
// path matches an absolute one when it is a trailing path of it.
func SameFile(a, b string) bool {
	a, b = filepath.ToSlash(filepath.Clean(a)), filepath.ToSlash(filepath.Clean(b))
	if a == b {
		return true
	}
	if len(a) < len(b) {
		a, b = b, a
	}
	return strings.HasSuffix(a, "/"+b)
}
