// Package tracetest builds traces programmatically for tests.
//
//	b := tracetest.New()
//	b.Storage(func(s *tracetest.Tree) {
//	    s.Struct("ERC20", func(s *tracetest.Tree) {
//	        s.Var("uint256", "totalSupply", "100")
//	    })
//	})
//	b.Call("transferSpec", "ERC20.spec", 17, func(f *tracetest.Frame) {
//	    amount := f.Var("uint256", "amount", "15")
//	    f.Newline("ERC20.spec", 18)
//	    f.Load(amount)
//	})
//	tr := b.Trace()
//
// Stores record the correct old value, newlines record the previous line of the
// call, and each call's end location is the last line it executed.
package tracetest

import (
	"fmt"
	"sort"

	"github.com/dshills/tracedbg/internal/trace"
)

// Builder accumulates a trace.
type Builder struct {
	tr      *trace.Trace
	current map[trace.LocationID]trace.Value
	files   map[string]bool

	nextLocation int
	nextCall     int
}

// New returns an empty builder.
func New() *Builder {
	return &Builder{
		tr: &trace.Trace{
			Storage:        &trace.Structure{},
			Locations:      make(map[trace.LocationID]trace.LocationMetadata),
			InitialStorage: make(map[trace.LocationID]trace.Value),
			Calls:          make(map[trace.CallID]trace.CallMetadata),
		},
		current: make(map[trace.LocationID]trace.Value),
		files:   make(map[string]bool),
	}
}

// Trace returns the built trace.
func (b *Builder) Trace() *trace.Trace {
	b.tr.Sources = b.tr.Sources[:0]
	for f := range b.files {
		b.tr.Sources = append(b.tr.Sources, f)
	}
	sort.Strings(b.tr.Sources)
	return b.tr
}

// Storage declares persistent storage. Values given to Var become initial storage.
func (b *Builder) Storage(fn func(*Tree)) *trace.Structure {
	t := &Tree{b: b, st: b.tr.Storage}
	fn(t)
	return b.tr.Storage
}

// Call records a complete call: the Call instruction, body, and the Return.
func (b *Builder) Call(functionName, file string, line int, body func(*Frame)) trace.CallID {
	return b.call(functionName, file, line, body)
}

func (b *Builder) allocateLocation(typ, name string) trace.LocationID {
	id := trace.LocationID(fmt.Sprintf("location %d (%s)", b.nextLocation, name))
	b.nextLocation++
	b.tr.Locations[id] = trace.LocationMetadata{Type: typ, Name: name}
	return id
}

func (b *Builder) emit(i trace.Instruction) {
	b.tr.Instructions = append(b.tr.Instructions, i)
}

func (b *Builder) store(loc trace.LocationID, value string) {
	s := trace.Store{Location: loc, New: trace.Value(value)}
	if old, ok := b.current[loc]; ok {
		s.Old = &old
	}
	b.current[loc] = trace.Value(value)
	b.emit(s)
}

func (b *Builder) call(functionName, file string, line int, body func(*Frame)) trace.CallID {
	id := trace.CallID(fmt.Sprintf("call %d (%s)", b.nextCall, functionName))
	b.nextCall++
	b.files[file] = true

	start := trace.SourceLocation{File: file, Line: line}
	f := &Frame{id: id, line: start}
	f.Tree = Tree{b: b, st: &trace.Structure{}, frame: f}

	b.emit(trace.Call{Call: id})
	if body != nil {
		body(f)
	}
	b.emit(trace.Return{Call: id})

	b.tr.Calls[id] = trace.CallMetadata{
		FunctionName:  functionName,
		Locals:        f.st,
		StartLocation: start,
		EndLocation:   f.line,
	}
	return id
}

// Tree declares variables inside a structure. In storage, values become initial
// storage; in a frame, values are recorded as Store instructions.
type Tree struct {
	b     *Builder
	st    *trace.Structure
	frame *Frame
}

// Struct adds a nested structure called name.
func (t *Tree) Struct(name string, fn func(*Tree)) *trace.Structure {
	child := &Tree{b: t.b, st: &trace.Structure{Type: "struct"}, frame: t.frame}
	t.st.Children = append(t.st.Children, trace.Child{Name: name, Tree: child.st})
	if fn != nil {
		fn(child)
	}
	return child.st
}

// Var adds a leaf called name of type typ, optionally with an initial value.
func (t *Tree) Var(typ, name string, value ...string) trace.LocationID {
	loc := t.b.allocateLocation(typ, name)
	t.st.Children = append(t.st.Children, trace.Child{Name: name, Tree: &trace.Leaf{Location: loc, Type: typ}})
	if len(value) > 0 {
		if t.frame != nil {
			t.b.store(loc, value[0])
		} else {
			t.b.tr.InitialStorage[loc] = trace.Value(value[0])
			t.b.current[loc] = trace.Value(value[0])
		}
	}
	return loc
}

// Frame records the body of one call.
type Frame struct {
	Tree
	id   trace.CallID
	line trace.SourceLocation
}

// ID returns the call's identifier.
func (f *Frame) ID() trace.CallID { return f.id }

// Load records a read of loc.
func (f *Frame) Load(loc trace.LocationID) { f.b.emit(trace.Load{Location: loc}) }

// Store records a write of value to loc.
func (f *Frame) Store(loc trace.LocationID, value string) { f.b.store(loc, value) }

// Assert records a failing assertion.
func (f *Frame) Assert() { f.b.emit(trace.Assert{}) }

// Revert records a reverting call.
func (f *Frame) Revert() { f.b.emit(trace.Revert{}) }

// Newline moves the call to file:line.
func (f *Frame) Newline(file string, line int) {
	next := trace.SourceLocation{File: file, Line: line}
	f.b.files[file] = true
	f.b.emit(trace.Newline{Context: f.id, Old: f.line, New: next})
	f.line = next
}

// Call records a nested call.
func (f *Frame) Call(functionName, file string, line int, body func(*Frame)) trace.CallID {
	return f.b.call(functionName, file, line, body)
}
