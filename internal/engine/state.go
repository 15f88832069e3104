package engine

import (
	"fmt"
	"maps"

	"github.com/dshills/tracedbg/internal/trace"
)

// Frame is a call that is currently executing.
type Frame struct {
	// Call identifies the activation.
	Call trace.CallID

	// Line is the source line the call is currently on.
	Line trace.SourceLocation

	md trace.CallMetadata
}

// FunctionName returns the name of the called function.
func (f *Frame) FunctionName() string { return f.md.FunctionName }

// Locals returns the shape of the call's local variables.
func (f *Frame) Locals() *trace.Structure {
	if f.md.Locals == nil {
		return &trace.Structure{}
	}
	return f.md.Locals
}

// State is the runtime state of one replay.
type State struct {
	trace   *trace.Trace
	stack   []*Frame
	storage map[trace.LocationID]trace.Value

	// cursor is the index of the next instruction to apply.
	cursor int
}

// New creates a State for t and applies its first instruction.
func New(t *trace.Trace) (*State, error) {
	if len(t.Instructions) == 0 {
		return nil, ErrEmptyTrace
	}

	s := &State{
		trace:   t,
		storage: maps.Clone(t.InitialStorage),
	}
	if s.storage == nil {
		s.storage = make(map[trace.LocationID]trace.Value)
	}

	if err := s.apply(t.Instructions[0]); err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	s.cursor = 1
	return s, nil
}

// Trace returns the trace being replayed.
func (s *State) Trace() *trace.Trace { return s.trace }

// Cursor returns the index of the next instruction to apply.
func (s *State) Cursor() int { return s.cursor }

// HasNext reports whether an instruction remains to be applied.
func (s *State) HasNext() bool { return s.cursor < len(s.trace.Instructions) }

// HasPrevious reports whether an instruction can be unapplied. The bootstrap
// instruction never can.
func (s *State) HasPrevious() bool { return s.cursor > 1 }

// Depth returns the number of frames on the stack.
func (s *State) Depth() int { return len(s.stack) }

// Stack returns the frames, most recent last. The slice must not be modified.
func (s *State) Stack() []*Frame { return s.stack }

// Top returns the currently executing frame.
func (s *State) Top() (*Frame, bool) {
	if len(s.stack) == 0 {
		return nil, false
	}
	return s.stack[len(s.stack)-1], true
}

// Value returns the current value of loc. The second result is false if the
// location is undefined.
func (s *State) Value(loc trace.LocationID) (trace.Value, bool) {
	v, ok := s.storage[loc]
	return v, ok
}

// Storage returns a copy of the current storage map.
func (s *State) Storage() map[trace.LocationID]trace.Value {
	return maps.Clone(s.storage)
}

// FrameSnapshot is the comparable form of a Frame.
type FrameSnapshot struct {
	Call trace.CallID
	Line trace.SourceLocation
}

// Snapshot is a comparable copy of the full runtime state.
type Snapshot struct {
	Stack   []FrameSnapshot
	Storage map[trace.LocationID]trace.Value
	Cursor  int
}

// Snapshot copies the runtime state.
func (s *State) Snapshot() Snapshot {
	stack := make([]FrameSnapshot, len(s.stack))
	for i, f := range s.stack {
		stack[i] = FrameSnapshot{Call: f.Call, Line: f.Line}
	}
	return Snapshot{
		Stack:   stack,
		Storage: s.Storage(),
		Cursor:  s.cursor,
	}
}
