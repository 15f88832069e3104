package engine

import (
	"fmt"
	"maps"
	"slices"

	"github.com/dshills/tracedbg/internal/trace"
)

// Equal reports whether s and o describe the same runtime state.
func (s Snapshot) Equal(o Snapshot) bool {
	return s.Cursor == o.Cursor &&
		slices.Equal(s.Stack, o.Stack) &&
		maps.Equal(s.Storage, o.Storage)
}

// RoundTripReport summarizes a RoundTrip run.
type RoundTripReport struct {
	// Forward and Backward count the instructions applied in each direction.
	Forward  int
	Backward int
	// Final is the state at the end of the trace.
	Final Snapshot
}

// RoundTrip runs t from its bootstrap state to the end and back, checking
// that every call stack seen going forward is seen again going backward and
// that the bootstrap state is restored.
func RoundTrip(t *trace.Trace) (RoundTripReport, error) {
	var rep RoundTripReport

	st, err := New(t)
	if err != nil {
		return rep, err
	}
	initial := st.Snapshot()

	stacks := [][]FrameSnapshot{initial.Stack}
	for {
		_, ok, err := st.Step(Forward)
		if err != nil {
			return rep, fmt.Errorf("forward: %w", err)
		}
		if !ok {
			break
		}
		rep.Forward++
		stacks = append(stacks, st.Snapshot().Stack)
	}
	rep.Final = st.Snapshot()

	for n := len(stacks) - 2; n >= 0; n-- {
		i, ok, err := st.Step(Backward)
		if err != nil {
			return rep, fmt.Errorf("backward: %w", err)
		}
		if !ok {
			break
		}
		rep.Backward++
		if got := st.Snapshot().Stack; !slices.Equal(got, stacks[n]) {
			return rep, fmt.Errorf("%w: undoing instruction %d (%v) leaves stack %v, want %v",
				ErrRoundTrip, st.Cursor(), i, got, stacks[n])
		}
	}

	if got := st.Snapshot(); !got.Equal(initial) {
		return rep, fmt.Errorf("%w: cursor %d depth %d after reverse, want cursor %d depth %d",
			ErrRoundTrip, got.Cursor, len(got.Stack), initial.Cursor, len(initial.Stack))
	}
	return rep, nil
}
