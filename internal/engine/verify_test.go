package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/tracedbg/internal/trace"
)

func TestRoundTripReport(t *testing.T) {
	tr := tokenTrace()

	rep, err := RoundTrip(tr)
	require.NoError(t, err)
	assert.Equal(t, len(tr.Instructions)-1, rep.Forward)
	assert.Equal(t, rep.Forward, rep.Backward)
	assert.Equal(t, len(tr.Instructions), rep.Final.Cursor)
}

func TestRoundTripCorrupt(t *testing.T) {
	tr := scenarioTrace()
	tr.Calls["c2"] = trace.CallMetadata{FunctionName: "other"}
	tr.Instructions[4] = trace.Return{Call: "c2"}

	_, err := RoundTrip(tr)
	assert.ErrorIs(t, err, ErrCorruptTrace)

	_, err = RoundTrip(&trace.Trace{})
	assert.ErrorIs(t, err, ErrEmptyTrace)
}

func TestSnapshotEqual(t *testing.T) {
	st := newState(t, scenarioTrace())
	a := st.Snapshot()
	assert.True(t, a.Equal(st.Snapshot()))

	_, _, err := st.Step(Forward)
	require.NoError(t, err)
	assert.False(t, a.Equal(st.Snapshot()))
}

func TestRoundTripChecksEveryStack(t *testing.T) {
	at := func(line int) trace.SourceLocation { return trace.SourceLocation{File: "r.spec", Line: line} }
	tr := &trace.Trace{
		InitialStorage: map[trace.LocationID]trace.Value{},
		Calls: map[trace.CallID]trace.CallMetadata{
			"c1": {FunctionName: "rule", StartLocation: at(1), EndLocation: at(1)},
			"c2": {FunctionName: "helper", StartLocation: at(4), EndLocation: at(9)},
		},
		Instructions: []trace.Instruction{
			trace.Call{Call: "c1"},
			trace.Call{Call: "c2"},
			trace.Newline{Context: "c2", Old: at(4), New: at(5)},
			trace.Return{Call: "c2"},
			trace.Return{Call: "c1"},
		},
	}

	_, err := RoundTrip(tr)
	require.ErrorIs(t, err, ErrRoundTrip)
	assert.Contains(t, err.Error(), "undoing instruction 3")
	require.ErrorIs(t, trace.Validate(tr), trace.ErrInvalidTrace)

	md := tr.Calls["c2"]
	md.EndLocation = at(5)
	tr.Calls["c2"] = md
	require.NoError(t, trace.Validate(tr))
	_, err = RoundTrip(tr)
	require.NoError(t, err)
}

func TestValidTracesRoundTrip(t *testing.T) {
	for name, tr := range map[string]*trace.Trace{
		"scenario": scenarioTrace(),
		"token":    tokenTrace(),
	} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, trace.Validate(tr))
			_, err := RoundTrip(tr)
			require.NoError(t, err)
		})
	}
}
