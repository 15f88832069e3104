package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTrace() *Trace {
	return &Trace{
		Storage:   &Structure{Children: []Child{{Name: "x", Tree: &Leaf{Location: "L0"}}}},
		Locations: map[LocationID]LocationMetadata{"L0": {Type: "uint", Name: "x"}},
		InitialStorage: map[LocationID]Value{
			"L0": "1",
		},
		Calls: map[CallID]CallMetadata{
			"C0": {FunctionName: "rule", Locals: &Structure{}},
		},
		Instructions: []Instruction{
			Call{Call: "C0"},
			Load{Location: "L0"},
			Return{Call: "C0"},
		},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(validTrace()))

	one := Value("1")
	wrong := Value("7")

	tests := []struct {
		name   string
		mutate func(*Trace)
	}{
		{"empty log", func(tr *Trace) { tr.Instructions = nil }},
		{"unknown call", func(tr *Trace) { tr.Instructions[0] = Call{Call: "C9"} }},
		{"unknown location", func(tr *Trace) { tr.Instructions[1] = Load{Location: "L9"} }},
		{"storage leaf without metadata", func(tr *Trace) {
			tr.Storage.Children = append(tr.Storage.Children, Child{Name: "y", Tree: &Leaf{Location: "L7"}})
		}},
		{"missing old value", func(tr *Trace) { tr.Instructions[1] = Store{Location: "L0", New: "2"} }},
		{"wrong old value", func(tr *Trace) { tr.Instructions[1] = Store{Location: "L0", Old: &wrong, New: "2"} }},
		{"old value for undefined location", func(tr *Trace) {
			delete(tr.InitialStorage, "L0")
			tr.Instructions[1] = Store{Location: "L0", Old: &one, New: "2"}
		}},
		{"mismatched return", func(tr *Trace) {
			tr.Calls["C1"] = CallMetadata{FunctionName: "f"}
			tr.Instructions[2] = Return{Call: "C1"}
		}},
		{"newline outside its call", func(tr *Trace) {
			tr.Calls["C1"] = CallMetadata{FunctionName: "f"}
			tr.Instructions[1] = Newline{Context: "C1"}
		}},
		{"newline from the wrong line", func(tr *Trace) {
			tr.Instructions[1] = Newline{Context: "C0", Old: SourceLocation{File: "r.spec", Line: 2}}
		}},
		{"return away from end location", func(tr *Trace) {
			md := tr.Calls["C0"]
			md.EndLocation = SourceLocation{File: "r.spec", Line: 9}
			tr.Calls["C0"] = md
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := validTrace()
			tt.mutate(tr)
			assert.ErrorIs(t, Validate(tr), ErrInvalidTrace)
		})
	}
}

func nestedLineTrace() *Trace {
	at := func(line int) SourceLocation { return SourceLocation{File: "r.spec", Line: line} }
	return &Trace{
		Locations:      map[LocationID]LocationMetadata{},
		InitialStorage: map[LocationID]Value{},
		Calls: map[CallID]CallMetadata{
			"c1": {FunctionName: "rule", StartLocation: at(1), EndLocation: at(2)},
			"c2": {FunctionName: "helper", StartLocation: at(4), EndLocation: at(5)},
		},
		Instructions: []Instruction{
			Call{Call: "c1"},
			Newline{Context: "c1", Old: at(1), New: at(2)},
			Call{Call: "c2"},
			Newline{Context: "c2", Old: at(4), New: at(5)},
			Return{Call: "c2"},
			Return{Call: "c1"},
		},
	}
}

func TestValidateTracksLinePerCall(t *testing.T) {
	require.NoError(t, Validate(nestedLineTrace()))

	t.Run("callee end location", func(t *testing.T) {
		tr := nestedLineTrace()
		md := tr.Calls["c2"]
		md.EndLocation = SourceLocation{File: "r.spec", Line: 9}
		tr.Calls["c2"] = md

		err := Validate(tr)
		require.ErrorIs(t, err, ErrInvalidTrace)
		assert.Contains(t, err.Error(), `instruction 4: return from "c2" at r.spec:5 but its end location is r.spec:9`)
	})

	t.Run("newline uses caller line", func(t *testing.T) {
		tr := nestedLineTrace()
		tr.Instructions[3] = Newline{Context: "c2", Old: SourceLocation{File: "r.spec", Line: 2}, New: SourceLocation{File: "r.spec", Line: 5}}

		err := Validate(tr)
		require.ErrorIs(t, err, ErrInvalidTrace)
		assert.Contains(t, err.Error(), `instruction 3: newline in "c2" leaves r.spec:2 but the call is at r.spec:4`)
	})

	t.Run("caller line survives callee", func(t *testing.T) {
		tr := nestedLineTrace()
		tr.Instructions = append(tr.Instructions[:5], Newline{Context: "c1", Old: SourceLocation{File: "r.spec", Line: 5}, New: SourceLocation{File: "r.spec", Line: 2}}, Return{Call: "c1"})

		err := Validate(tr)
		require.ErrorIs(t, err, ErrInvalidTrace)
		assert.Contains(t, err.Error(), `instruction 5: newline in "c1" leaves r.spec:5 but the call is at r.spec:2`)
	})
}
