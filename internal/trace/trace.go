package trace

import (
	"encoding/json"
	"fmt"
)

// LocationID identifies one addressable unit of program state.
type LocationID string

// CallID identifies one activation of a function or rule.
type CallID string

// Value is data stored in a location.
//
// It is encoded as {"value": "..."}; a bare JSON string is accepted on decode.
type Value string

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Value string `json:"value"`
	}{string(v)})
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = Value(s)
		return nil
	}

	var wrapped struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	*v = Value(wrapped.Value)
	return nil
}

// SourceLocation is a line in a source file.
type SourceLocation struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

// String returns "file:line".
func (l SourceLocation) String() string {
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// LocationMetadata describes a location.
type LocationMetadata struct {
	// Type is the declared type displayed for the location.
	Type string `json:"type"`

	// Name is the human-readable name displayed for data breakpoints.
	Name string `json:"name"`
}

// CallMetadata describes one call.
type CallMetadata struct {
	// FunctionName is the name of the called function or rule.
	FunctionName string `json:"functionName"`

	// Locals is the shape of the call's local variables.
	Locals *Structure `json:"locals"`

	// StartLocation is the source line at which the call begins.
	StartLocation SourceLocation `json:"startLocation"`

	// EndLocation is the last source line executed by the call.
	EndLocation SourceLocation `json:"endLocation"`
}

// Trace is a complete recorded run.
type Trace struct {
	// Storage describes the shape of all persistent storage.
	Storage *Structure `json:"contracts"`

	// Locations maps every location to its metadata.
	Locations map[LocationID]LocationMetadata `json:"locations"`

	// InitialStorage holds the value of every location defined before the run.
	// Absent entries are undefined.
	InitialStorage map[LocationID]Value `json:"initState"`

	// Instructions is the full log, in execution order.
	Instructions []Instruction `json:"instructions"`

	// Calls maps every call to its metadata.
	Calls map[CallID]CallMetadata `json:"calls"`

	// Sources lists the source files referenced by the trace.
	Sources []string `json:"sources"`
}

// Call returns the metadata for id.
func (t *Trace) Call(id CallID) (CallMetadata, bool) {
	md, ok := t.Calls[id]
	return md, ok
}

// Location returns the metadata for id.
func (t *Trace) Location(id LocationID) (LocationMetadata, bool) {
	md, ok := t.Locations[id]
	return md, ok
}

// LocationName returns the display name of a location, falling back to its id.
func (t *Trace) LocationName(id LocationID) string {
	if md, ok := t.Locations[id]; ok && md.Name != "" {
		return md.Name
	}
	return string(id)
}
