package trace

import (
	"encoding/json"
	"fmt"
)

// Kind identifies an instruction variant.
type Kind int

const (
	// KindLoad reads a location.
	KindLoad Kind = iota
	// KindStore writes a location.
	KindStore
	// KindCall begins a call.
	KindCall
	// KindReturn ends a call.
	KindReturn
	// KindAssert is a failing assertion.
	KindAssert
	// KindRevert is a reverting contract call.
	KindRevert
	// KindNewline moves a call to a new source line.
	KindNewline
)

// String returns the short name of the kind.
func (k Kind) String() string {
	switch k {
	case KindLoad:
		return "load"
	case KindStore:
		return "store"
	case KindCall:
		return "call"
	case KindReturn:
		return "return"
	case KindAssert:
		return "assert"
	case KindRevert:
		return "revert"
	case KindNewline:
		return "newline"
	default:
		return "unknown"
	}
}

// Instruction is one recorded, invertible event.
//
// The set of variants is closed: Load, Store, Call, Return, Assert, Revert and
// Newline. Code switching over instructions handles all seven.
type Instruction interface {
	Kind() Kind
	isInstruction()
}

// Load reads Location. It has no effect on state.
type Load struct {
	Location LocationID
}

// Store writes New into Location. Old is nil if the location was undefined.
type Store struct {
	Location LocationID
	Old      *Value
	New      Value
}

// Call begins the call identified by Call.
type Call struct {
	Call CallID
}

// Return ends the call identified by Call.
type Return struct {
	Call CallID
}

// Assert is an assertion in the rule that fails.
type Assert struct{}

// Revert is a contract call reverting.
type Revert struct{}

// Newline moves Context from source line Old to source line New.
type Newline struct {
	Context CallID
	Old     SourceLocation
	New     SourceLocation
}

func (Load) Kind() Kind    { return KindLoad }
func (Store) Kind() Kind   { return KindStore }
func (Call) Kind() Kind    { return KindCall }
func (Return) Kind() Kind  { return KindReturn }
func (Assert) Kind() Kind  { return KindAssert }
func (Revert) Kind() Kind  { return KindRevert }
func (Newline) Kind() Kind { return KindNewline }

func (Load) isInstruction()    {}
func (Store) isInstruction()   {}
func (Call) isInstruction()    {}
func (Return) isInstruction()  {}
func (Assert) isInstruction()  {}
func (Revert) isInstruction()  {}
func (Newline) isInstruction() {}

// Describe returns a one-line human readable rendering of i.
func Describe(i Instruction) string {
	switch i := i.(type) {
	case Load:
		return fmt.Sprintf("load %s", i.Location)
	case Store:
		if i.Old == nil {
			return fmt.Sprintf("store %s = %s", i.Location, i.New)
		}
		return fmt.Sprintf("store %s = %s (was %s)", i.Location, i.New, *i.Old)
	case Call:
		return fmt.Sprintf("call %s", i.Call)
	case Return:
		return fmt.Sprintf("return %s", i.Call)
	case Assert:
		return "assert"
	case Revert:
		return "revert"
	case Newline:
		return fmt.Sprintf("newline %s: %s -> %s", i.Context, i.Old, i.New)
	default:
		return "unknown"
	}
}

// Type tags used when encoding instructions.
const (
	loadTag    = "LoadInstruction"
	storeTag   = "StoreInstruction"
	callTag    = "CallInstruction"
	returnTag  = "ReturnInstruction"
	assertTag  = "AssertInstruction"
	revertTag  = "RevertInstruction"
	newlineTag = "NewlineInstruction"
)

// MarshalJSON implements json.Marshaler.
func (i Load) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string     `json:"type"`
		Location LocationID `json:"location"`
	}{loadTag, i.Location})
}

// MarshalJSON implements json.Marshaler.
func (i Store) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string     `json:"type"`
		Location LocationID `json:"location"`
		Old      *Value     `json:"oldValue"`
		New      Value      `json:"newValue"`
	}{storeTag, i.Location, i.Old, i.New})
}

// MarshalJSON implements json.Marshaler.
func (i Call) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		Call CallID `json:"call"`
	}{callTag, i.Call})
}

// MarshalJSON implements json.Marshaler.
func (i Return) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		Call CallID `json:"call"`
	}{returnTag, i.Call})
}

// MarshalJSON implements json.Marshaler.
func (Assert) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
	}{assertTag})
}

// MarshalJSON implements json.Marshaler.
func (Revert) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
	}{revertTag})
}

// MarshalJSON implements json.Marshaler.
func (i Newline) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string         `json:"type"`
		Context CallID         `json:"context"`
		Old     SourceLocation `json:"oldLine"`
		New     SourceLocation `json:"newLine"`
	}{newlineTag, i.Context, i.Old, i.New})
}
