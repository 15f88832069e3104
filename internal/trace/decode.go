package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tidwall/gjson"
)

// Decode reads a JSON encoded trace from r.
func Decode(r io.Reader) (*Trace, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}

	var t Trace
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadFile reads and decodes the trace stored at path.
func LoadFile(path string) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}
	defer f.Close()

	t, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return t, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Trace) UnmarshalJSON(data []byte) error {
	var raw struct {
		Storage        *Structure                      `json:"contracts"`
		Locations      map[LocationID]LocationMetadata `json:"locations"`
		InitialStorage map[LocationID]Value            `json:"initState"`
		Instructions   []json.RawMessage               `json:"instructions"`
		Calls          map[CallID]CallMetadata         `json:"calls"`
		Sources        []string                        `json:"sources"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode trace: %w", err)
	}

	instructions := make([]Instruction, len(raw.Instructions))
	for i, r := range raw.Instructions {
		ins, err := DecodeInstruction(r)
		if err != nil {
			return fmt.Errorf("instruction %d: %w", i, err)
		}
		instructions[i] = ins
	}

	*t = Trace{
		Storage:        raw.Storage,
		Locations:      raw.Locations,
		InitialStorage: raw.InitialStorage,
		Instructions:   instructions,
		Calls:          raw.Calls,
		Sources:        raw.Sources,
	}
	if t.Storage == nil {
		t.Storage = &Structure{}
	}
	if t.Locations == nil {
		t.Locations = make(map[LocationID]LocationMetadata)
	}
	if t.InitialStorage == nil {
		t.InitialStorage = make(map[LocationID]Value)
	}
	if t.Calls == nil {
		t.Calls = make(map[CallID]CallMetadata)
	}
	return nil
}

// normalizeTag maps "DataTree.Leaf", "StoreInstruction" and "store" style tags to
// a lower-case short name.
func normalizeTag(tag string) string {
	if i := strings.LastIndexByte(tag, '.'); i >= 0 {
		tag = tag[i+1:]
	}
	return strings.ToLower(strings.TrimSuffix(tag, "Instruction"))
}

// DecodeInstruction decodes a single tagged instruction record.
func DecodeInstruction(data []byte) (Instruction, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("malformed instruction record")
	}
	res := gjson.ParseBytes(data)
	tag := res.Get("type").String()

	switch normalizeTag(tag) {
	case "load":
		return Load{Location: LocationID(res.Get("location").String())}, nil
	case "store":
		s := Store{
			Location: LocationID(res.Get("location").String()),
			New:      decodeValue(res.Get("newValue")),
		}
		if old := res.Get("oldValue"); old.Exists() && old.Type != gjson.Null {
			v := decodeValue(old)
			s.Old = &v
		}
		return s, nil
	case "call":
		return Call{Call: CallID(res.Get("call").String())}, nil
	case "return":
		return Return{Call: CallID(res.Get("call").String())}, nil
	case "assert":
		return Assert{}, nil
	case "revert":
		return Revert{}, nil
	case "newline":
		return Newline{
			Context: CallID(res.Get("context").String()),
			Old:     decodeSourceLocation(res.Get("oldLine")),
			New:     decodeSourceLocation(res.Get("newLine")),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownInstruction, tag)
	}
}

// DecodeTree decodes a tagged data tree record.
func DecodeTree(data []byte) (DataTree, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("malformed data tree record")
	}
	return decodeTree(gjson.ParseBytes(data))
}

func decodeTree(res gjson.Result) (DataTree, error) {
	tag := res.Get("type").String()
	kind := normalizeTag(tag)
	if kind == "" {
		switch {
		case res.Get("location").Exists():
			kind = "leaf"
		case res.Get("children").Exists():
			kind = "structure"
		}
	}

	switch kind {
	case "leaf":
		return &Leaf{
			Location: LocationID(res.Get("location").String()),
			Type:     res.Get("cvlType").String(),
		}, nil
	case "structure":
		st := &Structure{Type: res.Get("cvlType").String()}
		for i, pair := range res.Get("children").Array() {
			child, err := decodeTree(pair.Get("second"))
			if err != nil {
				return nil, fmt.Errorf("child %d: %w", i, err)
			}
			st.Children = append(st.Children, Child{Name: pair.Get("first").String(), Tree: child})
		}
		return st, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTree, tag)
	}
}

func decodeValue(res gjson.Result) Value {
	if res.Type == gjson.String {
		return Value(res.String())
	}
	return Value(res.Get("value").String())
}

func decodeSourceLocation(res gjson.Result) SourceLocation {
	return SourceLocation{
		File: res.Get("file").String(),
		Line: int(res.Get("line").Int()),
	}
}
