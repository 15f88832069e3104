package debug

import (
	"fmt"
	"strings"

	"github.com/dshills/tracedbg/internal/debug/dap"
	"github.com/dshills/tracedbg/internal/engine"
	"github.com/dshills/tracedbg/internal/trace"
)

// GlobalsReference is the fixed reference of the Globals scope.
const GlobalsReference = 1

// Reference is one entry of the reference table.
type Reference struct {
	// Tree is the structure whose children the reference shows.
	Tree *trace.Structure

	// Path is the dotted path of Tree from its scope root, empty for a root.
	Path string

	// Frame is the call of a stack frame reference, empty otherwise.
	Frame trace.CallID
}

// References is the append-only table of variable references. Id 0 means
// "no children" and is never allocated; id 1 is the Globals scope.
type References struct {
	entries []Reference
	globals *trace.Structure
}

// NewReferences creates a table holding the Globals scope for storage.
func NewReferences(storage *trace.Structure) *References {
	r := &References{globals: storage}
	r.Reset()
	return r
}

// Reset discards every reference except Globals.
func (r *References) Reset() {
	r.entries = []Reference{{}, {Tree: r.globals}}
}

// Allocate adds ref to the table and returns its id.
func (r *References) Allocate(ref Reference) int {
	r.entries = append(r.entries, ref)
	return len(r.entries) - 1
}

// Get returns the reference with the given id.
func (r *References) Get(id int) (Reference, error) {
	if id <= 0 || id >= len(r.entries) {
		return Reference{}, fmt.Errorf("%w: %d", ErrUnknownReference, id)
	}
	return r.entries[id], nil
}

// Frame returns the call shown by the frame reference id.
func (r *References) Frame(id int) (trace.CallID, error) {
	ref, err := r.Get(id)
	if err != nil {
		return "", fmt.Errorf("%w: %d", ErrNoFrame, id)
	}
	if ref.Frame == "" {
		return "", fmt.Errorf("%w: reference %d is not a frame", ErrNoFrame, id)
	}
	return ref.Frame, nil
}

// Len returns the number of ids handed out, including the reserved id 0.
func (r *References) Len() int { return len(r.entries) }

// Materialize returns the children of the structure shown by reference id.
// Leaves are resolved against the current storage and omitted when they have
// no value. Nested structures get a fresh reference.
func Materialize(refs *References, st *engine.State, id int) ([]dap.Variable, error) {
	ref, err := refs.Get(id)
	if err != nil {
		return nil, err
	}

	vars := make([]dap.Variable, 0, len(ref.Tree.Children))
	for _, child := range ref.Tree.Children {
		v, ok := variable(refs, st, child.Name, joinPath(ref.Path, child.Name), child.Tree)
		if ok {
			vars = append(vars, v)
		}
	}
	return vars, nil
}

// visibleChildren counts the children of s that variable renders: structures,
// and leaves whose location holds a value.
func visibleChildren(st *engine.State, s *trace.Structure) int {
	n := 0
	for _, child := range s.Children {
		switch c := child.Tree.(type) {
		case *trace.Leaf:
			if _, ok := st.Value(c.Location); ok {
				n++
			}
		case *trace.Structure:
			n++
		}
	}
	return n
}

// variable renders one tree node. It returns false for a leaf without a value.
func variable(refs *References, st *engine.State, name, path string, node trace.DataTree) (dap.Variable, bool) {
	switch n := node.(type) {
	case *trace.Leaf:
		value, ok := st.Value(n.Location)
		if !ok {
			return dap.Variable{}, false
		}
		return dap.Variable{
			Name:         name,
			Value:        string(value),
			Type:         n.Type,
			EvaluateName: path,
		}, true

	case *trace.Structure:
		return dap.Variable{
			Name:               name,
			Value:              structureValue(n),
			Type:               n.Type,
			EvaluateName:       path,
			VariablesReference: refs.Allocate(Reference{Tree: n, Path: path}),
			NamedVariables:     visibleChildren(st, n),
		}, true

	default:
		return dap.Variable{}, false
	}
}

func structureValue(s *trace.Structure) string {
	if s.Type != "" {
		return s.Type
	}
	return "{...}"
}

func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}

func splitPath(path string) []string {
	parts := strings.Split(strings.TrimSpace(path), ".")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
