package trace

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DataTree describes the static shape of storage or of a call's locals.
// It is either a *Leaf or a *Structure.
type DataTree interface {
	// TypeName returns the declared type of the tree.
	TypeName() string

	// Get returns the location of the leaf named by path.
	Get(path ...string) (LocationID, error)

	isDataTree()
}

// Leaf binds a single location.
type Leaf struct {
	Location LocationID
	Type     string
}

// Child is a named entry of a Structure.
type Child struct {
	Name string
	Tree DataTree
}

// Structure is an ordered list of named children. It is used for contracts,
// structs and mapping-like containers.
type Structure struct {
	Children []Child
	Type     string
}

func (*Leaf) isDataTree()      {}
func (*Structure) isDataTree() {}

// TypeName returns the declared type of the leaf.
func (l *Leaf) TypeName() string { return l.Type }

// TypeName returns the declared type or kind label of the structure.
func (s *Structure) TypeName() string { return s.Type }

// Get returns the leaf's location. Any further path element is an error.
func (l *Leaf) Get(path ...string) (LocationID, error) {
	if len(path) != 0 {
		return "", fmt.Errorf("%w: leaf %s has no child %q", ErrPathNotFound, l.Location, path[0])
	}
	return l.Location, nil
}

// Get descends the structure name by name and returns the location of the leaf
// at the end of path.
func (s *Structure) Get(path ...string) (LocationID, error) {
	tree, err := s.Lookup(path...)
	if err != nil {
		return "", err
	}
	leaf, ok := tree.(*Leaf)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotLeaf, strings.Join(path, "."))
	}
	return leaf.Location, nil
}

// Lookup returns the subtree named by path. An empty path returns s itself.
func (s *Structure) Lookup(path ...string) (DataTree, error) {
	var current DataTree = s
	for i, name := range path {
		st, ok := current.(*Structure)
		if !ok {
			return nil, fmt.Errorf("%w: %s is a leaf", ErrPathNotFound, strings.Join(path[:i], "."))
		}
		child, ok := st.Child(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrPathNotFound, strings.Join(path[:i+1], "."))
		}
		current = child
	}
	return current, nil
}

// Child returns the first child called name.
func (s *Structure) Child(name string) (DataTree, bool) {
	for _, c := range s.Children {
		if c.Name == name {
			return c.Tree, true
		}
	}
	return nil, false
}

// Walk calls fn for every leaf under s with the leaf's path.
func (s *Structure) Walk(fn func(path []string, leaf *Leaf)) {
	s.walk(nil, fn)
}

func (s *Structure) walk(prefix []string, fn func([]string, *Leaf)) {
	for _, c := range s.Children {
		path := append(append([]string(nil), prefix...), c.Name)
		switch t := c.Tree.(type) {
		case *Leaf:
			fn(path, t)
		case *Structure:
			t.walk(path, fn)
		}
	}
}

const (
	leafTag      = "DataTree.Leaf"
	structureTag = "DataTree.Structure"
)

// MarshalJSON implements json.Marshaler.
func (l *Leaf) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string     `json:"type"`
		Location LocationID `json:"location"`
		CVLType  string     `json:"cvlType"`
	}{leafTag, l.Location, l.Type})
}

// MarshalJSON implements json.Marshaler.
func (s *Structure) MarshalJSON() ([]byte, error) {
	children := s.Children
	if children == nil {
		children = []Child{}
	}
	return json.Marshal(struct {
		Type     string  `json:"type"`
		Children []Child `json:"children"`
		CVLType  string  `json:"cvlType"`
	}{structureTag, children, s.Type})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Structure) UnmarshalJSON(data []byte) error {
	tree, err := DecodeTree(data)
	if err != nil {
		return err
	}
	st, ok := tree.(*Structure)
	if !ok {
		return fmt.Errorf("%w: expected structure, got leaf", ErrUnknownTree)
	}
	*s = *st
	return nil
}

// MarshalJSON encodes the child as a {"first": name, "second": tree} pair.
func (c Child) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		First  string   `json:"first"`
		Second DataTree `json:"second"`
	}{c.Name, c.Tree})
}
