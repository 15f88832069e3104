package trace

import "errors"

// Errors returned by the trace package.
var (
	// ErrPathNotFound is returned when a DataTree path names a child that does not exist.
	ErrPathNotFound = errors.New("path not found")

	// ErrNotLeaf is returned when a DataTree path does not end at a leaf.
	ErrNotLeaf = errors.New("path does not name a leaf")

	// ErrUnknownInstruction is returned when an instruction record has an unknown type tag.
	ErrUnknownInstruction = errors.New("unknown instruction type")

	// ErrUnknownTree is returned when a data tree record has an unknown type tag.
	ErrUnknownTree = errors.New("unknown data tree type")

	// ErrInvalidTrace is returned when a trace fails validation.
	ErrInvalidTrace = errors.New("invalid trace")
)
