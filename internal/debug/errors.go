package debug

import "errors"

var (
	// ErrUnknownReference indicates a variables reference that was never allocated.
	ErrUnknownReference = errors.New("variable reference out of range")

	// ErrNoFrame indicates a frame id that does not name a stack frame.
	ErrNoFrame = errors.New("no such stack frame")

	// ErrNoValue indicates a location without a recorded value at the cursor.
	ErrNoValue = errors.New("no recorded value")

	// ErrNotLoaded indicates a request that needs a session which has ended.
	ErrNotLoaded = errors.New("session has ended")
)
