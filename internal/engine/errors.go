package engine

import "errors"

// Errors returned by the engine.
var (
	// ErrEmptyTrace is returned when a trace has no instructions to bootstrap from.
	ErrEmptyTrace = errors.New("trace has no instructions")

	// ErrCorruptTrace is returned when an instruction is inconsistent with the
	// reconstructed state, for example a Return from a call that is not executing.
	ErrCorruptTrace = errors.New("instruction inconsistent with trace state")

	// ErrUnknownInstruction is returned for an instruction variant the engine does not handle.
	ErrUnknownInstruction = errors.New("unknown instruction")

	// ErrBadCondition is returned when a scripted condition cannot be compiled.
	ErrBadCondition = errors.New("invalid condition")
)

// ErrRoundTrip is returned when running a trace to its end and back does not
// restore the bootstrap state.
var ErrRoundTrip = errors.New("trace does not round trip")
