package dap

import "errors"

var (
	// ErrFraming indicates a malformed message header.
	ErrFraming = errors.New("malformed message")

	// ErrUnknownCommand indicates a request the handler does not implement.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrNotRequest indicates a message from the client that is not a request.
	ErrNotRequest = errors.New("message is not a request")
)
