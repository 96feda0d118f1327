package message

import "errors"

// Domain errors for message decoding.
var (
	// ErrUnknownMessage is returned when a message ID has no receivable
	// representation in this package.
	ErrUnknownMessage = errors.New("message: unknown message id")

	// ErrShortPayload is returned when a payload is shorter than the fixed
	// layout of its message ID requires.
	ErrShortPayload = errors.New("message: payload too short")
)
