package channel

import "errors"

// Channel errors.
var (
	// ErrConfigRejected is returned when the radio answers a configuration
	// command with anything but ResponseNoError. The handler is back in
	// StateClosed.
	ErrConfigRejected = errors.New("channel: configuration rejected")

	// ErrCommandFailed is returned when the radio reports an error for a
	// command the handler was not waiting on, such as a data transmission.
	ErrCommandFailed = errors.New("channel: command failed")

	// ErrNotClosed is returned by Open when the channel is not closed.
	ErrNotClosed = errors.New("channel: channel not closed")

	// ErrDetached is returned by Open when the handler has no channel.
	ErrDetached = errors.New("channel: no channel assigned")

	// ErrMailboxFull is returned when the outbound queue has no room.
	ErrMailboxFull = errors.New("channel: mailbox full")
)
