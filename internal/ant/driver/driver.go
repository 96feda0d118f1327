// Package driver defines the transport contract the router consumes and
// provides the serial implementation used with USB ANT sticks.
//
// A Driver moves whole messages. Framing, checksums and byte-level resync
// live below this interface; the router only ever sees decoded
// message.AntMessage values and typed transport errors.
package driver

import (
	"errors"

	"github.com/nerrad567/antplus-core/internal/ant/message"
)

// Driver errors.
var (
	// ErrClosed is returned when the driver has been closed.
	ErrClosed = errors.New("driver: closed")

	// ErrBadSync is returned when a frame does not start with the sync byte.
	ErrBadSync = errors.New("driver: bad sync byte")

	// ErrBadChecksum is returned when a frame's XOR checksum does not match.
	ErrBadChecksum = errors.New("driver: bad checksum")

	// ErrFrameTooLong is returned when a payload exceeds MaxPayloadSize.
	ErrFrameTooLong = errors.New("driver: frame too long")
)

// Driver sends and receives whole ANT messages.
//
// Implementations must not block in GetMessage: when nothing is pending they
// return (nil, nil).
type Driver interface {
	// SendMessage writes one message to the radio.
	SendMessage(msg message.TxMessage) error

	// GetMessage returns the next received message, or nil if none is ready.
	GetMessage() (*message.AntMessage, error)
}

// Logger is the logging interface used by drivers.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
