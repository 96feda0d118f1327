package router

import "errors"

// Router errors.
var (
	// ErrOutOfChannels is returned when every usable slot is occupied.
	ErrOutOfChannels = errors.New("router: out of channels")

	// ErrChannelAlreadyAssigned is returned when the requested slot is occupied.
	ErrChannelAlreadyAssigned = errors.New("router: channel already assigned")

	// ErrDriver wraps every failure reported by the driver. The driver's
	// own error stays in the chain.
	ErrDriver = errors.New("router: driver error")

	// ErrChannelOutOfBounds is returned for slot indexes the hardware or the
	// slot table cannot address.
	ErrChannelOutOfBounds = errors.New("router: channel out of bounds")

	// ErrChannelNotAssociated is returned when no slot holds the channel, or
	// a message addresses an empty slot.
	ErrChannelNotAssociated = errors.New("router: channel not associated")

	// ErrFailedToGetCapabilities is returned by New when the radio does not
	// report its capabilities within the poll budget.
	ErrFailedToGetCapabilities = errors.New("router: failed to get capabilities")
)
