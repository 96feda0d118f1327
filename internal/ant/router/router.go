package router

import (
	"fmt"

	"github.com/nerrad567/antplus-core/internal/ant/driver"
	"github.com/nerrad567/antplus-core/internal/ant/message"
)

const (
	// MaxChannels is the highest channel count any known ANT radio reports.
	// Radios may report fewer; see Router.MaxChannels.
	MaxChannels = 15

	// capabilityPolls bounds how many Process calls New makes while waiting
	// for the radio's capabilities.
	capabilityPolls = 25
)

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// RxCallback observes every inbound message before dispatch.
type RxCallback func(msg *message.AntMessage)

// Router owns a driver and the channel slot table.
type Router struct {
	driver       driver.Driver
	channels     [MaxChannels]Channel
	maxChannels  uint8
	resetRestore bool
	rxCallback   RxCallback
	logger       Logger
}

// New resets the radio and negotiates its capabilities.
//
// Parameters:
//   - drv: Driver the router takes ownership of until Release
//
// Returns:
//   - *Router: Router ready for channels, with MaxChannels set
//   - error: ErrDriver if a send fails, a dispatch error from Process, or
//     ErrFailedToGetCapabilities if 25 polls pass without a reply
func New(drv driver.Driver) (*Router, error) {
	r := &Router{driver: drv}

	if err := r.Reset(false); err != nil {
		return nil, err
	}

	// Stale input from a previous session. A failing read just ends the purge.
	for {
		msg, err := drv.GetMessage()
		if err != nil || msg == nil {
			break
		}
	}

	if err := r.Send(&message.RequestMessage{Channel: 0, Requested: message.IDCapabilities}); err != nil {
		return nil, err
	}

	for i := 0; i < capabilityPolls && r.maxChannels == 0; i++ {
		if err := r.Process(); err != nil {
			return nil, err
		}
	}
	if r.maxChannels == 0 {
		return nil, fmt.Errorf("%w after %d polls", ErrFailedToGetCapabilities, capabilityPolls)
	}
	return r, nil
}

// SetLogger sets the logger for dispatch diagnostics.
func (r *Router) SetLogger(logger Logger) {
	r.logger = logger
}

// SetRxMessageCallback registers an observer for every inbound message.
// Pass nil to remove it.
func (r *Router) SetRxMessageCallback(f RxCallback) {
	r.rxCallback = f
}

// MaxChannels returns the channel count reported by the radio.
func (r *Router) MaxChannels() int {
	return int(r.maxChannels)
}

// ResetRestore reports whether the last Reset asked to keep associations.
func (r *Router) ResetRestore() bool {
	return r.resetRestore
}

// Channel returns the occupant of slot index, or nil.
func (r *Router) Channel(index int) Channel {
	if index < 0 || index >= MaxChannels {
		return nil
	}
	return r.channels[index]
}

// Slots returns a copy of the slot table.
func (r *Router) Slots() [MaxChannels]Channel {
	return r.channels
}

// AddChannel puts ch in the first free slot and tells it its index.
//
// Returns ErrOutOfChannels if every slot the radio supports is occupied.
func (r *Router) AddChannel(ch Channel) error {
	for i := 0; i < int(r.maxChannels) && i < MaxChannels; i++ {
		if r.channels[i] == nil {
			r.assign(ch, i)
			return nil
		}
	}
	return ErrOutOfChannels
}

// AddChannelAtIndex puts ch in a specific slot.
//
// Returns ErrChannelOutOfBounds if index is not below MaxChannels() and
// ErrChannelAlreadyAssigned if the slot is occupied.
func (r *Router) AddChannelAtIndex(ch Channel, index int) error {
	if index < 0 || index >= int(r.maxChannels) || index >= MaxChannels {
		return fmt.Errorf("%w: index %d, radio supports %d", ErrChannelOutOfBounds, index, r.maxChannels)
	}
	if r.channels[index] != nil {
		return fmt.Errorf("%w: index %d", ErrChannelAlreadyAssigned, index)
	}
	r.assign(ch, index)
	return nil
}

func (r *Router) assign(ch Channel, index int) {
	ch.SetChannel(AssignedTo(uint8(index))) //nolint:gosec // index < MaxChannels
	r.channels[index] = ch
}

// RemoveChannel frees the slot holding ch and closes and unassigns the
// hardware channel.
//
// Returns ErrChannelNotAssociated if no slot holds this exact channel.
func (r *Router) RemoveChannel(ch Channel) error {
	for i, occupant := range r.channels {
		if occupant == nil || occupant != ch {
			continue
		}
		r.channels[i] = nil
		ch.SetChannel(Unassigned)

		index := uint8(i) //nolint:gosec // i < MaxChannels
		if err := r.Send(&message.CloseChannel{Channel: index}); err != nil {
			return err
		}
		return r.Send(&message.UnassignChannel{Channel: index})
	}
	return ErrChannelNotAssociated
}

// Reset reboots the radio.
//
// With restore false every channel is dissociated: its slot is cleared and
// it is told it is unassigned. No close or unassign commands are sent since
// the reset drops them in hardware. With restore true associations are
// kept.
func (r *Router) Reset(restore bool) error {
	if err := r.Send(message.ResetSystem{}); err != nil {
		return err
	}
	r.resetRestore = restore
	if !restore {
		for i, ch := range r.channels {
			if ch == nil {
				continue
			}
			r.channels[i] = nil
			ch.SetChannel(Unassigned)
		}
	}
	return nil
}

// Send passes a message straight to the driver.
func (r *Router) Send(msg message.TxMessage) error {
	if err := r.driver.SendMessage(msg); err != nil {
		return fmt.Errorf("%w: sending %s: %w", ErrDriver, msg.MessageID(), err)
	}
	return nil
}

// Process runs one poll cycle: drain then flush.
//
// Draining stops at the first driver error or routing error. Errors a
// channel returns from ReceiveMessage are logged and do not stop the
// drain.
func (r *Router) Process() error {
	for {
		msg, err := r.driver.GetMessage()
		if err != nil {
			return fmt.Errorf("%w: receiving: %w", ErrDriver, err)
		}
		if msg == nil {
			break
		}
		if err := r.handle(msg); err != nil {
			return err
		}
	}

	for i, ch := range r.channels {
		if ch == nil {
			continue
		}
		for out := ch.SendMessage(); out != nil; out = ch.SendMessage() {
			if err := r.Send(out); err != nil {
				return fmt.Errorf("flushing slot %d: %w", i, err)
			}
		}
	}
	return nil
}

// Release hands the driver back. The router must not be used afterwards.
func (r *Router) Release() driver.Driver {
	drv := r.driver
	r.driver = nil
	for i := range r.channels {
		r.channels[i] = nil
	}
	return drv
}

func (r *Router) handle(msg *message.AntMessage) error {
	if r.rxCallback != nil {
		r.rxCallback(msg)
	}

	switch m := msg.Message.(type) {
	case message.ChannelScoped:
		return r.route(m.ChannelNumber(), msg)

	case *message.Capabilities:
		r.broadcast(msg)
		// Set once; later replies never resize the table.
		if r.maxChannels == 0 && m.MaxChannels != 0 {
			r.maxChannels = m.MaxChannels
			if r.logger != nil {
				r.logger.Info("radio capabilities received",
					"max_channels", m.MaxChannels,
					"max_networks", m.MaxNetworks,
				)
			}
		}

	case *message.StartUpMessage,
		*message.AdvancedBurstCapabilities,
		*message.AdvancedBurstCurrentConfiguration,
		*message.EncryptionModeParameters:
		r.broadcast(msg)
	}

	// Remaining kinds are for the observer only.
	return nil
}

func (r *Router) route(channel uint8, msg *message.AntMessage) error {
	if int(channel) >= MaxChannels {
		return fmt.Errorf("%w: %s for channel %d", ErrChannelOutOfBounds, msg.Message.MessageID(), channel)
	}
	ch := r.channels[channel]
	if ch == nil {
		return fmt.Errorf("%w: %s for channel %d", ErrChannelNotAssociated, msg.Message.MessageID(), channel)
	}
	r.deliver(int(channel), ch, msg)
	return nil
}

func (r *Router) broadcast(msg *message.AntMessage) {
	for i, ch := range r.channels {
		if ch != nil {
			r.deliver(i, ch, msg)
		}
	}
}

func (r *Router) deliver(index int, ch Channel, msg *message.AntMessage) {
	if err := ch.ReceiveMessage(msg); err != nil && r.logger != nil {
		r.logger.Warn("channel rejected message",
			"slot", index,
			"message_id", msg.Message.MessageID().String(),
			"error", err,
		)
	}
}
