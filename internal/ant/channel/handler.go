package channel

import (
	"fmt"

	"github.com/nerrad567/antplus-core/internal/ant/message"
)

// State is a MessageHandler lifecycle state.
type State int

// Handler states.
const (
	StateClosed State = iota
	StateAssigning
	StateSearching
	StateTracking
	StateClosing
	StateUnassigning
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateAssigning:
		return "assigning"
	case StateSearching:
		return "searching"
	case StateTracking:
		return "tracking"
	case StateClosing:
		return "closing"
	case StateUnassigning:
		return "unassigning"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MessageHandler drives one channel through its radio lifecycle.
//
// Configuration commands are sent one at a time: the next command is only
// released once the radio acknowledges the previous one with
// ResponseNoError. Messages addressed to other channel numbers are
// ignored.
type MessageHandler struct {
	config  ChannelConfig
	channel uint8
	state   State

	// outbox holds commands ready to send; pending holds the rest of the
	// open sequence, released one per acknowledgement.
	outbox   []message.ChannelTxMessage
	pending  []message.ChannelTxMessage
	awaiting message.ID

	txReady   bool
	requested bool
	paired    *message.ChannelID
	detached  bool
}

// NewMessageHandler creates a closed handler for a channel.
func NewMessageHandler(channel uint8, config ChannelConfig) *MessageHandler {
	return &MessageHandler{config: config, channel: channel}
}

// Config returns the handler's channel configuration.
func (h *MessageHandler) Config() ChannelConfig { return h.config }

// Channel returns the channel number the handler addresses.
func (h *MessageHandler) Channel() uint8 { return h.channel }

// SetChannel changes the channel number used for filtering and for every
// command sent from now on. A detached handler is attached again.
func (h *MessageHandler) SetChannel(channel uint8) {
	h.channel = channel
	h.detached = false
}

// Detach drops the handler's channel, as after the router freed its slot.
// The handler returns to StateClosed and ignores channel traffic until
// SetChannel.
func (h *MessageHandler) Detach() {
	h.detached = true
	h.reset()
}

// Attached reports whether the handler has a channel number.
func (h *MessageHandler) Attached() bool { return !h.detached }

// State returns the current lifecycle state.
func (h *MessageHandler) State() State { return h.state }

// Open starts the configuration sequence.
//
// Returns ErrDetached for a handler without a channel and ErrNotClosed
// unless the handler is in StateClosed.
func (h *MessageHandler) Open() error {
	if h.detached {
		return ErrDetached
	}
	if h.state != StateClosed {
		return fmt.Errorf("%w: %s", ErrNotClosed, h.state)
	}
	seq := h.config.openSequence(h.channel)
	h.state = StateAssigning
	h.pending = seq[1:]
	h.queueAwaited(seq[0])
	return nil
}

// Close closes the channel. The handler moves through StateClosing and
// StateUnassigning back to StateClosed as the radio confirms. Closing a
// closed handler does nothing.
func (h *MessageHandler) Close() {
	switch h.state {
	case StateClosed, StateClosing, StateUnassigning:
		return
	case StateAssigning:
		// Anything not yet sent is abandoned.
		h.pending = nil
		h.outbox = nil
		h.awaiting = 0
	}
	h.state = StateClosing
	h.queueAwaited(&message.CloseChannel{})
}

// DeviceID returns the device number the channel is paired with: the
// configured number, or the one the radio reported for a wildcard search.
// 0 means not yet known.
func (h *MessageHandler) DeviceID() uint16 {
	if !h.config.IsWildcard() {
		return h.config.DeviceNumber
	}
	if h.paired != nil {
		return h.paired.DeviceNumber
	}
	return 0
}

// PairedDevice returns the channel ID the radio reported, if any.
func (h *MessageHandler) PairedDevice() (message.ChannelID, bool) {
	if h.paired == nil {
		return message.ChannelID{}, false
	}
	return *h.paired, true
}

// IsTxReady reports whether the radio has a transmit slot for the channel.
func (h *MessageHandler) IsTxReady() bool { return h.txReady }

// TxSent clears the transmit ready flag after a data page was queued.
func (h *MessageHandler) TxSent() { h.txReady = false }

// SendMessage returns the next command to send, stamped with the current
// channel number, or nil.
func (h *MessageHandler) SendMessage() message.TxMessage {
	if len(h.outbox) == 0 {
		return nil
	}
	next := h.outbox[0]
	h.outbox[0] = nil
	h.outbox = h.outbox[1:]
	next.SetChannel(h.channel)
	return next
}

// ReceiveMessage advances the state machine.
func (h *MessageHandler) ReceiveMessage(msg *message.AntMessage) error {
	if msg == nil || msg.Message == nil {
		return nil
	}
	if _, ok := msg.Message.(*message.StartUpMessage); ok {
		h.reset()
		return nil
	}

	scoped, ok := msg.Message.(message.ChannelScoped)
	if !ok || h.detached || scoped.ChannelNumber() != h.channel {
		return nil
	}

	switch m := msg.Message.(type) {
	case *message.ChannelResponse:
		return h.handleResponse(m)
	case *message.ChannelEvent:
		h.handleEvent(m)
	case *message.BroadcastData, *message.AcknowledgedData, *message.BurstTransferData:
		h.handleData()
	case *message.ChannelID:
		id := *m
		h.paired = &id
	}
	return nil
}

func (h *MessageHandler) handleResponse(m *message.ChannelResponse) error {
	if h.awaiting == 0 || m.RespondingTo != h.awaiting {
		if m.Code != message.ResponseNoError {
			return fmt.Errorf("%w: %s returned %s", ErrCommandFailed, m.RespondingTo, m.Code)
		}
		return nil
	}

	if m.RespondingTo == message.IDCloseChannel &&
		(m.Code == message.ChannelNotOpened || m.Code == message.ChannelInWrongState) {
		// Never opened: skip straight to unassigning.
		h.state = StateUnassigning
		h.queueAwaited(&message.UnassignChannel{})
		return nil
	}

	if m.Code != message.ResponseNoError {
		state := h.state
		h.reset()
		return fmt.Errorf("%w: %s returned %s while %s", ErrConfigRejected, m.RespondingTo, m.Code, state)
	}
	h.awaiting = 0

	if len(h.pending) > 0 {
		next := h.pending[0]
		h.pending = h.pending[1:]
		h.queueAwaited(next)
		return nil
	}

	switch h.state {
	case StateAssigning:
		h.state = StateSearching
	case StateUnassigning:
		h.state = StateClosed
	}
	return nil
}

func (h *MessageHandler) handleEvent(m *message.ChannelEvent) {
	switch m.Code {
	case message.EventRxFailGoToSearch:
		if h.state == StateTracking {
			h.state = StateSearching
			h.txReady = false
		}
	case message.EventChannelClosed:
		if h.state == StateClosed || h.state == StateUnassigning {
			return
		}
		h.outbox = nil
		h.pending = nil
		h.awaiting = 0
		h.txReady = false
		h.state = StateUnassigning
		h.queueAwaited(&message.UnassignChannel{})
	case message.EventTx, message.EventTransferTxCompleted, message.EventTransferTxFailed:
		if h.state == StateSearching || h.state == StateTracking {
			h.txReady = true
		}
	}
}

func (h *MessageHandler) handleData() {
	switch h.state {
	case StateSearching:
		h.state = StateTracking
		if h.config.IsWildcard() && h.paired == nil && !h.requested {
			h.requested = true
			h.outbox = append(h.outbox, &message.RequestMessage{Requested: message.IDChannelID})
		}
		h.txReady = true
	case StateTracking:
		h.txReady = true
	}
}

func (h *MessageHandler) queueAwaited(cmd message.ChannelTxMessage) {
	h.outbox = append(h.outbox, cmd)
	h.awaiting = cmd.MessageID()
}

func (h *MessageHandler) reset() {
	h.state = StateClosed
	h.outbox = nil
	h.pending = nil
	h.awaiting = 0
	h.txReady = false
	h.requested = false
	h.paired = nil
}
