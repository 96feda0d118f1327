package stub

import (
	"sync"

	"github.com/nerrad567/antplus-core/internal/ant/message"
)

// DataSource produces the 8-byte page a simulated sensor transmits on a
// channel for the given tick. Returning false skips the tick.
type DataSource func(channel uint8, tick uint64) ([message.DataPayloadSize]byte, bool)

// Radio emulates an ANT radio: it answers resets and capability requests,
// acknowledges channel configuration and, once a channel is open, streams
// pages from Source.
type Radio struct {
	MaxChannels uint8
	MaxNetworks uint8

	// DeviceNumber and DeviceType answer channel ID requests for
	// simulated sensors.
	DeviceNumber uint16
	DeviceType   uint8

	// Source feeds open channels. Nil means open channels stay silent.
	Source DataSource

	// EmitEvery spaces data frames: one frame per channel every N polls.
	EmitEvery uint64

	mu   sync.Mutex
	open map[uint8]bool
	ids  map[uint8]message.SetChannelID
	tick uint64
}

// NewRadio creates an emulated radio reporting maxChannels channels.
func NewRadio(maxChannels uint8) *Radio {
	return &Radio{MaxChannels: maxChannels, MaxNetworks: 8, EmitEvery: 1}
}

// Respond implements Emulator.
func (r *Radio) Respond(msg message.TxMessage) []message.RxMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.open == nil {
		r.open = make(map[uint8]bool)
		r.ids = make(map[uint8]message.SetChannelID)
	}

	switch m := msg.(type) {
	case message.ResetSystem:
		r.open = make(map[uint8]bool)
		r.ids = make(map[uint8]message.SetChannelID)
		return []message.RxMessage{&message.StartUpMessage{Reason: message.StartUpCommandReset}}

	case *message.RequestMessage:
		return r.request(m)

	case *message.SetChannelID:
		r.ids[m.Channel] = *m
		return ack(m.Channel, m.MessageID())

	case *message.OpenChannel:
		r.open[m.Channel] = true
		return ack(m.Channel, m.MessageID())

	case *message.CloseChannel:
		delete(r.open, m.Channel)
		return append(ack(m.Channel, m.MessageID()),
			&message.ChannelEvent{Channel: m.Channel, Code: message.EventChannelClosed})

	case *message.SetNetworkKey:
		return ack(m.Network, m.MessageID())

	case message.ChannelTxMessage:
		switch m.MessageID() {
		case message.IDAssignChannel, message.IDUnassignChannel, message.IDChannelPeriod,
			message.IDSearchTimeout, message.IDChannelRFFrequency:
			return ack(m.Payload()[0], m.MessageID())
		case message.IDBroadcastData, message.IDAcknowledgedData:
			return []message.RxMessage{&message.ChannelEvent{Channel: m.Payload()[0], Code: message.EventTransferTxCompleted}}
		}
	}
	return nil
}

func (r *Radio) request(m *message.RequestMessage) []message.RxMessage {
	switch m.Requested {
	case message.IDCapabilities:
		return []message.RxMessage{&message.Capabilities{MaxChannels: r.MaxChannels, MaxNetworks: r.MaxNetworks}}
	case message.IDChannelID:
		id := r.ids[m.Channel]
		number := id.DeviceNumber
		if number == 0 {
			number = r.DeviceNumber
		}
		deviceType := id.DeviceType
		if deviceType == 0 {
			deviceType = r.DeviceType
		}
		return []message.RxMessage{&message.ChannelID{
			Channel:          m.Channel,
			DeviceNumber:     number,
			DeviceType:       deviceType,
			TransmissionType: id.TransmissionType | 0x01,
		}}
	case message.IDANTVersion:
		return []message.RxMessage{&message.ANTVersion{Version: "STUB1.00"}}
	case message.IDSerialNumber:
		return []message.RxMessage{&message.SerialNumber{Number: 0x0A0B0C0D}}
	}
	return nil
}

// Emit implements Emulator.
func (r *Radio) Emit() []message.RxMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tick++
	if r.Source == nil || len(r.open) == 0 {
		return nil
	}
	every := r.EmitEvery
	if every == 0 {
		every = 1
	}
	if r.tick%every != 0 {
		return nil
	}

	var out []message.RxMessage
	for ch := uint8(0); ch < r.MaxChannels; ch++ {
		if !r.open[ch] {
			continue
		}
		data, ok := r.Source(ch, r.tick/every)
		if !ok {
			continue
		}
		out = append(out, &message.BroadcastData{Channel: ch, Data: data})
	}
	return out
}

// IsOpen reports whether the emulated radio considers a channel open.
func (r *Radio) IsOpen(channel uint8) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.open[channel]
}

func ack(channel uint8, id message.ID) []message.RxMessage {
	return []message.RxMessage{&message.ChannelResponse{Channel: channel, RespondingTo: id, Code: message.ResponseNoError}}
}

var _ Emulator = (*Radio)(nil)
