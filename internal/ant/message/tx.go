package message

import "encoding/binary"

// TxMessage is any message the host can send to the radio.
type TxMessage interface {
	// MessageID returns the ANT message ID to put in the frame header.
	MessageID() ID

	// Payload returns the message content that follows the ID.
	Payload() []byte
}

// ChannelTxMessage is a transmittable message addressed to a channel whose
// number can be stamped by the channel that sends it.
type ChannelTxMessage interface {
	TxMessage
	SetChannel(channel uint8)
}

// NetworkKeySize is the length of an ANT network key.
const NetworkKeySize = 8

// ResetSystem asks the radio to reset. The radio answers with a
// StartUpMessage.
type ResetSystem struct{}

// RequestMessage asks the radio to send the message identified by Requested.
type RequestMessage struct {
	Channel   uint8
	Requested ID

	// NVM is set to request a block from user NVM.
	NVM *NVMRequest
}

// NVMRequest addresses a block of user NVM.
type NVMRequest struct {
	Address uint16
	Size    uint8
}

// CloseChannel closes an open channel.
type CloseChannel struct {
	Channel uint8
}

// UnassignChannel releases a closed channel's hardware assignment.
type UnassignChannel struct {
	Channel uint8
}

// OpenChannel opens an assigned and configured channel.
type OpenChannel struct {
	Channel uint8
}

// AssignChannel reserves a channel with a type and network.
type AssignChannel struct {
	Channel     uint8
	ChannelType uint8
	Network     uint8

	// Extended holds the optional extended assignment bits. Zero omits the
	// byte from the payload.
	Extended uint8
}

// SetChannelID sets the device identity a channel pairs with.
type SetChannelID struct {
	Channel          uint8
	DeviceNumber     uint16
	DeviceType       uint8
	TransmissionType uint8
}

// ChannelPeriod sets a channel's message period in 1/32768 s units.
type ChannelPeriod struct {
	Channel uint8
	Period  uint16
}

// SearchTimeout sets a channel's high priority search timeout in 2.5 s units.
type SearchTimeout struct {
	Channel uint8
	Timeout uint8
}

// ChannelRFFrequency sets a channel's frequency as an offset from 2400 MHz.
type ChannelRFFrequency struct {
	Channel   uint8
	Frequency uint8
}

// SetNetworkKey loads a network key into one of the radio's network slots.
type SetNetworkKey struct {
	Network uint8
	Key     [NetworkKeySize]byte
}

func (ResetSystem) MessageID() ID         { return IDResetSystem }
func (*RequestMessage) MessageID() ID     { return IDRequestMessage }
func (*CloseChannel) MessageID() ID       { return IDCloseChannel }
func (*UnassignChannel) MessageID() ID    { return IDUnassignChannel }
func (*OpenChannel) MessageID() ID        { return IDOpenChannel }
func (*AssignChannel) MessageID() ID      { return IDAssignChannel }
func (*SetChannelID) MessageID() ID       { return IDChannelID }
func (*ChannelPeriod) MessageID() ID      { return IDChannelPeriod }
func (*SearchTimeout) MessageID() ID      { return IDSearchTimeout }
func (*ChannelRFFrequency) MessageID() ID { return IDChannelRFFrequency }
func (*SetNetworkKey) MessageID() ID      { return IDSetNetworkKey }

// Payload returns the single filler byte the radio expects.
func (ResetSystem) Payload() []byte { return []byte{0x00} }

func (m *RequestMessage) Payload() []byte {
	out := []byte{m.Channel, uint8(m.Requested)}
	if m.NVM != nil {
		out = binary.LittleEndian.AppendUint16(out, m.NVM.Address)
		out = append(out, m.NVM.Size)
	}
	return out
}

func (m *CloseChannel) Payload() []byte    { return []byte{m.Channel} }
func (m *UnassignChannel) Payload() []byte { return []byte{m.Channel} }
func (m *OpenChannel) Payload() []byte     { return []byte{m.Channel} }

func (m *AssignChannel) Payload() []byte {
	out := []byte{m.Channel, m.ChannelType, m.Network}
	if m.Extended != 0 {
		out = append(out, m.Extended)
	}
	return out
}

func (m *SetChannelID) Payload() []byte {
	out := []byte{m.Channel}
	out = binary.LittleEndian.AppendUint16(out, m.DeviceNumber)
	return append(out, m.DeviceType, m.TransmissionType)
}

func (m *ChannelPeriod) Payload() []byte {
	return binary.LittleEndian.AppendUint16([]byte{m.Channel}, m.Period)
}

func (m *SearchTimeout) Payload() []byte      { return []byte{m.Channel, m.Timeout} }
func (m *ChannelRFFrequency) Payload() []byte { return []byte{m.Channel, m.Frequency} }

func (m *SetNetworkKey) Payload() []byte {
	out := make([]byte, 0, 1+NetworkKeySize)
	out = append(out, m.Network)
	return append(out, m.Key[:]...)
}

// Payload returns the channel number followed by the 8 data bytes.
func (m *BroadcastData) Payload() []byte {
	return append([]byte{m.Channel}, m.Data[:]...)
}

// Payload returns the channel number followed by the 8 data bytes.
func (m *AcknowledgedData) Payload() []byte {
	return append([]byte{m.Channel}, m.Data[:]...)
}

func (m *RequestMessage) SetChannel(channel uint8)     { m.Channel = channel }
func (m *CloseChannel) SetChannel(channel uint8)       { m.Channel = channel }
func (m *UnassignChannel) SetChannel(channel uint8)    { m.Channel = channel }
func (m *OpenChannel) SetChannel(channel uint8)        { m.Channel = channel }
func (m *AssignChannel) SetChannel(channel uint8)      { m.Channel = channel }
func (m *SetChannelID) SetChannel(channel uint8)       { m.Channel = channel }
func (m *ChannelPeriod) SetChannel(channel uint8)      { m.Channel = channel }
func (m *SearchTimeout) SetChannel(channel uint8)      { m.Channel = channel }
func (m *ChannelRFFrequency) SetChannel(channel uint8) { m.Channel = channel }
func (m *BroadcastData) SetChannel(channel uint8)      { m.Channel = channel }
func (m *AcknowledgedData) SetChannel(channel uint8)   { m.Channel = channel }

// Compile-time interface checks.
var (
	_ TxMessage        = ResetSystem{}
	_ TxMessage        = (*SetNetworkKey)(nil)
	_ ChannelTxMessage = (*RequestMessage)(nil)
	_ ChannelTxMessage = (*CloseChannel)(nil)
	_ ChannelTxMessage = (*UnassignChannel)(nil)
	_ ChannelTxMessage = (*OpenChannel)(nil)
	_ ChannelTxMessage = (*AssignChannel)(nil)
	_ ChannelTxMessage = (*SetChannelID)(nil)
	_ ChannelTxMessage = (*ChannelPeriod)(nil)
	_ ChannelTxMessage = (*SearchTimeout)(nil)
	_ ChannelTxMessage = (*ChannelRFFrequency)(nil)
	_ ChannelTxMessage = (*BroadcastData)(nil)
	_ ChannelTxMessage = (*AcknowledgedData)(nil)
	_ ChannelScoped    = (*BroadcastData)(nil)
	_ ChannelScoped    = (*ChannelResponse)(nil)
)
