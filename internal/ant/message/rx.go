package message

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Payload layout constants.
const (
	// DataPayloadSize is the size of the application data carried by
	// broadcast, acknowledged and burst frames.
	DataPayloadSize = 8

	// channelMask extracts the channel number from a burst sequence byte.
	channelMask = 0x1F

	// sequenceShift moves the burst sequence number into the low bits.
	sequenceShift = 5

	// eventMarker in the message-id byte of a 0x40 payload marks a channel
	// event rather than a response to a command.
	eventMarker = 0x01

	advancedBurstCapabilitiesSub = 0x00
	advancedBurstConfigSub       = 0x01
)

// RxMessage is any message the radio can send to the host.
type RxMessage interface {
	// MessageID returns the ANT message ID of the message.
	MessageID() ID

	rxMessage()
}

// ChannelScoped is implemented by receivable messages addressed to a
// single channel.
type ChannelScoped interface {
	RxMessage

	// ChannelNumber returns the hardware channel the message belongs to.
	ChannelNumber() uint8
}

// AntMessage is one decoded message received from the radio.
type AntMessage struct {
	Message RxMessage
}

// String returns a short description for logs.
func (m AntMessage) String() string {
	if m.Message == nil {
		return "AntMessage{<nil>}"
	}
	return fmt.Sprintf("AntMessage{%s}", m.Message.MessageID())
}

// =============================================================================
// Channel scoped
// =============================================================================

// BroadcastData carries one 8-byte data page. It is also transmittable.
type BroadcastData struct {
	Channel uint8
	Data    [DataPayloadSize]byte

	// Extended holds flagged extended data when the radio has extended
	// messages enabled. Empty otherwise.
	Extended []byte
}

// AcknowledgedData carries one 8-byte data page that the sender wants
// acknowledged. It is also transmittable.
type AcknowledgedData struct {
	Channel  uint8
	Data     [DataPayloadSize]byte
	Extended []byte
}

// BurstTransferData is one packet of a burst transfer.
type BurstTransferData struct {
	Channel  uint8
	Sequence uint8
	Data     [DataPayloadSize]byte
}

// AdvancedBurstData is one packet of an advanced burst transfer.
type AdvancedBurstData struct {
	Channel  uint8
	Sequence uint8
	Data     []byte
}

// ChannelEvent reports an RF event on a channel.
type ChannelEvent struct {
	Channel uint8
	Code    EventCode
	Extra   []byte
}

// ChannelResponse answers a command previously sent for a channel.
type ChannelResponse struct {
	Channel      uint8
	RespondingTo ID
	Code         ResponseCode
}

// ChannelState is the state reported in a ChannelStatus message.
type ChannelState uint8

// Channel states reported by the radio.
const (
	ChannelStateUnassigned ChannelState = 0
	ChannelStateAssigned   ChannelState = 1
	ChannelStateSearching  ChannelState = 2
	ChannelStateTracking   ChannelState = 3
)

// ChannelStatus reports the radio's view of a channel.
type ChannelStatus struct {
	Channel       uint8
	State         ChannelState
	NetworkNumber uint8
	ChannelType   uint8
}

// ChannelID reports the identity of the device a channel is paired with.
type ChannelID struct {
	Channel          uint8
	DeviceNumber     uint16
	DeviceType       uint8
	TransmissionType uint8
}

// =============================================================================
// Global with side effects
// =============================================================================

// StartUpMessage is sent by the radio after any reset.
type StartUpMessage struct {
	Reason uint8
}

// Start-up reason bits.
const (
	StartUpHardwareReset    = 0x01
	StartUpWatchdogReset    = 0x02
	StartUpCommandReset     = 0x20
	StartUpSynchronousReset = 0x40
	StartUpSuspendReset     = 0x80
)

// IsPowerOnReset reports whether the radio came up from power on.
func (m StartUpMessage) IsPowerOnReset() bool {
	return m.Reason == 0
}

// Capabilities reports what the radio supports. MaxChannels drives the
// router's usable slot count.
type Capabilities struct {
	MaxChannels          uint8
	MaxNetworks          uint8
	StandardOptions      uint8
	AdvancedOptions      uint8
	AdvancedOptions2     uint8
	MaxSensRcoreChannels uint8
	AdvancedOptions3     uint8
	AdvancedOptions4     uint8
}

// AdvancedBurstCapabilities reports the advanced burst features supported.
type AdvancedBurstCapabilities struct {
	MaxPacketLength   uint8
	SupportedFeatures uint32
}

// AdvancedBurstCurrentConfiguration reports the active advanced burst setup.
type AdvancedBurstCurrentConfiguration struct {
	Enabled          bool
	MaxPacketLength  uint8
	RequiredFeatures uint32
	OptionalFeatures uint32
}

// EncryptionModeParameters reports one encryption parameter.
type EncryptionModeParameters struct {
	Parameter uint8
	Data      []byte
}

// =============================================================================
// Global, informational
// =============================================================================

// EventFilter reports the active event filter mask.
type EventFilter struct {
	Filter uint16
}

// SerialErrorMessage reports a framing problem the radio saw on its input.
type SerialErrorMessage struct {
	Code uint8
	Data []byte
}

// ANTVersion reports the radio firmware version string.
type ANTVersion struct {
	Version string
}

// SerialNumber reports the radio's serial number.
type SerialNumber struct {
	Number uint32
}

// EventBufferConfiguration reports the event buffering setup.
type EventBufferConfiguration struct {
	Config uint8
	Size   uint16
	Time   uint16
}

// SelectiveDataUpdateMaskSetting reports one SDU mask.
type SelectiveDataUpdateMaskSetting struct {
	Index uint8
	Mask  [DataPayloadSize]byte
}

// UserNVM reports a block of user NVM.
type UserNVM struct {
	Data []byte
}

// =============================================================================
// RxMessage / ChannelScoped implementations
// =============================================================================

func (*BroadcastData) MessageID() ID                     { return IDBroadcastData }
func (*AcknowledgedData) MessageID() ID                  { return IDAcknowledgedData }
func (*BurstTransferData) MessageID() ID                 { return IDBurstTransferData }
func (*AdvancedBurstData) MessageID() ID                 { return IDAdvancedBurstData }
func (*ChannelEvent) MessageID() ID                      { return IDChannelEvent }
func (*ChannelResponse) MessageID() ID                   { return IDChannelEvent }
func (*ChannelStatus) MessageID() ID                     { return IDChannelStatus }
func (*ChannelID) MessageID() ID                         { return IDChannelID }
func (*StartUpMessage) MessageID() ID                    { return IDStartUpMessage }
func (*Capabilities) MessageID() ID                      { return IDCapabilities }
func (*AdvancedBurstCapabilities) MessageID() ID         { return IDAdvancedBurst }
func (*AdvancedBurstCurrentConfiguration) MessageID() ID { return IDAdvancedBurst }
func (*EncryptionModeParameters) MessageID() ID          { return IDEncryptionMode }
func (*EventFilter) MessageID() ID                       { return IDEventFilter }
func (*SerialErrorMessage) MessageID() ID                { return IDSerialError }
func (*ANTVersion) MessageID() ID                        { return IDANTVersion }
func (*SerialNumber) MessageID() ID                      { return IDSerialNumber }
func (*EventBufferConfiguration) MessageID() ID          { return IDEventBufferCfg }
func (*SelectiveDataUpdateMaskSetting) MessageID() ID    { return IDSelectiveDataUpd }
func (*UserNVM) MessageID() ID                           { return IDUserNVM }

func (*BroadcastData) rxMessage()                     {}
func (*AcknowledgedData) rxMessage()                  {}
func (*BurstTransferData) rxMessage()                 {}
func (*AdvancedBurstData) rxMessage()                 {}
func (*ChannelEvent) rxMessage()                      {}
func (*ChannelResponse) rxMessage()                   {}
func (*ChannelStatus) rxMessage()                     {}
func (*ChannelID) rxMessage()                         {}
func (*StartUpMessage) rxMessage()                    {}
func (*Capabilities) rxMessage()                      {}
func (*AdvancedBurstCapabilities) rxMessage()         {}
func (*AdvancedBurstCurrentConfiguration) rxMessage() {}
func (*EncryptionModeParameters) rxMessage()          {}
func (*EventFilter) rxMessage()                       {}
func (*SerialErrorMessage) rxMessage()                {}
func (*ANTVersion) rxMessage()                        {}
func (*SerialNumber) rxMessage()                      {}
func (*EventBufferConfiguration) rxMessage()          {}
func (*SelectiveDataUpdateMaskSetting) rxMessage()    {}
func (*UserNVM) rxMessage()                           {}

func (m *BroadcastData) ChannelNumber() uint8     { return m.Channel }
func (m *AcknowledgedData) ChannelNumber() uint8  { return m.Channel }
func (m *BurstTransferData) ChannelNumber() uint8 { return m.Channel }
func (m *AdvancedBurstData) ChannelNumber() uint8 { return m.Channel }
func (m *ChannelEvent) ChannelNumber() uint8      { return m.Channel }
func (m *ChannelResponse) ChannelNumber() uint8   { return m.Channel }
func (m *ChannelStatus) ChannelNumber() uint8     { return m.Channel }
func (m *ChannelID) ChannelNumber() uint8         { return m.Channel }

// =============================================================================
// Decoding
// =============================================================================

// Decode turns a message ID and its payload into a typed receivable message.
//
// Parameters:
//   - id: Message ID from the frame header
//   - payload: Message content following the ID (checksum already removed)
//
// Returns:
//   - RxMessage: The decoded message (always a pointer type)
//   - error: ErrShortPayload if the payload is truncated, ErrUnknownMessage
//     if the ID is not receivable
func Decode(id ID, payload []byte) (RxMessage, error) {
	switch id {
	case IDBroadcastData:
		if err := need(id, payload, 1+DataPayloadSize); err != nil {
			return nil, err
		}
		m := &BroadcastData{Channel: payload[0], Extended: tail(payload, 1+DataPayloadSize)}
		copy(m.Data[:], payload[1:1+DataPayloadSize])
		return m, nil

	case IDAcknowledgedData:
		if err := need(id, payload, 1+DataPayloadSize); err != nil {
			return nil, err
		}
		m := &AcknowledgedData{Channel: payload[0], Extended: tail(payload, 1+DataPayloadSize)}
		copy(m.Data[:], payload[1:1+DataPayloadSize])
		return m, nil

	case IDBurstTransferData:
		if err := need(id, payload, 1+DataPayloadSize); err != nil {
			return nil, err
		}
		m := &BurstTransferData{
			Channel:  payload[0] & channelMask,
			Sequence: payload[0] >> sequenceShift,
		}
		copy(m.Data[:], payload[1:1+DataPayloadSize])
		return m, nil

	case IDAdvancedBurstData:
		if err := need(id, payload, 1); err != nil {
			return nil, err
		}
		return &AdvancedBurstData{
			Channel:  payload[0] & channelMask,
			Sequence: payload[0] >> sequenceShift,
			Data:     tail(payload, 1),
		}, nil

	case IDChannelEvent:
		if err := need(id, payload, 3); err != nil { //nolint:mnd // channel, message id, code
			return nil, err
		}
		if payload[1] == eventMarker {
			return &ChannelEvent{
				Channel: payload[0],
				Code:    EventCode(payload[2]),
				Extra:   tail(payload, 3), //nolint:mnd // after fixed header
			}, nil
		}
		return &ChannelResponse{
			Channel:      payload[0],
			RespondingTo: ID(payload[1]),
			Code:         ResponseCode(payload[2]),
		}, nil

	case IDChannelStatus:
		if err := need(id, payload, 2); err != nil { //nolint:mnd // channel, status
			return nil, err
		}
		return &ChannelStatus{
			Channel:       payload[0],
			State:         ChannelState(payload[1] & 0x03),
			NetworkNumber: (payload[1] >> 2) & 0x03,
			ChannelType:   payload[1] >> 4,
		}, nil

	case IDChannelID:
		if err := need(id, payload, 5); err != nil { //nolint:mnd // channel, number(2), type, trans
			return nil, err
		}
		return &ChannelID{
			Channel:          payload[0],
			DeviceNumber:     binary.LittleEndian.Uint16(payload[1:3]),
			DeviceType:       payload[3],
			TransmissionType: payload[4],
		}, nil

	case IDStartUpMessage:
		if err := need(id, payload, 1); err != nil {
			return nil, err
		}
		return &StartUpMessage{Reason: payload[0]}, nil

	case IDCapabilities:
		return decodeCapabilities(payload)

	case IDAdvancedBurst:
		return decodeAdvancedBurst(payload)

	case IDEncryptionMode:
		if err := need(id, payload, 1); err != nil {
			return nil, err
		}
		return &EncryptionModeParameters{Parameter: payload[0], Data: tail(payload, 1)}, nil

	case IDEventFilter:
		if err := need(id, payload, 3); err != nil { //nolint:mnd // filler + uint16
			return nil, err
		}
		return &EventFilter{Filter: binary.LittleEndian.Uint16(payload[1:3])}, nil

	case IDSerialError:
		if err := need(id, payload, 1); err != nil {
			return nil, err
		}
		return &SerialErrorMessage{Code: payload[0], Data: tail(payload, 1)}, nil

	case IDANTVersion:
		return &ANTVersion{Version: strings.TrimRight(string(payload), "\x00")}, nil

	case IDSerialNumber:
		if err := need(id, payload, 4); err != nil { //nolint:mnd // uint32
			return nil, err
		}
		return &SerialNumber{Number: binary.LittleEndian.Uint32(payload[0:4])}, nil

	case IDEventBufferCfg:
		if err := need(id, payload, 6); err != nil { //nolint:mnd // filler, config, size(2), time(2)
			return nil, err
		}
		return &EventBufferConfiguration{
			Config: payload[1],
			Size:   binary.LittleEndian.Uint16(payload[2:4]),
			Time:   binary.LittleEndian.Uint16(payload[4:6]),
		}, nil

	case IDSelectiveDataUpd:
		if err := need(id, payload, 1+DataPayloadSize); err != nil {
			return nil, err
		}
		m := &SelectiveDataUpdateMaskSetting{Index: payload[0]}
		copy(m.Mask[:], payload[1:1+DataPayloadSize])
		return m, nil

	case IDUserNVM:
		if err := need(id, payload, 1); err != nil {
			return nil, err
		}
		return &UserNVM{Data: tail(payload, 1)}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownMessage, id)
}

func decodeCapabilities(payload []byte) (RxMessage, error) {
	if err := need(IDCapabilities, payload, 4); err != nil { //nolint:mnd // base capabilities
		return nil, err
	}
	m := &Capabilities{
		MaxChannels:     payload[0],
		MaxNetworks:     payload[1],
		StandardOptions: payload[2],
		AdvancedOptions: payload[3],
	}
	// Older radios stop after the base block.
	extra := []*uint8{&m.AdvancedOptions2, &m.MaxSensRcoreChannels, &m.AdvancedOptions3, &m.AdvancedOptions4}
	for i, field := range extra {
		if 4+i < len(payload) {
			*field = payload[4+i]
		}
	}
	return m, nil
}

func decodeAdvancedBurst(payload []byte) (RxMessage, error) {
	if err := need(IDAdvancedBurst, payload, 1); err != nil {
		return nil, err
	}
	switch payload[0] {
	case advancedBurstCapabilitiesSub:
		if err := need(IDAdvancedBurst, payload, 5); err != nil { //nolint:mnd // sub, len, features(3)
			return nil, err
		}
		return &AdvancedBurstCapabilities{
			MaxPacketLength:   payload[1],
			SupportedFeatures: uint24(payload[2:5]),
		}, nil
	case advancedBurstConfigSub:
		if err := need(IDAdvancedBurst, payload, 9); err != nil { //nolint:mnd // sub, enable, len, req(3), opt(3)
			return nil, err
		}
		return &AdvancedBurstCurrentConfiguration{
			Enabled:          payload[1] != 0,
			MaxPacketLength:  payload[2],
			RequiredFeatures: uint24(payload[3:6]),
			OptionalFeatures: uint24(payload[6:9]),
		}, nil
	}
	return nil, fmt.Errorf("%w: %s sub-id 0x%02X", ErrUnknownMessage, IDAdvancedBurst, payload[0])
}

func need(id ID, payload []byte, n int) error {
	if len(payload) < n {
		return fmt.Errorf("%w: %s needs %d bytes, got %d", ErrShortPayload, id, n, len(payload))
	}
	return nil
}

// tail returns a copy of payload[from:], or nil when nothing follows.
func tail(payload []byte, from int) []byte {
	if len(payload) <= from {
		return nil
	}
	out := make([]byte, len(payload)-from)
	copy(out, payload[from:])
	return out
}

func uint24(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}
