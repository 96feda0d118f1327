package channel

import (
	"time"

	"github.com/nerrad567/antplus-core/internal/ant/message"
)

// ChannelType is the role a channel plays, as sent in AssignChannel.
type ChannelType uint8

// Channel types.
const (
	BidirectionalSlave        ChannelType = 0x00
	BidirectionalMaster       ChannelType = 0x10
	SharedBidirectionalSlave  ChannelType = 0x20
	SharedBidirectionalMaster ChannelType = 0x30
	SlaveReceiveOnly          ChannelType = 0x40
	MasterTransmitOnly        ChannelType = 0x50
)

func (t ChannelType) String() string {
	switch t {
	case BidirectionalSlave:
		return "bidirectional_slave"
	case BidirectionalMaster:
		return "bidirectional_master"
	case SharedBidirectionalSlave:
		return "shared_bidirectional_slave"
	case SharedBidirectionalMaster:
		return "shared_bidirectional_master"
	case SlaveReceiveOnly:
		return "slave_receive_only"
	case MasterTransmitOnly:
		return "master_transmit_only"
	}
	return "unknown"
}

// TransmissionChannelType is the sharing mode in bits 0-1 of the
// transmission type byte.
type TransmissionChannelType uint8

// Sharing modes.
const (
	IndependentChannel        TransmissionChannelType = 0x01
	SharedChannel1ByteAddress TransmissionChannelType = 0x02
	SharedChannel2ByteAddress TransmissionChannelType = 0x03
)

const (
	globalDataPagesBit = 0x04
	extensionShift     = 4
	extensionMask      = 0x0F
)

// TransmissionType describes how a master transmits.
type TransmissionType struct {
	ChannelType     TransmissionChannelType
	GlobalDataPages bool

	// Extension extends the 16-bit device number with 4 more bits.
	Extension uint8
}

// Pack returns the transmission type byte.
func (t TransmissionType) Pack() uint8 {
	b := uint8(t.ChannelType) & 0x03
	if t.GlobalDataPages {
		b |= globalDataPagesBit
	}
	return b | (t.Extension&extensionMask)<<extensionShift
}

// ParseTransmissionType unpacks a transmission type byte.
func ParseTransmissionType(b uint8) TransmissionType {
	return TransmissionType{
		ChannelType:     TransmissionChannelType(b & 0x03),
		GlobalDataPages: b&globalDataPagesBit != 0,
		Extension:       b >> extensionShift,
	}
}

// Search timeout encoding.
const (
	searchTimeoutUnit = 2500 * time.Millisecond

	// SearchTimeoutMax is the longest finite timeout, in 2.5 s units.
	SearchTimeoutMax = 254

	// SearchTimeoutInfinite keeps the channel searching forever.
	SearchTimeoutInfinite = 255
)

// DurationToSearchTimeout converts a duration to the radio's 2.5 s search
// timeout units, saturating at SearchTimeoutMax.
func DurationToSearchTimeout(d time.Duration) uint8 {
	if d <= 0 {
		return 0
	}
	units := d / searchTimeoutUnit
	if units > SearchTimeoutMax {
		return SearchTimeoutMax
	}
	return uint8(units)
}

// ChannelConfig fully determines the commands sent when a channel opens.
type ChannelConfig struct {
	// DeviceNumber of the device to pair with. 0 pairs with any device.
	DeviceNumber     uint16
	DeviceType       uint8
	ChannelType      ChannelType
	NetworkKeyIndex  uint8
	TransmissionType TransmissionType

	// RadioFrequency is the offset from 2400 MHz.
	RadioFrequency uint8

	// Timeout is the search timeout in 2.5 s units.
	Timeout uint8

	// ChannelPeriod is the message period in 1/32768 s units.
	ChannelPeriod uint16
}

// IsWildcard reports whether the config pairs with any device number.
func (c ChannelConfig) IsWildcard() bool {
	return c.DeviceNumber == 0
}

// openSequence returns the commands that configure and open a channel, in
// the order the radio must accept them.
func (c ChannelConfig) openSequence(ch uint8) []message.ChannelTxMessage {
	return []message.ChannelTxMessage{
		&message.AssignChannel{Channel: ch, ChannelType: uint8(c.ChannelType), Network: c.NetworkKeyIndex},
		&message.SetChannelID{
			Channel:          ch,
			DeviceNumber:     c.DeviceNumber,
			DeviceType:       c.DeviceType,
			TransmissionType: c.TransmissionType.Pack(),
		},
		&message.ChannelPeriod{Channel: ch, Period: c.ChannelPeriod},
		&message.SearchTimeout{Channel: ch, Timeout: c.Timeout},
		&message.ChannelRFFrequency{Channel: ch, Frequency: c.RadioFrequency},
		&message.OpenChannel{Channel: ch},
	}
}
