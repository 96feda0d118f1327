package channel

import (
	"testing"
	"time"

	"github.com/nerrad567/antplus-core/internal/ant/message"
)

func TestTransmissionTypePack(t *testing.T) {
	tests := []struct {
		name string
		tt   TransmissionType
		want uint8
	}{
		{"independent", TransmissionType{ChannelType: IndependentChannel}, 0x01},
		{"global pages", TransmissionType{ChannelType: IndependentChannel, GlobalDataPages: true}, 0x05},
		{"extension", TransmissionType{ChannelType: IndependentChannel, Extension: 0x0A}, 0xA1},
		{"shared 2 byte", TransmissionType{ChannelType: SharedChannel2ByteAddress, Extension: 0x0F}, 0xF3},
		{"wildcard", TransmissionType{}, 0x00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.tt.Pack()
			if got != tt.want {
				t.Errorf("Pack() = 0x%02X, want 0x%02X", got, tt.want)
			}
			if back := ParseTransmissionType(got); back != tt.tt {
				t.Errorf("ParseTransmissionType(0x%02X) = %+v, want %+v", got, back, tt.tt)
			}
		})
	}
}

func TestDurationToSearchTimeout(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want uint8
	}{
		{0, 0},
		{-time.Second, 0},
		{2 * time.Second, 0},
		{2500 * time.Millisecond, 1},
		{30 * time.Second, 12},
		{635 * time.Second, 254},
		{time.Hour, SearchTimeoutMax},
	}

	for _, tt := range tests {
		if got := DurationToSearchTimeout(tt.d); got != tt.want {
			t.Errorf("DurationToSearchTimeout(%v) = %d, want %d", tt.d, got, tt.want)
		}
	}
}

func TestOpenSequence(t *testing.T) {
	cfg := ChannelConfig{
		DeviceNumber:     0x1234,
		DeviceType:       120,
		ChannelType:      BidirectionalSlave,
		NetworkKeyIndex:  1,
		TransmissionType: TransmissionType{ChannelType: IndependentChannel},
		RadioFrequency:   57,
		Timeout:          12,
		ChannelPeriod:    8070,
	}

	seq := cfg.openSequence(3)
	want := []message.ID{
		message.IDAssignChannel,
		message.IDChannelID,
		message.IDChannelPeriod,
		message.IDSearchTimeout,
		message.IDChannelRFFrequency,
		message.IDOpenChannel,
	}
	if len(seq) != len(want) {
		t.Fatalf("openSequence() len = %d, want %d", len(seq), len(want))
	}
	for i, id := range want {
		if seq[i].MessageID() != id {
			t.Errorf("seq[%d] = %s, want %s", i, seq[i].MessageID(), id)
		}
		if seq[i].Payload()[0] != 3 {
			t.Errorf("seq[%d] channel = %d, want 3", i, seq[i].Payload()[0])
		}
	}

	setID := seq[1].(*message.SetChannelID)
	if setID.DeviceNumber != 0x1234 || setID.DeviceType != 120 || setID.TransmissionType != 0x01 {
		t.Errorf("SetChannelID = %+v", setID)
	}
	assign := seq[0].(*message.AssignChannel)
	if assign.Network != 1 || assign.ChannelType != uint8(BidirectionalSlave) {
		t.Errorf("AssignChannel = %+v", assign)
	}
}
