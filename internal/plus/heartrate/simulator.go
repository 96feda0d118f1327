package heartrate

import "github.com/nerrad567/antplus-core/internal/plus"

const (
	// backgroundEvery is how often a monitor interleaves a background page.
	backgroundEvery = 65

	// toggleEvery is the number of messages between toggle bit flips.
	toggleEvery = 4

	periodUnitsPerSecond = 32768
	eventUnitsPerSecond  = 1024
)

var backgroundPages = []DataPageNumber{
	PageManufacturerInformation,
	PageProductInformation,
	PageCumulativeOperatingTime,
	PageBatteryStatus,
}

// Simulator produces the page stream of a heart rate monitor beating at a
// fixed rate. Most messages are PreviousHeartBeat pages; every 65th is a
// background page in rotation.
//
// Simulator is not safe for concurrent use.
type Simulator struct {
	BPM            uint8
	ManufacturerID uint8
	SerialNumber   uint16
	ModelNumber    uint8
	BatteryLevel   uint8

	period Period

	messages   uint64
	background int

	// clock is elapsed time in 1/32768 s; nextBeat when the next beat lands.
	clock     uint64
	nextBeat  uint64
	beatCount uint8
	lastBeat  uint16
	prevBeat  uint16
}

// NewSimulator creates a monitor transmitting at period with the given
// heart rate. A zero bpm is treated as 60.
func NewSimulator(bpm uint8, period Period) *Simulator {
	if bpm == 0 {
		bpm = 60
	}
	if period == 0 {
		period = PeriodFourHz
	}
	return &Simulator{
		BPM:            bpm,
		ManufacturerID: 255, // development
		SerialNumber:   0x0001,
		ModelNumber:    1,
		BatteryLevel:   90,
		period:         period,
	}
}

// Next advances one message period and returns the page to transmit.
func (s *Simulator) Next() [8]byte {
	s.advance()
	s.messages++

	var page MonitorTxDataPage
	if s.messages%backgroundEvery == 0 {
		page = s.backgroundPage()
	} else {
		page = PreviousHeartBeat{
			ManufacturerSpecific:       reserved,
			PreviousHeartBeatEventTime: s.prevBeat,
			CommonData:                 s.common(),
		}
	}

	out := page.Encode()
	if (s.messages/toggleEvery)%2 == 1 {
		out[0] |= plus.ToggleBit
	}
	return out
}

func (s *Simulator) advance() {
	s.clock += uint64(s.period)
	interval := uint64(periodUnitsPerSecond) * 60 / uint64(s.BPM)
	if s.nextBeat == 0 {
		s.nextBeat = interval
	}
	for s.clock >= s.nextBeat {
		s.prevBeat = s.lastBeat
		// Event time wraps every 64 s, as on the air.
		s.lastBeat = uint16(s.nextBeat * eventUnitsPerSecond / periodUnitsPerSecond)
		s.beatCount++
		s.nextBeat += interval
	}
}

func (s *Simulator) common() CommonData {
	return CommonData{
		HeartBeatEventTime: s.lastBeat,
		HeartBeatCount:     s.beatCount,
		ComputedHeartRate:  s.BPM,
	}
}

func (s *Simulator) backgroundPage() MonitorTxDataPage {
	number := backgroundPages[s.background%len(backgroundPages)]
	s.background++

	common := s.common()
	switch number {
	case PageManufacturerInformation:
		return ManufacturerInformation{
			ManufacturerIDLSB: s.ManufacturerID,
			SerialNumber:      s.SerialNumber,
			CommonData:        common,
		}
	case PageProductInformation:
		return ProductInformation{
			HardwareVersion: 1,
			SoftwareVersion: 1,
			ModelNumber:     s.ModelNumber,
			CommonData:      common,
		}
	case PageCumulativeOperatingTime:
		return CumulativeOperatingTime{
			OperatingTime: uint32(s.clock / periodUnitsPerSecond / 2),
			CommonData:    common,
		}
	default:
		return BatteryStatus{
			BatteryLevel:      s.BatteryLevel,
			FractionalVoltage: 0xC0,
			CoarseVoltage:     2,
			Status:            BatteryGood,
			CommonData:        common,
		}
	}
}
