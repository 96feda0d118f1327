package heartrate

import (
	"encoding/binary"
	"fmt"

	"github.com/nerrad567/antplus-core/internal/ant/message"
	"github.com/nerrad567/antplus-core/internal/plus"
)

// DeviceType is the ANT+ device type of heart rate monitors.
const DeviceType = 120

// DataPageNumber identifies a heart rate data page.
type DataPageNumber uint8

// Heart rate data pages.
const (
	PageDefault                 DataPageNumber = 0
	PageCumulativeOperatingTime DataPageNumber = 1
	PageManufacturerInformation DataPageNumber = 2
	PageProductInformation      DataPageNumber = 3
	PagePreviousHeartBeat       DataPageNumber = 4
	PageSwimIntervalSummary     DataPageNumber = 5
	PageCapabilities            DataPageNumber = 6
	PageBatteryStatus           DataPageNumber = 7
	PageDeviceInformation       DataPageNumber = 9
	PageHRFeatureCommand        DataPageNumber = 32
)

func (n DataPageNumber) String() string {
	switch n {
	case PageDefault:
		return "default"
	case PageCumulativeOperatingTime:
		return "cumulative_operating_time"
	case PageManufacturerInformation:
		return "manufacturer_information"
	case PageProductInformation:
		return "product_information"
	case PagePreviousHeartBeat:
		return "previous_heart_beat"
	case PageSwimIntervalSummary:
		return "swim_interval_summary"
	case PageCapabilities:
		return "capabilities"
	case PageBatteryStatus:
		return "battery_status"
	case PageDeviceInformation:
		return "device_information"
	case PageHRFeatureCommand:
		return "hr_feature_command"
	}
	if plus.IsManufacturerSpecific(uint8(n)) {
		return "manufacturer_specific"
	}
	return fmt.Sprintf("page_%d", uint8(n))
}

// Period is the monitor's message period in 1/32768 s units.
type Period uint16

// Message periods.
const (
	PeriodFourHz Period = 8070
	PeriodTwoHz  Period = 16140
	PeriodOneHz  Period = 32280
)

// ParsePeriod maps a rate in Hz (4, 2 or 1) to a Period.
func ParsePeriod(hz int) (Period, bool) {
	switch hz {
	case 4:
		return PeriodFourHz, true
	case 2:
		return PeriodTwoHz, true
	case 1:
		return PeriodOneHz, true
	}
	return 0, false
}

const reserved = 0xFF

// CommonData is carried in bytes 4-7 of every monitor page.
type CommonData struct {
	// HeartBeatEventTime is the time of the last beat in 1/1024 s, rolling
	// over every 64 s.
	HeartBeatEventTime uint16
	HeartBeatCount     uint8
	ComputedHeartRate  uint8
}

func decodeCommon(b [8]byte) CommonData {
	return CommonData{
		HeartBeatEventTime: binary.LittleEndian.Uint16(b[4:6]),
		HeartBeatCount:     b[6],
		ComputedHeartRate:  b[7],
	}
}

func (c CommonData) put(b *[8]byte) {
	binary.LittleEndian.PutUint16(b[4:6], c.HeartBeatEventTime)
	b[6] = c.HeartBeatCount
	b[7] = c.ComputedHeartRate
}

// MonitorTxDataPage is a page sent by a heart rate monitor.
type MonitorTxDataPage interface {
	// PageNumber returns the page number written to byte 0.
	PageNumber() DataPageNumber

	// Common returns bytes 4-7.
	Common() CommonData

	// Encode returns the 8-byte page with the toggle bit clear.
	Encode() [8]byte

	monitorPage()
}

// DefaultDataPage carries only the common fields.
type DefaultDataPage struct {
	CommonData
}

// CumulativeOperatingTime reports how long the monitor has been running.
type CumulativeOperatingTime struct {
	// OperatingTime in 2 s units. Only the low 24 bits are transmitted.
	OperatingTime uint32
	CommonData
}

// ManufacturerInformation identifies the monitor's maker.
type ManufacturerInformation struct {
	ManufacturerIDLSB uint8

	// SerialNumber holds the upper 16 bits of the 32-bit serial number.
	SerialNumber uint16
	CommonData
}

// ProductInformation identifies the monitor's versions.
type ProductInformation struct {
	HardwareVersion uint8
	SoftwareVersion uint8
	ModelNumber     uint8
	CommonData
}

// PreviousHeartBeat carries the event time of the beat before the last.
type PreviousHeartBeat struct {
	ManufacturerSpecific       uint8
	PreviousHeartBeatEventTime uint16
	CommonData
}

// SwimIntervalSummary reports heart rate over a swim interval.
type SwimIntervalSummary struct {
	IntervalAverageHeartRate uint8
	IntervalMaximumHeartRate uint8
	SessionAverageHeartRate  uint8
	CommonData
}

// Features is the feature bit field of the capabilities page.
type Features uint8

// Feature bits.
const (
	FeatureExtendedRunning  Features = 0x01
	FeatureExtendedCycling  Features = 0x02
	FeatureExtendedSwimming Features = 0x04
	FeatureManufacturer1    Features = 0x40
	FeatureManufacturer2    Features = 0x80
)

// Capabilities reports which features the monitor supports and has on.
type Capabilities struct {
	Supported Features
	Enabled   Features
	CommonData
}

// BatteryState is the status in bits 4-6 of the battery page's byte 3.
type BatteryState uint8

// Battery states.
const (
	BatteryNew      BatteryState = 1
	BatteryGood     BatteryState = 2
	BatteryOk       BatteryState = 3
	BatteryLow      BatteryState = 4
	BatteryCritical BatteryState = 5
	BatteryInvalid  BatteryState = 7
)

func (s BatteryState) String() string {
	switch s {
	case BatteryNew:
		return "new"
	case BatteryGood:
		return "good"
	case BatteryOk:
		return "ok"
	case BatteryLow:
		return "low"
	case BatteryCritical:
		return "critical"
	case BatteryInvalid:
		return "invalid"
	}
	return "reserved"
}

// BatteryStatus reports the monitor's battery.
type BatteryStatus struct {
	// BatteryLevel in percent; 0xFF means not used.
	BatteryLevel uint8

	// FractionalVoltage in 1/256 V.
	FractionalVoltage uint8

	// CoarseVoltage in whole volts, 0-15; 0x0F means invalid.
	CoarseVoltage uint8
	Status        BatteryState
	CommonData
}

// Battery status markers for fields the monitor does not report.
const (
	BatteryLevelUnused   = 0xFF
	CoarseVoltageInvalid = 0x0F
)

// Voltage returns the battery voltage in volts.
func (b BatteryStatus) Voltage() float64 {
	return float64(b.CoarseVoltage) + float64(b.FractionalVoltage)/256
}

// Heart beat event types.
const (
	HeartbeatMeasured = 0x00
	HeartbeatComputed = 0x01
)

// DeviceInformation reports how beats are detected.
type DeviceInformation struct {
	// HeartbeatEventType is 2 bits: measured or computed.
	HeartbeatEventType uint8
	CommonData
}

// ManufacturerSpecific is any page in the 112-127 window.
type ManufacturerSpecific struct {
	Page uint8
	Data [3]byte
	CommonData
}

func (DefaultDataPage) PageNumber() DataPageNumber         { return PageDefault }
func (CumulativeOperatingTime) PageNumber() DataPageNumber { return PageCumulativeOperatingTime }
func (ManufacturerInformation) PageNumber() DataPageNumber { return PageManufacturerInformation }
func (ProductInformation) PageNumber() DataPageNumber      { return PageProductInformation }
func (PreviousHeartBeat) PageNumber() DataPageNumber       { return PagePreviousHeartBeat }
func (SwimIntervalSummary) PageNumber() DataPageNumber     { return PageSwimIntervalSummary }
func (Capabilities) PageNumber() DataPageNumber            { return PageCapabilities }
func (BatteryStatus) PageNumber() DataPageNumber           { return PageBatteryStatus }
func (DeviceInformation) PageNumber() DataPageNumber       { return PageDeviceInformation }
func (p ManufacturerSpecific) PageNumber() DataPageNumber {
	return DataPageNumber(p.Page & plus.DataPageNumberMask)
}

func (c CommonData) Common() CommonData { return c }

func (DefaultDataPage) monitorPage()         {}
func (CumulativeOperatingTime) monitorPage() {}
func (ManufacturerInformation) monitorPage() {}
func (ProductInformation) monitorPage()      {}
func (PreviousHeartBeat) monitorPage()       {}
func (SwimIntervalSummary) monitorPage()     {}
func (Capabilities) monitorPage()            {}
func (BatteryStatus) monitorPage()           {}
func (DeviceInformation) monitorPage()       {}
func (ManufacturerSpecific) monitorPage()    {}

func header(page DataPageNumber, b1, b2, b3 uint8, common CommonData) [8]byte {
	out := [8]byte{uint8(page) & plus.DataPageNumberMask, b1, b2, b3}
	common.put(&out)
	return out
}

func (p DefaultDataPage) Encode() [8]byte {
	return header(PageDefault, reserved, reserved, reserved, p.CommonData)
}

func (p CumulativeOperatingTime) Encode() [8]byte {
	t := p.OperatingTime
	return header(PageCumulativeOperatingTime, uint8(t), uint8(t>>8), uint8(t>>16), p.CommonData)
}

func (p ManufacturerInformation) Encode() [8]byte {
	return header(PageManufacturerInformation, p.ManufacturerIDLSB,
		uint8(p.SerialNumber), uint8(p.SerialNumber>>8), p.CommonData)
}

func (p ProductInformation) Encode() [8]byte {
	return header(PageProductInformation, p.HardwareVersion, p.SoftwareVersion, p.ModelNumber, p.CommonData)
}

func (p PreviousHeartBeat) Encode() [8]byte {
	return header(PagePreviousHeartBeat, p.ManufacturerSpecific,
		uint8(p.PreviousHeartBeatEventTime), uint8(p.PreviousHeartBeatEventTime>>8), p.CommonData)
}

func (p SwimIntervalSummary) Encode() [8]byte {
	return header(PageSwimIntervalSummary, p.IntervalAverageHeartRate,
		p.IntervalMaximumHeartRate, p.SessionAverageHeartRate, p.CommonData)
}

func (p Capabilities) Encode() [8]byte {
	return header(PageCapabilities, reserved, uint8(p.Supported), uint8(p.Enabled), p.CommonData)
}

func (p BatteryStatus) Encode() [8]byte {
	b3 := p.CoarseVoltage&0x0F | (uint8(p.Status)&0x07)<<4
	return header(PageBatteryStatus, p.BatteryLevel, p.FractionalVoltage, b3, p.CommonData)
}

func (p DeviceInformation) Encode() [8]byte {
	return header(PageDeviceInformation, 0xFC|p.HeartbeatEventType&0x03, reserved, reserved, p.CommonData)
}

func (p ManufacturerSpecific) Encode() [8]byte {
	return header(DataPageNumber(p.Page), p.Data[0], p.Data[1], p.Data[2], p.CommonData)
}

// HRFeatureCommand asks a monitor to turn features on or off. It is only
// ever sent by a display.
type HRFeatureCommand struct {
	// Apply selects which feature bits the command changes.
	Apply Features

	// Enable holds the new value of each selected bit.
	Enable Features
}

// PageNumber returns PageHRFeatureCommand.
func (HRFeatureCommand) PageNumber() DataPageNumber { return PageHRFeatureCommand }

// Encode returns the 8-byte page.
func (c HRFeatureCommand) Encode() [8]byte {
	return [8]byte{
		uint8(PageHRFeatureCommand),
		reserved, reserved, reserved, reserved, reserved,
		uint8(c.Apply), uint8(c.Enable),
	}
}

// Message wraps the command in an acknowledged data message. The display
// stamps the channel number when it sends it.
func (c HRFeatureCommand) Message() *message.AcknowledgedData {
	return &message.AcknowledgedData{Data: c.Encode()}
}
