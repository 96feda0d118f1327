package heartrate

import (
	"encoding/binary"

	"github.com/nerrad567/antplus-core/internal/plus"
)

// Decode turns an 8-byte page received from a monitor into its typed form.
//
// The page number comes from the low 7 bits of byte 0. The HR feature
// command page is only valid from display to monitor and is rejected here.
// Any page in the manufacturer-specific window decodes as
// ManufacturerSpecific.
//
// Returns *UnsupportedDataPageError (matching ErrUnsupportedDataPage) for
// any other page number.
func Decode(data [8]byte) (MonitorTxDataPage, error) {
	number := plus.PageNumber(data)
	common := decodeCommon(data)

	switch DataPageNumber(number) {
	case PageDefault:
		return DefaultDataPage{CommonData: common}, nil

	case PageCumulativeOperatingTime:
		return CumulativeOperatingTime{
			OperatingTime: uint32(data[1]) | uint32(data[2])<<8 | uint32(data[3])<<16,
			CommonData:    common,
		}, nil

	case PageManufacturerInformation:
		return ManufacturerInformation{
			ManufacturerIDLSB: data[1],
			SerialNumber:      binary.LittleEndian.Uint16(data[2:4]),
			CommonData:        common,
		}, nil

	case PageProductInformation:
		return ProductInformation{
			HardwareVersion: data[1],
			SoftwareVersion: data[2],
			ModelNumber:     data[3],
			CommonData:      common,
		}, nil

	case PagePreviousHeartBeat:
		return PreviousHeartBeat{
			ManufacturerSpecific:       data[1],
			PreviousHeartBeatEventTime: binary.LittleEndian.Uint16(data[2:4]),
			CommonData:                 common,
		}, nil

	case PageSwimIntervalSummary:
		return SwimIntervalSummary{
			IntervalAverageHeartRate: data[1],
			IntervalMaximumHeartRate: data[2],
			SessionAverageHeartRate:  data[3],
			CommonData:               common,
		}, nil

	case PageCapabilities:
		return Capabilities{
			Supported:  Features(data[2]),
			Enabled:    Features(data[3]),
			CommonData: common,
		}, nil

	case PageBatteryStatus:
		return BatteryStatus{
			BatteryLevel:      data[1],
			FractionalVoltage: data[2],
			CoarseVoltage:     data[3] & 0x0F,
			Status:            BatteryState((data[3] >> 4) & 0x07),
			CommonData:        common,
		}, nil

	case PageDeviceInformation:
		return DeviceInformation{
			HeartbeatEventType: data[1] & 0x03,
			CommonData:         common,
		}, nil

	case PageHRFeatureCommand:
		return nil, &UnsupportedDataPageError{Code: number}
	}

	if plus.IsManufacturerSpecific(number) {
		return ManufacturerSpecific{
			Page:       number,
			Data:       [3]byte{data[1], data[2], data[3]},
			CommonData: common,
		}, nil
	}
	return nil, &UnsupportedDataPageError{Code: number}
}
