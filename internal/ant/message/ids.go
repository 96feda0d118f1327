package message

import "fmt"

// ID is the one-byte ANT message identifier.
type ID uint8

// Configuration messages.
const (
	IDUnassignChannel    ID = 0x41
	IDAssignChannel      ID = 0x42
	IDChannelPeriod      ID = 0x43
	IDSearchTimeout      ID = 0x44
	IDChannelRFFrequency ID = 0x45
	IDSetNetworkKey      ID = 0x46
	IDChannelID          ID = 0x51
)

// Control messages.
const (
	IDResetSystem    ID = 0x4A
	IDOpenChannel    ID = 0x4B
	IDCloseChannel   ID = 0x4C
	IDRequestMessage ID = 0x4D
)

// Data messages.
const (
	IDBroadcastData     ID = 0x4E
	IDAcknowledgedData  ID = 0x4F
	IDBurstTransferData ID = 0x50
	IDAdvancedBurstData ID = 0x72
)

// Channel events, responses and notifications.
const (
	IDChannelEvent     ID = 0x40 // shared by channel events and channel responses
	IDChannelStatus    ID = 0x52
	IDStartUpMessage   ID = 0x6F
	IDSerialError      ID = 0xAE
	IDCapabilities     ID = 0x54
	IDANTVersion       ID = 0x3E
	IDSerialNumber     ID = 0x61
	IDEventBufferCfg   ID = 0x74
	IDAdvancedBurst    ID = 0x78 // capabilities (sub-id 0) and current configuration (sub-id 1)
	IDEventFilter      ID = 0x79
	IDSelectiveDataUpd ID = 0x7B
	IDUserNVM          ID = 0x7C
	IDEncryptionMode   ID = 0x7D
)

var idNames = map[ID]string{
	IDUnassignChannel:    "UnassignChannel",
	IDAssignChannel:      "AssignChannel",
	IDChannelPeriod:      "ChannelPeriod",
	IDSearchTimeout:      "SearchTimeout",
	IDChannelRFFrequency: "ChannelRFFrequency",
	IDSetNetworkKey:      "SetNetworkKey",
	IDChannelID:          "ChannelID",
	IDResetSystem:        "ResetSystem",
	IDOpenChannel:        "OpenChannel",
	IDCloseChannel:       "CloseChannel",
	IDRequestMessage:     "RequestMessage",
	IDBroadcastData:      "BroadcastData",
	IDAcknowledgedData:   "AcknowledgedData",
	IDBurstTransferData:  "BurstTransferData",
	IDAdvancedBurstData:  "AdvancedBurstData",
	IDChannelEvent:       "ChannelEvent",
	IDChannelStatus:      "ChannelStatus",
	IDStartUpMessage:     "StartUpMessage",
	IDSerialError:        "SerialError",
	IDCapabilities:       "Capabilities",
	IDANTVersion:         "ANTVersion",
	IDSerialNumber:       "SerialNumber",
	IDEventBufferCfg:     "EventBufferConfiguration",
	IDAdvancedBurst:      "AdvancedBurst",
	IDEventFilter:        "EventFilter",
	IDSelectiveDataUpd:   "SelectiveDataUpdateMaskSetting",
	IDUserNVM:            "UserNVM",
	IDEncryptionMode:     "EncryptionModeParameters",
}

// String returns the message name, or the hex value for unknown IDs.
func (id ID) String() string {
	if name, ok := idNames[id]; ok {
		return name
	}
	return fmt.Sprintf("ID(0x%02X)", uint8(id))
}
