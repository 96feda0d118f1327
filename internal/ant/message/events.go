package message

import "fmt"

// EventCode is the code carried by a ChannelEvent.
type EventCode uint8

// Channel event codes reported by the radio.
const (
	EventRxSearchTimeout     EventCode = 0x01
	EventRxFail              EventCode = 0x02
	EventTx                  EventCode = 0x03
	EventTransferRxFailed    EventCode = 0x04
	EventTransferTxCompleted EventCode = 0x05
	EventTransferTxFailed    EventCode = 0x06
	EventChannelClosed       EventCode = 0x07
	EventRxFailGoToSearch    EventCode = 0x08
	EventChannelCollision    EventCode = 0x09
	EventTransferTxStart     EventCode = 0x0A
)

var eventNames = map[EventCode]string{
	EventRxSearchTimeout:     "RxSearchTimeout",
	EventRxFail:              "RxFail",
	EventTx:                  "Tx",
	EventTransferRxFailed:    "TransferRxFailed",
	EventTransferTxCompleted: "TransferTxCompleted",
	EventTransferTxFailed:    "TransferTxFailed",
	EventChannelClosed:       "ChannelClosed",
	EventRxFailGoToSearch:    "RxFailGoToSearch",
	EventChannelCollision:    "ChannelCollision",
	EventTransferTxStart:     "TransferTxStart",
}

func (c EventCode) String() string {
	if name, ok := eventNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Event(0x%02X)", uint8(c))
}

// ResponseCode is the code carried by a ChannelResponse.
type ResponseCode uint8

// Channel response codes. Anything other than ResponseNoError means the
// radio rejected the command named in the response.
const (
	ResponseNoError             ResponseCode = 0x00
	ChannelInWrongState         ResponseCode = 0x15
	ChannelNotOpened            ResponseCode = 0x16
	ChannelIDNotSet             ResponseCode = 0x18
	CloseAllChannels            ResponseCode = 0x19
	TransferInProgress          ResponseCode = 0x1F
	TransferSequenceNumberError ResponseCode = 0x20
	TransferInError             ResponseCode = 0x21
	MessageSizeExceedsLimit     ResponseCode = 0x27
	InvalidMessage              ResponseCode = 0x28
	InvalidNetworkNumber        ResponseCode = 0x29
	InvalidListID               ResponseCode = 0x30
	InvalidScanTxChannel        ResponseCode = 0x31
	InvalidParameterProvided    ResponseCode = 0x33
	EncryptNegotiationSuccess   ResponseCode = 0x38
	EncryptNegotiationFail      ResponseCode = 0x39
	NVMFullError                ResponseCode = 0x40
	NVMWriteError               ResponseCode = 0x41
	USBStringWriteFail          ResponseCode = 0x70
	MesgSerialErrorID           ResponseCode = 0xAE
)

var responseNames = map[ResponseCode]string{
	ResponseNoError:             "NoError",
	ChannelInWrongState:         "ChannelInWrongState",
	ChannelNotOpened:            "ChannelNotOpened",
	ChannelIDNotSet:             "ChannelIDNotSet",
	CloseAllChannels:            "CloseAllChannels",
	TransferInProgress:          "TransferInProgress",
	TransferSequenceNumberError: "TransferSequenceNumberError",
	TransferInError:             "TransferInError",
	MessageSizeExceedsLimit:     "MessageSizeExceedsLimit",
	InvalidMessage:              "InvalidMessage",
	InvalidNetworkNumber:        "InvalidNetworkNumber",
	InvalidListID:               "InvalidListID",
	InvalidScanTxChannel:        "InvalidScanTxChannel",
	InvalidParameterProvided:    "InvalidParameterProvided",
	EncryptNegotiationSuccess:   "EncryptNegotiationSuccess",
	EncryptNegotiationFail:      "EncryptNegotiationFail",
	NVMFullError:                "NVMFullError",
	NVMWriteError:               "NVMWriteError",
	USBStringWriteFail:          "USBStringWriteFail",
	MesgSerialErrorID:           "SerialErrorID",
}

func (c ResponseCode) String() string {
	if name, ok := responseNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Response(0x%02X)", uint8(c))
}
