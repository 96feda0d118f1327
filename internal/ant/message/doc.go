// Package message models the ANT serial message set used by the host stack.
//
// Messages travel between the host and the radio as a one-byte message ID
// followed by a short payload. This package turns those (ID, payload) pairs
// into typed values and back again. Framing (sync byte, length, checksum)
// belongs to the driver; this package never sees it.
//
// # Receivable messages
//
// Everything the radio can send to the host implements RxMessage. They fall
// into three groups that the router treats differently:
//
//   - Channel scoped: BroadcastData, AcknowledgedData, BurstTransferData,
//     AdvancedBurstData, ChannelEvent, ChannelResponse, ChannelStatus,
//     ChannelID. These implement ChannelScoped.
//   - Global with side effects: StartUpMessage, Capabilities,
//     AdvancedBurstCapabilities, AdvancedBurstCurrentConfiguration,
//     EncryptionModeParameters.
//   - Global, informational only: EventFilter, SerialErrorMessage,
//     ANTVersion, SerialNumber, EventBufferConfiguration,
//     SelectiveDataUpdateMaskSetting, UserNVM.
//
// # Transmittable messages
//
// Everything the host can send implements TxMessage. Messages that address
// a channel and may be produced by application callbacks also implement
// ChannelTxMessage so the owning channel can stamp its own number on them.
//
// Example:
//
//	rx, err := message.Decode(message.IDBroadcastData, payload)
//	if err != nil {
//	    return err
//	}
//	if data, ok := rx.(*message.BroadcastData); ok {
//	    fmt.Println(data.Channel, data.Data)
//	}
package message
