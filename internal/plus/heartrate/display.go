package heartrate

import (
	"time"

	"github.com/nerrad567/antplus-core/internal/ant/channel"
	"github.com/nerrad567/antplus-core/internal/ant/message"
	"github.com/nerrad567/antplus-core/internal/plus"
)

// searchTimeout is how long a display searches before the radio gives up.
const searchTimeout = 30 * time.Second

// Device identifies a known monitor to pair with.
type Device struct {
	Number uint16

	// TransmissionTypeExtension is the 4-bit device number extension.
	TransmissionTypeExtension uint8
}

// Callback types. All are called synchronously from Process.
type (
	// RxMessageCallback sees every message delivered to the channel.
	RxMessageCallback func(msg *message.AntMessage)

	// RxDataPageCallback receives each decoded page, or the error that
	// replaced it. Exactly one of page and err is non-nil.
	RxDataPageCallback func(page MonitorTxDataPage, err error)

	// TxMessageCallback may return a configuration override to send.
	TxMessageCallback func() message.ChannelTxMessage

	// TxDataPageCallback may return a data page message to send once the
	// channel is ready to transmit.
	TxDataPageCallback func() message.ChannelTxMessage
)

// Display is the receiving side of a heart rate channel.
//
// Display is not safe for concurrent use; drive it from the goroutine that
// calls Router.Process.
type Display struct {
	config  channel.ChannelConfig
	handler *channel.MessageHandler
	mailbox *channel.Mailbox

	rxMessage  RxMessageCallback
	rxDataPage RxDataPageCallback
	txMessage  TxMessageCallback
	txDataPage TxDataPageCallback
}

// NewDisplay creates a closed display.
//
// Parameters:
//   - device: Monitor to pair with, or nil to pair with the first found
//   - networkKeyIndex: Radio network slot holding the ANT+ key
//   - period: Message period the monitor transmits at
//   - mailbox: Handle registered (or to be registered) with the router
func NewDisplay(device *Device, networkKeyIndex uint8, period Period, mailbox *channel.Mailbox) *Display {
	var number uint16
	var extension uint8
	if device != nil {
		number = device.Number
		extension = device.TransmissionTypeExtension
	}

	cfg := channel.ChannelConfig{
		DeviceNumber:    number,
		DeviceType:      DeviceType,
		ChannelType:     channel.BidirectionalSlave,
		NetworkKeyIndex: networkKeyIndex,
		TransmissionType: channel.TransmissionType{
			ChannelType: channel.IndependentChannel,
			Extension:   extension,
		},
		RadioFrequency: plus.NetworkRFFrequency,
		Timeout:        channel.DurationToSearchTimeout(searchTimeout),
		ChannelPeriod:  uint16(period),
	}

	d := &Display{config: cfg, mailbox: mailbox}
	d.handler = channel.NewMessageHandler(0, cfg)
	d.syncChannel()
	return d
}

// Mailbox returns the handle to register with the router.
func (d *Display) Mailbox() *channel.Mailbox { return d.mailbox }

// Config returns the channel configuration sent on open.
func (d *Display) Config() channel.ChannelConfig { return d.config }

// Open starts pairing. The configuration is sent over the next Process
// cycles.
func (d *Display) Open() error {
	if !d.syncChannel() {
		return ErrNotAssigned
	}
	return d.handler.Open()
}

// Close closes the channel.
func (d *Display) Close() {
	d.handler.Close()
}

// DeviceID returns the paired monitor's device number, or 0 if unknown.
func (d *Display) DeviceID() uint16 { return d.handler.DeviceID() }

// State returns the channel lifecycle state.
func (d *Display) State() channel.State { return d.handler.State() }

// SetRxMessageCallback sets the raw message observer. nil removes it.
func (d *Display) SetRxMessageCallback(f RxMessageCallback) { d.rxMessage = f }

// SetRxDataPageCallback sets the decoded page observer. nil removes it.
func (d *Display) SetRxDataPageCallback(f RxDataPageCallback) { d.rxDataPage = f }

// SetTxMessageCallback sets the configuration override provider. nil
// removes it.
func (d *Display) SetTxMessageCallback(f TxMessageCallback) { d.txMessage = f }

// SetTxDataPageCallback sets the outbound page provider. nil removes it.
func (d *Display) SetTxDataPageCallback(f TxDataPageCallback) { d.txDataPage = f }

// ResetState returns the display to closed, forgetting any pairing and
// queued commands. Use after the radio was reset without restore.
func (d *Display) ResetState() {
	d.handler = channel.NewMessageHandler(d.handler.Channel(), d.config)
	d.syncChannel()
}

// syncChannel copies the router assignment into the handler. Losing the
// slot detaches the handler, so it stops matching the old channel number.
func (d *Display) syncChannel() bool {
	index, ok := d.mailbox.Assignment().Index()
	switch {
	case ok:
		d.handler.SetChannel(index)
	case d.handler.Attached():
		d.handler.Detach()
	}
	return ok
}

// Process runs one display cycle.
//
// Every queued inbound message goes to the raw observer, data frames are
// decoded for the page observer, and the message then feeds the channel
// state machine. Afterwards at most one message is sent, in priority
// order: a state machine command, a configuration override, or (only when
// the radio is ready to transmit) an application data page.
func (d *Display) Process() {
	d.syncChannel()

	for {
		msg, ok := d.mailbox.Receive()
		if !ok {
			break
		}
		if d.rxMessage != nil {
			d.rxMessage(msg)
		}

		switch m := msg.Message.(type) {
		case *message.BroadcastData:
			d.handleDataPage(m.Data)
		case *message.AcknowledgedData:
			d.handleDataPage(m.Data)
		}

		if err := d.handler.ReceiveMessage(msg); err != nil && d.rxDataPage != nil {
			d.rxDataPage(nil, err)
		}
	}

	if !d.handler.Attached() {
		return
	}

	// Nothing is popped until there is room to send it.
	if _, out := d.mailbox.Pending(); out >= d.mailbox.Capacity() {
		return
	}

	if cmd := d.handler.SendMessage(); cmd != nil {
		d.send(cmd)
		return
	}

	if d.txMessage != nil {
		if cmd := d.txMessage(); cmd != nil {
			cmd.SetChannel(d.handler.Channel())
			d.send(cmd)
			return
		}
	}

	if d.handler.IsTxReady() && d.txDataPage != nil {
		if page := d.txDataPage(); page != nil {
			page.SetChannel(d.handler.Channel())
			d.handler.TxSent()
			d.send(page)
		}
	}
}

func (d *Display) handleDataPage(data [8]byte) {
	page, err := Decode(data)
	if d.rxDataPage != nil {
		d.rxDataPage(page, err)
	}
}

func (d *Display) send(msg message.TxMessage) {
	// Room was checked before popping; Send cannot fail here.
	_ = d.mailbox.Send(msg)
}
