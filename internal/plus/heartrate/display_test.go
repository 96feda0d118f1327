package heartrate

import (
	"errors"
	"testing"

	"github.com/nerrad567/antplus-core/internal/ant/channel"
	"github.com/nerrad567/antplus-core/internal/ant/driver/stub"
	"github.com/nerrad567/antplus-core/internal/ant/message"
	"github.com/nerrad567/antplus-core/internal/ant/router"
)

type pageResult struct {
	page MonitorTxDataPage
	err  error
}

func newAssignedDisplay(t *testing.T, device *Device, slot uint8) *Display {
	t.Helper()
	mb := channel.NewMailbox(0)
	mb.SetChannel(router.AssignedTo(slot))
	return NewDisplay(device, 0, PeriodFourHz, mb)
}

// openDisplay drives the open sequence by hand, acking every command.
func openDisplay(t *testing.T, d *Display) {
	t.Helper()
	if err := d.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	for i := 0; i < 6; i++ {
		d.Process()
		cmd := d.Mailbox().SendMessage()
		if cmd == nil {
			t.Fatalf("cycle %d sent nothing", i)
		}
		_ = d.Mailbox().ReceiveMessage(&message.AntMessage{Message: &message.ChannelResponse{
			Channel:      cmd.Payload()[0],
			RespondingTo: cmd.MessageID(),
		}})
	}
	d.Process()
	if d.State() != channel.StateSearching {
		t.Fatalf("State() = %s, want searching", d.State())
	}
}

func TestDisplayDefaultPageScenario(t *testing.T) {
	d := newAssignedDisplay(t, nil, 1)

	var results []pageResult
	d.SetRxDataPageCallback(func(page MonitorTxDataPage, err error) {
		results = append(results, pageResult{page, err})
	})

	// Broadcast payload: channel byte 0x01 then an all-zero default page.
	rx, err := message.Decode(message.IDBroadcastData, []byte{0x01, 0, 0, 0, 0, 0, 0, 0, 0})
	if err != nil {
		t.Fatalf("message.Decode() error = %v", err)
	}
	_ = d.Mailbox().ReceiveMessage(&message.AntMessage{Message: rx})
	d.Process()

	if len(results) != 1 {
		t.Fatalf("callback invoked %d times, want 1", len(results))
	}
	if results[0].err != nil {
		t.Fatalf("callback error = %v", results[0].err)
	}
	page, ok := results[0].page.(DefaultDataPage)
	if !ok {
		t.Fatalf("page = %T, want DefaultDataPage", results[0].page)
	}
	if page != (DefaultDataPage{}) {
		t.Errorf("page = %+v, want all zero", page)
	}
}

func TestDisplayDecodeErrorsAreIndependent(t *testing.T) {
	d := newAssignedDisplay(t, nil, 0)

	var results []pageResult
	d.SetRxDataPageCallback(func(page MonitorTxDataPage, err error) {
		results = append(results, pageResult{page, err})
	})

	for _, data := range [][8]byte{
		{0x20},                                // feature command, wrong direction
		{0x00, 0xFF, 0xFF, 0xFF, 0, 0, 1, 60}, // default page
		{0x0B},                                // unknown
		{0x87, 90, 0, 0x23, 0, 0, 2, 61},      // battery, toggle set
	} {
		_ = d.Mailbox().ReceiveMessage(&message.AntMessage{Message: &message.AcknowledgedData{Channel: 0, Data: data}})
	}
	d.Process()

	if len(results) != 4 {
		t.Fatalf("callback invoked %d times, want 4", len(results))
	}
	if !errors.Is(results[0].err, ErrUnsupportedDataPage) || results[0].page != nil {
		t.Errorf("result 0 = %+v, want unsupported page error", results[0])
	}
	if results[1].err != nil || results[1].page.Common().ComputedHeartRate != 60 {
		t.Errorf("result 1 = %+v, want default page at 60 bpm", results[1])
	}
	if !errors.Is(results[2].err, ErrUnsupportedDataPage) {
		t.Errorf("result 2 = %+v, want unsupported page error", results[2])
	}
	if b, ok := results[3].page.(BatteryStatus); !ok || b.BatteryLevel != 90 || b.Status != BatteryGood {
		t.Errorf("result 3 = %+v, want battery status", results[3])
	}
}

func TestDisplayOpenRequiresAssignment(t *testing.T) {
	d := NewDisplay(nil, 0, PeriodFourHz, channel.NewMailbox(0))
	if err := d.Open(); !errors.Is(err, ErrNotAssigned) {
		t.Errorf("Open() error = %v, want ErrNotAssigned", err)
	}
}

func TestDisplayConfig(t *testing.T) {
	d := newAssignedDisplay(t, &Device{Number: 0x1234, TransmissionTypeExtension: 0x3}, 0)
	cfg := d.Config()

	if cfg.DeviceNumber != 0x1234 || cfg.DeviceType != DeviceType {
		t.Errorf("device = %d/%d", cfg.DeviceNumber, cfg.DeviceType)
	}
	if cfg.TransmissionType.Pack() != 0x31 {
		t.Errorf("transmission type = 0x%02X, want 0x31", cfg.TransmissionType.Pack())
	}
	if cfg.RadioFrequency != 57 || cfg.Timeout != 12 || cfg.ChannelPeriod != 8070 {
		t.Errorf("radio config = %+v", cfg)
	}
	if cfg.ChannelType != channel.BidirectionalSlave {
		t.Errorf("channel type = %s", cfg.ChannelType)
	}
	if d.DeviceID() != 0x1234 {
		t.Errorf("DeviceID() = 0x%04X", d.DeviceID())
	}
}

func TestDisplaySendPriority(t *testing.T) {
	d := newAssignedDisplay(t, &Device{Number: 7}, 2)
	openDisplay(t, d)

	overrides := []message.ChannelTxMessage{&message.ChannelPeriod{Period: uint16(PeriodTwoHz)}}
	d.SetTxMessageCallback(func() message.ChannelTxMessage {
		if len(overrides) == 0 {
			return nil
		}
		next := overrides[0]
		overrides = overrides[1:]
		return next
	})
	pages := 0
	d.SetTxDataPageCallback(func() message.ChannelTxMessage {
		pages++
		return HRFeatureCommand{Apply: FeatureExtendedRunning, Enable: FeatureExtendedRunning}.Message()
	})

	// Data puts the channel in tracking and makes it tx ready.
	_ = d.Mailbox().ReceiveMessage(&message.AntMessage{Message: &message.BroadcastData{Channel: 2}})

	// Cycle 1: the override wins over the data page.
	d.Process()
	first := d.Mailbox().SendMessage()
	if first == nil || first.MessageID() != message.IDChannelPeriod || first.Payload()[0] != 2 {
		t.Fatalf("cycle 1 sent %v, want ChannelPeriod on 2", first)
	}
	if d.Mailbox().SendMessage() != nil {
		t.Fatal("more than one message sent in a cycle")
	}

	// Cycle 2: no override left, tx ready, so the data page goes.
	d.Process()
	second := d.Mailbox().SendMessage()
	if second == nil || second.MessageID() != message.IDAcknowledgedData || second.Payload()[0] != 2 {
		t.Fatalf("cycle 2 sent %v, want AcknowledgedData on 2", second)
	}

	// Cycle 3: TxSent cleared the ready flag; nothing goes.
	d.Process()
	if got := d.Mailbox().SendMessage(); got != nil {
		t.Fatalf("cycle 3 sent %s, want nothing", got.MessageID())
	}
	if pages != 1 {
		t.Errorf("data page provider called %d times, want 1", pages)
	}

	// A tx event re-arms the page provider.
	_ = d.Mailbox().ReceiveMessage(&message.AntMessage{Message: &message.ChannelEvent{Channel: 2, Code: message.EventTx}})
	d.Process()
	if got := d.Mailbox().SendMessage(); got == nil || got.MessageID() != message.IDAcknowledgedData {
		t.Errorf("after EventTx sent %v, want AcknowledgedData", got)
	}
}

func TestDisplayHandlerCommandsFirst(t *testing.T) {
	d := newAssignedDisplay(t, nil, 0)
	overrideCalls := 0
	d.SetTxMessageCallback(func() message.ChannelTxMessage {
		overrideCalls++
		return &message.SearchTimeout{Timeout: 1}
	})

	if err := d.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	d.Process()
	if got := d.Mailbox().SendMessage(); got == nil || got.MessageID() != message.IDAssignChannel {
		t.Fatalf("sent %v, want AssignChannel", got)
	}
	if overrideCalls != 0 {
		t.Errorf("override provider called %d times while a command was queued", overrideCalls)
	}
}

func TestDisplaySurfacesHandlerErrors(t *testing.T) {
	d := newAssignedDisplay(t, nil, 0)
	var errs []error
	d.SetRxDataPageCallback(func(page MonitorTxDataPage, err error) {
		if err != nil {
			errs = append(errs, err)
		}
	})

	_ = d.Open()
	d.Process()
	cmd := d.Mailbox().SendMessage()
	_ = d.Mailbox().ReceiveMessage(&message.AntMessage{Message: &message.ChannelResponse{
		Channel: 0, RespondingTo: cmd.MessageID(), Code: message.InvalidNetworkNumber,
	}})
	d.Process()

	if len(errs) != 1 || !errors.Is(errs[0], channel.ErrConfigRejected) {
		t.Errorf("errors = %v, want one ErrConfigRejected", errs)
	}
	if d.State() != channel.StateClosed {
		t.Errorf("State() = %s, want closed", d.State())
	}
}

func TestDisplayRawObserver(t *testing.T) {
	d := newAssignedDisplay(t, nil, 0)
	var seen []message.ID
	d.SetRxMessageCallback(func(msg *message.AntMessage) {
		seen = append(seen, msg.Message.MessageID())
	})

	_ = d.Mailbox().ReceiveMessage(&message.AntMessage{Message: &message.StartUpMessage{}})
	_ = d.Mailbox().ReceiveMessage(&message.AntMessage{Message: &message.BroadcastData{}})
	d.Process()

	if len(seen) != 2 || seen[0] != message.IDStartUpMessage || seen[1] != message.IDBroadcastData {
		t.Errorf("observer saw %v", seen)
	}
}

func TestDisplayResetState(t *testing.T) {
	d := newAssignedDisplay(t, nil, 3)
	openDisplay(t, d)
	_ = d.Mailbox().ReceiveMessage(&message.AntMessage{Message: &message.BroadcastData{Channel: 3}})
	_ = d.Mailbox().ReceiveMessage(&message.AntMessage{Message: &message.ChannelID{Channel: 3, DeviceNumber: 99}})
	d.Process()
	if d.DeviceID() != 99 {
		t.Fatalf("DeviceID() = %d, want 99", d.DeviceID())
	}

	d.ResetState()
	if d.State() != channel.StateClosed || d.DeviceID() != 0 {
		t.Errorf("after ResetState state = %s, device = %d", d.State(), d.DeviceID())
	}
	if err := d.Open(); err != nil {
		t.Errorf("Open() after ResetState error = %v", err)
	}
}

func TestDisplayWithRouter(t *testing.T) {
	radio := stub.NewRadio(8)
	radio.DeviceNumber = 0x4242
	radio.DeviceType = DeviceType
	radio.Source = func(_ uint8, tick uint64) ([8]byte, bool) {
		return DefaultDataPage{CommonData: CommonData{
			HeartBeatEventTime: uint16(tick * 1024),
			HeartBeatCount:     uint8(tick),
			ComputedHeartRate:  65,
		}}.Encode(), true
	}
	drv := stub.NewWithEmulator(radio)

	r, err := router.New(drv)
	if err != nil {
		t.Fatalf("router.New() error = %v", err)
	}
	mb := channel.NewMailbox(0)
	if err := r.AddChannel(mb); err != nil {
		t.Fatalf("AddChannel() error = %v", err)
	}

	d := NewDisplay(nil, 0, PeriodFourHz, mb)
	var rates []uint8
	d.SetRxDataPageCallback(func(page MonitorTxDataPage, err error) {
		if err != nil {
			t.Errorf("page error = %v", err)
			return
		}
		rates = append(rates, page.Common().ComputedHeartRate)
	})
	if err := d.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	for i := 0; i < 40 && (d.DeviceID() == 0 || len(rates) < 3); i++ {
		if err := r.Process(); err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		d.Process()
	}

	if d.State() != channel.StateTracking {
		t.Errorf("State() = %s, want tracking", d.State())
	}
	if d.DeviceID() != 0x4242 {
		t.Errorf("DeviceID() = 0x%04X, want 0x4242", d.DeviceID())
	}
	if len(rates) < 3 || rates[0] != 65 {
		t.Errorf("rates = %v, want at least 3 at 65 bpm", rates)
	}

	d.Close()
	for i := 0; i < 10 && d.State() != channel.StateClosed; i++ {
		_ = r.Process()
		d.Process()
	}
	if d.State() != channel.StateClosed {
		t.Errorf("State() after close = %s, want closed", d.State())
	}
}

func TestDisplayDetachesWhenUnassigned(t *testing.T) {
	d := newAssignedDisplay(t, nil, 3)
	openDisplay(t, d)

	d.Mailbox().SetChannel(router.Unassigned)
	d.Process()
	if d.State() != channel.StateClosed {
		t.Fatalf("State() = %s, want closed after losing the slot", d.State())
	}

	// Slot 3 now belongs to someone else.
	_ = d.Mailbox().ReceiveMessage(&message.AntMessage{Message: &message.ChannelID{Channel: 3, DeviceNumber: 99}})
	d.Process()
	if d.DeviceID() != 0 {
		t.Errorf("DeviceID() = %d, want 0 while unassigned", d.DeviceID())
	}
	if got := d.Mailbox().SendMessage(); got != nil {
		t.Errorf("unassigned display sent %s", got.MessageID())
	}
	if err := d.Open(); !errors.Is(err, ErrNotAssigned) {
		t.Errorf("Open() error = %v, want ErrNotAssigned", err)
	}

	d.Mailbox().SetChannel(router.AssignedTo(5))
	if err := d.Open(); err != nil {
		t.Fatalf("Open() after reassignment error = %v", err)
	}
	d.Process()
	if got := d.Mailbox().SendMessage(); got == nil || got.Payload()[0] != 5 {
		t.Errorf("sent %v, want AssignChannel on channel 5", got)
	}
}
