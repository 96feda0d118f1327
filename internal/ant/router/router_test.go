package router

import (
	"errors"
	"sync"
	"testing"

	"github.com/nerrad567/antplus-core/internal/ant/driver/stub"
	"github.com/nerrad567/antplus-core/internal/ant/message"
)

// mockChannel records everything the router does to it.
type mockChannel struct {
	id         int
	assignment Assignment
	received   []*message.AntMessage
	outbox     []message.TxMessage
	recvErr    error
}

func (c *mockChannel) ReceiveMessage(msg *message.AntMessage) error {
	c.received = append(c.received, msg)
	return c.recvErr
}

func (c *mockChannel) SendMessage() message.TxMessage {
	if len(c.outbox) == 0 {
		return nil
	}
	next := c.outbox[0]
	c.outbox = c.outbox[1:]
	return next
}

func (c *mockChannel) SetChannel(a Assignment) {
	c.assignment = a
}

// mockLogger collects warnings.
type mockLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *mockLogger) Debug(string, ...any) {}
func (l *mockLogger) Info(string, ...any)  {}
func (l *mockLogger) Error(string, ...any) {}
func (l *mockLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

// scriptedDriver answers the n-th GetMessage call (1-based) with a
// scripted message.
type scriptedDriver struct {
	polls   int
	replies map[int]message.RxMessage
	sent    []message.TxMessage
}

func (d *scriptedDriver) SendMessage(msg message.TxMessage) error {
	d.sent = append(d.sent, msg)
	return nil
}

func (d *scriptedDriver) GetMessage() (*message.AntMessage, error) {
	d.polls++
	if m, ok := d.replies[d.polls]; ok {
		return &message.AntMessage{Message: m}, nil
	}
	return nil, nil //nolint:nilnil // nothing pending
}

func newTestRouter(t *testing.T, maxChannels uint8) (*Router, *stub.Driver) {
	t.Helper()
	drv := stub.NewWithEmulator(stub.NewRadio(maxChannels))
	r, err := New(drv)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	drv.ClearSent()
	return r, drv
}

func TestNewNegotiatesCapabilities(t *testing.T) {
	r, _ := newTestRouter(t, 8)

	if r.MaxChannels() != 8 {
		t.Errorf("MaxChannels() = %d, want 8", r.MaxChannels())
	}
	if r.ResetRestore() {
		t.Error("ResetRestore() = true after New")
	}
}

func TestNewSendsResetThenRequest(t *testing.T) {
	drv := stub.NewWithEmulator(stub.NewRadio(15))
	if _, err := New(drv); err != nil {
		t.Fatalf("New() error = %v", err)
	}

	sent := drv.Sent()
	if len(sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(sent))
	}
	if sent[0].MessageID() != message.IDResetSystem {
		t.Errorf("sent[0] = %s, want ResetSystem", sent[0].MessageID())
	}
	req, ok := sent[1].(*message.RequestMessage)
	if !ok || req.Requested != message.IDCapabilities || req.Channel != 0 {
		t.Errorf("sent[1] = %#v, want capabilities request on channel 0", sent[1])
	}
}

func TestNewFailsAfterExactlyTwentyFivePolls(t *testing.T) {
	drv := stub.New()

	_, err := New(drv)
	if !errors.Is(err, ErrFailedToGetCapabilities) {
		t.Fatalf("New() error = %v, want ErrFailedToGetCapabilities", err)
	}

	// One poll ends the stale purge, then one empty poll per Process call.
	if got := drv.Polls(); got != 1+capabilityPolls {
		t.Errorf("Polls() = %d, want %d", got, 1+capabilityPolls)
	}
}

func TestNewAcceptsReplyOnLastAttempt(t *testing.T) {
	tests := []struct {
		name    string
		replyAt int
		wantErr bool
	}{
		{"first attempt", 2, false},
		{"last attempt", 1 + capabilityPolls, false},
		{"one too late", 2 + capabilityPolls, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drv := &scriptedDriver{replies: map[int]message.RxMessage{
				tt.replyAt: &message.Capabilities{MaxChannels: 4},
			}}
			r, err := New(drv)
			if tt.wantErr {
				if !errors.Is(err, ErrFailedToGetCapabilities) {
					t.Errorf("New() error = %v, want ErrFailedToGetCapabilities", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if r.MaxChannels() != 4 {
				t.Errorf("MaxChannels() = %d, want 4", r.MaxChannels())
			}
		})
	}
}

func TestNewDriverSendFailure(t *testing.T) {
	cause := errors.New("port gone")
	drv := stub.New()
	drv.FailSend(cause)

	_, err := New(drv)
	if !errors.Is(err, ErrDriver) {
		t.Errorf("New() error = %v, want ErrDriver", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("New() error = %v, want cause preserved", err)
	}
}

func TestAddChannelEightChannelRadio(t *testing.T) {
	r, _ := newTestRouter(t, 8)

	for i := 0; i < 8; i++ {
		if err := r.AddChannel(&mockChannel{id: i}); err != nil {
			t.Fatalf("AddChannel() #%d error = %v", i+1, err)
		}
	}
	if err := r.AddChannel(&mockChannel{id: 8}); !errors.Is(err, ErrOutOfChannels) {
		t.Errorf("ninth AddChannel() error = %v, want ErrOutOfChannels", err)
	}
}

func TestAddRemoveAssignment(t *testing.T) {
	r, drv := newTestRouter(t, MaxChannels)

	channels := make([]*mockChannel, MaxChannels)
	for i := range channels {
		channels[i] = &mockChannel{id: i}
		if err := r.AddChannel(channels[i]); err != nil {
			t.Fatalf("AddChannel() error = %v", err)
		}
		index, ok := channels[i].assignment.Index()
		if !ok || int(index) != i {
			t.Errorf("channel %d assignment = %s, want assigned(%d)", i, channels[i].assignment, i)
		}
		if r.Channel(i) != channels[i] {
			t.Errorf("Channel(%d) is not the added channel", i)
		}
	}

	for i, ch := range channels {
		drv.ClearSent()
		if err := r.RemoveChannel(ch); err != nil {
			t.Fatalf("RemoveChannel() error = %v", err)
		}
		if ch.assignment.IsAssigned() {
			t.Errorf("channel %d assignment = %s, want unassigned", i, ch.assignment)
		}
		if r.Channel(i) != nil {
			t.Errorf("slot %d still occupied", i)
		}

		sent := drv.Sent()
		if len(sent) != 2 {
			t.Fatalf("RemoveChannel() sent %d messages, want 2", len(sent))
		}
		if c, ok := sent[0].(*message.CloseChannel); !ok || int(c.Channel) != i {
			t.Errorf("sent[0] = %#v, want CloseChannel(%d)", sent[0], i)
		}
		if u, ok := sent[1].(*message.UnassignChannel); !ok || int(u.Channel) != i {
			t.Errorf("sent[1] = %#v, want UnassignChannel(%d)", sent[1], i)
		}

		// The lowest freed slot is reused by the next add.
		refill := &mockChannel{}
		if err := r.AddChannel(refill); err != nil {
			t.Fatalf("AddChannel() after remove error = %v", err)
		}
		if index, _ := refill.assignment.Index(); index != 0 {
			t.Errorf("refill assignment = %s, want assigned(0)", refill.assignment)
		}
		if err := r.RemoveChannel(refill); err != nil {
			t.Fatalf("RemoveChannel() of refill error = %v", err)
		}
	}
}

func TestAddChannelFullTableAnyOrder(t *testing.T) {
	orders := map[string][]int{
		"ascending":  {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14},
		"descending": {14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1, 0},
		"interleave": {0, 14, 1, 13, 2, 12, 3, 11, 4, 10, 5, 9, 6, 8, 7},
	}

	for name, order := range orders {
		t.Run(name, func(t *testing.T) {
			r, _ := newTestRouter(t, MaxChannels)
			for _, idx := range order {
				if err := r.AddChannelAtIndex(&mockChannel{id: idx}, idx); err != nil {
					t.Fatalf("AddChannelAtIndex(%d) error = %v", idx, err)
				}
			}
			if err := r.AddChannel(&mockChannel{}); !errors.Is(err, ErrOutOfChannels) {
				t.Errorf("AddChannel() on full table error = %v, want ErrOutOfChannels", err)
			}
		})
	}
}

func TestAddChannelAtIndex(t *testing.T) {
	r, _ := newTestRouter(t, 8)

	for idx := 0; idx < MaxChannels+2; idx++ {
		err := r.AddChannelAtIndex(&mockChannel{id: idx}, idx)
		if idx >= 8 {
			if !errors.Is(err, ErrChannelOutOfBounds) {
				t.Errorf("AddChannelAtIndex(%d) error = %v, want ErrChannelOutOfBounds", idx, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("AddChannelAtIndex(%d) error = %v", idx, err)
		}
		if err := r.AddChannelAtIndex(&mockChannel{}, idx); !errors.Is(err, ErrChannelAlreadyAssigned) {
			t.Errorf("second AddChannelAtIndex(%d) error = %v, want ErrChannelAlreadyAssigned", idx, err)
		}
	}

	if err := r.AddChannelAtIndex(&mockChannel{}, -1); !errors.Is(err, ErrChannelOutOfBounds) {
		t.Errorf("AddChannelAtIndex(-1) error = %v, want ErrChannelOutOfBounds", err)
	}
}

func TestRemoveChannelUsesIdentity(t *testing.T) {
	r, _ := newTestRouter(t, 4)

	registered := &mockChannel{id: 1}
	twin := &mockChannel{id: 1}
	if err := r.AddChannel(registered); err != nil {
		t.Fatalf("AddChannel() error = %v", err)
	}

	if err := r.RemoveChannel(twin); !errors.Is(err, ErrChannelNotAssociated) {
		t.Errorf("RemoveChannel(twin) error = %v, want ErrChannelNotAssociated", err)
	}
	if !registered.assignment.IsAssigned() {
		t.Error("registered channel lost its assignment")
	}
	if err := r.RemoveChannel(registered); err != nil {
		t.Errorf("RemoveChannel(registered) error = %v", err)
	}
}

func TestReset(t *testing.T) {
	r, drv := newTestRouter(t, 4)
	a, b := &mockChannel{id: 0}, &mockChannel{id: 1}
	_ = r.AddChannel(a)
	_ = r.AddChannel(b)

	if err := r.Reset(true); err != nil {
		t.Fatalf("Reset(true) error = %v", err)
	}
	if !r.ResetRestore() || r.Channel(0) != a || !a.assignment.IsAssigned() {
		t.Error("Reset(true) dropped associations")
	}

	drv.ClearSent()
	if err := r.Reset(false); err != nil {
		t.Fatalf("Reset(false) error = %v", err)
	}
	if r.ResetRestore() {
		t.Error("ResetRestore() = true after Reset(false)")
	}
	for i, ch := range []*mockChannel{a, b} {
		if ch.assignment.IsAssigned() || r.Channel(i) != nil {
			t.Errorf("channel %d still associated after Reset(false)", i)
		}
	}
	sent := drv.Sent()
	if len(sent) != 1 || sent[0].MessageID() != message.IDResetSystem {
		t.Errorf("Reset(false) sent %v, want only ResetSystem", sent)
	}
}

func TestLateCapabilitiesKeepChannelTable(t *testing.T) {
	tests := []struct {
		name string
		max  uint8
	}{
		{"zero channels", 0},
		{"fewer channels", 2},
		{"more channels", 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, drv := newTestRouter(t, 8)
			drv.Inject(&message.Capabilities{MaxChannels: tt.max})
			if err := r.Process(); err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if r.MaxChannels() != 8 {
				t.Errorf("MaxChannels() = %d, want 8", r.MaxChannels())
			}
			for i := 0; i < 8; i++ {
				if err := r.AddChannel(&mockChannel{id: i}); err != nil {
					t.Fatalf("AddChannel(%d) error = %v", i, err)
				}
			}
		})
	}
}

func TestProcessDispatch(t *testing.T) {
	r, drv := newTestRouter(t, 8)

	channels := make([]*mockChannel, 5)
	for i := range channels {
		channels[i] = &mockChannel{id: i}
		if err := r.AddChannel(channels[i]); err != nil {
			t.Fatalf("AddChannel() error = %v", err)
		}
	}

	var observed []message.ID
	r.SetRxMessageCallback(func(msg *message.AntMessage) {
		observed = append(observed, msg.Message.MessageID())
	})

	t.Run("broadcast data reaches only its slot", func(t *testing.T) {
		drv.Inject(&message.BroadcastData{Channel: 3})
		if err := r.Process(); err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		for i, ch := range channels {
			want := 0
			if i == 3 {
				want = 1
			}
			if len(ch.received) != want {
				t.Errorf("slot %d received %d, want %d", i, len(ch.received), want)
			}
			ch.received = nil
		}
	})

	t.Run("late capabilities reach every slot but keep max", func(t *testing.T) {
		drv.Inject(&message.Capabilities{MaxChannels: 12}, &message.Capabilities{MaxChannels: 0})
		if err := r.Process(); err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		for i, ch := range channels {
			if len(ch.received) != 2 {
				t.Errorf("slot %d received %d, want 2", i, len(ch.received))
			}
			ch.received = nil
		}
		if r.MaxChannels() != 8 {
			t.Errorf("MaxChannels() = %d, want 8", r.MaxChannels())
		}
	})

	t.Run("start up and burst config broadcast", func(t *testing.T) {
		drv.Inject(
			&message.StartUpMessage{},
			&message.AdvancedBurstCapabilities{},
			&message.AdvancedBurstCurrentConfiguration{},
			&message.EncryptionModeParameters{},
		)
		if err := r.Process(); err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		for i, ch := range channels {
			if len(ch.received) != 4 {
				t.Errorf("slot %d received %d, want 4", i, len(ch.received))
			}
			ch.received = nil
		}
	})

	t.Run("callback only kinds reach no channel", func(t *testing.T) {
		observed = nil
		drv.Inject(
			&message.EventFilter{},
			&message.SerialErrorMessage{},
			&message.ANTVersion{},
			&message.SerialNumber{},
			&message.EventBufferConfiguration{},
			&message.SelectiveDataUpdateMaskSetting{},
			&message.UserNVM{},
		)
		if err := r.Process(); err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		for i, ch := range channels {
			if len(ch.received) != 0 {
				t.Errorf("slot %d received %d, want 0", i, len(ch.received))
			}
		}
		if len(observed) != 7 {
			t.Errorf("observer saw %d messages, want 7", len(observed))
		}
	})
}

func TestProcessRoutingErrors(t *testing.T) {
	tests := []struct {
		name    string
		msg     message.RxMessage
		wantErr error
	}{
		{"beyond table", &message.ChannelEvent{Channel: MaxChannels}, ErrChannelOutOfBounds},
		{"burst beyond table", &message.BurstTransferData{Channel: 31}, ErrChannelOutOfBounds},
		{"empty slot", &message.ChannelResponse{Channel: 2}, ErrChannelNotAssociated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, drv := newTestRouter(t, MaxChannels)
			_ = r.AddChannel(&mockChannel{})

			drv.Inject(tt.msg)
			if err := r.Process(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Process() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestProcessReceiveErrorDoesNotStopDrain(t *testing.T) {
	r, drv := newTestRouter(t, 4)
	logger := &mockLogger{}
	r.SetLogger(logger)

	failing := &mockChannel{recvErr: errors.New("bad state")}
	_ = r.AddChannel(failing)

	drv.Inject(&message.BroadcastData{Channel: 0}, &message.BroadcastData{Channel: 0})
	if err := r.Process(); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(failing.received) != 2 {
		t.Errorf("received %d, want 2", len(failing.received))
	}
	if len(logger.warns) != 2 {
		t.Errorf("warnings = %d, want 2", len(logger.warns))
	}
}

func TestProcessFlushOrder(t *testing.T) {
	r, drv := newTestRouter(t, 4)

	late := &mockChannel{outbox: []message.TxMessage{&message.OpenChannel{Channel: 2}}}
	early := &mockChannel{outbox: []message.TxMessage{
		&message.OpenChannel{Channel: 0},
		&message.CloseChannel{Channel: 0},
	}}
	if err := r.AddChannelAtIndex(late, 2); err != nil {
		t.Fatalf("AddChannelAtIndex() error = %v", err)
	}
	if err := r.AddChannelAtIndex(early, 0); err != nil {
		t.Fatalf("AddChannelAtIndex() error = %v", err)
	}

	if err := r.Process(); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	sent := drv.Sent()
	want := []message.ID{message.IDOpenChannel, message.IDCloseChannel, message.IDOpenChannel}
	if len(sent) != len(want) {
		t.Fatalf("sent %d messages, want %d", len(sent), len(want))
	}
	for i, id := range want {
		if sent[i].MessageID() != id {
			t.Errorf("sent[%d] = %s, want %s", i, sent[i].MessageID(), id)
		}
	}
	if sent[2].Payload()[0] != 2 {
		t.Errorf("last flush from slot %d, want 2", sent[2].Payload()[0])
	}
}

func TestProcessDriverErrors(t *testing.T) {
	cause := errors.New("usb reset")

	t.Run("receive", func(t *testing.T) {
		r, drv := newTestRouter(t, 4)
		drv.FailReceive(cause)
		err := r.Process()
		if !errors.Is(err, ErrDriver) || !errors.Is(err, cause) {
			t.Errorf("Process() error = %v, want ErrDriver wrapping cause", err)
		}
	})

	t.Run("flush", func(t *testing.T) {
		r, drv := newTestRouter(t, 4)
		_ = r.AddChannel(&mockChannel{outbox: []message.TxMessage{&message.OpenChannel{}}})
		drv.FailSend(cause)
		err := r.Process()
		if !errors.Is(err, ErrDriver) || !errors.Is(err, cause) {
			t.Errorf("Process() error = %v, want ErrDriver wrapping cause", err)
		}
	})
}

func TestRelease(t *testing.T) {
	r, drv := newTestRouter(t, 4)
	if got := r.Release(); got != drv {
		t.Errorf("Release() returned a different driver")
	}
}

func TestAssignmentString(t *testing.T) {
	if got := Unassigned.String(); got != "unassigned" {
		t.Errorf("String() = %q", got)
	}
	if got := AssignedTo(3).String(); got != "assigned(3)" {
		t.Errorf("String() = %q", got)
	}
}
