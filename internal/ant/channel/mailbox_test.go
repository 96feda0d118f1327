package channel

import (
	"errors"
	"testing"

	"github.com/nerrad567/antplus-core/internal/ant/driver/stub"
	"github.com/nerrad567/antplus-core/internal/ant/message"
	"github.com/nerrad567/antplus-core/internal/ant/router"
)

func TestMailboxInboundOverflow(t *testing.T) {
	m := NewMailbox(2)

	for i := uint8(0); i < 3; i++ {
		if err := m.ReceiveMessage(wrap(&message.BroadcastData{Channel: 0, Data: [8]byte{i}})); err != nil {
			t.Fatalf("ReceiveMessage() error = %v", err)
		}
	}
	if m.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", m.Dropped())
	}

	for _, want := range []byte{1, 2} {
		msg, ok := m.Receive()
		if !ok {
			t.Fatal("Receive() = false")
		}
		if got := msg.Message.(*message.BroadcastData).Data[0]; got != want {
			t.Errorf("Receive() data = %d, want %d", got, want)
		}
	}
	if _, ok := m.Receive(); ok {
		t.Error("Receive() on empty mailbox = true")
	}
}

func TestMailboxOutboundFull(t *testing.T) {
	m := NewMailbox(1)

	if err := m.Send(&message.OpenChannel{}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := m.Send(&message.CloseChannel{}); !errors.Is(err, ErrMailboxFull) {
		t.Errorf("Send() error = %v, want ErrMailboxFull", err)
	}
	if got := m.SendMessage(); got == nil || got.MessageID() != message.IDOpenChannel {
		t.Errorf("SendMessage() = %v, want OpenChannel", got)
	}
	if got := m.SendMessage(); got != nil {
		t.Errorf("SendMessage() = %v, want nil", got)
	}
}

func TestMailboxWithRouter(t *testing.T) {
	drv := stub.NewWithEmulator(stub.NewRadio(4))
	r, err := router.New(drv)
	if err != nil {
		t.Fatalf("router.New() error = %v", err)
	}

	m := NewMailbox(0)
	if err := r.AddChannelAtIndex(m, 3); err != nil {
		t.Fatalf("AddChannelAtIndex() error = %v", err)
	}
	if idx, ok := m.Assignment().Index(); !ok || idx != 3 {
		t.Fatalf("Assignment() = %s, want assigned(3)", m.Assignment())
	}

	if err := m.Send(&message.OpenChannel{Channel: 3}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := r.Process(); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	// The radio's ack arrives on the next cycle.
	if err := r.Process(); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	msg, ok := m.Receive()
	if !ok {
		t.Fatal("no ack delivered to mailbox")
	}
	resp, ok := msg.Message.(*message.ChannelResponse)
	if !ok || resp.RespondingTo != message.IDOpenChannel {
		t.Errorf("Receive() = %#v, want OpenChannel ack", msg.Message)
	}

	if err := r.RemoveChannel(m); err != nil {
		t.Fatalf("RemoveChannel() error = %v", err)
	}
	if m.Assignment().IsAssigned() {
		t.Error("mailbox still assigned after removal")
	}
}

func TestMailboxPendingAndCapacity(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		want     int
	}{
		{"default", 0, DefaultMailboxCapacity},
		{"negative", -4, DefaultMailboxCapacity},
		{"explicit", 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMailbox(tt.capacity)
			if m.Capacity() != tt.want {
				t.Fatalf("Capacity() = %d, want %d", m.Capacity(), tt.want)
			}
			for i := 0; i < tt.want+2; i++ {
				_ = m.ReceiveMessage(wrap(&message.StartUpMessage{}))
			}
			_ = m.Send(&message.OpenChannel{})
			if in, out := m.Pending(); in != tt.want || out != 1 {
				t.Errorf("Pending() = %d, %d, want %d, 1", in, out, tt.want)
			}
			if m.Dropped() != 2 {
				t.Errorf("Dropped() = %d, want 2", m.Dropped())
			}
		})
	}
}
