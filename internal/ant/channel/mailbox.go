package channel

import (
	"sync"

	"github.com/gammazero/deque"

	"github.com/nerrad567/antplus-core/internal/ant/message"
	"github.com/nerrad567/antplus-core/internal/ant/router"
)

// DefaultMailboxCapacity is the queue depth used when none is given.
const DefaultMailboxCapacity = 32

// Mailbox is the handle a profile registers in the router.
//
// The router side (ReceiveMessage, SendMessage, SetChannel) and the
// profile side (Receive, Send, Assignment) each see one end of two bounded
// queues. When the inbound queue is full the oldest message is dropped and
// counted; the outbound queue refuses new messages instead, since dropping
// a configuration command would stall the handler.
type Mailbox struct {
	mu         sync.Mutex
	assignment router.Assignment
	capacity   int
	inbox      deque.Deque[*message.AntMessage]
	outbox     deque.Deque[message.TxMessage]
	dropped    uint64
}

// NewMailbox creates a mailbox whose queues hold capacity messages each.
// A capacity below 1 uses DefaultMailboxCapacity.
func NewMailbox(capacity int) *Mailbox {
	if capacity < 1 {
		capacity = DefaultMailboxCapacity
	}
	return &Mailbox{capacity: capacity}
}

// ReceiveMessage queues a message from the router.
func (m *Mailbox) ReceiveMessage(msg *message.AntMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inbox.Len() == m.capacity {
		m.inbox.PopFront()
		m.dropped++
	}
	m.inbox.PushBack(msg)
	return nil
}

// SendMessage hands the router the next outbound message, or nil.
func (m *Mailbox) SendMessage() message.TxMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outbox.Len() == 0 {
		return nil
	}
	return m.outbox.PopFront()
}

// SetChannel records the slot the router assigned.
func (m *Mailbox) SetChannel(a router.Assignment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignment = a
}

// Assignment returns the slot the router assigned.
func (m *Mailbox) Assignment() router.Assignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assignment
}

// Receive pops the next inbound message.
func (m *Mailbox) Receive() (*message.AntMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inbox.Len() == 0 {
		return nil, false
	}
	return m.inbox.PopFront(), true
}

// Send queues an outbound message for the router's next flush.
//
// Returns ErrMailboxFull if the outbound queue is full.
func (m *Mailbox) Send(msg message.TxMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outbox.Len() == m.capacity {
		return ErrMailboxFull
	}
	m.outbox.PushBack(msg)
	return nil
}

// Dropped returns how many inbound messages were discarded on overflow.
func (m *Mailbox) Dropped() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

// Capacity returns the depth of each queue.
func (m *Mailbox) Capacity() int {
	return m.capacity
}

// Pending returns the inbound and outbound queue lengths.
func (m *Mailbox) Pending() (in, out int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inbox.Len(), m.outbox.Len()
}

var _ router.Channel = (*Mailbox)(nil)
