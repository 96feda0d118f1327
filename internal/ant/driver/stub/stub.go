// Package stub provides an in-memory Driver for tests and for running the
// bridge without radio hardware.
package stub

import (
	"sync"

	"github.com/nerrad567/antplus-core/internal/ant/driver"
	"github.com/nerrad567/antplus-core/internal/ant/message"
)

// Emulator plays the radio side of a stub Driver.
type Emulator interface {
	// Respond returns the messages the radio sends back for one command.
	Respond(msg message.TxMessage) []message.RxMessage

	// Emit returns unsolicited messages. Called when the receive queue is
	// empty on a poll that follows an empty poll.
	Emit() []message.RxMessage
}

// Driver implements driver.Driver over in-memory queues.
type Driver struct {
	mu       sync.Mutex
	rx       []*message.AntMessage
	sent     []message.TxMessage
	polls    int
	emulator Emulator
	sendErr  error
	recvErr  error

	// idle is set once a poll came back empty, so the next poll may ask
	// the emulator for unsolicited traffic. One empty poll always ends a
	// drain.
	idle bool
}

// New creates a stub driver with no radio attached: nothing is answered
// unless injected.
func New() *Driver { return &Driver{} }

// NewWithEmulator creates a stub driver answered by the given emulator.
func NewWithEmulator(e Emulator) *Driver { return &Driver{emulator: e} }

// SendMessage records the message and queues the emulator's answer.
func (d *Driver) SendMessage(msg message.TxMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sendErr != nil {
		return d.sendErr
	}
	d.sent = append(d.sent, msg)
	if d.emulator != nil {
		d.enqueue(d.emulator.Respond(msg))
	}
	return nil
}

// GetMessage pops the next queued message. Every call counts as one poll.
func (d *Driver) GetMessage() (*message.AntMessage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.polls++
	if d.recvErr != nil {
		return nil, d.recvErr
	}
	if len(d.rx) == 0 && d.emulator != nil && d.idle {
		d.enqueue(d.emulator.Emit())
	}
	if len(d.rx) == 0 {
		d.idle = true
		return nil, nil //nolint:nilnil // no message pending
	}
	d.idle = false
	next := d.rx[0]
	d.rx[0] = nil
	d.rx = d.rx[1:]
	return next, nil
}

func (d *Driver) enqueue(msgs []message.RxMessage) {
	for _, m := range msgs {
		d.rx = append(d.rx, &message.AntMessage{Message: m})
	}
}

// Inject queues messages as if the radio had sent them.
func (d *Driver) Inject(msgs ...message.RxMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enqueue(msgs)
}

// Sent returns a copy of every message sent so far.
func (d *Driver) Sent() []message.TxMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]message.TxMessage, len(d.sent))
	copy(out, d.sent)
	return out
}

// ClearSent forgets the sent log.
func (d *Driver) ClearSent() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = nil
}

// Polls returns how many times GetMessage has been called.
func (d *Driver) Polls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.polls
}

// Pending returns the number of queued inbound messages.
func (d *Driver) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rx)
}

// FailSend makes every following SendMessage return err. nil clears it.
func (d *Driver) FailSend(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sendErr = err
}

// FailReceive makes every following GetMessage return err. nil clears it.
func (d *Driver) FailReceive(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recvErr = err
}

var _ driver.Driver = (*Driver)(nil)
