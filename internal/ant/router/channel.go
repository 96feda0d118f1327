package router

import (
	"fmt"

	"github.com/nerrad567/antplus-core/internal/ant/message"
)

// Channel is the router's view of one logical link.
//
// Implementations are registered by pointer: the router compares
// occupants by identity, so two channels with equal configuration remain
// distinct.
type Channel interface {
	// ReceiveMessage absorbs one message addressed to this channel, or
	// broadcast to every channel.
	ReceiveMessage(msg *message.AntMessage) error

	// SendMessage returns the next queued outbound message, or nil.
	SendMessage() message.TxMessage

	// SetChannel tells the channel which slot it occupies.
	SetChannel(assignment Assignment)
}

// Assignment is a channel's slot, or none.
type Assignment struct {
	index    uint8
	assigned bool
}

// Unassigned is the assignment of a channel outside the slot table.
var Unassigned = Assignment{}

// AssignedTo returns the assignment for slot index.
func AssignedTo(index uint8) Assignment {
	return Assignment{index: index, assigned: true}
}

// Index returns the slot index and whether the channel is assigned.
func (a Assignment) Index() (uint8, bool) {
	return a.index, a.assigned
}

// IsAssigned reports whether the channel occupies a slot.
func (a Assignment) IsAssigned() bool {
	return a.assigned
}

func (a Assignment) String() string {
	if !a.assigned {
		return "unassigned"
	}
	return fmt.Sprintf("assigned(%d)", a.index)
}
