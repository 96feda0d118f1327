// Package router owns the radio driver and the table of hardware channel
// slots, and dispatches every inbound message to the channel it belongs to.
//
// # Lifecycle
//
// New resets the radio, discards stale input, and asks for the radio's
// capabilities. It then polls Process a bounded number of times (25) until
// a Capabilities reply reports how many channels the hardware supports.
// Once constructed, the caller registers Channel implementations and calls
// Process repeatedly from a single goroutine:
//
//	r, err := router.New(drv)
//	if err != nil {
//	    return err
//	}
//	if err := r.AddChannel(display.Mailbox()); err != nil {
//	    return err
//	}
//	for {
//	    if err := r.Process(); err != nil {
//	        return err
//	    }
//	    display.Process()
//	}
//
// # Dispatch
//
// Process first drains the driver. Every message goes to the optional
// observer callback, then:
//
//   - Channel scoped messages go to the occupant of the slot named by the
//     message's channel number.
//   - StartUp, Capabilities, advanced burst and encryption messages go to
//     every occupied slot. Capabilities also sets MaxChannels.
//   - Everything else stops at the observer.
//
// Process then flushes each occupied slot in index order, forwarding every
// message the channel has queued to the driver.
//
// # Concurrency
//
// Router is not safe for concurrent use. One goroutine drives Process and
// every other mutating method.
package router
