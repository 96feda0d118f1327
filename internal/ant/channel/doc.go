// Package channel holds what one logical ANT link needs below the profile
// layer: its configuration, the MessageHandler state machine that drives
// the radio through assignment, search and tracking, and the Mailbox that
// connects a profile to the router's slot table.
package channel
