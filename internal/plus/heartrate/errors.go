package heartrate

import (
	"errors"
	"fmt"
)

// Profile errors.
var (
	// ErrUnsupportedDataPage is matched by every UnsupportedDataPageError.
	ErrUnsupportedDataPage = errors.New("heartrate: unsupported data page")

	// ErrNotAssigned is returned by Display.Open before the router has
	// given the display's mailbox a slot.
	ErrNotAssigned = errors.New("heartrate: display not assigned to a channel")
)

// UnsupportedDataPageError reports a page number the display cannot decode.
type UnsupportedDataPageError struct {
	Code uint8
}

func (e *UnsupportedDataPageError) Error() string {
	return fmt.Sprintf("heartrate: unsupported data page %d", e.Code)
}

// Is makes errors.Is(err, ErrUnsupportedDataPage) match.
func (e *UnsupportedDataPageError) Is(target error) bool {
	return target == ErrUnsupportedDataPage
}
