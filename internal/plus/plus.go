// Package plus holds values shared by every ANT+ device profile.
package plus

// NetworkRFFrequency is the ANT+ channel frequency, 2457 MHz, as an offset
// from 2400 MHz.
const NetworkRFFrequency = 57

// Data page byte 0 layout.
const (
	// DataPageNumberMask extracts the page number from byte 0.
	DataPageNumberMask = 0x7F

	// ToggleBit flips every four messages on legacy sensors. Codecs ignore it.
	ToggleBit = 0x80
)

// Manufacturer-specific page window shared by all profiles.
const (
	ManufacturerSpecificMin = 112
	ManufacturerSpecificMax = 127
)

// IsManufacturerSpecific reports whether page lies in the
// manufacturer-specific window.
func IsManufacturerSpecific(page uint8) bool {
	return page >= ManufacturerSpecificMin && page <= ManufacturerSpecificMax
}

// PageNumber returns the page number of an 8-byte data page.
func PageNumber(data [8]byte) uint8 {
	return data[0] & DataPageNumberMask
}
