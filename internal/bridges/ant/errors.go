package ant

import "errors"

// Domain errors for the ANT bridge package.
var (
	// ErrNoDriver is returned when no radio driver is supplied.
	ErrNoDriver = errors.New("ant: driver is required")

	// ErrNoSensors is returned when no sensor is configured.
	ErrNoSensors = errors.New("ant: at least one sensor is required")

	// ErrRadioInit is returned when the router cannot be brought up on the
	// radio.
	ErrRadioInit = errors.New("ant: radio initialisation failed")

	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("ant: bridge already started")

	// ErrUnknownSensor is returned for a sensor name that is not configured.
	ErrUnknownSensor = errors.New("ant: unknown sensor")

	// ErrInvalidCommand is returned when a command message is malformed.
	ErrInvalidCommand = errors.New("ant: invalid command")

	// ErrCommandQueueFull is returned when a sensor already has the maximum
	// number of commands waiting to be sent.
	ErrCommandQueueFull = errors.New("ant: command queue full")
)
