package mqtt

import "errors"

var (
	// ErrNotConnected is returned while the broker link is down.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed is returned by Connect.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed wraps a failed or unmarshalable publish.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed wraps a refused or timed out subscription.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrInvalidQoS is returned for a QoS above 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic is returned when a topic cannot be built.
	ErrInvalidTopic = errors.New("mqtt: invalid topic")

	// ErrUnexpectedTopic is returned for a message on a subscription that
	// does not name a sensor command, e.g. antplus/command/heartrate/a/b.
	ErrUnexpectedTopic = errors.New("mqtt: unexpected topic")
)
