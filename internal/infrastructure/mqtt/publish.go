package mqtt

import (
	"encoding/json"
	"fmt"
)

// maxPayloadSize caps a single message at 1MB, the usual broker limit.
const maxPayloadSize = 1 << 20

// PublishSensorState publishes state as the retained latest value of one
// sensor, on antplus/state/{profile}/{sensor}.
func (c *Client) PublishSensorState(profile, sensor string, state any) error {
	if profile == "" || sensor == "" {
		return fmt.Errorf("%w: profile and sensor are required", ErrInvalidTopic)
	}
	return c.publishJSON(Topics{}.SensorState(profile, sensor), state)
}

// PublishHealth publishes the retained bridge health report on
// antplus/health.
func (c *Client) PublishHealth(report any) error {
	return c.publishJSON(Topics{}.Health(), report)
}

// publishJSON marshals v and publishes it retained at the configured QoS.
// Everything the bridge publishes is a latest-value topic.
func (c *Client) publishJSON(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: marshal: %w", ErrPublishFailed, err)
	}
	return c.publish(topic, payload, c.qos(), true)
}

func (c *Client) publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}
