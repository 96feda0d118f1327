package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// CommandHandler receives the payload of a command sent to one sensor.
//
// Handlers run on paho's goroutines. A returned error is logged; the
// message is acknowledged either way.
type CommandHandler func(sensor string, payload []byte) error

// messageHandler is the raw per-topic callback.
type messageHandler func(topic string, payload []byte) error

type subscription struct {
	qos     byte
	handler messageHandler
}

// SubscribeSensorCommands delivers every command published for a sensor of
// profile, on antplus/command/{profile}/{sensor}. The subscription is
// restored after a reconnect.
func (c *Client) SubscribeSensorCommands(profile string, handler CommandHandler) error {
	if profile == "" {
		return fmt.Errorf("%w: profile is required", ErrInvalidTopic)
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}

	return c.subscribe(Topics{}.AllSensorCommands(profile), c.qos(), func(topic string, payload []byte) error {
		got, sensor, ok := SensorFromTopic(topic)
		if !ok || got != profile || topic != (Topics{}).SensorCommand(got, sensor) {
			return fmt.Errorf("%w: %s", ErrUnexpectedTopic, topic)
		}
		return handler(sensor, payload)
	})
}

func (c *Client) subscribe(topic string, qos byte, handler messageHandler) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Subscribe(topic, qos, c.wrapHandler(handler))
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
	}

	c.mu.Lock()
	c.subscriptions[topic] = subscription{qos: qos, handler: handler}
	c.mu.Unlock()
	return nil
}

// restoreSubscriptions re-subscribes after a reconnect. Failures surface
// as missing commands, not errors.
func (c *Client) restoreSubscriptions() {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for topic, sub := range c.subscriptions {
		c.client.Subscribe(topic, sub.qos, c.wrapHandler(sub.handler))
	}
}

// wrapHandler adapts a handler to paho, logging errors and recovering
// panics so one bad command cannot take down the client's router.
func (c *Client) wrapHandler(handler messageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if logger := c.getLogger(); logger != nil {
					logger.Error("MQTT handler panic recovered", "topic", msg.Topic(), "panic", r)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT handler returned error", "topic", msg.Topic(), "error", err)
			}
		}
	}
}
