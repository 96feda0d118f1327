// Package mqtt provides MQTT client connectivity for the ANT+ bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing decoded sensor pages and bridge health
//   - Subscriptions to sensor command topics, restored on reconnect
//   - Last Will and Testament (LWT) for offline detection
//
// # Security Considerations
//
//   - Enable TLS (cfg.Broker.TLS=true) when the broker is not local
//   - Credentials come from ANTPLUS_MQTT_USERNAME / ANTPLUS_MQTT_PASSWORD
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.PublishSensorState("heartrate", "chest", page)
//	client.SubscribeSensorCommands("heartrate", func(sensor string, payload []byte) error {
//	    return queue(sensor, payload)
//	})
package mqtt
