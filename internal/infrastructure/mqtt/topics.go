package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every topic the bridge publishes or
// subscribes to.
//
// Layout:
//
//	antplus/state/{profile}/{sensor}     latest decoded page (retained)
//	antplus/command/{profile}/{sensor}   commands towards a sensor
//	antplus/health                       bridge health (retained)
//	antplus/system/status                online/offline and LWT (retained)
const TopicPrefix = "antplus"

// Topics provides builders for the bridge's MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.SensorState("heartrate", "chest")
//	// Returns: "antplus/state/heartrate/chest"
type Topics struct{}

// SensorState returns the topic carrying decoded pages for one sensor.
//
// Example: antplus/state/heartrate/chest
func (Topics) SensorState(profile, sensor string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, profile, sensor)
}

// SensorCommand returns the topic for commands sent to one sensor.
//
// Example: antplus/command/heartrate/chest
func (Topics) SensorCommand(profile, sensor string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, profile, sensor)
}

// Health returns the bridge health topic.
func (Topics) Health() string {
	return TopicPrefix + "/health"
}

// SystemStatus returns the online/offline status topic.
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// AllSensorStates matches decoded pages from every sensor of a profile.
//
// Pattern: antplus/state/heartrate/+
func (Topics) AllSensorStates(profile string) string {
	return fmt.Sprintf("%s/state/%s/+", TopicPrefix, profile)
}

// AllSensorCommands matches commands for every sensor of a profile.
//
// Pattern: antplus/command/heartrate/+
func (Topics) AllSensorCommands(profile string) string {
	return fmt.Sprintf("%s/command/%s/+", TopicPrefix, profile)
}

// AllTopics returns a pattern matching all bridge topics.
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}

// SensorFromTopic extracts the profile and sensor name from a state or
// command topic. It returns false for topics outside that layout.
func SensorFromTopic(topic string) (profile, sensor string, ok bool) {
	rest, found := strings.CutPrefix(topic, TopicPrefix+"/")
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || (parts[0] != "state" && parts[0] != "command") {
		return "", "", false
	}
	if parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}
