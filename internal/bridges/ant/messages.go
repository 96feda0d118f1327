package ant

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/antplus-core/internal/plus/heartrate"
)

// ProfileHeartRate is the profile segment used in topics and journal rows.
const ProfileHeartRate = "heartrate"

// PageMessage is one decoded data page as published to sinks.
// Topic: antplus/state/heartrate/{sensor}
// QoS: 1, Retained: Yes
//
// A PageMessage is never modified after it is handed to a sink.
type PageMessage struct {
	// ID uniquely identifies this page for correlation across sinks.
	ID string `json:"id"`

	// Timestamp is when the page was received (UTC).
	Timestamp time.Time `json:"timestamp"`

	// Sensor is the configured sensor name.
	Sensor string `json:"sensor"`

	// Profile is the ANT+ device profile ("heartrate").
	Profile string `json:"profile"`

	// DeviceNumber is the paired monitor, 0 while a wildcard search has not
	// yet learned it.
	DeviceNumber uint16 `json:"device_number"`

	// Channel is the radio channel the page arrived on.
	Channel uint8 `json:"channel"`

	// PageNumber and PageName identify the page type.
	PageNumber uint8  `json:"page_number"`
	PageName   string `json:"page_name"`

	// Fields holds the decoded values, keyed by snake_case name.
	Fields map[string]any `json:"fields"`

	// Raw is the 8 received bytes, hex encoded, toggle bit included.
	Raw string `json:"raw"`
}

// NewPageMessage builds the sink message for a decoded page.
func NewPageMessage(sensor string, deviceNumber uint16, channel uint8, page heartrate.MonitorTxDataPage, raw [8]byte) PageMessage {
	number := page.PageNumber()
	return PageMessage{
		ID:           uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Sensor:       sensor,
		Profile:      ProfileHeartRate,
		DeviceNumber: deviceNumber,
		Channel:      channel,
		PageNumber:   uint8(number),
		PageName:     number.String(),
		Fields:       pageFields(page),
		Raw:          hex.EncodeToString(raw[:]),
	}
}

// HeartRate returns the computed heart rate carried by every page.
func (m PageMessage) HeartRate() int {
	if v, ok := m.Fields["heart_rate"].(int); ok {
		return v
	}
	return 0
}

// pageFields flattens a page into JSON-friendly values.
func pageFields(page heartrate.MonitorTxDataPage) map[string]any {
	c := page.Common()
	f := map[string]any{
		"heart_rate":      int(c.ComputedHeartRate),
		"beat_count":      int(c.HeartBeatCount),
		"beat_event_time": int(c.HeartBeatEventTime),
	}

	switch p := page.(type) {
	case heartrate.CumulativeOperatingTime:
		f["operating_time_s"] = int64(p.OperatingTime) * 2
	case heartrate.ManufacturerInformation:
		f["manufacturer_id_lsb"] = int(p.ManufacturerIDLSB)
		f["serial_number"] = int(p.SerialNumber)
	case heartrate.ProductInformation:
		f["hardware_version"] = int(p.HardwareVersion)
		f["software_version"] = int(p.SoftwareVersion)
		f["model_number"] = int(p.ModelNumber)
	case heartrate.PreviousHeartBeat:
		f["previous_beat_event_time"] = int(p.PreviousHeartBeatEventTime)
		f["rr_interval_ms"] = rrIntervalMs(p)
	case heartrate.SwimIntervalSummary:
		f["interval_average_heart_rate"] = int(p.IntervalAverageHeartRate)
		f["interval_maximum_heart_rate"] = int(p.IntervalMaximumHeartRate)
		f["session_average_heart_rate"] = int(p.SessionAverageHeartRate)
	case heartrate.Capabilities:
		f["features_supported"] = int(p.Supported)
		f["features_enabled"] = int(p.Enabled)
	case heartrate.BatteryStatus:
		f["battery_level"] = int(p.BatteryLevel)
		f["battery_voltage"] = p.Voltage()
		f["battery_status"] = p.Status.String()
	case heartrate.DeviceInformation:
		if p.HeartbeatEventType == heartrate.HeartbeatComputed {
			f["heartbeat_event_type"] = "computed"
		} else {
			f["heartbeat_event_type"] = "measured"
		}
	case heartrate.ManufacturerSpecific:
		f["data"] = hex.EncodeToString(p.Data[:])
	}
	return f
}

// rrIntervalMs is the time between the last two beats. Event times roll
// over every 64 s; unsigned subtraction absorbs one rollover.
func rrIntervalMs(p heartrate.PreviousHeartBeat) float64 {
	delta := p.HeartBeatEventTime - p.PreviousHeartBeatEventTime
	return float64(delta) * 1000 / 1024
}

// CommandSetFeatures turns monitor features on or off.
const CommandSetFeatures = "set_features"

// CommandMessage is sent to the bridge to command a monitor.
// Topic: antplus/command/heartrate/{sensor}
type CommandMessage struct {
	// ID uniquely identifies this command in logs.
	ID string `json:"id"`

	// Command is the command name. Only "set_features" is defined.
	Command string `json:"command"`

	// Apply selects the feature bits to change; Enable holds their values.
	Apply  uint8 `json:"apply"`
	Enable uint8 `json:"enable"`
}

// FeatureCommand converts the message to a heart rate feature command.
func (m CommandMessage) FeatureCommand() (heartrate.HRFeatureCommand, error) {
	if m.Command != CommandSetFeatures {
		return heartrate.HRFeatureCommand{}, ErrInvalidCommand
	}
	if m.Apply == 0 {
		return heartrate.HRFeatureCommand{}, ErrInvalidCommand
	}
	return heartrate.HRFeatureCommand{
		Apply:  heartrate.Features(m.Apply),
		Enable: heartrate.Features(m.Enable),
	}, nil
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	// HealthHealthy indicates every sensor is tracking and sinks are up.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded indicates the bridge is operating with issues.
	HealthDegraded HealthStatus = "degraded"

	// HealthStarting indicates the bridge is starting up.
	HealthStarting HealthStatus = "starting"

	// HealthStopping indicates the bridge is shutting down.
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage reports the bridge's operational status.
// Topic: antplus/health
// QoS: 1, Retained: Yes
type HealthMessage struct {
	// Bridge is the bridge identifier (the site ID).
	Bridge string `json:"bridge"`

	// Timestamp is when the status was generated (UTC).
	Timestamp time.Time `json:"timestamp"`

	// Status indicates the current operational status.
	Status HealthStatus `json:"status"`

	// Version is the bridge software version.
	Version string `json:"version"`

	// UptimeSeconds is how long the bridge has been running.
	UptimeSeconds int64 `json:"uptime_seconds"`

	// SensorsTracking and SensorsConfigured count sensor channels.
	SensorsTracking   int `json:"sensors_tracking"`
	SensorsConfigured int `json:"sensors_configured"`

	// Statistics contains operational counters.
	Statistics *Statistics `json:"statistics,omitempty"`

	// Reason explains the status (especially for degraded).
	Reason string `json:"reason,omitempty"`
}

// Statistics contains the bridge's operational counters.
type Statistics struct {
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	Pages            uint64 `json:"pages"`
	DecodeErrors     uint64 `json:"decode_errors"`
	ChannelErrors    uint64 `json:"channel_errors"`
	MailboxDrops     uint64 `json:"mailbox_drops"`
	DriverErrors     uint64 `json:"driver_errors"`
	SinkErrors       uint64 `json:"sink_errors"`
	Commands         uint64 `json:"commands"`
	Reopens          uint64 `json:"reopens"`
}

// Counters returns the statistics keyed by name, as written to metrics.
func (s Statistics) Counters() map[string]int64 {
	return map[string]int64{
		"messages_received": int64(s.MessagesReceived), //nolint:gosec // counters stay far below 2^63
		"messages_sent":     int64(s.MessagesSent),     //nolint:gosec
		"pages":             int64(s.Pages),            //nolint:gosec
		"decode_errors":     int64(s.DecodeErrors),     //nolint:gosec
		"channel_errors":    int64(s.ChannelErrors),    //nolint:gosec
		"mailbox_drops":     int64(s.MailboxDrops),     //nolint:gosec
		"driver_errors":     int64(s.DriverErrors),     //nolint:gosec
		"sink_errors":       int64(s.SinkErrors),       //nolint:gosec
		"commands":          int64(s.Commands),         //nolint:gosec
		"reopens":           int64(s.Reopens),          //nolint:gosec
	}
}

// NewHealthMessage creates a health message.
func NewHealthMessage(bridgeID, version string, status HealthStatus, stats Statistics, tracking, configured int, startTime time.Time) HealthMessage {
	return HealthMessage{
		Bridge:            bridgeID,
		Timestamp:         time.Now().UTC(),
		Status:            status,
		Version:           version,
		UptimeSeconds:     int64(time.Since(startTime).Seconds()),
		SensorsTracking:   tracking,
		SensorsConfigured: configured,
		Statistics:        &stats,
	}
}
