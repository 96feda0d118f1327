package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the bridge.
const (
	MeasurementHeartRate = "heart_rate"
	MeasurementBattery   = "sensor_battery"
	MeasurementBridge    = "antplus_bridge"
)

// HeartRateSample is one decoded heart rate page.
type HeartRateSample struct {
	Sensor       string
	DeviceNumber uint16
	Page         uint8

	BPM            uint8
	BeatCount      uint8
	BeatEventTime  uint16
	PreviousBeatMs float64 // 0 when the page does not carry it
	Timestamp      time.Time
}

// BatterySample is one battery status page.
type BatterySample struct {
	Sensor       string
	DeviceNumber uint16

	// LevelPercent is -1 when the monitor does not report a level.
	LevelPercent int

	// Volts is 0 when the monitor does not report a voltage.
	Volts     float64
	Status    string
	Timestamp time.Time
}

func sensorTags(sensor string, device uint16) map[string]string {
	return map[string]string{
		"sensor": sensor,
		"device": strconv.Itoa(int(device)),
	}
}

func timestampOrNow(ts time.Time) time.Time {
	if ts.IsZero() {
		return time.Now()
	}
	return ts
}

func heartRatePoint(s HeartRateSample) *write.Point {
	tags := sensorTags(s.Sensor, s.DeviceNumber)
	tags["page"] = strconv.Itoa(int(s.Page))

	fields := map[string]interface{}{
		"bpm":             int64(s.BPM),
		"beat_count":      int64(s.BeatCount),
		"beat_event_time": int64(s.BeatEventTime),
	}
	if s.PreviousBeatMs > 0 {
		fields["previous_beat_ms"] = s.PreviousBeatMs
	}
	return write.NewPoint(MeasurementHeartRate, tags, fields, timestampOrNow(s.Timestamp))
}

func batteryPoint(s BatterySample) *write.Point {
	fields := map[string]interface{}{"status": s.Status}
	if s.LevelPercent >= 0 {
		fields["level_percent"] = int64(s.LevelPercent)
	}
	if s.Volts > 0 {
		fields["volts"] = s.Volts
	}
	return write.NewPoint(MeasurementBattery, sensorTags(s.Sensor, s.DeviceNumber), fields, timestampOrNow(s.Timestamp))
}

// WriteHeartRate records one decoded heart rate page.
func (c *Client) WriteHeartRate(s HeartRateSample) {
	c.writePoint(heartRatePoint(s))
}

// WriteBattery records one battery status page.
func (c *Client) WriteBattery(s BatterySample) {
	c.writePoint(batteryPoint(s))
}

// WriteBridgeStats records the bridge's counters, tagged by site. An empty
// set writes nothing.
func (c *Client) WriteBridgeStats(site string, counters map[string]int64) {
	if len(counters) == 0 {
		return
	}

	fields := make(map[string]interface{}, len(counters))
	for k, v := range counters {
		fields[k] = v
	}
	c.writePoint(write.NewPoint(MeasurementBridge, map[string]string{"site": site}, fields, time.Now()))
}
