// Package influxdb writes ANT+ sensor metrics to InfluxDB v2.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched non-blocking writes and health checks.
//
// # Measurements
//
//   - heart_rate: bpm, beat_count, beat_event_time, previous_beat_ms;
//     tagged by sensor, device and page
//   - sensor_battery: level_percent, volts, status; tagged by sensor and
//     device
//   - antplus_bridge: bridge message counters; tagged by site
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteHeartRate(influxdb.HeartRateSample{Sensor: "chest", BPM: 64})
//
// # Error Handling
//
// Write operations are non-blocking; batch errors are delivered to the
// callback set with SetOnError. Connection and health check errors are
// returned directly.
package influxdb
