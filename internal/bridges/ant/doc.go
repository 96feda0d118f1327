// Package ant runs an ANT radio as a bridge: it owns the channel router and
// one heart rate display per configured sensor, drives them from a single
// poll loop, and fans decoded data pages out to optional sinks.
//
// Architecture:
//
//	ANT USB stick ←serial→ Router ←mailboxes→ Displays
//	                                              │
//	                 ┌──────────────┬─────────────┼──────────────┐
//	                 ▼              ▼             ▼              ▼
//	            MQTT state     InfluxDB       SQLite page    WebSocket
//	            (Publisher)   (MetricsWriter)  journal       (PageListener)
//
// MQTT Topics:
//   - antplus/state/heartrate/{sensor}    decoded pages (retained)
//   - antplus/command/heartrate/{sensor}  feature commands to the monitor
//   - antplus/health                      bridge health (retained)
//
// Thread Safety:
//
// The router and displays are touched only by the poll goroutine started by
// Start, and by Stop once that goroutine has exited. Snapshot, Statistics
// and QueueFeatureCommand are safe to call from any goroutine. Sinks are
// called from the poll goroutine and must not block.
//
// Usage:
//
//	b, err := ant.New(ant.Options{
//	    SiteID:    "home",
//	    Driver:    drv,
//	    Sensors:   []ant.Sensor{{Name: "chest", Period: heartrate.PeriodFourHz}},
//	    Publisher: mqttClient,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := b.Start(ctx); err != nil {
//	    return err
//	}
//	defer b.Stop()
package ant
