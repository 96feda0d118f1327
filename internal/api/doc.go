// Package api implements the HTTP REST API and WebSocket server for the ANT+
// bridge.
//
// This package provides:
//   - REST endpoints for radio channel and sensor status
//   - Recent page history read back from the SQLite journal
//   - Feature commands queued to a tracking heart rate monitor
//   - WebSocket hub streaming decoded pages as they arrive
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// # Architecture
//
// The API server reads the bridge's published snapshot and never touches the
// router directly. Pages reach WebSocket clients through Hub.OnPage, which the
// bridge calls from its poll goroutine for every decoded page.
//
// # Graceful Degradation
//
// The server operates without MQTT or a journal. Status endpoints and the page
// stream keep working; only /pages answers 503 when no journal is configured.
package api
