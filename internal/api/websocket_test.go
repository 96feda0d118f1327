package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/antplus-core/internal/bridges/ant"
	"github.com/nerrad567/antplus-core/internal/infrastructure/config"
)

func dialWS(t *testing.T) (*Server, *websocket.Conn) {
	t.Helper()

	srv, _, h := testServer(t, nil)
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return srv, conn
}

func readWS(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	//nolint:errcheck // test deadline
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func subscribe(t *testing.T, conn *websocket.Conn, channels ...string) {
	t.Helper()
	err := conn.WriteJSON(WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "sub-1",
		Payload: WSSubscribePayload{Channels: channels},
	})
	if err != nil {
		t.Fatalf("write subscribe: %v", err)
	}
	if msg := readWS(t, conn); msg.Type != WSTypeResponse || msg.ID != "sub-1" {
		t.Fatalf("subscribe reply = %+v", msg)
	}
}

func TestWebSocket_Ping(t *testing.T) {
	_, conn := dialWS(t)

	if err := conn.WriteJSON(WSMessage{Type: WSTypePing, ID: "p1"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg := readWS(t, conn)
	if msg.Type != WSTypePong || msg.ID != "p1" {
		t.Errorf("reply = %+v, want pong p1", msg)
	}
}

func TestWebSocket_UnknownType(t *testing.T) {
	_, conn := dialWS(t)

	if err := conn.WriteJSON(WSMessage{Type: "bogus", ID: "x"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := readWS(t, conn); msg.Type != WSTypeError {
		t.Errorf("reply type = %q, want error", msg.Type)
	}
}

func TestWebSocket_PageStream(t *testing.T) {
	srv, conn := dialWS(t)
	subscribe(t, conn, "page.chest")

	// Not subscribed to this sensor.
	srv.Hub().OnPage(ant.PageMessage{ID: "other", Sensor: "wrist", PageName: "default_data"})
	srv.Hub().OnPage(ant.PageMessage{ID: "mine", Sensor: "chest", PageName: "previous_heart_beat"})

	msg := readWS(t, conn)
	if msg.Type != WSTypeEvent || msg.EventType != "page.chest" {
		t.Fatalf("event = %+v, want page.chest event", msg)
	}

	raw, err := json.Marshal(msg.Payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	var page ant.PageMessage
	if err := json.Unmarshal(raw, &page); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if page.ID != "mine" || page.Sensor != "chest" {
		t.Errorf("page = %+v, want chest page mine", page)
	}
}

func TestWebSocket_AllPages(t *testing.T) {
	srv, conn := dialWS(t)
	subscribe(t, conn, ChannelPages)

	srv.Hub().OnPage(ant.PageMessage{ID: "a", Sensor: "wrist"})
	if msg := readWS(t, conn); msg.EventType != ChannelPages {
		t.Errorf("event type = %q, want %q", msg.EventType, ChannelPages)
	}
}

func TestHub_OnPageWithoutClients(t *testing.T) {
	hub := NewHub(testServerWSConfig(), testLogger())
	hub.OnPage(ant.PageMessage{Sensor: "chest"})

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
}

func TestWSTimingsDefaults(t *testing.T) {
	ping, pong, limit := wsTimings(testServerWSConfig())
	if ping != 30*time.Second || pong != 10*time.Second || limit != 8192 {
		t.Errorf("wsTimings(config) = %v, %v, %d", ping, pong, limit)
	}

	zero := testServerWSConfig()
	zero.PingInterval, zero.PongTimeout, zero.MaxMessageSize = 0, 0, 0
	ping, pong, limit = wsTimings(zero)
	if ping != 30*time.Second || pong != 10*time.Second || limit != 8192 {
		t.Errorf("wsTimings(zero) = %v, %v, %d, want defaults", ping, pong, limit)
	}
}

func testServerWSConfig() config.WebSocketConfig {
	return config.WebSocketConfig{Path: "/ws", MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}
}
