package influxdb_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/antplus-core/internal/infrastructure/config"
	"github.com/nerrad567/antplus-core/internal/infrastructure/influxdb"
)

// fakeInflux answers the ping and write endpoints of the v2 API and keeps
// every written line.
type fakeInflux struct {
	mu           sync.Mutex
	lines        []string
	healthy      bool
	rejectWrites bool
	server       *httptest.Server
}

func newFakeInflux(t *testing.T) *fakeInflux {
	t.Helper()
	f := &fakeInflux{healthy: true}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ping":
			f.mu.Lock()
			healthy := f.healthy
			f.mu.Unlock()
			if !healthy {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		case "/api/v2/write":
			body, _ := io.ReadAll(r.Body)
			f.mu.Lock()
			if f.rejectWrites {
				f.mu.Unlock()
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"code":"invalid","message":"rejected"}`))
				return
			}
			for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
				if line != "" {
					f.lines = append(f.lines, line)
				}
			}
			f.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeInflux) config() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           f.server.URL,
		Token:         "test-token",
		Org:           "home",
		Bucket:        "antplus",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// waitLines polls until n lines arrived or the deadline passes.
func (f *fakeInflux) waitLines(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		f.mu.Lock()
		got := append([]string(nil), f.lines...)
		f.mu.Unlock()
		if len(got) >= n || time.Now().After(deadline) {
			return got
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestConnect(t *testing.T) {
	fake := newFakeInflux(t)

	client, err := influxdb.Connect(fake.config())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := config.InfluxDBConfig{Enabled: false}

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unhealthy(t *testing.T) {
	fake := newFakeInflux(t)
	fake.healthy = false

	_, err := influxdb.Connect(fake.config())
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_DefaultBatchSettings(t *testing.T) {
	fake := newFakeInflux(t)
	cfg := fake.config()
	cfg.BatchSize = -1
	cfg.FlushInterval = 0

	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	client.Close()
}

func TestHealthCheck(t *testing.T) {
	fake := newFakeInflux(t)
	client, err := influxdb.Connect(fake.config())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	fake.mu.Lock()
	fake.healthy = false
	fake.mu.Unlock()
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() expected error for unhealthy server")
	}
}

func TestHealthCheck_AfterClose(t *testing.T) {
	fake := newFakeInflux(t)
	client, err := influxdb.Connect(fake.config())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	client.Close()

	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
	// Writes and a second Close after Close are no-ops.
	client.WriteHeartRate(influxdb.HeartRateSample{Sensor: "chest", BPM: 60})
	if err := client.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestClose_Nil(t *testing.T) {
	var client influxdb.Client
	if err := client.Close(); err != nil {
		t.Errorf("Close() on zero client error = %v", err)
	}
}

// =============================================================================
// Write Tests
// =============================================================================

func TestWriteHeartRate(t *testing.T) {
	fake := newFakeInflux(t)
	client, err := influxdb.Connect(fake.config())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	client.WriteHeartRate(influxdb.HeartRateSample{
		Sensor:        "chest",
		DeviceNumber:  16962,
		Page:          4,
		BPM:           64,
		BeatCount:     12,
		BeatEventTime: 4096,
		Timestamp:     time.Unix(1700000000, 0),
	})
	client.Close()

	lines := fake.waitLines(t, 1)
	if len(lines) != 1 {
		t.Fatalf("lines = %v, want 1", lines)
	}
	line := lines[0]
	for _, want := range []string{
		"heart_rate,",
		"sensor=chest",
		"device=16962",
		"page=4",
		"bpm=64i",
		"beat_count=12i",
		"beat_event_time=4096i",
		"1700000000000000000",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
	if strings.Contains(line, "previous_beat_ms") {
		t.Errorf("line %q carries previous_beat_ms without a value", line)
	}
}

func TestWriteBatteryAndStats(t *testing.T) {
	fake := newFakeInflux(t)
	client, err := influxdb.Connect(fake.config())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	client.WriteBattery(influxdb.BatterySample{
		Sensor:       "chest",
		DeviceNumber: 4242,
		LevelPercent: -1,
		Volts:        2.75,
		Status:       "good",
		Timestamp:    time.Unix(1700000000, 0),
	})
	client.WriteBridgeStats("site-1", map[string]int64{"messages_in": 10})
	client.WriteBridgeStats("site-1", nil)
	client.Close()

	lines := fake.waitLines(t, 2)
	if len(lines) != 2 {
		t.Fatalf("lines = %v, want 2", lines)
	}
	joined := strings.Join(lines, "\n")
	for _, want := range []string{
		"sensor_battery,device=4242,sensor=chest",
		"volts=2.75",
		`status="good"`,
		"1700000000000000000",
		"antplus_bridge,site=site-1",
		"messages_in=10i",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("output %q missing %q", joined, want)
		}
	}
	if strings.Contains(joined, "level_percent") {
		t.Error("level_percent written for an unreported level")
	}
}

func TestWriteErrorsReachCallback(t *testing.T) {
	fake := newFakeInflux(t)
	fake.rejectWrites = true
	client, err := influxdb.Connect(fake.config())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	errs := make(chan error, 4)
	client.SetOnError(func(err error) { errs <- err })
	client.WriteHeartRate(influxdb.HeartRateSample{Sensor: "chest", BPM: 60})

	select {
	case err := <-errs:
		if !errors.Is(err, influxdb.ErrWriteFailed) {
			t.Errorf("callback error = %v, want ErrWriteFailed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no write error reported")
	}
}
