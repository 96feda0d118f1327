package ant

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

// fakeSource implements StatusSource.
type fakeSource struct {
	mu         sync.Mutex
	stats      Statistics
	tracking   int
	configured int
}

func (f *fakeSource) Statistics() Statistics {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

func (f *fakeSource) Tracking() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tracking, f.configured
}

func TestHealthReporter_DetermineStatus(t *testing.T) {
	tests := []struct {
		name       string
		connected  bool
		source     *fakeSource
		wantStatus HealthStatus
		wantReason string
	}{
		{
			name:       "mqtt down",
			connected:  false,
			source:     &fakeSource{tracking: 1, configured: 1},
			wantStatus: HealthDegraded,
			wantReason: "MQTT disconnected",
		},
		{
			name:       "driver errors",
			connected:  true,
			source:     &fakeSource{stats: Statistics{DriverErrors: 2}, tracking: 1, configured: 1},
			wantStatus: HealthDegraded,
			wantReason: "radio driver errors",
		},
		{
			name:       "sensor searching",
			connected:  true,
			source:     &fakeSource{tracking: 1, configured: 2},
			wantStatus: HealthDegraded,
			wantReason: "sensors not tracking",
		},
		{
			name:       "all tracking",
			connected:  true,
			source:     &fakeSource{tracking: 2, configured: 2},
			wantStatus: HealthHealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthReporter(HealthReporterConfig{
				BridgeID:  "site",
				Publisher: newMockPublisher(tt.connected),
				Source:    tt.source,
			})
			status, reason := h.determineStatus()
			if status != tt.wantStatus || reason != tt.wantReason {
				t.Errorf("determineStatus() = (%q, %q), want (%q, %q)", status, reason, tt.wantStatus, tt.wantReason)
			}
		})
	}
}

func TestHealthReporter_DriverErrorsClearOnNextReport(t *testing.T) {
	src := &fakeSource{stats: Statistics{DriverErrors: 3}, tracking: 1, configured: 1}
	h := NewHealthReporter(HealthReporterConfig{Publisher: newMockPublisher(true), Source: src})

	if status, _ := h.determineStatus(); status != HealthDegraded {
		t.Fatalf("first status = %q, want degraded", status)
	}
	if status, _ := h.determineStatus(); status != HealthHealthy {
		t.Errorf("second status = %q, want healthy with no new errors", status)
	}
}

func TestHealthReporter_PublishNow(t *testing.T) {
	pub := newMockPublisher(true)
	metrics := &mockMetrics{}
	src := &fakeSource{stats: Statistics{Pages: 12}, tracking: 1, configured: 1}
	h := NewHealthReporter(HealthReporterConfig{
		BridgeID:  "home",
		Version:   "1.2.3",
		Publisher: pub,
		Source:    src,
		Stats:     metrics,
	})

	if err := h.PublishNow(); err != nil {
		t.Fatalf("PublishNow() error = %v", err)
	}

	msgs := pub.onTopic("antplus/health")
	if len(msgs) != 1 {
		t.Fatalf("published %d health messages, want 1", len(msgs))
	}

	var msg HealthMessage
	if err := json.Unmarshal(msgs[0].payload, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Bridge != "home" || msg.Version != "1.2.3" || msg.Status != HealthHealthy {
		t.Errorf("health = %+v", msg)
	}
	if msg.Statistics == nil || msg.Statistics.Pages != 12 {
		t.Errorf("statistics = %+v", msg.Statistics)
	}
	if msg.SensorsTracking != 1 || msg.SensorsConfigured != 1 {
		t.Errorf("sensors = %d/%d", msg.SensorsTracking, msg.SensorsConfigured)
	}

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	if len(metrics.stats) != 1 || metrics.stats[0]["pages"] != 12 {
		t.Errorf("bridge stats written = %v", metrics.stats)
	}
}

func TestHealthReporter_StartStop(t *testing.T) {
	pub := newMockPublisher(true)
	h := NewHealthReporter(HealthReporterConfig{
		BridgeID:  "home",
		Interval:  10 * time.Millisecond,
		Publisher: pub,
		Source:    &fakeSource{tracking: 1, configured: 1},
	})

	h.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	h.Stop()
	h.Stop()

	msgs := pub.onTopic("antplus/health")
	if len(msgs) < 2 {
		t.Fatalf("published %d messages, want periodic reports plus stopping", len(msgs))
	}
	var last HealthMessage
	if err := json.Unmarshal(msgs[len(msgs)-1].payload, &last); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if last.Status != HealthStopping {
		t.Errorf("last status = %q, want stopping", last.Status)
	}
}

func TestHealthReporter_NoPublisher(t *testing.T) {
	h := NewHealthReporter(HealthReporterConfig{})
	if err := h.PublishStarting(); err != nil {
		t.Errorf("PublishStarting() error = %v", err)
	}
	if h.interval != defaultHealthInterval {
		t.Errorf("interval = %v, want default", h.interval)
	}
}
