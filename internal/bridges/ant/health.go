package ant

import (
	"context"
	"sync"
	"time"
)

// defaultHealthInterval is used when HealthReporterConfig.Interval is zero.
const defaultHealthInterval = 30 * time.Second

// StatusSource supplies the figures a health report is built from.
// *Bridge implements it.
type StatusSource interface {
	// Statistics returns the current counters.
	Statistics() Statistics

	// Tracking returns how many sensors are tracking out of how many are
	// configured.
	Tracking() (tracking, configured int)
}

// StatsWriter receives the counters on every report. It is typically an
// InfluxDB client.
type StatsWriter interface {
	WriteBridgeStats(site string, counters map[string]int64)
}

// HealthReporter publishes periodic health status.
type HealthReporter struct {
	bridgeID  string
	version   string
	startTime time.Time
	interval  time.Duration
	publisher Publisher
	source    StatusSource
	stats     StatsWriter

	// lastDriverErrors is the driver error count at the previous report.
	lastDriverErrors uint64
	reportMu         sync.Mutex

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// HealthReporterConfig holds configuration for the health reporter.
type HealthReporterConfig struct {
	// BridgeID is the bridge identifier for health messages.
	BridgeID string

	// Version is the bridge software version.
	Version string

	// Interval is how often to publish health status.
	// Default: 30 seconds.
	Interval time.Duration

	// Publisher is the MQTT client for publishing messages. Optional.
	Publisher Publisher

	// Source provides counters and tracking state. Optional.
	Source StatusSource

	// Stats receives the counters on every report. Optional.
	Stats StatsWriter
}

// NewHealthReporter creates a new health reporter.
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultHealthInterval
	}

	return &HealthReporter{
		bridgeID:  cfg.BridgeID,
		version:   cfg.Version,
		startTime: time.Now(),
		interval:  interval,
		publisher: cfg.Publisher,
		source:    cfg.Source,
		stats:     cfg.Stats,
		done:      make(chan struct{}),
	}
}

// Start begins periodic health reporting. Call Stop to shut down.
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop stops reporting and publishes a final "stopping" status.
// Safe to call multiple times.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()

		//nolint:errcheck // best-effort during shutdown
		h.publishStatus(HealthStopping, "bridge stopping")
	})
}

// SetLogger sets the logger for this reporter.
func (h *HealthReporter) SetLogger(logger Logger) {
	h.loggerMu.Lock()
	h.logger = logger
	h.loggerMu.Unlock()
}

// PublishStarting publishes a "starting" status.
func (h *HealthReporter) PublishStarting() error {
	return h.publishStatus(HealthStarting, "bridge starting")
}

// PublishNow evaluates and publishes the current status.
func (h *HealthReporter) PublishNow() error {
	status, reason := h.determineStatus()
	if h.stats != nil && h.source != nil {
		h.stats.WriteBridgeStats(h.bridgeID, h.source.Statistics().Counters())
	}
	return h.publishStatus(status, reason)
}

func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	if err := h.PublishNow(); err != nil {
		h.logError("failed to publish initial health", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if err := h.PublishNow(); err != nil {
				h.logError("failed to publish health", err)
			}
		}
	}
}

// determineStatus evaluates the current bridge status. Checks run in order
// and the first failure names the reason.
func (h *HealthReporter) determineStatus() (HealthStatus, string) {
	if h.publisher != nil && !h.publisher.IsConnected() {
		return HealthDegraded, "MQTT disconnected"
	}
	if h.source == nil {
		return HealthHealthy, ""
	}

	stats := h.source.Statistics()
	h.reportMu.Lock()
	newErrors := stats.DriverErrors > h.lastDriverErrors
	h.lastDriverErrors = stats.DriverErrors
	h.reportMu.Unlock()
	if newErrors {
		return HealthDegraded, "radio driver errors"
	}

	tracking, configured := h.source.Tracking()
	if tracking < configured {
		return HealthDegraded, "sensors not tracking"
	}
	return HealthHealthy, ""
}

func (h *HealthReporter) publishStatus(status HealthStatus, reason string) error {
	if h.publisher == nil {
		return nil
	}

	var stats Statistics
	var tracking, configured int
	if h.source != nil {
		stats = h.source.Statistics()
		tracking, configured = h.source.Tracking()
	}

	msg := NewHealthMessage(h.bridgeID, h.version, status, stats, tracking, configured, h.startTime)
	msg.Reason = reason

	return h.publisher.PublishHealth(msg)
}

func (h *HealthReporter) logError(msg string, err error) {
	h.loggerMu.RLock()
	logger := h.logger
	h.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}
