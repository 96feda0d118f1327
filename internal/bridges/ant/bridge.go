package ant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/antplus-core/internal/ant/channel"
	"github.com/nerrad567/antplus-core/internal/ant/driver"
	"github.com/nerrad567/antplus-core/internal/ant/message"
	"github.com/nerrad567/antplus-core/internal/ant/router"
	"github.com/nerrad567/antplus-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/antplus-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/antplus-core/internal/journal"
	"github.com/nerrad567/antplus-core/internal/plus/heartrate"
)

// Bridge operation constants.
const (
	// defaultPollInterval is used when Options.PollInterval is zero.
	defaultPollInterval = 50 * time.Millisecond

	// stopCycles bounds the poll cycles Stop runs while channels close.
	stopCycles = 20

	// stopPollInterval caps the pause between those cycles.
	stopPollInterval = 20 * time.Millisecond

	// maxQueuedCommands is the per-sensor command backlog.
	maxQueuedCommands = 8

	// journalTimeout bounds a single journal write.
	journalTimeout = 2 * time.Second
)

// Logger is the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Publisher publishes sensor state and bridge health. *mqtt.Client
// implements it.
type Publisher interface {
	PublishSensorState(profile, sensor string, state any) error
	PublishHealth(report any) error
	IsConnected() bool
}

// CommandSubscriber delivers commands addressed to sensors. *mqtt.Client
// implements it.
type CommandSubscriber interface {
	SubscribeSensorCommands(profile string, handler mqtt.CommandHandler) error
}

// MetricsWriter records time-series samples. *influxdb.Client implements it.
type MetricsWriter interface {
	WriteHeartRate(s influxdb.HeartRateSample)
	WriteBattery(s influxdb.BatterySample)
}

// Journal stores every decoded page. *journal.SQLite implements it.
type Journal interface {
	Append(ctx context.Context, e journal.Entry) error
}

// PageListener observes every decoded page, e.g. a WebSocket hub.
type PageListener interface {
	OnPage(msg PageMessage)
}

// Sensor is one heart rate monitor the bridge listens to.
type Sensor struct {
	// Name identifies the sensor in topics, metrics and the API.
	Name string

	// Device is the monitor to pair with. Nil pairs with the first found.
	Device *heartrate.Device

	// Period is the monitor's message period. Zero means 4 Hz.
	Period heartrate.Period
}

// Options holds configuration for creating a bridge.
type Options struct {
	// SiteID names the bridge in health messages and metrics.
	SiteID string

	// Version is the bridge software version.
	Version string

	// Driver is the radio transport. The bridge owns it until Stop
	// returns it.
	Driver driver.Driver

	// Sensors lists the monitors to open channels for.
	Sensors []Sensor

	// NetworkKey, if set, is loaded into NetworkKeyIndex before any
	// channel opens and again after the radio restarts.
	NetworkKey      *[message.NetworkKeySize]byte
	NetworkKeyIndex uint8

	// MailboxSize is the queue depth per channel. Zero uses the default.
	MailboxSize int

	// PollInterval is the time between poll cycles. Zero means 50ms.
	PollInterval time.Duration

	// HealthInterval is the time between health reports. Zero means 30s.
	HealthInterval time.Duration

	// Optional sinks and sources. Leave nil to disable.
	Publisher Publisher
	Commands  CommandSubscriber
	Metrics   MetricsWriter
	Stats     StatsWriter
	Journal   Journal
	Listener  PageListener

	// Logger is an optional structured logger.
	Logger Logger
}

// Bridge runs the router and heart rate displays and forwards decoded
// pages to its sinks.
type Bridge struct {
	siteID       string
	router       *router.Router
	sensors      []*sensor
	byName       map[string]*sensor
	networkKey   *[message.NetworkKeySize]byte
	keyIndex     uint8
	pollInterval time.Duration

	publisher Publisher
	commands  CommandSubscriber
	metrics   MetricsWriter
	journal   Journal
	listener  PageListener
	health    *HealthReporter

	stats counters
	sent  atomic.Uint64
	drops atomic.Uint64

	// cmdMu guards every sensor's command queue.
	cmdMu sync.Mutex

	snapMu   sync.RWMutex
	snapshot Snapshot

	// Touched only by the poll goroutine, or by Stop once it has exited.
	rekey   bool
	closing bool

	started   atomic.Bool
	done      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc

	logger   Logger
	loggerMu sync.RWMutex
}

type counters struct {
	received      atomic.Uint64
	pages         atomic.Uint64
	decodeErrors  atomic.Uint64
	channelErrors atomic.Uint64
	driverErrors  atomic.Uint64
	sinkErrors    atomic.Uint64
	commands      atomic.Uint64
	reopens       atomic.Uint64
}

type sensor struct {
	Sensor
	display *heartrate.Display
	mailbox *channel.Mailbox

	// Poll goroutine only.
	lastRaw  [message.DataPayloadSize]byte
	lastPage *PageMessage
	pages    uint64

	// Guarded by Bridge.cmdMu.
	queued []heartrate.HRFeatureCommand
}

// countingDriver counts messages the router hands to the radio.
type countingDriver struct {
	driver.Driver
	sent *atomic.Uint64
}

func (d *countingDriver) SendMessage(msg message.TxMessage) error {
	if err := d.Driver.SendMessage(msg); err != nil {
		return err
	}
	d.sent.Add(1)
	return nil
}

// New resets the radio, negotiates its capabilities and assigns one
// channel per sensor. Channels are not opened until Start.
//
// Returns:
//   - *Bridge: Ready to start
//   - error: ErrNoDriver, ErrNoSensors, ErrRadioInit wrapping the router
//     error, or router.ErrOutOfChannels when the radio has fewer channels
//     than sensors
func New(opts Options) (*Bridge, error) {
	if opts.Driver == nil {
		return nil, ErrNoDriver
	}
	if len(opts.Sensors) == 0 {
		return nil, ErrNoSensors
	}

	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	ctx, ctxCancel := context.WithCancel(context.Background())

	b := &Bridge{
		siteID:       opts.SiteID,
		byName:       make(map[string]*sensor, len(opts.Sensors)),
		networkKey:   opts.NetworkKey,
		keyIndex:     opts.NetworkKeyIndex,
		pollInterval: pollInterval,
		publisher:    opts.Publisher,
		commands:     opts.Commands,
		metrics:      opts.Metrics,
		journal:      opts.Journal,
		listener:     opts.Listener,
		done:         make(chan struct{}),
		ctx:          ctx,
		ctxCancel:    ctxCancel,
		logger:       opts.Logger,
	}

	r, err := router.New(&countingDriver{Driver: opts.Driver, sent: &b.sent})
	if err != nil {
		ctxCancel()
		return nil, fmt.Errorf("%w: %w", ErrRadioInit, err)
	}
	if opts.Logger != nil {
		r.SetLogger(opts.Logger)
	}
	r.SetRxMessageCallback(b.observe)
	b.router = r

	for _, cfg := range opts.Sensors {
		if _, dup := b.byName[cfg.Name]; dup {
			ctxCancel()
			return nil, fmt.Errorf("ant: duplicate sensor %q", cfg.Name)
		}
		s, err := b.addSensor(cfg, opts.MailboxSize)
		if err != nil {
			ctxCancel()
			return nil, fmt.Errorf("sensor %s: %w", cfg.Name, err)
		}
		b.sensors = append(b.sensors, s)
		b.byName[cfg.Name] = s
	}

	b.health = NewHealthReporter(HealthReporterConfig{
		BridgeID:  opts.SiteID,
		Version:   opts.Version,
		Interval:  opts.HealthInterval,
		Publisher: opts.Publisher,
		Source:    b,
		Stats:     opts.Stats,
	})
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}

	b.updateSnapshot()
	b.logInfo("radio ready",
		"max_channels", r.MaxChannels(),
		"sensors", len(b.sensors))
	return b, nil
}

func (b *Bridge) addSensor(cfg Sensor, mailboxSize int) (*sensor, error) {
	mb := channel.NewMailbox(mailboxSize)
	if err := b.router.AddChannel(mb); err != nil {
		return nil, err
	}

	period := cfg.Period
	if period == 0 {
		period = heartrate.PeriodFourHz
	}

	s := &sensor{Sensor: cfg, mailbox: mb}
	s.display = heartrate.NewDisplay(cfg.Device, b.keyIndex, period, mb)
	s.display.SetRxMessageCallback(func(msg *message.AntMessage) {
		switch m := msg.Message.(type) {
		case *message.BroadcastData:
			s.lastRaw = m.Data
		case *message.AcknowledgedData:
			s.lastRaw = m.Data
		}
	})
	s.display.SetRxDataPageCallback(func(page heartrate.MonitorTxDataPage, err error) {
		b.handlePage(s, page, err)
	})
	s.display.SetTxDataPageCallback(func() message.ChannelTxMessage {
		return b.nextCommand(s)
	})
	return s, nil
}

// Start opens every sensor channel, subscribes to commands and starts the
// poll loop and health reporting.
func (b *Bridge) Start(ctx context.Context) error {
	if !b.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	if err := b.sendNetworkKey(); err != nil {
		return err
	}

	for _, s := range b.sensors {
		if err := s.display.Open(); err != nil {
			return fmt.Errorf("open sensor %s: %w", s.Name, err)
		}
	}

	if b.commands != nil {
		if err := b.commands.SubscribeSensorCommands(ProfileHeartRate, b.handleCommand); err != nil {
			return fmt.Errorf("subscribe to commands: %w", err)
		}
		b.logInfo("subscribed to commands", "profile", ProfileHeartRate)
	}

	b.snapMu.Lock()
	b.snapshot.Running = true
	b.snapMu.Unlock()

	b.health.Start(ctx)

	b.wg.Add(1)
	go b.pollLoop(ctx)

	b.logInfo("bridge started",
		"site_id", b.siteID,
		"sensors", len(b.sensors),
		"poll_interval", b.pollInterval.String())
	return nil
}

// Stop ends the poll loop, closes every channel and hands back the driver.
// The caller closes the driver. Later calls return nil.
func (b *Bridge) Stop() driver.Driver {
	var drv driver.Driver
	b.stopOnce.Do(func() {
		close(b.done)
		b.wg.Wait()

		b.closing = true
		if b.started.Load() {
			b.closeChannels()
			b.health.Stop()
		}
		b.ctxCancel()

		b.snapMu.Lock()
		b.snapshot.Running = false
		b.snapMu.Unlock()

		released := b.router.Release()
		if c, ok := released.(*countingDriver); ok {
			drv = c.Driver
		} else {
			drv = released
		}
		b.logInfo("bridge stopped")
	})
	return drv
}

func (b *Bridge) closeChannels() {
	for _, s := range b.sensors {
		s.display.Close()
	}
	pause := min(b.pollInterval, stopPollInterval)
	for i := 0; i < stopCycles && !b.allClosed(); i++ {
		b.cycle()
		time.Sleep(pause)
	}
	if !b.allClosed() {
		b.logInfo("channels still open at shutdown")
	}
}

func (b *Bridge) allClosed() bool {
	for _, s := range b.sensors {
		if s.display.State() != channel.StateClosed {
			return false
		}
	}
	return true
}

func (b *Bridge) pollLoop(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case <-ticker.C:
			b.cycle()
		}
	}
}

// cycle runs the router once, then every display, then refreshes the
// snapshot.
func (b *Bridge) cycle() {
	if b.rekey {
		b.rekey = false
		if err := b.sendNetworkKey(); err != nil {
			b.stats.driverErrors.Add(1)
			b.logError("failed to reload network key", err)
		}
	}

	if err := b.router.Process(); err != nil {
		if errors.Is(err, router.ErrDriver) {
			b.stats.driverErrors.Add(1)
		} else {
			b.stats.channelErrors.Add(1)
		}
		b.logError("radio poll failed", err)
	}

	for _, s := range b.sensors {
		s.display.Process()
		if !b.closing && s.display.State() == channel.StateClosed {
			b.reopen(s)
		}
	}

	b.updateSnapshot()
}

// reopen restarts a channel the radio closed, after a search timeout or a
// radio restart.
func (b *Bridge) reopen(s *sensor) {
	if err := s.display.Open(); err != nil {
		b.logError("failed to reopen channel", err)
		return
	}
	b.stats.reopens.Add(1)
	b.logInfo("reopening channel", "sensor", s.Name)
}

func (b *Bridge) sendNetworkKey() error {
	if b.networkKey == nil {
		return nil
	}
	err := b.router.Send(&message.SetNetworkKey{Network: b.keyIndex, Key: *b.networkKey})
	if err != nil {
		return fmt.Errorf("set network key: %w", err)
	}
	b.logDebug("network key loaded", "index", b.keyIndex)
	return nil
}

// observe sees every message the router receives.
func (b *Bridge) observe(msg *message.AntMessage) {
	b.stats.received.Add(1)
	if _, ok := msg.Message.(*message.StartUpMessage); ok && b.started.Load() && !b.closing {
		b.rekey = true
		b.logInfo("radio restarted, reopening channels")
	}
}

func (b *Bridge) handlePage(s *sensor, page heartrate.MonitorTxDataPage, err error) {
	if err != nil {
		if errors.Is(err, heartrate.ErrUnsupportedDataPage) {
			b.stats.decodeErrors.Add(1)
			b.logDebug("undecodable page", "sensor", s.Name, "error", err)
			return
		}
		b.stats.channelErrors.Add(1)
		b.logError("channel error", fmt.Errorf("sensor %s: %w", s.Name, err))
		return
	}

	b.stats.pages.Add(1)
	index, _ := s.mailbox.Assignment().Index()
	msg := NewPageMessage(s.Name, s.display.DeviceID(), index, page, s.lastRaw)
	s.lastPage = &msg
	s.pages++

	if b.publisher != nil && b.publisher.IsConnected() {
		if err := b.publisher.PublishSensorState(ProfileHeartRate, s.Name, msg); err != nil {
			b.stats.sinkErrors.Add(1)
			b.logDebug("failed to publish page", "sensor", s.Name, "error", err)
		}
	}
	if b.metrics != nil {
		b.writeMetrics(page, msg)
	}
	if b.journal != nil {
		b.appendJournal(msg, s.lastRaw)
	}
	if b.listener != nil {
		b.listener.OnPage(msg)
	}
}

func (b *Bridge) writeMetrics(page heartrate.MonitorTxDataPage, msg PageMessage) {
	c := page.Common()
	sample := influxdb.HeartRateSample{
		Sensor:        msg.Sensor,
		DeviceNumber:  msg.DeviceNumber,
		Page:          msg.PageNumber,
		BPM:           c.ComputedHeartRate,
		BeatCount:     c.HeartBeatCount,
		BeatEventTime: c.HeartBeatEventTime,
		Timestamp:     msg.Timestamp,
	}
	if p, ok := page.(heartrate.PreviousHeartBeat); ok {
		sample.PreviousBeatMs = rrIntervalMs(p)
	}
	b.metrics.WriteHeartRate(sample)

	if p, ok := page.(heartrate.BatteryStatus); ok {
		b.metrics.WriteBattery(batterySample(p, msg))
	}
}

// batterySample maps the page's "not used" markers onto the sample's.
func batterySample(p heartrate.BatteryStatus, msg PageMessage) influxdb.BatterySample {
	s := influxdb.BatterySample{
		Sensor:       msg.Sensor,
		DeviceNumber: msg.DeviceNumber,
		LevelPercent: int(p.BatteryLevel),
		Volts:        p.Voltage(),
		Status:       p.Status.String(),
		Timestamp:    msg.Timestamp,
	}
	if p.BatteryLevel == heartrate.BatteryLevelUnused {
		s.LevelPercent = -1
	}
	if p.CoarseVoltage == heartrate.CoarseVoltageInvalid {
		s.Volts = 0
	}
	return s
}

func (b *Bridge) appendJournal(msg PageMessage, raw [message.DataPayloadSize]byte) {
	fields, err := json.Marshal(msg.Fields)
	if err != nil {
		b.stats.sinkErrors.Add(1)
		b.logError("failed to encode page for journal", err)
		return
	}

	ctx, cancel := context.WithTimeout(b.ctx, journalTimeout)
	defer cancel()

	err = b.journal.Append(ctx, journal.Entry{
		MessageID:    msg.ID,
		Sensor:       msg.Sensor,
		Profile:      msg.Profile,
		DeviceNumber: msg.DeviceNumber,
		Channel:      msg.Channel,
		PageNumber:   msg.PageNumber,
		Page:         fields,
		Raw:          raw[:],
		CreatedAt:    msg.Timestamp,
	})
	if err != nil {
		b.stats.sinkErrors.Add(1)
		b.logError("failed to journal page", err)
	}
}

// QueueFeatureCommand queues a feature command for a sensor's monitor. It
// is sent as an acknowledged data page once the channel is tracking.
func (b *Bridge) QueueFeatureCommand(name string, cmd heartrate.HRFeatureCommand) error {
	s, ok := b.byName[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSensor, name)
	}

	b.cmdMu.Lock()
	defer b.cmdMu.Unlock()
	if len(s.queued) >= maxQueuedCommands {
		return fmt.Errorf("%w: %s", ErrCommandQueueFull, name)
	}
	s.queued = append(s.queued, cmd)
	return nil
}

func (b *Bridge) nextCommand(s *sensor) message.ChannelTxMessage {
	b.cmdMu.Lock()
	defer b.cmdMu.Unlock()
	if len(s.queued) == 0 {
		return nil
	}
	cmd := s.queued[0]
	s.queued = s.queued[1:]
	b.stats.commands.Add(1)
	return cmd.Message()
}

// handleCommand processes a command message from MQTT.
func (b *Bridge) handleCommand(name string, payload []byte) error {
	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	feature, err := cmd.FeatureCommand()
	if err != nil {
		return fmt.Errorf("%w: command %q", err, cmd.Command)
	}
	if err := b.QueueFeatureCommand(name, feature); err != nil {
		return err
	}

	b.logInfo("queued feature command",
		"command_id", cmd.ID,
		"sensor", name,
		"apply", cmd.Apply,
		"enable", cmd.Enable)
	return nil
}

// SetLogger sets the logger for the bridge and its health reporter.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()

	if b.health != nil {
		b.health.SetLogger(logger)
	}
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logError(msg string, err error) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}

func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}
