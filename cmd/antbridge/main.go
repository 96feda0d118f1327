// ANT+ Bridge - heart rate monitors to MQTT, InfluxDB and HTTP
//
// This is the main entry point for the ANT+ bridge. It negotiates with a USB
// ANT radio (or the built-in emulator), pairs with the configured heart rate
// monitors and forwards every decoded data page to:
//   - MQTT state topics (retained)
//   - InfluxDB time series
//   - a SQLite page journal
//   - WebSocket clients of the HTTP API
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/antplus-core/migrations"

	"github.com/nerrad567/antplus-core/internal/ant/driver"
	"github.com/nerrad567/antplus-core/internal/ant/driver/stub"
	"github.com/nerrad567/antplus-core/internal/ant/message"
	"github.com/nerrad567/antplus-core/internal/api"
	"github.com/nerrad567/antplus-core/internal/bridges/ant"
	"github.com/nerrad567/antplus-core/internal/infrastructure/config"
	"github.com/nerrad567/antplus-core/internal/infrastructure/database"
	"github.com/nerrad567/antplus-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/antplus-core/internal/infrastructure/logging"
	"github.com/nerrad567/antplus-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/antplus-core/internal/journal"
	"github.com/nerrad567/antplus-core/internal/plus/heartrate"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting ANT+ bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"level", cfg.Logging.Level,
		"driver", cfg.Radio.Driver,
	)

	sensors, err := buildSensors(cfg.HeartRate)
	if err != nil {
		return err
	}
	opts := ant.Options{
		SiteID:          cfg.Site.ID,
		Version:         version,
		Sensors:         sensors,
		NetworkKeyIndex: uint8(cfg.Radio.NetworkKeyIndex), //nolint:gosec // validated 0-7
		MailboxSize:     cfg.Radio.MailboxSize,
		PollInterval:    cfg.Radio.GetPollInterval(),
		Logger:          log.Component("ant"),
	}
	key, hasKey, err := cfg.Radio.NetworkKeyBytes()
	if err != nil {
		return err
	}
	if hasKey {
		opts.NetworkKey = &key
	}

	// Open database and page journal (optional)
	var db *database.DB
	if cfg.Database.Enabled {
		db, err = database.Open(database.ConfigFrom(cfg.Database))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		if migrateErr := db.Migrate(ctx); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("page journal ready", "path", cfg.Database.Path)
	} else {
		log.Info("page journal disabled")
	}

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
		opts.Publisher = mqttClient
		opts.Commands = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		opts.Metrics = influxClient
		opts.Stats = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	var pages *journal.SQLite
	if db != nil {
		pages = journal.NewSQLite(db.DB)
		opts.Journal = pages
	}

	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	opts.Listener = hub

	drv, err := openDriver(cfg.Radio, log)
	if err != nil {
		return err
	}
	opts.Driver = drv

	bridge, err := ant.New(opts)
	if err != nil {
		closeDriver(drv, log)
		return fmt.Errorf("creating bridge: %w", err)
	}
	defer func() {
		log.Info("stopping bridge")
		closeDriver(bridge.Stop(), log)
	}()

	if err := bridge.Start(ctx); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}

	if cfg.API.Enabled {
		deps := api.Deps{
			Config:  cfg.API,
			WS:      cfg.WebSocket,
			Logger:  log.Component("api"),
			Bridge:  bridge,
			Hub:     hub,
			Version: version,
		}
		// Typed nil pointers must not reach the interface fields.
		if pages != nil {
			deps.Pages = pages
		}
		if mqttClient != nil {
			deps.MQTT = mqttClient
		}
		if db != nil {
			deps.DB = db
		}

		server, srvErr := api.New(deps)
		if srvErr != nil {
			return fmt.Errorf("creating API server: %w", srvErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. API server
	// 2. Bridge (closes channels, then the driver)
	// 3. InfluxDB, MQTT, database (when enabled)
	return nil
}

// getConfigPath returns the configuration file path.
// Uses ANTPLUS_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("ANTPLUS_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// buildSensors converts configured monitors to bridge sensors. Device
// number 0 pairs with the first monitor found.
func buildSensors(cfg config.HeartRateConfig) ([]ant.Sensor, error) {
	sensors := make([]ant.Sensor, 0, len(cfg.Sensors))
	for _, sc := range cfg.Sensors {
		s := ant.Sensor{Name: sc.Name}
		if sc.DeviceNumber != 0 {
			s.Device = &heartrate.Device{
				Number:                    uint16(sc.DeviceNumber),             //nolint:gosec // validated 0-65535
				TransmissionTypeExtension: uint8(sc.TransmissionTypeExtension), //nolint:gosec // validated 0-15
			}
		}
		if sc.PeriodHz != 0 {
			period, ok := heartrate.ParsePeriod(sc.PeriodHz)
			if !ok {
				return nil, fmt.Errorf("sensor %s: unsupported period %d Hz", sc.Name, sc.PeriodHz)
			}
			s.Period = period
		}
		sensors = append(sensors, s)
	}
	return sensors, nil
}

// openDriver opens the configured radio transport.
func openDriver(cfg config.RadioConfig, log *logging.Logger) (driver.Driver, error) {
	switch cfg.Driver {
	case config.DriverStub:
		log.Info("using emulated radio",
			"max_channels", cfg.Stub.MaxChannels,
			"heart_rate", cfg.Stub.HeartRate,
		)
		return stub.NewWithEmulator(newStubRadio(cfg.Stub)), nil
	default:
		s, err := driver.OpenSerial(driver.SerialConfig{
			Port:        cfg.Port,
			Baud:        cfg.Baud,
			ReadTimeout: cfg.GetReadTimeout(),
		})
		if err != nil {
			return nil, fmt.Errorf("opening radio: %w", err)
		}
		s.SetLogger(log.Component("serial"))
		log.Info("radio opened", "port", cfg.Port, "baud", cfg.Baud)
		return s, nil
	}
}

// newStubRadio builds an emulated radio whose open channels carry a
// simulated heart rate monitor each.
func newStubRadio(cfg config.StubRadioConfig) *stub.Radio {
	radio := stub.NewRadio(uint8(cfg.MaxChannels)) //nolint:gosec // validated 1-15
	radio.DeviceNumber = uint16(cfg.DeviceNumber)  //nolint:gosec // validated 1-65535
	radio.DeviceType = heartrate.DeviceType
	if cfg.EmitEvery > 0 {
		radio.EmitEvery = uint64(cfg.EmitEvery)
	}

	// The radio calls Source under its own lock.
	simulators := make(map[uint8]*heartrate.Simulator)
	radio.Source = func(channel uint8, _ uint64) ([message.DataPayloadSize]byte, bool) {
		sim, ok := simulators[channel]
		if !ok {
			sim = heartrate.NewSimulator(uint8(cfg.HeartRate), heartrate.PeriodFourHz) //nolint:gosec // validated 30-240
			simulators[channel] = sim
		}
		return sim.Next(), true
	}
	return radio
}

// closeDriver closes drivers that hold an OS resource.
func closeDriver(drv driver.Driver, log *logging.Logger) {
	if c, ok := drv.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Error("error closing radio", "error", err)
		}
	}
}

// healthCheck verifies the enabled infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
