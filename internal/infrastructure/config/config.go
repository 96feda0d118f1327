package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Radio driver names.
const (
	DriverSerial = "serial"
	DriverStub   = "stub"
)

// Config is the root configuration structure for the ANT+ bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Radio     RadioConfig     `yaml:"radio"`
	HeartRate HeartRateConfig `yaml:"heart_rate"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SiteConfig identifies this bridge instance.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// RadioConfig contains ANT radio settings.
type RadioConfig struct {
	// Driver is "serial" for a USB stick or "stub" for the built-in emulator.
	Driver string `yaml:"driver"`

	// Port is the serial device, e.g. /dev/ttyUSB0.
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`

	// ReadTimeout bounds one serial read, in milliseconds.
	ReadTimeout int `yaml:"read_timeout"`

	// PollInterval is the time between router cycles, in milliseconds.
	PollInterval int `yaml:"poll_interval"`

	// NetworkKey is the 8-byte network key as 16 hex characters. Empty
	// leaves the radio's key slot untouched.
	NetworkKey      string `yaml:"network_key"`
	NetworkKeyIndex int    `yaml:"network_key_index"`

	// MailboxSize is the per-channel queue depth.
	MailboxSize int `yaml:"mailbox_size"`

	Stub StubRadioConfig `yaml:"stub"`
}

// StubRadioConfig shapes the emulated radio used with driver "stub".
type StubRadioConfig struct {
	MaxChannels  int `yaml:"max_channels"`
	DeviceNumber int `yaml:"device_number"`

	// HeartRate is the simulated rate in bpm.
	HeartRate int `yaml:"heart_rate"`

	// EmitEvery sends one page every N polls.
	EmitEvery int `yaml:"emit_every"`
}

// HeartRateConfig lists the heart rate monitors to pair with.
type HeartRateConfig struct {
	Sensors []SensorConfig `yaml:"sensors"`
}

// SensorConfig describes one heart rate channel.
type SensorConfig struct {
	// Name is used in topics, metrics tags and API paths.
	Name string `yaml:"name"`

	// DeviceNumber of the monitor. 0 pairs with the first monitor found.
	DeviceNumber int `yaml:"device_number"`

	// TransmissionTypeExtension is the 4-bit device number extension.
	TransmissionTypeExtension int `yaml:"transmission_type_extension"`

	// PeriodHz is the monitor message rate: 4, 2 or 1.
	PeriodHz int `yaml:"period_hz"`
}

// DatabaseConfig contains SQLite page journal settings.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: ANTPLUS_SECTION_KEY
// For example: ANTPLUS_RADIO_PORT, ANTPLUS_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "antplus-001",
			Name: "ANT+ Bridge",
		},
		Radio: RadioConfig{
			Driver:       DriverSerial,
			Port:         "/dev/ttyUSB0",
			Baud:         115200,
			ReadTimeout:  10,
			PollInterval: 50,
			MailboxSize:  32,
			Stub: StubRadioConfig{
				MaxChannels:  8,
				DeviceNumber: 4242,
				HeartRate:    64,
				EmitEvery:    5,
			},
		},
		Database: DatabaseConfig{
			Enabled:     true,
			Path:        "./data/antplus.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "antplus-bridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: ANTPLUS_SECTION_KEY
func applyEnvOverrides(cfg *Config) error {
	// Radio
	if v := os.Getenv("ANTPLUS_RADIO_DRIVER"); v != "" {
		cfg.Radio.Driver = v
	}
	if v := os.Getenv("ANTPLUS_RADIO_PORT"); v != "" {
		cfg.Radio.Port = v
	}
	if v := os.Getenv("ANTPLUS_RADIO_NETWORK_KEY"); v != "" {
		cfg.Radio.NetworkKey = v
	}

	// Database
	if v := os.Getenv("ANTPLUS_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("ANTPLUS_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("ANTPLUS_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("ANTPLUS_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("ANTPLUS_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("ANTPLUS_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing ANTPLUS_API_PORT: %w", err)
		}
		cfg.API.Port = port
	}

	// InfluxDB
	if v := os.Getenv("ANTPLUS_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("ANTPLUS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	errs = append(errs, c.Radio.validate()...)
	errs = append(errs, c.HeartRate.validate()...)

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when the journal is enabled")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when enabled")
		}
		if c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.org and influxdb.bucket are required when enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

const (
	maxNetworkKeyIndex = 7
	maxChannelSlots    = 15
	minStubHeartRate   = 30
	maxStubHeartRate   = 240
)

func (r RadioConfig) validate() []string {
	var errs []string

	switch r.Driver {
	case DriverSerial:
		if r.Port == "" {
			errs = append(errs, "radio.port is required for the serial driver")
		}
		if r.Baud <= 0 {
			errs = append(errs, "radio.baud must be positive")
		}
	case DriverStub:
		if r.Stub.MaxChannels < 1 || r.Stub.MaxChannels > maxChannelSlots {
			errs = append(errs, "radio.stub.max_channels must be between 1 and 15")
		}
		if r.Stub.DeviceNumber < 1 || r.Stub.DeviceNumber > 0xFFFF {
			errs = append(errs, "radio.stub.device_number must be between 1 and 65535")
		}
		if r.Stub.HeartRate < minStubHeartRate || r.Stub.HeartRate > maxStubHeartRate {
			errs = append(errs, "radio.stub.heart_rate must be between 30 and 240")
		}
	default:
		errs = append(errs, fmt.Sprintf("radio.driver %q must be %q or %q", r.Driver, DriverSerial, DriverStub))
	}

	if r.PollInterval <= 0 {
		errs = append(errs, "radio.poll_interval must be positive")
	}
	if r.NetworkKeyIndex < 0 || r.NetworkKeyIndex > maxNetworkKeyIndex {
		errs = append(errs, "radio.network_key_index must be between 0 and 7")
	}
	if _, _, err := r.NetworkKeyBytes(); err != nil {
		errs = append(errs, err.Error())
	}
	return errs
}

func (h HeartRateConfig) validate() []string {
	var errs []string

	if len(h.Sensors) == 0 {
		errs = append(errs, "heart_rate.sensors needs at least one sensor")
	}
	if len(h.Sensors) > maxChannelSlots {
		errs = append(errs, "heart_rate.sensors cannot exceed 15 channels")
	}

	seen := make(map[string]bool, len(h.Sensors))
	for i, s := range h.Sensors {
		prefix := fmt.Sprintf("heart_rate.sensors[%d]", i)
		if s.Name == "" {
			errs = append(errs, prefix+".name is required")
		} else if seen[s.Name] {
			errs = append(errs, fmt.Sprintf("%s.name %q is duplicated", prefix, s.Name))
		}
		seen[s.Name] = true

		if s.DeviceNumber < 0 || s.DeviceNumber > 0xFFFF {
			errs = append(errs, prefix+".device_number must be between 0 and 65535")
		}
		if s.TransmissionTypeExtension < 0 || s.TransmissionTypeExtension > 0x0F {
			errs = append(errs, prefix+".transmission_type_extension must be between 0 and 15")
		}
		switch s.PeriodHz {
		case 0, 1, 2, 4:
		default:
			errs = append(errs, prefix+".period_hz must be 1, 2 or 4")
		}
	}
	return errs
}

// NetworkKeyBytes decodes the configured network key.
//
// Returns:
//   - [8]byte: The key
//   - bool: false when no key is configured
//   - error: If the key is not 16 hex characters
func (r RadioConfig) NetworkKeyBytes() ([8]byte, bool, error) {
	var key [8]byte
	if r.NetworkKey == "" {
		return key, false, nil
	}
	raw, err := hex.DecodeString(strings.ReplaceAll(r.NetworkKey, ":", ""))
	if err != nil || len(raw) != len(key) {
		return key, false, fmt.Errorf("radio.network_key must be 16 hex characters")
	}
	copy(key[:], raw)
	return key, true, nil
}

// GetPollInterval returns the router cycle interval as a Duration.
func (r RadioConfig) GetPollInterval() time.Duration {
	return time.Duration(r.PollInterval) * time.Millisecond
}

// GetReadTimeout returns the serial read timeout as a Duration.
func (r RadioConfig) GetReadTimeout() time.Duration {
	return time.Duration(r.ReadTimeout) * time.Millisecond
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
