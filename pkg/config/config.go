// Package config holds the settings shared by the dongle binaries.
package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robotalks/dongle/pkg/framework"
	"github.com/robotalks/dongle/pkg/hal"
	"github.com/robotalks/dongle/pkg/telemetry"
)

// Config is loaded from defaults, env vars, an optional YAML file and
// command line flags, the later the stronger.
type Config struct {
	// File is the YAML file to load, from -config or DONGLE_CONFIG.
	File string `yaml:"-"`

	Serial    SerialConfig    `yaml:"serial"`
	Websocket WebsocketConfig `yaml:"websocket"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Loop      LoopConfig      `yaml:"loop"`
	Client    ClientConfig    `yaml:"client"`
}

// SerialConfig selects the serial port.
type SerialConfig struct {
	// Port is a serial device, or a ws:// URL when the device is an
	// emulator listening on websocket.
	Port          string `yaml:"port"`
	Baud          int    `yaml:"baud"`
	ReadTimeoutMs int    `yaml:"read_timeout_ms"`
}

// WebsocketConfig is where the emulator accepts hosts.
type WebsocketConfig struct {
	Listen string `yaml:"listen"`
	Path   string `yaml:"path"`
}

// TelemetryConfig enables event publishing.
type TelemetryConfig struct {
	// MQTTURL e.g. mqtt://host:port/topic-prefix, empty disables.
	MQTTURL  string `yaml:"mqtt_url"`
	DeviceID string `yaml:"device_id"`
}

// LoopConfig tunes the main loop.
type LoopConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}

// ClientConfig tunes the host side.
type ClientConfig struct {
	TimeoutMs int `yaml:"timeout_ms"`
}

var defaultConfig = Config{
	Serial: SerialConfig{
		Baud:          hal.DefaultBaud,
		ReadTimeoutMs: 100,
	},
	Websocket: WebsocketConfig{
		Path: hal.DefaultWebsocketPath,
	},
	Loop: LoopConfig{
		IntervalMs: int(framework.DefaultInterval / time.Millisecond),
	},
	Client: ClientConfig{
		TimeoutMs: 3000,
	},
}

func init() {
	applyEnv(&defaultConfig, os.Getenv)
	defaultConfig.Telemetry.DeviceID = telemetry.DeviceID()
}

// Env var names.
const (
	EnvConfig  = "DONGLE_CONFIG"
	EnvPort    = "DONGLE_PORT"
	EnvMQTTURL = "DONGLE_MQTT_URL"
)

func applyEnv(conf *Config, getenv func(string) string) {
	if val := getenv(EnvConfig); val != "" {
		conf.File = val
	}
	if val := getenv(EnvPort); val != "" {
		conf.Serial.Port = val
	}
	if val := getenv(EnvMQTTURL); val != "" {
		conf.Telemetry.MQTTURL = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	conf := &defaultConfig
	flag.StringVar(&conf.File, "config", conf.File, "YAML config file")
	flag.StringVar(&conf.Serial.Port, "port", conf.Serial.Port, "Serial port or ws:// URL")
	flag.IntVar(&conf.Serial.Baud, "baud", conf.Serial.Baud, "Serial baud rate")
	flag.StringVar(&conf.Websocket.Listen, "listen", conf.Websocket.Listen, "Websocket listen address")
	flag.StringVar(&conf.Telemetry.MQTTURL, "mqtt", conf.Telemetry.MQTTURL, "MQTT broker URL")
	flag.StringVar(&conf.Telemetry.DeviceID, "id", conf.Telemetry.DeviceID, "Device ID")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// Resolve finishes the default config once flags are parsed: the
// file is loaded over it, then flags given explicitly are applied
// again so they win over the file. The result is validated.
func Resolve() (*Config, error) {
	conf := Default()
	if conf.File != "" {
		if err := LoadFile(conf.File, conf); err != nil {
			return nil, err
		}
		if err := flag.CommandLine.Parse(os.Args[1:]); err != nil {
			return nil, err
		}
	}
	if err := Validate(conf); err != nil {
		return nil, err
	}
	return conf, nil
}

// Load reads a config file over the defaults.
func Load(path string) (*Config, error) {
	conf := defaultConfig
	if err := LoadFile(path, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

// LoadFile reads a YAML file into conf. Keys absent from the file
// leave conf untouched.
func LoadFile(path string, conf *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Decode(f, conf)
}

// Decode reads YAML into conf, rejecting unknown keys.
func Decode(r io.Reader, conf *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(conf); err != nil && err != io.EOF {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// IsWebsocketURL tells if a port names a websocket endpoint.
func IsWebsocketURL(port string) bool {
	return strings.HasPrefix(port, "ws://") || strings.HasPrefix(port, "wss://")
}

// SerialPort gets settings for hal.OpenSerial.
func (c *Config) SerialPort() hal.SerialConfig {
	return hal.SerialConfig{
		Name:        c.Serial.Port,
		Baud:        c.Serial.Baud,
		ReadTimeout: time.Duration(c.Serial.ReadTimeoutMs) * time.Millisecond,
	}
}

// DescribePort renders the port settings for humans.
func (c *Config) DescribePort() string {
	if IsWebsocketURL(c.Serial.Port) {
		return "websocket " + c.Serial.Port
	}
	return c.SerialPort().Describe()
}

// OpenPort opens the configured port, serial or websocket.
func (c *Config) OpenPort() (io.ReadWriteCloser, error) {
	if c.Serial.Port == "" {
		return nil, ErrNoPort
	}
	if IsWebsocketURL(c.Serial.Port) {
		return hal.DialWebsocket(c.Serial.Port)
	}
	return hal.OpenSerial(c.SerialPort())
}

// LoopInterval is the main loop cadence.
func (c *Config) LoopInterval() time.Duration {
	return time.Duration(c.Loop.IntervalMs) * time.Millisecond
}

// ReplyTimeout bounds waiting for a reply on the host side.
func (c *Config) ReplyTimeout() time.Duration {
	return time.Duration(c.Client.TimeoutMs) * time.Millisecond
}
