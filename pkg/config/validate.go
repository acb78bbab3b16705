package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNoPort is returned when a port is required but not configured.
var ErrNoPort = errors.New("no port configured, use -port or " + EnvPort)

var mqttSchemes = map[string]bool{
	"":     true,
	"mqtt": true,
	"tcp":  true,
	"ssl":  true,
	"tls":  true,
	"ws":   true,
	"wss":  true,
}

// Validate checks the config without changing it.
func Validate(conf *Config) error {
	if conf.Serial.Baud <= 0 {
		return fmt.Errorf("serial: baud must be positive, got %d", conf.Serial.Baud)
	}
	if conf.Serial.ReadTimeoutMs < 0 {
		return fmt.Errorf("serial: read_timeout_ms must not be negative")
	}
	if p := conf.Serial.Port; IsWebsocketURL(p) {
		if _, err := url.Parse(p); err != nil {
			return fmt.Errorf("serial: port %q: %w", p, err)
		}
	}
	if !strings.HasPrefix(conf.Websocket.Path, "/") {
		return fmt.Errorf("websocket: path %q must start with /", conf.Websocket.Path)
	}
	if u := conf.Telemetry.MQTTURL; u != "" {
		parsed, err := url.Parse(u)
		if err != nil {
			return fmt.Errorf("telemetry: mqtt_url %q: %w", u, err)
		}
		if !mqttSchemes[parsed.Scheme] {
			return fmt.Errorf("telemetry: mqtt_url %q: unsupported scheme %q", u, parsed.Scheme)
		}
		if parsed.Host == "" {
			return fmt.Errorf("telemetry: mqtt_url %q: missing host", u)
		}
	}
	if id := conf.Telemetry.DeviceID; id == "" || strings.ContainsAny(id, "/+#") {
		return fmt.Errorf("telemetry: device_id %q must be non-empty without / + #", id)
	}
	if i := conf.Loop.IntervalMs; i < 1 || i > 1000 {
		return fmt.Errorf("loop: interval_ms must be within 1..1000, got %d", i)
	}
	if conf.Client.TimeoutMs <= 0 {
		return fmt.Errorf("client: timeout_ms must be positive, got %d", conf.Client.TimeoutMs)
	}
	return nil
}

// ValidateDevice additionally checks the emulator has exactly one
// place to talk to hosts.
func ValidateDevice(conf *Config) error {
	if err := Validate(conf); err != nil {
		return err
	}
	hasPort, hasListen := conf.Serial.Port != "", conf.Websocket.Listen != ""
	switch {
	case hasPort && hasListen:
		return errors.New("use either -port or -listen, not both")
	case !hasPort && !hasListen:
		return errors.New("either -port or -listen is required")
	case hasPort && IsWebsocketURL(conf.Serial.Port):
		return errors.New("the emulator listens on websocket with -listen, -port must be a serial device")
	}
	return nil
}
