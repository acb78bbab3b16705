package hal

import (
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// DefaultBaud is the serial speed the firmware uses.
const DefaultBaud = 115200

// SerialConfig describes an 8N1 serial line.
type SerialConfig struct {
	Name        string
	Baud        int
	ReadTimeout time.Duration
}

// OpenSerial opens the serial line with 8 data bits, no parity and
// one stop bit.
func OpenSerial(conf SerialConfig) (io.ReadWriteCloser, error) {
	baud := conf.Baud
	if baud == 0 {
		baud = DefaultBaud
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        conf.Name,
		Baud:        baud,
		ReadTimeout: conf.ReadTimeout,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial %q: %w", conf.Name, err)
	}
	return port, nil
}

// Describe formats the line settings for display.
func (c SerialConfig) Describe() string {
	baud := c.Baud
	if baud == 0 {
		baud = DefaultBaud
	}
	timeout := "OFF"
	if c.ReadTimeout > 0 {
		timeout = c.ReadTimeout.String()
	}
	return fmt.Sprintf("Port: %s\nBaud: %d\nParity: None\nData Bits: 8\nStop Bits: 1\nTimeout: %s",
		c.Name, baud, timeout)
}
