// Package hal defines the collaborators the dongle core talks to and
// provides host implementations of them.
package hal

import "io"

// Clock supplies a monotonic millisecond counter.
// The counter wraps at 2^32, use Elapsed to compare timestamps.
type Clock interface {
	Millis() uint32
}

// Delayer blocks the caller for a bounded number of milliseconds.
type Delayer interface {
	Delay(ms uint32)
}

// Display renders two lines of ASCII text.
// Text beyond DisplayColumns is silently dropped.
type Display interface {
	Clear()
	WriteLine(row int, text string)
}

// LEDBank drives the LED bank. Bit i controls LED i, bits beyond
// the bank width are ignored.
type LEDBank interface {
	Set(mask uint8)
}

// Transport is the serial byte transport. Write blocks until all
// bytes are sent.
type Transport interface {
	io.ReadWriter
}

// Display geometry.
const (
	RowOne         = 1
	RowTwo         = 2
	DisplayColumns = 16
)

// Elapsed computes now - last with wraparound.
func Elapsed(now, last uint32) uint32 {
	return now - last
}

// TruncateColumns cuts text to the display width.
func TruncateColumns(text string) string {
	if len(text) > DisplayColumns {
		return text[:DisplayColumns]
	}
	return text
}
