package sh

import (
	"errors"
	"sync"

	"golang.design/x/clipboard"
)

// ErrNoClipboard is returned when the system clipboard is unusable,
// e.g. without a display server.
var ErrNoClipboard = errors.New("clipboard unavailable")

// Clipboard receives retrieved codes.
type Clipboard interface {
	Copy(text string) error
	Clear() error
}

// SystemClipboard is the desktop clipboard, initialized on first use.
type SystemClipboard struct {
	once sync.Once
	ok   bool
}

func (c *SystemClipboard) init() bool {
	c.once.Do(func() {
		c.ok = clipboard.Init() == nil
	})
	return c.ok
}

// Copy implements Clipboard.
func (c *SystemClipboard) Copy(text string) error {
	if !c.init() {
		return ErrNoClipboard
	}
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

// Clear implements Clipboard.
func (c *SystemClipboard) Clear() error {
	if !c.init() {
		return ErrNoClipboard
	}
	clipboard.Write(clipboard.FmtText, []byte{})
	return nil
}
