package led

import (
	"github.com/robotalks/dongle/pkg/hal"
)

// Timing in milliseconds.
const (
	BlinkInterval uint32 = 500
	IdleTimeout   uint32 = 3000
)

// Renderer is a polled state machine: Render once per loop iteration
// animates blinking, CheckTimeout returns Single modes to the idle mode.
type Renderer struct {
	Bank hal.LEDBank

	mode       Mode
	idle       Mode
	phase      bool
	lastToggle uint32
	mask       uint8
}

// NewRenderer creates a Renderer with all LEDs off and BlinkAll as
// the idle mode.
func NewRenderer(bank hal.LEDBank) *Renderer {
	return &Renderer{Bank: bank, mode: None, idle: BlinkAll}
}

// Mode returns the current mode.
func (r *Renderer) Mode() Mode {
	return r.mode
}

// SetMode switches the current mode, the bank follows on next Render.
func (r *Renderer) SetMode(m Mode) {
	r.mode = m
}

// IdleMode returns the mode a Single mode times out to.
func (r *Renderer) IdleMode() Mode {
	return r.idle
}

// SetIdleMode sets the mode a Single mode times out to.
func (r *Renderer) SetIdleMode(m Mode) {
	r.idle = m
}

// Phase is the blink phase, true when blinking LEDs are lit.
func (r *Renderer) Phase() bool {
	return r.phase
}

// Mask returns the mask last driven onto the bank.
func (r *Renderer) Mask() uint8 {
	return r.mask
}

// Drive writes a mask to the bank directly, bypassing the mode.
func (r *Renderer) Drive(mask uint8) {
	r.mask = mask
	if r.Bank != nil {
		r.Bank.Set(mask)
	}
}

// Render drives the bank for the current mode at time now.
// BlinkAll only writes the bank when the phase flips, BlinkOdd keeps
// the even lines off on every call.
func (r *Renderer) Render(now uint32) {
	switch r.mode.Kind {
	case KindAllOn:
		r.Drive(MaskAll)
	case KindBlinkAll:
		if r.toggle(now) {
			r.Drive(r.phaseMask(MaskAll))
		}
	case KindBlinkOdd:
		r.toggle(now)
		r.Drive(r.phaseMask(MaskOdd))
	case KindSingle:
		r.Drive(SingleMask(r.mode.Slot))
	default:
		r.Drive(MaskNone)
	}
}

// CheckTimeout leaves a Single mode for the idle mode once
// IdleTimeout has passed since lastCmd. It reports the transition.
func (r *Renderer) CheckTimeout(now, lastCmd uint32) bool {
	if r.mode.IsSingle() && hal.Elapsed(now, lastCmd) >= IdleTimeout {
		r.mode = r.idle
		return true
	}
	return false
}

func (r *Renderer) toggle(now uint32) bool {
	if hal.Elapsed(now, r.lastToggle) < BlinkInterval {
		return false
	}
	r.phase = !r.phase
	r.lastToggle = now
	return true
}

func (r *Renderer) phaseMask(lit uint8) uint8 {
	if r.phase {
		return lit
	}
	return MaskNone
}
