// Package led renders the dongle's status modes onto the 8-LED bank.
package led

import "fmt"

// Bank masks.
const (
	Width    = 8
	MaskNone uint8 = 0x00
	MaskAll  uint8 = 0xff
	MaskOdd  uint8 = 0xaa
)

// Kind selects how the bank is driven.
type Kind int

// Mode kinds.
const (
	KindNone Kind = iota
	KindAllOn
	KindBlinkAll
	KindBlinkOdd
	KindSingle
)

// Mode is a rendering mode. Slot is only meaningful for KindSingle.
type Mode struct {
	Kind Kind
	Slot int
}

// Predefined modes.
var (
	None     = Mode{Kind: KindNone}
	AllOn    = Mode{Kind: KindAllOn}
	BlinkAll = Mode{Kind: KindBlinkAll}
	BlinkOdd = Mode{Kind: KindBlinkOdd}
)

// Single lights one LED.
func Single(slot int) Mode {
	return Mode{Kind: KindSingle, Slot: slot}
}

// IsSingle tells if the mode is a Single mode.
func (m Mode) IsSingle() bool {
	return m.Kind == KindSingle
}

// SingleMask is the mask for a Single slot, all-off if out of range.
func SingleMask(slot int) uint8 {
	if slot < 0 || slot >= Width {
		return MaskNone
	}
	return 1 << uint(slot)
}

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m.Kind {
	case KindNone:
		return "none"
	case KindAllOn:
		return "all-on"
	case KindBlinkAll:
		return "blink-all"
	case KindBlinkOdd:
		return "blink-odd"
	case KindSingle:
		return fmt.Sprintf("single(%d)", m.Slot)
	}
	return fmt.Sprintf("kind(%d)", int(m.Kind))
}
