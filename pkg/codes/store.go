// Package codes holds the dongle's access codes in volatile memory.
package codes

import "errors"

// Store geometry.
const (
	Slots         = 3
	MaxCodeLength = 19
)

// ErrInvalidSlot indicates a slot index outside [0, Slots).
var ErrInvalidSlot = errors.New("invalid slot")

// Store is a fixed table of access codes. An empty string is an
// unset slot. The zero value is ready to use with all slots unset.
type Store struct {
	slots [Slots]string
}

// ValidSlot checks a zero-based slot index.
func ValidSlot(index int) bool {
	return index >= 0 && index < Slots
}

// Truncate cuts a value to MaxCodeLength bytes.
func Truncate(value string) string {
	if len(value) > MaxCodeLength {
		return value[:MaxCodeLength]
	}
	return value
}

// Get reads the slot.
func (s *Store) Get(index int) (string, error) {
	if !ValidSlot(index) {
		return "", ErrInvalidSlot
	}
	return s.slots[index], nil
}

// Set writes value, truncated to MaxCodeLength, into the slot.
func (s *Store) Set(index int, value string) error {
	if !ValidSlot(index) {
		return ErrInvalidSlot
	}
	s.slots[index] = Truncate(value)
	return nil
}

// Count returns the number of non-empty slots.
func (s *Store) Count() (n int) {
	for _, v := range s.slots {
		if v != "" {
			n++
		}
	}
	return
}

// Snapshot copies all slots.
func (s *Store) Snapshot() [Slots]string {
	return s.slots
}
