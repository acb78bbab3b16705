// Package wire defines the dongle's text protocol: the command grammar the
// device accepts and the responses it sends back.
package wire

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robotalks/dongle/pkg/codes"
	"github.com/robotalks/dongle/pkg/uart"
)

// Command words.
const (
	CmdConnect    = "CONNECT"
	CmdDisconnect = "DISCONNECT"
	CmdStatus     = "STATUS"
	CmdGetPrefix  = "GET_CODE_"
	CmdSetPrefix  = "SET_CODE_"

	ValueSeparator = ':'
)

// CommandKind classifies a command line.
type CommandKind int

// Command kinds.
const (
	KindUnknown CommandKind = iota
	KindConnect
	KindDisconnect
	KindStatus
	KindGetCode
	KindSetCode
)

// String implements fmt.Stringer.
func (k CommandKind) String() string {
	switch k {
	case KindConnect:
		return "connect"
	case KindDisconnect:
		return "disconnect"
	case KindStatus:
		return "status"
	case KindGetCode:
		return "get-code"
	case KindSetCode:
		return "set-code"
	}
	return "unknown"
}

// Command is a parsed command line.
type Command struct {
	Kind CommandKind
	// Slot is the zero-based slot index for GET/SET, derived from the
	// byte after the prefix. It's out of range when that byte isn't
	// one of '1'..'3'.
	Slot int
	// Value is the text after the first separator for SET.
	Value string
	// HasValue tells if SET had a separator.
	HasValue bool
}

// Valid tells if GET/SET carry a usable slot (and value for SET).
// Other kinds are always valid.
func (c Command) Valid() bool {
	switch c.Kind {
	case KindGetCode:
		return codes.ValidSlot(c.Slot)
	case KindSetCode:
		return codes.ValidSlot(c.Slot) && c.HasValue
	}
	return true
}

// SlotNumber is the one-based slot number as used on the wire.
func (c Command) SlotNumber() int {
	return c.Slot + 1
}

// ParseCommand classifies a line. Word commands match exactly,
// GET/SET match by prefix. It never fails, unrecognized input is
// KindUnknown.
func ParseCommand(line string) (cmd Command) {
	switch {
	case line == CmdConnect:
		cmd.Kind = KindConnect
	case line == CmdDisconnect:
		cmd.Kind = KindDisconnect
	case line == CmdStatus:
		cmd.Kind = KindStatus
	case strings.HasPrefix(line, CmdGetPrefix):
		cmd.Kind = KindGetCode
		cmd.Slot = slotAt(line, len(CmdGetPrefix))
	case strings.HasPrefix(line, CmdSetPrefix):
		cmd.Kind = KindSetCode
		cmd.Slot = slotAt(line, len(CmdSetPrefix))
		if pos := strings.IndexByte(line, ValueSeparator); pos >= 0 {
			cmd.Value, cmd.HasValue = line[pos+1:], true
		}
	}
	return
}

// slotAt interprets the byte at pos as a slot digit. A missing byte
// reads as NUL, the way the firmware sees the string terminator.
func slotAt(line string, pos int) int {
	var b byte
	if pos < len(line) {
		b = line[pos]
	}
	return int(b) - '1'
}

// Request validation errors.
var (
	ErrSlotRange  = errors.New("code number must be 1, 2, or 3")
	ErrEmptyValue = errors.New("code value cannot be empty")
	ErrValueLine  = errors.New("code value cannot contain newline characters")
	ErrValueLong  = fmt.Errorf("code value is too long (max %d characters)", codes.MaxCodeLength)
	ErrLineLong   = fmt.Errorf("command is too long (max %d characters)", uart.MaxLineLength)
)

// GetCodeRequest builds GET_CODE_<n>.
func GetCodeRequest(n int) (string, error) {
	if !codes.ValidSlot(n - 1) {
		return "", ErrSlotRange
	}
	return fmt.Sprintf("%s%d", CmdGetPrefix, n), nil
}

// SetCodeRequest builds SET_CODE_<n>:<value>.
func SetCodeRequest(n int, value string) (string, error) {
	if !codes.ValidSlot(n - 1) {
		return "", ErrSlotRange
	}
	if err := ValidateValue(value); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d%c%s", CmdSetPrefix, n, ValueSeparator, value), nil
}

// ValidateValue checks a code value before it's sent. Values the
// device would truncate are rejected.
func ValidateValue(value string) error {
	switch {
	case value == "":
		return ErrEmptyValue
	case strings.ContainsAny(value, "\r\n"):
		return ErrValueLine
	case len(value) > codes.MaxCodeLength:
		return ErrValueLong
	}
	return nil
}

// ValidateLine checks that a raw line fits the device's line buffer
// and carries no delimiter.
func ValidateLine(line string) error {
	if strings.ContainsAny(line, "\r\n") {
		return ErrValueLine
	}
	if len(line) > uart.MaxLineLength {
		return ErrLineLong
	}
	return nil
}
