package wire

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/robotalks/dongle/pkg/codes"
)

// Fixed responses.
const (
	RespOK    = "OK"
	RespSaved = "SAVED"
	RespBye   = "BYE"
	RespReady = "STM Ready"

	RespCodePrefix   = "CODE_"
	RespStatusPrefix = "STATUS:OK,CODES:"
	RespErrPrefix    = "ERR:"
)

// Device error codes, sent as ERR:<code>.
const (
	ErrCodeInvalidSlot   = "INVALID_SLOT"
	ErrCodeInvalidFormat = "INVALID_FORMAT"
	ErrCodeUnknownCmd    = "UNKNOWN_CMD"
)

// MaxResponseLength is the longest response line, excluding the
// trailing newline.
const MaxResponseLength = 79

// CodeResponse formats CODE_<n>:<value>.
func CodeResponse(n int, value string) string {
	return fmt.Sprintf("%s%d:%s", RespCodePrefix, n, value)
}

// StatusResponse formats STATUS:OK,CODES:<k>/3.
func StatusResponse(stored int) string {
	return fmt.Sprintf("%s%d/%d", RespStatusPrefix, stored, codes.Slots)
}

// ErrorResponse formats ERR:<code>.
func ErrorResponse(code string) string {
	return RespErrPrefix + code
}

// FrameResponse truncates a response and appends the newline.
func FrameResponse(msg string) []byte {
	if len(msg) > MaxResponseLength {
		msg = msg[:MaxResponseLength]
	}
	return []byte(msg + "\n")
}

// ResponseKind classifies a response line.
type ResponseKind int

// Response kinds.
const (
	RespUnknown ResponseKind = iota
	RespKindOK
	RespKindSaved
	RespKindBye
	RespKindReady
	RespKindCode
	RespKindStatus
	RespKindError
)

// String implements fmt.Stringer.
func (k ResponseKind) String() string {
	switch k {
	case RespKindOK:
		return "ok"
	case RespKindSaved:
		return "saved"
	case RespKindBye:
		return "bye"
	case RespKindReady:
		return "ready"
	case RespKindCode:
		return "code"
	case RespKindStatus:
		return "status"
	case RespKindError:
		return "error"
	}
	return "unknown"
}

// Response is a parsed response line.
type Response struct {
	Kind ResponseKind
	Line string
	// Slot is the one-based slot number of a CODE response.
	Slot int
	// Value is the code of a CODE response.
	Value string
	// Stored is the count reported by STATUS.
	Stored int
	// ErrCode is set for ERR responses.
	ErrCode string
}

// ResponseError is a device-reported error.
type ResponseError struct {
	Code string
}

// Error implements error.
func (e *ResponseError) Error() string {
	return "device error " + e.Code
}

// Err returns the device error carried by an ERR response, if any.
func (r Response) Err() error {
	if r.Kind == RespKindError {
		return &ResponseError{Code: r.ErrCode}
	}
	return nil
}

// ParseResponse classifies a response line. Surrounding whitespace
// (including CR) is ignored.
func ParseResponse(line string) (r Response) {
	line = strings.TrimSpace(line)
	r.Line = line
	switch {
	case line == RespOK:
		r.Kind = RespKindOK
	case line == RespSaved:
		r.Kind = RespKindSaved
	case line == RespBye:
		r.Kind = RespKindBye
	case line == RespReady:
		r.Kind = RespKindReady
	case strings.HasPrefix(line, RespErrPrefix):
		r.Kind, r.ErrCode = RespKindError, line[len(RespErrPrefix):]
	case strings.HasPrefix(line, RespStatusPrefix):
		rest := line[len(RespStatusPrefix):]
		pos := strings.IndexByte(rest, '/')
		if pos < 0 {
			return
		}
		n, err := strconv.Atoi(rest[:pos])
		if err != nil {
			return
		}
		r.Kind, r.Stored = RespKindStatus, n
	case strings.HasPrefix(line, RespCodePrefix):
		rest := line[len(RespCodePrefix):]
		pos := strings.IndexByte(rest, ValueSeparator)
		if pos < 0 {
			return
		}
		n, err := strconv.Atoi(rest[:pos])
		if err != nil {
			return
		}
		r.Kind, r.Slot, r.Value = RespKindCode, n, rest[pos+1:]
	}
	return
}

// Answers tells if a response is a plausible reply to the command.
// ERR answers anything, since each command has an error path.
func (r Response) Answers(kind CommandKind) bool {
	if r.Kind == RespKindError {
		return true
	}
	switch kind {
	case KindConnect:
		return r.Kind == RespKindOK
	case KindDisconnect:
		return r.Kind == RespKindBye
	case KindStatus:
		return r.Kind == RespKindStatus
	case KindGetCode:
		return r.Kind == RespKindCode
	case KindSetCode:
		return r.Kind == RespKindSaved
	}
	return false
}
