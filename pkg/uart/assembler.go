package uart

// Line buffer sizes. LineCapacity counts the terminator the firmware
// reserves, so a line carries at most MaxLineLength bytes.
const (
	LineCapacity  = 64
	MaxLineLength = LineCapacity - 1
)

// FeedState tells what one byte did to the line being assembled.
type FeedState int

const (
	// FeedAppended means the byte was added to the partial line.
	FeedAppended FeedState = iota
	// FeedLine means a delimiter completed a non-empty line.
	FeedLine
	// FeedIgnored means a delimiter arrived with nothing accumulated.
	FeedIgnored
	// FeedOverflow means the buffer was full and the partial line was dropped.
	FeedOverflow
)

// String implements fmt.Stringer.
func (s FeedState) String() string {
	switch s {
	case FeedAppended:
		return "appended"
	case FeedLine:
		return "line"
	case FeedIgnored:
		return "ignored"
	case FeedOverflow:
		return "overflow"
	}
	return "unknown"
}

// FeedResult is the outcome of one Feed step.
type FeedResult struct {
	State FeedState
	Line  string
}

// Assembler accumulates bytes into lines.
// It's not safe for concurrent use, only the producer calls Feed.
type Assembler struct {
	buf [MaxLineLength]byte
	n   int
}

// Len returns the number of bytes accumulated so far.
func (a *Assembler) Len() int {
	return a.n
}

// Reset drops any partial line.
func (a *Assembler) Reset() {
	a.n = 0
}

// Feed consumes one byte.
func (a *Assembler) Feed(b byte) (fr FeedResult) {
	switch {
	case b == '\r' || b == '\n':
		if a.n == 0 {
			fr.State = FeedIgnored
			return
		}
		fr.State, fr.Line = FeedLine, string(a.buf[:a.n])
		a.n = 0
	case a.n < MaxLineLength:
		a.buf[a.n] = b
		a.n++
		fr.State = FeedAppended
	default:
		a.n = 0
		fr.State = FeedOverflow
	}
	return
}
