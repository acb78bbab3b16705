package uart

import "sync"

// Mailbox is the single-slot handoff between the receiver and the
// main loop. Holding lock is the critical section: neither side can
// observe the other half way through Put or Take.
type Mailbox struct {
	line     string
	ready    bool
	replaced int
	lock     sync.Mutex
}

// Put publishes a complete line. If an earlier line was never taken
// it is overwritten and Put returns true.
func (m *Mailbox) Put(line string) (replaced bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	replaced = m.ready
	if replaced {
		m.replaced++
	}
	m.line, m.ready = line, true
	return
}

// Take copies out and clears the pending line.
func (m *Mailbox) Take() (line string, ok bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if !m.ready {
		return "", false
	}
	line, ok = m.line, true
	m.line, m.ready = "", false
	return
}

// Ready reports whether a line is waiting.
func (m *Mailbox) Ready() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.ready
}

// Replaced counts lines overwritten before they were taken.
func (m *Mailbox) Replaced() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.replaced
}
