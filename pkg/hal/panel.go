package hal

import (
	"sync"

	"github.com/golang/glog"
)

// Panel is an in-memory 2x16 character display.
// Each change is logged so the emulator shows what the LCD would.
type Panel struct {
	Quiet bool

	rows [2]string
	lock sync.RWMutex
}

// Clear implements Display.
func (p *Panel) Clear() {
	p.lock.Lock()
	p.rows[0], p.rows[1] = "", ""
	p.lock.Unlock()
}

// WriteLine implements Display. Rows outside 1..2 are ignored.
func (p *Panel) WriteLine(row int, text string) {
	if row != RowOne && row != RowTwo {
		return
	}
	text = TruncateColumns(text)
	p.lock.Lock()
	p.rows[row-1] = text
	rows := p.rows
	p.lock.Unlock()
	if !p.Quiet {
		glog.Infof("LCD |%-16s|%-16s|", rows[0], rows[1])
	}
}

// Lines returns the current content of both rows.
func (p *Panel) Lines() [2]string {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.rows
}

// Bank is an in-memory 8-LED bank remembering the last mask.
type Bank struct {
	Quiet bool

	mask   uint8
	writes int
	lock   sync.RWMutex
}

// Set implements LEDBank.
func (b *Bank) Set(mask uint8) {
	b.lock.Lock()
	changed := b.mask != mask
	b.mask = mask
	b.writes++
	b.lock.Unlock()
	if changed && !b.Quiet {
		if glog.V(1) {
			glog.Infof("LED %08b", mask)
		}
	}
}

// Mask returns the last mask written.
func (b *Bank) Mask() uint8 {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.mask
}

// Writes returns how many times Set was called.
func (b *Bank) Writes() int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.writes
}

// LED reports whether LED i is lit.
func (b *Bank) LED(i int) bool {
	if i < 0 || i >= 8 {
		return false
	}
	return b.Mask()&(1<<uint(i)) != 0
}
