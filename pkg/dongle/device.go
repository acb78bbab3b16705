// Package dongle is the device core: it ties the line mailbox, the code
// store, the LED renderer and the display together and answers commands.
package dongle

import (
	"context"
	"io"

	"github.com/golang/glog"

	"github.com/robotalks/dongle/pkg/codes"
	"github.com/robotalks/dongle/pkg/framework"
	"github.com/robotalks/dongle/pkg/hal"
	"github.com/robotalks/dongle/pkg/led"
	"github.com/robotalks/dongle/pkg/uart"
	"github.com/robotalks/dongle/pkg/wire"
)

// FlashDuration is how long CONNECT, DISCONNECT and boot keep all
// LEDs lit, in milliseconds. The loop is blocked meanwhile.
const FlashDuration uint32 = 1000

// Boot banner.
const (
	BannerTitle  = "STM DONGLE LOCK"
	BannerStatus = "Ready..."
)

// Peripherals are the collaborators of a Device.
type Peripherals struct {
	Clock hal.Clock
	// Delayer defaults to Clock if it implements hal.Delayer.
	Delayer hal.Delayer
	// In is read by the receiver added with AddToLoop, may be nil.
	In      io.Reader
	Out     io.Writer
	Display hal.Display
	Bank    hal.LEDBank
}

// Device is the device state aggregate. Its methods must be called
// from the loop only, the Mailbox is the sole part shared with the
// receiver.
type Device struct {
	Peripherals

	Codes   codes.Store
	LEDs    *led.Renderer
	Mailbox *uart.Mailbox

	lastCmd  uint32
	replaced int
	ledMode  led.Mode
	ledMask  uint8
	events   []Event
}

// NewDevice creates a Device in its power-on state.
func NewDevice(p Peripherals) *Device {
	if p.Delayer == nil {
		if d, ok := p.Clock.(hal.Delayer); ok {
			p.Delayer = d
		}
	}
	if p.Out == nil {
		p.Out = io.Discard
	}
	if p.Display == nil {
		p.Display = &hal.Panel{Quiet: true}
	}
	d := &Device{
		Peripherals: p,
		LEDs:        led.NewRenderer(p.Bank),
		Mailbox:     &uart.Mailbox{},
	}
	d.ledMode = d.LEDs.Mode()
	return d
}

// LastCommandMillis is when the last command was dispatched.
func (d *Device) LastCommandMillis() uint32 {
	return d.lastCmd
}

// Boot runs the power-on sequence: banner, all LEDs on for
// FlashDuration, then the ready announcement. The LEDs stay on until
// the first command changes the mode.
func (d *Device) Boot() {
	d.Display.Clear()
	d.show(BannerTitle, BannerStatus)
	d.LEDs.SetMode(led.AllOn)
	d.LEDs.Drive(led.MaskAll)
	d.record(Event{Kind: EventBoot, Mode: d.LEDs.Mode().String(), Mask: d.LEDs.Mask()})
	d.noteLEDs()
	d.delay(FlashDuration)
	d.send(wire.RespReady)
}

// Poll is one iteration of the main loop: dispatch a pending line if
// any, render LEDs and apply the idle timeout. It returns the events
// since the previous Poll.
func (d *Device) Poll() []Event {
	if line, ok := d.Mailbox.Take(); ok {
		d.Dispatch(line)
	}
	if n := d.Mailbox.Replaced(); n != d.replaced {
		glog.Warningf("%d line(s) dropped while busy", n-d.replaced)
		d.replaced = n
	}
	now := d.now()
	d.LEDs.Render(now)
	d.noteLEDs()
	if d.LEDs.CheckTimeout(now, d.lastCmd) {
		glog.V(1).Infof("LED idle timeout, back to %s", d.LEDs.Mode())
		d.noteLEDs()
	}
	return d.takeEvents()
}

// AddToLoop implements framework.LoopAdder. The device polls at
// control priority and posts its events for later controllers. With
// Peripherals.In set a receiver feeding the mailbox runs along with
// the loop and wakes it up on each complete line.
func (d *Device) AddToLoop(l *framework.Loop) {
	l.AddController(framework.PrLvControl, framework.ControlFunc(func(cc framework.ControlContext) error {
		for _, evt := range d.Poll() {
			cc.Messages().AddMessages(&EventMsg{Event: evt})
		}
		return nil
	}))
	if d.In != nil {
		rcv := uart.NewReceiver(d.In, d.Mailbox)
		rcv.Notifier = uart.LineReadyFunc(func(context.Context) { l.TriggerNext() })
		l.AddRunnable(framework.NamedRun("receiver", rcv))
	}
}

func (d *Device) now() uint32 {
	if d.Clock == nil {
		return 0
	}
	return d.Clock.Millis()
}

func (d *Device) delay(ms uint32) {
	if d.Delayer != nil {
		d.Delayer.Delay(ms)
	}
}

func (d *Device) send(msg string) {
	if _, err := d.Out.Write(wire.FrameResponse(msg)); err != nil {
		glog.Warningf("TX %q failed: %v", msg, err)
		return
	}
	glog.V(2).Infof("TX %q", msg)
	d.record(Event{Kind: EventResponse, Line: msg})
}

func (d *Device) show(label, detail string) {
	label, detail = hal.TruncateColumns(label), hal.TruncateColumns(detail)
	d.Display.WriteLine(hal.RowOne, label)
	d.Display.WriteLine(hal.RowTwo, detail)
	d.record(Event{Kind: EventDisplay, Rows: [2]string{label, detail}})
}

// noteLEDs records an EventLED when the mode or the mask changed
// since the last note.
func (d *Device) noteLEDs() {
	mode, mask := d.LEDs.Mode(), d.LEDs.Mask()
	if mode == d.ledMode && mask == d.ledMask {
		return
	}
	d.ledMode, d.ledMask = mode, mask
	d.record(Event{Kind: EventLED, Mode: mode.String(), Mask: mask})
}

func (d *Device) record(evt Event) {
	evt.Millis = d.now()
	d.events = append(d.events, evt)
}

func (d *Device) takeEvents() []Event {
	events := d.events
	d.events = nil
	return events
}
