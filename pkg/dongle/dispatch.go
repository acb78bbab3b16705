package dongle

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/robotalks/dongle/pkg/led"
	"github.com/robotalks/dongle/pkg/wire"
)

// Display texts.
const (
	emptySlotText    = "Empty"
	displayCodeWidth = 10
)

// Dispatch executes one command line and returns the response sent.
// Every line, recognized or not, restarts the idle timer and clears
// the display first.
func (d *Device) Dispatch(line string) string {
	d.lastCmd = d.now()
	d.Display.Clear()
	d.record(Event{Kind: EventCommand, Line: line})

	cmd := wire.ParseCommand(line)
	glog.V(1).Infof("CMD %s %q", cmd.Kind, line)
	var resp string
	switch cmd.Kind {
	case wire.KindConnect:
		resp = d.connect()
	case wire.KindGetCode:
		resp = d.getCode(cmd)
	case wire.KindSetCode:
		resp = d.setCode(cmd)
	case wire.KindDisconnect:
		resp = d.disconnect()
	case wire.KindStatus:
		resp = d.status()
	default:
		resp = wire.ErrorResponse(wire.ErrCodeUnknownCmd)
		d.send(resp)
		d.show("CMD ERR", "Unknown Command")
		d.LEDs.SetMode(led.BlinkOdd)
	}
	d.noteLEDs()
	return resp
}

func (d *Device) connect() string {
	d.send(wire.RespOK)
	d.show("Connected", "UART OK")
	d.LEDs.SetIdleMode(led.BlinkAll)
	d.LEDs.SetMode(led.AllOn)
	d.LEDs.Render(d.now())
	d.noteLEDs()
	d.delay(FlashDuration)
	d.LEDs.SetMode(d.LEDs.IdleMode())
	return wire.RespOK
}

func (d *Device) getCode(cmd wire.Command) string {
	if !cmd.Valid() {
		resp := wire.ErrorResponse(wire.ErrCodeInvalidSlot)
		d.send(resp)
		d.show("ERROR", "Invalid Slot")
		return resp
	}
	value, _ := d.Codes.Get(cmd.Slot)
	resp := wire.CodeResponse(cmd.SlotNumber(), value)
	d.send(resp)
	shown := value
	if shown == "" {
		shown = emptySlotText
	} else if len(shown) > displayCodeWidth {
		shown = shown[:displayCodeWidth]
	}
	d.show("GET CODE", fmt.Sprintf("Slot %d: %s", cmd.SlotNumber(), shown))
	// GET lights the LED after the slot index, SET the one at it.
	d.LEDs.SetMode(led.Single(cmd.Slot + 1))
	return resp
}

func (d *Device) setCode(cmd wire.Command) string {
	if !cmd.Valid() {
		resp := wire.ErrorResponse(wire.ErrCodeInvalidFormat)
		d.send(resp)
		d.show("ERROR", "Bad Format")
		return resp
	}
	d.Codes.Set(cmd.Slot, cmd.Value)
	d.send(wire.RespSaved)
	d.show("SET CODE", fmt.Sprintf("Slot %d Saved", cmd.SlotNumber()))
	d.LEDs.SetMode(led.Single(cmd.Slot))
	return wire.RespSaved
}

func (d *Device) disconnect() string {
	d.send(wire.RespBye)
	d.show("Disconnected", "Bye")
	d.LEDs.Drive(led.MaskAll)
	d.noteLEDs()
	d.delay(FlashDuration)
	d.LEDs.Drive(led.MaskNone)
	d.LEDs.SetMode(led.None)
	d.LEDs.SetIdleMode(led.None)
	return wire.RespBye
}

func (d *Device) status() string {
	stored := d.Codes.Count()
	resp := wire.StatusResponse(stored)
	d.send(resp)
	d.show("Status Check", fmt.Sprintf("%d codes stored", stored))
	return resp
}
