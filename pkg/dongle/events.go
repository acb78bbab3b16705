package dongle

import (
	"github.com/robotalks/dongle/pkg/framework"
)

// EventKind names what an Event reports.
type EventKind string

// Event kinds.
const (
	EventBoot     EventKind = "boot"
	EventCommand  EventKind = "command"
	EventResponse EventKind = "response"
	EventLED      EventKind = "led"
	EventDisplay  EventKind = "display"
)

// Event is an observable change of the device.
type Event struct {
	Kind   EventKind
	Millis uint32
	// Line is the command received or the response sent.
	Line string
	// Mode and Mask describe the LEDs for EventLED and EventBoot.
	Mode string
	Mask uint8
	// Rows is the display content for EventDisplay.
	Rows [2]string
}

// EventMsg carries an Event through the loop.
type EventMsg struct {
	Event
}

// NewMessage implements framework.Message.
func (m *EventMsg) NewMessage() framework.Message {
	return &EventMsg{}
}

// EventsFrom collects the events of the current iteration, optionally
// taking them out of the store.
func EventsFrom(store framework.MessageStore, take bool) (events []Event) {
	store.ProcessMessages(framework.ProcessMessageFunc(func(mctx framework.MessageProcessingContext) {
		if msg, ok := mctx.CurrentMessage().(*EventMsg); ok {
			events = append(events, msg.Event)
			if take {
				mctx.MessageTaken()
			}
		}
	}))
	return
}
