package telemetry

import (
	"strings"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"

	"github.com/robotalks/dongle/pkg/dongle"
	"github.com/robotalks/dongle/pkg/framework"
)

// Topic layout: dongle/<id>/event and dongle/<id>/meta.
const (
	TopicRoot  = "dongle"
	TopicEvent = "event"
	TopicMeta  = "meta"

	// EventPattern and MetaPattern subscribe all devices.
	EventPattern = TopicRoot + "/+/" + TopicEvent
	MetaPattern  = TopicRoot + "/+/" + TopicMeta
)

// DefaultDeviceID is used when the machine has no readable ID.
const DefaultDeviceID = "dongle"

const deviceIDLength = 12

// EventTopic is the topic a device publishes events to.
func EventTopic(id string) string {
	return TopicRoot + "/" + id + "/" + TopicEvent
}

// MetaTopic is the topic a device announces itself on.
func MetaTopic(id string) string {
	return TopicRoot + "/" + id + "/" + TopicMeta
}

// DeviceIDFromTopic extracts <id> from dongle/<id>/....
func DeviceIDFromTopic(topic string) (string, bool) {
	items := strings.Split(topic, "/")
	if len(items) != 3 || items[0] != TopicRoot || items[1] == "" {
		return "", false
	}
	return items[1], true
}

// DeviceID derives a short stable ID from the machine ID.
func DeviceID() string {
	id, err := machineid.ProtectedID(TopicRoot)
	if err != nil {
		glog.Warningf("machine ID unavailable, using %q: %v", DefaultDeviceID, err)
		return DefaultDeviceID
	}
	if len(id) > deviceIDLength {
		id = id[:deviceIDLength]
	}
	return id
}

// Reporter publishes the device events of each loop iteration. It
// runs at post-processing priority so it sees everything posted
// earlier in the iteration. Events are left in the store.
type Reporter struct {
	Sink Sink
	Meta Meta
}

// AddToLoop implements framework.LoopAdder.
func (r *Reporter) AddToLoop(l *framework.Loop) {
	l.AddController(framework.PrLvPostProc, r)
}

// Control implements framework.Controller. Failures are logged, the
// device keeps running without telemetry.
func (r *Reporter) Control(cc framework.ControlContext) error {
	topic := EventTopic(r.Meta.ID)
	for _, evt := range dongle.EventsFrom(cc.Messages(), false) {
		payload, err := Encode(evt)
		if err != nil {
			glog.Errorf("encode %s event: %v", evt.Kind, err)
			continue
		}
		if token := r.Sink.PubWith(topic, payload, 0, false); token.Error() != nil {
			glog.Warningf("publish %s event: %v", evt.Kind, token.Error())
		}
	}
	return nil
}

// Announce publishes the retained meta message.
func (r *Reporter) Announce() {
	payload, err := EncodeMeta(r.Meta)
	if err != nil {
		glog.Errorf("encode meta: %v", err)
		return
	}
	if token := r.Sink.PubWith(MetaTopic(r.Meta.ID), payload, 1, true); token.Error() != nil {
		glog.Warningf("publish meta: %v", token.Error())
	}
}
