package telemetry

import (
	"errors"
	"fmt"

	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"

	"github.com/robotalks/dongle/pkg/dongle"
)

// Field names of the encoded payloads.
const (
	FieldKind    = "kind"
	FieldMillis  = "millis"
	FieldLine    = "line"
	FieldMode    = "mode"
	FieldMask    = "mask"
	FieldRows    = "rows"
	FieldID      = "id"
	FieldVersion = "version"
	FieldSlots   = "slots"
)

// ErrNoKind is returned when a payload carries no event kind.
var ErrNoKind = errors.New("event kind missing")

// Meta describes a device, published retained to its meta topic.
type Meta struct {
	ID      string
	Version string
	Slots   int
}

func stringValue(s string) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: s}}
}

func numberValue(n float64) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: n}}
}

// EventStruct converts an event to a protobuf Struct. Only the fields
// meaningful for the kind are set.
func EventStruct(evt dongle.Event) *structpb.Struct {
	fields := map[string]*structpb.Value{
		FieldKind:   stringValue(string(evt.Kind)),
		FieldMillis: numberValue(float64(evt.Millis)),
	}
	switch evt.Kind {
	case dongle.EventCommand, dongle.EventResponse:
		fields[FieldLine] = stringValue(evt.Line)
	case dongle.EventBoot, dongle.EventLED:
		fields[FieldMode] = stringValue(evt.Mode)
		fields[FieldMask] = numberValue(float64(evt.Mask))
	case dongle.EventDisplay:
		fields[FieldRows] = &structpb.Value{Kind: &structpb.Value_ListValue{
			ListValue: &structpb.ListValue{Values: []*structpb.Value{
				stringValue(evt.Rows[0]),
				stringValue(evt.Rows[1]),
			}},
		}}
	}
	return &structpb.Struct{Fields: fields}
}

// Encode serializes an event.
func Encode(evt dongle.Event) ([]byte, error) {
	return proto.Marshal(EventStruct(evt))
}

// Decode parses an event encoded by Encode.
func Decode(payload []byte) (evt dongle.Event, err error) {
	var s structpb.Struct
	if err = proto.Unmarshal(payload, &s); err != nil {
		return evt, fmt.Errorf("decode event: %w", err)
	}
	fields := s.GetFields()
	evt.Kind = dongle.EventKind(fields[FieldKind].GetStringValue())
	if evt.Kind == "" {
		return evt, ErrNoKind
	}
	evt.Millis = uint32(fields[FieldMillis].GetNumberValue())
	evt.Line = fields[FieldLine].GetStringValue()
	evt.Mode = fields[FieldMode].GetStringValue()
	evt.Mask = uint8(fields[FieldMask].GetNumberValue())
	for i, v := range fields[FieldRows].GetListValue().GetValues() {
		if i < len(evt.Rows) {
			evt.Rows[i] = v.GetStringValue()
		}
	}
	return
}

// EncodeMeta serializes device meta.
func EncodeMeta(m Meta) ([]byte, error) {
	return proto.Marshal(&structpb.Struct{Fields: map[string]*structpb.Value{
		FieldID:      stringValue(m.ID),
		FieldVersion: stringValue(m.Version),
		FieldSlots:   numberValue(float64(m.Slots)),
	}})
}

// DecodeMeta parses device meta.
func DecodeMeta(payload []byte) (m Meta, err error) {
	var s structpb.Struct
	if err = proto.Unmarshal(payload, &s); err != nil {
		return m, fmt.Errorf("decode meta: %w", err)
	}
	fields := s.GetFields()
	m.ID = fields[FieldID].GetStringValue()
	m.Version = fields[FieldVersion].GetStringValue()
	m.Slots = int(fields[FieldSlots].GetNumberValue())
	return
}

// Describe renders an event as a single log line.
func Describe(evt dongle.Event) string {
	switch evt.Kind {
	case dongle.EventCommand:
		return fmt.Sprintf("%8d RX  %q", evt.Millis, evt.Line)
	case dongle.EventResponse:
		return fmt.Sprintf("%8d TX  %q", evt.Millis, evt.Line)
	case dongle.EventBoot, dongle.EventLED:
		return fmt.Sprintf("%8d %-4s%s %08b", evt.Millis, upper(evt.Kind), evt.Mode, evt.Mask)
	case dongle.EventDisplay:
		return fmt.Sprintf("%8d LCD |%-16s|%-16s|", evt.Millis, evt.Rows[0], evt.Rows[1])
	}
	return fmt.Sprintf("%8d %s", evt.Millis, evt.Kind)
}

func upper(kind dongle.EventKind) string {
	switch kind {
	case dongle.EventBoot:
		return "BOOT"
	case dongle.EventLED:
		return "LED"
	}
	return string(kind)
}
