package main

import (
	"flag"
	"log"
	"os"

	"github.com/robotalks/dongle/pkg/telemetry"
)

var (
	mqttURL = "mqtt://localhost:1883/"
)

func init() {
	if val := os.Getenv("DONGLE_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := telemetry.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}

	q.Sub(telemetry.MetaPattern, telemetry.Handler(func(topic string, payload []byte) {
		id, _ := telemetry.DeviceIDFromTopic(topic)
		meta, err := telemetry.DecodeMeta(payload)
		if err != nil {
			log.Printf("%s: bad meta: %v", topic, err)
			return
		}
		log.Printf("[%s] online version=%s slots=%d", id, meta.Version, meta.Slots)
	}))
	q.Sub(telemetry.EventPattern, telemetry.Handler(func(topic string, payload []byte) {
		id, _ := telemetry.DeviceIDFromTopic(topic)
		evt, err := telemetry.Decode(payload)
		if err != nil {
			log.Printf("%s: bad event: %v", topic, err)
			return
		}
		log.Printf("[%s] %s", id, telemetry.Describe(evt))
	}))
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	<-(chan struct{})(nil)
}
