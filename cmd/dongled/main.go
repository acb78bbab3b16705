package main

import (
	"context"
	"flag"
	"io"

	"github.com/golang/glog"

	"github.com/robotalks/dongle/pkg/codes"
	"github.com/robotalks/dongle/pkg/config"
	"github.com/robotalks/dongle/pkg/dongle"
	"github.com/robotalks/dongle/pkg/framework"
	"github.com/robotalks/dongle/pkg/hal"
	"github.com/robotalks/dongle/pkg/telemetry"
)

var version = "dev"

func init() {
	config.SetupFlags()
}

// serveWebsocket bridges websocket hosts to the device UART. The
// latest connection gets the device output.
func serveWebsocket(conf *config.Config, in *io.PipeWriter, out *hal.Port) framework.Runnable {
	return framework.NamedRun("websocket", framework.RunFunc(func(ctx context.Context) error {
		glog.Infof("listening on %s%s", conf.Websocket.Listen, conf.Websocket.Path)
		return hal.ServeWebsocket(ctx, conf.Websocket.Listen, conf.Websocket.Path, func(conn io.ReadWriteCloser) {
			out.Attach(conn)
			defer out.Detach(conn)
			if _, err := io.Copy(in, conn); err != nil {
				glog.V(1).Infof("websocket read: %v", err)
			}
		})
	}))
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf, err := config.Resolve()
	if err != nil {
		glog.Fatal(err)
	}
	if err := config.ValidateDevice(conf); err != nil {
		glog.Fatal(err)
	}

	clock := hal.NewSystemClock()
	periph := dongle.Peripherals{
		Clock:   clock,
		Display: &hal.Panel{},
		Bank:    &hal.Bank{},
	}
	var runnables []framework.Runnable
	if conf.Serial.Port != "" {
		port, err := hal.OpenSerial(conf.SerialPort())
		if err != nil {
			glog.Fatalf("open %s: %v", conf.Serial.Port, err)
		}
		defer port.Close()
		glog.Infof("serial %s at %d baud", conf.Serial.Port, conf.Serial.Baud)
		periph.In, periph.Out = port, port
	} else {
		pr, pw := io.Pipe()
		out := &hal.Port{}
		periph.In, periph.Out = pr, out
		runnables = append(runnables, serveWebsocket(conf, pw, out))
	}

	dev := dongle.NewDevice(periph)
	loop := framework.NewLoop(clock).Add(dev)
	loop.Interval = conf.LoopInterval()
	loop.AddRunnable(runnables...)

	if conf.Telemetry.MQTTURL != "" {
		q, err := telemetry.NewQueueFromURL(conf.Telemetry.MQTTURL)
		if err != nil {
			glog.Fatalf("mqtt: %v", err)
		}
		reporter := &telemetry.Reporter{
			Sink: q,
			Meta: telemetry.Meta{ID: conf.Telemetry.DeviceID, Version: version, Slots: codes.Slots},
		}
		q.OnConnect = func(*telemetry.Queue) { reporter.Announce() }
		if token := q.Connect(); token.Wait() && token.Error() != nil {
			glog.Warningf("mqtt connect %s, running without telemetry: %v", conf.Telemetry.MQTTURL, token.Error())
		} else {
			defer q.Close()
			loop.Add(reporter)
			glog.Infof("telemetry as %s on %s", conf.Telemetry.DeviceID, conf.Telemetry.MQTTURL)
		}
	}

	dev.Boot()
	if err := framework.NewRunner().HandleSignals().Go(loop).Wait(); err != nil {
		glog.Error(err)
	}
}
