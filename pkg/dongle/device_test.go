package dongle

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/dongle/pkg/codes"
	"github.com/robotalks/dongle/pkg/framework"
	"github.com/robotalks/dongle/pkg/hal"
	"github.com/robotalks/dongle/pkg/led"
	"github.com/robotalks/dongle/pkg/uart"
)

type deviceTestEnv struct {
	t     *testing.T
	clock *hal.ManualClock
	out   bytes.Buffer
	panel hal.Panel
	bank  hal.Bank
	dev   *Device
}

func newDeviceTestEnv(t *testing.T) *deviceTestEnv {
	env := &deviceTestEnv{
		t:     t,
		clock: hal.NewManualClock(100),
		panel: hal.Panel{Quiet: true},
		bank:  hal.Bank{Quiet: true},
	}
	env.dev = NewDevice(Peripherals{
		Clock:   env.clock,
		Out:     &env.out,
		Display: &env.panel,
		Bank:    &env.bank,
	})
	return env
}

// exec dispatches a line and checks the framed response on the wire.
func (e *deviceTestEnv) exec(line, expected string) {
	e.t.Helper()
	e.out.Reset()
	resp := e.dev.Dispatch(line)
	require.Equal(e.t, expected, resp)
	require.Equal(e.t, expected+"\n", e.out.String())
}

func (e *deviceTestEnv) requireMode(m led.Mode) {
	e.t.Helper()
	require.Equal(e.t, m, e.dev.LEDs.Mode())
}

func (e *deviceTestEnv) requireRows(row1, row2 string) {
	e.t.Helper()
	require.Equal(e.t, [2]string{row1, row2}, e.panel.Lines())
}

func TestBoot(t *testing.T) {
	env := newDeviceTestEnv(t)
	env.dev.Boot()
	require.Equal(t, "STM Ready\n", env.out.String())
	require.EqualValues(t, 1100, env.clock.Millis())
	env.requireRows(BannerTitle, BannerStatus)
	env.requireMode(led.AllOn)
	require.Equal(t, led.BlinkAll, env.dev.LEDs.IdleMode())
	require.EqualValues(t, led.MaskAll, env.bank.Mask())

	// all on until the first command.
	env.clock.Advance(10000)
	env.dev.Poll()
	env.requireMode(led.AllOn)
	require.EqualValues(t, led.MaskAll, env.bank.Mask())
}

type flashProbe struct {
	clock *hal.ManualClock
	bank  *hal.Bank
	out   *bytes.Buffer
	masks []uint8
	sent  []string
}

func (p *flashProbe) Delay(ms uint32) {
	p.masks = append(p.masks, p.bank.Mask())
	p.sent = append(p.sent, p.out.String())
	p.clock.Advance(ms)
}

func TestConnectFlash(t *testing.T) {
	env := newDeviceTestEnv(t)
	probe := &flashProbe{clock: env.clock, bank: &env.bank, out: &env.out}
	env.dev.Delayer = probe
	env.exec("CONNECT", "OK")
	require.Equal(t, []uint8{led.MaskAll}, probe.masks)
	require.Equal(t, []string{"OK\n"}, probe.sent)
	require.EqualValues(t, 1100, env.clock.Millis())
	require.EqualValues(t, 100, env.dev.LastCommandMillis())
	env.requireRows("Connected", "UART OK")
	env.requireMode(led.BlinkAll)
	require.Equal(t, led.BlinkAll, env.dev.LEDs.IdleMode())
}

func TestDisconnectFlash(t *testing.T) {
	env := newDeviceTestEnv(t)
	probe := &flashProbe{clock: env.clock, bank: &env.bank, out: &env.out}
	env.dev.Delayer = probe
	env.exec("CONNECT", "OK")
	probe.masks, probe.sent = nil, nil
	env.exec("DISCONNECT", "BYE")
	require.Equal(t, []uint8{led.MaskAll}, probe.masks)
	require.Equal(t, []string{"BYE\n"}, probe.sent)
	require.EqualValues(t, led.MaskNone, env.bank.Mask())
	env.requireRows("Disconnected", "Bye")
	env.requireMode(led.None)
	require.Equal(t, led.None, env.dev.LEDs.IdleMode())

	env.clock.Advance(5000)
	env.dev.Poll()
	require.EqualValues(t, led.MaskNone, env.bank.Mask())
}

func TestScenario(t *testing.T) {
	env := newDeviceTestEnv(t)
	env.exec("CONNECT", "OK")
	env.requireMode(led.BlinkAll)
	env.exec("SET_CODE_2:hunter2", "SAVED")
	env.requireRows("SET CODE", "Slot 2 Saved")
	env.exec("GET_CODE_2", "CODE_2:hunter2")
	env.requireRows("GET CODE", "Slot 2: hunter2")
	env.exec("FOO", "ERR:UNKNOWN_CMD")
	env.requireRows("CMD ERR", "Unknown Command")
	env.requireMode(led.BlinkOdd)
	env.exec("DISCONNECT", "BYE")
	env.requireMode(led.None)
}

func TestSetGetRoundTrip(t *testing.T) {
	values := []string{
		"a",
		"hunter2",
		"with space & symbols!",
		"exactly-nineteen-ch",
		"this value is longer than nineteen characters",
		"ab:cd",
		"~`!@#$%^&*()_+-={}[]",
	}
	for n := 1; n <= codes.Slots; n++ {
		for _, v := range values {
			t.Run(fmt.Sprintf("%d-%s", n, v), func(t *testing.T) {
				env := newDeviceTestEnv(t)
				env.exec(fmt.Sprintf("SET_CODE_%d:%s", n, v), "SAVED")
				expected := v
				if len(expected) > codes.MaxCodeLength {
					expected = expected[:codes.MaxCodeLength]
				}
				env.exec(fmt.Sprintf("GET_CODE_%d", n), fmt.Sprintf("CODE_%d:%s", n, expected))
			})
		}
	}
}

func TestSetValueAfterFirstSeparator(t *testing.T) {
	env := newDeviceTestEnv(t)
	env.exec("SET_CODE_1:abc:def", "SAVED")
	env.exec("GET_CODE_1", "CODE_1:abc:def")
	// only the digit right after the prefix counts.
	env.exec("SET_CODE_2x:val", "SAVED")
	env.exec("GET_CODE_2", "CODE_2:val")
	env.exec("SET_CODE_3:", "SAVED")
	env.exec("GET_CODE_3", "CODE_3:")
	env.requireRows("GET CODE", "Slot 3: Empty")
}

func TestInvalidSlots(t *testing.T) {
	testCases := []struct {
		line string
		resp string
		rows [2]string
	}{
		{"GET_CODE_0", "ERR:INVALID_SLOT", [2]string{"ERROR", "Invalid Slot"}},
		{"GET_CODE_4", "ERR:INVALID_SLOT", [2]string{"ERROR", "Invalid Slot"}},
		{"GET_CODE_", "ERR:INVALID_SLOT", [2]string{"ERROR", "Invalid Slot"}},
		{"GET_CODE_a", "ERR:INVALID_SLOT", [2]string{"ERROR", "Invalid Slot"}},
		{"SET_CODE_0:x", "ERR:INVALID_FORMAT", [2]string{"ERROR", "Bad Format"}},
		{"SET_CODE_4:x", "ERR:INVALID_FORMAT", [2]string{"ERROR", "Bad Format"}},
		{"SET_CODE_:1", "ERR:INVALID_FORMAT", [2]string{"ERROR", "Bad Format"}},
		{"SET_CODE_1", "ERR:INVALID_FORMAT", [2]string{"ERROR", "Bad Format"}},
		{"SET_CODE_", "ERR:INVALID_FORMAT", [2]string{"ERROR", "Bad Format"}},
	}
	for _, tc := range testCases {
		t.Run(tc.line, func(t *testing.T) {
			env := newDeviceTestEnv(t)
			env.exec("SET_CODE_1:keep", "SAVED")
			before := env.dev.Codes.Snapshot()
			mode := env.dev.LEDs.Mode()
			env.exec(tc.line, tc.resp)
			require.Equal(t, tc.rows, env.panel.Lines())
			require.Equal(t, before, env.dev.Codes.Snapshot())
			env.requireMode(mode)
		})
	}
}

func TestStatusCount(t *testing.T) {
	for combo := 0; combo < 1<<codes.Slots; combo++ {
		t.Run(fmt.Sprintf("%03b", combo), func(t *testing.T) {
			env := newDeviceTestEnv(t)
			stored := 0
			for i := 0; i < codes.Slots; i++ {
				if combo&(1<<uint(i)) != 0 {
					env.exec(fmt.Sprintf("SET_CODE_%d:v%d", i+1, i), "SAVED")
					stored++
				}
			}
			mode := env.dev.LEDs.Mode()
			env.exec("STATUS", fmt.Sprintf("STATUS:OK,CODES:%d/3", stored))
			env.requireRows("Status Check", fmt.Sprintf("%d codes stored", stored))
			env.requireMode(mode)
		})
	}
}

func TestGetCodeDisplay(t *testing.T) {
	env := newDeviceTestEnv(t)
	env.exec("GET_CODE_1", "CODE_1:")
	env.requireRows("GET CODE", "Slot 1: Empty")
	env.exec("SET_CODE_1:abcdefghijklmnop", "SAVED")
	env.exec("GET_CODE_1", "CODE_1:abcdefghijklmnop")
	env.requireRows("GET CODE", "Slot 1: abcdefgh")
}

func TestSingleLEDIndex(t *testing.T) {
	env := newDeviceTestEnv(t)
	env.exec("SET_CODE_1:x", "SAVED")
	env.requireMode(led.Single(0))
	env.dev.Poll()
	require.EqualValues(t, 0x01, env.bank.Mask())

	env.exec("GET_CODE_1", "CODE_1:x")
	env.requireMode(led.Single(1))
	env.dev.Poll()
	require.EqualValues(t, 0x02, env.bank.Mask())

	env.exec("GET_CODE_3", "CODE_3:")
	env.dev.Poll()
	require.EqualValues(t, 0x08, env.bank.Mask())
}

func TestIdleTimeout(t *testing.T) {
	for _, line := range []string{"SET_CODE_1:x", "SET_CODE_3:y", "GET_CODE_1", "GET_CODE_2"} {
		t.Run(line, func(t *testing.T) {
			env := newDeviceTestEnv(t)
			env.exec("CONNECT", "OK")
			env.out.Reset()
			env.dev.Dispatch(line)
			require.True(t, env.dev.LEDs.Mode().IsSingle())
			start := env.dev.LastCommandMillis()

			env.clock.Set(start + 2999)
			env.dev.Poll()
			require.True(t, env.dev.LEDs.Mode().IsSingle())

			env.clock.Set(start + 3000)
			env.dev.Poll()
			env.requireMode(env.dev.LEDs.IdleMode())
			env.requireMode(led.BlinkAll)
		})
	}
}

func TestIdleTimeoutRestartsOnAnyCommand(t *testing.T) {
	env := newDeviceTestEnv(t)
	env.exec("SET_CODE_1:x", "SAVED")
	env.clock.Advance(2000)
	env.exec("STATUS", "STATUS:OK,CODES:1/3")
	env.clock.Advance(2000)
	env.dev.Poll()
	env.requireMode(led.Single(0))
	env.clock.Advance(1000)
	env.dev.Poll()
	env.requireMode(led.BlinkAll)
}

func TestUnknownCommandClearsSingleLED(t *testing.T) {
	e := newDeviceTestEnv(t)
	e.exec("CONNECT", "OK")
	e.exec("SET_CODE_1:x", "SAVED")
	e.dev.Poll()
	require.True(t, e.bank.LED(0))
	e.exec("FOO", "ERR:UNKNOWN_CMD")
	e.clock.Advance(10)
	e.dev.Poll()
	e.requireMode(led.BlinkOdd)
	for i := 0; i < led.Width; i += 2 {
		require.False(t, e.bank.LED(i))
	}
}

func TestBlinkCadence(t *testing.T) {
	for _, step := range []uint32{1, 10, 50, 100, 250, 500} {
		t.Run(fmt.Sprintf("step-%d", step), func(t *testing.T) {
			env := newDeviceTestEnv(t)
			env.exec("CONNECT", "OK")
			env.dev.Poll()
			start := env.clock.Millis()
			last := env.bank.Mask()
			flips := 0
			for env.clock.Millis()-start < 5000 {
				env.clock.Advance(step)
				env.dev.Poll()
				if mask := env.bank.Mask(); mask != last {
					flips++
					last = mask
				}
			}
			require.Equal(t, 10, flips)
		})
	}
}

func TestOverlongLineDiscarded(t *testing.T) {
	env := newDeviceTestEnv(t)
	rcv := uart.NewReceiver(nil, env.dev.Mailbox)
	for i := 0; i < 70; i++ {
		rcv.Receive(context.TODO(), 'x')
	}
	require.False(t, env.dev.Mailbox.Ready())
	env.dev.Poll()
	require.Empty(t, env.out.String())
}

func TestPollDispatchesMailbox(t *testing.T) {
	env := newDeviceTestEnv(t)
	env.dev.Mailbox.Put("STATUS")
	events := env.dev.Poll()
	require.Equal(t, "STATUS:OK,CODES:0/3\n", env.out.String())
	var kinds []EventKind
	for _, evt := range events {
		kinds = append(kinds, evt.Kind)
	}
	require.Equal(t, []EventKind{EventCommand, EventResponse, EventDisplay}, kinds)
	require.Equal(t, "STATUS", events[0].Line)
	require.Equal(t, "STATUS:OK,CODES:0/3", events[1].Line)
	require.Equal(t, [2]string{"Status Check", "0 codes stored"}, events[2].Rows)
	require.Empty(t, env.dev.Poll())
}

func TestLoopProcessing(t *testing.T) {
	env := newDeviceTestEnv(t)
	loop := framework.NewLoop(env.clock)
	var events []Event
	loop.Add(env.dev)
	loop.AddController(framework.PrLvPostProc, framework.ControlFunc(func(cc framework.ControlContext) error {
		events = append(events, EventsFrom(cc.Messages(), true)...)
		return nil
	}))
	env.dev.Mailbox.Put("FOO")
	loop.Step(context.TODO())
	require.Equal(t, "ERR:UNKNOWN_CMD\n", env.out.String())
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.Equal(t, EventLED, last.Kind)
	require.Equal(t, led.BlinkOdd.String(), last.Mode)
}

type lineWriter struct {
	lineCh chan string
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.lineCh <- string(p)
	return len(p), nil
}

func TestLoopWithReceiver(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	out := &lineWriter{lineCh: make(chan string, 8)}
	dev := NewDevice(Peripherals{
		Clock:   hal.NewSystemClock(),
		In:      pr,
		Out:     out,
		Display: &hal.Panel{Quiet: true},
		Bank:    &hal.Bank{Quiet: true},
	})
	loop := framework.NewLoop(dev.Clock).Add(dev)
	ctx, cancel := context.WithCancel(context.TODO())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()

	// one line at a time, a line arriving before the previous one is
	// dispatched overwrites it.
	var lines []string
	for _, input := range []string{"\r\nSET_CODE_3:pw\r\n", "GET_CODE_3\n"} {
		go pw.Write([]byte(input))
		select {
		case line := <-out.lineCh:
			lines = append(lines, strings.TrimSuffix(line, "\n"))
		case <-time.After(2 * time.Second):
			t.Fatalf("no response to %q", input)
		}
	}
	require.Equal(t, []string{"SAVED", "CODE_3:pw"}, lines)
	cancel()
	require.Equal(t, context.Canceled, <-errCh)
}
