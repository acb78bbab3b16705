package hal

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestElapsedWraps(t *testing.T) {
	testCases := []struct {
		name   string
		now    uint32
		last   uint32
		expect uint32
	}{
		{"forward", 1500, 1000, 500},
		{"same", 42, 42, 0},
		{"wrapped", 10, 0xfffffff6, 20},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, Elapsed(tc.now, tc.last))
		})
	}
}

func TestManualClock(t *testing.T) {
	c := NewManualClock(100)
	require.EqualValues(t, 100, c.Millis())
	c.Delay(1000)
	require.EqualValues(t, 1100, c.Millis())
	require.EqualValues(t, 1110, c.Advance(10))
	c.Set(0xffffffff)
	c.Advance(2)
	require.EqualValues(t, 1, c.Millis())
}

func TestPanel(t *testing.T) {
	p := &Panel{Quiet: true}
	p.WriteLine(RowOne, "GET CODE")
	p.WriteLine(RowTwo, "Slot 1: 0123456789abc")
	p.WriteLine(3, "ignored")
	require.Equal(t, [2]string{"GET CODE", "Slot 1: 01234567"}, p.Lines())
	p.Clear()
	require.Equal(t, [2]string{}, p.Lines())
}

func TestBank(t *testing.T) {
	b := &Bank{Quiet: true}
	b.Set(0xaa)
	require.EqualValues(t, 0xaa, b.Mask())
	require.True(t, b.LED(1))
	require.False(t, b.LED(0))
	require.False(t, b.LED(8))
	require.Equal(t, 1, b.Writes())

	loud := &Bank{}
	loud.Set(0x01)
	loud.Set(0x01)
	require.EqualValues(t, 0x01, loud.Mask())
	require.Equal(t, 2, loud.Writes())
}

func TestPort(t *testing.T) {
	var p Port
	n, err := p.Write([]byte("dropped\n"))
	require.NoError(t, err)
	require.Equal(t, 8, n)

	var a, b bytes.Buffer
	p.Attach(&a)
	p.Write([]byte("OK\n"))
	p.Attach(&b)
	p.Detach(&a)
	p.Write([]byte("BYE\n"))
	p.Detach(&b)
	p.Write([]byte("lost\n"))
	require.Equal(t, "OK\n", a.String())
	require.Equal(t, "BYE\n", b.String())
}

func TestSerialDescribe(t *testing.T) {
	desc := SerialConfig{Name: "/dev/ttyUSB0"}.Describe()
	require.Contains(t, desc, "Baud: 115200")
	require.Contains(t, desc, "Timeout: OFF")
}
