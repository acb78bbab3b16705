package framework

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/dongle/pkg/hal"
)

type testMsg struct {
	id int
}

func (m *testMsg) NewMessage() Message { return &testMsg{} }

func TestLoopStepOrder(t *testing.T) {
	clock := hal.NewManualClock(1234)
	loop := NewLoop(clock)
	var order []string
	record := func(name string) Controller {
		return ControlFunc(func(cc ControlContext) error {
			require.EqualValues(t, 1234, cc.Millis())
			order = append(order, name)
			return nil
		})
	}
	loop.AddController(PrLvRender, record("render"))
	loop.AddController(PrLvReceive, record("receive"))
	loop.AddController(PrLvPostProc, record("report"))
	loop.AddController(PrLvControl, record("control"))
	loop.Step(context.TODO())
	require.Equal(t, []string{"receive", "control", "render", "report"}, order)
}

func TestLoopMessages(t *testing.T) {
	loop := NewLoop(hal.NewManualClock(0))
	var seen, remaining []int
	loop.AddController(PrLvControl, ControlFunc(func(cc ControlContext) error {
		cc.Messages().AddMessages(&testMsg{id: 3})
		return nil
	}))
	loop.AddController(PrLvPostProc, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mctx MessageProcessingContext) {
			msg := mctx.CurrentMessage().(*testMsg)
			seen = append(seen, msg.id)
			if msg.id != 2 {
				mctx.MessageTaken()
			}
		}))
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mctx MessageProcessingContext) {
			remaining = append(remaining, mctx.CurrentMessage().(*testMsg).id)
		}))
		return nil
	}))
	loop.PostMessage(&testMsg{id: 1})
	loop.PostMessage(&testMsg{id: 2})
	loop.Step(context.TODO())
	require.Equal(t, []int{1, 2, 3}, seen)
	require.Equal(t, []int{2}, remaining)

	// posted messages live for one iteration only.
	seen, remaining = nil, nil
	loop.Step(context.TODO())
	require.Equal(t, []int{3}, seen)
}

func TestLoopStopProcessing(t *testing.T) {
	loop := NewLoop(nil)
	var seen int
	var left int
	loop.AddController(PrLvControl, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mctx MessageProcessingContext) {
			seen++
			mctx.MessageTaken()
			mctx.StopProcessing()
		}))
		left = cc.Messages().Len()
		return nil
	}))
	loop.PostMessage(&testMsg{id: 1})
	loop.PostMessage(&testMsg{id: 2})
	loop.PostMessage(&testMsg{id: 3})
	loop.Step(context.TODO())
	require.Equal(t, 1, seen)
	require.Equal(t, 2, left)
}

func TestLoopRunTriggerNext(t *testing.T) {
	loop := NewLoop(hal.NewSystemClock())
	loop.Interval = time.Hour
	stepped := make(chan struct{}, 1)
	loop.AddController(PrLvControl, ControlFunc(func(cc ControlContext) error {
		select {
		case stepped <- struct{}{}:
		default:
		}
		return nil
	}))
	ctx, cancel := context.WithCancel(context.TODO())
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()
	loop.TriggerNext()
	select {
	case <-stepped:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("iteration not triggered")
	}
	cancel()
	require.Equal(t, context.Canceled, <-errCh)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestRunnerWait(t *testing.T) {
	failure := errors.New("receiver failed")
	ctx, cancel := context.WithCancel(context.TODO())
	r := NewRunnerWith(ctx)
	r.Go(
		NamedRun("canceled", RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})),
		RunFunc(func(context.Context) error { return failure }),
	)
	cancel()
	err := r.Wait()
	require.Error(t, err)
	require.True(t, errors.Is(err, failure))
	require.Equal(t, failure.Error(), err.Error())
}

func TestRunWithContextCloser(t *testing.T) {
	unblock := make(chan struct{})
	closed := 0
	closer := closerFunc(func() error {
		closed++
		close(unblock)
		return nil
	})
	ctx, cancel := context.WithCancel(context.TODO())
	cancel()
	err := RunWithContextCloser(ctx, closer, func() error {
		<-unblock
		return io.EOF
	})
	require.Equal(t, context.Canceled, err)
	require.Equal(t, 1, closed)

	closed = 0
	err = RunWithContextCloser(context.TODO(), closerFunc(func() error {
		closed++
		return nil
	}), func() error { return io.EOF })
	require.Equal(t, io.EOF, err)
	require.Equal(t, 1, closed)
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil).Aggregate())
	errs.Add(io.EOF, io.ErrUnexpectedEOF)
	require.Equal(t, "multiple errors:\nEOF\nunexpected EOF", errs.Aggregate().Error())
}
