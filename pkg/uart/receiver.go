package uart

import (
	"context"
	"io"
	"os"

	"github.com/golang/glog"
)

// LineNotifier is told when a complete line was published.
type LineNotifier interface {
	LineReady(context.Context)
}

// LineReadyFunc is func type of LineNotifier.
type LineReadyFunc func(context.Context)

// LineReady implements LineNotifier.
func (f LineReadyFunc) LineReady(ctx context.Context) {
	f(ctx)
}

// Receiver reads the transport one byte at a time, assembles lines
// and publishes them to a Mailbox. Each byte is requested
// individually, the next Read is the re-arm of the receive.
type Receiver struct {
	Reader   io.Reader
	Mailbox  *Mailbox
	Notifier LineNotifier

	asm Assembler
}

// NewReceiver creates a Receiver.
func NewReceiver(r io.Reader, mb *Mailbox) *Receiver {
	return &Receiver{Reader: r, Mailbox: mb}
}

// Run receives until the reader fails or ctx is done.
func (r *Receiver) Run(ctx context.Context) error {
	byteCh, errCh := make(chan byte), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go r.readLoop(subCtx, byteCh, errCh)
	for {
		select {
		case b := <-byteCh:
			r.Receive(ctx, b)
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Receive handles one byte as the receive completion would.
func (r *Receiver) Receive(ctx context.Context, b byte) FeedResult {
	fr := r.asm.Feed(b)
	switch fr.State {
	case FeedLine:
		if r.Mailbox.Put(fr.Line) {
			glog.Warningf("RX line overwritten before dispatch")
		}
		glog.V(2).Infof("RX %q", fr.Line)
		if n := r.Notifier; n != nil {
			n.LineReady(ctx)
		}
	case FeedOverflow:
		glog.V(2).Infof("RX overflow, partial line dropped")
	}
	return fr
}

func (r *Receiver) readLoop(ctx context.Context, byteCh chan byte, errCh chan error) {
	buf := make([]byte, 1)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, err := r.Reader.Read(buf)
		if err != nil {
			if os.IsTimeout(err) {
				continue
			}
			errCh <- err
			return
		}
		if n == 0 {
			continue
		}
		select {
		case byteCh <- buf[0]:
		case <-ctx.Done():
			return
		}
	}
}
